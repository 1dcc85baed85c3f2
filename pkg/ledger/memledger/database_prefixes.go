package memledger

const (
	// storeKeyPrefixCounter defines the prefix for the sequence and height counters.
	storeKeyPrefixCounter byte = 0

	// storeKeyPrefixTransaction defines the prefix for transactions.
	storeKeyPrefixTransaction byte = 1

	// storeKeyPrefixOutput defines the prefix for spendable outputs.
	storeKeyPrefixOutput byte = 2

	// storeKeyPrefixUnspent and storeKeyPrefixLocked track the state of outputs.
	storeKeyPrefixUnspent byte = 3
	storeKeyPrefixLocked  byte = 4

	// storeKeyPrefixAddress defines the prefix for wallet addresses.
	storeKeyPrefixAddress byte = 5

	// storeKeyPrefixBlock defines the prefix for blocks.
	storeKeyPrefixBlock byte = 6
)

const (
	counterSequence byte = 0
	counterHeight   byte = 1
)

/*
   Ledger Database

   Counter:
   ========
   Key:
       storeKeyPrefixCounter + counterSequence|counterHeight
               1 byte        +       1 byte

   Value:
       uint64
       8 bytes

   Transaction:
   ============
   Key:
       storeKeyPrefixTransaction + chainhash.Hash
                 1 byte          +    32 bytes

   Value:
       Sequence  +  Height (0 = mempool)  +  wire.MsgTx
       8 bytes   +        8 bytes         +   X bytes

   Output:
   =======
   Key:
       storeKeyPrefixOutput + chainhash.Hash + Index
              1 byte        +    32 bytes    + 4 bytes

   Value:
       Sequence  +  Height  +  Amount  +  PkScript length  +  PkScript
       8 bytes   + 8 bytes  + 8 bytes  +      4 bytes      +  X bytes

   Unspent / Locked Output:
   ========================
   Key:
       storeKeyPrefixUnspent|storeKeyPrefixLocked + chainhash.Hash + Index
                       1 byte                     +    32 bytes    + 4 bytes

   Value:
       Empty

   Address:
   ========
   Key:
       storeKeyPrefixAddress + encoded address
              1 byte         +     X bytes

   Value:
       Label length  +  Label  +  PrivateKey length  +  PrivateKey (empty for watch-only)
         4 bytes     + X bytes +      4 bytes        +   0/32 bytes

   Block:
   ======
   Key:
       storeKeyPrefixBlock + Height
             1 byte        + 8 bytes

   Value:
       chainhash.Hash  +  Unix time
          32 bytes     +  8 bytes
*/
