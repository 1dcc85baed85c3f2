package toolset

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	flag "github.com/spf13/pflag"

	"github.com/iotaledger/hive.go/app/configuration"
	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/ledger-ipfs/pkg/keys"
)

type keyInfo struct {
	LedgerPublicKey     string `json:"ledgerPublicKey"`
	EncryptionPublicKey string `json:"encryptionPublicKey"`
}

func keyDerive(args []string) error {
	fs := configuration.NewUnsortedFlagSet("", flag.ContinueOnError)
	privateKeyFlag := fs.String(FlagToolPrivateKey, "", "the private key of a ledger address (WIF or hex)")
	outputJSONFlag := fs.Bool(FlagToolOutputJSON, false, FlagToolDescriptionOutputJSON)

	fs.Usage = usage(fs, ToolKeyDerive, fmt.Sprintf("--%s %s", FlagToolPrivateKey, "<WIF or hex>"))

	if err := parseFlagSet(fs, args); err != nil {
		return err
	}

	if *privateKeyFlag == "" {
		return ierrors.Errorf("--%s is required", FlagToolPrivateKey)
	}

	rawPrivateKey, err := keys.DecodePrivateKey(*privateKeyFlag)
	if err != nil {
		return err
	}

	keyPair, err := keys.DeriveKeyPair(rawPrivateKey)
	if err != nil {
		return err
	}

	_, ledgerPublicKey := btcec.PrivKeyFromBytes(rawPrivateKey)

	info := keyInfo{
		LedgerPublicKey:     hex.EncodeToString(ledgerPublicKey.SerializeCompressed()),
		EncryptionPublicKey: hex.EncodeToString(keyPair.PublicKeyBytes()),
	}

	if *outputJSONFlag {
		return printJSON(info)
	}

	fmt.Println("Your ledger public key:     ", info.LedgerPublicKey)
	fmt.Println("Your encryption public key: ", info.EncryptionPublicKey)

	return nil
}
