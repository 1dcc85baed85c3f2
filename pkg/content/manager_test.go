package content_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iotaledger/hive.go/log"
	"github.com/iotaledger/ledger-ipfs/pkg/bcdata"
	"github.com/iotaledger/ledger-ipfs/pkg/content"
	"github.com/iotaledger/ledger-ipfs/pkg/keys"
	"github.com/iotaledger/ledger-ipfs/pkg/ledger/memledger"
	"github.com/iotaledger/ledger-ipfs/pkg/model"
	"github.com/iotaledger/ledger-ipfs/pkg/objectstore"
	"github.com/iotaledger/ledger-ipfs/pkg/objectstore/memstore"
	"github.com/iotaledger/ledger-ipfs/pkg/wallet"
)

const btcAmount = model.Amount(100_000_000)

type testFramework struct {
	t      *testing.T
	ledger *memledger.Ledger
	wallet *wallet.Wallet
	store  *memstore.Store
}

func newTestFramework(t *testing.T, store *memstore.Store) *testFramework {
	t.Helper()

	l := memledger.New(nil)

	return &testFramework{
		t:      t,
		ledger: l,
		wallet: wallet.New(l, log.NewLogger()),
		store:  store,
	}
}

// newManager creates a manager with its own caches and root directory, like a second node using the same ledger.
func (tf *testFramework) newManager() (*content.Manager, string) {
	tf.t.Helper()

	rootDir := tf.t.TempDir()

	m, err := content.New(tf.wallet, tf.store, content.DefaultConfig(rootDir), content.WithLogger(log.NewLogger()))
	require.NoError(tf.t, err)
	tf.t.Cleanup(m.Shutdown)

	return m, rootDir
}

func (tf *testFramework) fundedAddress(label string) *model.Address {
	tf.t.Helper()

	addr, err := tf.wallet.NewAddress(context.Background(), label)
	require.NoError(tf.t, err)

	_, err = tf.ledger.Generate(context.Background(), 1, addr.String())
	require.NoError(tf.t, err)

	return addr
}

func (tf *testFramework) lockedOutputs(addr *model.Address) []*model.UTXO {
	tf.t.Helper()

	utxos, err := tf.wallet.ListLockUnspent(context.Background(), []*model.Address{addr})
	require.NoError(tf.t, err)

	return utxos
}

// spend sends utxo to the given outputs, whatever is left over is paid as fee.
func (tf *testFramework) spend(utxo *model.UTXO, outputs ...model.TxOutput) {
	tf.t.Helper()

	_, err := tf.wallet.SendTx(context.Background(), wallet.NewTxBuilder().UnspentInputs(utxo).Outputs(outputs...).Build())
	require.NoError(tf.t, err)
}

func readFile(t *testing.T, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	return string(data)
}

func TestManager_Register(t *testing.T) {
	ctx := context.Background()
	tf := newTestFramework(t, memstore.New())
	m, _ := tf.newManager()

	alice := tf.fundedAddress("Alice")

	publicKey, err := m.Register(ctx, alice)
	require.NoError(t, err)

	keyPair, err := keys.DeriveKeyPair(alice.PrivateKey())
	require.NoError(t, err)
	require.True(t, keyPair.Public.IsEqual(publicKey))

	again, err := m.Register(ctx, alice)
	require.NoError(t, err)
	require.True(t, publicKey.IsEqual(again))
	require.EqualValues(t, 1, m.Metrics().Registrations.Load())
	require.Len(t, tf.lockedOutputs(alice), 1)

	other, _ := tf.newManager()
	found, err := other.FindRegistration(ctx, alice)
	require.NoError(t, err)
	require.True(t, publicKey.IsEqual(found))

	registeredAgain, err := other.Register(ctx, alice)
	require.NoError(t, err)
	require.True(t, publicKey.IsEqual(registeredAgain))
	require.Len(t, tf.lockedOutputs(alice), 1)
}

func TestManager_RegisterInvalidAddress(t *testing.T) {
	ctx := context.Background()
	tf := newTestFramework(t, memstore.New())
	m, _ := tf.newManager()

	tf.fundedAddress("Alice")

	change, err := tf.wallet.GetChangeAddress(ctx, "Alice")
	require.NoError(t, err)

	_, err = m.Register(ctx, change)
	require.ErrorIs(t, err, content.ErrInvalidAddress)

	foreignLedger := memledger.New(nil)
	foreign, err := wallet.New(foreignLedger, log.NewLogger()).NewAddress(ctx, "Bob")
	require.NoError(t, err)

	watchOnly, err := tf.wallet.ImportAddress(ctx, foreign.String(), "Bob")
	require.NoError(t, err)
	require.False(t, watchOnly.IsWalletControlled())

	_, err = m.Register(ctx, watchOnly)
	require.ErrorIs(t, err, content.ErrInvalidAddress)

	_, err = m.FindRegistration(ctx, watchOnly)
	require.ErrorIs(t, err, content.ErrNotRegistered)
}

func TestManager_AddGet(t *testing.T) {
	ctx := context.Background()
	tf := newTestFramework(t, memstore.New())
	m, rootDir := tf.newManager()

	alice := tf.fundedAddress("Alice")

	_, err := m.Add(ctx, alice, strings.NewReader("hello"), "a/b.txt")
	require.ErrorIs(t, err, content.ErrEncryptionKeyMissing)

	_, err = m.Register(ctx, alice)
	require.NoError(t, err)

	handle, err := m.Add(ctx, alice, strings.NewReader("hello"), "a/b.txt")
	require.NoError(t, err)
	require.NoError(t, objectstore.ValidateCID(handle.CID()))
	require.True(t, handle.IsAvailable())
	require.True(t, handle.IsEncrypted())
	require.NotEmpty(t, handle.TxID())
	require.Equal(t, "a/b.txt", handle.Path())
	require.Equal(t, filepath.Join(rootDir, "crypt", alice.String(), handle.CID()), handle.LocalPath())
	require.Equal(t, "hello", readFile(t, filepath.Join(rootDir, "plain", alice.String(), "a", "b.txt")))
	require.EqualValues(t, 1, m.Metrics().FilesAdded.Load())

	// the content file never contains the plaintext
	require.NotContains(t, readFile(t, handle.LocalPath()), "hello")

	got, err := m.Get(ctx, alice, handle.CID(), "copy/b.txt", time.Second)
	require.NoError(t, err)
	require.Equal(t, "hello", readFile(t, got.LocalPath()))

	other, otherRootDir := tf.newManager()
	fromStore, err := other.Get(ctx, alice, handle.CID(), "a/b.txt", time.Second)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(otherRootDir, "plain", alice.String(), "a", "b.txt"), fromStore.LocalPath())
	require.Equal(t, "hello", readFile(t, fromStore.LocalPath()))

	published, err := m.PublishedContent(alice)
	require.NoError(t, err)
	require.Len(t, published, 1)
	require.Equal(t, handle.CID(), published[0].CID())
}

func TestManager_InvalidPaths(t *testing.T) {
	ctx := context.Background()
	tf := newTestFramework(t, memstore.New())
	m, _ := tf.newManager()

	alice := tf.fundedAddress("Alice")
	_, err := m.Register(ctx, alice)
	require.NoError(t, err)

	for _, relPath := range []string{"", " ", "/abs/file.txt", "../escape.txt", "a/../../escape.txt"} {
		_, err := m.Add(ctx, alice, strings.NewReader("hello"), relPath)
		require.ErrorIs(t, err, content.ErrInvalidPath, relPath)

		_, err = m.Get(ctx, alice, "bafkreihdwdcefgh4dqkjv67uzcmw7ojee6xedzdetojuzjevtenxquvyku", relPath, time.Second)
		require.ErrorIs(t, err, content.ErrInvalidPath, relPath)
	}
}

func TestManager_AddPath(t *testing.T) {
	ctx := context.Background()
	tf := newTestFramework(t, memstore.New())
	m, rootDir := tf.newManager()

	alice := tf.fundedAddress("Alice")
	_, err := m.Register(ctx, alice)
	require.NoError(t, err)

	docs := filepath.Join(rootDir, "plain", alice.String(), "docs")
	require.NoError(t, os.MkdirAll(filepath.Join(docs, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "x.txt"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "nested", "y.txt"), []byte("y"), 0o600))

	handles, err := m.AddPath(ctx, alice, "docs")
	require.NoError(t, err)
	require.Len(t, handles, 2)
	require.Equal(t, "docs/nested/y.txt", handles[0].Path())
	require.Equal(t, "docs/x.txt", handles[1].Path())

	other, _ := tf.newManager()
	found, err := other.FindContent(ctx, alice, time.Second)
	require.NoError(t, err)
	require.Len(t, found, 2)
}

func TestManager_Send(t *testing.T) {
	ctx := context.Background()
	tf := newTestFramework(t, memstore.New())
	m, _ := tf.newManager()

	alice := tf.fundedAddress("Alice")
	bob := tf.fundedAddress("Bob")

	_, err := m.Register(ctx, alice)
	require.NoError(t, err)

	handle, err := m.Add(ctx, alice, strings.NewReader("hello bob"), "letters/bob.txt")
	require.NoError(t, err)

	_, err = m.Send(ctx, alice, handle.CID(), bob, time.Second)
	require.ErrorIs(t, err, content.ErrEncryptionKeyMissing)

	_, err = m.Register(ctx, bob)
	require.NoError(t, err)

	sent, err := m.Send(ctx, alice, handle.CID(), bob, time.Second)
	require.NoError(t, err)
	require.NotEqual(t, handle.CID(), sent.CID())
	require.True(t, bob.Equal(sent.Owner()))
	require.Equal(t, "letters/bob.txt", sent.Path())
	require.EqualValues(t, 1, m.Metrics().FilesSent.Load())

	other, _ := tf.newManager()
	found, err := other.FindContent(ctx, bob, time.Second)
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, sent.CID(), found[0].CID())
	require.True(t, found[0].IsAvailable())
	require.Equal(t, "letters/bob.txt", found[0].Path())
	require.Equal(t, sent.TxID(), found[0].TxID())

	got, err := other.Get(ctx, bob, sent.CID(), "inbox/bob.txt", time.Second)
	require.NoError(t, err)
	require.Equal(t, "hello bob", readFile(t, got.LocalPath()))

	// alice cannot read the copy encrypted for bob
	_, err = other.Get(ctx, alice, sent.CID(), "inbox/stolen.txt", time.Second)
	require.Error(t, err)
}

func TestManager_FindContent(t *testing.T) {
	ctx := context.Background()
	tf := newTestFramework(t, memstore.New())
	m, _ := tf.newManager()

	alice := tf.fundedAddress("Alice")
	_, err := m.Register(ctx, alice)
	require.NoError(t, err)

	handle, err := m.Add(ctx, alice, strings.NewReader("hello"), "a/b.txt")
	require.NoError(t, err)

	found, err := m.FindContent(ctx, alice, time.Second)
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.True(t, found[0].IsAvailable())

	other, _ := tf.newManager()
	found, err = other.FindContent(ctx, alice, time.Second)
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, handle.CID(), found[0].CID())
	require.Equal(t, handle.TxID(), found[0].TxID())
	require.Equal(t, "a/b.txt", found[0].Path())
	require.True(t, found[0].IsAvailable())
	require.True(t, found[0].IsEncrypted())
	require.GreaterOrEqual(t, found[0].Attempts(), 1)
	require.EqualValues(t, 1, other.Metrics().FetchesAvailable.Load())

	// registrations are not content
	bob := tf.fundedAddress("Bob")
	_, err = m.Register(ctx, bob)
	require.NoError(t, err)

	found, err = other.FindContent(ctx, bob, time.Second)
	require.NoError(t, err)
	require.Empty(t, found)
}

func TestManager_FetchTimeout(t *testing.T) {
	ctx := context.Background()
	store := memstore.New(memstore.WithLatency(50 * time.Millisecond))
	tf := newTestFramework(t, store)
	m, _ := tf.newManager()

	alice := tf.fundedAddress("Alice")
	_, err := m.Register(ctx, alice)
	require.NoError(t, err)

	available, err := m.Add(ctx, alice, strings.NewReader("slow"), "slow.txt")
	require.NoError(t, err)

	missing, err := m.Add(ctx, alice, strings.NewReader("gone"), "gone.txt")
	require.NoError(t, err)
	store.Remove(missing.CID())

	other, _ := tf.newManager()

	found, err := other.FindContent(ctx, alice, 20*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, found, 2)

	for _, handle := range found {
		require.False(t, handle.IsAvailable(), handle.CID())
		require.False(t, handle.IsExpired(), handle.CID())
		require.True(t, handle.IsMissing(), handle.CID())
		require.True(t, handle.IsScheduled(), handle.CID())
	}
	require.EqualValues(t, 2, other.Metrics().FetchesTimedOut.Load())

	states := func() map[string]*content.FHandle {
		found, err := other.FindContent(ctx, alice, 20*time.Millisecond)
		require.NoError(t, err)

		byCID := make(map[string]*content.FHandle, len(found))
		for _, handle := range found {
			byCID[handle.CID()] = handle
		}

		return byCID
	}

	require.Eventually(t, func() bool {
		byCID := states()

		return byCID[available.CID()].IsAvailable() && byCID[missing.CID()].IsExpired()
	}, 5*time.Second, 20*time.Millisecond)

	require.EqualValues(t, 2, other.Metrics().FetchesScheduled.Load())

	_, err = other.Get(ctx, alice, missing.CID(), "gone.txt", time.Second)
	require.ErrorIs(t, err, objectstore.ErrNotFound)

	got, err := other.Get(ctx, alice, available.CID(), "slow.txt", time.Second)
	require.NoError(t, err)
	require.Equal(t, "slow", readFile(t, got.LocalPath()))
}

func TestManager_GetTimeout(t *testing.T) {
	ctx := context.Background()
	store := memstore.New(memstore.WithLatency(time.Hour))
	tf := newTestFramework(t, store)
	m, _ := tf.newManager()

	alice := tf.fundedAddress("Alice")
	_, err := m.Register(ctx, alice)
	require.NoError(t, err)

	handle, err := m.Add(ctx, alice, strings.NewReader("hello"), "a.txt")
	require.NoError(t, err)

	other, _ := tf.newManager()
	_, err = other.Get(ctx, alice, handle.CID(), "a.txt", 10*time.Millisecond)
	require.ErrorIs(t, err, content.ErrTimeout)
}

func TestManager_Unregister(t *testing.T) {
	ctx := context.Background()
	tf := newTestFramework(t, memstore.New())
	m, _ := tf.newManager()

	alice := tf.fundedAddress("Alice")
	_, err := m.Register(ctx, alice)
	require.NoError(t, err)
	require.Len(t, tf.lockedOutputs(alice), 1)

	require.NoError(t, m.Unregister(ctx, alice))
	require.Empty(t, tf.lockedOutputs(alice))

	_, err = m.FindRegistration(ctx, alice)
	require.ErrorIs(t, err, content.ErrNotRegistered)

	other, _ := tf.newManager()
	_, err = other.FindRegistration(ctx, alice)
	require.ErrorIs(t, err, content.ErrNotRegistered)

	_, err = m.Add(ctx, alice, strings.NewReader("hello"), "a.txt")
	require.ErrorIs(t, err, content.ErrEncryptionKeyMissing)
}

func TestManager_Unpublish(t *testing.T) {
	ctx := context.Background()
	tf := newTestFramework(t, memstore.New())
	m, _ := tf.newManager()

	alice := tf.fundedAddress("Alice")
	_, err := m.Register(ctx, alice)
	require.NoError(t, err)

	first, err := m.Add(ctx, alice, strings.NewReader("first"), "first.txt")
	require.NoError(t, err)

	second, err := m.Add(ctx, alice, strings.NewReader("second"), "second.txt")
	require.NoError(t, err)
	require.Len(t, tf.lockedOutputs(alice), 3)

	require.NoError(t, m.Unpublish(ctx, alice, first.CID()))
	require.Len(t, tf.lockedOutputs(alice), 2)

	found, err := m.FindContent(ctx, alice, time.Second)
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, second.CID(), found[0].CID())

	published, err := m.PublishedContent(alice)
	require.NoError(t, err)
	require.Len(t, published, 1)
	require.Equal(t, second.CID(), published[0].CID())

	require.NoError(t, m.Unpublish(ctx, alice))

	found, err = m.FindContent(ctx, alice, time.Second)
	require.NoError(t, err)
	require.Empty(t, found)

	// the registration survives
	_, err = m.FindRegistration(ctx, alice)
	require.NoError(t, err)
	require.Len(t, tf.lockedOutputs(alice), 1)
}

func TestManager_SpentContentLeavesCache(t *testing.T) {
	ctx := context.Background()
	tf := newTestFramework(t, memstore.New())
	m, _ := tf.newManager()

	alice := tf.fundedAddress("Alice")
	_, err := m.Register(ctx, alice)
	require.NoError(t, err)

	handle, err := m.Add(ctx, alice, strings.NewReader("hello"), "a.txt")
	require.NoError(t, err)

	found, err := m.FindContent(ctx, alice, time.Second)
	require.NoError(t, err)
	require.Len(t, found, 1)

	other, _ := tf.newManager()
	require.NoError(t, other.Unpublish(ctx, alice, handle.CID()))

	found, err = m.FindContent(ctx, alice, time.Second)
	require.NoError(t, err)
	require.Empty(t, found)
}

func TestManager_ScanLocksRecordsAgain(t *testing.T) {
	ctx := context.Background()
	tf := newTestFramework(t, memstore.New())
	m, _ := tf.newManager()

	alice := tf.fundedAddress("Alice")
	_, err := m.Register(ctx, alice)
	require.NoError(t, err)

	locked := tf.lockedOutputs(alice)
	require.Len(t, locked, 1)
	require.NoError(t, tf.wallet.LockUnspent(ctx, locked[0], true))
	require.Empty(t, tf.lockedOutputs(alice))

	other, _ := tf.newManager()
	_, err = other.FindRegistration(ctx, alice)
	require.NoError(t, err)

	relocked := tf.lockedOutputs(alice)
	require.Len(t, relocked, 1)
	require.Equal(t, locked[0].OutPoint, relocked[0].OutPoint)
}

func TestManager_LocalContent(t *testing.T) {
	ctx := context.Background()
	tf := newTestFramework(t, memstore.New())
	m, rootDir := tf.newManager()

	alice := tf.fundedAddress("Alice")
	_, err := m.Register(ctx, alice)
	require.NoError(t, err)

	empty, err := m.FindLocalContent(alice)
	require.NoError(t, err)
	require.Empty(t, empty)

	_, err = m.Add(ctx, alice, strings.NewReader("b"), "a/b.txt")
	require.NoError(t, err)
	_, err = m.Add(ctx, alice, strings.NewReader("d"), "a/c/d.txt")
	require.NoError(t, err)

	local, err := m.FindLocalContent(alice)
	require.NoError(t, err)
	require.Len(t, local, 2)
	require.Equal(t, "a/b.txt", local[0].Path())
	require.Equal(t, "a/c/d.txt", local[1].Path())
	require.True(t, local[0].IsAvailable())
	require.False(t, local[0].IsEncrypted())

	reader, err := m.GetLocalContent(alice, "a/b.txt")
	require.NoError(t, err)
	b, err := io.ReadAll(reader)
	require.NoError(t, err)
	require.NoError(t, reader.Close())
	require.Equal(t, "b", string(b))

	deleted, err := m.DeleteLocalContent(alice, "a/c/d.txt")
	require.NoError(t, err)
	require.True(t, deleted)

	_, err = os.Stat(filepath.Join(rootDir, "plain", alice.String(), "a", "c"))
	require.ErrorIs(t, err, os.ErrNotExist)

	deleted, err = m.DeleteLocalContent(alice, "a/c/d.txt")
	require.NoError(t, err)
	require.False(t, deleted)

	_, err = m.DeleteLocalContent(alice, "../a")
	require.ErrorIs(t, err, content.ErrInvalidPath)

	local, err = m.FindLocalContent(alice)
	require.NoError(t, err)
	require.Len(t, local, 1)
}

func TestManager_ForeignRecordsAreSkipped(t *testing.T) {
	ctx := context.Background()
	tf := newTestFramework(t, memstore.New())
	m, _ := tf.newManager()

	alice := tf.fundedAddress("Alice")
	_, err := tf.ledger.Generate(ctx, 2, alice.String())
	require.NoError(t, err)

	utxos, err := tf.wallet.ListUnspent(ctx, []*model.Address{alice})
	require.NoError(t, err)
	require.Len(t, utxos, 3)

	cid, err := tf.store.Add(ctx, strings.NewReader("not a content file"))
	require.NoError(t, err)

	fileData, err := bcdata.CreateFileData(cid)
	require.NoError(t, err)

	keyPair, err := keys.DeriveKeyPair(alice.PrivateKey())
	require.NoError(t, err)

	pubKeyData, err := bcdata.CreatePubKeyData(keyPair.PublicKeyBytes())
	require.NoError(t, err)

	// data output followed by another value output
	tf.spend(utxos[0],
		model.TxOutput{Address: alice.String(), Amount: btcAmount, Data: fileData},
		model.TxOutput{Address: alice.String(), Amount: btcAmount},
	)
	tf.spend(utxos[1],
		model.TxOutput{Address: alice.String(), Amount: btcAmount, Data: pubKeyData},
		model.TxOutput{Address: alice.String(), Amount: btcAmount},
	)
	// last output is a data output of another application
	tf.spend(utxos[2],
		model.TxOutput{Address: alice.String(), Amount: btcAmount, Data: []byte{bcdata.ReturnMarker, 0x03, 'F', 'O', 'O'}},
	)

	handles, err := m.FindContent(ctx, alice, time.Second)
	require.NoError(t, err)
	require.Empty(t, handles)

	_, err = m.FindRegistration(ctx, alice)
	require.ErrorIs(t, err, content.ErrNotRegistered)
	require.Empty(t, tf.lockedOutputs(alice))
	require.Zero(t, tf.store.GetCount())

	// a proper registration is still found next to the foreign records
	publicKey, err := m.Register(ctx, alice)
	require.NoError(t, err)
	require.True(t, keyPair.Public.IsEqual(publicKey))

	other, _ := tf.newManager()
	found, err := other.FindRegistration(ctx, alice)
	require.NoError(t, err)
	require.True(t, publicKey.IsEqual(found))
}

func TestManager_GetForeignFormat(t *testing.T) {
	ctx := context.Background()
	tf := newTestFramework(t, memstore.New())
	m, rootDir := tf.newManager()

	alice := tf.fundedAddress("Alice")

	cid, err := tf.store.Add(ctx, strings.NewReader("DAT-Version: 9.9\nPath: a.txt\nOwner: "+alice.String()+"\nToken: AAAA\nDAT_HEADER_END\nAAAA"))
	require.NoError(t, err)

	_, err = m.Get(ctx, alice, cid, "a.txt", time.Second)
	require.ErrorIs(t, err, content.ErrHeaderVersionMismatch)
	require.NoFileExists(t, filepath.Join(rootDir, "plain", alice.String(), "a.txt"))

	// the owner of a content file must be an address, it names the crypt directory
	cid, err = tf.store.Add(ctx, strings.NewReader("DAT-Version: 1.0\nPath: a.txt\nOwner: ../../escape\nToken: AAAA\nDAT_HEADER_END\nAAAA"))
	require.NoError(t, err)

	_, err = m.Get(ctx, alice, cid, "a.txt", time.Second)
	require.ErrorIs(t, err, content.ErrInvalidAddress)
	require.NoDirExists(t, filepath.Join(rootDir, "escape"))
	require.NoDirExists(t, filepath.Join(filepath.Dir(rootDir), "escape"))
}

func TestManager_NilAddress(t *testing.T) {
	ctx := context.Background()
	tf := newTestFramework(t, memstore.New())
	m, _ := tf.newManager()

	alice := tf.fundedAddress("Alice")
	_, err := m.Register(ctx, alice)
	require.NoError(t, err)

	handle, err := m.Add(ctx, alice, strings.NewReader("hello"), "hello.txt")
	require.NoError(t, err)

	_, err = m.FindRegistration(ctx, nil)
	require.ErrorIs(t, err, content.ErrInvalidAddress)

	_, err = m.FindContent(ctx, nil, time.Second)
	require.ErrorIs(t, err, content.ErrInvalidAddress)

	_, err = m.Send(ctx, alice, handle.CID(), nil, time.Second)
	require.ErrorIs(t, err, content.ErrInvalidAddress)

	_, err = m.PublishedContent(nil)
	require.ErrorIs(t, err, content.ErrInvalidAddress)

	_, err = m.FindLocalContent(nil)
	require.ErrorIs(t, err, content.ErrInvalidAddress)

	_, err = m.GetLocalContent(nil, "hello.txt")
	require.ErrorIs(t, err, content.ErrInvalidAddress)

	_, err = m.DeleteLocalContent(nil, "hello.txt")
	require.ErrorIs(t, err, content.ErrInvalidAddress)
}
