package content_test

import (
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"

	"github.com/iotaledger/ledger-ipfs/pkg/content"
	"github.com/iotaledger/ledger-ipfs/pkg/model"
)

func TestFHandle_CopyOnWrite(t *testing.T) {
	owner := model.NewAddress("mkHS9ne12qx9pS9VojpwU5xtRd4T7X7ZUt", "Alice")

	handle := content.NewFHandle("bafkreihdwdcefgh4dqkjv67uzcmw7ojee6xedzdetojuzjevtenxquvyku")
	require.True(t, handle.IsMissing())
	require.False(t, handle.IsEncrypted())
	require.Equal(t, content.StateUnresolved, handle.State())

	resolved := handle.WithOwner(owner).WithSecretToken("token").WithAttempt(time.Second).WithAttempt(time.Second).WithState(content.StateResolved)
	require.True(t, resolved.IsAvailable())
	require.True(t, resolved.IsEncrypted())
	require.Equal(t, 2, resolved.Attempts())
	require.Equal(t, 2*time.Second, resolved.Elapsed())
	require.True(t, owner.Equal(resolved.Owner()))

	require.True(t, handle.IsMissing())
	require.Nil(t, handle.Owner())
	require.Zero(t, handle.Attempts())

	expired := handle.WithState(content.StateExpired)
	require.True(t, expired.IsExpired())
	require.False(t, expired.IsMissing())
}

func TestRegistrationCache(t *testing.T) {
	cache := content.NewRegistrationCache(content.DefaultRegistrationCacheSize)

	privateKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	_, exists := cache.Get("alice")
	require.False(t, exists)

	cache.Put("alice", privateKey.PubKey())
	publicKey, exists := cache.Get("alice")
	require.True(t, exists)
	require.True(t, privateKey.PubKey().IsEqual(publicKey))
	require.Equal(t, 1, cache.Size())

	unlock := cache.Lock()
	cache.Delete("alice")
	unlock()

	_, exists = cache.Get("alice")
	require.False(t, exists)
	require.Equal(t, 0, cache.Size())
}

func TestFileCache(t *testing.T) {
	alice := model.NewAddress("alice")
	bob := model.NewAddress("bob")

	cache := content.NewFileCache()
	cache.Put(content.NewFHandle("cid1").WithOwner(alice))
	cache.Put(content.NewFHandle("cid2").WithOwner(alice))
	cache.Put(content.NewFHandle("cid3").WithOwner(bob))
	require.Equal(t, 3, cache.Size())

	updated := cache.Update("cid1", func(cached *content.FHandle) *content.FHandle {
		return cached.WithState(content.StateResolved)
	})
	require.True(t, updated.IsAvailable())

	cached, exists := cache.Get("cid1")
	require.True(t, exists)
	require.True(t, cached.IsAvailable())

	created := cache.Update("cid4", func(cached *content.FHandle) *content.FHandle {
		require.Nil(t, cached)

		return content.NewFHandle("cid4").WithOwner(bob)
	})
	require.Equal(t, "cid4", created.CID())

	deleted := cache.DeleteOwnedExcept("alice", map[string]struct{}{"cid2": {}})
	require.Equal(t, []string{"cid1"}, deleted)
	require.Equal(t, 3, cache.Size())

	_, exists = cache.Get("cid1")
	require.False(t, exists)

	cache.Delete("cid3")
	_, exists = cache.Get("cid3")
	require.False(t, exists)
}
