package content

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/labstack/gommon/bytes"

	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/ledger-ipfs/pkg/bcdata"
	"github.com/iotaledger/ledger-ipfs/pkg/cipher"
	"github.com/iotaledger/ledger-ipfs/pkg/keys"
	"github.com/iotaledger/ledger-ipfs/pkg/ledger"
	"github.com/iotaledger/ledger-ipfs/pkg/model"
)

// Add stores the content of r as the plain file relPath of owner, publishes it encrypted for the
// registered key of owner and records its content id on the ledger.
func (m *Manager) Add(ctx context.Context, owner *model.Address, r io.Reader, relPath string) (*FHandle, error) {
	if err := ValidatePath(relPath); err != nil {
		return nil, err
	}

	owner, publicKey, err := m.registeredOwner(ctx, owner)
	if err != nil {
		return nil, err
	}

	if _, err := m.writeFile(m.plainPath(owner, relPath), r); err != nil {
		return nil, err
	}

	return m.publish(ctx, owner, publicKey, relPath)
}

// AddPath publishes the existing plain file relPath of owner. A directory publishes every file below it.
func (m *Manager) AddPath(ctx context.Context, owner *model.Address, relPath string) ([]*FHandle, error) {
	if err := ValidatePath(relPath); err != nil {
		return nil, err
	}

	owner, publicKey, err := m.registeredOwner(ctx, owner)
	if err != nil {
		return nil, err
	}

	root := m.plainDir(owner)

	var relPaths []string
	if err := filepath.WalkDir(m.plainPath(owner, relPath), func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if entry.Type().IsRegular() {
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}

			relPaths = append(relPaths, filepath.ToSlash(rel))
		}

		return nil
	}); err != nil {
		return nil, ierrors.Wrapf(err, "failed to list %s", relPath)
	}

	sort.Strings(relPaths)

	handles := make([]*FHandle, 0, len(relPaths))
	for _, p := range relPaths {
		handle, err := m.publish(ctx, owner, publicKey, p)
		if err != nil {
			return handles, err
		}

		handles = append(handles, handle)
	}

	return handles, nil
}

// Send decrypts the content cid of owner and publishes it encrypted for the registered key of
// target. The new content id is recorded on the ledger for target.
func (m *Manager) Send(ctx context.Context, owner *model.Address, cid string, target *model.Address, timeout time.Duration) (*FHandle, error) {
	owner, err := m.resolveOwner(ctx, owner)
	if err != nil {
		return nil, err
	}

	if err := requireAddress(target); err != nil {
		return nil, err
	}

	targetKey, err := m.FindRegistration(ctx, target)
	if err != nil {
		if ierrors.Is(err, ErrNotRegistered) {
			return nil, ierrors.Join(ErrEncryptionKeyMissing, err)
		}

		return nil, err
	}

	if resolved, err := m.wallet.FindAddress(ctx, target.String()); err == nil {
		target = resolved
	} else if !ierrors.Is(err, ledger.ErrAddressNotFound) {
		return nil, err
	}

	fetched, err := m.fetchContent(cid, timeout)
	if err != nil {
		return nil, err
	}

	header, plaintext, err := m.decrypt(owner, fetched.LocalPath())
	if err != nil {
		return nil, err
	}

	handle, err := m.encryptAndStore(ctx, target, targetKey, header.Path, plaintext)
	if err != nil {
		return nil, err
	}

	data, err := bcdata.CreateFileData(handle.CID())
	if err != nil {
		return nil, err
	}

	outPoint, err := m.record(ctx, owner, target, data)
	if err != nil {
		m.logger.LogWarn("content stored but not recorded", "cid", handle.CID(), "target", target.String(), "err", err)

		return nil, ierrors.Wrapf(err, "failed to record %s for %s", handle.CID(), target)
	}

	handle = m.published(handle.WithTxID(outPoint.TxID))
	m.metrics.FilesSent.Inc()

	m.logger.LogInfo("sent content", "cid", cid, "owner", owner.String(), "target", target.String(), "newCID", handle.CID(), "size", bytes.Format(int64(len(plaintext))))

	return handle, nil
}

// PublishedContent lists the content this manager published for owner.
func (m *Manager) PublishedContent(owner *model.Address) ([]*FHandle, error) {
	if err := requireAddress(owner); err != nil {
		return nil, err
	}

	entries, err := m.index.entries(owner.String())
	if err != nil {
		return nil, err
	}

	handles := make([]*FHandle, 0, len(entries))
	for _, entry := range entries {
		if cached, exists := m.files.Get(entry.cid); exists {
			handles = append(handles, cached)

			continue
		}

		handles = append(handles, NewFHandle(entry.cid).WithOwner(owner).WithPath(entry.path).WithTxID(entry.txID).WithLocalPath(m.cryptPath(owner, entry.cid)))
	}

	return handles, nil
}

// Unpublish spends the content records of owner for the given content ids, all records if cids is
// empty, and drops them from the caches.
func (m *Manager) Unpublish(ctx context.Context, owner *model.Address, cids ...string) error {
	owner, err := m.resolveOwner(ctx, owner)
	if err != nil {
		return err
	}

	unlock := m.files.Lock()
	defer unlock()

	records, err := m.scan(ctx, owner, bcdata.OpFileData)
	if err != nil {
		return err
	}

	selected := make(map[string]struct{}, len(cids))
	for _, cid := range cids {
		selected[cid] = struct{}{}
	}

	matching := make([]*record, 0, len(records))
	for _, r := range records {
		if _, included := selected[string(r.payload)]; len(selected) == 0 || included {
			matching = append(matching, r)
		}
	}

	if len(matching) == 0 {
		return nil
	}

	txID, err := m.spendRecords(ctx, owner, matching)
	if err != nil {
		return ierrors.Wrapf(err, "failed to unpublish content of %s", owner)
	}

	for _, r := range matching {
		cid := string(r.payload)

		m.files.Delete(cid)
		if err := m.index.delete(owner.String(), cid); err != nil {
			m.logger.LogError("failed to update index", "cid", cid, "err", err)
		}
	}

	m.logger.LogInfo("unpublished content", "owner", owner.String(), "records", len(matching), "txID", txID)

	return nil
}

// registeredOwner resolves owner and returns its registered public key.
func (m *Manager) registeredOwner(ctx context.Context, owner *model.Address) (*model.Address, *btcec.PublicKey, error) {
	owner, err := m.resolveOwner(ctx, owner)
	if err != nil {
		return nil, nil, err
	}

	publicKey, err := m.FindRegistration(ctx, owner)
	if err != nil {
		if ierrors.Is(err, ErrNotRegistered) {
			return nil, nil, ierrors.Join(ErrEncryptionKeyMissing, err)
		}

		return nil, nil, err
	}

	return owner, publicKey, nil
}

func (m *Manager) publish(ctx context.Context, owner *model.Address, publicKey *btcec.PublicKey, relPath string) (*FHandle, error) {
	plaintext, err := os.ReadFile(m.plainPath(owner, relPath))
	if err != nil {
		return nil, ierrors.Wrapf(err, "failed to read %s", relPath)
	}

	handle, err := m.encryptAndStore(ctx, owner, publicKey, relPath, plaintext)
	if err != nil {
		return nil, err
	}

	data, err := bcdata.CreateFileData(handle.CID())
	if err != nil {
		return nil, err
	}

	outPoint, err := m.record(ctx, owner, owner, data)
	if err != nil {
		m.logger.LogWarn("content stored but not recorded", "cid", handle.CID(), "owner", owner.String(), "err", err)

		return nil, ierrors.Wrapf(err, "failed to record %s", handle.CID())
	}

	handle = m.published(handle.WithTxID(outPoint.TxID))
	m.metrics.FilesAdded.Inc()

	m.logger.LogInfo("added content", "owner", owner.String(), "path", relPath, "cid", handle.CID(), "size", bytes.Format(int64(len(plaintext))))

	return handle, nil
}

// encryptAndStore encrypts plaintext with a random content key wrapped for publicKey, adds the
// content file to the object store and moves it to the crypt directory of owner.
func (m *Manager) encryptAndStore(ctx context.Context, owner *model.Address, publicKey *btcec.PublicKey, relPath string, plaintext []byte) (*FHandle, error) {
	contentKey, err := keys.RandomSymmetricKey(symmetricKeyBits)
	if err != nil {
		return nil, err
	}

	ciphertext, err := cipher.EncryptAES(contentKey, nil, plaintext)
	if err != nil {
		return nil, err
	}

	token, err := cipher.EncodeToken(publicKey, contentKey)
	if err != nil {
		return nil, err
	}

	tmpPath := m.tmpPath()
	if err := m.writeContentFile(tmpPath, &Header{Path: relPath, Owner: owner.String(), Token: token}, ciphertext); err != nil {
		return nil, err
	}

	cid, err := m.addFile(ctx, tmpPath)
	if err != nil {
		_ = os.Remove(tmpPath)

		return nil, err
	}

	cryptPath := m.cryptPath(owner, cid)
	if err := moveFile(tmpPath, cryptPath); err != nil {
		return nil, err
	}

	return NewFHandle(cid).
		WithOwner(owner).
		WithPath(relPath).
		WithLocalPath(cryptPath).
		WithSecretToken(token).
		WithState(StateResolved), nil
}

func (m *Manager) writeContentFile(path string, header *Header, ciphertext []byte) error {
	file, err := os.Create(path)
	if err != nil {
		return ierrors.Wrapf(err, "failed to create %s", path)
	}
	defer file.Close()

	if err := WriteContent(file, header, ciphertext); err != nil {
		return err
	}

	return file.Sync()
}

func (m *Manager) addFile(ctx context.Context, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", ierrors.Wrapf(err, "failed to open %s", path)
	}
	defer file.Close()

	cid, err := m.store.Add(ctx, file)
	if err != nil {
		return "", ierrors.Wrap(err, "failed to add content to object store")
	}

	return cid, nil
}

// published caches and indexes a recorded handle.
func (m *Manager) published(handle *FHandle) *FHandle {
	m.files.Put(handle)

	if err := m.index.put(&publishedEntry{
		owner: handle.Owner().String(),
		cid:   handle.CID(),
		path:  handle.Path(),
		txID:  handle.TxID(),
	}); err != nil {
		m.logger.LogError("failed to update index", "cid", handle.CID(), "err", err)
	}

	return handle
}
