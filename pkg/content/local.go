package content

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/otiai10/copy"

	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/ledger-ipfs/pkg/model"
)

// ValidatePath checks that relPath is a non-blank relative path that stays below its root.
func ValidatePath(relPath string) error {
	if strings.TrimSpace(relPath) == "" {
		return ierrors.Wrap(ErrInvalidPath, "path is empty")
	}

	if filepath.IsAbs(relPath) || !filepath.IsLocal(relPath) {
		return ierrors.Wrapf(ErrInvalidPath, "%q is not a local relative path", relPath)
	}

	return nil
}

func (m *Manager) plainDir(owner *model.Address) string {
	return filepath.Join(m.config.RootDir, plainDirName, owner.String())
}

func (m *Manager) plainPath(owner *model.Address, relPath string) string {
	return filepath.Join(m.plainDir(owner), filepath.FromSlash(relPath))
}

func (m *Manager) cryptPath(owner *model.Address, cid string) string {
	return filepath.Join(m.config.RootDir, cryptDirName, owner.String(), cid)
}

func (m *Manager) tmpPath() string {
	return filepath.Join(m.config.RootDir, tmpDirName, uuid.NewString())
}

// FindLocalContent lists the plain files of owner sorted by path.
func (m *Manager) FindLocalContent(owner *model.Address) ([]*FHandle, error) {
	if err := requireAddress(owner); err != nil {
		return nil, err
	}

	root := m.plainDir(owner)

	handles := make([]*FHandle, 0)
	if err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if ierrors.Is(err, fs.ErrNotExist) && path == root {
				return filepath.SkipDir
			}

			return err
		}

		if !entry.Type().IsRegular() {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		handles = append(handles, NewLocalFHandle(owner, filepath.ToSlash(relPath), path))

		return nil
	}); err != nil {
		return nil, ierrors.Wrapf(err, "failed to list local content of %s", owner)
	}

	sort.Slice(handles, func(i, j int) bool {
		return handles[i].Path() < handles[j].Path()
	})

	return handles, nil
}

// GetLocalContent opens the plain file of owner at relPath.
func (m *Manager) GetLocalContent(owner *model.Address, relPath string) (io.ReadCloser, error) {
	if err := requireAddress(owner); err != nil {
		return nil, err
	}

	if err := ValidatePath(relPath); err != nil {
		return nil, err
	}

	file, err := os.Open(m.plainPath(owner, relPath))
	if err != nil {
		return nil, ierrors.Wrapf(err, "failed to open %s", relPath)
	}

	return file, nil
}

// DeleteLocalContent removes the plain file or directory of owner at relPath and prunes the
// directories left empty. It returns false if there was nothing to delete.
func (m *Manager) DeleteLocalContent(owner *model.Address, relPath string) (bool, error) {
	if err := requireAddress(owner); err != nil {
		return false, err
	}

	if err := ValidatePath(relPath); err != nil {
		return false, err
	}

	path := m.plainPath(owner, relPath)
	if _, err := os.Lstat(path); err != nil {
		if ierrors.Is(err, fs.ErrNotExist) {
			return false, nil
		}

		return false, ierrors.Wrapf(err, "failed to stat %s", relPath)
	}

	if err := os.RemoveAll(path); err != nil {
		return false, ierrors.Wrapf(err, "failed to delete %s", relPath)
	}

	root := m.plainDir(owner)
	for dir := filepath.Dir(path); dir != root && strings.HasPrefix(dir, root); dir = filepath.Dir(dir) {
		// fails for non-empty directories
		if os.Remove(dir) != nil {
			break
		}
	}

	return true, nil
}

// writeFile writes the content of r to path, creating its parent directories.
func (m *Manager) writeFile(path string, r io.Reader) (int64, error) {
	if _, err := os.Stat(path); err == nil && !m.config.ReplaceExisting {
		return 0, ierrors.Wrapf(fs.ErrExist, "%s", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, ierrors.Wrapf(err, "failed to create directory of %s", path)
	}

	file, err := os.Create(path)
	if err != nil {
		return 0, ierrors.Wrapf(err, "failed to create %s", path)
	}
	defer file.Close()

	written, err := io.Copy(file, r)
	if err != nil {
		return written, ierrors.Wrapf(err, "failed to write %s", path)
	}

	return written, file.Sync()
}

// moveFile renames src to dst and falls back to copying if both are on different devices.
func moveFile(src string, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return ierrors.Wrapf(err, "failed to create directory of %s", dst)
	}

	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	if err := copy.Copy(src, dst); err != nil {
		return ierrors.Wrapf(err, "failed to copy %s to %s", src, dst)
	}

	if err := os.Remove(src); err != nil {
		return ierrors.Wrapf(err, "failed to remove %s", src)
	}

	return nil
}
