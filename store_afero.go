package layerfs

import (
	"os"
	"path"
	"path/filepath"

	"github.com/spf13/afero"
)

// AferoStore serves a subtree of any afero filesystem under a virtual
// prefix. It backs in-memory mounts and OCI image mounts.
type AferoStore struct {
	prefix string
	root   string
	fsys   afero.Fs
}

var _ BackingStore = (*AferoStore)(nil)

// NewAferoStore mounts the subtree of fsys rooted at root under prefix.
func NewAferoStore(prefix string, fsys afero.Fs, root string) *AferoStore {
	if root == "" {
		root = "/"
	}
	return &AferoStore{prefix: prefix, root: root, fsys: fsys}
}

// NewMemStore returns an empty in-memory store along with its filesystem so
// callers can populate it.
func NewMemStore(prefix string) (*AferoStore, afero.Fs) {
	fsys := afero.NewMemMapFs()
	return NewAferoStore(prefix, fsys, "/"), fsys
}

// LoadMemStore copies every regular file under the on-disk directory dir
// into memory and serves the snapshot under prefix.
func LoadMemStore(prefix, dir string) (*AferoStore, error) {
	src := afero.NewOsFs()
	mem := afero.NewMemMapFs()
	err := afero.Walk(src, dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		data, err := afero.ReadFile(src, p)
		if err != nil {
			return err
		}
		return afero.WriteFile(mem, "/"+filepath.ToSlash(rel), data, info.Mode().Perm())
	})
	if err != nil {
		return nil, err
	}
	return NewAferoStore(prefix, mem, "/"), nil
}

func (s *AferoStore) Prefix() string { return s.prefix }

func (s *AferoStore) Exists(vpath string) bool {
	p, ok := s.fsPath(vpath)
	if !ok {
		return false
	}
	info, err := s.fsys.Stat(p)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

func (s *AferoStore) Read(vpath string) ([]byte, bool) {
	p, ok := s.fsPath(vpath)
	if !ok {
		return nil, false
	}
	info, err := s.fsys.Stat(p)
	if err != nil || !info.Mode().IsRegular() {
		return nil, false
	}
	data, err := afero.ReadFile(s.fsys, p)
	if err != nil {
		return nil, false
	}
	return data, true
}

func (s *AferoStore) fsPath(vpath string) (string, bool) {
	rel, ok := TrimPrefix(vpath, s.prefix)
	if !ok {
		return "", false
	}
	if rel != "" && !filepath.IsLocal(rel) {
		return "", false
	}
	return path.Join(s.root, rel), true
}
