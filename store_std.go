package layerfs

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/aweris/layerfs/internal/logging"
)

// StdStore serves a directory of the local disk under a virtual prefix.
//
// A virtual path "<prefix>/a/b" maps to "<root>/a/b". Remainders that would
// climb out of root are treated as outside the mount.
type StdStore struct {
	prefix string
	root   string
	log    zerolog.Logger
}

var _ BackingStore = (*StdStore)(nil)

func NewStdStore(prefix, root string) *StdStore {
	return &StdStore{
		prefix: prefix,
		root:   root,
		log:    logging.Component(logging.Root(), "std-store"),
	}
}

func (s *StdStore) Prefix() string { return s.prefix }
func (s *StdStore) Root() string { return s.root }

func (s *StdStore) Exists(vpath string) bool {
	raw, ok := s.rawPath(vpath)
	if !ok {
		return false
	}
	info, err := os.Stat(raw)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

func (s *StdStore) Read(vpath string) ([]byte, bool) {
	raw, ok := s.rawPath(vpath)
	if !ok {
		return nil, false
	}
	data, err := os.ReadFile(raw)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Debug().Err(err).Str("path", raw).Msg("read failed")
		}
		return nil, false
	}
	return data, true
}

// rawPath translates vpath to an absolute path on disk.
func (s *StdStore) rawPath(vpath string) (string, bool) {
	rel, ok := TrimPrefix(vpath, s.prefix)
	if !ok {
		return "", false
	}
	rel = filepath.FromSlash(rel)
	if rel != "" && !filepath.IsLocal(rel) {
		return "", false
	}
	abs, err := filepath.Abs(filepath.Join(s.root, rel))
	if err != nil {
		return "", false
	}
	return abs, true
}
