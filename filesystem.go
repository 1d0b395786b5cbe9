package layerfs

import (
	"io/fs"
	"sync"

	"github.com/rs/zerolog"

	"github.com/aweris/layerfs/internal/logging"
)

// Filesystem resolves virtual paths against an ordered list of backing
// stores. A path that no store holds directly is retried as an entry of its
// parent, when the parent is a file that decodes as an archive.
//
// One mutex guards each Filesystem; every public method holds it for its
// whole duration, I/O and decoding included.
type Filesystem struct {
	mu     sync.Mutex
	stores []BackingStore
	cache  *ArchiveCache
	log    zerolog.Logger
}

// New creates an empty Filesystem.
func New(opts ...Option) *Filesystem {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}
	return &Filesystem{
		cache: NewArchiveCache(options.Decoder),
		log:   logging.Component(options.Logger, "vfs"),
	}
}

// Mount appends s. Stores mounted earlier take precedence.
func (f *Filesystem) Mount(s BackingStore) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.stores = append(f.stores, s)
	f.log.Info().Int("position", len(f.stores)).Type("store", s).Msg("mounted store")
}

// Exists reports whether vpath resolves to a file or an archive entry.
func (f *Filesystem) Exists(vpath string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, s := range f.stores {
		if s.Exists(vpath) {
			return true
		}
	}
	_, ok := f.resolveArchived(vpath)
	return ok
}

// Read returns a private copy of the content at vpath.
func (f *Filesystem) Read(vpath string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if data, ok := f.readDirect(vpath); ok {
		return data, true
	}
	v, ok := f.resolveArchived(vpath)
	if !ok {
		return nil, false
	}
	return v.Bytes(), true
}

// ReadView is like Read but returns archive entries without copying them.
// The view stays valid for the life of f.
func (f *Filesystem) ReadView(vpath string) (View, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if data, ok := f.readDirect(vpath); ok {
		return View{b: data}, true
	}
	return f.resolveArchived(vpath)
}

// ReadFile is like Read but reports a miss as an *fs.PathError wrapping
// ErrNotFound.
func (f *Filesystem) ReadFile(vpath string) ([]byte, error) {
	data, ok := f.Read(vpath)
	if !ok {
		return nil, &fs.PathError{Op: "read", Path: vpath, Err: ErrNotFound}
	}
	return data, nil
}

// Archive returns the decoded archive at container, decoding it first if
// needed.
func (f *Filesystem) Archive(container string) (*Archive, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, s := range f.stores {
		if !s.Exists(container) {
			continue
		}
		if f.mountArchive(s, container) {
			return f.cache.Archive(container)
		}
	}
	return nil, false
}

// Stores returns the number of mounted stores.
func (f *Filesystem) Stores() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.stores)
}

// CachedArchives returns the number of decoded archives held in memory.
func (f *Filesystem) CachedArchives() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cache.Len()
}

func (f *Filesystem) readDirect(vpath string) ([]byte, bool) {
	for _, s := range f.stores {
		if data, ok := s.Read(vpath); ok {
			return data, true
		}
	}
	return nil, false
}

// resolveArchived looks vpath up as an entry of the archive at its parent.
// Stores are tried in order; a store whose copy of the parent cannot be read
// or decoded is skipped.
func (f *Filesystem) resolveArchived(vpath string) (View, bool) {
	parent, leaf := Parent(vpath), Leaf(vpath)
	for _, s := range f.stores {
		if !s.Exists(parent) {
			continue
		}
		if v, ok := f.cache.Lookup(parent, leaf); ok {
			return v, true
		}
		if !f.mountArchive(s, parent) {
			continue
		}
		if v, ok := f.cache.Lookup(parent, leaf); ok {
			return v, true
		}
	}
	return View{}, false
}

// mountArchive makes sure the archive at container, as read from s, is in
// the cache.
func (f *Filesystem) mountArchive(s BackingStore, container string) bool {
	if _, ok := f.cache.Archive(container); ok {
		return true
	}
	raw, ok := s.Read(container)
	if !ok {
		f.log.Debug().Str("container", container).Msg("container unreadable")
		return false
	}
	if err := f.cache.decodeAndCache(container, raw); err != nil {
		f.log.Warn().Err(err).Str("container", container).Msg("container is not an archive")
		return false
	}
	f.log.Debug().Str("container", container).Int("bytes", len(raw)).Msg("archive mounted")
	return true
}
