package layerfs

import "errors"

var errNoArchive = errors.New("decoder returned no archive")

// ArchiveCache maps container paths to decoded archives. Entries are added
// at most once and never evicted, so views into them stay valid as long as
// the cache does.
//
// ArchiveCache does no locking of its own; Filesystem serializes access.
type ArchiveCache struct {
	decoder  Decoder
	archives map[string]*Archive
}

func NewArchiveCache(dec Decoder) *ArchiveCache {
	if dec == nil {
		dec = BundleDecoder
	}
	return &ArchiveCache{
		decoder:  dec,
		archives: make(map[string]*Archive),
	}
}

// Lookup returns the entry of an already decoded container. A container that
// was never decoded and one that lacks the entry look the same.
func (c *ArchiveCache) Lookup(container, entry string) (View, bool) {
	a, ok := c.archives[container]
	if !ok {
		return View{}, false
	}
	return a.View(entry)
}

// DecodeAndCache decodes raw as the archive for container. A container that
// is already cached is left alone and reported as success. Failures are not
// remembered.
func (c *ArchiveCache) DecodeAndCache(container string, raw []byte) bool {
	return c.decodeAndCache(container, raw) == nil
}

func (c *ArchiveCache) decodeAndCache(container string, raw []byte) error {
	if _, ok := c.archives[container]; ok {
		return nil
	}
	a, err := c.decoder.Decode(raw)
	if err != nil {
		return err
	}
	if a == nil {
		return errNoArchive
	}
	c.archives[container] = a
	return nil
}

// Archive returns the decoded archive for container, if cached.
func (c *ArchiveCache) Archive(container string) (*Archive, bool) {
	a, ok := c.archives[container]
	return a, ok
}

// Len returns the number of cached archives.
func (c *ArchiveCache) Len() int { return len(c.archives) }
