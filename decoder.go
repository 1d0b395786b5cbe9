package layerfs

import (
	"fmt"
	"sort"

	"github.com/aweris/layerfs/internal/bundle"
)

// Decoder turns the raw bytes of a container file into an Archive.
// Implementations must not modify raw, and must be deterministic and free of
// side effects.
type Decoder interface {
	Decode(raw []byte) (*Archive, error)
}

// DecoderFunc adapts a function to the Decoder interface.
type DecoderFunc func(raw []byte) (*Archive, error)

func (f DecoderFunc) Decode(raw []byte) (*Archive, error) { return f(raw) }

// BundleDecoder decodes the layerfs bundle format.
var BundleDecoder Decoder = DecoderFunc(decodeBundle)

func decodeBundle(raw []byte) (*Archive, error) {
	t, err := bundle.Decode(raw)
	if err != nil {
		return nil, err
	}
	entries := make(map[string]Range, len(t.Entries))
	for name, r := range t.Entries {
		entries[name] = Range{Offset: r.Offset, Size: r.Size}
	}
	return NewArchive(t.Buf, entries)
}

// Range locates an entry within an archive's buffer.
type Range struct {
	Offset int64
	Size   int64
}

// Archive is a decoded container. It owns buf; the views it hands out
// borrow from it.
type Archive struct {
	buf     []byte
	entries map[string]Range
}

// NewArchive takes ownership of buf. Every range must lie inside buf.
func NewArchive(buf []byte, entries map[string]Range) (*Archive, error) {
	size := int64(len(buf))
	for name, r := range entries {
		if r.Offset < 0 || r.Size < 0 || r.Offset > size || r.Size > size-r.Offset {
			return nil, fmt.Errorf("entry %q range [%d,+%d) outside %d byte buffer", name, r.Offset, r.Size, size)
		}
	}
	return &Archive{buf: buf, entries: entries}, nil
}

// View returns the named entry.
func (a *Archive) View(name string) (View, bool) {
	r, ok := a.entries[name]
	if !ok {
		return View{}, false
	}
	return View{b: a.buf[r.Offset : r.Offset+r.Size : r.Offset+r.Size]}, true
}

func (a *Archive) Len() int { return len(a.entries) }

// Names returns the entry names in sorted order.
func (a *Archive) Names() []string {
	names := make([]string, 0, len(a.entries))
	for name := range a.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
