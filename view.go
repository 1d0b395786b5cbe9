package layerfs

import (
	"bytes"
	"io"
)

// View is a read-only window onto bytes owned elsewhere, usually a cached
// archive. Views from a Filesystem stay valid for the life of that
// Filesystem. Use Bytes to keep a private copy.
type View struct {
	b []byte
}

func (v View) Len() int { return len(v.b) }

// Bytes returns a copy of the viewed bytes.
func (v View) Bytes() []byte {
	out := make([]byte, len(v.b))
	copy(out, v.b)
	return out
}

func (v View) String() string { return string(v.b) }

// Reader returns a reader over the viewed bytes without copying them.
func (v View) Reader() *bytes.Reader { return bytes.NewReader(v.b) }

func (v View) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(v.b)
	return int64(n), err
}

// Equal reports whether the view holds exactly b.
func (v View) Equal(b []byte) bool { return bytes.Equal(v.b, b) }
