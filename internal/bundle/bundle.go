// Package bundle implements the single-file archive format that layerfs
// mounts transparently.
//
// Layout:
//
//	magic "LFSB" (4) | version (1) | codec (1) | header length (4, big endian)
//	header (CBOR)    | payload (raw or zstd)
//
// The header lists every entry with its byte range inside the decoded
// payload and a BLAKE3-256 checksum of those bytes. Entry names are single
// path segments.
package bundle

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"

	"github.com/aweris/layerfs/internal/compression"
)

const (
	Magic   = "LFSB"
	Version = 1

	prefixLen = len(Magic) + 1 + 1 + 4
	sumLen    = 32

	// MaxHeaderSize bounds the CBOR header to keep garbage input cheap to reject.
	MaxHeaderSize = 64 << 20
)

// Codec selects how the payload is stored.
type Codec byte

const (
	CodecRaw  Codec = 0
	CodecZstd Codec = 1
)

func (c Codec) String() string {
	switch c {
	case CodecRaw:
		return "raw"
	case CodecZstd:
		return "zstd"
	default:
		return fmt.Sprintf("codec(%d)", byte(c))
	}
}

// ParseCodec accepts "raw", "none" or "zstd".
func ParseCodec(s string) (Codec, error) {
	switch strings.ToLower(s) {
	case "raw", "none", "":
		return CodecRaw, nil
	case "zstd":
		return CodecZstd, nil
	}
	return 0, fmt.Errorf("unknown bundle codec %q", s)
}

// ErrInvalid is wrapped by every decode failure.
var ErrInvalid = errors.New("bundle: invalid bundle")

// Range locates one entry inside a decoded payload.
type Range struct {
	Offset int64
	Size   int64
}

// Table is a decoded bundle. Buf is owned by the table and never aliases
// the raw input.
type Table struct {
	Buf     []byte
	Entries map[string]Range
}

// Names returns the entry names in sorted order.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.Entries))
	for name := range t.Entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type header struct {
	Entries []headerEntry `cbor:"entries"`
	Raw     int64         `cbor:"raw"`
}

type headerEntry struct {
	Name   string `cbor:"name"`
	Offset int64  `cbor:"offset"`
	Size   int64  `cbor:"size"`
	Sum    []byte `cbor:"sum"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("bundle: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		DupMapKey:        cbor.DupMapKeyEnforcedAPF,
		MaxArrayElements: 1 << 20,
	}.DecMode()
	if err != nil {
		panic("bundle: CBOR decoder initialization failed: " + err.Error())
	}
}

// IsBundle reports whether data starts with the bundle signature.
func IsBundle(data []byte) bool {
	return len(data) >= prefixLen && string(data[:len(Magic)]) == Magic
}

// Decode parses raw into a Table. raw is only read.
func Decode(raw []byte) (*Table, error) {
	if !IsBundle(raw) {
		return nil, fmt.Errorf("%w: bad signature", ErrInvalid)
	}
	if v := raw[len(Magic)]; v != Version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalid, v)
	}
	codec := Codec(raw[len(Magic)+1])
	hlen := int64(binary.BigEndian.Uint32(raw[len(Magic)+2 : prefixLen]))
	if hlen > MaxHeaderSize || int64(prefixLen)+hlen > int64(len(raw)) {
		return nil, fmt.Errorf("%w: header length %d out of range", ErrInvalid, hlen)
	}

	var h header
	if err := decMode.Unmarshal(raw[prefixLen:int64(prefixLen)+hlen], &h); err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrInvalid, err)
	}
	if h.Raw < 0 || h.Raw > compression.MaxDecodedSize {
		return nil, fmt.Errorf("%w: payload size %d out of range", ErrInvalid, h.Raw)
	}

	payload := raw[int64(prefixLen)+hlen:]
	var buf []byte
	switch codec {
	case CodecRaw:
		buf = bytes.Clone(payload)
		if buf == nil {
			buf = []byte{}
		}
	case CodecZstd:
		var err error
		buf, err = compression.Shared().Decompress(payload, int(h.Raw))
		if err != nil {
			return nil, fmt.Errorf("%w: payload: %v", ErrInvalid, err)
		}
	default:
		return nil, fmt.Errorf("%w: unknown codec %d", ErrInvalid, byte(codec))
	}
	if int64(len(buf)) != h.Raw {
		return nil, fmt.Errorf("%w: payload is %d bytes, header says %d", ErrInvalid, len(buf), h.Raw)
	}

	entries := make(map[string]Range, len(h.Entries))
	for _, e := range h.Entries {
		if err := validName(e.Name); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		if _, dup := entries[e.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate entry %q", ErrInvalid, e.Name)
		}
		if e.Offset < 0 || e.Size < 0 || e.Offset > h.Raw || e.Size > h.Raw-e.Offset {
			return nil, fmt.Errorf("%w: entry %q range [%d,+%d) outside payload", ErrInvalid, e.Name, e.Offset, e.Size)
		}
		if len(e.Sum) != sumLen {
			return nil, fmt.Errorf("%w: entry %q has %d byte checksum", ErrInvalid, e.Name, len(e.Sum))
		}
		sum := blake3.Sum256(buf[e.Offset : e.Offset+e.Size])
		if !bytes.Equal(sum[:], e.Sum) {
			return nil, fmt.Errorf("%w: entry %q checksum mismatch", ErrInvalid, e.Name)
		}
		entries[e.Name] = Range{Offset: e.Offset, Size: e.Size}
	}

	return &Table{Buf: buf, Entries: entries}, nil
}

func validName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("invalid entry name %q", name)
	case strings.ContainsAny(name, "/\x00"):
		return fmt.Errorf("entry name %q must be a single path segment", name)
	}
	return nil
}
