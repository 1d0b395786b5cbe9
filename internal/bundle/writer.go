package bundle

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/sourcegraph/conc/pool"
	"github.com/zeebo/blake3"

	"github.com/aweris/layerfs/internal/compression"
)

// DefaultConcurrency is the number of files PackDir reads in parallel.
const DefaultConcurrency = 4

// Writer accumulates entries and serializes them as a bundle.
// The output is deterministic: entries are laid out in name order.
type Writer struct {
	entries map[string][]byte
}

func NewWriter() *Writer {
	return &Writer{entries: make(map[string][]byte)}
}

// Add stages data under name. Adding a name twice replaces the first entry.
func (w *Writer) Add(name string, data []byte) error {
	if err := validName(name); err != nil {
		return err
	}
	w.entries[name] = data
	return nil
}

func (w *Writer) Len() int { return len(w.entries) }

// Bytes encodes the staged entries.
func (w *Writer) Bytes(codec Codec) ([]byte, error) {
	names := make([]string, 0, len(w.entries))
	for name := range w.entries {
		names = append(names, name)
	}
	sort.Strings(names)

	var payload bytes.Buffer
	h := header{Entries: make([]headerEntry, 0, len(w.entries))}
	for _, name := range names {
		data := w.entries[name]
		sum := blake3.Sum256(data)
		h.Entries = append(h.Entries, headerEntry{
			Name:   name,
			Offset: int64(payload.Len()),
			Size:   int64(len(data)),
			Sum:    sum[:],
		})
		payload.Write(data)
	}
	h.Raw = int64(payload.Len())
	if h.Raw > compression.MaxDecodedSize {
		return nil, fmt.Errorf("bundle payload of %d bytes exceeds limit", h.Raw)
	}

	hdr, err := encMode.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("encode header: %w", err)
	}
	if len(hdr) > MaxHeaderSize {
		return nil, fmt.Errorf("bundle header of %d bytes exceeds limit", len(hdr))
	}

	var body []byte
	switch codec {
	case CodecRaw:
		body = payload.Bytes()
	case CodecZstd:
		body = compression.Shared().Compress(payload.Bytes())
	default:
		return nil, fmt.Errorf("unknown bundle codec %d", byte(codec))
	}

	out := make([]byte, 0, prefixLen+len(hdr)+len(body))
	out = append(out, Magic...)
	out = append(out, Version, byte(codec))
	out = binary.BigEndian.AppendUint32(out, uint32(len(hdr)))
	out = append(out, hdr...)
	out = append(out, body...)
	return out, nil
}

type packedFile struct {
	name string
	data []byte
}

// PackDir bundles the regular files directly inside dir. Subdirectories are
// skipped since entry names are single segments.
func PackDir(ctx context.Context, dir string, codec Codec, concurrency int) ([]byte, error) {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}

	p := pool.NewWithResults[packedFile]().
		WithContext(ctx).
		WithMaxGoroutines(concurrency).
		WithCancelOnError()

	for _, de := range dirEntries {
		if !de.Type().IsRegular() {
			continue
		}
		name := de.Name()
		p.Go(func(ctx context.Context) (packedFile, error) {
			if err := ctx.Err(); err != nil {
				return packedFile{}, err
			}
			data, err := os.ReadFile(filepath.Join(dir, name))
			if err != nil {
				return packedFile{}, fmt.Errorf("read %s: %w", name, err)
			}
			return packedFile{name: name, data: data}, nil
		})
	}

	files, err := p.Wait()
	if err != nil {
		return nil, err
	}

	w := NewWriter()
	for _, f := range files {
		if err := w.Add(f.name, f.data); err != nil {
			return nil, err
		}
	}
	return w.Bytes(codec)
}
