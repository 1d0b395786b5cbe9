package layerfs_test

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-containerregistry/pkg/crane"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aweris/layerfs"
	"github.com/aweris/layerfs/internal/bundle"
	"github.com/aweris/layerfs/internal/logging"
)

// countingDecoder wraps the bundle decoder and counts invocations.
type countingDecoder struct {
	calls int
}

func (d *countingDecoder) Decode(raw []byte) (*layerfs.Archive, error) {
	d.calls++
	return layerfs.BundleDecoder.Decode(raw)
}

func newFS(t *testing.T) (*layerfs.Filesystem, *countingDecoder) {
	t.Helper()
	dec := &countingDecoder{}
	return layerfs.New(layerfs.WithDecoder(dec), layerfs.WithLogger(logging.Nop())), dec
}

func writeFile(t *testing.T, root, rel string, data []byte) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(t, os.WriteFile(p, data, 0644))
}

func makeBundle(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	w := bundle.NewWriter()
	for name, data := range entries {
		require.NoError(t, w.Add(name, []byte(data)))
	}
	raw, err := w.Bytes(bundle.CodecZstd)
	require.NoError(t, err)
	return raw
}

func TestUnmountedPathsMiss(t *testing.T) {
	empty, _ := newFS(t)
	assert.False(t, empty.Exists("/p/x"))
	_, ok := empty.Read("/p/x")
	assert.False(t, ok)

	root := t.TempDir()
	writeFile(t, root, "x", []byte("x"))

	fsys, _ := newFS(t)
	fsys.Mount(layerfs.NewStdStore("/p", root))

	for _, p := range []string{"/q/x", "/x", "x", "", "/", "/p"} {
		assert.False(t, fsys.Exists(p), p)
		_, ok := fsys.Read(p)
		assert.False(t, ok, p)
	}
}

func TestDirectRead(t *testing.T) {
	root := t.TempDir()
	want := []byte("exact bytes\x00\xff")
	writeFile(t, root, "x/y.txt", want)

	fsys, dec := newFS(t)
	fsys.Mount(layerfs.NewStdStore("/p", root))

	assert.True(t, fsys.Exists("/p/x/y.txt"))
	got, ok := fsys.Read("/p/x/y.txt")
	require.True(t, ok)
	assert.Equal(t, want, got)

	assert.False(t, fsys.Exists("/p/x"), "directories are not files")
	assert.Equal(t, 0, dec.calls)
}

func TestDecodeOnce(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.bundle", makeBundle(t, map[string]string{
		"entry.txt": "first",
		"other.txt": "second",
	}))

	fsys, dec := newFS(t)
	fsys.Mount(layerfs.NewStdStore("/p", root))

	got, ok := fsys.Read("/p/a.bundle/entry.txt")
	require.True(t, ok)
	assert.Equal(t, "first", string(got))

	got, ok = fsys.Read("/p/a.bundle/other.txt")
	require.True(t, ok)
	assert.Equal(t, "second", string(got))

	assert.True(t, fsys.Exists("/p/a.bundle/entry.txt"))
	assert.False(t, fsys.Exists("/p/a.bundle/missing.txt"))
	_, ok = fsys.Read("/p/a.bundle/missing.txt")
	assert.False(t, ok)

	assert.Equal(t, 1, dec.calls)
	assert.Equal(t, 1, fsys.CachedArchives())
}

func TestIdempotentMiss(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "plain.txt", []byte("definitely not a bundle"))

	fsys, dec := newFS(t)
	fsys.Mount(layerfs.NewStdStore("/p", root))

	for i := 1; i <= 3; i++ {
		_, ok := fsys.Read("/p/plain.txt/entry")
		assert.False(t, ok)
		assert.Equal(t, i, dec.calls, "each miss retries the decode")
	}
	assert.False(t, fsys.Exists("/p/plain.txt/entry"))
	assert.Equal(t, 4, dec.calls)
	assert.Equal(t, 0, fsys.CachedArchives())
}

func TestMountPrecedence(t *testing.T) {
	first, second := t.TempDir(), t.TempDir()
	writeFile(t, first, "same.txt", []byte("from first"))
	writeFile(t, second, "same.txt", []byte("from second"))
	writeFile(t, second, "only.txt", []byte("only second"))

	fsys, _ := newFS(t)
	fsys.Mount(layerfs.NewStdStore("/p", first))
	fsys.Mount(layerfs.NewStdStore("/p", second))
	assert.Equal(t, 2, fsys.Stores())

	got, ok := fsys.Read("/p/same.txt")
	require.True(t, ok)
	assert.Equal(t, "from first", string(got))

	got, ok = fsys.Read("/p/only.txt")
	require.True(t, ok)
	assert.Equal(t, "only second", string(got))
}

func TestPrefixBoundary(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "c/file", []byte("wrong store"))
	writeFile(t, root, "file", []byte("right store"))

	fsys, _ := newFS(t)
	fsys.Mount(layerfs.NewStdStore("/ab", root))

	assert.False(t, fsys.Exists("/abc/file"))
	_, ok := fsys.Read("/abc/file")
	assert.False(t, ok)

	got, ok := fsys.Read("/ab/file")
	require.True(t, ok)
	assert.Equal(t, "right store", string(got))
}

func TestGameScenario(t *testing.T) {
	data := t.TempDir()
	hero := "\x89PNG hero sprite"
	writeFile(t, data, "game/assets.bundle", makeBundle(t, map[string]string{
		"hero.png":    hero,
		"villain.png": "\x89PNG villain sprite",
	}))

	fsys, dec := newFS(t)
	fsys.Mount(layerfs.NewStdStore("/game", filepath.Join(data, "game")))

	first, ok := fsys.Read("/game/assets.bundle/hero.png")
	require.True(t, ok)
	assert.Equal(t, hero, string(first))

	second, ok := fsys.Read("/game/assets.bundle/hero.png")
	require.True(t, ok)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, dec.calls)
}

func TestArchiveFallsThroughToNextStore(t *testing.T) {
	broken, good := t.TempDir(), t.TempDir()
	writeFile(t, broken, "pack.bundle", []byte("corrupt"))
	writeFile(t, good, "pack.bundle", makeBundle(t, map[string]string{"a.txt": "from good"}))

	fsys, dec := newFS(t)
	fsys.Mount(layerfs.NewStdStore("/p", broken))
	fsys.Mount(layerfs.NewStdStore("/p", good))

	got, ok := fsys.Read("/p/pack.bundle/a.txt")
	require.True(t, ok)
	assert.Equal(t, "from good", string(got))
	assert.Equal(t, 2, dec.calls)

	// The good copy is now cached under the container path.
	assert.True(t, fsys.Exists("/p/pack.bundle/a.txt"))
	assert.Equal(t, 2, dec.calls)
}

func TestReadReturnsPrivateCopy(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.bundle", makeBundle(t, map[string]string{"e": "immutable"}))

	fsys, _ := newFS(t)
	fsys.Mount(layerfs.NewStdStore("/p", root))

	got, ok := fsys.Read("/p/a.bundle/e")
	require.True(t, ok)
	got[0] = 'X'

	again, ok := fsys.Read("/p/a.bundle/e")
	require.True(t, ok)
	assert.Equal(t, "immutable", string(again))
}

func TestReadView(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.bundle", makeBundle(t, map[string]string{"e": "viewed"}))
	writeFile(t, root, "plain", []byte("direct"))

	fsys, _ := newFS(t)
	fsys.Mount(layerfs.NewStdStore("/p", root))

	v, ok := fsys.ReadView("/p/a.bundle/e")
	require.True(t, ok)
	assert.Equal(t, 6, v.Len())
	assert.True(t, v.Equal([]byte("viewed")))
	assert.Equal(t, "viewed", v.String())

	v, ok = fsys.ReadView("/p/plain")
	require.True(t, ok)
	assert.Equal(t, "direct", v.String())

	_, ok = fsys.ReadView("/p/nothing")
	assert.False(t, ok)
}

func TestReadFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "x", []byte("x"))

	fsys, _ := newFS(t)
	fsys.Mount(layerfs.NewStdStore("/p", root))

	data, err := fsys.ReadFile("/p/x")
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))

	_, err = fsys.ReadFile("/p/missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, layerfs.ErrNotFound)
	assert.ErrorIs(t, err, fs.ErrNotExist)

	var pathErr *fs.PathError
	require.True(t, errors.As(err, &pathErr))
	assert.Equal(t, "/p/missing", pathErr.Path)
}

func TestArchiveAccessor(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.bundle", makeBundle(t, map[string]string{"x": "1", "y": "2"}))
	writeFile(t, root, "plain", []byte("nope"))

	fsys, dec := newFS(t)
	fsys.Mount(layerfs.NewStdStore("/p", root))

	a, ok := fsys.Archive("/p/a.bundle")
	require.True(t, ok)
	assert.Equal(t, []string{"x", "y"}, a.Names())

	_, ok = fsys.Archive("/p/plain")
	assert.False(t, ok)
	_, ok = fsys.Archive("/p/missing")
	assert.False(t, ok)

	_, ok = fsys.Read("/p/a.bundle/y")
	assert.True(t, ok)
	assert.Equal(t, 2, dec.calls, "one decode for the bundle, one failed attempt for plain")
}

func TestConcurrentReadsDecodeOnce(t *testing.T) {
	root := t.TempDir()
	entries := make(map[string]string)
	for i := 0; i < 8; i++ {
		entries[fmt.Sprintf("e%d", i)] = fmt.Sprintf("content %d", i)
	}
	writeFile(t, root, "a.bundle", makeBundle(t, entries))

	fsys, dec := newFS(t)
	fsys.Mount(layerfs.NewStdStore("/p", root))

	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		g := g
		wg.Add(1)
		go func() {
			defer wg.Done()
			name := fmt.Sprintf("e%d", g%8)
			got, ok := fsys.Read("/p/a.bundle/" + name)
			assert.True(t, ok)
			assert.Equal(t, entries[name], string(got))
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, dec.calls)
}

func TestMemStoreWithBundle(t *testing.T) {
	store, mem := layerfs.NewMemStore("/mem")
	require.NoError(t, afero.WriteFile(mem, "/packs/ui.bundle", makeBundle(t, map[string]string{"button.png": "btn"}), 0644))
	require.NoError(t, afero.WriteFile(mem, "/packs/readme.md", []byte("# packs"), 0644))

	fsys, dec := newFS(t)
	fsys.Mount(store)

	got, ok := fsys.Read("/mem/packs/readme.md")
	require.True(t, ok)
	assert.Equal(t, "# packs", string(got))

	got, ok = fsys.Read("/mem/packs/ui.bundle/button.png")
	require.True(t, ok)
	assert.Equal(t, "btn", string(got))
	assert.False(t, fsys.Exists("/mem/packs"))
	assert.Equal(t, 1, dec.calls)
}

func TestImageStoreWithBundle(t *testing.T) {
	img, err := crane.Image(map[string][]byte{
		"assets/base.bundle": makeBundle(t, map[string]string{"tree.png": "tree"}),
		"assets/notes.txt":   []byte("notes"),
	})
	require.NoError(t, err)

	store, err := layerfs.NewImageStoreFromImage("/base", img)
	require.NoError(t, err)

	root := t.TempDir()
	writeFile(t, root, "assets/notes.txt", []byte("local override"))

	fsys, _ := newFS(t)
	fsys.Mount(layerfs.NewStdStore("/base", root))
	fsys.Mount(store)

	got, ok := fsys.Read("/base/assets/notes.txt")
	require.True(t, ok)
	assert.Equal(t, "local override", string(got))

	got, ok = fsys.Read("/base/assets/base.bundle/tree.png")
	require.True(t, ok)
	assert.Equal(t, "tree", string(got))
}
