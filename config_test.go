package layerfs_test

import (
	"context"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aweris/layerfs"
)

func loadViper(t *testing.T, doc string) *viper.Viper {
	t.Helper()
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(doc)))
	return v
}

func TestLoadMountsAndMountAll(t *testing.T) {
	disk, snap := t.TempDir(), t.TempDir()
	writeFile(t, disk, "a.txt", []byte("disk"))
	writeFile(t, snap, "a.txt", []byte("snapshot"))
	writeFile(t, snap, "b.txt", []byte("only in snapshot"))

	v := loadViper(t, `
mounts:
  - prefix: /data
    root: `+disk+`
  - prefix: /data
    kind: mem
    root: `+snap+`
`)
	cfgs, err := layerfs.LoadMounts(v)
	require.NoError(t, err)
	require.Len(t, cfgs, 2)
	assert.Equal(t, "/data", cfgs[0].Prefix)
	assert.Equal(t, layerfs.KindMem, cfgs[1].Kind)

	fsys, _ := newFS(t)
	require.NoError(t, fsys.MountAll(context.Background(), cfgs))
	assert.Equal(t, 2, fsys.Stores())

	got, ok := fsys.Read("/data/a.txt")
	require.True(t, ok)
	assert.Equal(t, "disk", string(got))

	got, ok = fsys.Read("/data/b.txt")
	require.True(t, ok)
	assert.Equal(t, "only in snapshot", string(got))
}

func TestLoadMountsRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"missing root":  "mounts:\n  - prefix: /x\n",
		"unknown kind":  "mounts:\n  - prefix: /x\n    root: /tmp\n    kind: ftp\n",
		"image no name": "mounts:\n  - prefix: /x\n    kind: image\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := layerfs.LoadMounts(loadViper(t, doc))
			assert.ErrorIs(t, err, layerfs.ErrInvalidMount)
		})
	}
}

func TestMountAllIsAllOrNothing(t *testing.T) {
	fsys, _ := newFS(t)
	err := fsys.MountAll(context.Background(), []layerfs.MountConfig{
		{Prefix: "/ok", Root: t.TempDir()},
		{Prefix: "/bad", Kind: layerfs.KindMem, Root: "/definitely/not/here"},
	})
	require.Error(t, err)
	assert.Equal(t, 0, fsys.Stores())
}

func TestParseMountFlag(t *testing.T) {
	c, err := layerfs.ParseMountFlag("/game=/data/game")
	require.NoError(t, err)
	assert.Equal(t, layerfs.MountConfig{Prefix: "/game", Root: "/data/game", Kind: layerfs.KindStd}, c)
	assert.Equal(t, "/game=/data/game (std)", c.String())

	for _, bad := range []string{"/game", "/game="} {
		_, err := layerfs.ParseMountFlag(bad)
		assert.ErrorIs(t, err, layerfs.ErrInvalidMount, bad)
	}
}
