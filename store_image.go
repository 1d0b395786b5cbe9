package layerfs

import (
	"context"
	"fmt"

	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/spf13/afero"

	"github.com/aweris/layerfs/internal/remote"
)

// ImageOptions configures NewImageStore.
type ImageOptions = remote.Options

// NewImageStore pulls imageRef from its registry and serves the image's
// flattened filesystem under prefix. The image is fetched once, here; reads
// are served from memory.
func NewImageStore(ctx context.Context, prefix, imageRef string, opts ImageOptions) (*AferoStore, error) {
	img, err := remote.Fetch(ctx, imageRef, opts)
	if err != nil {
		return nil, err
	}
	return NewImageStoreFromImage(prefix, img)
}

// NewImageStoreFromImage serves an already resolved image under prefix.
func NewImageStoreFromImage(prefix string, img v1.Image) (*AferoStore, error) {
	fsys := afero.NewMemMapFs()
	if _, err := remote.Materialize(img, fsys); err != nil {
		return nil, fmt.Errorf("materialize image: %w", err)
	}
	return NewAferoStore(prefix, afero.NewReadOnlyFs(fsys), "/"), nil
}
