package layerfs

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/aweris/layerfs/internal/bundle"
)

var (
	ErrNotFound     = fmt.Errorf("layerfs: %w", fs.ErrNotExist)
	ErrInvalidMount = errors.New("layerfs: invalid mount")

	// ErrInvalidBundle is wrapped by errors from the default bundle decoder.
	ErrInvalidBundle = bundle.ErrInvalid
)
