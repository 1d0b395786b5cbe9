package layerfs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Mount kinds accepted in MountConfig.Kind.
const (
	KindStd   = "std"
	KindMem   = "mem"
	KindImage = "image"
)

// MountConfig describes one store to mount.
//
//	mounts:
//	  - prefix: /game
//	    root: /data/game
//	  - prefix: /base
//	    kind: image
//	    image: ghcr.io/acme/base-assets:v3
type MountConfig struct {
	Prefix string `mapstructure:"prefix"`
	Root   string `mapstructure:"root"`
	Kind   string `mapstructure:"kind"`
	Image  string `mapstructure:"image"`
}

func (c MountConfig) String() string {
	switch c.kind() {
	case KindImage:
		return fmt.Sprintf("%s=%s (image)", c.Prefix, c.Image)
	default:
		return fmt.Sprintf("%s=%s (%s)", c.Prefix, c.Root, c.kind())
	}
}

func (c MountConfig) kind() string {
	if c.Kind == "" {
		return KindStd
	}
	return strings.ToLower(c.Kind)
}

// Validate checks that the fields required by the mount kind are set.
func (c MountConfig) Validate() error {
	switch c.kind() {
	case KindStd, KindMem:
		if c.Root == "" {
			return fmt.Errorf("%w: %s mount at %q needs a root", ErrInvalidMount, c.kind(), c.Prefix)
		}
	case KindImage:
		if c.Image == "" {
			return fmt.Errorf("%w: image mount at %q needs an image", ErrInvalidMount, c.Prefix)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidMount, c.Kind)
	}
	return nil
}

// Open builds the store described by c.
func (c MountConfig) Open(ctx context.Context) (BackingStore, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	switch c.kind() {
	case KindMem:
		return LoadMemStore(c.Prefix, expandPath(c.Root))
	case KindImage:
		return NewImageStore(ctx, c.Prefix, c.Image, ImageOptions{})
	default:
		return NewStdStore(c.Prefix, expandPath(c.Root)), nil
	}
}

// ParseMountFlag parses "prefix=root" into a std mount.
func ParseMountFlag(s string) (MountConfig, error) {
	prefix, root, ok := strings.Cut(s, "=")
	if !ok || root == "" {
		return MountConfig{}, fmt.Errorf("%w: %q, want prefix=root", ErrInvalidMount, s)
	}
	return MountConfig{Prefix: prefix, Root: root, Kind: KindStd}, nil
}

// LoadMounts reads the "mounts" list from v.
func LoadMounts(v *viper.Viper) ([]MountConfig, error) {
	var cfgs []MountConfig
	if err := v.UnmarshalKey("mounts", &cfgs); err != nil {
		return nil, fmt.Errorf("parse mounts: %w", err)
	}
	for i, c := range cfgs {
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("mount %d: %w", i, err)
		}
	}
	return cfgs, nil
}

// MountAll opens each configured store and mounts them in order. Stores are
// opened before any is mounted, so a failure leaves f unchanged.
func (f *Filesystem) MountAll(ctx context.Context, cfgs []MountConfig) error {
	stores := make([]BackingStore, 0, len(cfgs))
	for _, c := range cfgs {
		s, err := c.Open(ctx)
		if err != nil {
			return fmt.Errorf("mount %s: %w", c, err)
		}
		stores = append(stores, s)
	}
	for _, s := range stores {
		f.Mount(s)
	}
	return nil
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
