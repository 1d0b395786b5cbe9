// Package remote fetches OCI images and flattens their filesystems so they
// can be served as backing stores.
package remote

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/mutate"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	"github.com/spf13/afero"
)

const (
	DefaultAttempts = 3
	DefaultJobs     = 4
)

// Authenticator provides credentials for a registry.
type Authenticator interface {
	Authenticate(registry string) (username, password string, err error)
}

// Options configures Fetch.
type Options struct {
	Auth     Authenticator
	Attempts int
	Jobs     int
}

// Fetch resolves imageRef and returns the image, retrying transient failures.
func Fetch(ctx context.Context, imageRef string, opts Options) (v1.Image, error) {
	ref, err := name.ParseReference(imageRef, name.WithDefaultTag("latest"))
	if err != nil {
		return nil, fmt.Errorf("invalid image ref %q: %w", imageRef, err)
	}
	if opts.Attempts <= 0 {
		opts.Attempts = DefaultAttempts
	}
	if opts.Jobs <= 0 {
		opts.Jobs = DefaultJobs
	}

	options := remoteOptions(ref, opts.Auth)
	options = append(options, remote.WithContext(ctx), remote.WithJobs(opts.Jobs))

	img, err := retry(ctx, opts.Attempts, func() (v1.Image, error) {
		return remote.Image(ref, options...)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch image %s: %w", ref, err)
	}
	return img, nil
}

// Materialize writes the regular files of img's flattened filesystem into
// fsys and returns how many were written. Directories are created as needed;
// links and special files are skipped.
func Materialize(img v1.Image, fsys afero.Fs) (int, error) {
	rc := mutate.Extract(img)
	defer rc.Close()

	count := 0
	tr := tar.NewReader(rc)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return count, nil
		}
		if err != nil {
			return count, fmt.Errorf("read image filesystem: %w", err)
		}

		p := path.Join("/", hdr.Name)
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := fsys.MkdirAll(p, 0755); err != nil {
				return count, err
			}
		case tar.TypeReg:
			data, err := io.ReadAll(tr)
			if err != nil {
				return count, fmt.Errorf("read %s: %w", hdr.Name, err)
			}
			if err := fsys.MkdirAll(path.Dir(p), 0755); err != nil {
				return count, err
			}
			if err := afero.WriteFile(fsys, p, data, hdr.FileInfo().Mode().Perm()|0400); err != nil {
				return count, err
			}
			count++
		}
	}
}

func remoteOptions(ref name.Reference, auth Authenticator) []remote.Option {
	if auth != nil {
		username, password, err := auth.Authenticate(ref.Context().RegistryStr())
		if err == nil && username != "" {
			return []remote.Option{remote.WithAuth(&authn.Basic{
				Username: username,
				Password: password,
			})}
		}
	}
	return []remote.Option{remote.WithAuthFromKeychain(authn.DefaultKeychain)}
}

func retry[T any](ctx context.Context, maxAttempts int, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err
		if i < maxAttempts-1 {
			delay := time.Duration(1<<i) * 500 * time.Millisecond // 500ms, 1s, 2s, 4s...
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return zero, lastErr
}
