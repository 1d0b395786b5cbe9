package layerfs

import (
	"github.com/rs/zerolog"

	"github.com/aweris/layerfs/internal/logging"
)

// Options configures a Filesystem.
type Options struct {
	Decoder Decoder
	Logger  zerolog.Logger
}

// Option is a functional option for configuring New.
type Option func(*Options)

func defaultOptions() *Options {
	return &Options{
		Decoder: BundleDecoder,
		Logger:  logging.Root(),
	}
}

// WithDecoder sets the decoder used to mount container files.
func WithDecoder(dec Decoder) Option {
	return func(o *Options) {
		if dec != nil {
			o.Decoder = dec
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *Options) { o.Logger = l }
}
