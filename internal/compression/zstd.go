package compression

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// MaxDecodedSize caps the output of a single Decompress call.
const MaxDecodedSize = 1 << 30

type Compressor struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewCompressor returns a zstd compressor. Levels 1-3 map to fastest,
// default and better compression; anything else uses the default.
func NewCompressor(level int) (*Compressor, error) {
	var encoderLevel zstd.EncoderLevel
	switch level {
	case 1:
		encoderLevel = zstd.SpeedFastest
	case 2:
		encoderLevel = zstd.SpeedDefault
	case 3:
		encoderLevel = zstd.SpeedBetterCompression
	default:
		encoderLevel = zstd.SpeedDefault
	}

	encoder, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(encoderLevel),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return nil, err
	}

	decoder, err := zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderMaxMemory(MaxDecodedSize),
	)
	if err != nil {
		encoder.Close()
		return nil, err
	}

	return &Compressor{
		encoder: encoder,
		decoder: decoder,
	}, nil
}

func (c *Compressor) Compress(data []byte) []byte {
	return c.encoder.EncodeAll(data, make([]byte, 0, len(data)/2))
}

// Decompress returns a freshly allocated buffer; data is left untouched.
// sizeHint preallocates the output when the caller knows the decoded size.
func (c *Compressor) Decompress(data []byte, sizeHint int) ([]byte, error) {
	if sizeHint < 0 || sizeHint > MaxDecodedSize {
		return nil, fmt.Errorf("decoded size %d out of range", sizeHint)
	}
	out, err := c.decoder.DecodeAll(data, make([]byte, 0, sizeHint))
	if err != nil {
		return nil, fmt.Errorf("zstd: %w", err)
	}
	return out, nil
}

func (c *Compressor) Close() error {
	if c.encoder != nil {
		c.encoder.Close()
	}
	if c.decoder != nil {
		c.decoder.Close()
	}
	return nil
}

var shared *Compressor

// Shared returns a process-wide compressor at the default level. zstd
// EncodeAll and DecodeAll are safe for concurrent use.
func Shared() *Compressor {
	return shared
}

func init() {
	var err error
	shared, err = NewCompressor(2)
	if err != nil {
		panic("compression: zstd initialization failed: " + err.Error())
	}
}
