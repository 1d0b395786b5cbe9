// Package img decodes image files read through layerfs into flat pixel
// buffers.
//
// High dynamic range input (Radiance RGBE) decodes to float32 samples; PNG,
// JPEG and GIF decode to 8-bit samples. Samples are row-major and
// interleaved, with Channels samples per pixel.
package img

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"

	"github.com/gabriel-vasile/mimetype"
)

var ErrUnsupported = errors.New("img: unsupported image format")

// ElemType is the sample type of a decoded image.
type ElemType int

const (
	Uint8 ElemType = iota
	Float32
)

func (t ElemType) String() string {
	switch t {
	case Uint8:
		return "uint8"
	case Float32:
		return "float32"
	default:
		return fmt.Sprintf("ElemType(%d)", int(t))
	}
}

// Image is a decoded pixel buffer. Exactly one of Pix and PixF is set,
// depending on Type.
type Image struct {
	Width    int
	Height   int
	Channels int
	Type     ElemType
	Pix      []uint8
	PixF     []float32
}

// Decode decodes data. When forceRGBA is set the result always has four
// channels.
func Decode(data []byte, forceRGBA bool) (*Image, error) {
	if IsHDR(data) {
		return decodeHDR(data, forceRGBA)
	}

	var decode func(r *bytes.Reader) (image.Image, error)
	switch mt := mimetype.Detect(data); {
	case mt.Is("image/png"):
		decode = func(r *bytes.Reader) (image.Image, error) { return png.Decode(r) }
	case mt.Is("image/jpeg"):
		decode = func(r *bytes.Reader) (image.Image, error) { return jpeg.Decode(r) }
	case mt.Is("image/gif"):
		decode = func(r *bytes.Reader) (image.Image, error) { return gif.Decode(r) }
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, mt.String())
	}

	m, err := decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("img: %w", err)
	}
	return fromImage(m, forceRGBA), nil
}

// sourceChannels reports how many channels the encoded image carries.
func sourceChannels(m image.Image) int {
	switch m := m.(type) {
	case *image.Gray, *image.Gray16:
		return 1
	case *image.YCbCr, *image.CMYK:
		return 3
	case *image.Paletted:
		for _, c := range m.Palette {
			if _, _, _, a := c.RGBA(); a != 0xffff {
				return 4
			}
		}
		return 3
	default:
		return 4
	}
}

func fromImage(m image.Image, forceRGBA bool) *Image {
	b := m.Bounds()
	channels := sourceChannels(m)
	if forceRGBA {
		channels = 4
	}

	out := &Image{
		Width:    b.Dx(),
		Height:   b.Dy(),
		Channels: channels,
		Type:     Uint8,
		Pix:      make([]uint8, 0, b.Dx()*b.Dy()*channels),
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := m.At(x, y)
			if channels == 1 {
				out.Pix = append(out.Pix, color.GrayModel.Convert(c).(color.Gray).Y)
				continue
			}
			n := color.NRGBAModel.Convert(c).(color.NRGBA)
			out.Pix = append(out.Pix, n.R, n.G, n.B)
			if channels == 4 {
				out.Pix = append(out.Pix, n.A)
			}
		}
	}
	return out
}
