package img

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"
	"strings"
)

var hdrSignatures = []string{"#?RADIANCE\n", "#?RGBE\n"}

// IsHDR reports whether data is a Radiance RGBE image.
func IsHDR(data []byte) bool {
	for _, sig := range hdrSignatures {
		if bytes.HasPrefix(data, []byte(sig)) {
			return true
		}
	}
	return false
}

func decodeHDR(data []byte, forceRGBA bool) (*Image, error) {
	r := bufio.NewReader(bytes.NewReader(data))

	// Header lines end at the first empty line.
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("img: hdr header: %w", err)
		}
		line = strings.TrimRight(line, "\n")
		if line == "" {
			break
		}
		if format, ok := strings.CutPrefix(line, "FORMAT="); ok && format != "32-bit_rle_rgbe" {
			return nil, fmt.Errorf("%w: hdr format %q", ErrUnsupported, format)
		}
	}

	var width, height int
	line, err := r.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("img: hdr resolution: %w", err)
	}
	line = strings.TrimSpace(line)
	if _, err := fmt.Sscanf(line, "-Y %d +X %d", &height, &width); err != nil {
		return nil, fmt.Errorf("%w: hdr orientation %q", ErrUnsupported, line)
	}
	if width <= 0 || height <= 0 || width > 1<<15 || height > 1<<15 {
		return nil, fmt.Errorf("img: hdr size %dx%d out of range", width, height)
	}

	channels := 3
	if forceRGBA {
		channels = 4
	}
	out := &Image{
		Width:    width,
		Height:   height,
		Channels: channels,
		Type:     Float32,
		PixF:     make([]float32, 0, width*height*channels),
	}

	scan := make([]byte, width*4)
	for y := 0; y < height; y++ {
		if err := readScanline(r, scan, width); err != nil {
			return nil, fmt.Errorf("img: hdr scanline %d: %w", y, err)
		}
		for x := 0; x < width; x++ {
			rgbe := scan[x*4 : x*4+4]
			var f float64
			if rgbe[3] != 0 {
				f = math.Ldexp(1, int(rgbe[3])-(128+8))
			}
			out.PixF = append(out.PixF, float32(float64(rgbe[0])*f), float32(float64(rgbe[1])*f), float32(float64(rgbe[2])*f))
			if channels == 4 {
				out.PixF = append(out.PixF, 1)
			}
		}
	}
	return out, nil
}

// readScanline fills scan with width interleaved RGBE pixels, handling both
// flat and run-length encoded scanlines.
func readScanline(r *bufio.Reader, scan []byte, width int) error {
	if _, err := io.ReadFull(r, scan[:4]); err != nil {
		return err
	}
	rle := width >= 8 && width < 0x8000 && scan[0] == 2 && scan[1] == 2 && scan[2]&0x80 == 0
	if !rle {
		_, err := io.ReadFull(r, scan[4:])
		return err
	}
	if w := int(scan[2])<<8 | int(scan[3]); w != width {
		return fmt.Errorf("scanline width %d, want %d", w, width)
	}

	for c := 0; c < 4; c++ {
		for x := 0; x < width; {
			count, err := r.ReadByte()
			if err != nil {
				return err
			}
			if count > 128 {
				n := int(count) - 128
				if x+n > width {
					return fmt.Errorf("run overflows scanline")
				}
				v, err := r.ReadByte()
				if err != nil {
					return err
				}
				for ; n > 0; n-- {
					scan[x*4+c] = v
					x++
				}
				continue
			}
			n := int(count)
			if n == 0 || x+n > width {
				return fmt.Errorf("bad literal length %d", n)
			}
			for ; n > 0; n-- {
				v, err := r.ReadByte()
				if err != nil {
					return err
				}
				scan[x*4+c] = v
				x++
			}
		}
	}
	return nil
}
