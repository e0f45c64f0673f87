// Package imaging validates and compresses candidate board images.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"strings"

	// Decoders for the formats browsers hand us.
	_ "image/gif"
	_ "image/png"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

var (
	ErrTooLarge   = errors.New("file size too large")
	ErrNotImage   = errors.New("file is not an image")
	ErrUnreadable = errors.New("image could not be read")
	ErrDimensions = errors.New("image dimensions too large")
)

type Limits struct {
	MaxBytes      int64
	MaxDimension  int
	CompressAbove int64
	MaxWidth      int
	Quality       int
}

func DefaultLimits() Limits {
	return Limits{
		MaxBytes:      10 << 20,
		MaxDimension:  4000,
		CompressAbove: 2 << 20,
		MaxWidth:      1920,
		Quality:       80,
	}
}

type Info struct {
	ContentType string
	Width       int
	Height      int
}

// CheckSize rejects a byte count above limits.MaxBytes, so callers holding
// only a declared size can refuse a file before reading it.
func CheckSize(size int64, limits Limits) error {
	if limits.MaxBytes > 0 && size > limits.MaxBytes {
		return fmt.Errorf("%w: %s exceeds the %s limit",
			ErrTooLarge, humanize.IBytes(uint64(size)), humanize.IBytes(uint64(limits.MaxBytes)))
	}
	return nil
}

// Validate rejects data that is too large, not an image, or whose pixel
// dimensions exceed the limit. Errors wrap the package sentinels and carry a
// message fit for showing to the user.
func Validate(data []byte, limits Limits) (Info, error) {
	if err := CheckSize(int64(len(data)), limits); err != nil {
		return Info{}, err
	}

	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return Info{}, fmt.Errorf("%w: detected %s", ErrNotImage, mtype.String())
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Info{}, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	if limits.MaxDimension > 0 && (cfg.Width > limits.MaxDimension || cfg.Height > limits.MaxDimension) {
		return Info{}, fmt.Errorf("%w: %dx%d exceeds %dx%d",
			ErrDimensions, cfg.Width, cfg.Height, limits.MaxDimension, limits.MaxDimension)
	}

	return Info{
		ContentType: baseType(mtype.String()),
		Width:       cfg.Width,
		Height:      cfg.Height,
	}, nil
}

// NeedsCompression reports whether data is above the compression threshold.
func NeedsCompression(data []byte, limits Limits) bool {
	return limits.CompressAbove > 0 && int64(len(data)) > limits.CompressAbove
}

// Compress re-encodes data as JPEG scaled down to MaxWidth, keeping the
// aspect ratio. The re-encoded bytes are returned only when they are smaller
// than the input; otherwise data is returned with compressed=false.
func Compress(data []byte, limits Limits) (out []byte, compressed bool, err error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return data, false, fmt.Errorf("decode for compression: %w", err)
	}

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if limits.MaxWidth > 0 && w > limits.MaxWidth {
		h = max(h*limits.MaxWidth/w, 1)
		w = limits.MaxWidth
	}

	// JPEG has no alpha; flatten onto white like a browser canvas export would.
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	quality := limits.Quality
	if quality <= 0 || quality > 100 {
		quality = jpeg.DefaultQuality
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: quality}); err != nil {
		return data, false, fmt.Errorf("encode jpeg: %w", err)
	}
	if buf.Len() >= len(data) {
		return data, false, nil
	}
	return buf.Bytes(), true, nil
}

// ContentType sniffs the MIME type of data without parameters.
func ContentType(data []byte) string {
	return baseType(mimetype.Detect(data).String())
}

// Extension returns the canonical file extension (with dot) for a MIME type,
// or ".bin" when unknown.
func Extension(contentType string) string {
	if m := mimetype.Lookup(baseType(contentType)); m != nil && m.Extension() != "" {
		return m.Extension()
	}
	return ".bin"
}

func baseType(ct string) string {
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.TrimSpace(strings.ToLower(ct))
}
