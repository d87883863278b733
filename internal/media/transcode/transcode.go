// Package transcode recompresses staged images in place.
package transcode

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
)

const DefaultQuality = 80

var (
	ErrUnsupportedFormat = errors.New("transcode: unsupported format")
	ErrDecode            = errors.New("transcode: cannot decode image")
)

type Result struct {
	Format          string
	OriginalBytes   int64
	CompressedBytes int64
}

func (r Result) SavedBytes() int64 {
	return r.OriginalBytes - r.CompressedBytes
}

type encodeFunc func(w io.Writer, img image.Image, quality int) error

var encoders = map[string]encodeFunc{
	"jpeg": func(w io.Writer, img image.Image, quality int) error {
		return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	},
	"png": func(w io.Writer, img image.Image, _ int) error {
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		return enc.Encode(w, img)
	},
	"gif": func(w io.Writer, img image.Image, _ int) error {
		return gif.Encode(w, img, nil)
	},
	"bmp": func(w io.Writer, img image.Image, _ int) error {
		return bmp.Encode(w, img)
	},
	"tiff": func(w io.Writer, img image.Image, _ int) error {
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	},
}

// Transcoder adapts Compress to an interface value.
type Transcoder struct{}

func (Transcoder) Compress(path string, quality int) (Result, error) {
	return Compress(path, quality)
}

// FormatFromPath infers the encoding from the file extension. "jpg" is the
// only alias.
func FormatFromPath(path string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if ext == "jpg" {
		return "jpeg"
	}
	return ext
}

// Compress re-encodes the file at path in its own format and replaces it.
// On any error the file is left untouched.
func Compress(path string, quality int) (Result, error) {
	format := FormatFromPath(path)
	encode, ok := encoders[format]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	info, err := os.Stat(path)
	if err != nil {
		return Result{}, fmt.Errorf("stat: %w", err)
	}

	img, err := decodeFile(path)
	if err != nil {
		return Result{}, err
	}

	var buf bytes.Buffer
	if err := encode(&buf, Flatten(img), clampQuality(quality)); err != nil {
		return Result{}, fmt.Errorf("encode %s: %w", format, err)
	}

	if err := replaceFile(path, buf.Bytes(), info.Mode().Perm()); err != nil {
		return Result{}, err
	}

	return Result{
		Format:          format,
		OriginalBytes:   info.Size(),
		CompressedBytes: int64(buf.Len()),
	}, nil
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return img, nil
}

// Flatten draws palette images and images with transparency onto an opaque
// white canvas. Opaque images are returned as is.
func Flatten(img image.Image) image.Image {
	if _, paletted := img.(*image.Paletted); !paletted && isOpaque(img) {
		return img
	}

	bounds := img.Bounds()
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, bounds, img, bounds.Min, draw.Over)
	return dst
}

func isOpaque(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}
	return false
}

func clampQuality(q int) int {
	switch {
	case q < 1:
		return 1
	case q > 100:
		return 100
	}
	return q
}

func replaceFile(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".transcode-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace: %w", err)
	}
	return nil
}
