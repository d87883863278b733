// Package testutil builds image fixtures for tests: plain encodings, and
// JPEGs carrying a hand-assembled EXIF GPS block.
package testutil

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"math"
)

// GPSFix describes the GPS sub-IFD written into a fixture. An empty ref or
// a nil coordinate omits that tag.
type GPSFix struct {
	LatRef string
	Lat    [][2]uint32
	LonRef string
	Lon    [][2]uint32
}

func NewGPSFix(lat, lon float64) GPSFix {
	latRef, lonRef := "N", "E"
	if lat < 0 {
		latRef = "S"
	}
	if lon < 0 {
		lonRef = "W"
	}
	return GPSFix{
		LatRef: latRef,
		Lat:    DMS(math.Abs(lat)),
		LonRef: lonRef,
		Lon:    DMS(math.Abs(lon)),
	}
}

// DMS splits non-negative decimal degrees into EXIF rationals with seconds
// kept to 1/10000.
func DMS(v float64) [][2]uint32 {
	deg := math.Floor(v)
	minutes := (v - deg) * 60
	mins := math.Floor(minutes)
	secs := (minutes - mins) * 60
	return [][2]uint32{
		{uint32(deg), 1},
		{uint32(mins), 1},
		{uint32(math.Round(secs * 10000)), 10000},
	}
}

type ifdEntry struct {
	tag    uint16
	typ    uint16
	count  uint32
	inline []byte
	data   []byte
}

// TIFF renders a little-endian TIFF structure whose IFD0 only points at the
// GPS IFD.
func (g GPSFix) TIFF() []byte {
	var entries []ifdEntry
	if g.LatRef != "" {
		entries = append(entries, asciiEntry(0x0001, g.LatRef))
	}
	if g.Lat != nil {
		entries = append(entries, rationalEntry(0x0002, g.Lat))
	}
	if g.LonRef != "" {
		entries = append(entries, asciiEntry(0x0003, g.LonRef))
	}
	if g.Lon != nil {
		entries = append(entries, rationalEntry(0x0004, g.Lon))
	}

	le := binary.LittleEndian
	const ifd0Offset = 8
	const ifd0Size = 2 + 12 + 4
	gpsOffset := ifd0Offset + ifd0Size
	dataOffset := gpsOffset + 2 + 12*len(entries) + 4

	buf := new(bytes.Buffer)
	buf.WriteString("II")
	_ = binary.Write(buf, le, uint16(42))
	_ = binary.Write(buf, le, uint32(ifd0Offset))

	_ = binary.Write(buf, le, uint16(1))
	_ = binary.Write(buf, le, uint16(0x8825))
	_ = binary.Write(buf, le, uint16(4))
	_ = binary.Write(buf, le, uint32(1))
	_ = binary.Write(buf, le, uint32(gpsOffset))
	_ = binary.Write(buf, le, uint32(0))

	var data bytes.Buffer
	_ = binary.Write(buf, le, uint16(len(entries)))
	for _, e := range entries {
		_ = binary.Write(buf, le, e.tag)
		_ = binary.Write(buf, le, e.typ)
		_ = binary.Write(buf, le, e.count)
		if e.data != nil {
			_ = binary.Write(buf, le, uint32(dataOffset+data.Len()))
			data.Write(e.data)
			continue
		}
		value := make([]byte, 4)
		copy(value, e.inline)
		buf.Write(value)
	}
	_ = binary.Write(buf, le, uint32(0))
	buf.Write(data.Bytes())

	return buf.Bytes()
}

func asciiEntry(tag uint16, s string) ifdEntry {
	return ifdEntry{tag: tag, typ: 2, count: uint32(len(s) + 1), inline: append([]byte(s), 0)}
}

func rationalEntry(tag uint16, values [][2]uint32) ifdEntry {
	data := make([]byte, 0, 8*len(values))
	for _, v := range values {
		data = binary.LittleEndian.AppendUint32(data, v[0])
		data = binary.LittleEndian.AppendUint32(data, v[1])
	}
	return ifdEntry{tag: tag, typ: 5, count: uint32(len(values)), data: data}
}

// WithEXIF splices an APP1 Exif segment holding tiff right after the SOI
// marker of a JPEG stream.
func WithEXIF(jpegData, tiff []byte) []byte {
	payload := append([]byte("Exif\x00\x00"), tiff...)
	segLen := len(payload) + 2

	out := make([]byte, 0, len(jpegData)+segLen+2)
	out = append(out, jpegData[:2]...)
	out = append(out, 0xFF, 0xE1, byte(segLen>>8), byte(segLen))
	out = append(out, payload...)
	out = append(out, jpegData[2:]...)
	return out
}

// JPEGWithGPS encodes a small photo-like JPEG tagged with the given location.
func JPEGWithGPS(lat, lon float64) []byte {
	return WithEXIF(JPEG(64, 48), NewGPSFix(lat, lon).TIFF())
}

func JPEG(w, h int) []byte {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, gradient(w, h), &jpeg.Options{Quality: 100}); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// PNGWithAlpha encodes an NRGBA image whose left half is transparent.
func PNGWithAlpha(w, h int) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			a := uint8(255)
			if x < w/2 {
				a = 0
			}
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 4), G: uint8(y * 4), B: 90, A: a})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func PalettedGIF(w, h int) []byte {
	palette := color.Palette{color.Black, color.White, color.RGBA{R: 200, A: 255}, color.Transparent}
	img := image.NewPaletted(image.Rect(0, 0, w, h), palette)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetColorIndex(x, y, uint8((x+y)%len(palette)))
		}
	}
	var buf bytes.Buffer
	if err := gif.Encode(&buf, img, nil); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func gradient(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 255 / w), G: uint8(y * 255 / h), B: uint8((x + y) % 256), A: 255})
		}
	}
	return img
}
