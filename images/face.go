package images

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"math"

	xdraw "golang.org/x/image/draw"
	"pault.ag/go/cbeff/jpeg2000"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrConversionFailed  = errors.New("image conversion failed")
)

const (
	DefaultEOIWindow   = 64
	DefaultJPEGQuality = 90
)

var (
	jpegSOI      = []byte{0xFF, 0xD8}
	jpegEOI      = []byte{0xFF, 0xD9}
	jp2Signature = []byte{0x00, 0x00, 0x00, 0x0C, 'j', 'P', ' ', ' ', 0x0D, 0x0A, 0x87, 0x0A}
)

type Format int

const (
	FormatUnknown Format = iota
	FormatJPEG
	FormatJPEG2000
)

func (f Format) String() string {
	switch f {
	case FormatJPEG:
		return "jpeg"
	case FormatJPEG2000:
		return "jpeg2000"
	}
	return "unknown"
}

// DecodeFunc decodes a JPEG2000 buffer into an image.
type DecodeFunc func([]byte) (image.Image, error)

type Options struct {
	// EOIWindow is how many trailing bytes may follow the JPEG end-of-image marker.
	EOIWindow int
	// MaxDimension bounds width and height of converted images, 0 keeps the size.
	MaxDimension int
	Quality      int
	Decode       DecodeFunc
}

// Normalizer makes sure face images handed to clients are JPEG.
type Normalizer struct {
	opts Options
}

func NewNormalizer(opts Options) *Normalizer {
	if opts.EOIWindow <= 0 {
		opts.EOIWindow = DefaultEOIWindow
	}
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = DefaultJPEGQuality
	}
	if opts.Decode == nil {
		opts.Decode = decodeJPEG2000
	}
	return &Normalizer{opts: opts}
}

func decodeJPEG2000(data []byte) (image.Image, error) {
	return jpeg2000.Parse(data)
}

// IsJPEG reports whether data starts with SOI and has an EOI marker within
// the last window bytes.
func IsJPEG(data []byte, window int) bool {
	if len(data) < 4 || !bytes.HasPrefix(data, jpegSOI) {
		return false
	}
	start := max(len(jpegSOI), len(data)-window)
	return bytes.Contains(data[start:], jpegEOI)
}

// IsJPEG2000 reports whether data starts with the JP2 signature box.
func IsJPEG2000(data []byte) bool {
	return bytes.HasPrefix(data, jp2Signature)
}

func (n *Normalizer) Detect(data []byte) Format {
	switch {
	case IsJPEG(data, n.opts.EOIWindow):
		return FormatJPEG
	case IsJPEG2000(data):
		return FormatJPEG2000
	}
	return FormatUnknown
}

// EnsureJPEG returns JPEG input unchanged and converts JPEG2000 to JPEG.
// Any other input is rejected with ErrUnsupportedFormat.
func (n *Normalizer) EnsureJPEG(data []byte) ([]byte, error) {
	switch n.Detect(data) {
	case FormatJPEG:
		return data, nil
	case FormatJPEG2000:
		return n.convert(data)
	}
	return nil, ErrUnsupportedFormat
}

func (n *Normalizer) convert(data []byte) (out []byte, err error) {
	// the codestream parser panics on some truncated inputs
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("%w: decoder panic: %v", ErrConversionFailed, r)
		}
	}()

	img, err := n.opts.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConversionFailed, err)
	}
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: empty image", ErrConversionFailed)
	}

	if n.opts.MaxDimension > 0 {
		img = resizeToFit(img, n.opts.MaxDimension, n.opts.MaxDimension)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: n.opts.Quality}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConversionFailed, err)
	}
	return buf.Bytes(), nil
}

// resizeToFit scales img to fit within maxW×maxH (keeping aspect ratio)
func resizeToFit(src image.Image, maxW, maxH int) image.Image {
	bw := src.Bounds().Dx()
	bh := src.Bounds().Dy()

	scale := math.Min(float64(maxW)/float64(bw), float64(maxH)/float64(bh))
	if scale >= 1.0 {
		return src
	}
	w := int(math.Max(1, math.Round(float64(bw)*scale)))
	h := int(math.Max(1, math.Round(float64(bh)*scale)))

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	// CatmullRom = high quality, good for photos/faces
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Over, nil)
	return dst
}
