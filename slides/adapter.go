package slides

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	"go.uber.org/zap"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// DPI written into adapted PNGs.
const DPI = 150

var (
	ErrEmptyImage   = errors.New("slides: empty image data")
	ErrInvalidImage = errors.New("slides: invalid image data")
)

// Geometry describes how a source image is placed on a slide canvas.
type Geometry struct {
	TargetWidth, TargetHeight int
	ScaledWidth, ScaledHeight int
	OffsetX, OffsetY          int
}

// Plan computes the fit-and-center geometry of a srcW x srcH image on the
// format's canvas. ok is false for unknown or pass-through formats.
func Plan(srcW, srcH int, key string) (g Geometry, ok bool) {
	f, found := Lookup(key)
	if !found || !f.Resizes() || srcW <= 0 || srcH <= 0 {
		return Geometry{}, false
	}

	tw, th := *f.Width, *f.Height
	ratio := min(float64(tw)/float64(srcW), float64(th)/float64(srcH))
	newW := max(int(float64(srcW)*ratio), 1)
	newH := max(int(float64(srcH)*ratio), 1)

	return Geometry{
		TargetWidth:  tw,
		TargetHeight: th,
		ScaledWidth:  newW,
		ScaledHeight: newH,
		OffsetX:      (tw - newW) / 2,
		OffsetY:      (th - newH) / 2,
	}, true
}

// DecodeImage decodes PNG, JPEG, GIF or WebP bytes.
func DecodeImage(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return img, nil
}

// Adapter scales generated images onto slide canvases.
//
// Thread Safety: Adapter is stateless and safe for concurrent use.
type Adapter struct {
	logger *zap.Logger
}

// NewAdapter creates an Adapter.
func NewAdapter(logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{logger: logger.Named("slides")}
}

// Adapt fits img onto the canvas of format key, centered on bg (white when
// nil), and returns PNG bytes tagged at 150 DPI. Unknown formats, the
// pass-through format and undecodable input all return img unchanged.
func (a *Adapter) Adapt(img []byte, key string, bg color.Color) []byte {
	f, ok := Lookup(key)
	if !ok {
		a.logger.Warn("unknown slide format, returning original image", zap.String("format", key))
		return img
	}
	if !f.Resizes() {
		return img
	}

	src, err := DecodeImage(img)
	if err != nil {
		a.logger.Warn("cannot decode image, returning original", zap.String("format", key), zap.Error(err))
		return img
	}

	sb := src.Bounds()
	g, _ := Plan(sb.Dx(), sb.Dy(), key)

	out, err := Compose(src, g, bg)
	if err != nil {
		a.logger.Warn("cannot encode adapted image, returning original", zap.String("format", key), zap.Error(err))
		return img
	}

	a.logger.Info("adapted image for slides",
		zap.String("format", key),
		zap.Int("source_width", sb.Dx()),
		zap.Int("source_height", sb.Dy()),
		zap.Int("target_width", g.TargetWidth),
		zap.Int("target_height", g.TargetHeight),
		zap.Int("padding_x", g.OffsetX),
		zap.Int("padding_y", g.OffsetY))
	return out
}

// Compose renders src onto a bg-filled canvas per g and encodes it as PNG.
func Compose(src image.Image, g Geometry, bg color.Color) ([]byte, error) {
	if bg == nil {
		bg = color.White
	}

	canvas := image.NewRGBA(image.Rect(0, 0, g.TargetWidth, g.TargetHeight))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

	dst := image.Rect(g.OffsetX, g.OffsetY, g.OffsetX+g.ScaledWidth, g.OffsetY+g.ScaledHeight)
	draw.CatmullRom.Scale(canvas, dst, src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.DefaultCompression}
	if err := enc.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("slides: encode png: %w", err)
	}
	return WithDPI(buf.Bytes(), DPI)
}
