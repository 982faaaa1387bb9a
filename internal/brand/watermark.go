package brand

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const (
	minWidth   = 80
	minHeight  = 25
	padX       = 8
	padY       = 5
	defaultDPI = 72
)

// WatermarkSpec describes the raster to render.
type WatermarkSpec struct {
	Text     string
	FontPath string
	FontSize float64
	Opacity  int
}

// loadFace returns the preferred font face, or the built-in 7x13 face with
// substituted=true when the preferred font is missing or unreadable.
func loadFace(path string, size float64) (face font.Face, substituted bool, err error) {
	if strings.TrimSpace(path) == "" {
		return basicfont.Face7x13, false, nil
	}
	data, readErr := os.ReadFile(path)
	if readErr != nil {
		return basicfont.Face7x13, true, readErr
	}
	parsed, parseErr := opentype.Parse(data)
	if parseErr != nil {
		return basicfont.Face7x13, true, parseErr
	}
	if size <= 0 {
		size = 13
	}
	f, faceErr := opentype.NewFace(parsed, &opentype.FaceOptions{Size: size, DPI: defaultDPI, Hinting: font.HintingFull})
	if faceErr != nil {
		return basicfont.Face7x13, true, faceErr
	}
	return f, false, nil
}

// RenderWatermark draws ws.Text in white on a transparent canvas. The canvas
// is at least 80x25 and grows to fit the text; the text is centred. The
// returned fontErr is non-nil when the preferred font was substituted.
func RenderWatermark(ws WatermarkSpec) (img *image.RGBA, fontErr error) {
	text := strings.TrimSpace(ws.Text)
	face, substituted, err := loadFace(ws.FontPath, ws.FontSize)
	if substituted {
		fontErr = fmt.Errorf("font %s unavailable, using built-in face: %w", ws.FontPath, err)
	}

	alpha := ws.Opacity
	if alpha < 0 {
		alpha = 0
	}
	if alpha > 255 {
		alpha = 255
	}

	metrics := face.Metrics()
	textWidth := font.MeasureString(face, text).Ceil()
	textHeight := (metrics.Ascent + metrics.Descent).Ceil()

	width := max(minWidth, textWidth+2*padX)
	height := max(minHeight, textHeight+2*padY)

	img = image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.Transparent, image.Point{}, draw.Src)

	x := (width - textWidth) / 2
	y := (height-textHeight)/2 + metrics.Ascent.Ceil()
	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.NRGBA{R: 255, G: 255, B: 255, A: uint8(alpha)}),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	drawer.DrawString(text)
	return img, fontErr
}

// Watermark describes a written raster.
type Watermark struct {
	Width  int
	Height int
	// FontFallback is set when the preferred font was replaced by the
	// built-in face.
	FontFallback error
}

// WriteWatermark renders ws and writes it as PNG to path.
func WriteWatermark(path string, ws WatermarkSpec) (Watermark, error) {
	img, fontErr := RenderWatermark(ws)
	wm := Watermark{Width: img.Bounds().Dx(), Height: img.Bounds().Dy(), FontFallback: fontErr}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return wm, fmt.Errorf("encode watermark: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return wm, fmt.Errorf("write watermark: %w", err)
	}
	return wm, nil
}
