package picker

import (
	"image"
	"image/color"

	"github.com/couchcryptid/weather-fx-panel/internal/domain"
)

// RenderField paints the saturation/lightness field for hue. Saturation grows
// to the right and lightness grows upward.
func RenderField(hue float64, w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		l := 100 - float64(y)/float64(h)*100
		for x := 0; x < w; x++ {
			s := float64(x) / float64(w) * 100
			r, g, b := domain.HSLToRGB(hue, s, l)
			img.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: 0xff})
		}
	}
	return img
}

// RenderHueStrip paints a vertical hue strip at full saturation and half lightness.
func RenderHueStrip(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		r, g, b := domain.HSLToRGB(float64(y)/float64(h)*360, 100, 50)
		c := color.RGBA{R: r, G: g, B: b, A: 0xff}
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}
