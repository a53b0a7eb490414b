// Command swatch renders the color picker fields for a tint to PNG files, for
// checking gradients outside the panel.
//
// Usage:
//
//	go run ./cmd/swatch -tint '#336699' -out ./swatch
package main

import (
	"flag"
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"path/filepath"

	"github.com/couchcryptid/weather-fx-panel/internal/domain"
	"github.com/couchcryptid/weather-fx-panel/internal/picker"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	tint := flag.String("tint", domain.NoTint, "tint as #rrggbb; its hue selects the field gradient")
	out := flag.String("out", ".", "output directory")
	w := flag.Int("w", picker.FieldWidth, "field width in pixels")
	h := flag.Int("h", picker.FieldHeight, "field and hue strip height in pixels")
	flag.Parse()

	if !domain.ValidHex(*tint) {
		flag.Usage()
		return fmt.Errorf("invalid -tint %q: want #rrggbb", *tint)
	}
	if *w <= 0 || *h <= 0 {
		return fmt.Errorf("invalid size %dx%d", *w, *h)
	}
	if err := os.MkdirAll(*out, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	hue, s, l := domain.HexToHSL(*tint)
	log.Printf("tint %s: hue=%.1f saturation=%.1f lightness=%.1f", *tint, hue, s, l)

	files := []struct {
		name string
		img  image.Image
	}{
		{"field.png", picker.RenderField(hue, *w, *h)},
		{"hue.png", picker.RenderHueStrip(picker.StripWidth, *h)},
	}
	for _, f := range files {
		path := filepath.Join(*out, f.name)
		if err := writePNG(path, f.img); err != nil {
			return err
		}
		log.Printf("wrote %s", path)
	}
	return nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
