package spi

import (
	"image"
	"image/color"
	"math"
	"time"

	"github.com/coreman2200/arcaluminis-ftdi/model"
)

// Scene paints img for time t since the loop started.
type Scene func(t time.Duration, img *image.NRGBA)

// Rainbow scrolls a color wheel along the strip, one turn per period.
func Rainbow(period time.Duration, brightness float64) Scene {
	return func(t time.Duration, img *image.NRGBA) {
		n := img.Bounds().Dx()
		phase := math.Mod(float64(t)/float64(period), 1)
		for x := 0; x < n; x++ {
			h := math.Mod(phase+float64(x)/float64(max(n, 1)), 1)
			img.SetNRGBA(x, 0, scale(colorWheel(h), brightness))
		}
	}
}

// Solid paints every LED with p.
func Solid(p model.Pixel) Scene {
	c := color.NRGBA{p.R, p.G, p.B, 255}
	return func(_ time.Duration, img *image.NRGBA) {
		for x := 0; x < img.Bounds().Dx(); x++ {
			img.SetNRGBA(x, 0, c)
		}
	}
}

// Chase runs a single lit LED along the strip at speed LEDs per second.
func Chase(p model.Pixel, speed float64) Scene {
	on := color.NRGBA{p.R, p.G, p.B, 255}
	off := color.NRGBA{A: 255}
	return func(t time.Duration, img *image.NRGBA) {
		n := img.Bounds().Dx()
		if n == 0 {
			return
		}
		pos := int(t.Seconds()*speed) % n
		for x := 0; x < n; x++ {
			if x == pos {
				img.SetNRGBA(x, 0, on)
			} else {
				img.SetNRGBA(x, 0, off)
			}
		}
	}
}

func colorWheel(h float64) color.NRGBA {
	h *= 6
	switch {
	case h < 1.:
		return color.NRGBA{R: 255, G: byte(255 * h), A: 255}
	case h < 2.:
		return color.NRGBA{R: byte(255 * (2 - h)), G: 255, A: 255}
	case h < 3.:
		return color.NRGBA{G: 255, B: byte(255 * (h - 2)), A: 255}
	case h < 4.:
		return color.NRGBA{G: byte(255 * (4 - h)), B: 255, A: 255}
	case h < 5.:
		return color.NRGBA{R: byte(255 * (h - 4)), B: 255, A: 255}
	default:
		return color.NRGBA{R: 255, B: byte(255 * (6 - h)), A: 255}
	}
}

func scale(c color.NRGBA, b float64) color.NRGBA {
	if b >= 1 {
		return c
	}
	b = math.Max(b, 0)
	return color.NRGBA{
		R: uint8(float64(c.R) * b),
		G: uint8(float64(c.G) * b),
		B: uint8(float64(c.B) * b),
		A: c.A,
	}
}
