package model

import (
	"fmt"
	"image/color"
)

// Pixel is one RGB value as supplied by the caller for a strip update.
type Pixel struct {
	R, G, B uint8
}

// RGBW is a Pixel with a derived white channel.
type RGBW struct {
	R, G, B, W uint8
}

var (
	Black  = RGBW{0, 0, 0, 0}
	Red    = RGBW{255, 0, 0, 0}
	Green  = RGBW{0, 255, 0, 0}
	Blue   = RGBW{0, 0, 255, 0}
	Yellow = RGBW{255, 255, 0, 0}
	White  = RGBW{0, 0, 0, 255}
)

// PixelModel converts any color.Color to a Pixel, dropping alpha after
// premultiplication.
var PixelModel = color.ModelFunc(func(c color.Color) color.Color {
	if p, ok := c.(Pixel); ok {
		return p
	}
	r, g, b, _ := c.RGBA()
	return Pixel{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)}
})

// RGBA implements color.Color. Pixels are always opaque.
func (p Pixel) RGBA() (r, g, b, a uint32) {
	r = uint32(p.R)
	r |= r << 8
	g = uint32(p.G)
	g |= g << 8
	b = uint32(p.B)
	b |= b << 8
	return r, g, b, 0xffff
}

func (p Pixel) String() string {
	return fmt.Sprintf("#%02x%02x%02x", p.R, p.G, p.B)
}

func (c RGBW) String() string {
	return fmt.Sprintf("#%02x%02x%02x/%02x", c.R, c.G, c.B, c.W)
}

// PixelsFromRGB unpacks a packed 3*N byte slice. A trailing partial pixel is
// ignored.
func PixelsFromRGB(rgb []byte) []Pixel {
	out := make([]Pixel, len(rgb)/3)
	for i := range out {
		out[i] = Pixel{rgb[i*3], rgb[i*3+1], rgb[i*3+2]}
	}
	return out
}

// ToRGB packs pixels back into 3 bytes each.
func ToRGB(px []Pixel) []byte {
	buf := make([]byte, 0, len(px)*3)
	for _, p := range px {
		buf = append(buf, p.R, p.G, p.B)
	}
	return buf
}
