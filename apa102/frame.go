// Package apa102 builds the byte stream an APA102 strip expects for one
// update: a zero start frame, one 4-byte word per LED and an end frame long
// enough to clock the last word through the whole cascade.
package apa102

import "github.com/coreman2200/arcaluminis-ftdi/model"

const (
	StartFrameSize = 4
	WordSize       = 4

	LED_HEADER          byte = 0b11100000
	LED_BRIGHTNESS_FULL byte = 31

	minEndFrameSize = 4
)

// EndFrameSize is max(ceil(n/16), 4). The strip needs n/2 extra clock edges,
// one byte carries 8.
func EndFrameSize(n int) int {
	return max((n+15)/16, minEndFrameSize)
}

// Size is the full buffer length for n LEDs.
func Size(n int) int {
	return StartFrameSize + WordSize*n + EndFrameSize(n)
}

// Frame is a reusable wire buffer for a fixed LED count.
type Frame struct {
	buf      []byte
	ledCount int
}

func NewFrame(ledCount int) *Frame {
	f := &Frame{}
	f.build(max(ledCount, 0))
	return f
}

func (f *Frame) build(n int) {
	f.ledCount = n
	f.buf = make([]byte, Size(n))
	for i := StartFrameSize; i < len(f.buf); i++ {
		f.buf[i] = 0xFF
	}
}

// Encode writes pixels into the LED region in place. When len(pixels) does
// not match the current count the buffer is rebuilt first and resized is
// true.
func (f *Frame) Encode(pixels []model.Pixel) (resized bool) {
	if len(pixels) != f.ledCount {
		f.build(len(pixels))
		resized = true
	}
	for i, p := range pixels {
		w := f.buf[StartFrameSize+i*WordSize:]
		w[0] = LED_HEADER | LED_BRIGHTNESS_FULL
		w[1] = p.R
		w[2] = p.G
		w[3] = p.B
	}
	return resized
}

func (f *Frame) Bytes() []byte {
	return f.buf
}

func (f *Frame) LEDCount() int {
	return f.ledCount
}
