package spi

import (
	"image"
	"image/color"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"

	"github.com/coreman2200/arcaluminis-ftdi/apa102"
	"github.com/coreman2200/arcaluminis-ftdi/model"
)

// Sink transmits one complete APA102 frame. *ftdi.Driver is a Sink.
type Sink interface {
	Send(frame []byte) (int, error)
}

// ConnSink sends frames over a periph connection, e.g. a native spidev port.
type ConnSink struct {
	Conn conn.Conn
}

func (c ConnSink) Send(frame []byte) (int, error) {
	if err := c.Conn.Tx(frame, nil); err != nil {
		return 0, err
	}
	return len(frame), nil
}

// Strip encodes pixel updates into one reusable frame and hands it to a Sink.
type Strip struct {
	frame *apa102.Frame
	sink  Sink
	px    []model.Pixel
	log   zerolog.Logger
}

func NewStrip(sink Sink, ledCount int) *Strip {
	return &Strip{
		frame: apa102.NewFrame(ledCount),
		sink:  sink,
		px:    make([]model.Pixel, max(ledCount, 0)),
		log:   log.With().Str("component", "apa102").Logger(),
	}
}

// Write sends pixels as one frame. A different pixel count than the last
// update rebuilds the frame and carries on.
func (s *Strip) Write(pixels []model.Pixel) (int, error) {
	old := s.frame.LEDCount()
	if s.frame.Encode(pixels) {
		s.log.Warn().Int("old", old).Int("new", len(pixels)).Msg("APA102 led count changed, rebuilding buffer")
	}
	if len(s.px) != len(pixels) {
		s.px = make([]model.Pixel, len(pixels))
	}
	copy(s.px, pixels)
	return s.sink.Send(s.frame.Bytes())
}

// Frame is the last encoded wire buffer.
func (s *Strip) Frame() []byte {
	return s.frame.Bytes()
}

func (s *Strip) LEDCount() int {
	return s.frame.LEDCount()
}

func (s *Strip) String() string {
	return "apa102"
}

// Halt turns every LED off.
func (s *Strip) Halt() error {
	_, err := s.Write(make([]model.Pixel, s.frame.LEDCount()))
	return err
}

func (s *Strip) ColorModel() color.Model {
	return model.PixelModel
}

// Bounds is one row, one column per LED.
func (s *Strip) Bounds() image.Rectangle {
	return image.Rect(0, 0, s.frame.LEDCount(), 1)
}

// Draw updates the LEDs covered by dstRect from src starting at sp, then
// sends the whole strip.
func (s *Strip) Draw(dstRect image.Rectangle, src image.Image, sp image.Point) error {
	r := dstRect.Intersect(s.Bounds())
	for x := r.Min.X; x < r.Max.X; x++ {
		c := src.At(sp.X+x-dstRect.Min.X, sp.Y+r.Min.Y-dstRect.Min.Y)
		s.px[x] = model.PixelModel.Convert(c).(model.Pixel)
	}
	_, err := s.Write(s.px)
	return err
}

var _ display.Drawer = &Strip{}
