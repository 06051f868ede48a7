package spi

import (
	"context"
	"image"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/display"
)

const DFLT_FPS = 30

// Looper redraws a Scene into a display.Drawer at a fixed rate.
type Looper struct {
	drawer display.Drawer
	scene  Scene
	fps    int
	img    *image.NRGBA
	start  time.Time
	frames uint64
}

func NewLooper(d display.Drawer, scene Scene, fps int) *Looper {
	if fps <= 0 {
		fps = DFLT_FPS
	}
	return &Looper{
		drawer: d,
		scene:  scene,
		fps:    fps,
		img:    image.NewNRGBA(d.Bounds()),
	}
}

// Frames is the number of frames drawn so far.
func (l *Looper) Frames() uint64 {
	return l.frames
}

func (l *Looper) refresh() error {
	l.scene(time.Since(l.start), l.img)
	if err := l.drawer.Draw(l.drawer.Bounds(), l.img, image.Point{}); err != nil {
		return err
	}
	l.frames++
	return nil
}

// Run draws until ctx is done or a draw fails. A failed draw is returned as
// is; the loop does not retry.
func (l *Looper) Run(ctx context.Context) error {
	period := time.Second / time.Duration(l.fps)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	l.start = time.Now()
	for {
		select {
		case <-ticker.C:
			if err := l.refresh(); err != nil {
				return err
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// Start runs until interrupted, then halts the drawer.
func (l *Looper) Start(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	err := l.Run(ctx)
	if err != nil {
		log.Error().Err(err).Uint64("frames", l.frames).Msg("render loop stopped")
		return err
	}
	log.Info().Uint64("frames", l.frames).Msg("render loop done")
	return l.drawer.Halt()
}
