package main

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/physic"
	periphspi "periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	periphapa102 "periph.io/x/devices/v3/apa102"
	"periph.io/x/extra/devices/screen"
	"periph.io/x/host/v3"

	"github.com/coreman2200/arcaluminis-ftdi/ftdi"
	"github.com/coreman2200/arcaluminis-ftdi/internal/config"
	"github.com/coreman2200/arcaluminis-ftdi/internal/usbbridge"
	"github.com/coreman2200/arcaluminis-ftdi/spi"
)

// output is an opened LED sink. strip is nil when the periph encoder or the
// console preview is in use.
type output struct {
	drawer display.Drawer
	strip  *spi.Strip
	close  func() error
}

func newDriver(cfg *config.Config) (*ftdi.Driver, ftdi.Selector, error) {
	profile, err := ftdi.ProfileByName(cfg.Profile)
	if err != nil {
		return nil, nil, err
	}
	sel, err := ftdi.ParseSelector(cfg.Output)
	if err != nil {
		return nil, nil, err
	}
	return ftdi.New(usbbridge.New, ftdi.WithProfile(profile)), sel, nil
}

func openOutput(cfg *config.Config) (*output, error) {
	rate := physic.Frequency(cfg.Rate) * physic.Hertz
	opts := periphapa102.DefaultOpts
	opts.NumPixels = cfg.LEDCount

	switch cfg.Sink {
	case "console":
		return &output{drawer: screen.New(cfg.LEDCount), close: func() error { return nil }}, nil

	case "spidev":
		if _, err := host.Init(); err != nil {
			return nil, errors.Wrap(err, "host init")
		}
		port, err := spireg.Open(cfg.SPIDev)
		if err != nil {
			return nil, errors.Wrap(err, "spidev")
		}
		if cfg.Encoder == "periph" {
			if err := port.LimitSpeed(rate); err != nil {
				port.Close()
				return nil, err
			}
			dev, err := periphapa102.New(port, &opts)
			if err != nil {
				port.Close()
				return nil, err
			}
			return &output{drawer: dev, close: port.Close}, nil
		}
		c, err := port.Connect(rate, periphspi.Mode0, 8)
		if err != nil {
			port.Close()
			return nil, err
		}
		strip := spi.NewStrip(spi.ConnSink{Conn: c}, cfg.LEDCount)
		return &output{drawer: strip, strip: strip, close: port.Close}, nil
	}

	drv, sel, err := newDriver(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Encoder == "periph" {
		port := ftdi.NewPort(drv, sel)
		if err := port.LimitSpeed(rate); err != nil {
			return nil, err
		}
		dev, err := periphapa102.New(port, &opts)
		if err != nil {
			return nil, err
		}
		return &output{drawer: dev, close: port.Close}, nil
	}
	if err := drv.Open(sel, rate); err != nil {
		return nil, err
	}
	log.Info().Stringer("selector", sel).Stringer("rate", rate).Str("profile", drv.Profile().Name).Msg("FTDI device open")
	strip := spi.NewStrip(drv, cfg.LEDCount)
	return &output{drawer: strip, strip: strip, close: drv.Close}, nil
}
