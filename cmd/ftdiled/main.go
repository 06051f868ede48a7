package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/arcaluminis-ftdi/internal/config"
	"github.com/coreman2200/arcaluminis-ftdi/internal/ws"
	"github.com/coreman2200/arcaluminis-ftdi/model"
	"github.com/coreman2200/arcaluminis-ftdi/spi"
)

const usage = `usage: ftdiled <command> [flags]

commands:
  discover   list attached FTDI bridges
  run        play a test pattern on the strip
  serve      accept RGB frames over a websocket
  rgbw       convert an RGB value with a white algorithm
`

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	var err error
	switch os.Args[1] {
	case "discover":
		err = discover(os.Args[2:])
	case "run":
		err = run(os.Args[2:])
	case "serve":
		err = serve(os.Args[2:])
	case "rgbw":
		err = rgbw(os.Args[2:])
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatal().Err(err).Str("command", os.Args[1]).Msg("failed")
	}
}

// commonFlags registers the flags shared by every command that touches the
// strip. Flags that are set override config.yaml.
func commonFlags(fs *flag.FlagSet) func() (*config.Config, error) {
	var (
		configPath = fs.String("config", "", "path to config.yaml")
		rate       = fs.Int("rate", 0, "SPI clock in Hz")
		output     = fs.String("output", "", `device selector: "auto", "s:<vid>:<pid>:<serial>" or "i:<vid>:<pid>:<index>"`)
		profile    = fs.String("profile", "", "wiring profile: ft232h | strobe | ft2232d")
		sink       = fs.String("sink", "", "output: ftdi | spidev | console")
		spidev     = fs.String("spidev", "", "spidev port name for sink=spidev")
		encoder    = fs.String("encoder", "", "frame encoder: builtin | periph")
		leds       = fs.Int("leds", 0, "number of LEDs")
		debug      = fs.Bool("debug", false, "debug logging")
	)
	return func() (*config.Config, error) {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		if *debug {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		}
		cfg := config.Default()
		if *configPath != "" {
			c, err := config.Load(*configPath)
			if err != nil {
				return nil, err
			}
			cfg = c
		}
		if *rate > 0 {
			cfg.Rate = *rate
		}
		cfg.Output = firstNonEmpty(*output, cfg.Output)
		cfg.Profile = firstNonEmpty(*profile, cfg.Profile)
		cfg.Sink = firstNonEmpty(*sink, cfg.Sink)
		cfg.SPIDev = firstNonEmpty(*spidev, cfg.SPIDev)
		cfg.Encoder = firstNonEmpty(*encoder, cfg.Encoder)
		if *leds > 0 {
			cfg.LEDCount = *leds
		}
		return cfg, cfg.Validate()
	}
}

func discover(args []string) error {
	fs := flag.NewFlagSet("discover", flag.ExitOnError)
	load := commonFlags(fs)
	fs.Parse(args)
	cfg, err := load()
	if err != nil {
		return err
	}
	drv, _, err := newDriver(cfg)
	if err != nil {
		return err
	}
	devices, err := drv.Discover()
	if err != nil {
		log.Warn().Err(err).Msg("enumeration failed")
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(devices)
}

func run(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	load := commonFlags(fs)
	var (
		fps        = fs.Int("fps", 0, "target frames per second")
		brightness = fs.Float64("brightness", 0, "pattern brightness 0..1")
		pattern    = fs.String("pattern", "rainbow", "rainbow | chase | solid")
		duration   = fs.Duration("duration", 0, "stop after this long (0 runs until interrupted)")
	)
	fs.Parse(args)
	cfg, err := load()
	if err != nil {
		return err
	}
	if *fps > 0 {
		cfg.FPS = *fps
	}
	if *brightness > 0 {
		cfg.Brightness = *brightness
	}

	var scene spi.Scene
	switch *pattern {
	case "rainbow":
		scene = spi.Rainbow(5*time.Second, cfg.Brightness)
	case "chase":
		scene = spi.Chase(model.Pixel{R: 255, G: 255, B: 255}, 20)
	case "solid":
		scene = spi.Solid(model.Pixel{R: uint8(255 * cfg.Brightness), G: uint8(255 * cfg.Brightness), B: uint8(255 * cfg.Brightness)})
	default:
		return errors.Errorf("unknown pattern %q", *pattern)
	}

	out, err := openOutput(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := out.close(); err != nil {
			log.Warn().Err(err).Msg("close")
		}
	}()

	ctx := context.Background()
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}
	log.Info().Str("pattern", *pattern).Int("leds", cfg.LEDCount).Int("fps", cfg.FPS).Str("sink", cfg.Sink).Msg("render loop starting")
	return spi.NewLooper(out.drawer, scene, cfg.FPS).Start(ctx)
}

func serve(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	load := commonFlags(fs)
	addr := fs.String("addr", "", "HTTP listen address")
	fs.Parse(args)
	cfg, err := load()
	if err != nil {
		return err
	}
	cfg.Addr = firstNonEmpty(*addr, cfg.Addr)
	if cfg.Encoder != "builtin" || cfg.Sink == "console" {
		return errors.New("serve needs the builtin encoder on an ftdi or spidev sink")
	}

	out, err := openOutput(cfg)
	if err != nil {
		return err
	}
	drv, _, err := newDriver(cfg)
	if err != nil {
		if cerr := out.close(); cerr != nil {
			log.Warn().Err(cerr).Msg("close")
		}
		return err
	}
	frames := ws.NewServer(out.strip, drv)
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      frames.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("HTTP server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server crashed")
		}
	}()

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	s := <-ch
	log.Info().Str("signal", s.String()).Msg("shutting down")

	_ = srv.Close()
	if err := frames.Shutdown(out.strip.Halt); err != nil {
		log.Warn().Err(err).Msg("blank strip")
	}
	return out.close()
}

func rgbw(args []string) error {
	a, c, err := convertRGB(args)
	if err != nil {
		return err
	}
	fmt.Printf("%s r=%d g=%d b=%d w=%d\n", a, c.R, c.G, c.B, c.W)
	return nil
}

// convertRGB converts the R G B arguments with the white algorithm and
// calibration from config.yaml; -algorithm and -f1..-f3 override them.
func convertRGB(args []string) (model.WhiteAlgorithm, model.RGBW, error) {
	fs := flag.NewFlagSet("rgbw", flag.ExitOnError)
	load := commonFlags(fs)
	var (
		algorithm = fs.String("algorithm", "", "white algorithm, overrides white_algorithm")
		f1        = fs.Float64("f1", 0, "custom calibration factor, red")
		f2        = fs.Float64("f2", 0, "custom calibration factor, green")
		f3        = fs.Float64("f3", 0, "custom calibration factor, blue")
	)
	fs.Parse(args)
	if fs.NArg() != 3 {
		return 0, model.RGBW{}, errors.New("want three channel values: R G B")
	}
	var ch [3]uint8
	for i := range ch {
		v, err := strconv.ParseUint(fs.Arg(i), 0, 8)
		if err != nil {
			return 0, model.RGBW{}, errors.Wrapf(err, "channel %d", i)
		}
		ch[i] = uint8(v)
	}
	cfg, err := load()
	if err != nil {
		return 0, model.RGBW{}, err
	}
	if *algorithm != "" {
		cfg.WhiteAlgorithm = model.ParseWhiteAlgorithm(*algorithm)
		if cfg.WhiteAlgorithm == model.InvalidWhite {
			return 0, model.RGBW{}, errors.Wrapf(model.ErrInvalidWhiteAlgorithm, "%q", *algorithm)
		}
	}
	if *f1 > 0 {
		cfg.Calibration.F1 = *f1
	}
	if *f2 > 0 {
		cfg.Calibration.F2 = *f2
	}
	if *f3 > 0 {
		cfg.Calibration.F3 = *f3
	}
	c, err := model.Convert(model.Pixel{R: ch[0], G: ch[1], B: ch[2]}, cfg.WhiteAlgorithm, cfg.Calibration)
	return cfg.WhiteAlgorithm, c, err
}

func firstNonEmpty(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
