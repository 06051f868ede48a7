package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/coreman2200/arcaluminis-ftdi/ftdi"
	"github.com/coreman2200/arcaluminis-ftdi/model"
)

type Config struct {
	Rate    int    `yaml:"rate"`    // SPI clock in Hz
	Output  string `yaml:"output"`  // "auto" or an ftdi selector
	Profile string `yaml:"profile"` // ft232h | strobe | ft2232d
	Sink    string `yaml:"sink"`    // ftdi | spidev | console
	SPIDev  string `yaml:"spidev,omitempty"`
	Encoder string `yaml:"encoder"` // builtin | periph

	LEDCount   int     `yaml:"led_count"`
	FPS        int     `yaml:"fps"`
	Brightness float64 `yaml:"brightness"`
	Addr       string  `yaml:"addr"`

	WhiteAlgorithm model.WhiteAlgorithm `yaml:"white_algorithm"`
	Calibration    model.Calibration    `yaml:"calibration,omitempty"`
}

func Default() *Config {
	return &Config{
		Rate:       1000000,
		Output:     ftdi.AutoSetting,
		Profile:    ftdi.ProfileFT232H.Name,
		Sink:       "ftdi",
		Encoder:    "builtin",
		LEDCount:   60,
		FPS:        30,
		Brightness: 1,
		Addr:       ":8080",
	}
}

var ErrInvalidConfig = errors.New("invalid config")

// Validate checks every field that would otherwise fail late, at open time.
func (c *Config) Validate() error {
	if c.Rate <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "rate %d", c.Rate)
	}
	if _, err := ftdi.ParseSelector(c.Output); err != nil {
		return errors.Wrap(err, "output")
	}
	if _, err := ftdi.ProfileByName(c.Profile); err != nil {
		return errors.Wrap(err, "profile")
	}
	switch c.Sink {
	case "ftdi", "spidev", "console":
	default:
		return errors.Wrapf(ErrInvalidConfig, "sink %q", c.Sink)
	}
	switch c.Encoder {
	case "builtin", "periph":
	default:
		return errors.Wrapf(ErrInvalidConfig, "encoder %q", c.Encoder)
	}
	if c.LEDCount < 0 {
		return errors.Wrapf(ErrInvalidConfig, "led_count %d", c.LEDCount)
	}
	if c.WhiteAlgorithm == model.InvalidWhite {
		return errors.Wrap(model.ErrInvalidWhiteAlgorithm, "white_algorithm")
	}
	if c.WhiteAlgorithm == model.SubMinCustomAdjust {
		if err := c.Calibration.Validate(); err != nil {
			return errors.Wrap(err, "calibration")
		}
	}
	return nil
}

// Load reads path over the defaults and validates the result.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, errors.Wrap(err, path)
	}
	return c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}
