package model

import (
	"strings"

	"github.com/pkg/errors"
)

// WhiteAlgorithm selects how a white channel is derived from RGB.
type WhiteAlgorithm int

const (
	WhiteOff WhiteAlgorithm = iota
	SubtractMinimum
	SubMinWarmAdjust
	SubMinCoolAdjust
	SubMinCustomAdjust
	WLEDAuto
	WLEDAutoMax
	WLEDAutoAccurate
	InvalidWhite
)

var (
	ErrInvalidWhiteAlgorithm = errors.New("invalid white algorithm")
	ErrInvalidCalibration    = errors.New("calibration factors must be positive")
)

var whiteNames = [...]string{
	WhiteOff:           "white_off",
	SubtractMinimum:    "subtract_minimum",
	SubMinWarmAdjust:   "sub_min_warm_adjust",
	SubMinCoolAdjust:   "sub_min_cool_adjust",
	SubMinCustomAdjust: "sub_min_custom_adjust",
	WLEDAuto:           "wled_auto",
	WLEDAutoMax:        "wled_auto_max",
	WLEDAutoAccurate:   "wled_auto_accurate",
	InvalidWhite:       "invalid",
}

func (a WhiteAlgorithm) String() string {
	if a < 0 || int(a) >= len(whiteNames) {
		return whiteNames[InvalidWhite]
	}
	return whiteNames[a]
}

// ParseWhiteAlgorithm maps a configuration name to an algorithm. Matching is
// exact and case-sensitive after trimming. The empty string means WhiteOff;
// any other unknown name yields InvalidWhite.
func ParseWhiteAlgorithm(s string) WhiteAlgorithm {
	s = strings.TrimSpace(s)
	if s == "" {
		return WhiteOff
	}
	for i, n := range whiteNames[:InvalidWhite] {
		if n == s {
			return WhiteAlgorithm(i)
		}
	}
	return InvalidWhite
}

func (a WhiteAlgorithm) MarshalText() ([]byte, error) {
	if a == InvalidWhite {
		return nil, ErrInvalidWhiteAlgorithm
	}
	return []byte(a.String()), nil
}

func (a *WhiteAlgorithm) UnmarshalText(b []byte) error {
	v := ParseWhiteAlgorithm(string(b))
	if v == InvalidWhite {
		return errors.Wrapf(ErrInvalidWhiteAlgorithm, "%q", string(b))
	}
	*a = v
	return nil
}

// Calibration scales each channel's contribution to the white value.
type Calibration struct {
	F1 float64 `yaml:"f1"`
	F2 float64 `yaml:"f2"`
	F3 float64 `yaml:"f3"`
}

var (
	WarmWhite = Calibration{F1: 0.274, F2: 0.454, F3: 2.333}
	CoolWhite = Calibration{F1: 0.299, F2: 0.470, F3: 1.526}
)

func (c Calibration) Validate() error {
	if c.F1 <= 0 || c.F2 <= 0 || c.F3 <= 0 {
		return ErrInvalidCalibration
	}
	return nil
}

// Convert derives an RGBW value from p. cal is only read by
// SubMinCustomAdjust.
func Convert(p Pixel, a WhiteAlgorithm, cal Calibration) (RGBW, error) {
	switch a {
	case WhiteOff:
		return RGBW{p.R, p.G, p.B, 0}, nil
	case SubtractMinimum, WLEDAutoAccurate:
		w := min(p.R, p.G, p.B)
		return RGBW{p.R - w, p.G - w, p.B - w, w}, nil
	case SubMinWarmAdjust:
		return adjust(p, WarmWhite), nil
	case SubMinCoolAdjust:
		return adjust(p, CoolWhite), nil
	case SubMinCustomAdjust:
		if err := cal.Validate(); err != nil {
			return RGBW{}, err
		}
		return adjust(p, cal), nil
	case WLEDAuto:
		// white is additive, RGB stays as is
		return RGBW{p.R, p.G, p.B, min(p.R, p.G, p.B)}, nil
	case WLEDAutoMax:
		return RGBW{p.R, p.G, p.B, max(p.R, p.G, p.B)}, nil
	}
	return RGBW{}, errors.Wrapf(ErrInvalidWhiteAlgorithm, "%d", int(a))
}

// ConvertAll converts every pixel under the same algorithm.
func ConvertAll(px []Pixel, a WhiteAlgorithm, cal Calibration) ([]RGBW, error) {
	out := make([]RGBW, len(px))
	for i, p := range px {
		c, err := Convert(p, a, cal)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

func adjust(p Pixel, cal Calibration) RGBW {
	w := min(float64(p.R)*cal.F1, float64(p.G)*cal.F2, float64(p.B)*cal.F3)
	if w > 255 {
		w = 255
	}
	white := uint8(w)
	return RGBW{
		R: p.R - sub(white, cal.F1, p.R),
		G: p.G - sub(white, cal.F2, p.G),
		B: p.B - sub(white, cal.F3, p.B),
		W: white,
	}
}

// sub is white/f truncated, never more than the channel it comes out of.
func sub(white uint8, f float64, ch uint8) uint8 {
	v := float64(white) / f
	if v >= float64(ch) {
		return ch
	}
	return uint8(v)
}
