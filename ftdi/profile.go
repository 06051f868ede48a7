package ftdi

import (
	"sort"

	"github.com/pkg/errors"
)

// Profile describes how a bridge variant is wired to the strip.
type Profile struct {
	Name string
	// Idle is the low byte pin state between frames, Active while shifting.
	Idle      byte
	Active    byte
	Direction byte
	// WriteOpcode is the MPSSE data-out command used for the payload.
	WriteOpcode byte
	// IdleFirst issues the idle pin state before the clock divisor on open.
	IdleFirst bool
}

var (
	// ProfileFT232H selects on ADBUS3, active low.
	ProfileFT232H = Profile{
		Name:        "ft232h",
		Idle:        PinCS,
		Active:      PinCS &^ PinCS,
		Direction:   PinSK | PinDO | PinCS,
		WriteOpcode: MPSSE_DO_WRITE | MPSSE_WRITE_NEG,
	}
	// ProfileStrobe pulses GPIOL0 high around each frame.
	ProfileStrobe = Profile{
		Name:        "strobe",
		Idle:        0,
		Active:      PinL0,
		Direction:   PinSK | PinDO | PinL0,
		WriteOpcode: MPSSE_DO_WRITE | MPSSE_WRITE_NEG,
	}
	// ProfileFT2232D is wired like the FT232H but parks the pins before
	// programming the clock.
	ProfileFT2232D = Profile{
		Name:        "ft2232d",
		Idle:        PinCS,
		Active:      PinCS &^ PinCS,
		Direction:   PinSK | PinDO | PinCS,
		WriteOpcode: MPSSE_DO_WRITE | MPSSE_WRITE_NEG,
		IdleFirst:   true,
	}
)

var ErrUnknownProfile = errors.New("unknown wiring profile")

var profiles = map[string]Profile{
	ProfileFT232H.Name:  ProfileFT232H,
	ProfileStrobe.Name:  ProfileStrobe,
	ProfileFT2232D.Name: ProfileFT2232D,
}

// ProfileByName returns a known profile. The empty name is ProfileFT232H.
func ProfileByName(name string) (Profile, error) {
	if name == "" {
		return ProfileFT232H, nil
	}
	p, ok := profiles[name]
	if !ok {
		return Profile{}, errors.Wrapf(ErrUnknownProfile, "%q", name)
	}
	return p, nil
}

// ProfileNames lists the registered profile names, sorted.
func ProfileNames() []string {
	names := make([]string, 0, len(profiles))
	for n := range profiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (p Profile) setup(divisor uint16) []byte {
	clock := []byte{DIS_DIV_5, TCK_DIVISOR, byte(divisor), byte(divisor >> 8)}
	pins := []byte{SET_BITS_LOW, p.Idle, p.Direction}
	if p.IdleFirst {
		return append(pins, clock...)
	}
	return append(clock, pins...)
}

// appendFrame wraps payload with the select pulses. payload must not be empty.
func (p Profile) appendFrame(dst, payload []byte) []byte {
	count := len(payload) - 1
	dst = append(dst,
		SET_BITS_LOW, p.Active, p.Direction,
		p.WriteOpcode, byte(count), byte(count>>8),
	)
	dst = append(dst, payload...)
	return append(dst, SET_BITS_LOW, p.Idle, p.Direction)
}
