// Package ftdi drives an APA102 strip through the MPSSE engine of an FTDI
// USB bridge. The bridge is clocked as a write-only SPI master; every frame
// is wrapped with the select pulses of the configured wiring Profile.
//
// A Driver owns at most one bridge handle and does no locking. Open, Send and
// Close block until the USB stack returns.
package ftdi

import (
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/physic"
)

// DefaultSettleDelay lets the last frame shift out before teardown.
const DefaultSettleDelay = 30 * time.Millisecond

// State of a Driver.
type State int

const (
	Closed State = iota
	Opening
	Ready
	Error
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Opening:
		return "opening"
	case Ready:
		return "ready"
	case Error:
		return "error"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

type Option func(*Driver)

func WithProfile(p Profile) Option {
	return func(d *Driver) { d.profile = p }
}

func WithSettleDelay(delay time.Duration) Option {
	return func(d *Driver) { d.settle = delay }
}

func WithLogger(l zerolog.Logger) Option {
	return func(d *Driver) { d.log = l }
}

type Driver struct {
	profile    Profile
	newContext ContextFunc
	settle     time.Duration
	sleep      func(time.Duration)
	log        zerolog.Logger

	ctx   Context
	h     Handle
	state State
	err   error
	div   uint16
	cmd   []byte
}

// New returns a closed driver that allocates bridge contexts with open.
func New(open ContextFunc, opts ...Option) *Driver {
	d := &Driver{
		profile:    ProfileFT232H,
		newContext: open,
		settle:     DefaultSettleDelay,
		sleep:      time.Sleep,
		log:        log.With().Str("component", "ftdi").Logger(),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

func (d *Driver) State() State {
	return d.state
}

// Err is the error that moved the driver to Error, if any.
func (d *Driver) Err() error {
	return d.err
}

func (d *Driver) Profile() Profile {
	return d.profile
}

// ClockDivisor is the divisor programmed by the last successful Open.
func (d *Driver) ClockDivisor() uint16 {
	return d.div
}

// Divisor computes the MPSSE clock divisor for baud.
func Divisor(baud physic.Frequency) (uint16, error) {
	hz := float64(baud) / float64(physic.Hertz)
	if hz <= 0 {
		return 0, errors.Wrapf(ErrInvalidBaudRate, "%s", baud)
	}
	div := int(ReferenceClock/2/hz - 1)
	if div < 0 || div > 0xFFFF {
		return 0, errors.Wrapf(ErrInvalidBaudRate, "%s", baud)
	}
	return uint16(div), nil
}

// Open acquires the device named by sel and programs it for baud. On failure
// the handle is released and the driver is left in Error.
func (d *Driver) Open(sel Selector, baud physic.Frequency) error {
	if d.state == Ready || d.state == Opening {
		return errors.Wrap(ErrAlreadyOpen, "open")
	}
	div, err := Divisor(baud)
	if err != nil {
		return errors.Wrap(err, "open")
	}
	d.state = Opening
	d.err = nil
	d.log.Debug().
		Stringer("selector", sel).
		Stringer("rate", baud).
		Str("profile", d.profile.Name).
		Msg("opening FTDI device")

	ctx, err := d.newContext()
	if err != nil {
		return d.fail("new context", err)
	}
	d.ctx = ctx

	if err := d.openDevice(sel); err != nil {
		return err
	}

	// disabling first resets things if they were left in a bad state
	if err := d.h.DisableBitbang(); err != nil {
		return d.fail("disable bitbang", err)
	}
	if err := d.h.SetFlowControl(SIO_DISABLE_FLOW_CTRL); err != nil {
		return d.fail("set flow control", err)
	}
	if err := d.h.SetBitMode(0x00, BitModeReset); err != nil {
		return d.fail("reset bit mode", err)
	}
	if err := d.h.SetBitMode(0xFF, BitModeMPSSE); err != nil {
		return d.fail("set mpsse mode", err)
	}
	if err := d.write("set clock", d.profile.setup(div)); err != nil {
		return err
	}

	d.div = div
	d.state = Ready
	d.log.Debug().Uint16("divisor", div).Msg("FTDI device ready")
	return nil
}

func (d *Driver) openDevice(sel Selector) error {
	switch s := sel.(type) {
	case Auto:
		recs, err := d.ctx.FindAll(AnyVendor, AnyProduct)
		if err != nil {
			return d.fail("find all", err)
		}
		if len(recs) == 0 {
			err := errors.Wrap(ErrDeviceNotFound, "open")
			d.setInError(err)
			return err
		}
		h, err := d.ctx.Open(recs[0])
		if err != nil {
			return d.fail("open device", err)
		}
		d.h = h
	case Explicit:
		h, err := d.ctx.OpenSelector(s)
		if err != nil {
			return d.fail("open "+s.String(), err)
		}
		d.h = h
	default:
		err := errors.Wrapf(ErrInvalidSelector, "%T", sel)
		d.setInError(err)
		return err
	}
	return nil
}

// Send clocks payload out between the profile's select pulses and returns
// the number of payload bytes sent.
func (d *Driver) Send(payload []byte) (int, error) {
	if d.state != Ready {
		return 0, errors.Wrapf(ErrNotReady, "send (%s)", d.state)
	}
	if len(payload) == 0 {
		return 0, nil
	}
	if len(payload) > MaxTransfer {
		return 0, errors.Wrapf(ErrFrameTooLarge, "send %d bytes", len(payload))
	}
	d.cmd = d.profile.appendFrame(d.cmd[:0], payload)
	if err := d.write("write data", d.cmd); err != nil {
		return 0, err
	}
	return len(payload), nil
}

// Close waits for the last frame to shift out, resets the bit mode and
// releases the device. Closing a closed driver does nothing.
func (d *Driver) Close() error {
	if d.state == Closed {
		return nil
	}
	d.log.Debug().Msg("closing FTDI device")
	err := d.release()
	d.state = Closed
	if err != nil {
		return &TransportError{Op: "close", Err: err}
	}
	return nil
}

func (d *Driver) write(op string, b []byte) error {
	n, err := d.h.Write(b)
	if err == nil && n != len(b) {
		err = errors.Wrapf(io.ErrShortWrite, "%d of %d bytes", n, len(b))
	}
	if err != nil {
		return d.fail(op, err)
	}
	return nil
}

func (d *Driver) fail(op string, err error) error {
	terr := &TransportError{Op: op, Err: err}
	d.setInError(terr)
	return terr
}

func (d *Driver) setInError(err error) {
	l := d.log.Error().Err(err)
	if terr, ok := err.(*TransportError); ok {
		l = l.Str("op", terr.Op)
	}
	l.Msg("FTDI device in error")
	if rerr := d.release(); rerr != nil {
		d.log.Warn().Err(rerr).Msg("release after error")
	}
	d.state = Error
	d.err = err
}

// release frees the handle and context. The settle delay runs whenever a
// handle is held, whichever path got here.
func (d *Driver) release() (err error) {
	defer func() {
		if d.ctx == nil {
			return
		}
		if cerr := d.ctx.Close(); err == nil {
			err = cerr
		}
		d.ctx = nil
	}()
	if d.h == nil {
		return nil
	}
	h := d.h
	d.h = nil
	d.sleep(d.settle)
	if rerr := h.SetBitMode(0x00, BitModeReset); rerr != nil {
		d.log.Debug().Err(rerr).Msg("reset bit mode on close")
	}
	return h.Close()
}
