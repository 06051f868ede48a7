package ftdi

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"
)

func newTestDriver(f *fakeBridge, opts ...Option) (*Driver, *[]time.Duration) {
	var slept []time.Duration
	opts = append([]Option{WithLogger(zerolog.Nop())}, opts...)
	d := New(f.newContext, opts...)
	d.sleep = func(t time.Duration) { slept = append(slept, t) }
	return d, &slept
}

func oneDevice() *fakeBridge {
	return &fakeBridge{devices: []DeviceRecord{{Vendor: 0x0403, Product: 0x6014, Bus: 1, Address: 4}}}
}

func TestDivisor(t *testing.T) {
	var tests = []struct {
		Baud   physic.Frequency
		Expect uint16
	}{
		{physic.MegaHertz, 29},
		{2 * physic.MegaHertz, 14},
		{7 * physic.MegaHertz, 3},
		{30 * physic.MegaHertz, 0},
		{100 * physic.KiloHertz, 299},
		{500 * physic.Hertz, 59999},
	}
	for _, v := range tests {
		t.Run(v.Baud.String(), func(t *testing.T) {
			div, err := Divisor(v.Baud)
			require.NoError(t, err)
			assert.Equal(t, v.Expect, div)
		})
	}

	_, err := Divisor(0)
	assert.ErrorIs(t, err, ErrInvalidBaudRate)
	_, err = Divisor(100 * physic.Hertz)
	assert.ErrorIs(t, err, ErrInvalidBaudRate)
}

func TestOpenAuto(t *testing.T) {
	f := oneDevice()
	d, _ := newTestDriver(f)

	require.NoError(t, d.Open(Auto{}, physic.MegaHertz))
	assert.Equal(t, Ready, d.State())
	assert.Equal(t, "find,open,disable,flow,bitmode 00 00,bitmode ff 02,write", f.trace())
	assert.Equal(t, []string{"1/4"}, f.opened)
	require.Len(t, f.writes, 1)
	assert.Equal(t, []byte{0x8A, 0x86, 29, 0, 0x80, PinCS, PinSK | PinDO | PinCS}, f.writes[0])
}

func TestOpenIdleFirstProfile(t *testing.T) {
	f := oneDevice()
	d, _ := newTestDriver(f, WithProfile(ProfileFT2232D))

	require.NoError(t, d.Open(Auto{}, 2*physic.MegaHertz))
	assert.Equal(t, []byte{0x80, PinCS, PinSK | PinDO | PinCS, 0x8A, 0x86, 14, 0}, f.writes[0])
}

func TestOpenExplicit(t *testing.T) {
	f := &fakeBridge{}
	d, _ := newTestDriver(f)
	sel, err := ParseSelector("s:0x0403:0x6014:FT5XYZ")
	require.NoError(t, err)

	require.NoError(t, d.Open(sel, physic.MegaHertz))
	assert.Equal(t, []string{"s:0x0403:0x6014:FT5XYZ"}, f.opened)
	assert.NotContains(t, f.calls, "find")
}

func TestOpenNoDevices(t *testing.T) {
	f := &fakeBridge{}
	d, slept := newTestDriver(f)

	err := d.Open(Auto{}, physic.MegaHertz)
	require.ErrorIs(t, err, ErrDeviceNotFound)
	assert.Equal(t, Error, d.State())
	assert.ErrorIs(t, d.Err(), ErrDeviceNotFound)
	assert.Zero(t, f.contexts, "context leaked")
	assert.Zero(t, f.handles, "handle leaked")
	assert.Empty(t, *slept)
}

func TestOpenFailureReleasesHandle(t *testing.T) {
	for _, step := range []string{"disable", "flow", "bitmode 00 00", "bitmode ff 02", "write"} {
		t.Run(step, func(t *testing.T) {
			f := oneDevice()
			f.failOn = step
			d, slept := newTestDriver(f)

			err := d.Open(Auto{}, physic.MegaHertz)
			require.Error(t, err)
			var terr *TransportError
			require.True(t, errors.As(err, &terr))
			assert.Equal(t, step+" failed: LIBUSB_ERROR_IO", err.Error())
			assert.Equal(t, Error, d.State())
			assert.Zero(t, f.handles)
			assert.Zero(t, f.contexts)
			assert.Equal(t, []time.Duration{DefaultSettleDelay}, *slept)
		})
	}
}

func TestOpenContextFailure(t *testing.T) {
	f := &fakeBridge{newErr: errors.New("libusb_init failed")}
	d, _ := newTestDriver(f)

	err := d.Open(Auto{}, physic.MegaHertz)
	assert.EqualError(t, err, "libusb_init failed")
	assert.Equal(t, Error, d.State())
}

func TestOpenRejectsBadRate(t *testing.T) {
	f := oneDevice()
	d, _ := newTestDriver(f)

	assert.ErrorIs(t, d.Open(Auto{}, 0), ErrInvalidBaudRate)
	assert.Equal(t, Closed, d.State())
	assert.Empty(t, f.calls)
}

func TestOpenTwice(t *testing.T) {
	f := oneDevice()
	d, _ := newTestDriver(f)
	require.NoError(t, d.Open(Auto{}, physic.MegaHertz))
	assert.ErrorIs(t, d.Open(Auto{}, physic.MegaHertz), ErrAlreadyOpen)
	assert.Equal(t, 1, f.handles)
}

func TestSendFraming(t *testing.T) {
	f := oneDevice()
	d, _ := newTestDriver(f)
	require.NoError(t, d.Open(Auto{}, physic.MegaHertz))

	payload := make([]byte, 300)
	payload[0] = 0xAB
	n, err := d.Send(payload)
	require.NoError(t, err)
	assert.Equal(t, 300, n)

	require.Len(t, f.writes, 2)
	w := f.writes[1]
	require.Len(t, w, 6+300+3)
	assert.Equal(t, []byte{0x80, 0x00, 0x0B, 0x11, 0x2B, 0x01}, w[:6])
	assert.Equal(t, payload, w[6:306])
	assert.Equal(t, []byte{0x80, 0x08, 0x0B}, w[306:])
}

func TestSendStrobeProfile(t *testing.T) {
	f := oneDevice()
	d, _ := newTestDriver(f, WithProfile(ProfileStrobe))
	require.NoError(t, d.Open(Auto{}, physic.MegaHertz))

	_, err := d.Send([]byte{1, 2})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x80, PinL0, 0x13, 0x11, 1, 0, 1, 2, 0x80, 0x00, 0x13}, f.writes[1])
}

func TestSendLimits(t *testing.T) {
	f := oneDevice()
	d, _ := newTestDriver(f)

	_, err := d.Send([]byte{1})
	assert.ErrorIs(t, err, ErrNotReady)

	require.NoError(t, d.Open(Auto{}, physic.MegaHertz))
	n, err := d.Send(nil)
	assert.NoError(t, err)
	assert.Zero(t, n)

	_, err = d.Send(make([]byte, MaxTransfer+1))
	assert.ErrorIs(t, err, ErrFrameTooLarge)
	assert.Equal(t, Ready, d.State())

	n, err = d.Send(make([]byte, MaxTransfer))
	assert.NoError(t, err)
	assert.Equal(t, MaxTransfer, n)
	assert.Equal(t, []byte{0xFF, 0xFF}, f.writes[len(f.writes)-1][4:6])
}

func TestSendFailureEntersError(t *testing.T) {
	f := oneDevice()
	f.failWrite = 2
	d, slept := newTestDriver(f)
	require.NoError(t, d.Open(Auto{}, physic.MegaHertz))

	_, err := d.Send([]byte{1, 2, 3})
	assert.EqualError(t, err, "usb bulk write failed")
	assert.Equal(t, Error, d.State())
	assert.Zero(t, f.handles)
	assert.Len(t, *slept, 1)

	_, err = d.Send([]byte{1})
	assert.ErrorIs(t, err, ErrNotReady)

	require.NoError(t, d.Close())
	assert.Equal(t, Closed, d.State())
	assert.Len(t, *slept, 1)
}

func TestSendShortWrite(t *testing.T) {
	f := oneDevice()
	f.shortOn = 2
	d, _ := newTestDriver(f)
	require.NoError(t, d.Open(Auto{}, physic.MegaHertz))

	_, err := d.Send([]byte{1, 2, 3})
	assert.ErrorIs(t, err, io.ErrShortWrite)
	assert.Equal(t, Error, d.State())
}

func TestCloseSettlesAndIsIdempotent(t *testing.T) {
	f := oneDevice()
	d, slept := newTestDriver(f, WithSettleDelay(5*time.Millisecond))
	require.NoError(t, d.Open(Auto{}, physic.MegaHertz))

	require.NoError(t, d.Close())
	assert.Equal(t, Closed, d.State())
	assert.Equal(t, []time.Duration{5 * time.Millisecond}, *slept)
	assert.Equal(t, "bitmode 00 00", f.calls[len(f.calls)-2])
	assert.Equal(t, "close", f.calls[len(f.calls)-1])
	assert.Zero(t, f.handles)
	assert.Zero(t, f.contexts)

	calls := len(f.calls)
	require.NoError(t, d.Close())
	assert.Len(t, f.calls, calls)
	assert.Len(t, *slept, 1)
}

func TestCloseNeverOpened(t *testing.T) {
	d, slept := newTestDriver(&fakeBridge{})
	assert.NoError(t, d.Close())
	assert.NoError(t, d.Close())
	assert.Empty(t, *slept)
}

func TestReopenAfterError(t *testing.T) {
	f := oneDevice()
	f.failWrite = 2
	d, _ := newTestDriver(f)
	require.NoError(t, d.Open(Auto{}, physic.MegaHertz))
	_, err := d.Send([]byte{1})
	require.Error(t, err)

	f.failWrite = 0
	require.NoError(t, d.Open(Auto{}, physic.MegaHertz))
	assert.Equal(t, Ready, d.State())
	assert.NoError(t, d.Err())
	assert.Equal(t, 1, f.handles)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "ready", Ready.String())
	assert.Equal(t, "State(9)", State(9).String())
}
