package ftdi

import (
	"errors"
	"fmt"
	"strings"
)

// fakeBridge records every bridge call so tests can assert the exact command
// stream and that nothing is left allocated.
type fakeBridge struct {
	devices []DeviceRecord

	findErr   error
	newErr    error
	openErr   error
	closeErr  error
	failOn    string // call name that returns an error
	shortOn   int    // Write call index (1-based) that reports a short write
	failWrite int    // Write call index (1-based) that fails

	calls    []string
	writes   [][]byte
	contexts int // live contexts
	handles  int // live handles
	opened   []string
}

func (f *fakeBridge) newContext() (Context, error) {
	if f.newErr != nil {
		return nil, f.newErr
	}
	f.contexts++
	return &fakeContext{f: f}, nil
}

type fakeContext struct {
	f      *fakeBridge
	closed bool
}

func (c *fakeContext) FindAll(vendor, product uint16) ([]DeviceRecord, error) {
	c.f.calls = append(c.f.calls, "find")
	if c.f.findErr != nil {
		return nil, c.f.findErr
	}
	return c.f.devices, nil
}

func (c *fakeContext) Open(rec DeviceRecord) (Handle, error) {
	c.f.calls = append(c.f.calls, "open")
	if c.f.openErr != nil {
		return nil, c.f.openErr
	}
	c.f.handles++
	c.f.opened = append(c.f.opened, fmt.Sprintf("%d/%d", rec.Bus, rec.Address))
	return &fakeHandle{f: c.f}, nil
}

func (c *fakeContext) OpenSelector(sel Explicit) (Handle, error) {
	c.f.calls = append(c.f.calls, "open")
	if c.f.openErr != nil {
		return nil, c.f.openErr
	}
	c.f.handles++
	c.f.opened = append(c.f.opened, sel.String())
	return &fakeHandle{f: c.f}, nil
}

func (c *fakeContext) Close() error {
	if c.closed {
		return errors.New("context closed twice")
	}
	c.closed = true
	c.f.contexts--
	return c.f.closeErr
}

type fakeHandle struct {
	f      *fakeBridge
	closed bool
}

func (h *fakeHandle) call(name string) error {
	h.f.calls = append(h.f.calls, name)
	if h.f.failOn == name {
		return errors.New(name + " failed: LIBUSB_ERROR_IO")
	}
	return nil
}

func (h *fakeHandle) DisableBitbang() error { return h.call("disable") }

func (h *fakeHandle) SetFlowControl(flow uint16) error { return h.call("flow") }

func (h *fakeHandle) SetBitMode(mask byte, mode BitMode) error {
	return h.call(fmt.Sprintf("bitmode %02x %02x", mask, byte(mode)))
}

func (h *fakeHandle) Write(p []byte) (int, error) {
	if err := h.call("write"); err != nil {
		return 0, err
	}
	h.f.writes = append(h.f.writes, append([]byte(nil), p...))
	n := len(h.f.writes)
	if n == h.f.failWrite {
		return 0, errors.New("usb bulk write failed")
	}
	if n == h.f.shortOn {
		return len(p) - 1, nil
	}
	return len(p), nil
}

func (h *fakeHandle) Close() error {
	if h.closed {
		return errors.New("handle closed twice")
	}
	h.closed = true
	h.f.handles--
	return h.call("close")
}

func (f *fakeBridge) trace() string {
	return strings.Join(f.calls, ",")
}
