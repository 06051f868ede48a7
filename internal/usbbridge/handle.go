package usbbridge

import (
	"github.com/google/gousb"

	"github.com/coreman2200/arcaluminis-ftdi/ftdi"
)

// Handle is channel A of an opened FTDI device.
type Handle struct {
	dev  *gousb.Device
	cfg  *gousb.Config
	intf *gousb.Interface
	out  *gousb.OutEndpoint
}

func open(dev *gousb.Device) (*Handle, error) {
	if err := dev.SetAutoDetach(true); err != nil {
		return nil, err
	}
	cfg, err := dev.Config(1)
	if err != nil {
		return nil, err
	}
	intf, err := cfg.Interface(0, 0)
	if err != nil {
		cfg.Close()
		return nil, err
	}
	out, err := intf.OutEndpoint(endpointOut)
	if err != nil {
		intf.Close()
		cfg.Close()
		return nil, err
	}
	h := &Handle{dev: dev, cfg: cfg, intf: intf, out: out}
	if err := h.control(sioReset, sioResetSIO); err != nil {
		h.release()
		return nil, err
	}
	return h, nil
}

func (h *Handle) control(request uint8, value uint16) error {
	_, err := h.dev.Control(reqTypeOut, request, value, interfaceA, nil)
	return err
}

func (h *Handle) DisableBitbang() error {
	return h.control(sioSetBitmode, uint16(ftdi.BitModeReset)<<8)
}

func (h *Handle) SetFlowControl(flow uint16) error {
	_, err := h.dev.Control(reqTypeOut, sioSetFlowCtrl, 0, flow|interfaceA, nil)
	return err
}

func (h *Handle) SetBitMode(mask byte, mode ftdi.BitMode) error {
	return h.control(sioSetBitmode, uint16(mode)<<8|uint16(mask))
}

func (h *Handle) Write(p []byte) (int, error) {
	return h.out.Write(p)
}

func (h *Handle) Close() error {
	h.release()
	return h.dev.Close()
}

func (h *Handle) release() {
	h.intf.Close()
	h.cfg.Close()
}
