// Package usbbridge implements ftdi.Context on top of libusb through gousb,
// speaking the FTDI vendor control protocol directly.
package usbbridge

import (
	"github.com/google/gousb"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/arcaluminis-ftdi/ftdi"
)

const (
	vendorFTDI = 0x0403

	reqTypeOut = 0x40 // host to device, vendor, device recipient

	sioReset       = 0x00
	sioSetFlowCtrl = 0x02
	sioSetBitmode  = 0x0B

	sioResetSIO = 0

	interfaceA  = 1 // wIndex for the first channel
	endpointOut = 0x02
)

// defaultProducts are the FTDI product IDs matched when the caller asks for
// any vendor and product.
var defaultProducts = []uint16{0x6001, 0x6010, 0x6011, 0x6014, 0x6015}

var ErrNoSuchDevice = errors.New("device not found")

// Matches reports whether a descriptor passes the vendor/product filter.
func Matches(vendor, product, wantVendor, wantProduct uint16) bool {
	if wantVendor == ftdi.AnyVendor && wantProduct == ftdi.AnyProduct {
		if vendor != vendorFTDI {
			return false
		}
		for _, p := range defaultProducts {
			if p == product {
				return true
			}
		}
		return false
	}
	return vendor == wantVendor && product == wantProduct
}

type Context struct {
	usb *gousb.Context
}

// newUSB panics when libusb cannot initialise, e.g. without usbfs.
var newUSB = gousb.NewContext

// New is an ftdi.ContextFunc. A libusb init failure comes back as an error.
func New() (ctx ftdi.Context, err error) {
	defer func() {
		if r := recover(); r != nil {
			ctx = nil
			err = errors.Errorf("libusb init: %v", r)
		}
	}()
	return &Context{usb: newUSB()}, nil
}

func (c *Context) Close() error {
	return c.usb.Close()
}

// FindAll opens each matching device only long enough to read its strings.
func (c *Context) FindAll(vendor, product uint16) ([]ftdi.DeviceRecord, error) {
	devs, err := c.usb.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return Matches(uint16(desc.Vendor), uint16(desc.Product), vendor, product)
	})
	defer func() {
		for _, d := range devs {
			d.Close()
		}
	}()
	if err != nil {
		if len(devs) == 0 {
			return nil, err
		}
		log.Warn().Err(err).Int("opened", len(devs)).Msg("some USB devices could not be opened")
	}
	recs := make([]ftdi.DeviceRecord, 0, len(devs))
	for _, d := range devs {
		recs = append(recs, record(d))
	}
	return recs, nil
}

func record(d *gousb.Device) ftdi.DeviceRecord {
	r := ftdi.DeviceRecord{
		Vendor:  uint16(d.Desc.Vendor),
		Product: uint16(d.Desc.Product),
		Bus:     d.Desc.Bus,
		Address: d.Desc.Address,
	}
	// string descriptors are optional; a missing one stays empty
	r.Manufacturer, _ = d.Manufacturer()
	r.Description, _ = d.Product()
	r.Serial, _ = d.SerialNumber()
	return r
}

func (c *Context) Open(rec ftdi.DeviceRecord) (ftdi.Handle, error) {
	return c.openFirst(func(desc *gousb.DeviceDesc) bool {
		return desc.Bus == rec.Bus && desc.Address == rec.Address
	}, nil)
}

// OpenSelector resolves s: by serial and i: by position among the devices
// of that vendor:product without a serial, the same numbering Discover uses.
func (c *Context) OpenSelector(sel ftdi.Explicit) (ftdi.Handle, error) {
	match := func(desc *gousb.DeviceDesc) bool {
		return Matches(uint16(desc.Vendor), uint16(desc.Product), sel.Vendor, sel.Product)
	}
	index := 0
	return c.openFirst(match, func(d *gousb.Device) bool {
		serial, _ := d.SerialNumber()
		if sel.Kind == ftdi.BySerial {
			return serial == sel.Serial
		}
		if serial != "" {
			return false
		}
		index++
		return index-1 == sel.Index
	})
}

func (c *Context) openFirst(match func(*gousb.DeviceDesc) bool, pick func(*gousb.Device) bool) (ftdi.Handle, error) {
	devs, err := c.usb.OpenDevices(match)
	if err != nil {
		if len(devs) == 0 {
			return nil, err
		}
		log.Warn().Err(err).Int("opened", len(devs)).Msg("some USB devices could not be opened")
	}
	var chosen *gousb.Device
	for _, d := range devs {
		if chosen == nil && (pick == nil || pick(d)) {
			chosen = d
			continue
		}
		d.Close()
	}
	if chosen == nil {
		return nil, ErrNoSuchDevice
	}
	h, err := open(chosen)
	if err != nil {
		chosen.Close()
		return nil, err
	}
	return h, nil
}
