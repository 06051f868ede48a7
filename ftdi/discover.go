package ftdi

import "fmt"

// Device is one catalog entry: Value is an openable selector, Name a label.
type Device struct {
	Value string `json:"value"`
	Name  string `json:"name"`
}

type vendorProduct struct {
	vendor, product uint16
}

// Discover lists the bridges visible through c, prefixed with the auto
// entry. Devices with a serial number get an s: selector; the rest are
// numbered in enumeration order per vendor:product pair.
//
// On enumeration failure the auto-only catalog is returned with the error.
func Discover(c Context) ([]Device, error) {
	devices := []Device{{Value: AutoSetting, Name: "Auto"}}
	recs, err := c.FindAll(AnyVendor, AnyProduct)
	if err != nil {
		return devices, &TransportError{Op: "find all", Err: err}
	}
	indexes := map[vendorProduct]int{}
	for _, r := range recs {
		sel := Explicit{Vendor: r.Vendor, Product: r.Product}
		if r.Serial != "" {
			sel.Kind = BySerial
			sel.Serial = r.Serial
		} else {
			key := vendorProduct{r.Vendor, r.Product}
			sel.Kind = ByIndex
			sel.Index = indexes[key]
			indexes[key]++
		}
		label := r.Manufacturer
		if label == "" {
			label = r.Description
		}
		devices = append(devices, Device{
			Value: sel.String(),
			Name:  fmt.Sprintf("%s (%s)", sel, label),
		})
	}
	return devices, nil
}

// Discover allocates a context of its own, so it can run while the driver is
// open or closed.
func (d *Driver) Discover() ([]Device, error) {
	c, err := d.newContext()
	if err != nil {
		return []Device{{Value: AutoSetting, Name: "Auto"}}, &TransportError{Op: "new context", Err: err}
	}
	defer func() {
		if err := c.Close(); err != nil {
			d.log.Warn().Err(err).Msg("closing discovery context")
		}
	}()

	devices, err := Discover(c)
	if err != nil {
		d.log.Warn().Err(err).Msg("FTDI enumeration failed")
		return devices, err
	}
	d.log.Debug().Interface("devices", devices).Msg("FTDI devices discovered")
	return devices, nil
}
