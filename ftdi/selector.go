package ftdi

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// AutoSetting picks the first enumerated device.
const AutoSetting = "auto"

var ErrInvalidSelector = errors.New("invalid device selector")

// Selector identifies the bridge to open: Auto or Explicit.
type Selector interface {
	fmt.Stringer
	isSelector()
}

// Auto opens the first device found by enumeration.
type Auto struct{}

func (Auto) isSelector() {}

func (Auto) String() string { return AutoSetting }

// AddressKind tells how an Explicit selector addresses a device.
type AddressKind byte

const (
	BySerial AddressKind = 's'
	ByIndex  AddressKind = 'i'
)

// Explicit names one device by vendor:product and either its serial number
// or its position among serial-less devices with the same IDs.
type Explicit struct {
	Kind    AddressKind
	Vendor  uint16
	Product uint16
	Serial  string
	Index   int
}

func (Explicit) isSelector() {}

func (e Explicit) String() string {
	if e.Kind == BySerial {
		return fmt.Sprintf("s:0x%04x:0x%04x:%s", e.Vendor, e.Product, e.Serial)
	}
	return fmt.Sprintf("i:0x%04x:0x%04x:%d", e.Vendor, e.Product, e.Index)
}

// ParseSelector accepts "auto" in any case or
// "<s|i>:<vendorHex>:<productHex>[:<serialOrIndex>]".
func ParseSelector(s string) (Selector, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, AutoSetting) {
		return Auto{}, nil
	}
	parts := strings.SplitN(s, ":", 4)
	if len(parts) < 3 || len(parts[0]) != 1 {
		return nil, errors.Wrapf(ErrInvalidSelector, "%q", s)
	}
	e := Explicit{Kind: AddressKind(parts[0][0])}
	var err error
	if e.Vendor, err = parseHex16(parts[1]); err != nil {
		return nil, errors.Wrapf(ErrInvalidSelector, "%q: vendor", s)
	}
	if e.Product, err = parseHex16(parts[2]); err != nil {
		return nil, errors.Wrapf(ErrInvalidSelector, "%q: product", s)
	}
	switch e.Kind {
	case BySerial:
		if len(parts) < 4 || parts[3] == "" {
			return nil, errors.Wrapf(ErrInvalidSelector, "%q: missing serial", s)
		}
		e.Serial = parts[3]
	case ByIndex:
		if len(parts) == 4 {
			if e.Index, err = strconv.Atoi(parts[3]); err != nil || e.Index < 0 {
				return nil, errors.Wrapf(ErrInvalidSelector, "%q: index", s)
			}
		}
	default:
		return nil, errors.Wrapf(ErrInvalidSelector, "%q: prefix", s)
	}
	return e, nil
}

func parseHex16(s string) (uint16, error) {
	s = strings.TrimPrefix(strings.ToLower(s), "0x")
	v, err := strconv.ParseUint(s, 16, 16)
	return uint16(v), err
}
