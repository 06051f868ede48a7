package ftdi

// DeviceRecord is one enumerated bridge. It holds descriptor data only, no
// open handle.
type DeviceRecord struct {
	Vendor       uint16
	Product      uint16
	Manufacturer string
	Description  string
	Serial       string
	Bus          int
	Address      int
}

// Context is the bridge library session a Driver allocates per open. Every
// method may fail; the error text is reported to the caller unchanged.
type Context interface {
	// FindAll enumerates devices. AnyVendor/AnyProduct match the default
	// FTDI ID list.
	FindAll(vendor, product uint16) ([]DeviceRecord, error)
	// Open opens a record returned by FindAll.
	Open(rec DeviceRecord) (Handle, error)
	// OpenSelector opens the device an Explicit selector names.
	OpenSelector(sel Explicit) (Handle, error)
	// Close frees the context. Handles must be closed first.
	Close() error
}

// Handle is an open bridge interface.
type Handle interface {
	DisableBitbang() error
	SetFlowControl(flow uint16) error
	SetBitMode(mask byte, mode BitMode) error
	Write(p []byte) (int, error)
	Close() error
}

// ContextFunc allocates a fresh Context.
type ContextFunc func() (Context, error)
