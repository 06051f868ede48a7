package ftdi

// MPSSE opcodes, see FTDI AN_108.
const (
	MPSSE_WRITE_NEG byte = 0x01 // clock data out on the falling edge
	MPSSE_DO_WRITE  byte = 0x10
	SET_BITS_LOW    byte = 0x80
	TCK_DIVISOR     byte = 0x86
	DIS_DIV_5       byte = 0x8A
)

// BitMode is the engine mode passed to SetBitMode.
type BitMode byte

const (
	BitModeReset   BitMode = 0x00
	BitModeBitbang BitMode = 0x01
	BitModeMPSSE   BitMode = 0x02
)

// Flow control values for SetFlowControl.
const (
	SIO_DISABLE_FLOW_CTRL uint16 = 0x0
)

// ADBUS pins.
const (
	PinSK byte = 0x01 // ADBUS0, SPI clock
	PinDO byte = 0x02 // ADBUS1, SPI data out
	PinCS byte = 0x08 // ADBUS3, chip select
	PinL0 byte = 0x10 // ADBUS4, GPIOL0
)

const (
	// ReferenceClock is the MPSSE base clock with the divide-by-5 disabled.
	ReferenceClock = 60e6
	// MaxTransfer is the largest payload one MPSSE write command can carry.
	MaxTransfer = 0x10000

	// AnyVendor and AnyProduct match the default FTDI ID list.
	AnyVendor  uint16 = 0x0
	AnyProduct uint16 = 0x0
)
