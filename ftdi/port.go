package ftdi

import (
	"github.com/pkg/errors"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

var ErrReadUnsupported = errors.New("ftdi: port is write-only")

// Port exposes a Driver as a periph spi.PortCloser so periph SPI device
// drivers can run on the bridge. Connect opens the driver when needed.
type Port struct {
	d     *Driver
	sel   Selector
	limit physic.Frequency
}

func NewPort(d *Driver, sel Selector) *Port {
	return &Port{d: d, sel: sel}
}

func (p *Port) String() string {
	return "ftdi(" + p.sel.String() + ")"
}

func (p *Port) LimitSpeed(f physic.Frequency) error {
	if f <= 0 {
		return errors.Wrapf(ErrInvalidBaudRate, "limit %s", f)
	}
	p.limit = f
	return nil
}

// Connect opens the bridge at f, capped by LimitSpeed. On a driver that is
// already Ready, f must map to the divisor it was opened with. Only 8-bit MSB-first
// words are supported; the clock phase is fixed by the profile's opcode.
func (p *Port) Connect(f physic.Frequency, mode spi.Mode, bits int) (spi.Conn, error) {
	if bits != 8 {
		return nil, errors.Errorf("ftdi: unsupported word size %d", bits)
	}
	if mode&spi.LSBFirst != 0 {
		return nil, errors.New("ftdi: LSB first is not supported")
	}
	if p.limit > 0 && (f == 0 || f > p.limit) {
		f = p.limit
	}
	if p.d.State() != Ready {
		if err := p.d.Open(p.sel, f); err != nil {
			return nil, err
		}
		return &portConn{p: p}, nil
	}
	// an open bridge keeps its clock; f == 0 accepts it as is
	if f > 0 {
		div, err := Divisor(f)
		if err != nil {
			return nil, err
		}
		if div != p.d.ClockDivisor() {
			return nil, errors.Wrapf(ErrAlreadyOpen, "connect at %s: clock divisor %d, open at %d", f, div, p.d.ClockDivisor())
		}
	}
	return &portConn{p: p}, nil
}

func (p *Port) Close() error {
	return p.d.Close()
}

type portConn struct {
	p *Port
}

func (c *portConn) String() string {
	return c.p.String()
}

func (c *portConn) Duplex() conn.Duplex {
	return conn.Half
}

func (c *portConn) Tx(w, r []byte) error {
	if len(r) != 0 {
		return ErrReadUnsupported
	}
	_, err := c.p.d.Send(w)
	return err
}

func (c *portConn) TxPackets(pkts []spi.Packet) error {
	for _, pkt := range pkts {
		if err := c.Tx(pkt.W, pkt.R); err != nil {
			return err
		}
	}
	return nil
}

var _ spi.PortCloser = &Port{}
