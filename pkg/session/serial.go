package session

import (
	"io"
	"os"
	"time"

	"github.com/tarm/serial"
)

// DefaultBaud is the serial rate ExpressLRS transmitter modules run at.
const DefaultBaud = 921600

// SerialPort adapts a serial port to the Transport interface with
// poll-style reads.
type SerialPort struct {
	port *serial.Port
	open bool
	buf  [256]byte
}

// OpenSerial opens the named device. A short read timeout makes
// ReadAvailable return immediately when nothing is pending.
func OpenSerial(device string, baud int) (*SerialPort, error) {
	port, err := serial.OpenPort(&serial.Config{
		Name:        device,
		Baud:        baud,
		ReadTimeout: time.Millisecond,
	})
	if err != nil {
		return nil, err
	}
	return &SerialPort{port: port, open: true}, nil
}

// Write implements Transport.
func (p *SerialPort) Write(b []byte) error {
	if !p.open {
		return ErrTransportClosed
	}
	if _, err := p.port.Write(b); err != nil {
		p.open = false
		return err
	}
	return nil
}

// ReadAvailable implements Transport.
func (p *SerialPort) ReadAvailable() []byte {
	if !p.open {
		return nil
	}
	n, err := p.port.Read(p.buf[:])
	if err != nil {
		if err == io.EOF || os.IsTimeout(err) {
			return nil
		}
		p.open = false
		return nil
	}
	if n == 0 {
		return nil
	}
	out := make([]byte, n)
	copy(out, p.buf[:n])
	return out
}

// IsOpen implements Transport.
func (p *SerialPort) IsOpen() bool {
	return p.open
}

// Close implements io.Closer.
func (p *SerialPort) Close() error {
	p.open = false
	return p.port.Close()
}
