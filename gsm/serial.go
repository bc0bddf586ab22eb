package gsm

import (
	"context"
	"fmt"
	"sync"

	"go.bug.st/serial"
)

// serialReadBufferSize bounds the bytes held between the port pump and
// the dispatcher. Old data is discarded once the bound is hit.
const serialReadBufferSize = 4096

// SerialDialer opens a modem over a local serial port using
// go.bug.st/serial.
type SerialDialer struct {
	// PortName is the device path, e.g. /dev/ttyUSB0.
	PortName string

	// BaudRate is the port speed. Zero means 115200. Ignored when Mode
	// is set.
	BaudRate int

	// ReadBufferSize bounds the bytes held between the port pump and
	// the reader. Zero means 4096.
	ReadBufferSize int

	// Mode configures the port fully. When nil, BaudRate with 8N1 is
	// used.
	Mode *serial.Mode
}

// Dial opens the port and starts the receive pump that feeds the
// transport's signal channel.
func (d SerialDialer) Dial(ctx context.Context) (Transport, error) {
	if ctx == nil {
		return nil, fmt.Errorf("gsm: context is nil")
	}
	if d.PortName == "" {
		return nil, fmt.Errorf("gsm: serial port name is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mode := d.Mode
	if mode == nil {
		baud := d.BaudRate
		if baud == 0 {
			baud = 115200
		}
		mode = &serial.Mode{
			BaudRate: baud,
			Parity:   serial.NoParity,
			DataBits: 8,
			StopBits: serial.OneStopBit,
		}
	}

	port, err := serial.Open(d.PortName, mode)
	if err != nil {
		return nil, fmt.Errorf("gsm: open %s: %w", d.PortName, err)
	}

	limit := d.ReadBufferSize
	if limit <= 0 {
		limit = serialReadBufferSize
	}
	t := &serialTransport{
		name:  d.PortName,
		port:  port,
		limit: limit,
		recv:  make(chan struct{}, 1),
	}
	go t.pump()
	return t, nil
}

// serialTransport adapts a blocking serial port to the non-blocking
// Stream contract: a pump goroutine moves port bytes into an internal
// buffer and pulses the receive signal.
type serialTransport struct {
	name  string
	port  serial.Port
	limit int
	recv  chan struct{}

	mu     sync.Mutex
	buf    []byte
	rdErr  error
	closed bool
}

func (t *serialTransport) pump() {
	chunk := make([]byte, 256)
	for {
		n, err := t.port.Read(chunk)

		t.mu.Lock()
		if n > 0 {
			t.buf = append(t.buf, chunk[:n]...)
			if len(t.buf) > t.limit {
				t.buf = t.buf[len(t.buf)-t.limit:]
			}
		}
		if err != nil && t.rdErr == nil {
			t.rdErr = err
		}
		closed := t.closed
		t.mu.Unlock()

		if n > 0 || err != nil {
			select {
			case t.recv <- struct{}{}:
			default:
			}
		}
		if err != nil || closed {
			return
		}
	}
}

// Read drains buffered bytes. It returns n == 0 with a nil error when
// nothing is buffered, and the pump's error once the buffer is empty
// after a port failure.
func (t *serialTransport) Read(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.buf) == 0 {
		return 0, t.rdErr
	}
	n := copy(p, t.buf)
	t.buf = t.buf[n:]
	return n, nil
}

func (t *serialTransport) Write(p []byte) (int, error) {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return 0, ErrAlreadyClosed
	}
	return t.port.Write(p)
}

func (t *serialTransport) Recv() <-chan struct{} { return t.recv }

func (t *serialTransport) Name() string { return t.name }

func (t *serialTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrAlreadyClosed
	}
	t.closed = true
	t.mu.Unlock()
	return t.port.Close()
}
