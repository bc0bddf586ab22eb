package gsm

import (
	"context"
	"io"
)

//go:generate go tool mockgen -source=transport.go -destination=mock_transport.go -package=gsm

// Stream is one byte channel to the modem: the raw serial link, or a
// single logical DLCI carried over it by a multiplexer.
//
// Reads never block. Read drains whatever is buffered and returns n == 0
// with a nil error once the buffer is empty; the receive signal says when
// it is worth reading again.
type Stream interface {
	io.ReadWriter

	// Recv returns the receive signal channel. Implementations pulse it
	// (non-blocking, buffered) whenever new data becomes readable.
	Recv() <-chan struct{}

	// Name identifies the stream in logs.
	Name() string
}

// Transport is the established physical link to the modem.
//
// A Transport is assumed to be already connected and ready for use.
// Typical implementations are serial ports, TCP connections to emulators,
// or in-memory fakes used for testing.
type Transport interface {
	Stream
	io.Closer
}

// Dialer opens a Transport to a modem.
//
// Dialer abstracts how the connection is created and is used during
// session construction only. Once a Transport is obtained, the Dialer is
// no longer needed.
type Dialer interface {
	// Dial creates and returns a connected Transport. It may perform
	// blocking operations and should respect cancellation and deadlines
	// provided by the context.
	Dial(ctx context.Context) (Transport, error)
}
