package gsm

import "errors"

var (
	// ErrNoDialer is returned when a Session is constructed without a Dialer.
	//
	// This indicates a configuration error. A Dialer is required in order to
	// open the transport to the modem.
	ErrNoDialer = errors.New("no dialer configured")

	// ErrAlreadyClosed is returned when an operation is attempted on a
	// Session that has been closed.
	ErrAlreadyClosed = errors.New("session already closed")

	// ErrTimeout is returned when the modem sends no matching response
	// within the exchange deadline. The command is abandoned; nothing is
	// written to cancel it.
	ErrTimeout = errors.New("no matching response before timeout")

	// ErrModem is returned when the modem answers a command with ERROR.
	ErrModem = errors.New("modem returned ERROR")

	// ErrBufferPool is returned when the receive buffer pool stays empty
	// past the allocation timeout. Incoming data is dropped while the
	// pool is exhausted.
	ErrBufferPool = errors.New("receive buffer pool exhausted")

	// ErrConfig covers rejected configuration values, such as a volume
	// level out of range or an over-long access point name.
	ErrConfig = errors.New("invalid configuration value")

	// ErrAPNSet is returned when the access point name was already
	// committed, whether by hand or by operator lookup. The name can be
	// set exactly once per session.
	ErrAPNSet = errors.New("apn already set")

	// ErrChannelAlloc is reported during channel bring-up when the
	// multiplexer cannot provide a logical channel.
	ErrChannelAlloc = errors.New("no mux channel available")

	// ErrNotAttached is reported while the modem is not attached to the
	// packet service.
	ErrNotAttached = errors.New("not attached to packet service")

	// ErrNoNetIf is returned when raising the carrier without a network
	// interface driver configured.
	ErrNoNetIf = errors.New("no network interface driver configured")
)
