package gsm

import "sync"

// TestTransport is an in-memory Transport for tests. Reads follow the
// non-blocking Stream contract; SendData queues bytes and raises the
// receive signal the way a serial port pump would. Written commands are
// captured for assertions and optionally handed to an auto-responder.
type TestTransport struct {
	recv   chan struct{}
	writes chan string

	mu      sync.Mutex
	buf     []byte
	onWrite func(string)
	closed  bool
}

// NewTestTransport creates a new test transport.
// Exported for use in tests.
func NewTestTransport() *TestTransport {
	return &TestTransport{
		recv:   make(chan struct{}, 1),
		writes: make(chan string, 64),
	}
}

func (t *TestTransport) Read(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.buf) == 0 {
		return 0, nil
	}
	n := copy(p, t.buf)
	t.buf = t.buf[n:]
	return n, nil
}

func (t *TestTransport) Write(p []byte) (int, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return 0, ErrAlreadyClosed
	}
	hook := t.onWrite
	t.mu.Unlock()

	s := string(p)
	select {
	case t.writes <- s:
	default:
	}
	if hook != nil {
		hook(s)
	}
	return len(p), nil
}

func (t *TestTransport) Recv() <-chan struct{} { return t.recv }

func (t *TestTransport) Name() string { return "test" }

func (t *TestTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrAlreadyClosed
	}
	t.closed = true
	return nil
}

// SendData queues raw bytes for the reader and raises the receive
// signal. This simulates receiving data from the modem.
func (t *TestTransport) SendData(data string) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.buf = append(t.buf, data...)
	t.mu.Unlock()
	select {
	case t.recv <- struct{}{}:
	default:
	}
}

// SendLine queues one CR LF terminated response line.
func (t *TestTransport) SendLine(line string) {
	t.SendData(line + "\r\n")
}

// Writes exposes the captured writes, one string per Write call.
func (t *TestTransport) Writes() <-chan string {
	return t.writes
}

// OnWrite installs an auto-responder invoked synchronously on every
// write.
func (t *TestTransport) OnWrite(fn func(written string)) {
	t.mu.Lock()
	t.onWrite = fn
	t.mu.Unlock()
}
