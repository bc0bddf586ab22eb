package gsm

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"i4.energy/across/gsm_ppp/at"
)

// handlerFunc consumes a matched response line. text is the part of the
// line after the matched prefix, argv the parsed arguments.
type handlerFunc func(text string, argv []string)

// command pairs a response line prefix with its handler. An empty match
// claims any line. args and sep control argument splitting; args 0 means
// the handler takes the raw text only.
type command struct {
	match string
	args  int
	sep   string
	fn    handlerFunc
}

// parse splits the text after the matched prefix into at most args
// fields.
func (c command) parse(text string) []string {
	if c.args <= 0 {
		return nil
	}
	sep := c.sep
	if sep == "" {
		sep = ","
	}
	argv := strings.SplitN(strings.TrimLeft(text, " "), sep, c.args+1)
	if len(argv) > c.args {
		argv = argv[:c.args]
	}
	return argv
}

// exchange is one in-flight command awaiting its terminal response.
type exchange struct {
	// cmd is the command text, written without terminator handling by
	// the dispatcher.
	cmd string
	// cmds are the per-exchange response handlers, consulted after the
	// session defaults.
	cmds []command
	// ctx bounds the exchange; an expired context marks it abandoned.
	ctx context.Context
	// done receives the single completion.
	done chan error
}

func newExchange(ctx context.Context, cmd string, extra []command) *exchange {
	return &exchange{
		cmd:  cmd,
		cmds: extra,
		ctx:  ctx,
		done: make(chan error, 1),
	}
}

// finish delivers the completion. Extra completions are dropped.
func (e *exchange) finish(err error) {
	select {
	case e.done <- err:
	default:
	}
}

// defaultCommands builds the always-registered response handlers. They
// are matched before any per-exchange handlers.
func defaultCommands(s *Session) []command {
	terminal := func(err error) handlerFunc {
		return func(string, []string) { s.finishExchange(err) }
	}
	return []command{
		{match: at.OK, fn: terminal(nil)},
		{match: at.ERROR, fn: terminal(ErrModem)},
		{match: at.Connect, fn: terminal(nil)},
	}
}

// rxLoop is the only goroutine that touches the receive side of the
// bound stream. It turns receive signals into parsed lines, runs the
// response handlers and starts queued exchanges, so an exchange is
// always registered before its command hits the wire.
func (s *Session) rxLoop() {
	defer s.wg.Done()
	for {
		st := s.binding()
		select {
		case <-st.Recv():
			s.drain(st)
		case ex := <-s.exchanges:
			s.beginExchange(ex)
		case <-s.rebound:
			// Binding changed; reselect on the new receive signal.
		case <-s.closed:
			if cur := s.current; cur != nil {
				cur.finish(ErrAlreadyClosed)
				s.current = nil
			}
			return
		}
	}
}

// beginExchange registers ex as the in-flight command and writes it out.
func (s *Session) beginExchange(ex *exchange) {
	if err := ex.ctx.Err(); err != nil {
		ex.finish(err)
		return
	}
	s.current = ex
	wire := ex.cmd + s.terminator()
	if _, err := s.binding().Write([]byte(wire)); err != nil {
		s.current = nil
		ex.finish(err)
		return
	}
	s.emit(EventCommand, ex.cmd)
}

// drain moves every readable byte off the stream into the receive chain
// and dispatches the complete lines.
func (s *Session) drain(st Stream) {
	for {
		n, err := st.Read(s.readBuf)
		if n > 0 {
			if !s.rx.append(s.readBuf[:n]) {
				s.log.Warn("receive pool exhausted, dropping data",
					zap.String("stream", st.Name()))
			}
			s.dispatchLines()
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.log.Debug("stream read failed",
					zap.String("stream", st.Name()), zap.Error(err))
			}
			return
		}
		if n == 0 {
			return
		}
	}
}

func (s *Session) dispatchLines() {
	for {
		line, ok := s.rx.nextLine()
		if !ok {
			return
		}
		if line == "" {
			// Terminator runs and blank lines between responses.
			continue
		}
		s.matchLine(line)
	}
}

// matchLine runs the first handler whose prefix matches line, defaults
// first. Lines nobody claims are reported as unsolicited.
func (s *Session) matchLine(line string) {
	cur := s.current
	if cur != nil && cur.ctx.Err() != nil {
		// The sender gave up on this exchange; drop it so a late
		// response cannot complete a newer command.
		cur.finish(cur.ctx.Err())
		s.current = nil
		cur = nil
	}
	tables := [][]command{s.defaults}
	if cur != nil {
		tables = append(tables, cur.cmds)
	}
	for _, cmds := range tables {
		for _, c := range cmds {
			if strings.HasPrefix(line, c.match) {
				if c.fn != nil {
					text := line[len(c.match):]
					c.fn(text, c.parse(text))
				}
				return
			}
		}
	}
	s.log.Debug("unsolicited line", zap.String("line", line))
	s.emit(EventURC, line)
}

// finishExchange completes the in-flight exchange, if any. Terminal
// responses with nothing in flight are swallowed.
func (s *Session) finishExchange(err error) {
	if s.current == nil {
		return
	}
	s.current.finish(err)
	s.current = nil
}

// send writes cmd and blocks until its terminal response, the timeout or
// session close. extra handlers are registered for the duration of the
// exchange only.
func (s *Session) send(ctx context.Context, extra []command, cmd string, timeout time.Duration) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ex := newExchange(ctx, cmd, extra)
	select {
	case s.exchanges <- ex:
	case <-ctx.Done():
		return exchangeErr(ctx.Err())
	case <-s.closed:
		return ErrAlreadyClosed
	}
	select {
	case err := <-ex.done:
		return err
	case <-ctx.Done():
		return exchangeErr(ctx.Err())
	case <-s.closed:
		return ErrAlreadyClosed
	}
}

// exchangeErr maps context expiry onto the protocol timeout error.
func exchangeErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	return err
}
