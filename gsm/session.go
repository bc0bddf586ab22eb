package gsm

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"i4.energy/across/gsm_ppp/at"
)

// muxState tracks channel bring-up progress. The zero value is the
// initial state, re-entered on any bring-up failure.
type muxState int

const (
	stateInit muxState = iota
	statePPP
	stateAT
	stateDone
)

// The control channel is brought up straight out of the initial state;
// the two share a value.
const stateControl = stateInit

func (st muxState) String() string {
	switch st {
	case stateInit:
		return "init"
	case statePPP:
		return "ppp"
	case stateAT:
		return "at"
	case stateDone:
		return "done"
	}
	return "unknown"
}

// Session drives one modem from cold start to an established data call
// and keeps it there, retrying failed bring-up stages indefinitely. All
// bring-up work happens on internal goroutines; the exported API queues
// work or reads snapshots and never blocks on the radio.
type Session struct {
	cfg Config
	log *zap.Logger

	// transport is the physical link. Command traffic flows over bound,
	// which is the transport itself or one of the mux channels.
	transport Transport

	// Dispatcher state, owned by rxLoop.
	defaults []command
	current  *exchange
	rx       *rxChain
	readBuf  []byte

	exchanges chan *exchange
	rebound   chan struct{}
	closed    chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	// sendMu serializes senders; one command in flight per session.
	sendMu sync.Mutex

	steps *worker
	setup []setupStep

	mu             sync.Mutex
	bound          Stream
	eol            string
	gen            uint64
	state          muxState
	muxOn          bool
	setupDone      bool
	carrierStarted bool
	apnSet         bool
	identity       Identity
	volumeCmd      string
	pdpCmd         string
	control        Stream
	pppCh          Stream
	atCh           Stream
}

// New dials the modem and builds a ready Session. Bring-up does not
// begin until Start is called.
func New(ctx context.Context, cfg Config) (*Session, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.setDefaults()

	transport, err := cfg.Dialer.Dial(ctx)
	if err != nil {
		return nil, err
	}

	s := &Session{
		cfg:       cfg,
		log:       cfg.Logger,
		transport: transport,
		bound:     transport,
		rx:        newRxChain(newBufPool(cfg.ReceiveBuffers, cfg.ReceiveBufferSize), cfg.AllocTimeout),
		readBuf:   make([]byte, cfg.ReceiveBufferSize),
		exchanges: make(chan *exchange),
		rebound:   make(chan struct{}, 1),
		closed:    make(chan struct{}),
		eol:       at.EOL,
	}
	s.defaults = defaultCommands(s)
	s.setup = s.setupSequence()

	if cfg.Volume != nil {
		if err := s.SetVolume(*cfg.Volume); err != nil {
			transport.Close()
			return nil, err
		}
	}
	if err := s.SetAPN(cfg.APN); err != nil {
		transport.Close()
		return nil, err
	}

	s.steps = newWorker()
	s.wg.Add(1)
	go s.rxLoop()
	return s, nil
}

// Close shuts the session down for good: the dispatcher and the step
// worker stop and the transport is closed. Close does not talk to the
// modem.
func (s *Session) Close() error {
	var err error
	ran := false
	s.closeOnce.Do(func() {
		ran = true
		s.mu.Lock()
		s.gen++
		s.mu.Unlock()
		close(s.closed)
		s.steps.close()
		err = s.transport.Close()
		s.wg.Wait()
	})
	if !ran {
		return ErrAlreadyClosed
	}
	return err
}

// Start begins bring-up and returns immediately. A bring-up already in
// flight is superseded; its pending steps are dropped.
func (s *Session) Start() error {
	select {
	case <-s.closed:
		return ErrAlreadyClosed
	default:
	}
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.state = stateInit
	s.muxOn = false
	s.setupDone = false
	s.control, s.pppCh, s.atCh = nil, nil, nil
	s.bound = s.transport
	s.mu.Unlock()
	s.pulseRebound()

	s.log.Info("starting modem bring-up")
	s.emit(EventLifecycle, "start")
	s.schedule(gen, 0, func() { s.finalize(gen) })
	return nil
}

// Stop drops the data carrier and breaks the modem out of data mode
// with the escape sequence. The session stays usable; Start brings the
// link back up.
func (s *Session) Stop(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-s.closed:
		return ErrAlreadyClosed
	default:
	}
	s.mu.Lock()
	s.gen++
	s.mu.Unlock()

	s.log.Info("stopping modem")
	s.emit(EventLifecycle, "stop")

	if s.cfg.NetIf != nil {
		if err := s.cfg.NetIf.Enable(false); err != nil {
			s.log.Warn("carrier disable failed", zap.Error(err))
		} else {
			s.emit(EventCarrier, "down")
		}
	}

	s.rebind(s.transport)

	// The modem ignores the escape sequence straight after data; give
	// it a stretch of line silence first.
	select {
	case <-time.After(s.cfg.SettleDelay):
	case <-ctx.Done():
		return ctx.Err()
	}

	s.setTerminator("")
	err := s.send(ctx, nil, at.Escape, s.cfg.CommandTimeout)
	s.setTerminator(at.EOL)
	if err != nil {
		return fmt.Errorf("escape data mode: %w", err)
	}
	return nil
}

// Resume returns the modem to data mode after a Stop, re-dialing when
// the online command is refused, and raises the carrier again.
func (s *Session) Resume(ctx context.Context) error {
	select {
	case <-s.closed:
		return ErrAlreadyClosed
	default:
	}
	s.log.Info("resuming data mode")
	s.emit(EventLifecycle, "resume")

	if err := s.send(ctx, nil, at.Online, s.cfg.CommandTimeout); err != nil {
		s.log.Info("online command refused, re-dialing", zap.Error(err))
		if err := s.send(ctx, nil, at.Dial, s.cfg.CommandTimeout); err != nil {
			return fmt.Errorf("re-dial: %w", err)
		}
	}
	return s.carrierOn()
}

// Restart tears the link down and runs bring-up from scratch. The APN
// commitment and the started carrier driver survive.
func (s *Session) Restart(ctx context.Context) error {
	s.emit(EventLifecycle, "restart")
	if err := s.Stop(ctx); err != nil {
		s.log.Warn("stop before restart failed", zap.Error(err))
	}
	if s.cfg.NetIf != nil {
		if err := s.cfg.NetIf.Stop(); err != nil {
			s.log.Warn("net interface stop failed", zap.Error(err))
		}
	}
	return s.Start()
}

// finalize is one bring-up attempt end to end. Every failure reschedules
// another attempt; nothing is surfaced to callers.
func (s *Session) finalize(gen uint64) {
	ctx := context.Background()

	if err := s.send(ctx, nil, at.Probe, s.cfg.CommandTimeout); err != nil {
		s.log.Warn("modem probe failed", zap.Error(err))
		s.emit(EventError, "probe failed")
		s.schedule(gen, 0, func() { s.finalize(gen) })
		return
	}

	s.mu.Lock()
	needMux := s.cfg.Mux != nil && !s.muxOn
	s.mu.Unlock()
	if needMux {
		cmd := at.MuxEnable(s.cfg.Family == FamilySimcomLTE, s.cfg.MuxMRU)
		if err := s.send(ctx, nil, cmd, s.cfg.CommandTimeout); err != nil {
			s.log.Warn("mux enable failed", zap.Error(err))
			s.emit(EventError, "mux enable failed")
			s.schedule(gen, 0, func() { s.finalize(gen) })
			return
		}
		s.mu.Lock()
		s.muxOn = true
		s.state = stateInit
		s.mu.Unlock()
		s.log.Info("mux enabled, bringing up channels")
		s.schedule(gen, s.cfg.MuxStepDelay, func() { s.muxStep(gen) })
		return
	}

	s.selectOperator(ctx)

	if err := s.runSetup(ctx); err != nil {
		s.log.Warn("modem setup failed", zap.Error(err))
		s.emit(EventError, "setup failed")
		s.schedule(gen, s.cfg.RetryInterval, func() { s.finalize(gen) })
		return
	}

	if err := s.checkAttached(ctx); err != nil {
		s.log.Info("not attached to packet service, retrying")
		s.emit(EventError, "not attached")
		s.schedule(gen, s.cfg.RetryInterval, func() { s.finalize(gen) })
		return
	}

	if err := s.send(ctx, nil, at.Dial, s.cfg.CommandTimeout); err != nil {
		s.log.Warn("dial failed", zap.Error(err))
		s.emit(EventError, "dial failed")
		s.schedule(gen, s.cfg.RetryInterval, func() { s.finalize(gen) })
		return
	}

	s.mu.Lock()
	s.setupDone = true
	muxed := s.muxOn
	atCh := s.atCh
	s.mu.Unlock()
	s.log.Info("modem setup complete")

	if err := s.carrierOn(); err != nil {
		s.log.Error("carrier start failed", zap.Error(err))
		s.schedule(gen, s.cfg.RetryInterval, func() { s.finalize(gen) })
		return
	}

	if muxed && atCh != nil {
		// Data flows on the PPP channel now; keep command traffic on
		// its own channel and make sure somebody is listening there.
		s.rebind(atCh)
		if err := s.send(ctx, nil, at.Probe, s.cfg.CommandTimeout); err != nil {
			s.log.Warn("command channel verify failed", zap.Error(err))
		}
	}
	s.emit(EventLifecycle, "connected")
}

// muxStep advances channel bring-up by one stage. Attach completions
// schedule the next call; failures reset and hand control back to the
// supervisor.
func (s *Session) muxStep(gen uint64) {
	s.mu.Lock()
	st := s.state
	ppp := s.pppCh
	s.mu.Unlock()

	switch st {
	case stateControl:
		s.attachChannel(gen, DLCIControl, &s.control, statePPP)
	case statePPP:
		s.attachChannel(gen, DLCIPPP, &s.pppCh, stateAT)
	case stateAT:
		s.attachChannel(gen, DLCIAT, &s.atCh, stateDone)
	case stateDone:
		s.log.Info("mux channels up")
		s.rebind(ppp)
		s.finalize(gen)
	}
}

// attachChannel allocates a mux channel and attaches it at dlci. On
// completion the state moves to next and the following step is
// scheduled.
func (s *Session) attachChannel(gen uint64, dlci int, slot *Stream, next muxState) {
	ch, err := s.cfg.Mux.Alloc()
	if err != nil {
		s.log.Warn("mux channel allocation failed",
			zap.Int("dlci", dlci), zap.Error(err))
		s.muxFailed(gen)
		return
	}
	s.mu.Lock()
	*slot = ch
	s.mu.Unlock()

	done := func(d int, connected bool) {
		if !connected {
			s.log.Warn("mux attach rejected", zap.Int("dlci", d))
			s.schedule(gen, 0, func() { s.muxFailed(gen) })
			return
		}
		s.schedule(gen, s.cfg.MuxStepDelay, func() {
			s.setState(next)
			s.muxStep(gen)
		})
	}
	if err := s.cfg.Mux.Attach(ch, s.transport, dlci, done); err != nil {
		s.log.Warn("mux attach failed", zap.Int("dlci", dlci), zap.Error(err))
		s.muxFailed(gen)
	}
}

// muxFailed resets channel bring-up to the initial state and hands
// control back to the supervisor after the retry interval.
func (s *Session) muxFailed(gen uint64) {
	s.mu.Lock()
	s.state = stateInit
	s.muxOn = false
	s.control, s.pppCh, s.atCh = nil, nil, nil
	s.bound = s.transport
	s.mu.Unlock()
	s.pulseRebound()
	s.emit(EventError, "channel bring-up failed")
	s.schedule(gen, s.cfg.RetryInterval, func() { s.finalize(gen) })
}

func (s *Session) setState(st muxState) {
	s.mu.Lock()
	if s.state == st {
		s.mu.Unlock()
		return
	}
	s.state = st
	s.mu.Unlock()
	s.log.Debug("bring-up state", zap.Stringer("state", st))
	s.emit(EventState, st.String())
}

// selectOperator asks for manual registration when an operator is
// configured, automatic otherwise. The modem may still be scanning;
// the result is advisory only.
func (s *Session) selectOperator(ctx context.Context) {
	cmd := at.OperatorAuto
	if s.cfg.Operator != "" {
		cmd = at.OperatorSelect(s.cfg.Operator)
	}
	if err := s.send(ctx, nil, cmd, s.cfg.CommandTimeout); err != nil {
		s.log.Debug("operator selection unacknowledged", zap.Error(err))
	}
}

// checkAttached queries packet service attachment.
func (s *Session) checkAttached(ctx context.Context) error {
	attached := ErrNotAttached
	cmds := []command{{match: at.AttachInfo, args: 1, sep: ",",
		fn: func(_ string, argv []string) {
			if len(argv) < 1 {
				return
			}
			if v, err := strconv.Atoi(strings.TrimSpace(argv[0])); err == nil && v == 1 {
				attached = nil
			}
		}}}
	if err := s.send(ctx, cmds, at.AttachQuery, s.cfg.CommandTimeout); err != nil {
		return err
	}
	return attached
}

// carrierOn raises the data carrier. The first raise starts the driver;
// later raises only re-enable it.
func (s *Session) carrierOn() error {
	if s.cfg.NetIf == nil {
		return ErrNoNetIf
	}
	s.mu.Lock()
	started := s.carrierStarted
	s.mu.Unlock()
	if !started {
		if err := s.cfg.NetIf.Start(); err != nil {
			return fmt.Errorf("start net interface: %w", err)
		}
		s.mu.Lock()
		s.carrierStarted = true
		s.mu.Unlock()
	} else if err := s.cfg.NetIf.Enable(true); err != nil {
		return fmt.Errorf("enable carrier: %w", err)
	}
	s.emit(EventCarrier, "up")
	return nil
}

// schedule queues a step on the worker, dropping it when the session
// generation moved on before it runs.
func (s *Session) schedule(gen uint64, d time.Duration, fn func()) {
	s.steps.schedule(d, func() {
		if !s.live(gen) {
			return
		}
		fn()
	})
}

func (s *Session) live(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen == s.gen
}

func (s *Session) binding() Stream {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bound
}

// rebind points command traffic at st. The dispatcher picks the change
// up before its next wait.
func (s *Session) rebind(st Stream) {
	s.mu.Lock()
	s.bound = st
	s.mu.Unlock()
	s.pulseRebound()
	s.log.Debug("command channel rebound", zap.String("stream", st.Name()))
}

func (s *Session) pulseRebound() {
	select {
	case s.rebound <- struct{}{}:
	default:
	}
}

func (s *Session) terminator() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eol
}

// setTerminator changes the line ending appended to outgoing commands.
// The escape sequence goes out bare.
func (s *Session) setTerminator(eol string) {
	s.mu.Lock()
	s.eol = eol
	s.mu.Unlock()
}

// Status is a point-in-time snapshot of bring-up progress.
type Status struct {
	State          string `json:"state"`
	MuxEnabled     bool   `json:"mux_enabled"`
	SetupDone      bool   `json:"setup_done"`
	CarrierStarted bool   `json:"carrier_started"`
	APNSet         bool   `json:"apn_set"`
}

// Status reports the current bring-up state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		State:          s.state.String(),
		MuxEnabled:     s.muxOn,
		SetupDone:      s.setupDone,
		CarrierStarted: s.carrierStarted,
		APNSet:         s.apnSet,
	}
}

// Identity returns a copy of the captured modem identity. Fields are
// empty until the first configuration run fills them.
func (s *Session) Identity() Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// IMEI returns the captured equipment serial number.
func (s *Session) IMEI() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity.IMEI
}
