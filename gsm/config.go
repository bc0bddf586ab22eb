package gsm

import (
	"time"

	"go.uber.org/zap"
)

// Family selects vendor-specific command variants.
type Family int

const (
	// FamilyGeneric drives any 27.010 capable modem with the plain CMUX
	// enable form.
	FamilyGeneric Family = iota
	// FamilySimcomLTE assigns the DLCI service ports explicitly before
	// raising CMUX.
	FamilySimcomLTE
)

// Defaults applied by setDefaults for unset Config fields.
const (
	DefaultCommandTimeout    = 2 * time.Second
	DefaultSetupTimeout      = 6 * time.Second
	DefaultRetryInterval     = time.Second
	DefaultSettleDelay       = 1200 * time.Millisecond
	DefaultMuxStepDelay      = time.Millisecond
	DefaultAllocTimeout      = time.Second
	DefaultReceiveBuffers    = 30
	DefaultReceiveBufferSize = 128
	DefaultMuxMRU            = 127
)

func (c *Config) validate() error {
	if c.Dialer == nil {
		return ErrNoDialer
	}
	if c.Volume != nil && (*c.Volume < 0 || *c.Volume > 5) {
		return ErrConfig
	}
	if len(c.APN) > maxAPN {
		return ErrConfig
	}
	if c.Operator != "" && (len(c.Operator) > maxOperator || !allDigits(c.Operator)) {
		return ErrConfig
	}
	return nil
}

type Config struct {
	Dialer Dialer

	// Mux enables channel multiplexing when set. Without it the whole
	// bring-up runs over the raw transport.
	Mux Mux

	// NetIf drives the data carrier. Bring-up retries indefinitely
	// while it is missing.
	NetIf NetIf

	// Logger defaults to a nop logger.
	Logger *zap.Logger

	// Notify receives engine events. It runs on engine goroutines and
	// must not block.
	Notify func(Event)

	// APN fixes the access point by hand. Empty keeps automatic
	// operator lookup.
	APN string

	// Operator forces registration to an MCC+MNC code. Empty selects
	// automatically.
	Operator string

	// Volume is the initial speaker level, 0 through 5. Nil leaves the
	// level alone.
	Volume *int

	Family Family
	MuxMRU int

	CommandTimeout time.Duration
	SetupTimeout   time.Duration
	RetryInterval  time.Duration
	SettleDelay    time.Duration
	MuxStepDelay   time.Duration
	AllocTimeout   time.Duration

	ReceiveBuffers    int
	ReceiveBufferSize int
}

func (c *Config) setDefaults() {
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.CommandTimeout == 0 {
		c.CommandTimeout = DefaultCommandTimeout
	}
	if c.SetupTimeout == 0 {
		c.SetupTimeout = DefaultSetupTimeout
	}
	if c.RetryInterval == 0 {
		c.RetryInterval = DefaultRetryInterval
	}
	if c.SettleDelay == 0 {
		c.SettleDelay = DefaultSettleDelay
	}
	if c.MuxStepDelay == 0 {
		c.MuxStepDelay = DefaultMuxStepDelay
	}
	if c.AllocTimeout == 0 {
		c.AllocTimeout = DefaultAllocTimeout
	}
	if c.ReceiveBuffers == 0 {
		c.ReceiveBuffers = DefaultReceiveBuffers
	}
	if c.ReceiveBufferSize == 0 {
		c.ReceiveBufferSize = DefaultReceiveBufferSize
	}
	if c.MuxMRU == 0 {
		c.MuxMRU = DefaultMuxMRU
	}
}

// ConfigBuilder assembles a Config fluently. Build validates the result.
type ConfigBuilder struct {
	cfg Config
}

func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{}
}

func (b *ConfigBuilder) WithDialer(d Dialer) *ConfigBuilder {
	b.cfg.Dialer = d
	return b
}

func (b *ConfigBuilder) WithMux(m Mux) *ConfigBuilder {
	b.cfg.Mux = m
	return b
}

func (b *ConfigBuilder) WithNetIf(n NetIf) *ConfigBuilder {
	b.cfg.NetIf = n
	return b
}

func (b *ConfigBuilder) WithLogger(l *zap.Logger) *ConfigBuilder {
	b.cfg.Logger = l
	return b
}

func (b *ConfigBuilder) WithNotify(fn func(Event)) *ConfigBuilder {
	b.cfg.Notify = fn
	return b
}

func (b *ConfigBuilder) WithAPN(apn string) *ConfigBuilder {
	b.cfg.APN = apn
	return b
}

func (b *ConfigBuilder) WithOperator(mccmnc string) *ConfigBuilder {
	b.cfg.Operator = mccmnc
	return b
}

func (b *ConfigBuilder) WithVolume(level int) *ConfigBuilder {
	b.cfg.Volume = &level
	return b
}

func (b *ConfigBuilder) WithFamily(f Family) *ConfigBuilder {
	b.cfg.Family = f
	return b
}

func (b *ConfigBuilder) WithMuxMRU(mru int) *ConfigBuilder {
	b.cfg.MuxMRU = mru
	return b
}

func (b *ConfigBuilder) WithCommandTimeout(d time.Duration) *ConfigBuilder {
	b.cfg.CommandTimeout = d
	return b
}

func (b *ConfigBuilder) WithSetupTimeout(d time.Duration) *ConfigBuilder {
	b.cfg.SetupTimeout = d
	return b
}

func (b *ConfigBuilder) WithRetryInterval(d time.Duration) *ConfigBuilder {
	b.cfg.RetryInterval = d
	return b
}

func (b *ConfigBuilder) WithSettleDelay(d time.Duration) *ConfigBuilder {
	b.cfg.SettleDelay = d
	return b
}

func (b *ConfigBuilder) WithMuxStepDelay(d time.Duration) *ConfigBuilder {
	b.cfg.MuxStepDelay = d
	return b
}

func (b *ConfigBuilder) WithAllocTimeout(d time.Duration) *ConfigBuilder {
	b.cfg.AllocTimeout = d
	return b
}

func (b *ConfigBuilder) WithReceiveBuffers(count, size int) *ConfigBuilder {
	b.cfg.ReceiveBuffers = count
	b.cfg.ReceiveBufferSize = size
	return b
}

func (b *ConfigBuilder) Build() (Config, error) {
	if err := b.cfg.validate(); err != nil {
		return Config{}, err
	}
	return b.cfg, nil
}
