package gsm

// DLCI assignments for the three logical channels opened during channel
// bring-up, in the order they are attached.
const (
	DLCIControl = 0
	DLCIPPP     = 1
	DLCIAT      = 2
)

// AttachFunc reports completion of an Attach call. connected is false
// when the peer refused the channel.
type AttachFunc func(dlci int, connected bool)

// Mux is the UART multiplexer contract consumed during channel bring-up.
// Only allocation and attachment are used here; framing is entirely the
// implementation's business.
type Mux interface {
	// Alloc reserves the next free logical channel.
	Alloc() (Stream, error)

	// Attach binds ch to the physical transport as the given DLCI and
	// reports completion through done, possibly asynchronously. Receive
	// signaling on ch starts once the attach completes successfully.
	Attach(ch Stream, t Transport, dlci int, done AttachFunc) error
}

// NetIf is the network interface driver fed by the data channel once the
// modem is in data mode. Start brings the driver up the first time;
// Enable toggles the carrier on a started driver; Stop tears the driver
// down for a full restart.
type NetIf interface {
	Start() error
	Stop() error
	Enable(up bool) error
}
