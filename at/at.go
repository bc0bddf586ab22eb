// Package at holds the Hayes wire vocabulary the bring-up engine speaks:
// result tokens, the fixed command set and builders for the commands that
// carry configured values.
package at

import "fmt"

const (
	// Terminal control
	CRLF = "\r\n"
	EOL  = "\r"

	// Final result codes
	OK      = "OK"
	ERROR   = "ERROR"
	Connect = "CONNECT"

	// Probe and call control
	Probe  = "AT"
	Hangup = "ATH"
	Dial   = "ATD*99#"
	Online = "ATO"
	Escape = "+++"

	// Setup commands sent verbatim
	EchoOff      = "ATE0"
	NumericCME   = "AT+CMEE=1"
	ConnectedID  = "AT+COLP=1"
	CallerID     = "AT+CLIP=1"
	ToneDetect   = "AT+QTONEDET=1"
	URCToUART    = `AT+QURCCFG="urcport","uart1"`
	NetworkInfo  = "AT+QSPN"
	Manufacturer = "AT+CGMI"
	Model        = "AT+CGMM"
	Revision     = "AT+CGMR"
	IMEI         = "AT+CGSN"
	RegCodesOff  = "AT+CREG=0"

	// Packet service
	AttachQuery  = "AT+CGATT?"
	AttachInfo   = "+CGATT:"
	ProviderInfo = "+QSPN:"
	OperatorAuto = "AT+COPS=0,0"
)

// Volume builds the loudspeaker volume command. Valid levels run 0-5;
// range checking is the caller's business.
func Volume(level int) string {
	return fmt.Sprintf("AT+CLVL=%d", level)
}

// PDPContext builds the IPv4 PDP context definition for apn.
func PDPContext(apn string) string {
	return fmt.Sprintf(`AT+CGDCONT=1,"IP","%s"`, apn)
}

// OperatorSelect builds manual operator selection by MCC+MNC digits.
func OperatorSelect(mccmnc string) string {
	return fmt.Sprintf(`AT+COPS=1,2,"%s"`, mccmnc)
}

// MuxEnable builds the multiplexer activation command. Modem families
// that support it get their DLCI slots assigned explicitly before CMUX
// is raised with the given MRU; everyone else gets the bare 27.010 form.
func MuxEnable(assignDLCI bool, mru int) string {
	if assignDLCI {
		return fmt.Sprintf("AT+CMUXSRVPORT=0,0;+CMUXSRVPORT=1,1;+CMUXSRVPORT=2,1;+CMUX=0,0,5,%d", mru)
	}
	return "AT+CMUX=0"
}
