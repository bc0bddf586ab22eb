package gsm

import "strings"

// Capacity bounds for the identity fields captured from the modem.
// Longer replies are truncated, never rejected.
const (
	maxManufacturer = 10
	maxModel        = 16
	maxRevision     = 64
	maxIMEI         = 16
	maxAPN          = 100
	maxOperator     = 6 // MCC plus MNC digits
)

// Identity is what the modem reported about itself during setup, plus
// the resolved access point name. Fields are filled in by the response
// handlers as the configuration sequence runs.
type Identity struct {
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	Revision     string `json:"revision"`
	IMEI         string `json:"imei"`
	MCCMNC       string `json:"mccmnc"`
	APN          string `json:"apn"`
}

// clip bounds s to max bytes.
func clip(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// trailingQuotedDigits joins the digit content of the trailing quoted
// fields of a comma separated reply, right to left. Network info replies
// end either in one field carrying the full code (`...,"24405"`) or in
// the MCC and MNC split across two (`...,"244","05"`).
func trailingQuotedDigits(text string) string {
	fields := strings.Split(text, ",")
	digits := ""
	for i := len(fields) - 1; i >= 0; i-- {
		f := strings.TrimSpace(fields[i])
		if len(f) < 2 || f[0] != '"' || f[len(f)-1] != '"' {
			break
		}
		f = f[1 : len(f)-1]
		if f == "" || !allDigits(f) {
			break
		}
		digits = f + digits
	}
	return digits
}
