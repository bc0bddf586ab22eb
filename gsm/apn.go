package gsm

// apnTable maps operator MCC+MNC codes to the access point used for the
// PDP context when none was configured by hand. Resolved entries still
// go through the one-shot gate in SetAPN, so a manual name always wins.
var apnTable = map[string]string{
	"24405":  "internet",          // Elisa FI
	"24412":  "internet",          // DNA FI
	"24491":  "internet",          // Telia FI
	"23415":  "internet",          // Vodafone UK
	"23410":  "mobile.o2.co.uk",   // O2 UK
	"26201":  "internet.t-mobile", // Telekom DE
	"26202":  "web.vodafone.de",   // Vodafone DE
	"20416":  "portalmmm.nl",      // T-Mobile NL
	"310260": "fast.t-mobile.com", // T-Mobile US
	"310410": "broadband",         // AT&T US
	"311480": "vzwinternet",       // Verizon US
	"50501":  "telstra.internet",  // Telstra AU
}

// apnForOperator resolves the automatic access point for an operator.
func apnForOperator(mccmnc string) (string, bool) {
	apn, ok := apnTable[mccmnc]
	return apn, ok
}
