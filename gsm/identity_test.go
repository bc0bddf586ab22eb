package gsm

import "testing"

func TestTrailingQuotedDigits(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{
			name:     "single code",
			text:     ` "Elisa","Elisa","elisa",0,"24405"`,
			expected: "24405",
		},
		{
			name:     "split mcc and mnc",
			text:     ` "Verizon","VZW","VZW",0,"311","480"`,
			expected: "311480",
		},
		{
			name:     "unquoted tail",
			text:     ` "Elisa","Elisa","elisa",0,24405`,
			expected: "",
		},
		{
			name:     "letters inside quotes",
			text:     ` "Elisa","24x05"`,
			expected: "",
		},
		{
			name:     "empty reply",
			text:     "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := trailingQuotedDigits(tt.text); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestClip(t *testing.T) {
	if got := clip("beyond-ten-characters", 10); got != "beyond-ten" {
		t.Errorf("expected truncation to 10 bytes, got %q", got)
	}
	if got := clip("short", 10); got != "short" {
		t.Errorf("expected short string untouched, got %q", got)
	}
}

func TestAllDigits(t *testing.T) {
	if !allDigits("24405") {
		t.Error("expected digits to pass")
	}
	if allDigits("244a5") {
		t.Error("expected letters to fail")
	}
	if !allDigits("") {
		t.Error("expected empty string to pass vacuously")
	}
}
