package at_test

import (
	"bufio"
	"strings"
	"testing"

	"i4.energy/across/gsm_ppp/at"
)

func TestSplitter(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "Attach query response",
			input:    "AT+CGATT?\r\n+CGATT: 1\r\nOK\r\n",
			expected: []string{"AT+CGATT?", "", "+CGATT: 1", "", "OK", ""},
		},
		{
			name:     "Command echo with bare CR",
			input:    "ATE0\r\r\nOK\r\n",
			expected: []string{"ATE0", "", "", "OK", ""},
		},
		{
			name:     "Identity payload line",
			input:    "AT+CGMI\r\nQuectel\r\nOK\r\n",
			expected: []string{"AT+CGMI", "", "Quectel", "", "OK", ""},
		},
		{
			name:     "Dial result",
			input:    "CONNECT\r\n",
			expected: []string{"CONNECT", ""},
		},
		{
			name:     "Network info mixed with URC",
			input:    "+QSPN: \"Op\",\"Op\",\"\",0,\"24405\"\r\nRING\r\nOK\r\n",
			expected: []string{"+QSPN: \"Op\",\"Op\",\"\",0,\"24405\"", "", "RING", "", "OK", ""},
		},
		{
			name:     "Leading terminator run",
			input:    "\r\nOK\r\n",
			expected: []string{"", "", "OK", ""},
		},
		{
			name:     "Call teardown",
			input:    "RING\r\nRING\r\nNO CARRIER\r\n",
			expected: []string{"RING", "", "RING", "", "NO CARRIER", ""},
		},
		// EOF scenarios - testing atEOF functionality
		{
			name:     "Incomplete line at EOF",
			input:    "AT+CGATT?\r\n+CGATT: 1",
			expected: []string{"AT+CGATT?", "", "+CGATT: 1"},
		},
		{
			name:     "Command without terminator at EOF",
			input:    "AT",
			expected: []string{"AT"},
		},
		{
			name:     "Response cut off mid-stream at EOF",
			input:    "AT\r\nOK\r\n+CGEV: ME DETACH",
			expected: []string{"AT", "", "OK", "", "+CGEV: ME DETACH"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tokens []string
			scanner := bufio.NewScanner(strings.NewReader(tt.input))
			scanner.Split(at.Splitter)

			for scanner.Scan() {
				tokens = append(tokens, scanner.Text())
			}

			if err := scanner.Err(); err != nil {
				t.Fatalf("Scanner error: %v", err)
			}

			if len(tokens) != len(tt.expected) {
				t.Fatalf("Expected %d tokens, got %d.\nExpected: %v\nGot: %v",
					len(tt.expected), len(tokens), tt.expected, tokens)
			}

			for i, expected := range tt.expected {
				if tokens[i] != expected {
					t.Errorf("Token %d: expected %q, got %q", i, expected, tokens[i])
				}
			}
		})
	}
}
