package at

import (
	"bufio"
	"bytes"
)

// Splitter tokenizes modem output into lines. It uses the signature of
// bufio.SplitFunc so it can be used directly with bufio.Scanner, and it
// also works standalone on an accumulation buffer by passing atEOF=false
// until the stream ends.
//
// A line ends at the first CR or LF; terminator runs therefore produce
// empty tokens, which callers are expected to skip. Splitting on either
// byte keeps command echoes ("ATE0\r") and bare-CR modems parseable.
//
// The atEOF parameter indicates whether any more data will be available.
// When true, any remaining data is returned as the final token.
func Splitter(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[0:i], nil
	}

	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

var _ bufio.SplitFunc = Splitter
