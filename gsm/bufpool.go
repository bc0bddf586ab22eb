package gsm

import (
	"bytes"
	"time"
)

// bufPool hands out fixed-size receive buffers from a bounded free list.
// An empty pool bounds how much unparsed modem output the session will
// hold: once get times out the caller drops the data instead of growing.
type bufPool struct {
	free chan []byte
	size int
}

func newBufPool(count, size int) *bufPool {
	p := &bufPool{free: make(chan []byte, count), size: size}
	for i := 0; i < count; i++ {
		p.free <- make([]byte, 0, size)
	}
	return p
}

// get returns an empty buffer, waiting up to timeout for one to be
// released. ErrBufferPool reports an exhausted pool.
func (p *bufPool) get(timeout time.Duration) ([]byte, error) {
	select {
	case b := <-p.free:
		return b[:0], nil
	default:
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case b := <-p.free:
		return b[:0], nil
	case <-t.C:
		return nil, ErrBufferPool
	}
}

func (p *bufPool) put(b []byte) {
	select {
	case p.free <- b:
	default:
	}
}

// rxChain assembles received bytes into pool-backed fragments and hands
// them back one terminated line at a time. Fragments are returned to the
// pool as soon as their last byte has been consumed.
type rxChain struct {
	pool    *bufPool
	timeout time.Duration
	frags   [][]byte
	off     int // consumed bytes of frags[0]
}

func newRxChain(pool *bufPool, timeout time.Duration) *rxChain {
	return &rxChain{pool: pool, timeout: timeout}
}

// append copies data into the chain, growing it fragment by fragment.
// It reports false when the pool ran dry and data was (partially)
// dropped; whatever fit stays queued.
func (c *rxChain) append(data []byte) bool {
	for len(data) > 0 {
		if n := len(c.frags); n > 0 {
			if f := c.frags[n-1]; len(f) < cap(f) {
				take := cap(f) - len(f)
				if take > len(data) {
					take = len(data)
				}
				c.frags[n-1] = append(f, data[:take]...)
				data = data[take:]
				continue
			}
		}
		f, err := c.pool.get(c.timeout)
		if err != nil {
			return false
		}
		c.frags = append(c.frags, f)
	}
	return true
}

// nextLine pops the next CR or LF terminated line. Terminator runs
// produce empty lines, which callers skip. ok is false when no full
// line is queued yet.
func (c *rxChain) nextLine() (line string, ok bool) {
	fi, bi := c.findTerm()
	if fi < 0 {
		return "", false
	}
	var raw []byte
	for i := 0; i <= fi; i++ {
		f := c.frags[i]
		start := 0
		if i == 0 {
			start = c.off
		}
		end := len(f)
		if i == fi {
			end = bi
		}
		raw = append(raw, f[start:end]...)
	}
	c.consume(fi, bi+1)
	return string(raw), true
}

// findTerm locates the first line terminator, as fragment and byte
// indexes. Returns -1, -1 when none is queued.
func (c *rxChain) findTerm() (int, int) {
	for i, f := range c.frags {
		start := 0
		if i == 0 {
			start = c.off
		}
		if j := bytes.IndexAny(f[start:], "\r\n"); j >= 0 {
			return i, start + j
		}
	}
	return -1, -1
}

// consume drops everything before byte bi of fragment fi, releasing
// spent fragments back to the pool.
func (c *rxChain) consume(fi, bi int) {
	for i := 0; i < fi; i++ {
		c.pool.put(c.frags[i])
		c.frags[i] = nil
	}
	c.frags = c.frags[fi:]
	c.off = bi
	if len(c.frags) > 0 && c.off >= len(c.frags[0]) {
		c.pool.put(c.frags[0])
		c.frags[0] = nil
		c.frags = c.frags[1:]
		c.off = 0
	}
}
