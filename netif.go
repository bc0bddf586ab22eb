package main

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"i4.energy/across/gsm_ppp/at"
)

// pppDaemon drives a pppd process as the data carrier.
type pppDaemon struct {
	path string
	args []string
	log  *zap.Logger

	mu   sync.Mutex
	cmd  *exec.Cmd
	done chan struct{}
}

func newPPPDaemon(path string, args []string, log *zap.Logger) *pppDaemon {
	return &pppDaemon{path: path, args: args, log: log}
}

// Start launches pppd. A process already running is left alone.
func (p *pppDaemon) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.spawnLocked()
}

// Enable raises or drops the link. The engine keeps the driver started
// across restarts, so raising may find the process gone and launches a
// fresh one.
func (p *pppDaemon) Enable(up bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if up {
		return p.spawnLocked()
	}
	if !p.runningLocked() {
		return nil
	}
	if err := p.cmd.Process.Signal(syscall.SIGHUP); err != nil {
		return fmt.Errorf("signal pppd: %w", err)
	}
	return nil
}

// Stop terminates the process and waits for it to exit.
func (p *pppDaemon) Stop() error {
	p.mu.Lock()
	cmd, done := p.cmd, p.done
	running := p.runningLocked()
	p.mu.Unlock()
	if !running {
		return nil
	}
	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal pppd: %w", err)
	}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		cmd.Process.Kill()
		<-done
	}
	return nil
}

func (p *pppDaemon) running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.runningLocked()
}

func (p *pppDaemon) runningLocked() bool {
	if p.cmd == nil {
		return false
	}
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

func (p *pppDaemon) spawnLocked() error {
	if p.runningLocked() {
		return nil
	}
	cmd := exec.Command(p.path, p.args...)
	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw
	if err := cmd.Start(); err != nil {
		pw.Close()
		return fmt.Errorf("start pppd: %w", err)
	}

	done := make(chan struct{})
	p.cmd = cmd
	p.done = done
	go p.scan(pr)
	go func() {
		err := cmd.Wait()
		pw.Close()
		if err != nil {
			p.log.Warn("pppd exited", zap.Error(err))
		} else {
			p.log.Info("pppd exited")
		}
		close(done)
	}()

	p.log.Info("pppd started", zap.Int("pid", cmd.Process.Pid))
	return nil
}

// scan forwards pppd output line by line. pppd echoes chat traffic with
// bare carriage returns, so the modem line splitter applies here too.
func (p *pppDaemon) scan(r io.Reader) {
	sc := bufio.NewScanner(r)
	sc.Split(at.Splitter)
	for sc.Scan() {
		if line := sc.Text(); line != "" {
			p.log.Debug("pppd", zap.String("line", line))
		}
	}
}
