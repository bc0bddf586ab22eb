package gsm

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"i4.energy/across/gsm_ppp/at"
)

// setupStep is one entry of the modem configuration sequence. build
// produces the command text at run time; an empty result skips the step.
type setupStep struct {
	build func() string
	cmds  []command
}

func fixed(cmd string) func() string {
	return func() string { return cmd }
}

// setupSequence is the ordered modem configuration run over the command
// channel once the channels are up. Dynamic steps read their command
// under the session lock so setters and operator lookup apply to the
// next run.
func (s *Session) setupSequence() []setupStep {
	return []setupStep{
		{build: fixed(at.EchoOff)},
		{build: fixed(at.Hangup)},
		{build: fixed(at.NumericCME)},
		{build: fixed(at.ConnectedID)},
		{build: fixed(at.CallerID)},
		{build: s.volumeCommand},
		{build: fixed(at.ToneDetect)},
		{build: fixed(at.URCToUART)},
		{build: fixed(at.NetworkInfo), cmds: []command{
			{match: at.ProviderInfo, fn: s.onNetworkInfo},
		}},
		{build: fixed(at.Manufacturer), cmds: s.capture(&s.identity.Manufacturer, maxManufacturer, "manufacturer")},
		{build: fixed(at.Model), cmds: s.capture(&s.identity.Model, maxModel, "model")},
		{build: fixed(at.Revision), cmds: s.capture(&s.identity.Revision, maxRevision, "revision")},
		{build: fixed(at.IMEI), cmds: s.capture(&s.identity.IMEI, maxIMEI, "imei")},
		{build: fixed(at.RegCodesOff)},
		{build: s.pdpCommand},
	}
}

// runSetup sends the configuration sequence, halting on the first
// failure.
func (s *Session) runSetup(ctx context.Context) error {
	for _, step := range s.setup {
		cmd := step.build()
		if cmd == "" {
			continue
		}
		if err := s.send(ctx, step.cmds, cmd, s.cfg.SetupTimeout); err != nil {
			return fmt.Errorf("setup %s: %w", cmd, err)
		}
	}
	return nil
}

// capture builds a catch-all handler that stores the response line into
// an identity field, truncated to max.
func (s *Session) capture(dst *string, max int, field string) []command {
	return []command{{fn: func(text string, _ []string) {
		v := clip(text, max)
		s.mu.Lock()
		*dst = v
		s.mu.Unlock()
		s.log.Info("modem "+field, zap.String(field, v))
		s.emit(EventIdentity, field+"="+v)
	}}}
}

// onNetworkInfo extracts the operator MCC+MNC code from the provider
// reply and resolves the automatic access point from it.
func (s *Session) onNetworkInfo(text string, _ []string) {
	code := clip(trailingQuotedDigits(text), maxOperator)
	if code == "" {
		return
	}
	s.mu.Lock()
	s.identity.MCCMNC = code
	s.mu.Unlock()
	s.log.Info("network operator", zap.String("mccmnc", code))
	s.emit(EventIdentity, "mccmnc="+code)

	apn, ok := apnForOperator(code)
	if !ok {
		return
	}
	if err := s.SetAPN(apn); err == nil {
		s.log.Info("automatic apn", zap.String("apn", apn))
	}
}

func (s *Session) volumeCommand() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volumeCmd
}

func (s *Session) pdpCommand() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pdpCmd
}

// SetAPN fixes the access point name used for the PDP context. The name
// can be committed once per session; later attempts return ErrAPNSet.
// An empty name is accepted without committing anything, leaving
// automatic operator lookup in charge.
func (s *Session) SetAPN(apn string) error {
	if apn == "" {
		s.log.Info("automatic apn selection")
		return nil
	}
	if len(apn) > maxAPN {
		return ErrConfig
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.apnSet {
		return ErrAPNSet
	}
	s.apnSet = true
	s.identity.APN = apn
	s.pdpCmd = at.PDPContext(apn)
	return nil
}

// SetVolume sets the speaker level applied by the next configuration
// run. Levels run 0 through 5.
func (s *Session) SetVolume(level int) error {
	if level < 0 || level > 5 {
		return ErrConfig
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volumeCmd = at.Volume(level)
	return nil
}
