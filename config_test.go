package main

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"i4.energy/across/gsm_ppp/gsm"
)

func TestLoadConfigDefaults(t *testing.T) {
	c, err := LoadConfig("")
	if err != nil {
		t.Fatalf("unexpected error from LoadConfig: %v", err)
	}

	if c.BindAddress != "0.0.0.0:8080" {
		t.Errorf("expected the default bind address, got %q", c.BindAddress)
	}
	if c.LogLevel != "info" {
		t.Errorf("expected log level info, got %q", c.LogLevel)
	}
	if c.Serial.Port != "/dev/ttyUSB0" || c.Serial.Baud != 115200 {
		t.Errorf("unexpected serial defaults: %q %d", c.Serial.Port, c.Serial.Baud)
	}
	if c.Modem.Volume != -1 {
		t.Errorf("expected the speaker level untouched by default, got %d", c.Modem.Volume)
	}
	if c.Modem.Family != "generic" {
		t.Errorf("expected family generic, got %q", c.Modem.Family)
	}
	if !c.Modem.AutoStart {
		t.Error("expected autostart on by default")
	}
	if c.PPPD.Path != "/usr/sbin/pppd" {
		t.Errorf("expected the default pppd path, got %q", c.PPPD.Path)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("GSMPPP_SERIAL_PORT", "/dev/ttyACM3")
	t.Setenv("GSMPPP_BIND_ADDRESS", "127.0.0.1:9999")
	t.Setenv("GSMPPP_MODEM_APN", "iot.example")

	c, err := LoadConfig("")
	if err != nil {
		t.Fatalf("unexpected error from LoadConfig: %v", err)
	}
	if c.Serial.Port != "/dev/ttyACM3" {
		t.Errorf("expected the env serial port, got %q", c.Serial.Port)
	}
	if c.BindAddress != "127.0.0.1:9999" {
		t.Errorf("expected the env bind address, got %q", c.BindAddress)
	}
	if c.Modem.APN != "iot.example" {
		t.Errorf("expected the env apn, got %q", c.Modem.APN)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
bind_address = "127.0.0.1:9090"
log_level = "debug"

[serial]
port = "/dev/ttyS1"
baud = 921600

[modem]
apn = "m2m.example"
volume = 2
family = "simcom-lte"
autostart = false
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	c, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error from LoadConfig: %v", err)
	}
	if c.BindAddress != "127.0.0.1:9090" {
		t.Errorf("expected the file bind address, got %q", c.BindAddress)
	}
	if c.LogLevel != "debug" {
		t.Errorf("expected log level debug, got %q", c.LogLevel)
	}
	if c.Serial.Port != "/dev/ttyS1" || c.Serial.Baud != 921600 {
		t.Errorf("unexpected serial settings: %q %d", c.Serial.Port, c.Serial.Baud)
	}
	if c.Modem.APN != "m2m.example" || c.Modem.Volume != 2 {
		t.Errorf("unexpected modem settings: %q %d", c.Modem.APN, c.Modem.Volume)
	}
	if c.Modem.Family != "simcom-lte" {
		t.Errorf("expected family simcom-lte, got %q", c.Modem.Family)
	}
	if c.Modem.AutoStart {
		t.Error("expected autostart off")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Error("expected an error for a missing explicit config file")
	}
}

func TestApplyFlags(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.String("serial-port", "/dev/ttyUSB0", "")
	fs.Int("baud-rate", 115200, "")
	fs.String("bind-address", "0.0.0.0:8080", "")
	fs.String("log-level", "info", "")
	if err := fs.Parse([]string{"-serial-port", "/dev/ttyACM1", "-log-level", "debug"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	c, err := LoadConfig("")
	if err != nil {
		t.Fatalf("unexpected error from LoadConfig: %v", err)
	}
	c.ApplyFlags(fs)

	if c.Serial.Port != "/dev/ttyACM1" {
		t.Errorf("expected the flag serial port, got %q", c.Serial.Port)
	}
	if c.LogLevel != "debug" {
		t.Errorf("expected log level debug, got %q", c.LogLevel)
	}
	if c.Serial.Baud != 115200 {
		t.Errorf("expected the baud rate untouched, got %d", c.Serial.Baud)
	}
	if c.BindAddress != "0.0.0.0:8080" {
		t.Errorf("expected the bind address untouched, got %q", c.BindAddress)
	}
}

func TestFamilyFromName(t *testing.T) {
	if got := familyFromName("simcom-lte"); got != gsm.FamilySimcomLTE {
		t.Errorf("familyFromName(simcom-lte) = %v", got)
	}
	if got := familyFromName("generic"); got != gsm.FamilyGeneric {
		t.Errorf("familyFromName(generic) = %v", got)
	}
	if got := familyFromName(""); got != gsm.FamilyGeneric {
		t.Errorf("familyFromName(\"\") = %v", got)
	}
}
