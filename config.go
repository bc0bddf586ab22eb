package main

import (
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"i4.energy/across/gsm_ppp/gsm"
)

// Config holds the daemon configuration.
type Config struct {
	// BindAddress is the address the HTTP server listens on (e.g. "0.0.0.0:8080")
	BindAddress string `mapstructure:"bind_address"`
	// LogLevel sets the logging level (e.g. "debug", "info", "warn", "error")
	LogLevel string `mapstructure:"log_level"`
	// DatabasePath is the SQLite event journal; empty disables journaling
	DatabasePath string `mapstructure:"database_path"`

	Serial SerialConfig `mapstructure:"serial"`
	Modem  ModemConfig  `mapstructure:"modem"`
	PPPD   PPPDConfig   `mapstructure:"pppd"`
}

// SerialConfig selects the modem port.
type SerialConfig struct {
	// Port is the path to the modem's serial port (e.g. "/dev/ttyUSB0")
	Port string `mapstructure:"port"`
	// Baud is the baud rate for serial communication (e.g. 115200)
	Baud int `mapstructure:"baud"`
}

// ModemConfig carries bring-up settings handed to the engine.
type ModemConfig struct {
	// APN fixes the packet data access point; empty selects one from the
	// reported operator
	APN string `mapstructure:"apn"`
	// Operator forces registration to an MCC+MNC code; empty keeps
	// automatic selection
	Operator string `mapstructure:"operator"`
	// Volume is the speaker level 0 to 5; -1 leaves it alone
	Volume int `mapstructure:"volume"`
	// Family names the modem family ("generic" or "simcom-lte")
	Family string `mapstructure:"family"`
	// AutoStart begins bring-up as soon as the daemon is up
	AutoStart bool `mapstructure:"autostart"`
}

// PPPDConfig points at the pppd binary driven as the data carrier.
type PPPDConfig struct {
	Path string   `mapstructure:"path"`
	Args []string `mapstructure:"args"`
}

// LoadConfig reads configuration from a TOML file and the environment.
// Environment overrides use the GSMPPP_ prefix with dots replaced by
// underscores, GSMPPP_SERIAL_PORT for serial.port and so on. A file
// named explicitly must exist; the default locations are optional.
func LoadConfig(path string) (Config, error) {
	v := viper.New()

	v.SetDefault("bind_address", "0.0.0.0:8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("database_path", "gsm-ppp.db")
	v.SetDefault("serial.port", "/dev/ttyUSB0")
	v.SetDefault("serial.baud", 115200)
	v.SetDefault("modem.apn", "")
	v.SetDefault("modem.operator", "")
	v.SetDefault("modem.volume", -1)
	v.SetDefault("modem.family", "generic")
	v.SetDefault("modem.autostart", true)
	v.SetDefault("pppd.path", "/usr/sbin/pppd")
	v.SetDefault("pppd.args", []string{"nodetach", "noauth"})

	v.SetConfigType("toml")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.AddConfigPath("/etc/gsm-ppp")
		v.AddConfigPath(".")
		v.SetConfigName("config")
		_ = v.ReadInConfig()
	}

	v.SetEnvPrefix("GSMPPP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

// ApplyFlags overrides configuration with flags set on the command line.
func (c *Config) ApplyFlags(fSet *flag.FlagSet) {
	fSet.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "bind-address":
			c.BindAddress = f.Value.String()
		case "serial-port":
			c.Serial.Port = f.Value.String()
		case "baud-rate":
			if b, err := strconv.Atoi(f.Value.String()); err == nil {
				c.Serial.Baud = b
			}
		case "log-level":
			c.LogLevel = f.Value.String()
		}
	})
}

// familyFromName maps the configured family name onto the engine value.
func familyFromName(name string) gsm.Family {
	if name == "simcom-lte" {
		return gsm.FamilySimcomLTE
	}
	return gsm.FamilyGeneric
}
