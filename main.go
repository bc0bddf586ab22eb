package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"i4.energy/across/gsm_ppp/gsm"
	"i4.energy/across/gsm_ppp/store"
)

func main() {
	configPath := flag.String("config", "", "Path to the TOML configuration file")
	flag.String("serial-port", "/dev/ttyUSB0", "Serial port to connect to the modem")
	flag.Int("baud-rate", 115200, "Baud rate for serial communication")
	flag.String("bind-address", "0.0.0.0:8080", "Bind address for the HTTP server")
	flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	config, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		os.Exit(1)
	}
	config.ApplyFlags(flag.CommandLine)

	logger := newLogger(config.LogLevel)
	defer logger.Sync()

	bus := newEventBus(logger.Named("bus"))

	var journal *store.Store
	if config.DatabasePath != "" {
		journal, err = store.Open(config.DatabasePath, logger.Named("store"))
		if err != nil {
			logger.Fatal("failed to open event journal", zap.Error(err))
		}
		defer journal.Close()
		if err := journal.Migrate(); err != nil {
			logger.Fatal("failed to migrate event journal", zap.Error(err))
		}

		events, cancel := bus.Subscribe(256)
		defer cancel()
		go func() {
			for e := range events {
				if err := journal.InsertEvent(context.Background(), e); err != nil {
					logger.Warn("failed to journal event", zap.Error(err))
				}
			}
		}()
	}

	builder := gsm.NewConfigBuilder().
		WithDialer(gsm.SerialDialer{
			PortName: config.Serial.Port,
			BaudRate: config.Serial.Baud,
		}).
		WithNetIf(newPPPDaemon(config.PPPD.Path, config.PPPD.Args, logger.Named("pppd"))).
		WithLogger(logger.Named("gsm")).
		WithNotify(bus.Publish).
		WithAPN(config.Modem.APN).
		WithOperator(config.Modem.Operator).
		WithFamily(familyFromName(config.Modem.Family))
	if config.Modem.Volume >= 0 {
		builder = builder.WithVolume(config.Modem.Volume)
	}
	sessionConfig, err := builder.Build()
	if err != nil {
		logger.Fatal("invalid modem configuration", zap.Error(err))
	}

	session, err := gsm.New(context.Background(), sessionConfig)
	if err != nil {
		logger.Fatal("failed to open modem", zap.Error(err))
	}

	if config.Modem.AutoStart {
		if err := session.Start(); err != nil {
			logger.Fatal("failed to start bring-up", zap.Error(err))
		}
	}

	server := &Server{
		Logger:  logger.Named("server"),
		Session: session,
		Store:   journal,
		Bus:     bus,
	}
	httpServer := &http.Server{
		Addr:    config.BindAddress,
		Handler: cors.AllowAll().Handler(server.Routes()),
	}

	// Channel to listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info("starting http server", zap.String("address", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	sig := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	logger.Info("closing modem session")
	if err := session.Close(); err != nil {
		logger.Error("failed to close modem session", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Info("closing http server")
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("failed to gracefully shut down server", zap.Error(err))
		os.Exit(1)
	}
}

func newLogger(level string) *zap.Logger {
	lvl := zapcore.InfoLevel
	switch level {
	case "debug":
		lvl = zapcore.DebugLevel
	case "info":
		lvl = zapcore.InfoLevel
	case "warn":
		lvl = zapcore.WarnLevel
	case "error":
		lvl = zapcore.ErrorLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	logger, err := cfg.Build()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to build logger:", err)
		os.Exit(1)
	}
	return logger
}
