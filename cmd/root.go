// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Thermoquad/novaprobe/internal/config"
	"github.com/Thermoquad/novaprobe/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string

	// Serial connection flags
	portName string
	baudRate int

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// simulate is the receiver count of the built-in simulated sender, 0 to
	// use real hardware
	simulate int

	cfg    *config.Config
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "novaprobe",
	Short: "Novastar LED Controller Monitor",
	Long: `Novaprobe - A CLI tool for polling Novastar LED sender and receiver cards.

Reads sender identity, input and brightness state, enumerates receiver cards on
every LAN port and checks their temperature, voltage and module status.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 115200]
  WebSocket: --url ws://host/path [--username user]
  Simulator: --simulate [receivers]

Without --port, commands that need a sender scan every serial port (or the
serial.ports list from the config file) and use the first one that answers.

Settings are read from novaprobe.yaml in . or ./configs (or --config) and
NOVAPROBE_* environment variables. Flags take precedence over both.

For WebSocket authentication, the password is read from the NOVAPROBE_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.`,
	Version:           "1.0.0",
	SilenceUsage:      true,
	PersistentPreRunE: initRuntime,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default ./novaprobe.yaml)")

	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 115200, "Baud rate (serial only)")
	rootCmd.PersistentFlags().Duration("settle", 0, "Delay between request and response read (default 500ms)")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	rootCmd.PersistentFlags().IntVar(&simulate, "simulate", 0, "Use a simulated sender with this many receivers")
	rootCmd.PersistentFlags().Lookup("simulate").NoOptDefVal = "4"

	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
}

// initRuntime loads the configuration and builds the logger. Flags that
// were set on the command line override the file and environment.
func initRuntime(cmd *cobra.Command, _ []string) error {
	loaded, err := config.Load(configPath, cmd.Flags())
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	cfg = loaded

	// Connection flags read the merged settings from here on
	portName = cfg.Serial.Port
	baudRate = cfg.Serial.BaudRate
	wsURL = cfg.WebSocket.URL
	wsUsername = cfg.WebSocket.Username
	wsNoSSLVerify = cfg.WebSocket.SkipSSLVerify

	l, err := logging.InitLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	logger = l
	return nil
}

// Execute runs the root command
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer func() { _ = logger.Sync() }()
	return rootCmd.ExecuteContext(ctx)
}
