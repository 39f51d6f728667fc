// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"syscall"

	"github.com/Thermoquad/novaprobe/pkg/controller"
	"github.com/Thermoquad/novaprobe/pkg/discovery"
	"github.com/Thermoquad/novaprobe/pkg/session"
	"github.com/Thermoquad/novaprobe/pkg/simulator"
	"go.uber.org/zap"
	"golang.org/x/term"
)

// simulatorPort is the port name reported for the simulated sender
const simulatorPort = "simulator"

var (
	simOnce   sync.Once
	simDevice *simulator.Device
)

// simulatedDevice returns the process-wide simulated sender
func simulatedDevice() *simulator.Device {
	simOnce.Do(func() {
		simDevice = simulator.NewDevice(simulate)
	})
	return simDevice
}

// GetPassword retrieves password from environment or prompts user
func GetPassword() (string, error) {
	// First check environment variable
	if pw := os.Getenv("NOVAPROBE_PASSWORD"); pw != "" {
		return pw, nil
	}

	// Prompt user for password (hide input)
	fmt.Fprint(os.Stderr, "Password: ")

	// Read password without echo
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Fallback to regular input if terminal functions fail
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(os.Stderr) // newline after password
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr) // newline after password
	return string(passwordBytes), nil
}

// sessionOptions are applied to every session the CLI opens
func sessionOptions(extra ...session.Option) []session.Option {
	return append([]session.Option{session.WithLogger(logger)}, extra...)
}

// newOpener returns the link opener for the selected connection mode
func newOpener(ctx context.Context, extra ...session.Option) (discovery.Opener, error) {
	sc := cfg.SessionConfig()
	opts := sessionOptions(extra...)

	switch {
	case simulate > 0:
		dev := simulatedDevice()
		return func(name string) (discovery.Link, error) {
			return session.New(name, simulator.NewPort(dev), sc, opts...), nil
		}, nil

	case wsURL != "":
		password := ""
		if wsUsername != "" {
			var err error
			password, err = GetPassword()
			if err != nil {
				return nil, err
			}
		}
		wsOpts := session.WebSocketOptions{
			Username:      wsUsername,
			Password:      password,
			SkipSSLVerify: wsNoSSLVerify,
			Timeout:       cfg.WebSocket.Timeout,
		}
		return func(name string) (discovery.Link, error) {
			port, err := session.DialWebSocket(ctx, wsURL, wsOpts)
			if err != nil {
				return nil, err
			}
			return session.New(name, port, sc, opts...), nil
		}, nil

	default:
		return discovery.SessionOpener(sc, opts...), nil
	}
}

// candidatePorts returns the ports to search for a sender: the explicit
// port, the configured list, or every serial port on the host
func candidatePorts() ([]string, error) {
	switch {
	case simulate > 0:
		return []string{simulatorPort}, nil
	case wsURL != "":
		return []string{wsURL}, nil
	case portName != "":
		return []string{portName}, nil
	case len(cfg.Serial.Ports) > 0:
		return cfg.Serial.Ports, nil
	}

	ports, err := discovery.PortNames()
	if err != nil {
		return nil, err
	}
	if len(ports) == 0 {
		return nil, errors.New("no serial ports found")
	}
	return ports, nil
}

// connection is an open link to a sender
type connection struct {
	link discovery.Link
	port string
	id   discovery.Identity
}

func (c *connection) Close() error {
	if s, ok := c.link.(*session.Session); ok {
		stats := s.Statistics()
		logger.Debug("link statistics",
			zap.String("port", c.port),
			zap.Uint64("exchanges", stats.TotalExchanges),
			zap.Uint64("no_response", stats.NoResponses),
			zap.Uint64("errors", stats.Errors()),
		)
	}
	return c.link.Close()
}

// controller returns a controller over the link using the configured layout
func (c *connection) controller() *controller.Controller {
	return controller.New(c.link,
		controller.WithLogger(logger),
		controller.WithModuleLayout(cfg.SweepTopology().ModuleLayout()),
		controller.WithFlashWait(cfg.Flash.Wait),
	)
}

// connect opens the sender. A single candidate is opened directly; several
// are scanned and the first responding one is used.
func connect(ctx context.Context, extra ...session.Option) (*connection, error) {
	open, err := newOpener(ctx, extra...)
	if err != nil {
		return nil, err
	}
	ports, err := candidatePorts()
	if err != nil {
		return nil, err
	}

	port := ports[0]
	if len(ports) > 1 {
		scanner := discovery.NewScanner(open, discovery.WithLogger(logger))
		found, err := scanner.First(ctx, ports)
		if err != nil {
			return nil, err
		}
		port = found.Port
		logger.Info("sender found", zap.String("port", port))
	}

	link, err := open(port)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", port, err)
	}
	id, err := discovery.Identify(link, port)
	if err != nil {
		_ = link.Close()
		return nil, fmt.Errorf("%s: %w", port, err)
	}
	return &connection{link: link, port: port, id: id}, nil
}

// connectionInfo describes the selected link for headers
func connectionInfo(port string) string {
	switch {
	case simulate > 0:
		return fmt.Sprintf("Simulator: %d receivers", simulate)
	case wsURL != "":
		return fmt.Sprintf("WebSocket: %s", wsURL)
	default:
		return fmt.Sprintf("Serial: %s @ %d baud", port, baudRate)
	}
}
