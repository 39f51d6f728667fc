// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package health turns decoded controller readings into monitoring-agent
// results with OK/WARNING/CRITICAL/UNKNOWN severities.
package health

import (
	"fmt"
	"strings"

	"github.com/Thermoquad/novaprobe/pkg/novastar"
	"go.uber.org/zap"
)

// Severity follows the monitoring plugin exit code convention
type Severity int

const (
	OK       Severity = 0
	Warning  Severity = 1
	Critical Severity = 2
	Unknown  Severity = 3
)

// String returns the upper-case severity name
func (s Severity) String() string {
	switch s {
	case OK:
		return "OK"
	case Warning:
		return "WARNING"
	case Critical:
		return "CRITICAL"
	case Unknown:
		return "UNKNOWN"
	default:
		return fmt.Sprintf("SEVERITY(%d)", int(s))
	}
}

// MarshalText encodes the severity name
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a severity name
func (s *Severity) UnmarshalText(text []byte) error {
	switch strings.ToUpper(string(text)) {
	case "OK":
		*s = OK
	case "WARNING":
		*s = Warning
	case "CRITICAL":
		*s = Critical
	case "UNKNOWN":
		*s = Unknown
	default:
		return fmt.Errorf("unknown severity %q", text)
	}
	return nil
}

// ExitCode returns the process exit code for the severity
func (s Severity) ExitCode() int {
	return int(s)
}

// rank orders severities for Worst: a critical failure outranks an unknown
// reading, which outranks a warning
func (s Severity) rank() int {
	switch s {
	case OK:
		return 0
	case Warning:
		return 1
	case Unknown:
		return 2
	default:
		return 3
	}
}

// Worse reports whether s is more severe than other
func (s Severity) Worse(other Severity) bool {
	return s.rank() > other.rank()
}

// Result is the outcome of one check
type Result struct {
	Check    string   `json:"check" yaml:"check" cbor:"check"`
	Severity Severity `json:"severity" yaml:"severity" cbor:"severity"`
	Message  string   `json:"message" yaml:"message" cbor:"message"`
}

// Alarm reports whether the result should raise an alarm
func (r Result) Alarm() bool {
	return r.Severity != OK
}

// Lines renders the monitoring-agent pair <check>_alarm and <check>_output
func (r Result) Lines() []string {
	alarm := 0
	if r.Alarm() {
		alarm = 1
	}
	return []string{
		fmt.Sprintf("%s_alarm=%d", r.Check, alarm),
		fmt.Sprintf("%s_output=%s", r.Check, r.Message),
	}
}

// Worst returns the most severe result severity, OK for none
func Worst(results []Result) Severity {
	worst := OK
	for _, r := range results {
		if r.Severity.Worse(worst) {
			worst = r.Severity
		}
	}
	return worst
}

// Combine folds per-card results of one check into a single result with the
// worst severity. Messages of non-OK results are joined; when everything is
// OK the okMessage is used.
func Combine(check, okMessage string, results []Result) Result {
	if len(results) == 0 {
		return Result{Check: check, Severity: Unknown, Message: "no readings"}
	}

	var problems []string
	for _, r := range results {
		if r.Alarm() {
			problems = append(problems, r.Message)
		}
	}
	if len(problems) == 0 {
		return Result{Check: check, Severity: OK, Message: okMessage}
	}
	return Result{Check: check, Severity: Worst(results), Message: strings.Join(problems, "; ")}
}

// Log emits every result's agent lines, at warn level for alarms
func Log(logger *zap.Logger, results []Result) {
	if logger == nil {
		return
	}
	for _, r := range results {
		fields := []zap.Field{
			zap.String("check", r.Check),
			zap.Stringer("severity", r.Severity),
			zap.String("message", r.Message),
		}
		if r.Alarm() {
			logger.Warn("check alarm", fields...)
		} else {
			logger.Info("check ok", fields...)
		}
	}
}

// Check names
const (
	CheckSender      = "sender"
	CheckDVI         = "dvi"
	CheckBrightness  = "brightness"
	CheckReceivers   = "receivers"
	CheckTemperature = "temperature"
	CheckModules     = "modules"
	CheckDisplay     = "display"
	CheckLock        = "lock"
)

// Sender is CRITICAL when no sender answered on port
func Sender(port string, found bool) Result {
	if !found {
		return Result{Check: CheckSender, Severity: Critical, Message: "no sender card found"}
	}
	return Result{Check: CheckSender, Severity: OK, Message: fmt.Sprintf("sender card found on %s", port)}
}

// DVI is CRITICAL unless the input signal is valid
func DVI(signal novastar.Field[novastar.SignalState]) Result {
	r := Result{Check: CheckDVI}
	s, ok := signal.Get()
	switch {
	case !ok:
		r.Severity, r.Message = Unknown, "DVI signal N/A"
	case s == novastar.SignalValid:
		r.Severity, r.Message = OK, "DVI signal valid"
	case s == novastar.SignalNotValid:
		r.Severity, r.Message = Critical, "DVI signal not valid"
	default:
		r.Severity, r.Message = Unknown, fmt.Sprintf("DVI signal %s", s)
	}
	return r
}

// Brightness warns when a receiver is at level 0
func Brightness(lan, card uint8, levels novastar.Field[novastar.BrightnessLevels]) Result {
	r := Result{Check: CheckBrightness}
	b, ok := levels.Get()
	switch {
	case !ok:
		r.Severity, r.Message = Unknown, fmt.Sprintf("%s brightness N/A", cardName(lan, card))
	case b.Level == 0:
		r.Severity, r.Message = Warning, fmt.Sprintf("%s brightness is 0", cardName(lan, card))
	default:
		r.Severity, r.Message = OK, fmt.Sprintf("%s brightness %d%%", cardName(lan, card), b.Percent)
	}
	return r
}

// Receivers is CRITICAL when found differs from a positive expected count
func Receivers(found, expected int) Result {
	msg := fmt.Sprintf("NO of receiver cards %d EXPECTED %d", found, expected)
	if expected <= 0 {
		return Result{Check: CheckReceivers, Severity: OK, Message: fmt.Sprintf("NO of receiver cards %d", found)}
	}
	if found != expected {
		return Result{Check: CheckReceivers, Severity: Critical, Message: msg}
	}
	return Result{Check: CheckReceivers, Severity: OK, Message: msg}
}

// Temperature is CRITICAL when a card with a monitoring card reports an
// invalid temperature or voltage
func Temperature(lan, card uint8, mon novastar.Field[novastar.Monitoring]) Result {
	r := Result{Check: CheckTemperature}
	name := cardName(lan, card)
	m, ok := mon.Get()
	switch {
	case !ok:
		r.Severity, r.Message = Unknown, fmt.Sprintf("%s monitoring N/A", name)
	case !m.CardPresent:
		r.Severity, r.Message = OK, fmt.Sprintf("%s has no monitoring card", name)
	case !m.Temperature.Valid() || !m.Voltage.Valid():
		r.Severity = Critical
		r.Message = fmt.Sprintf("%s temperature %s voltage %s invalid", name, m.Temperature, m.Voltage)
	default:
		r.Severity = OK
		r.Message = fmt.Sprintf("%s temperature %.1f°C voltage %.1fV", name, m.Temperature.Or(0), m.Voltage.Or(0))
	}
	return r
}

// Modules is CRITICAL when any module reports an error or a signal line
// fault. Modules in an unknown state pass and are counted in the message.
func Modules(lan, card uint8, status novastar.Field[[]novastar.ModuleReport]) Result {
	r := Result{Check: CheckModules}
	name := cardName(lan, card)
	reports, ok := status.Get()
	if !ok {
		r.Severity, r.Message = Unknown, fmt.Sprintf("%s module status N/A", name)
		return r
	}

	var bad []string
	unknown := 0
	for _, m := range reports {
		if !m.Status.Faulty() {
			if !m.Status.Healthy() {
				unknown++
			}
			continue
		}
		detail := fmt.Sprintf("module %d %s", m.Index, m.Status)
		if lines := m.FaultyLines(); len(lines) > 0 {
			detail += " [" + strings.Join(lines, ",") + "]"
		}
		bad = append(bad, detail)
	}
	if len(bad) > 0 {
		r.Severity, r.Message = Critical, fmt.Sprintf("%s %s", name, strings.Join(bad, ", "))
		return r
	}
	r.Severity, r.Message = OK, fmt.Sprintf("%s %d modules OK", name, len(reports))
	if unknown > 0 {
		r.Message += fmt.Sprintf(" (%d in unknown state)", unknown)
	}
	return r
}

// Display warns when a receiver's output is switched off
func Display(lan, card uint8, kill novastar.Field[novastar.KillState]) Result {
	r := Result{Check: CheckDisplay}
	name := cardName(lan, card)
	k, ok := kill.Get()
	switch {
	case !ok || k == novastar.KillUnknown:
		r.Severity, r.Message = Unknown, fmt.Sprintf("%s display state %s", name, kill)
	case k == novastar.KillOff:
		r.Severity, r.Message = Warning, fmt.Sprintf("%s display is off", name)
	default:
		r.Severity, r.Message = OK, fmt.Sprintf("%s display is on", name)
	}
	return r
}

// Lock warns when a receiver is locked
func Lock(lan, card uint8, lock novastar.Field[novastar.LockState]) Result {
	r := Result{Check: CheckLock}
	name := cardName(lan, card)
	l, ok := lock.Get()
	switch {
	case !ok || l == novastar.LockUnknown:
		r.Severity, r.Message = Unknown, fmt.Sprintf("%s lock state %s", name, lock)
	case l == novastar.LockLocked:
		r.Severity, r.Message = Warning, fmt.Sprintf("%s is locked", name)
	default:
		r.Severity, r.Message = OK, fmt.Sprintf("%s is not locked", name)
	}
	return r
}

func cardName(lan, card uint8) string {
	return fmt.Sprintf("LAN %d receiver %d", lan, card)
}
