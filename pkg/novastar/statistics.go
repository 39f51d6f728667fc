// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package novastar

import (
	"errors"
	"fmt"
	"time"
)

// Statistics tracks exchange outcomes and rates for one link
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	TotalExchanges   uint64
	ValidResponses   uint64
	NoResponses      uint64
	Malformed        uint64
	DeviceErrors     uint64
	DeviceTimeouts   uint64
	RequestChecksum  uint64
	AckChecksum      uint64
	InvalidCommands  uint64
	UnknownStatus    uint64
	TransportErrors  uint64
	BytesTransmitted uint64
	BytesReceived    uint64

	// Rates (calculated)
	ExchangeRate float64 // exchanges/sec
	ErrorRate    float64 // errors/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// Update records the outcome of one exchange. err is the transport error, if
// any; otherwise the response status is inspected.
func (s *Statistics) Update(request, resp []byte, err error) {
	s.TotalExchanges++
	s.BytesTransmitted += uint64(len(request))
	s.BytesReceived += uint64(len(resp))
	s.LastUpdateTime = time.Now()

	if err == nil {
		err = Validate(resp)
	}

	switch {
	case err == nil:
		s.ValidResponses++
	case errors.Is(err, ErrNoResponse):
		s.NoResponses++
	case errors.Is(err, ErrMalformedResponse):
		s.Malformed++
	case IsDeviceError(err):
		s.DeviceErrors++
		switch {
		case errors.Is(err, ErrDeviceTimeout):
			s.DeviceTimeouts++
		case errors.Is(err, ErrRequestChecksum):
			s.RequestChecksum++
		case errors.Is(err, ErrAckChecksum):
			s.AckChecksum++
		case errors.Is(err, ErrInvalidCommand):
			s.InvalidCommands++
		default:
			s.UnknownStatus++
		}
	default:
		s.TransportErrors++
	}
}

// Errors returns the number of failed exchanges, not counting absent cards
func (s *Statistics) Errors() uint64 {
	return s.Malformed + s.DeviceErrors + s.TransportErrors
}

// CalculateRates calculates exchange and error rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.ExchangeRate = float64(s.TotalExchanges) / elapsed
		s.ErrorRate = float64(s.Errors()) / elapsed
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	percent := func(n uint64) float64 {
		if s.TotalExchanges == 0 {
			return 0
		}
		return float64(n) * 100.0 / float64(s.TotalExchanges)
	}

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Exchanges:       %8d\n", s.TotalExchanges)
	result += fmt.Sprintf("Valid:           %8d (%.1f%%)\n", s.ValidResponses, percent(s.ValidResponses))

	if s.NoResponses > 0 {
		result += fmt.Sprintf("No Response:     %8d (%.1f%%)\n", s.NoResponses, percent(s.NoResponses))
	}
	if s.Malformed > 0 {
		result += fmt.Sprintf("Malformed:       %8d (%.1f%%)\n", s.Malformed, percent(s.Malformed))
	}
	if s.DeviceErrors > 0 {
		result += fmt.Sprintf("Device Errors:   %8d (%.1f%%)\n", s.DeviceErrors, percent(s.DeviceErrors))
		if s.DeviceTimeouts > 0 {
			result += fmt.Sprintf("  Timeout:          %5d\n", s.DeviceTimeouts)
		}
		if s.RequestChecksum > 0 {
			result += fmt.Sprintf("  Request Checksum: %5d\n", s.RequestChecksum)
		}
		if s.AckChecksum > 0 {
			result += fmt.Sprintf("  Ack Checksum:     %5d\n", s.AckChecksum)
		}
		if s.InvalidCommands > 0 {
			result += fmt.Sprintf("  Invalid Command:  %5d\n", s.InvalidCommands)
		}
		if s.UnknownStatus > 0 {
			result += fmt.Sprintf("  Unknown Status:   %5d\n", s.UnknownStatus)
		}
	}
	if s.TransportErrors > 0 {
		result += fmt.Sprintf("Transport Errors:%8d (%.1f%%)\n", s.TransportErrors, percent(s.TransportErrors))
	}

	result += fmt.Sprintf("Bytes TX/RX:     %8d / %d\n", s.BytesTransmitted, s.BytesReceived)
	result += fmt.Sprintf("Exchange Rate:   %8.1f /sec\n", s.ExchangeRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	*s = *NewStatistics()
}
