// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package metrics exposes link and sweep health as Prometheus metrics
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Thermoquad/novaprobe/pkg/novastar"
	"github.com/Thermoquad/novaprobe/pkg/report"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exchange results
const (
	ResultOK          = "ok"
	ResultNoResponse  = "no_response"
	ResultDeviceError = "device_error"
	ResultMalformed   = "malformed"
	ResultError       = "error"
)

// NewRegistry creates a registry with the Go and process collectors
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves reg in the Prometheus exposition format
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// AppMetrics holds the novaprobe metrics
type AppMetrics struct {
	ExchangeTotal    *prometheus.CounterVec // labels: result
	ExchangeDuration prometheus.Histogram   // seconds per exchange
	SweepTotal       *prometheus.CounterVec // labels: severity
	SweepDuration    prometheus.Histogram   // seconds per sweep
	CheckSeverity    *prometheus.GaugeVec   // labels: check; value is the exit code
	ReceiversFound   prometheus.Gauge       // receivers in the last sweep
	LastSweep        prometheus.Gauge       // unix time of the last sweep
	Temperature      *prometheus.GaugeVec   // labels: lan, receiver
	Voltage          *prometheus.GaugeVec   // labels: lan, receiver
}

// NewAppMetrics registers the novaprobe metrics on reg
func NewAppMetrics(reg prometheus.Registerer) *AppMetrics {
	m := &AppMetrics{
		ExchangeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "novaprobe_exchange_total",
			Help: "Request/response exchanges by result.",
		}, []string{"result"}),
		ExchangeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "novaprobe_exchange_duration_seconds",
			Help:    "Exchange latency including the settle delay.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 0.75, 1, 2, 5},
		}),
		SweepTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "novaprobe_sweep_total",
			Help: "Completed sweeps by overall severity.",
		}, []string{"severity"}),
		SweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "novaprobe_sweep_duration_seconds",
			Help:    "Duration of a full sweep.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		CheckSeverity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "novaprobe_check_severity",
			Help: "Severity of each check in the last sweep (0 OK, 1 WARNING, 2 CRITICAL, 3 UNKNOWN).",
		}, []string{"check"}),
		ReceiversFound: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "novaprobe_receivers_found",
			Help: "Receiver cards found in the last sweep.",
		}),
		LastSweep: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "novaprobe_last_sweep_timestamp_seconds",
			Help: "Unix time the last sweep started.",
		}),
		Temperature: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "novaprobe_receiver_temperature_celsius",
			Help: "Receiver card temperature from the monitoring card.",
		}, []string{"lan", "receiver"}),
		Voltage: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "novaprobe_receiver_voltage_volts",
			Help: "Receiver card supply voltage from the monitoring card.",
		}, []string{"lan", "receiver"}),
	}
	reg.MustRegister(m.ExchangeTotal, m.ExchangeDuration, m.SweepTotal, m.SweepDuration,
		m.CheckSeverity, m.ReceiversFound, m.LastSweep, m.Temperature, m.Voltage)
	return m
}

// Classify maps an exchange outcome to its result label
func Classify(response []byte, err error) string {
	if err == nil {
		err = novastar.Validate(response)
	}
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, novastar.ErrNoResponse):
		return ResultNoResponse
	case errors.Is(err, novastar.ErrMalformedResponse):
		return ResultMalformed
	case novastar.IsDeviceError(err):
		return ResultDeviceError
	default:
		return ResultError
	}
}

// ObserveExchange records one exchange. It has the session observer
// signature.
func (m *AppMetrics) ObserveExchange(_, response []byte, err error, elapsed time.Duration) {
	m.ExchangeTotal.WithLabelValues(Classify(response, err)).Inc()
	m.ExchangeDuration.Observe(elapsed.Seconds())
}

// ObserveSnapshot records a completed sweep
func (m *AppMetrics) ObserveSnapshot(s *report.Snapshot) {
	m.SweepTotal.WithLabelValues(s.Severity().String()).Inc()
	m.SweepDuration.Observe(s.Duration.Seconds())
	m.ReceiversFound.Set(float64(s.ReceiverCount()))
	m.LastSweep.Set(float64(s.Taken.Unix()))

	for _, r := range s.Results {
		m.CheckSeverity.WithLabelValues(r.Check).Set(float64(r.Severity.ExitCode()))
	}

	m.Temperature.Reset()
	m.Voltage.Reset()
	for _, r := range s.Receivers() {
		mon, ok := r.Monitoring.Get()
		if !ok {
			continue
		}
		lan, idx := itoa(r.LAN), itoa(r.Index)
		if t, ok := mon.Temperature.Get(); ok {
			m.Temperature.WithLabelValues(lan, idx).Set(t)
		}
		if v, ok := mon.Voltage.Get(); ok {
			m.Voltage.WithLabelValues(lan, idx).Set(v)
		}
	}
}

func itoa(n uint8) string {
	return strconv.Itoa(int(n))
}
