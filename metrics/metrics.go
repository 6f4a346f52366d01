/*
 *  Copyright (c) 2024-2025 Mikhail Knyazhev <markus621@yandex.ru>. All rights reserved.
 *  Use of this source code is governed by a BSD 3-Clause license that can be found in the LICENSE file.
 */

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "echod"

// Metrics mirrors loop events into Prometheus collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	ConnectionsAccepted prometheus.Counter
	ConnectionsRejected prometheus.Counter
	ConnectionsActive   prometheus.Gauge
	DatagramsReceived   prometheus.Counter
	Requests            *prometheus.CounterVec
	WriteErrors         *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ConnectionsAccepted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_accepted_total",
			Help:      "Stream connections accepted and registered",
		}),
		ConnectionsRejected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_rejected_total",
			Help:      "Stream connections closed because registration failed",
		}),
		ConnectionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Stream connections currently open",
		}),
		DatagramsReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "datagrams_received_total",
			Help:      "Non-empty datagrams received",
		}),
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Requests dispatched by transport and command",
		}, []string{"transport", "command"}),
		WriteErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "write_errors_total",
			Help:      "Responses that could not be sent completely",
		}, []string{"transport"}),
	}
}

func (m *Metrics) Accepted() {
	if m == nil {
		return
	}
	m.ConnectionsAccepted.Inc()
	m.ConnectionsActive.Inc()
}

func (m *Metrics) Rejected() {
	if m == nil {
		return
	}
	m.ConnectionsRejected.Inc()
}

func (m *Metrics) Closed() {
	if m == nil {
		return
	}
	m.ConnectionsActive.Dec()
}

func (m *Metrics) Datagram() {
	if m == nil {
		return
	}
	m.DatagramsReceived.Inc()
}

func (m *Metrics) Request(transport, command string) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(transport, command).Inc()
}

func (m *Metrics) WriteError(transport string) {
	if m == nil {
		return
	}
	m.WriteErrors.WithLabelValues(transport).Inc()
}
