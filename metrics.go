package main

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	activeRooms      prometheus.Gauge
	connectedPlayers prometheus.Gauge
	wordsSubmitted   prometheus.Counter
	eliminations     *prometheus.CounterVec
	disputesResolved *prometheus.CounterVec
}

func newMetrics(namespace string) *metrics {
	m := &metrics{
		activeRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_rooms",
			Help:      "Number of live rooms",
		}),
		connectedPlayers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connected_players",
			Help:      "Number of players currently in a room",
		}),
		wordsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "words_submitted_total",
			Help:      "Total number of accepted words",
		}),
		eliminations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "eliminations_total",
			Help:      "Total number of player eliminations",
		}, []string{"reason"}),
		disputesResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "disputes_resolved_total",
			Help:      "Total number of word disputes resolved",
		}, []string{"outcome"}),
	}

	prometheus.MustRegister(
		m.activeRooms,
		m.connectedPlayers,
		m.wordsSubmitted,
		m.eliminations,
		m.disputesResolved,
	)

	return m
}

// Registered once; rooms and tests share it.
var gameMetrics = newMetrics("wordcrush")
