package hub

import "sync/atomic"

type MetricsSnapshot struct {
	Participants int64
	Broadcasts   int64
	Deliveries   int64
}

// Metrics counts hub membership and explicit broadcast deliveries. Replies
// propagated through subscriptions are delivered by the agents and are not
// counted here.
type Metrics struct {
	participants atomic.Int64
	broadcasts   atomic.Int64
	deliveries   atomic.Int64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) RecordParticipants(delta int) {
	m.participants.Add(int64(delta))
}

func (m *Metrics) RecordBroadcast(deliveries int) {
	m.broadcasts.Add(1)
	m.deliveries.Add(int64(deliveries))
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Participants: m.participants.Load(),
		Broadcasts:   m.broadcasts.Load(),
		Deliveries:   m.deliveries.Load(),
	}
}
