package entity

import "github.com/edgeo/drivers/dis/dis"

// Metrics holds lifecycle engine metrics
type Metrics struct {
	Created             dis.Counter
	Updated             dis.Counter
	Expired             dis.Counter
	Deactivated         dis.Counter
	Removed             dis.Counter
	Unresolved          dis.Counter
	InstantiateFailures dis.Counter

	RemoteEntities dis.Gauge
	LocalEntities  dis.Gauge
}

// NewMetrics creates a new Metrics instance
func NewMetrics() *Metrics {
	return &Metrics{}
}

// Snapshot returns a snapshot of current metrics
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Created:             m.Created.Value(),
		Updated:             m.Updated.Value(),
		Expired:             m.Expired.Value(),
		Deactivated:         m.Deactivated.Value(),
		Removed:             m.Removed.Value(),
		Unresolved:          m.Unresolved.Value(),
		InstantiateFailures: m.InstantiateFailures.Value(),
		RemoteEntities:      m.RemoteEntities.Value(),
		LocalEntities:       m.LocalEntities.Value(),
	}
}

// MetricsSnapshot is a point-in-time snapshot of metrics
type MetricsSnapshot struct {
	Created             int64
	Updated             int64
	Expired             int64
	Deactivated         int64
	Removed             int64
	Unresolved          int64
	InstantiateFailures int64

	RemoteEntities int64
	LocalEntities  int64
}
