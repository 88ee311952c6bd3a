// Package metrics defines the Recorder used by the concurrent cache wrappers
// to report hits, misses, sets, evictions and size changes.
package metrics

import "sync/atomic"

// Recorder receives cache events. Implementations must be safe for concurrent use.
type Recorder interface {
	IncSetNew()
	IncSetUpdate()
	IncGetHit()
	IncGetMiss()
	IncEvicted()
	IncRemoved()
	AddLen(delta int)
}

// Noop discards every event.
type Noop struct{}

func (Noop) IncSetNew()    {}
func (Noop) IncSetUpdate() {}
func (Noop) IncGetHit()    {}
func (Noop) IncGetMiss()   {}
func (Noop) IncEvicted()   {}
func (Noop) IncRemoved()   {}
func (Noop) AddLen(int)    {}

// Simple keeps in-process atomic counters.
type Simple struct {
	setNew    atomic.Uint64
	setUpdate atomic.Uint64
	getHit    atomic.Uint64
	getMiss   atomic.Uint64
	evicted   atomic.Uint64
	removed   atomic.Uint64
	length    atomic.Int64
}

// NewSimple returns a zeroed Simple recorder.
func NewSimple() *Simple { return &Simple{} }

func (m *Simple) IncSetNew()    { m.setNew.Add(1) }
func (m *Simple) IncSetUpdate() { m.setUpdate.Add(1) }
func (m *Simple) IncGetHit()    { m.getHit.Add(1) }
func (m *Simple) IncGetMiss()   { m.getMiss.Add(1) }
func (m *Simple) IncEvicted()   { m.evicted.Add(1) }
func (m *Simple) IncRemoved()   { m.removed.Add(1) }

func (m *Simple) AddLen(delta int) {
	if delta != 0 {
		m.length.Add(int64(delta))
	}
}

// Stats is a point-in-time copy of a Simple recorder.
type Stats struct {
	SetNew    uint64
	SetUpdate uint64
	GetHit    uint64
	GetMiss   uint64
	Evicted   uint64
	Removed   uint64
	Len       int64
}

// Snapshot copies the current counter values.
// Counters are read one by one, so the copy is not atomic as a whole.
func (m *Simple) Snapshot() Stats {
	return Stats{
		SetNew:    m.setNew.Load(),
		SetUpdate: m.setUpdate.Load(),
		GetHit:    m.getHit.Load(),
		GetMiss:   m.getMiss.Load(),
		Evicted:   m.evicted.Load(),
		Removed:   m.removed.Load(),
		Len:       m.length.Load(),
	}
}

// HitRatio returns hits / (hits + misses), or 0 before any read.
func (s Stats) HitRatio() float64 {
	total := s.GetHit + s.GetMiss
	if total == 0 {
		return 0
	}
	return float64(s.GetHit) / float64(total)
}
