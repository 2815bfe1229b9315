// Copyright 2025 Edgeo SCADA
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package entity

import (
	"container/heap"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/edgeo/drivers/dis/dis"
)

// Handle is the application object bound to a tracked entity
type Handle interface {
	// Release is called once, after the entity has left the manager.
	Release()
}

// Updater is implemented by handles that want each new entity state
type Updater interface {
	Update(es *dis.EntityStatePDU)
}

// Instantiator builds the application object for a newly discovered remote entity
type Instantiator interface {
	Instantiate(proto Prototype, es *dis.EntityStatePDU, c Container) (Handle, error)
}

// InstantiatorFunc adapts a function to Instantiator
type InstantiatorFunc func(proto Prototype, es *dis.EntityStatePDU, c Container) (Handle, error)

// Instantiate calls f
func (f InstantiatorFunc) Instantiate(proto Prototype, es *dis.EntityStatePDU, c Container) (Handle, error) {
	return f(proto, es, c)
}

// RemoteEntity is an entity owned by another simulation
type RemoteEntity struct {
	Hash       uint64
	ID         dis.EntityID
	Prototype  Prototype
	State      *dis.EntityStatePDU
	FirstSeen  time.Time
	LastUpdate time.Time
	Updates    int64
	Handle     Handle

	deadline time.Time
	index    int
}

// Deadline returns the instant after which the entity expires
func (e *RemoteEntity) Deadline() time.Time {
	return e.deadline
}

// LocalEntity is an entity owned by this application
type LocalEntity struct {
	Hash   uint64
	ID     dis.EntityID
	Handle Handle
}

// Manager tracks local and remote entities.
// It is not safe for concurrent use; drive it from a single goroutine.
type Manager struct {
	matcher *Matcher
	inst    Instantiator
	opts    *managerOptions
	metrics *Metrics
	logger  *slog.Logger

	remotes map[uint64]*RemoteEntity
	locals  map[uint64]*LocalEntity
	expiry  expiryQueue
}

// NewManager creates a lifecycle manager
func NewManager(matcher *Matcher, inst Instantiator, opts ...Option) *Manager {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}
	if matcher == nil {
		matcher = NewMatcher(nil)
	}
	metrics := options.metrics
	if metrics == nil {
		metrics = NewMetrics()
	}
	logger := options.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		matcher: matcher,
		inst:    inst,
		opts:    options,
		metrics: metrics,
		logger:  logger.With("component", "entity-manager"),
		remotes: make(map[uint64]*RemoteEntity),
		locals:  make(map[uint64]*LocalEntity),
	}
}

// Matcher returns the prototype matcher
func (m *Manager) Matcher() *Matcher {
	return m.matcher
}

// Metrics returns the manager metrics
func (m *Manager) Metrics() *Metrics {
	return m.metrics
}

// Heartbeat returns the expiry interval
func (m *Manager) Heartbeat() time.Duration {
	return m.opts.heartbeat
}

// Apply processes an entity state received at now.
// It returns the tracked entity, or nil when the PDU was ignored or removed it.
func (m *Manager) Apply(es *dis.EntityStatePDU, now time.Time) (*RemoteEntity, error) {
	if es == nil {
		return nil, dis.ErrNilPDU
	}
	hash := es.EntityID.Hash()

	if _, ok := m.locals[hash]; ok {
		m.logger.Debug("ignoring state for local entity", slog.String("entity", es.EntityID.String()))
		return nil, nil
	}

	e, tracked := m.remotes[hash]

	if es.Appearance.Deactivated() {
		if tracked {
			m.metrics.Deactivated.Inc()
			m.remove(e, RemovedDeactivated)
		}
		return nil, nil
	}

	if tracked {
		m.update(e, es, now)
		return e, nil
	}
	return m.create(hash, es, now)
}

func (m *Manager) create(hash uint64, es *dis.EntityStatePDU, now time.Time) (*RemoteEntity, error) {
	proto, ok := m.matcher.FindBestMatch(es.EntityType)
	if !ok {
		m.metrics.Unresolved.Inc()
		err := fmt.Errorf("%w: %s (entity %s)", ErrUnresolvedEntityType, es.EntityType, es.EntityID)
		m.logger.Warn("dropping entity state", slog.String("error", err.Error()))
		return nil, err
	}

	var h Handle
	if m.inst != nil {
		var err error
		h, err = m.inst.Instantiate(proto, es, m.opts.container)
		if err != nil {
			m.metrics.InstantiateFailures.Inc()
			m.logger.Warn("instantiation failed",
				slog.String("entity", es.EntityID.String()),
				slog.String("prototype", string(proto)),
				slog.String("error", err.Error()))
			return nil, fmt.Errorf("instantiating %s for %s: %w", proto, es.EntityID, err)
		}
		if h == nil {
			panic(fmt.Sprintf("entity: instantiator returned nil handle for prototype %q", proto))
		}
	}

	e := &RemoteEntity{
		Hash:       hash,
		ID:         es.EntityID,
		Prototype:  proto,
		State:      es,
		FirstSeen:  now,
		LastUpdate: now,
		Updates:    1,
		Handle:     h,
		deadline:   now.Add(m.opts.heartbeat),
	}
	m.remotes[hash] = e
	heap.Push(&m.expiry, e)

	m.metrics.Created.Inc()
	m.metrics.RemoteEntities.Set(int64(len(m.remotes)))
	m.logger.Debug("remote entity created",
		slog.String("entity", e.ID.String()),
		slog.String("prototype", string(proto)))

	for _, fn := range m.opts.onCreated {
		fn(e)
	}
	return e, nil
}

func (m *Manager) update(e *RemoteEntity, es *dis.EntityStatePDU, now time.Time) {
	e.State = es
	e.Updates++
	if now.After(e.LastUpdate) {
		e.LastUpdate = now
		e.deadline = now.Add(m.opts.heartbeat)
		heap.Fix(&m.expiry, e.index)
	}
	if u, ok := e.Handle.(Updater); ok {
		u.Update(es)
	}

	m.metrics.Updated.Inc()
	for _, fn := range m.opts.onUpdated {
		fn(e)
	}
}

// Tick expires every remote entity silent for longer than the heartbeat.
// It returns the number of entities removed.
func (m *Manager) Tick(now time.Time) int {
	removed := 0
	for {
		e := m.expiry.peek()
		if e == nil || !now.After(e.deadline) {
			break
		}
		m.metrics.Expired.Inc()
		m.logger.Debug("remote entity expired",
			slog.String("entity", e.ID.String()),
			slog.Duration("silence", now.Sub(e.LastUpdate)))
		m.remove(e, RemovedExpired)
		removed++
	}
	return removed
}

// Remove drops a remote entity on request
func (m *Manager) Remove(id dis.EntityID) error {
	e, ok := m.remotes[id.Hash()]
	if !ok {
		err := fmt.Errorf("%w: remote %s", ErrRemovalOfUntracked, id)
		m.logger.Warn("remove failed", slog.String("error", err.Error()))
		return err
	}
	m.remove(e, RemovedExplicit)
	return nil
}

// Clear removes every remote entity
func (m *Manager) Clear() {
	for _, e := range m.Remotes() {
		m.remove(e, RemovedReset)
	}
}

// remove takes e out of the map and the expiry queue, notifies listeners
// and then releases the handle.
func (m *Manager) remove(e *RemoteEntity, reason RemovalReason) {
	if cur, ok := m.remotes[e.Hash]; !ok || cur != e {
		return
	}
	delete(m.remotes, e.Hash)
	if e.index >= 0 && e.index < len(m.expiry) && m.expiry[e.index] == e {
		heap.Remove(&m.expiry, e.index)
	}
	e.index = -1

	m.metrics.Removed.Inc()
	m.metrics.RemoteEntities.Set(int64(len(m.remotes)))
	m.logger.Debug("remote entity removed",
		slog.String("entity", e.ID.String()),
		slog.String("reason", reason.String()))

	for _, fn := range m.opts.onRemoved {
		fn(e, reason)
	}
	if e.Handle != nil {
		e.Handle.Release()
	}
}

// Join registers a locally owned entity
func (m *Manager) Join(id dis.EntityID, h Handle) error {
	hash := id.Hash()
	if _, ok := m.locals[hash]; ok {
		err := fmt.Errorf("%w: local %s", ErrDuplicateRegistration, id)
		m.logger.Warn("join ignored", slog.String("error", err.Error()))
		return err
	}
	m.locals[hash] = &LocalEntity{Hash: hash, ID: id, Handle: h}
	m.metrics.LocalEntities.Set(int64(len(m.locals)))
	return nil
}

// Leave unregisters a locally owned entity. The handle stays with the caller.
func (m *Manager) Leave(id dis.EntityID) error {
	hash := id.Hash()
	if _, ok := m.locals[hash]; !ok {
		err := fmt.Errorf("%w: local %s", ErrRemovalOfUntracked, id)
		m.logger.Warn("leave failed", slog.String("error", err.Error()))
		return err
	}
	delete(m.locals, hash)
	m.metrics.LocalEntities.Set(int64(len(m.locals)))
	return nil
}

// Remote returns a tracked remote entity
func (m *Manager) Remote(id dis.EntityID) (*RemoteEntity, bool) {
	e, ok := m.remotes[id.Hash()]
	return e, ok
}

// Local returns a registered local entity
func (m *Manager) Local(id dis.EntityID) (*LocalEntity, bool) {
	e, ok := m.locals[id.Hash()]
	return e, ok
}

// Remotes returns the tracked remote entities ordered by hash
func (m *Manager) Remotes() []*RemoteEntity {
	out := make([]*RemoteEntity, 0, len(m.remotes))
	for _, e := range m.remotes {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hash < out[j].Hash })
	return out
}

// Locals returns the registered local entities ordered by hash
func (m *Manager) Locals() []*LocalEntity {
	out := make([]*LocalEntity, 0, len(m.locals))
	for _, e := range m.locals {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hash < out[j].Hash })
	return out
}

// RemoteCount returns the number of tracked remote entities
func (m *Manager) RemoteCount() int {
	return len(m.remotes)
}

// LocalCount returns the number of registered local entities
func (m *Manager) LocalCount() int {
	return len(m.locals)
}

// NextDeadline returns the earliest expiry instant, if any entity is tracked
func (m *Manager) NextDeadline() (time.Time, bool) {
	e := m.expiry.peek()
	if e == nil {
		return time.Time{}, false
	}
	return e.deadline, true
}

// Now reads the manager clock. Callers driving Tick from a loop should
// use it so that deadlines and ticks share one time source.
func (m *Manager) Now() time.Time {
	return m.opts.clock()
}

// Subscribe feeds entity state PDUs from d into the manager using its clock
func (m *Manager) Subscribe(d *dis.Dispatcher) {
	d.Subscribe(dis.PDUTypeEntityState, func(pdu dis.PDU) {
		es, ok := pdu.(*dis.EntityStatePDU)
		if !ok {
			return
		}
		// Errors are logged and counted by Apply.
		_, _ = m.Apply(es, m.Now())
	})
}
