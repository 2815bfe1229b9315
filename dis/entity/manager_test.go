package entity

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgeo/drivers/dis/dis"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeHandle struct {
	proto    Prototype
	released int
	updates  int
}

func (h *fakeHandle) Release() {
	h.released++
}

func (h *fakeHandle) Update(*dis.EntityStatePDU) {
	h.updates++
}

type recorder struct {
	handles []*fakeHandle
	created []dis.EntityID
	updated []dis.EntityID
	removed map[dis.EntityID][]RemovalReason
}

func (r *recorder) instantiate(proto Prototype, _ *dis.EntityStatePDU, _ Container) (Handle, error) {
	h := &fakeHandle{proto: proto}
	r.handles = append(r.handles, h)
	return h, nil
}

func (r *recorder) options() []Option {
	return []Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		OnCreated(func(e *RemoteEntity) { r.created = append(r.created, e.ID) }),
		OnUpdated(func(e *RemoteEntity) { r.updated = append(r.updated, e.ID) }),
		OnRemoved(func(e *RemoteEntity, reason RemovalReason) {
			r.removed[e.ID] = append(r.removed[e.ID], reason)
		}),
	}
}

func newTestManager(t *testing.T, opts ...Option) (*Manager, *recorder) {
	t.Helper()
	rec := &recorder{removed: make(map[dis.EntityID][]RemovalReason)}
	m := NewManager(NewMatcher(testTree()), InstantiatorFunc(rec.instantiate), append(rec.options(), opts...)...)
	return m, rec
}

var (
	fighterID   = dis.EntityID{Site: 1, Application: 2, Entity: 3}
	fighterType = dis.EntityType{Kind: dis.KindPlatform, Domain: 2, Country: 3}
)

func stateFor(id dis.EntityID, typ dis.EntityType) *dis.EntityStatePDU {
	return dis.NewEntityStatePDU(dis.ProtocolVersion7, 1, id, typ)
}

func TestManager_HeartbeatExpiry(t *testing.T) {
	m, rec := newTestManager(t)

	e, err := m.Apply(stateFor(fighterID, fighterType), t0)
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, Prototype("P3"), e.Prototype)
	assert.Equal(t, t0.Add(5*time.Second), e.Deadline())

	assert.Equal(t, 0, m.Tick(t0.Add(4900*time.Millisecond)))
	_, ok := m.Remote(fighterID)
	assert.True(t, ok)

	assert.Equal(t, 0, m.Tick(t0.Add(5*time.Second)), "silence equal to the heartbeat is tolerated")

	assert.Equal(t, 1, m.Tick(t0.Add(5100*time.Millisecond)))
	_, ok = m.Remote(fighterID)
	assert.False(t, ok)

	assert.Equal(t, 0, m.Tick(t0.Add(10*time.Second)))
	assert.Equal(t, []RemovalReason{RemovedExpired}, rec.removed[fighterID])
	require.Len(t, rec.handles, 1)
	assert.Equal(t, 1, rec.handles[0].released)
	assert.Equal(t, int64(1), m.Metrics().Expired.Value())
}

func TestManager_UpdateRearmsWatch(t *testing.T) {
	m, rec := newTestManager(t)

	_, err := m.Apply(stateFor(fighterID, fighterType), t0)
	require.NoError(t, err)
	e, err := m.Apply(stateFor(fighterID, fighterType), t0.Add(3*time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(2), e.Updates)
	assert.Equal(t, 1, rec.handles[0].updates)

	assert.Equal(t, 0, m.Tick(t0.Add(5100*time.Millisecond)))
	assert.Equal(t, 0, m.Tick(t0.Add(7900*time.Millisecond)))
	assert.Equal(t, 1, m.Tick(t0.Add(8100*time.Millisecond)))

	assert.Equal(t, []dis.EntityID{fighterID}, rec.created)
	assert.Equal(t, []dis.EntityID{fighterID}, rec.updated)
	assert.Len(t, rec.removed[fighterID], 1)
}

func TestManager_ExpiryOrder(t *testing.T) {
	m, _ := newTestManager(t)
	var order []dis.EntityID
	m.opts.onRemoved = append(m.opts.onRemoved, func(e *RemoteEntity, _ RemovalReason) {
		order = append(order, e.ID)
	})

	a := dis.EntityID{Site: 1, Application: 1, Entity: 1}
	b := dis.EntityID{Site: 1, Application: 1, Entity: 2}
	c := dis.EntityID{Site: 1, Application: 1, Entity: 3}
	_, _ = m.Apply(stateFor(c, fighterType), t0)
	_, _ = m.Apply(stateFor(a, fighterType), t0.Add(2*time.Second))
	_, _ = m.Apply(stateFor(b, fighterType), t0.Add(time.Second))

	next, ok := m.NextDeadline()
	require.True(t, ok)
	assert.Equal(t, t0.Add(5*time.Second), next)

	assert.Equal(t, 3, m.Tick(t0.Add(time.Minute)))
	assert.Equal(t, []dis.EntityID{c, b, a}, order)

	_, ok = m.NextDeadline()
	assert.False(t, ok)
}

func TestManager_Deactivation(t *testing.T) {
	m, rec := newTestManager(t)

	_, err := m.Apply(stateFor(fighterID, fighterType), t0)
	require.NoError(t, err)

	off := stateFor(fighterID, fighterType)
	off.Appearance = off.Appearance.WithDeactivated(true)
	e, err := m.Apply(off, t0.Add(time.Second))
	require.NoError(t, err)
	assert.Nil(t, e)

	assert.Equal(t, 0, m.RemoteCount())
	assert.Equal(t, []RemovalReason{RemovedDeactivated}, rec.removed[fighterID])
	assert.Equal(t, 1, rec.handles[0].released)

	// No stale watch fires later.
	assert.Equal(t, 0, m.Tick(t0.Add(time.Minute)))

	// A deactivated entity that was never seen is ignored.
	e, err = m.Apply(off, t0.Add(2*time.Second))
	require.NoError(t, err)
	assert.Nil(t, e)
	assert.Len(t, rec.created, 1)
}

func TestManager_UnresolvedTypeIsDropped(t *testing.T) {
	m, rec := newTestManager(t)

	e, err := m.Apply(stateFor(fighterID, dis.EntityType{Kind: dis.KindLifeForm}), t0)
	assert.ErrorIs(t, err, ErrUnresolvedEntityType)
	assert.Nil(t, e)
	assert.Equal(t, 0, m.RemoteCount())
	assert.Empty(t, rec.handles)
	assert.Equal(t, int64(1), m.Metrics().Unresolved.Value())
}

func TestManager_InstantiateFailure(t *testing.T) {
	boom := errors.New("boom")
	m := NewManager(NewMatcher(testTree()), InstantiatorFunc(func(Prototype, *dis.EntityStatePDU, Container) (Handle, error) {
		return nil, boom
	}), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	_, err := m.Apply(stateFor(fighterID, fighterType), t0)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, m.RemoteCount())
}

func TestManager_NilHandlePanics(t *testing.T) {
	m := NewManager(NewMatcher(testTree()), InstantiatorFunc(func(Prototype, *dis.EntityStatePDU, Container) (Handle, error) {
		return nil, nil
	}))
	assert.Panics(t, func() {
		_, _ = m.Apply(stateFor(fighterID, fighterType), t0)
	})
}

func TestManager_ContainerPassedToInstantiator(t *testing.T) {
	type scene struct{ name string }
	var got Container
	m := NewManager(NewMatcher(testTree()), InstantiatorFunc(func(_ Prototype, _ *dis.EntityStatePDU, c Container) (Handle, error) {
		got = c
		return &fakeHandle{}, nil
	}), WithContainer(&scene{name: "main"}))

	_, err := m.Apply(stateFor(fighterID, fighterType), t0)
	require.NoError(t, err)
	assert.Equal(t, &scene{name: "main"}, got)
}

func TestManager_LocalEntities(t *testing.T) {
	m, rec := newTestManager(t)
	h := &fakeHandle{}

	require.NoError(t, m.Join(fighterID, h))
	assert.ErrorIs(t, m.Join(fighterID, &fakeHandle{}), ErrDuplicateRegistration)
	local, ok := m.Local(fighterID)
	require.True(t, ok)
	assert.Same(t, h, local.Handle)

	// State for a locally owned identity is not tracked as remote.
	e, err := m.Apply(stateFor(fighterID, fighterType), t0)
	require.NoError(t, err)
	assert.Nil(t, e)
	assert.Equal(t, 0, m.RemoteCount())
	assert.Empty(t, rec.created)

	require.NoError(t, m.Leave(fighterID))
	assert.ErrorIs(t, m.Leave(fighterID), ErrRemovalOfUntracked)
	assert.Equal(t, 0, h.released)
	assert.Equal(t, 0, m.LocalCount())
}

func TestManager_RemoveAndClear(t *testing.T) {
	m, rec := newTestManager(t)
	other := dis.EntityID{Site: 9, Application: 9, Entity: 9}

	_, _ = m.Apply(stateFor(fighterID, fighterType), t0)
	_, _ = m.Apply(stateFor(other, fighterType), t0)

	require.NoError(t, m.Remove(fighterID))
	assert.ErrorIs(t, m.Remove(fighterID), ErrRemovalOfUntracked)
	assert.Equal(t, []RemovalReason{RemovedExplicit}, rec.removed[fighterID])

	m.Clear()
	assert.Equal(t, []RemovalReason{RemovedReset}, rec.removed[other])
	assert.Equal(t, 0, m.RemoteCount())
	assert.Equal(t, 0, m.Tick(t0.Add(time.Hour)))
}

func TestManager_RecreatedEntityGetsFreshWatch(t *testing.T) {
	m, rec := newTestManager(t)

	_, _ = m.Apply(stateFor(fighterID, fighterType), t0)
	require.NoError(t, m.Remove(fighterID))

	_, err := m.Apply(stateFor(fighterID, fighterType), t0.Add(4*time.Second))
	require.NoError(t, err)

	assert.Equal(t, 0, m.Tick(t0.Add(5100*time.Millisecond)))
	assert.Equal(t, 1, m.Tick(t0.Add(9100*time.Millisecond)))
	assert.Equal(t, []RemovalReason{RemovedExplicit, RemovedExpired}, rec.removed[fighterID])
	assert.Len(t, rec.handles, 2)
}

func TestManager_HeartbeatOption(t *testing.T) {
	m, _ := newTestManager(t, WithHeartbeatSeconds(1.5))
	assert.Equal(t, 1500*time.Millisecond, m.Heartbeat())

	_, _ = m.Apply(stateFor(fighterID, fighterType), t0)
	assert.Equal(t, 1, m.Tick(t0.Add(1600*time.Millisecond)))
}

func TestManager_SubscribeToDispatcher(t *testing.T) {
	codec, err := dis.NewCodec()
	require.NoError(t, err)
	d := dis.NewDispatcher(codec, dis.WithFilter(dis.ExerciseFilter(1)))

	now := t0
	m, rec := newTestManager(t, WithClock(func() time.Time { return now }))
	m.Subscribe(d)

	data, err := codec.Encode(stateFor(fighterID, fighterType))
	require.NoError(t, err)
	require.NoError(t, d.Dispatch(data))

	sig := dis.NewSignalPDU(dis.ProtocolVersion7, 1, dis.RadioID{Entity: fighterID, Radio: 1})
	sigData, err := codec.Encode(sig)
	require.NoError(t, err)
	require.NoError(t, d.Dispatch(sigData))

	wrongExercise := dis.NewEntityStatePDU(dis.ProtocolVersion7, 2, dis.EntityID{Site: 7}, fighterType)
	data2, err := codec.Encode(wrongExercise)
	require.NoError(t, err)
	require.NoError(t, d.Dispatch(data2))

	assert.Equal(t, []dis.EntityID{fighterID}, rec.created)
	e, ok := m.Remote(fighterID)
	require.True(t, ok)
	assert.Equal(t, t0, e.LastUpdate)

	now = t0.Add(6 * time.Second)
	assert.Equal(t, 1, m.Tick(now))
}
