package service_test

import (
	"context"
	"errors"
	"sync"

	"github.com/bruhnn/BD2ModPreview-sub001/internal/modules/playback/domain"
	"github.com/bruhnn/BD2ModPreview-sub001/internal/modules/playback/dto"
	playbackout "github.com/bruhnn/BD2ModPreview-sub001/internal/modules/playback/port/out"
	"github.com/bruhnn/BD2ModPreview-sub001/internal/modules/playback/service"
)

type fakeCamera struct {
	state domain.CameraState
}

func (c *fakeCamera) State() domain.CameraState { return c.state }
func (c *fakeCamera) SetZoom(zoom float64)      { c.state.Zoom = zoom }
func (c *fakeCamera) Pan(dx, dy float64) {
	c.state.PanX += dx
	c.state.PanY += dy
}
func (c *fakeCamera) Reset() { c.state = domain.CameraState{Zoom: 1} }

type fakeTrack struct {
	name string
	loop bool
}

func (t fakeTrack) Name() string      { return t.name }
func (t fakeTrack) Loop() bool        { return t.loop }
func (t fakeTrack) OnComplete(func()) {}

type appliedAnimation struct {
	name string
	loop bool
}

type fakeEngine struct {
	anims        []string
	disposeErr   error
	disposePanic bool
	setupPanic   bool
	setAnimErr   error

	disposed int
	playing  bool
	posed    int
	applied  []appliedAnimation
	camera   *fakeCamera
}

func (e *fakeEngine) Dispose() error {
	e.disposed++
	if e.disposePanic {
		panic("dispose exploded")
	}
	return e.disposeErr
}

func (e *fakeEngine) Play()  { e.playing = true }
func (e *fakeEngine) Pause() { e.playing = false }

func (e *fakeEngine) SetToSetupPose() {
	if e.setupPanic {
		panic("skeleton not ready")
	}
	e.posed++
}

func (e *fakeEngine) Animations() []string { return e.anims }

func (e *fakeEngine) SetAnimation(name string, loop bool) (playbackout.Track, error) {
	if e.setAnimErr != nil {
		return nil, e.setAnimErr
	}
	e.applied = append(e.applied, appliedAnimation{name: name, loop: loop})
	return fakeTrack{name: name, loop: loop}, nil
}

func (e *fakeEngine) Camera() playbackout.Camera {
	if e.camera == nil {
		e.camera = &fakeCamera{state: domain.CameraState{Zoom: 1}}
	}
	return e.camera
}

// fakeFactory records every construction; tests drive the callbacks by index.
type fakeFactory struct {
	mu        sync.Mutex
	err       error
	panics    bool
	prepare   func(i int, e *fakeEngine)
	configs   []domain.EngineConfig
	targets   []domain.RenderTarget
	engines   []*fakeEngine
	callbacks []playbackout.Callbacks
}

func (f *fakeFactory) New(_ context.Context, target domain.RenderTarget, cfg domain.EngineConfig, cb playbackout.Callbacks) (playbackout.Engine, error) {
	if f.panics {
		panic("webgl unavailable")
	}
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	e := &fakeEngine{anims: []string{"idle", "All", "touch"}}
	if f.prepare != nil {
		f.prepare(len(f.engines), e)
	}
	f.configs = append(f.configs, cfg)
	f.targets = append(f.targets, target)
	f.engines = append(f.engines, e)
	f.callbacks = append(f.callbacks, cb)
	f.mu.Unlock()
	return e, nil
}

func (f *fakeFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.engines)
}

func (f *fakeFactory) succeed(i int) {
	f.mu.Lock()
	cb, e := f.callbacks[i], f.engines[i]
	f.mu.Unlock()
	cb.OnSuccess(e)
}

func (f *fakeFactory) fail(i int, message string) {
	f.mu.Lock()
	cb, e := f.callbacks[i], f.engines[i]
	f.mu.Unlock()
	cb.OnError(e, message)
}

type fakeInspector struct {
	meta  domain.AssetMetadata
	err   error
	calls int
}

func (i *fakeInspector) Inspect(_ context.Context, _ string) (domain.AssetMetadata, error) {
	i.calls++
	return i.meta, i.err
}

type fakeLookup map[string]string

func (l fakeLookup) ResolveCharacterIDForDatingID(_ context.Context, datingID string) (string, bool) {
	id, ok := l[datingID]
	return id, ok
}

type recorded struct {
	source   domain.SourceDescriptor
	identity domain.Identity
}

type fakeHistory struct {
	mu      sync.Mutex
	records []recorded
	err     error
}

func (h *fakeHistory) Record(_ context.Context, source domain.SourceDescriptor, identity domain.Identity) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, recorded{source: source, identity: identity})
	return h.err
}

func (h *fakeHistory) List(context.Context) ([]dto.HistoryEntry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]dto.HistoryEntry, 0, len(h.records))
	for i, r := range h.records {
		out = append(out, dto.HistoryEntry{ID: int64(i + 1), Kind: string(r.source.Kind), Path: r.source.Path})
	}
	return out, nil
}

func (h *fakeHistory) Remove(context.Context, int64) error { return nil }
func (h *fakeHistory) Clear(context.Context) error         { return nil }

func (h *fakeHistory) snapshot() []recorded {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]recorded(nil), h.records...)
}

type fakeRepair struct {
	mu        sync.Mutex
	listeners map[int]func(domain.RepairEvent)
	next      int
	events    []domain.RepairEvent
	err       error
	panics    bool
	onStart   func()
}

func (r *fakeRepair) Subscribe(fn func(domain.RepairEvent)) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listeners == nil {
		r.listeners = map[int]func(domain.RepairEvent){}
	}
	id := r.next
	r.next++
	r.listeners[id] = fn
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.listeners, id)
	}
}

func (r *fakeRepair) StartRepair(_ context.Context, _ string) error {
	if r.panics {
		panic("disk full")
	}
	r.mu.Lock()
	fns := make([]func(domain.RepairEvent), 0, len(r.listeners))
	for _, fn := range r.listeners {
		fns = append(fns, fn)
	}
	r.mu.Unlock()
	for _, ev := range r.events {
		for _, fn := range fns {
			fn(ev)
		}
	}
	if r.onStart != nil {
		r.onStart()
	}
	return r.err
}

func (r *fakeRepair) listenerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.listeners)
}

var errBoom = errors.New("boom")

type harness struct {
	controller *service.Controller
	factory    *fakeFactory
	inspector  *fakeInspector
	history    *fakeHistory
	repair     *fakeRepair
}

func newHarness() *harness {
	h := &harness{
		factory:   &fakeFactory{},
		inspector: &fakeInspector{},
		history:   &fakeHistory{},
		repair:    &fakeRepair{},
	}
	h.controller = service.NewController(service.ControllerDeps{
		Resolver: service.NewResolver(h.inspector, fakeLookup{"12": "000104"}, nil),
		Engines:  h.factory,
		History:  h.history,
		Repair:   h.repair,
		Settings: domain.Settings{BackgroundColor: "#000000", PremultipliedAlpha: true, Loop: true},
	})
	h.controller.AttachRenderTarget(domain.RenderTarget{Width: 640, Height: 480})
	return h
}
