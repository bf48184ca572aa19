package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	hclog "github.com/hashicorp/go-hclog"

	"github.com/bruhnn/BD2ModPreview-sub001/internal/modules/playback/domain"
	"github.com/bruhnn/BD2ModPreview-sub001/internal/modules/playback/dto"
	playbackout "github.com/bruhnn/BD2ModPreview-sub001/internal/modules/playback/port/out"
	apperrors "github.com/bruhnn/BD2ModPreview-sub001/internal/platform/errors"
	"github.com/bruhnn/BD2ModPreview-sub001/internal/platform/metrics"
)

const historyTimeout = 5 * time.Second

type ControllerDeps struct {
	Resolver   *Resolver
	Engines    playbackout.EngineFactory
	Classifier domain.ErrorClassifier
	History    playbackout.HistoryGateway
	Repair     playbackout.RepairService
	Metrics    *metrics.Playback
	Logger     hclog.Logger
	Settings   domain.Settings
}

// attempt binds one engine construction to the callbacks it produces.
type attempt struct {
	id       uint64
	fallback bool
	identity domain.Identity
	engine   playbackout.Engine
	disposed bool
}

// Controller owns the single live playback session and the engine behind it.
// Engine callbacks may arrive from any goroutine; callbacks from a superseded attempt are dropped.
type Controller struct {
	resolver   *Resolver
	engines    playbackout.EngineFactory
	classifier domain.ErrorClassifier
	history    playbackout.HistoryGateway
	metrics    *metrics.Playback
	logger     hclog.Logger
	tracker    *DownloadTracker

	mu        sync.Mutex
	session   *domain.Session
	settings  domain.Settings
	target    *domain.RenderTarget
	engine    playbackout.Engine
	camera    playbackout.Camera
	active    *attempt
	attemptID uint64
	repairing bool

	activeID atomic.Uint64
	frames   atomic.Uint64

	obsMu     sync.Mutex
	observers map[int]func(domain.Snapshot)
	nextObs   int
}

func NewController(deps ControllerDeps) *Controller {
	logger := deps.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	classifier := deps.Classifier
	if classifier == nil {
		classifier = domain.PatternClassifier{}
	}
	c := &Controller{
		resolver:   deps.Resolver,
		engines:    deps.Engines,
		classifier: classifier,
		history:    deps.History,
		metrics:    deps.Metrics,
		logger:     logger.Named("controller"),
		session:    domain.NewSession(),
		settings:   deps.Settings,
		observers:  map[int]func(domain.Snapshot){},
	}
	c.tracker = NewDownloadTracker(deps.Repair, logger, func(domain.DownloadState) { c.notify() })
	return c
}

// SetSource tears down the current session and loads src. It returns once the engine has been
// constructed; the outcome arrives through engine callbacks (see AwaitSettled).
// A resolution or construction failure is returned as a *domain.LoadError and recorded in the session.
func (c *Controller) SetSource(ctx context.Context, src domain.SourceDescriptor) error {
	if err := src.Validate(); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	c.mu.Lock()
	c.teardownLocked()
	c.session.Restart(&src)
	rec := c.beginAttemptLocked(false)
	c.mu.Unlock()
	c.notify()
	return c.load(ctx, rec, src)
}

// ClearSource tears the session down and forgets the source.
func (c *Controller) ClearSource() {
	c.mu.Lock()
	c.teardownLocked()
	c.session.Restart(nil)
	c.retireAttemptLocked()
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) ReloadCurrentSource(ctx context.Context) error {
	c.mu.Lock()
	src := c.session.Source
	c.mu.Unlock()
	if src == nil {
		return apperrors.ErrNoActiveSource
	}
	return c.SetSource(ctx, *src)
}

// DestroySession releases the engine and returns to Idle. The source is kept so a later reload works.
func (c *Controller) DestroySession() {
	c.mu.Lock()
	c.teardownLocked()
	c.retireAttemptLocked()
	c.session.EndFallback()
	if c.session.State != domain.StateIdle {
		c.session.State = domain.StateIdle
	}
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) AttachRenderTarget(target domain.RenderTarget) {
	c.mu.Lock()
	c.target = &target
	c.mu.Unlock()
}

func (c *Controller) DetachRenderTarget() {
	c.mu.Lock()
	c.target = nil
	c.mu.Unlock()
}

func (c *Controller) load(ctx context.Context, rec *attempt, src domain.SourceDescriptor) error {
	c.metrics.LoadStarted(string(src.Kind), rec.fallback)
	res, err := c.resolve(ctx, src, rec.fallback)

	c.mu.Lock()
	if rec != c.active {
		c.mu.Unlock()
		return nil
	}
	if err != nil {
		loadErr := asLoadError(err, domain.KindUnknown)
		c.failLocked(loadErr)
		c.mu.Unlock()
		c.logger.Info("source resolution failed", "source", src.String(), "kind", loadErr.Kind, "detail", loadErr.Detail)
		c.notify()
		return loadErr
	}
	if c.target == nil {
		c.teardownLocked()
		c.retireAttemptLocked()
		c.session.EndFallback()
		c.session.State = domain.StateIdle
		c.mu.Unlock()
		c.notify()
		return fmt.Errorf("load %s: %w", src, apperrors.ErrNoRenderTarget)
	}
	if c.target.ZeroSized() {
		c.logger.Warn("render target has zero size", "width", c.target.Width, "height", c.target.Height)
	}
	if c.session.State == domain.StateRetryingFallback {
		if err := c.session.Transition(domain.StateLoading); err != nil {
			c.logger.Debug("unexpected transition", "error", err)
		}
	}
	rec.identity = res.Identity
	cfg := res.Config.WithSettings(c.settings)
	cfg.IsFallback = rec.fallback
	target := *c.target
	c.mu.Unlock()
	c.notify()

	engine, err := c.construct(ctx, target, cfg, c.callbacks(rec))

	c.mu.Lock()
	if rec != c.active {
		if engine != nil && !rec.disposed {
			rec.disposed = true
			c.mu.Unlock()
			disposeEngine(engine, c.logger)
			return nil
		}
		c.mu.Unlock()
		return nil
	}
	if err != nil {
		loadErr := domain.NewLoadError(domain.KindInitialization, err.Error()).WithCause(err)
		c.failLocked(loadErr)
		c.mu.Unlock()
		c.logger.Warn("engine construction failed", "source", src.String(), "error", err)
		c.notify()
		return loadErr
	}
	if c.engine == nil && !rec.disposed {
		c.adoptLocked(rec, engine)
	}
	c.mu.Unlock()
	return nil
}

func (c *Controller) resolve(ctx context.Context, src domain.SourceDescriptor, fallback bool) (res Resolution, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = domain.NewLoadError(domain.KindUnknown, fmt.Sprintf("resolution panicked: %v", r))
		}
	}()
	if c.resolver == nil {
		return Resolution{}, domain.NewLoadError(domain.KindUnknown, "no resolver configured")
	}
	return c.resolver.Resolve(ctx, src, fallback)
}

func (c *Controller) construct(ctx context.Context, target domain.RenderTarget, cfg domain.EngineConfig, cb playbackout.Callbacks) (engine playbackout.Engine, err error) {
	defer func() {
		if r := recover(); r != nil {
			engine = nil
			err = fmt.Errorf("engine constructor panicked: %v", r)
		}
	}()
	if c.engines == nil {
		return nil, errors.New("no engine factory configured")
	}
	engine, err = c.engines.New(ctx, target, cfg, cb)
	if err == nil && engine == nil {
		err = errors.New("engine factory returned no engine")
	}
	return engine, err
}

func (c *Controller) callbacks(rec *attempt) playbackout.Callbacks {
	return playbackout.Callbacks{
		OnSuccess: func(engine playbackout.Engine) { c.onSuccess(rec, engine) },
		OnError:   func(engine playbackout.Engine, message string) { c.onError(rec, engine, message) },
		OnFrameUpdate: func() {
			if c.activeID.Load() == rec.id {
				c.frames.Add(1)
			}
		},
	}
}

func (c *Controller) onSuccess(rec *attempt, engine playbackout.Engine) {
	c.mu.Lock()
	if !c.currentLocked(rec, engine) {
		c.mu.Unlock()
		c.logger.Debug("dropping success from superseded attempt", "attempt", rec.id)
		return
	}
	c.adoptLocked(rec, engine)

	anims, current, track, err := c.startPlaybackLocked(engine)
	if err != nil {
		loadErr := domain.NewLoadError(domain.KindInitialization, err.Error()).WithCause(err)
		c.failLocked(loadErr)
		c.mu.Unlock()
		c.logger.Warn("engine setup failed after load", "error", err)
		c.notify()
		return
	}
	if err := c.session.Activate(); err != nil {
		c.mu.Unlock()
		c.logger.Debug("ignoring success callback", "attempt", rec.id, "error", err)
		return
	}
	c.session.Animations = anims
	c.session.CurrentAnimation = current
	c.session.CurrentLoop = current != "" && c.settings.Loop
	c.session.Identity = rec.identity
	c.watchTrackLocked(track)
	original := *c.session.Source
	c.mu.Unlock()

	c.metrics.LoadSucceeded(rec.fallback)
	c.logger.Info("session active", "source", original.String(), "fallback", rec.fallback, "animation", current)
	c.recordHistory(original, rec.identity)
	c.notify()
}

func (c *Controller) onError(rec *attempt, engine playbackout.Engine, message string) {
	c.mu.Lock()
	if !c.currentLocked(rec, engine) {
		c.mu.Unlock()
		c.logger.Debug("dropping error from superseded attempt", "attempt", rec.id)
		return
	}
	if c.session.IsRetrying && !rec.fallback {
		c.mu.Unlock()
		c.logger.Debug("dropping error while fallback is in flight", "attempt", rec.id)
		return
	}
	c.adoptLocked(rec, engine)
	loadErr := c.classifier.Classify(message)

	if rec.fallback {
		c.failLocked(loadErr)
		c.mu.Unlock()
		c.logger.Warn("fallback load failed", "kind", loadErr.Kind, "detail", loadErr.Detail)
		c.notify()
		return
	}

	src := *c.session.Source
	if !c.session.FallbackAttempted && src.HasFallback() && domain.IsRetryableSignal(message) {
		if err := c.session.BeginFallback(); err == nil {
			c.teardownLocked()
			next := c.beginAttemptLocked(true)
			c.mu.Unlock()
			c.metrics.FallbackIssued()
			c.logger.Info("primary load failed, trying fallback urls", "source", src.String(), "kind", loadErr.Kind)
			c.notify()
			if err := c.load(context.Background(), next, src); err != nil {
				c.logger.Debug("fallback load returned", "error", err)
			}
			return
		}
	}

	c.failLocked(loadErr)
	c.mu.Unlock()
	c.logger.Warn("load failed", "source", src.String(), "kind", loadErr.Kind, "detail", loadErr.Detail)
	c.notify()
}

// startPlaybackLocked poses the skeleton, picks the default animation and starts playback.
func (c *Controller) startPlaybackLocked(engine playbackout.Engine) (anims []string, current string, track playbackout.Track, err error) {
	defer func() {
		if r := recover(); r != nil {
			anims, current, track = nil, "", nil
			err = fmt.Errorf("engine panicked during setup: %v", r)
		}
	}()
	engine.SetToSetupPose()
	anims = engine.Animations()
	current = domain.DefaultAnimation(anims)
	if current != "" {
		track, err = engine.SetAnimation(current, c.settings.Loop)
		if err != nil {
			return nil, "", nil, fmt.Errorf("apply animation %q: %w", current, err)
		}
	}
	engine.Play()
	return anims, current, track, nil
}

func (c *Controller) watchTrackLocked(track playbackout.Track) {
	if track == nil {
		return
	}
	name := track.Name()
	track.OnComplete(func() {
		c.logger.Trace("animation complete", "animation", name)
	})
}

func (c *Controller) recordHistory(src domain.SourceDescriptor, identity domain.Identity) {
	if c.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), historyTimeout)
	defer cancel()
	if err := c.history.Record(ctx, src, identity); err != nil {
		c.logger.Warn("could not record history", "source", src.String(), "error", err)
	}
}

func (c *Controller) SetAnimation(name string, loop bool) error {
	c.mu.Lock()
	if c.session.State != domain.StateActive || c.engine == nil {
		c.mu.Unlock()
		return apperrors.ErrSessionNotActive
	}
	if !contains(c.session.Animations, name) {
		c.mu.Unlock()
		return fmt.Errorf("animation %q: %w", name, apperrors.ErrNotFound)
	}
	track, err := c.engine.SetAnimation(name, loop)
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("set animation %q: %w", name, err)
	}
	c.session.CurrentAnimation = name
	c.session.CurrentLoop = loop
	c.watchTrackLocked(track)
	c.mu.Unlock()
	c.notify()
	return nil
}

func (c *Controller) Zoom(zoom float64) error {
	return c.withCamera(func(cam playbackout.Camera) { cam.SetZoom(zoom) })
}

func (c *Controller) PanCamera(dx, dy float64) error {
	return c.withCamera(func(cam playbackout.Camera) { cam.Pan(dx, dy) })
}

func (c *Controller) ResetCamera() error {
	return c.withCamera(func(cam playbackout.Camera) { cam.Reset() })
}

func (c *Controller) withCamera(fn func(playbackout.Camera)) error {
	c.mu.Lock()
	if c.session.State != domain.StateActive || c.camera == nil {
		c.mu.Unlock()
		return apperrors.ErrSessionNotActive
	}
	fn(c.camera)
	c.mu.Unlock()
	c.notify()
	return nil
}

// ApplySettings swaps the display settings. Background and alpha changes rebuild the engine;
// a loop change re-applies the current animation.
func (c *Controller) ApplySettings(ctx context.Context, next domain.Settings) error {
	c.mu.Lock()
	prev := c.settings
	c.settings = next
	reload := prev.RequiresReload(next) && c.session.Source != nil && c.session.State != domain.StateIdle
	var reapplyErr error
	if !reload && prev.Loop != next.Loop && c.session.State == domain.StateActive && c.engine != nil && c.session.CurrentAnimation != "" {
		track, err := c.engine.SetAnimation(c.session.CurrentAnimation, next.Loop)
		if err != nil {
			reapplyErr = fmt.Errorf("re-apply animation: %w", err)
		} else {
			c.session.CurrentLoop = next.Loop
			c.watchTrackLocked(track)
		}
	}
	c.mu.Unlock()
	if reload {
		c.logger.Debug("display settings changed, reloading source")
		return c.ReloadCurrentSource(ctx)
	}
	c.notify()
	return reapplyErr
}

// RepairMissingSkeleton runs the recovery action attached to a MissingSkeletonOrJson error and
// reloads the source when the download succeeds. A failed download replaces the session error
// and keeps the recovery action so the repair can be retried.
func (c *Controller) RepairMissingSkeleton(ctx context.Context) error {
	c.mu.Lock()
	lastErr := c.session.LastError
	src := c.session.Source
	if c.repairing || lastErr == nil || lastErr.Recovery == nil || lastErr.Recovery.Kind != domain.RecoveryFetchMissingSkeleton ||
		src == nil || src.Kind != domain.SourceKindFolder {
		c.mu.Unlock()
		return apperrors.ErrRepairUnavailable
	}
	c.repairing = true
	folder := lastErr.Recovery.FolderPath
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.repairing = false
		c.mu.Unlock()
	}()

	if err := c.tracker.Run(ctx, folder); err != nil {
		failure := repairFailure(err, lastErr.Recovery)
		c.metrics.LoadFailed(string(failure.Kind))
		c.mu.Lock()
		current := c.session.LastError == lastErr
		if current {
			c.session.LastError = failure
		}
		c.mu.Unlock()
		if current {
			c.notify()
		}
		return err
	}
	return c.ReloadCurrentSource(ctx)
}

func repairFailure(err error, recovery *domain.RecoveryAction) *domain.LoadError {
	var loadErr *domain.LoadError
	if !errors.As(err, &loadErr) {
		loadErr = domain.NewLoadError(domain.KindDownload, err.Error()).WithCause(err)
	}
	failed := *loadErr
	failed.Recovery = recovery
	return &failed
}

func (c *Controller) CurrentError() *domain.LoadError {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.LastError
}

func (c *Controller) Snapshot() domain.Snapshot {
	c.mu.Lock()
	snap := c.session.Snapshot()
	if c.camera != nil {
		snap.Camera = c.camera.State()
	}
	c.mu.Unlock()
	snap.Download = c.tracker.State()
	snap.Frames = c.frames.Load()
	return snap
}

func (c *Controller) Settings() domain.Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings
}

// Subscribe registers fn for state changes. fn runs outside the controller lock.
func (c *Controller) Subscribe(fn func(domain.Snapshot)) func() {
	c.obsMu.Lock()
	id := c.nextObs
	c.nextObs++
	c.observers[id] = fn
	c.obsMu.Unlock()
	return func() {
		c.obsMu.Lock()
		delete(c.observers, id)
		c.obsMu.Unlock()
	}
}

// AwaitSettled blocks until the session leaves Loading and RetryingFallback.
func (c *Controller) AwaitSettled(ctx context.Context) (domain.Snapshot, error) {
	settled := make(chan domain.Snapshot, 1)
	unsubscribe := c.Subscribe(func(s domain.Snapshot) {
		if s.IsLoading() {
			return
		}
		select {
		case settled <- s:
		default:
		}
	})
	defer unsubscribe()
	if snap := c.Snapshot(); !snap.IsLoading() {
		return snap, nil
	}
	select {
	case <-settled:
		return c.Snapshot(), nil
	case <-ctx.Done():
		return c.Snapshot(), ctx.Err()
	}
}

func (c *Controller) History(ctx context.Context) ([]dto.HistoryEntry, error) {
	if c.history == nil {
		return nil, nil
	}
	return c.history.List(ctx)
}

func (c *Controller) RemoveHistoryEntry(ctx context.Context, id int64) error {
	if c.history == nil {
		return nil
	}
	return c.history.Remove(ctx, id)
}

func (c *Controller) ClearHistory(ctx context.Context) error {
	if c.history == nil {
		return nil
	}
	return c.history.Clear(ctx)
}

func (c *Controller) notify() {
	snap := c.Snapshot()
	c.obsMu.Lock()
	fns := make([]func(domain.Snapshot), 0, len(c.observers))
	for _, fn := range c.observers {
		fns = append(fns, fn)
	}
	c.obsMu.Unlock()
	for _, fn := range fns {
		fn(snap)
	}
}

func (c *Controller) beginAttemptLocked(fallback bool) *attempt {
	c.attemptID++
	rec := &attempt{id: c.attemptID, fallback: fallback}
	c.active = rec
	c.activeID.Store(rec.id)
	return rec
}

func (c *Controller) retireAttemptLocked() {
	c.attemptID++
	c.active = nil
	c.activeID.Store(0)
}

func (c *Controller) currentLocked(rec *attempt, engine playbackout.Engine) bool {
	if rec != c.active || rec.disposed {
		return false
	}
	return c.engine == nil || engine == nil || c.engine == engine
}

func (c *Controller) adoptLocked(rec *attempt, engine playbackout.Engine) {
	if engine == nil || c.engine == engine {
		return
	}
	rec.engine = engine
	c.engine = engine
	c.camera = safeCamera(engine, c.logger)
}

func (c *Controller) failLocked(loadErr *domain.LoadError) {
	c.teardownLocked()
	c.session.Fail(loadErr)
	c.metrics.LoadFailed(string(loadErr.Kind))
}

// teardownLocked disposes the held engine. The engine and camera handles are always cleared,
// even when disposal fails or panics.
func (c *Controller) teardownLocked() {
	engine := c.engine
	c.engine = nil
	c.camera = nil
	if c.active != nil && c.active.engine != nil {
		c.active.disposed = true
	}
	if engine == nil {
		return
	}
	disposeEngine(engine, c.logger)
}

func disposeEngine(engine playbackout.Engine, logger hclog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("engine dispose panicked", "panic", r)
		}
	}()
	if err := engine.Dispose(); err != nil {
		logger.Warn("engine dispose failed", "error", err)
	}
}

func safeCamera(engine playbackout.Engine, logger hclog.Logger) (cam playbackout.Camera) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("engine camera unavailable", "panic", r)
			cam = nil
		}
	}()
	return engine.Camera()
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

func asLoadError(err error, fallback domain.ErrorKind) *domain.LoadError {
	var loadErr *domain.LoadError
	if errors.As(err, &loadErr) {
		return loadErr
	}
	return domain.NewLoadError(fallback, err.Error()).WithCause(err)
}
