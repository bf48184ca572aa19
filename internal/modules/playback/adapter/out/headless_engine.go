package out

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	hclog "github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"github.com/bruhnn/BD2ModPreview-sub001/internal/modules/playback/domain"
	playbackout "github.com/bruhnn/BD2ModPreview-sub001/internal/modules/playback/port/out"
	"github.com/bruhnn/BD2ModPreview-sub001/internal/platform/httpclient"
)

const (
	defaultFrameInterval   = time.Second / 30
	defaultAnimationLength = time.Second
	maxAssetBytes          = 64 << 20
	minZoom                = 0.1
	maxZoom                = 10
)

var skelVersionPattern = regexp.MustCompile(`(\d)\.(\d+)\.\d+`)

// HeadlessEngineFactory builds engines that load and validate assets without drawing anything.
// Failures are reported with the same diagnostics a browser spine player produces.
type HeadlessEngineFactory struct {
	client          *http.Client
	hosts           *httpclient.HostSemaphore
	logger          hclog.Logger
	FrameInterval   time.Duration
	AnimationLength time.Duration
}

func NewHeadlessEngineFactory(client *http.Client, logger hclog.Logger) *HeadlessEngineFactory {
	if client == nil {
		client = httpclient.Default()
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &HeadlessEngineFactory{
		client:          client,
		hosts:           httpclient.Shared,
		logger:          logger.Named("engine"),
		FrameInterval:   defaultFrameInterval,
		AnimationLength: defaultAnimationLength,
	}
}

func (f *HeadlessEngineFactory) New(_ context.Context, target domain.RenderTarget, cfg domain.EngineConfig, cb playbackout.Callbacks) (playbackout.Engine, error) {
	if strings.TrimSpace(cfg.AtlasURL) == "" {
		return nil, errors.New("engine config has no atlas")
	}
	if (cfg.JSONURL == "") == (cfg.SkelURL == "") {
		return nil, errors.New("engine config needs exactly one of json or skel")
	}
	// The engine outlives the constructing call; Dispose is the only way to stop it.
	ctx, cancel := context.WithCancel(context.Background())
	e := &HeadlessEngine{
		factory: f,
		cfg:     cfg,
		target:  target,
		cb:      cb,
		ctx:     ctx,
		cancel:  cancel,
		camera:  &headlessCamera{state: domain.CameraState{Zoom: 1}},
	}
	f.logger.Debug("engine created", "atlas", cfg.AtlasURL, "skeleton", cfg.SkeletonURL(), "fallback", cfg.IsFallback)
	go e.load()
	return e, nil
}

type HeadlessEngine struct {
	factory *HeadlessEngineFactory
	cfg     domain.EngineConfig
	target  domain.RenderTarget
	cb      playbackout.Callbacks
	ctx     context.Context
	cancel  context.CancelFunc
	camera  *headlessCamera

	mu         sync.Mutex
	animations []string
	playing    bool
	stopTick   chan struct{}
	track      *headlessTrack
	disposed   bool
}

func (e *HeadlessEngine) load() {
	message, animations := e.fetchAll()
	if e.ctx.Err() != nil {
		return
	}
	if message != "" {
		if e.cb.OnError != nil {
			e.cb.OnError(e, message)
		}
		return
	}
	e.mu.Lock()
	e.animations = animations
	e.mu.Unlock()
	if e.cb.OnSuccess != nil {
		e.cb.OnSuccess(e)
	}
}

// fetchAll loads the atlas, its pages and the skeleton. It returns a runtime diagnostic on failure.
func (e *HeadlessEngine) fetchAll() (string, []string) {
	var (
		mu       sync.Mutex
		failures = map[string]string{}
		atlas    []byte
		skeleton []byte
	)
	fail := func(name, reason string) {
		mu.Lock()
		failures[name] = reason
		mu.Unlock()
	}
	skelLocation := e.cfg.SkeletonURL()

	g, ctx := errgroup.WithContext(e.ctx)
	g.SetLimit(4)
	g.Go(func() error {
		data, err := e.fetch(ctx, e.cfg.AtlasURL)
		if err != nil {
			fail(e.cfg.AtlasURL, err.Error())
			return nil
		}
		atlas = data
		return nil
	})
	g.Go(func() error {
		data, err := e.fetch(ctx, skelLocation)
		if err != nil {
			fail(skelLocation, err.Error())
			return nil
		}
		skeleton = data
		return nil
	})
	_ = g.Wait()

	if atlas != nil {
		pages := pageLocations(e.cfg.AtlasURL, atlas)
		pg, pctx := errgroup.WithContext(e.ctx)
		pg.SetLimit(4)
		for _, page := range pages {
			page := page
			pg.Go(func() error {
				if _, err := e.fetch(pctx, page); err != nil {
					fail(page, err.Error())
				}
				return nil
			})
		}
		_ = pg.Wait()
	}

	if len(failures) > 0 {
		raw, _ := json.Marshal(failures)
		return "Assets could not be loaded. " + strings.ReplaceAll(string(raw), `"`, "&quot;"), nil
	}
	if e.cfg.JSONURL != "" {
		animations, err := jsonAnimations(skeleton)
		if err != nil {
			return fmt.Sprintf("Error reading skeleton JSON: %v", err), nil
		}
		return "", animations
	}
	if err := checkSkelHeader(skeleton); err != nil {
		return "Could not load skeleton binary: " + err.Error(), nil
	}
	return "", nil
}

func pageLocations(atlasLocation string, atlas []byte) []string {
	var pages []string
	for _, name := range atlasPages(atlas) {
		pages = append(pages, siblingLocation(atlasLocation, name))
	}
	return pages
}

// atlasPages returns the page image names of a libgdx/spine atlas: the first non-empty line
// and every non-empty line following a blank one.
func atlasPages(atlas []byte) []string {
	var pages []string
	scanner := bufio.NewScanner(bytes.NewReader(atlas))
	expectPage := true
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			expectPage = true
			continue
		}
		if expectPage && !strings.Contains(line, ":") {
			pages = append(pages, line)
		}
		expectPage = false
	}
	return pages
}

func siblingLocation(base, name string) string {
	if strings.HasPrefix(base, "data:") {
		return name
	}
	if u, err := url.Parse(base); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		u.Path = path.Join(path.Dir(u.Path), name)
		u.RawQuery = ""
		u.Fragment = ""
		return u.String()
	}
	return filepath.Join(filepath.Dir(base), name)
}

func (e *HeadlessEngine) fetch(ctx context.Context, location string) ([]byte, error) {
	if raw, ok := e.cfg.RawDataURIs[filepath.Base(location)]; ok {
		return decodeDataURI(raw)
	}
	if strings.HasPrefix(location, "data:") {
		return decodeDataURI(location)
	}
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return e.fetchHTTP(ctx, location)
	}
	data, err := os.ReadFile(location)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.New("404")
		}
		return nil, err
	}
	return data, nil
}

func (e *HeadlessEngine) fetchHTTP(ctx context.Context, location string) ([]byte, error) {
	release := e.factory.hosts.Acquire(location)
	defer release()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, err
	}
	resp, err := e.factory.client.Do(httpclient.NewRequest(req))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.New(strconv.Itoa(resp.StatusCode))
	}
	body, err := httpclient.Body(resp)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	data, err := io.ReadAll(io.LimitReader(body, maxAssetBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxAssetBytes {
		return nil, errors.New("413")
	}
	return data, nil
}

func decodeDataURI(uri string) ([]byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return []byte(uri), nil
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, errors.New("malformed data uri")
	}
	if strings.HasSuffix(meta, ";base64") {
		return base64.StdEncoding.DecodeString(payload)
	}
	unescaped, err := url.PathUnescape(payload)
	if err != nil {
		return nil, err
	}
	return []byte(unescaped), nil
}

// jsonAnimations lists the keys of the top-level "animations" object in declaration order.
func jsonAnimations(raw []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}
	var names []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := tok.(string)
		if key != "animations" {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, err
			}
			continue
		}
		if err := expectDelim(dec, '{'); err != nil {
			return nil, err
		}
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			name, _ := tok.(string)
			names = append(names, name)
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, err
			}
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
	}
	return names, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q", want)
	}
	return nil
}

func checkSkelHeader(raw []byte) error {
	if len(raw) < 8 {
		return errors.New("file is truncated")
	}
	head := raw
	if len(head) > 64 {
		head = head[:64]
	}
	m := skelVersionPattern.FindSubmatch(head)
	if m == nil {
		return errors.New("unrecognized header")
	}
	major, _ := strconv.Atoi(string(m[1]))
	minor, _ := strconv.Atoi(string(m[2]))
	if major < 3 || (major == 3 && minor < 8) {
		return fmt.Errorf("unsupported version %s", m[0])
	}
	return nil
}

func (e *HeadlessEngine) Dispose() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return nil
	}
	e.disposed = true
	e.cancel()
	e.stopTickerLocked()
	if e.track != nil {
		e.track.stop()
	}
	return nil
}

func (e *HeadlessEngine) Play() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed || e.playing {
		return
	}
	e.playing = true
	e.stopTick = make(chan struct{})
	go e.tick(e.stopTick)
}

func (e *HeadlessEngine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopTickerLocked()
}

func (e *HeadlessEngine) stopTickerLocked() {
	if !e.playing {
		return
	}
	e.playing = false
	close(e.stopTick)
}

func (e *HeadlessEngine) tick(stop <-chan struct{}) {
	interval := e.factory.FrameInterval
	if interval <= 0 {
		interval = defaultFrameInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if e.cb.OnFrameUpdate != nil {
				e.cb.OnFrameUpdate()
			}
		}
	}
}

func (e *HeadlessEngine) SetToSetupPose() {}

func (e *HeadlessEngine) Animations() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.animations...)
}

func (e *HeadlessEngine) SetAnimation(name string, loop bool) (playbackout.Track, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return nil, errors.New("engine disposed")
	}
	found := false
	for _, a := range e.animations {
		if a == name {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("animation not found: %s", name)
	}
	if e.track != nil {
		e.track.stop()
	}
	e.track = newHeadlessTrack(name, loop, e.factory.AnimationLength)
	return e.track, nil
}

func (e *HeadlessEngine) Camera() playbackout.Camera {
	return e.camera
}

type headlessTrack struct {
	name  string
	loop  bool
	mu    sync.Mutex
	timer *time.Timer
	done  bool
	fns   []func()
}

func newHeadlessTrack(name string, loop bool, length time.Duration) *headlessTrack {
	t := &headlessTrack{name: name, loop: loop}
	if !loop {
		t.timer = time.AfterFunc(length, t.complete)
	}
	return t
}

func (t *headlessTrack) Name() string { return t.name }
func (t *headlessTrack) Loop() bool   { return t.loop }

func (t *headlessTrack) OnComplete(fn func()) {
	t.mu.Lock()
	if t.done {
		t.mu.Unlock()
		fn()
		return
	}
	t.fns = append(t.fns, fn)
	t.mu.Unlock()
}

func (t *headlessTrack) complete() {
	t.mu.Lock()
	if t.done {
		t.mu.Unlock()
		return
	}
	t.done = true
	fns := t.fns
	t.fns = nil
	t.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (t *headlessTrack) stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
	}
	t.fns = nil
}

type headlessCamera struct {
	mu    sync.Mutex
	state domain.CameraState
}

func (c *headlessCamera) State() domain.CameraState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *headlessCamera) SetZoom(zoom float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Zoom = min(max(zoom, minZoom), maxZoom)
}

func (c *headlessCamera) Pan(dx, dy float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.PanX += dx
	c.state.PanY += dy
}

func (c *headlessCamera) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = domain.CameraState{Zoom: 1}
}
