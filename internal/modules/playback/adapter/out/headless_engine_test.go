package out_test

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	playbackout "github.com/bruhnn/BD2ModPreview-sub001/internal/modules/playback/adapter/out"
	"github.com/bruhnn/BD2ModPreview-sub001/internal/modules/playback/domain"
	portout "github.com/bruhnn/BD2ModPreview-sub001/internal/modules/playback/port/out"
)

const skeletonJSON = `{"skeleton":{"spine":"4.1.23"},"bones":[],"animations":{"idle":{},"walk":{"bones":{}},"attack":{}}}`

type outcome struct {
	engine  portout.Engine
	message string
	ok      bool
}

func startEngine(t *testing.T, f *playbackout.HeadlessEngineFactory, cfg domain.EngineConfig) (portout.Engine, outcome) {
	t.Helper()
	done := make(chan outcome, 2)
	engine, err := f.New(context.Background(), domain.RenderTarget{Width: 100, Height: 100}, cfg, portout.Callbacks{
		OnSuccess: func(e portout.Engine) { done <- outcome{engine: e, ok: true} },
		OnError:   func(e portout.Engine, msg string) { done <- outcome{engine: e, message: msg} },
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	t.Cleanup(func() { _ = engine.Dispose() })
	select {
	case got := <-done:
		return engine, got
	case <-time.After(5 * time.Second):
		t.Fatalf("engine never reported")
	}
	return nil, outcome{}
}

func TestHeadlessEngineLoadsFolderAssets(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"char.atlas": "char.png\nsize: 2,2\nfilter: Linear,Linear\n\nchar2.png\nsize: 2,2\n",
		"char.png":   "png",
		"char2.png":  "png",
		"char.json":  skeletonJSON,
	})
	f := playbackout.NewHeadlessEngineFactory(nil, nil)
	engine, got := startEngine(t, f, domain.EngineConfig{
		AtlasURL: filepath.Join(dir, "char.atlas"),
		JSONURL:  filepath.Join(dir, "char.json"),
	})
	if !got.ok {
		t.Fatalf("expected success, got %q", got.message)
	}
	if got.engine != engine {
		t.Fatalf("callback must carry the engine handle")
	}
	if anims := engine.Animations(); !slices.Equal(anims, []string{"idle", "walk", "attack"}) {
		t.Fatalf("animations must keep declaration order, got %v", anims)
	}
}

func TestHeadlessEngineMissingPageIsClassifiedAsNotFound(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"char.atlas": "char.png\nsize: 2,2\n",
		"char.json":  skeletonJSON,
	})
	_, got := startEngine(t, playbackout.NewHeadlessEngineFactory(nil, nil), domain.EngineConfig{
		AtlasURL: filepath.Join(dir, "char.atlas"),
		JSONURL:  filepath.Join(dir, "char.json"),
	})
	if got.ok {
		t.Fatalf("expected failure")
	}
	loadErr := domain.PatternClassifier{}.Classify(got.message)
	if loadErr.Kind != domain.KindAssetNotFound {
		t.Fatalf("expected asset not found, got %v from %q", loadErr, got.message)
	}
	if !slices.Equal(loadErr.FailedAssets, []string{filepath.Join(dir, "char.png")}) {
		t.Fatalf("unexpected failed assets %v", loadErr.FailedAssets)
	}
}

func TestHeadlessEngineHTTPStatusesReachClassifier(t *testing.T) {
	t.Parallel()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Path {
		case "/a/char.atlas":
			_, _ = w.Write([]byte("char.png\n"))
		case "/a/char.png":
			_, _ = w.Write([]byte("png"))
		case "/a/char.json":
			http.Error(w, "slow down", http.StatusTooManyRequests)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	_, got := startEngine(t, playbackout.NewHeadlessEngineFactory(srv.Client(), nil), domain.EngineConfig{
		AtlasURL: srv.URL + "/a/char.atlas",
		JSONURL:  srv.URL + "/a/char.json",
	})
	if got.ok {
		t.Fatalf("expected failure")
	}
	if !domain.IsRetryableSignal(got.message) {
		t.Fatalf("expected retryable diagnostic, got %q", got.message)
	}
	loadErr := domain.PatternClassifier{}.Classify(got.message)
	if loadErr.Kind != domain.KindAssetTooManyRequests {
		t.Fatalf("expected rate limit, got %v", loadErr)
	}
	if hits.Load() != 3 {
		t.Fatalf("expected atlas, page and skeleton requests, got %d", hits.Load())
	}
}

func TestHeadlessEngineRawDataURIs(t *testing.T) {
	t.Parallel()
	cfg := domain.EngineConfig{
		AtlasURL: "mem/char.atlas",
		JSONURL:  "mem/char.json",
		RawDataURIs: map[string]string{
			"char.atlas": "data:,char.png%0Asize%3A%202%2C2%0A",
			"char.png":   "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("png")),
			"char.json":  "data:application/json;base64," + base64.StdEncoding.EncodeToString([]byte(skeletonJSON)),
		},
	}
	engine, got := startEngine(t, playbackout.NewHeadlessEngineFactory(nil, nil), cfg)
	if !got.ok {
		t.Fatalf("expected success, got %q", got.message)
	}
	if len(engine.Animations()) != 3 {
		t.Fatalf("expected animations from inline skeleton")
	}
}

func TestHeadlessEngineSkeletonBinaryDiagnostics(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"good.atlas": "good.png\n",
		"good.png":   "png",
		"good.skel":  "\x1a\x00hashhash\x054.1.23\x00\x00\x00",
		"bad.skel":   "garbage-bytes-without-version",
	})
	f := playbackout.NewHeadlessEngineFactory(nil, nil)

	_, got := startEngine(t, f, domain.EngineConfig{AtlasURL: filepath.Join(dir, "good.atlas"), SkelURL: filepath.Join(dir, "good.skel")})
	if !got.ok {
		t.Fatalf("expected valid binary, got %q", got.message)
	}

	_, got = startEngine(t, f, domain.EngineConfig{AtlasURL: filepath.Join(dir, "good.atlas"), SkelURL: filepath.Join(dir, "bad.skel")})
	if got.ok {
		t.Fatalf("expected failure")
	}
	loadErr := domain.PatternClassifier{}.Classify(got.message)
	if loadErr.Kind != domain.KindSkeleton || loadErr.Detail != "unrecognized header" {
		t.Fatalf("expected skeleton error, got %v", loadErr)
	}
}

func TestHeadlessEngineRejectsBadConfig(t *testing.T) {
	t.Parallel()
	f := playbackout.NewHeadlessEngineFactory(nil, nil)
	cases := []domain.EngineConfig{
		{JSONURL: "a.json"},
		{AtlasURL: "a.atlas"},
		{AtlasURL: "a.atlas", JSONURL: "a.json", SkelURL: "a.skel"},
	}
	for _, cfg := range cases {
		if _, err := f.New(context.Background(), domain.RenderTarget{}, cfg, portout.Callbacks{}); err == nil {
			t.Fatalf("expected config error for %+v", cfg)
		}
	}
}

func TestHeadlessEngineDisposeSilencesCallbacks(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()
	defer close(release)

	var calls atomic.Int32
	engine, err := playbackout.NewHeadlessEngineFactory(srv.Client(), nil).New(context.Background(), domain.RenderTarget{Width: 1, Height: 1}, domain.EngineConfig{
		AtlasURL: srv.URL + "/slow.atlas",
		JSONURL:  srv.URL + "/slow.json",
	}, portout.Callbacks{
		OnSuccess: func(portout.Engine) { calls.Add(1) },
		OnError:   func(portout.Engine, string) { calls.Add(1) },
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	if err := engine.Dispose(); err != nil {
		t.Fatalf("dispose: %v", err)
	}
	if err := engine.Dispose(); err != nil {
		t.Fatalf("second dispose: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	if calls.Load() != 0 {
		t.Fatalf("disposed engine must not call back, got %d", calls.Load())
	}
}

func TestHeadlessEnginePlaybackTrackAndCamera(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"char.atlas": "char.png\n",
		"char.png":   "png",
		"char.json":  skeletonJSON,
	})
	f := playbackout.NewHeadlessEngineFactory(nil, nil)
	f.FrameInterval = 5 * time.Millisecond
	f.AnimationLength = 10 * time.Millisecond

	frames := make(chan struct{}, 64)
	done := make(chan bool, 1)
	engine, err := f.New(context.Background(), domain.RenderTarget{Width: 1, Height: 1}, domain.EngineConfig{
		AtlasURL: filepath.Join(dir, "char.atlas"),
		JSONURL:  filepath.Join(dir, "char.json"),
	}, portout.Callbacks{
		OnSuccess: func(portout.Engine) { done <- true },
		OnError:   func(portout.Engine, string) { done <- false },
		OnFrameUpdate: func() {
			select {
			case frames <- struct{}{}:
			default:
			}
		},
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	defer engine.Dispose()
	if ok := <-done; !ok {
		t.Fatalf("expected load success")
	}

	if _, err := engine.SetAnimation("missing", true); err == nil {
		t.Fatalf("expected unknown animation error")
	}
	track, err := engine.SetAnimation("walk", false)
	if err != nil {
		t.Fatalf("set animation: %v", err)
	}
	completed := make(chan struct{})
	track.OnComplete(func() { close(completed) })
	select {
	case <-completed:
	case <-time.After(2 * time.Second):
		t.Fatalf("non-looping track never completed")
	}

	engine.Play()
	select {
	case <-frames:
	case <-time.After(2 * time.Second):
		t.Fatalf("no frame updates while playing")
	}
	engine.Pause()

	cam := engine.Camera()
	cam.SetZoom(50)
	cam.Pan(3, -2)
	if st := cam.State(); st.Zoom != 10 || st.PanX != 3 || st.PanY != -2 {
		t.Fatalf("unexpected camera state %+v", st)
	}
	cam.Reset()
	if st := cam.State(); st.Zoom != 1 || st.PanX != 0 {
		t.Fatalf("reset must restore defaults, got %+v", st)
	}
}
