package domain_test

import (
	"errors"
	"testing"

	"github.com/bruhnn/BD2ModPreview-sub001/internal/modules/playback/domain"
)

func TestTransitionTable(t *testing.T) {
	t.Parallel()
	legal := map[domain.SessionState][]domain.SessionState{
		domain.StateIdle:             {domain.StateLoading, domain.StateFailed},
		domain.StateLoading:          {domain.StateActive, domain.StateRetryingFallback, domain.StateFailed, domain.StateIdle},
		domain.StateRetryingFallback: {domain.StateLoading, domain.StateActive, domain.StateFailed, domain.StateIdle},
		domain.StateActive:           {domain.StateLoading, domain.StateFailed, domain.StateIdle},
		domain.StateFailed:           {domain.StateLoading, domain.StateIdle},
	}
	all := []domain.SessionState{domain.StateIdle, domain.StateLoading, domain.StateRetryingFallback, domain.StateActive, domain.StateFailed}
	for _, from := range all {
		allowed := map[domain.SessionState]bool{}
		for _, to := range legal[from] {
			allowed[to] = true
		}
		for _, to := range all {
			if got := domain.CanTransition(from, to); got != allowed[to] {
				t.Fatalf("%s -> %s: expected %v got %v", from, to, allowed[to], got)
			}
		}
	}
}

func TestFallbackGuard(t *testing.T) {
	t.Parallel()
	src := domain.URLSource("s", "a", "fs", "fa")
	s := domain.NewSession()
	s.Restart(&src)
	if err := s.BeginFallback(); err != nil {
		t.Fatalf("first fallback: %v", err)
	}
	if !s.FallbackAttempted || !s.IsRetrying {
		t.Fatalf("expected fallback flags set")
	}
	if err := s.BeginFallback(); !errors.Is(err, domain.ErrIllegalTransition) {
		t.Fatalf("expected illegal retrying->retrying, got %v", err)
	}
	if err := s.Transition(domain.StateLoading); err != nil {
		t.Fatalf("retrying -> loading: %v", err)
	}
	if err := s.BeginFallback(); !errors.Is(err, domain.ErrIllegalTransition) {
		t.Fatalf("second fallback must be rejected, got %v", err)
	}
	s.Fail(domain.NewLoadError(domain.KindAssetNotFound, "x"))
	if s.IsRetrying || s.State != domain.StateFailed {
		t.Fatalf("fail must clear retrying and enter failed: %+v", s)
	}
}

func TestRestartResetsFlags(t *testing.T) {
	t.Parallel()
	src := domain.FolderSource("/m")
	s := domain.NewSession()
	s.Restart(&src)
	s.FallbackAttempted = true
	s.Fail(domain.NewLoadError(domain.KindUnknown, "x"))
	s.Restart(&src)
	if s.State != domain.StateLoading || s.FallbackAttempted || s.LastError != nil {
		t.Fatalf("restart did not reset session: %+v", s)
	}
	s.Restart(nil)
	if s.State != domain.StateIdle || s.Source != nil {
		t.Fatalf("nil restart must go idle")
	}
}

func TestSnapshotCopiesSource(t *testing.T) {
	t.Parallel()
	src := domain.FolderSource("/m")
	s := domain.NewSession()
	s.Restart(&src)
	s.Animations = []string{"idle"}
	snap := s.Snapshot()
	snap.Source.Path = "/other"
	snap.Animations[0] = "walk"
	if s.Source.Path != "/m" || s.Animations[0] != "idle" {
		t.Fatalf("snapshot must not alias session state")
	}
	if !snap.IsLoading() || snap.IsActive() {
		t.Fatalf("unexpected snapshot flags")
	}
}
