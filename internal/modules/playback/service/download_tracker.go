package service

import (
	"context"
	"errors"
	"sync"

	hclog "github.com/hashicorp/go-hclog"

	"github.com/bruhnn/BD2ModPreview-sub001/internal/modules/playback/domain"
	playbackout "github.com/bruhnn/BD2ModPreview-sub001/internal/modules/playback/port/out"
)

// DownloadTracker follows one repair download at a time.
type DownloadTracker struct {
	repair   playbackout.RepairService
	logger   hclog.Logger
	onChange func(domain.DownloadState)

	mu    sync.Mutex
	state domain.DownloadState
}

func NewDownloadTracker(repair playbackout.RepairService, logger hclog.Logger, onChange func(domain.DownloadState)) *DownloadTracker {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &DownloadTracker{repair: repair, logger: logger.Named("download"), onChange: onChange}
}

func (t *DownloadTracker) State() domain.DownloadState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Run repairs folder and blocks until the repair service returns.
// The event subscription never outlives the call.
func (t *DownloadTracker) Run(ctx context.Context, folder string) (err error) {
	if t.repair == nil {
		return domain.NewLoadError(domain.KindDownload, "no repair service configured")
	}
	t.update(func(s *domain.DownloadState) {
		*s = domain.DownloadState{IsDownloading: true}
	})

	unsubscribe := t.repair.Subscribe(t.handle)
	defer unsubscribe()
	defer func() {
		if r := recover(); r != nil {
			err = domain.NewLoadError(domain.KindDownload, "repair panicked")
			t.fail(err.Error())
		}
	}()

	if repairErr := t.repair.StartRepair(ctx, folder); repairErr != nil {
		var loadErr *domain.LoadError
		if !errors.As(repairErr, &loadErr) {
			loadErr = domain.NewLoadError(domain.KindDownload, repairErr.Error()).WithCause(repairErr)
		}
		t.fail(loadErr.Detail)
		t.logger.Warn("repair failed", "folder", folder, "error", repairErr)
		return loadErr
	}
	t.update(func(s *domain.DownloadState) {
		s.IsDownloading = false
		s.ProgressPercent = 100
	})
	return nil
}

func (t *DownloadTracker) handle(ev domain.RepairEvent) {
	switch ev.Kind {
	case domain.RepairStarted:
		t.logger.Debug("repair started", "destination", ev.DestinationPath)
		t.update(func(s *domain.DownloadState) {
			s.IsDownloading = true
			s.ProgressPercent = 0
			s.Error = ""
		})
	case domain.RepairProgress:
		if ev.TotalBytes <= 0 {
			return
		}
		percent := float64(ev.BytesDownloaded) / float64(ev.TotalBytes) * 100
		if percent > 100 {
			percent = 100
		}
		t.update(func(s *domain.DownloadState) {
			s.ProgressPercent = percent
		})
	case domain.RepairFinished:
		t.logger.Debug("repair finished", "destination", ev.DestinationPath)
		t.update(func(s *domain.DownloadState) {
			s.IsDownloading = false
			s.ProgressPercent = 100
		})
	}
}

func (t *DownloadTracker) fail(message string) {
	t.update(func(s *domain.DownloadState) {
		s.IsDownloading = false
		s.Error = message
	})
}

func (t *DownloadTracker) update(fn func(*domain.DownloadState)) {
	t.mu.Lock()
	fn(&t.state)
	state := t.state
	t.mu.Unlock()
	if t.onChange != nil {
		t.onChange(state)
	}
}
