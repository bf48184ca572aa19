package out

import (
	"context"

	"github.com/bruhnn/BD2ModPreview-sub001/internal/modules/playback/domain"
	"github.com/bruhnn/BD2ModPreview-sub001/internal/modules/playback/dto"
)

// Inspector is the asset-inspection service. Failures are ErrDirectoryNotFound,
// *domain.DirectoryInvalid, a *domain.LoadError or anything else.
type Inspector interface {
	Inspect(ctx context.Context, folderPath string) (domain.AssetMetadata, error)
}

// Callbacks are invoked by the engine, possibly from another goroutine.
type Callbacks struct {
	OnSuccess     func(engine Engine)
	OnError       func(engine Engine, message string)
	OnFrameUpdate func()
}

// EngineFactory constructs a fresh rendering engine per load attempt.
type EngineFactory interface {
	New(ctx context.Context, target domain.RenderTarget, cfg domain.EngineConfig, cb Callbacks) (Engine, error)
}

type Engine interface {
	Dispose() error
	Play()
	Pause()
	SetToSetupPose()
	Animations() []string
	SetAnimation(name string, loop bool) (Track, error)
	Camera() Camera
}

type Track interface {
	Name() string
	Loop() bool
	OnComplete(fn func())
}

type Camera interface {
	State() domain.CameraState
	SetZoom(zoom float64)
	Pan(dx, dy float64)
	Reset()
}

type CharacterLookup interface {
	ResolveCharacterIDForDatingID(ctx context.Context, datingID string) (string, bool)
}

type HistoryGateway interface {
	Record(ctx context.Context, source domain.SourceDescriptor, identity domain.Identity) error
	List(ctx context.Context) ([]dto.HistoryEntry, error)
	Remove(ctx context.Context, id int64) error
	Clear(ctx context.Context) error
}

// RepairService downloads a missing skeleton into a folder and reports progress to subscribers.
type RepairService interface {
	Subscribe(fn func(domain.RepairEvent)) (unsubscribe func())
	StartRepair(ctx context.Context, folderPath string) error
}
