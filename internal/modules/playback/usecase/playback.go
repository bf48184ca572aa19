package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/bruhnn/BD2ModPreview-sub001/internal/modules/playback/domain"
	"github.com/bruhnn/BD2ModPreview-sub001/internal/modules/playback/dto"
	playbackin "github.com/bruhnn/BD2ModPreview-sub001/internal/modules/playback/port/in"
	"github.com/bruhnn/BD2ModPreview-sub001/internal/modules/playback/service"
	apperrors "github.com/bruhnn/BD2ModPreview-sub001/internal/platform/errors"
)

type Interactor struct {
	controller *service.Controller
	resolver   *service.Resolver
}

func NewInteractor(controller *service.Controller, resolver *service.Resolver) playbackin.Usecase {
	return &Interactor{controller: controller, resolver: resolver}
}

// Open loads a source and waits for the engine to settle. A load failure is reported in the view,
// not as an error; only invalid input and cancellation are errors.
func (i *Interactor) Open(ctx context.Context, input dto.OpenInput) (dto.SessionView, error) {
	src, err := toSource(input)
	if err != nil {
		return dto.SessionView{}, err
	}
	return i.settle(ctx, i.controller.SetSource(ctx, src))
}

func (i *Interactor) Reload(ctx context.Context) (dto.SessionView, error) {
	return i.settle(ctx, i.controller.ReloadCurrentSource(ctx))
}

// Unload drops the current source; Reload has nothing to reload afterwards.
func (i *Interactor) Unload(context.Context) error {
	i.controller.ClearSource()
	return nil
}

// Close releases the engine but keeps the source for a later Reload.
func (i *Interactor) Close(context.Context) error {
	i.controller.DestroySession()
	return nil
}

func (i *Interactor) Status(context.Context) (dto.SessionView, error) {
	return ToView(i.controller.Snapshot()), nil
}

func (i *Interactor) SetAnimation(_ context.Context, name string, loop bool) (dto.SessionView, error) {
	if err := i.controller.SetAnimation(name, loop); err != nil {
		return dto.SessionView{}, err
	}
	return ToView(i.controller.Snapshot()), nil
}

func (i *Interactor) Zoom(_ context.Context, zoom float64) error {
	if zoom <= 0 {
		return fmt.Errorf("%w: zoom must be positive", apperrors.ErrInvalidInput)
	}
	return i.controller.Zoom(zoom)
}

func (i *Interactor) Pan(_ context.Context, dx, dy float64) error {
	return i.controller.PanCamera(dx, dy)
}

func (i *Interactor) ResetCamera(context.Context) error {
	return i.controller.ResetCamera()
}

func (i *Interactor) Inspect(ctx context.Context, folder string) (dto.InspectOutput, error) {
	res, err := i.resolver.Resolve(ctx, domain.FolderSource(folder), false)
	if err != nil {
		return dto.InspectOutput{}, err
	}
	out := dto.InspectOutput{
		Folder:      folder,
		Skeleton:    res.Config.SkeletonURL(),
		Atlas:       res.Config.AtlasURL,
		Format:      string(res.Format),
		ModType:     string(res.Identity.ModType),
		ModID:       res.Identity.ModID,
		CharacterID: res.Identity.CharacterID,
	}
	for name := range res.Config.RawDataURIs {
		out.RawDataFiles = append(out.RawDataFiles, name)
	}
	sort.Strings(out.RawDataFiles)
	return out, nil
}

func (i *Interactor) Repair(ctx context.Context) (dto.SessionView, error) {
	if err := i.controller.RepairMissingSkeleton(ctx); err != nil {
		return ToView(i.controller.Snapshot()), err
	}
	return i.settle(ctx, nil)
}

func (i *Interactor) ApplySettings(ctx context.Context, input dto.SettingsInput) error {
	return i.controller.ApplySettings(ctx, domain.Settings{
		BackgroundColor:    input.BackgroundColor,
		BackgroundImage:    input.BackgroundImage,
		PremultipliedAlpha: input.PremultipliedAlpha,
		Loop:               input.Loop,
	})
}

func (i *Interactor) History(ctx context.Context) ([]dto.HistoryEntry, error) {
	return i.controller.History(ctx)
}

func (i *Interactor) RemoveHistoryEntry(ctx context.Context, id int64) error {
	return i.controller.RemoveHistoryEntry(ctx, id)
}

func (i *Interactor) ClearHistory(ctx context.Context) error {
	return i.controller.ClearHistory(ctx)
}

func (i *Interactor) Subscribe(fn func(dto.SessionView)) func() {
	return i.controller.Subscribe(func(s domain.Snapshot) { fn(ToView(s)) })
}

// settle turns a load error into the session view. LoadErrors are already recorded in the session.
func (i *Interactor) settle(ctx context.Context, err error) (dto.SessionView, error) {
	var loadErr *domain.LoadError
	if err != nil && !errors.As(err, &loadErr) {
		return ToView(i.controller.Snapshot()), err
	}
	snap, err := i.controller.AwaitSettled(ctx)
	return ToView(snap), err
}

func toSource(input dto.OpenInput) (domain.SourceDescriptor, error) {
	var src domain.SourceDescriptor
	switch domain.SourceKind(input.Kind) {
	case domain.SourceKindFolder:
		src = domain.FolderSource(input.Path)
	case domain.SourceKindURL:
		src = domain.URLSource(input.SkeletonURL, input.AtlasURL, input.SkeletonURLFallback, input.AtlasURLFallback)
	default:
		return src, fmt.Errorf("%w: unknown source kind %q", apperrors.ErrInvalidInput, input.Kind)
	}
	if err := src.Validate(); err != nil {
		return src, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	return src, nil
}

func ToView(s domain.Snapshot) dto.SessionView {
	view := dto.SessionView{
		State:             string(s.State),
		IsLoading:         s.IsLoading(),
		IsActive:          s.IsActive(),
		IsFallbackActive:  s.IsFallbackActive,
		FallbackAttempted: s.FallbackAttempted,
		CharacterID:       s.Identity.CharacterID,
		ModType:           string(s.Identity.ModType),
		Animations:        s.Animations,
		CurrentAnimation:  s.CurrentAnimation,
		Loop:              s.Loop,
		Download: dto.DownloadView{
			IsDownloading:   s.Download.IsDownloading,
			ProgressPercent: s.Download.ProgressPercent,
			Error:           s.Download.Error,
		},
		Camera: dto.CameraView{Zoom: s.Camera.Zoom, PanX: s.Camera.PanX, PanY: s.Camera.PanY},
		Frames: s.Frames,
	}
	if s.Source != nil {
		view.Source = s.Source.String()
	}
	if e := s.LastError; e != nil {
		view.Error = &dto.ErrorView{
			Kind:         string(e.Kind),
			Detail:       e.Detail,
			FailedAssets: e.FailedAssets,
			Diagnostic:   e.Diagnostic,
			Retryable:    e.Retryable,
			CanRepair:    e.Recovery != nil && s.Source != nil && s.Source.Kind == domain.SourceKindFolder,
		}
	}
	return view
}
