package in

import (
	"context"

	"github.com/bruhnn/BD2ModPreview-sub001/internal/modules/playback/dto"
	playbackin "github.com/bruhnn/BD2ModPreview-sub001/internal/modules/playback/port/in"
)

type CLIHandler struct {
	usecase playbackin.Usecase
}

func NewCLIHandler(usecase playbackin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) OpenFolder(ctx context.Context, path string) (dto.SessionView, error) {
	return h.usecase.Open(ctx, dto.OpenInput{Kind: "folder", Path: path})
}

func (h CLIHandler) OpenURL(ctx context.Context, skeletonURL, atlasURL, skeletonFallback, atlasFallback string) (dto.SessionView, error) {
	return h.usecase.Open(ctx, dto.OpenInput{
		Kind:                "url",
		SkeletonURL:         skeletonURL,
		AtlasURL:            atlasURL,
		SkeletonURLFallback: skeletonFallback,
		AtlasURLFallback:    atlasFallback,
	})
}

func (h CLIHandler) SetAnimation(ctx context.Context, name string, loop bool) (dto.SessionView, error) {
	return h.usecase.SetAnimation(ctx, name, loop)
}

func (h CLIHandler) Inspect(ctx context.Context, folder string) (dto.InspectOutput, error) {
	return h.usecase.Inspect(ctx, folder)
}

func (h CLIHandler) Repair(ctx context.Context) (dto.SessionView, error) {
	return h.usecase.Repair(ctx)
}
