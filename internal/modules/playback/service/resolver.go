package service

import (
	"context"
	"fmt"
	"path/filepath"

	hclog "github.com/hashicorp/go-hclog"

	"github.com/bruhnn/BD2ModPreview-sub001/internal/modules/playback/domain"
	playbackout "github.com/bruhnn/BD2ModPreview-sub001/internal/modules/playback/port/out"
)

type Resolution struct {
	Config   domain.EngineConfig
	Identity domain.Identity
	Format   domain.SkeletonFormat
}

// Resolver turns a source descriptor into engine configuration. Every error it returns is a *domain.LoadError.
type Resolver struct {
	inspector playbackout.Inspector
	lookup    playbackout.CharacterLookup
	logger    hclog.Logger
}

func NewResolver(inspector playbackout.Inspector, lookup playbackout.CharacterLookup, logger hclog.Logger) *Resolver {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Resolver{inspector: inspector, lookup: lookup, logger: logger.Named("resolver")}
}

func (r *Resolver) Resolve(ctx context.Context, src domain.SourceDescriptor, fallback bool) (Resolution, error) {
	switch src.Kind {
	case domain.SourceKindFolder:
		return r.resolveFolder(ctx, src.Path)
	case domain.SourceKindURL:
		return r.resolveURL(ctx, src, fallback)
	default:
		return Resolution{}, domain.NewLoadError(domain.KindUnknown, fmt.Sprintf("unknown source kind %q", src.Kind))
	}
}

func (r *Resolver) resolveFolder(ctx context.Context, folder string) (Resolution, error) {
	if r.inspector == nil {
		return Resolution{}, domain.NewLoadError(domain.KindUnknown, "no asset inspector configured")
	}
	meta, err := r.inspector.Inspect(ctx, folder)
	if err != nil {
		return Resolution{}, domain.ClassifyInspectionError(err)
	}
	if meta.SkeletonFilename == "" || meta.AtlasFilename == "" {
		detail := "folder has no skeleton file"
		if meta.AtlasFilename == "" {
			detail = "folder has no atlas file"
		}
		return Resolution{}, domain.MissingSkeletonOrJSON(folder, detail)
	}
	format, ok := domain.DetectSkeletonFormat(meta.SkeletonFilename)
	if !ok {
		return Resolution{}, unsupportedSkeleton(meta.SkeletonFilename)
	}

	cfg := domain.EngineConfig{AtlasURL: filepath.Join(folder, meta.AtlasFilename), RawDataURIs: meta.RawData}
	setSkeleton(&cfg, format, filepath.Join(folder, meta.SkeletonFilename))

	modType := domain.ParseModType(meta.ModType)
	modID := meta.ModID
	if meta.ModType == "" {
		modType, modID = domain.ClassifyAssetPath(meta.AtlasFilename)
		if modType == domain.ModTypeUnknown {
			modType, modID = domain.ClassifyAssetPath(filepath.Base(folder))
		}
	}
	return Resolution{Config: cfg, Identity: r.identity(ctx, modType, modID), Format: format}, nil
}

func (r *Resolver) resolveURL(ctx context.Context, src domain.SourceDescriptor, fallback bool) (Resolution, error) {
	if fallback && !src.HasFallback() {
		return Resolution{}, domain.NewLoadError(domain.KindAssetLoading, "source has no fallback urls")
	}
	skel, atlas := src.URLs(fallback)
	format, ok := domain.DetectSkeletonFormat(skel)
	if !ok {
		return Resolution{}, unsupportedSkeleton(skel)
	}
	cfg := domain.EngineConfig{AtlasURL: atlas, IsFallback: fallback}
	setSkeleton(&cfg, format, skel)

	// Identity always comes from the primary URL so a fallback load records the same character.
	modType, modID := domain.ClassifyAssetPath(src.SkeletonURL)
	return Resolution{Config: cfg, Identity: r.identity(ctx, modType, modID), Format: format}, nil
}

func (r *Resolver) identity(ctx context.Context, modType domain.ModType, modID string) domain.Identity {
	id := domain.Identity{ModType: modType, ModID: modID}
	switch {
	case modType.PreservesIdentity():
		id.CharacterID = modID
	case modType == domain.ModTypeDating:
		if r.lookup == nil {
			r.logger.Warn("no character lookup for dating id", "dating_id", modID)
			break
		}
		charID, ok := r.lookup.ResolveCharacterIDForDatingID(ctx, modID)
		if !ok {
			r.logger.Warn("could not resolve character for dating id", "dating_id", modID)
			break
		}
		id.CharacterID = charID
	}
	return id
}

func setSkeleton(cfg *domain.EngineConfig, format domain.SkeletonFormat, location string) {
	if format == domain.SkeletonFormatJSON {
		cfg.JSONURL = location
		return
	}
	cfg.SkelURL = location
}

func unsupportedSkeleton(name string) *domain.LoadError {
	return domain.NewLoadError(domain.KindAssetLoading, fmt.Sprintf("unsupported skeleton type: %s", name))
}
