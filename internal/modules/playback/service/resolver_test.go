package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/bruhnn/BD2ModPreview-sub001/internal/modules/playback/domain"
	"github.com/bruhnn/BD2ModPreview-sub001/internal/modules/playback/service"
)

func TestResolveFolder(t *testing.T) {
	t.Parallel()
	inspector := &fakeInspector{meta: domain.AssetMetadata{
		SkeletonFilename: "illust_dating12.json",
		AtlasFilename:    "illust_dating12.atlas",
		ModType:          "dating",
		ModID:            "12",
	}}
	r := service.NewResolver(inspector, fakeLookup{"12": "000104"}, nil)
	res, err := r.Resolve(context.Background(), domain.FolderSource("/mods/date"), false)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Config.JSONURL != "/mods/date/illust_dating12.json" || res.Config.SkelURL != "" {
		t.Fatalf("unexpected skeleton fields %+v", res.Config)
	}
	if res.Config.AtlasURL != "/mods/date/illust_dating12.atlas" {
		t.Fatalf("unexpected atlas %q", res.Config.AtlasURL)
	}
	if res.Identity.CharacterID != "000104" || res.Identity.ModType != domain.ModTypeDating {
		t.Fatalf("unexpected identity %+v", res.Identity)
	}
}

func TestResolveFolderUnresolvedDatingIsNotFatal(t *testing.T) {
	t.Parallel()
	inspector := &fakeInspector{meta: domain.AssetMetadata{SkeletonFilename: "a.skel", AtlasFilename: "a.atlas", ModType: "dating", ModID: "99"}}
	res, err := service.NewResolver(inspector, fakeLookup{}, nil).Resolve(context.Background(), domain.FolderSource("/m"), false)
	if err != nil {
		t.Fatalf("unresolved identity must not fail: %v", err)
	}
	if res.Identity.CharacterID != "" {
		t.Fatalf("expected no character id, got %q", res.Identity.CharacterID)
	}
}

func TestResolveFolderInspectionFailures(t *testing.T) {
	t.Parallel()
	cases := []struct {
		err  error
		kind domain.ErrorKind
	}{
		{domain.ErrDirectoryNotFound, domain.KindDirectoryNotFound},
		{&domain.DirectoryInvalid{Part1: "not a mod folder:", Part2: "/m"}, domain.KindDirectoryInvalid},
		{errBoom, domain.KindUnknown},
	}
	for _, tc := range cases {
		r := service.NewResolver(&fakeInspector{err: tc.err}, nil, nil)
		_, err := r.Resolve(context.Background(), domain.FolderSource("/m"), false)
		var loadErr *domain.LoadError
		if !errors.As(err, &loadErr) || loadErr.Kind != tc.kind {
			t.Fatalf("inspect error %v: expected %s got %v", tc.err, tc.kind, err)
		}
	}
}

func TestResolveUnsupportedSkeletonType(t *testing.T) {
	t.Parallel()
	r := service.NewResolver(&fakeInspector{meta: domain.AssetMetadata{SkeletonFilename: "a.bin", AtlasFilename: "a.atlas"}}, nil, nil)
	_, err := r.Resolve(context.Background(), domain.FolderSource("/m"), false)
	var loadErr *domain.LoadError
	if !errors.As(err, &loadErr) || loadErr.Kind != domain.KindAssetLoading {
		t.Fatalf("expected AssetLoadingError, got %v", err)
	}
	_, err = r.Resolve(context.Background(), domain.URLSource("https://x/a.txt?v=1", "https://x/a.atlas", "", ""), false)
	if !errors.As(err, &loadErr) || loadErr.Kind != domain.KindAssetLoading {
		t.Fatalf("expected AssetLoadingError for url, got %v", err)
	}
}

func TestResolveURLFallbackKeepsPrimaryIdentity(t *testing.T) {
	t.Parallel()
	r := service.NewResolver(nil, nil, nil)
	src := domain.URLSource(
		"https://cdn/cutscene_char000101.json?token=1",
		"https://cdn/cutscene_char000101.atlas",
		"https://mirror/other.json",
		"https://mirror/other.atlas",
	)
	res, err := r.Resolve(context.Background(), src, true)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Config.JSONURL != "https://mirror/other.json" || !res.Config.IsFallback {
		t.Fatalf("unexpected fallback config %+v", res.Config)
	}
	if res.Identity.ModType != domain.ModTypeCutscene || res.Identity.CharacterID != "000101" {
		t.Fatalf("unexpected identity %+v", res.Identity)
	}

	res, err = r.Resolve(context.Background(), domain.URLSource("https://cdn/bg.skel", "https://cdn/bg.atlas", "", ""), false)
	if err != nil {
		t.Fatalf("unknown identity must not fail: %v", err)
	}
	if res.Identity.ModType != domain.ModTypeUnknown {
		t.Fatalf("expected unknown identity, got %+v", res.Identity)
	}
}
