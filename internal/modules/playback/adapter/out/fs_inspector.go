package out

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bruhnn/BD2ModPreview-sub001/internal/modules/playback/domain"
)

const modfileName = "modfile.json"

// FSInspector reads a mod folder straight from disk.
type FSInspector struct{}

func NewFSInspector() *FSInspector {
	return &FSInspector{}
}

type modfile struct {
	Type     string `json:"type"`
	ID       string `json:"id"`
	Skeleton string `json:"skeleton"`
	Atlas    string `json:"atlas"`
}

func (i *FSInspector) Inspect(ctx context.Context, folder string) (domain.AssetMetadata, error) {
	info, err := os.Stat(folder)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.AssetMetadata{}, fmt.Errorf("%w: %s", domain.ErrDirectoryNotFound, folder)
		}
		return domain.AssetMetadata{}, fmt.Errorf("stat folder: %w", err)
	}
	if !info.IsDir() {
		return domain.AssetMetadata{}, &domain.DirectoryInvalid{Part1: "not a directory:", Part2: folder}
	}
	entries, err := os.ReadDir(folder)
	if err != nil {
		return domain.AssetMetadata{}, fmt.Errorf("read folder: %w", err)
	}

	var atlases, skels, jsons []string
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return domain.AssetMetadata{}, err
		}
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		switch strings.ToLower(filepath.Ext(name)) {
		case ".atlas":
			atlases = append(atlases, name)
		case ".skel":
			skels = append(skels, name)
		case ".json":
			if strings.EqualFold(name, modfileName) {
				continue
			}
			if isSkeletonJSON(filepath.Join(folder, name)) {
				jsons = append(jsons, name)
			}
		}
	}
	if len(atlases) == 0 && len(skels) == 0 && len(jsons) == 0 {
		return domain.AssetMetadata{}, &domain.DirectoryInvalid{Part1: "no spine assets found in", Part2: folder}
	}
	sort.Strings(atlases)
	sort.Strings(skels)
	sort.Strings(jsons)

	meta := domain.AssetMetadata{AtlasFilename: first(atlases)}
	meta.SkeletonFilename = pickSkeleton(meta.AtlasFilename, skels, jsons)

	mf, err := readModfile(filepath.Join(folder, modfileName))
	if err != nil {
		return domain.AssetMetadata{}, err
	}
	if mf.Skeleton != "" {
		meta.SkeletonFilename = mf.Skeleton
	}
	if mf.Atlas != "" {
		meta.AtlasFilename = mf.Atlas
	}
	if mf.Type != "" {
		meta.ModType, meta.ModID = mf.Type, mf.ID
		return meta, nil
	}
	modType, modID := domain.ClassifyAssetPath(meta.AtlasFilename)
	if modType == domain.ModTypeUnknown {
		modType, modID = domain.ClassifyAssetPath(filepath.Base(folder))
	}
	if modType != domain.ModTypeUnknown {
		meta.ModType, meta.ModID = string(modType), modID
	}
	return meta, nil
}

// pickSkeleton prefers a skeleton sharing the atlas stem, binary over json.
func pickSkeleton(atlas string, skels, jsons []string) string {
	stem := strings.TrimSuffix(atlas, filepath.Ext(atlas))
	for _, group := range [][]string{skels, jsons} {
		for _, name := range group {
			if stem != "" && strings.EqualFold(strings.TrimSuffix(name, filepath.Ext(name)), stem) {
				return name
			}
		}
	}
	if s := first(skels); s != "" {
		return s
	}
	return first(jsons)
}

func isSkeletonJSON(path string) bool {
	raw, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return false
	}
	_, hasSkeleton := top["skeleton"]
	_, hasBones := top["bones"]
	return hasSkeleton || hasBones
}

func readModfile(path string) (modfile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return modfile{}, nil
		}
		return modfile{}, fmt.Errorf("read modfile: %w", err)
	}
	var mf modfile
	if err := json.Unmarshal(raw, &mf); err != nil {
		return modfile{}, fmt.Errorf("parse modfile: %w", err)
	}
	return mf, nil
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
