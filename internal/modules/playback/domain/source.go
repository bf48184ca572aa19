package domain

import (
	"fmt"
	"strings"
)

type SourceKind string

const (
	SourceKindFolder SourceKind = "folder"
	SourceKindURL    SourceKind = "url"
)

// SourceDescriptor says where a preview's assets come from. It is a value type.
type SourceDescriptor struct {
	Kind                SourceKind `json:"kind"`
	Path                string     `json:"path,omitempty"`
	SkeletonURL         string     `json:"skeleton_url,omitempty"`
	AtlasURL            string     `json:"atlas_url,omitempty"`
	SkeletonURLFallback string     `json:"skeleton_url_fallback,omitempty"`
	AtlasURLFallback    string     `json:"atlas_url_fallback,omitempty"`
}

func FolderSource(path string) SourceDescriptor {
	return SourceDescriptor{Kind: SourceKindFolder, Path: path}
}

func URLSource(skeletonURL, atlasURL, skeletonFallback, atlasFallback string) SourceDescriptor {
	return SourceDescriptor{
		Kind:                SourceKindURL,
		SkeletonURL:         skeletonURL,
		AtlasURL:            atlasURL,
		SkeletonURLFallback: skeletonFallback,
		AtlasURLFallback:    atlasFallback,
	}
}

// Same reports whether both descriptors identify the same source.
// Fallback URLs are not part of a url source's identity.
func (s SourceDescriptor) Same(other SourceDescriptor) bool {
	if s.Kind != other.Kind {
		return false
	}
	switch s.Kind {
	case SourceKindFolder:
		return s.Path == other.Path
	case SourceKindURL:
		return s.SkeletonURL == other.SkeletonURL && s.AtlasURL == other.AtlasURL
	default:
		return false
	}
}

func (s SourceDescriptor) HasFallback() bool {
	return s.Kind == SourceKindURL && s.SkeletonURLFallback != "" && s.AtlasURLFallback != ""
}

// URLs returns the skeleton and atlas URL for the primary or the fallback pair.
func (s SourceDescriptor) URLs(fallback bool) (string, string) {
	if fallback {
		return s.SkeletonURLFallback, s.AtlasURLFallback
	}
	return s.SkeletonURL, s.AtlasURL
}

func (s SourceDescriptor) Validate() error {
	switch s.Kind {
	case SourceKindFolder:
		if strings.TrimSpace(s.Path) == "" {
			return fmt.Errorf("folder path is required")
		}
	case SourceKindURL:
		if strings.TrimSpace(s.SkeletonURL) == "" || strings.TrimSpace(s.AtlasURL) == "" {
			return fmt.Errorf("skeleton and atlas urls are required")
		}
		if (s.SkeletonURLFallback == "") != (s.AtlasURLFallback == "") {
			return fmt.Errorf("fallback urls must be given as a pair")
		}
	default:
		return fmt.Errorf("unknown source kind %q", string(s.Kind))
	}
	return nil
}

func (s SourceDescriptor) String() string {
	if s.Kind == SourceKindFolder {
		return "folder:" + s.Path
	}
	return "url:" + s.SkeletonURL
}
