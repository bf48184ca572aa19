package domain

import (
	"path"
	"regexp"
	"strings"
)

type ModType string

const (
	ModTypeIdle     ModType = "idle"
	ModTypeCutscene ModType = "cutscene"
	ModTypeScene    ModType = "scene"
	ModTypeNPC      ModType = "npc"
	ModTypeDating   ModType = "dating"
	ModTypeUnknown  ModType = "unknown"
)

// PreservesIdentity reports whether a mod id of this type is itself a character id.
func (t ModType) PreservesIdentity() bool {
	return t == ModTypeIdle || t == ModTypeCutscene
}

func ParseModType(raw string) ModType {
	switch ModType(strings.ToLower(strings.TrimSpace(raw))) {
	case ModTypeIdle:
		return ModTypeIdle
	case ModTypeCutscene:
		return ModTypeCutscene
	case ModTypeScene:
		return ModTypeScene
	case ModTypeNPC:
		return ModTypeNPC
	case ModTypeDating:
		return ModTypeDating
	default:
		return ModTypeUnknown
	}
}

// Identity is the character/mod classification of a loaded source.
type Identity struct {
	ModType     ModType `json:"mod_type"`
	ModID       string  `json:"mod_id,omitempty"`
	CharacterID string  `json:"character_id,omitempty"`
}

type assetPattern struct {
	modType ModType
	re      *regexp.Regexp
}

// Checked in order; cutscene must win over the plain character pattern.
var assetPatterns = []assetPattern{
	{modType: ModTypeCutscene, re: regexp.MustCompile(`(?i)cutscene_char(\d{6})`)},
	{modType: ModTypeDating, re: regexp.MustCompile(`(?i)illust_dating(\d+)`)},
	{modType: ModTypeScene, re: regexp.MustCompile(`(?i)specialillust(\d+)`)},
	{modType: ModTypeNPC, re: regexp.MustCompile(`(?i)npc(\d+)`)},
	{modType: ModTypeIdle, re: regexp.MustCompile(`(?i)char(\d{6})`)},
}

// ClassifyAssetPath infers a mod type and id from a skeleton URL or asset path.
// An unmatched path yields ModTypeUnknown with an empty id.
func ClassifyAssetPath(assetPath string) (ModType, string) {
	for _, p := range assetPatterns {
		if m := p.re.FindStringSubmatch(assetPath); m != nil {
			return p.modType, m[1]
		}
	}
	return ModTypeUnknown, ""
}

// SkeletonFormat tells the engine which loader to use.
type SkeletonFormat string

const (
	SkeletonFormatJSON   SkeletonFormat = "json"
	SkeletonFormatBinary SkeletonFormat = "skel"
)

// DetectSkeletonFormat reads the extension of a skeleton filename or URL, ignoring
// any query string or fragment.
func DetectSkeletonFormat(name string) (SkeletonFormat, bool) {
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	switch strings.ToLower(path.Ext(name)) {
	case ".json":
		return SkeletonFormatJSON, true
	case ".skel":
		return SkeletonFormatBinary, true
	default:
		return "", false
	}
}
