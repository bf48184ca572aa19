package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/net/html"
)

// ErrorClassifier turns an opaque runtime diagnostic into a LoadError.
type ErrorClassifier interface {
	Classify(message string) *LoadError
}

// PatternClassifier matches the rendering runtime's free-text diagnostics.
// The order of checks and the literal phrases are a compatibility contract.
type PatternClassifier struct{}

var (
	assetsNotLoadedPattern = regexp.MustCompile(`(?i)assets could not be loaded`)
	skeletonBinaryPattern  = regexp.MustCompile(`(?i)could not load skeleton binary`)
	notFoundCodePattern    = regexp.MustCompile(`\b404\b`)
	tooManyCodePattern     = regexp.MustCompile(`\b429\b`)
	tooLargeCodePattern    = regexp.MustCompile(`\b413\b`)
	retryableCodePattern   = regexp.MustCompile(`\b(404|403|429|413|502|503)\b`)
)

func (PatternClassifier) Classify(message string) *LoadError {
	assets := extractFailedAssets(message)

	if assetsNotLoadedPattern.MatchString(message) {
		switch {
		case notFoundCodePattern.MatchString(message):
			return NewLoadError(KindAssetNotFound, "one or more assets were not found (HTTP 404)").WithAssets(assets)
		case tooManyCodePattern.MatchString(message):
			return NewLoadError(KindAssetTooManyRequests, "asset host is rate limiting requests (HTTP 429)").WithAssets(assets)
		case tooLargeCodePattern.MatchString(message):
			return NewLoadError(KindAssetLoading, "asset payload is too large (HTTP 413)").WithAssets(assets)
		case assets != nil:
			return NewLoadError(KindAssetLoading, failedCountDetail(assets)).WithAssets(assets)
		default:
			return NewLoadError(KindAssetLoading, "assets could not be loaded")
		}
	}

	if loc := skeletonBinaryPattern.FindStringIndex(message); loc != nil {
		rest := strings.TrimSpace(strings.TrimLeft(message[loc[1]:], " \t\r\n:.-"))
		if rest == "" {
			rest = "skeleton binary is unreadable"
		}
		return NewLoadError(KindSkeleton, rest)
	}

	if assets != nil {
		return NewLoadError(KindAssetLoading, failedCountDetail(assets)).WithAssets(assets)
	}
	return NewLoadError(KindPlayer, message)
}

// IsRetryableSignal reports whether a runtime failure is worth retrying against fallback URLs.
func IsRetryableSignal(message string) bool {
	return retryableCodePattern.MatchString(message) || assetsNotLoadedPattern.MatchString(message)
}

func failedCountDetail(assets []string) string {
	if len(assets) == 1 {
		return "1 asset failed to load"
	}
	return fmt.Sprintf("%d assets failed to load", len(assets))
}

// extractFailedAssets recovers the embedded list of failed assets, if any.
// The runtime HTML-escapes its payload; a JSON array of identifiers or an object keyed by
// identifier are both accepted. Anything unparsable yields nil.
func extractFailedAssets(message string) []string {
	decoded := html.UnescapeString(message)
	start := strings.IndexAny(decoded, "[{")
	if start < 0 {
		return nil
	}
	end := strings.LastIndexAny(decoded, "]}")
	if end <= start {
		return nil
	}
	raw := []byte(decoded[start : end+1])

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		if len(list) == 0 {
			return nil
		}
		return list
	}
	var keyed map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keyed); err == nil && len(keyed) > 0 {
		out := make([]string, 0, len(keyed))
		for k := range keyed {
			out = append(out, k)
		}
		sort.Strings(out)
		return out
	}
	return nil
}

// ClassifyInspectionError maps an asset-inspection failure to a LoadError.
func ClassifyInspectionError(err error) *LoadError {
	if err == nil {
		return nil
	}
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr
	}
	if errors.Is(err, ErrDirectoryNotFound) {
		return NewLoadError(KindDirectoryNotFound, err.Error()).WithCause(err)
	}
	var invalid *DirectoryInvalid
	if errors.As(err, &invalid) {
		return NewLoadError(KindDirectoryInvalid, invalid.Part1+" "+invalid.Part2).
			WithDiagnostic(invalid.Part1, invalid.Part2).
			WithCause(err)
	}
	return NewLoadError(KindUnknown, err.Error()).WithCause(err)
}

// DefaultAnimation picks "all" (any case), else the first declared animation, else none.
func DefaultAnimation(names []string) string {
	for _, name := range names {
		if strings.EqualFold(name, "all") {
			return name
		}
	}
	if len(names) > 0 {
		return names[0]
	}
	return ""
}
