package domain

import (
	"errors"
	"fmt"
)

var ErrDirectoryNotFound = errors.New("directory not found")

// DirectoryInvalid is reported when a directory exists but holds no recognisable asset bundle.
// Both parts are shown to the user verbatim.
type DirectoryInvalid struct {
	Part1 string
	Part2 string
}

func (e *DirectoryInvalid) Error() string {
	return fmt.Sprintf("invalid directory: %s %s", e.Part1, e.Part2)
}

// AssetMetadata is what the asset-inspection service reports for a folder.
type AssetMetadata struct {
	SkeletonFilename string            `json:"skeleton_filename"`
	AtlasFilename    string            `json:"atlas_filename"`
	RawData          map[string]string `json:"raw_data,omitempty"`
	ModType          string            `json:"mod_type,omitempty"`
	ModID            string            `json:"mod_id,omitempty"`
}
