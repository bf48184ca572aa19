package out

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// YAMLCharacterLookup maps dating ids to character ids from a yaml file:
//
//	dating:
//	  "12": "000104"
type YAMLCharacterLookup struct {
	dating map[string]string
}

type charactersFile struct {
	Dating map[string]string `yaml:"dating"`
}

// NewYAMLCharacterLookup loads path. A missing file gives an empty table.
func NewYAMLCharacterLookup(path string) (*YAMLCharacterLookup, error) {
	lookup := &YAMLCharacterLookup{dating: map[string]string{}}
	if strings.TrimSpace(path) == "" {
		return lookup, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return lookup, nil
		}
		return nil, fmt.Errorf("read characters file: %w", err)
	}
	var file charactersFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse characters file: %w", err)
	}
	for k, v := range file.Dating {
		lookup.dating[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return lookup, nil
}

func (l *YAMLCharacterLookup) ResolveCharacterIDForDatingID(_ context.Context, datingID string) (string, bool) {
	id, ok := l.dating[strings.TrimSpace(datingID)]
	if !ok || id == "" {
		return "", false
	}
	return id, true
}
