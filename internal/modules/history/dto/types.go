package dto

import "time"

type RecordInput struct {
	Kind                string
	Path                string
	SkeletonURL         string
	AtlasURL            string
	SkeletonURLFallback string
	AtlasURLFallback    string
	CharacterID         string
	ModType             string
}

type Entry struct {
	ID                  int64
	Kind                string
	Path                string
	SkeletonURL         string
	AtlasURL            string
	SkeletonURLFallback string
	AtlasURLFallback    string
	CharacterID         string
	ModType             string
	Timestamp           time.Time
}
