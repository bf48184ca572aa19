package dto

import "time"

type OpenInput struct {
	Kind                string
	Path                string
	SkeletonURL         string
	AtlasURL            string
	SkeletonURLFallback string
	AtlasURLFallback    string
}

type HistoryEntry struct {
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

type ErrorView struct {
	Kind         string
	Detail       string
	FailedAssets []string
	Diagnostic   []string
	Retryable    bool
	CanRepair    bool
}

type DownloadView struct {
	IsDownloading   bool
	ProgressPercent float64
	Error           string
}

type CameraView struct {
	Zoom float64
	PanX float64
	PanY float64
}

type SessionView struct {
	State             string
	Source            string
	IsLoading         bool
	IsActive          bool
	IsFallbackActive  bool
	FallbackAttempted bool
	CharacterID       string
	ModType           string
	Animations        []string
	CurrentAnimation  string
	Loop              bool
	Error             *ErrorView
	Download          DownloadView
	Camera            CameraView
	Frames            uint64
}

type InspectOutput struct {
	Folder       string
	Skeleton     string
	Atlas        string
	Format       string
	ModType      string
	ModID        string
	CharacterID  string
	RawDataFiles []string
}

type SettingsInput struct {
	BackgroundColor    string
	BackgroundImage    string
	PremultipliedAlpha bool
	Loop               bool
}
