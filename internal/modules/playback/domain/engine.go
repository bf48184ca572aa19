package domain

// EngineConfig is handed to the rendering runtime. Exactly one of JSONURL and SkelURL is set.
type EngineConfig struct {
	AtlasURL           string
	JSONURL            string
	SkelURL            string
	RawDataURIs        map[string]string
	BackgroundColor    string
	BackgroundImage    string
	PremultipliedAlpha bool
	IsFallback         bool
}

func (c EngineConfig) WithSettings(s Settings) EngineConfig {
	c.BackgroundColor = s.BackgroundColor
	c.BackgroundImage = s.BackgroundImage
	c.PremultipliedAlpha = s.PremultipliedAlpha
	return c
}

// SkeletonURL returns whichever skeleton field is populated.
func (c EngineConfig) SkeletonURL() string {
	if c.JSONURL != "" {
		return c.JSONURL
	}
	return c.SkelURL
}

// Settings are the cross-cutting display preferences the controller observes.
type Settings struct {
	BackgroundColor    string `json:"background_color"`
	BackgroundImage    string `json:"background_image,omitempty"`
	PremultipliedAlpha bool   `json:"premultiplied_alpha"`
	Loop               bool   `json:"loop"`
}

// RequiresReload reports whether switching from s to next changes the engine configuration.
func (s Settings) RequiresReload(next Settings) bool {
	return s.BackgroundColor != next.BackgroundColor ||
		s.BackgroundImage != next.BackgroundImage ||
		s.PremultipliedAlpha != next.PremultipliedAlpha
}

type RenderTarget struct {
	Width  int
	Height int
}

func (r RenderTarget) ZeroSized() bool {
	return r.Width <= 0 || r.Height <= 0
}

type CameraState struct {
	Zoom float64 `json:"zoom"`
	PanX float64 `json:"pan_x"`
	PanY float64 `json:"pan_y"`
}

// DownloadState belongs to a single repair download.
type DownloadState struct {
	IsDownloading   bool    `json:"is_downloading"`
	ProgressPercent float64 `json:"progress_percent"`
	Error           string  `json:"error,omitempty"`
}

// Snapshot is the observable view of the controller.
type Snapshot struct {
	State             SessionState
	Source            *SourceDescriptor
	IsFallbackActive  bool
	FallbackAttempted bool
	IsRetrying        bool
	LastError         *LoadError
	Identity          Identity
	Animations        []string
	CurrentAnimation  string
	Loop              bool
	Camera            CameraState
	Download          DownloadState
	Frames            uint64
}

func (s Snapshot) IsLoading() bool {
	return s.State == StateLoading || s.State == StateRetryingFallback
}

func (s Snapshot) IsActive() bool {
	return s.State == StateActive
}
