package dto

type Settings struct {
	BackgroundColor    string
	BackgroundImage    string
	PremultipliedAlpha bool
	Loop               bool
}

// UpdateInput changes only the non-nil fields.
type UpdateInput struct {
	BackgroundColor    *string
	BackgroundImage    *string
	PremultipliedAlpha *bool
	Loop               *bool
}
