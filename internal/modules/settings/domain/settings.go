package domain

import (
	"fmt"
	"regexp"
	"strings"
)

var colorPattern = regexp.MustCompile(`^#([0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)

// Settings are the user-visible rendering options applied to every preview.
type Settings struct {
	BackgroundColor    string `json:"background_color"`
	BackgroundImage    string `json:"background_image,omitempty"`
	PremultipliedAlpha bool   `json:"premultiplied_alpha"`
	Loop               bool   `json:"loop"`
}

// Validate accepts an empty colour, meaning transparent, or #rrggbb / #rrggbbaa.
func (s Settings) Validate() error {
	if s.BackgroundColor != "" && !colorPattern.MatchString(s.BackgroundColor) {
		return fmt.Errorf("background color %q must be #rrggbb or #rrggbbaa", s.BackgroundColor)
	}
	return nil
}

// Normalize lower-cases the colour and trims the image path.
func (s Settings) Normalize() Settings {
	s.BackgroundColor = strings.ToLower(strings.TrimSpace(s.BackgroundColor))
	s.BackgroundImage = strings.TrimSpace(s.BackgroundImage)
	return s
}

// Patch names the fields an update changes; nil fields are left alone.
type Patch struct {
	BackgroundColor    *string
	BackgroundImage    *string
	PremultipliedAlpha *bool
	Loop               *bool
}

func (p Patch) Empty() bool {
	return p.BackgroundColor == nil && p.BackgroundImage == nil && p.PremultipliedAlpha == nil && p.Loop == nil
}

func (p Patch) Apply(s Settings) Settings {
	if p.BackgroundColor != nil {
		s.BackgroundColor = *p.BackgroundColor
	}
	if p.BackgroundImage != nil {
		s.BackgroundImage = *p.BackgroundImage
	}
	if p.PremultipliedAlpha != nil {
		s.PremultipliedAlpha = *p.PremultipliedAlpha
	}
	if p.Loop != nil {
		s.Loop = *p.Loop
	}
	return s.Normalize()
}
