package app

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	playbackdto "github.com/bruhnn/BD2ModPreview-sub001/internal/modules/playback/dto"
	settingsdto "github.com/bruhnn/BD2ModPreview-sub001/internal/modules/settings/dto"
)

type fakePlayback struct {
	opened  []playbackdto.OpenInput
	zooms   []float64
	removed []int64
	view    playbackdto.SessionView
}

func (f *fakePlayback) Open(_ context.Context, in playbackdto.OpenInput) (playbackdto.SessionView, error) {
	f.opened = append(f.opened, in)
	return f.view, nil
}

func (f *fakePlayback) OpenHistoryEntry(_ context.Context, e playbackdto.HistoryEntry) (playbackdto.SessionView, error) {
	return f.view, nil
}

func (f *fakePlayback) Reload(context.Context) (playbackdto.SessionView, error) { return f.view, nil }
func (f *fakePlayback) Close(context.Context) error                             { return nil }
func (f *fakePlayback) Status(context.Context) (playbackdto.SessionView, error) { return f.view, nil }

func (f *fakePlayback) SetAnimation(_ context.Context, name string, loop bool) (playbackdto.SessionView, error) {
	f.view.CurrentAnimation, f.view.Loop = name, loop
	return f.view, nil
}

func (f *fakePlayback) Zoom(_ context.Context, zoom float64) error {
	f.zooms = append(f.zooms, zoom)
	return nil
}

func (f *fakePlayback) Pan(context.Context, float64, float64) error             { return nil }
func (f *fakePlayback) ResetCamera(context.Context) error                       { return nil }
func (f *fakePlayback) Repair(context.Context) (playbackdto.SessionView, error) { return f.view, nil }

func (f *fakePlayback) History(context.Context) ([]playbackdto.HistoryEntry, error) {
	return nil, nil
}

func (f *fakePlayback) RemoveHistoryEntry(_ context.Context, id int64) error {
	f.removed = append(f.removed, id)
	return nil
}

func (f *fakePlayback) ClearHistory(context.Context) error { return nil }

type fakeSettings struct{ set map[string]string }

func (f *fakeSettings) Show(context.Context) (settingsdto.Settings, error) {
	return settingsdto.Settings{}, nil
}

func (f *fakeSettings) Set(_ context.Context, key, value string) (settingsdto.Settings, error) {
	if f.set == nil {
		f.set = map[string]string{}
	}
	f.set[key] = value
	return settingsdto.Settings{}, nil
}

func run(t *testing.T, m tea.Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd != nil {
		if msg := cmd(); msg != nil {
			m, _ = m.Update(msg)
		}
	}
	return m.(Model)
}

func TestPaletteOpenURLWithFallbacks(t *testing.T) {
	t.Parallel()
	pb := &fakePlayback{view: playbackdto.SessionView{State: "Active", IsActive: true}}
	m := NewModel(pb, &fakeSettings{}, playbackdto.OpenInput{})

	next, cmd := m.executePalette("open:url https://a/s.skel https://a/s.atlas https://b/s.skel https://b/s.atlas")
	got := run(t, next, cmd)

	if len(pb.opened) != 1 {
		t.Fatalf("open calls = %d, want 1", len(pb.opened))
	}
	in := pb.opened[0]
	if in.Kind != "url" || in.SkeletonURLFallback != "https://b/s.skel" || in.AtlasURLFallback != "https://b/s.atlas" {
		t.Fatalf("unexpected open input: %+v", in)
	}
	if got.status != "open: Active" {
		t.Fatalf("status = %q", got.status)
	}
}

func TestPaletteRejectsIncompleteFallbackPair(t *testing.T) {
	t.Parallel()
	pb := &fakePlayback{}
	m := NewModel(pb, &fakeSettings{}, playbackdto.OpenInput{})

	next, cmd := m.executePalette("open:url https://a/s.skel https://a/s.atlas https://b/s.skel")
	if cmd != nil {
		t.Fatalf("expected no command for a partial fallback pair")
	}
	if len(pb.opened) != 0 || next.(Model).status == "" {
		t.Fatalf("expected usage status and no open call")
	}
}

func TestPaletteOpenFolderKeepsSpaces(t *testing.T) {
	t.Parallel()
	pb := &fakePlayback{}
	m := NewModel(pb, &fakeSettings{}, playbackdto.OpenInput{})

	next, cmd := m.executePalette("open:folder /mods/char 01")
	run(t, next, cmd)

	if len(pb.opened) != 1 || pb.opened[0].Path != "/mods/char 01" {
		t.Fatalf("unexpected open inputs: %+v", pb.opened)
	}
}

func TestZoomKeyScalesCurrentZoom(t *testing.T) {
	t.Parallel()
	pb := &fakePlayback{}
	m := NewModel(pb, &fakeSettings{}, playbackdto.OpenInput{})
	m.preview.SetSession(playbackdto.SessionView{State: "Active", Camera: playbackdto.CameraView{Zoom: 2}})

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'+'}})
	run(t, next, cmd)

	if len(pb.zooms) != 1 || pb.zooms[0] != 2*zoomStep {
		t.Fatalf("zooms = %v, want [%v]", pb.zooms, 2*zoomStep)
	}
}

func TestPaletteHistoryAndSettings(t *testing.T) {
	t.Parallel()
	pb := &fakePlayback{}
	st := &fakeSettings{}
	m := NewModel(pb, st, playbackdto.OpenInput{})

	next, cmd := m.executePalette("history:remove 7")
	run(t, next, cmd)
	if len(pb.removed) != 1 || pb.removed[0] != 7 {
		t.Fatalf("removed = %v", pb.removed)
	}

	next, cmd = m.executePalette("settings:set background_color #112233")
	run(t, next, cmd)
	if st.set["background_color"] != "#112233" {
		t.Fatalf("settings = %v", st.set)
	}

	next, _ = m.executePalette("nope")
	if next.(Model).status != "unknown command: nope" {
		t.Fatalf("status = %q", next.(Model).status)
	}
}
