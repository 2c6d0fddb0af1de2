package project

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/keagan/tabreel/internal/export"
	"github.com/keagan/tabreel/internal/media"
	"github.com/keagan/tabreel/internal/timeline"
	"github.com/keagan/tabreel/internal/transition"
)

type fakeProber map[string]media.Info

func (f fakeProber) Probe(ctx context.Context, ref string) (media.Info, error) {
	info, ok := f[ref]
	if !ok {
		return media.Info{}, media.ErrNotFound
	}
	return info, nil
}

var sources = fakeProber{
	"store:intro": {Width: 1920, Height: 1080, Duration: 8.005},
	"demo.webm":   {Width: 1280, Height: 720, Duration: 12},
}

const doc = `
name: launch
clips:
  - source: store:intro
    id: intro
    trim_start: "00:01.50"
    trim_end: "00:06.00"
  - source: demo.webm
    name: Demo
    position: 10
    color: "#FF5656"
background:
  type: gradient
  angle: 90
  stops:
    - {color: "#000000", position: 100}
    - {color: "#ffffff", position: 0}
padding: 24
border_radius: 12
transition: fade
transition_duration: 0.75
window:
  start: "00:01.00"
  end: "00:20.00"
export:
  format: webm
  fps: 24
`

func TestParseAndBuild(t *testing.T) {
	p, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	st, err := p.Build(context.Background(), sources)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	intro, ok := st.Clip("intro")
	if !ok {
		t.Fatal("intro clip missing")
	}
	if intro.SourceTrimStart != 1.5 || intro.SourceTrimEnd != 6 || intro.SourceMaxTime != 8.005 {
		t.Errorf("unexpected intro trims %+v", intro)
	}

	clips := st.TimelineOrder()
	if len(clips) != 2 {
		t.Fatalf("got %d clips", len(clips))
	}
	demo := clips[1]
	if demo.DisplayName != "Demo" || demo.TimelinePosition != 10 || demo.TimelineColor != "#FF5656" {
		t.Errorf("unexpected demo clip %+v", demo)
	}
	if st.Padding() != 24 || st.BorderRadius() != 12 || st.Transition() != transition.Fade || st.TransitionDuration() != 0.75 {
		t.Error("style not applied")
	}
	if g, ok := st.Background().(timeline.Gradient); !ok || g.Angle != 90 || len(g.Stops) != 2 {
		t.Errorf("unexpected background %#v", st.Background())
	}
	if start, end := st.ClipWindow(); start != 1 || end != 20 {
		t.Errorf("window = %v..%v", start, end)
	}

	opts := p.ExportOptions(export.DefaultOptions())
	if opts.Format != export.WebM || opts.Quality != export.High || opts.FPS != 24 {
		t.Errorf("unexpected export options %+v", opts)
	}
}

func TestBuildProbeFailure(t *testing.T) {
	p, err := Parse([]byte("clips:\n  - source: missing.mp4\n"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Build(context.Background(), sources); !errors.Is(err, media.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestBuildRejectsInvalidTrim(t *testing.T) {
	p, err := Parse([]byte("clips:\n  - source: demo.webm\n    trim_start: 5\n    trim_end: 4\n"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Build(context.Background(), sources); !errors.Is(err, timeline.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestParseErrors(t *testing.T) {
	for _, input := range []string{
		"clips:\n  - name: no source\n",
		"clips:\n  - source: a.webm\n    position: \"1:2\"\n",
		"clips: [",
	} {
		if _, err := Parse([]byte(input)); err == nil {
			t.Errorf("expected error for %q", input)
		}
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	p, err := Parse([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	st, err := p.Build(context.Background(), sources)
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "launch.yaml")
	if err := FromState("launch", st, p.ExportOptions(export.DefaultOptions())).Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Clips[0].Position == nil || float64(*loaded.Clips[0].Position) != 0 {
		t.Errorf("positions not written: %+v", loaded.Clips[0])
	}
	rebuilt, err := loaded.Build(context.Background(), sources)
	if err != nil {
		t.Fatalf("rebuild failed: %v", err)
	}
	if rebuilt.TimelineDuration() != st.TimelineDuration() || rebuilt.ClipCount() != st.ClipCount() {
		t.Errorf("rebuilt duration %v, want %v", rebuilt.TimelineDuration(), st.TimelineDuration())
	}
}
