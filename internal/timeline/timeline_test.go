package timeline

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/keagan/tabreel/internal/transition"
)

func mustAdd(t *testing.T, s EditorState, id string, dur float64) EditorState {
	t.Helper()
	next, err := s.AddClip(ClipSpec{SourceRef: "store:" + id, Width: 640, Height: 360, Duration: dur, PlacementID: id})
	if err != nil {
		t.Fatalf("AddClip(%s) failed: %v", id, err)
	}
	return next
}

func ptr[T any](v T) *T { return &v }

func TestNewDefaults(t *testing.T) {
	s := New()
	if bg, ok := s.Background().(Solid); !ok || bg.Color != DefaultBackgroundColor {
		t.Errorf("unexpected default background %#v", s.Background())
	}
	if s.Transition() != transition.None || s.TransitionDuration() != DefaultTransitionDuration {
		t.Errorf("unexpected transition defaults %s %v", s.Transition(), s.TransitionDuration())
	}
	if s.ClipCount() != 0 || s.HasClipWindow() {
		t.Error("expected empty state without a window")
	}
}

func TestAddClipAppendsSequentially(t *testing.T) {
	s := New()
	durations := []float64{2, 3.5, 1.25}
	var sum float64
	for i, d := range durations {
		s = mustAdd(t, s, string(rune('a'+i)), d)
		c := s.Clips()[i]
		if c.SourceTrimStart != 0 || c.SourceTrimEnd != d {
			t.Errorf("clip %d: expected trim [0,%v], got [%v,%v]", i, d, c.SourceTrimStart, c.SourceTrimEnd)
		}
		if c.TimelinePosition != sum {
			t.Errorf("clip %d: expected position %v, got %v", i, sum, c.TimelinePosition)
		}
		if c.TimelineColor != Palette[i] || c.Channel != DefaultChannel {
			t.Errorf("clip %d: unexpected color/channel %s %s", i, c.TimelineColor, c.Channel)
		}
		sum += d
	}
	if s.TimelineDuration() != sum {
		t.Errorf("expected duration %v, got %v", sum, s.TimelineDuration())
	}
}

func TestAddClipDuplicateIsNoop(t *testing.T) {
	s := mustAdd(t, New(), "a", 2)
	next, err := s.AddClip(ClipSpec{SourceRef: "x", Width: 1, Height: 1, Duration: 9, PlacementID: "a"})
	if !errors.Is(err, ErrDuplicateClip) {
		t.Fatalf("expected ErrDuplicateClip, got %v", err)
	}
	if !reflect.DeepEqual(next, s) {
		t.Error("state changed on duplicate add")
	}
}

func TestAddClipGeneratesID(t *testing.T) {
	s, err := New().AddClip(ClipSpec{SourceRef: "file.webm", Width: 10, Height: 10, Duration: 1})
	if err != nil {
		t.Fatal(err)
	}
	if s.Clips()[0].ID == "" || s.Clips()[0].DisplayName != "file.webm" {
		t.Errorf("unexpected clip %+v", s.Clips()[0])
	}
}

func TestAddClipRejectsBadSpec(t *testing.T) {
	specs := []ClipSpec{
		{SourceRef: "", Width: 1, Height: 1, Duration: 1},
		{SourceRef: "a", Width: 0, Height: 1, Duration: 1},
		{SourceRef: "a", Width: 1, Height: 1, Duration: 0},
		{SourceRef: "a", Width: 1, Height: 1, Duration: math.NaN()},
	}
	for _, spec := range specs {
		if _, err := New().AddClip(spec); !errors.Is(err, ErrValidation) {
			t.Errorf("AddClip(%+v) error = %v, want validation error", spec, err)
		}
	}
}

func TestClipWindowTracksTimeline(t *testing.T) {
	s := mustAdd(t, New(), "a", 2)
	if start, end := s.ClipWindow(); start != 0 || end != 2 {
		t.Fatalf("expected window [0,2], got [%v,%v]", start, end)
	}
	s = mustAdd(t, s, "b", 3)
	if _, end := s.ClipWindow(); end != 5 {
		t.Errorf("expected window to extend to 5, got %v", end)
	}

	s, err := s.SetClipWindow(1, 4)
	if err != nil {
		t.Fatal(err)
	}
	s = mustAdd(t, s, "c", 1)
	if start, end := s.ClipWindow(); start != 1 || end != 4 {
		t.Errorf("expected user window kept, got [%v,%v]", start, end)
	}
}

func TestSetClipWindow(t *testing.T) {
	s, err := New().SetClipWindow(-2, 3)
	if err != nil {
		t.Fatal(err)
	}
	if start, end := s.ClipWindow(); start != 0 || end != 3 {
		t.Errorf("expected [0,3], got [%v,%v]", start, end)
	}

	next, err := s.SetClipWindow(-5, -1)
	if !errors.Is(err, ErrInvalidWindow) {
		t.Errorf("expected ErrInvalidWindow, got %v", err)
	}
	if start, end := next.ClipWindow(); start != 0 || end != 3 {
		t.Error("rejected window changed the state")
	}

	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Op != "setClipWindow" {
		t.Errorf("expected a ValidationError from setClipWindow, got %#v", err)
	}
}

func TestClipWindowFollowsTimelineAfterTrim(t *testing.T) {
	s := mustAdd(t, New(), "a", 10)
	s, err := s.UpdateClip("a", ClipPatch{SourceTrimEnd: ptr(4.0)})
	if err != nil {
		t.Fatal(err)
	}
	s = mustAdd(t, s, "b", 10)

	if s.HasClipWindow() {
		t.Error("no window was set")
	}
	if start, end := s.ClipWindow(); start != 0 || end != 14 {
		t.Errorf("expected window [0,14], got [%v,%v]", start, end)
	}
	if start, end, err := s.ExportRange(); err != nil || start != 0 || end != 14 {
		t.Errorf("expected export range [0,14], got [%v,%v] err=%v", start, end, err)
	}
	if snap := s.Snapshot(); snap.ClipWindowEnd != 14 {
		t.Errorf("expected snapshot window end 14, got %v", snap.ClipWindowEnd)
	}

	s, err = s.RemoveClip("b")
	if err != nil {
		t.Fatal(err)
	}
	if _, end := s.ClipWindow(); end != 4 {
		t.Errorf("expected window to shrink to 4, got %v", end)
	}
}

func TestAddClipAvoidsMovedClip(t *testing.T) {
	s := mustAdd(t, New(), "a", 5)
	s = mustAdd(t, s, "b", 5)
	s, err := s.UpdateClip("a", ClipPatch{TimelinePosition: ptr(20.0)})
	if err != nil {
		t.Fatal(err)
	}
	s = mustAdd(t, s, "c", 15)

	c, _ := s.Clip("c")
	if c.TimelinePosition != 25 {
		t.Errorf("expected c placed after the moved clip at 25, got %v", c.TimelinePosition)
	}
	clips := s.Clips()
	for i := range clips {
		for j := i + 1; j < len(clips); j++ {
			if overlaps(clips[i], clips[j]) {
				t.Errorf("clips %s and %s overlap", clips[i].ID, clips[j].ID)
			}
		}
	}

	// appends continue from the last added clip
	s = mustAdd(t, s, "d", 2)
	if d, _ := s.Clip("d"); d.TimelinePosition != 40 {
		t.Errorf("expected d appended after c at 40, got %v", d.TimelinePosition)
	}
}

func TestClamps(t *testing.T) {
	s := New()
	tests := []struct {
		name string
		set  func(EditorState, float64) (EditorState, error)
		get  func(EditorState) float64
		in   float64
		want float64
	}{
		{"padding low", EditorState.SetPadding, EditorState.Padding, -10, 0},
		{"padding high", EditorState.SetPadding, EditorState.Padding, 900, 500},
		{"padding in range", EditorState.SetPadding, EditorState.Padding, 42, 42},
		{"radius high", EditorState.SetBorderRadius, EditorState.BorderRadius, 101, 100},
		{"radius low", EditorState.SetBorderRadius, EditorState.BorderRadius, -1, 0},
		{"transition low", EditorState.SetTransitionDuration, EditorState.TransitionDuration, 0, 0.1},
		{"transition high", EditorState.SetTransitionDuration, EditorState.TransitionDuration, 60, 5},
	}
	for _, tt := range tests {
		next, err := tt.set(s, tt.in)
		if err != nil {
			t.Errorf("%s: unexpected error %v", tt.name, err)
			continue
		}
		if got := tt.get(next); got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
		}
		again, _ := tt.set(next, tt.get(next))
		if tt.get(again) != tt.get(next) {
			t.Errorf("%s: not idempotent", tt.name)
		}
	}

	if _, err := s.SetPadding(math.NaN()); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("expected ErrInvalidValue for NaN padding, got %v", err)
	}
}

func TestSetTransition(t *testing.T) {
	s, err := New().SetTransition(transition.WipeDown)
	if err != nil || s.Transition() != transition.WipeDown {
		t.Fatalf("SetTransition failed: %v", err)
	}
	if _, err := s.SetTransition("spin"); !errors.Is(err, ErrUnknownTransition) {
		t.Errorf("expected ErrUnknownTransition, got %v", err)
	}
}

func TestSetBackground(t *testing.T) {
	s, err := New().SetBackground(Gradient{
		Stops: []Stop{{Color: "#ff0000", Position: 80}, {Color: "#0000ff", Position: 10}},
		Angle: 90,
	})
	if err != nil {
		t.Fatal(err)
	}
	g := s.Background().(Gradient)
	sorted := g.SortedStops()
	if sorted[0].Color != "#0000ff" || sorted[1].Color != "#ff0000" {
		t.Errorf("unexpected stop order %+v", sorted)
	}
	if g.Stops[0].Position != 80 {
		t.Error("stored stops should keep caller order")
	}

	bad := []Background{
		Solid{Color: "red"},
		Gradient{Stops: []Stop{{Color: "#fff", Position: 0}}},
		Gradient{Stops: []Stop{{Color: "#fff", Position: 0}, {Color: "#000", Position: 101}}},
		Gradient{Stops: []Stop{{Color: "#fff", Position: 0}, {Color: "#000", Position: 100}}, Angle: 361},
		nil,
	}
	for _, bg := range bad {
		if _, err := s.SetBackground(bg); !errors.Is(err, ErrValidation) {
			t.Errorf("SetBackground(%#v) error = %v, want validation error", bg, err)
		}
	}
}

func TestUpdateClipValidatesMergedClip(t *testing.T) {
	s := mustAdd(t, New(), "a", 5)
	s = mustAdd(t, s, "b", 5)

	next, err := s.UpdateClip("a", ClipPatch{SourceTrimStart: ptr(1.0), SourceTrimEnd: ptr(4.0)})
	if err != nil {
		t.Fatalf("valid trim rejected: %v", err)
	}
	c, _ := next.Clip("a")
	if c.Duration() != 3 {
		t.Errorf("expected duration 3, got %v", c.Duration())
	}

	rejects := []struct {
		name  string
		patch ClipPatch
		want  error
	}{
		{"trim past source", ClipPatch{SourceTrimEnd: ptr(6.0)}, ErrInvalidTrim},
		{"negative trim", ClipPatch{SourceTrimStart: ptr(-1.0)}, ErrInvalidTrim},
		{"start after end", ClipPatch{SourceTrimStart: ptr(4.0), SourceTrimEnd: ptr(3.0)}, ErrInvalidTrim},
		{"negative position", ClipPatch{TimelinePosition: ptr(-0.5)}, ErrInvalidValue},
		{"overlap", ClipPatch{TimelinePosition: ptr(3.0)}, ErrClipOverlap},
		{"empty name", ClipPatch{DisplayName: ptr(" ")}, ErrInvalidValue},
		{"bad color", ClipPatch{TimelineColor: ptr("blue")}, ErrInvalidColor},
	}
	for _, tt := range rejects {
		got, err := s.UpdateClip("b", tt.patch)
		if !errors.Is(err, tt.want) {
			t.Errorf("%s: error = %v, want %v", tt.name, err, tt.want)
		}
		if !reflect.DeepEqual(got, s) {
			t.Errorf("%s: state changed on rejection", tt.name)
		}
	}

	if _, err := s.UpdateClip("missing", ClipPatch{}); !errors.Is(err, ErrClipNotFound) {
		t.Errorf("expected ErrClipNotFound, got %v", err)
	}

	// moving to another channel sidesteps the overlap
	if _, err := s.UpdateClip("b", ClipPatch{TimelinePosition: ptr(0.0), Channel: ptr("videos-1")}); err != nil {
		t.Errorf("channel move rejected: %v", err)
	}
}

func TestUpdateDoesNotMutateOriginal(t *testing.T) {
	s := mustAdd(t, New(), "a", 5)
	before := s.Clips()
	if _, err := s.UpdateClip("a", ClipPatch{DisplayName: ptr("renamed")}); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(before, s.Clips()) {
		t.Error("original state was mutated")
	}
}

func TestRemoveClip(t *testing.T) {
	s := mustAdd(t, New(), "a", 2)
	s = mustAdd(t, s, "b", 2)
	s, err := s.RemoveClip("a")
	if err != nil {
		t.Fatal(err)
	}
	if s.ClipCount() != 1 || s.Clips()[0].TimelinePosition != 2 {
		t.Errorf("unexpected clips after remove %+v", s.Clips())
	}
	if _, err := s.RemoveClip("a"); !errors.Is(err, ErrClipNotFound) {
		t.Errorf("expected ErrClipNotFound, got %v", err)
	}
}

func TestAddImportedSource(t *testing.T) {
	s, err := New().AddImportedSource(Source{ID: "1", Name: "rec.webm", MediaType: "video/webm"})
	if err != nil {
		t.Fatal(err)
	}
	for _, dup := range []Source{{ID: "1", Name: "other"}, {ID: "2", Name: "rec.webm"}} {
		next, err := s.AddImportedSource(dup)
		if !errors.Is(err, ErrDuplicateSource) {
			t.Errorf("expected ErrDuplicateSource for %+v, got %v", dup, err)
		}
		if len(next.Sources()) != 1 {
			t.Error("duplicate import changed sources")
		}
	}
}

func TestResolveAdjacentClips(t *testing.T) {
	s := mustAdd(t, New(), "A", 5)
	s = mustAdd(t, s, "B", 5)

	tests := []struct {
		t    float64
		want string
		seek float64
	}{
		{0, "A", 0},
		{4.999, "A", 4.999},
		{5.0, "B", 0},
		{7.5, "B", 2.5},
		{10.0, "B", 5},
		{10.0001, "", 0},
		{-1, "", 0},
	}
	for _, tt := range tests {
		got, ok := s.ActiveAt(tt.t)
		if tt.want == "" {
			if ok {
				t.Errorf("t=%v: expected none, got %s", tt.t, got.Clip.ID)
			}
			continue
		}
		if !ok || got.Clip.ID != tt.want {
			t.Errorf("t=%v: expected %s, got %+v (ok=%v)", tt.t, tt.want, got.Clip.ID, ok)
			continue
		}
		if math.Abs(got.SourceSeekTime-tt.seek) > 1e-9 {
			t.Errorf("t=%v: expected seek %v, got %v", tt.t, tt.seek, got.SourceSeekTime)
		}
	}
}

func TestResolveUsesTrim(t *testing.T) {
	s := mustAdd(t, New(), "A", 10)
	s, err := s.UpdateClip("A", ClipPatch{SourceTrimStart: ptr(2.0), SourceTrimEnd: ptr(6.0), TimelinePosition: ptr(1.0)})
	if err != nil {
		t.Fatal(err)
	}
	got, ok := s.ActiveAt(3)
	if !ok || got.SourceSeekTime != 4 {
		t.Errorf("expected seek 4, got %+v ok=%v", got, ok)
	}
	if _, ok := s.ActiveAt(0.5); ok {
		t.Error("expected gap before the clip")
	}
}

func TestResolveFirstMatchWins(t *testing.T) {
	clips := []Clip{
		{ID: "first", TimelinePosition: 0, SourceTrimEnd: 5},
		{ID: "second", TimelinePosition: 2, SourceTrimEnd: 5},
	}
	got, ok := ResolveActive(clips, 3)
	if !ok || got.Clip.ID != "first" {
		t.Errorf("expected first, got %+v", got)
	}
}

func TestExportRange(t *testing.T) {
	if _, _, err := New().ExportRange(); !errors.Is(err, ErrEmptyTimeline) {
		t.Errorf("expected ErrEmptyTimeline, got %v", err)
	}
	s := mustAdd(t, New(), "a", 4)
	s, _ = s.SetClipWindow(1, 99)
	start, end, err := s.ExportRange()
	if err != nil || start != 1 || end != 4 {
		t.Errorf("expected [1,4], got [%v,%v] %v", start, end, err)
	}
}

func TestSnapshotRoundTripsBackground(t *testing.T) {
	s, _ := New().SetBackground(DefaultGradient())
	spec := s.Snapshot().Background
	bg, err := spec.Background()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(bg, s.Background()) {
		t.Errorf("expected %#v, got %#v", s.Background(), bg)
	}
}
