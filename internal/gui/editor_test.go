package gui

import (
	"testing"

	"github.com/keagan/tabreel/internal/render"
)

func TestPlayLabel(t *testing.T) {
	tests := []struct {
		phase render.Phase
		want  string
	}{
		{render.PhaseIdle, "Play"},
		{render.PhaseReady, "Play"},
		{render.PhasePlaying, "Pause"},
		// playback that ran off the end of the timeline reports paused
		{render.PhasePaused, "Play"},
	}
	for _, tt := range tests {
		if got := playLabel(tt.phase); got != tt.want {
			t.Errorf("playLabel(%v) = %q, want %q", tt.phase, got, tt.want)
		}
	}
}
