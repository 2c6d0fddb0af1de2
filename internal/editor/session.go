// Package editor owns the current timeline state for one editing session and
// runs exports against snapshots of it.
package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/keagan/tabreel/internal/export"
	"github.com/keagan/tabreel/internal/media"
	"github.com/keagan/tabreel/internal/timeline"
	"github.com/keagan/tabreel/internal/transition"
)

const maxStatusLogs = 50

// sourceMediaType is recorded for sources placed without an explicit import
const sourceMediaType = "video"

// Publisher uploads a finished artifact and returns where it went
type Publisher interface {
	Publish(ctx context.Context, artifact *export.Artifact) (string, error)
}

// Status describes the current or last background export
type Status struct {
	ID         string         `json:"id,omitempty"`
	Running    bool           `json:"running"`
	Options    export.Options `json:"options"`
	Progress   int            `json:"progress"`
	Logs       []string       `json:"logs,omitempty"`
	Error      string         `json:"error,omitempty"`
	Filename   string         `json:"filename,omitempty"`
	Location   string         `json:"location,omitempty"`
	StartedAt  time.Time      `json:"startedAt,omitzero"`
	FinishedAt time.Time      `json:"finishedAt,omitzero"`
}

// Style is a partial update of the canvas styling; nil fields are left alone
type Style struct {
	Background         *timeline.BackgroundSpec `json:"background,omitempty"`
	Padding            *float64                 `json:"padding,omitempty"`
	BorderRadius       *float64                 `json:"borderRadius,omitempty"`
	Transition         *transition.Kind         `json:"transition,omitempty"`
	TransitionDuration *float64                 `json:"transitionDuration,omitempty"`
}

// Session serialises edits to one EditorState. Readers get immutable snapshots.
type Session struct {
	logger    zerolog.Logger
	exporter  *export.Exporter
	prober    media.Prober
	publisher Publisher

	// notifyMu keeps subscriber calls in the order states were stored
	notifyMu sync.Mutex
	mu       sync.RWMutex
	state    timeline.EditorState
	subs     []func(timeline.EditorState)

	exportMu sync.Mutex
	status   Status
	artifact *export.Artifact
	wg       sync.WaitGroup
}

// New creates a session with an empty timeline
func New(logger zerolog.Logger, exporter *export.Exporter, prober media.Prober) *Session {
	return &Session{
		logger:   logger.With().Str("component", "editor").Logger(),
		exporter: exporter,
		prober:   prober,
		state:    timeline.New(),
	}
}

// SetPublisher enables uploading of background export results
func (s *Session) SetPublisher(p Publisher) {
	s.exportMu.Lock()
	defer s.exportMu.Unlock()
	s.publisher = p
}

// State returns the current snapshot
func (s *Session) State() timeline.EditorState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Subscribe registers fn to receive every new state, in order. fn must not
// edit the session.
func (s *Session) Subscribe(fn func(timeline.EditorState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// Apply runs op against the current state and stores the result. On error the
// state is unchanged.
func (s *Session) Apply(op func(timeline.EditorState) (timeline.EditorState, error)) (timeline.EditorState, error) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	next, err := op(s.state)
	if err != nil {
		current := s.state
		s.mu.Unlock()
		return current, err
	}
	s.state = next
	subs := append(([]func(timeline.EditorState))(nil), s.subs...)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
	return next, nil
}

// Replace swaps in a whole state, e.g. one built from a project file
func (s *Session) Replace(state timeline.EditorState) {
	_, _ = s.Apply(func(timeline.EditorState) (timeline.EditorState, error) {
		return state, nil
	})
}

// ImportSource makes src available for placement. Importing a source whose id
// or name is already registered is a no-op.
func (s *Session) ImportSource(src timeline.Source) error {
	_, err := s.Apply(func(st timeline.EditorState) (timeline.EditorState, error) {
		return st.AddImportedSource(src)
	})
	if errors.Is(err, timeline.ErrDuplicateSource) {
		return nil
	}
	return err
}

// PlaceSource probes ref, registers it as an imported source and appends it to
// the timeline
func (s *Session) PlaceSource(ctx context.Context, ref, name, placementID string) (timeline.Clip, error) {
	info, err := s.prober.Probe(ctx, ref)
	if err != nil {
		return timeline.Clip{}, fmt.Errorf("failed to probe %s: %w", ref, err)
	}

	var id string
	_, err = s.Apply(func(st timeline.EditorState) (timeline.EditorState, error) {
		next, err := st.AddClip(timeline.ClipSpec{
			SourceRef:   ref,
			Width:       info.Width,
			Height:      info.Height,
			Duration:    info.Duration,
			PlacementID: placementID,
			Name:        name,
		})
		if err != nil {
			return st, err
		}
		clips := next.Clips()
		placed := clips[len(clips)-1]
		if placementID != "" {
			// a repeated placement id leaves the earlier clip in place
			placed, _ = next.Clip(placementID)
		}
		id = placed.ID

		registered, err := next.AddImportedSource(timeline.Source{
			ID:        ref,
			Name:      placed.DisplayName,
			MediaType: sourceMediaType,
			Ref:       ref,
		})
		switch {
		case err == nil:
			next = registered
		case !errors.Is(err, timeline.ErrDuplicateSource):
			return st, err
		}
		return next, nil
	})
	if err != nil {
		return timeline.Clip{}, err
	}
	clip, _ := s.State().Clip(id)
	return clip, nil
}

// UpdateClip patches one clip
func (s *Session) UpdateClip(id string, patch timeline.ClipPatch) (timeline.Clip, error) {
	next, err := s.Apply(func(st timeline.EditorState) (timeline.EditorState, error) {
		return st.UpdateClip(id, patch)
	})
	if err != nil {
		return timeline.Clip{}, err
	}
	clip, _ := next.Clip(id)
	return clip, nil
}

// RemoveClip deletes one clip
func (s *Session) RemoveClip(id string) error {
	_, err := s.Apply(func(st timeline.EditorState) (timeline.EditorState, error) {
		return st.RemoveClip(id)
	})
	return err
}

// SetWindow sets the export window
func (s *Session) SetWindow(start, end float64) error {
	_, err := s.Apply(func(st timeline.EditorState) (timeline.EditorState, error) {
		return st.SetClipWindow(start, end)
	})
	return err
}

// SetStyle applies every field of style or none of them
func (s *Session) SetStyle(style Style) (timeline.EditorState, error) {
	return s.Apply(func(st timeline.EditorState) (timeline.EditorState, error) {
		return ApplyStyle(st, style)
	})
}

// ApplyStyle applies a partial style to st. On error st is returned unchanged.
func ApplyStyle(st timeline.EditorState, style Style) (timeline.EditorState, error) {
	next := st
	var err error
	if style.Background != nil {
		bg, err := style.Background.Background()
		if err != nil {
			return st, err
		}
		if next, err = next.SetBackground(bg); err != nil {
			return st, err
		}
	}
	if style.Padding != nil {
		if next, err = next.SetPadding(*style.Padding); err != nil {
			return st, err
		}
	}
	if style.BorderRadius != nil {
		if next, err = next.SetBorderRadius(*style.BorderRadius); err != nil {
			return st, err
		}
	}
	if style.Transition != nil {
		if next, err = next.SetTransition(*style.Transition); err != nil {
			return st, err
		}
	}
	if style.TransitionDuration != nil {
		if next, err = next.SetTransitionDuration(*style.TransitionDuration); err != nil {
			return st, err
		}
	}
	return next, nil
}

// Export runs an export of the current state and waits for it
func (s *Session) Export(ctx context.Context, opts export.Options, sink export.Sink) (*export.Artifact, error) {
	return s.exporter.Export(ctx, s.State(), opts, sink)
}

// StartExport runs an export of the current state in the background. Only one
// export runs at a time; a second request fails with export.ErrExportInProgress.
func (s *Session) StartExport(ctx context.Context, opts export.Options) (Status, error) {
	state := s.State()
	if state.ClipCount() == 0 {
		return Status{}, export.ErrNoClips
	}

	s.exportMu.Lock()
	if s.status.Running || s.exporter.Busy() {
		s.exportMu.Unlock()
		return Status{}, export.ErrExportInProgress
	}
	s.status = Status{
		ID:        uuid.NewString(),
		Running:   true,
		Options:   opts,
		StartedAt: time.Now(),
	}
	s.artifact = nil
	status := s.snapshotLocked()
	publisher := s.publisher
	s.exportMu.Unlock()

	// the export outlives the request that started it
	ctx = context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runExport(ctx, state, opts, publisher)
	}()
	return status, nil
}

func (s *Session) runExport(ctx context.Context, state timeline.EditorState, opts export.Options, publisher Publisher) {
	sink := export.SinkFuncs{
		OnProgress: func(p int) {
			s.exportMu.Lock()
			s.status.Progress = p
			s.exportMu.Unlock()
		},
		OnLog: func(line string) {
			s.exportMu.Lock()
			s.status.Logs = append(s.status.Logs, line)
			if n := len(s.status.Logs); n > maxStatusLogs {
				s.status.Logs = s.status.Logs[n-maxStatusLogs:]
			}
			s.exportMu.Unlock()
		},
	}

	artifact, err := s.exporter.Export(ctx, state, opts, sink)

	var location string
	if err == nil && publisher != nil {
		location, err = publisher.Publish(ctx, artifact)
		if err != nil {
			err = fmt.Errorf("failed to publish %s: %w", artifact.Filename, err)
		}
	}

	s.exportMu.Lock()
	defer s.exportMu.Unlock()
	s.status.Running = false
	s.status.FinishedAt = time.Now()
	if err != nil {
		s.status.Error = err.Error()
		s.logger.Error().Err(err).Str("export", s.status.ID).Msg("export failed")
		if artifact == nil {
			return
		}
	}
	s.artifact = artifact
	s.status.Filename = artifact.Filename
	s.status.Location = location
	s.status.Progress = 100
}

// ExportStatus returns the current or last export status
func (s *Session) ExportStatus() Status {
	s.exportMu.Lock()
	defer s.exportMu.Unlock()
	return s.snapshotLocked()
}

// Artifact returns the last finished export
func (s *Session) Artifact() (*export.Artifact, bool) {
	s.exportMu.Lock()
	defer s.exportMu.Unlock()
	return s.artifact, s.artifact != nil
}

// Wait blocks until the background export, if any, has finished
func (s *Session) Wait() {
	s.wg.Wait()
}

func (s *Session) snapshotLocked() Status {
	st := s.status
	st.Logs = append([]string(nil), s.status.Logs...)
	return st
}

// IsConflict reports whether err means an export is already running
func IsConflict(err error) bool {
	return errors.Is(err, export.ErrExportInProgress)
}
