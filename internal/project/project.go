// Package project reads and writes timeline documents as YAML and replays them
// through the timeline operations.
package project

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/keagan/tabreel/internal/editor"
	"github.com/keagan/tabreel/internal/export"
	"github.com/keagan/tabreel/internal/media"
	"github.com/keagan/tabreel/internal/timeline"
	"github.com/keagan/tabreel/internal/transition"
	"github.com/keagan/tabreel/pkg/util"
)

// Project is a saved timeline
type Project struct {
	Name               string                   `yaml:"name,omitempty"`
	Clips              []Clip                   `yaml:"clips"`
	Background         *timeline.BackgroundSpec `yaml:"background,omitempty"`
	Padding            *float64                 `yaml:"padding,omitempty"`
	BorderRadius       *float64                 `yaml:"border_radius,omitempty"`
	Transition         *transition.Kind         `yaml:"transition,omitempty"`
	TransitionDuration *float64                 `yaml:"transition_duration,omitempty"`
	Window             *Window                  `yaml:"window,omitempty"`
	Export             *ExportOptions           `yaml:"export,omitempty"`
}

// Clip places one source. Omitted fields keep the AddClip defaults.
type Clip struct {
	Source    string `yaml:"source"`
	ID        string `yaml:"id,omitempty"`
	Name      string `yaml:"name,omitempty"`
	Channel   string `yaml:"channel,omitempty"`
	Position  *Time  `yaml:"position,omitempty"`
	TrimStart *Time  `yaml:"trim_start,omitempty"`
	TrimEnd   *Time  `yaml:"trim_end,omitempty"`
	Color     string `yaml:"color,omitempty"`
}

type Window struct {
	Start Time `yaml:"start"`
	End   Time `yaml:"end"`
}

type ExportOptions struct {
	Format  string `yaml:"format,omitempty"`
	Quality string `yaml:"quality,omitempty"`
	FPS     int    `yaml:"fps,omitempty"`
}

// Time is seconds written as MM:SS.cc; plain numbers are accepted on read
type Time float64

func (t Time) MarshalYAML() (any, error) {
	return util.FormatTime(float64(t)), nil
}

func (t *Time) UnmarshalYAML(node *yaml.Node) error {
	v, err := util.ParseSeconds(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*t = Time(v)
	return nil
}

// Load reads a project file
func Load(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a project document
func Parse(data []byte) (*Project, error) {
	var p Project
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse project: %w", err)
	}
	for i, c := range p.Clips {
		if c.Source == "" {
			return nil, fmt.Errorf("clip %d has no source", i)
		}
	}
	return &p, nil
}

// Save writes the project as YAML
func (p *Project) Save(path string) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Build replays the project into a fresh state. Every source is probed for its
// dimensions and duration before it is placed.
func (p *Project) Build(ctx context.Context, prober media.Prober) (timeline.EditorState, error) {
	st := timeline.New()

	for i, c := range p.Clips {
		info, err := prober.Probe(ctx, c.Source)
		if err != nil {
			return st, fmt.Errorf("clip %d: failed to probe %s: %w", i, c.Source, err)
		}

		next, err := st.AddClip(timeline.ClipSpec{
			SourceRef:   c.Source,
			Width:       info.Width,
			Height:      info.Height,
			Duration:    info.Duration,
			PlacementID: c.ID,
			Name:        c.Name,
			Channel:     c.Channel,
		})
		if err != nil {
			return st, fmt.Errorf("clip %d: %w", i, err)
		}
		clips := next.Clips()
		id := clips[len(clips)-1].ID
		st = next

		patch, ok := c.patch(info.Duration)
		if !ok {
			continue
		}
		if st, err = st.UpdateClip(id, patch); err != nil {
			return st, fmt.Errorf("clip %d: %w", i, err)
		}
	}

	st, err := editor.ApplyStyle(st, editor.Style{
		Background:         p.Background,
		Padding:            p.Padding,
		BorderRadius:       p.BorderRadius,
		Transition:         p.Transition,
		TransitionDuration: p.TransitionDuration,
	})
	if err != nil {
		return st, err
	}

	if p.Window != nil {
		if st, err = st.SetClipWindow(float64(p.Window.Start), float64(p.Window.End)); err != nil {
			return st, err
		}
	}
	return st, nil
}

// ExportOptions merges the project's export settings over defaults
func (p *Project) ExportOptions(defaults export.Options) export.Options {
	opts := defaults
	if p.Export == nil {
		return opts
	}
	if p.Export.Format != "" {
		opts.Format = export.Format(p.Export.Format)
	}
	if p.Export.Quality != "" {
		opts.Quality = export.Quality(p.Export.Quality)
	}
	if p.Export.FPS > 0 {
		opts.FPS = p.Export.FPS
	}
	return opts
}

// patch builds the clip update. Times are stored at centisecond precision, so
// a trim end just past the probed duration means the end of the source.
func (c Clip) patch(sourceDuration float64) (timeline.ClipPatch, bool) {
	var patch timeline.ClipPatch
	ok := false
	if c.Position != nil {
		v := float64(*c.Position)
		patch.TimelinePosition, ok = &v, true
	}
	if c.TrimStart != nil {
		v := float64(*c.TrimStart)
		patch.SourceTrimStart, ok = &v, true
	}
	if c.TrimEnd != nil {
		v := float64(*c.TrimEnd)
		if v > sourceDuration && v-sourceDuration < 0.01 {
			v = sourceDuration
		}
		patch.SourceTrimEnd, ok = &v, true
	}
	if c.Color != "" {
		color := c.Color
		patch.TimelineColor, ok = &color, true
	}
	return patch, ok
}

// FromState captures a state as a project document
func FromState(name string, st timeline.EditorState, opts export.Options) *Project {
	p := &Project{Name: name}
	for _, c := range st.TimelineOrder() {
		pos, start, end := Time(c.TimelinePosition), Time(c.SourceTrimStart), Time(c.SourceTrimEnd)
		p.Clips = append(p.Clips, Clip{
			Source:    c.SourceRef,
			ID:        c.ID,
			Name:      c.DisplayName,
			Channel:   c.Channel,
			Position:  &pos,
			TrimStart: &start,
			TrimEnd:   &end,
			Color:     c.TimelineColor,
		})
	}

	bg := timeline.SpecOf(st.Background())
	padding, radius := st.Padding(), st.BorderRadius()
	kind, td := st.Transition(), st.TransitionDuration()
	p.Background = &bg
	p.Padding = &padding
	p.BorderRadius = &radius
	p.Transition = &kind
	p.TransitionDuration = &td

	if st.HasClipWindow() {
		start, end := st.ClipWindow()
		p.Window = &Window{Start: Time(start), End: Time(end)}
	}
	p.Export = &ExportOptions{
		Format:  string(opts.Format),
		Quality: string(opts.Quality),
		FPS:     opts.FPS,
	}
	return p
}
