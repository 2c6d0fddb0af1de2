// Package gui is a desktop front end for one editing session.
package gui

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
	"github.com/rs/zerolog"

	"github.com/keagan/tabreel/internal/editor"
	"github.com/keagan/tabreel/internal/export"
	"github.com/keagan/tabreel/internal/media"
	"github.com/keagan/tabreel/internal/render"
	"github.com/keagan/tabreel/internal/timeline"
	"github.com/keagan/tabreel/pkg/util"
)

const statusPoll = 250 * time.Millisecond

// Library lists recordings that can be placed on the timeline
type Library interface {
	ListMedia(ctx context.Context) ([]media.Entry, error)
}

type Options struct {
	Session   *editor.Session
	Renderer  *render.Renderer
	Library   Library
	Logger    zerolog.Logger
	OutputDir string
	Export    export.Options
}

// Run opens the editor window and blocks until it is closed
func Run(ctx context.Context, opts Options) {
	logger := opts.Logger.With().Str("component", "gui").Logger()
	session, renderer := opts.Session, opts.Renderer

	myApp := app.NewWithID("tabreel")
	w := myApp.NewWindow("tabreel")
	w.Resize(fyne.NewSize(1040, 720))

	preview := canvas.NewImageFromImage(image.NewRGBA(image.Rect(0, 0, 1, 1)))
	preview.FillMode = canvas.ImageFillContain
	preview.SetMinSize(fyne.NewSize(640, 360))

	timestampLabel := widget.NewLabel(util.FormatTime(0))
	slider := widget.NewSlider(0, 1)
	slider.Step = 0.01

	var playButton *widget.Button

	// frames arrive on the renderer's driver goroutine
	scrubbing := false
	renderer.OnFrame(func(img *image.RGBA, playhead float64) {
		label := playLabel(renderer.Phase())
		fyne.Do(func() {
			preview.Image = img
			preview.Refresh()
			timestampLabel.SetText(util.FormatTime(playhead))
			if !scrubbing {
				slider.Value = playhead
				slider.Refresh()
			}
			// playback stops by itself at the end of the timeline
			if playButton != nil && playButton.Text != label {
				playButton.SetText(label)
			}
		})
	})
	slider.OnChanged = func(val float64) {
		scrubbing = true
		renderer.Seek(val)
	}
	slider.OnChangeEnded = func(float64) {
		scrubbing = false
	}

	playButton = widget.NewButton(playLabel(render.PhaseIdle), func() {
		if renderer.Phase() == render.PhasePlaying {
			renderer.Pause()
			playButton.SetText(playLabel(renderer.Phase()))
			return
		}
		if err := renderer.Play(ctx); err != nil {
			dialog.ShowError(err, w)
			return
		}
		playButton.SetText(playLabel(render.PhasePlaying))
	})

	clipList := widget.NewList(
		func() int { return session.State().ClipCount() },
		func() fyne.CanvasObject { return widget.NewLabel("clip") },
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			clips := session.State().TimelineOrder()
			if id >= len(clips) {
				return
			}
			c := clips[id]
			obj.(*widget.Label).SetText(fmt.Sprintf("%s  %s - %s",
				c.DisplayName, util.FormatTime(c.TimelinePosition), util.FormatTime(c.End())))
		},
	)
	selected := -1
	clipList.OnSelected = func(id widget.ListItemID) { selected = id }
	clipList.OnUnselected = func(widget.ListItemID) { selected = -1 }

	applyState := func(st timeline.EditorState) {
		slider.Max = max(st.TimelineDuration(), 0.01)
		slider.Refresh()
		clipList.Refresh()
	}
	session.Subscribe(func(st timeline.EditorState) {
		renderer.SetState(st)
		fyne.Do(func() { applyState(st) })
	})
	renderer.SetState(session.State())
	applyState(session.State())

	place := func(ref, name string) {
		go func() {
			if _, err := session.PlaceSource(ctx, ref, name, ""); err != nil {
				logger.Error().Err(err).Str("ref", ref).Msg("failed to place source")
				fyne.Do(func() { dialog.ShowError(err, w) })
			}
		}()
	}

	loadButton := widget.NewButton("Add File", func() {
		fd := dialog.NewFileOpen(func(ur fyne.URIReadCloser, err error) {
			if ur == nil {
				return
			}
			defer ur.Close()
			path := ur.URI().Path()
			place("file://"+path, filepath.Base(path))
		}, w)
		fd.SetFilter(storage.NewExtensionFileFilter([]string{".webm", ".mp4", ".mov", ".mkv"}))
		fd.Show()
	})

	libraryButton := widget.NewButton("Add Recording", func() {
		if opts.Library == nil {
			return
		}
		entries, err := opts.Library.ListMedia(ctx)
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		if len(entries) == 0 {
			dialog.ShowInformation("Recordings", "No recordings stored yet", w)
			return
		}
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = fmt.Sprintf("%s (%s)", e.Name, util.FormatTime(e.Duration))
		}
		choice := widget.NewSelect(names, nil)
		dialog.ShowCustomConfirm("Add Recording", "Add", "Cancel", choice, func(ok bool) {
			if !ok || choice.SelectedIndex() < 0 {
				return
			}
			e := entries[choice.SelectedIndex()]
			place(media.StoreRef(e.ID), e.Name)
		}, w)
	})

	removeButton := widget.NewButton("Remove Clip", func() {
		clips := session.State().TimelineOrder()
		if selected < 0 || selected >= len(clips) {
			return
		}
		if err := session.RemoveClip(clips[selected].ID); err != nil {
			dialog.ShowError(err, w)
		}
		clipList.UnselectAll()
	})

	formatSelect := widget.NewSelect([]string{string(export.MP4), string(export.WebM), string(export.GIF)}, nil)
	formatSelect.SetSelected(string(opts.Export.Format))
	qualitySelect := widget.NewSelect([]string{string(export.Low), string(export.Medium), string(export.High)}, nil)
	qualitySelect.SetSelected(string(opts.Export.Quality))
	progress := widget.NewProgressBar()

	var exportButton *widget.Button
	exportButton = widget.NewButton("Export", func() {
		eopts := opts.Export
		eopts.Format = export.Format(formatSelect.Selected)
		eopts.Quality = export.Quality(qualitySelect.Selected)

		if _, err := session.StartExport(ctx, eopts); err != nil {
			dialog.ShowError(err, w)
			return
		}
		exportButton.Disable()
		progress.SetValue(0)
		go watchExport(ctx, session, func(st editor.Status) {
			fyne.Do(func() { progress.SetValue(float64(st.Progress) / 100) })
		}, func(st editor.Status) {
			path, err := saveArtifact(session, opts.OutputDir, st)
			fyne.Do(func() {
				exportButton.Enable()
				if err != nil {
					dialog.ShowError(err, w)
					return
				}
				dialog.ShowInformation("Export", "Saved "+path, w)
			})
		})
	})

	w.SetContent(container.NewBorder(
		nil,
		container.NewVBox(
			container.NewBorder(nil, nil, playButton, timestampLabel, slider),
			container.NewHBox(loadButton, libraryButton, removeButton),
			container.NewBorder(nil, nil, container.NewHBox(formatSelect, qualitySelect, exportButton), nil, progress),
		),
		nil,
		container.NewGridWrap(fyne.NewSize(300, 360), clipList),
		preview,
	))

	w.SetOnClosed(renderer.Close)
	renderer.Seek(0)
	w.ShowAndRun()
}

// playLabel is the play button text for a renderer phase
func playLabel(phase render.Phase) string {
	if phase == render.PhasePlaying {
		return "Pause"
	}
	return "Play"
}

// watchExport polls the session until the background export finishes
func watchExport(ctx context.Context, session *editor.Session, onProgress, onDone func(editor.Status)) {
	ticker := time.NewTicker(statusPoll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st := session.ExportStatus()
			onProgress(st)
			if !st.Running {
				onDone(st)
				return
			}
		}
	}
}

func saveArtifact(session *editor.Session, dir string, st editor.Status) (string, error) {
	if st.Error != "" {
		return "", fmt.Errorf("export failed: %s", st.Error)
	}
	artifact, ok := session.Artifact()
	if !ok {
		return "", fmt.Errorf("export produced no artifact")
	}
	if err := util.EnsureDir(dir); err != nil {
		return "", err
	}
	path := filepath.Join(dir, artifact.Filename)
	if err := os.WriteFile(path, artifact.Data, 0644); err != nil {
		return "", err
	}
	return path, nil
}
