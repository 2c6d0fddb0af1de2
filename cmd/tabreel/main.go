package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/keagan/tabreel/internal/api"
	"github.com/keagan/tabreel/internal/config"
	"github.com/keagan/tabreel/internal/export"
	"github.com/keagan/tabreel/internal/geometry"
	"github.com/keagan/tabreel/internal/gui"
	"github.com/keagan/tabreel/internal/logging"
	"github.com/keagan/tabreel/internal/media"
	"github.com/keagan/tabreel/internal/project"
	"github.com/keagan/tabreel/internal/raster"
	"github.com/keagan/tabreel/internal/render"
	"github.com/keagan/tabreel/internal/store"
	"github.com/keagan/tabreel/pkg/util"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tabreel",
	Short: "tabreel - compose, preview and export screen recordings",
	Long:  "Arrange screen recordings on a timeline over a styled background, preview the result and export it as mp4, webm or gif.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logging
		logging.Setup(logging.Options{Verbose: verbose, JSON: cmd.Name() == "serve"})

		// Load config
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		// Store config in context
		ctx := config.WithConfig(cmd.Context(), cfg)
		cmd.SetContext(ctx)

		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./tabreel.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(mediaCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(guiCmd)
	rootCmd.AddCommand(configCmd)
}

func openApp(cmd *cobra.Command) (*app, error) {
	return newApp(config.FromContext(cmd.Context()), log.Logger)
}

// loadProject builds the project's state into the app session
func loadProject(ctx context.Context, a *app, path string) (*project.Project, error) {
	p, err := project.Load(path)
	if err != nil {
		return nil, err
	}
	st, err := p.Build(ctx, a.prober)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s: %w", path, err)
	}
	a.session.Replace(st)
	return p, nil
}

var exportCmd = &cobra.Command{
	Use:   "export [project file]",
	Short: "Export a project to a video file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := loadProject(cmd.Context(), a, args[0])
		if err != nil {
			return err
		}

		opts := p.ExportOptions(a.defaultExportOptions())
		if f, _ := cmd.Flags().GetString("format"); f != "" {
			opts.Format = export.Format(f)
		}
		if q, _ := cmd.Flags().GetString("quality"); q != "" {
			opts.Quality = export.Quality(q)
		}
		if fps, _ := cmd.Flags().GetInt("fps"); fps > 0 {
			opts.FPS = fps
		}

		last := -1
		sink := export.SinkFuncs{
			OnProgress: func(p int) {
				if p/10 != last/10 {
					log.Info().Int("progress", p).Msg("exporting")
				}
				last = p
			},
		}

		artifact, err := a.session.Export(cmd.Context(), opts, sink)
		if err != nil {
			return err
		}

		outDir, _ := cmd.Flags().GetString("out")
		if outDir == "" {
			outDir = a.cfg.Export.OutputDir
		}
		if err := util.EnsureDir(outDir); err != nil {
			return err
		}
		path := filepath.Join(outDir, artifact.Filename)
		if err := os.WriteFile(path, artifact.Data, 0644); err != nil {
			return err
		}
		log.Info().Str("path", path).Int("bytes", len(artifact.Data)).Msg("export complete")

		if doPublish, _ := cmd.Flags().GetBool("publish"); doPublish {
			a.cfg.Publish.Enabled = true
			pub, err := a.enablePublishing(cmd.Context())
			if err != nil {
				return err
			}
			location, err := pub.Publish(cmd.Context(), artifact)
			if err != nil {
				return err
			}
			log.Info().Str("location", location).Msg("artifact published")
		}
		return nil
	},
}

var previewCmd = &cobra.Command{
	Use:   "preview [project file]",
	Short: "Render one preview frame to a PNG",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := loadProject(cmd.Context(), a, args[0]); err != nil {
			return err
		}

		at, _ := cmd.Flags().GetString("at")
		t, err := util.ParseSeconds(at)
		if err != nil {
			return err
		}
		player, err := a.player(cmd.Context())
		if err != nil {
			return err
		}

		pane := geometry.Size{W: float64(a.cfg.Preview.Width), H: float64(a.cfg.Preview.Height)}
		img, err := render.NewStillRenderer(a.logger, player).Render(cmd.Context(), a.session.State(), t, pane)
		if err != nil {
			return err
		}
		data, err := raster.EncodePNG(img)
		if err != nil {
			return err
		}

		out, _ := cmd.Flags().GetString("out")
		if err := os.WriteFile(out, data, 0644); err != nil {
			return err
		}
		log.Info().Str("path", out).Str("at", util.FormatTime(t)).Msg("preview written")
		return nil
	},
}

var mediaCmd = &cobra.Command{
	Use:   "media",
	Short: "Recording library commands",
}

var mediaListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored recordings",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.store.ListMedia(cmd.Context())
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Printf("%s  %-30s %s  %dx%d  %s\n",
				e.ID, e.Name, util.FormatTime(e.Duration), e.Width, e.Height, e.CreatedAt.Format(time.DateTime))
		}
		return nil
	},
}

var mediaImportCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import a recording into the library",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		name, _ := cmd.Flags().GetString("name")
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
		}
		mimeType := "video/webm"
		if util.GetExtension(args[0]) == "mp4" {
			mimeType = "video/mp4"
		}

		id, err := a.store.Import(cmd.Context(), store.Recording{Name: name, MIMEType: mimeType}, f)
		if err != nil {
			return err
		}

		// metadata is best effort; the recording is usable without it
		if info, err := a.prober.Probe(cmd.Context(), media.StoreRef(id)); err != nil {
			log.Warn().Err(err).Str("id", id).Msg("failed to probe recording")
		} else if err := a.store.SetMetadata(cmd.Context(), id, info.Duration, info.Width, info.Height); err != nil {
			log.Warn().Err(err).Str("id", id).Msg("failed to store metadata")
		}

		fmt.Println(media.StoreRef(id))
		return nil
	},
}

var mediaGetCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Write a stored recording to a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		entry, err := a.store.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		data, err := a.store.GetMediaBytes(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			out = util.SafeName(entry.Name) + ".webm"
		}
		if err := os.WriteFile(out, data, 0644); err != nil {
			return err
		}
		log.Info().Str("path", out).Int("bytes", len(data)).Msg("recording written")
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the editing session over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.enablePublishing(cmd.Context()); err != nil {
			return err
		}

		var previewer api.Previewer
		if player, err := a.player(cmd.Context()); err != nil {
			log.Warn().Err(err).Msg("preview disabled")
		} else {
			previewer = render.NewStillRenderer(a.logger, player)
		}

		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = a.cfg.Server.Addr
		}
		server := api.NewServer(api.ServerConfig{
			Addr:      addr,
			Session:   a.session,
			Library:   a.store,
			Previewer: previewer,
			Logger:    a.logger,
			StartTime: time.Now(),
		})

		errCh := make(chan error, 1)
		go func() { errCh <- server.Start() }()

		select {
		case err := <-errCh:
			return err
		case <-cmd.Context().Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	},
}

var guiCmd = &cobra.Command{
	Use:   "gui [project file]",
	Short: "Open the desktop editor",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		var p *project.Project
		if len(args) == 1 {
			if p, err = loadProject(ctx, a, args[0]); err != nil {
				return err
			}
		}
		opts := a.defaultExportOptions()
		if p != nil {
			opts = p.ExportOptions(opts)
		}

		player, err := a.player(ctx)
		if err != nil {
			return err
		}
		driver := render.NewTickerDriver(a.cfg.Preview.FPS)
		go driver.Run(ctx)

		pane := geometry.Size{W: float64(a.cfg.Preview.Width), H: float64(a.cfg.Preview.Height)}
		renderer := render.New(ctx, a.logger, player, driver, pane)

		gui.Run(ctx, gui.Options{
			Session:   a.session,
			Renderer:  renderer,
			Library:   a.store,
			Logger:    a.logger,
			OutputDir: a.cfg.Export.OutputDir,
			Export:    opts,
		})

		save, _ := cmd.Flags().GetString("save")
		if save == "" {
			return nil
		}
		name := strings.TrimSuffix(filepath.Base(save), filepath.Ext(save))
		if err := project.FromState(name, a.session.State(), opts).Save(save); err != nil {
			return err
		}
		log.Info().Str("path", save).Msg("project saved")
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Config management commands",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := yaml.Marshal(config.FromContext(cmd.Context()))
		if err != nil {
			return err
		}
		fmt.Print(string(data))
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the effective configuration to a file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "tabreel.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		if util.FileExists(path) {
			return errors.New(path + " already exists")
		}
		if err := config.FromContext(cmd.Context()).Save(path); err != nil {
			return err
		}
		log.Info().Str("path", path).Msg("config written")
		return nil
	},
}

func init() {
	exportCmd.Flags().StringP("out", "o", "", "output directory (default: export.output_dir)")
	exportCmd.Flags().String("format", "", "mp4, webm or gif")
	exportCmd.Flags().String("quality", "", "low, medium or high")
	exportCmd.Flags().Int("fps", 0, "output frame rate")
	exportCmd.Flags().Bool("publish", false, "upload the artifact to the configured bucket")

	previewCmd.Flags().String("at", "0", "playhead as seconds or MM:SS.cc")
	previewCmd.Flags().StringP("out", "o", "preview.png", "output PNG")

	mediaImportCmd.Flags().String("name", "", "display name (default: file name)")
	mediaGetCmd.Flags().StringP("out", "o", "", "output file")
	mediaCmd.AddCommand(mediaListCmd, mediaImportCmd, mediaGetCmd)

	serveCmd.Flags().String("addr", "", "listen address (default: server.addr)")
	guiCmd.Flags().String("save", "", "write the session to this project file on exit")

	configCmd.AddCommand(configShowCmd, configInitCmd)
}
