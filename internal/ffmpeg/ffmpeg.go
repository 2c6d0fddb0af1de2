package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/keagan/tabreel/pkg/util"
)

// ErrNotLoaded is returned when the executor is used before Load
var ErrNotLoaded = errors.New("ffmpeg executor not loaded")

// Options configures an Executor
type Options struct {
	FFmpegPath  string // looked up in PATH when empty
	FFprobePath string
	Threads     int
	// WorkRoot is where the per-session working directory is created
	WorkRoot string
}

// Executor runs ffmpeg inside a private working directory. The directory is the
// executor's file namespace: WriteFile, ReadFile and DeleteFile take bare names
// and Run resolves relative paths against it.
type Executor struct {
	logger zerolog.Logger
	opts   Options

	mu          sync.Mutex
	ffmpegPath  string
	ffprobePath string
	workDir     string
}

// New creates an executor; binaries are resolved lazily by Load
func New(logger zerolog.Logger, opts Options) *Executor {
	return &Executor{
		logger: logger.With().Str("component", "ffmpeg").Logger(),
		opts:   opts,
	}
}

// Load resolves the binaries and creates the working directory. Safe to call repeatedly.
func (e *Executor) Load(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.workDir != "" {
		return nil
	}

	ffmpegPath, err := lookup(e.opts.FFmpegPath, "ffmpeg")
	if err != nil {
		return err
	}
	ffprobePath, err := lookup(e.opts.FFprobePath, "ffprobe")
	if err != nil {
		return err
	}

	root := e.opts.WorkRoot
	if root != "" {
		if err := util.EnsureDir(root); err != nil {
			return fmt.Errorf("failed to create work root: %w", err)
		}
	}
	dir, err := os.MkdirTemp(root, "tabreel-ffmpeg-")
	if err != nil {
		return fmt.Errorf("failed to create work dir: %w", err)
	}

	e.ffmpegPath, e.ffprobePath, e.workDir = ffmpegPath, ffprobePath, dir
	e.logger.Debug().
		Str("ffmpeg", ffmpegPath).
		Str("ffprobe", ffprobePath).
		Str("work_dir", dir).
		Msg("ffmpeg loaded")
	return nil
}

// Close removes the working directory
func (e *Executor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.workDir == "" {
		return nil
	}
	err := os.RemoveAll(e.workDir)
	e.workDir = ""
	return err
}

// FFprobePath returns the resolved ffprobe binary, empty before Load
func (e *Executor) FFprobePath() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ffprobePath
}

// WriteFile stores data under name in the working directory
func (e *Executor) WriteFile(name string, data []byte) error {
	path, err := e.path(name)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReadFile reads name from the working directory
func (e *Executor) ReadFile(name string) ([]byte, error) {
	path, err := e.path(name)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

// DeleteFile removes name from the working directory
func (e *Executor) DeleteFile(name string) error {
	path, err := e.path(name)
	if err != nil {
		return err
	}
	return os.Remove(path)
}

func (e *Executor) path(name string) (string, error) {
	e.mu.Lock()
	dir := e.workDir
	e.mu.Unlock()
	if dir == "" {
		return "", ErrNotLoaded
	}
	return filepath.Join(dir, util.SafeName(name)), nil
}

// Run executes ffmpeg with the given arguments and streams progress
func (e *Executor) Run(ctx context.Context, opts RunOptions) error {
	if len(opts.Args) == 0 {
		return fmt.Errorf("no arguments provided")
	}

	e.mu.Lock()
	ffmpegPath, dir := e.ffmpegPath, e.workDir
	e.mu.Unlock()
	if dir == "" {
		return ErrNotLoaded
	}

	// Build args with threads BEFORE other arguments
	baseArgs := []string{"-y", "-hide_banner", "-loglevel", "info", "-nostats"}

	if e.opts.Threads > 0 {
		baseArgs = append(baseArgs, "-threads", strconv.Itoa(e.opts.Threads))
	}

	baseArgs = append(baseArgs, "-progress", "pipe:2")
	args := append(baseArgs, opts.Args...)

	e.logger.Debug().
		Str("cmd", "ffmpeg").
		Strs("args", args).
		Msg("executing ffmpeg")

	cmd := exec.CommandContext(ctx, ffmpegPath, args...)
	cmd.Dir = dir

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)

	var tail lineTail

	// Stream stderr (progress + logs)
	go func() {
		defer wg.Done()
		streamOutput(stderr, opts.Duration, opts.ProgressHandler, func(line string) {
			tail.add(line)
			if opts.LogHandler != nil {
				opts.LogHandler(line)
			}
		})
	}()

	// Stream stdout
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			if opts.LogHandler != nil {
				opts.LogHandler(scanner.Text())
			}
		}
	}()

	wg.Wait()

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ffmpeg execution failed: %w: %s", err, tail.last())
	}

	e.logger.Debug().Msg("ffmpeg execution completed")
	return nil
}

// streamOutput splits ffmpeg stderr into log lines and -progress blocks. Each
// block ends with a progress=continue|end line.
func streamOutput(r io.Reader, total time.Duration, progressHandler ProgressFunc, logHandler func(string)) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	progressData := &Progress{}

	for scanner.Scan() {
		line := scanner.Text()

		key, value, ok := strings.Cut(line, "=")
		if !ok || strings.ContainsAny(key, " \t[") {
			if logHandler != nil {
				logHandler(line)
			}
			continue
		}
		value = strings.TrimSpace(value)

		switch key {
		case "frame":
			progressData.Frame, _ = strconv.Atoi(value)
		case "fps":
			progressData.FPS, _ = strconv.ParseFloat(value, 64)
		case "bitrate":
			progressData.Bitrate = value
		case "out_time_us", "out_time_ms":
			// both are reported in microseconds
			if us, err := strconv.ParseInt(value, 10, 64); err == nil && us >= 0 {
				progressData.OutTime = time.Duration(us) * time.Microsecond
			}
		case "speed":
			progressData.Speed = value
		case "progress":
			progressData.Done = value == "end"
			progressData.Ratio = ratio(progressData.OutTime, total, progressData.Done)
			if progressHandler != nil {
				progressHandler(progressData)
			}
			progressData = &Progress{}
		default:
			if logHandler != nil && !progressKey(key) {
				logHandler(line)
			}
		}
	}
}

func ratio(out, total time.Duration, done bool) float64 {
	if done {
		return 1
	}
	if total <= 0 {
		return 0
	}
	r := float64(out) / float64(total)
	if r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}

func progressKey(key string) bool {
	switch key {
	case "stream_0_0_q", "total_size", "out_time", "dup_frames", "drop_frames":
		return true
	}
	return strings.HasPrefix(key, "stream_")
}

func lookup(configured, name string) (string, error) {
	if configured != "" && configured != name {
		if util.FileExists(configured) {
			return configured, nil
		}
		return "", fmt.Errorf("%s not found at %s", name, configured)
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%s not found in PATH: %w", name, err)
	}
	return path, nil
}

// lineTail keeps the last few log lines for error messages
type lineTail struct {
	mu    sync.Mutex
	lines []string
}

func (t *lineTail) add(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, line)
	if len(t.lines) > 5 {
		t.lines = t.lines[1:]
	}
}

func (t *lineTail) last() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.Join(t.lines, " | ")
}
