package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os/exec"

	ffmpeggo "github.com/u2takey/ffmpeg-go"
)

// FrameArgs builds the arguments that decode one PNG frame at t seconds to stdout
func FrameArgs(input string, t float64) []string {
	if t < 0 {
		t = 0
	}
	return ffmpeggo.Input(input, ffmpeggo.KwArgs{"ss": Seconds(t)}).
		Output("pipe:", ffmpeggo.KwArgs{"vframes": 1, "f": "image2", "vcodec": "png"}).
		GetArgs()
}

// ExtractFrame decodes the frame of a local file at t seconds
func (e *Executor) ExtractFrame(ctx context.Context, input string, t float64) (image.Image, error) {
	e.mu.Lock()
	ffmpegPath := e.ffmpegPath
	e.mu.Unlock()
	if ffmpegPath == "" {
		return nil, ErrNotLoaded
	}

	args := append([]string{"-hide_banner", "-loglevel", "error"}, FrameArgs(input, t)...)
	cmd := exec.CommandContext(ctx, ffmpegPath, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("frame extraction failed: %w: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("no frame at %ss in %s", Seconds(t), input)
	}

	img, err := png.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}
	return img, nil
}
