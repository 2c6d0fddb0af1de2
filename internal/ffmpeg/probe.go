package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	ffmpeggo "github.com/u2takey/ffmpeg-go"

	"github.com/keagan/tabreel/internal/media"
	"github.com/keagan/tabreel/pkg/util"
)

// DefaultProbeTimeout bounds a single ffprobe call
const DefaultProbeTimeout = 30 * time.Second

// ProbeVideo runs the ffprobe binary at bin on a local media file and parses
// its metadata. An empty bin is looked up in PATH. The call is bounded by
// timeout and cancelled with ctx.
func ProbeVideo(ctx context.Context, bin, filePath string, timeout time.Duration) (*VideoInfo, error) {
	if filePath == "" {
		return nil, fmt.Errorf("file path is required")
	}
	if bin == "" {
		bin = "ffprobe"
	}
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := ffmpeggo.ConvertKwargsToCmdLineArgs(ffmpeggo.KwArgs{
		"show_format":  "",
		"show_streams": "",
		"of":           "json",
	})
	args = append(args, filePath)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("ffprobe interrupted: %w", ctx.Err())
		}
		return nil, fmt.Errorf("ffprobe failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return parseProbe(filePath, stdout.Bytes())
}

func parseProbe(filePath string, output []byte) (*VideoInfo, error) {
	var probe probeResult
	if err := json.Unmarshal(output, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	info := &VideoInfo{
		FilePath: filePath,
	}

	// Parse duration
	if dur, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
		info.Duration = util.Seconds(dur)
	}

	// Parse bitrate
	if br, err := strconv.ParseInt(probe.Format.BitRate, 10, 64); err == nil {
		info.Bitrate = br
	}

	for _, stream := range probe.Streams {
		switch stream.CodecType {
		case "video":
			if info.Width > 0 {
				continue
			}
			info.Width = stream.Width
			info.Height = stream.Height
			info.VideoCodec = stream.CodecName

			// Calculate FPS from r_frame_rate (e.g., "30/1")
			if stream.RFrameRate != "" {
				info.FPS = util.ParseFrameRate(stream.RFrameRate)
			}
			// browser recordings often carry no container duration
			if info.Duration == 0 {
				if dur, err := strconv.ParseFloat(stream.Duration, 64); err == nil {
					info.Duration = util.Seconds(dur)
				}
			}
		case "audio":
			info.HasAudio = true
			info.AudioCodec = stream.CodecName
		}
	}

	if info.Width <= 0 || info.Height <= 0 {
		return nil, fmt.Errorf("no video stream in %s", filePath)
	}
	return info, nil
}

// probeResult matches ffprobe JSON output structure
type probeResult struct {
	Format struct {
		Duration string `json:"duration"`
		BitRate  string `json:"bit_rate"`
	} `json:"format"`
	Streams []struct {
		CodecType  string `json:"codec_type"`
		CodecName  string `json:"codec_name"`
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		RFrameRate string `json:"r_frame_rate"`
		Duration   string `json:"duration"`
	} `json:"streams"`
}

// Localizer materialises a source reference as a local file
type Localizer interface {
	Localize(ctx context.Context, ref string) (string, error)
}

// Binaries resolves the ffprobe binary; *Executor implements it
type Binaries interface {
	Load(ctx context.Context) error
	FFprobePath() string
}

// Prober adapts ProbeVideo to media.Prober for source references
type Prober struct {
	local   Localizer
	bins    Binaries
	timeout time.Duration
}

func NewProber(local Localizer, bins Binaries, timeout time.Duration) *Prober {
	return &Prober{local: local, bins: bins, timeout: timeout}
}

// Probe localizes ref and reads its dimensions and duration
func (p *Prober) Probe(ctx context.Context, ref string) (media.Info, error) {
	path, err := p.local.Localize(ctx, ref)
	if err != nil {
		return media.Info{}, err
	}
	if err := p.bins.Load(ctx); err != nil {
		return media.Info{}, err
	}
	info, err := ProbeVideo(ctx, p.bins.FFprobePath(), path, p.timeout)
	if err != nil {
		return media.Info{}, err
	}
	return media.Info{
		Width:    info.Width,
		Height:   info.Height,
		Duration: info.Duration.Seconds(),
		FPS:      info.FPS,
		HasAudio: info.HasAudio,
		Codec:    info.VideoCodec,
	}, nil
}
