package ffmpeg

import (
	"fmt"
	"strconv"
	"strings"
)

// FilterBuilder helps construct a comma separated ffmpeg filter chain
type FilterBuilder struct {
	filters []string
}

// NewFilterBuilder creates a new filter builder
func NewFilterBuilder() *FilterBuilder {
	return &FilterBuilder{
		filters: make([]string, 0),
	}
}

// Scale adds a scale filter
func (fb *FilterBuilder) Scale(width, height int) *FilterBuilder {
	if width <= 0 || height <= 0 {
		// Return self without adding filter - allows chaining to continue
		return fb
	}
	fb.filters = append(fb.filters, fmt.Sprintf("scale=%d:%d", width, height))
	return fb
}

// FitInside scales down or up to fit width x height keeping aspect, then pads to exactly that size
func (fb *FilterBuilder) FitInside(width, height int) *FilterBuilder {
	if width <= 0 || height <= 0 {
		return fb
	}
	fb.filters = append(fb.filters,
		fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease", width, height),
		fmt.Sprintf("pad=%d:%d:(ow-iw)/2:(oh-ih)/2:color=black", width, height),
	)
	return fb
}

// FPS adds an fps filter
func (fb *FilterBuilder) FPS(fps int) *FilterBuilder {
	if fps <= 0 {
		return fb
	}
	fb.filters = append(fb.filters, fmt.Sprintf("fps=%d", fps))
	return fb
}

// Trim keeps [start, end) seconds of the input and resets timestamps
func (fb *FilterBuilder) Trim(start, end float64) *FilterBuilder {
	fb.filters = append(fb.filters,
		fmt.Sprintf("trim=start=%s:end=%s", Seconds(start), Seconds(end)),
		"setpts=PTS-STARTPTS",
	)
	return fb
}

// ATrim is Trim for audio streams
func (fb *FilterBuilder) ATrim(start, end float64) *FilterBuilder {
	fb.filters = append(fb.filters,
		fmt.Sprintf("atrim=start=%s:end=%s", Seconds(start), Seconds(end)),
		"asetpts=PTS-STARTPTS",
	)
	return fb
}

// FadeOutAlpha fades the alpha channel instead of the colour so whatever is
// underneath shows through. The input must carry alpha.
func (fb *FilterBuilder) FadeOutAlpha(start, duration float64) *FilterBuilder {
	if duration <= 0 {
		return fb
	}
	fb.filters = append(fb.filters, fmt.Sprintf("fade=t=out:st=%s:d=%s:alpha=1", Seconds(start), Seconds(duration)))
	return fb
}

// Format adds a pixel format conversion
func (fb *FilterBuilder) Format(pixFmt string) *FilterBuilder {
	fb.filters = append(fb.filters, "format="+pixFmt)
	return fb
}

// SquarePixels forces a 1:1 sample aspect ratio
func (fb *FilterBuilder) SquarePixels() *FilterBuilder {
	fb.filters = append(fb.filters, "setsar=1")
	return fb
}

// Custom adds a custom filter string
func (fb *FilterBuilder) Custom(filter string) *FilterBuilder {
	fb.filters = append(fb.filters, filter)
	return fb
}

// Build returns the complete filter string joined with commas
func (fb *FilterBuilder) Build() string {
	if len(fb.filters) == 0 {
		return ""
	}
	return strings.Join(fb.filters, ",")
}

// FilterGraph assembles labelled chains into a -filter_complex description
type FilterGraph struct {
	chains []string
}

func NewFilterGraph() *FilterGraph {
	return &FilterGraph{}
}

// Chain adds "[in...]filters[out...]". An empty builder becomes a null/anull passthrough.
func (g *FilterGraph) Chain(inputs []string, fb *FilterBuilder, outputs ...string) *FilterGraph {
	body := fb.Build()
	if body == "" {
		body = "null"
	}
	g.chains = append(g.chains, labels(inputs)+body+labels(outputs))
	return g
}

// Build joins every chain with semicolons
func (g *FilterGraph) Build() string {
	return strings.Join(g.chains, ";")
}

// Len is the number of chains
func (g *FilterGraph) Len() int {
	return len(g.chains)
}

// Stream labels an input stream, e.g. Stream(2, "v") is "2:v"
func Stream(input int, kind string) string {
	return strconv.Itoa(input) + ":" + kind
}

func labels(names []string) string {
	var sb strings.Builder
	for _, n := range names {
		sb.WriteString("[" + n + "]")
	}
	return sb.String()
}

// Seconds formats a time value with millisecond precision and no trailing zeros
func Seconds(v float64) string {
	s := strconv.FormatFloat(v, 'f', 3, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
