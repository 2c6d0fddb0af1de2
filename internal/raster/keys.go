package raster

import (
	"fmt"
	"strings"

	"github.com/keagan/tabreel/internal/timeline"
)

func backgroundKey(bg timeline.Background, w, h int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%dx%d|", w, h)
	switch b := bg.(type) {
	case timeline.Solid:
		sb.WriteString(b.Color)
	case timeline.Gradient:
		fmt.Fprintf(&sb, "%g", b.Angle)
		for _, st := range b.Stops {
			fmt.Fprintf(&sb, "|%s@%g", st.Color, st.Position)
		}
	}
	return sb.String()
}

func sizeKey(w, h int, radius float64) string {
	return fmt.Sprintf("%dx%d|%g", w, h, radius)
}
