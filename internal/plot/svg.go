package plot

import (
	"bufio"
	"fmt"
	"html"
	"io"
	"math"

	"github.com/rcliao/graphene/internal/model"
)

// OverlayOptions controls the SVG overlay.
type OverlayOptions struct {
	// Width and Height set the canvas size. When zero the canvas is sized
	// to fit every box.
	Width, Height float64
	// Background is an optional image href drawn under the boxes.
	Background string
}

var palette = []string{
	"#e6194b", "#3cb44b", "#4363d8", "#f58231", "#911eb4",
	"#46f0f0", "#f032e6", "#bcf60c", "#008080", "#9a6324",
}

// WriteOverlaySVG draws one labelled rectangle per overlay item. Newly
// created entities get a thicker outline.
func WriteOverlaySVG(w io.Writer, ov model.Overlay, opts OverlayOptions) error {
	width, height := opts.Width, opts.Height
	if width <= 0 || height <= 0 {
		for _, it := range ov.Items {
			width = math.Max(width, it.Box.XMax)
			height = math.Max(height, it.Box.YMax)
		}
		width, height = math.Max(width, 1), math.Max(height, 1)
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, `<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink" width="%g" height="%g" viewBox="0 0 %g %g">`+"\n",
		width, height, width, height)
	fmt.Fprintf(bw, "  <title>Frame %d</title>\n", ov.FrameID)
	if opts.Background != "" {
		fmt.Fprintf(bw, `  <image xlink:href="%s" x="0" y="0" width="%g" height="%g"/>`+"\n",
			html.EscapeString(opts.Background), width, height)
	}

	for i, it := range ov.Items {
		color := palette[i%len(palette)]
		stroke := 2
		if it.Created {
			stroke = 4
		}
		fmt.Fprintf(bw, `  <rect x="%g" y="%g" width="%g" height="%g" fill="none" stroke="%s" stroke-width="%d"/>`+"\n",
			it.Box.XMin, it.Box.YMin, it.Box.Width(), it.Box.Height(), color, stroke)
		fmt.Fprintf(bw, `  <text x="%g" y="%g" fill="%s" font-size="12">%s</text>`+"\n",
			it.Box.XMin, math.Max(it.Box.YMin-3, 12), color, html.EscapeString(it.EntityID))
	}

	fmt.Fprintln(bw, "</svg>")
	return bw.Flush()
}
