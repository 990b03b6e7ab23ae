// Package render draws pipeline state as figures: slice heat maps with
// colorbars, guidance click markers and semi-transparent label overlays.
// Everything here is display only and never feeds back into the pipeline.
package render

import (
	"fmt"
	"image/color"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/medgo/go-medseg/transform"
)

// Marker colors for guidance clicks, matching the image-space overlay
// helpers: green foreground, red background.
var (
	foregroundColor = color.RGBA{G: 255, A: 255}
	backgroundColor = color.RGBA{R: 255, A: 255}
)

// Panel describes one figure tile: a tensor channel as a heat map, an
// optional label overlay and optional guidance markers.
type Panel struct {
	Title    string
	Image    *transform.Tensor
	Channel  int
	Label    *transform.Tensor // optional binary overlay
	Alpha    float64           // overlay opacity, 0 disables
	Guidance *transform.Guidance
}

// tensorGrid adapts one channel of a [C Y X] (or [Y X]) tensor to the
// plotter's grid interface. Rows are flipped so image row 0 draws at the top.
type tensorGrid struct {
	data []float32
	w, h int
}

func newTensorGrid(t *transform.Tensor, channel int) (tensorGrid, error) {
	if t == nil {
		return tensorGrid{}, fmt.Errorf("no tensor to draw")
	}
	s := t.Shape
	if len(s) == 2 {
		s = []int{1, s[0], s[1]}
	}
	if len(s) != 3 {
		return tensorGrid{}, fmt.Errorf("want a [C Y X] tensor, have shape %v", t.Shape)
	}
	if channel < 0 || channel >= s[0] {
		return tensorGrid{}, fmt.Errorf("channel %d out of range [0, %d)", channel, s[0])
	}
	h, w := s[1], s[2]
	return tensorGrid{data: t.Data[channel*h*w : (channel+1)*h*w], w: w, h: h}, nil
}

func (g tensorGrid) Dims() (c, r int)   { return g.w, g.h }
func (g tensorGrid) X(c int) float64    { return float64(c) }
func (g tensorGrid) Y(r int) float64    { return float64(r) }
func (g tensorGrid) Z(c, r int) float64 { return float64(g.data[(g.h-1-r)*g.w+c]) }

// overlayPalette paints 0 as fully transparent and 1 as the overlay color.
type overlayPalette struct {
	c color.Color
}

func (p overlayPalette) Colors() []color.Color {
	return []color.Color{color.NRGBA{}, p.c}
}

// plot builds the panel's plot.
func (pn Panel) plot() (*plot.Plot, float64, float64, error) {
	grid, err := newTensorGrid(pn.Image, pn.Channel)
	if err != nil {
		return nil, 0, 0, err
	}

	p := plot.New()
	p.Title.Text = pn.Title
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"

	cm := moreland.ExtendedBlackBody()
	hm := plotter.NewHeatMap(grid, cm.Palette(255))
	min, max := hm.Min, hm.Max
	p.Add(hm)

	if pn.Label != nil && pn.Alpha > 0 {
		lg, err := newTensorGrid(pn.Label, 0)
		if err != nil {
			return nil, 0, 0, err
		}
		a := uint8(255 * clamp01(pn.Alpha))
		overlay := plotter.NewHeatMap(lg, overlayPalette{c: color.NRGBA{R: 255, A: a}})
		overlay.Min, overlay.Max = 0, 1
		p.Add(overlay)
	}

	if pn.Guidance != nil {
		if err := addClicks(p, pn.Guidance.Positive, grid.h, foregroundColor); err != nil {
			return nil, 0, 0, err
		}
		if err := addClicks(p, pn.Guidance.Negative, grid.h, backgroundColor); err != nil {
			return nil, 0, 0, err
		}
	}
	return p, min, max, nil
}

// addClicks overlays one set of click markers, flipped to the plot's
// bottom-up y axis.
func addClicks(p *plot.Plot, pts []transform.Point2, height int, c color.RGBA) error {
	if len(pts) == 0 {
		return nil
	}
	xys := make(plotter.XYs, len(pts))
	for i, pt := range pts {
		xys[i] = plotter.XY{X: pt.X, Y: float64(height-1) - pt.Y}
	}
	s, err := plotter.NewScatter(xys)
	if err != nil {
		return fmt.Errorf("building click markers: %w", err)
	}
	s.GlyphStyle.Color = c
	s.GlyphStyle.Shape = draw.CrossGlyph{}
	s.GlyphStyle.Radius = vg.Points(5)
	p.Add(s)
	return nil
}

// colorBar builds the scale plot drawn under a panel.
func colorBar(min, max float64) *plot.Plot {
	if max <= min {
		max = min + 1 // uniform images still get a drawable scale
	}
	cm := moreland.ExtendedBlackBody()
	cm.SetMin(min)
	cm.SetMax(max)

	p := plot.New()
	p.Add(&plotter.ColorBar{ColorMap: cm})
	p.HideY()
	p.X.Padding = 0
	return p
}

// Save renders the panels side by side with a colorbar under each and writes
// a PNG. The figure is display output only; nothing is returned to the
// pipeline.
func Save(path string, panels ...Panel) error {
	if len(panels) == 0 {
		return fmt.Errorf("no panels to draw")
	}

	plots := make([][]*plot.Plot, 2)
	plots[0] = make([]*plot.Plot, len(panels))
	plots[1] = make([]*plot.Plot, len(panels))
	for i, pn := range panels {
		p, min, max, err := pn.plot()
		if err != nil {
			return fmt.Errorf("panel %d: %w", i, err)
		}
		plots[0][i] = p
		plots[1][i] = colorBar(min, max)
	}

	const panelSize = 4 * vg.Inch
	img := vgimg.New(panelSize*vg.Length(len(panels)), panelSize+vg.Inch)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows: 2, Cols: len(panels),
		PadX: vg.Millimeter, PadY: vg.Millimeter,
		PadTop: vg.Millimeter, PadBottom: vg.Millimeter,
		PadLeft: vg.Millimeter, PadRight: vg.Millimeter,
	}

	canvases := plot.Align(plots, tiles, dc)
	for i := range plots {
		for j := range plots[i] {
			if plots[i][j] != nil {
				plots[i][j].Draw(canvases[i][j])
			}
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating figure file: %w", err)
	}
	defer f.Close()

	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(f); err != nil {
		return fmt.Errorf("writing figure: %w", err)
	}
	return nil
}

// SideBySide writes the tutorial's image/label view: the slice with guidance
// markers on the left, the same slice with a semi-transparent label overlay
// on the right.
func SideBySide(path string, image, label *transform.Tensor, g *transform.Guidance, alpha float64) error {
	return Save(path,
		Panel{Title: "image", Image: image, Guidance: g},
		Panel{Title: "label", Image: image, Label: label, Alpha: alpha},
	)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
