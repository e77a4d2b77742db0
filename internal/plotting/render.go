package plotting

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Formats Save understands, by file extension.
var Formats = []string{"png", "svg", "eps", "pdf", "jpg", "tif"}

// Save renders the figure to path in the format named by its extension.
func (f *Figure) Save(path string, width, height vg.Length) error {
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if format == "" {
		return fmt.Errorf("plotting: %s has no extension to pick a format", path)
	}

	c, err := draw.NewFormattedCanvas(width, height, format)
	if err != nil {
		return fmt.Errorf("plotting: %w", err)
	}
	if err := f.Draw(draw.New(c)); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := c.WriteTo(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// Draw tiles the panels onto dc row by row.
func (f *Figure) Draw(dc draw.Canvas) error {
	tiles := draw.Tiles{
		Rows:      f.Rows,
		Cols:      f.Cols,
		PadX:      vg.Millimeter * 6,
		PadY:      vg.Millimeter * 6,
		PadTop:    vg.Millimeter * 2,
		PadBottom: vg.Millimeter * 2,
		PadLeft:   vg.Millimeter * 2,
		PadRight:  vg.Millimeter * 2,
	}

	for i, panel := range f.Panels {
		p, err := panel.Plot()
		if err != nil {
			return fmt.Errorf("%s panel %d: %w", f.Name, i, err)
		}
		pc := tiles.At(dc, i%f.Cols, i/f.Cols)
		p.Draw(pc)

		if panel.Inset == nil || len(panel.Inset.Series) == 0 {
			continue
		}
		ip, err := panel.Inset.Plot()
		if err != nil {
			return fmt.Errorf("%s panel %d inset: %w", f.Name, i, err)
		}
		styleInset(ip)
		ip.Draw(insetCanvas(pc, panel.InsetFraction))
	}
	return nil
}

// Plot builds the gonum plot of one panel. Non-finite points, and
// non-positive points on log axes, split lines into separate segments.
// Labelled series keep their legend entry even with nothing to draw.
func (p *Panel) Plot() (*plot.Plot, error) {
	pl := plot.New()
	pl.Title.Text = p.Title
	pl.X.Label.Text = p.X.Label
	pl.Y.Label.Text = p.Y.Label
	stylePlot(pl)

	xr, yr := newDataRange(), newDataRange()
	for _, s := range p.Series {
		if s.Label != "" {
			pl.Legend.Add(s.Label, thumbnail(s.Style.LineStyle()))
		}
		for _, seg := range segments(s.X, s.Y, p.X.Log, p.Y.Log) {
			line, err := plotter.NewLine(seg)
			if err != nil {
				return nil, err
			}
			line.LineStyle = s.Style.LineStyle()
			pl.Add(line)
			for _, pt := range seg {
				xr.add(pt.X)
				yr.add(pt.Y)
			}
		}
	}

	applyAxis(&pl.X, p.X, xr)
	applyAxis(&pl.Y, p.Y, yr)
	pl.Legend.Top = p.Legend.Top
	pl.Legend.Left = p.Legend.Left
	pl.Legend.XOffs = -vg.Points(10)
	if p.Legend.Left {
		pl.Legend.XOffs = vg.Points(10)
	}
	pl.Legend.YOffs = vg.Points(10)
	if p.Legend.Top {
		pl.Legend.YOffs = -vg.Points(10)
	}
	return pl, nil
}

func applyAxis(a *plot.Axis, ax Axis, r dataRange) {
	if ax.Log {
		a.Scale = plot.LogScale{}
		a.Tick.Marker = logTicker(ax.Ticks)
	}
	switch {
	case ax.Fixed():
		a.Min, a.Max = ax.Min, ax.Max
	case r.empty():
		// log axes cannot fall back to the default [-1, 1]
		a.Min, a.Max = 1, 10
	case r.min == r.max:
		if ax.Log {
			a.Min, a.Max = r.min/10, r.max*10
		} else {
			a.Min, a.Max = r.min-1, r.max+1
		}
	default:
		a.Min, a.Max = r.min, r.max
	}
}

// thumbnail is the legend sample of a line style.
type thumbnail draw.LineStyle

func (t thumbnail) Thumbnail(c *draw.Canvas) {
	y := c.Center().Y
	c.StrokeLine2(draw.LineStyle(t), c.Min.X, y, c.Max.X, y)
}

// logTicker labels the decades in range and the extra values, and marks
// the integer multiples in between. A range spanning less than two
// labelled values also labels the 2 and 5 multiples.
func logTicker(extra []float64) plot.Ticker {
	return plot.TickerFunc(func(min, max float64) []plot.Tick {
		if !(min > 0) || !(max >= min) || math.IsInf(max, 0) {
			return nil
		}

		var ticks []plot.Tick
		seen := make(map[float64]bool)
		for _, v := range extra {
			if v >= min && v <= max && !seen[v] {
				seen[v] = true
				ticks = append(ticks, plot.Tick{Value: v, Label: tickLabel(v)})
			}
		}

		lo := int(math.Floor(math.Log10(min)))
		hi := int(math.Ceil(math.Log10(max)))
		// at most about eight labelled decades
		step := (hi-lo)/8 + 1
		var minor []plot.Tick
		for k := lo; k <= hi; k++ {
			for m := 1; m < 10; m++ {
				v := roundSig(float64(m) * math.Pow10(k))
				if v < min || v > max || seen[v] {
					continue
				}
				seen[v] = true
				if m == 1 && k%step == 0 {
					ticks = append(ticks, plot.Tick{Value: v, Label: tickLabel(v)})
				} else {
					minor = append(minor, plot.Tick{Value: v})
				}
			}
		}

		if len(ticks) < 2 {
			for i, t := range minor {
				if m := t.Value / math.Pow10(int(math.Floor(math.Log10(t.Value)))); isNear(m, 2) || isNear(m, 5) {
					minor[i].Label = tickLabel(t.Value)
				}
			}
		}
		ticks = append(ticks, minor...)
		sort.Slice(ticks, func(i, j int) bool { return ticks[i].Value < ticks[j].Value })
		return ticks
	})
}

func roundSig(v float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'g', 3, 64), 64)
	if err != nil {
		return v
	}
	return r
}

func tickLabel(v float64) string {
	return strconv.FormatFloat(roundSig(v), 'g', -1, 64)
}

func isNear(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

type dataRange struct{ min, max float64 }

func newDataRange() dataRange { return dataRange{min: math.Inf(1), max: math.Inf(-1)} }

func (r *dataRange) add(v float64) {
	r.min = math.Min(r.min, v)
	r.max = math.Max(r.max, v)
}

func (r dataRange) empty() bool { return r.min > r.max }

// segments splits (x, y) at points that cannot be drawn.
func segments(x, y []float64, logX, logY bool) []plotter.XYs {
	n := min(len(x), len(y))
	var out []plotter.XYs
	var cur plotter.XYs
	for i := 0; i < n; i++ {
		if drawable(x[i], logX) && drawable(y[i], logY) {
			cur = append(cur, plotter.XY{X: x[i], Y: y[i]})
			continue
		}
		if len(cur) > 0 {
			out = append(out, cur)
			cur = nil
		}
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

func drawable(v float64, log bool) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	return !log || v > 0
}

func insetCanvas(c draw.Canvas, frac float64) draw.Canvas {
	if frac <= 0 || frac >= 1 {
		frac = 0.4
	}
	w := c.Max.X - c.Min.X
	h := c.Max.Y - c.Min.Y
	pad := vg.Points(14)
	return draw.Crop(c, w*vg.Length(1-frac)-pad, -pad, h*vg.Length(1-frac)-pad, -pad)
}

func stylePlot(p *plot.Plot) {
	p.Title.TextStyle.Font.Size = vg.Points(12)
	p.X.Label.TextStyle.Font.Size = vg.Points(11)
	p.Y.Label.TextStyle.Font.Size = vg.Points(11)
	p.X.Tick.Label.Font.Size = vg.Points(9)
	p.Y.Tick.Label.Font.Size = vg.Points(9)
	p.Legend.TextStyle.Font.Size = vg.Points(9)
	p.X.Padding = vg.Points(4)
	p.Y.Padding = vg.Points(4)
}

func styleInset(p *plot.Plot) {
	p.X.Tick.Label.Font.Size = vg.Points(6)
	p.Y.Tick.Label.Font.Size = vg.Points(6)
	p.X.Padding = vg.Points(1)
	p.Y.Padding = vg.Points(1)
}
