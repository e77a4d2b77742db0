package plotting

import (
	"errors"
	"fmt"
	"image/color"

	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/san-kum/capsim/internal/battery"
)

var (
	ErrPaletteExhausted = errors.New("plotting: more variants than line styles")
	ErrMissingVariant   = errors.New("plotting: variant missing")
)

// Dash patterns, named after their echarts line types.
const (
	DashSolid  = "solid"
	DashDotted = "dotted"
	DashDashed = "dashed"
)

// Style is the line style of one model variant.
type Style struct {
	Name  string // matplotlib shorthand, for logs and tables
	Color color.RGBA
	Dash  string
	Width vg.Length
}

// Palette is assigned to variants in order: solid black, dash-dot blue,
// dashed red.
var Palette = []Style{
	{Name: "k-", Color: color.RGBA{A: 255}, Dash: DashSolid, Width: vg.Points(1.5)},
	{Name: "b-.", Color: color.RGBA{B: 255, A: 255}, Dash: DashDotted, Width: vg.Points(1.5)},
	{Name: "r--", Color: color.RGBA{R: 255, A: 255}, Dash: DashDashed, Width: vg.Points(1.5)},
}

func (s Style) LineStyle() draw.LineStyle {
	ls := draw.LineStyle{Color: s.Color, Width: s.Width}
	switch s.Dash {
	case DashDotted:
		ls.Dashes = []vg.Length{vg.Points(6), vg.Points(2), vg.Points(1.5), vg.Points(2)}
	case DashDashed:
		ls.Dashes = []vg.Length{vg.Points(5), vg.Points(3)}
	}
	return ls
}

// Hex is the color in #rrggbb form.
func (s Style) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", s.Color.R, s.Color.G, s.Color.B)
}

// StyleMap assigns a line style to each variant by identity.
type StyleMap map[battery.Variant]Style

// NewStyleMap assigns Palette entries to variants in order. Repeated
// variants keep their first style.
func NewStyleMap(variants []battery.Variant) (StyleMap, error) {
	m := make(StyleMap, len(variants))
	for _, v := range variants {
		if _, ok := m[v]; ok {
			continue
		}
		if len(m) == len(Palette) {
			return nil, fmt.Errorf("%w: %d styles, variant %s needs another", ErrPaletteExhausted, len(Palette), v)
		}
		m[v] = Palette[len(m)]
	}
	return m, nil
}

func (m StyleMap) Get(v battery.Variant) (Style, error) {
	s, ok := m[v]
	if !ok {
		return Style{}, fmt.Errorf("%w: no line style for %s", ErrMissingVariant, v)
	}
	return s, nil
}
