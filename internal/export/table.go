// Package export writes figures and sweep tables in formats other tools
// read: interactive HTML, JSON and CSV.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/san-kum/capsim/internal/battery"
	"github.com/san-kum/capsim/internal/compare"
)

// Variables written by JSON and CSV.
var Variables = []string{battery.VarTimeSeconds, battery.VarVoltage}

type ExportData struct {
	Analysis string      `json:"analysis"`
	Grid     []float64   `json:"grid"`
	Params   []ParamData `json:"params"`
}

type ParamData struct {
	Param    float64       `json:"param"`
	Variants []VariantData `json:"variants"`
}

type VariantData struct {
	Name        string                `json:"name"`
	Capacitance string                `json:"capacitance"`
	Npts        int                   `json:"npts"`
	SolveTime   float64               `json:"solve_time_s"`
	Steps       int                   `json:"steps"`
	Terminated  bool                  `json:"terminated"`
	Series      map[string][]*float64 `json:"series"`
}

// Collect samples every variable in Variables on the grid. NaN samples
// become nulls.
func Collect(analysis string, table compare.Table, grid []float64) (*ExportData, error) {
	data := &ExportData{Analysis: analysis, Grid: grid}
	for _, p := range table.Params() {
		pd := ParamData{Param: p}
		for _, e := range table[p] {
			vd := VariantData{
				Name:        e.Variant.Name,
				Capacitance: string(e.Variant.Capacitance),
				Npts:        e.Solution.Npts,
				SolveTime:   e.Solution.SolveTime.Seconds(),
				Steps:       e.Solution.Steps,
				Terminated:  e.Solution.Terminated,
				Series:      make(map[string][]*float64, len(Variables)),
			}
			for _, name := range Variables {
				vals, err := e.Solution.Eval(name, grid)
				if err != nil {
					return nil, err
				}
				vd.Series[name] = nullable(vals)
			}
			pd.Variants = append(pd.Variants, vd)
		}
		data.Params = append(data.Params, pd)
	}
	return data, nil
}

func JSON(w io.Writer, analysis string, table compare.Table, grid []float64) error {
	data, err := Collect(analysis, table, grid)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// CSV writes one row per (param, variant, grid point).
func CSV(w io.Writer, table compare.Table, grid []float64) error {
	cw := csv.NewWriter(w)

	header := append([]string{"param", "model", "capacitance", "t"}, Variables...)
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, p := range table.Params() {
		for _, e := range table[p] {
			cols := make([][]float64, len(Variables))
			for i, name := range Variables {
				vals, err := e.Solution.Eval(name, grid)
				if err != nil {
					return err
				}
				cols[i] = vals
			}
			for k, t := range grid {
				row := []string{
					formatFloat(p),
					e.Variant.Name,
					string(e.Variant.Capacitance),
					formatFloat(t),
				}
				for i := range cols {
					row = append(row, formatFloat(cols[i][k]))
				}
				if err := cw.Write(row); err != nil {
					return err
				}
			}
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("export: write csv: %w", err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func nullable(vals []float64) []*float64 {
	out := make([]*float64, len(vals))
	for i := range vals {
		if math.IsNaN(vals[i]) || math.IsInf(vals[i], 0) {
			continue
		}
		out[i] = &vals[i]
	}
	return out
}
