package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/capsim/internal/battery"
	"github.com/san-kum/capsim/internal/compare"
	"github.com/san-kum/capsim/internal/plotting"
)

var (
	direct       = battery.Variant{Name: battery.NameDirect, Capacitance: battery.CapacitanceNone}
	differential = battery.Variant{Name: battery.NameDifferential, Capacitance: battery.CapacitanceDifferential}
)

func solution(v battery.Variant, v0 float64) *battery.Solution {
	return &battery.Solution{
		Variant: v,
		Npts:    10,
		Times:   []float64{0, 0.5},
		Series: map[string][]float64{
			battery.VarVoltage:     {v0, v0 - 0.1},
			battery.VarTimeSeconds: {0, 1800},
		},
	}
}

func sampleTable() compare.Table {
	return compare.Table{
		1: {{Variant: direct, Solution: solution(direct, 2)}, {Variant: differential, Solution: solution(differential, 2.05)}},
		2: {{Variant: direct, Solution: solution(direct, 1.9)}, {Variant: differential, Solution: solution(differential, 1.95)}},
	}
}

// grid runs past the solved range so the last sample is NaN
var grid = []float64{0, 0.25, 0.5, 0.75}

func TestJSON(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, "voltages", sampleTable(), grid))

	var got ExportData
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "voltages", got.Analysis)
	require.Len(t, got.Params, 2)
	assert.Equal(t, 1.0, got.Params[0].Param)
	require.Len(t, got.Params[0].Variants, 2)

	v := got.Params[0].Variants[1]
	assert.Equal(t, battery.NameDifferential, v.Name)
	assert.Equal(t, "differential", v.Capacitance)
	volts := v.Series[battery.VarVoltage]
	require.Len(t, volts, len(grid))
	require.NotNil(t, volts[1])
	assert.InDelta(t, 2.0, *volts[1], 1e-12)
	assert.Nil(t, volts[3])
}

func TestCSV(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, CSV(&buf, sampleTable(), grid))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1+2*2*len(grid))
	assert.Equal(t, []string{"param", "model", "capacitance", "t", battery.VarTimeSeconds, battery.VarVoltage}, rows[0])
	assert.Equal(t, "NaN", rows[4][5])
	assert.Equal(t, "900", rows[2][4])
}

func TestHTML(t *testing.T) {
	t.Parallel()
	styles, err := plotting.NewStyleMap([]battery.Variant{direct, differential})
	require.NoError(t, err)

	table := sampleTable()
	fig, err := plotting.Voltages(table, grid, []float64{1, 2}, styles, plotting.DefaultVoltageOptions())
	require.NoError(t, err)
	errs, _, err := plotting.Errors(table, grid, []float64{1, 2}, styles)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, HTML(&buf, fig, errs))
	html := buf.String()
	assert.Contains(t, html, "echarts")
	assert.Contains(t, html, "capacitance_voltage_comparison (a) 1 C")
	assert.Contains(t, html, "capacitance_errors_voltages")
	assert.Contains(t, html, `"log"`)
}

func TestLineData_DropsUndrawable(t *testing.T) {
	t.Parallel()
	s := plotting.Series{
		X: []float64{0, 1, 2, math.NaN(), 4},
		Y: []float64{1, -1, 2, 3, math.Inf(1)},
	}
	assert.Len(t, lineData(s, false, false), 3)
	assert.Len(t, lineData(s, true, true), 1)
}
