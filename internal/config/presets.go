package config

import "sort"

// Presets override parts of DefaultConfig. Fields left zero keep the
// default.
var Presets = map[string]*Config{
	"thesis": {
		Crates:          []float64{2},
		ConvergenceNpts: []int{10, 30, 50},
	},
	"rates": {
		Crates:          []float64{0.5, 1, 2},
		ConvergenceNpts: []int{10, 30, 50},
		Workers:         3,
	},
	"quick": {
		Crates:          []float64{1},
		Npts:            8,
		ConvergenceNpts: []int{5, 10, 15},
	},
	"fine": {
		Crates:          []float64{2},
		Npts:            40,
		ConvergenceNpts: []int{10, 20, 40, 80},
	},
}

func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	cfg.Crates = append([]float64(nil), p.Crates...)
	cfg.ConvergenceNpts = append([]int(nil), p.ConvergenceNpts...)
	if p.Npts != 0 {
		cfg.Npts = p.Npts
	}
	if p.Workers != 0 {
		cfg.Workers = p.Workers
	}
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
