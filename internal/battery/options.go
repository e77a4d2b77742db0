package battery

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidOptions is returned by New for unsupported model options.
	ErrInvalidOptions = errors.New("battery: invalid model options")

	// ErrUnknownVariable is returned when a solution has no series by that name.
	ErrUnknownVariable = errors.New("battery: unknown variable")

	// ErrNewtonFailed indicates the algebraic double-layer constraint did
	// not converge.
	ErrNewtonFailed = errors.New("battery: algebraic constraint did not converge")
)

// Capacitance selects how the double-layer overpotential is treated.
type Capacitance string

const (
	// CapacitanceNone eliminates the double layer: the overpotential is
	// given in closed form by the kinetics.
	CapacitanceNone Capacitance = "false"
	// CapacitanceDifferential integrates the double-layer charge balance
	// as an ODE.
	CapacitanceDifferential Capacitance = "differential"
	// CapacitanceAlgebraic solves the kinetics as an algebraic constraint.
	CapacitanceAlgebraic Capacitance = "algebraic"
)

// ParseCapacitance accepts the option spellings used in configs: an empty
// string, "false" and "none" all disable capacitance.
func ParseCapacitance(s string) (Capacitance, error) {
	switch s {
	case "", "false", "none":
		return CapacitanceNone, nil
	case string(CapacitanceDifferential):
		return CapacitanceDifferential, nil
	case string(CapacitanceAlgebraic):
		return CapacitanceAlgebraic, nil
	}
	return "", fmt.Errorf("%w: capacitance %q", ErrInvalidOptions, s)
}

// Enabled reports whether the variant carries any capacitance formulation.
func (c Capacitance) Enabled() bool { return c != CapacitanceNone && c != "" }

// Variant identifies a model independently of its grid resolution.
type Variant struct {
	Name        string
	Capacitance Capacitance
}

func (v Variant) String() string {
	return fmt.Sprintf("%s [capacitance=%s]", v.Name, v.Capacitance)
}

// Params are the non-dimensional parameters of the reduced-order cell.
type Params struct {
	Tau              float64 `yaml:"tau" json:"tau"`
	CurrentScale     float64 `yaml:"current_scale" json:"current_scale"`
	Diffusivity      float64 `yaml:"diffusivity" json:"diffusivity"`
	Consumption      float64 `yaml:"consumption" json:"consumption"`
	OCVOffset        float64 `yaml:"ocv_offset" json:"ocv_offset"`
	OCVSlope         float64 `yaml:"ocv_slope" json:"ocv_slope"`
	ThermalVoltage   float64 `yaml:"thermal_voltage" json:"thermal_voltage"`
	ExchangeCurrent  float64 `yaml:"exchange_current" json:"exchange_current"`
	Resistance       float64 `yaml:"resistance" json:"resistance"`
	DoubleLayer      float64 `yaml:"double_layer" json:"double_layer"`
	CutoffVoltage    float64 `yaml:"cutoff_voltage" json:"cutoff_voltage"`
	MinConcentration float64 `yaml:"min_concentration" json:"min_concentration"`
	NewtonTol        float64 `yaml:"newton_tol" json:"newton_tol"`
	NewtonMaxIter    int     `yaml:"newton_max_iter" json:"newton_max_iter"`
}

// DefaultParams describes a 2 V lead-acid cell; six of them make the 12 V
// pack shown in the voltage plots.
func DefaultParams() Params {
	return Params{
		Tau:              3600,
		CurrentScale:     17,
		Diffusivity:      0.5,
		Consumption:      0.5,
		OCVOffset:        2.1,
		OCVSlope:         0.1,
		ThermalVoltage:   0.0257,
		ExchangeCurrent:  0.45,
		Resistance:       0.02,
		DoubleLayer:      1e-4,
		CutoffVoltage:    1.75,
		MinConcentration: 1e-3,
		NewtonTol:        1e-12,
		NewtonMaxIter:    50,
	}
}

func (p Params) validate() error {
	positive := map[string]float64{
		"tau":               p.Tau,
		"diffusivity":       p.Diffusivity,
		"consumption":       p.Consumption,
		"thermal_voltage":   p.ThermalVoltage,
		"exchange_current":  p.ExchangeCurrent,
		"double_layer":      p.DoubleLayer,
		"min_concentration": p.MinConcentration,
		"newton_tol":        p.NewtonTol,
	}
	for name, v := range positive {
		if !(v > 0) {
			return fmt.Errorf("%w: %s must be positive, got %g", ErrInvalidOptions, name, v)
		}
	}
	if p.NewtonMaxIter < 1 {
		return fmt.Errorf("%w: newton_max_iter must be at least 1", ErrInvalidOptions)
	}
	return nil
}

// Options configure one model variant.
type Options struct {
	Capacitance Capacitance `json:"capacitance"`
	Npts        int         `json:"npts"`
	Params      Params      `json:"params"`
}

// MinNpts is the smallest grid that still has both electrodes and a
// separator.
const MinNpts = 3

// DefaultNpts is used when Options.Npts is zero.
const DefaultNpts = 20
