package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gonum.org/v1/plot/vg"

	"github.com/san-kum/capsim/internal/battery"
	"github.com/san-kum/capsim/internal/cache"
	"github.com/san-kum/capsim/internal/compare"
	"github.com/san-kum/capsim/internal/config"
	"github.com/san-kum/capsim/internal/export"
	"github.com/san-kum/capsim/internal/plotting"
	"github.com/san-kum/capsim/internal/tui"
	"github.com/san-kum/capsim/internal/viz"
)

const (
	analysisComparison  = "comparison"
	analysisConvergence = "convergence"
)

func runVoltages(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store := cache.New(cfg.Cache.Dir)

	table, grid, err := comparisonData(cmd.Context(), cfg, store)
	if err != nil {
		return err
	}

	styles, err := plotting.NewStyleMap(table.Variants())
	if err != nil {
		return err
	}
	plotCrates := cfg.GetPlotCrates()
	voltages, err := plotting.Voltages(table, grid, plotCrates, styles, voltageOptions(cfg))
	if err != nil {
		return err
	}
	errs, summary, err := plotting.Errors(table, grid, plotCrates, styles)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, viz.Summary("C-rates", fmt.Sprint(table.Params()), "grid points", fmt.Sprint(len(grid))))
	fmt.Fprintln(out, viz.ErrorTable(summary))
	return emit(cfg, analysisComparison, table, grid, voltages, errs)
}

func runConvergence(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store := cache.New(cfg.Cache.Dir)

	table, grid, err := convergenceData(cmd.Context(), cfg, store)
	if err != nil {
		return err
	}

	styles, err := plotting.NewStyleMap(table.Variants())
	if err != nil {
		return err
	}
	fig, timings, err := plotting.Convergence(table, nil, styles)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, viz.Summary("C-rate", fmt.Sprintf("%g", cfg.ConvergenceCrate), "grid sizes", fmt.Sprint(cfg.ConvergenceNpts)))
	fmt.Fprintln(out, viz.SolveTimeTable(timings))
	return emit(cfg, analysisConvergence, table, grid, fig)
}

// comparisonData recomputes the C-rate comparison when --compute is set
// and otherwise reads it from the cache.
func comparisonData(ctx context.Context, cfg *config.Config, store *cache.Store) (compare.Table, []float64, error) {
	fp, err := cache.Fingerprint(analysisComparison, cfg.Crates, cfg.Npts, cfg.Params, cfg.Grid, cfg.Solver)
	if err != nil {
		return nil, nil, err
	}
	if !compute {
		return cached(store, cfg.Cache.Comparison, fp)
	}

	models, err := battery.DefaultModels(cfg.Npts, cfg.Params)
	if err != nil {
		return nil, nil, err
	}
	tEval, err := cfg.Grid.Build()
	if err != nil {
		return nil, nil, err
	}
	table, grid, err := compare.ModelComparison(ctx, models, cfg.Crates, tEval, cfg.GetSweepOptions())
	if err != nil {
		return nil, nil, pkgerrors.Wrap(err, "model comparison")
	}
	if _, err := store.Save(cfg.Cache.Comparison, table, grid, fp); err != nil {
		return nil, nil, err
	}
	return table, grid, nil
}

// convergenceData is comparisonData for the grid resolution study.
func convergenceData(ctx context.Context, cfg *config.Config, store *cache.Store) (compare.Table, []float64, error) {
	fp, err := cache.Fingerprint(analysisConvergence, cfg.ConvergenceCrate, cfg.ConvergenceNpts, cfg.Params, cfg.Grid, cfg.Solver)
	if err != nil {
		return nil, nil, err
	}
	if !compute {
		return cached(store, cfg.Cache.Convergence, fp)
	}

	models, err := battery.DefaultModels(cfg.Npts, cfg.Params)
	if err != nil {
		return nil, nil, err
	}
	tEval, err := cfg.Grid.Build()
	if err != nil {
		return nil, nil, err
	}
	table, grid, err := compare.ConvergenceStudy(ctx, models, cfg.ConvergenceCrate, tEval, cfg.ConvergenceNpts, cfg.GetSweepOptions())
	if err != nil {
		return nil, nil, pkgerrors.Wrap(err, "convergence study")
	}
	if _, err := store.Save(cfg.Cache.Convergence, table, grid, fp); err != nil {
		return nil, nil, err
	}
	return table, grid, nil
}

func cached(store *cache.Store, name, fingerprint string) (compare.Table, []float64, error) {
	entry, err := store.Load(name, fingerprint)
	switch {
	case errors.Is(err, cache.ErrNotFound), errors.Is(err, cache.ErrStale):
		return nil, nil, pkgerrors.Wrapf(err, "%s (rerun with --compute)", name)
	case err != nil:
		return nil, nil, err
	}
	logrus.WithFields(logrus.Fields{
		"name":    name,
		"id":      entry.Meta.ID,
		"created": entry.Meta.CreatedAt,
	}).Info("loaded cached results")
	return entry.Table, entry.Grid, nil
}

func voltageOptions(cfg *config.Config) plotting.VoltageOptions {
	return plotting.VoltageOptions{
		Scale:         cfg.Plot.VoltageScale,
		YMin:          cfg.Plot.YMin,
		YMax:          cfg.Plot.YMax,
		InsetSamples:  cfg.Plot.InsetSamples,
		InsetFraction: cfg.Plot.InsetFraction,
	}
}

// emit writes the figures or data to the output directory, or shows the
// figures in the terminal when no directory is set.
func emit(cfg *config.Config, analysis string, table compare.Table, grid []float64, figs ...*plotting.Figure) error {
	if cfg.OutputDir == "" {
		if noShow {
			return nil
		}
		return tui.Show(figs...)
	}
	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return err
	}

	switch cfg.Format {
	case "html":
		return writeFile(filepath.Join(cfg.OutputDir, "capacitance_"+analysis+".html"), func(f *os.File) error {
			return export.HTML(f, figs...)
		})
	case "json":
		return writeFile(filepath.Join(cfg.OutputDir, "capacitance_"+analysis+".json"), func(f *os.File) error {
			return export.JSON(f, analysis, table, grid)
		})
	case "csv":
		return writeFile(filepath.Join(cfg.OutputDir, "capacitance_"+analysis+".csv"), func(f *os.File) error {
			return export.CSV(f, table, grid)
		})
	}

	width := vg.Length(cfg.Plot.Width) * vg.Centimeter
	height := vg.Length(cfg.Plot.Height) * vg.Centimeter
	for _, fig := range figs {
		path := filepath.Join(cfg.OutputDir, fig.Name+"."+cfg.Format)
		if err := fig.Save(path, width, height); err != nil {
			return err
		}
		logrus.WithField("path", path).Info("saved figure")
	}
	return nil
}

func writeFile(path string, write func(f *os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return pkgerrors.Wrapf(err, "write %s", path)
	}
	if err := f.Close(); err != nil {
		return err
	}
	logrus.WithField("path", path).Info("saved export")
	return nil
}
