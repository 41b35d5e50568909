package main

import (
	"context"
	"fmt"
	"math"
	"math/cmplx"
	"os"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/eigenflow/internal/config"
	"github.com/san-kum/eigenflow/internal/dynamo"
	"github.com/san-kum/eigenflow/internal/flowmap"
	"github.com/san-kum/eigenflow/internal/krylov"
	"github.com/san-kum/eigenflow/internal/live"
	"github.com/san-kum/eigenflow/internal/perturb"
	"github.com/san-kum/eigenflow/internal/storage"
)

var (
	dataDir     string
	configFile  string
	preset      string
	horizon     float64
	dt          float64
	integrator  string
	epsDu       float64
	seed        int64
	smoothness  float64
	maxIter     int
	numValues   int
	ritzTol     float64
	residualTol float64
	equilibrium int
	poincare    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "eigenflow",
		Short: "matrix-free Arnoldi eigenvalues of flow-map linearizations",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".eigenflow", "data directory")

	eigvalsCmd := &cobra.Command{
		Use:   "eigvals [model]",
		Short: "compute the eigenvalue spectrum at an invariant solution",
		Args:  cobra.ExactArgs(1),
		RunE:  runEigvals,
	}
	addRunFlags(eigvalsCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata and spectrum as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot spectrum and convergence history",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	liveCmd := &cobra.Command{
		Use:   "live [model]",
		Short: "run with a live convergence monitor",
		Args:  cobra.ExactArgs(1),
		RunE:  runLive,
	}
	addRunFlags(liveCmd)

	presetsCmd := &cobra.Command{
		Use:   "presets [model]",
		Short: "list available presets for a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			presets := config.ListPresets(args[0])
			if len(presets) == 0 {
				fmt.Printf("no presets for model: %s\n", args[0])
				return nil
			}
			fmt.Printf("presets for %s:\n", args[0])
			for _, p := range presets {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	rootCmd.AddCommand(eigvalsCmd, listCmd, exportCmd, plotCmd, liveCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().Float64Var(&horizon, "horizon", config.DefaultHorizon, "integration horizon T of the flow map")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "integrator timestep")
	cmd.Flags().StringVar(&integrator, "integrator", "rk4", "integrator")
	cmd.Flags().Float64Var(&epsDu, "eps-du", config.DefaultEpsDu, "finite-difference perturbation magnitude")
	cmd.Flags().Int64Var(&seed, "seed", config.DefaultSeed, "random seed for the initial perturbation")
	cmd.Flags().Float64Var(&smoothness, "smoothness", config.DefaultSmoothness, "smoothness of initial perturbation, 0 < s < 1")
	cmd.Flags().IntVar(&maxIter, "max-iter", config.DefaultMaxIterations, "maximum Krylov subspace dimension")
	cmd.Flags().IntVar(&numValues, "values", config.DefaultNumValues, "number of leading eigenvalues to converge")
	cmd.Flags().Float64Var(&ritzTol, "ritz-tol", config.DefaultRitzTol, "Ritz value stabilization tolerance")
	cmd.Flags().Float64Var(&residualTol, "residual-tol", config.DefaultResidualTol, "base-point fixed-point tolerance")
	cmd.Flags().IntVar(&equilibrium, "equilibrium", 0, "index of the model equilibrium used as base point")
	cmd.Flags().BoolVar(&poincare, "poincare", false, "compute eigenvalues of the Poincare section return map")
}

// resolveConfig merges preset, config file, and CLI flags, in that
// order of increasing precedence.
func resolveConfig(cmd *cobra.Command, model string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	cfg.Model = model

	if preset != "" {
		p := config.GetPreset(model, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(model))
		}
		pc := *p
		cfg = &pc
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		loaded.Model = model
		cfg = loaded
	}

	if cmd.Flags().Changed("horizon") {
		cfg.Horizon = horizon
	}
	if cmd.Flags().Changed("dt") {
		cfg.Dt = dt
	}
	if cmd.Flags().Changed("integrator") {
		cfg.Integrator = integrator
	}
	if cmd.Flags().Changed("eps-du") {
		cfg.EpsDu = epsDu
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed = seed
	}
	if cmd.Flags().Changed("smoothness") {
		cfg.Smoothness = smoothness
	}
	if cmd.Flags().Changed("max-iter") {
		cfg.MaxIterations = maxIter
	}
	if cmd.Flags().Changed("values") {
		cfg.NumValues = numValues
	}
	if cmd.Flags().Changed("ritz-tol") {
		cfg.RitzTol = ritzTol
	}
	if cmd.Flags().Changed("residual-tol") {
		cfg.ResidualTol = residualTol
	}
	if cmd.Flags().Changed("equilibrium") {
		cfg.Equilibrium = equilibrium
	}
	if cmd.Flags().Changed("poincare") {
		cfg.Poincare = poincare
	}

	cfg.Normalize()
	return cfg, nil
}

// buildPipeline assembles the residual operator, base point, and seed
// source from a resolved configuration.
func buildPipeline(cfg *config.Config) (flowmap.Residual, dynamo.State, perturb.Source, error) {
	registry := flowmap.NewRegistry()

	sys, err := registry.GetModel(cfg.Model)
	if err != nil {
		return nil, nil, nil, err
	}
	integ, err := registry.GetIntegrator(cfg.Integrator)
	if err != nil {
		return nil, nil, nil, err
	}

	var x0 dynamo.State
	if cfg.BasePoint != nil {
		x0 = dynamo.State(cfg.BasePoint).Clone()
		if len(x0) != sys.StateDim() {
			return nil, nil, nil, fmt.Errorf("base point dim %d, model dim %d: %w",
				len(x0), sys.StateDim(), dynamo.ErrDimensionMismatch)
		}
	} else {
		ep, ok := sys.(dynamo.EquilibriumProvider)
		if !ok {
			return nil, nil, nil, fmt.Errorf("model %s has no known equilibria; supply base_point", cfg.Model)
		}
		eqs := ep.Equilibria()
		if cfg.Equilibrium < 0 || cfg.Equilibrium >= len(eqs) {
			return nil, nil, nil, fmt.Errorf("equilibrium index %d out of range [0,%d)", cfg.Equilibrium, len(eqs))
		}
		x0 = eqs[cfg.Equilibrium]
	}

	m, err := flowmap.New(sys, integ, cfg.Horizon, cfg.Dt)
	if err != nil {
		return nil, nil, nil, err
	}

	var op flowmap.Residual
	switch {
	case cfg.Poincare:
		sp, ok := sys.(dynamo.SectionProvider)
		if !ok {
			return nil, nil, nil, fmt.Errorf("model %s has no Poincare section", cfg.Model)
		}
		op = flowmap.NewPoincare(m, sp.Section(), 0)
	case cfg.Symmetry != nil:
		op, err = flowmap.NewSymmetry(m, cfg.Symmetry)
		if err != nil {
			return nil, nil, nil, err
		}
	default:
		op = flowmap.NewPlain(m)
	}

	var src perturb.Source
	if cfg.Perturb != nil {
		src = perturb.Supplied{V: dynamo.State(cfg.Perturb), Sigma: cfg.Symmetry, EpsDu: cfg.EpsDu}
	} else {
		src = perturb.Synthesize{Seed: cfg.Seed, Smoothness: cfg.Smoothness, Sigma: cfg.Symmetry, EpsDu: cfg.EpsDu}
	}

	return op, x0, src, nil
}

func solveOptions(cfg *config.Config) krylov.SolveOptions {
	return krylov.SolveOptions{
		EpsDu:       cfg.EpsDu,
		ResidualTol: cfg.ResidualTol,
		Arnoldi: krylov.Options{
			MaxIterations: cfg.MaxIterations,
			NumValues:     cfg.NumValues,
			RitzTol:       cfg.RitzTol,
		},
	}
}

func runEigvals(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}

	op, x0, src, err := buildPipeline(cfg)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	fmt.Printf("computing spectrum of %s (T=%.4f, eps_du=%.1e)...\n", cfg.Model, cfg.Horizon, cfg.EpsDu)
	start := time.Now()

	report, err := krylov.Solve(context.Background(), op, x0, src, solveOptions(cfg),
		func(info krylov.StepInfo) {
			fmt.Printf("  step %2d  residual %.3e\n", info.Iteration, info.Residual)
		})
	if err != nil {
		return err
	}

	elapsed := time.Since(start)

	runID, err := st.Save(cfg, report)
	if err != nil {
		return err
	}

	fmt.Printf("\ncompleted in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("status: %s after %d iterations\n", report.Result.Status, report.Result.Iterations)
	fmt.Printf("|G(x0)| = %.3e   |G(x0)|/T = %.3e   CFL = %.3f\n\n",
		report.BaseResidual, report.BaseResidual/cfg.Horizon, report.CFL)

	printSpectrum(report.Result.Ritz, cfg.Horizon)
	return nil
}

// printSpectrum writes the Ritz values of the residual map G = sigma
// f^T - id together with the corresponding flow exponents
// lambda = log(1 + mu)/T.
func printSpectrum(ritz []krylov.Ritz, T float64) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tRE\tIM\t|MU|\tEXP_RE\tEXP_IM\tRESIDUAL\tCONVERGED")

	for i, rz := range ritz {
		lambda := cmplx.Log(1+rz.Value) / complex(T, 0)
		fmt.Fprintf(w, "%d\t%+.8f\t%+.8f\t%.8f\t%+.5f\t%+.5f\t%.2e\t%v\n",
			i+1,
			real(rz.Value), imag(rz.Value), cmplx.Abs(rz.Value),
			real(lambda), imag(lambda),
			rz.Residual, rz.Converged,
		)
	}
	w.Flush()
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODEL\tTIME\tT\tEPS_DU\tITER\tSTATUS")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.3f\t%.1e\t%d\t%s\n",
			run.ID,
			run.Model,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Horizon,
			run.EpsDu,
			run.Iterations,
			run.Status,
		)
	}
	return w.Flush()
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)

	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	ritz, err := st.LoadEigenvalues(args[0])
	if err != nil {
		return err
	}
	return storage.ExportJSON(os.Stdout, meta, ritz)
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)

	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	ritz, err := st.LoadEigenvalues(args[0])
	if err != nil {
		return err
	}
	if len(ritz) == 0 {
		return fmt.Errorf("no eigenvalues to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("model: %s  status: %s\n\n", meta.Model, meta.Status)

	mags := make([]float64, len(ritz))
	for i, rz := range ritz {
		mags[i] = cmplx.Abs(rz.Value)
	}
	fmt.Println(asciigraph.Plot(mags,
		asciigraph.Height(10),
		asciigraph.Width(70),
		asciigraph.Caption("|mu| by dominance rank"),
	))
	fmt.Println()

	if len(meta.ResidualHistory) > 1 {
		hist := make([]float64, len(meta.ResidualHistory))
		for i, r := range meta.ResidualHistory {
			if r < 1e-16 {
				r = 1e-16
			}
			hist[i] = math.Log10(r)
		}
		fmt.Println(asciigraph.Plot(hist,
			asciigraph.Height(10),
			asciigraph.Width(70),
			asciigraph.Caption("log10 orthogonalization residual per step"),
		))
	}

	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}

	op, x0, src, err := buildPipeline(cfg)
	if err != nil {
		return err
	}

	m := live.NewModel(cfg.Model, func(ctx context.Context, onStep func(krylov.StepInfo)) (*krylov.Report, error) {
		return krylov.Solve(ctx, op, x0, src, solveOptions(cfg), onStep)
	})

	final, err := tea.NewProgram(m).Run()
	if err != nil {
		return err
	}

	if fm, ok := final.(live.Model); ok {
		if report, done, runErr := fm.Report(); done {
			if runErr != nil {
				return runErr
			}
			fmt.Printf("status: %s after %d iterations\n\n", report.Result.Status, report.Result.Iterations)
			printSpectrum(report.Result.Ritz, cfg.Horizon)
		}
	}
	return nil
}
