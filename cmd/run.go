package cmd

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/nkls/go-polytope-sampler/pkg/core"
	"github.com/nkls/go-polytope-sampler/pkg/geometry"
	"github.com/nkls/go-polytope-sampler/pkg/model"
	"github.com/nkls/go-polytope-sampler/pkg/sampler"
	"github.com/nkls/go-polytope-sampler/pkg/thinning"
)

var runFlags struct {
	configFile  string
	target      string
	oracle      string
	dim         int
	obs         int
	chains      int
	workers     int
	seed        int64
	maxTime     float64
	gradEvals   int
	refreshRate float64
	gridSize    int
	outputDir   string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Simulate PDMP chains on the non-negative orthant",
	RunE:  runChains,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.configFile, "config", "c", "",
		"YAML run file (overrides dimension, budgets, refresh rate and seed)")
	runCmd.Flags().StringVar(&runFlags.target, "target", "gaussian",
		"target density: 'gaussian' or 'logistic'")
	runCmd.Flags().StringVar(&runFlags.oracle, "oracle", "linear",
		"event-time oracle: 'linear' or 'cv' (control variate, logistic only)")
	runCmd.Flags().IntVar(&runFlags.dim, "dim", 5, "state dimension")
	runCmd.Flags().IntVar(&runFlags.obs, "obs", 200, "observations for the logistic target")
	runCmd.Flags().IntVar(&runFlags.chains, "chains", 1, "number of independent chains")
	runCmd.Flags().IntVar(&runFlags.workers, "workers", 0, "concurrent workers (0 = one per CPU)")
	runCmd.Flags().Int64Var(&runFlags.seed, "seed", 42, "base random seed")
	runCmd.Flags().Float64Var(&runFlags.maxTime, "time", 0, "simulated-time ceiling (<=0 unbounded)")
	runCmd.Flags().IntVar(&runFlags.gradEvals, "grad-evals", 100000, "gradient-evaluation ceiling (<=0 unbounded)")
	runCmd.Flags().Float64Var(&runFlags.refreshRate, "refresh", 1.0, "velocity refreshment rate")
	runCmd.Flags().IntVar(&runFlags.gridSize, "grid", 1000, "resampling grid size for CSV output and ESS")
	runCmd.Flags().StringVarP(&runFlags.outputDir, "output", "o", "output", "output directory root")
}

// baseConfig assembles the run configuration from flags or the YAML file.
// The start is the interior point (0.5, …, 0.5) of the orthant with a
// seed-dependent unit start velocity unless the file says otherwise.
func baseConfig() (sampler.Config, error) {
	if runFlags.configFile != "" {
		return sampler.LoadConfig(runFlags.configFile)
	}
	x0 := make([]float64, runFlags.dim)
	for i := range x0 {
		x0[i] = 0.5
	}
	cfg := sampler.Config{
		X0:           x0,
		V0:           core.SampleUnitSphere(runFlags.dim, core.NewRand(runFlags.seed)),
		MaxTime:      runFlags.maxTime,
		MaxGradEvals: runFlags.gradEvals,
		RefreshRate:  runFlags.refreshRate,
		Seed:         runFlags.seed,
	}
	return cfg, nil
}

// newTarget builds a fresh target instance. Chains must not share one when
// the target is stateful (the logistic control-variate reference), so this
// is called once per chain; the data itself is regenerated from a fixed
// seed and identical across chains.
func newTarget(dim int) (core.Target, error) {
	switch runFlags.target {
	case "gaussian":
		return model.StandardGaussian(dim), nil
	case "logistic":
		truth := make([]float64, dim)
		for i := range truth {
			truth[i] = 0.5
		}
		return model.SyntheticLogistic(runFlags.obs, dim, truth, core.NewRand(7))
	default:
		return nil, fmt.Errorf("unknown target %q", runFlags.target)
	}
}

func newOracle(target core.Target) (core.EventTimer, error) {
	switch runFlags.oracle {
	case "linear":
		return thinning.NewLinear(target), nil
	case "cv":
		ref, ok := target.(core.ReferenceTarget)
		if !ok {
			return nil, fmt.Errorf("target %q keeps no control-variate reference", runFlags.target)
		}
		return thinning.NewControlVariate(ref), nil
	default:
		return nil, fmt.Errorf("unknown oracle %q", runFlags.oracle)
	}
}

func runChains(cmd *cobra.Command, args []string) error {
	cfg, err := baseConfig()
	if err != nil {
		return err
	}
	dim := len(cfg.X0)
	domain := geometry.Orthant(dim)
	logger := log.New(os.Stderr, "", log.LstdFlags)

	pool := sampler.NewChainPool(func(seed int64) (*sampler.Engine, error) {
		target, err := newTarget(dim)
		if err != nil {
			return nil, err
		}
		oracle, err := newOracle(target)
		if err != nil {
			return nil, err
		}
		chainCfg := cfg
		chainCfg.Seed = seed
		engine, err := sampler.NewEngine(domain, target, oracle, chainCfg)
		if err != nil {
			return nil, err
		}
		engine.SetLogger(logger)
		return engine, nil
	}, runFlags.workers)

	seeds := make([]int64, runFlags.chains)
	for i := range seeds {
		seeds[i] = cfg.Seed + int64(i)
	}

	start := time.Now()
	results := pool.Run(seeds)
	logger.Printf("ran %d chain(s) in %v", len(results), time.Since(start))

	outputDir := filepath.Join(runFlags.outputDir, runFlags.target)
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	stamp := time.Now().Format("20060102_150405")

	for _, res := range results {
		if res.Err != nil {
			return fmt.Errorf("chain %s (seed %d): %w", res.ID, res.Seed, res.Err)
		}
		mean, err := res.Path.Mean()
		if err != nil {
			return err
		}
		ess, err := res.Path.ESS(runFlags.gridSize)
		if err != nil {
			return err
		}
		fmt.Printf("chain %s seed=%d\n", res.ID, res.Seed)
		fmt.Printf("  mean: %.4f\n", mean)
		fmt.Printf("  ess:  %.1f\n", ess)
		fmt.Printf("  boundary hits=%d bounces=%d refreshes=%d grad evals=%d iterations=%d sim time=%.2f wall=%v\n",
			res.Diag.BoundaryHits, res.Diag.Bounces, res.Diag.Refreshes,
			res.Diag.GradEvals, res.Diag.Iterations, res.Diag.SimTime, res.Diag.WallClock)

		if err := writeSamplesCSV(filepath.Join(outputDir,
			fmt.Sprintf("samples_%s_%d.csv", stamp, res.Seed)), res); err != nil {
			return err
		}
	}

	diagFile := filepath.Join(outputDir, fmt.Sprintf("diagnostics_%s.json", stamp))
	if err := writeDiagnosticsJSON(diagFile, results); err != nil {
		return err
	}
	fmt.Printf("results saved under %s\n", outputDir)
	return nil
}

// writeSamplesCSV resamples the chain on the run's uniform grid and writes
// one row per grid time.
func writeSamplesCSV(filename string, res sampler.ChainResult) error {
	grid := make([]float64, runFlags.gridSize)
	span := res.Path.End() - res.Path.Start()
	for i := range grid {
		grid[i] = res.Path.Start() + span*float64(i)/float64(runFlags.gridSize-1)
	}
	samples, err := res.Path.SampleAt(grid)
	if err != nil {
		return err
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	defer w.Flush()

	dim := res.Path.Dim()
	header := make([]string, dim+1)
	header[0] = "t"
	for d := 0; d < dim; d++ {
		header[d+1] = "x" + strconv.Itoa(d)
	}
	if err := w.Write(header); err != nil {
		return err
	}
	row := make([]string, dim+1)
	for i, t := range grid {
		row[0] = strconv.FormatFloat(t, 'g', -1, 64)
		for d := 0; d < dim; d++ {
			row[d+1] = strconv.FormatFloat(samples.At(i, d), 'g', -1, 64)
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// writeDiagnosticsJSON writes the per-chain diagnostics records.
func writeDiagnosticsJSON(filename string, results []sampler.ChainResult) error {
	type chainReport struct {
		ID   string              `json:"id"`
		Seed int64               `json:"seed"`
		Diag sampler.Diagnostics `json:"diagnostics"`
	}
	reports := make([]chainReport, len(results))
	for i, res := range results {
		reports[i] = chainReport{ID: res.ID.String(), Seed: res.Seed, Diag: res.Diag}
	}
	data, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}
