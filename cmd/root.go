package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "polysampler",
	Short: "Piecewise deterministic Markov process sampler on convex polytopes",
	Long: `polysampler simulates bouncy-particle style PDMP chains restricted to a
convex polytope, for rejection-free Monte Carlo sampling from constrained
targets such as sign-constrained Bayesian logistic regression.`,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
