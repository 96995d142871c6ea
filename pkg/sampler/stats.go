package sampler

import "time"

// Diagnostics contains counters describing one completed run. The field
// set is closed and the names are part of the public report format.
type Diagnostics struct {
	BoundaryHits int           `json:"boundary_hits"`  // boundary reflections applied
	Bounces      int           `json:"bounces"`        // gradient-driven velocity bounces
	Refreshes    int           `json:"refreshes"`      // velocity refreshments
	GradEvals    int           `json:"grad_evals"`     // target gradient evaluations consumed
	Iterations   int           `json:"iterations"`     // total simulation loop iterations
	SimTime      float64       `json:"sim_time"`       // total simulated (process) time
	WallClock    time.Duration `json:"wall_clock_ns"`  // elapsed wall-clock time
}
