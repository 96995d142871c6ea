package sampler

import (
	"runtime"
	"sync"

	"github.com/google/uuid"

	"github.com/nkls/go-polytope-sampler/pkg/path"
)

// chainTask is one independent chain to simulate.
type chainTask struct {
	index int
	seed  int64
}

// ChainResult is the outcome of one independent chain.
type ChainResult struct {
	ID   uuid.UUID
	Seed int64
	Path *path.Path
	Diag Diagnostics
	Err  error
}

// ChainPool runs independent chains concurrently. Every task builds a
// fresh engine from its seed, so chains share no mutable state: each owns
// its RNG, its target instance, its counters, and its path.
type ChainPool struct {
	newEngine  func(seed int64) (*Engine, error)
	numWorkers int
}

// NewChainPool creates a pool that builds engines with newEngine. The
// constructor must return a fully isolated engine per call (in particular
// a fresh target when the target is stateful). numWorkers ≤ 0 uses one
// worker per CPU.
func NewChainPool(newEngine func(seed int64) (*Engine, error), numWorkers int) *ChainPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &ChainPool{newEngine: newEngine, numWorkers: numWorkers}
}

// Run simulates one chain per seed and returns the results in seed order.
func (cp *ChainPool) Run(seeds []int64) []ChainResult {
	tasks := make(chan chainTask, len(seeds))
	results := make([]ChainResult, len(seeds))

	var wg sync.WaitGroup
	for w := 0; w < cp.numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range tasks {
				results[task.index] = cp.runChain(task)
			}
		}()
	}
	for i, seed := range seeds {
		tasks <- chainTask{index: i, seed: seed}
	}
	close(tasks)
	wg.Wait()

	return results
}

// runChain simulates a single chain. Result slots are disjoint per task,
// so workers write without locking.
func (cp *ChainPool) runChain(task chainTask) ChainResult {
	res := ChainResult{ID: uuid.New(), Seed: task.seed}
	engine, err := cp.newEngine(task.seed)
	if err != nil {
		res.Err = err
		return res
	}
	res.Path, res.Diag, res.Err = engine.Run()
	return res
}
