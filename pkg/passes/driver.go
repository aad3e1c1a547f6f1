// Copyright 2020 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package passes

import (
	"runtime"
	"sync"

	"github.com/sasha-s/go-deadlock"
	"golang.org/x/exp/slices"

	"github.com/wasmopt/localflow/internal/ir"
)

// FunctionResult carries the outcome of running a set of passes over a
// single function.
type FunctionResult struct {
	Function *ir.Function
	Results  map[*Pass]interface{}
	Err      error
}

// RunFunctionParallel runs passes over every function in mod on a
// bounded worker pool, one goroutine per in-flight function, with no
// suspension points within a function's own pass chain — each
// function's passes run start-to-finish on whichever worker claims it,
// matching the per-function independence the dataflow core assumes
// (spec's concurrency model: functions never share mutable IR).
//
// workers <= 0 defaults to GOMAXPROCS. deadlock.Mutex (rather than
// sync.Mutex) guards the shared results slice so that a misuse that
// would deadlock a parallel optimizer run is reported immediately
// instead of hanging a build.
func RunFunctionParallel(mod *ir.Module, passes []*Pass, workers int) []FunctionResult {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(mod.Functions) {
		workers = len(mod.Functions)
	}
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan *ir.Function)
	results := make([]FunctionResult, len(mod.Functions))
	indexOf := make(map[*ir.Function]int, len(mod.Functions))
	for i, fn := range mod.Functions {
		indexOf[fn] = i
	}

	var mu deadlock.Mutex
	var wg sync.WaitGroup
	wg.Add(workers)

	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for fn := range jobs {
				done := map[*Pass]bool{}
				resultsForFn := map[*Pass]interface{}{}

				var runErr error
				for _, p := range passes {
					if err := run(p, fn, mod.Features, done, resultsForFn); err != nil {
						runErr = err
						break
					}
				}

				mu.Lock()
				results[indexOf[fn]] = FunctionResult{Function: fn, Results: resultsForFn, Err: runErr}
				mu.Unlock()
			}
		}()
	}

	for _, fn := range mod.Functions {
		jobs <- fn
	}
	close(jobs)
	wg.Wait()

	return results
}

// StableOrder returns results sorted by function name, for callers (CLI
// output, golden-file tests) that need deterministic ordering even
// though the pool above completes functions in whatever order the
// scheduler happens to finish them.
func StableOrder(results []FunctionResult) []FunctionResult {
	out := slices.Clone(results)
	slices.SortFunc(out, func(a, b FunctionResult) bool {
		return a.Function.Name < b.Function.Name
	})
	return out
}
