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

// Command localflow-opt wires the configuration loader and the pass
// registry together and runs the enabled passes over a module,
// function-parallel. It mirrors the teacher's singlechecker.Main
// one-liner (cmd/levee), but this module has no binary-format decoder
// of its own (out of scope, per the data-model notes in SPEC_FULL.md):
// Load is a seam a wasm frontend is expected to fill in.
package main

import (
	"errors"
	"log"
	"os"

	"github.com/wasmopt/localflow/internal/config"
	"github.com/wasmopt/localflow/internal/ir"
	"github.com/wasmopt/localflow/pkg/passes"
)

// errNoLoader is returned by the default Load: this command has nothing
// to decode wasm bytes with, only somewhere for a real frontend to plug
// one in.
var errNoLoader = errors.New("localflow-opt: no module loader registered; Load must be set by a wasm frontend")

// Load decodes the module to optimize. Replaced by a real frontend at
// link time or in a wrapper main; the default always fails.
var Load func(path string) (*ir.Module, error) = func(path string) (*ir.Module, error) {
	return nil, errNoLoader
}

func main() {
	if err := config.FlagSet.Parse(os.Args[1:]); err != nil {
		log.Fatalf("parsing flags: %v", err)
	}

	cfg, err := config.Read()
	if err != nil {
		log.Fatalf("loading configuration: %v", err)
	}

	path := config.FlagSet.Arg(0)
	mod, err := Load(path)
	if err != nil {
		log.Fatalf("loading module %q: %v", path, err)
	}
	mod.Features = cfg.Features

	results := passes.RunFunctionParallel(mod, passes.Selected(cfg.Passes), 0)
	for _, r := range passes.StableOrder(results) {
		if r.Err != nil {
			log.Printf("%s: error: %v", r.Function.Name, r.Err)
			continue
		}
		log.Printf("%s: %+v", r.Function.Name, r.Results)
	}
}
