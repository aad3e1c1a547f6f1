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

// Package config loads the YAML file that selects which module features
// are enabled and which passes run, mirroring the teacher's -config flag
// and sync.Once-cached load pattern.
package config

import (
	"flag"
	"fmt"
	"io/ioutil"
	"sync"

	"sigs.k8s.io/yaml"

	"github.com/wasmopt/localflow/internal/ir"
)

// FlagSet should be reused by any command that wants the -config flag.
var FlagSet flag.FlagSet
var configFile string

func init() {
	FlagSet.StringVar(&configFile, "config", "config.yaml", "path to pass configuration file")
}

// Config selects module features and which passes are enabled.
type Config struct {
	Features ir.FeatureSet `json:"features"`
	Passes   PassSelection `json:"passes"`
}

// PassSelection toggles individual passes independently of the feature
// flags that gate their applicability (e.g. subtyping can be disabled
// even on a GC module, for debugging a regression).
type PassSelection struct {
	DeadStoreElimination bool `json:"deadStoreElimination"`
	LocalSubtyping       bool `json:"localSubtyping"`
}

// Default returns the configuration used when no file is present: every
// pass enabled, no GC features (the conservative baseline a MVP wasm
// module runs under).
func Default() *Config {
	return &Config{
		Passes: PassSelection{
			DeadStoreElimination: true,
			LocalSubtyping:       true,
		},
	}
}

var readFileOnce sync.Once
var readConfigCached *Config
var readConfigCachedErr error

// Read loads and caches the configuration named by the -config flag. A
// missing file is not an error: it falls back to Default().
func Read() (*Config, error) {
	readFileOnce.Do(func() {
		bytes, err := ioutil.ReadFile(configFile)
		if err != nil {
			readConfigCached = Default()
			return
		}

		c := Default()
		if err := yaml.UnmarshalStrict(bytes, c); err != nil {
			readConfigCachedErr = fmt.Errorf("error reading pass config: %w", err)
			return
		}
		readConfigCached = c
	})
	return readConfigCached, readConfigCachedErr
}
