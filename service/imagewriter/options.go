// Copyright 2025 DoRobot Labs
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy of
// the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations under
// the License.

package imagewriter

// Config is the configuration of the image writer pool.
type Config struct {
	Workers int
}

// DefaultConfig is the default configuration for the image writer pool.
var DefaultConfig = Config{
	Workers: 4,
}

// Option is an option that can be given to the pool's constructor to change
// its configuration.
type Option func(*Config)

// WithWorkers sets the number of concurrent encoding workers.
func WithWorkers(workers int) Option {
	return func(cfg *Config) {
		cfg.Workers = workers
	}
}
