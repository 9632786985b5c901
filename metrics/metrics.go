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

// Package metrics defines how the capture suite surfaces its runtime
// statistics: collectors accumulate counters and timers, and an output
// component periodically dumps them into the structured log.
package metrics

import (
	"github.com/rs/zerolog"
)

// Collector is anything that can dump its accumulated metrics into a log.
type Collector interface {
	Output(log zerolog.Logger)
}
