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

package supervisor

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/process"
)

// killLingering terminates every process whose command line matches the
// given marker, except this process itself. A previous session that died
// without cleanup would otherwise still hold the serial devices.
func killLingering(log zerolog.Logger, marker string, grace time.Duration) {

	victims := findByMarker(marker)
	if len(victims) == 0 {
		return
	}

	for _, victim := range victims {
		log.Warn().Int32("pid", victim.Pid).Msg("terminating lingering node process")
		_ = victim.Terminate()
	}

	deadline := time.Now().Add(grace)
	for time.Now().Before(deadline) {
		if len(findByMarker(marker)) == 0 {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}

	for _, victim := range findByMarker(marker) {
		log.Warn().Int32("pid", victim.Pid).Msg("killing lingering node process")
		_ = victim.Kill()
	}
}

func findByMarker(marker string) []*process.Process {

	self := int32(os.Getpid())

	processes, err := process.Processes()
	if err != nil {
		return nil
	}

	var matched []*process.Process
	for _, proc := range processes {
		if proc.Pid == self {
			continue
		}
		cmdline, err := proc.Cmdline()
		if err != nil || cmdline == "" {
			continue
		}
		if strings.Contains(cmdline, marker) {
			matched = append(matched, proc)
		}
	}

	return matched
}

// waitForFiles polls until every path exists or the timeout elapses.
func waitForFiles(paths []string, timeout time.Duration) bool {

	deadline := time.Now().Add(timeout)
	for {
		missing := false
		for _, path := range paths {
			_, err := os.Stat(path)
			if err != nil {
				missing = true
				break
			}
		}
		if !missing {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(100 * time.Millisecond)
	}
}

// removeFiles deletes the given paths, ignoring files already gone.
func removeFiles(paths []string) {
	for _, path := range paths {
		_ = os.Remove(path)
	}
}
