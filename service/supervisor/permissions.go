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
	"fmt"
	"os"

	"github.com/hashicorp/go-multierror"

	"github.com/dorobot/teleop-capture/models/robot"
)

// requiredMode is the access every device file must grant: read and write
// for everyone, so the capture suite runs without root.
const requiredMode = os.FileMode(0o006)

// CheckDevices verifies that every device file exists and is operator
// accessible. The returned error names each offending device together
// with the exact command that fixes it, so the operator never has to
// guess.
func CheckDevices(devices []string) error {

	var result *multierror.Error
	for _, device := range devices {

		info, err := os.Stat(device)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%w: %s not found", robot.ErrPermissionMissing, device))
			continue
		}

		if info.Mode().Perm()&requiredMode != requiredMode {
			result = multierror.Append(result, fmt.Errorf("%w: %s is not accessible, run: sudo chmod a+rw %s",
				robot.ErrPermissionMissing, device, device))
		}
	}

	return result.ErrorOrNil()
}
