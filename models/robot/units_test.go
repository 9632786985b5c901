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

package robot

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitScale(t *testing.T) {
	t.Run("nominal case", func(t *testing.T) {
		t.Parallel()

		scale, err := UnitScale(UnitRadians, UnitMilliDegrees)
		require.NoError(t, err)
		assert.InDelta(t, 1000*180/math.Pi, scale, 1e-9)
	})

	t.Run("identical units scale by one", func(t *testing.T) {
		t.Parallel()

		scale, err := UnitScale(UnitRange0To100, UnitRange0To100)
		require.NoError(t, err)
		assert.Equal(t, 1.0, scale)
	})

	t.Run("range units have no universal scale", func(t *testing.T) {
		t.Parallel()

		_, err := UnitScale(UnitRange0To100, UnitDegrees)
		assert.Error(t, err)

		_, err = UnitScale(UnitDegrees, UnitRawUnits)
		assert.Error(t, err)
	})
}

func TestConvertVector(t *testing.T) {
	t.Run("nominal case", func(t *testing.T) {
		t.Parallel()

		converted, err := ConvertVector([]float64{0, math.Pi / 2, -math.Pi}, UnitRadians, UnitDegrees)
		require.NoError(t, err)
		require.Len(t, converted, 3)
		assert.InDelta(t, 0, converted[0], 1e-9)
		assert.InDelta(t, 90, converted[1], 1e-9)
		assert.InDelta(t, -180, converted[2], 1e-9)
	})

	t.Run("round trip restores the original vector", func(t *testing.T) {
		t.Parallel()

		original := []float64{0.1, -1.5, 3.04, 0}
		there, err := ConvertVector(original, UnitRadians, UnitMilliDegrees)
		require.NoError(t, err)
		back, err := ConvertVector(there, UnitMilliDegrees, UnitRadians)
		require.NoError(t, err)

		require.Len(t, back, len(original))
		for i := range original {
			assert.InDelta(t, original[i], back[i], 1e-9)
		}
	})

	t.Run("unscalable units are rejected", func(t *testing.T) {
		t.Parallel()

		_, err := ConvertVector([]float64{1}, UnitRawUnits, UnitDegrees)
		assert.Error(t, err)
	})
}

func TestBusSpecValidate(t *testing.T) {
	t.Run("nominal case", func(t *testing.T) {
		t.Parallel()

		assert.NoError(t, DefaultLeaderSpec().Validate())
		assert.NoError(t, DefaultFollowerSpec().Validate())
	})

	t.Run("mixed units are rejected", func(t *testing.T) {
		t.Parallel()

		spec := DefaultLeaderSpec()
		spec.Joints[len(spec.Joints)-1].Unit = UnitDegrees

		err := spec.Validate()
		require.ErrorIs(t, err, ErrConfigInvalid)
		assert.Contains(t, err.Error(), "mixes units")
	})

	t.Run("empty bus is rejected", func(t *testing.T) {
		t.Parallel()

		spec := BusSpec{Name: "empty"}
		assert.ErrorIs(t, spec.Validate(), ErrConfigInvalid)
	})

	t.Run("invalid direction sign is rejected", func(t *testing.T) {
		t.Parallel()

		spec := DefaultFollowerSpec()
		spec.Joints[0].Sign = 0
		assert.ErrorIs(t, spec.Validate(), ErrConfigInvalid)
	})
}
