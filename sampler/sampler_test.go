//
// Copyright 2017 Rackspace
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS-IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//

package sampler_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/racker/smartsched-agent/protocol"
	"github.com/racker/smartsched-agent/sampler"
)

func TestSampler_Collect(t *testing.T) {
	s := sampler.NewSampler()

	samples, exited, err := s.Collect(context.Background())
	if err != nil {
		t.Skipf("process enumeration unavailable: %v", err)
	}
	require.NotEmpty(t, samples)
	assert.Empty(t, exited, "first collection has nothing to diff against")

	ownPid := uint32(os.Getpid())
	var own *protocol.Sample
	for i := range samples {
		assert.NotZero(t, samples[i].PID)
		assert.NotEmpty(t, samples[i].Name)
		assert.LessOrEqual(t, len(samples[i].Name), protocol.MaxProcessNameLen)
		if samples[i].PID == ownPid {
			own = &samples[i]
		}
	}
	require.NotNil(t, own, "own process missing from sample batch")
	assert.GreaterOrEqual(t, own.CPU, int32(0))
	assert.GreaterOrEqual(t, own.Mem, int32(0))
}

func TestSampler_CollectDiffsExits(t *testing.T) {
	s := sampler.NewSampler()

	if _, _, err := s.Collect(context.Background()); err != nil {
		t.Skipf("process enumeration unavailable: %v", err)
	}

	// Steady state: nothing exited between back-to-back collections except
	// processes that genuinely went away, and nothing currently visible may
	// be reported as exited.
	samples, exited, err := s.Collect(context.Background())
	require.NoError(t, err)

	current := make(map[uint32]struct{}, len(samples))
	for _, smp := range samples {
		current[smp.PID] = struct{}{}
	}
	for _, pid := range exited {
		_, stillVisible := current[pid]
		assert.False(t, stillVisible, "pid %d reported exited while still visible", pid)
	}
}

func TestSampler_CollectCancelled(t *testing.T) {
	s := sampler.NewSampler()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A cancelled context must not wedge collection; either outcome (error or
	// partial batch) is acceptable, it just has to return.
	_, _, _ = s.Collect(ctx)
}
