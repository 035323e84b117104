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

// Package sampler produces periodic per-process resource samples. It is the
// agent's sample source; the signature registry does not care where samples
// come from.
package sampler

import (
	"context"
	"math"

	"github.com/shirou/gopsutil/v3/process"
	log "github.com/sirupsen/logrus"

	"github.com/racker/smartsched-agent/protocol"
)

// Sampler collects one batch of samples per call and synthesizes exit
// notifications by diffing the visible pid set against the previous batch.
// Not safe for concurrent use; drive it from a single loop.
type Sampler struct {
	seen map[uint32]struct{}
}

func NewSampler() *Sampler {
	return &Sampler{
		seen: make(map[uint32]struct{}),
	}
}

// Collect returns the samples for currently visible processes and the pids
// that disappeared since the previous call. An enumeration failure is
// returned as-is so the caller can treat the cycle as idle; per-process read
// failures just skip that process (it will surface as exited on the next
// diff if it is really gone).
func (s *Sampler) Collect(ctx context.Context) ([]protocol.Sample, []uint32, error) {
	pids, err := process.PidsWithContext(ctx)
	if err != nil {
		return nil, nil, err
	}

	samples := make([]protocol.Sample, 0, len(pids))
	current := make(map[uint32]struct{}, len(pids))

	for _, pid := range pids {
		if pid <= 0 {
			continue
		}
		smp, ok := s.sampleOne(ctx, pid)
		if !ok {
			continue
		}
		samples = append(samples, smp)
		current[smp.PID] = struct{}{}
	}

	exited := make([]uint32, 0)
	for pid := range s.seen {
		if _, ok := current[pid]; !ok {
			exited = append(exited, pid)
		}
	}
	s.seen = current

	return samples, exited, nil
}

func (s *Sampler) sampleOne(ctx context.Context, pid int32) (protocol.Sample, bool) {
	pr, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return protocol.Sample{}, false
	}

	name, err := pr.NameWithContext(ctx)
	if err != nil {
		// most likely exited between enumeration and read
		return protocol.Sample{}, false
	}

	smp := protocol.Sample{
		PID:  uint32(pid),
		Name: protocol.TruncateName(name),
	}

	// Metric reads are best-effort: a metric that cannot be read samples as
	// zero rather than dropping the whole process.
	if cpuPct, err := pr.CPUPercentWithContext(ctx); err == nil {
		smp.CPU = scaleSample(cpuPct * 100)
	}
	if memPct, err := pr.MemoryPercentWithContext(ctx); err == nil {
		smp.Mem = scaleSample(float64(memPct) * 100)
	} else {
		log.WithField("pid", pid).Trace("Memory sample unavailable")
	}
	if io, err := pr.IOCountersWithContext(ctx); err == nil {
		smp.IO = scaleSample(float64((io.ReadBytes + io.WriteBytes) / 1024))
	}

	return smp, true
}

func scaleSample(v float64) int32 {
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	if v < 0 {
		return 0
	}
	return int32(v)
}
