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

package signature

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/racker/smartsched-agent/protocol"
	"github.com/racker/smartsched-agent/utils"
)

// ErrCapacityExceeded is returned by Upsert when a previously-unseen pid
// arrives while the registry is full. The sample is dropped and no partial
// state is created; callers must tolerate this silently since existing
// processes keep being tracked.
var ErrCapacityExceeded = errors.New("signature registry is at capacity")

// processSignature is the per-pid rolling state. It is owned exclusively by
// the registry and only leaves it as a Snapshot copy.
type processSignature struct {
	pid  uint32
	name string

	cpuEma, memEma, ioEma    int
	cpuPrev, memPrev, ioPrev int
	cpuRoc, memRoc, ioRoc    int

	flags protocol.SpikeSet

	createdAt    int64
	lastUpdateAt int64

	samplesSeen uint64
	cpuSpikes   uint64
	memSpikes   uint64
	ioSpikes    uint64
}

// Snapshot is an immutable copy of one signature, safe to hand to readers.
type Snapshot struct {
	PID  uint32
	Name string

	CPUEma, MemEma, IOEma    int
	CPUPrev, MemPrev, IOPrev int
	CPURoc, MemRoc, IORoc    int

	Flags protocol.SpikeSet

	CreatedAt    int64
	LastUpdateAt int64

	SamplesSeen uint64
	CPUSpikes   uint64
	MemSpikes   uint64
	IOSpikes    uint64
}

// Registry is a bounded mapping from pid to process signature. Sampling
// producers may call Upsert concurrently from multiple goroutines while a
// reader takes SnapshotAll; a single coarse mutex makes each per-pid update
// atomic and each snapshot a consistent point-in-time view. Pids created or
// removed while a snapshot is being assembled are either wholly included or
// wholly absent, never half-updated.
type Registry struct {
	mu         sync.Mutex
	signatures map[uint32]*processSignature

	capacity   int
	alphaPct   int
	thresholds Thresholds

	totalPredictions int64
}

func NewRegistry(alphaPct int, thresholds Thresholds, capacity int) *Registry {
	return &Registry{
		signatures: make(map[uint32]*processSignature),
		capacity:   capacity,
		alphaPct:   alphaPct,
		thresholds: thresholds,
	}
}

// Upsert folds one sample into the signature for sample.PID, creating the
// signature if the pid is new and capacity allows. The returned snapshot
// reflects the committed post-update state.
func (r *Registry) Upsert(sample protocol.Sample) (Snapshot, error) {
	now := utils.NowTimestampMillis()

	r.mu.Lock()
	defer r.mu.Unlock()

	sig, ok := r.signatures[sample.PID]
	if !ok {
		if len(r.signatures) >= r.capacity {
			return Snapshot{}, ErrCapacityExceeded
		}
		sig = &processSignature{
			pid:       sample.PID,
			name:      protocol.TruncateName(sample.Name),
			createdAt: now,
		}
		r.signatures[sample.PID] = sig
	} else if sample.Name != "" {
		// comm can change on exec; keep the freshest best-effort name
		sig.name = protocol.TruncateName(sample.Name)
	}

	r.update(sig, sample, now)
	return snapshotOf(sig), nil
}

// update recomputes EMA, rate-of-change, and spike flags for one sample.
// Caller holds r.mu.
func (r *Registry) update(sig *processSignature, sample protocol.Sample, now int64) {
	sig.cpuPrev = sig.cpuEma
	sig.memPrev = sig.memEma
	sig.ioPrev = sig.ioEma

	sig.cpuEma = UpdateEMA(sig.cpuEma, int(sample.CPU), r.alphaPct)
	sig.memEma = UpdateEMA(sig.memEma, int(sample.Mem), r.alphaPct)
	sig.ioEma = UpdateEMA(sig.ioEma, int(sample.IO), r.alphaPct)

	sig.cpuRoc = RateOfChange(sig.cpuEma, sig.cpuPrev)
	sig.memRoc = RateOfChange(sig.memEma, sig.memPrev)
	sig.ioRoc = RateOfChange(sig.ioEma, sig.ioPrev)

	sig.flags = r.thresholds.Classify(sig.cpuRoc, sig.memRoc, sig.ioRoc)

	if sig.flags.CPU {
		sig.cpuSpikes++
		atomic.AddInt64(&r.totalPredictions, 1)
	}
	if sig.flags.Mem {
		sig.memSpikes++
		atomic.AddInt64(&r.totalPredictions, 1)
	}
	if sig.flags.IO {
		sig.ioSpikes++
		atomic.AddInt64(&r.totalPredictions, 1)
	}

	sig.samplesSeen++
	sig.lastUpdateAt = now
}

// Remove deletes the signature for pid. It is a no-op when the pid is not
// tracked. It must be called on process-exit notifications to bound memory.
func (r *Registry) Remove(pid uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.signatures, pid)
}

// SnapshotAll returns a copy of every signature as it existed at one instant.
// Order is unspecified but no entry is duplicated or skipped within a call.
func (r *Registry) SnapshotAll() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshots := make([]Snapshot, 0, len(r.signatures))
	for _, sig := range r.signatures {
		snapshots = append(snapshots, snapshotOf(sig))
	}
	return snapshots
}

// Len reports how many processes are currently tracked.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.signatures)
}

// TotalPredictions is the lifetime count of spike flags raised.
func (r *Registry) TotalPredictions() int64 {
	return atomic.LoadInt64(&r.totalPredictions)
}

func snapshotOf(sig *processSignature) Snapshot {
	return Snapshot{
		PID:          sig.pid,
		Name:         sig.name,
		CPUEma:       sig.cpuEma,
		MemEma:       sig.memEma,
		IOEma:        sig.ioEma,
		CPUPrev:      sig.cpuPrev,
		MemPrev:      sig.memPrev,
		IOPrev:       sig.ioPrev,
		CPURoc:       sig.cpuRoc,
		MemRoc:       sig.memRoc,
		IORoc:        sig.ioRoc,
		Flags:        sig.flags,
		CreatedAt:    sig.createdAt,
		LastUpdateAt: sig.lastUpdateAt,
		SamplesSeen:  sig.samplesSeen,
		CPUSpikes:    sig.cpuSpikes,
		MemSpikes:    sig.memSpikes,
		IOSpikes:     sig.ioSpikes,
	}
}
