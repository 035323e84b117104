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

// Package signature maintains bounded per-process behavioral signatures and
// classifies imminent resource spikes from their trend.
package signature

import (
	"github.com/racker/smartsched-agent/protocol"
)

// UpdateEMA computes the next exponential moving average using integer
// arithmetic. Samples and averages are scaled by 100 for precision; the
// division truncates toward zero.
func UpdateEMA(oldEma, sample, alphaPct int) int {
	return (alphaPct*sample + (100-alphaPct)*oldEma) / 100
}

// RateOfChange is the signed difference between consecutive EMA values.
// It may be negative and is never clamped.
func RateOfChange(newEma, oldEma int) int {
	return newEma - oldEma
}

// ClassifySpike reports whether a rate of change crosses the threshold.
// Equality is not a spike.
func ClassifySpike(roc, threshold int) bool {
	return roc > threshold
}

// Thresholds holds the per-metric spike thresholds, in the same x100-scaled
// units as the rate-of-change values.
type Thresholds struct {
	CPU int
	Mem int
	IO  int
}

// Classify recomputes all three spike flags from scratch. Flags are a pure
// function of the current rates, so a quiet sample clears an earlier flag.
func (t Thresholds) Classify(cpuRoc, memRoc, ioRoc int) protocol.SpikeSet {
	return protocol.SpikeSet{
		CPU: ClassifySpike(cpuRoc, t.CPU),
		Mem: ClassifySpike(memRoc, t.Mem),
		IO:  ClassifySpike(ioRoc, t.IO),
	}
}
