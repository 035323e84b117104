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

// Package actions applies corrective scheduling adjustments to processes.
// It carries no policy; the response engine decides when and how much.
package actions

// I/O scheduling classes, matching the ioprio_set(2) values used by ionice.
const (
	IOClassNone       = 0
	IOClassRealtime   = 1
	IOClassBestEffort = 2
	IOClassIdle       = 3
)

// Sink receives concrete adjustment requests. Calls may block on syscalls;
// callers should expect that and budget for it in their cycle cadence.
type Sink interface {
	// GetPriority returns the current nice value for pid.
	GetPriority(pid uint32) (int, error)
	// SetPriority sets the scheduling priority (nice value) for pid.
	SetPriority(pid uint32, nice int) error
	// SetIOClass sets the I/O scheduling class and within-class level for pid.
	SetIOClass(pid uint32, class, level int) error
	// SetOOMScore adjusts the out-of-memory kill preference for pid.
	SetOOMScore(pid uint32, score int) error
}
