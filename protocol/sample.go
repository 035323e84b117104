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

// Package protocol declares the data shapes exchanged between the sampling
// source, the signature registry, the response engine, and the action sink.
package protocol

const (
	// MaxProcessNameLen bounds the short display name carried with samples,
	// matching the kernel's task comm length.
	MaxProcessNameLen = 15
)

// Sample is one periodic observation of a process. The cpu, mem, and io
// values are integer-scaled by the producer; the registry treats them as
// opaque magnitudes.
type Sample struct {
	PID  uint32 `json:"pid"`
	Name string `json:"name"`
	CPU  int32  `json:"cpu"`
	Mem  int32  `json:"mem"`
	IO   int32  `json:"io"`
}

// TruncateName trims a process name down to MaxProcessNameLen.
func TruncateName(name string) string {
	if len(name) > MaxProcessNameLen {
		return name[:MaxProcessNameLen]
	}
	return name
}

const (
	EventSample = "sample"
	EventExit   = "exit"
)

// ProcEvent wraps either a sample or an exit notification for a pid.
type ProcEvent struct {
	Type   string  `json:"type"`
	PID    uint32  `json:"pid"`
	Sample *Sample `json:"sample,omitempty"`
}
