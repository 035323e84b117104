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

package protocol

import (
	"encoding/json"
	"strings"
)

// ReportVersion identifies the spike report frame layout. Consumers should
// ignore frames with a version they do not understand.
const ReportVersion = "1"

// SpikeSet is the set of resource dimensions that spiked for a process.
// It replaces raw bitfield flags so that classification stays type-checked.
type SpikeSet struct {
	CPU bool `json:"cpu"`
	Mem bool `json:"mem"`
	IO  bool `json:"io"`
}

// Any reports whether at least one dimension spiked.
func (s SpikeSet) Any() bool {
	return s.CPU || s.Mem || s.IO
}

// Merge folds another set into this one and returns the union.
func (s SpikeSet) Merge(other SpikeSet) SpikeSet {
	return SpikeSet{
		CPU: s.CPU || other.CPU,
		Mem: s.Mem || other.Mem,
		IO:  s.IO || other.IO,
	}
}

func (s SpikeSet) String() string {
	parts := make([]string, 0, 3)
	if s.CPU {
		parts = append(parts, "CPU")
	}
	if s.Mem {
		parts = append(parts, "MEM")
	}
	if s.IO {
		parts = append(parts, "I/O")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "+")
}

// ReportEntry carries the derived statistics and spike flags for one process.
type ReportEntry struct {
	PID    uint32   `json:"pid"`
	Name   string   `json:"name"`
	CPUEma int      `json:"cpu_ema"`
	MemEma int      `json:"mem_ema"`
	IOEma  int      `json:"io_ema"`
	CPURoc int      `json:"cpu_roc"`
	MemRoc int      `json:"mem_roc"`
	IORoc  int      `json:"io_roc"`
	Flags  SpikeSet `json:"flags"`
}

// SpikeReport is the registry snapshot handed to the response engine and any
// downstream consumers. Entry order is stable within one report but otherwise
// unspecified.
type SpikeReport struct {
	Version   string        `json:"v"`
	GUID      string        `json:"guid,omitempty"`
	Timestamp int64         `json:"timestamp"`
	Entries   []ReportEntry `json:"entries"`
}

// Encode renders the report as a single JSON line.
func (r *SpikeReport) Encode() ([]byte, error) {
	return json.Marshal(r)
}

// DecodeReport parses a report frame previously produced by Encode.
func DecodeReport(data []byte) (*SpikeReport, error) {
	report := &SpikeReport{}
	if err := json.Unmarshal(data, report); err != nil {
		return nil, err
	}
	return report, nil
}
