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

package response

import (
	"github.com/racker/smartsched-agent/actions"
)

// Level is the graduated severity of a process's spiking behavior.
type Level int

const (
	LevelNone Level = iota
	LevelAdvisory
	LevelSoft
	LevelHard
	LevelCritical
)

func (l Level) String() string {
	switch l {
	case LevelAdvisory:
		return "ADVISORY"
	case LevelSoft:
		return "SOFT"
	case LevelHard:
		return "HARD"
	case LevelCritical:
		return "CRITICAL"
	default:
		return "NONE"
	}
}

// LevelFor derives the escalation level from the number of consecutive
// reports in which a process spiked. It is a pure function so that level
// assignment stays predictable under test.
func LevelFor(consecutiveSpikes int) Level {
	switch {
	case consecutiveSpikes <= 0:
		return LevelNone
	case consecutiveSpikes <= 2:
		return LevelAdvisory
	case consecutiveSpikes <= 5:
		return LevelSoft
	case consecutiveSpikes <= 10:
		return LevelHard
	default:
		return LevelCritical
	}
}

// niceBoostFor maps a level to the nice value requested for CPU offenders.
// More negative means higher scheduling priority.
func niceBoostFor(level Level) int {
	switch {
	case level >= LevelCritical:
		return -15
	case level >= LevelHard:
		return -10
	default:
		return -5
	}
}

// ioBoostFor maps a level to the requested I/O class and level. Best-effort
// at SOFT, realtime once the spike persists.
func ioBoostFor(level Level) (class, classLevel int) {
	if level >= LevelHard {
		return actions.IOClassRealtime, 4
	}
	return actions.IOClassBestEffort, 0
}
