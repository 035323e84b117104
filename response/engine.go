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

// Package response turns spike reports into graduated corrective actions.
//
// The engine is single-threaded by contract: the caller feeds it one report
// at a time and never concurrently, so the tracked-process registry needs no
// locking. Sink calls may block on syscalls; a slow or unavailable sink
// stalls the report cycle, which is acceptable at the 500ms report cadence
// but worth remembering when pointing the engine at anything slower.
package response

import (
	log "github.com/sirupsen/logrus"

	"github.com/racker/smartsched-agent/actions"
	"github.com/racker/smartsched-agent/config"
	"github.com/racker/smartsched-agent/protocol"
	"github.com/racker/smartsched-agent/utils"
)

const criticalOOMScore = 500

// TrackedProcess is the per-pid response state. Independent of the signature
// registry; the engine only ever sees derived spike reports.
type TrackedProcess struct {
	PID  uint32
	Name string

	// BaselineNice is captured the first time the pid is seen and is what
	// restoration returns the process to.
	BaselineNice int
	CurrentNice  int

	Adjusted    bool
	IOAdjusted  bool
	OOMAdjusted bool

	AdjustedAt int64
	LastSeenAt int64

	// Cooldowns run from the last attempted action per category, successful
	// or not, so a failing sink cannot cause a retry storm.
	lastCPUActionAt int64
	lastIOActionAt  int64

	ActiveSpikes      protocol.SpikeSet
	ConsecutiveSpikes int
	Level             Level
	ActionsTaken      int
}

// Stats are lifetime counters for operator summaries.
type Stats struct {
	CPUAdvisories  int
	MemAdvisories  int
	IOAdvisories   int
	CPUBoosts      int
	IOBoosts       int
	MemAlerts      int
	OOMAdjustments int
	Restorations   int
	Escalations    int
	FailedActions  int
	DroppedPids    int
}

// Engine consumes spike reports and runs the escalation, cooldown, and
// restoration state machine.
type Engine struct {
	sink actions.Sink

	cooldownMillis    int64
	restorationMillis int64
	maxTracked        int

	tracked map[uint32]*TrackedProcess
	stats   Stats
}

func NewEngine(cfg *config.Config, sink actions.Sink) *Engine {
	return &Engine{
		sink:              sink,
		cooldownMillis:    cfg.Cooldown.Milliseconds(),
		restorationMillis: cfg.RestorationWindow.Milliseconds(),
		maxTracked:        cfg.MaxAdjusted,
		tracked:           make(map[uint32]*TrackedProcess),
	}
}

// ProcessReport runs one full response cycle: spike intake and dispatch for
// every flagged entry, then the restoration sweep.
func (e *Engine) ProcessReport(report *protocol.SpikeReport) {
	now := utils.NowTimestampMillis()

	for i := range report.Entries {
		entry := &report.Entries[i]
		if !entry.Flags.Any() {
			continue
		}

		p := e.intake(entry, now)
		if p == nil {
			continue
		}

		// Each spiking resource dispatches independently; a pid with both
		// CPU and MEM spikes runs both branches.
		if entry.Flags.CPU {
			e.handleCPUSpike(p, entry.CPURoc, now)
		}
		if entry.Flags.Mem {
			e.handleMemSpike(p, entry.MemRoc, now)
		}
		if entry.Flags.IO {
			e.handleIOSpike(p, entry.IORoc, now)
		}
	}

	e.restoreQuiet(now)
}

// intake looks up or creates the tracked entry for a spiking pid and
// advances its consecutive-spike counter and level once per report.
func (e *Engine) intake(entry *protocol.ReportEntry, now int64) *TrackedProcess {
	p, ok := e.tracked[entry.PID]
	if !ok {
		if len(e.tracked) >= e.maxTracked {
			e.stats.DroppedPids++
			log.WithFields(log.Fields{
				"pid":  entry.PID,
				"name": entry.Name,
			}).Debug("Tracked-process registry full, dropping spiking pid")
			return nil
		}

		baseline := 0
		if nice, err := e.sink.GetPriority(entry.PID); err == nil {
			baseline = nice
		}
		p = &TrackedProcess{
			PID:          entry.PID,
			Name:         entry.Name,
			BaselineNice: baseline,
			CurrentNice:  baseline,
		}
		e.tracked[entry.PID] = p
	}

	p.ConsecutiveSpikes++
	p.ActiveSpikes = entry.Flags
	p.LastSeenAt = now

	prior := p.Level
	p.Level = LevelFor(p.ConsecutiveSpikes)
	if p.Level >= LevelHard && p.Level > prior {
		e.stats.Escalations++
		log.WithFields(log.Fields{
			"pid":     p.PID,
			"name":    p.Name,
			"level":   p.Level.String(),
			"samples": p.ConsecutiveSpikes,
			"spikes":  p.ActiveSpikes.String(),
		}).Warn("Escalating response level")
	}

	return p
}

func (e *Engine) handleCPUSpike(p *TrackedProcess, roc int, now int64) {
	logger := log.WithFields(log.Fields{
		"pid":     p.PID,
		"name":    p.Name,
		"roc":     roc,
		"samples": p.ConsecutiveSpikes,
		"level":   p.Level.String(),
	})

	if p.Level <= LevelAdvisory {
		logger.Info("CPU spike advisory")
		e.stats.CPUAdvisories++
		return
	}

	if now-p.lastCPUActionAt < e.cooldownMillis {
		return
	}
	p.lastCPUActionAt = now

	nice := niceBoostFor(p.Level)
	if err := e.sink.SetPriority(p.PID, nice); err != nil {
		e.stats.FailedActions++
		logger.WithError(err).Warn("Priority boost failed")
		return
	}

	p.CurrentNice = nice
	p.Adjusted = true
	p.AdjustedAt = now
	p.ActionsTaken++
	e.stats.CPUBoosts++
	logger.WithField("nice", nice).Info("Boosted scheduling priority")
}

// handleMemSpike stays advisory at low severity; forcibly limiting memory
// can destabilize a process, so actions only start at HARD.
func (e *Engine) handleMemSpike(p *TrackedProcess, roc int, now int64) {
	logger := log.WithFields(log.Fields{
		"pid":     p.PID,
		"name":    p.Name,
		"roc":     roc,
		"samples": p.ConsecutiveSpikes,
		"level":   p.Level.String(),
	})

	switch {
	case p.Level <= LevelAdvisory:
		logger.Info("Memory spike advisory")
		e.stats.MemAdvisories++
	case p.Level == LevelSoft:
		logger.Warn("Elevated memory spike, consider memory limits")
		e.stats.MemAdvisories++
	default:
		logger.Warn("Memory pressure alert")
		e.stats.MemAlerts++

		if p.Level >= LevelCritical && !p.OOMAdjusted {
			if err := e.sink.SetOOMScore(p.PID, criticalOOMScore); err != nil {
				e.stats.FailedActions++
				logger.WithError(err).Warn("OOM score adjustment failed")
				return
			}
			p.OOMAdjusted = true
			p.ActionsTaken++
			e.stats.OOMAdjustments++
			logger.WithField("score", criticalOOMScore).Warn("Marked as preferred reclaim candidate")
		}
	}
}

func (e *Engine) handleIOSpike(p *TrackedProcess, roc int, now int64) {
	logger := log.WithFields(log.Fields{
		"pid":     p.PID,
		"name":    p.Name,
		"roc":     roc,
		"samples": p.ConsecutiveSpikes,
		"level":   p.Level.String(),
	})

	if p.Level <= LevelAdvisory {
		logger.Info("I/O spike advisory")
		e.stats.IOAdvisories++
		return
	}

	if now-p.lastIOActionAt < e.cooldownMillis {
		return
	}
	p.lastIOActionAt = now

	class, classLevel := ioBoostFor(p.Level)
	if err := e.sink.SetIOClass(p.PID, class, classLevel); err != nil {
		e.stats.FailedActions++
		logger.WithError(err).Warn("I/O class adjustment failed")
		return
	}

	p.IOAdjusted = true
	p.Adjusted = true
	p.AdjustedAt = now
	p.ActionsTaken++
	e.stats.IOBoosts++
	logger.WithFields(log.Fields{
		"class":      class,
		"classLevel": classLevel,
	}).Info("Boosted I/O priority")
}

// restoreQuiet reverts any adjusted process that has been absent from spike
// reports for longer than the restoration window. Absence from a single
// report is not enough; an oscillating process stays adjusted until it has
// been genuinely quiet for the window.
func (e *Engine) restoreQuiet(now int64) {
	for _, p := range e.tracked {
		if !p.Adjusted && !p.OOMAdjusted {
			continue
		}
		if now-p.LastSeenAt <= e.restorationMillis {
			continue
		}
		e.restore(p, now)
	}
}

// restore puts one process back at its baseline. On any sink failure the
// adjusted state is left intact so the next sweep retries.
func (e *Engine) restore(p *TrackedProcess, now int64) {
	logger := log.WithFields(log.Fields{
		"pid":       p.PID,
		"name":      p.Name,
		"baseline":  p.BaselineNice,
		"quietSecs": (now - p.LastSeenAt) / 1000,
	})

	if p.Adjusted {
		if err := e.sink.SetPriority(p.PID, p.BaselineNice); err != nil {
			e.stats.FailedActions++
			logger.WithError(err).Warn("Priority restoration failed")
			return
		}
	}
	if p.IOAdjusted {
		if err := e.sink.SetIOClass(p.PID, actions.IOClassNone, 0); err != nil {
			e.stats.FailedActions++
			logger.WithError(err).Warn("I/O class restoration failed")
			return
		}
		p.IOAdjusted = false
	}
	if p.OOMAdjusted {
		if err := e.sink.SetOOMScore(p.PID, 0); err != nil {
			e.stats.FailedActions++
			logger.WithError(err).Warn("OOM score restoration failed")
			return
		}
		p.OOMAdjusted = false
	}

	p.Adjusted = false
	p.CurrentNice = p.BaselineNice
	p.ConsecutiveSpikes = 0
	p.Level = LevelNone
	e.stats.Restorations++
	logger.Info("Restored baseline priority")
}

// HandleExit force-restores and forgets an exited pid, bypassing cooldown.
// Restoration failures are expected here since the process is already gone.
func (e *Engine) HandleExit(pid uint32) {
	p, ok := e.tracked[pid]
	if !ok {
		return
	}
	if p.Adjusted || p.OOMAdjusted {
		// best effort; the pid may already be unusable
		if p.Adjusted {
			_ = e.sink.SetPriority(p.PID, p.BaselineNice)
		}
		if p.IOAdjusted {
			_ = e.sink.SetIOClass(p.PID, actions.IOClassNone, 0)
		}
		if p.OOMAdjusted {
			_ = e.sink.SetOOMScore(p.PID, 0)
		}
	}
	delete(e.tracked, pid)
}

// PruneStale drops unadjusted entries not seen for maxAgeMillis. They are
// historical record only, so pruning them is purely a memory bound.
func (e *Engine) PruneStale(maxAgeMillis int64) int {
	now := utils.NowTimestampMillis()
	pruned := 0
	for pid, p := range e.tracked {
		if p.Adjusted || p.OOMAdjusted {
			continue
		}
		if now-p.LastSeenAt > maxAgeMillis {
			delete(e.tracked, pid)
			pruned++
		}
	}
	return pruned
}

// Tracked returns the state for one pid, or nil.
func (e *Engine) Tracked(pid uint32) *TrackedProcess {
	return e.tracked[pid]
}

// TrackedCount reports the tracked-registry size.
func (e *Engine) TrackedCount() int {
	return len(e.tracked)
}

// Stats returns a copy of the lifetime counters.
func (e *Engine) Stats() Stats {
	return e.stats
}
