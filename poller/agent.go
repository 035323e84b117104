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

// Package poller wires the sampling source, the signature registry, the
// response engine, and the action sink into the agent's periodic cycles.
package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/racker/smartsched-agent/actions"
	"github.com/racker/smartsched-agent/config"
	"github.com/racker/smartsched-agent/protocol"
	"github.com/racker/smartsched-agent/response"
	"github.com/racker/smartsched-agent/sampler"
	"github.com/racker/smartsched-agent/signature"
	"github.com/racker/smartsched-agent/utils"
)

const (
	// exitQueueDepth bounds the sample-loop to response-loop exit channel.
	exitQueueDepth = 1024

	pruneInterval = time.Minute
	pruneMaxAge   = 10 * time.Minute
)

// Agent owns the two periodic cycles:
//
//	sample loop:  sampler -> registry.Upsert / registry.Remove  (SampleInterval)
//	report loop:  registry.SnapshotAll -> engine.ProcessReport  (ReportInterval)
//
// The registry tolerates concurrent writers; the engine is only ever touched
// by the report loop goroutine, which also drains exit notifications. Both
// loops check for cancellation between cycles, never mid-update, so shutdown
// leaves no partially applied state. A blocking sink call stalls the report
// cycle; at the default cadence that is acceptable but a slow or
// permission-denied sink is the backpressure point to watch.
type Agent struct {
	cfg      *config.Config
	registry *signature.Registry
	engine   *response.Engine
	source   *sampler.Sampler
	exporter *ReportWriter

	exits chan uint32
}

func NewAgent(cfg *config.Config, sink actions.Sink) (*Agent, error) {
	thresholds := signature.Thresholds{
		CPU: cfg.CPUThreshold,
		Mem: cfg.MemThreshold,
		IO:  cfg.IOThreshold,
	}

	a := &Agent{
		cfg:      cfg,
		registry: signature.NewRegistry(cfg.AlphaPct, thresholds, cfg.MaxTracked),
		engine:   response.NewEngine(cfg, sink),
		source:   sampler.NewSampler(),
		exits:    make(chan uint32, exitQueueDepth),
	}

	if cfg.ReportLogPath != "" {
		exporter, err := NewReportWriter(cfg.ReportLogPath)
		if err != nil {
			return nil, err
		}
		a.exporter = exporter
	}

	return a, nil
}

// Registry exposes the signature registry, mainly for tests and status dumps.
func (a *Agent) Registry() *signature.Registry {
	return a.registry
}

// Engine exposes the response engine for shutdown summaries.
func (a *Agent) Engine() *response.Engine {
	return a.engine
}

// Run drives both loops until ctx is cancelled, then lets the in-flight
// cycles finish before returning.
func (a *Agent) Run(ctx context.Context) {
	log.WithFields(log.Fields{
		"sampleInterval": a.cfg.SampleInterval,
		"reportInterval": a.cfg.ReportInterval,
		"maxTracked":     a.cfg.MaxTracked,
	}).Info("Starting agent cycles")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		a.runSampleLoop(ctx)
	}()
	go func() {
		defer wg.Done()
		a.runReportLoop(ctx)
	}()
	wg.Wait()

	if a.exporter != nil {
		if err := a.exporter.Close(); err != nil {
			log.WithError(err).Warn("Failed to close report log")
		}
	}
}

func (a *Agent) runSampleLoop(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.SampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.sampleOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *Agent) sampleOnce(ctx context.Context) {
	samples, exited, err := a.source.Collect(ctx)
	if err != nil {
		// Treated as "no processes active this cycle", never fatal
		log.WithError(err).Warn("Sample source unavailable, skipping cycle")
		return
	}

	for _, smp := range samples {
		if _, err := a.registry.Upsert(smp); err != nil {
			if errors.Is(err, signature.ErrCapacityExceeded) {
				log.WithField("pid", smp.PID).Debug("Signature registry full, sample dropped")
				continue
			}
			log.WithError(err).WithField("pid", smp.PID).Warn("Signature update failed")
		}
	}

	for _, pid := range exited {
		a.registry.Remove(pid)
		select {
		case a.exits <- pid:
		default:
			// The engine's restoration-by-absence and stale pruning will
			// eventually clean up anything dropped here.
			log.WithField("pid", pid).Debug("Exit queue full, dropping notification")
		}
	}
}

func (a *Agent) runReportLoop(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.ReportInterval)
	defer ticker.Stop()
	pruneTicker := time.NewTicker(pruneInterval)
	defer pruneTicker.Stop()

	for {
		select {
		case <-ticker.C:
			a.reportOnce()
		case pid := <-a.exits:
			a.engine.HandleExit(pid)
		case <-pruneTicker.C:
			a.engine.PruneStale(pruneMaxAge.Milliseconds())
			a.logStatus()
		case <-ctx.Done():
			return
		}
	}
}

func (a *Agent) reportOnce() {
	report := a.BuildReport()
	a.engine.ProcessReport(report)

	if a.exporter != nil {
		if err := a.exporter.Write(report); err != nil {
			log.WithError(err).Warn("Failed to export spike report")
		}
	}
}

func (a *Agent) logStatus() {
	sl := utils.NewStatusLine()
	sl.Add("signatures", a.registry.Len())
	sl.Add("predictions", a.registry.TotalPredictions())
	sl.Add("adjusted", a.engine.TrackedCount())
	sl.Add("restorations", a.engine.Stats().Restorations)
	log.WithField("status", sl).Info("Agent status")
}

// BuildReport snapshots the registry into a versioned spike report.
func (a *Agent) BuildReport() *protocol.SpikeReport {
	snapshots := a.registry.SnapshotAll()

	entries := make([]protocol.ReportEntry, 0, len(snapshots))
	for _, snap := range snapshots {
		entries = append(entries, protocol.ReportEntry{
			PID:    snap.PID,
			Name:   snap.Name,
			CPUEma: snap.CPUEma,
			MemEma: snap.MemEma,
			IOEma:  snap.IOEma,
			CPURoc: snap.CPURoc,
			MemRoc: snap.MemRoc,
			IORoc:  snap.IORoc,
			Flags:  snap.Flags,
		})
	}

	return &protocol.SpikeReport{
		Version:   protocol.ReportVersion,
		GUID:      a.cfg.Guid,
		Timestamp: utils.NowTimestampMillis(),
		Entries:   entries,
	}
}
