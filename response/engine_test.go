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

package response_test

import (
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/racker/smartsched-agent/config"
	"github.com/racker/smartsched-agent/protocol"
	"github.com/racker/smartsched-agent/response"
	"github.com/racker/smartsched-agent/utils"
)

type fakeClock struct {
	now int64
}

func installClock(t *testing.T) *fakeClock {
	c := &fakeClock{now: 1000000}
	prior := utils.InstallAlternateTimestampFunc(func() int64 { return c.now })
	t.Cleanup(func() { utils.InstallAlternateTimestampFunc(prior) })
	return c
}

func (c *fakeClock) advance(d time.Duration) {
	c.now += d.Milliseconds()
}

func newReport(entries ...protocol.ReportEntry) *protocol.SpikeReport {
	return &protocol.SpikeReport{
		Version:   protocol.ReportVersion,
		Timestamp: utils.NowTimestampMillis(),
		Entries:   entries,
	}
}

func cpuEntry(pid uint32, roc int) protocol.ReportEntry {
	return protocol.ReportEntry{
		PID:    pid,
		Name:   "burner",
		CPURoc: roc,
		Flags:  protocol.SpikeSet{CPU: true},
	}
}

func memEntry(pid uint32, roc int) protocol.ReportEntry {
	return protocol.ReportEntry{
		PID:    pid,
		Name:   "hog",
		MemRoc: roc,
		Flags:  protocol.SpikeSet{Mem: true},
	}
}

func ioEntry(pid uint32, roc int) protocol.ReportEntry {
	return protocol.ReportEntry{
		PID:   pid,
		Name:  "thrasher",
		IORoc: roc,
		Flags: protocol.SpikeSet{IO: true},
	}
}

func TestLevelFor(t *testing.T) {
	tests := []struct {
		consecutive int
		expected    response.Level
	}{
		{consecutive: 0, expected: response.LevelNone},
		{consecutive: 1, expected: response.LevelAdvisory},
		{consecutive: 2, expected: response.LevelAdvisory},
		{consecutive: 3, expected: response.LevelSoft},
		{consecutive: 5, expected: response.LevelSoft},
		{consecutive: 6, expected: response.LevelHard},
		{consecutive: 10, expected: response.LevelHard},
		{consecutive: 11, expected: response.LevelCritical},
		{consecutive: 100, expected: response.LevelCritical},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, response.LevelFor(tt.consecutive),
			"consecutive=%d", tt.consecutive)
	}
}

func TestLevel_String(t *testing.T) {
	assert.Equal(t, "NONE", response.LevelNone.String())
	assert.Equal(t, "ADVISORY", response.LevelAdvisory.String())
	assert.Equal(t, "SOFT", response.LevelSoft.String())
	assert.Equal(t, "HARD", response.LevelHard.String())
	assert.Equal(t, "CRITICAL", response.LevelCritical.String())
}

func TestEngine_AdvisoryLogsOnly(t *testing.T) {
	clock := installClock(t)
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	sink := NewMockSink(mockCtrl)
	sink.EXPECT().GetPriority(uint32(100)).Return(0, nil).Times(1)

	engine := response.NewEngine(config.NewConfig("test"), sink)
	for i := 0; i < 2; i++ {
		engine.ProcessReport(newReport(cpuEntry(100, 2500)))
		clock.advance(500 * time.Millisecond)
	}

	p := engine.Tracked(100)
	require.NotNil(t, p)
	assert.Equal(t, 2, p.ConsecutiveSpikes)
	assert.Equal(t, response.LevelAdvisory, p.Level)
	assert.False(t, p.Adjusted)
	assert.Equal(t, 2, engine.Stats().CPUAdvisories)
}

func TestEngine_SoftBoostWithCooldown(t *testing.T) {
	clock := installClock(t)
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	sink := NewMockSink(mockCtrl)
	sink.EXPECT().GetPriority(uint32(100)).Return(0, nil).Times(1)
	// reports 4 and 5 stay within the 10s cooldown, so exactly one boost
	sink.EXPECT().SetPriority(uint32(100), -5).Return(nil).Times(1)

	engine := response.NewEngine(config.NewConfig("test"), sink)
	for i := 0; i < 5; i++ {
		engine.ProcessReport(newReport(cpuEntry(100, 2500)))
		clock.advance(500 * time.Millisecond)
	}

	p := engine.Tracked(100)
	require.NotNil(t, p)
	assert.True(t, p.Adjusted)
	assert.Equal(t, -5, p.CurrentNice)
	assert.Equal(t, 0, p.BaselineNice)
	assert.Equal(t, 1, p.ActionsTaken)
	assert.Equal(t, response.LevelSoft, p.Level)
	assert.Equal(t, 1, engine.Stats().CPUBoosts)
}

func TestEngine_EscalationRaisesBoost(t *testing.T) {
	clock := installClock(t)
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	sink := NewMockSink(mockCtrl)
	sink.EXPECT().GetPriority(uint32(100)).Return(0, nil).Times(1)
	// With a 1s cooldown and 500ms reports, boosts land on reports 3, 5, 7,
	// 9, and 11 while the level climbs SOFT -> HARD -> CRITICAL
	sink.EXPECT().SetPriority(uint32(100), -5).Return(nil).Times(2)
	sink.EXPECT().SetPriority(uint32(100), -10).Return(nil).Times(2)
	sink.EXPECT().SetPriority(uint32(100), -15).Return(nil).Times(1)

	cfg := config.NewConfig("test")
	cfg.Cooldown = time.Second
	engine := response.NewEngine(cfg, sink)

	for i := 0; i < 11; i++ {
		engine.ProcessReport(newReport(cpuEntry(100, 2500)))
		clock.advance(500 * time.Millisecond)
	}

	p := engine.Tracked(100)
	require.NotNil(t, p)
	assert.Equal(t, response.LevelCritical, p.Level)
	assert.Equal(t, -15, p.CurrentNice)
	assert.Equal(t, 5, engine.Stats().CPUBoosts)
	assert.Equal(t, 2, engine.Stats().Escalations, "one per HARD and CRITICAL transition")
}

func TestEngine_MemBranchAdvisoryThenAlert(t *testing.T) {
	clock := installClock(t)
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	sink := NewMockSink(mockCtrl)
	sink.EXPECT().GetPriority(uint32(200)).Return(0, nil).Times(1)
	// Only the CRITICAL transition touches the sink, and only once even
	// though the process stays critical
	sink.EXPECT().SetOOMScore(uint32(200), 500).Return(nil).Times(1)

	engine := response.NewEngine(config.NewConfig("test"), sink)
	for i := 0; i < 12; i++ {
		engine.ProcessReport(newReport(memEntry(200, 1800)))
		clock.advance(500 * time.Millisecond)
	}

	p := engine.Tracked(200)
	require.NotNil(t, p)
	assert.False(t, p.Adjusted, "memory actions never adjust scheduling priority")
	assert.True(t, p.OOMAdjusted)

	stats := engine.Stats()
	assert.Equal(t, 5, stats.MemAdvisories, "advisory and soft reports")
	assert.Equal(t, 7, stats.MemAlerts, "hard and critical reports")
	assert.Equal(t, 1, stats.OOMAdjustments)
}

func TestEngine_IOBoostAndEscalation(t *testing.T) {
	clock := installClock(t)
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	sink := NewMockSink(mockCtrl)
	sink.EXPECT().GetPriority(uint32(300)).Return(0, nil).Times(1)
	sink.EXPECT().SetIOClass(uint32(300), 2, 0).Return(nil).Times(2)
	sink.EXPECT().SetIOClass(uint32(300), 1, 4).Return(nil).Times(1)

	cfg := config.NewConfig("test")
	cfg.Cooldown = time.Second
	engine := response.NewEngine(cfg, sink)

	for i := 0; i < 7; i++ {
		engine.ProcessReport(newReport(ioEntry(300, 1200)))
		clock.advance(500 * time.Millisecond)
	}

	p := engine.Tracked(300)
	require.NotNil(t, p)
	assert.True(t, p.Adjusted)
	assert.True(t, p.IOAdjusted)
	assert.Equal(t, 3, engine.Stats().IOBoosts)
	assert.Equal(t, 1, engine.Stats().Escalations)
}

func TestEngine_MultiSpikeCountsOncePerReport(t *testing.T) {
	clock := installClock(t)
	_ = clock
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	sink := NewMockSink(mockCtrl)
	sink.EXPECT().GetPriority(uint32(400)).Return(0, nil).Times(1)

	engine := response.NewEngine(config.NewConfig("test"), sink)
	entry := protocol.ReportEntry{
		PID:    400,
		Name:   "greedy",
		CPURoc: 2500,
		MemRoc: 1800,
		Flags:  protocol.SpikeSet{CPU: true, Mem: true},
	}
	engine.ProcessReport(newReport(entry))

	p := engine.Tracked(400)
	require.NotNil(t, p)
	assert.Equal(t, 1, p.ConsecutiveSpikes, "one report increments once, not per resource")
	assert.Equal(t, protocol.SpikeSet{CPU: true, Mem: true}, p.ActiveSpikes)
	assert.Equal(t, 1, engine.Stats().CPUAdvisories)
	assert.Equal(t, 1, engine.Stats().MemAdvisories)
}

// TestEngine_RestorationAfterQuiet exercises the full scenario: four spiking
// reports at 500ms, then six seconds of silence.
func TestEngine_RestorationAfterQuiet(t *testing.T) {
	clock := installClock(t)
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	sink := NewMockSink(mockCtrl)
	sink.EXPECT().GetPriority(uint32(100)).Return(3, nil).Times(1)
	sink.EXPECT().SetPriority(uint32(100), -5).Return(nil).Times(1)
	// exactly one restoration back to the captured baseline
	sink.EXPECT().SetPriority(uint32(100), 3).Return(nil).Times(1)

	engine := response.NewEngine(config.NewConfig("test"), sink)

	for i := 0; i < 4; i++ {
		engine.ProcessReport(newReport(cpuEntry(100, 2500)))
		clock.advance(500 * time.Millisecond)
	}

	p := engine.Tracked(100)
	require.NotNil(t, p)
	assert.True(t, p.Adjusted)
	assert.Equal(t, -5, p.CurrentNice)

	// Quiet reports; restoration must not fire until the 5s window passes
	for i := 0; i < 12; i++ {
		engine.ProcessReport(newReport())
		clock.advance(500 * time.Millisecond)
	}

	assert.False(t, p.Adjusted)
	assert.Equal(t, 3, p.CurrentNice)
	assert.Equal(t, 0, p.ConsecutiveSpikes)
	assert.Equal(t, response.LevelNone, p.Level)
	assert.Equal(t, 1, engine.Stats().Restorations)

	// Further quiet cycles must not restore twice
	for i := 0; i < 4; i++ {
		engine.ProcessReport(newReport())
		clock.advance(500 * time.Millisecond)
	}
	assert.Equal(t, 1, engine.Stats().Restorations)
}

func TestEngine_ActionFailureLeavesStateUnchanged(t *testing.T) {
	clock := installClock(t)
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	errDenied := errors.New("operation not permitted")
	sink := NewMockSink(mockCtrl)
	sink.EXPECT().GetPriority(uint32(100)).Return(0, nil).Times(1)
	// Cooldown runs from the attempted action, so the failing call is not
	// retried on the very next report
	sink.EXPECT().SetPriority(uint32(100), -5).Return(errDenied).Times(1)

	engine := response.NewEngine(config.NewConfig("test"), sink)
	for i := 0; i < 4; i++ {
		engine.ProcessReport(newReport(cpuEntry(100, 2500)))
		clock.advance(500 * time.Millisecond)
	}

	p := engine.Tracked(100)
	require.NotNil(t, p)
	assert.False(t, p.Adjusted)
	assert.Equal(t, 0, p.CurrentNice)
	assert.Equal(t, 1, engine.Stats().FailedActions)
	assert.Equal(t, 0, engine.Stats().CPUBoosts)
}

func TestEngine_HandleExit(t *testing.T) {
	clock := installClock(t)
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	sink := NewMockSink(mockCtrl)
	sink.EXPECT().GetPriority(uint32(100)).Return(0, nil).Times(1)
	sink.EXPECT().SetPriority(uint32(100), -5).Return(nil).Times(1)
	// force-restore on exit bypasses cooldown; failure is tolerated
	sink.EXPECT().SetPriority(uint32(100), 0).Return(errors.New("no such process")).Times(1)

	engine := response.NewEngine(config.NewConfig("test"), sink)
	for i := 0; i < 3; i++ {
		engine.ProcessReport(newReport(cpuEntry(100, 2500)))
		clock.advance(500 * time.Millisecond)
	}
	require.NotNil(t, engine.Tracked(100))

	engine.HandleExit(100)
	assert.Nil(t, engine.Tracked(100))
	assert.Equal(t, 0, engine.TrackedCount())

	// unknown pid is a no-op
	engine.HandleExit(9999)
}

func TestEngine_TrackedCapacity(t *testing.T) {
	clock := installClock(t)
	_ = clock
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	sink := NewMockSink(mockCtrl)
	sink.EXPECT().GetPriority(uint32(1)).Return(0, nil).Times(1)

	cfg := config.NewConfig("test")
	cfg.MaxAdjusted = 1
	engine := response.NewEngine(cfg, sink)

	engine.ProcessReport(newReport(cpuEntry(1, 2500), cpuEntry(2, 2500)))

	assert.Equal(t, 1, engine.TrackedCount())
	assert.NotNil(t, engine.Tracked(1))
	assert.Nil(t, engine.Tracked(2))
	assert.Equal(t, 1, engine.Stats().DroppedPids)
}

func TestEngine_PruneStale(t *testing.T) {
	clock := installClock(t)
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	sink := NewMockSink(mockCtrl)
	sink.EXPECT().GetPriority(gomock.Any()).Return(0, nil).Times(2)
	sink.EXPECT().SetPriority(uint32(2), -5).Return(nil).Times(1)

	cfg := config.NewConfig("test")
	// keep the adjusted process from being restored during this test
	cfg.RestorationWindow = time.Hour
	engine := response.NewEngine(cfg, sink)

	// pid 1 stays advisory, pid 2 gets adjusted
	engine.ProcessReport(newReport(cpuEntry(1, 2500)))
	for i := 0; i < 3; i++ {
		engine.ProcessReport(newReport(cpuEntry(2, 2500)))
		clock.advance(500 * time.Millisecond)
	}

	clock.advance(10 * time.Minute)
	pruned := engine.PruneStale((5 * time.Minute).Milliseconds())

	assert.Equal(t, 1, pruned)
	assert.Nil(t, engine.Tracked(1), "stale unadjusted entry pruned")
	assert.NotNil(t, engine.Tracked(2), "adjusted entry survives pruning")
}
