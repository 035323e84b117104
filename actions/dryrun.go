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

package actions

import (
	log "github.com/sirupsen/logrus"
)

// DryRunSink logs every request it would have applied and reports success.
// It lets the agent run unprivileged while still exercising the full
// escalation and restoration machinery.
type DryRunSink struct {
	delegate Sink
}

// NewDryRunSink wraps delegate for read-only calls; mutating calls are
// logged and dropped. delegate may be nil, in which case GetPriority
// reports a zero baseline.
func NewDryRunSink(delegate Sink) *DryRunSink {
	return &DryRunSink{delegate: delegate}
}

func (s *DryRunSink) GetPriority(pid uint32) (int, error) {
	if s.delegate != nil {
		return s.delegate.GetPriority(pid)
	}
	return 0, nil
}

func (s *DryRunSink) SetPriority(pid uint32, nice int) error {
	log.WithFields(log.Fields{
		"pid":  pid,
		"nice": nice,
	}).Info("DRY-RUN: would set priority")
	return nil
}

func (s *DryRunSink) SetIOClass(pid uint32, class, level int) error {
	log.WithFields(log.Fields{
		"pid":   pid,
		"class": class,
		"level": level,
	}).Info("DRY-RUN: would set I/O class")
	return nil
}

func (s *DryRunSink) SetOOMScore(pid uint32, score int) error {
	log.WithFields(log.Fields{
		"pid":   pid,
		"score": score,
	}).Info("DRY-RUN: would set OOM score")
	return nil
}
