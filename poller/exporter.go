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

package poller

import (
	"bufio"
	"os"

	"github.com/racker/smartsched-agent/protocol"
)

// ReportWriter appends spike reports to a file, one JSON frame per line.
// Downstream tooling tails this instead of scraping text tables.
type ReportWriter struct {
	file *os.File
	w    *bufio.Writer
}

func NewReportWriter(path string) (*ReportWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	return &ReportWriter{
		file: f,
		w:    bufio.NewWriter(f),
	}, nil
}

func (rw *ReportWriter) Write(report *protocol.SpikeReport) error {
	encoded, err := report.Encode()
	if err != nil {
		return err
	}
	if _, err := rw.w.Write(encoded); err != nil {
		return err
	}
	if err := rw.w.WriteByte('\n'); err != nil {
		return err
	}
	return rw.w.Flush()
}

func (rw *ReportWriter) Close() error {
	if err := rw.w.Flush(); err != nil {
		rw.file.Close()
		return err
	}
	return rw.file.Close()
}
