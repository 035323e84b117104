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
	"fmt"
	"os"
	"strconv"

	"golang.org/x/sys/unix"
)

const (
	ioprioClassShift = 13
	ioprioWhoProcess = 1
)

// UnixSink applies adjustments through the usual Linux syscalls. Most of
// them require CAP_SYS_NICE or root when raising another process's priority.
type UnixSink struct{}

func NewUnixSink() *UnixSink {
	return &UnixSink{}
}

func (s *UnixSink) GetPriority(pid uint32) (int, error) {
	// The raw getpriority syscall biases the result as 20-nice so that
	// errors stay distinguishable; undo that here.
	prio, err := unix.Getpriority(unix.PRIO_PROCESS, int(pid))
	if err != nil {
		return 0, err
	}
	return 20 - prio, nil
}

func (s *UnixSink) SetPriority(pid uint32, nice int) error {
	return unix.Setpriority(unix.PRIO_PROCESS, int(pid), nice)
}

func (s *UnixSink) SetIOClass(pid uint32, class, level int) error {
	ioprio := uintptr(class<<ioprioClassShift | level)
	_, _, errno := unix.Syscall(unix.SYS_IOPRIO_SET,
		uintptr(ioprioWhoProcess), uintptr(pid), ioprio)
	if errno != 0 {
		return errno
	}
	return nil
}

func (s *UnixSink) SetOOMScore(pid uint32, score int) error {
	path := fmt.Sprintf("/proc/%d/oom_score_adj", pid)
	return os.WriteFile(path, []byte(strconv.Itoa(score)), 0644)
}
