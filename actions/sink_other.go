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

//go:build !linux

package actions

import "errors"

var errUnsupportedPlatform = errors.New("scheduling adjustments are only supported on Linux")

// UnixSink is a stub on non-Linux platforms; every call fails so that the
// engine logs the failures and continues.
type UnixSink struct{}

func NewUnixSink() *UnixSink {
	return &UnixSink{}
}

func (s *UnixSink) GetPriority(pid uint32) (int, error) {
	return 0, errUnsupportedPlatform
}

func (s *UnixSink) SetPriority(pid uint32, nice int) error {
	return errUnsupportedPlatform
}

func (s *UnixSink) SetIOClass(pid uint32, class, level int) error {
	return errUnsupportedPlatform
}

func (s *UnixSink) SetOOMScore(pid uint32, score int) error {
	return errUnsupportedPlatform
}
