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

package utils

import (
	"time"
)

type NowTimestampMillisFunc func() int64

// NowTimestampMillis is the clock used throughout the agent for signature and
// tracked-process timestamps. It is a variable so that unit tests can install
// a deterministic replacement.
var NowTimestampMillis NowTimestampMillisFunc = func() int64 {
	return time.Now().UnixNano() / int64(time.Millisecond)
}

// InstallAlternateTimestampFunc is intended for unit testing where a deterministic timestamp needs to be
// temporarily enabled. Be sure to defer re-invoke this function to re-install the prior one.
func InstallAlternateTimestampFunc(newFunc NowTimestampMillisFunc) (priorFunc NowTimestampMillisFunc) {
	priorFunc = NowTimestampMillis
	NowTimestampMillis = newFunc
	return
}

// ChannelOfTimer is a nil-safe channel getter which becomes useful when needing to "select on a timer" that
// may not always be activated.
func ChannelOfTimer(timer *time.Timer) <-chan time.Time {
	if timer == nil {
		return nil
	} else {
		return timer.C
	}
}
