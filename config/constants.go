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

// Constants
package config

import "time"

const (
	DefaultConfigPathLinux = "/etc/smartsched-agent.cfg"

	// DefaultAlphaPct is the EMA smoothing factor shared by all three metrics.
	// One shared alpha keeps tuning simple.
	DefaultAlphaPct = 30

	// Spike thresholds, in the same x100-scaled units as the samples
	DefaultCPUThreshold = 2000
	DefaultMemThreshold = 1500
	DefaultIOThreshold  = 1000

	DefaultSampleInterval    = 100 * time.Millisecond
	DefaultReportInterval    = 500 * time.Millisecond
	DefaultCooldown          = 10 * time.Second
	DefaultRestorationWindow = 5 * time.Second

	// DefaultMaxTracked caps the signature registry
	DefaultMaxTracked = 4096
	// DefaultMaxAdjusted caps the response engine's tracked-process registry
	DefaultMaxAdjusted = 1024
)
