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

// serve
package commands

import (
	"context"
	"os"
	"time"

	uuid "github.com/satori/go.uuid"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/racker/smartsched-agent/actions"
	"github.com/racker/smartsched-agent/config"
	"github.com/racker/smartsched-agent/poller"
	"github.com/racker/smartsched-agent/utils"
)

const gracefulShutdownTimeout = 5 * time.Second

var (
	configFilePath string
	dryRun         bool

	ServeCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the monitoring and response agent",
		Long:  "Start the monitoring and response agent",
		Run:   serveCmdRun,
	}
)

func init() {
	ServeCmd.Flags().StringVar(&configFilePath, "config", "",
		"Path to a file containing the config, used in "+config.DefaultConfigPathLinux)
	ServeCmd.Flags().BoolVar(&dryRun, "dry-run", false,
		"Log corrective actions instead of applying them")
}

func serveCmdRun(cmd *cobra.Command, args []string) {
	guid := uuid.NewV4()
	cfg := config.NewConfig(guid.String())
	cfg.DryRun = dryRun
	if configFilePath != "" {
		if err := cfg.LoadFromFile(configFilePath); err != nil {
			utils.Die(err, "Failed to load configuration")
		}
	}
	if err := cfg.Validate(); err != nil {
		utils.Die(err, "Failed to validate configuration")
	}

	log.WithField("guid", guid).Info("Assigned unique identifier")
	utils.CheckFDLimit()

	var sink actions.Sink = actions.NewUnixSink()
	if cfg.DryRun {
		log.Info("Dry-run mode, corrective actions are logged only")
		sink = actions.NewDryRunSink(sink)
	}

	agent, err := poller.NewAgent(cfg, sink)
	if err != nil {
		utils.Die(err, "Failed to initialize agent")
	}

	signalNotify := utils.HandleInterrupts()
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		<-signalNotify
		log.Info("Shutdown...")
		cancel()
		time.AfterFunc(gracefulShutdownTimeout, func() {
			log.Warn("Forcing immediate shutdown")
			os.Exit(0)
		})
	}()

	agent.Run(ctx)
	logSummary(agent)
}

func logSummary(agent *poller.Agent) {
	stats := agent.Engine().Stats()
	log.WithFields(log.Fields{
		"trackedSignatures": agent.Registry().Len(),
		"totalPredictions":  agent.Registry().TotalPredictions(),
		"cpuAdvisories":     stats.CPUAdvisories,
		"cpuBoosts":         stats.CPUBoosts,
		"memAdvisories":     stats.MemAdvisories,
		"memAlerts":         stats.MemAlerts,
		"oomAdjustments":    stats.OOMAdjustments,
		"ioAdvisories":      stats.IOAdvisories,
		"ioBoosts":          stats.IOBoosts,
		"restorations":      stats.Restorations,
		"escalations":       stats.Escalations,
		"failedActions":     stats.FailedActions,
	}).Info("Agent stopped")
}
