// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package maintenance schedules the AgentStore's housekeeping jobs on a
// cron engine, separate from the Watchdog's per-agent ticker.
package maintenance

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultCompactionSchedule runs once a day at 03:17, off the hour to
// avoid colliding with other midnight-ish jobs.
const DefaultCompactionSchedule = "17 3 * * *"

// Compactor is the capability the scheduler needs: AgentStore.Compact.
type Compactor interface {
	Compact() error
}

// Scheduler wraps a cron engine running the store-compaction job (and
// any other housekeeping jobs registered via AddFunc).
type Scheduler struct {
	engine *cron.Cron
	logger *zap.Logger
}

// New builds a Scheduler and registers the AgentStore compaction job on
// schedule. An empty schedule falls back to DefaultCompactionSchedule.
func New(store Compactor, schedule string, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if schedule == "" {
		schedule = DefaultCompactionSchedule
	}

	engine := cron.New()
	_, err := engine.AddFunc(schedule, func() {
		if err := store.Compact(); err != nil {
			logger.Warn("agent store compaction failed", zap.Error(err))
			return
		}
		logger.Debug("agent store compacted")
	})
	if err != nil {
		return nil, fmt.Errorf("registering compaction job: %w", err)
	}

	return &Scheduler{engine: engine, logger: logger}, nil
}

// AddFunc registers an additional cron job on the same engine.
func (s *Scheduler) AddFunc(schedule string, job func()) error {
	_, err := s.engine.AddFunc(schedule, job)
	return err
}

// Start begins running scheduled jobs in the background.
func (s *Scheduler) Start() {
	s.engine.Start()
}

// Stop halts the engine, waiting for any in-flight job to finish.
func (s *Scheduler) Stop() {
	<-s.engine.Stop().Done()
}
