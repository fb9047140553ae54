package stats

import (
	"fmt"
	"sync"
	"time"

	"github.com/bcgov/bc-emli-pin-mgmt-etl/logger"
	"github.com/cevaris/ordered_map"
)

// Stats for one pipeline stage.
type Stats struct {
	StepName           string `json:"stepName"`
	StatusText         string `json:"statusText"`
	ElapsedTimeSec     int    `json:"elapsedTimeSec"`
	TotalRowsProcessed int    `json:"totalRowsProcessed"`
	RowsPerSecondAvg   int    `json:"rowsPerSecondAvg"`
}

// String will format the stats for general logging.
func (s Stats) String() string {
	return fmt.Sprintf(
		"Stats for %v %v "+
			"elapsedTimeSec=%v "+
			"totalRowsProcessed=%v "+
			"rowsPerSecondAvg=%v",
		s.StepName, s.StatusText,
		s.ElapsedTimeSec,
		s.TotalRowsProcessed,
		s.RowsPerSecondAvg,
	)
}

// StageWatcher times a single stage.
type StageWatcher struct {
	mgr       *StatsManager
	stepName  string
	startTime time.Time
	endTime   time.Time
	totalRows int
	done      bool
}

// Stop records the rows handled by the stage and logs its stats.
// Calling Stop more than once keeps the first result.
func (w *StageWatcher) Stop(rows int) {
	w.mgr.mu.Lock()
	if w.done {
		w.mgr.mu.Unlock()
		return
	}
	w.done = true
	w.endTime = w.mgr.now()
	w.totalRows = rows
	w.mgr.mu.Unlock()
	w.mgr.log.Debug(w.render().String())
}

func (w *StageWatcher) render() Stats {
	end := w.endTime
	status := "complete"
	if !w.done {
		end = w.mgr.now()
		status = "incomplete"
	}
	elapsed := int(end.Sub(w.startTime).Seconds())
	divisor := elapsed
	if divisor < 1 { // avoid divide by 0.
		divisor = 1
	}
	return Stats{
		StepName:           w.stepName,
		StatusText:         status,
		ElapsedTimeSec:     elapsed,
		TotalRowsProcessed: w.totalRows,
		RowsPerSecondAvg:   w.totalRows / divisor,
	}
}

// StatsManager keeps the watchers of every stage in the order they started.
type StatsManager struct {
	mu        sync.Mutex
	log       logger.Logger
	now       func() time.Time
	stepStats *ordered_map.OrderedMap
}

// NewStatsManager creates a manager. Supply now to control the clock in tests, or nil for time.Now.
func NewStatsManager(log logger.Logger, now func() time.Time) *StatsManager {
	if now == nil {
		now = time.Now
	}
	return &StatsManager{log: log, now: now, stepStats: ordered_map.NewOrderedMap()}
}

// Start begins timing stepName. Starting a name again replaces the earlier watcher.
func (m *StatsManager) Start(stepName string) *StageWatcher {
	m.mu.Lock()
	defer m.mu.Unlock()
	w := &StageWatcher{mgr: m, stepName: stepName, startTime: m.now()}
	m.stepStats.Set(stepName, w)
	return w
}

// GetStats returns the stats of every stage in start order.
func (m *StatsManager) GetStats() []Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	retval := make([]Stats, 0, m.stepStats.Len())
	iter := m.stepStats.IterFunc()
	for kv, ok := iter(); ok; kv, ok = iter() {
		retval = append(retval, kv.Value.(*StageWatcher).render())
	}
	return retval
}
