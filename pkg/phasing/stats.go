package phasing

import (
	"math"
	"runtime"
	"time"

	"github.com/go-logr/logr"
)

// printStageStats logs the time spent in a stage and since start, and
// the memory obtained from the OS. It returns the current time and
// memory for the next stage.
func printStageStats(logger logr.Logger, stage int, prevTime, start time.Time, prevMem uint64) (time.Time, uint64) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	now := time.Now()
	logger.V(2).Info("stage stats", "stage", stage,
		"time", now.Sub(prevTime).String(),
		"total time", now.Sub(start).String(),
		"memory (MiB)", math.Round(float64(m.Sys-prevMem)*100/(1024*1024))/100)

	return now, m.Sys
}
