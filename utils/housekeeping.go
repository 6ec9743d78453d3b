package utils

import (
	"time"

	"github.com/go-co-op/gocron"
)

// Housekeeper runs periodic in-memory cleanup jobs.
type Housekeeper struct {
	scheduler *gocron.Scheduler
}

// NewHousekeeper creates a scheduler on UTC.
func NewHousekeeper() *Housekeeper {
	return &Housekeeper{scheduler: gocron.NewScheduler(time.UTC)}
}

// Every registers a named prune job; prune returns the number of entries removed.
func (h *Housekeeper) Every(interval time.Duration, name string, prune func() int) error {
	_, err := h.scheduler.Every(interval).Do(func() {
		if n := prune(); n > 0 {
			Sugar.Debugf("housekeeping %s removed=%d", name, n)
		}
	})
	return err
}

// Start runs the jobs in the background.
func (h *Housekeeper) Start() {
	h.scheduler.StartAsync()
}

// Stop terminates all jobs.
func (h *Housekeeper) Stop() {
	h.scheduler.Stop()
}
