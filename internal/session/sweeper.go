package session

import (
	"time"

	"github.com/jaymasl/frtl-arcade/internal/logger"

	"github.com/go-co-op/gocron/v2"
)

// Sweeper periodically runs each registered job: registries evict idle
// sessions and coordinators tear down whatever those sessions held on to.
type Sweeper struct {
	sched gocron.Scheduler
}

func NewSweeper(interval time.Duration, jobs ...func(now time.Time)) (*Sweeper, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			now := time.Now()
			for _, job := range jobs {
				job(now)
			}
		}),
	)
	if err != nil {
		return nil, err
	}

	return &Sweeper{sched: sched}, nil
}

func (s *Sweeper) Start() {
	s.sched.Start()
	logger.Info("session sweeper started")
}

func (s *Sweeper) Stop() {
	if err := s.sched.Shutdown(); err != nil {
		logger.Error("sweeper shutdown", "error", err)
	}
}
