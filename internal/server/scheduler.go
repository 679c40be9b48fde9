package server

import (
	"context"
	"log"
	"time"

	"github.com/gorhill/cronexpr"
	"github.com/redis/go-redis/v9"
)

type warmer interface {
	Warm(ctx context.Context) (int, error)
}

// WarmScheduler re-primes the article cache on a cron schedule so slash
// commands mostly hit warm entries. When a Redis client is present a SetNX
// lock keeps multiple replicas from warming at the same time.
type WarmScheduler struct {
	warmer   warmer
	schedule string
	rdb      *redis.Client
	log      *log.Logger
	stop     chan struct{}
	lastRun  *time.Time
}

func NewWarmScheduler(w warmer, schedule string, rdb *redis.Client, logger *log.Logger) *WarmScheduler {
	if logger == nil {
		logger = log.New(log.Writer(), "[WARM] ", log.LstdFlags)
	}
	return &WarmScheduler{warmer: w, schedule: schedule, rdb: rdb, log: logger, stop: make(chan struct{})}
}

func (s *WarmScheduler) Start() {
	ticker := time.NewTicker(time.Minute)
	go func() {
		for {
			select {
			case <-s.stop:
				ticker.Stop()
				return
			case <-ticker.C:
				s.tick()
			}
		}
	}()
}

func (s *WarmScheduler) Stop() {
	close(s.stop)
}

func (s *WarmScheduler) tick() {
	if !isDue(s.schedule, s.lastRun) {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if s.rdb != nil {
		ok, err := s.rdb.SetNX(ctx, "helpbot:warm:lock", "1", 2*time.Minute).Result()
		if err != nil {
			s.log.Printf("warm lock unavailable: %v", err)
			return
		}
		if !ok {
			return // another replica is warming
		}
		defer s.rdb.Del(ctx, "helpbot:warm:lock")
	}

	now := time.Now()
	s.lastRun = &now
	warmed, err := s.warmer.Warm(ctx)
	if err != nil {
		s.log.Printf("cache warm failed: %v", err)
		return
	}
	s.log.Printf("cache warm complete, %d articles", warmed)
}

// isDue determines whether a warm pass should run now, given the schedule
// and the previous run time. Supports "@daily", "@hourly" and standard
// 5-field cron expressions; an invalid expression falls back to @daily.
func isDue(cronSpec string, last *time.Time) bool {
	now := time.Now()
	switch cronSpec {
	case "@daily":
		if last == nil {
			return true
		}
		return now.Sub(*last) >= 24*time.Hour
	case "@hourly":
		if last == nil {
			return true
		}
		return now.Sub(*last) >= time.Hour
	default:
		expr, err := cronexpr.Parse(cronSpec)
		if err != nil {
			if last == nil {
				return true
			}
			return now.Sub(*last) >= 24*time.Hour
		}
		if last == nil {
			return true
		}
		return !expr.Next(*last).After(now)
	}
}
