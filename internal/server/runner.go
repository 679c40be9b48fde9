package server

import (
	"context"
	"fmt"
	"log"
	"sync"
)

// Runner supervises the fire-and-forget work that runs after a webhook has
// been acknowledged. Every task failure, including a recovered panic, is
// handed to the task's report callback so the invoking user is never left
// without a response.
type Runner struct {
	wg  sync.WaitGroup
	log *log.Logger
}

func NewRunner(logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.New(log.Writer(), "[TASK] ", log.LstdFlags)
	}
	return &Runner{log: logger}
}

// Go schedules task on its own goroutine. report is invoked with any error
// or recovered panic; it may be nil when failures only need logging.
func (r *Runner) Go(name string, task func(context.Context) error, report func(error)) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.run(name, task); err != nil {
			r.log.Printf("task %s failed: %v", name, err)
			if report != nil {
				report(err)
			}
		}
	}()
}

func (r *Runner) run(name string, task func(context.Context) error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("task %s panicked: %v", name, rec)
		}
	}()
	return task(context.Background())
}

// Wait blocks until every scheduled task has finished. Called on shutdown
// so in-flight searches still deliver their reply.
func (r *Runner) Wait() {
	r.wg.Wait()
}
