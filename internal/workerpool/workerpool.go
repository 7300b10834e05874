// Package workerpool provides a small generic worker pool for fanning
// independent jobs out across goroutines and collecting their results.
package workerpool

import (
	"context"
	"sync"
)

// Pool runs jobs on a fixed number of workers.
// Results arrive in completion order, not submission order.
type Pool[Job any, Result any] struct {
	numWorkers int
	jobs       chan Job
	results    chan Result
	wg         sync.WaitGroup
}

// New creates a pool for numJobs jobs.
// If numWorkers is 0 or negative every job gets its own worker (unbounded fan-out).
// The pool never starts more workers than there are jobs.
func New[Job any, Result any](numWorkers, numJobs int) *Pool[Job, Result] {
	if numWorkers <= 0 {
		numWorkers = numJobs
	}
	if numJobs > 0 {
		numWorkers = min(numWorkers, numJobs)
	}
	numWorkers = max(numWorkers, 1)

	return &Pool[Job, Result]{
		numWorkers: numWorkers,
		jobs:       make(chan Job, max(numJobs, 0)),
		results:    make(chan Result, max(numJobs, 0)),
	}
}

// Workers returns the number of workers the pool starts.
func (p *Pool[Job, Result]) Workers() int {
	return p.numWorkers
}

// Start launches the workers. Every job is handed to fn together with ctx,
// so a cancelled ctx reaches in-flight jobs but queued ones still run and
// are expected to return promptly.
func (p *Pool[Job, Result]) Start(ctx context.Context, fn func(context.Context, Job) Result) {
	p.wg.Add(p.numWorkers)
	for i := 0; i < p.numWorkers; i++ {
		go p.work(ctx, fn)
	}
}

func (p *Pool[Job, Result]) work(ctx context.Context, fn func(context.Context, Job) Result) {
	defer p.wg.Done()
	for job := range p.jobs {
		p.results <- fn(ctx, job)
	}
}

// Submit queues a job. Both channels are buffered to numJobs, so
// submitting up to numJobs jobs never blocks, even before Start.
// In unbounded mode each queued job is picked up by its own worker.
func (p *Pool[Job, Result]) Submit(job Job) {
	p.jobs <- job
}

// Close marks the end of submissions. Results is closed after the last
// worker returns, so ranging over it terminates once every job is done.
func (p *Pool[Job, Result]) Close() {
	close(p.jobs)
	go func() {
		p.wg.Wait()
		close(p.results)
	}()
}

// Results yields one value per submitted job in completion order.
func (p *Pool[Job, Result]) Results() <-chan Result {
	return p.results
}
