package flush

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/aetherdb/engine/errors"
)

type flushJob struct {
	opts TableFlushOptions
	target FlushTarget
}

// WorkerPool is the production Scheduler: a bounded pool of goroutines
// reading from a jobs channel, grounded on
// mrsladoje-HundDB/lsm/flush_worker.go's FlushPool — simplified from its
// in-order, multi-memtable batch commit (which exists to preserve level-0
// ordering across several memtables at once) down to one job per Submit,
// since each flush here targets a single table's currently-mutable
// memtables and has no cross-job ordering requirement.
type WorkerPool struct {
	jobs chan flushJob
	writer SegmentWriter
	wg sync.WaitGroup
}

// NewWorkerPool starts workerCount goroutines immediately, each applying
// flushed rows through writer.
func NewWorkerPool(workerCount int, writer SegmentWriter) *WorkerPool {
	p := &WorkerPool{
		jobs: make(chan flushJob, workerCount),
		writer: writer,
	}
	for i := 0; i < workerCount; i++ {
		p.wg.Add(1)
		go p.runWorker()
	}
	return p
}

func (p *WorkerPool) runWorker() {
	defer p.wg.Done()
	for job := range p.jobs {
		err := p.runJobWithRetry(job)
		if job.opts.ResultSender != nil {
			job.opts.ResultSender <- err
		}
	}
}

func (p *WorkerPool) runJobWithRetry(job flushJob) error {
	var err error
	attempts := job.opts.MaxRetryFlushLimit
	if attempts <= 0 {
		attempts = 1
	}
	for attempt := 0; attempt < attempts; attempt++ {
		if err = p.runJob(job); err == nil {
			return nil
		}
		log.WithError(err).WithField("table", job.target.Name()).Warn("flush attempt failed")
		time.Sleep(time.Duration(attempt+1) * 50 * time.Millisecond)
	}
	bgErr := errors.NewBackgroundFlushFailed(err.Error())
	job.target.MarkFlushFailed(bgErr)
	return bgErr
}

func (p *WorkerPool) runJob(job flushJob) error {
	memtables := job.target.DrainMutableMemtables()
	for _, mt := range memtables {
		if _, err := p.writer.WriteSegment(job.target.ID(), mt.Rows()); err != nil {
			return errors.NewFlushTable(job.target.Name(), err)
		}
	}
	return nil
}

// Submit enqueues a flush job and returns immediately; it never blocks on
// the flush's completion.
func (p *WorkerPool) Submit(ctx context.Context, opts TableFlushOptions, target FlushTarget) error {
	select {
	case p.jobs <- flushJob{opts: opts, target: target}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop closes the jobs channel and waits for in-flight flushes to finish.
func (p *WorkerPool) Stop() {
	close(p.jobs)
	p.wg.Wait()
}

var _ Scheduler = (*WorkerPool)(nil)
