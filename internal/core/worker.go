package core

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Ayesha-Siddiqa-khan/AssanPOS-V1.4-offline-sub003/internal/config"
	"github.com/Ayesha-Siddiqa-khan/AssanPOS-V1.4-offline-sub003/internal/pos"
)

const (
	EventJobQueued    = "job_queued"
	EventJobSucceeded = "job_succeeded"
	EventJobRetrying  = "job_retrying"
	EventJobFailed    = "job_failed"
	EventJobCancelled = "job_cancelled"
)

type EnqueueOptions struct {
	Type        pos.JobType
	MaxAttempts int
}

type QueueStats struct {
	Pending   int `json:"pending"`
	Printing  int `json:"printing"`
	Retrying  int `json:"retrying"`
	Success   int `json:"success"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
	Total     int `json:"total"`
}

// Worker owns the print job lifecycle: enqueue, in-order dequeue, execution
// with a bounded deadline, retry with exponential backoff, terminal states.
// One logical processing pass runs at a time; jobs never print concurrently.
type Worker struct {
	store     Store
	encoder   Encoder
	transport Transport
	raster    Rasterizer
	events    EventSink
	archiver  Archiver
	cfg       config.QueueConfig

	mu         sync.Mutex
	passToken  uint64
	passActive bool
	passStart  time.Time

	lifecycle sync.Mutex
	started   bool
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

func NewWorker(store Store, encoder Encoder, transport Transport, raster Rasterizer, cfg *config.QueueConfig) *Worker {
	qcfg := config.QueueConfig{}
	if cfg != nil {
		qcfg = *cfg
	}
	if qcfg.MaxAttempts < 1 {
		qcfg.MaxAttempts = pos.DefaultMaxAttempts
	}
	if qcfg.BaseDelay <= 0 {
		qcfg.BaseDelay = 4 * time.Second
	}
	if qcfg.MaxDelay < qcfg.BaseDelay {
		qcfg.MaxDelay = 60 * time.Second
	}
	if qcfg.JobTimeout <= 0 {
		qcfg.JobTimeout = 20 * time.Second
	}
	if qcfg.PollInterval <= 0 {
		qcfg.PollInterval = 4 * time.Second
	}
	if raster == nil {
		raster = nullRasterizer{}
	}

	return &Worker{
		store:     store,
		encoder:   encoder,
		transport: transport,
		raster:    raster,
		cfg:       qcfg,
	}
}

// SetEventSink installs an observer for job lifecycle events.
func (w *Worker) SetEventSink(sink EventSink) {
	w.events = sink
}

// SetArchiver installs the hook that receives successful jobs before purge.
func (w *Worker) SetArchiver(a Archiver) {
	w.archiver = a
}

// Start launches the background cadence: a processing pass every poll
// interval, catching jobs whose scheduled retry time elapsed without a new
// enqueue. Calling Start on a started worker is a no-op.
func (w *Worker) Start() {
	w.lifecycle.Lock()
	defer w.lifecycle.Unlock()

	if w.started {
		return
	}
	w.started = true
	w.stopCh = make(chan struct{})

	stopCh := w.stopCh
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(w.cfg.PollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				w.ProcessQueue(context.Background(), false)
			}
		}
	}()
}

// Stop halts the background cadence. An in-flight pass finishes its current
// job; nothing in progress is aborted.
func (w *Worker) Stop() {
	w.lifecycle.Lock()
	if !w.started {
		w.lifecycle.Unlock()
		return
	}
	w.started = false
	close(w.stopCh)
	w.lifecycle.Unlock()

	w.wg.Wait()
}

// Wake triggers an immediate pass. Called when the host application returns
// to the foreground.
func (w *Worker) Wake() {
	go w.ProcessQueue(context.Background(), false)
}

// Enqueue persists a pending job with a snapshot of the receipt, confirms
// the background worker is running and fires one forced pass without gating
// job creation on it. It fails only if the store does.
func (w *Worker) Enqueue(ctx context.Context, profileID string, receipt pos.ReceiptData, opts EnqueueOptions) (int64, error) {
	receipt.Normalize()

	jobType := opts.Type
	if jobType == "" {
		jobType = pos.JobTypeReceipt
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = w.cfg.MaxAttempts
	}

	job := &pos.PrintJob{
		ProfileID:   profileID,
		Type:        jobType,
		Receipt:     receipt,
		Status:      pos.JobStatusPending,
		MaxAttempts: maxAttempts,
	}
	if err := w.store.CreateJob(ctx, job); err != nil {
		return 0, fmt.Errorf("failed to enqueue job: %w", err)
	}

	w.notify(EventJobQueued, job)
	w.Start()
	go w.ProcessQueue(context.Background(), true)

	return job.ID, nil
}

// ProcessQueue runs one processing pass: repeatedly execute the oldest
// eligible job until none remain. A reentrant call is a no-op unless the
// active pass is stale (older than twice the job timeout) or force is set,
// in which case the stale lock is seized. Seizing never aborts an in-flight
// socket write; only the logical pass flag changes hands.
func (w *Worker) ProcessQueue(ctx context.Context, force bool) {
	token := w.acquirePass(force)
	if token == 0 {
		return
	}
	defer w.releasePass(token)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := w.store.NextEligibleJob(ctx, time.Now())
		if err != nil {
			log.Printf("worker: failed to fetch next job: %v", err)
			return
		}
		if job == nil {
			return
		}
		w.executeJob(ctx, job)
	}
}

func (w *Worker) acquirePass(force bool) uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.passActive && !force && time.Since(w.passStart) < 2*w.cfg.JobTimeout {
		return 0
	}
	w.passToken++
	w.passActive = true
	w.passStart = time.Now()
	return w.passToken
}

func (w *Worker) releasePass(token uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	// A seized pass moves the token forward; the stale owner's release must
	// not clear the new owner's lock.
	if w.passToken == token {
		w.passActive = false
	}
}

func (w *Worker) executeJob(ctx context.Context, job *pos.PrintJob) {
	now := time.Now()

	profile, err := w.resolveProfile(ctx, job.ProfileID)
	if err != nil {
		job.Attempts++
		job.LastAttemptAt = &now
		w.settleFailure(ctx, job, "printer profile not found")
		return
	}

	job.Status = pos.JobStatusPrinting
	job.Attempts++
	job.LastError = ""
	job.LastAttemptAt = &now
	if err := w.store.UpdateJob(ctx, job); err != nil {
		log.Printf("worker: failed to mark job %d printing: %v", job.ID, err)
		return
	}

	payload, err := w.buildPayload(ctx, job, profile)
	if err != nil {
		w.settleFailure(ctx, job, fmt.Sprintf("receipt build failed: %v", err))
		return
	}

	if err := w.deliver(ctx, profile, payload); err != nil {
		w.settleFailure(ctx, job, err.Error())
		return
	}

	job.Status = pos.JobStatusSuccess
	job.LastError = ""
	job.NextAttemptAt = nil
	if err := w.store.UpdateJob(ctx, job); err != nil {
		log.Printf("worker: failed to mark job %d success: %v", job.ID, err)
		return
	}
	w.notify(EventJobSucceeded, job)
}

func (w *Worker) resolveProfile(ctx context.Context, profileID string) (*pos.PrinterProfile, error) {
	if profileID == "" {
		return nil, pos.ErrProfileNotFound
	}
	return w.store.GetProfile(ctx, profileID)
}

func (w *Worker) buildPayload(ctx context.Context, job *pos.PrintJob, profile *pos.PrinterProfile) ([]byte, error) {
	if profile.BitmapFallback && w.encoder.RequiresRaster(&job.Receipt) {
		image, err := w.raster.Rasterize(ctx, &job.Receipt, profile)
		if err != nil {
			return nil, err
		}
		return w.encoder.Bitmap(image, profile), nil
	}
	return w.encoder.Receipt(&job.Receipt, profile), nil
}

// deliver sends the payload under the execution deadline, which is
// independent of the transport's own connect timeout.
func (w *Worker) deliver(ctx context.Context, profile *pos.PrinterProfile, payload []byte) error {
	port := profile.Port
	if port == 0 {
		port = pos.DefaultPrinterPort
	}

	sendCtx, cancel := context.WithTimeout(ctx, w.cfg.JobTimeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- w.transport.Send(sendCtx, profile.IP, port, payload)
	}()

	select {
	case err := <-errCh:
		return err
	case <-sendCtx.Done():
		return fmt.Errorf("print timed out")
	}
}

// settleFailure applies the retry decision: schedule another attempt with
// backoff while attempts remain, otherwise fail terminally.
func (w *Worker) settleFailure(ctx context.Context, job *pos.PrintJob, msg string) {
	job.LastError = msg

	if job.Attempts < job.MaxAttempts {
		job.Status = pos.JobStatusRetrying
		next := time.Now().Add(w.Backoff(job.Attempts))
		job.NextAttemptAt = &next
	} else {
		job.Status = pos.JobStatusFailed
		job.NextAttemptAt = nil
	}

	if err := w.store.UpdateJob(ctx, job); err != nil {
		log.Printf("worker: failed to update job %d after failure: %v", job.ID, err)
		return
	}

	if job.Status == pos.JobStatusFailed {
		log.Printf("worker: job %d failed after %d attempts: %s", job.ID, job.Attempts, msg)
		w.notify(EventJobFailed, job)
	} else {
		w.notify(EventJobRetrying, job)
	}
}

// Backoff computes the delay before the next attempt:
// min(base * 2^(attempts-1), max), so 4s, 8s, 16s, 32s, 60s, 60s, ...
func (w *Worker) Backoff(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	if attempts > 32 {
		attempts = 32
	}
	delay := w.cfg.BaseDelay << uint(attempts-1)
	if delay <= 0 || delay > w.cfg.MaxDelay {
		delay = w.cfg.MaxDelay
	}
	return delay
}

// ListJobs returns jobs most-recent-first, bounded by limit.
func (w *Worker) ListJobs(ctx context.Context, limit int) ([]*pos.PrintJob, error) {
	return w.store.ListJobs(ctx, limit)
}

// RetryJob resets a failed job to pending. The error and schedule are
// cleared; the attempt count is deliberately kept, so the job gets exactly
// one more attempt before the ceiling re-applies.
func (w *Worker) RetryJob(ctx context.Context, id int64) error {
	job, err := w.store.GetJob(ctx, id)
	if err != nil {
		return err
	}
	if job.Status != pos.JobStatusFailed {
		return fmt.Errorf("%w: only failed jobs can be retried, got %s", ErrInvalidJobState, job.Status)
	}

	job.Status = pos.JobStatusPending
	job.LastError = ""
	job.NextAttemptAt = nil
	if err := w.store.UpdateJob(ctx, job); err != nil {
		return fmt.Errorf("failed to retry job: %w", err)
	}

	go w.ProcessQueue(context.Background(), true)
	return nil
}

// CancelJob moves a non-terminal job to cancelled. Cancellation prevents
// future execution only; it does not abort an in-flight write.
func (w *Worker) CancelJob(ctx context.Context, id int64) error {
	job, err := w.store.GetJob(ctx, id)
	if err != nil {
		return err
	}
	if job.Status.Terminal() {
		return fmt.Errorf("%w: job cannot be cancelled in state %s", ErrInvalidJobState, job.Status)
	}

	job.Status = pos.JobStatusCancelled
	job.NextAttemptAt = nil
	if err := w.store.UpdateJob(ctx, job); err != nil {
		return fmt.Errorf("failed to cancel job: %w", err)
	}

	w.notify(EventJobCancelled, job)
	return nil
}

// ClearSuccessful purges all success jobs, handing them to the archiver
// first when one is installed.
func (w *Worker) ClearSuccessful(ctx context.Context) (int64, error) {
	if w.archiver != nil {
		jobs, err := w.store.ListJobsByStatus(ctx, pos.JobStatusSuccess)
		if err != nil {
			return 0, err
		}
		if len(jobs) > 0 {
			if err := w.archiver.ArchiveJobs(jobs); err != nil {
				log.Printf("worker: failed to archive %d jobs before purge: %v", len(jobs), err)
			}
		}
	}
	return w.store.DeleteJobsByStatus(ctx, pos.JobStatusSuccess)
}

func (w *Worker) Stats(ctx context.Context) (*QueueStats, error) {
	counts, err := w.store.CountJobsByStatus(ctx)
	if err != nil {
		return nil, err
	}
	stats := &QueueStats{}
	for status, count := range counts {
		stats.Total += count
		switch status {
		case pos.JobStatusPending:
			stats.Pending = count
		case pos.JobStatusPrinting:
			stats.Printing = count
		case pos.JobStatusRetrying:
			stats.Retrying = count
		case pos.JobStatusSuccess:
			stats.Success = count
		case pos.JobStatusFailed:
			stats.Failed = count
		case pos.JobStatusCancelled:
			stats.Cancelled = count
		}
	}
	return stats, nil
}

func (w *Worker) notify(event string, job *pos.PrintJob) {
	if w.events != nil {
		w.events.JobEvent(event, job)
	}
}
