package core

import (
	"context"
	"errors"
	"time"

	"github.com/Ayesha-Siddiqa-khan/AssanPOS-V1.4-offline-sub003/internal/pos"
)

// ErrInvalidJobState marks a job action rejected because the job's current
// status does not admit it.
var ErrInvalidJobState = errors.New("invalid job state")

// Store is the persistent source of truth for jobs and profiles. Every
// mutation of a single job must be effectively atomic.
type Store interface {
	GetProfile(ctx context.Context, id string) (*pos.PrinterProfile, error)
	CreateJob(ctx context.Context, job *pos.PrintJob) error
	GetJob(ctx context.Context, id int64) (*pos.PrintJob, error)
	UpdateJob(ctx context.Context, job *pos.PrintJob) error
	NextEligibleJob(ctx context.Context, now time.Time) (*pos.PrintJob, error)
	ListJobs(ctx context.Context, limit int) ([]*pos.PrintJob, error)
	ListJobsByStatus(ctx context.Context, status pos.JobStatus) ([]*pos.PrintJob, error)
	DeleteJobsByStatus(ctx context.Context, statuses ...pos.JobStatus) (int64, error)
	CountJobsByStatus(ctx context.Context) (map[pos.JobStatus]int, error)
}

// Encoder turns a receipt into device bytes.
type Encoder interface {
	Receipt(r *pos.ReceiptData, p *pos.PrinterProfile) []byte
	Bitmap(image []byte, p *pos.PrinterProfile) []byte
	RequiresRaster(r *pos.ReceiptData) bool
}

// Transport delivers a byte buffer to a device.
type Transport interface {
	Available() bool
	Send(ctx context.Context, ip string, port int, payload []byte) error
}

// Rasterizer is the optional bitmap rendering collaborator. It rasterizes a
// receipt into an opaque image block when the text protocol cannot carry the
// content.
type Rasterizer interface {
	Rasterize(ctx context.Context, r *pos.ReceiptData, p *pos.PrinterProfile) ([]byte, error)
}

// ErrRasterUnavailable is reported by the null rasterizer installed when no
// rendering collaborator exists in this build.
var ErrRasterUnavailable = errors.New("bitmap rendering unavailable")

type nullRasterizer struct{}

func (nullRasterizer) Rasterize(context.Context, *pos.ReceiptData, *pos.PrinterProfile) ([]byte, error) {
	return nil, ErrRasterUnavailable
}

// EventSink observes job lifecycle transitions. Implementations must not
// block the worker.
type EventSink interface {
	JobEvent(event string, job *pos.PrintJob)
}

// Archiver receives successful jobs before a bulk purge removes them.
type Archiver interface {
	ArchiveJobs(jobs []*pos.PrintJob) error
}
