package archive

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Ayesha-Siddiqa-khan/AssanPOS-V1.4-offline-sub003/internal/config"
	"github.com/Ayesha-Siddiqa-khan/AssanPOS-V1.4-offline-sub003/internal/pos"
)

// Archiver appends purged successful jobs to a dated JSONL file, keeping an
// audit trail of printed receipts after the queue is cleared.
type Archiver struct {
	path string
	mu   sync.Mutex
}

func NewArchiver(cfg *config.ArchiveConfig) *Archiver {
	if cfg == nil || !cfg.Enabled || cfg.Path == "" {
		return nil
	}
	return &Archiver{path: cfg.Path}
}

type archivedJob struct {
	JobID         int64           `json:"job_id"`
	ProfileID     string          `json:"profile_id,omitempty"`
	Type          pos.JobType     `json:"type"`
	Attempts      int             `json:"attempts"`
	Receipt       pos.ReceiptData `json:"receipt"`
	CreatedAt     time.Time       `json:"created_at"`
	LastAttemptAt *time.Time      `json:"last_attempt_at,omitempty"`
	ArchivedAt    time.Time       `json:"archived_at"`
}

func (a *Archiver) ArchiveJobs(jobs []*pos.PrintJob) error {
	if len(jobs) == 0 {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := os.MkdirAll(a.path, 0o755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}

	name := fmt.Sprintf("jobs-%s.jsonl", time.Now().UTC().Format("2006-01-02"))
	f, err := os.OpenFile(filepath.Join(a.path, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open archive file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	now := time.Now().UTC()
	for _, job := range jobs {
		record := archivedJob{
			JobID:         job.ID,
			ProfileID:     job.ProfileID,
			Type:          job.Type,
			Attempts:      job.Attempts,
			Receipt:       job.Receipt,
			CreatedAt:     job.CreatedAt,
			LastAttemptAt: job.LastAttemptAt,
			ArchivedAt:    now,
		}
		if err := enc.Encode(&record); err != nil {
			return fmt.Errorf("failed to write archive record: %w", err)
		}
	}
	return nil
}
