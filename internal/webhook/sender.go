package webhook

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/Ayesha-Siddiqa-khan/AssanPOS-V1.4-offline-sub003/internal/config"
	"github.com/Ayesha-Siddiqa-khan/AssanPOS-V1.4-offline-sub003/internal/pos"
)

type payload struct {
	Event     string       `json:"event"`
	Timestamp time.Time    `json:"timestamp"`
	Job       jobEventData `json:"job"`
	Signature string       `json:"signature,omitempty"`
}

type jobEventData struct {
	JobID     int64         `json:"job_id"`
	ProfileID string        `json:"profile_id,omitempty"`
	Type      pos.JobType   `json:"type"`
	Status    pos.JobStatus `json:"status"`
	Attempts  int           `json:"attempts"`
	LastError string        `json:"last_error,omitempty"`
}

type task struct {
	payload *payload
	attempt int
}

// Sender delivers job lifecycle events to a configured endpoint
// asynchronously, signing each body with HMAC-SHA256 when a secret is set.
// Events are dropped, never blocking the worker, when the buffer is full.
type Sender struct {
	url        string
	secret     []byte
	httpClient *http.Client
	retryCount int
	retryDelay time.Duration
	queue      chan *task
	stopCh     chan struct{}
	wg         sync.WaitGroup
}

// NewSender returns nil when no webhook URL is configured.
func NewSender(cfg *config.WebhookConfig) *Sender {
	if cfg == nil || cfg.URL == "" {
		return nil
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	retryCount := cfg.RetryCount
	if retryCount <= 0 {
		retryCount = 3
	}
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = 5 * time.Second
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 100
	}
	workers := cfg.WorkerCount
	if workers <= 0 {
		workers = 2
	}

	s := &Sender{
		url:        cfg.URL,
		secret:     []byte(cfg.Secret),
		httpClient: &http.Client{Timeout: timeout},
		retryCount: retryCount,
		retryDelay: retryDelay,
		queue:      make(chan *task, queueSize),
		stopCh:     make(chan struct{}),
	}

	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}
	return s
}

func (s *Sender) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

// JobEvent implements the worker's event sink.
func (s *Sender) JobEvent(event string, job *pos.PrintJob) {
	p := &payload{
		Event:     event,
		Timestamp: time.Now().UTC(),
		Job: jobEventData{
			JobID:     job.ID,
			ProfileID: job.ProfileID,
			Type:      job.Type,
			Status:    job.Status,
			Attempts:  job.Attempts,
			LastError: job.LastError,
		},
	}

	select {
	case s.queue <- &task{payload: p}:
	default:
		log.Printf("webhook: queue full, dropping %s event for job %d", event, job.ID)
	}
}

func (s *Sender) worker() {
	defer s.wg.Done()
	for {
		select {
		case <-s.stopCh:
			return
		case t := <-s.queue:
			s.send(t)
		}
	}
}

func (s *Sender) send(t *task) {
	body, err := json.Marshal(t.payload)
	if err != nil {
		log.Printf("webhook: failed to encode payload: %v", err)
		return
	}

	req, err := http.NewRequest(http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		log.Printf("webhook: failed to build request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if len(s.secret) > 0 {
		req.Header.Set("X-Printd-Signature", s.sign(body))
	}

	resp, err := s.httpClient.Do(req)
	if err == nil {
		resp.Body.Close()
		if resp.StatusCode < 300 {
			return
		}
		log.Printf("webhook: endpoint returned %d for %s", resp.StatusCode, t.payload.Event)
	} else {
		log.Printf("webhook: delivery failed: %v", err)
	}

	if t.attempt+1 < s.retryCount {
		t.attempt++
		time.AfterFunc(s.retryDelay, func() {
			select {
			case s.queue <- t:
			default:
			}
		})
	}
}

func (s *Sender) sign(body []byte) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
