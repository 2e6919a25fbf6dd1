package pos

import (
	"errors"
	"math"
	"time"
)

var (
	ErrProfileNotFound = errors.New("printer profile not found")
	ErrJobNotFound     = errors.New("print job not found")
)

type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusPrinting  JobStatus = "printing"
	JobStatusRetrying  JobStatus = "retrying"
	JobStatusSuccess   JobStatus = "success"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Terminal reports whether a job in this status will never run again.
func (s JobStatus) Terminal() bool {
	return s == JobStatusSuccess || s == JobStatusFailed || s == JobStatusCancelled
}

type JobType string

const (
	JobTypeReceipt JobType = "receipt"
	JobTypeTest    JobType = "test"
)

type CutMode string

const (
	CutPartial CutMode = "partial"
	CutFull    CutMode = "full"
	CutNone    CutMode = "none"
)

const (
	DefaultPrinterPort = 9100
	DefaultMaxAttempts = 3
)

// PrinterProfile describes one physical thermal printer on the LAN.
type PrinterProfile struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	IP             string    `json:"ip"`
	Port           int       `json:"port"`
	PaperWidthMM   int       `json:"paper_width_mm"`
	TextEncoding   string    `json:"text_encoding"`
	CodePage       int       `json:"code_page"`
	CutMode        CutMode   `json:"cut_mode"`
	DrawerKick     bool      `json:"drawer_kick"`
	BitmapFallback bool      `json:"bitmap_fallback"`
	IsDefault      bool      `json:"is_default"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Columns maps paper width to the fixed character width that governs all
// wrapping and right-alignment. 80mm paper carries 42 columns, everything
// else 32.
func (p *PrinterProfile) Columns() int {
	if p.PaperWidthMM == 80 {
		return 42
	}
	return 32
}

type LineItem struct {
	Name      string  `json:"name"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// ReceiptData is an immutable snapshot of what must be printed. Totals are
// computed upstream; this subsystem never prices anything.
type ReceiptData struct {
	StoreName        string     `json:"store_name"`
	Address          string     `json:"address,omitempty"`
	Phone            string     `json:"phone,omitempty"`
	ReceiptNumber    string     `json:"receipt_number"`
	Timestamp        string     `json:"timestamp"`
	CustomerName     string     `json:"customer_name,omitempty"`
	Items            []LineItem `json:"items"`
	Subtotal         float64    `json:"subtotal"`
	Tax              float64    `json:"tax"`
	Total            float64    `json:"total"`
	AmountPaid       float64    `json:"amount_paid,omitempty"`
	ChangeAmount     float64    `json:"change_amount,omitempty"`
	RemainingBalance float64    `json:"remaining_balance,omitempty"`
	CreditUsed       float64    `json:"credit_used,omitempty"`
	PaymentMethod    string     `json:"payment_method,omitempty"`
	CurrencyCode     string     `json:"currency_code,omitempty"`
	FooterText       string     `json:"footer_text,omitempty"`
	ExtraFooterLines []string   `json:"extra_footer_lines,omitempty"`
}

// Normalize coerces every non-finite monetary field to 0. Malformed numbers
// are a normalization policy here, not an error.
func (r *ReceiptData) Normalize() {
	r.Subtotal = finite(r.Subtotal)
	r.Tax = finite(r.Tax)
	r.Total = finite(r.Total)
	r.AmountPaid = finite(r.AmountPaid)
	r.ChangeAmount = finite(r.ChangeAmount)
	r.RemainingBalance = finite(r.RemainingBalance)
	r.CreditUsed = finite(r.CreditUsed)
	for i := range r.Items {
		r.Items[i].Quantity = finite(r.Items[i].Quantity)
		r.Items[i].UnitPrice = finite(r.Items[i].UnitPrice)
	}
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// PrintJob is a unit of work. The store is the sole source of truth; every
// transition is a read-modify-write against one row.
type PrintJob struct {
	ID            int64       `json:"id"`
	ProfileID     string      `json:"profile_id"`
	Type          JobType     `json:"type"`
	Receipt       ReceiptData `json:"receipt"`
	Status        JobStatus   `json:"status"`
	Attempts      int         `json:"attempts"`
	MaxAttempts   int         `json:"max_attempts"`
	LastError     string      `json:"last_error,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
	LastAttemptAt *time.Time  `json:"last_attempt_at,omitempty"`
	NextAttemptAt *time.Time  `json:"next_attempt_at,omitempty"`
}
