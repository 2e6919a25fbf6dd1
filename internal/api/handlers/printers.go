package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Ayesha-Siddiqa-khan/AssanPOS-V1.4-offline-sub003/internal/core"
	"github.com/Ayesha-Siddiqa-khan/AssanPOS-V1.4-offline-sub003/internal/db"
	"github.com/Ayesha-Siddiqa-khan/AssanPOS-V1.4-offline-sub003/internal/discovery"
	"github.com/Ayesha-Siddiqa-khan/AssanPOS-V1.4-offline-sub003/internal/escpos"
	"github.com/Ayesha-Siddiqa-khan/AssanPOS-V1.4-offline-sub003/internal/pos"
)

type CreatePrinterRequest struct {
	Name           string `json:"name" binding:"required"`
	IP             string `json:"ip" binding:"required,ip"`
	Port           int    `json:"port"`
	PaperWidthMM   int    `json:"paper_width_mm"`
	TextEncoding   string `json:"text_encoding"`
	CodePage       int    `json:"code_page"`
	CutMode        string `json:"cut_mode"`
	DrawerKick     bool   `json:"drawer_kick"`
	BitmapFallback bool   `json:"bitmap_fallback"`
}

type PrinterHandler struct {
	worker *core.Worker
	prober *discovery.Prober
}

func NewPrinterHandler(worker *core.Worker, prober *discovery.Prober) *PrinterHandler {
	return &PrinterHandler{worker: worker, prober: prober}
}

func (r *CreatePrinterRequest) apply(p *pos.PrinterProfile) error {
	if r.Port == 0 {
		r.Port = pos.DefaultPrinterPort
	}
	if r.PaperWidthMM == 0 {
		r.PaperWidthMM = 80
	}
	if r.PaperWidthMM != 58 && r.PaperWidthMM != 80 {
		return fmt.Errorf("paper width must be 58 or 80, got %d", r.PaperWidthMM)
	}
	if r.TextEncoding == "" {
		r.TextEncoding = "cp437"
	}
	if !escpos.IsSupportedEncoding(r.TextEncoding) {
		return fmt.Errorf("unsupported text encoding: %s", r.TextEncoding)
	}
	if r.CodePage < 0 || r.CodePage > 255 {
		return fmt.Errorf("code page must be between 0 and 255, got %d", r.CodePage)
	}
	if r.CutMode == "" {
		r.CutMode = string(pos.CutPartial)
	}
	switch pos.CutMode(r.CutMode) {
	case pos.CutPartial, pos.CutFull, pos.CutNone:
	default:
		return fmt.Errorf("invalid cut mode: %s", r.CutMode)
	}

	p.Name = r.Name
	p.IP = r.IP
	p.Port = r.Port
	p.PaperWidthMM = r.PaperWidthMM
	p.TextEncoding = r.TextEncoding
	p.CodePage = r.CodePage
	p.CutMode = pos.CutMode(r.CutMode)
	p.DrawerKick = r.DrawerKick
	p.BitmapFallback = r.BitmapFallback
	return nil
}

func (h *PrinterHandler) CreatePrinter(c *gin.Context) {
	var req CreatePrinterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile := &pos.PrinterProfile{ID: uuid.NewString()}
	if err := req.apply(profile); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := db.Profiles.CreateProfile(c.Request.Context(), profile); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create printer"})
		return
	}

	c.JSON(http.StatusCreated, profile)
}

func (h *PrinterHandler) ListPrinters(c *gin.Context) {
	profiles, err := db.Profiles.ListProfiles(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list printers"})
		return
	}
	if profiles == nil {
		profiles = []*pos.PrinterProfile{}
	}
	c.JSON(http.StatusOK, profiles)
}

func (h *PrinterHandler) GetPrinter(c *gin.Context) {
	profile, err := db.Profiles.GetProfileByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, pos.ErrProfileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "printer not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get printer"})
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *PrinterHandler) UpdatePrinter(c *gin.Context) {
	profile, err := db.Profiles.GetProfileByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, pos.ErrProfileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "printer not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get printer"})
		return
	}

	var req CreatePrinterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.apply(profile); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := db.Profiles.UpdateProfile(c.Request.Context(), profile); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update printer"})
		return
	}

	c.JSON(http.StatusOK, profile)
}

func (h *PrinterHandler) DeletePrinter(c *gin.Context) {
	if err := db.Profiles.DeleteProfile(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete printer"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "printer deleted"})
}

func (h *PrinterHandler) SetDefaultPrinter(c *gin.Context) {
	err := db.Profiles.SetDefaultProfile(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, pos.ErrProfileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "printer not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to set default printer"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "default printer updated"})
}

// Discover scans the local /24 for listening devices. Best-effort: a missing
// transport capability yields an empty list, not an error.
func (h *PrinterHandler) Discover(c *gin.Context) {
	devices, err := h.prober.Scan(c.Request.Context(), nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "scan interrupted"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"devices": devices, "count": len(devices)})
}

// TestPrint enqueues a test job with synthetic receipt data for one printer.
func (h *PrinterHandler) TestPrint(c *gin.Context) {
	id := c.Param("id")
	if _, err := db.Profiles.GetProfileByID(c.Request.Context(), id); err != nil {
		if errors.Is(err, pos.ErrProfileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "printer not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get printer"})
		return
	}

	receipt := pos.ReceiptData{
		StoreName:     "AssanPOS",
		ReceiptNumber: "TEST",
		Timestamp:     time.Now().Format("2006-01-02 15:04:05"),
		Items: []pos.LineItem{
			{Name: "Test print", Quantity: 1, UnitPrice: 0},
		},
		FooterText: "Printer test successful",
	}

	jobID, err := h.worker.Enqueue(c.Request.Context(), id, receipt, core.EnqueueOptions{Type: pos.JobTypeTest})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue test job"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": jobID, "message": "test job submitted"})
}
