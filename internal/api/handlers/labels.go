package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/orrn/ticket-spool/internal/core"
)

type LabelRenderer interface {
	Render(job core.Job) ([]byte, error)
	LabelFormat() core.LabelFormat
}

type PreviewResponse struct {
	Format  core.LabelFormat `json:"format"`
	Content string           `json:"content,omitempty"`
	// Data carries ESC/POS output, which is binary.
	Data []byte `json:"data,omitempty"`
}

type ValidateResponse struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// LabelHandler renders patient labels without printing them.
type LabelHandler struct {
	renderer LabelRenderer
	location *time.Location
}

func NewLabelHandler(renderer LabelRenderer, location *time.Location) *LabelHandler {
	if location == nil {
		location = time.Local
	}
	return &LabelHandler{renderer: renderer, location: location}
}

func (h *LabelHandler) Preview(c *gin.Context) {
	var req BarcodeRequest
	dec := json.NewDecoder(c.Request.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil || len(req.Peserta) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": msgPatientRequired})
		return
	}

	data, err := h.renderer.Render(&core.LabelJob{
		Patient: core.NormalizePatient(req.Peserta, h.location),
		Copies:  req.Copies,
	})
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"success": false, "message": err.Error()})
		return
	}

	format := h.renderer.LabelFormat()
	resp := PreviewResponse{Format: format}
	if format == core.LabelFormatESCPOS {
		resp.Data = data
	} else {
		resp.Content = string(data)
	}
	c.JSON(http.StatusOK, resp)
}

func (h *LabelHandler) ValidateLayout(c *gin.Context) {
	var layout core.LabelLayout
	if err := c.ShouldBindJSON(&layout); err != nil {
		c.JSON(http.StatusOK, ValidateResponse{
			Valid:  false,
			Errors: []string{"invalid layout JSON format"},
		})
		return
	}

	errs, warnings := layout.Check()
	c.JSON(http.StatusOK, ValidateResponse{
		Valid:    len(errs) == 0,
		Errors:   errs,
		Warnings: warnings,
	})
}
