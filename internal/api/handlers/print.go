package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/orrn/ticket-spool/internal/api/middleware"
	"github.com/orrn/ticket-spool/internal/core"
)

const (
	msgPrinted         = "Perintah cetak berhasil diproses."
	msgPrintFailed     = "Gagal mencetak."
	msgQueueRequired   = "queueNumber dan poliName wajib diisi."
	msgPatientRequired = "Data peserta wajib diisi."
)

type JobSubmitter interface {
	Submit(ctx context.Context, job core.Job) (*core.JobResult, error)
}

type PrintResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	JobID   string `json:"job_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

type BarcodeRequest struct {
	Peserta map[string]any `json:"peserta"`
	Copies  core.CopyCount `json:"copies"`
}

type PrintHandler struct {
	submitter JobSubmitter
	location  *time.Location
}

func NewPrintHandler(submitter JobSubmitter, location *time.Location) *PrintHandler {
	if location == nil {
		location = time.Local
	}
	return &PrintHandler{submitter: submitter, location: location}
}

func (h *PrintHandler) PrintTicket(c *gin.Context) {
	var job core.TicketJob
	if err := c.ShouldBindJSON(&job); err != nil || isBlank(string(job.QueueNumber)) || isBlank(job.Destination) {
		c.JSON(http.StatusBadRequest, PrintResponse{Success: false, Message: msgQueueRequired})
		return
	}
	h.submit(c, &job)
}

func (h *PrintHandler) PrintApm(c *gin.Context) {
	var job core.ApmJob
	if err := c.ShouldBindJSON(&job); err != nil || isBlank(string(job.QueueNumber)) || isBlank(job.PoliName) {
		c.JSON(http.StatusBadRequest, PrintResponse{Success: false, Message: msgQueueRequired})
		return
	}
	h.submit(c, &job)
}

// PrintLabel decodes with UseNumber so long MRN and NIK values keep every
// digit.
func (h *PrintHandler) PrintLabel(c *gin.Context) {
	var req BarcodeRequest
	dec := json.NewDecoder(c.Request.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil || len(req.Peserta) == 0 {
		c.JSON(http.StatusBadRequest, PrintResponse{Success: false, Message: msgPatientRequired})
		return
	}

	h.submit(c, &core.LabelJob{
		Patient: core.NormalizePatient(req.Peserta, h.location),
		Copies:  req.Copies,
	})
}

func (h *PrintHandler) submit(c *gin.Context, job core.Job) {
	result, err := h.submitter.Submit(c.Request.Context(), job)
	if err != nil {
		middleware.RequestLogger(c).Error("print failed", zap.String("job_id", jobID(result)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, PrintResponse{
			Success: false,
			Message: msgPrintFailed,
			JobID:   jobID(result),
			Error:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, PrintResponse{Success: true, Message: msgPrinted, JobID: result.JobID})
}

func jobID(r *core.JobResult) string {
	if r == nil {
		return ""
	}
	return r.JobID
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
