package handlers

import (
	"context"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/orrn/ticket-spool/internal/core"
)

type TargetLister interface {
	Targets(kind core.JobKind) []core.PrinterTarget
}

type StatusChecker interface {
	CheckStatus(ctx context.Context, address string) *core.PrinterStatus
}

type PrinterResponse struct {
	Kind     core.JobKind        `json:"kind"`
	Priority int                 `json:"priority"`
	Target   core.PrinterTarget  `json:"target"`
	Status   *core.PrinterStatus `json:"status"`
}

type PrinterHandler struct {
	targets TargetLister
	prober  StatusChecker
}

func NewPrinterHandler(targets TargetLister, prober StatusChecker) *PrinterHandler {
	return &PrinterHandler{targets: targets, prober: prober}
}

var jobKinds = []core.JobKind{core.JobKindTicket, core.JobKindAPM, core.JobKindLabel}

// ListPrinters reports the failover order for each job kind. Network targets
// are probed concurrently; share targets report "unknown".
func (h *PrinterHandler) ListPrinters(c *gin.Context) {
	kinds := jobKinds
	if k := core.JobKind(c.Query("kind")); k != "" {
		if !k.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job kind"})
			return
		}
		kinds = []core.JobKind{k}
	}

	resp := make([]PrinterResponse, 0)
	for _, kind := range kinds {
		for i, t := range h.targets.Targets(kind) {
			resp = append(resp, PrinterResponse{Kind: kind, Priority: i + 1, Target: t})
		}
	}

	var wg sync.WaitGroup
	for i := range resp {
		wg.Add(1)
		go func(p *PrinterResponse) {
			defer wg.Done()
			p.Status = h.prober.CheckStatus(c.Request.Context(), p.Target.Address)
		}(&resp[i])
	}
	wg.Wait()

	c.JSON(http.StatusOK, resp)
}
