package handler

import (
	"bytes"
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"attendancereport/internal/attendance"
	"attendancereport/internal/auth"
	"attendancereport/internal/clock"
	"attendancereport/internal/exporter"
	"attendancereport/internal/queue"
	"attendancereport/internal/summary"
)

// Reports is the part of attendance.Service the handlers use.
type Reports interface {
	Summary(ctx context.Context, q attendance.Query) ([]summary.Row, error)
	Mark(ctx context.Context, personID, movementID int, ip string) (attendance.StoredEvent, bool, error)
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) bool

// Handler serves the report, mark and export endpoints.
type Handler struct {
	reports   Reports
	queue     queue.Queue
	adminRole string
	clock     clock.Clock
	checks    map[string]HealthCheck
}

// New creates a handler. q may be nil, in which case exports are unavailable.
func New(reports Reports, q queue.Queue, adminRole string, clk clock.Clock) *Handler {
	if clk == nil {
		clk = clock.System{}
	}
	return &Handler{
		reports:   reports,
		queue:     q,
		adminRole: adminRole,
		clock:     clk,
		checks:    map[string]HealthCheck{},
	}
}

// WithHealthCheck adds a named dependency to /healthz.
func (h *Handler) WithHealthCheck(name string, check HealthCheck) *Handler {
	h.checks[name] = check
	return h
}

// Register mounts the routes. authMW guards /v1; extra middleware runs after it.
func (h *Handler) Register(r gin.IRouter, authMW gin.HandlerFunc, extra ...gin.HandlerFunc) {
	r.GET("/healthz", h.Healthz)

	v1 := r.Group("/v1", append([]gin.HandlerFunc{authMW}, extra...)...)
	v1.GET("/reports/summary", h.Summary)
	v1.POST("/events", h.Mark)
	v1.POST("/exports", auth.RequireRole(h.adminRole), h.EnqueueExport)
}

// Healthz reports every registered check; any failure yields 503.
func (h *Handler) Healthz(c *gin.Context) {
	body := gin.H{"status": "ok"}
	status := http.StatusOK
	for name, check := range h.checks {
		ok := check(c.Request.Context())
		body[name] = ok
		if !ok {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}
	c.JSON(status, body)
}

// Summary renders the attendance summary as JSON, CSV or XLSX. Callers
// without the admin role only receive their own row.
func (h *Handler) Summary(c *gin.Context) {
	claims, _ := auth.ClaimsFrom(c)
	q := attendance.Query{From: c.Query("from"), To: c.Query("to"), Name: c.Query("name")}

	format := strings.ToLower(strings.TrimSpace(c.Query("format")))
	var fileFormat exporter.Format
	if format != "" && format != "json" {
		f, err := exporter.ParseFormat(format)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		fileFormat = f
	}

	rows, err := h.reports.Summary(c.Request.Context(), q)
	if err != nil {
		if isRangeError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		log.Printf("summary failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "summary failed"})
		return
	}
	if !claims.IsAdmin(h.adminRole) {
		rows = summary.ForPerson(rows, claims.PersonID)
	}

	if fileFormat == "" {
		c.JSON(http.StatusOK, gin.H{"rows": rows, "totals": summary.Totals(rows)})
		return
	}

	var buf bytes.Buffer
	if err := exporter.Write(&buf, fileFormat, rows); err != nil {
		log.Printf("summary export failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="summary.`+string(fileFormat)+`"`)
	c.Data(http.StatusOK, fileFormat.ContentType(), buf.Bytes())
}

// Mark records a clock event. Non-admins may only mark for themselves; when
// person_id is omitted the caller's own id is used.
func (h *Handler) Mark(c *gin.Context) {
	var req struct {
		PersonID   int `json:"person_id"`
		MovementID int `json:"movement_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	claims, _ := auth.ClaimsFrom(c)
	if req.PersonID == 0 {
		req.PersonID = claims.PersonID
	}
	if req.PersonID != claims.PersonID && !claims.IsAdmin(h.adminRole) {
		c.JSON(http.StatusForbidden, gin.H{"error": "person mismatch"})
		return
	}

	evt, created, err := h.reports.Mark(c.Request.Context(), req.PersonID, req.MovementID, c.ClientIP())
	switch {
	case errors.Is(err, attendance.ErrPersonRequired), errors.Is(err, attendance.ErrUnknownMovement):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		log.Printf("mark failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "mark failed"})
		return
	}

	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{"event": evt, "created": created})
}

// EnqueueExport publishes an export job for the worker.
func (h *Handler) EnqueueExport(c *gin.Context) {
	if h.queue == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "export queue not configured"})
		return
	}
	var req struct {
		From   string `json:"from"`
		To     string `json:"to"`
		Name   string `json:"name"`
		Format string `json:"format"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := summary.ValidateRange(req.From, req.To); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	format, err := exporter.ParseFormat(req.Format)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job := attendance.NewExportJob(attendance.Query{From: req.From, To: req.To, Name: req.Name}, format, h.clock.Now())
	msg, err := job.Message()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "encode job failed"})
		return
	}
	if err := h.queue.Publish(c.Request.Context(), msg); err != nil {
		log.Printf("queue publish failed: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "export queue unavailable"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"job_id": job.ID, "file": job.FileName()})
}

func isRangeError(err error) bool {
	return errors.Is(err, summary.ErrInvalidFrom) ||
		errors.Is(err, summary.ErrInvalidTo) ||
		errors.Is(err, summary.ErrRangeOrder)
}
