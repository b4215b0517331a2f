package attendance

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"attendancereport/internal/exporter"
	"attendancereport/internal/queue"
)

// MessageExport is the queue message type carrying an ExportJob.
const MessageExport = "export"

// ExportJob asks a worker to render a summary to a file.
type ExportJob struct {
	ID          string          `json:"id"`
	Query       Query           `json:"query"`
	Format      exporter.Format `json:"format"`
	RequestedAt time.Time       `json:"requested_at"`
}

// NewExportJob creates a job with a fresh id.
func NewExportJob(q Query, format exporter.Format, at time.Time) ExportJob {
	return ExportJob{ID: uuid.NewString(), Query: q, Format: format, RequestedAt: at.UTC()}
}

// Message encodes the job for the queue.
func (j ExportJob) Message() (queue.Message, error) {
	body, err := json.Marshal(j)
	if err != nil {
		return queue.Message{}, err
	}
	return queue.Message{Type: MessageExport, Body: body}, nil
}

// DecodeExportJob reads a job from a queue message.
func DecodeExportJob(msg queue.Message) (ExportJob, error) {
	if msg.Type != MessageExport {
		return ExportJob{}, fmt.Errorf("unexpected message type %q", msg.Type)
	}
	var j ExportJob
	if err := json.Unmarshal(msg.Body, &j); err != nil {
		return ExportJob{}, fmt.Errorf("decode export job: %w", err)
	}
	if j.ID == "" {
		return ExportJob{}, fmt.Errorf("export job without id")
	}
	return j, nil
}

// FileName is the file the job renders to.
func (j ExportJob) FileName() string {
	format := j.Format
	if format == "" {
		format = exporter.FormatCSV
	}
	return "summary-" + j.ID + "." + string(format)
}

// Export renders the job's summary into dir and returns the file path.
func (s *Service) Export(ctx context.Context, job ExportJob, dir string) (string, error) {
	format := job.Format
	if format == "" {
		format = exporter.FormatCSV
	}
	rows, err := s.Summary(ctx, job.Query)
	if err != nil {
		s.metrics.ObserveExport(string(format), "error")
		return "", err
	}
	path := filepath.Join(dir, job.FileName())
	if err := exporter.WriteFile(path, format, rows); err != nil {
		s.metrics.ObserveExport(string(format), "error")
		return "", fmt.Errorf("write export: %w", err)
	}
	s.metrics.ObserveExport(string(format), "ok")
	return path, nil
}

// RunExports consumes export jobs from q until ctx ends or the queue closes.
// Failed jobs are logged and skipped.
func (s *Service) RunExports(ctx context.Context, q queue.Queue, dir string) error {
	messages, err := q.Consume(ctx)
	if err != nil {
		return fmt.Errorf("consume exports: %w", err)
	}
	for msg := range messages {
		if msg.Type != MessageExport {
			continue
		}
		job, err := DecodeExportJob(msg)
		if err != nil {
			log.Printf("skipping export message: %v", err)
			continue
		}
		log.Printf("processing export %s (%s)", job.ID, job.Format)
		path, err := s.Export(ctx, job, dir)
		if err != nil {
			log.Printf("export %s failed: %v", job.ID, err)
			continue
		}
		log.Printf("export %s written to %s", job.ID, path)
	}
	return ctx.Err()
}
