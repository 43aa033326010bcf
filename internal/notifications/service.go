package notifications

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"qcflow/internal/config"
	"qcflow/internal/store"
)

const userAgent = "qcflow/0.1.0"

// Service defines the escalation surface exposed to workflow components.
type Service interface {
	NotifyErrorReport(ctx context.Context, job *store.Job, report *store.ErrorReport) error
	NotifyMaterialRejected(ctx context.Context, job *store.Job, mc *store.MaterialControl) error
	NotifyExternalRejected(ctx context.Context, job *store.Job, ep *store.ExternalProcess) error
	TestNotification(ctx context.Context) error
}

// Sink is the slice of the store the service writes through. Split out so
// tests can fail individual recipient writes.
type Sink interface {
	UsersWithRole(ctx context.Context, roles ...store.Role) ([]*store.User, error)
	CreateNotification(ctx context.Context, n *store.Notification) error
}

// NewService builds the escalation service. Recipients are the active users
// holding the configured quality roles; an ntfy push rides along when a topic
// is configured. With no sink a noop implementation is returned.
func NewService(cfg *config.Config, sink Sink, logger *slog.Logger) Service {
	if sink == nil {
		return noopService{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	roles := make([]store.Role, 0, len(cfg.Notifications.QualityRoles))
	for _, raw := range cfg.Notifications.QualityRoles {
		if role := strings.TrimSpace(raw); role != "" {
			roles = append(roles, store.Role(role))
		}
	}

	svc := &fanoutService{
		sink:   sink,
		roles:  roles,
		logger: logger,
	}
	if topic := strings.TrimSpace(cfg.Notifications.NtfyTopic); topic != "" {
		timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		svc.push = &ntfyPush{
			endpoint: topic,
			client:   &http.Client{Timeout: timeout},
		}
	}
	return svc
}

type fanoutService struct {
	sink   Sink
	roles  []store.Role
	push   *ntfyPush
	logger *slog.Logger
}

type payload struct {
	kind       string
	title      string
	message    string
	entityType string
	entityID   int64
	priority   string
}

func (s *fanoutService) NotifyErrorReport(ctx context.Context, job *store.Job, report *store.ErrorReport) error {
	data := payload{
		kind:       "error_report",
		title:      fmt.Sprintf("Error report on %s", job.JobNumber),
		message:    fmt.Sprintf("%s %s error: %s", report.Severity, report.ErrorType, report.Description),
		entityType: "error_report",
		entityID:   report.ID,
		priority:   priorityFor(report.Severity),
	}
	return s.deliver(ctx, data)
}

func (s *fanoutService) NotifyMaterialRejected(ctx context.Context, job *store.Job, mc *store.MaterialControl) error {
	data := payload{
		kind:       "material_rejected",
		title:      fmt.Sprintf("Material rejected on %s", job.JobNumber),
		message:    fmt.Sprintf("Incoming material %s rejected", mc.MaterialType),
		entityType: "material_control",
		entityID:   mc.ID,
		priority:   "high",
	}
	return s.deliver(ctx, data)
}

func (s *fanoutService) NotifyExternalRejected(ctx context.Context, job *store.Job, ep *store.ExternalProcess) error {
	data := payload{
		kind:       "external_rejected",
		title:      fmt.Sprintf("External process rejected on %s", job.JobNumber),
		message:    fmt.Sprintf("Returned parts from %s failed inspection", ep.ProcessType),
		entityType: "external_process",
		entityID:   ep.ID,
		priority:   "high",
	}
	return s.deliver(ctx, data)
}

func (s *fanoutService) TestNotification(ctx context.Context) error {
	data := payload{
		kind:     "test",
		title:    "qcflow test",
		message:  "Notification system test",
		priority: "low",
	}
	return s.deliver(ctx, data)
}

// deliver fans the payload out to every quality recipient. A failed write for
// one recipient never blocks the others; failures are logged and joined.
func (s *fanoutService) deliver(ctx context.Context, data payload) error {
	recipients, err := s.sink.UsersWithRole(ctx, s.roles...)
	if err != nil {
		return fmt.Errorf("resolve recipients: %w", err)
	}

	var errs []error
	for _, user := range recipients {
		writeErr := s.sink.CreateNotification(ctx, &store.Notification{
			UserID:         user.ID,
			Kind:           data.kind,
			Title:          data.title,
			Message:        data.message,
			LinkEntityType: data.entityType,
			LinkEntityID:   data.entityID,
		})
		if writeErr != nil {
			s.logger.Warn("notification write failed",
				slog.String("user", user.Name),
				slog.String("kind", data.kind),
				slog.String("error", writeErr.Error()))
			errs = append(errs, fmt.Errorf("notify %s: %w", user.Name, writeErr))
		}
	}

	if s.push != nil {
		if pushErr := s.push.send(ctx, data); pushErr != nil {
			s.logger.Warn("ntfy push failed", slog.String("error", pushErr.Error()))
			errs = append(errs, pushErr)
		}
	}
	return errors.Join(errs...)
}

func priorityFor(severity store.Severity) string {
	switch severity {
	case store.SeverityCritical:
		return "urgent"
	case store.SeverityMajor:
		return "high"
	default:
		return ""
	}
}

type ntfyPush struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyPush) send(ctx context.Context, data payload) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyErrorReport(context.Context, *store.Job, *store.ErrorReport) error { return nil }
func (noopService) NotifyMaterialRejected(context.Context, *store.Job, *store.MaterialControl) error {
	return nil
}
func (noopService) NotifyExternalRejected(context.Context, *store.Job, *store.ExternalProcess) error {
	return nil
}
func (noopService) TestNotification(context.Context) error { return nil }

// Noop returns a service that drops every notification. Intended for tests.
func Noop() Service { return noopService{} }
