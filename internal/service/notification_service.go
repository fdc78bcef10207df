package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/epcr-service/internal/config"
	"github.com/spec-kit/epcr-service/internal/events"
)

const webhookTimeout = 5 * time.Second

// NotificationService emits notifications for domain events and delivers sign-in codes.
// Webhook delivery posts JSON to NOTIFY_WEBHOOK_URL. Email delivery is a log line.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventPatientCreated, n.handlePatientCreated)
	n.dispatcher.Subscribe(events.EventAssessmentCompleted, n.handleAssessmentStatusChanged)
	n.dispatcher.Subscribe(events.EventAssessmentReopened, n.handleAssessmentStatusChanged)
	n.dispatcher.Subscribe(events.EventAssignmentCreated, n.handleAssignmentCreated)
}

type signInCodeMessage struct {
	Type  string `json:"type"`
	Email string `json:"email"`
	Code  string `json:"code"`
}

// SendSignInCode delivers a one-time code to email through the webhook, and to the log
// when LogSignInCodes is set. Delivery failures are logged and never returned so the
// caller's response does not depend on them.
func (n *NotificationService) SendSignInCode(ctx context.Context, email, code string) error {
	delivered := false
	if url := strings.TrimSpace(n.cfg.WebhookURL); url != "" {
		msg := signInCodeMessage{Type: "sign_in_code", Email: email, Code: code}
		if err := n.postWebhook(url, msg); err != nil {
			n.logger.Error("sign-in code webhook failed", zap.String("email", email), zap.Error(err))
		} else {
			delivered = true
		}
	}
	if n.cfg.LogSignInCodes {
		n.logger.Info("SignInCodeIssued", zap.String("email", email), zap.String("code", code))
		delivered = true
	}
	if !delivered {
		n.logger.Warn("sign-in code not delivered, no channel configured", zap.String("email", email))
	}
	return nil
}

func (n *NotificationService) handlePatientCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("PatientCreated", zap.String("deployment_id", event.DeploymentID), zap.String("patient_id", event.PatientID))
	n.sendWebhookNotification(event)
	return nil
}

func (n *NotificationService) handleAssessmentStatusChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("AssessmentStatusChanged",
		zap.String("event_type", string(event.Type)),
		zap.String("patient_id", event.PatientID),
		zap.Any("payload", event.Payload))
	n.sendWebhookNotification(event)
	return nil
}

func (n *NotificationService) handleAssignmentCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("AssignmentCreated", zap.String("deployment_id", event.DeploymentID), zap.Any("payload", event.Payload))
	n.sendEmailNotification(event)
	return nil
}

func (n *NotificationService) sendEmailNotification(event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotification",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("deployment_id", event.DeploymentID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotification(event events.Event) {
	url := strings.TrimSpace(n.cfg.WebhookURL)
	if url == "" {
		return
	}
	if err := n.postWebhook(url, event); err != nil {
		n.logger.Warn("event webhook failed",
			zap.String("event_type", string(event.Type)),
			zap.String("patient_id", event.PatientID),
			zap.Error(err))
	}
}

func (n *NotificationService) postWebhook(url string, payload interface{}) error {
	agent := fiber.Post(url).JSON(payload).Timeout(webhookTimeout)
	status, _, errs := agent.Bytes()
	if len(errs) > 0 {
		return errs[0]
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("webhook returned status %d", status)
	}
	return nil
}
