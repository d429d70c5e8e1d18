package payments

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/fanforge/creatorpay/app/models"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// Sentinel errors that drive the webhook response policy. Both map to a
// retryable (5xx) response: validation failures are often transient upstream
// and referential failures mean the local store fell behind the processor, so
// redelivery gives reconciliation a chance to catch up.
var (
	ErrPayloadValidation    = errors.New("event payload failed validation")
	ErrReferentialIntegrity = errors.New("event references state unknown to the local store")
)

var validate = validator.New()

// Service applies processor notifications to local state: subscription
// lifecycle, revenue split, payout transfers and earnings accrual. It holds no
// mutable state of its own; every invocation is an independent unit of work
// and all shared state lives behind the repository.
type Service struct {
	repo      Repository
	processor ProcessorAPI
	cfg       *Config
}

// NewService creates a payments service from injected collaborators.
func NewService(repo Repository, processor ProcessorAPI, cfg *Config) *Service {
	return &Service{repo: repo, processor: processor, cfg: cfg}
}

// NewServiceFromDB creates a payments service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB, cfg *Config) *Service {
	return NewService(NewRepository(db), NewProcessorClient(cfg), cfg)
}

// WebhookEventInput is the normalized input for webhook event persistence.
type WebhookEventInput struct {
	Provider        string
	ProviderEventID string
	EventType       string
	PayloadJSON     string
	SignatureValid  bool
}

// RecordWebhookEvent persists webhook payloads idempotently. Events without a
// usable id fall back to a payload hash so replays still collapse onto one row.
func (s *Service) RecordWebhookEvent(ctx context.Context, in WebhookEventInput) (bool, *models.PaymentWebhookEvent, error) {
	_ = ctx
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if provider == "" {
		return false, nil, errors.New("provider is required")
	}
	eventID := strings.TrimSpace(in.ProviderEventID)
	if eventID == "" {
		sum := sha256.Sum256([]byte(in.PayloadJSON))
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.PaymentWebhookEvent{
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       strings.TrimSpace(in.EventType),
		PayloadJSON:     in.PayloadJSON,
		SignatureValid:  in.SignatureValid,
	}
	return s.repo.CreateWebhookEventIfNotExists(event)
}

// MarkWebhookProcessed marks an event as processed and stores an optional error.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	_ = ctx
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(webhookEventID, errMsg)
}
