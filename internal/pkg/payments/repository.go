package payments

import (
	"time"

	"github.com/fanforge/creatorpay/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides the DB operations used by the payments service. Counter
// mutations are expressed as store-level atomic increments and the idempotent
// inserts lean on unique indexes, never on application-level existence checks,
// because webhook deliveries for the same creator or invoice run concurrently.
// Subscriber-count changes commit in the same transaction as the subscription
// transition that causes them; a transition is never visible with its counter
// missing.
type Repository interface {
	GetCreatorByID(id uint) (*models.User, error)
	UpdateCreatorPayoutAccount(creatorID uint, payoutAccountID string, payoutsEnabled bool) error
	AddLifetimeEarnings(creatorID uint, amountCents int64) error

	GetSubscriptionByProcessorID(processorSubscriptionID string) (*models.Subscription, error)
	CreateSubscriptionIfNotExists(sub *models.Subscription) (bool, *models.Subscription, error)
	UpdateSubscriptionStatus(id uint, status string, currentPeriodEnd *time.Time) error
	CancelSubscription(id, creatorID uint) (bool, error)

	CreateLedgerEntryIfNotExists(entry *models.RevenueLedgerEntry) (bool, *models.RevenueLedgerEntry, error)
	GetLedgerEntryByInvoiceID(processorInvoiceID string) (*models.RevenueLedgerEntry, error)

	CreateFailedTransfer(ft *models.FailedTransfer) error
	ListFailedTransfers(limit int) ([]models.FailedTransfer, error)
	GetFailedTransferByID(id uint) (*models.FailedTransfer, error)
	MarkFailedTransferRetried(id uint, errorDetail string) error
	ResolveFailedTransfer(id uint) error

	CreateWebhookEventIfNotExists(event *models.PaymentWebhookEvent) (bool, *models.PaymentWebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a payments repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetCreatorByID(id uint) (*models.User, error) {
	var u models.User
	if err := r.db.First(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *gormRepository) UpdateCreatorPayoutAccount(creatorID uint, payoutAccountID string, payoutsEnabled bool) error {
	return r.db.Model(&models.User{}).
		Where("id = ?", creatorID).
		Updates(map[string]interface{}{
			"payout_account_id": payoutAccountID,
			"payouts_enabled":   payoutsEnabled,
		}).Error
}

func (r *gormRepository) AddLifetimeEarnings(creatorID uint, amountCents int64) error {
	return r.db.Model(&models.User{}).
		Where("id = ?", creatorID).
		UpdateColumn("lifetime_earnings_cents", gorm.Expr("lifetime_earnings_cents + ?", amountCents)).Error
}

func (r *gormRepository) GetSubscriptionByProcessorID(processorSubscriptionID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.Where("processor_subscription_id = ?", processorSubscriptionID).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// CreateSubscriptionIfNotExists inserts the subscription unless a row already
// exists for its processor subscription id. A first-time insert increments the
// creator's subscriber count in the same transaction: if the increment fails
// the insert rolls back too, so a redelivery repeats the whole unit rather
// than finding a row whose counter never moved.
func (r *gormRepository) CreateSubscriptionIfNotExists(sub *models.Subscription) (bool, *models.Subscription, error) {
	created := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "processor_subscription_id"}},
			DoNothing: true,
		}).Create(sub)
		if res.Error != nil {
			return res.Error
		}
		created = res.RowsAffected > 0
		if !created {
			return nil
		}
		return tx.Model(&models.User{}).
			Where("id = ?", sub.CreatorID).
			UpdateColumn("subscriber_count", gorm.Expr("subscriber_count + ?", 1)).Error
	})
	if err != nil {
		return false, nil, err
	}

	var stored models.Subscription
	if err := r.db.Where("processor_subscription_id = ?", sub.ProcessorSubscriptionID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) UpdateSubscriptionStatus(id uint, status string, currentPeriodEnd *time.Time) error {
	updates := map[string]interface{}{"status": status}
	if currentPeriodEnd != nil {
		updates["current_period_end"] = currentPeriodEnd
	}
	return r.db.Model(&models.Subscription{}).Where("id = ?", id).Updates(updates).Error
}

// CancelSubscription transitions a subscription to cancelled and reports
// whether this call performed the transition. The status guard in the WHERE
// clause makes duplicate cancel deliveries a no-op at the store level; the
// subscriber-count decrement commits or rolls back with the transition.
func (r *gormRepository) CancelSubscription(id, creatorID uint) (bool, error) {
	transitioned := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Subscription{}).
			Where("id = ? AND status <> ?", id, models.SubscriptionStatusCancelled).
			Update("status", models.SubscriptionStatusCancelled)
		if res.Error != nil {
			return res.Error
		}
		transitioned = res.RowsAffected > 0
		if !transitioned {
			return nil
		}
		return tx.Model(&models.User{}).
			Where("id = ?", creatorID).
			UpdateColumn("subscriber_count", gorm.Expr("subscriber_count - ?", 1)).Error
	})
	return transitioned, err
}

// CreateLedgerEntryIfNotExists inserts the entry unless one already exists for
// its processor invoice id. The unique index closes the race between two
// concurrent deliveries of the same invoice event; RowsAffected is the single
// signal whether this call was the first.
func (r *gormRepository) CreateLedgerEntryIfNotExists(entry *models.RevenueLedgerEntry) (bool, *models.RevenueLedgerEntry, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "processor_invoice_id"}},
		DoNothing: true,
	}).Create(entry)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.RevenueLedgerEntry
	if err := r.db.Where("processor_invoice_id = ?", entry.ProcessorInvoiceID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) GetLedgerEntryByInvoiceID(processorInvoiceID string) (*models.RevenueLedgerEntry, error) {
	var entry models.RevenueLedgerEntry
	err := r.db.Where("processor_invoice_id = ?", processorInvoiceID).First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *gormRepository) CreateFailedTransfer(ft *models.FailedTransfer) error {
	return r.db.Create(ft).Error
}

func (r *gormRepository) ListFailedTransfers(limit int) ([]models.FailedTransfer, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var fts []models.FailedTransfer
	err := r.db.Where("resolved_at IS NULL").Order("created_at ASC").Limit(limit).Find(&fts).Error
	return fts, err
}

func (r *gormRepository) GetFailedTransferByID(id uint) (*models.FailedTransfer, error) {
	var ft models.FailedTransfer
	if err := r.db.First(&ft, id).Error; err != nil {
		return nil, err
	}
	return &ft, nil
}

func (r *gormRepository) MarkFailedTransferRetried(id uint, errorDetail string) error {
	return r.db.Model(&models.FailedTransfer{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"retry_count":  gorm.Expr("retry_count + ?", 1),
			"error_detail": errorDetail,
		}).Error
}

func (r *gormRepository) ResolveFailedTransfer(id uint) error {
	now := time.Now()
	return r.db.Model(&models.FailedTransfer{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"retry_count": gorm.Expr("retry_count + ?", 1),
			"resolved_at": &now,
		}).Error
}

func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.PaymentWebhookEvent) (bool, *models.PaymentWebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.PaymentWebhookEvent
	if err := r.db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.PaymentWebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}
