package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/fanforge/creatorpay/app/models"
	"gorm.io/gorm"
)

// fakeRepo is an in-memory Repository used by the service tests. It mimics the
// store-level semantics the handlers depend on: unique-key insert-or-skip,
// conditional updates reporting whether they changed a row, and the
// transition+counter pairs failing or committing as one unit. The one-shot
// error fields simulate a transient store failure on the next such unit.
type fakeRepo struct {
	creators map[uint]*models.User
	subs     map[string]*models.Subscription
	ledger   map[string]*models.RevenueLedgerEntry
	failed   []*models.FailedTransfer
	events   map[string]*models.PaymentWebhookEvent

	nextID         uint
	earningsCalls  int
	earningsTotal  int64
	counterAdjusts []int64

	subCreateErr error
	subCancelErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		creators: make(map[uint]*models.User),
		subs:     make(map[string]*models.Subscription),
		ledger:   make(map[string]*models.RevenueLedgerEntry),
		events:   make(map[string]*models.PaymentWebhookEvent),
	}
}

func (r *fakeRepo) nextPK() uint {
	r.nextID++
	return r.nextID
}

func (r *fakeRepo) addCreator(u *models.User) *models.User {
	if u.ID == 0 {
		u.ID = r.nextPK()
	}
	r.creators[u.ID] = u
	return u
}

func (r *fakeRepo) GetCreatorByID(id uint) (*models.User, error) {
	u, ok := r.creators[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeRepo) UpdateCreatorPayoutAccount(creatorID uint, payoutAccountID string, payoutsEnabled bool) error {
	u, ok := r.creators[creatorID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.PayoutAccountID = payoutAccountID
	u.PayoutsEnabled = payoutsEnabled
	return nil
}

func (r *fakeRepo) adjustSubscriberCount(creatorID uint, delta int64) {
	if u, ok := r.creators[creatorID]; ok {
		u.SubscriberCount += delta
	}
	r.counterAdjusts = append(r.counterAdjusts, delta)
}

func (r *fakeRepo) AddLifetimeEarnings(creatorID uint, amountCents int64) error {
	u, ok := r.creators[creatorID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.LifetimeEarningsCents += amountCents
	r.earningsCalls++
	r.earningsTotal += amountCents
	return nil
}

func (r *fakeRepo) GetSubscriptionByProcessorID(processorSubscriptionID string) (*models.Subscription, error) {
	sub, ok := r.subs[processorSubscriptionID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *sub
	return &cp, nil
}

func (r *fakeRepo) CreateSubscriptionIfNotExists(sub *models.Subscription) (bool, *models.Subscription, error) {
	if existing, ok := r.subs[sub.ProcessorSubscriptionID]; ok {
		cp := *existing
		return false, &cp, nil
	}
	if err := r.subCreateErr; err != nil {
		// The insert+increment unit fails whole, like a rolled back transaction.
		r.subCreateErr = nil
		return false, nil, err
	}
	cp := *sub
	cp.ID = r.nextPK()
	r.subs[sub.ProcessorSubscriptionID] = &cp
	r.adjustSubscriberCount(cp.CreatorID, 1)
	out := cp
	return true, &out, nil
}

func (r *fakeRepo) UpdateSubscriptionStatus(id uint, status string, currentPeriodEnd *time.Time) error {
	for _, sub := range r.subs {
		if sub.ID == id {
			sub.Status = status
			if currentPeriodEnd != nil {
				sub.CurrentPeriodEnd = currentPeriodEnd
			}
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeRepo) CancelSubscription(id, creatorID uint) (bool, error) {
	for _, sub := range r.subs {
		if sub.ID == id {
			if sub.Status == models.SubscriptionStatusCancelled {
				return false, nil
			}
			if err := r.subCancelErr; err != nil {
				r.subCancelErr = nil
				return false, err
			}
			sub.Status = models.SubscriptionStatusCancelled
			r.adjustSubscriberCount(creatorID, -1)
			return true, nil
		}
	}
	return false, gorm.ErrRecordNotFound
}

func (r *fakeRepo) CreateLedgerEntryIfNotExists(entry *models.RevenueLedgerEntry) (bool, *models.RevenueLedgerEntry, error) {
	if existing, ok := r.ledger[entry.ProcessorInvoiceID]; ok {
		cp := *existing
		return false, &cp, nil
	}
	cp := *entry
	cp.ID = r.nextPK()
	r.ledger[entry.ProcessorInvoiceID] = &cp
	out := cp
	return true, &out, nil
}

func (r *fakeRepo) GetLedgerEntryByInvoiceID(processorInvoiceID string) (*models.RevenueLedgerEntry, error) {
	entry, ok := r.ledger[processorInvoiceID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *entry
	return &cp, nil
}

func (r *fakeRepo) CreateFailedTransfer(ft *models.FailedTransfer) error {
	cp := *ft
	cp.ID = r.nextPK()
	r.failed = append(r.failed, &cp)
	return nil
}

func (r *fakeRepo) ListFailedTransfers(limit int) ([]models.FailedTransfer, error) {
	var out []models.FailedTransfer
	for _, ft := range r.failed {
		if ft.ResolvedAt == nil {
			out = append(out, *ft)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *fakeRepo) GetFailedTransferByID(id uint) (*models.FailedTransfer, error) {
	for _, ft := range r.failed {
		if ft.ID == id {
			cp := *ft
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRepo) MarkFailedTransferRetried(id uint, errorDetail string) error {
	for _, ft := range r.failed {
		if ft.ID == id {
			ft.RetryCount++
			ft.ErrorDetail = errorDetail
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeRepo) ResolveFailedTransfer(id uint) error {
	for _, ft := range r.failed {
		if ft.ID == id {
			now := time.Now()
			ft.RetryCount++
			ft.ResolvedAt = &now
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeRepo) CreateWebhookEventIfNotExists(event *models.PaymentWebhookEvent) (bool, *models.PaymentWebhookEvent, error) {
	key := event.Provider + "/" + event.ProviderEventID
	if existing, ok := r.events[key]; ok {
		cp := *existing
		return false, &cp, nil
	}
	cp := *event
	cp.ID = r.nextPK()
	r.events[key] = &cp
	out := cp
	return true, &out, nil
}

func (r *fakeRepo) MarkWebhookProcessed(id uint, processingError string) error {
	for _, ev := range r.events {
		if ev.ID == id {
			now := time.Now()
			ev.ProcessedAt = &now
			ev.ProcessingError = processingError
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

// fakeProcessor records transfer calls and serves canned subscription lookups.
type fakeProcessor struct {
	attempts    int
	transfers   []TransferRequest
	transferErr error

	subscription    *ProcessorSubscription
	subscriptionErr error
}

func (p *fakeProcessor) GetSubscription(ctx context.Context, processorSubscriptionID string) (*ProcessorSubscription, error) {
	_ = ctx
	if p.subscriptionErr != nil {
		return nil, p.subscriptionErr
	}
	if p.subscription == nil {
		return nil, fmt.Errorf("processor subscription request failed: status=404 body=not found")
	}
	cp := *p.subscription
	return &cp, nil
}

func (p *fakeProcessor) CreateTransfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	_ = ctx
	p.attempts++
	if p.transferErr != nil {
		return nil, p.transferErr
	}
	p.transfers = append(p.transfers, req)
	return &TransferResult{TransferID: fmt.Sprintf("tr_%d", len(p.transfers)), Status: "paid"}, nil
}

func newTestService() (*Service, *fakeRepo, *fakeProcessor) {
	repo := newFakeRepo()
	proc := &fakeProcessor{}
	cfg := &Config{
		WebhookSecret:      "whsec_test",
		SignatureTolerance: 5 * time.Minute,
		CommissionRateBPS:  2000,
	}
	return NewService(repo, proc, cfg), repo, proc
}
