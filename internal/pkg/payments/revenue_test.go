package payments

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/fanforge/creatorpay/app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitAmount(t *testing.T) {
	tests := []struct {
		netOfFee   int64
		rateBPS    int64
		commission int64
		earning    int64
	}{
		{netOfFee: 941, rateBPS: 2000, commission: 188, earning: 753},
		{netOfFee: 1000, rateBPS: 2000, commission: 200, earning: 800},
		{netOfFee: 1, rateBPS: 2000, commission: 0, earning: 1},
		{netOfFee: 2, rateBPS: 2000, commission: 0, earning: 2},
		{netOfFee: 3, rateBPS: 2000, commission: 1, earning: 2}, // 0.6 rounds up
		{netOfFee: 999, rateBPS: 2000, commission: 200, earning: 799},
		{netOfFee: 10000000, rateBPS: 2000, commission: 2000000, earning: 8000000},
		{netOfFee: 500, rateBPS: 0, commission: 0, earning: 500},
		{netOfFee: 500, rateBPS: 10000, commission: 500, earning: 0},
	}

	for _, tt := range tests {
		commission, earning := SplitAmount(tt.netOfFee, tt.rateBPS)
		assert.Equal(t, tt.commission, commission, "commission for netOfFee=%d", tt.netOfFee)
		assert.Equal(t, tt.earning, earning, "earning for netOfFee=%d", tt.netOfFee)
	}
}

func TestSplitAmount_SumsExactly(t *testing.T) {
	// The split must be exact in integer minor units across the full supported
	// range of invoice amounts; spot-check the low range densely plus the
	// boundaries.
	for netOfFee := int64(1); netOfFee <= 100000; netOfFee++ {
		commission, earning := SplitAmount(netOfFee, 2000)
		if commission+earning != netOfFee {
			t.Fatalf("split of %d does not sum: commission=%d earning=%d", netOfFee, commission, earning)
		}
		if commission < 0 || earning < 0 {
			t.Fatalf("split of %d produced a negative component: commission=%d earning=%d", netOfFee, commission, earning)
		}
	}
	for _, netOfFee := range []int64{999999, 1000000, 9999999, 10000000} {
		commission, earning := SplitAmount(netOfFee, 2000)
		if commission+earning != netOfFee {
			t.Fatalf("split of %d does not sum: commission=%d earning=%d", netOfFee, commission, earning)
		}
	}
}

func invoicePaidEnvelope(t *testing.T, id string, p InvoicePaymentSucceededPayload) *Envelope {
	t.Helper()
	data, err := json.Marshal(p)
	require.NoError(t, err)
	return &Envelope{ID: id, Type: string(EventInvoicePaymentSucceeded), Created: 1700000000, Data: data}
}

func TestHandleInvoicePaid_LedgerFields(t *testing.T) {
	svc, repo, _ := newTestService()
	creator := repo.addCreator(&models.User{Name: "Creator One", Email: "creator@fanforge.test", Role: models.ROLE_CREATOR})
	_, sub, err := repo.CreateSubscriptionIfNotExists(&models.Subscription{
		SubscriberID:            42,
		CreatorID:               creator.ID,
		ProcessorSubscriptionID: "sub_abc",
		Status:                  models.SubscriptionStatusActive,
	})
	require.NoError(t, err)

	env := invoicePaidEnvelope(t, "evt_1", InvoicePaymentSucceededPayload{
		ProcessorInvoiceID:      "in_100",
		ProcessorSubscriptionID: "sub_abc",
		GrossAmountCents:        1000,
		ProcessorFeeCents:       59,
		Currency:                "EUR",
	})
	require.NoError(t, svc.Dispatch(context.Background(), env))

	entry, err := repo.GetLedgerEntryByInvoiceID("in_100")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), entry.GrossAmountCents)
	assert.Equal(t, int64(59), entry.ProcessorFeeCents)
	assert.Equal(t, int64(188), entry.PlatformCommissionCents)
	assert.Equal(t, int64(753), entry.CreatorEarningCents)
	assert.Equal(t, "eur", entry.Currency)
	assert.Equal(t, sub.ID, entry.SubscriptionID)
	assert.Equal(t, creator.ID, entry.CreatorID)
	assert.NotEmpty(t, entry.EntryRef)
}

func TestHandleInvoicePaid_FeeExceedsGross(t *testing.T) {
	svc, repo, _ := newTestService()
	creator := repo.addCreator(&models.User{Name: "Creator One", Email: "creator@fanforge.test"})
	_, _, err := repo.CreateSubscriptionIfNotExists(&models.Subscription{
		SubscriberID:            42,
		CreatorID:               creator.ID,
		ProcessorSubscriptionID: "sub_abc",
		Status:                  models.SubscriptionStatusActive,
	})
	require.NoError(t, err)

	err = svc.HandleInvoicePaid(context.Background(), &InvoicePaymentSucceededPayload{
		ProcessorInvoiceID:      "in_bad",
		ProcessorSubscriptionID: "sub_abc",
		GrossAmountCents:        100,
		ProcessorFeeCents:       150,
		Currency:                "eur",
	})
	assert.ErrorIs(t, err, ErrPayloadValidation)
	_, err = repo.GetLedgerEntryByInvoiceID("in_bad")
	assert.Error(t, err)
}
