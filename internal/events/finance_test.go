package events

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-events/backend/internal/models"
)

func confirmedReg(eventID uuid.UUID, price float64) models.Registration {
	return models.Registration{EventID: eventID, UserID: uuid.New(), Price: price, Status: models.RegistrationDone}
}

func TestComputeSales_Example(t *testing.T) {
	eventID := uuid.New()
	regs := []models.Registration{confirmedReg(eventID, 10), confirmedReg(eventID, 20)}

	sales := ComputeSales(TotalsOf(regs), 0.95)
	assert.Equal(t, 30.00, sales.TicketSales)
	assert.Equal(t, 1.47, sales.MerchantFees)
	assert.Equal(t, 1.50, sales.PlatformFees)
	assert.Equal(t, 27.03, sales.NetSales)
}

func TestComputeSales_EmptyIsZero(t *testing.T) {
	assert.Equal(t, Sales{}, ComputeSales(TotalsOf(nil), 0.95))
	assert.Equal(t, Sales{}, ComputeSales(Totals{}, 0))
}

func TestTotalsOf_SkipsRefundedWaitlistedAndFreeFromFees(t *testing.T) {
	eventID := uuid.New()
	refunded := confirmedReg(eventID, 50)
	refunded.Refunded = true
	waitlisted := confirmedReg(eventID, 40)
	waitlisted.Status = models.RegistrationWaitlisted

	totals := TotalsOf([]models.Registration{confirmedReg(eventID, 20), confirmedReg(eventID, 0), refunded, waitlisted})
	assert.Equal(t, Totals{Sum: 20, PaidCount: 1}, totals)
	assert.Equal(t, 0.88, MerchantFees(totals))
}

func TestLoadTotals_MatchesSnapshot(t *testing.T) {
	ctx := context.Background()
	eventID := uuid.New()
	l := &memLedger{}
	regs := []models.Registration{confirmedReg(eventID, 10), confirmedReg(eventID, 20), confirmedReg(eventID, 0)}
	for _, r := range regs {
		l.add(r)
	}
	refunded := confirmedReg(eventID, 99)
	refunded.Refunded = true
	l.add(refunded)

	got, err := LoadTotals(ctx, l, eventID)
	require.NoError(t, err)
	assert.Equal(t, TotalsOf(regs), got)
	assert.Equal(t, 2, got.PaidCount)
}

func TestNetSales_IsSalesMinusFees(t *testing.T) {
	eventID := uuid.New()
	refunded := func(price float64) models.Registration {
		r := confirmedReg(eventID, price)
		r.Refunded = true
		return r
	}
	waitlisted := func(price float64) models.Registration {
		r := confirmedReg(eventID, price)
		r.Status = models.RegistrationWaitlisted
		return r
	}

	tests := []struct {
		name       string
		regs       []models.Registration
		commission float64
		wantSales  float64
		wantPaid   int
	}{
		{"free tickets only", []models.Registration{confirmedReg(eventID, 0), confirmedReg(eventID, 0)}, 0.95, 0, 0},
		{"free and paid", []models.Registration{confirmedReg(eventID, 0), confirmedReg(eventID, 25.5)}, 0.9, 25.5, 1},
		{"refunded only", []models.Registration{refunded(40), refunded(0)}, 0.95, 0, 0},
		{"waitlisted only", []models.Registration{waitlisted(30)}, 0.95, 0, 0},
		{"mixed", []models.Registration{
			confirmedReg(eventID, 10), confirmedReg(eventID, 0), refunded(50), waitlisted(30), confirmedReg(eventID, 19.99),
		}, 0.95, 29.99, 2},
		{"odd cents", []models.Registration{confirmedReg(eventID, 0.01), confirmedReg(eventID, 33.33), confirmedReg(eventID, 66.67)}, 0.875, 100.01, 3},
		{"full commission", []models.Registration{confirmedReg(eventID, 12.34), refunded(5)}, 1, 12.34, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			totals := TotalsOf(tt.regs)
			assert.Equal(t, tt.wantPaid, totals.PaidCount)

			s := ComputeSales(totals, tt.commission)
			assert.InDelta(t, tt.wantSales, s.TicketSales, 0.005)
			assert.InDelta(t, s.TicketSales-s.MerchantFees-s.PlatformFees, s.NetSales, 0.01)
			assert.GreaterOrEqual(t, s.MerchantFees, 0.0)
			assert.GreaterOrEqual(t, s.PlatformFees, 0.0)
		})
	}
}

func TestPlatformFees_FullCommission(t *testing.T) {
	assert.Equal(t, 0.0, PlatformFees(Totals{Sum: 100, PaidCount: 3}, 1))
	assert.Equal(t, 100.0, PlatformFees(Totals{Sum: 100, PaidCount: 3}, 0))
}

func TestDiscountedPrice(t *testing.T) {
	discounts := []models.Discount{{Value: 10, Active: true}, {Value: 5, Active: false}}
	assert.Equal(t, 90.00, DiscountedPrice(100, discounts))

	additive := []models.Discount{{Value: 10, Active: true}, {Value: 20, Active: true}}
	assert.Equal(t, 70.00, DiscountedPrice(100, additive))

	assert.Equal(t, 100.00, DiscountedPrice(100, nil))
}

func TestPriceRange(t *testing.T) {
	ev := &models.Event{Price: 15, Currency: "eur"}
	personas := []models.Persona{
		{Price: 10, Visible: true},
		{Price: 25, Visible: true},
		{Price: 1, Visible: false},
	}
	assert.Equal(t, 10.0, MinPrice(personas))
	assert.Equal(t, 25.0, MaxPrice(personas))
	assert.Equal(t, "EUR 10.00 - 25.00", PriceLabel(ev, personas))

	assert.Equal(t, 0.0, MinPrice(nil))
	assert.Equal(t, "EUR 15.00", PriceLabel(ev, nil))
	assert.Equal(t, "Free", PriceLabel(&models.Event{Currency: "EUR"}, nil))
}
