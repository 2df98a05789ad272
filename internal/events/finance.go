package events

import (
	"context"
	"math"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/aura-events/backend/internal/models"
)

const (
	merchantPercent = 0.029
	merchantFixed   = 0.30
)

// Totals are the aggregates the fee formulas need.
type Totals struct {
	Sum       float64 // price sum over confirmed registrations
	PaidCount int     // confirmed registrations with a non-zero price
}

// Sales is the financial breakdown of an event.
type Sales struct {
	TicketSales  float64 `json:"ticket_sales"`
	MerchantFees float64 `json:"merchant_fees"`
	PlatformFees float64 `json:"platform_fees"`
	NetSales     float64 `json:"net_sales"`
}

// TotalsOf aggregates a registration snapshot.
func TotalsOf(regs []models.Registration) Totals {
	var t Totals
	for i := range regs {
		r := &regs[i]
		if !r.Confirmed() {
			continue
		}
		t.Sum += r.Price
		if r.Price != 0 {
			t.PaidCount++
		}
	}
	return t
}

// LoadTotals reads the aggregates for eventID from the ledger.
func LoadTotals(ctx context.Context, l RegistrationLedger, eventID uuid.UUID) (Totals, error) {
	sum, err := l.Sum(ctx, eventID, ScopeConfirmed, SumPrice)
	if err != nil {
		return Totals{}, err
	}
	paid, err := l.CountWhere(ctx, eventID, ScopeConfirmed, Filter{PaidOnly: true})
	if err != nil {
		return Totals{}, err
	}
	return Totals{Sum: sum, PaidCount: paid}, nil
}

// TicketSales is the sum of confirmed prices.
func TicketSales(t Totals) float64 {
	return round2(t.Sum)
}

// MerchantFees is 2.9% of sales plus 0.30 per paid ticket.
func MerchantFees(t Totals) float64 {
	return round2(t.Sum*merchantPercent + float64(t.PaidCount)*merchantFixed)
}

// PlatformFees is the share of sales not kept by the organiser.
func PlatformFees(t Totals, commission float64) float64 {
	return round2(t.Sum * (1 - commission))
}

// NetSales is what the organiser receives.
func NetSales(t Totals, commission float64) float64 {
	return round2(TicketSales(t) - MerchantFees(t) - PlatformFees(t, commission))
}

// ComputeSales returns all four figures.
func ComputeSales(t Totals, commission float64) Sales {
	return Sales{
		TicketSales:  TicketSales(t),
		MerchantFees: MerchantFees(t),
		PlatformFees: PlatformFees(t, commission),
		NetSales:     NetSales(t, commission),
	}
}

// DiscountedPrice applies every active discount to base. Discounts are additive percentages of base.
func DiscountedPrice(base float64, discounts []models.Discount) float64 {
	price := base
	for _, d := range discounts {
		if !d.Active {
			continue
		}
		price -= d.Value * base * 0.01
	}
	return round2(price)
}

// MinPrice is the lowest price among visible personas, zero when there are none.
func MinPrice(personas []models.Persona) float64 {
	prices := visiblePrices(personas)
	if len(prices) == 0 {
		return 0
	}
	min := prices[0]
	for _, p := range prices[1:] {
		min = math.Min(min, p)
	}
	return min
}

// MaxPrice is the highest price among visible personas, zero when there are none.
func MaxPrice(personas []models.Persona) float64 {
	prices := visiblePrices(personas)
	if len(prices) == 0 {
		return 0
	}
	max := prices[0]
	for _, p := range prices[1:] {
		max = math.Max(max, p)
	}
	return max
}

// PriceLabel renders the ticket price for listings: "Free", "EUR 10.00" or "EUR 10.00 - 25.00".
// Events without visible personas are labelled with their base price.
func PriceLabel(ev *models.Event, personas []models.Persona) string {
	lo, hi := MinPrice(personas), MaxPrice(personas)
	if len(visiblePrices(personas)) == 0 {
		lo, hi = ev.Price, ev.Price
	}
	if hi == 0 {
		return "Free"
	}
	p := message.NewPrinter(language.English)
	code := strings.ToUpper(ev.Currency)
	if lo == hi {
		return p.Sprintf("%s %.2f", code, lo)
	}
	return p.Sprintf("%s %.2f - %.2f", code, lo, hi)
}

func visiblePrices(personas []models.Persona) []float64 {
	var out []float64
	for _, p := range personas {
		if p.Visible {
			out = append(out, p.Price)
		}
	}
	return out
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
