package analytics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-events/backend/internal/events"
	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/response"
)

// MsgNoSummary is returned when an event has no registrations to summarise.
const MsgNoSummary = "No summary for this event since no-one registered to it."

// Overviewer computes the derived state of an event.
type Overviewer interface {
	Overview(ctx context.Context, eventID uuid.UUID) (*events.Overview, error)
}

// Stats are the aggregate queries over an event's registrations.
type Stats interface {
	TicketsSold(ctx context.Context, eventID uuid.UUID) (map[string]int, error)
	RegistrationsByCountry(ctx context.Context, eventID uuid.UUID) (map[string]int, error)
	SalesBetween(ctx context.Context, eventID uuid.UUID, w Window) (float64, error)
	RegistrationsPerWeek(ctx context.Context, eventID uuid.UUID) ([]Point, error)
	SalesPerDay(ctx context.Context, eventID uuid.UUID) ([]Point, error)
}

// ReportCounter counts the reports requested for an event.
type ReportCounter interface {
	CountByEvent(ctx context.Context, eventID uuid.UUID) (int, error)
}

// OrgLookup loads organizations.
type OrgLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error)
}

// Dashboard is the organiser's at-a-glance view of an event.
type Dashboard struct {
	Overview                     *events.Overview `json:"overview"`
	TicketsSold                  map[string]int   `json:"tickets_sold"`
	RegistrationsThisWeek        int              `json:"registrations_this_week"`
	RegistrationsLastWeek        int              `json:"registrations_last_week"`
	RegistrationsIncreasePercent float64          `json:"registrations_increase_percent"`
	TicketSales                  float64          `json:"ticket_sales"`
	TicketSalesThisWeek          float64          `json:"ticket_sales_this_week"`
	TicketSalesLastWeek          float64          `json:"ticket_sales_last_week"`
	TicketSalesIncreasePercent   float64          `json:"ticket_sales_increase_percent"`
	RegistrationsByCountry       map[string]int   `json:"registrations_by_country"`
}

// Summary is the post-event report shown to organisers.
type Summary struct {
	Registrations          int            `json:"registrations"`
	RegistrationsPerWeek   []Point        `json:"registrations_per_week"`
	RegistrationPriceSum   float64        `json:"registration_price_sum"`
	SalesPerDay            []Point        `json:"sales_per_day"`
	TicketsSold            map[string]int `json:"tickets_sold"`
	Turnout                int            `json:"turnout"`
	ReportsCount           int            `json:"reports_count"`
	RegistrationsByCountry map[string]int `json:"registrations_by_country"`
	LogsDownloadLink       string         `json:"logs_download_link,omitempty"`
}

// Handler serves event analytics. Routes are mounted behind events.RequireEventOrgAccess.
type Handler struct {
	overview Overviewer
	ledger   events.RegistrationLedger
	stats    Stats
	reports  ReportCounter
	orgs     OrgLookup
	apiHost  string
	logger   *zap.Logger
	now      func() time.Time
}

// NewHandler creates an analytics handler. apiHost is the analytics API used for log dump links.
func NewHandler(overview Overviewer, ledger events.RegistrationLedger, stats Stats, reports ReportCounter, orgs OrgLookup, apiHost string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		overview: overview,
		ledger:   ledger,
		stats:    stats,
		reports:  reports,
		orgs:     orgs,
		apiHost:  strings.TrimRight(apiHost, "/"),
		logger:   logger,
		now:      time.Now,
	}
}

// Dashboard handles GET /organisers/events/:id/dashboard.
func (h *Handler) Dashboard(c *gin.Context) {
	ev := events.EventFromContext(c)
	d, err := h.dashboard(c.Request.Context(), ev.ID)
	if err != nil {
		h.logger.Error("dashboard failed", zap.Error(err), zap.String("event_id", ev.ID.String()))
		response.Internal(c, "failed to load dashboard")
		return
	}
	response.OK(c, d)
}

// Summary handles GET /organisers/events/:id/summary.
func (h *Handler) Summary(c *gin.Context) {
	ev := events.EventFromContext(c)
	s, err := h.summary(c.Request.Context(), ev)
	if errors.Is(err, events.ErrNoRegistrations) {
		response.Conflict(c, MsgNoSummary)
		return
	}
	if err != nil {
		h.logger.Error("summary failed", zap.Error(err), zap.String("event_id", ev.ID.String()))
		response.Internal(c, "failed to load summary")
		return
	}
	response.OK(c, s)
}

func (h *Handler) dashboard(ctx context.Context, eventID uuid.UUID) (*Dashboard, error) {
	o, err := h.overview.Overview(ctx, eventID)
	if err != nil {
		return nil, err
	}
	now := h.now()
	cur, last := CurrentWeek(now), LastWeek(now)

	d := &Dashboard{Overview: o, TicketSales: o.Sales.TicketSales}
	if d.TicketsSold, err = h.stats.TicketsSold(ctx, eventID); err != nil {
		return nil, fmt.Errorf("tickets sold: %w", err)
	}
	if d.RegistrationsThisWeek, err = h.countIn(ctx, eventID, cur); err != nil {
		return nil, err
	}
	if d.RegistrationsLastWeek, err = h.countIn(ctx, eventID, last); err != nil {
		return nil, err
	}
	d.RegistrationsIncreasePercent = PercentageIncrease(float64(d.RegistrationsThisWeek), float64(d.RegistrationsLastWeek))

	if d.TicketSalesThisWeek, err = h.stats.SalesBetween(ctx, eventID, cur); err != nil {
		return nil, fmt.Errorf("sales this week: %w", err)
	}
	if d.TicketSalesLastWeek, err = h.stats.SalesBetween(ctx, eventID, last); err != nil {
		return nil, fmt.Errorf("sales last week: %w", err)
	}
	d.TicketSalesIncreasePercent = PercentageIncrease(d.TicketSalesThisWeek, d.TicketSalesLastWeek)

	if d.RegistrationsByCountry, err = h.stats.RegistrationsByCountry(ctx, eventID); err != nil {
		return nil, fmt.Errorf("registrations by country: %w", err)
	}
	return d, nil
}

func (h *Handler) summary(ctx context.Context, ev *models.Event) (*Summary, error) {
	total, err := h.ledger.Count(ctx, ev.ID, events.ScopeConfirmed)
	if err != nil {
		return nil, fmt.Errorf("count registrations: %w", err)
	}
	if total == 0 {
		return nil, events.ErrNoRegistrations
	}

	s := &Summary{Registrations: total}
	if s.RegistrationsPerWeek, err = h.stats.RegistrationsPerWeek(ctx, ev.ID); err != nil {
		return nil, fmt.Errorf("registrations per week: %w", err)
	}
	if s.RegistrationPriceSum, err = h.ledger.Sum(ctx, ev.ID, events.ScopeConfirmed, events.SumPrice); err != nil {
		return nil, fmt.Errorf("price sum: %w", err)
	}
	if s.SalesPerDay, err = h.stats.SalesPerDay(ctx, ev.ID); err != nil {
		return nil, fmt.Errorf("sales per day: %w", err)
	}
	if s.TicketsSold, err = h.stats.TicketsSold(ctx, ev.ID); err != nil {
		return nil, fmt.Errorf("tickets sold: %w", err)
	}
	participated := true
	if s.Turnout, err = h.ledger.CountWhere(ctx, ev.ID, events.ScopeConfirmed, events.Filter{Participated: &participated}); err != nil {
		return nil, fmt.Errorf("turnout: %w", err)
	}
	if s.ReportsCount, err = h.reports.CountByEvent(ctx, ev.ID); err != nil {
		return nil, fmt.Errorf("reports count: %w", err)
	}
	if s.RegistrationsByCountry, err = h.stats.RegistrationsByCountry(ctx, ev.ID); err != nil {
		return nil, fmt.Errorf("registrations by country: %w", err)
	}

	org, err := h.orgs.GetByID(ctx, ev.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("load organization: %w", err)
	}
	if org.Analytics {
		s.LogsDownloadLink = h.apiHost + "/dump/logs/" + ev.ID.String()
	}
	return s, nil
}

func (h *Handler) countIn(ctx context.Context, eventID uuid.UUID, w Window) (int, error) {
	n, err := h.ledger.CountWhere(ctx, eventID, events.ScopeConfirmed, events.Filter{CreatedFrom: w.From, CreatedTo: w.To})
	if err != nil {
		return 0, fmt.Errorf("count registrations: %w", err)
	}
	return n, nil
}
