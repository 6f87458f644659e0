package holiday

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cmlabs-hris/timecard-payroll/internal/pkg/holiday"
	"github.com/cmlabs-hris/timecard-payroll/internal/pkg/validator"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

var ErrRuleNotFound = errors.New("holiday rule not found")

// Repository stores holiday rules per organization.
type Repository interface {
	ListHolidayRules(ctx context.Context, organizationID string) ([]holiday.Rule, error)
	CreateHolidayRule(ctx context.Context, rule holiday.Rule) (holiday.Rule, error)
	DeleteHolidayRule(ctx context.Context, id, organizationID string) error
}

type CreateRuleRequest struct {
	Name           string  `json:"name" validate:"required,max=100"`
	Date           string  `json:"date" validate:"required,datekey"`
	RecurrenceRule *string `json:"recurrence_rule,omitempty" validate:"omitempty,max=255"`
}

func (r *CreateRuleRequest) Validate() error {
	return validator.Struct(r)
}

// Peers tells other instances that an organization's rules changed.
type Peers interface {
	Publish(ctx context.Context, organizationID string) error
}

// Provider expands holiday rules into calendars, cached per organization and year.
type Provider struct {
	repo  Repository
	cache *cache.Cache
	peers Peers
}

// NewProvider creates a provider. peers may be nil on a single instance;
// otherwise every rule change is published so the others drop their cache.
func NewProvider(repo Repository, ttl time.Duration, peers Peers) *Provider {
	return &Provider{
		repo:  repo,
		cache: cache.New(ttl, 2*ttl),
		peers: peers,
	}
}

func cacheKey(organizationID string, year int) string {
	return fmt.Sprintf("%s:%d", organizationID, year)
}

// CalendarForYear returns the organization's holidays of one calendar year.
func (p *Provider) CalendarForYear(ctx context.Context, organizationID string, year int) (holiday.Calendar, error) {
	key := cacheKey(organizationID, year)
	if cached, ok := p.cache.Get(key); ok {
		return cached.(*holiday.Set), nil
	}

	rules, err := p.repo.ListHolidayRules(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load holiday rules: %w", err)
	}

	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	set, err := holiday.NewSet(rules, from, to)
	if err != nil {
		return nil, err
	}

	p.cache.Set(key, set, cache.DefaultExpiration)
	return set, nil
}

// Calendar covers every year touched by [from, to].
func (p *Provider) Calendar(ctx context.Context, organizationID string, from, to time.Time) (holiday.Calendar, error) {
	if to.Before(from) {
		from, to = to, from
	}

	var union holiday.Union
	for year := from.Year(); year <= to.Year(); year++ {
		cal, err := p.CalendarForYear(ctx, organizationID, year)
		if err != nil {
			return nil, err
		}
		union = append(union, cal)
	}
	return union, nil
}

func (p *Provider) ListRules(ctx context.Context, organizationID string) ([]holiday.Rule, error) {
	return p.repo.ListHolidayRules(ctx, organizationID)
}

// AddRule validates the rule by expanding it before storing.
func (p *Provider) AddRule(ctx context.Context, organizationID string, req CreateRuleRequest) (holiday.Rule, error) {
	rule := holiday.Rule{
		ID:             uuid.Must(uuid.NewV7()).String(),
		OrganizationID: organizationID,
		Name:           req.Name,
		Date:           req.Date,
		RecurrenceRule: req.RecurrenceRule,
	}

	start, _ := time.Parse("2006-01-02", req.Date)
	if _, err := holiday.NewSet([]holiday.Rule{rule}, start, start.AddDate(1, 0, 0)); err != nil {
		return holiday.Rule{}, validator.ValidationErrors{{Field: "recurrence_rule", Message: err.Error()}}
	}

	created, err := p.repo.CreateHolidayRule(ctx, rule)
	if err != nil {
		return holiday.Rule{}, fmt.Errorf("failed to create holiday rule: %w", err)
	}

	p.changed(ctx, organizationID)
	slog.Info("Holiday rule created", "organization_id", organizationID, "name", created.Name)
	return created, nil
}

func (p *Provider) DeleteRule(ctx context.Context, organizationID, id string) error {
	if err := p.repo.DeleteHolidayRule(ctx, id, organizationID); err != nil {
		return err
	}
	p.changed(ctx, organizationID)
	return nil
}

// changed drops the local cache and notifies peers. A failed publish leaves
// peers stale until their cache TTL expires; the rule itself is stored.
func (p *Provider) changed(ctx context.Context, organizationID string) {
	p.Invalidate(organizationID)
	if p.peers == nil {
		return
	}
	if err := p.peers.Publish(ctx, organizationID); err != nil {
		slog.Error("Failed to broadcast holiday cache invalidation", "organization_id", organizationID, "error", err)
	}
}

// Invalidate drops every cached year of the organization.
func (p *Provider) Invalidate(organizationID string) {
	prefix := organizationID + ":"
	for key := range p.cache.Items() {
		if strings.HasPrefix(key, prefix) {
			p.cache.Delete(key)
		}
	}
}
