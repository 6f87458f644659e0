package holiday

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cmlabs-hris/timecard-payroll/internal/pkg/holiday"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) ListHolidayRules(ctx context.Context, organizationID string) ([]holiday.Rule, error) {
	args := m.Called(ctx, organizationID)
	rules, _ := args.Get(0).([]holiday.Rule)
	return rules, args.Error(1)
}

func (m *MockRepository) CreateHolidayRule(ctx context.Context, rule holiday.Rule) (holiday.Rule, error) {
	args := m.Called(ctx, rule)
	return args.Get(0).(holiday.Rule), args.Error(1)
}

func (m *MockRepository) DeleteHolidayRule(ctx context.Context, id, organizationID string) error {
	args := m.Called(ctx, id, organizationID)
	return args.Error(0)
}

func strPtr(s string) *string { return &s }

func TestProvider_CachesPerYear(t *testing.T) {
	repo := new(MockRepository)
	repo.On("ListHolidayRules", mock.Anything, "org-1").Return([]holiday.Rule{
		{Name: "New Year", Date: "2020-01-01", RecurrenceRule: strPtr("FREQ=YEARLY")},
	}, nil).Twice()

	p := NewProvider(repo, time.Minute, nil)
	ctx := context.Background()

	cal, err := p.CalendarForYear(ctx, "org-1", 2024)
	require.NoError(t, err)
	assert.True(t, cal.IsHoliday(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))

	_, err = p.CalendarForYear(ctx, "org-1", 2024)
	require.NoError(t, err)

	// spans 2024 (cached) and 2025 (loaded)
	cal, err = p.Calendar(ctx, "org-1", time.Date(2024, 12, 20, 0, 0, 0, 0, time.UTC), time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, cal.IsHoliday(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))

	repo.AssertExpectations(t)
}

func TestProvider_AddRuleInvalidatesCache(t *testing.T) {
	repo := new(MockRepository)
	repo.On("ListHolidayRules", mock.Anything, "org-1").Return([]holiday.Rule{}, nil).Once()
	repo.On("CreateHolidayRule", mock.Anything, mock.AnythingOfType("holiday.Rule")).
		Return(holiday.Rule{ID: "r1", OrganizationID: "org-1", Name: "Founding Day", Date: "2024-02-11"}, nil)
	repo.On("ListHolidayRules", mock.Anything, "org-1").Return([]holiday.Rule{
		{ID: "r1", OrganizationID: "org-1", Name: "Founding Day", Date: "2024-02-11"},
	}, nil).Once()

	p := NewProvider(repo, time.Minute, nil)
	ctx := context.Background()

	cal, err := p.CalendarForYear(ctx, "org-1", 2024)
	require.NoError(t, err)
	assert.False(t, cal.IsHoliday(time.Date(2024, 2, 11, 0, 0, 0, 0, time.UTC)))

	_, err = p.AddRule(ctx, "org-1", CreateRuleRequest{Name: "Founding Day", Date: "2024-02-11"})
	require.NoError(t, err)

	cal, err = p.CalendarForYear(ctx, "org-1", 2024)
	require.NoError(t, err)
	assert.True(t, cal.IsHoliday(time.Date(2024, 2, 11, 0, 0, 0, 0, time.UTC)))

	repo.AssertExpectations(t)
}

func TestProvider_AddRuleRejectsBadRecurrence(t *testing.T) {
	repo := new(MockRepository)
	p := NewProvider(repo, time.Minute, nil)

	_, err := p.AddRule(context.Background(), "org-1", CreateRuleRequest{Name: "Bad", Date: "2024-01-01", RecurrenceRule: strPtr("FREQ=NEVER")})
	assert.Error(t, err)
	repo.AssertNotCalled(t, "CreateHolidayRule", mock.Anything, mock.Anything)
}

type MockPeers struct {
	mock.Mock
}

func (m *MockPeers) Publish(ctx context.Context, organizationID string) error {
	return m.Called(ctx, organizationID).Error(0)
}

func TestProvider_RuleChangesReachPeers(t *testing.T) {
	repo := new(MockRepository)
	repo.On("CreateHolidayRule", mock.Anything, mock.Anything).Return(holiday.Rule{ID: "rule-1", Name: "Founding Day"}, nil)
	repo.On("DeleteHolidayRule", mock.Anything, "rule-1", "org-1").Return(nil)

	peers := new(MockPeers)
	peers.On("Publish", mock.Anything, "org-1").Return(nil).Once()
	peers.On("Publish", mock.Anything, "org-1").Return(errors.New("redis down")).Once()

	p := NewProvider(repo, time.Minute, peers)
	ctx := context.Background()

	_, err := p.AddRule(ctx, "org-1", CreateRuleRequest{Name: "Founding Day", Date: "2024-02-11"})
	require.NoError(t, err)

	// the rule is stored even when the broadcast fails
	require.NoError(t, p.DeleteRule(ctx, "org-1", "rule-1"))

	peers.AssertExpectations(t)
}

func TestProvider_InvalidateFromPeerDropsOnlyThatOrganization(t *testing.T) {
	repo := new(MockRepository)
	repo.On("ListHolidayRules", mock.Anything, "org-1").Return([]holiday.Rule{}, nil).Twice()
	repo.On("ListHolidayRules", mock.Anything, "org-2").Return([]holiday.Rule{}, nil).Once()

	p := NewProvider(repo, time.Minute, nil)
	ctx := context.Background()

	_, err := p.CalendarForYear(ctx, "org-1", 2024)
	require.NoError(t, err)
	_, err = p.CalendarForYear(ctx, "org-2", 2024)
	require.NoError(t, err)

	// what a subscriber does when another instance announces a change
	p.Invalidate("org-1")

	_, err = p.CalendarForYear(ctx, "org-1", 2024)
	require.NoError(t, err)
	_, err = p.CalendarForYear(ctx, "org-2", 2024)
	require.NoError(t, err)

	repo.AssertExpectations(t)
}
