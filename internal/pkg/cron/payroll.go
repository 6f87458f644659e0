package cron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/timecard-payroll/internal/domain/paypolicy"
	"github.com/cmlabs-hris/timecard-payroll/internal/domain/payroll"
)

// TopicSource lists the organizations that currently have live subscribers.
type TopicSource interface {
	Topics() []string
}

type PayrollJobs struct {
	payrollSvc payroll.PayrollService
	topics     TopicSource
	notifier   payroll.Notifier
	interval   time.Duration
	now        func() time.Time
}

func NewPayrollJobs(payrollSvc payroll.PayrollService, topics TopicSource, notifier payroll.Notifier, interval time.Duration) *PayrollJobs {
	return &PayrollJobs{
		payrollSvc: payrollSvc,
		topics:     topics,
		notifier:   notifier,
		interval:   interval,
		now:        time.Now,
	}
}

func (j *PayrollJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob("broadcast_live_breakdowns", j.interval, j.BroadcastLiveBreakdowns)
}

// BroadcastLiveBreakdowns pushes in-progress breakdowns to every organization
// that has a dashboard open. Nothing is persisted.
func (j *PayrollJobs) BroadcastLiveBreakdowns(ctx context.Context) error {
	organizations := j.topics.Topics()
	if len(organizations) == 0 {
		return nil
	}

	var errs []error
	sent := 0
	for _, orgID := range organizations {
		live, err := j.payrollSvc.LiveForOrganization(ctx, orgID)
		if errors.Is(err, paypolicy.ErrPolicyMissing) {
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("organization %s: %w", orgID, err))
			continue
		}
		if len(live) == 0 {
			continue
		}

		err = j.notifier.Notify(ctx, payroll.Event{
			Type:           payroll.EventTimecardLive,
			OrganizationID: orgID,
			Payload:        live,
			OccurredAt:     j.now(),
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("organization %s: %w", orgID, err))
			continue
		}
		sent++
	}

	if sent > 0 {
		slog.Debug("Live breakdowns broadcast", "organizations", sent)
	}
	return errors.Join(errs...)
}
