package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/cmlabs-hris/timecard-payroll/internal/domain/paypolicy"
	"github.com/cmlabs-hris/timecard-payroll/internal/domain/payroll"
	"github.com/cmlabs-hris/timecard-payroll/internal/domain/timecard"
	"github.com/cmlabs-hris/timecard-payroll/internal/pkg/holiday"
	"github.com/cmlabs-hris/timecard-payroll/internal/pkg/jwt"
	"github.com/cmlabs-hris/timecard-payroll/internal/pkg/lock"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// CalendarSource resolves the holiday calendar of an organization for a date range.
type CalendarSource interface {
	Calendar(ctx context.Context, organizationID string, from, to time.Time) (holiday.Calendar, error)
}

type PayrollServiceImpl struct {
	shiftRepo  timecard.ShiftRepository
	policyRepo paypolicy.PayPolicyRepository
	reportRepo payroll.ReportRepository
	calendars  CalendarSource
	locker     lock.Locker
	notifier   payroll.Notifier
	locale     language.Tag
	now        func() time.Time
}

func NewPayrollService(
	shiftRepo timecard.ShiftRepository,
	policyRepo paypolicy.PayPolicyRepository,
	reportRepo payroll.ReportRepository,
	calendars CalendarSource,
	locker lock.Locker,
	notifier payroll.Notifier,
	locale language.Tag,
) payroll.PayrollService {
	return &PayrollServiceImpl{
		shiftRepo:  shiftRepo,
		policyRepo: policyRepo,
		reportRepo: reportRepo,
		calendars:  calendars,
		locker:     locker,
		notifier:   notifier,
		locale:     locale,
		now:        time.Now,
	}
}

// ========== PREVIEW ==========

func (s *PayrollServiceImpl) Preview(ctx context.Context, req payroll.PreviewRequest) (payroll.PreviewResponse, error) {
	claims, err := jwt.ClaimsFromContext(ctx)
	if err != nil {
		return payroll.PreviewResponse{}, err
	}
	if err := req.Validate(); err != nil {
		return payroll.PreviewResponse{}, err
	}

	policy, err := s.policyRepo.GetPayPolicy(ctx, claims.OrganizationID)
	if err != nil {
		return payroll.PreviewResponse{}, err
	}

	filter := timecard.ShiftFilter{
		OrganizationID: claims.OrganizationID,
		From:           req.From,
		To:             req.To,
		Statuses:       []timecard.Status{timecard.StatusPending},
	}
	if req.EmployeeID != "" {
		filter.EmployeeID = &req.EmployeeID
	}
	shifts, err := s.shiftRepo.ListShifts(ctx, filter)
	if err != nil {
		return payroll.PreviewResponse{}, fmt.Errorf("failed to list pending shifts: %w", err)
	}

	overrides, err := s.overridesFor(ctx, claims.OrganizationID, shifts)
	if err != nil {
		return payroll.PreviewResponse{}, err
	}

	cal, err := s.calendarFor(ctx, claims.OrganizationID, req.From, req.To)
	if err != nil {
		return payroll.PreviewResponse{}, err
	}

	result, err := Aggregate(shifts, &policy, overrides, AggregateOptions{
		Calendar: cal,
		CloseAt:  req.CloseAt,
		Locale:   s.locale,
	})
	if err != nil {
		return payroll.PreviewResponse{}, err
	}

	resp := payroll.PreviewResponse{
		Applications:       make([]payroll.AggregatedApplicationResponse, 0, len(result.Applications)),
		InProgressShiftIDs: result.InProgressShiftIDs,
	}
	for _, app := range result.Applications {
		resp.Applications = append(resp.Applications, payroll.NewAggregatedApplicationResponse(app))
	}
	if resp.InProgressShiftIDs == nil {
		resp.InProgressShiftIDs = []string{}
	}
	return resp, nil
}

// ========== APPROVAL ==========

type approvalGroup struct {
	key        payroll.ReportKey
	pendingIDs []string
	// approvedIDs were requested but are already approved, e.g. on a retry.
	approvedIDs []string
}

// Approve approves the pending shifts of the batch. Shifts are grouped by
// (employee, month); each group is reconciled under its own lock. Requested
// shifts that are already approved are not approved again: their report is
// returned as stored, or rebuilt when it does not list them yet.
func (s *PayrollServiceImpl) Approve(ctx context.Context, req payroll.ApproveShiftsRequest) (payroll.ApproveShiftsResponse, error) {
	claims, err := jwt.ClaimsFromContext(ctx)
	if err != nil {
		return payroll.ApproveShiftsResponse{}, err
	}
	if err := req.Validate(); err != nil {
		return payroll.ApproveShiftsResponse{}, err
	}

	// Fail closed before touching any shift.
	policy, err := s.policyRepo.GetPayPolicy(ctx, claims.OrganizationID)
	if err != nil {
		return payroll.ApproveShiftsResponse{}, err
	}

	shifts, err := s.shiftRepo.ListByIDs(ctx, claims.OrganizationID, dedupe(req.ShiftIDs))
	if err != nil {
		return payroll.ApproveShiftsResponse{}, fmt.Errorf("failed to load shifts: %w", err)
	}

	groups, err := groupForApproval(shifts, dedupe(req.ShiftIDs))
	if err != nil {
		return payroll.ApproveShiftsResponse{}, err
	}

	resp := payroll.ApproveShiftsResponse{
		ApprovedShiftIDs: []string{},
		Reports:          []payroll.MonthlyReportResponse{},
	}
	for _, g := range groups {
		approved, report, err := s.approveGroup(ctx, claims, &policy, g)
		if err != nil {
			return payroll.ApproveShiftsResponse{}, err
		}
		resp.ApprovedShiftIDs = append(resp.ApprovedShiftIDs, approved...)
		if report != nil {
			resp.Reports = append(resp.Reports, payroll.NewMonthlyReportResponse(*report))
		}
	}

	if len(resp.ApprovedShiftIDs) == 0 && len(resp.Reports) == 0 {
		return payroll.ApproveShiftsResponse{}, payroll.ErrNothingToApprove
	}
	return resp, nil
}

func groupForApproval(shifts []timecard.ShiftRecord, requested []string) ([]*approvalGroup, error) {
	found := make(map[string]timecard.ShiftRecord, len(shifts))
	for _, shift := range shifts {
		found[shift.ID] = shift
	}

	byKey := make(map[payroll.ReportKey]*approvalGroup)
	for _, id := range requested {
		shift, ok := found[id]
		if !ok {
			return nil, fmt.Errorf("shift %s: %w", id, timecard.ErrShiftNotFound)
		}
		if shift.Status != timecard.StatusPending && shift.Status != timecard.StatusApproved {
			return nil, fmt.Errorf("shift %s is %s: %w", id, shift.Status, timecard.ErrInvalidTransition)
		}

		period, err := payroll.PeriodOf(shift.DateKey)
		if err != nil {
			return nil, err
		}
		key := payroll.ReportKey{OrganizationID: shift.OrganizationID, EmployeeID: shift.EmployeeID, Period: period}

		g, ok := byKey[key]
		if !ok {
			g = &approvalGroup{key: key}
			byKey[key] = g
		}
		if shift.Status == timecard.StatusPending {
			g.pendingIDs = append(g.pendingIDs, id)
		} else {
			g.approvedIDs = append(g.approvedIDs, id)
		}
	}

	groups := make([]*approvalGroup, 0, len(byKey))
	for _, g := range byKey {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].key.String() < groups[j].key.String() })
	return groups, nil
}

func (s *PayrollServiceImpl) approveGroup(ctx context.Context, claims jwt.Claims, policy *paypolicy.PayPolicy, g *approvalGroup) ([]string, *payroll.MonthlyReport, error) {
	unlock, err := s.locker.Lock(ctx, g.key.String())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to lock %s: %w", g.key, err)
	}
	defer unlock()

	// Re-read under the lock; a concurrent approval may have won.
	var candidates []timecard.ShiftRecord
	if len(g.pendingIDs) > 0 {
		current, err := s.shiftRepo.ListByIDs(ctx, g.key.OrganizationID, g.pendingIDs)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to reload shifts: %w", err)
		}
		for _, shift := range current {
			if shift.Status == timecard.StatusPending {
				candidates = append(candidates, shift)
			} else if shift.Status == timecard.StatusApproved {
				g.approvedIDs = append(g.approvedIDs, shift.ID)
			}
		}
	}

	in, err := s.reconcileInput(ctx, g.key, policy)
	if err != nil {
		return nil, nil, err
	}

	if len(candidates) == 0 {
		if len(g.approvedIDs) == 0 {
			return nil, nil, nil
		}
		if in.Previous != nil && containsAll(in.Previous.ShiftIDs, g.approvedIDs) {
			// Already reconciled, e.g. a retried request; the stored report stands.
			current := *in.Previous
			return nil, &current, nil
		}
		// Statuses persisted earlier but the report missed them
		report, err := s.writeReport(ctx, claims, in, nil)
		if err != nil {
			return nil, nil, err
		}
		return nil, &report, nil
	}

	approvedAt := s.now()
	updates := make([]timecard.StatusUpdate, 0, len(candidates))
	approved := make([]timecard.ShiftRecord, 0, len(candidates))
	for _, shift := range candidates {
		synthesized, err := shift.Approve(approvedAt, claims.UserID)
		if err != nil {
			return nil, nil, fmt.Errorf("shift %s: %w", shift.ID, err)
		}
		update := timecard.StatusUpdate{
			ShiftID:    shift.ID,
			FromStatus: timecard.StatusPending,
			Status:     timecard.StatusApproved,
			ApprovedAt: shift.ApprovedAt,
			ApprovedBy: shift.ApprovedBy,
		}
		if synthesized {
			update.ClockOut = shift.ClockOut
			update.Breaks = shift.Breaks
		}
		updates = append(updates, update)
		approved = append(approved, shift)
	}

	// Dry run so a compute failure aborts before any status is written.
	dry := in
	dry.NewlyApproved = approved
	dry.AlreadyApproved = excludeIDs(in.AlreadyApproved, idsOf(approved))
	if _, err := Reconcile(dry); err != nil {
		return nil, nil, err
	}

	persisted, writeErr := s.shiftRepo.WriteShiftStatusBatch(ctx, g.key.OrganizationID, updates)
	if len(persisted) < len(updates) {
		failed := excludeStrings(idsOf(approved), persisted)
		slog.Warn("Approval batch partially failed",
			"organization_id", g.key.OrganizationID,
			"employee_id", g.key.EmployeeID,
			"period", g.key.Period.String(),
			"persisted", len(persisted),
			"failed", len(failed),
			"error", writeErr,
		)
		return nil, nil, &payroll.PartialBatchError{Persisted: persisted, Failed: failed, Cause: writeErr}
	}
	if writeErr != nil {
		return nil, nil, fmt.Errorf("failed to write shift statuses: %w", writeErr)
	}

	report, err := s.writeReport(ctx, claims, in, approved)
	if err != nil {
		return nil, nil, err
	}
	return idsOf(approved), &report, nil
}

// reconcileInput loads everything the reconciler needs for one key except the new batch.
func (s *PayrollServiceImpl) reconcileInput(ctx context.Context, key payroll.ReportKey, policy *paypolicy.PayPolicy) (ReconcileInput, error) {
	from, to := key.Period.Range()

	history, err := s.shiftRepo.ListApprovedShifts(ctx, key.OrganizationID, key.EmployeeID, from, to)
	if err != nil {
		return ReconcileInput{}, fmt.Errorf("failed to list approved shifts: %w", err)
	}

	var previous *payroll.MonthlyReport
	prev, err := s.reportRepo.GetReport(ctx, key.OrganizationID, key.EmployeeID, key.Period)
	switch {
	case err == nil:
		previous = &prev
	case errors.Is(err, payroll.ErrReportNotFound):
	default:
		return ReconcileInput{}, fmt.Errorf("failed to load monthly report: %w", err)
	}

	var override *paypolicy.EmployeePayOverride
	o, err := s.policyRepo.GetEmployeeOverride(ctx, key.OrganizationID, key.EmployeeID)
	switch {
	case err == nil:
		override = &o
	case errors.Is(err, paypolicy.ErrOverrideNotFound):
	default:
		return ReconcileInput{}, fmt.Errorf("failed to load pay override: %w", err)
	}

	cal, err := s.calendarFor(ctx, key.OrganizationID, from, to)
	if err != nil {
		return ReconcileInput{}, err
	}

	return ReconcileInput{
		OrganizationID:  key.OrganizationID,
		EmployeeID:      key.EmployeeID,
		Period:          key.Period,
		AlreadyApproved: history,
		Policy:          policy,
		Override:        override,
		Calendar:        cal,
		Previous:        previous,
	}, nil
}

// writeReport reconciles with the given newly approved shifts and stores the result.
func (s *PayrollServiceImpl) writeReport(ctx context.Context, claims jwt.Claims, in ReconcileInput, newlyApproved []timecard.ShiftRecord) (payroll.MonthlyReport, error) {
	in.NewlyApproved = newlyApproved
	in.AlreadyApproved = excludeIDs(in.AlreadyApproved, idsOf(newlyApproved))
	in.ApprovedAt = s.now()
	in.ApprovedBy = claims.UserID

	report, err := Reconcile(in)
	if err != nil {
		return payroll.MonthlyReport{}, err
	}

	saved, err := s.reportRepo.WriteMonthlyReport(ctx, report)
	if err != nil {
		return payroll.MonthlyReport{}, fmt.Errorf("failed to write monthly report: %w", err)
	}

	slog.Info("Monthly report reconciled",
		"organization_id", saved.OrganizationID,
		"employee_id", saved.EmployeeID,
		"period", saved.Period.String(),
		"version", saved.Version,
		"timecards", saved.TimecardCount,
	)

	if err := s.notifier.Notify(ctx, payroll.Event{
		Type:           payroll.EventReportConfirmed,
		OrganizationID: saved.OrganizationID,
		EmployeeID:     saved.EmployeeID,
		Payload:        payroll.NewMonthlyReportResponse(saved),
		OccurredAt:     in.ApprovedAt,
	}); err != nil {
		slog.Error("Failed to notify report confirmation", "employee_id", saved.EmployeeID, "error", err)
	}

	return saved, nil
}

// ========== REPORTS ==========

// RebuildReport recomputes a report from the approved shifts alone. It is the
// repair path after corrections to approved shifts.
func (s *PayrollServiceImpl) RebuildReport(ctx context.Context, req payroll.RebuildReportRequest) (payroll.MonthlyReportResponse, error) {
	claims, err := jwt.ClaimsFromContext(ctx)
	if err != nil {
		return payroll.MonthlyReportResponse{}, err
	}
	if err := req.Validate(); err != nil {
		return payroll.MonthlyReportResponse{}, err
	}

	period, err := payroll.ParsePeriod(req.Period)
	if err != nil {
		return payroll.MonthlyReportResponse{}, err
	}

	policy, err := s.policyRepo.GetPayPolicy(ctx, claims.OrganizationID)
	if err != nil {
		return payroll.MonthlyReportResponse{}, err
	}

	key := payroll.ReportKey{OrganizationID: claims.OrganizationID, EmployeeID: req.EmployeeID, Period: period}
	unlock, err := s.locker.Lock(ctx, key.String())
	if err != nil {
		return payroll.MonthlyReportResponse{}, fmt.Errorf("failed to lock %s: %w", key, err)
	}
	defer unlock()

	in, err := s.reconcileInput(ctx, key, &policy)
	if err != nil {
		return payroll.MonthlyReportResponse{}, err
	}
	if in.Previous == nil && len(in.AlreadyApproved) == 0 {
		return payroll.MonthlyReportResponse{}, payroll.ErrReportNotFound
	}

	report, err := s.writeReport(ctx, claims, in, nil)
	if err != nil {
		return payroll.MonthlyReportResponse{}, err
	}
	return payroll.NewMonthlyReportResponse(report), nil
}

func (s *PayrollServiceImpl) GetReport(ctx context.Context, employeeID string, periodStr string) (payroll.MonthlyReportResponse, error) {
	claims, err := jwt.ClaimsFromContext(ctx)
	if err != nil {
		return payroll.MonthlyReportResponse{}, err
	}
	period, err := payroll.ParsePeriod(periodStr)
	if err != nil {
		return payroll.MonthlyReportResponse{}, err
	}

	report, err := s.reportRepo.GetReport(ctx, claims.OrganizationID, employeeID, period)
	if err != nil {
		return payroll.MonthlyReportResponse{}, err
	}
	return payroll.NewMonthlyReportResponse(report), nil
}

func (s *PayrollServiceImpl) ListReports(ctx context.Context, filter payroll.ReportFilter) ([]payroll.MonthlyReportResponse, error) {
	claims, err := jwt.ClaimsFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	period, err := payroll.ParsePeriod(filter.Period)
	if err != nil {
		return nil, err
	}

	reports, err := s.reportRepo.ListReports(ctx, claims.OrganizationID, period)
	if err != nil {
		return nil, fmt.Errorf("failed to list monthly reports: %w", err)
	}

	resp := make([]payroll.MonthlyReportResponse, 0, len(reports))
	for _, r := range reports {
		if filter.EmployeeID != "" && r.EmployeeID != filter.EmployeeID {
			continue
		}
		resp = append(resp, payroll.NewMonthlyReportResponse(r))
	}
	return resp, nil
}

func (s *PayrollServiceImpl) ListReportVersions(ctx context.Context, employeeID string, periodStr string) ([]payroll.MonthlyReportResponse, error) {
	claims, err := jwt.ClaimsFromContext(ctx)
	if err != nil {
		return nil, err
	}
	period, err := payroll.ParsePeriod(periodStr)
	if err != nil {
		return nil, err
	}

	versions, err := s.reportRepo.ListReportVersions(ctx, claims.OrganizationID, employeeID, period)
	if err != nil {
		return nil, fmt.Errorf("failed to list report versions: %w", err)
	}

	resp := make([]payroll.MonthlyReportResponse, 0, len(versions))
	for _, v := range versions {
		resp = append(resp, payroll.NewMonthlyReportResponse(v))
	}
	return resp, nil
}

// ========== LIVE ==========

func (s *PayrollServiceImpl) Live(ctx context.Context) ([]payroll.LiveBreakdownResponse, error) {
	claims, err := jwt.ClaimsFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return s.LiveForOrganization(ctx, claims.OrganizationID)
}

// LiveForOrganization computes display-only breakdowns of every open shift.
// Nothing here is persisted or fed into approvals.
func (s *PayrollServiceImpl) LiveForOrganization(ctx context.Context, organizationID string) ([]payroll.LiveBreakdownResponse, error) {
	policy, err := s.policyRepo.GetPayPolicy(ctx, organizationID)
	if err != nil {
		return nil, err
	}

	shifts, err := s.shiftRepo.ListInProgress(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list in-progress shifts: %w", err)
	}
	if len(shifts) == 0 {
		return []payroll.LiveBreakdownResponse{}, nil
	}

	overrides, err := s.overridesFor(ctx, organizationID, shifts)
	if err != nil {
		return nil, err
	}

	now := s.now()
	today := now.In(policy.Location()).Format(timecard.DateKeyLayout)
	earliest := today
	for _, shift := range shifts {
		if shift.DateKey < earliest {
			earliest = shift.DateKey
		}
	}
	cal, err := s.calendarFor(ctx, organizationID, earliest, today)
	if err != nil {
		return nil, err
	}

	col := collate.New(s.locale, collate.IgnoreCase)
	sort.SliceStable(shifts, func(i, j int) bool {
		if c := col.CompareString(shifts[i].DisplayName(), shifts[j].DisplayName()); c != 0 {
			return c < 0
		}
		return shifts[i].ID < shifts[j].ID
	})

	resp := make([]payroll.LiveBreakdownResponse, 0, len(shifts))
	for _, shift := range shifts {
		var override *paypolicy.EmployeePayOverride
		if o, ok := overrides[shift.EmployeeID]; ok {
			override = &o
		}

		b, err := ComputeLive(shift, &policy, override, cal, now)
		if err != nil {
			slog.Warn("Skipping live breakdown", "shift_id", shift.ID, "error", err)
			continue
		}

		resp = append(resp, payroll.LiveBreakdownResponse{
			ShiftID:      shift.ID,
			EmployeeID:   shift.EmployeeID,
			EmployeeName: shift.DisplayName(),
			DateKey:      shift.DateKey,
			OnBreak:      shift.OpenBreak() != nil,
			Breakdown:    payroll.NewBreakdownResponse(b),
			ComputedAt:   now,
		})
	}
	return resp, nil
}

// ========== HELPERS ==========

func (s *PayrollServiceImpl) overridesFor(ctx context.Context, organizationID string, shifts []timecard.ShiftRecord) (map[string]paypolicy.EmployeePayOverride, error) {
	seen := make(map[string]struct{})
	var employeeIDs []string
	for _, shift := range shifts {
		if _, ok := seen[shift.EmployeeID]; !ok {
			seen[shift.EmployeeID] = struct{}{}
			employeeIDs = append(employeeIDs, shift.EmployeeID)
		}
	}

	overrides := make(map[string]paypolicy.EmployeePayOverride, len(employeeIDs))
	if len(employeeIDs) == 0 {
		return overrides, nil
	}

	list, err := s.policyRepo.ListEmployeeOverrides(ctx, organizationID, employeeIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load pay overrides: %w", err)
	}
	for _, o := range list {
		overrides[o.EmployeeID] = o
	}
	return overrides, nil
}

func (s *PayrollServiceImpl) calendarFor(ctx context.Context, organizationID, from, to string) (holiday.Calendar, error) {
	fromDay, err := time.Parse(timecard.DateKeyLayout, from)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", payroll.ErrInvalidPeriod, from)
	}
	toDay, err := time.Parse(timecard.DateKeyLayout, to)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", payroll.ErrInvalidPeriod, to)
	}

	cal, err := s.calendars.Calendar(ctx, organizationID, fromDay, toDay)
	if err != nil {
		return nil, fmt.Errorf("failed to load holiday calendar: %w", err)
	}
	return cal, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func idsOf(shifts []timecard.ShiftRecord) []string {
	ids := make([]string, 0, len(shifts))
	for _, s := range shifts {
		ids = append(ids, s.ID)
	}
	return ids
}

func excludeIDs(shifts []timecard.ShiftRecord, ids []string) []timecard.ShiftRecord {
	if len(ids) == 0 {
		return shifts
	}
	skip := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		skip[id] = struct{}{}
	}
	out := make([]timecard.ShiftRecord, 0, len(shifts))
	for _, s := range shifts {
		if _, ok := skip[s.ID]; !ok {
			out = append(out, s)
		}
	}
	return out
}

func excludeStrings(all, remove []string) []string {
	skip := make(map[string]struct{}, len(remove))
	for _, id := range remove {
		skip[id] = struct{}{}
	}
	var out []string
	for _, id := range all {
		if _, ok := skip[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

func containsAll(haystack, needles []string) bool {
	set := make(map[string]struct{}, len(haystack))
	for _, id := range haystack {
		set[id] = struct{}{}
	}
	for _, id := range needles {
		if _, ok := set[id]; !ok {
			return false
		}
	}
	return true
}
