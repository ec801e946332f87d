// dashboard_service.go implements DashboardService: read-only aggregation
// over tasks, meetings, and users. Everything here is derived per request
// from the visibility-scoped queries; nothing is cached or stored.
package services

import (
	"context"
	"database/sql"

	"github.com/flowdeck/flowdeck/internal/auth"
	"github.com/flowdeck/flowdeck/internal/db/models"
	"github.com/flowdeck/flowdeck/internal/db/repositories"
	"github.com/flowdeck/flowdeck/internal/derive"
	"github.com/flowdeck/flowdeck/internal/visibility"
)

// upcomingMeetingsShown is the number of meetings surfaced on the dashboard.
const upcomingMeetingsShown = 5

// DashboardService aggregates board and meeting state for the dashboard and
// reporting views.
type DashboardService struct {
	db       *sql.DB
	tasks    *repositories.TaskRepository
	meetings *repositories.MeetingRepository
	users    *repositories.UserRepository
}

// NewDashboardService creates a DashboardService over the given database.
func NewDashboardService(db *sql.DB) *DashboardService {
	return &DashboardService{
		db:       db,
		tasks:    repositories.NewTaskRepository(db),
		meetings: repositories.NewMeetingRepository(db),
		users:    repositories.NewUserRepository(db),
	}
}

// DashboardMetrics is the landing-page view for one principal.
type DashboardMetrics struct {
	MyTaskCount          int
	UpcomingMeetingCount int
	ActiveEmployeeCount  int // populated for admins only
	TasksByLane          map[string][]*models.TaskWithNames
	LaneOrder            []string
	UpcomingMeetings     []*models.MeetingWithDetails
}

// Metrics builds the dashboard for the principal: their assigned task count,
// visible upcoming meetings, the visible board grouped by lane, and (for
// admins) the organization's active headcount.
func (s *DashboardService) Metrics(ctx context.Context, principal auth.Principal) (*DashboardMetrics, error) {
	scope := scopeFor(principal)

	myTasks, err := s.tasks.CountAssignedTo(ctx, principal.OrgID, principal.UserID)
	if err != nil {
		return nil, err
	}

	upcomingCount, err := s.meetings.CountUpcomingVisible(ctx, principal.OrgID, scope)
	if err != nil {
		return nil, err
	}

	activeEmployees := 0
	if principal.IsAdmin() {
		activeEmployees, err = s.users.CountActiveByOrg(ctx, principal.OrgID)
		if err != nil {
			return nil, err
		}
	}

	board, err := s.tasks.ListVisible(ctx, principal.OrgID, scope)
	if err != nil {
		return nil, err
	}

	lanes := make(map[string][]*models.TaskWithNames, len(models.AllTaskStatuses()))
	for _, status := range models.AllTaskStatuses() {
		lanes[status] = []*models.TaskWithNames{}
	}
	for _, t := range board {
		lanes[t.Status] = append(lanes[t.Status], t)
	}

	upcoming, err := s.meetings.ListUpcomingVisible(ctx, principal.OrgID, scope, upcomingMeetingsShown)
	if err != nil {
		return nil, err
	}

	return &DashboardMetrics{
		MyTaskCount:          myTasks,
		UpcomingMeetingCount: upcomingCount,
		ActiveEmployeeCount:  activeEmployees,
		TasksByLane:          lanes,
		LaneOrder:            models.AllTaskStatuses(),
		UpcomingMeetings:     upcoming,
	}, nil
}

// OrganizationOverview is the admin-level health view of one organization.
type OrganizationOverview struct {
	ActiveEmployees int
	TotalTasks      int
	CompletedTasks  int
	CompletionRate  float64
	TotalMeetings   int
	OverdueTasks    int
}

// OrganizationOverview aggregates organization-wide counts. Admin only.
func (s *DashboardService) OrganizationOverview(ctx context.Context, principal auth.Principal) (*OrganizationOverview, error) {
	if !principal.IsAdmin() {
		return nil, ErrPermissionDenied
	}

	activeEmployees, err := s.users.CountActiveByOrg(ctx, principal.OrgID)
	if err != nil {
		return nil, err
	}

	totalTasks, completedTasks, err := s.tasks.CountByOrg(ctx, principal.OrgID)
	if err != nil {
		return nil, err
	}

	totalMeetings, err := s.meetings.CountByOrg(ctx, principal.OrgID)
	if err != nil {
		return nil, err
	}

	open, err := s.tasks.ListOpenVisible(ctx, principal.OrgID, visibility.AdminScope())
	if err != nil {
		return nil, err
	}

	now := timeNow()
	overdue := 0
	for _, t := range open {
		if derive.DaysOverdue(t.DueDate, now) > 0 {
			overdue++
		}
	}

	return &OrganizationOverview{
		ActiveEmployees: activeEmployees,
		TotalTasks:      totalTasks,
		CompletedTasks:  completedTasks,
		CompletionRate:  derive.CompletionRate(totalTasks, completedTasks),
		TotalMeetings:   totalMeetings,
		OverdueTasks:    overdue,
	}, nil
}

// UserPerformance is the per-user productivity view.
type UserPerformance struct {
	UserID            string
	DisplayName       string
	TotalTasks        int
	CompletedTasks    int
	CompletionRate    float64
	AvgCompletionDays float64
	PendingInvites    int
	LaneCounts        map[string]int
}

// UserPerformance aggregates one user's task and meeting activity. Admins may
// view anyone in their organization; employees only themselves.
func (s *DashboardService) UserPerformance(ctx context.Context, principal auth.Principal, userID string) (*UserPerformance, error) {
	if !principal.IsAdmin() && principal.UserID != userID {
		return nil, ErrPermissionDenied
	}

	target, err := s.users.GetByIDInOrg(ctx, userID, principal.OrgID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, ErrNotFound
	}

	total, done, err := s.tasks.CompletionStats(ctx, userID)
	if err != nil {
		return nil, err
	}

	avgDays, err := s.tasks.AvgCompletionDays(ctx, userID)
	if err != nil {
		return nil, err
	}

	pending, err := s.meetings.CountPendingInvites(ctx, userID)
	if err != nil {
		return nil, err
	}

	laneCounts, err := s.tasks.LaneCountsForAssignee(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, status := range models.AllTaskStatuses() {
		if _, ok := laneCounts[status]; !ok {
			laneCounts[status] = 0
		}
	}

	return &UserPerformance{
		UserID:            target.ID,
		DisplayName:       derive.DisplayName(target.FullName, target.Role),
		TotalTasks:        total,
		CompletedTasks:    done,
		CompletionRate:    derive.CompletionRate(total, done),
		AvgCompletionDays: avgDays,
		PendingInvites:    pending,
		LaneCounts:        laneCounts,
	}, nil
}
