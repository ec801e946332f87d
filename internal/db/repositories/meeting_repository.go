// meeting_repository.go implements MeetingRepository, providing database
// queries for meetings and their participant rows, including the
// visibility-scoped listings and RSVP aggregates.
package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/flowdeck/flowdeck/internal/db/models"
	"github.com/flowdeck/flowdeck/internal/visibility"
	"github.com/google/uuid"
)

// MeetingRepository handles meeting and participant database operations
type MeetingRepository struct {
	q Querier
}

// NewMeetingRepository creates a new MeetingRepository
func NewMeetingRepository(db *sql.DB) *MeetingRepository {
	return &MeetingRepository{q: db}
}

// WithTx returns a copy of the repository bound to the given transaction
func (r *MeetingRepository) WithTx(tx *sql.Tx) *MeetingRepository {
	return &MeetingRepository{q: tx}
}

// Create inserts a new meeting, assigning its id and creation time
func (r *MeetingRepository) Create(ctx context.Context, meeting *models.Meeting) error {
	meeting.ID = uuid.New().String()
	meeting.CreatedAt = time.Now()

	query := `
		INSERT INTO meetings (id, org_id, title, description, meeting_date, duration_minutes, location, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.q.ExecContext(ctx, query,
		meeting.ID,
		meeting.OrgID,
		meeting.Title,
		meeting.Description,
		meeting.MeetingDate,
		meeting.DurationMinutes,
		meeting.Location,
		meeting.CreatedBy,
		meeting.CreatedAt,
	)

	return err
}

// AddParticipant inserts a pending participant row for a meeting
func (r *MeetingRepository) AddParticipant(ctx context.Context, meetingID, userID string) error {
	query := `
		INSERT INTO meeting_participants (id, meeting_id, user_id, status)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.q.ExecContext(ctx, query, uuid.New().String(), meetingID, userID, models.RSVPPending)
	return err
}

// GetByIDInOrg retrieves a meeting by id scoped to an organization
func (r *MeetingRepository) GetByIDInOrg(ctx context.Context, meetingID, orgID string) (*models.Meeting, error) {
	query := `
		SELECT id, org_id, title, description, meeting_date, duration_minutes, location, created_by, created_at
		FROM meetings
		WHERE id = $1 AND org_id = $2
	`

	meeting := &models.Meeting{}
	err := r.q.QueryRowContext(ctx, query, meetingID, orgID).Scan(
		&meeting.ID,
		&meeting.OrgID,
		&meeting.Title,
		&meeting.Description,
		&meeting.MeetingDate,
		&meeting.DurationMinutes,
		&meeting.Location,
		&meeting.CreatedBy,
		&meeting.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return meeting, nil
}

const meetingListColumns = `
	m.id, m.org_id, m.title, m.description, m.meeting_date, m.duration_minutes, m.location, m.created_by, m.created_at,
	u.full_name AS created_by_name,
	(SELECT COUNT(*) FROM meeting_participants WHERE meeting_id = m.id) AS participant_count
`

func scanMeetingRows(rows *sql.Rows) ([]*models.MeetingWithDetails, error) {
	var meetings []*models.MeetingWithDetails
	for rows.Next() {
		m := &models.MeetingWithDetails{}
		if err := rows.Scan(
			&m.ID,
			&m.OrgID,
			&m.Title,
			&m.Description,
			&m.MeetingDate,
			&m.DurationMinutes,
			&m.Location,
			&m.CreatedBy,
			&m.CreatedAt,
			&m.CreatedByName,
			&m.ParticipantCount,
		); err != nil {
			return nil, err
		}
		meetings = append(meetings, m)
	}
	return meetings, rows.Err()
}

// ListVisible retrieves the meetings of an organization the scope may see,
// most recent meeting date first.
func (r *MeetingRepository) ListVisible(ctx context.Context, orgID string, scope visibility.Scope) ([]*models.MeetingWithDetails, error) {
	query := `
		SELECT ` + meetingListColumns + `
		FROM meetings m
		JOIN users u ON m.created_by = u.id
		WHERE m.org_id = $1
	`
	args := []interface{}{orgID}

	clause, filterArgs := scope.MeetingFilter(len(args) + 1)
	query += clause
	args = append(args, filterArgs...)

	query += ` ORDER BY m.meeting_date DESC`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMeetingRows(rows)
}

// ListUpcomingVisible retrieves visible meetings with a date at or after now,
// soonest first, limited to the given count.
func (r *MeetingRepository) ListUpcomingVisible(ctx context.Context, orgID string, scope visibility.Scope, limit int) ([]*models.MeetingWithDetails, error) {
	query := `
		SELECT ` + meetingListColumns + `
		FROM meetings m
		JOIN users u ON m.created_by = u.id
		WHERE m.org_id = $1 AND m.meeting_date >= NOW()
	`
	args := []interface{}{orgID}

	clause, filterArgs := scope.MeetingFilter(len(args) + 1)
	query += clause
	args = append(args, filterArgs...)

	query += fmt.Sprintf(` ORDER BY m.meeting_date ASC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMeetingRows(rows)
}

// CountUpcomingVisible returns the number of visible meetings at or after now
func (r *MeetingRepository) CountUpcomingVisible(ctx context.Context, orgID string, scope visibility.Scope) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM meetings m
		WHERE m.org_id = $1 AND m.meeting_date >= NOW()
	`
	args := []interface{}{orgID}

	clause, filterArgs := scope.MeetingFilter(len(args) + 1)
	query += clause
	args = append(args, filterArgs...)

	var count int
	err := r.q.QueryRowContext(ctx, query, args...).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// CountByOrg returns the total number of meetings in an organization
func (r *MeetingRepository) CountByOrg(ctx context.Context, orgID string) (int, error) {
	var count int
	err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM meetings WHERE org_id = $1`, orgID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ListParticipants retrieves a meeting's participants with their user profiles
func (r *MeetingRepository) ListParticipants(ctx context.Context, meetingID string) ([]*models.ParticipantWithUser, error) {
	query := `
		SELECT mp.id, mp.meeting_id, mp.user_id, mp.status, u.full_name, u.email, u.job_level
		FROM meeting_participants mp
		JOIN users u ON mp.user_id = u.id
		WHERE mp.meeting_id = $1
	`

	rows, err := r.q.QueryContext(ctx, query, meetingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []*models.ParticipantWithUser
	for rows.Next() {
		p := &models.ParticipantWithUser{}
		if err := rows.Scan(
			&p.ID,
			&p.MeetingID,
			&p.UserID,
			&p.Status,
			&p.FullName,
			&p.Email,
			&p.JobLevel,
		); err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}

	return participants, rows.Err()
}

// GetParticipant retrieves one user's participant row for a meeting
func (r *MeetingRepository) GetParticipant(ctx context.Context, meetingID, userID string) (*models.MeetingParticipant, error) {
	query := `
		SELECT id, meeting_id, user_id, status
		FROM meeting_participants
		WHERE meeting_id = $1 AND user_id = $2
	`

	p := &models.MeetingParticipant{}
	err := r.q.QueryRowContext(ctx, query, meetingID, userID).Scan(&p.ID, &p.MeetingID, &p.UserID, &p.Status)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return p, nil
}

// UpdateParticipantStatus sets one user's RSVP status for a meeting
func (r *MeetingRepository) UpdateParticipantStatus(ctx context.Context, meetingID, userID, status string) (bool, error) {
	query := `
		UPDATE meeting_participants SET status = $1
		WHERE meeting_id = $2 AND user_id = $3
	`

	result, err := r.q.ExecContext(ctx, query, status, meetingID, userID)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

// Summary returns aggregate RSVP counts for a meeting
func (r *MeetingRepository) Summary(ctx context.Context, meetingID string) (*models.MeetingSummary, error) {
	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'accepted'),
		       COUNT(*) FILTER (WHERE status = 'declined'),
		       COUNT(*) FILTER (WHERE status = 'pending')
		FROM meeting_participants
		WHERE meeting_id = $1
	`

	s := &models.MeetingSummary{}
	err := r.q.QueryRowContext(ctx, query, meetingID).Scan(
		&s.TotalParticipants,
		&s.AcceptedCount,
		&s.DeclinedCount,
		&s.PendingCount,
	)
	if err != nil {
		return nil, err
	}

	return s, nil
}

// CountPendingInvites returns the number of pending RSVP rows for a user
func (r *MeetingRepository) CountPendingInvites(ctx context.Context, userID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM meeting_participants WHERE user_id = $1 AND status = 'pending'`
	err := r.q.QueryRowContext(ctx, query, userID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}
