// meeting_service.go implements MeetingService: scheduling, participant
// invitations, and self-service RSVP. Creating a meeting with any inactive
// invitee persists nothing; the meeting and its participant rows commit
// together or not at all.
package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/flowdeck/flowdeck/internal/auth"
	"github.com/flowdeck/flowdeck/internal/db/models"
	"github.com/flowdeck/flowdeck/internal/db/repositories"
	"github.com/flowdeck/flowdeck/internal/derive"
	"github.com/flowdeck/flowdeck/internal/integrity"
	"github.com/flowdeck/flowdeck/internal/telemetry"
)

// MeetingService manages meetings and RSVP tracking.
type MeetingService struct {
	db       *sql.DB
	meetings *repositories.MeetingRepository
	users    *repositories.UserRepository
	recorder *integrity.Recorder
}

// NewMeetingService creates a MeetingService over the given database.
func NewMeetingService(db *sql.DB) *MeetingService {
	return &MeetingService{
		db:       db,
		meetings: repositories.NewMeetingRepository(db),
		users:    repositories.NewUserRepository(db),
		recorder: integrity.NewRecorder(repositories.NewActivityRepository(db)),
	}
}

// CreateMeetingInput holds the caller-supplied fields of a new meeting.
type CreateMeetingInput struct {
	Title           string
	Description     string
	MeetingDate     time.Time
	DurationMinutes int
	Location        string
}

// ListMeetings retrieves the meetings visible to the principal, most recent
// meeting date first.
func (s *MeetingService) ListMeetings(ctx context.Context, principal auth.Principal) ([]*models.MeetingWithDetails, error) {
	return s.meetings.ListVisible(ctx, principal.OrgID, scopeFor(principal))
}

// CreateMeeting schedules a meeting and invites the given participants, all
// of whom start with a pending RSVP. Every invitee must be an active member
// of the organization; one inactive invitee aborts the whole creation.
func (s *MeetingService) CreateMeeting(ctx context.Context, principal auth.Principal, in CreateMeetingInput, participantIDs []string, ip string) (*models.Meeting, error) {
	in.Title = derive.SanitizeText(in.Title)
	if in.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if in.MeetingDate.IsZero() {
		return nil, fmt.Errorf("%w: meeting date is required", ErrValidation)
	}
	if in.DurationMinutes <= 0 {
		in.DurationMinutes = 60
	}

	meeting := &models.Meeting{
		OrgID:           principal.OrgID,
		Title:           in.Title,
		Description:     in.Description,
		MeetingDate:     in.MeetingDate,
		DurationMinutes: in.DurationMinutes,
		Location:        in.Location,
		CreatedBy:       principal.UserID,
	}

	invitees := dedupe(participantIDs)

	err := runInTx(ctx, s.db, func(tx *sql.Tx) error {
		txUsers := s.users.WithTx(tx)
		txMeetings := s.meetings.WithTx(tx)

		for _, userID := range invitees {
			if err := integrity.CheckActiveParticipant(ctx, txUsers, principal.OrgID, userID); err != nil {
				return err
			}
		}

		if err := txMeetings.Create(ctx, meeting); err != nil {
			return err
		}

		for _, userID := range invitees {
			if err := txMeetings.AddParticipant(ctx, meeting.ID, userID); err != nil {
				return err
			}
		}

		return s.recorder.Record(ctx, tx, &models.ActivityLog{
			UserID:      &principal.UserID,
			Action:      models.ActionCreate,
			EntityTable: models.EntityMeetings,
			EntityID:    &meeting.ID,
			Details:     fmt.Sprintf("Meeting '%s' created with %d participants", meeting.Title, len(invitees)),
			IPAddress:   ipPtr(ip),
		})
	})
	if err != nil {
		return nil, err
	}

	telemetry.MeetingMutationsTotal.WithLabelValues("create").Inc()
	return meeting, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	var out []string
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// MeetingDetail is the full view of one meeting: the meeting, its invitees,
// and the caller's own RSVP status when they are invited.
type MeetingDetail struct {
	Meeting      *models.Meeting
	Participants []*models.ParticipantWithUser
	MyStatus     *string
}

// GetMeeting retrieves a meeting the principal may see. A meeting outside the
// principal's visibility reads as not found.
func (s *MeetingService) GetMeeting(ctx context.Context, principal auth.Principal, meetingID string) (*MeetingDetail, error) {
	meeting, err := s.meetings.GetByIDInOrg(ctx, meetingID, principal.OrgID)
	if err != nil {
		return nil, err
	}
	if meeting == nil {
		return nil, ErrNotFound
	}

	participants, err := s.meetings.ListParticipants(ctx, meetingID)
	if err != nil {
		return nil, err
	}

	var myStatus *string
	isParticipant := false
	for _, p := range participants {
		if p.UserID == principal.UserID {
			isParticipant = true
			status := p.Status
			myStatus = &status
			break
		}
	}

	if !scopeFor(principal).CanSeeMeeting(meeting, isParticipant) {
		return nil, ErrNotFound
	}

	return &MeetingDetail{
		Meeting:      meeting,
		Participants: participants,
		MyStatus:     myStatus,
	}, nil
}

// SetParticipantStatus records the principal's own RSVP response for a
// meeting. Only accepted and declined are responses; a user not invited to
// the meeting cannot respond. Responding with the current status is a no-op.
func (s *MeetingService) SetParticipantStatus(ctx context.Context, principal auth.Principal, meetingID, status, ip string) error {
	if !models.ValidRSVPResponse(status) {
		return fmt.Errorf("%w: unknown rsvp response %q", ErrValidation, status)
	}

	err := runInTx(ctx, s.db, func(tx *sql.Tx) error {
		txMeetings := s.meetings.WithTx(tx)

		meeting, err := txMeetings.GetByIDInOrg(ctx, meetingID, principal.OrgID)
		if err != nil {
			return err
		}
		if meeting == nil {
			return ErrNotFound
		}

		participant, err := txMeetings.GetParticipant(ctx, meetingID, principal.UserID)
		if err != nil {
			return err
		}
		if participant == nil {
			return ErrNotAParticipant
		}

		if participant.Status == status {
			return nil
		}

		if _, err := txMeetings.UpdateParticipantStatus(ctx, meetingID, principal.UserID, status); err != nil {
			return err
		}

		return s.recorder.Record(ctx, tx, &models.ActivityLog{
			UserID:      &principal.UserID,
			Action:      models.ActionUpdate,
			EntityTable: models.EntityParticipants,
			EntityID:    &participant.ID,
			Details:     fmt.Sprintf("RSVP for meeting '%s' changed from '%s' to '%s'", meeting.Title, participant.Status, status),
			IPAddress:   ipPtr(ip),
		})
	})
	if err != nil {
		return err
	}

	telemetry.MeetingMutationsTotal.WithLabelValues("rsvp").Inc()
	telemetry.RSVPResponsesTotal.WithLabelValues(status).Inc()
	return nil
}

// MeetingSummaryView aggregates RSVP counts for one meeting together with its
// formatted duration.
type MeetingSummaryView struct {
	MeetingID         string
	Title             string
	TotalParticipants int
	AcceptedCount     int
	DeclinedCount     int
	PendingCount      int
	FormattedDuration string
}

// MeetingSummary returns the RSVP counts of a meeting the principal may see.
func (s *MeetingService) MeetingSummary(ctx context.Context, principal auth.Principal, meetingID string) (*MeetingSummaryView, error) {
	meeting, err := s.meetings.GetByIDInOrg(ctx, meetingID, principal.OrgID)
	if err != nil {
		return nil, err
	}
	if meeting == nil {
		return nil, ErrNotFound
	}

	isParticipant := false
	if !scopeFor(principal).IsAdmin() {
		participant, err := s.meetings.GetParticipant(ctx, meetingID, principal.UserID)
		if err != nil {
			return nil, err
		}
		isParticipant = participant != nil
	}

	if !scopeFor(principal).CanSeeMeeting(meeting, isParticipant) {
		return nil, ErrNotFound
	}

	summary, err := s.meetings.Summary(ctx, meetingID)
	if err != nil {
		return nil, err
	}

	return &MeetingSummaryView{
		MeetingID:         meeting.ID,
		Title:             meeting.Title,
		TotalParticipants: summary.TotalParticipants,
		AcceptedCount:     summary.AcceptedCount,
		DeclinedCount:     summary.DeclinedCount,
		PendingCount:      summary.PendingCount,
		FormattedDuration: derive.FormatDuration(meeting.DurationMinutes),
	}, nil
}
