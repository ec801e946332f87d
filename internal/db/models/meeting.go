// Package models - meeting.go defines the Meeting and MeetingParticipant
// models together with the RSVP status constants.
package models

import "time"

// RSVP statuses for a meeting participant.
const (
	RSVPPending  = "pending"
	RSVPAccepted = "accepted"
	RSVPDeclined = "declined"
)

// Meeting represents a scheduled meeting within an organization.
type Meeting struct {
	ID              string
	OrgID           string
	Title           string
	Description     string
	MeetingDate     time.Time
	DurationMinutes int
	Location        string
	CreatedBy       string
	CreatedAt       time.Time
}

// MeetingWithDetails joins a meeting with its creator's display name and the
// number of invited participants.
type MeetingWithDetails struct {
	Meeting
	CreatedByName    string
	ParticipantCount int
}

// MeetingParticipant is one user's invitation to a meeting, unique per
// (meeting, user). Status starts as pending and is mutated only by the
// participant themselves.
type MeetingParticipant struct {
	ID        string
	MeetingID string
	UserID    string
	Status    string
}

// ParticipantWithUser joins a participant row with the invited user's profile
// fields for the meeting detail view.
type ParticipantWithUser struct {
	MeetingParticipant
	FullName string
	Email    string
	JobLevel string
}

// MeetingSummary aggregates RSVP counts for a single meeting.
type MeetingSummary struct {
	TotalParticipants int
	AcceptedCount     int
	DeclinedCount     int
	PendingCount      int
}

// ValidRSVPResponse reports whether status is a response a participant may
// set. Pending is the initial state only, never a response.
func ValidRSVPResponse(status string) bool {
	return status == RSVPAccepted || status == RSVPDeclined
}
