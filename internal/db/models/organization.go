// Package models - organization.go defines the Organization model, the tenancy
// root that every user, task, and meeting belongs to.
package models

import "time"

// Organization represents a tenant in the system. Organization names are
// globally unique and organizations are never deleted in normal operation.
type Organization struct {
	ID        string
	Name      string
	CreatedAt time.Time
}
