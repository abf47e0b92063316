// Package models defines server-side data models persisted in the database.
package models

import "time"

// Application is a planning application packs are generated for. It is
// owned by the surrounding system; packkeeper only reads it.
type Application struct {
	ID              int64
	Reference       string
	LPACode         string
	ApplicantName   string
	PropertyAddress string
	ApplicationType string
	CreatedAt       time.Time
}
