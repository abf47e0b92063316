package models

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/packkeeper/internal/common"
)

// SubmissionStatus is the lifecycle state of a submission pack.
type SubmissionStatus string

const (
	StatusCreated   SubmissionStatus = "created"
	StatusArchived  SubmissionStatus = "archived"
	StatusPublished SubmissionStatus = "published"
	StatusVerified  SubmissionStatus = "verified"
	StatusFailed    SubmissionStatus = "failed"
)

var transitions = map[SubmissionStatus][]SubmissionStatus{
	StatusCreated:   {StatusArchived},
	StatusArchived:  {StatusPublished},
	StatusPublished: {StatusVerified, StatusFailed},
	StatusVerified:  {StatusVerified, StatusFailed},
	StatusFailed:    {StatusVerified, StatusFailed},
}

func (s SubmissionStatus) CanTransition(to SubmissionStatus) bool {
	for _, t := range transitions[s] {
		if t == to {
			return true
		}
	}
	return false
}

// Transition returns to when the move is allowed and ErrInvalidTransition otherwise.
func (s SubmissionStatus) Transition(to SubmissionStatus) (SubmissionStatus, error) {
	if !s.CanTransition(to) {
		return s, fmt.Errorf("%w: %s -> %s", common.ErrInvalidTransition, s, to)
	}
	return to, nil
}

// Submission is the persisted record of a published pack. ManifestJSON is
// the latest manifest exactly as published; ManifestSHA256 is its canonical
// digest.
type Submission struct {
	SubmissionID       string
	ApplicationID      int64
	Locator            string
	ArchiveKey         string
	ManifestKey        string
	ManifestJSON       string
	ManifestSHA256     string
	ManifestVersion    string
	TotalDocuments     int
	TotalSizeBytes     int64
	IntegrityVerified  bool
	Status             SubmissionStatus
	VerificationErrors []string
	LastVerified       *time.Time
	CreatedAt          time.Time

	// Joined from applications on reads.
	ApplicationReference string
	LPACode              string
}

// SearchFilter narrows Search results. Empty strings match everything.
type SearchFilter struct {
	LPACode              string
	ApplicationReference string
	VerifiedOnly         bool
	Limit                int
}

type LPACount struct {
	LPACode string
	Count   int
}

type Statistics struct {
	TotalSubmissions    int
	VerifiedSubmissions int
	TotalDocuments      int64
	TotalSizeBytes      int64
	RecentSubmissions   int
	TopLPAs             []LPACount
}
