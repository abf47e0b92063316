package models

import (
	"testing"

	"github.com/dmitrijs2005/packkeeper/internal/common"
	"github.com/stretchr/testify/require"
)

func TestSubmissionStatus_CanTransition(t *testing.T) {
	tests := []struct {
		from, to SubmissionStatus
		want     bool
	}{
		{StatusCreated, StatusArchived, true},
		{StatusArchived, StatusPublished, true},
		{StatusPublished, StatusVerified, true},
		{StatusPublished, StatusFailed, true},
		{StatusVerified, StatusFailed, true},
		{StatusFailed, StatusVerified, true},
		{StatusVerified, StatusVerified, true},
		{StatusCreated, StatusPublished, false},
		{StatusCreated, StatusVerified, false},
		{StatusArchived, StatusVerified, false},
		{StatusVerified, StatusPublished, false},
		{StatusFailed, StatusCreated, false},
		{SubmissionStatus("bogus"), StatusVerified, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			require.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestSubmissionStatus_Transition(t *testing.T) {
	got, err := StatusPublished.Transition(StatusVerified)
	require.NoError(t, err)
	require.Equal(t, StatusVerified, got)

	got, err = StatusCreated.Transition(StatusVerified)
	require.ErrorIs(t, err, common.ErrInvalidTransition)
	require.Equal(t, StatusCreated, got)
}
