package vcs_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/transplant/internal/vcs"
)

func TestConditionErrorClassification(testInstance *testing.T) {
	testCases := []struct {
		name          string
		err           error
		expectedName  string
		expectedMatch []error
	}{
		{
			name:          "history_wraps_ref_not_found",
			err:           vcs.NewCondition(vcs.ErrHistoryUnavailable, "", "branch master", vcs.ErrRefNotFound),
			expectedName:  "HistoryUnavailable",
			expectedMatch: []error{vcs.ErrHistoryUnavailable, vcs.ErrRefNotFound},
		},
		{
			name:          "wrapped_concurrent_update",
			err:           fmt.Errorf("replay: %w", vcs.NewCondition(vcs.ErrConcurrentUpdate, "0123456789abcdef", "", nil)),
			expectedName:  "ConcurrentUpdate",
			expectedMatch: []error{vcs.ErrConcurrentUpdate},
		},
		{
			name:          "bare_sentinel",
			err:           vcs.ErrObjectNotFound,
			expectedName:  "ObjectNotFound",
			expectedMatch: []error{vcs.ErrObjectNotFound},
		},
		{
			name:         "unclassified",
			err:          errors.New("boom"),
			expectedName: "Error",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expectedName, vcs.ConditionName(testCase.err))
			for _, expectedMatch := range testCase.expectedMatch {
				require.ErrorIs(testInstance, testCase.err, expectedMatch)
			}
		})
	}
}

func TestConditionErrorMessage(testInstance *testing.T) {
	condition := vcs.NewCondition(vcs.ErrWriteFailure, "0123456789abcdef0123", "tree rejected", errors.New("disk full")).WithPath("docs/a.txt")

	require.Equal(testInstance, "write failure (commit 0123456789, path docs/a.txt): tree rejected: disk full", condition.Error())
	require.Equal(testInstance, vcs.ObjectID("0123456789abcdef0123"), vcs.ConditionCommit(fmt.Errorf("outer: %w", condition)))
	require.Empty(testInstance, vcs.ConditionName(nil))
}
