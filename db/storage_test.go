package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"serialization failure", &pq.Error{Code: "40001"}, true},
		{"deadlock", &pq.Error{Code: "40P01"}, true},
		{"wrapped", fmt.Errorf("commit tx: %w", &pq.Error{Code: "40001"}), true},
		{"unique violation", &pq.Error{Code: "23505"}, false},
		{"plain error", errors.New("connection reset"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, isRetryable(tt.err))
		})
	}
}

func TestIsUniqueViolation(t *testing.T) {
	openBid := &pq.Error{Code: "23505", Constraint: openBidIndex}

	require.True(t, isUniqueViolation(openBid, openBidIndex))
	require.True(t, isUniqueViolation(fmt.Errorf("insert bid: %w", openBid), openBidIndex))
	require.False(t, isUniqueViolation(&pq.Error{Code: "23505", Constraint: "usr_pkey"}, openBidIndex))
	require.False(t, isUniqueViolation(&pq.Error{Code: "40001", Constraint: openBidIndex}, openBidIndex))
	require.False(t, isUniqueViolation(nil, openBidIndex))
}

func TestForUpdateOnlyInsideTx(t *testing.T) {
	b := psql().Select("r.id").From("room r").Where("r.id = ?", 1)

	query, _, err := (&Queries{}).forUpdate(b, "r").ToSql()
	require.NoError(t, err)
	require.Equal(t, "SELECT r.id FROM room r WHERE r.id = $1", query)

	query, _, err = (&Queries{lock: true}).forUpdate(b, "r").ToSql()
	require.NoError(t, err)
	require.Equal(t, "SELECT r.id FROM room r WHERE r.id = $1 FOR UPDATE OF r", query)
}
