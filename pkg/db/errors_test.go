package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	pgxErr := &pgconn.PgError{Code: "23505", ConstraintName: "assessments_listing_id_key"}
	pqErr := &pq.Error{Code: "23505", Constraint: "seller_tiers_pkey"}

	cases := []struct {
		name       string
		err        error
		constraint string
		want       bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "pgx any", err: fmt.Errorf("insert: %w", pgxErr), want: true},
		{name: "pgx named match", err: pgxErr, constraint: "assessments_listing_id_key", want: true},
		{name: "pgx named mismatch", err: pgxErr, constraint: "other", want: false},
		{name: "pq", err: pqErr, want: true},
		{name: "pgx fk", err: &pgconn.PgError{Code: "23503"}, want: false},
		{name: "sqlite", err: errors.New("UNIQUE constraint failed: assessments.listing_id"), constraint: "assessments.listing_id", want: true},
		{name: "plain", err: errors.New("boom"), want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsUniqueViolation(tc.err, tc.constraint))
		})
	}
}

func TestIsConstraintViolation(t *testing.T) {
	assert.True(t, IsConstraintViolation(&pgconn.PgError{Code: "23503"}))
	assert.True(t, IsConstraintViolation(&pgconn.PgError{Code: "23514"}))
	assert.True(t, IsConstraintViolation(&pgconn.PgError{Code: "22P02"}))
	assert.True(t, IsConstraintViolation(errors.New("CHECK constraint failed: reason <> ''")))
	assert.True(t, IsConstraintViolation(errors.New("FOREIGN KEY constraint failed")))
	assert.False(t, IsConstraintViolation(&pgconn.PgError{Code: "40001"}))
	assert.False(t, IsConstraintViolation(errors.New("connection refused")))
	assert.False(t, IsConstraintViolation(nil))
}
