// Package dbtest opens throwaway sqlite databases carrying the assessment schema.
package dbtest

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var schema = []string{
	`CREATE TABLE listings (
	id TEXT PRIMARY KEY,
	seller_id TEXT NOT NULL,
	title TEXT NOT NULL,
	visibility_status TEXT NOT NULL DEFAULT 'pending' CHECK (visibility_status IN ('pending', 'approved', 'rejected')),
	is_active BOOLEAN NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);`,
	`CREATE TABLE seller_tiers (
	seller_id TEXT PRIMARY KEY,
	tier_level TEXT NOT NULL DEFAULT 'standard' CHECK (tier_level IN ('standard', 'premium_outlet', 'trusted_brand')),
	bypasses_assessment BOOLEAN NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);`,
	`CREATE TABLE assessments (
	id TEXT PRIMARY KEY,
	listing_id TEXT NOT NULL REFERENCES listings(id) ON DELETE CASCADE,
	status TEXT NOT NULL DEFAULT 'pending_digital_review' CHECK (status IN ('pending_digital_review', 'waiting_for_sample', 'pending_physical_review', 'for_revision', 'rejected', 'verified')),
	submitted_at DATETIME,
	approved_at DATETIME,
	verified_at DATETIME,
	rejected_at DATETIME,
	revision_requested_at DATETIME,
	logistics TEXT,
	created_by TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	CONSTRAINT assessments_listing_id_key UNIQUE (listing_id),
	CONSTRAINT assessments_id_not_listing_id CHECK (id <> listing_id),
	CONSTRAINT assessments_verified_has_timestamp CHECK (status <> 'verified' OR verified_at IS NOT NULL),
	CONSTRAINT assessments_physical_has_logistics CHECK (
		status <> 'pending_physical_review' OR (logistics IS NOT NULL AND trim(logistics) <> '')
	)
);`,
	`CREATE TABLE approvals (
	id TEXT PRIMARY KEY,
	assessment_id TEXT NOT NULL REFERENCES assessments(id) ON DELETE CASCADE,
	stage TEXT NOT NULL CHECK (stage IN ('digital', 'physical', 'bypass')),
	note TEXT,
	approved_by TEXT,
	created_at DATETIME NOT NULL
);`,
	`CREATE TABLE rejections (
	id TEXT PRIMARY KEY,
	assessment_id TEXT NOT NULL REFERENCES assessments(id) ON DELETE CASCADE,
	stage TEXT NOT NULL CHECK (stage IN ('digital', 'physical')),
	reason TEXT NOT NULL CHECK (trim(reason) <> ''),
	rejected_by TEXT,
	created_at DATETIME NOT NULL
);`,
	`CREATE TABLE revisions (
	id TEXT PRIMARY KEY,
	assessment_id TEXT NOT NULL REFERENCES assessments(id) ON DELETE CASCADE,
	feedback TEXT NOT NULL CHECK (trim(feedback) <> ''),
	requested_by TEXT,
	created_at DATETIME NOT NULL
);`,
	`CREATE TABLE logistics_records (
	id TEXT PRIMARY KEY,
	assessment_id TEXT NOT NULL REFERENCES assessments(id) ON DELETE CASCADE,
	logistics TEXT NOT NULL CHECK (trim(logistics) <> ''),
	submitted_by TEXT,
	created_at DATETIME NOT NULL
);`,
	`CREATE TABLE outbox_events (
	id TEXT PRIMARY KEY,
	event_type TEXT NOT NULL,
	aggregate_type TEXT NOT NULL,
	aggregate_id TEXT NOT NULL,
	payload TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	published_at DATETIME,
	attempt_count INTEGER NOT NULL DEFAULT 0,
	last_error TEXT
);`,
	`CREATE TABLE outbox_dlqs (
	id TEXT PRIMARY KEY,
	event_id TEXT NOT NULL UNIQUE,
	event_type TEXT NOT NULL,
	aggregate_type TEXT NOT NULL,
	aggregate_id TEXT NOT NULL,
	payload_json TEXT NOT NULL,
	error_reason TEXT NOT NULL,
	error_message TEXT,
	attempt_count INTEGER NOT NULL DEFAULT 0,
	failed_at DATETIME NOT NULL,
	created_at DATETIME NOT NULL
);`,
}

// Open returns an isolated in-memory database with foreign keys enforced.
// The pool holds a single connection so concurrent callers queue on it.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=on"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Discard,
	})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}
