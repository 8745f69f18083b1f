package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type migration struct {
	version int
	name    string
	up      func(ctx context.Context, tx *sqlx.Tx, dialect string) error
}

var migrations = []migration{
	{version: 1, name: "create_base_tables", up: createBaseTables},
	{version: 2, name: "attendance_subject_and_archive", up: addSubjectAndArchive},
	{version: 3, name: "attendance_adjustments_and_indexes", up: addAdjustmentsAndIndexes},
}

// LatestVersion is the schema version produced by Migrate.
func LatestVersion() int {
	return migrations[len(migrations)-1].version
}

// Migrate applies pending schema migrations, each inside its own transaction.
func Migrate(ctx context.Context, db *sqlx.DB, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	applied_at TEXT NOT NULL
)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var applied []int
	if err := db.SelectContext(ctx, &applied, "SELECT version FROM schema_migrations"); err != nil {
		return fmt.Errorf("load applied migrations: %w", err)
	}
	done := make(map[int]struct{}, len(applied))
	for _, v := range applied {
		done[v] = struct{}{}
	}

	dialect := db.DriverName()
	for _, m := range migrations {
		if _, ok := done[m.version]; ok {
			continue
		}
		if err := apply(ctx, db, dialect, m); err != nil {
			return err
		}
		logger.Info("schema migration applied", zap.Int("version", m.version), zap.String("name", m.name))
	}
	return nil
}

func apply(ctx context.Context, db *sqlx.DB, dialect string, m migration) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %d: %w", m.version, err)
	}
	commit := false
	defer func() {
		if !commit {
			_ = tx.Rollback()
		}
	}()

	if err := m.up(ctx, tx, dialect); err != nil {
		return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
	}
	insert := tx.Rebind("INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)")
	if _, err := tx.ExecContext(ctx, insert, m.version, m.name, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("record migration %d: %w", m.version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %d: %w", m.version, err)
	}
	commit = true
	return nil
}

func execAll(ctx context.Context, tx *sqlx.Tx, statements []string) error {
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func createBaseTables(ctx context.Context, tx *sqlx.Tx, dialect string) error {
	if dialect == DialectPostgres {
		return execAll(ctx, tx, []string{
			`CREATE TABLE IF NOT EXISTS attendance (
	id BIGSERIAL PRIMARY KEY,
	date TEXT NOT NULL,
	status TEXT NOT NULL,
	notes TEXT,
	multiplier INTEGER DEFAULT 1,
	is_manual BOOLEAN DEFAULT FALSE
)`,
			`CREATE TABLE IF NOT EXISTS exam_marks (
	id BIGSERIAL PRIMARY KEY,
	subject TEXT NOT NULL,
	marks DOUBLE PRECISION NOT NULL,
	total_marks DOUBLE PRECISION NOT NULL,
	weightage DOUBLE PRECISION NOT NULL DEFAULT 1,
	exam_date TEXT NOT NULL,
	notes TEXT
)`,
			`CREATE TABLE IF NOT EXISTS holidays (
	id BIGSERIAL PRIMARY KEY,
	date TEXT NOT NULL UNIQUE,
	description TEXT
)`,
		})
	}
	return execAll(ctx, tx, []string{
		`CREATE TABLE IF NOT EXISTS attendance (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	date TEXT NOT NULL,
	status TEXT NOT NULL,
	notes TEXT,
	multiplier INTEGER DEFAULT 1,
	is_manual BOOLEAN DEFAULT 0
)`,
		`CREATE TABLE IF NOT EXISTS exam_marks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	subject TEXT NOT NULL,
	marks REAL NOT NULL,
	total_marks REAL NOT NULL,
	weightage REAL NOT NULL DEFAULT 1,
	exam_date TEXT NOT NULL,
	notes TEXT
)`,
		`CREATE TABLE IF NOT EXISTS holidays (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	date TEXT NOT NULL UNIQUE,
	description TEXT
)`,
	})
}

// addSubjectAndArchive is the one point-in-time migration of the attendance table: the
// subject moves out of the notes text into its own column and soft deletion is introduced.
func addSubjectAndArchive(ctx context.Context, tx *sqlx.Tx, dialect string) error {
	falseLiteral := "0"
	if dialect == DialectPostgres {
		falseLiteral = "FALSE"
	}

	hasSubject, err := columnExists(ctx, tx, dialect, "attendance", "subject")
	if err != nil {
		return err
	}
	if !hasSubject {
		if _, err := tx.ExecContext(ctx, "ALTER TABLE attendance ADD COLUMN subject TEXT DEFAULT 'Unknown'"); err != nil {
			return err
		}
	}
	hasArchived, err := columnExists(ctx, tx, dialect, "attendance", "is_archived")
	if err != nil {
		return err
	}
	if !hasArchived {
		if _, err := tx.ExecContext(ctx, "ALTER TABLE attendance ADD COLUMN is_archived BOOLEAN DEFAULT "+falseLiteral); err != nil {
			return err
		}
	}

	// Legacy notes look like "Class: Physics" or "Class: Physics: Lab session"; the subject is
	// the segment between the first and second ": ".
	rest := "SUBSTR(notes, INSTR(notes, ': ') + 2)"
	segment := fmt.Sprintf("TRIM(CASE WHEN INSTR(%[1]s, ': ') > 0 THEN SUBSTR(%[1]s, 1, INSTR(%[1]s, ': ') - 1) ELSE %[1]s END)", rest)
	hasSeparator := "INSTR(notes, ': ') > 0"
	if dialect == DialectPostgres {
		segment = "TRIM(SPLIT_PART(notes, ': ', 2))"
		hasSeparator = "POSITION(': ' IN notes) > 0"
	}
	backfill := fmt.Sprintf(`UPDATE attendance
SET subject = %[1]s
WHERE (subject IS NULL OR subject = '' OR subject = 'Unknown')
  AND notes IS NOT NULL AND %[2]s
  AND %[1]s <> '' AND %[1]s <> 'Unknown'`, segment, hasSeparator)
	if _, err := tx.ExecContext(ctx, backfill); err != nil {
		return fmt.Errorf("backfill attendance subject: %w", err)
	}
	return nil
}

func addAdjustmentsAndIndexes(ctx context.Context, tx *sqlx.Tx, _ string) error {
	return execAll(ctx, tx, []string{
		`CREATE TABLE IF NOT EXISTS attendance_adjustments (
	subject TEXT PRIMARY KEY,
	present_delta INTEGER NOT NULL DEFAULT 0,
	total_delta INTEGER NOT NULL DEFAULT 0,
	updated_at TEXT NOT NULL
)`,
		"CREATE INDEX IF NOT EXISTS idx_attendance_date ON attendance (date)",
		"CREATE INDEX IF NOT EXISTS idx_attendance_subject ON attendance (subject, is_archived)",
		"CREATE INDEX IF NOT EXISTS idx_exam_marks_subject ON exam_marks (subject)",
	})
}

func columnExists(ctx context.Context, tx *sqlx.Tx, dialect, table, column string) (bool, error) {
	query := "SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?"
	if dialect == DialectPostgres {
		query = "SELECT COUNT(*) FROM information_schema.columns WHERE table_name = $1 AND column_name = $2"
	}
	var count int
	if err := tx.GetContext(ctx, &count, query, table, column); err != nil {
		return false, fmt.Errorf("inspect column %s.%s: %w", table, column, err)
	}
	return count > 0, nil
}
