package system

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/habitlog/internal/cli"
	"github.com/julianstephens/habitlog/internal/validation"
)

// sqlBacked is implemented by stores that expose their connection
type sqlBacked interface {
	GetDB() *sql.DB
}

type check struct {
	name    string
	needsDB bool
	warning bool
	// gate marks the reachability check; when it fails, needsDB checks are skipped
	gate bool
	run     func(*cli.Context) error
}

var checks = []check{
	{name: "Database reachable", gate: true, run: checkDBReachable},
	{name: "Schema version", needsDB: true, run: checkSchemaVersion},
	{name: "Migrations complete", needsDB: true, run: checkMigrationsComplete},
	{name: "Backups present", warning: true, run: checkBackupsPresent},
	{name: "Data validation", needsDB: true, run: checkValidation},
	{name: "Clock/timezone", run: checkClockTimezone},
	{name: "Log integrity", needsDB: true, run: checkLogIntegrity},
	{name: "Timestamp integrity", needsDB: true, run: checkTimestampIntegrity},
}

type DoctorCmd struct{}

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	fmt.Println("Running diagnostics...")
	fmt.Println()

	hasError := false
	dbReachable := true

	for _, c := range checks {
		if c.needsDB && !dbReachable {
			fmt.Printf("⊘ %s: SKIPPED (database not reachable)\n", c.name)
			continue
		}
		err := c.run(ctx)
		switch {
		case err == nil:
			fmt.Printf("✓ %s: OK\n", c.name)
		case c.warning:
			fmt.Printf("⚠ %s: WARNING\n", c.name)
			fmt.Printf("   %v\n", err)
		default:
			fmt.Printf("❌ %s: FAIL\n", c.name)
			fmt.Printf("   Error: %v\n", err)
			hasError = true
		}
		if err != nil && c.gate {
			dbReachable = false
		}
	}

	fmt.Println()
	if hasError {
		fmt.Println("Diagnostics completed with errors.")
		return fmt.Errorf("one or more health checks failed")
	}

	fmt.Println("All diagnostics passed!")
	return nil
}

func checkDBReachable(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return fmt.Errorf("failed to load database: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ctx.Store.Ping(pingCtx); err != nil {
		return fmt.Errorf("failed to query database: %w", err)
	}
	return nil
}

func checkSchemaVersion(ctx *cli.Context) error {
	m, ok := ctx.Store.(migratable)
	if !ok {
		return nil
	}
	return m.Runner().ValidateVersion()
}

func checkMigrationsComplete(ctx *cli.Context) error {
	m, ok := ctx.Store.(migratable)
	if !ok {
		return nil
	}
	status, err := m.Runner().Status()
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}
	if status.Pending() {
		return fmt.Errorf("migrations incomplete: current version %d, latest version %d", status.Current, status.Latest)
	}
	return nil
}

func checkBackupsPresent(ctx *cli.Context) error {
	mgr, err := ctx.Backups()
	if err != nil {
		return err
	}
	backups, err := mgr.ListBackups()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}
	if len(backups) == 0 {
		return errors.New("no backups found - consider creating one with 'habitlog backup create'")
	}
	return nil
}

func checkValidation(ctx *cli.Context) error {
	if _, err := ctx.Store.GetSettings(); err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	userID, err := ctx.UserID()
	if err != nil {
		return err
	}
	snapshots, err := ctx.Habits.Inspect(context.Background(), userID)
	if err != nil {
		return fmt.Errorf("failed to read habits: %w", err)
	}

	result := validation.New().ValidateHabits(snapshots, ctx.Clock.Today())
	if result.HasConflicts() {
		return fmt.Errorf("%d conflict(s) found, run 'habitlog validate' for details", len(result.Conflicts))
	}
	return nil
}

func checkClockTimezone(ctx *cli.Context) error {
	now := ctx.Clock.Now()
	if now.Year() < 2020 || now.Year() > 2100 {
		return fmt.Errorf("system time appears incorrect: %s", now.Format(time.RFC3339))
	}
	if ctx.Clock.Location() == nil {
		return errors.New("no timezone configured")
	}
	return nil
}

// checkLogIntegrity looks for logs whose habit no longer exists
func checkLogIntegrity(ctx *cli.Context) error {
	s, ok := ctx.Store.(sqlBacked)
	if !ok {
		return nil
	}
	db := s.GetDB()
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}

	var orphaned int
	err := db.QueryRow(`
		SELECT COUNT(*)
		FROM habit_logs l
		LEFT JOIN habits h ON l.habit_id = h.id
		WHERE h.id IS NULL
	`).Scan(&orphaned)
	if err != nil {
		return fmt.Errorf("failed to check orphaned logs: %w", err)
	}
	if orphaned > 0 {
		return fmt.Errorf("found %d orphaned logs (referencing non-existent habits)", orphaned)
	}
	return nil
}

func checkTimestampIntegrity(ctx *cli.Context) error {
	// PostgreSQL columns are typed; only SQLite stores timestamps as text
	if !ctx.IsSQLite() {
		return nil
	}
	db := ctx.Store.(sqlBacked).GetDB()
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}

	for _, table := range []string{"habits", "habit_logs"} {
		var corrupted int
		err := db.QueryRow("SELECT COUNT(*) FROM " + table + " WHERE created_at = '' OR updated_at = ''").Scan(&corrupted)
		if err != nil {
			return fmt.Errorf("failed to check %s timestamps: %w", table, err)
		}
		if corrupted > 0 {
			return fmt.Errorf("found %d rows in %s with corrupted timestamps", corrupted, table)
		}
	}
	return nil
}
