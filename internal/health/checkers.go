// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/homanchou/heatercontrol/internal/persistence/sqlite"
	"github.com/homanchou/heatercontrol/internal/resilience"
)

// FileChecker checks if a file exists and is readable
type FileChecker struct {
	name string
	path string
}

// NewFileChecker creates a checker for file existence
func NewFileChecker(name, path string) *FileChecker {
	return &FileChecker{
		name: name,
		path: path,
	}
}

func (c *FileChecker) Name() string {
	return c.name
}

func (c *FileChecker) Check(_ context.Context) CheckResult {
	if c.path == "" {
		return CheckResult{
			Status:  StatusHealthy,
			Message: "not configured (optional)",
		}
	}

	info, err := os.Stat(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return CheckResult{
				Status:  StatusUnhealthy,
				Error:   "file not found",
				Message: c.path,
			}
		}
		return CheckResult{
			Status: StatusUnhealthy,
			Error:  err.Error(),
		}
	}

	if info.IsDir() {
		return CheckResult{
			Status: StatusUnhealthy,
			Error:  "expected file, got directory",
		}
	}

	if info.Size() == 0 {
		return CheckResult{
			Status:  StatusDegraded,
			Message: "file is empty",
		}
	}

	return CheckResult{
		Status:  StatusHealthy,
		Message: "file exists and readable",
	}
}

// RefreshInfo is what RefreshChecker needs to know about the controller.
type RefreshInfo struct {
	LastUpdatedAt time.Time
	LastError     string
}

// RefreshChecker reports whether the controller refreshes on schedule.
// A refresh older than maxAge is degraded; a failing sensor is unhealthy
// because the relay is held off while it fails.
type RefreshChecker struct {
	get    func() RefreshInfo
	maxAge time.Duration
	now    func() time.Time
}

// NewRefreshChecker creates a checker over the controller's last refresh.
func NewRefreshChecker(get func() RefreshInfo, maxAge time.Duration) *RefreshChecker {
	return &RefreshChecker{get: get, maxAge: maxAge, now: time.Now}
}

func (c *RefreshChecker) Name() string {
	return "controller"
}

func (c *RefreshChecker) Check(_ context.Context) CheckResult {
	info := c.get()

	if info.LastError != "" {
		return CheckResult{
			Status:  StatusUnhealthy,
			Error:   info.LastError,
			Message: "last refresh failed; relay held off",
		}
	}
	if info.LastUpdatedAt.IsZero() {
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: "no refresh yet",
		}
	}
	if c.maxAge > 0 {
		if age := c.now().Sub(info.LastUpdatedAt); age > c.maxAge {
			return CheckResult{
				Status:  StatusDegraded,
				Message: fmt.Sprintf("last refresh %s ago", age.Round(time.Second)),
			}
		}
	}
	return CheckResult{
		Status:  StatusHealthy,
		Message: "refreshing",
	}
}

// BreakerChecker maps a circuit breaker to a health status.
type BreakerChecker struct {
	name  string
	state func() resilience.State
}

// NewBreakerChecker creates a checker for a named breaker.
func NewBreakerChecker(name string, state func() resilience.State) *BreakerChecker {
	return &BreakerChecker{name: name, state: state}
}

func (c *BreakerChecker) Name() string {
	return c.name
}

func (c *BreakerChecker) Check(_ context.Context) CheckResult {
	switch s := c.state(); s {
	case resilience.StateClosed:
		return CheckResult{Status: StatusHealthy, Message: "circuit closed"}
	case resilience.StateHalfOpen:
		return CheckResult{Status: StatusDegraded, Message: "circuit half-open, probing"}
	default:
		return CheckResult{Status: StatusUnhealthy, Message: "circuit " + string(s)}
	}
}

// SQLiteChecker runs a quick integrity check against a database.
type SQLiteChecker struct {
	name string
	db   *sql.DB
}

// NewSQLiteChecker creates a checker for db. A nil db reports healthy as
// "not configured".
func NewSQLiteChecker(name string, db *sql.DB) *SQLiteChecker {
	return &SQLiteChecker{name: name, db: db}
}

func (c *SQLiteChecker) Name() string {
	return c.name
}

func (c *SQLiteChecker) Check(ctx context.Context) CheckResult {
	if c.db == nil {
		return CheckResult{Status: StatusHealthy, Message: "not configured (optional)"}
	}
	if err := c.db.PingContext(ctx); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	problems, err := sqlite.VerifyIntegrity(ctx, c.db, "quick")
	if err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	if len(problems) > 0 {
		return CheckResult{
			Status:  StatusDegraded,
			Message: "integrity check reported problems",
			Error:   strings.Join(problems, "; "),
		}
	}
	return CheckResult{Status: StatusHealthy, Message: "integrity ok"}
}
