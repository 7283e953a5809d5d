package store

import "errors"

// Sentinel errors returned by repository methods to signal well-known failure
// conditions. Callers should use [errors.Is] to match against these values.
var (
	// ErrRecordNotFound is returned when a user has no configuration record.
	ErrRecordNotFound = errors.New("config record was not found")

	// ErrDeviceNotFound is returned when a stats update targets a device that
	// was never registered for the user.
	ErrDeviceNotFound = errors.New("device was not found")

	// ErrNoUserWasFound is returned when a user row cannot be read back.
	ErrNoUserWasFound = errors.New("no user was found")

	// ErrVersionConflict is returned when the compare-and-set on the record
	// version fails: the supplied version is not exactly the stored version
	// plus one, meaning another device wrote the record in the meantime.
	ErrVersionConflict = errors.New("config record version conflict occurred")

	// ErrTransient wraps database errors that may succeed when retried
	// (lost connection, serialization failure, deadlock).
	ErrTransient = errors.New("transient database error")
)

// Low-level database operation errors. These are returned (or wrapped) by
// repository methods when a SQL-level operation fails before any domain logic
// can be applied.
var (
	// ErrBuildingSQLQuery is returned when constructing a parameterised SQL
	// query fails.
	ErrBuildingSQLQuery = errors.New("error building sql query")

	// ErrExecutingQuery is returned when executing a SELECT fails.
	ErrExecutingQuery = errors.New("error executing sql query")

	// ErrExecutingStatement is returned when executing a DML statement
	// (INSERT, UPDATE) fails.
	ErrExecutingStatement = errors.New("failed to executing statement")

	// ErrScanningRow is returned when scanning a single result row fails.
	ErrScanningRow = errors.New("failed to scan row")

	// ErrScanningRows is returned when scanning during multi-row iteration
	// fails.
	ErrScanningRows = errors.New("failed to scan rows")

	// ErrEncodingColumn is returned when a structured column cannot be
	// encoded to or decoded from JSON.
	ErrEncodingColumn = errors.New("failed to encode json column")
)
