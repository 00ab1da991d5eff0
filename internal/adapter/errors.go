package adapter

import "errors"

var (
	// ErrUnsupportedDriver is returned for a remote driver other than
	// "pgx"/"postgres" or "sqlite3".
	ErrUnsupportedDriver = errors.New("unsupported remote driver")

	// ErrExecutingQuery is returned when a SELECT or an upsert fails.
	ErrExecutingQuery = errors.New("error executing sql query")

	// ErrBuildingQuery is returned when squirrel cannot render a statement.
	ErrBuildingQuery = errors.New("error building sql query")

	// ErrScanningRow is returned when a sync_records row cannot be scanned.
	ErrScanningRow = errors.New("failed to scan sync record row")

	// ErrScanningRows is returned when iteration over sync_records rows fails.
	ErrScanningRows = errors.New("failed to scan sync record rows")

	// ErrEncodingRecord and ErrDecodingRecord wrap JSON failures of the data
	// column.
	ErrEncodingRecord = errors.New("failed to encode record data")
	ErrDecodingRecord = errors.New("failed to decode record data")

	ErrBeginTx  = errors.New("failed to begin transaction")
	ErrCommitTx = errors.New("failed to commit transaction")
)
