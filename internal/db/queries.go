package db

const (
	InsertPrintJob = `
		INSERT INTO print_jobs (id, kind, status, copies, delivered, target, attempts, error_message, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	GetPrintJobByID = `
		SELECT id, kind, status, copies, delivered, target, attempts, error_message, duration_ms, created_at
		FROM print_jobs WHERE id = ?
	`

	listPrintJobsBase = `
		SELECT id, kind, status, copies, delivered, target, attempts, error_message, duration_ms, created_at
		FROM print_jobs
	`

	UpsertPrintCounter = `
		INSERT INTO print_counters (date, kind, jobs, copies, failures)
		VALUES (?, ?, 1, ?, ?)
		ON CONFLICT(date, kind) DO UPDATE SET
			jobs = jobs + 1,
			copies = copies + excluded.copies,
			failures = failures + excluded.failures
	`

	GetPrintCountersByDate = `
		SELECT date, kind, jobs, copies, failures FROM print_counters WHERE date = ? ORDER BY kind ASC
	`

	GetJobTotals = `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'delivered' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(delivered), 0)
		FROM print_jobs
	`

	GetJobCountsByKind = `
		SELECT kind, COUNT(*) FROM print_jobs GROUP BY kind
	`

	DeletePrintJobsBefore = `
		DELETE FROM print_jobs WHERE created_at < ?
	`

	DeletePrintCountersBefore = `
		DELETE FROM print_counters WHERE date < ?
	`
)
