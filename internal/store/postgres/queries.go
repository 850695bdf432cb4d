package postgres

// Table identifiers are sanitized with pgx.Identifier before being formatted in.
const (
	createTableSQL = `CREATE TABLE IF NOT EXISTS %s (
    id          BIGSERIAL PRIMARY KEY,
    message_key TEXT NOT NULL,
    thread_id   TEXT NOT NULL,
    sent_at     TIMESTAMPTZ NOT NULL,
    payload     JSONB NOT NULL,
    stored_at   TIMESTAMPTZ NOT NULL DEFAULT now()
)`

	registerPartitionSQL = `INSERT INTO thread_partitions (thread_id, table_name)
VALUES ($1, $2)
ON CONFLICT (thread_id) DO NOTHING`

	listPartitionsSQL = `SELECT thread_id, table_name FROM thread_partitions ORDER BY thread_id`

	countSQL = `SELECT count(*) FROM %s`

	indexExistsSQL = `SELECT EXISTS (
    SELECT 1 FROM pg_indexes
    WHERE schemaname = $1 AND tablename = $2 AND indexname = $3
)`

	createIndexSQL = `CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (message_key)`

	// xmax is 0 only for a freshly inserted row version.
	upsertSQL = `INSERT INTO %s (message_key, thread_id, sent_at, payload)
VALUES ($1, $2, $3, $4)
ON CONFLICT (message_key) DO UPDATE
SET thread_id = EXCLUDED.thread_id,
    sent_at   = EXCLUDED.sent_at,
    payload   = EXCLUDED.payload,
    stored_at = now()
RETURNING (xmax = 0)`

	insertSQL = `INSERT INTO %s (message_key, thread_id, sent_at, payload) VALUES ($1, $2, $3, $4)`
)
