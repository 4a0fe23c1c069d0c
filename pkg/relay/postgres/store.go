// Package postgres stores relay records in PostgreSQL. Leases are claimed
// with SELECT ... FOR UPDATE SKIP LOCKED, so any number of relay processes
// can share a table.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	pgpersist "github.com/Sokol111/ecommerce-relay/pkg/persistence/postgres"
	"github.com/Sokol111/ecommerce-relay/pkg/relay"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/lo"
)

const (
	codeUniqueViolation    = "23505"
	codeInFailedSQLTx      = "25P02"
	codeNoActiveSQLTx      = "25P01"
	recordColumns          = "id, type, payload, headers, status, lease_owner, lease_expires_at, attempts, available_at, last_error, created_at, processed_at"
	qualifiedRecordColumns = "t.id, t.type, t.payload, t.headers, t.status, t.lease_owner, t.lease_expires_at, t.attempts, t.available_at, t.last_error, t.created_at, t.processed_at"
)

// Store implements relay.Store for one table. Queries join the transaction
// carried by ctx when there is one and use the pool otherwise; Insert
// always requires a transaction.
type Store struct {
	db    pgpersist.DBTX
	table string

	insertSQL  string
	acquireSQL string
	applySQL   string
	getSQL     string
	listSQL    string
	purgeSQL   string
}

var _ relay.Store = (*Store)(nil)

// NewStore prepares the statements for table ("schema.name" or "name").
func NewStore(db pgpersist.DBTX, table string) (*Store, error) {
	ident, err := quoteTable(table)
	if err != nil {
		return nil, err
	}

	return &Store{
		db:    db,
		table: table,
		insertSQL: fmt.Sprintf(`INSERT INTO %s (id, type, payload, headers, status, attempts, available_at, created_at)
VALUES ($1, $2, $3, $4, 'PENDING', 0, $5, $6)`, ident),
		acquireSQL: fmt.Sprintf(`WITH claimable AS (
    SELECT id, status AS previous_status, lease_owner AS previous_owner
    FROM %[1]s
    WHERE (status = 'PENDING' AND available_at <= $1)
       OR (status = 'LEASED' AND lease_expires_at < $1)
    ORDER BY available_at, created_at
    LIMIT $2
    FOR UPDATE SKIP LOCKED
)
UPDATE %[1]s AS t
SET status = 'LEASED', lease_owner = $3, lease_expires_at = $4
FROM claimable c
WHERE t.id = c.id
RETURNING %[2]s, c.previous_status, c.previous_owner`, ident, qualifiedRecordColumns),
		applySQL: fmt.Sprintf(`UPDATE %s
SET status = $3, attempts = $4, available_at = $5, last_error = $6, processed_at = $7,
    lease_owner = NULL, lease_expires_at = NULL
WHERE id = $1 AND status = 'LEASED' AND lease_owner = $2`, ident),
		getSQL:   fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, recordColumns, ident),
		listSQL:  fmt.Sprintf(`SELECT %s FROM %s WHERE status = $1 ORDER BY created_at, id LIMIT $2`, recordColumns, ident),
		purgeSQL: fmt.Sprintf(`DELETE FROM %s`, ident),
	}, nil
}

// quoteTable validates and quotes a possibly schema-qualified table name.
func quoteTable(table string) (string, error) {
	parts := strings.Split(table, ".")
	if table == "" || len(parts) > 2 || slices.Contains(parts, "") {
		return "", fmt.Errorf("%w: invalid table name %q", relay.ErrInvalidArgument, table)
	}
	return pgx.Identifier(parts).Sanitize(), nil
}

func (s *Store) querier(ctx context.Context) pgpersist.DBTX {
	if tx, ok := pgpersist.TxFromContext(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Store) Insert(ctx context.Context, rec *relay.Record) error {
	q, err := pgpersist.Querier(ctx)
	if err != nil {
		return err
	}

	headers := rec.Headers
	if headers == nil {
		headers = map[string]string{}
	}
	payload := rec.Payload
	if payload == nil {
		payload = []byte{}
	}

	if _, err := q.Exec(ctx, s.insertSQL, rec.ID, rec.Type, payload, headers, rec.AvailableAt, rec.CreatedAt); err != nil {
		return translate(err)
	}
	return nil
}

func (s *Store) Acquire(ctx context.Context, req relay.AcquireRequest) ([]*relay.Record, error) {
	rows, err := s.querier(ctx).Query(ctx, s.acquireSQL, req.Now, req.Limit, req.Owner, req.LeaseUntil)
	if err != nil {
		return nil, translate(err)
	}

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*relay.Record, error) {
		var (
			previousStatus string
			previousOwner  *string
		)
		rec, err := scanRecord(row, &previousStatus, &previousOwner)
		if err != nil {
			return nil, err
		}
		if relay.Status(previousStatus) == relay.StatusLeased {
			rec.ReclaimedFrom = lo.FromPtr(previousOwner)
		}
		return rec, nil
	})
	if err != nil {
		return nil, translate(err)
	}

	// UPDATE ... RETURNING does not keep the CTE order.
	slices.SortFunc(records, func(a, b *relay.Record) int {
		if c := a.AvailableAt.Compare(b.AvailableAt); c != 0 {
			return c
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return records, nil
}

func (s *Store) Apply(ctx context.Context, t relay.Transition) error {
	tag, err := s.querier(ctx).Exec(ctx, s.applySQL,
		t.ID, t.Owner, string(t.To), t.Attempts, t.AvailableAt, lo.EmptyableToPtr(t.LastError), t.ProcessedAt)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return relay.ErrLeaseExpired
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id uuid.UUID) (*relay.Record, error) {
	rec, err := scanRecord(s.querier(ctx).QueryRow(ctx, s.getSQL, id))
	if err != nil {
		return nil, translate(err)
	}
	return rec, nil
}

func (s *Store) ListByStatus(ctx context.Context, status relay.Status, limit int) ([]*relay.Record, error) {
	rows, err := s.querier(ctx).Query(ctx, s.listSQL, string(status), limit)
	if err != nil {
		return nil, translate(err)
	}
	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*relay.Record, error) {
		return scanRecord(row)
	})
	if err != nil {
		return nil, translate(err)
	}
	return records, nil
}

func (s *Store) Purge(ctx context.Context) error {
	if _, err := s.querier(ctx).Exec(ctx, s.purgeSQL); err != nil {
		return translate(err)
	}
	return nil
}

func scanRecord(row pgx.Row, extra ...any) (*relay.Record, error) {
	var (
		rec            relay.Record
		status         string
		leaseOwner     *string
		leaseExpiresAt *time.Time
		lastError      *string
	)
	dest := append([]any{
		&rec.ID, &rec.Type, &rec.Payload, &rec.Headers, &status, &leaseOwner, &leaseExpiresAt,
		&rec.Attempts, &rec.AvailableAt, &lastError, &rec.CreatedAt, &rec.ProcessedAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	parsed, err := relay.ParseStatus(status)
	if err != nil {
		return nil, err
	}
	rec.Status = parsed
	rec.LeaseOwner = lo.FromPtr(leaseOwner)
	rec.LeaseExpiresAt = utcPtr(leaseExpiresAt)
	rec.LastError = lo.FromPtr(lastError)
	rec.AvailableAt = rec.AvailableAt.UTC()
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.ProcessedAt = utcPtr(rec.ProcessedAt)
	return &rec, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	return lo.ToPtr(t.UTC())
}

// translate maps driver errors onto the relay sentinels.
func translate(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return relay.ErrRecordNotFound
	}
	if errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("%w: %w", relay.ErrNoTransaction, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%w: %s", relay.ErrDuplicateRecord, pgErr.Detail)
		case codeInFailedSQLTx, codeNoActiveSQLTx:
			return fmt.Errorf("%w: %w", relay.ErrNoTransaction, err)
		}
	}
	return err
}
