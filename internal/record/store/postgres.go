package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"recordvault/internal/record/models"
	id "recordvault/pkg/domain"
	"recordvault/pkg/platform/sentinel"
)

// uniqueViolation is the postgres error code raised when the slug or
// external-ref unique index rejects a write.
const uniqueViolation = "23505"

// Postgres persists records in PostgreSQL. This store is pure I/O — policy
// and invariant decisions belong to the service; the database contributes
// the unique indexes and single-row atomicity.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const recordColumns = `
	id, external_ref, owner_id, title, slug, status, priority, category,
	score, amount, counter, is_published, is_featured,
	tags, score_history, related_ids, metadata, config,
	valid_range, active_period,
	created_at, updated_at, published_at, expires_at`

func (s *Postgres) Create(ctx context.Context, rec *models.Record) error {
	row, err := toRow(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	query := `
		INSERT INTO records (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
		        $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)
	`
	_, err = s.db.ExecContext(ctx, query, row.args()...)
	if err != nil {
		return fmt.Errorf("create record: %w", mapPQError(err))
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, recordID id.RecordID) (*models.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM records WHERE id = $1`
	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, recordID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find record: %w", err)
	}
	return rec, nil
}

func (s *Postgres) FindByExternalRef(ctx context.Context, ref id.ExternalRef) (*models.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM records WHERE external_ref = $1`
	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, ref.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find record by ref: %w", err)
	}
	return rec, nil
}

func (s *Postgres) List(ctx context.Context, filter ListFilter) ([]*models.Record, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.OwnerID != nil {
		args = append(args, filter.OwnerID.String())
		clauses = append(clauses, fmt.Sprintf("owner_id = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Category != nil {
		args = append(args, string(*filter.Category))
		clauses = append(clauses, fmt.Sprintf("category = $%d", len(args)))
	}

	query := `SELECT ` + recordColumns + ` FROM records`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []*models.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return out, nil
}

// Execute runs validate-then-mutate inside one transaction with the row
// locked (SELECT ... FOR UPDATE), so concurrent updates to the same record
// serialize at the repository.
func (s *Postgres) Execute(ctx context.Context, recordID id.RecordID,
	validate func(pre *models.Record) error,
	mutate func(rec *models.Record) error,
) (*models.Record, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `SELECT ` + recordColumns + ` FROM records WHERE id = $1 FOR UPDATE`
	pre, err := scanRecord(tx.QueryRowContext(ctx, query, recordID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("lock record: %w", err)
	}

	if err := validate(pre.Clone()); err != nil {
		return nil, err
	}
	work := pre.Clone()
	if err := mutate(work); err != nil {
		return nil, err
	}

	row, err := toRow(work)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	update := `
		UPDATE records SET
			title = $2, slug = $3, status = $4, priority = $5, category = $6,
			score = $7, amount = $8, counter = $9,
			is_published = $10, is_featured = $11,
			tags = $12, score_history = $13, related_ids = $14,
			metadata = $15, config = $16,
			valid_range = $17, active_period = $18,
			updated_at = $19, published_at = $20, expires_at = $21
		WHERE id = $1
	`
	_, err = tx.ExecContext(ctx, update,
		row.id, row.title, row.slug, row.status, row.priority, row.category,
		row.score, row.amount, row.counter,
		row.isPublished, row.isFeatured,
		row.tags, row.scoreHistory, row.relatedIDs,
		row.metadata, row.config,
		row.validRange, row.activePeriod,
		row.updatedAt, row.publishedAt, row.expiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update record: %w", mapPQError(err))
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update: %w", mapPQError(err))
	}
	return work, nil
}

func (s *Postgres) Delete(ctx context.Context, recordID id.RecordID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE id = $1`, recordID.String())
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) DeleteByOwner(ctx context.Context, ownerID id.OwnerID) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE owner_id = $1`, ownerID.String())
	if err != nil {
		return 0, fmt.Errorf("delete owner records: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete owner records: %w", err)
	}
	return int(affected), nil
}

func (s *Postgres) FindExpiredIDs(ctx context.Context, now time.Time) ([]id.RecordID, error) {
	query := `
		SELECT id FROM records
		WHERE expires_at IS NOT NULL AND expires_at < $1 AND status <> 'archived'
		ORDER BY expires_at
	`
	rows, err := s.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("find expired records: %w", err)
	}
	defer rows.Close()

	var out []id.RecordID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan expired id: %w", err)
		}
		recordID, err := id.ParseRecordID(raw)
		if err != nil {
			return nil, fmt.Errorf("parse expired id: %w", err)
		}
		out = append(out, recordID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find expired records: %w", err)
	}
	return out, nil
}

// mapPQError translates postgres unique violations into the shared sentinel
// so services stay driver-agnostic.
func mapPQError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return fmt.Errorf("%s: %w", pqErr.Constraint, sentinel.ErrAlreadyUsed)
	}
	return err
}

// recordRow is the flat SQL image of a record; jsonb columns hold the
// sequences, documents, and intervals.
type recordRow struct {
	id, externalRef, ownerID   string
	title, slug                string
	status, priority, category string
	score                      string
	amount                     sql.NullString
	counter                    int64
	isPublished, isFeatured    bool
	tags                       []byte
	scoreHistory               []byte
	relatedIDs                 []byte
	metadata                   []byte
	config                     []byte
	validRange                 []byte
	activePeriod               []byte
	createdAt, updatedAt       time.Time
	publishedAt, expiresAt     sql.NullTime
}

func (r *recordRow) args() []any {
	return []any{
		r.id, r.externalRef, r.ownerID, r.title, r.slug,
		r.status, r.priority, r.category,
		r.score, r.amount, r.counter, r.isPublished, r.isFeatured,
		r.tags, r.scoreHistory, r.relatedIDs, r.metadata, r.config,
		r.validRange, r.activePeriod,
		r.createdAt, r.updatedAt, r.publishedAt, r.expiresAt,
	}
}

func toRow(rec *models.Record) (*recordRow, error) {
	row := &recordRow{
		id:          rec.ID.String(),
		externalRef: rec.ExternalRef.String(),
		ownerID:     rec.OwnerID.String(),
		title:       rec.Title,
		slug:        rec.Slug,
		status:      string(rec.Status),
		priority:    string(rec.Priority),
		category:    string(rec.Category),
		score:       rec.Score.StringFixed(2),
		counter:     rec.Counter,
		isPublished: rec.IsPublished,
		isFeatured:  rec.IsFeatured,
		createdAt:   rec.CreatedAt,
		updatedAt:   rec.UpdatedAt,
	}
	if rec.Amount != nil {
		row.amount = sql.NullString{String: rec.Amount.StringFixed(2), Valid: true}
	}
	if rec.PublishedAt != nil {
		row.publishedAt = sql.NullTime{Time: *rec.PublishedAt, Valid: true}
	}
	if rec.ExpiresAt != nil {
		row.expiresAt = sql.NullTime{Time: *rec.ExpiresAt, Valid: true}
	}

	var err error
	if row.tags, err = json.Marshal(rec.Tags); err != nil {
		return nil, err
	}
	if row.scoreHistory, err = json.Marshal(rec.ScoreHistory); err != nil {
		return nil, err
	}
	if row.relatedIDs, err = json.Marshal(rec.RelatedIDs); err != nil {
		return nil, err
	}
	if row.metadata, err = json.Marshal(rec.Metadata); err != nil {
		return nil, err
	}
	if rec.Config != nil {
		if row.config, err = json.Marshal(rec.Config); err != nil {
			return nil, err
		}
	}
	if rec.ValidRange != nil {
		if row.validRange, err = json.Marshal(rec.ValidRange); err != nil {
			return nil, err
		}
	}
	if rec.ActivePeriod != nil {
		if row.activePeriod, err = json.Marshal(rec.ActivePeriod); err != nil {
			return nil, err
		}
	}
	return row, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (*models.Record, error) {
	var row recordRow
	err := sc.Scan(
		&row.id, &row.externalRef, &row.ownerID, &row.title, &row.slug,
		&row.status, &row.priority, &row.category,
		&row.score, &row.amount, &row.counter, &row.isPublished, &row.isFeatured,
		&row.tags, &row.scoreHistory, &row.relatedIDs, &row.metadata, &row.config,
		&row.validRange, &row.activePeriod,
		&row.createdAt, &row.updatedAt, &row.publishedAt, &row.expiresAt,
	)
	if err != nil {
		return nil, err
	}
	return fromRow(&row)
}

func fromRow(row *recordRow) (*models.Record, error) {
	recordID, err := id.ParseRecordID(row.id)
	if err != nil {
		return nil, err
	}
	externalRef, err := id.ParseExternalRef(row.externalRef)
	if err != nil {
		return nil, err
	}
	ownerID, err := id.ParseOwnerID(row.ownerID)
	if err != nil {
		return nil, err
	}
	score, err := decimal.NewFromString(row.score)
	if err != nil {
		return nil, fmt.Errorf("decode score: %w", err)
	}

	rec := &models.Record{
		ID:          recordID,
		ExternalRef: externalRef,
		OwnerID:     ownerID,
		Title:       row.title,
		Slug:        row.slug,
		Status:      models.Status(row.status),
		Priority:    models.Priority(row.priority),
		Category:    models.Category(row.category),
		Score:       score,
		Counter:     row.counter,
		IsPublished: row.isPublished,
		IsFeatured:  row.isFeatured,
		CreatedAt:   row.createdAt,
		UpdatedAt:   row.updatedAt,
	}
	if row.amount.Valid {
		amount, err := decimal.NewFromString(row.amount.String)
		if err != nil {
			return nil, fmt.Errorf("decode amount: %w", err)
		}
		rec.Amount = &amount
	}
	if row.publishedAt.Valid {
		t := row.publishedAt.Time
		rec.PublishedAt = &t
	}
	if row.expiresAt.Valid {
		t := row.expiresAt.Time
		rec.ExpiresAt = &t
	}
	if err := json.Unmarshal(row.tags, &rec.Tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	if err := json.Unmarshal(row.scoreHistory, &rec.ScoreHistory); err != nil {
		return nil, fmt.Errorf("decode score history: %w", err)
	}
	if err := json.Unmarshal(row.relatedIDs, &rec.RelatedIDs); err != nil {
		return nil, fmt.Errorf("decode related ids: %w", err)
	}
	if err := json.Unmarshal(row.metadata, &rec.Metadata); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	if len(row.config) > 0 {
		if err := json.Unmarshal(row.config, &rec.Config); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	}
	if len(row.validRange) > 0 {
		rec.ValidRange = &models.IntRange{}
		if err := json.Unmarshal(row.validRange, rec.ValidRange); err != nil {
			return nil, fmt.Errorf("decode valid range: %w", err)
		}
	}
	if len(row.activePeriod) > 0 {
		rec.ActivePeriod = &models.TimeRange{}
		if err := json.Unmarshal(row.activePeriod, rec.ActivePeriod); err != nil {
			return nil, fmt.Errorf("decode active period: %w", err)
		}
	}
	return rec, nil
}
