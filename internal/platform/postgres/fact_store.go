package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mnemohq/mnemo/internal/domain"
	"github.com/mnemohq/mnemo/internal/platform/logger"
	"github.com/mnemohq/mnemo/internal/store"
)

// PostgresFactStore implements the store.FactStore interface using a
// PostgreSQL database as the storage backend. Facts and their fields are
// written together; Update replaces the field rows wholesale.
type PostgresFactStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresFactStore creates a new PostgreSQL implementation of the
// FactStore interface. If logger is nil, a default logger will be used.
func NewPostgresFactStore(db store.DBTX, logger *slog.Logger) *PostgresFactStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresFactStore{
		db:     db,
		logger: logger.With(slog.String("component", "fact_store")),
	}
}

var _ store.FactStore = (*PostgresFactStore)(nil)

// WithTxFactStore returns a FactStore bound to the given transaction.
func (s *PostgresFactStore) WithTxFactStore(tx *sql.Tx) store.FactStore {
	return &PostgresFactStore{db: tx, logger: s.logger}
}

// GetByID implements store.FactStore.GetByID.
// Returns store.ErrFactNotFound if the fact does not exist.
func (s *PostgresFactStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Fact, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var fact domain.Fact
	err := s.db.QueryRowContext(ctx,
		`SELECT id, model_id, tags, created, modified FROM facts WHERE id = $1`, id).
		Scan(&fact.ID, &fact.ModelID, &fact.Tags, &fact.Created, &fact.Modified)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrFactNotFound
		}
		log.Error("failed to get fact by ID",
			slog.String("error", err.Error()),
			slog.String("fact_id", id.String()))
		return nil, MapError(err)
	}

	fields, err := s.factFields(ctx, id)
	if err != nil {
		log.Error("failed to load fact fields",
			slog.String("error", err.Error()),
			slog.String("fact_id", id.String()))
		return nil, err
	}
	fact.Fields = fields
	return &fact, nil
}

// Create implements store.FactStore.Create.
func (s *PostgresFactStore) Create(ctx context.Context, fact *domain.Fact) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := fact.Validate(); err != nil {
		log.Warn("fact validation failed during create",
			slog.String("error", err.Error()),
			slog.String("fact_id", fact.ID.String()))
		return err
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO facts (id, model_id, tags, created, modified) VALUES ($1, $2, $3, $4, $5)`,
		fact.ID, fact.ModelID, fact.Tags, fact.Created, fact.Modified)
	if err != nil {
		log.Error("failed to create fact",
			slog.String("error", err.Error()),
			slog.String("fact_id", fact.ID.String()))
		return MapError(err)
	}

	return s.insertFields(ctx, fact)
}

// Update implements store.FactStore.Update. The field rows are replaced
// so reordered or edited fields need no diffing.
func (s *PostgresFactStore) Update(ctx context.Context, fact *domain.Fact) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := fact.Validate(); err != nil {
		log.Warn("fact validation failed during update",
			slog.String("error", err.Error()),
			slog.String("fact_id", fact.ID.String()))
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE facts SET model_id = $2, tags = $3, created = $4, modified = $5 WHERE id = $1`,
		fact.ID, fact.ModelID, fact.Tags, fact.Created, fact.Modified)
	if err != nil {
		log.Error("failed to update fact",
			slog.String("error", err.Error()),
			slog.String("fact_id", fact.ID.String()))
		return MapError(err)
	}
	if err := CheckRowsAffected(result, "fact"); err != nil {
		return store.ErrFactNotFound
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM fields WHERE fact_id = $1`, fact.ID); err != nil {
		return MapError(err)
	}
	return s.insertFields(ctx, fact)
}

// Delete implements store.FactStore.Delete.
func (s *PostgresFactStore) Delete(ctx context.Context, ids ...uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	log := logger.FromContextOrDefault(ctx, s.logger)

	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM fields WHERE fact_id = ANY($1::uuid[])`, uuidStrings(ids)); err != nil {
		log.Error("failed to delete fact fields", slog.String("error", err.Error()))
		return MapError(err)
	}
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM facts WHERE id = ANY($1::uuid[])`, uuidStrings(ids)); err != nil {
		log.Error("failed to delete facts", slog.String("error", err.Error()))
		return MapError(err)
	}
	return nil
}

// ModifiedSince implements store.FactStore.ModifiedSince.
func (s *PostgresFactStore) ModifiedSince(ctx context.Context, t float64) ([]store.IDTime, error) {
	return queryIDTimes(ctx, s.db,
		`SELECT id, modified FROM facts WHERE modified > $1 ORDER BY modified`, t)
}

func (s *PostgresFactStore) insertFields(ctx context.Context, fact *domain.Fact) error {
	query := `
		INSERT INTO fields (id, fact_id, field_model_id, ordinal, value)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, f := range fact.Fields {
		if _, err := s.db.ExecContext(ctx, query, f.ID, fact.ID, f.FieldModelID, f.Ordinal, f.Value); err != nil {
			return MapError(err)
		}
	}
	return nil
}

func (s *PostgresFactStore) factFields(ctx context.Context, factID uuid.UUID) ([]domain.Field, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, fact_id, field_model_id, ordinal, value FROM fields WHERE fact_id = $1 ORDER BY ordinal`,
		factID)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var fields []domain.Field
	for rows.Next() {
		var f domain.Field
		if err := rows.Scan(&f.ID, &f.FactID, &f.FieldModelID, &f.Ordinal, &f.Value); err != nil {
			return nil, MapError(err)
		}
		fields = append(fields, f)
	}
	return fields, MapError(rows.Err())
}

// PostgresTagStore implements the store.TagStore interface. A card's
// tags are its owning fact's tags, split on commas.
type PostgresTagStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTagStore creates a new PostgreSQL implementation of the
// TagStore interface. If logger is nil, a default logger will be used.
func NewPostgresTagStore(db store.DBTX, logger *slog.Logger) *PostgresTagStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTagStore{
		db:     db,
		logger: logger.With(slog.String("component", "tag_store")),
	}
}

var _ store.TagStore = (*PostgresTagStore)(nil)

// WithTxTagStore returns a TagStore bound to the given transaction.
func (s *PostgresTagStore) WithTxTagStore(tx *sql.Tx) store.TagStore {
	return &PostgresTagStore{db: tx, logger: s.logger}
}

// CardTags implements store.TagStore.CardTags.
func (s *PostgresTagStore) CardTags(ctx context.Context) (map[uuid.UUID][]string, error) {
	return s.cardTags(ctx, nil)
}

// CardTagsFor implements store.TagStore.CardTagsFor.
func (s *PostgresTagStore) CardTagsFor(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]string, error) {
	if len(ids) == 0 {
		return map[uuid.UUID][]string{}, nil
	}
	return s.cardTags(ctx, ids)
}

func (s *PostgresTagStore) cardTags(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]string, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT c.id, f.tags
		FROM cards c
		JOIN facts f ON f.id = c.fact_id
	`
	var args []any
	if ids != nil {
		query += ` WHERE c.id = ANY($1::uuid[])`
		args = append(args, uuidStrings(ids))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query card tags", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[uuid.UUID][]string)
	for rows.Next() {
		var id uuid.UUID
		var tags string
		if err := rows.Scan(&id, &tags); err != nil {
			return nil, MapError(err)
		}
		out[id] = domain.SplitTags(tags)
	}
	return out, MapError(rows.Err())
}
