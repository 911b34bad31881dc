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

// PostgresModelStore implements the store.ModelStore interface using a
// PostgreSQL database as the storage backend. A model's card and field
// templates are written with it; Update replaces them wholesale.
type PostgresModelStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresModelStore creates a new PostgreSQL implementation of the
// ModelStore interface. If logger is nil, a default logger will be used.
func NewPostgresModelStore(db store.DBTX, logger *slog.Logger) *PostgresModelStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresModelStore{
		db:     db,
		logger: logger.With(slog.String("component", "model_store")),
	}
}

var _ store.ModelStore = (*PostgresModelStore)(nil)

// WithTxModelStore returns a ModelStore bound to the given transaction.
func (s *PostgresModelStore) WithTxModelStore(tx *sql.Tx) store.ModelStore {
	return &PostgresModelStore{db: tx, logger: s.logger}
}

// GetByID implements store.ModelStore.GetByID.
// Returns store.ErrModelNotFound if the model does not exist.
func (s *PostgresModelStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Model, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var m domain.Model
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, tags, created, modified FROM models WHERE id = $1`, id).
		Scan(&m.ID, &m.Name, &m.Tags, &m.Created, &m.Modified)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrModelNotFound
		}
		log.Error("failed to get model by ID",
			slog.String("error", err.Error()),
			slog.String("model_id", id.String()))
		return nil, MapError(err)
	}

	if m.CardModels, err = s.cardModels(ctx, id); err != nil {
		return nil, err
	}
	if m.FieldModels, err = s.fieldModels(ctx, id); err != nil {
		return nil, err
	}
	return &m, nil
}

// Create implements store.ModelStore.Create.
func (s *PostgresModelStore) Create(ctx context.Context, model *domain.Model) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := model.Validate(); err != nil {
		log.Warn("model validation failed during create",
			slog.String("error", err.Error()),
			slog.String("model_id", model.ID.String()))
		return err
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO models (id, name, tags, created, modified) VALUES ($1, $2, $3, $4, $5)`,
		model.ID, model.Name, model.Tags, model.Created, model.Modified)
	if err != nil {
		log.Error("failed to create model",
			slog.String("error", err.Error()),
			slog.String("model_id", model.ID.String()))
		return MapError(err)
	}
	return s.insertTemplates(ctx, model)
}

// Update implements store.ModelStore.Update.
func (s *PostgresModelStore) Update(ctx context.Context, model *domain.Model) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := model.Validate(); err != nil {
		log.Warn("model validation failed during update",
			slog.String("error", err.Error()),
			slog.String("model_id", model.ID.String()))
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE models SET name = $2, tags = $3, created = $4, modified = $5 WHERE id = $1`,
		model.ID, model.Name, model.Tags, model.Created, model.Modified)
	if err != nil {
		log.Error("failed to update model",
			slog.String("error", err.Error()),
			slog.String("model_id", model.ID.String()))
		return MapError(err)
	}
	if err := CheckRowsAffected(result, "model"); err != nil {
		return store.ErrModelNotFound
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM card_models WHERE model_id = $1`, model.ID); err != nil {
		return MapError(err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM field_models WHERE model_id = $1`, model.ID); err != nil {
		return MapError(err)
	}
	return s.insertTemplates(ctx, model)
}

// Delete implements store.ModelStore.Delete.
func (s *PostgresModelStore) Delete(ctx context.Context, ids ...uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	log := logger.FromContextOrDefault(ctx, s.logger)

	for _, query := range []string{
		`DELETE FROM card_models WHERE model_id = ANY($1::uuid[])`,
		`DELETE FROM field_models WHERE model_id = ANY($1::uuid[])`,
		`DELETE FROM models WHERE id = ANY($1::uuid[])`,
	} {
		if _, err := s.db.ExecContext(ctx, query, uuidStrings(ids)); err != nil {
			log.Error("failed to delete models", slog.String("error", err.Error()))
			return MapError(err)
		}
	}
	return nil
}

// ModifiedSince implements store.ModelStore.ModifiedSince.
func (s *PostgresModelStore) ModifiedSince(ctx context.Context, t float64) ([]store.IDTime, error) {
	return queryIDTimes(ctx, s.db,
		`SELECT id, modified FROM models WHERE modified > $1 ORDER BY modified`, t)
}

func (s *PostgresModelStore) insertTemplates(ctx context.Context, model *domain.Model) error {
	for _, cm := range model.CardModels {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO card_models (id, model_id, ordinal, name, active) VALUES ($1, $2, $3, $4, $5)`,
			cm.ID, model.ID, cm.Ordinal, cm.Name, cm.Active)
		if err != nil {
			return MapError(err)
		}
	}
	for _, fm := range model.FieldModels {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO field_models (id, model_id, ordinal, name, required, is_unique)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			fm.ID, model.ID, fm.Ordinal, fm.Name, fm.Required, fm.Unique)
		if err != nil {
			return MapError(err)
		}
	}
	return nil
}

func (s *PostgresModelStore) cardModels(ctx context.Context, modelID uuid.UUID) ([]domain.CardModel, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, model_id, ordinal, name, active FROM card_models WHERE model_id = $1 ORDER BY ordinal`,
		modelID)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.CardModel
	for rows.Next() {
		var cm domain.CardModel
		if err := rows.Scan(&cm.ID, &cm.ModelID, &cm.Ordinal, &cm.Name, &cm.Active); err != nil {
			return nil, MapError(err)
		}
		out = append(out, cm)
	}
	return out, MapError(rows.Err())
}

func (s *PostgresModelStore) fieldModels(ctx context.Context, modelID uuid.UUID) ([]domain.FieldModel, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, model_id, ordinal, name, required, is_unique FROM field_models WHERE model_id = $1 ORDER BY ordinal`,
		modelID)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.FieldModel
	for rows.Next() {
		var fm domain.FieldModel
		if err := rows.Scan(&fm.ID, &fm.ModelID, &fm.Ordinal, &fm.Name, &fm.Required, &fm.Unique); err != nil {
			return nil, MapError(err)
		}
		out = append(out, fm)
	}
	return out, MapError(rows.Err())
}
