package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrModelIDEmpty is returned when a model ID is empty or nil.
	ErrModelIDEmpty = errors.New("model ID cannot be empty")

	// ErrModelNameEmpty is returned when a model has no name.
	ErrModelNameEmpty = errors.New("model name cannot be empty")
)

// Model describes a fact layout: which fields a fact carries and which
// sibling cards are generated from it.
type Model struct {
	ID          uuid.UUID
	Name        string
	Tags        string
	CardModels  []CardModel
	FieldModels []FieldModel
	Created     float64
	Modified    float64
}

// CardModel is one card template within a model. Rendering is external;
// the scheduler only cares about identity, ordinal and active state.
type CardModel struct {
	ID      uuid.UUID
	ModelID uuid.UUID
	Ordinal int
	Name    string
	Active  bool
}

// FieldModel is one field slot within a model.
type FieldModel struct {
	ID       uuid.UUID
	ModelID  uuid.UUID
	Ordinal  int
	Name     string
	Required bool
	Unique   bool
}

// NewModel creates a named model with no templates or fields.
func NewModel(name string) (*Model, error) {
	now := float64(time.Now().UnixNano()) / 1e9
	m := &Model{
		ID:       uuid.New(),
		Name:     name,
		Created:  now,
		Modified: now,
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks the model's identity.
func (m *Model) Validate() error {
	if m.ID == uuid.Nil {
		return ErrModelIDEmpty
	}
	if m.Name == "" {
		return ErrModelNameEmpty
	}
	return nil
}

// ActiveCardModels returns the templates that currently generate cards.
func (m *Model) ActiveCardModels() []CardModel {
	out := make([]CardModel, 0, len(m.CardModels))
	for _, cm := range m.CardModels {
		if cm.Active {
			out = append(out, cm)
		}
	}
	return out
}
