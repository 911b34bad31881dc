package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Fact-specific validation errors
var (
	// ErrFactIDEmpty is returned when a fact ID is empty or nil.
	ErrFactIDEmpty = errors.New("fact ID cannot be empty")

	// ErrFactModelIDEmpty is returned when a fact's model ID is empty or nil.
	ErrFactModelIDEmpty = errors.New("fact model ID cannot be empty")

	// ErrFieldValueMissing is returned when a required field has no value.
	ErrFieldValueMissing = errors.New("required field value missing")
)

// Field is one value slot on a fact, bound to a field model by ID.
type Field struct {
	ID           uuid.UUID
	FactID       uuid.UUID
	FieldModelID uuid.UUID
	Ordinal      int
	Value        string
}

// Fact is the source of one or more sibling cards. Tags is a comma
// separated string; TagList splits it for priority derivation.
type Fact struct {
	ID       uuid.UUID
	ModelID  uuid.UUID
	Tags     string
	Fields   []Field
	Created  float64
	Modified float64
}

// NewFact creates a fact for the given model with empty fields.
func NewFact(modelID uuid.UUID) (*Fact, error) {
	now := float64(time.Now().UnixNano()) / 1e9
	fact := &Fact{
		ID:       uuid.New(),
		ModelID:  modelID,
		Created:  now,
		Modified: now,
	}
	if err := fact.Validate(); err != nil {
		return nil, err
	}
	return fact, nil
}

// Validate checks the fact's identity.
func (f *Fact) Validate() error {
	if f.ID == uuid.Nil {
		return ErrFactIDEmpty
	}
	if f.ModelID == uuid.Nil {
		return ErrFactModelIDEmpty
	}
	return nil
}

// TagList returns the fact's tags as a trimmed, empty-free slice.
func (f *Fact) TagList() []string {
	return SplitTags(f.Tags)
}

// HasTag reports whether the fact carries the given tag (case-insensitive).
func (f *Fact) HasTag(tag string) bool {
	for _, t := range f.TagList() {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// AddTag appends a tag if not already present and bumps the modification clock.
func (f *Fact) AddTag(tag string, now float64) {
	if f.HasTag(tag) {
		return
	}
	tags := append(f.TagList(), tag)
	f.Tags = JoinTags(tags)
	f.Modified = now
}

// SplitTags splits a comma separated tag string, dropping blanks.
func SplitTags(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// JoinTags is the inverse of SplitTags.
func JoinTags(tags []string) string {
	return strings.Join(tags, ",")
}
