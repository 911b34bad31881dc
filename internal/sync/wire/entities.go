package wire

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/mnemohq/mnemo/internal/domain"
)

// Card is the wire form of a card row. Field order:
// [id, factId, ordinal, type, priority, interval, lastInterval, due,
// lastDue, combinedDue, factor, lastFactor, reps, successive, yesCount,
// noCount, youngEase1..4, matureEase1..4, spaceUntil, relativeDelay,
// firstAnswered, reviewTime, averageTime, created, modified]
type Card domain.Card

func (c Card) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{
		c.ID, c.FactID, c.Ordinal, int(c.Type), c.Priority,
		c.Interval, c.LastInterval, c.Due, c.LastDue, c.CombinedDue,
		c.Factor, c.LastFactor,
		c.Reps, c.Successive, c.YesCount, c.NoCount,
		c.YoungEase[1], c.YoungEase[2], c.YoungEase[3], c.YoungEase[4],
		c.MatureEase[1], c.MatureEase[2], c.MatureEase[3], c.MatureEase[4],
		c.SpaceUntil, c.RelativeDelay, c.FirstAnswered,
		c.ReviewTime, c.AverageTime, c.Created, c.Modified,
	})
}

func (c *Card) UnmarshalJSON(data []byte) error {
	var typ int
	err := unmarshalTuple(data,
		&c.ID, &c.FactID, &c.Ordinal, &typ, &c.Priority,
		&c.Interval, &c.LastInterval, &c.Due, &c.LastDue, &c.CombinedDue,
		&c.Factor, &c.LastFactor,
		&c.Reps, &c.Successive, &c.YesCount, &c.NoCount,
		&c.YoungEase[1], &c.YoungEase[2], &c.YoungEase[3], &c.YoungEase[4],
		&c.MatureEase[1], &c.MatureEase[2], &c.MatureEase[3], &c.MatureEase[4],
		&c.SpaceUntil, &c.RelativeDelay, &c.FirstAnswered,
		&c.ReviewTime, &c.AverageTime, &c.Created, &c.Modified,
	)
	if err != nil {
		return err
	}
	c.Type = domain.CardType(typ)
	return nil
}

// Field order: [id, fieldModelId, ordinal, value]
type Field domain.Field

func (f Field) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{f.ID, f.FieldModelID, f.Ordinal, f.Value})
}

func (f *Field) UnmarshalJSON(data []byte) error {
	return unmarshalTuple(data, &f.ID, &f.FieldModelID, &f.Ordinal, &f.Value)
}

// Fact wire form. Field order: [id, modelId, tags, created, modified, fields]
type Fact struct {
	ID       uuid.UUID
	ModelID  uuid.UUID
	Tags     string
	Created  float64
	Modified float64
	Fields   []Field
}

func (f Fact) MarshalJSON() ([]byte, error) {
	fields := f.Fields
	if fields == nil {
		fields = []Field{}
	}
	return json.Marshal([]any{f.ID, f.ModelID, f.Tags, f.Created, f.Modified, fields})
}

func (f *Fact) UnmarshalJSON(data []byte) error {
	return unmarshalTuple(data, &f.ID, &f.ModelID, &f.Tags, &f.Created, &f.Modified, &f.Fields)
}

// FromFact converts a domain fact to wire form.
func FromFact(fact *domain.Fact) Fact {
	out := Fact{
		ID:       fact.ID,
		ModelID:  fact.ModelID,
		Tags:     fact.Tags,
		Created:  fact.Created,
		Modified: fact.Modified,
	}
	for _, fld := range fact.Fields {
		out.Fields = append(out.Fields, Field(fld))
	}
	return out
}

// ToFact converts a wire fact back to the domain type.
func (f Fact) ToFact() *domain.Fact {
	fact := &domain.Fact{
		ID:       f.ID,
		ModelID:  f.ModelID,
		Tags:     f.Tags,
		Created:  f.Created,
		Modified: f.Modified,
	}
	for _, fld := range f.Fields {
		df := domain.Field(fld)
		df.FactID = f.ID
		fact.Fields = append(fact.Fields, df)
	}
	return fact
}

// CardModel wire form. Field order: [id, ordinal, name, active]
type CardModel domain.CardModel

func (m CardModel) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{m.ID, m.Ordinal, m.Name, m.Active})
}

func (m *CardModel) UnmarshalJSON(data []byte) error {
	return unmarshalTuple(data, &m.ID, &m.Ordinal, &m.Name, &m.Active)
}

// FieldModel wire form. Field order: [id, ordinal, name, required, unique]
type FieldModel domain.FieldModel

func (m FieldModel) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{m.ID, m.Ordinal, m.Name, m.Required, m.Unique})
}

func (m *FieldModel) UnmarshalJSON(data []byte) error {
	return unmarshalTuple(data, &m.ID, &m.Ordinal, &m.Name, &m.Required, &m.Unique)
}

// Model wire form. Field order:
// [id, name, tags, created, modified, cardModels, fieldModels]
type Model struct {
	ID          uuid.UUID
	Name        string
	Tags        string
	Created     float64
	Modified    float64
	CardModels  []CardModel
	FieldModels []FieldModel
}

func (m Model) MarshalJSON() ([]byte, error) {
	cms := m.CardModels
	if cms == nil {
		cms = []CardModel{}
	}
	fms := m.FieldModels
	if fms == nil {
		fms = []FieldModel{}
	}
	return json.Marshal([]any{m.ID, m.Name, m.Tags, m.Created, m.Modified, cms, fms})
}

func (m *Model) UnmarshalJSON(data []byte) error {
	return unmarshalTuple(data,
		&m.ID, &m.Name, &m.Tags, &m.Created, &m.Modified, &m.CardModels, &m.FieldModels)
}

// FromModel converts a domain model to wire form.
func FromModel(model *domain.Model) Model {
	out := Model{
		ID:       model.ID,
		Name:     model.Name,
		Tags:     model.Tags,
		Created:  model.Created,
		Modified: model.Modified,
	}
	for _, cm := range model.CardModels {
		out.CardModels = append(out.CardModels, CardModel(cm))
	}
	for _, fm := range model.FieldModels {
		out.FieldModels = append(out.FieldModels, FieldModel(fm))
	}
	return out
}

// ToModel converts a wire model back to the domain type.
func (m Model) ToModel() *domain.Model {
	model := &domain.Model{
		ID:       m.ID,
		Name:     m.Name,
		Tags:     m.Tags,
		Created:  m.Created,
		Modified: m.Modified,
	}
	for _, cm := range m.CardModels {
		dm := domain.CardModel(cm)
		dm.ModelID = m.ID
		model.CardModels = append(model.CardModels, dm)
	}
	for _, fm := range m.FieldModels {
		dm := domain.FieldModel(fm)
		dm.ModelID = m.ID
		model.FieldModels = append(model.FieldModels, dm)
	}
	return model
}

// statsDayFormat renders the day key of a daily stats row; the lifetime
// row carries an empty string.
const statsDayFormat = "2006-01-02"

// Stats wire form. Field order:
// [id, type, day, reps, averageTime, reviewTime, newEase1..4,
// youngEase1..4, matureEase1..4]
type Stats domain.Stats

func (s Stats) MarshalJSON() ([]byte, error) {
	day := ""
	if !s.Day.IsZero() {
		day = s.Day.Format(statsDayFormat)
	}
	return json.Marshal([]any{
		s.ID, int(s.Type), day, s.Reps, s.AverageTime, s.ReviewTime,
		s.NewEase[1], s.NewEase[2], s.NewEase[3], s.NewEase[4],
		s.YoungEase[1], s.YoungEase[2], s.YoungEase[3], s.YoungEase[4],
		s.MatureEase[1], s.MatureEase[2], s.MatureEase[3], s.MatureEase[4],
	})
}

func (s *Stats) UnmarshalJSON(data []byte) error {
	var typ int
	var day string
	err := unmarshalTuple(data,
		&s.ID, &typ, &day, &s.Reps, &s.AverageTime, &s.ReviewTime,
		&s.NewEase[1], &s.NewEase[2], &s.NewEase[3], &s.NewEase[4],
		&s.YoungEase[1], &s.YoungEase[2], &s.YoungEase[3], &s.YoungEase[4],
		&s.MatureEase[1], &s.MatureEase[2], &s.MatureEase[3], &s.MatureEase[4],
	)
	if err != nil {
		return err
	}
	s.Type = domain.StatsType(typ)
	if day != "" {
		t, err := time.Parse(statsDayFormat, day)
		if err != nil {
			return err
		}
		s.Day = t
	}
	return nil
}

// History wire form of a review log entry. Field order:
// [id, cardId, time, lastInterval, nextInterval, ease, factor,
// timeTaken, thinkingTime]
type History domain.ReviewEntry

func (h History) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{
		h.ID, h.CardID, h.Time, h.LastInterval, h.NextInterval,
		int(h.Ease), h.Factor, h.TimeTaken, h.ThinkingTime,
	})
}

func (h *History) UnmarshalJSON(data []byte) error {
	var ease int
	err := unmarshalTuple(data,
		&h.ID, &h.CardID, &h.Time, &h.LastInterval, &h.NextInterval,
		&ease, &h.Factor, &h.TimeTaken, &h.ThinkingTime)
	if err != nil {
		return err
	}
	h.Ease = domain.Ease(ease)
	return nil
}

// IDTime wire form: [id, time]
type IDTime struct {
	ID   uuid.UUID
	Time float64
}

func (t IDTime) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{t.ID, t.Time})
}

func (t *IDTime) UnmarshalJSON(data []byte) error {
	return unmarshalTuple(data, &t.ID, &t.Time)
}

// Deck is the configuration bundle; being config rather than a row
// list, it uses named fields.
type Deck struct {
	ID       uuid.UUID `json:"id"`
	Created  float64   `json:"created"`
	Modified float64   `json:"modified"`

	HardIntervalMin float64 `json:"hardIntervalMin"`
	HardIntervalMax float64 `json:"hardIntervalMax"`
	MidIntervalMin  float64 `json:"midIntervalMin"`
	MidIntervalMax  float64 `json:"midIntervalMax"`
	EasyIntervalMin float64 `json:"easyIntervalMin"`
	EasyIntervalMax float64 `json:"easyIntervalMax"`

	Delay0          float64 `json:"delay0"`
	FailedBonusDays float64 `json:"failedBonusDays"`
	FailedFactor    float64 `json:"failedFactor"`
	CollapseTime    float64 `json:"collapseTime"`
	FailedCardMax   int     `json:"failedCardMax"`

	NewCardsPerDay int `json:"newCardsPerDay"`
	NewCardOrder   int `json:"newCardOrder"`
	NewCardSpacing int `json:"newCardSpacing"`

	LeechThreshold   int  `json:"leechThreshold"`
	LeechAutoSuspend bool `json:"leechAutoSuspend"`

	LowPriority  string `json:"lowPriority"`
	MedPriority  string `json:"medPriority"`
	HighPriority string `json:"highPriority"`
	SuspendedTag string `json:"suspendedTag"`

	CardCount int `json:"cardCount"`
	FactCount int `json:"factCount"`
}

// FromDeck converts deck configuration to wire form. Local counters and
// the sync watermark are deliberately excluded.
func FromDeck(d *domain.Deck) Deck {
	return Deck{
		ID:       d.ID,
		Created:  d.Created,
		Modified: d.Modified,

		HardIntervalMin: d.HardIntervalMin,
		HardIntervalMax: d.HardIntervalMax,
		MidIntervalMin:  d.MidIntervalMin,
		MidIntervalMax:  d.MidIntervalMax,
		EasyIntervalMin: d.EasyIntervalMin,
		EasyIntervalMax: d.EasyIntervalMax,

		Delay0:          d.Delay0,
		FailedBonusDays: d.FailedBonusDays,
		FailedFactor:    d.FailedFactor,
		CollapseTime:    d.CollapseTime,
		FailedCardMax:   d.FailedCardMax,

		NewCardsPerDay: d.NewCardsPerDay,
		NewCardOrder:   int(d.NewCardOrder),
		NewCardSpacing: int(d.NewCardSpacing),

		LeechThreshold:   d.LeechThreshold,
		LeechAutoSuspend: d.LeechAutoSuspend,

		LowPriority:  d.LowPriority,
		MedPriority:  d.MedPriority,
		HighPriority: d.HighPriority,
		SuspendedTag: d.SuspendedTag,

		CardCount: d.CardCount,
		FactCount: d.FactCount,
	}
}

// ApplyTo copies the wire configuration onto an existing deck row,
// preserving its identity, watermark and daily counters.
func (w Deck) ApplyTo(d *domain.Deck) {
	d.Created = w.Created
	d.Modified = w.Modified

	d.HardIntervalMin = w.HardIntervalMin
	d.HardIntervalMax = w.HardIntervalMax
	d.MidIntervalMin = w.MidIntervalMin
	d.MidIntervalMax = w.MidIntervalMax
	d.EasyIntervalMin = w.EasyIntervalMin
	d.EasyIntervalMax = w.EasyIntervalMax

	d.Delay0 = w.Delay0
	d.FailedBonusDays = w.FailedBonusDays
	d.FailedFactor = w.FailedFactor
	d.CollapseTime = w.CollapseTime
	d.FailedCardMax = w.FailedCardMax

	d.NewCardsPerDay = w.NewCardsPerDay
	d.NewCardOrder = domain.NewCardOrder(w.NewCardOrder)
	d.NewCardSpacing = domain.NewCardSpacing(w.NewCardSpacing)

	d.LeechThreshold = w.LeechThreshold
	d.LeechAutoSuspend = w.LeechAutoSuspend

	d.LowPriority = w.LowPriority
	d.MedPriority = w.MedPriority
	d.HighPriority = w.HighPriority
	d.SuspendedTag = w.SuspendedTag

	d.CardCount = w.CardCount
	d.FactCount = w.FactCount
}
