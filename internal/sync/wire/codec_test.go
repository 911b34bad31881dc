package wire

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemohq/mnemo/internal/domain"
)

func TestDeflateInflateRoundTrip(t *testing.T) {
	t.Parallel()

	payload := []byte(`{"cards":[],"facts":[1,2,3]}`)
	compressed, err := Deflate(payload)
	require.NoError(t, err)

	out, err := Inflate(compressed)
	require.NoError(t, err)
	assert.Equal(t, payload, out)
}

func TestEncodeDecodeFieldRoundTrip(t *testing.T) {
	t.Parallel()

	in := map[string]float64{"lastSync": 1234.5}
	encoded, err := EncodeField(in)
	require.NoError(t, err)

	var out map[string]float64
	require.NoError(t, DecodeField(encoded, &out))
	assert.Equal(t, in, out)
}

func TestDecodeFieldRejectsGarbage(t *testing.T) {
	t.Parallel()

	var out any
	assert.Error(t, DecodeField("not base64!!!", &out))
}

func TestEncodeDecodeResponseRoundTrip(t *testing.T) {
	t.Parallel()

	in := Summary{Cards: []IDTime{{ID: uuid.New(), Time: 42}}}
	body, err := EncodeResponse(in)
	require.NoError(t, err)

	var out Summary
	require.NoError(t, DecodeResponse(bytes.NewReader(body), &out))
	assert.Equal(t, in, out)
}

func TestCardTupleFieldOrder(t *testing.T) {
	t.Parallel()

	card := Card{
		ID:       uuid.New(),
		FactID:   uuid.New(),
		Ordinal:  2,
		Type:     domain.CardTypeReview,
		Priority: 3,
		Interval: 12.5,
		Due:      999.0,
		Factor:   2.5,
	}

	data, err := json.Marshal(card)
	require.NoError(t, err)

	var raw []json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw, 31)

	// The discriminant rides in slot 3 as a bare integer.
	var typ int
	require.NoError(t, json.Unmarshal(raw[3], &typ))
	assert.Equal(t, int(domain.CardTypeReview), typ)

	var out Card
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, card, out)
}

func TestCardTupleArityEnforced(t *testing.T) {
	t.Parallel()

	var out Card
	err := json.Unmarshal([]byte(`[1,2,3]`), &out)
	assert.Error(t, err)
}

func TestFactRoundTripCarriesFields(t *testing.T) {
	t.Parallel()

	fact := &domain.Fact{
		ID:       uuid.New(),
		ModelID:  uuid.New(),
		Tags:     "geography,capitals",
		Created:  10,
		Modified: 20,
		Fields: []domain.Field{
			{ID: uuid.New(), FieldModelID: uuid.New(), Ordinal: 0, Value: "France"},
			{ID: uuid.New(), FieldModelID: uuid.New(), Ordinal: 1, Value: "Paris"},
		},
	}

	data, err := json.Marshal(FromFact(fact))
	require.NoError(t, err)

	var decoded Fact
	require.NoError(t, json.Unmarshal(data, &decoded))
	out := decoded.ToFact()

	assert.Equal(t, fact.ID, out.ID)
	assert.Equal(t, fact.Tags, out.Tags)
	require.Len(t, out.Fields, 2)
	assert.Equal(t, "Paris", out.Fields[1].Value)
	// Field ownership is restored from the enclosing tuple.
	assert.Equal(t, fact.ID, out.Fields[0].FactID)
}

func TestModelRoundTripRestoresOwnership(t *testing.T) {
	t.Parallel()

	model := &domain.Model{
		ID:       uuid.New(),
		Name:     "Basic",
		Created:  1,
		Modified: 2,
		CardModels: []domain.CardModel{
			{ID: uuid.New(), Ordinal: 0, Name: "Forward", Active: true},
			{ID: uuid.New(), Ordinal: 1, Name: "Reverse", Active: false},
		},
		FieldModels: []domain.FieldModel{
			{ID: uuid.New(), Ordinal: 0, Name: "Front", Required: true, Unique: true},
		},
	}

	data, err := json.Marshal(FromModel(model))
	require.NoError(t, err)

	var decoded Model
	require.NoError(t, json.Unmarshal(data, &decoded))
	out := decoded.ToModel()

	require.Len(t, out.CardModels, 2)
	assert.Equal(t, model.ID, out.CardModels[0].ModelID)
	assert.False(t, out.CardModels[1].Active)
	require.Len(t, out.FieldModels, 1)
	assert.Equal(t, model.ID, out.FieldModels[0].ModelID)
}

func TestStatsDayEncoding(t *testing.T) {
	t.Parallel()

	day := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)
	st := Stats(domain.Stats{
		ID:   uuid.New(),
		Type: domain.StatsDay,
		Day:  day,
		Reps: 12,
	})
	st.NewEase[1] = 3

	data, err := json.Marshal(st)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"2024-03-09"`)

	var out Stats
	require.NoError(t, json.Unmarshal(data, &out))
	assert.True(t, out.Day.Equal(day))
	assert.Equal(t, 3, out.NewEase[1])

	// The lifetime row carries an empty day string.
	life := Stats(domain.Stats{ID: uuid.New(), Type: domain.StatsLife})
	data, err = json.Marshal(life)
	require.NoError(t, err)

	var outLife Stats
	require.NoError(t, json.Unmarshal(data, &outLife))
	assert.True(t, outLife.Day.IsZero())
}

func TestDeckStatusPair(t *testing.T) {
	t.Parallel()

	in := DeckStatus{Modified: 111.5, LastSync: 99}
	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `[111.5, 99]`, string(data))

	var out DeckStatus
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestDeckBundleExcludesLocalState(t *testing.T) {
	t.Parallel()

	deck := domain.NewDeck()
	deck.LastSync = 12345
	deck.NewCountToday = 7
	deck.RepsToday = 9

	w := FromDeck(deck)
	data, err := json.Marshal(w)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "12345")

	target := domain.NewDeck()
	target.LastSync = 777
	target.NewCountToday = 3
	w.ApplyTo(target)

	// Identity, watermark and daily counters stay local.
	assert.NotEqual(t, deck.ID, target.ID)
	assert.Equal(t, 777.0, target.LastSync)
	assert.Equal(t, 3, target.NewCountToday)
	assert.Equal(t, deck.Modified, target.Modified)
	assert.Equal(t, deck.NewCardsPerDay, target.NewCardsPerDay)
}
