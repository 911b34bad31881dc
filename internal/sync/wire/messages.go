package wire

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Summary is the timestamp-bounded manifest of changed and deleted
// entity ids exchanged before diffing.
type Summary struct {
	Cards     []IDTime `json:"cards"`
	DelCards  []IDTime `json:"delcards"`
	Facts     []IDTime `json:"facts"`
	DelFacts  []IDTime `json:"delfacts"`
	Models    []IDTime `json:"models"`
	DelModels []IDTime `json:"delmodels"`
	Media     []IDTime `json:"media"`
	DelMedia  []IDTime `json:"delmedia"`
}

// Payload is the entity bundle exchanged during an incremental sync
// round. Added lists carry full rows the peer is missing, missing lists
// carry the ids we want back, deleted lists carry tombstones the peer
// must apply.
type Payload struct {
	AddedCards   []Card      `json:"added-cards"`
	MissingCards []uuid.UUID `json:"missing-cards"`
	DeletedCards []IDTime    `json:"deleted-cards"`

	AddedFacts   []Fact      `json:"added-facts"`
	MissingFacts []uuid.UUID `json:"missing-facts"`
	DeletedFacts []IDTime    `json:"deleted-facts"`

	AddedModels   []Model     `json:"added-models"`
	MissingModels []uuid.UUID `json:"missing-models"`
	DeletedModels []IDTime    `json:"deleted-models"`

	DeletedMedia []IDTime `json:"deleted-media"`

	// DeckModified lets the receiving side decide whether its own deck
	// bundle is fresher and belongs in the reply.
	DeckModified float64 `json:"deckModified"`

	Deck    *Deck     `json:"deck,omitempty"`
	Stats   []Stats   `json:"stats,omitempty"`
	History []History `json:"history,omitempty"`
}

// FullDump is the whole-store bundle transferred by a full sync instead
// of the diff protocol.
type FullDump struct {
	Deck    Deck      `json:"deck"`
	Models  []Model   `json:"models"`
	Facts   []Fact    `json:"facts"`
	Cards   []Card    `json:"cards"`
	Stats   []Stats   `json:"stats"`
	History []History `json:"history"`
}

// DeckStatus is the [lastModified, lastSync] pair returned per deck by
// the getDecks operation.
type DeckStatus struct {
	Modified float64
	LastSync float64
}

func (d DeckStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{d.Modified, d.LastSync})
}

func (d *DeckStatus) UnmarshalJSON(data []byte) error {
	return unmarshalTuple(data, &d.Modified, &d.LastSync)
}
