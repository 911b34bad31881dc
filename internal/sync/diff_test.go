package sync

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/mnemohq/mnemo/internal/domain"
	"github.com/mnemohq/mnemo/internal/sync/wire"
)

func idt(id uuid.UUID, t float64) wire.IDTime {
	return wire.IDTime{ID: id, Time: t}
}

func TestDiffKindLiveVersusLive(t *testing.T) {
	t.Parallel()

	newer := uuid.New()
	older := uuid.New()
	same := uuid.New()

	local := &wire.Summary{Cards: []wire.IDTime{idt(newer, 200), idt(older, 100), idt(same, 150)}}
	remote := &wire.Summary{Cards: []wire.IDTime{idt(newer, 100), idt(older, 200), idt(same, 150)}}

	d := DiffSummary(local, remote)[domain.KindCard]
	assert.Equal(t, []uuid.UUID{newer}, d.LocalEdited)
	assert.Equal(t, []uuid.UUID{older}, d.RemoteEdited)
	assert.Empty(t, d.LocalDeleted)
	assert.Empty(t, d.RemoteDeleted)
}

func TestDiffKindLiveOnlyLocally(t *testing.T) {
	t.Parallel()

	// Local holds card id live at t=100, remote has never seen it: the
	// remote needs our row.
	id := uuid.New()
	local := &wire.Summary{Cards: []wire.IDTime{idt(id, 100)}}
	remote := &wire.Summary{}

	d := DiffSummary(local, remote)[domain.KindCard]
	assert.Equal(t, []uuid.UUID{id}, d.LocalEdited)
	assert.Empty(t, d.LocalDeleted)
	assert.Empty(t, d.RemoteEdited)
	assert.Empty(t, d.RemoteDeleted)
}

func TestDiffKindTombstones(t *testing.T) {
	t.Parallel()

	editedAfterDelete := uuid.New()
	deletedAfterEdit := uuid.New()
	onlyLocalDel := uuid.New()
	onlyRemoteDel := uuid.New()
	bothDeleted := uuid.New()

	local := &wire.Summary{
		Facts: []wire.IDTime{
			idt(editedAfterDelete, 300),
			idt(deletedAfterEdit, 100),
		},
		DelFacts: []wire.IDTime{
			idt(onlyLocalDel, 50),
			idt(bothDeleted, 60),
		},
	}
	remote := &wire.Summary{
		DelFacts: []wire.IDTime{
			idt(editedAfterDelete, 200),
			idt(deletedAfterEdit, 400),
			idt(onlyRemoteDel, 70),
			idt(bothDeleted, 80),
		},
	}

	d := DiffSummary(local, remote)[domain.KindFact]

	// A live row newer than the peer's tombstone survives; an older one
	// dies.
	assert.Equal(t, []uuid.UUID{editedAfterDelete}, d.LocalEdited)
	assert.Equal(t, []uuid.UUID{deletedAfterEdit}, d.RemoteDeleted)

	assert.Contains(t, d.LocalDeleted, onlyLocalDel)
	assert.NotContains(t, d.LocalDeleted, bothDeleted)
	assert.Contains(t, d.RemoteDeleted, onlyRemoteDel)
	assert.NotContains(t, d.RemoteDeleted, bothDeleted)
}

func TestDiffSummarySymmetry(t *testing.T) {
	t.Parallel()

	ids := make([]uuid.UUID, 8)
	for i := range ids {
		ids[i] = uuid.New()
	}

	local := &wire.Summary{
		Cards:     []wire.IDTime{idt(ids[0], 10), idt(ids[1], 20), idt(ids[2], 30)},
		DelCards:  []wire.IDTime{idt(ids[3], 15)},
		Facts:     []wire.IDTime{idt(ids[4], 5)},
		DelFacts:  []wire.IDTime{idt(ids[5], 40)},
		Models:    []wire.IDTime{idt(ids[6], 25)},
		DelModels: []wire.IDTime{idt(ids[7], 35)},
	}
	remote := &wire.Summary{
		Cards:    []wire.IDTime{idt(ids[0], 12), idt(ids[3], 18)},
		DelCards: []wire.IDTime{idt(ids[1], 50)},
		Facts:    []wire.IDTime{idt(ids[5], 45)},
		DelFacts: []wire.IDTime{idt(ids[4], 2)},
	}

	forward := DiffSummary(local, remote)
	backward := DiffSummary(remote, local)

	for _, kind := range domain.Kinds() {
		f, b := forward[kind], backward[kind]
		assert.ElementsMatch(t, f.LocalEdited, b.RemoteEdited, "kind %s", kind)
		assert.ElementsMatch(t, f.RemoteEdited, b.LocalEdited, "kind %s", kind)
		assert.ElementsMatch(t, f.LocalDeleted, b.RemoteDeleted, "kind %s", kind)
		assert.ElementsMatch(t, f.RemoteDeleted, b.LocalDeleted, "kind %s", kind)
	}
}

func TestDiffKindEqualTimesNoAction(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	local := &wire.Summary{Models: []wire.IDTime{idt(id, 123.456)}}
	remote := &wire.Summary{Models: []wire.IDTime{idt(id, 123.456)}}

	d := DiffSummary(local, remote)[domain.KindModel]
	assert.Empty(t, d.LocalEdited)
	assert.Empty(t, d.RemoteEdited)
	assert.Empty(t, d.LocalDeleted)
	assert.Empty(t, d.RemoteDeleted)
}

func TestMaxListLen(t *testing.T) {
	t.Parallel()

	s := &wire.Summary{}
	assert.Zero(t, maxListLen(s))

	for i := 0; i < 7; i++ {
		s.DelFacts = append(s.DelFacts, idt(uuid.New(), float64(i)))
	}
	s.Cards = []wire.IDTime{idt(uuid.New(), 1)}
	assert.Equal(t, 7, maxListLen(s))
}
