package sync

import (
	"github.com/google/uuid"

	"github.com/mnemohq/mnemo/internal/domain"
	"github.com/mnemohq/mnemo/internal/sync/wire"
)

// Diff is the reconciliation verdict for one entity kind: what each
// side edited and deleted since the watermark.
type Diff struct {
	LocalEdited   []uuid.UUID // remote needs our row
	LocalDeleted  []uuid.UUID // remote must delete
	RemoteEdited  []uuid.UUID // we need the remote row
	RemoteDeleted []uuid.UUID // we must delete
}

// Diffs holds the per-kind verdicts of one summary comparison.
type Diffs map[domain.EntityKind]Diff

// DiffSummary compares the local and remote change manifests. It is
// symmetric: swapping the arguments swaps the local/remote halves of
// every verdict.
func DiffSummary(local, remote *wire.Summary) Diffs {
	localLists := summaryLists(local)
	remoteLists := summaryLists(remote)

	out := make(Diffs, len(localLists))
	for kind, ll := range localLists {
		rl := remoteLists[kind]
		out[kind] = diffKind(ll[0], ll[1], rl[0], rl[1])
	}
	return out
}

type diffEntry struct {
	time    float64
	deleted bool
}

func diffKind(localLive, localDel, remoteLive, remoteDel []wire.IDTime) Diff {
	localM := indexEntries(localLive, localDel)
	remoteM := indexEntries(remoteLive, remoteDel)

	var d Diff
	for id, le := range localM {
		re, ok := remoteM[id]
		switch {
		case !le.deleted && (!ok || (re.deleted && re.time < le.time)):
			// Live here and unseen there, or there holds an older
			// tombstone: the remote needs our row.
			d.LocalEdited = append(d.LocalEdited, id)
		case !le.deleted && !re.deleted:
			if le.time > re.time {
				d.LocalEdited = append(d.LocalEdited, id)
			} else if re.time > le.time {
				d.RemoteEdited = append(d.RemoteEdited, id)
			}
			// Equal times mean already in sync.
		case !le.deleted && re.deleted:
			d.RemoteDeleted = append(d.RemoteDeleted, id)
		case le.deleted && ok && !re.deleted:
			if le.time < re.time {
				d.RemoteEdited = append(d.RemoteEdited, id)
			} else {
				d.LocalDeleted = append(d.LocalDeleted, id)
			}
		case le.deleted && !ok:
			d.LocalDeleted = append(d.LocalDeleted, id)
		}
		// Tombstones on both sides need no action.
	}
	for id, re := range remoteM {
		if _, ok := localM[id]; ok {
			continue
		}
		if re.deleted {
			d.RemoteDeleted = append(d.RemoteDeleted, id)
		} else {
			d.RemoteEdited = append(d.RemoteEdited, id)
		}
	}
	return d
}

func indexEntries(live, deleted []wire.IDTime) map[uuid.UUID]diffEntry {
	m := make(map[uuid.UUID]diffEntry, len(live)+len(deleted))
	for _, it := range live {
		m[it.ID] = diffEntry{time: it.Time}
	}
	for _, it := range deleted {
		m[it.ID] = diffEntry{time: it.Time, deleted: true}
	}
	return m
}
