// Package domain contains the core entity types shared by the scheduler
// and the sync engine: cards, facts, models, tags, stats, the deck
// configuration row, review history entries and deletion tombstones.
//
// Domain types carry their own validation and the small amount of derived
// state (card type recomputation, factor flooring) that must hold no matter
// which component mutates them. They have no dependencies on storage or
// transport.
package domain
