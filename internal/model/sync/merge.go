package sync

import (
	"sort"

	"github.com/somanshu-agarwal/BareMinimum/internal/entity/expense"
)

// Merge combines the local and remote record sets into one canonical set.
// Remote presence is authoritative proof of durability: every remote record
// enters the result flagged synced, and on an id collision the remote copy
// wins outright. A record known only locally is by definition not yet
// synced and is never dropped.
//
// The result is ordered by timestamp descending, ties broken by id
// ascending, which makes the function deterministic and idempotent:
// Merge(Merge(L, R), R) == Merge(L, R).
func Merge(local, remote []expense.Record) []expense.Record {
	byID := make(map[string]expense.Record, len(local)+len(remote))

	for _, rec := range remote {
		rec.Synced = true
		byID[rec.ID] = rec
	}
	for _, rec := range local {
		if _, ok := byID[rec.ID]; ok {
			continue
		}
		rec.Synced = false
		byID[rec.ID] = rec
	}

	merged := make([]expense.Record, 0, len(byID))
	for _, rec := range byID {
		merged = append(merged, rec)
	}
	sort.Slice(merged, func(i, j int) bool {
		if !merged[i].Timestamp.Equal(merged[j].Timestamp) {
			return merged[i].Timestamp.After(merged[j].Timestamp)
		}
		return merged[i].ID < merged[j].ID
	})
	return merged
}

// dropShielded filters out remote copies of records with a local change
// still waiting to be propagated: tombstones shield pending deletes from
// being resurrected by a pull, dirty ids shield pending edits of synced
// records from being reverted by the remote copy before push runs.
func dropShielded(remote []expense.Record, tombstones []expense.Tombstone, dirty []string) []expense.Record {
	if len(tombstones) == 0 && len(dirty) == 0 {
		return remote
	}
	shielded := make(map[string]struct{}, len(tombstones)+len(dirty))
	for _, t := range tombstones {
		shielded[t.ID] = struct{}{}
	}
	for _, id := range dirty {
		shielded[id] = struct{}{}
	}

	kept := make([]expense.Record, 0, len(remote))
	for _, rec := range remote {
		if _, ok := shielded[rec.ID]; !ok {
			kept = append(kept, rec)
		}
	}
	return kept
}
