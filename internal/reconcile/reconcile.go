// Package reconcile merges a freshly fetched remote collection into a locally held one.
package reconcile

// Entity is anything that can be reconciled against its remote counterpart.
// MergeRemote returns a new value carrying the remote fields and the receiver's local-only
// state (attached transports, injected capabilities). It must not modify the receiver.
type Entity[T any] interface {
	Key() string
	MergeRemote(remote T) T
}

// Result reports what a merge did
type Result struct {
	Kept    int // present locally and remotely
	Added   int // only present remotely
	Dropped int // only present locally
}

// Merge returns the new local collection for the given remote one.
//
// The result follows remote order and holds exactly one item per remote key. The first
// occurrence of a duplicated remote key keeps its position; later occurrences are merged into
// it. Local items whose key is absent remotely are dropped. Neither input slice is modified.
func Merge[T Entity[T]](local, remote []T) ([]T, Result) {
	byKey := make(map[string]T, len(local))
	for _, item := range local {
		if _, ok := byKey[item.Key()]; !ok {
			byKey[item.Key()] = item
		}
	}

	var res Result
	merged := make([]T, 0, len(remote))
	position := make(map[string]int, len(remote))

	for _, r := range remote {
		key := r.Key()

		if idx, seen := position[key]; seen {
			merged[idx] = merged[idx].MergeRemote(r)
			continue
		}

		if l, ok := byKey[key]; ok {
			merged = append(merged, l.MergeRemote(r))
			res.Kept++
		} else {
			merged = append(merged, r)
			res.Added++
		}
		position[key] = len(merged) - 1
	}

	res.Dropped = len(byKey) - res.Kept

	return merged, res
}
