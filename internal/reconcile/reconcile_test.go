package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// item is a minimal entity: status comes from remote, handle is local-only state
type item struct {
	id     string
	status string
	handle string
}

func (i *item) Key() string { return i.id }

func (i *item) MergeRemote(remote *item) *item {
	return &item{id: i.id, status: remote.status, handle: i.handle}
}

func keys(items []*item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.id
	}
	return out
}

func TestMerge_FollowsRemoteOrderAndDropsMissing(t *testing.T) {
	local := []*item{
		{id: "a", status: "pending", handle: "ha"},
		{id: "b", status: "pending", handle: "hb"},
		{id: "c", status: "pending", handle: "hc"},
	}
	remote := []*item{
		{id: "c", status: "completed"},
		{id: "d", status: "pending"},
		{id: "a", status: "reviewing"},
	}

	merged, res := Merge(local, remote)

	assert.Equal(t, []string{"c", "d", "a"}, keys(merged))
	assert.Equal(t, Result{Kept: 2, Added: 1, Dropped: 1}, res)
}

func TestMerge_UpdatesFromRemoteAndKeepsLocalState(t *testing.T) {
	local := []*item{{id: "a", status: "pending", handle: "local-handle"}}
	remote := []*item{{id: "a", status: "completed", handle: "ignored"}}

	merged, _ := Merge(local, remote)

	assert.Equal(t, "completed", merged[0].status)
	assert.Equal(t, "local-handle", merged[0].handle)
}

func TestMerge_DoesNotModifyInputs(t *testing.T) {
	original := &item{id: "a", status: "pending", handle: "h"}
	local := []*item{original}
	remote := []*item{{id: "a", status: "completed"}}

	merged, _ := Merge(local, remote)

	assert.Equal(t, "pending", original.status)
	assert.NotSame(t, original, merged[0])
	assert.Len(t, local, 1)
	assert.Same(t, original, local[0])
}

func TestMerge_IsIdempotent(t *testing.T) {
	local := []*item{
		{id: "a", status: "pending", handle: "ha"},
		{id: "x", status: "pending", handle: "hx"},
	}
	remote := []*item{
		{id: "b", status: "pending"},
		{id: "a", status: "completed"},
	}

	once, _ := Merge(local, remote)
	twice, res := Merge(once, remote)

	assert.Equal(t, keys(once), keys(twice))
	for i := range once {
		assert.Equal(t, *once[i], *twice[i])
	}
	assert.Equal(t, Result{Kept: 2}, res)
}

func TestMerge_DuplicateRemoteKeysCollapse(t *testing.T) {
	remote := []*item{
		{id: "a", status: "pending"},
		{id: "b", status: "pending"},
		{id: "a", status: "completed"},
	}

	merged, res := Merge(nil, remote)

	assert.Equal(t, []string{"a", "b"}, keys(merged))
	assert.Equal(t, "completed", merged[0].status)
	assert.Equal(t, 2, res.Added)
}

func TestMerge_EmptyRemoteDropsEverything(t *testing.T) {
	local := []*item{{id: "a"}, {id: "b"}}

	merged, res := Merge(local, nil)

	assert.Empty(t, merged)
	assert.NotNil(t, merged)
	assert.Equal(t, 2, res.Dropped)
}
