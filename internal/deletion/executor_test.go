package deletion

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aatumaykin/profsweep/internal/profile"
	"github.com/aatumaykin/profsweep/internal/remote"
)

type call struct {
	host string
	sids []string
}

type fakeDeleter struct {
	calls   []call
	results map[string]*remote.DeleteResult
	errs    map[string]error
}

func (f *fakeDeleter) Delete(ctx context.Context, host string, sids []string) (*remote.DeleteResult, error) {
	f.calls = append(f.calls, call{host: host, sids: append([]string(nil), sids...)})
	if err := f.errs[host]; err != nil {
		return nil, err
	}
	if r, ok := f.results[host]; ok {
		return r, nil
	}
	out := &remote.DeleteResult{}
	for _, sid := range sids {
		out.Outcomes = append(out.Outcomes, remote.RawOutcome{SID: sid, Deleted: true})
	}
	return out, nil
}

func plan(host string, pairs ...string) profile.HostPlan {
	p := profile.HostPlan{Computer: host}
	for i := 0; i+1 < len(pairs); i += 2 {
		p.SecurityIDs = append(p.SecurityIDs, pairs[i])
		p.Labels = append(p.Labels, pairs[i+1])
	}
	return p
}

func TestExecuteHost_AllDeleted(t *testing.T) {
	d := &fakeDeleter{}
	e := NewExecutor(d, nil)

	rep := e.ExecuteHost(context.Background(), plan("WS01", "S-2", "bob", "S-1", "alice", "S-1", "alice"))

	require.NoError(t, rep.Err)
	require.Len(t, d.calls, 1)
	assert.Equal(t, []string{"S-1", "S-2"}, d.calls[0].sids, "deduplicated and sorted")
	require.Len(t, rep.Outcomes, 2)
	assert.Equal(t, "alice", rep.Outcomes[0].AccountLabel)
	deleted, skipped, failed := rep.Tally()
	assert.Equal(t, [3]int{2, 0, 0}, [3]int{deleted, skipped, failed})
}

func TestExecuteHost_MixedOutcomes(t *testing.T) {
	d := &fakeDeleter{results: map[string]*remote.DeleteResult{
		"WS01": {Outcomes: []remote.RawOutcome{
			{SID: "S-1", Deleted: true},
			{SID: "S-2", Code: 8, Message: "Not enough storage"},
			{SID: "S-3", Code: profile.CodeSkipped, Message: "profile is loaded or special"},
			{SID: "S-2", Deleted: true},
			{SID: "S-9", Deleted: true},
			{SID: "S-5", Code: 0, Message: ""},
		}},
	}}
	e := NewExecutor(d, nil)

	rep := e.ExecuteHost(context.Background(), plan("WS01",
		"S-1", "alice", "S-2", "bob", "S-3", "carol", "S-4", "dave", "S-5", "erin"))

	require.Len(t, rep.Outcomes, 5, "one outcome per requested SID")
	byID := map[string]profile.DeletionOutcome{}
	for _, o := range rep.Outcomes {
		byID[o.SecurityID] = o
	}
	assert.True(t, byID["S-1"].Deleted)

	assert.False(t, byID["S-2"].Deleted, "first outcome wins")
	assert.Equal(t, 8, byID["S-2"].Code)
	assert.True(t, byID["S-2"].Failed())

	assert.True(t, byID["S-3"].Skipped())
	assert.Equal(t, profile.CodeException, byID["S-4"].Code)
	assert.Equal(t, profile.CodeException, byID["S-5"].Code)
	assert.NotContains(t, byID, "S-9")

	deleted, skipped, failed := rep.Tally()
	assert.Equal(t, [3]int{1, 1, 3}, [3]int{deleted, skipped, failed})
}

func TestExecuteHost_HostFailure(t *testing.T) {
	d := &fakeDeleter{errs: map[string]error{"WS01": errors.New("WinRM cannot complete the operation")}}
	e := NewExecutor(d, nil)

	rep := e.ExecuteHost(context.Background(), plan("WS01", "S-1", "alice", "S-2", "bob"))

	require.Error(t, rep.Err)
	require.Len(t, rep.Outcomes, 2)
	for _, o := range rep.Outcomes {
		assert.Equal(t, profile.CodeException, o.Code)
		assert.Contains(t, o.Message, "WinRM")
	}
}

func TestExecuteHost_EmptyPlan(t *testing.T) {
	d := &fakeDeleter{}
	rep := NewExecutor(d, nil).ExecuteHost(context.Background(), profile.HostPlan{Computer: "WS01"})

	assert.Empty(t, rep.Outcomes)
	assert.Empty(t, d.calls)
}

func TestExecuteAll_ContinuesAfterFailure(t *testing.T) {
	d := &fakeDeleter{errs: map[string]error{"WS01": errors.New("boom")}}
	e := NewExecutor(d, nil)

	reports := e.ExecuteAll(context.Background(), []profile.HostPlan{
		plan("WS01", "S-1", "alice"),
		plan("WS02", "S-2", "bob"),
	})

	require.Len(t, reports, 2)
	assert.Error(t, reports[0].Err)
	assert.NoError(t, reports[1].Err)
	assert.True(t, reports[1].Outcomes[0].Deleted)
	require.Len(t, d.calls, 2)
	assert.Equal(t, "WS01", d.calls[0].host)
	assert.Equal(t, "WS02", d.calls[1].host)
}

func TestEstimated(t *testing.T) {
	assert.Equal(t, "unknown", estimated(profile.HostPlan{}))
	assert.Equal(t, "1.0 GiB", estimated(profile.HostPlan{KnownBytes: 1 << 30, SizeKnown: true}))
}
