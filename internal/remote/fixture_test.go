package remote

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFleet(t *testing.T) *FixtureTransport {
	t.Helper()
	ft, err := LoadFixture("testdata/fleet.yaml")
	require.NoError(t, err)
	return ft
}

func TestFixture_Hosts(t *testing.T) {
	ft := loadFleet(t)

	hosts, err := ft.Hosts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"SRV01", "WS01", "WS02", "WS03"}, hosts)
}

func TestFixture_Probe(t *testing.T) {
	ft := loadFleet(t)
	ctx := context.Background()

	assert.NoError(t, ft.Probe(ctx, "ws01"))
	assert.ErrorIs(t, ft.Probe(ctx, "WS02"), ErrHostUnreachable)
	assert.ErrorIs(t, ft.Probe(ctx, "NOPE"), ErrHostUnreachable)
}

func TestFixture_InventoryWorkstation(t *testing.T) {
	ft := loadFleet(t)

	resp, err := ft.Invoke(context.Background(), Request{ID: "1", Type: TaskInventory, Host: "WS01"})
	require.NoError(t, err)
	assert.Equal(t, StatusOK, resp.Status)
	assert.Equal(t, "1", resp.ID)

	var inv InventoryResult
	require.NoError(t, json.Unmarshal(resp.Result, &inv))
	assert.True(t, inv.Workstation())
	assert.Len(t, inv.Profiles, 3)
	require.NotNil(t, inv.Profiles[0].SizeBytes)
	assert.Equal(t, int64(1073741824), *inv.Profiles[0].SizeBytes)
	assert.Nil(t, inv.Profiles[1].SizeBytes)
}

func TestFixture_InventoryServerHasNoProfiles(t *testing.T) {
	ft := loadFleet(t)

	resp, err := ft.Invoke(context.Background(), Request{Type: TaskInventory, Host: "SRV01"})
	require.NoError(t, err)

	var inv InventoryResult
	require.NoError(t, json.Unmarshal(resp.Result, &inv))
	assert.False(t, inv.Workstation())
	assert.Empty(t, inv.Profiles)
}

func TestFixture_HostError(t *testing.T) {
	ft := loadFleet(t)

	resp, err := ft.Invoke(context.Background(), Request{Type: TaskInventory, Host: "WS03"})
	require.NoError(t, err)
	assert.Equal(t, StatusError, resp.Status)
	assert.Contains(t, resp.Error, "Access is denied")
}

func TestFixture_DeleteMutates(t *testing.T) {
	ft := loadFleet(t)
	ctx := context.Background()

	resp, err := ft.Invoke(ctx, Request{Type: TaskDelete, Host: "WS01", SecurityIDs: []string{
		"S-1-5-21-100-200-300-1002",
		"S-1-5-21-100-200-300-1001",
		"S-1-5-21-100-200-300-1001",
		"S-1-5-21-100-200-300-9999",
	}})
	require.NoError(t, err)

	var del DeleteResult
	require.NoError(t, json.Unmarshal(resp.Result, &del))
	require.Len(t, del.Outcomes, 3)

	assert.Equal(t, RawOutcome{SID: "S-1-5-21-100-200-300-1001", Deleted: true}, del.Outcomes[0])
	assert.Equal(t, 5, del.Outcomes[1].Code)
	assert.False(t, del.Outcomes[1].Deleted)
	assert.Equal(t, -1, del.Outcomes[2].Code)

	resp, err = ft.Invoke(ctx, Request{Type: TaskInventory, Host: "WS01"})
	require.NoError(t, err)
	var inv InventoryResult
	require.NoError(t, json.Unmarshal(resp.Result, &inv))
	assert.Len(t, inv.Profiles, 2)

	assert.Len(t, ft.CallsOf(TaskDelete), 1)
	assert.Len(t, ft.CallsOf(TaskInventory), 1)
}

func TestFixture_DeleteRechecksProfile(t *testing.T) {
	ft, err := ParseFixture([]byte(`
hosts:
  H1:
    product_type: 1
    profiles:
      - sid: S-1
        local_path: C:\Users\alice
        loaded: true
      - sid: S-2
        local_path: C:\Users\bob
        special: true
`))
	require.NoError(t, err)
	ctx := context.Background()

	resp, err := ft.Invoke(ctx, Request{Type: TaskDelete, Host: "H1", SecurityIDs: []string{"S-1", "S-2"}})
	require.NoError(t, err)

	var del DeleteResult
	require.NoError(t, json.Unmarshal(resp.Result, &del))
	require.Len(t, del.Outcomes, 2)
	for _, o := range del.Outcomes {
		assert.False(t, o.Deleted, o.SID)
		assert.Equal(t, -1, o.Code, o.SID)
		assert.Equal(t, "profile is loaded or special", o.Message)
	}

	resp, err = ft.Invoke(ctx, Request{Type: TaskInventory, Host: "H1"})
	require.NoError(t, err)
	var inv InventoryResult
	require.NoError(t, json.Unmarshal(resp.Result, &inv))
	assert.Len(t, inv.Profiles, 2)
}

func TestFixture_CanceledContext(t *testing.T) {
	ft := loadFleet(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ft.Invoke(ctx, Request{Type: TaskInventory, Host: "WS01"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, ft.Calls())
}

func TestParseFixture_Invalid(t *testing.T) {
	_, err := ParseFixture([]byte("hosts: [unclosed"))
	assert.Error(t, err)
}
