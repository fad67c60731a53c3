package fleet_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/longwelwind/spacebo-go/internal/domain/fleet"
	"github.com/longwelwind/spacebo-go/internal/domain/shared"
)

func newIdleFleet() *fleet.Fleet {
	owner := "user-1"
	return fleet.NewFleet("fleet-1", &owner, "sol", "inv-1")
}

func TestFleet_StartTravelFromIdle(t *testing.T) {
	// Arrange
	f := newIdleFleet()
	departure := time.Now().UTC()
	arrival := departure.Add(10 * time.Minute)

	// Act
	err := f.StartTravel("vega", departure, arrival)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, fleet.ActionTraveling, f.Action())
	assert.Equal(t, "sol", *f.TravelingFromSystemID())
	assert.Equal(t, "vega", *f.TravelingToSystemID())
	assert.Equal(t, departure, *f.DepartureTime())
	assert.Equal(t, arrival, *f.ArrivalTime())
	// Location only changes on arrival
	assert.Equal(t, "sol", f.LocationSystemID())
}

func TestFleet_StartTravelWhileTravelingIsRejected(t *testing.T) {
	// Arrange
	f := newIdleFleet()
	now := time.Now().UTC()
	require.NoError(t, f.StartTravel("vega", now, now.Add(time.Minute)))

	// Act
	err := f.StartTravel("sol", now, now.Add(time.Minute))

	// Assert
	var invalid *shared.InvalidActionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "fleet-1", invalid.EntityID)
}

func TestFleet_ArriveMovesFleetAndClearsTravelFields(t *testing.T) {
	// Arrange
	f := newIdleFleet()
	now := time.Now().UTC()
	require.NoError(t, f.StartTravel("vega", now, now.Add(time.Minute)))

	// Act
	err := f.Arrive()

	// Assert
	require.NoError(t, err)
	assert.Equal(t, fleet.ActionIdling, f.Action())
	assert.Equal(t, "vega", f.LocationSystemID())
	assert.Nil(t, f.TravelingFromSystemID())
	assert.Nil(t, f.TravelingToSystemID())
	assert.Nil(t, f.DepartureTime())
	assert.Nil(t, f.ArrivalTime())
}

func TestFleet_ArriveWhileIdlingIsStale(t *testing.T) {
	// Arrange
	f := newIdleFleet()

	// Act
	err := f.Arrive()

	// Assert
	var stale *shared.StaleActionStateError
	require.ErrorAs(t, err, &stale)
	assert.Equal(t, string(fleet.ActionTraveling), stale.Expected)
	assert.Equal(t, string(fleet.ActionIdling), stale.Actual)
}

func TestFleet_MiningRoundTrip(t *testing.T) {
	// Arrange
	f := newIdleFleet()
	finish := time.Now().UTC().Add(5 * time.Minute)

	// Act
	require.NoError(t, f.StartMining("iron", finish))

	// Assert mid-action state
	assert.Equal(t, fleet.ActionMining, f.Action())
	assert.Equal(t, "iron", *f.MiningResourceID())
	assert.Equal(t, finish, *f.MiningFinishTime())

	// Act - finish
	resourceID, err := f.FinishMining()

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "iron", resourceID)
	assert.Equal(t, fleet.ActionIdling, f.Action())
	assert.Nil(t, f.MiningResourceID())
	assert.Nil(t, f.MiningFinishTime())
}

func TestFleet_StartMiningWhileTravelingIsRejected(t *testing.T) {
	// Arrange
	f := newIdleFleet()
	now := time.Now().UTC()
	require.NoError(t, f.StartTravel("vega", now, now.Add(time.Minute)))

	// Act
	err := f.StartMining("iron", now.Add(time.Minute))

	// Assert
	var invalid *shared.InvalidActionError
	assert.ErrorAs(t, err, &invalid)
}

func TestFleet_FinishMiningWhileIdlingIsStale(t *testing.T) {
	// Arrange
	f := newIdleFleet()

	// Act
	_, err := f.FinishMining()

	// Assert
	var stale *shared.StaleActionStateError
	assert.ErrorAs(t, err, &stale)
}

func TestFleet_DataRoundTrip(t *testing.T) {
	// Arrange
	f := newIdleFleet()
	now := time.Now().UTC()
	require.NoError(t, f.StartMining("iron", now))

	// Act
	rebuilt := fleet.FromData(f.ToData())

	// Assert
	assert.Equal(t, f.ID(), rebuilt.ID())
	assert.Equal(t, f.Action(), rebuilt.Action())
	assert.Equal(t, *f.MiningResourceID(), *rebuilt.MiningResourceID())
	assert.Equal(t, f.LocationSystemID(), rebuilt.LocationSystemID())
}
