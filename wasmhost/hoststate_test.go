package wasmhost

import (
	"testing"
	"time"

	"github.com/sovelma/kernel/capability"
	"github.com/sovelma/kernel/fsys"
	"github.com/sovelma/kernel/syncx"
	"github.com/stretchr/testify/require"
)

func newTestHostState(cfg FuelConfig) *HostState {
	return NewHostState(capability.NewTable(), fsys.New(), syncx.NewRegistry(), cfg)
}

// TestChargeFuelTripsYieldBelowThreshold exercises the fuel-bounded host
// work scenario directly against HostState, without a guest module: a
// goroutine stands in for the invocation goroutine (see invocation.go),
// charging fuel until the threshold trips a Yield trap, which the test
// goroutine observes on trapCh and acks on resumeCh.
func TestChargeFuelTripsYieldBelowThreshold(t *testing.T) {
	hs := newTestHostState(FuelConfig{SliceSize: 1000, Threshold: 500})
	hs.ResetFuel(1000)

	trapped := make(chan struct{})
	go func() {
		hs.ChargeFuel(100) // 900 remaining, above threshold: no trap
		hs.ChargeFuel(100) // 800 remaining, above threshold: no trap
		hs.ChargeFuel(100) // 700 remaining, above threshold: no trap
		hs.ChargeFuel(250) // 450 remaining, below threshold: traps
		close(trapped)
	}()

	select {
	case tr := <-hs.trapCh:
		require.Equal(t, TrapYield, tr.Kind)
	case <-time.After(time.Second):
		t.Fatal("ChargeFuel never trapped")
	}
	hs.resumeCh <- struct{}{}

	select {
	case <-trapped:
	case <-time.After(time.Second):
		t.Fatal("goroutine never resumed after trap ack")
	}
}

// TestChargeFuelNeverTrapsAboveThreshold mirrors the other half of the
// fuel-bounded scenario: a sequence of charges that never crosses the
// threshold never sends on trapCh.
func TestChargeFuelNeverTrapsAboveThreshold(t *testing.T) {
	hs := newTestHostState(FuelConfig{SliceSize: 1000, Threshold: 100})
	hs.ResetFuel(1000)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			hs.ChargeFuel(100)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-hs.trapCh:
		t.Fatal("ChargeFuel trapped before crossing the threshold")
	case <-time.After(200 * time.Millisecond):
		t.Fatal("goroutine never finished charging fuel")
	}
}

func TestResetFuelReplenishesSlice(t *testing.T) {
	hs := newTestHostState(FuelConfig{SliceSize: 1000, Threshold: 0})
	hs.ResetFuel(10)
	require.EqualValues(t, 10, hs.fuel)
	hs.ResetFuel(1000)
	require.EqualValues(t, 1000, hs.fuel)
}

func TestCurrentWakerRoundTrip(t *testing.T) {
	hs := newTestHostState(DefaultFuelConfig)
	woken := false
	hs.SetCurrentWaker(syncx.WakerFunc(func() { woken = true }))
	hs.CurrentWaker().Wake()
	require.True(t, woken)
}
