package portman

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPortCallStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		call PortCall
		want CallStatus
	}{
		{name: "scheduled", call: PortCall{ETA: "2025-03-20T07:00:00Z"}, want: StatusScheduled},
		{name: "in port", call: PortCall{ATA: "2025-03-20T07:00:00Z"}, want: StatusInPort},
		{name: "departed", call: PortCall{ATA: "2025-03-20T07:00:00Z", ATD: "2025-03-20T19:00:00Z"}, want: StatusDeparted},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.call.Status(), tt.name)
	}
}

func TestParseTime(t *testing.T) {
	t.Parallel()

	want := time.Date(2025, 3, 20, 7, 0, 0, 0, time.UTC)
	assert.True(t, parseTime("2025-03-20T07:00:00Z").Equal(want))
	assert.True(t, parseTime("2025-03-20T09:00:00+02:00").Equal(want))
	assert.True(t, parseTime("2025-03-20T07:00:00").Equal(want))
	assert.True(t, parseTime("").IsZero())
	assert.True(t, parseTime("yesterday").IsZero())

	assert.True(t, PortCall{ETA: "2025-03-20T07:00:00Z"}.ParsedETA().Equal(want))
}

func TestKeys(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int64(5), PortCallKey(PortCall{PortCallID: 5}))
	assert.Equal(t, int64(6), ArrivalKey(Arrival{ID: 6}))
	assert.Equal(t, int64(7), VesselKey(VesselLocation{MMSI: 7}))
	assert.Equal(t, "230629000", VesselLocation{MMSI: 230629000}.MMSIString())
}
