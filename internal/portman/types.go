package portman

import (
	"strconv"
	"time"
)

// portmanTimestampLayout covers timestamps written without a zone offset.
const portmanTimestampLayout = "2006-01-02T15:04:05"

// PortCall mirrors a row of /api/voyages.
type PortCall struct {
	PortCallID            int64  `json:"portcallid"`
	IMO                   int64  `json:"imolloyds"`
	MMSI                  int64  `json:"mmsi"`
	VesselName            string `json:"vesselname"`
	VesselTypeCode        string `json:"vesseltypecode"`
	PortToVisit           string `json:"porttovisit"`
	PrevPort              string `json:"prevport"`
	NextPort              string `json:"nextport"`
	PortAreaCode          string `json:"portareacode"`
	PortAreaName          string `json:"portareaname"`
	BerthCode             string `json:"berthcode"`
	BerthName             string `json:"berthname"`
	AgentName             string `json:"agentname"`
	ShippingCompany       string `json:"shippingcompany"`
	ETA                   string `json:"eta"`
	ETD                   string `json:"etd"`
	ATA                   string `json:"ata"`
	ATD                   string `json:"atd"`
	PassengersOnArrival   int    `json:"passengersonarrival"`
	PassengersOnDeparture int    `json:"passengersondeparture"`
	CrewOnArrival         int    `json:"crewonarrival"`
	CrewOnDeparture       int    `json:"crewondeparture"`
	Created               string `json:"created"`
	Modified              string `json:"modified"`
}

// PortCallKey identifies a port call.
func PortCallKey(p PortCall) int64 { return p.PortCallID }

// CallStatus is derived from the actual arrival and departure times.
type CallStatus string

const (
	StatusScheduled CallStatus = "scheduled"
	StatusInPort    CallStatus = "in port"
	StatusDeparted  CallStatus = "departed"
)

// Status reports whether the vessel is expected, alongside or gone.
func (p PortCall) Status() CallStatus {
	switch {
	case p.ATD != "":
		return StatusDeparted
	case p.ATA != "":
		return StatusInPort
	default:
		return StatusScheduled
	}
}

// ParsedETA returns the parsed ETA.
func (p PortCall) ParsedETA() time.Time { return parseTime(p.ETA) }

// ParsedATA returns the parsed ATA.
func (p PortCall) ParsedATA() time.Time { return parseTime(p.ATA) }

// ParsedModified returns the parsed modification time.
func (p PortCall) ParsedModified() time.Time { return parseTime(p.Modified) }

// Arrival mirrors a row of /api/arrivals: one recorded ATA change.
type Arrival struct {
	ID           int64  `json:"id"`
	PortCallID   int64  `json:"portcallid"`
	ETA          string `json:"eta"`
	OldATA       string `json:"old_ata"`
	ATA          string `json:"ata"`
	VesselName   string `json:"vesselname"`
	PortAreaName string `json:"portareaname"`
	BerthName    string `json:"berthname"`
	Created      string `json:"created"`
}

// ArrivalKey identifies an arrival update.
func ArrivalKey(a Arrival) int64 { return a.ID }

// Updated reports whether the arrival replaced an earlier ATA.
func (a Arrival) Updated() bool { return a.OldATA != "" }

// ParsedATA returns the parsed ATA.
func (a Arrival) ParsedATA() time.Time { return parseTime(a.ATA) }

// ParsedOldATA returns the ATA this update replaced.
func (a Arrival) ParsedOldATA() time.Time { return parseTime(a.OldATA) }

// VesselLocation is one vessel position from the AIS feed.
type VesselLocation struct {
	MMSI      int64   `json:"mmsi"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	SOG       float64 `json:"sog"`
	COG       float64 `json:"cog"`
	Heading   int     `json:"heading"`
	NavStat   int     `json:"navStat"`
	ROT       int     `json:"rot"`
	PosAcc    bool    `json:"posAcc"`
	RAIM      bool    `json:"raim"`
	Timestamp int64   `json:"timestampExternal"`
}

// VesselKey identifies a vessel in the AIS feed.
func VesselKey(v VesselLocation) int64 { return v.MMSI }

// ReportedAt returns the time the position was received by the feed.
func (v VesselLocation) ReportedAt() time.Time {
	if v.Timestamp == 0 {
		return time.Time{}
	}
	return time.UnixMilli(v.Timestamp)
}

// MMSIString formats the MMSI for display and filtering.
func (v VesselLocation) MMSIString() string {
	return strconv.FormatInt(v.MMSI, 10)
}

// listResponse is the envelope of the paginated Portman endpoints.
type listResponse[T any] struct {
	Value    *[]T   `json:"value"`
	NextLink string `json:"nextLink"`
}

// featureCollection is the GeoJSON envelope of the AIS locations feed.
type featureCollection struct {
	Type            string     `json:"type"`
	DataUpdatedTime string     `json:"dataUpdatedTime"`
	Features        *[]feature `json:"features"`
}

type feature struct {
	MMSI       int64             `json:"mmsi"`
	Geometry   *geometry         `json:"geometry"`
	Properties featureProperties `json:"properties"`
}

type geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

type featureProperties struct {
	MMSI              int64   `json:"mmsi"`
	SOG               float64 `json:"sog"`
	COG               float64 `json:"cog"`
	NavStat           int     `json:"navStat"`
	ROT               int     `json:"rot"`
	PosAcc            bool    `json:"posAcc"`
	RAIM              bool    `json:"raim"`
	Heading           int     `json:"heading"`
	Timestamp         int64   `json:"timestamp"`
	TimestampExternal int64   `json:"timestampExternal"`
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	if t, err := time.ParseInLocation(portmanTimestampLayout, value, time.UTC); err == nil {
		return t
	}
	return time.Time{}
}

// Source names used for components, logs and metrics.
const (
	SourceVoyages  = "voyages"
	SourceArrivals = "arrivals"
	SourceVessels  = "vessels"
)
