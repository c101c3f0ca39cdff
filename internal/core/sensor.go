package core

import "time"

type Granularity int

const (
	GranularityNone Granularity = iota
	GranularityMinute
	GranularityHour
	GranularityDay
)

func (g Granularity) String() string {
	switch g {
	case GranularityMinute:
		return "minute"
	case GranularityHour:
		return "hour"
	case GranularityDay:
		return "day"
	default:
		return "none"
	}
}

type Schema string

const (
	SchemaRawList  Schema = "raw_list"
	SchemaMinAvg   Schema = "minavg"
	SchemaHourAvg  Schema = "houravg"
	SchemaMinTrend Schema = "mintrend"
	SchemaNone     Schema = "none"
)

type Field string

const (
	FieldTemperature Field = "temperature"
	FieldHumidity    Field = "humidity"
	FieldGas         Field = "gas"
)

var Fields = []Field{FieldTemperature, FieldHumidity, FieldGas}

// Korean returns the label used in prompts and answers.
func (f Field) Korean() string {
	switch f {
	case FieldTemperature:
		return "온도"
	case FieldHumidity:
		return "습도"
	case FieldGas:
		return "이산화탄소(CO2)"
	}
	return string(f)
}

// SensorDocument is a single store object fetched for one turn.
type SensorDocument struct {
	ID       string `json:"key"`
	RawText  string `json:"-"`
	Parsed   any    `json:"-"`
	Schema   Schema `json:"schema"`
	Score    int    `json:"score"`
	FileSize int64  `json:"file_size"`
	Tag      string `json:"tag,omitempty"`
	// Note is rendered above the document body, e.g. to report a
	// closest-match substitution.
	Note string `json:"-"`
}

// SensorRow is one normalized reading. Missing fields stay nil.
type SensorRow struct {
	Timestamp   time.Time `json:"timestamp"`
	Temperature *float64  `json:"temperature,omitempty"`
	Humidity    *float64  `json:"humidity,omitempty"`
	Gas         *float64  `json:"gas,omitempty"`
}

func (r SensorRow) Value(f Field) (float64, bool) {
	var p *float64
	switch f {
	case FieldTemperature:
		p = r.Temperature
	case FieldHumidity:
		p = r.Humidity
	case FieldGas:
		p = r.Gas
	}
	if p == nil {
		return 0, false
	}
	return *p, true
}

type Route string

const (
	RouteSensor       Route = "sensor"
	RouteSensorNoData Route = "sensor_no_data"
	RouteSensorError  Route = "sensor_error"
	RouteSensorDetail Route = "sensor_detail"
	RouteGeneral      Route = "general"
	RouteGeneralError Route = "general_error"
	RouteError        Route = "error"
)

// IsSensor reports whether the route answered from sensor data.
func (r Route) IsSensor() bool {
	switch r {
	case RouteSensor, RouteSensorNoData, RouteSensorError, RouteSensorDetail:
		return true
	}
	return false
}
