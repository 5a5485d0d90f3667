package domain

import (
	"math"
	"time"
)

type Channel string

const (
	InfraredObjectTemp Channel = "infrared_object_temp"
	InfraredAmbient    Channel = "infrared_ambient"
	HumidityTemp       Channel = "humidity_temp"
	Humidity           Channel = "humidity"
	BarometerTemp      Channel = "barometer_temp"
	Pressure           Channel = "pressure"
	Light              Channel = "light"
)

// Columns returns the channels in the order they are laid out in the
// spreadsheet, after the timestamp column.
func Columns() []Channel {
	return []Channel{
		InfraredObjectTemp,
		HumidityTemp,
		BarometerTemp,
		InfraredAmbient,
		Humidity,
		Pressure,
		Light,
	}
}

// Sensor is one of the physical sensors on the tag. Reading it yields one
// or two values; the first feeds Primary, the second (if the sensor has
// one) feeds Secondary.
type Sensor struct {
	Name      string
	Primary   Channel
	Secondary Channel
}

// Sensors returns the tag's sensors in the order they are read each cycle.
func Sensors() []Sensor {
	return []Sensor{
		{Name: "irtemperature", Primary: InfraredObjectTemp, Secondary: InfraredAmbient},
		{Name: "humidity", Primary: HumidityTemp, Secondary: Humidity},
		{Name: "barometer", Primary: BarometerTemp, Secondary: Pressure},
		{Name: "lightmeter", Primary: Light},
	}
}

// Sample holds one cycle's readings. A missing key means the channel was
// never read or was filtered out as implausible.
type Sample map[Channel]float64

func Round(value float64) float64 {
	return math.Round(value*100) / 100
}

type Row struct {
	Timestamp time.Time
	Sample    Sample
}

func NewRow(timestamp time.Time, sample Sample) Row {
	return Row{Timestamp: timestamp, Sample: sample}
}

// Cells serializes the row for insertion: the capture timestamp followed by
// the channel columns in their fixed order. Absent channels become empty
// cells.
func (r Row) Cells() []any {
	cells := make([]any, 0, len(Columns())+1)
	cells = append(cells, r.Timestamp.Format(time.RFC3339))

	for _, column := range Columns() {
		if value, ok := r.Sample[column]; ok {
			cells = append(cells, value)
		} else {
			cells = append(cells, "")
		}
	}

	return cells
}
