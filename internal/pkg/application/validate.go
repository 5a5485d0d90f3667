package application

import (
	"github.com/diwise/integration-sensortag/domain"
)

const (
	// humidity sensor temperatures further than this from the ir object
	// reading are considered implausible
	maxPlausibleTempDelta = 2.0

	minPlausibleHumidity = 1.0
	maxPlausibleHumidity = 99.0
)

// Validate removes implausible readings from a sample. The humidity sensor
// runs hot when the tag has been handled, so its temperature is cross
// checked against the trusted ir object temperature and dropped when the
// two disagree by more than two degrees. Humidity itself is dropped outside
// the open interval (1, 99) where the sensor is known to rail. All other
// channels pass through untouched.
func Validate(sample domain.Sample) domain.Sample {
	result := domain.Sample{}

	for channel, value := range sample {
		result[channel] = value
	}

	humidityTemp, hasHumidityTemp := result[domain.HumidityTemp]
	reference, hasReference := result[domain.InfraredObjectTemp]

	if hasHumidityTemp && hasReference {
		delta := humidityTemp - reference
		if delta < -maxPlausibleTempDelta || delta > maxPlausibleTempDelta {
			delete(result, domain.HumidityTemp)
		}
	}

	humidity, hasHumidity := result[domain.Humidity]
	if hasHumidity && (humidity <= minPlausibleHumidity || humidity >= maxPlausibleHumidity) {
		delete(result, domain.Humidity)
	}

	return result
}
