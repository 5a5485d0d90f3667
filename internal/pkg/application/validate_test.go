package application

import (
	"testing"

	"github.com/diwise/integration-sensortag/domain"
	"github.com/matryer/is"
)

func TestValidateDropsHumidityTempWhenFarFromObjectTemp(t *testing.T) {
	is := is.New(t)

	sample := domain.Sample{
		domain.InfraredObjectTemp: 22.0,
		domain.HumidityTemp:       25.5,
	}

	validated := Validate(sample)

	_, present := validated[domain.HumidityTemp]
	is.True(!present)
	is.Equal(validated[domain.InfraredObjectTemp], 22.0)
}

func TestValidateKeepsHumidityTempOnTheTwoDegreeBoundary(t *testing.T) {
	is := is.New(t)

	sample := domain.Sample{
		domain.InfraredObjectTemp: 22.0,
		domain.HumidityTemp:       24.0,
	}

	validated := Validate(sample)

	is.Equal(validated[domain.HumidityTemp], 24.0)
}

func TestValidateKeepsHumidityTempWhenReferenceIsMissing(t *testing.T) {
	is := is.New(t)

	sample := domain.Sample{
		domain.HumidityTemp: 25.5,
	}

	validated := Validate(sample)

	is.Equal(validated[domain.HumidityTemp], 25.5)
}

func TestValidateDropsHumidityOutsidePlausibleRange(t *testing.T) {
	is := is.New(t)

	for _, humidity := range []float64{0.5, 1.0, 99.0, 100.0} {
		validated := Validate(domain.Sample{domain.Humidity: humidity})

		_, present := validated[domain.Humidity]
		is.True(!present) // humidity outside (1, 99) must be dropped
	}
}

func TestValidateKeepsPlausibleHumidity(t *testing.T) {
	is := is.New(t)

	validated := Validate(domain.Sample{domain.Humidity: 50.0})

	is.Equal(validated[domain.Humidity], 50.0)
}

func TestValidateLeavesOtherChannelsUntouched(t *testing.T) {
	is := is.New(t)

	sample := domain.Sample{
		domain.InfraredObjectTemp: 21.5,
		domain.InfraredAmbient:    20.9,
		domain.BarometerTemp:      22.1,
		domain.Pressure:           1013.25,
		domain.Light:              310.0,
	}

	validated := Validate(sample)

	is.Equal(validated, sample)
}

func TestValidateDoesNotModifyItsArgument(t *testing.T) {
	is := is.New(t)

	sample := domain.Sample{
		domain.InfraredObjectTemp: 22.0,
		domain.HumidityTemp:       30.0,
		domain.Humidity:           0.2,
	}

	Validate(sample)

	is.Equal(sample[domain.HumidityTemp], 30.0)
	is.Equal(sample[domain.Humidity], 0.2)
}
