package application

import (
	"context"
	"testing"

	"github.com/diwise/integration-sensortag/domain"
	"github.com/matryer/is"
)

func TestAcquireReadsAllChannelsAndRoundsToTwoDecimals(t *testing.T) {
	is := is.New(t)

	device := workingDevice()
	a := newAcquirer(device, 0)

	sample := a.acquire(context.Background())

	is.Equal(sample, domain.Sample{
		domain.InfraredObjectTemp: 21.5,
		domain.InfraredAmbient:    20.94,
		domain.HumidityTemp:       22.18,
		domain.Humidity:           45.66,
		domain.BarometerTemp:      22.3,
		domain.Pressure:           1013.25,
		domain.Light:              310.0,
	})
}

func TestAcquireDisablesEverySensorAfterReading(t *testing.T) {
	is := is.New(t)

	device := workingDevice()
	a := newAcquirer(device, 0)

	a.acquire(context.Background())

	is.Equal(len(device.enables), len(domain.Sensors()))
	is.Equal(len(device.disables), len(domain.Sensors()))
}

func TestAcquireYieldsEmptyOnReadFaultNeverAPartialSample(t *testing.T) {
	is := is.New(t)

	device := workingDevice()
	device.failReadOf = "barometer"
	a := newAcquirer(device, 0)

	sample := a.acquire(context.Background())

	is.True(sample == nil)
	// sensors are still powered down on the way out
	is.Equal(len(device.disables), len(domain.Sensors()))
}

func TestAcquireYieldsEmptyWhenPowerDownFaults(t *testing.T) {
	is := is.New(t)

	device := workingDevice()
	device.failDisables = true
	a := newAcquirer(device, 0)

	sample := a.acquire(context.Background())

	is.True(sample == nil) // readings over a dropped link cannot be trusted
}

func TestAcquireYieldsEmptyWhenTheDeviceIsGone(t *testing.T) {
	is := is.New(t)

	device := workingDevice()
	device.down = true
	a := newAcquirer(device, 0)

	sample := a.acquire(context.Background())

	is.True(sample == nil)
}
