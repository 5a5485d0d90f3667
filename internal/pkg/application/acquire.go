package application

import (
	"context"
	"time"

	"github.com/diwise/integration-sensortag/domain"
	"github.com/diwise/integration-sensortag/internal/pkg/infrastructure/sensortag"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
)

type acquirer struct {
	device      sensortag.Device
	settleDelay time.Duration
}

func newAcquirer(device sensortag.Device, settleDelay time.Duration) *acquirer {
	return &acquirer{
		device:      device,
		settleDelay: settleDelay,
	}
}

// acquire powers up all sensors, waits for them to settle, reads them in a
// fixed order and powers them down again to save battery. A device fault
// anywhere in that sequence, the final power down included, yields a nil
// sample and leaves the tag in an unknown power state; the caller owns
// reconnecting before trying again.
func (a *acquirer) acquire(ctx context.Context) (sample domain.Sample) {
	log := logging.GetFromContext(ctx)

	defer func() {
		// a failed power down means the link dropped, which voids the readings
		for _, sensor := range domain.Sensors() {
			if err := a.device.Disable(ctx, sensor.Name); err != nil {
				log.Warn().Err(err).Msgf("could not disable %s", sensor.Name)
				sample = nil
			}
		}
	}()

	for _, sensor := range domain.Sensors() {
		if err := a.device.Enable(ctx, sensor.Name); err != nil {
			log.Warn().Err(err).Msgf("could not enable %s", sensor.Name)
			return nil
		}
	}

	// freshly enabled sensors report garbage until they have settled
	if !sleepUnlessInterrupted(ctx, a.settleDelay) {
		return nil
	}

	sample = domain.Sample{}

	for _, sensor := range domain.Sensors() {
		values, err := a.device.Read(ctx, sensor.Name)
		if err != nil {
			log.Warn().Err(err).Msgf("could not read %s", sensor.Name)
			return nil
		}

		sample[sensor.Primary] = domain.Round(values[0])

		if sensor.Secondary != "" && len(values) > 1 {
			sample[sensor.Secondary] = domain.Round(values[1])
		}
	}

	return sample
}
