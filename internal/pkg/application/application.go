package application

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/diwise/integration-sensortag/domain"
	"github.com/diwise/integration-sensortag/internal/pkg/infrastructure/sensortag"
	"github.com/diwise/integration-sensortag/internal/pkg/infrastructure/sheets"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
)

type Collector interface {
	Run(ctx context.Context) error
	Status() Status
}

type Config struct {
	Interval    time.Duration
	SettleDelay time.Duration
}

// Status is a point in time snapshot of the collector's progress, served by
// the status endpoint.
type Status struct {
	RowsWritten int64  `json:"rows_written"`
	LastStored  string `json:"last_stored,omitempty"`
}

type collector struct {
	device   sensortag.Device
	acquirer *acquirer
	session  *sinkSession
	interval time.Duration

	rowsWritten atomic.Int64
	lastStored  atomic.Int64
}

var tracer = otel.Tracer("integration-sensortag/app")

// errNoSample signals that a cycle could not produce a sample and that the
// tag needs to be reconnected before the next attempt.
var errNoSample = errors.New("failed to acquire a sample")

func New(device sensortag.Device, store sheets.Client, cfg Config) Collector {
	return &collector{
		device:   device,
		acquirer: newAcquirer(device, cfg.SettleDelay),
		session:  newSinkSession(store),
		interval: cfg.Interval,
	}
}

// Run drives the acquire, validate and append cycle until the context is
// cancelled. An error is returned only when the very first session open
// fails, which means the service is misconfigured. Faults after that are
// retried indefinitely: the tag is reconnected when readings fail and the
// session is reopened when appends are rejected, with the pending row kept
// at its index so that nothing is dropped or written twice.
func (c *collector) Run(ctx context.Context) error {
	err := c.session.open(ctx)
	if err != nil {
		return fmt.Errorf("failed to open a session against the sheet service: %s", err.Error())
	}

	// rows are inserted right below the header, newest reading on top
	rowIndex := 1

	for ctx.Err() == nil {
		if err := c.collectAndStore(ctx, rowIndex); err != nil {
			if errors.Is(err, errNoSample) {
				c.reconnect(ctx)
			}

			continue
		}

		if !sleepUnlessInterrupted(ctx, c.interval) {
			break
		}

		rowIndex++
	}

	return nil
}

func (c *collector) Status() Status {
	status := Status{
		RowsWritten: c.rowsWritten.Load(),
	}

	if ts := c.lastStored.Load(); ts > 0 {
		status.LastStored = time.Unix(ts, 0).UTC().Format(time.RFC3339)
	}

	return status
}

// collectAndStore runs a single cycle: acquire, validate and append one row.
// The span is scoped to the cycle itself; recovering from a cycle that could
// not produce a sample is the caller's business.
func (c *collector) collectAndStore(ctx context.Context, rowIndex int) error {
	var err error

	ctx, span := tracer.Start(ctx, "collect-and-store")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	_, ctx, log := o11y.AddTraceIDToLoggerAndStoreInContext(span, logging.GetFromContext(ctx), ctx)

	sample := c.acquirer.acquire(ctx)
	if sample == nil {
		err = errNoSample
		return err
	}

	sample = Validate(sample)

	row := domain.NewRow(time.Now().UTC(), sample)
	logReadings(log, row)

	if err = c.appendRow(ctx, row, rowIndex); err != nil {
		return err
	}

	c.rowsWritten.Add(1)
	c.lastStored.Store(row.Timestamp.Unix())

	return nil
}

// appendRow retries the same row at the same index until it is accepted,
// reopening the session whenever an append is rejected. It fails only when
// interrupted before the row could be stored.
func (c *collector) appendRow(ctx context.Context, row domain.Row, index int) error {
	log := logging.GetFromContext(ctx)

	for ctx.Err() == nil {
		err := c.session.append(ctx, row, index)
		if err == nil {
			log.Info().Msgf("stored row %d captured at %s", index, row.Timestamp.Format(time.RFC3339))
			return nil
		}

		log.Warn().Err(err).Msg("append was rejected, reopening session")

		c.reopen(ctx)
	}

	return ctx.Err()
}

func (c *collector) reconnect(ctx context.Context) {
	log := logging.GetFromContext(ctx)

	for ctx.Err() == nil {
		err := c.device.Connect(ctx)
		if err == nil {
			log.Info().Msg("reconnected to sensortag")
			return
		}

		log.Warn().Err(err).Msg("failed to reconnect to sensortag, retrying")
	}
}

func (c *collector) reopen(ctx context.Context) {
	log := logging.GetFromContext(ctx)

	for ctx.Err() == nil {
		err := c.session.open(ctx)
		if err == nil {
			return
		}

		log.Error().Err(err).Msg("failed to reopen sheet session, retrying")
	}
}

func logReadings(log zerolog.Logger, row domain.Row) {
	evt := log.Info()

	for _, channel := range domain.Columns() {
		if value, ok := row.Sample[channel]; ok {
			evt = evt.Float64(string(channel), value)
		}
	}

	evt.Msg("readings")
}

func sleepUnlessInterrupted(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
