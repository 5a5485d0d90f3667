package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/diwise/integration-sensortag/domain"
	"github.com/matryer/is"
)

func TestAppendBeforeOpenSignalsStale(t *testing.T) {
	is := is.New(t)

	session := newSinkSession(&fakeStore{})
	err := session.append(context.Background(), someRow(), 1)

	is.True(errors.Is(err, ErrStaleSession))
}

func TestRejectedAppendSignalsStaleAndInvalidatesTheSession(t *testing.T) {
	is := is.New(t)

	store := &fakeStore{rejectNextInserts: 1}
	session := newSinkSession(store)
	is.NoErr(session.open(context.Background()))

	err := session.append(context.Background(), someRow(), 1)
	is.True(errors.Is(err, ErrStaleSession))

	// the session stays stale until reopened, nothing reaches the store
	err = session.append(context.Background(), someRow(), 1)
	is.True(errors.Is(err, ErrStaleSession))
	is.Equal(len(store.inserted), 0)
}

func TestReopenedSessionAcceptsTheSameRowAgain(t *testing.T) {
	is := is.New(t)

	store := &fakeStore{rejectNextInserts: 1}
	session := newSinkSession(store)
	is.NoErr(session.open(context.Background()))

	row := someRow()
	err := session.append(context.Background(), row, 3)
	is.True(errors.Is(err, ErrStaleSession))

	is.NoErr(session.open(context.Background()))
	is.NoErr(session.append(context.Background(), row, 3))

	is.Equal(len(store.inserted), 1)
	is.Equal(store.inserted[0].index, 3)
}

func someRow() domain.Row {
	ts, _ := time.Parse(time.RFC3339, "2023-08-28T10:23:42Z")
	return domain.NewRow(ts, domain.Sample{domain.Light: 310.0})
}
