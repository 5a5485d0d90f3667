package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/diwise/integration-sensortag/domain"
	"github.com/diwise/integration-sensortag/internal/pkg/infrastructure/sheets"
)

// ErrStaleSession signals that an append was rejected because the session
// is no longer usable. The caller must open a fresh session and retry the
// same row at the same index.
var ErrStaleSession = errors.New("sheet session is stale")

type sinkSession struct {
	store  sheets.Client
	handle sheets.Handle
	valid  bool
}

func newSinkSession(store sheets.Client) *sinkSession {
	return &sinkSession{store: store}
}

func (s *sinkSession) open(ctx context.Context) error {
	handle, err := s.store.Open(ctx)
	if err != nil {
		s.valid = false
		return err
	}

	s.handle = handle
	s.valid = true

	return nil
}

// append inserts the row at the given 1 based index. Any failure marks the
// session stale, since an expired token is by far the most common cause and
// reopening is harmless in the others.
func (s *sinkSession) append(ctx context.Context, row domain.Row, index int) error {
	if !s.valid {
		return fmt.Errorf("no open session: %w", ErrStaleSession)
	}

	err := s.store.InsertRow(ctx, s.handle, index, row.Cells())
	if err != nil {
		s.valid = false
		return fmt.Errorf("failed to append row at index %d: %s: %w", index, err.Error(), ErrStaleSession)
	}

	return nil
}
