package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

// Entry names of the persisted layout.
const (
	KeyIdentity = "player_id"
	KeyPoints   = "points"
)

// ErrCorruptPoints is returned when the stored balance is not a non-negative
// decimal integer.
var ErrCorruptPoints = errors.New("stored points balance is corrupt")

// ErrEmptyIdentity is returned when an empty identity is assigned.
var ErrEmptyIdentity = errors.New("identity must not be empty")

// LocalState is the player's durable local state: an identity that is set
// once and never replaced, and the last committed point balance.
type LocalState struct {
	backend Backend
}

// NewLocalState returns a LocalState over backend. LocalState does not own
// the backend; callers close it.
func NewLocalState(backend Backend) *LocalState {
	return &LocalState{backend: backend}
}

// GetIdentity returns the stored player identity, if any.
//
// Parameters:
//   - ctx: Context for the backend read
//
// Returns:
//   - The identity and true if one is stored, "" and false otherwise
//   - An error if the backend failed
func (s *LocalState) GetIdentity(ctx context.Context) (string, bool, error) {
	id, ok, err := s.backend.Get(ctx, KeyIdentity)
	if err != nil {
		return "", false, fmt.Errorf("failed to load identity: %w", err)
	}

	if !ok || id == "" {
		return "", false, nil
	}

	return id, true, nil
}

// SetIdentity stores id unless an identity is already stored, in which case
// it does nothing.
//
// Parameters:
//   - ctx: Context for the backend write
//   - id: Identity issued by the server; must not be empty
//
// Returns:
//   - true if id was stored, false if an identity already existed
//   - An error if id is empty or the backend failed
func (s *LocalState) SetIdentity(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, ErrEmptyIdentity
	}

	stored, err := s.backend.SetIfAbsent(ctx, KeyIdentity, id)
	if err != nil {
		return false, fmt.Errorf("failed to store identity: %w", err)
	}

	return stored, nil
}

// GetPoints returns the last committed balance, if any.
//
// Parameters:
//   - ctx: Context for the backend read
//
// Returns:
//   - The balance and true if one is stored, 0 and false otherwise
//   - ErrCorruptPoints if the stored value is not a non-negative integer, or
//     the backend error
func (s *LocalState) GetPoints(ctx context.Context) (int, bool, error) {
	raw, ok, err := s.backend.Get(ctx, KeyPoints)
	if err != nil {
		return 0, false, fmt.Errorf("failed to load points: %w", err)
	}

	if !ok {
		return 0, false, nil
	}

	points, err := strconv.Atoi(raw)
	if err != nil || points < 0 {
		return 0, false, fmt.Errorf("%w: %q", ErrCorruptPoints, raw)
	}

	return points, true, nil
}

// SetPoints overwrites the stored balance.
//
// Parameters:
//   - ctx: Context for the backend write
//   - points: Balance to store; must not be negative
//
// Returns:
//   - An error if points is negative or the backend failed
func (s *LocalState) SetPoints(ctx context.Context, points int) error {
	if points < 0 {
		return fmt.Errorf("points balance must not be negative, got %d", points)
	}

	if err := s.backend.Set(ctx, KeyPoints, strconv.Itoa(points)); err != nil {
		return fmt.Errorf("failed to store points: %w", err)
	}

	return nil
}
