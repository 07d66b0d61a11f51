package draft

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is matching at the edges (HTTP mapping, metrics)
var (
	ErrValidation = errors.New("validation failed")
	ErrForbidden  = errors.New("forbidden")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
)

// Reason is a stable, machine readable rejection code
type Reason string

const (
	ReasonMatchLocked         Reason = "match-locked"
	ReasonWrongPhase          Reason = "wrong-phase"
	ReasonEmptyBans           Reason = "empty-bans"
	ReasonTooManyBans         Reason = "too-many-bans"
	ReasonDuplicateLoadout    Reason = "duplicate-loadout"
	ReasonUnknownLoadout      Reason = "unknown-loadout"
	ReasonDuplicateFactionBan Reason = "duplicate-faction-ban"
	ReasonBansSubmitted       Reason = "bans-already-submitted"
	ReasonUnknownFaction      Reason = "unknown-faction"
	ReasonFactionNotChosen    Reason = "faction-not-chosen"
	ReasonWrongPickCount      Reason = "wrong-pick-count"
	ReasonWrongFaction        Reason = "wrong-faction"
	ReasonBannedByOpponent    Reason = "banned-by-opponent"
	ReasonSelectionConfirmed  Reason = "selection-confirmed"
	ReasonSelectionIncomplete Reason = "selection-incomplete"
	ReasonInvalidRequest      Reason = "invalid-request"
)

// ValidationError is a user-correctable rule violation
type ValidationError struct {
	Reason  Reason
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func reject(reason Reason, format string, args ...any) *ValidationError {
	return &ValidationError{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// ForbiddenError is returned when the caller is not a participant
type ForbiddenError struct {
	MatchID   string
	AccountID string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("account %s is not a participant of match %s", e.AccountID, e.MatchID)
}

func (e *ForbiddenError) Is(target error) bool {
	return target == ErrForbidden
}

// NotFoundError reports a missing match, tournament or catalog entry
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ConflictError means the read-modify-write could not complete. Nothing was
// persisted and the call is safe to retry.
type ConflictError struct {
	MatchID string
	Err     error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("match %s: could not apply change: %v", e.MatchID, e.Err)
}

func (e *ConflictError) Unwrap() error {
	return e.Err
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// ReasonOf extracts the rejection code, if err carries one
func ReasonOf(err error) (Reason, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Reason, true
	}
	return "", false
}
