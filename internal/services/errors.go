package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"raffle/internal/store"
)

var (
	// ErrDuplicateEntry is returned when the same names and email were already entered.
	ErrDuplicateEntry = errors.New("an entry with this name and email combination already exists")
	// ErrNoEligibleEntries is returned by a draw with an empty pool.
	ErrNoEligibleEntries = errors.New("no eligible entries available for drawing")
	// ErrNotFound wraps every missing entry, prize or winner.
	ErrNotFound = errors.New("not found")
	// ErrConfirmationMismatch is returned when a bulk delete lacks the DELETE ALL token.
	ErrConfirmationMismatch = errors.New("invalid confirmation, type 'DELETE ALL' to confirm")
	// ErrMissingEntryID is returned when confirming without an entry id.
	ErrMissingEntryID = errors.New("entry ID is required")
	// ErrMissingPrizeID is returned when claiming without a prize id.
	ErrMissingPrizeID = errors.New("prize ID is required")
	// ErrInvalidTransition is returned for a state change the current state does not allow.
	ErrInvalidTransition = errors.New("winner cannot change state")
	// ErrPrizeUnavailable is returned when claiming a prize that is not available.
	ErrPrizeUnavailable = errors.New("prize has already been claimed")
	// ErrAlreadyWinner is returned when confirming an entry that already has an active winner.
	ErrAlreadyWinner = errors.New("entry is already an active winner")
)

// ValidationError carries one message per invalid field.
type ValidationError struct {
	Fields map[string]string
}

// Error lists the invalid fields in name order.
func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation error: " + strings.Join(parts, "; ")
}

// NotificationError is returned when every notification channel failed.
// No state is changed when it occurs.
type NotificationError struct {
	Errors []string
}

// Error joins the per-channel failures.
func (e *NotificationError) Error() string {
	return "all notification methods failed: " + strings.Join(e.Errors, "; ")
}

func notFound(err error, kind, id string) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return err
}
