package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"raffle/internal/models"
	"raffle/internal/notify"
	"raffle/internal/store"

	"github.com/google/logger"
)

// DeleteAllConfirmation must be supplied verbatim to any bulk delete.
const DeleteAllConfirmation = "DELETE ALL"

// drawIndex picks a uniform index in [0, n).
var drawIndex = rand.Intn

// RaffleService runs the entry, draw, claim and no-show workflow.
type RaffleService struct {
	store    store.Store
	notifier notify.Notifier
	now      func() time.Time
}

// NewRaffleService creates a RaffleService over st. notifier may be nil, in which
// case NotifyWinner always fails.
func NewRaffleService(st store.Store, notifier notify.Notifier) *RaffleService {
	return &RaffleService{
		store:    st,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SubmitEntry validates and stores a public raffle entry.
func (s *RaffleService) SubmitEntry(ctx context.Context, input EntryInput) (*models.Entry, error) {
	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)
	input.Email = strings.TrimSpace(input.Email)
	if err := validateStruct(input); err != nil {
		return nil, err
	}
	phone, _ := NormalizePhone(input.Phone)

	existing, err := s.CheckDuplicate(ctx, input.FirstName, input.LastName, input.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateEntry
	}

	entry := &models.Entry{
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Email:     input.Email,
		Phone:     phone,
		EntryTime: s.now(),
	}
	if err := s.store.InsertEntry(ctx, entry); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrDuplicateEntry
		}
		return nil, err
	}
	logger.Infof("raffle entry %s created for %s %s", entry.ID, entry.FirstName, entry.LastName)
	return entry, nil
}

// CheckDuplicate returns the entry with exactly the same names and email, or nil.
// The comparison is case-sensitive.
func (s *RaffleService) CheckDuplicate(ctx context.Context, firstName, lastName, email string) (*models.Entry, error) {
	return s.store.FindEntryByName(ctx, firstName, lastName, email)
}

// ListEntries returns every entry with its current draw status.
func (s *RaffleService) ListEntries(ctx context.Context) ([]models.EntryWithStatus, error) {
	entries, err := s.store.ListEntries(ctx)
	if err != nil {
		return nil, err
	}
	ids, err := s.store.ListActiveWinnerEntryIDs(ctx)
	if err != nil {
		return nil, err
	}
	active := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		active[id] = struct{}{}
	}

	out := make([]models.EntryWithStatus, 0, len(entries))
	for _, e := range entries {
		status := models.EntryStatusEligible
		if _, ok := active[e.ID]; ok {
			status = models.EntryStatusWinner
		}
		out = append(out, models.EntryWithStatus{Entry: e, Status: status})
	}
	return out, nil
}

// EligibleEntries returns all entries not referenced by an active (non no-show) winner.
func (s *RaffleService) EligibleEntries(ctx context.Context) ([]models.Entry, error) {
	ids, err := s.store.ListActiveWinnerEntryIDs(ctx)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return s.store.ListEntries(ctx)
	}
	return s.store.ListEntriesExcluding(ctx, ids)
}

// DrawWinner picks one eligible entry uniformly at random.
// The entry stays in the pool until ConfirmWinner records it.
func (s *RaffleService) DrawWinner(ctx context.Context) (*models.Entry, error) {
	eligible, err := s.EligibleEntries(ctx)
	if err != nil {
		return nil, err
	}
	if len(eligible) == 0 {
		return nil, ErrNoEligibleEntries
	}
	picked := eligible[drawIndex(len(eligible))]
	logger.Infof("drew entry %s from %d eligible entries", picked.ID, len(eligible))
	return &picked, nil
}

// ConfirmWinner records a drawn entry as a winner and marks the entry as having won.
func (s *RaffleService) ConfirmWinner(ctx context.Context, entryID string) (*models.Winner, error) {
	entryID = strings.TrimSpace(entryID)
	if entryID == "" {
		return nil, ErrMissingEntryID
	}

	var winner *models.Winner
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		if _, err := tx.GetEntry(ctx, entryID); err != nil {
			return notFound(err, "entry", entryID)
		}
		active, err := tx.ListActiveWinnerEntryIDs(ctx)
		if err != nil {
			return err
		}
		for _, id := range active {
			if id == entryID {
				return ErrAlreadyWinner
			}
		}

		record := &models.Winner{EntryID: entryID, DrawnAt: s.now()}
		if err := tx.InsertWinner(ctx, record); err != nil {
			return err
		}
		if err := tx.SetEntryWon(ctx, entryID, true); err != nil {
			return err
		}
		winner, err = tx.GetWinner(ctx, record.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	logger.Infof("confirmed winner %s for entry %s", winner.ID, entryID)
	return winner, nil
}

// ClaimPrize hands an available prize to a confirmed winner.
func (s *RaffleService) ClaimPrize(ctx context.Context, winnerID, prizeID string) (*models.Winner, error) {
	prizeID = strings.TrimSpace(prizeID)
	if prizeID == "" {
		return nil, ErrMissingPrizeID
	}

	var winner *models.Winner
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		current, err := tx.GetWinner(ctx, winnerID)
		if err != nil {
			return notFound(err, "winner", winnerID)
		}
		if current.Claimed() || current.IsNoShow {
			return fmt.Errorf("claim prize for winner %s: %w", winnerID, ErrInvalidTransition)
		}
		prize, err := tx.GetPrize(ctx, prizeID)
		if err != nil {
			return notFound(err, "prize", prizeID)
		}
		if !prize.IsAvailable {
			return ErrPrizeUnavailable
		}

		if err := tx.SetPrizeAvailable(ctx, prizeID, false); err != nil {
			return err
		}
		winner, err = tx.UpdateWinner(ctx, winnerID, map[string]any{
			"prize_id":   prizeID,
			"claimed_at": s.now(),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	logger.Infof("winner %s claimed prize %s", winnerID, prizeID)
	return winner, nil
}

// MarkNoShow records that a winner did not claim, returning their entry to the pool.
func (s *RaffleService) MarkNoShow(ctx context.Context, winnerID string) (*models.Winner, error) {
	var winner *models.Winner
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		current, err := tx.GetWinner(ctx, winnerID)
		if err != nil {
			return notFound(err, "winner", winnerID)
		}
		if current.Claimed() {
			return fmt.Errorf("mark no-show for winner %s: %w", winnerID, ErrInvalidTransition)
		}
		if current.IsNoShow {
			winner = current
			return nil
		}
		winner, err = tx.UpdateWinner(ctx, winnerID, map[string]any{"is_no_show": true})
		return err
	})
	if err != nil {
		return nil, err
	}
	logger.Infof("winner %s marked as no-show", winnerID)
	return winner, nil
}

// NotifyOutcome describes a successful notification.
type NotifyOutcome struct {
	Winner  *models.Winner
	Result  notify.Result
	Message string
}

// NotifyWinner sends the winner message and marks the winner as notified when at
// least one channel succeeded. If every channel fails a *NotificationError is
// returned and nothing is written.
func (s *RaffleService) NotifyWinner(ctx context.Context, winnerID string) (*NotifyOutcome, error) {
	winner, err := s.store.GetWinner(ctx, winnerID)
	if err != nil {
		return nil, notFound(err, "winner", winnerID)
	}
	if winner.Entry == nil {
		return nil, fmt.Errorf("entry for winner %s: %w", winnerID, ErrNotFound)
	}
	if s.notifier == nil {
		return nil, &NotificationError{Errors: []string{"no notifier configured"}}
	}

	result := s.notifier.Notify(ctx, *winner.Entry, winner.Prize)
	if !result.Delivered() {
		logger.Errorf("all notification methods failed for winner %s: %v", winnerID, result.Errors)
		return nil, &NotificationError{Errors: result.Errors}
	}

	updated, err := s.store.UpdateWinner(ctx, winnerID, map[string]any{"notified_at": s.now()})
	if err != nil {
		return nil, err
	}

	message := "Winner notified successfully"
	switch {
	case result.SMSOK && result.EmailOK:
		message += " via SMS and email"
	case result.SMSOK:
		message += " via SMS only"
	default:
		message += " via email only"
	}
	return &NotifyOutcome{Winner: updated, Result: result, Message: message}, nil
}

// ListWinners returns every winner with entry and prize loaded.
func (s *RaffleService) ListWinners(ctx context.Context) ([]models.Winner, error) {
	return s.store.ListWinnersWithDetails(ctx)
}

// ListPrizes returns all prizes in creation order.
func (s *RaffleService) ListPrizes(ctx context.Context) ([]models.Prize, error) {
	return s.store.ListPrizes(ctx)
}

// CreatePrize adds a new, available prize.
func (s *RaffleService) CreatePrize(ctx context.Context, input PrizeInput) (*models.Prize, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := validateStruct(input); err != nil {
		return nil, err
	}
	prize := &models.Prize{
		Name:        input.Name,
		Description: trimOptional(input.Description),
		IsAvailable: true,
		CreatedAt:   s.now(),
	}
	if err := s.store.InsertPrize(ctx, prize); err != nil {
		return nil, err
	}
	return prize, nil
}

// UpdatePrize changes the supplied prize fields.
// A prize held by a winner cannot be made available again; withdrawing a prize
// nobody holds is allowed and can be undone the same way.
func (s *RaffleService) UpdatePrize(ctx context.Context, id string, update PrizeUpdate) (*models.Prize, error) {
	if update.Name != nil {
		trimmed := strings.TrimSpace(*update.Name)
		update.Name = &trimmed
	}
	if err := validateStruct(update); err != nil {
		return nil, err
	}
	updates := map[string]any{}
	if update.Name != nil {
		updates["name"] = *update.Name
	}
	if update.Description != nil {
		updates["description"] = trimOptional(update.Description)
	}
	if update.IsAvailable != nil {
		updates["is_available"] = *update.IsAvailable
	}

	var prize *models.Prize
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		if _, err := tx.GetPrize(ctx, id); err != nil {
			return notFound(err, "prize", id)
		}
		if update.IsAvailable != nil && *update.IsAvailable {
			holders, err := tx.CountPrizeHolders(ctx, id)
			if err != nil {
				return err
			}
			if holders > 0 {
				return fmt.Errorf("reopen prize %s held by a winner: %w", id, ErrInvalidTransition)
			}
		}
		var err error
		prize, err = tx.UpdatePrize(ctx, id, updates)
		return notFound(err, "prize", id)
	})
	if err != nil {
		return nil, err
	}
	return prize, nil
}

// DeleteEntry removes an entry together with its winner records.
func (s *RaffleService) DeleteEntry(ctx context.Context, id string) error {
	if err := s.store.DeleteEntry(ctx, id); err != nil {
		return notFound(err, "entry", id)
	}
	logger.Infof("deleted entry %s", id)
	return nil
}

// DeleteAllEntries removes every entry and winner.
func (s *RaffleService) DeleteAllEntries(ctx context.Context, confirmation string) error {
	if err := checkConfirmation(confirmation); err != nil {
		return err
	}
	if err := s.store.DeleteAllEntries(ctx); err != nil {
		return err
	}
	logger.Info("deleted all entries and winners")
	return nil
}

// DeletePrize removes a prize; winners holding it become unclaimed.
func (s *RaffleService) DeletePrize(ctx context.Context, id string) error {
	if err := s.store.DeletePrize(ctx, id); err != nil {
		return notFound(err, "prize", id)
	}
	logger.Infof("deleted prize %s", id)
	return nil
}

// DeleteAllPrizes removes every prize and unassigns them from winners.
func (s *RaffleService) DeleteAllPrizes(ctx context.Context, confirmation string) error {
	if err := checkConfirmation(confirmation); err != nil {
		return err
	}
	if err := s.store.DeleteAllPrizes(ctx); err != nil {
		return err
	}
	logger.Info("deleted all prizes")
	return nil
}

// DeleteWinner removes one winner record; its entry becomes eligible again and
// any prize it held is available again.
func (s *RaffleService) DeleteWinner(ctx context.Context, id string) error {
	if err := s.store.DeleteWinner(ctx, id); err != nil {
		return notFound(err, "winner", id)
	}
	logger.Infof("deleted winner %s", id)
	return nil
}

// DeleteAllWinners removes every winner record and releases their prizes.
func (s *RaffleService) DeleteAllWinners(ctx context.Context, confirmation string) error {
	if err := checkConfirmation(confirmation); err != nil {
		return err
	}
	if err := s.store.DeleteAllWinners(ctx); err != nil {
		return err
	}
	logger.Info("deleted all winners")
	return nil
}

func checkConfirmation(confirmation string) error {
	if confirmation != DeleteAllConfirmation {
		return ErrConfirmationMismatch
	}
	return nil
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
