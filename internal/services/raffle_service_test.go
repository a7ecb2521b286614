package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"raffle/internal/models"
	"raffle/internal/notify"
	"raffle/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNotifier struct {
	result notify.Result
	calls  int
}

func (f *fakeNotifier) Notify(ctx context.Context, entry models.Entry, prize *models.Prize) notify.Result {
	f.calls++
	return f.result
}

func newTestService(t *testing.T) *RaffleService {
	t.Helper()
	return NewRaffleService(testutil.NewStore(t), nil)
}

func submit(t *testing.T, s *RaffleService, first, last string) *models.Entry {
	t.Helper()
	entry, err := s.SubmitEntry(context.Background(), EntryInput{
		FirstName: first,
		LastName:  last,
		Email:     strings.ToLower(first) + "@example.com",
		Phone:     "555-123-4567",
	})
	require.NoError(t, err)
	return entry
}

func createPrize(t *testing.T, s *RaffleService, name string) *models.Prize {
	t.Helper()
	prize, err := s.CreatePrize(context.Background(), PrizeInput{Name: name})
	require.NoError(t, err)
	return prize
}

func eligibleIDs(t *testing.T, s *RaffleService) []string {
	t.Helper()
	entries, err := s.EligibleEntries(context.Background())
	require.NoError(t, err)
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	return ids
}

func pinDraw(t *testing.T, index int) {
	t.Helper()
	original := drawIndex
	drawIndex = func(n int) int { return index }
	t.Cleanup(func() { drawIndex = original })
}

func TestRaffleService_SubmitEntry(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)

	t.Run("normalizes and stores", func(t *testing.T) {
		entry, err := s.SubmitEntry(ctx, EntryInput{
			FirstName: "  Ada ",
			LastName:  "Lovelace",
			Email:     "ada@example.com",
			Phone:     "(555) 123 4567",
		})
		require.NoError(t, err)
		assert.Equal(t, "Ada", entry.FirstName)
		assert.Equal(t, "555-123-4567", entry.Phone)
		assert.False(t, entry.HasWon)
		assert.NotEmpty(t, entry.ID)
	})

	t.Run("rejects duplicate name and email", func(t *testing.T) {
		_, err := s.SubmitEntry(ctx, EntryInput{
			FirstName: "Ada",
			LastName:  "Lovelace",
			Email:     "ada@example.com",
			Phone:     "555-999-0000",
		})
		assert.ErrorIs(t, err, ErrDuplicateEntry)
	})

	t.Run("same name with another email is a new entry", func(t *testing.T) {
		_, err := s.SubmitEntry(ctx, EntryInput{
			FirstName: "Ada",
			LastName:  "Lovelace",
			Email:     "ada.l@example.com",
			Phone:     "555-999-0000",
		})
		assert.NoError(t, err)
	})

	t.Run("duplicate check is case-sensitive", func(t *testing.T) {
		found, err := s.CheckDuplicate(ctx, "ada", "lovelace", "ada@example.com")
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("reports invalid fields", func(t *testing.T) {
		_, err := s.SubmitEntry(ctx, EntryInput{
			FirstName: " ",
			LastName:  strings.Repeat("x", 101),
			Email:     "not-an-email",
			Phone:     "555-123-456",
		})
		var verr *ValidationError
		require.True(t, errors.As(err, &verr), "expected validation error, got %v", err)
		assert.Equal(t, map[string]string{
			"firstName": "First name is required",
			"lastName":  "Last name too long",
			"email":     "Please enter a valid email address",
			"phone":     "Phone must be exactly 10 digits in format 555-123-4567",
		}, verr.Fields)
	})
}

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"555-123-4567", "555-123-4567", true},
		{"5551234567", "555-123-4567", true},
		{"(555) 123.4567", "555-123-4567", true},
		{"555-123-456", "", false},
		{"555-123-45678", "", false},
		{"+1 555 123 4567", "", false},
		{"555-CALL-NOW", "", false},
	}
	for _, tc := range cases {
		got, ok := NormalizePhone(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestRaffleService_DrawWinner(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)

	t.Run("empty pool", func(t *testing.T) {
		_, err := s.DrawWinner(ctx)
		assert.ErrorIs(t, err, ErrNoEligibleEntries)
	})

	a := submit(t, s, "Ada", "Lovelace")
	b := submit(t, s, "Grace", "Hopper")

	t.Run("drawing does not remove the entry", func(t *testing.T) {
		pinDraw(t, 1)
		pool := eligibleIDs(t, s)
		first, err := s.DrawWinner(ctx)
		require.NoError(t, err)
		second, err := s.DrawWinner(ctx)
		require.NoError(t, err)
		assert.Equal(t, pool[1], first.ID)
		assert.Equal(t, first.ID, second.ID)
		assert.ElementsMatch(t, []string{a.ID, b.ID}, eligibleIDs(t, s))
	})

	t.Run("pool of confirmed winners is empty", func(t *testing.T) {
		_, err := s.ConfirmWinner(ctx, a.ID)
		require.NoError(t, err)
		_, err = s.ConfirmWinner(ctx, b.ID)
		require.NoError(t, err)

		_, err = s.DrawWinner(ctx)
		assert.ErrorIs(t, err, ErrNoEligibleEntries)
	})
}

func TestRaffleService_DrawWinnerIsUniform(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)
	const (
		pool   = 4
		trials = 20000
	)
	for i := 0; i < pool; i++ {
		submit(t, s, fmt.Sprintf("Person%d", i), "Test")
	}

	counts := map[string]int{}
	for i := 0; i < trials; i++ {
		entry, err := s.DrawWinner(ctx)
		require.NoError(t, err)
		counts[entry.ID]++
	}

	require.Len(t, counts, pool)
	expected := trials / pool
	for id, n := range counts {
		assert.InDelta(t, expected, n, float64(expected)*0.1, "entry %s drawn %d times", id, n)
	}
}

func TestRaffleService_ConfirmWinner(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)
	entry := submit(t, s, "Ada", "Lovelace")

	_, err := s.ConfirmWinner(ctx, "")
	assert.ErrorIs(t, err, ErrMissingEntryID)

	_, err = s.ConfirmWinner(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	winner, err := s.ConfirmWinner(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entry.ID, winner.EntryID)
	assert.Nil(t, winner.PrizeID)
	assert.Nil(t, winner.ClaimedAt)
	assert.False(t, winner.IsNoShow)
	assert.False(t, winner.DrawnAt.IsZero())
	require.NotNil(t, winner.Entry)
	assert.True(t, winner.Entry.HasWon)

	assert.NotContains(t, eligibleIDs(t, s), entry.ID)

	_, err = s.ConfirmWinner(ctx, entry.ID)
	assert.ErrorIs(t, err, ErrAlreadyWinner)
}

func TestRaffleService_ClaimPrize(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)
	a := submit(t, s, "Ada", "Lovelace")
	b := submit(t, s, "Grace", "Hopper")
	bike := createPrize(t, s, "Bike")
	kite := createPrize(t, s, "Kite")
	wa, err := s.ConfirmWinner(ctx, a.ID)
	require.NoError(t, err)
	wb, err := s.ConfirmWinner(ctx, b.ID)
	require.NoError(t, err)

	t.Run("missing prize id", func(t *testing.T) {
		_, err := s.ClaimPrize(ctx, wa.ID, " ")
		assert.ErrorIs(t, err, ErrMissingPrizeID)
	})

	t.Run("unknown records", func(t *testing.T) {
		_, err := s.ClaimPrize(ctx, "missing", bike.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.ClaimPrize(ctx, wa.ID, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("claim marks prize unavailable", func(t *testing.T) {
		claimed, err := s.ClaimPrize(ctx, wa.ID, bike.ID)
		require.NoError(t, err)
		require.NotNil(t, claimed.PrizeID)
		assert.Equal(t, bike.ID, *claimed.PrizeID)
		assert.NotNil(t, claimed.ClaimedAt)
		require.NotNil(t, claimed.Prize)
		assert.False(t, claimed.Prize.IsAvailable)

		prizes, err := s.ListPrizes(ctx)
		require.NoError(t, err)
		for _, p := range prizes {
			assert.Equal(t, p.ID != bike.ID, p.IsAvailable, p.Name)
		}
	})

	t.Run("second claim fails", func(t *testing.T) {
		_, err := s.ClaimPrize(ctx, wa.ID, kite.ID)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("claimed prize cannot be claimed again", func(t *testing.T) {
		_, err := s.ClaimPrize(ctx, wb.ID, bike.ID)
		assert.ErrorIs(t, err, ErrPrizeUnavailable)
	})

	t.Run("no-show cannot claim", func(t *testing.T) {
		_, err := s.MarkNoShow(ctx, wb.ID)
		require.NoError(t, err)
		_, err = s.ClaimPrize(ctx, wb.ID, kite.ID)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})
}

func TestRaffleService_MarkNoShow(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)
	a := submit(t, s, "Ada", "Lovelace")
	b := submit(t, s, "Grace", "Hopper")
	prize := createPrize(t, s, "Bike")
	wa, err := s.ConfirmWinner(ctx, a.ID)
	require.NoError(t, err)
	wb, err := s.ConfirmWinner(ctx, b.ID)
	require.NoError(t, err)

	_, err = s.MarkNoShow(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	noShow, err := s.MarkNoShow(ctx, wa.ID)
	require.NoError(t, err)
	assert.True(t, noShow.IsNoShow)
	assert.Nil(t, noShow.ClaimedAt)
	assert.Contains(t, eligibleIDs(t, s), a.ID)

	again, err := s.MarkNoShow(ctx, wa.ID)
	require.NoError(t, err)
	assert.True(t, again.IsNoShow)

	_, err = s.ClaimPrize(ctx, wb.ID, prize.ID)
	require.NoError(t, err)
	_, err = s.MarkNoShow(ctx, wb.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	t.Run("re-drawn no-show can be confirmed again", func(t *testing.T) {
		again, err := s.ConfirmWinner(ctx, a.ID)
		require.NoError(t, err)
		assert.NotEqual(t, wa.ID, again.ID)
		assert.NotContains(t, eligibleIDs(t, s), a.ID)
	})
}

func TestRaffleService_Deletes(t *testing.T) {
	ctx := context.Background()

	t.Run("deleting a prize keeps the winner", func(t *testing.T) {
		s := newTestService(t)
		entry := submit(t, s, "Ada", "Lovelace")
		prize := createPrize(t, s, "Bike")
		winner, err := s.ConfirmWinner(ctx, entry.ID)
		require.NoError(t, err)
		_, err = s.ClaimPrize(ctx, winner.ID, prize.ID)
		require.NoError(t, err)

		require.NoError(t, s.DeletePrize(ctx, prize.ID))

		winners, err := s.ListWinners(ctx)
		require.NoError(t, err)
		require.Len(t, winners, 1)
		assert.Equal(t, winner.ID, winners[0].ID)
		assert.Nil(t, winners[0].PrizeID)
		assert.Nil(t, winners[0].ClaimedAt)

		assert.ErrorIs(t, s.DeletePrize(ctx, prize.ID), ErrNotFound)
	})

	t.Run("deleting an entry removes its winners", func(t *testing.T) {
		s := newTestService(t)
		entry := submit(t, s, "Ada", "Lovelace")
		_, err := s.ConfirmWinner(ctx, entry.ID)
		require.NoError(t, err)

		require.NoError(t, s.DeleteEntry(ctx, entry.ID))
		winners, err := s.ListWinners(ctx)
		require.NoError(t, err)
		assert.Empty(t, winners)
		assert.ErrorIs(t, s.DeleteEntry(ctx, entry.ID), ErrNotFound)
	})

	t.Run("bulk deletes need the exact token", func(t *testing.T) {
		s := newTestService(t)
		entry := submit(t, s, "Ada", "Lovelace")
		createPrize(t, s, "Bike")
		_, err := s.ConfirmWinner(ctx, entry.ID)
		require.NoError(t, err)

		for _, token := range []string{"delete all", "", "DELETE ALL ", "DELETE"} {
			assert.ErrorIs(t, s.DeleteAllEntries(ctx, token), ErrConfirmationMismatch, token)
			assert.ErrorIs(t, s.DeleteAllPrizes(ctx, token), ErrConfirmationMismatch, token)
			assert.ErrorIs(t, s.DeleteAllWinners(ctx, token), ErrConfirmationMismatch, token)
		}
		entries, err := s.ListEntries(ctx)
		require.NoError(t, err)
		assert.Len(t, entries, 1)

		require.NoError(t, s.DeleteAllWinners(ctx, DeleteAllConfirmation))
		assert.Equal(t, []string{entry.ID}, eligibleIDs(t, s))

		require.NoError(t, s.DeleteAllPrizes(ctx, DeleteAllConfirmation))
		require.NoError(t, s.DeleteAllEntries(ctx, DeleteAllConfirmation))
		entries, err = s.ListEntries(ctx)
		require.NoError(t, err)
		assert.Empty(t, entries)
		prizes, err := s.ListPrizes(ctx)
		require.NoError(t, err)
		assert.Empty(t, prizes)
	})
}

func TestRaffleService_Scenario(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)
	a := submit(t, s, "Ada", "Lovelace")
	b := submit(t, s, "Grace", "Hopper")
	c := submit(t, s, "Alan", "Turing")
	p1 := createPrize(t, s, "Bike")

	drawn, err := s.DrawWinner(ctx)
	require.NoError(t, err)
	assert.Contains(t, []string{a.ID, b.ID, c.ID}, drawn.ID)

	first, err := s.ConfirmWinner(ctx, drawn.ID)
	require.NoError(t, err)
	assert.Len(t, eligibleIDs(t, s), 2)

	_, err = s.ClaimPrize(ctx, first.ID, p1.ID)
	require.NoError(t, err)

	next, err := s.DrawWinner(ctx)
	require.NoError(t, err)
	second, err := s.ConfirmWinner(ctx, next.ID)
	require.NoError(t, err)
	assert.Len(t, eligibleIDs(t, s), 1)

	_, err = s.MarkNoShow(ctx, second.ID)
	require.NoError(t, err)

	pool := eligibleIDs(t, s)
	assert.Len(t, pool, 2)
	assert.Contains(t, pool, next.ID)
	assert.NotContains(t, pool, drawn.ID)

	entries, err := s.ListEntries(ctx)
	require.NoError(t, err)
	for _, e := range entries {
		want := models.EntryStatusEligible
		if e.ID == drawn.ID {
			want = models.EntryStatusWinner
		}
		assert.Equal(t, want, e.Status, e.FirstName)
	}
}

func TestRaffleService_NotifyWinner(t *testing.T) {
	ctx := context.Background()
	st := testutil.NewStore(t)
	notifier := &fakeNotifier{}
	s := NewRaffleService(st, notifier)
	entry := submit(t, s, "Ada", "Lovelace")
	winner, err := s.ConfirmWinner(ctx, entry.ID)
	require.NoError(t, err)

	t.Run("unknown winner", func(t *testing.T) {
		_, err := s.NotifyWinner(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("all channels failing leaves the winner untouched", func(t *testing.T) {
		notifier.result = notify.Result{Errors: []string{"SMS failed: x", "Email failed: y"}}
		_, err := s.NotifyWinner(ctx, winner.ID)
		var nerr *NotificationError
		require.True(t, errors.As(err, &nerr))
		assert.Equal(t, []string{"SMS failed: x", "Email failed: y"}, nerr.Errors)

		got, err := st.GetWinner(ctx, winner.ID)
		require.NoError(t, err)
		assert.Nil(t, got.NotifiedAt)
	})

	t.Run("one channel is enough", func(t *testing.T) {
		notifier.result = notify.Result{SMSOK: true, Errors: []string{"Email failed: y"}}
		outcome, err := s.NotifyWinner(ctx, winner.ID)
		require.NoError(t, err)
		assert.Equal(t, "Winner notified successfully via SMS only", outcome.Message)
		require.NotNil(t, outcome.Winner.NotifiedAt)
	})

	assert.Equal(t, 2, notifier.calls)
}

func TestRaffleService_Prizes(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)

	_, err := s.CreatePrize(ctx, PrizeInput{Name: "  "})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "Prize name is required", verr.Fields["name"])

	desc := "  Red, 21 speed "
	prize, err := s.CreatePrize(ctx, PrizeInput{Name: "Bike", Description: &desc})
	require.NoError(t, err)
	assert.True(t, prize.IsAvailable)
	require.NotNil(t, prize.Description)
	assert.Equal(t, "Red, 21 speed", *prize.Description)

	name := "Blue Bike"
	available := false
	updated, err := s.UpdatePrize(ctx, prize.ID, PrizeUpdate{Name: &name, IsAvailable: &available})
	require.NoError(t, err)
	assert.Equal(t, "Blue Bike", updated.Name)
	assert.False(t, updated.IsAvailable)

	_, err = s.UpdatePrize(ctx, "missing", PrizeUpdate{Name: &name})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRaffleService_PrizeAvailability(t *testing.T) {
	ctx := context.Background()
	reopen := true
	withdraw := false

	prizeAvailable := func(t *testing.T, s *RaffleService, id string) bool {
		t.Helper()
		prizes, err := s.ListPrizes(ctx)
		require.NoError(t, err)
		for _, p := range prizes {
			if p.ID == id {
				return p.IsAvailable
			}
		}
		t.Fatalf("prize %s not found", id)
		return false
	}

	t.Run("claimed prize cannot be reopened", func(t *testing.T) {
		s := newTestService(t)
		a := submit(t, s, "Ada", "Lovelace")
		b := submit(t, s, "Grace", "Hopper")
		bike := createPrize(t, s, "Bike")
		wa, err := s.ConfirmWinner(ctx, a.ID)
		require.NoError(t, err)
		wb, err := s.ConfirmWinner(ctx, b.ID)
		require.NoError(t, err)
		_, err = s.ClaimPrize(ctx, wa.ID, bike.ID)
		require.NoError(t, err)

		_, err = s.UpdatePrize(ctx, bike.ID, PrizeUpdate{IsAvailable: &reopen})
		assert.ErrorIs(t, err, ErrInvalidTransition)
		assert.False(t, prizeAvailable(t, s, bike.ID))

		_, err = s.ClaimPrize(ctx, wb.ID, bike.ID)
		assert.ErrorIs(t, err, ErrPrizeUnavailable)

		name := "Red Bike"
		renamed, err := s.UpdatePrize(ctx, bike.ID, PrizeUpdate{Name: &name})
		require.NoError(t, err)
		assert.Equal(t, "Red Bike", renamed.Name)
		assert.False(t, renamed.IsAvailable)
	})

	t.Run("unheld prize can be withdrawn and reopened", func(t *testing.T) {
		s := newTestService(t)
		kite := createPrize(t, s, "Kite")

		withdrawn, err := s.UpdatePrize(ctx, kite.ID, PrizeUpdate{IsAvailable: &withdraw})
		require.NoError(t, err)
		assert.False(t, withdrawn.IsAvailable)

		reopened, err := s.UpdatePrize(ctx, kite.ID, PrizeUpdate{IsAvailable: &reopen})
		require.NoError(t, err)
		assert.True(t, reopened.IsAvailable)
	})

	t.Run("deleting the holder releases the prize", func(t *testing.T) {
		s := newTestService(t)
		a := submit(t, s, "Ada", "Lovelace")
		b := submit(t, s, "Grace", "Hopper")
		bike := createPrize(t, s, "Bike")
		wa, err := s.ConfirmWinner(ctx, a.ID)
		require.NoError(t, err)
		wb, err := s.ConfirmWinner(ctx, b.ID)
		require.NoError(t, err)
		_, err = s.ClaimPrize(ctx, wa.ID, bike.ID)
		require.NoError(t, err)

		require.NoError(t, s.DeleteWinner(ctx, wa.ID))
		assert.True(t, prizeAvailable(t, s, bike.ID))

		claimed, err := s.ClaimPrize(ctx, wb.ID, bike.ID)
		require.NoError(t, err)
		require.NotNil(t, claimed.PrizeID)
		assert.Equal(t, bike.ID, *claimed.PrizeID)
	})

	t.Run("bulk and cascade deletes release prizes", func(t *testing.T) {
		s := newTestService(t)
		a := submit(t, s, "Ada", "Lovelace")
		b := submit(t, s, "Grace", "Hopper")
		bike := createPrize(t, s, "Bike")
		kite := createPrize(t, s, "Kite")
		wa, err := s.ConfirmWinner(ctx, a.ID)
		require.NoError(t, err)
		wb, err := s.ConfirmWinner(ctx, b.ID)
		require.NoError(t, err)
		_, err = s.ClaimPrize(ctx, wa.ID, bike.ID)
		require.NoError(t, err)
		_, err = s.ClaimPrize(ctx, wb.ID, kite.ID)
		require.NoError(t, err)

		require.NoError(t, s.DeleteEntry(ctx, a.ID))
		assert.True(t, prizeAvailable(t, s, bike.ID))
		assert.False(t, prizeAvailable(t, s, kite.ID))

		require.NoError(t, s.DeleteAllWinners(ctx, DeleteAllConfirmation))
		assert.True(t, prizeAvailable(t, s, kite.ID))
	})
}

func TestWriteEntriesCSV(t *testing.T) {
	entryTime := time.Date(2025, 6, 1, 14, 30, 0, 0, time.UTC)
	entries := []models.EntryWithStatus{
		{Entry: models.Entry{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Phone: "555-123-4567", EntryTime: entryTime}, Status: models.EntryStatusWinner},
		{Entry: models.Entry{FirstName: "Grace", LastName: "Hopper, Jr", Email: "grace@example.com", Phone: "555-765-4321", EntryTime: entryTime}, Status: models.EntryStatusEligible},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteEntriesCSV(&buf, entries))

	want := "\xef\xbb\xbf" +
		"First Name,Last Name,Email,Phone,Entry Time,Status\n" +
		"Ada,Lovelace,ada@example.com,555-123-4567,2025-06-01 14:30:00,Winner\n" +
		"Grace,\"Hopper, Jr\",grace@example.com,555-765-4321,2025-06-01 14:30:00,Eligible\n"
	assert.Equal(t, want, buf.String())
}
