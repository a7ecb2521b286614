package store

import (
	"context"
	"errors"

	"raffle/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrNotFound is returned when an operation references a missing record.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a write violates a unique index.
	ErrConflict = errors.New("record already exists")
)

// Store is the record store behind the raffle workflow.
// Cascading deletes run inside a single transaction. Removing a winner that
// holds a prize makes that prize available again.
type Store interface {
	ListEntries(ctx context.Context) ([]models.Entry, error)
	ListEntriesExcluding(ctx context.Context, ids []string) ([]models.Entry, error)
	GetEntry(ctx context.Context, id string) (*models.Entry, error)
	FindEntryByName(ctx context.Context, firstName, lastName, email string) (*models.Entry, error)
	InsertEntry(ctx context.Context, entry *models.Entry) error
	SetEntryWon(ctx context.Context, id string, won bool) error
	DeleteEntry(ctx context.Context, id string) error
	DeleteAllEntries(ctx context.Context) error

	ListPrizes(ctx context.Context) ([]models.Prize, error)
	GetPrize(ctx context.Context, id string) (*models.Prize, error)
	InsertPrize(ctx context.Context, prize *models.Prize) error
	UpdatePrize(ctx context.Context, id string, updates map[string]any) (*models.Prize, error)
	SetPrizeAvailable(ctx context.Context, id string, available bool) error
	CountPrizeHolders(ctx context.Context, id string) (int64, error)
	DeletePrize(ctx context.Context, id string) error
	DeleteAllPrizes(ctx context.Context) error

	ListWinnersWithDetails(ctx context.Context) ([]models.Winner, error)
	GetWinner(ctx context.Context, id string) (*models.Winner, error)
	InsertWinner(ctx context.Context, winner *models.Winner) error
	UpdateWinner(ctx context.Context, id string, updates map[string]any) (*models.Winner, error)
	DeleteWinner(ctx context.Context, id string) error
	DeleteAllWinners(ctx context.Context) error
	ListActiveWinnerEntryIDs(ctx context.Context) ([]string, error)

	FindAdmin(ctx context.Context, username string) (*models.Admin, error)
	InsertAdmin(ctx context.Context, admin *models.Admin) error

	// Transaction runs fn against a Store bound to one database transaction.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

type gormStore struct {
	db *gorm.DB
}

// New returns a Store backed by conn.
func New(conn *gorm.DB) Store {
	return &gormStore{db: conn}
}

func (s *gormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		return fn(&gormStore{db: txx})
	})
}

// Entries

func (s *gormStore) ListEntries(ctx context.Context) ([]models.Entry, error) {
	var entries []models.Entry
	if err := s.db.WithContext(ctx).Order("entry_time").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *gormStore) ListEntriesExcluding(ctx context.Context, ids []string) ([]models.Entry, error) {
	if len(ids) == 0 {
		return s.ListEntries(ctx)
	}
	var entries []models.Entry
	if err := s.db.WithContext(ctx).
		Where("id NOT IN ?", ids).
		Order("entry_time").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *gormStore) GetEntry(ctx context.Context, id string) (*models.Entry, error) {
	var entry models.Entry
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&entry).Error; err != nil {
		return nil, translate(err)
	}
	return &entry, nil
}

// FindEntryByName returns the entry with exactly these names and email, or nil.
func (s *gormStore) FindEntryByName(ctx context.Context, firstName, lastName, email string) (*models.Entry, error) {
	var entries []models.Entry
	if err := s.db.WithContext(ctx).
		Where("first_name = ? AND last_name = ? AND email = ?", firstName, lastName, email).
		Limit(1).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

func (s *gormStore) InsertEntry(ctx context.Context, entry *models.Entry) error {
	return translate(s.db.WithContext(ctx).Create(entry).Error)
}

func (s *gormStore) SetEntryWon(ctx context.Context, id string, won bool) error {
	res := s.db.WithContext(ctx).Model(&models.Entry{}).Where("id = ?", id).Update("has_won", won)
	return affected(res)
}

func (s *gormStore) DeleteEntry(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		if err := releaseHeldPrizes(txx, "entry_id = ?", id); err != nil {
			return err
		}
		if err := txx.Where("entry_id = ?", id).Delete(&models.Winner{}).Error; err != nil {
			return err
		}
		return affected(txx.Where("id = ?", id).Delete(&models.Entry{}))
	})
}

func (s *gormStore) DeleteAllEntries(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		if err := releaseHeldPrizes(txx, "1 = 1"); err != nil {
			return err
		}
		if err := txx.Where("1 = 1").Delete(&models.Winner{}).Error; err != nil {
			return err
		}
		return txx.Where("1 = 1").Delete(&models.Entry{}).Error
	})
}

// Prizes

func (s *gormStore) ListPrizes(ctx context.Context) ([]models.Prize, error) {
	var prizes []models.Prize
	if err := s.db.WithContext(ctx).Order("created_at").Find(&prizes).Error; err != nil {
		return nil, err
	}
	return prizes, nil
}

func (s *gormStore) GetPrize(ctx context.Context, id string) (*models.Prize, error) {
	var prize models.Prize
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&prize).Error; err != nil {
		return nil, translate(err)
	}
	return &prize, nil
}

func (s *gormStore) InsertPrize(ctx context.Context, prize *models.Prize) error {
	return translate(s.db.WithContext(ctx).Create(prize).Error)
}

func (s *gormStore) UpdatePrize(ctx context.Context, id string, updates map[string]any) (*models.Prize, error) {
	if len(updates) > 0 {
		res := s.db.WithContext(ctx).Model(&models.Prize{}).Where("id = ?", id).Updates(updates)
		if err := affected(res); err != nil {
			return nil, err
		}
	}
	return s.GetPrize(ctx, id)
}

func (s *gormStore) SetPrizeAvailable(ctx context.Context, id string, available bool) error {
	res := s.db.WithContext(ctx).Model(&models.Prize{}).Where("id = ?", id).Update("is_available", available)
	return affected(res)
}

// CountPrizeHolders counts the winners, other than no-shows, that reference the prize.
func (s *gormStore) CountPrizeHolders(ctx context.Context, id string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&models.Winner{}).
		Where("prize_id = ? AND is_no_show = ?", id, false).
		Count(&n).Error
	return n, err
}

// DeletePrize unassigns the prize from any winner before removing it.
// Those winners return to the confirmed, unclaimed state.
func (s *gormStore) DeletePrize(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		if err := txx.Model(&models.Winner{}).
			Where("prize_id = ?", id).
			Updates(map[string]any{"prize_id": nil, "claimed_at": nil}).Error; err != nil {
			return err
		}
		return affected(txx.Where("id = ?", id).Delete(&models.Prize{}))
	})
}

func (s *gormStore) DeleteAllPrizes(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		if err := txx.Model(&models.Winner{}).
			Where("prize_id IS NOT NULL").
			Updates(map[string]any{"prize_id": nil, "claimed_at": nil}).Error; err != nil {
			return err
		}
		return txx.Where("1 = 1").Delete(&models.Prize{}).Error
	})
}

// Winners

func (s *gormStore) ListWinnersWithDetails(ctx context.Context) ([]models.Winner, error) {
	var winners []models.Winner
	if err := s.db.WithContext(ctx).
		Preload("Entry").
		Preload("Prize").
		Order("drawn_at").
		Find(&winners).Error; err != nil {
		return nil, err
	}
	return winners, nil
}

func (s *gormStore) GetWinner(ctx context.Context, id string) (*models.Winner, error) {
	var winner models.Winner
	if err := s.db.WithContext(ctx).
		Preload("Entry").
		Preload("Prize").
		Where("id = ?", id).
		First(&winner).Error; err != nil {
		return nil, translate(err)
	}
	return &winner, nil
}

func (s *gormStore) InsertWinner(ctx context.Context, winner *models.Winner) error {
	return translate(s.db.WithContext(ctx).Omit(clause.Associations).Create(winner).Error)
}

func (s *gormStore) UpdateWinner(ctx context.Context, id string, updates map[string]any) (*models.Winner, error) {
	if len(updates) > 0 {
		res := s.db.WithContext(ctx).Model(&models.Winner{}).Where("id = ?", id).Updates(updates)
		if err := affected(res); err != nil {
			return nil, err
		}
	}
	return s.GetWinner(ctx, id)
}

func (s *gormStore) DeleteWinner(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		if err := releaseHeldPrizes(txx, "id = ?", id); err != nil {
			return err
		}
		return affected(txx.Where("id = ?", id).Delete(&models.Winner{}))
	})
}

func (s *gormStore) DeleteAllWinners(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		if err := releaseHeldPrizes(txx, "1 = 1"); err != nil {
			return err
		}
		return txx.Where("1 = 1").Delete(&models.Winner{}).Error
	})
}

// releaseHeldPrizes marks the prizes held by the matching winners as available.
func releaseHeldPrizes(txx *gorm.DB, query string, args ...any) error {
	var ids []string
	if err := txx.Model(&models.Winner{}).
		Where(query, args...).
		Where("prize_id IS NOT NULL").
		Pluck("prize_id", &ids).Error; err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	return txx.Model(&models.Prize{}).Where("id IN ?", ids).Update("is_available", true).Error
}

// ListActiveWinnerEntryIDs returns the entry ids of every winner that is not a no-show.
func (s *gormStore) ListActiveWinnerEntryIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := s.db.WithContext(ctx).
		Model(&models.Winner{}).
		Where("is_no_show = ?", false).
		Distinct().
		Pluck("entry_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// Admins

func (s *gormStore) FindAdmin(ctx context.Context, username string) (*models.Admin, error) {
	var admin models.Admin
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&admin).Error; err != nil {
		return nil, translate(err)
	}
	return &admin, nil
}

func (s *gormStore) InsertAdmin(ctx context.Context, admin *models.Admin) error {
	return translate(s.db.WithContext(ctx).Create(admin).Error)
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrConflict
	default:
		return err
	}
}

func affected(res *gorm.DB) error {
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
