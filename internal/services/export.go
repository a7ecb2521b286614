package services

import (
	"encoding/csv"
	"io"

	"raffle/internal/models"
)

const exportTimeLayout = "2006-01-02 15:04:05"

// WriteEntriesCSV writes entries with their status as CSV.
// A UTF-8 BOM is written first so spreadsheet tools pick the right encoding.
func WriteEntriesCSV(w io.Writer, entries []models.EntryWithStatus) error {
	if _, err := w.Write([]byte("\xef\xbb\xbf")); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"First Name", "Last Name", "Email", "Phone", "Entry Time", "Status"}); err != nil {
		return err
	}
	for _, e := range entries {
		status := "Eligible"
		if e.Status == models.EntryStatusWinner {
			status = "Winner"
		}
		row := []string{
			e.FirstName,
			e.LastName,
			e.Email,
			e.Phone,
			e.EntryTime.Format(exportTimeLayout),
			status,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
