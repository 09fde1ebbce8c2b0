// Package export writes simulation results to files.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/telhawk-systems/authsim/internal/models"
)

// WriteLogsCSV writes the header and one row per log record.
func WriteLogsCSV(w io.Writer, logs []models.LogRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(models.LogHeader); err != nil {
		return fmt.Errorf("write log header: %w: %v", models.ErrIO, err)
	}
	for _, rec := range logs {
		if err := cw.Write(rec.Row()); err != nil {
			return fmt.Errorf("write log row: %w: %v", models.ErrIO, err)
		}
	}
	return flush(cw)
}

// WriteAttacksCSV writes the header and one row per attack.
func WriteAttacksCSV(w io.Writer, attacks []models.AttackRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(models.AttackHeader); err != nil {
		return fmt.Errorf("write attack header: %w: %v", models.ErrIO, err)
	}
	for _, a := range attacks {
		if err := cw.Write(a.Row()); err != nil {
			return fmt.Errorf("write attack row: %w: %v", models.ErrIO, err)
		}
	}
	return flush(cw)
}

func flush(cw *csv.Writer) error {
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w: %v", models.ErrIO, err)
	}
	return nil
}
