package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/telhawk-systems/authsim/internal/identity"
	"github.com/telhawk-systems/authsim/internal/models"
)

// Paths names the output files of a run. An empty path skips that file.
type Paths struct {
	Pool    string
	Logs    string
	Attacks string
}

// Written lists the files produced by WriteFiles.
type Written struct {
	Files []string
}

// WriteFiles writes the pool snapshot, the log CSV and the attack CSV of run.
// Each file is staged next to its destination and renamed into place, so a failed
// write leaves no truncated output behind.
func WriteFiles(paths Paths, run *models.Run) (*Written, error) {
	if run == nil || run.Result == nil {
		return nil, fmt.Errorf("nothing to export: %w", models.ErrInvalidInput)
	}

	out := &Written{}

	if paths.Pool != "" {
		if run.Pool == nil {
			return nil, fmt.Errorf("run has no identity pool: %w", models.ErrInvalidInput)
		}
		err := writeAtomic(paths.Pool, func(w io.Writer) error {
			return identity.Encode(w, run.Pool, identity.FormatFromPath(paths.Pool))
		})
		if err != nil {
			return nil, err
		}
		out.Files = append(out.Files, paths.Pool)
	}

	if paths.Logs != "" {
		err := writeAtomic(paths.Logs, func(w io.Writer) error {
			return WriteLogsCSV(w, run.Result.Logs)
		})
		if err != nil {
			return nil, err
		}
		out.Files = append(out.Files, paths.Logs)
	}

	if paths.Attacks != "" {
		err := writeAtomic(paths.Attacks, func(w io.Writer) error {
			return WriteAttacksCSV(w, run.Result.Attacks)
		})
		if err != nil {
			return nil, err
		}
		out.Files = append(out.Files, paths.Attacks)
	}

	return out, nil
}

func writeAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w: %v", dir, models.ErrIO, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("stage %s: %w: %v", path, models.ErrIO, err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w: %v", path, models.ErrIO, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w: %v", path, models.ErrIO, err)
	}
	return nil
}
