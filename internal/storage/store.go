package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math/cmplx"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/eigenflow/internal/config"
	"github.com/san-kum/eigenflow/internal/krylov"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID              string    `json:"id"`
	Model           string    `json:"model"`
	Timestamp       time.Time `json:"timestamp"`
	Integrator      string    `json:"integrator"`
	Horizon         float64   `json:"horizon"`
	Dt              float64   `json:"dt"`
	EpsDu           float64   `json:"eps_du"`
	Seed            int64     `json:"seed"`
	Poincare        bool      `json:"poincare"`
	Status          string    `json:"status"`
	Iterations      int       `json:"iterations"`
	BaseResidual    float64   `json:"base_residual"`
	CFL             float64   `json:"cfl"`
	ResidualHistory []float64 `json:"residual_history"`
}

func (s *Store) Save(cfg *config.Config, report *krylov.Report) (string, error) {
	runID := fmt.Sprintf("%s_%d", cfg.Model, time.Now().UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:              runID,
		Model:           cfg.Model,
		Timestamp:       time.Now(),
		Integrator:      cfg.Integrator,
		Horizon:         cfg.Horizon,
		Dt:              cfg.Dt,
		EpsDu:           cfg.EpsDu,
		Seed:            cfg.Seed,
		Poincare:        cfg.Poincare,
		Status:          report.Result.Status.String(),
		Iterations:      report.Result.Iterations,
		BaseResidual:    report.BaseResidual,
		CFL:             report.CFL,
		ResidualHistory: report.Result.ResidualHistory,
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "eigenvalues.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	defer w.Flush()

	if err := w.Write([]string{"re", "im", "abs", "residual", "converged"}); err != nil {
		return "", err
	}
	for _, rz := range report.Result.Ritz {
		row := []string{
			strconv.FormatFloat(real(rz.Value), 'e', 17, 64),
			strconv.FormatFloat(imag(rz.Value), 'e', 17, 64),
			strconv.FormatFloat(cmplx.Abs(rz.Value), 'e', 17, 64),
			strconv.FormatFloat(rz.Residual, 'e', 17, 64),
			strconv.FormatBool(rz.Converged),
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}

	return runID, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *Store) LoadEigenvalues(runID string) ([]krylov.Ritz, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, "eigenvalues.csv"))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("storage: empty eigenvalue file for %s", runID)
	}

	ritz := make([]krylov.Ritz, 0, len(records)-1)
	for _, rec := range records[1:] {
		if len(rec) < 5 {
			return nil, fmt.Errorf("storage: malformed eigenvalue row in %s", runID)
		}
		re, err := strconv.ParseFloat(rec[0], 64)
		if err != nil {
			return nil, err
		}
		im, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			return nil, err
		}
		resid, err := strconv.ParseFloat(rec[3], 64)
		if err != nil {
			return nil, err
		}
		conv, err := strconv.ParseBool(rec[4])
		if err != nil {
			return nil, err
		}
		ritz = append(ritz, krylov.Ritz{Value: complex(re, im), Residual: resid, Converged: conv})
	}
	return ritz, nil
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		meta, err := s.Load(e.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}
