package storage

import (
	"encoding/json"
	"io"
	"math/cmplx"

	"github.com/san-kum/eigenflow/internal/krylov"
)

type exportRecord struct {
	Meta        *RunMetadata      `json:"meta"`
	Eigenvalues []exportEigenpair `json:"eigenvalues"`
}

type exportEigenpair struct {
	Re        float64 `json:"re"`
	Im        float64 `json:"im"`
	Abs       float64 `json:"abs"`
	Residual  float64 `json:"residual"`
	Converged bool    `json:"converged"`
}

// ExportJSON writes a run's metadata and spectrum as a single JSON
// document.
func ExportJSON(w io.Writer, meta *RunMetadata, ritz []krylov.Ritz) error {
	rec := exportRecord{Meta: meta, Eigenvalues: make([]exportEigenpair, len(ritz))}
	for i, rz := range ritz {
		rec.Eigenvalues[i] = exportEigenpair{
			Re:        real(rz.Value),
			Im:        imag(rz.Value),
			Abs:       cmplx.Abs(rz.Value),
			Residual:  rz.Residual,
			Converged: rz.Converged,
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rec)
}
