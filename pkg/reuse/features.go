package reuse

import "github.com/mkarlsson/edge-offload-engine/pkg/models"

// FeatureDim is the length of every task feature vector. The LSH
// projection matrix is sized against it and never changes.
const FeatureDim = 10

// Features maps a task onto the fixed-length vector the cache indexes
// by. Magnitudes are normalized into comparable ranges; the trailing
// slots are constant padding keeping vectors FeatureDim wide.
func Features(t *models.Task) []float64 {
	f := make([]float64, FeatureDim)
	f[0] = t.ComputingCycles / 1e9
	f[1] = t.InputDataSize / 1e6
	f[2] = t.OutputDataSize / 1e6
	f[3] = float64(len(t.Dependencies)) / 10.0
	f[4] = float64(t.ID) / 1000.0
	for i := 5; i < FeatureDim; i++ {
		f[i] = 0.5
	}
	return f
}
