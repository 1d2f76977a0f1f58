package store

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
)

// CosineSimilarity computes (a·b)/(‖a‖·‖b‖) in float64. Returns 0 when
// either vector has zero norm. Vectors of unequal length score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// RankHits sorts hits by score descending, ties broken by ascending id, and
// truncates to k. Used by drivers that scan brute-force so ordering is
// identical across backends.
func RankHits(hits []Hit, k int) []Hit {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})

	if k >= 0 && len(hits) > k {
		hits = hits[:k]
	}

	return hits
}

// SerializeFloat32 converts a float32 slice to little-endian bytes, the
// on-disk BLOB form (dim*4 bytes).
func SerializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// DeserializeFloat32 converts a little-endian byte slice back to float32s.
func DeserializeFloat32(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding blob length %d: must be divisible by 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}
