package hnsw

// NumericID maps a chunk id to a deterministic numeric id for the ANN
// index using the classic hash*31 + byte scheme, overflow-wrapped and
// made non-negative. Collisions are accepted as an approximation risk:
// colliding points are filtered out at result-mapping time rather than
// surfaced as errors.
func NumericID(chunkID string) uint64 {
	var h int64
	for i := 0; i < len(chunkID); i++ {
		h = h*31 + int64(chunkID[i])
	}
	if h < 0 {
		h = -h
	}
	if h < 0 { // math.MinInt64 negates to itself
		h = 0
	}
	return uint64(h)
}
