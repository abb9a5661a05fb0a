package dataset

import (
	"math"
	"math/rand/v2"
	"slices"
)

// Shuffle returns a copy of records in a deterministic order for seed.
func Shuffle(records []Record, seed int64) []Record {
	out := slices.Clone(records)
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// Sample returns the first n records, or all of them when n <= 0 or n exceeds
// the record count.
func Sample(records []Record, n int) []Record {
	if n <= 0 || n >= len(records) {
		return records
	}
	return records[:n]
}

// StratifiedSplit divides records into train and test sets so every tag keeps
// roughly the same proportion in both. Each tag contributes
// ceil(testSize*count) records to test but always keeps at least one in train.
// Both outputs are shuffled with seed.
func StratifiedSplit(records []Record, testSize float64, seed int64) ([]Record, []Record) {
	groups := GroupByTag(records)
	var train, test []Record
	for _, tag := range Tags(records) {
		group := Shuffle(groups[tag], seed)
		nTest := int(math.Ceil(testSize * float64(len(group))))
		if nTest >= len(group) {
			nTest = len(group) - 1
		}
		if nTest < 0 {
			nTest = 0
		}
		test = append(test, group[:nTest]...)
		train = append(train, group[nTest:]...)
	}
	return Shuffle(train, seed), Shuffle(test, seed)
}
