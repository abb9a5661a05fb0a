package logging

import "strings"

// ProgressSampler suppresses per-record progress logs, emitting only when the
// completion percentage crosses a bucket boundary or the run label changes.
type ProgressSampler struct {
	bucketSize float64
	lastRun    string
	lastBucket int
}

// NewProgressSampler constructs a sampler with the given bucket width in
// percent (default 10%).
func NewProgressSampler(bucketSize float64) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 10
	}
	return &ProgressSampler{bucketSize: bucketSize, lastBucket: -1}
}

// ShouldLog reports whether progress done/total for run should be logged.
// A nil sampler logs everything.
func (s *ProgressSampler) ShouldLog(done, total int, run string) bool {
	if s == nil {
		return true
	}
	run = strings.TrimSpace(run)
	emit := false
	if run != s.lastRun {
		s.lastRun = run
		s.lastBucket = -1
		emit = true
	}
	if total <= 0 {
		return emit
	}
	percent := float64(done) * 100 / float64(total)
	bucket := int(percent / s.bucketSize)
	if done >= total {
		bucket = int(100 / s.bucketSize)
	}
	if bucket > s.lastBucket {
		s.lastBucket = bucket
		emit = true
	}
	return emit
}

// Reset clears the sampler state.
func (s *ProgressSampler) Reset() {
	if s == nil {
		return
	}
	s.lastRun = ""
	s.lastBucket = -1
}
