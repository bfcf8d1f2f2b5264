package service

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// CodeFilter is a concurrency-safe bloom filter over existing short codes.
// It answers "definitely absent" cheaply, so redirects for unknown codes skip
// the database and generation collision checks stay in-process on the fast
// path. The store's uniqueness constraint remains authoritative.
type CodeFilter struct {
	mu     sync.RWMutex
	filter *bloom.BloomFilter
}

// NewCodeFilter sizes the filter for the expected number of codes at the
// given false-positive rate.
func NewCodeFilter(expected uint, fpRate float64) *CodeFilter {
	if expected == 0 {
		expected = 1 << 20
	}
	if fpRate <= 0 || fpRate >= 1 {
		fpRate = 0.001
	}
	return &CodeFilter{filter: bloom.NewWithEstimates(expected, fpRate)}
}

// Seed loads existing codes, typically once at startup.
func (f *CodeFilter) Seed(codes []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, code := range codes {
		f.filter.AddString(code)
	}
}

// Add records a newly created code.
func (f *CodeFilter) Add(code string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filter.AddString(code)
}

// MayExist reports whether the code could be present. False means certainly
// absent.
func (f *CodeFilter) MayExist(code string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.filter.TestString(code)
}
