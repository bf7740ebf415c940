package utils

import "sync"

// AvgVal keeps a running mean, safe for concurrent use. The zero value
// reports 0 until the first Add.
type AvgVal struct {
	lock  sync.Mutex
	sum   float64
	count int
}

func (a *AvgVal) Add(v float64) {
	a.lock.Lock()
	a.sum += v
	a.count++
	a.lock.Unlock()
}

func (a *AvgVal) Val() float64 {
	a.lock.Lock()
	defer a.lock.Unlock()
	if a.count == 0 {
		return 0
	}
	return a.sum / float64(a.count)
}
