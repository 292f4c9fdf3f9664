package jmx

// MemoryUsage mirrors java.lang.management.MemoryUsage. Max is -1 when undefined.
type MemoryUsage struct {
	Init      int64
	Used      int64
	Committed int64
	Max       int64
}

type ThresholdInfo struct {
	Supported bool
	Threshold int64
	Exceeded  bool
	Count     int64
}

type MemoryPool struct {
	Name      string
	Type      string // HEAP or NON_HEAP
	Usage     MemoryUsage
	PeakUsage MemoryUsage
	Threshold ThresholdInfo
	Valid     bool
	Managers  []string
}
