package engine

// Lookup sources reported by the gets metric.
const (
	sourceMemtable = "memtable"
	sourceSSTable  = "sstable"
	sourceMiss     = "miss"
)

// firstSeq is the sequence number given to the first table of an empty directory.
const firstSeq uint64 = 1
