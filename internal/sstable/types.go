package sstable

import (
	"fmt"
	"strconv"
	"strings"
)

// FileExt is the extension carried by every SSTable file.
const FileExt = ".sst"

// FileName returns the zero-padded name for the table with sequence number
// seq, e.g. 00000003.sst. Lexicographic order of these names is creation order.
func FileName(seq uint64) string {
	return fmt.Sprintf("%08d%s", seq, FileExt)
}

// ParseSeq extracts the sequence number from a table file name.
func ParseSeq(name string) (uint64, bool) {
	stem, ok := strings.CutSuffix(name, FileExt)
	if !ok {
		return 0, false
	}
	seq, err := strconv.ParseUint(stem, 10, 64)
	if err != nil {
		return 0, false
	}
	return seq, true
}
