package record

const (
	// LengthSize is the size of a key or value length prefix.
	LengthSize = 4
	// OffsetSize is the size of a data offset in an index record.
	OffsetSize = 8
	// FlagSize is the size of the tombstone flag trailing a data record.
	FlagSize = 1

	// DataOverhead is the framing around key and value in a data record:
	// key_len, value_len and the tombstone flag.
	DataOverhead = 2*LengthSize + FlagSize // 9 bytes
	// IndexOverhead is the framing around the key in an index record.
	IndexOverhead = LengthSize + OffsetSize // 12 bytes

	// FooterSize is the fixed size of the SSTable trailer.
	FooterSize = 32

	// Magic identifies the SSTable format: "SSTABLE1" in ASCII.
	Magic uint64 = 0x5353544142454c31
)

const (
	flagStored    byte = 0
	flagTombstone byte = 1
)
