// Package record defines the Value type shared by the memtable and SSTables
// and the byte layouts used to persist them.
package record

// Value is either a stored payload or a tombstone marking a deleted key.
// A tombstone never carries a payload, so an empty stored value and a
// deletion are always distinguishable.
type Value struct {
	payload   []byte
	tombstone bool
}

// Stored returns a Value holding b. A nil b is stored as an empty payload.
func Stored(b []byte) Value {
	if b == nil {
		b = []byte{}
	}
	return Value{payload: b}
}

// Tombstone returns the deletion marker.
func Tombstone() Value {
	return Value{tombstone: true}
}

// IsTombstone reports whether v marks a deletion.
func (v Value) IsTombstone() bool { return v.tombstone }

// Bytes returns the stored payload, or nil for a tombstone.
func (v Value) Bytes() []byte { return v.payload }

// Len returns the payload length. Tombstones have length 0.
func (v Value) Len() int { return len(v.payload) }

// IndexEntry maps a key to the offset of its record in the data region.
type IndexEntry struct {
	Key    []byte
	Offset uint64
}
