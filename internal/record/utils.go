package record

import (
	"encoding/binary"
	"io"

	"github.com/kowanietz/lsm-tree-kv/internal/dberr"
)

// DataSize returns the encoded size of a data record.
func DataSize(key []byte, v Value) int {
	return DataOverhead + len(key) + v.Len()
}

// AppendData appends a data record to dst.
// Format: [4 bytes KeyLen][Key][4 bytes ValueLen][Value][1 byte Tombstone]
// Tombstones are written with ValueLen 0 and no value bytes.
func AppendData(dst []byte, key []byte, v Value) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(key)))
	dst = append(dst, key...)
	if v.IsTombstone() {
		dst = binary.LittleEndian.AppendUint32(dst, 0)
		return append(dst, flagTombstone)
	}
	dst = binary.LittleEndian.AppendUint32(dst, uint32(v.Len()))
	dst = append(dst, v.Bytes()...)
	return append(dst, flagStored)
}

// ReadDataAt reads the data record starting at off. limit is the end of the
// data region; framing that runs past it is reported as corruption, as is a
// short read. Any other read failure is an I/O error.
func ReadDataAt(r io.ReaderAt, off, limit int64) ([]byte, Value, error) {
	var lenBuf [LengthSize]byte
	if err := readFullAt(r, lenBuf[:], off, limit); err != nil {
		return nil, Value{}, err
	}
	keyLen := int64(binary.LittleEndian.Uint32(lenBuf[:]))
	off += LengthSize
	if err := checkBounds(off, keyLen, limit); err != nil {
		return nil, Value{}, err
	}

	key := make([]byte, keyLen)
	if err := readFullAt(r, key, off, limit); err != nil {
		return nil, Value{}, err
	}
	off += keyLen

	if err := readFullAt(r, lenBuf[:], off, limit); err != nil {
		return nil, Value{}, err
	}
	valLen := int64(binary.LittleEndian.Uint32(lenBuf[:]))
	off += LengthSize
	if err := checkBounds(off, valLen+FlagSize, limit); err != nil {
		return nil, Value{}, err
	}

	// value and flag share one read
	rest := make([]byte, valLen+FlagSize)
	if err := readFullAt(r, rest, off, limit); err != nil {
		return nil, Value{}, err
	}

	switch rest[valLen] {
	case flagStored:
		return key, Stored(rest[:valLen:valLen]), nil
	case flagTombstone:
		return key, Tombstone(), nil
	default:
		return nil, Value{}, dberr.Corruption("invalid tombstone flag %d at offset %d", rest[valLen], off+valLen)
	}
}

// AppendIndex appends an index record to dst.
// Format: [4 bytes KeyLen][Key][8 bytes Offset]
func AppendIndex(dst []byte, key []byte, offset uint64) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(key)))
	dst = append(dst, key...)
	return binary.LittleEndian.AppendUint64(dst, offset)
}

// DecodeIndex parses a whole index region. The returned keys alias buf.
func DecodeIndex(buf []byte) ([]IndexEntry, error) {
	var entries []IndexEntry
	pos := 0
	for pos < len(buf) {
		if len(buf)-pos < LengthSize {
			return nil, dberr.Corruption("truncated index key length at %d", pos)
		}
		keyLen := int(binary.LittleEndian.Uint32(buf[pos:]))
		pos += LengthSize

		if len(buf)-pos < keyLen+OffsetSize {
			return nil, dberr.Corruption("truncated index entry at %d", pos-LengthSize)
		}
		key := buf[pos : pos+keyLen : pos+keyLen]
		pos += keyLen

		offset := binary.LittleEndian.Uint64(buf[pos:])
		pos += OffsetSize

		entries = append(entries, IndexEntry{Key: key, Offset: offset})
	}
	return entries, nil
}

// Footer is the fixed-size trailer of an SSTable.
type Footer struct {
	IndexOffset uint64
	IndexLen    uint32
	NumEntries  uint32
}

// Encode returns the 32-byte footer including the magic and the zeroed
// reserved word.
// Format: [8 IndexOffset][4 IndexLen][4 NumEntries][8 Magic][8 Reserved]
func (f Footer) Encode() []byte {
	buf := make([]byte, 0, FooterSize)
	buf = binary.LittleEndian.AppendUint64(buf, f.IndexOffset)
	buf = binary.LittleEndian.AppendUint32(buf, f.IndexLen)
	buf = binary.LittleEndian.AppendUint32(buf, f.NumEntries)
	buf = binary.LittleEndian.AppendUint64(buf, Magic)
	return binary.LittleEndian.AppendUint64(buf, 0)
}

// DecodeFooter parses a footer and verifies its magic.
func DecodeFooter(buf []byte) (Footer, error) {
	if len(buf) != FooterSize {
		return Footer{}, dberr.Corruption("footer is %d bytes, want %d", len(buf), FooterSize)
	}
	if magic := binary.LittleEndian.Uint64(buf[16:24]); magic != Magic {
		return Footer{}, dberr.Corruption("invalid magic number: expected 0x%x, got 0x%x", Magic, magic)
	}
	return Footer{
		IndexOffset: binary.LittleEndian.Uint64(buf[0:8]),
		IndexLen:    binary.LittleEndian.Uint32(buf[8:12]),
		NumEntries:  binary.LittleEndian.Uint32(buf[12:16]),
	}, nil
}

func checkBounds(off, n, limit int64) error {
	if off+n > limit {
		return dberr.Corruption("record at offset %d overruns data region ending at %d", off, limit)
	}
	return nil
}

func readFullAt(r io.ReaderAt, p []byte, off, limit int64) error {
	if err := checkBounds(off, int64(len(p)), limit); err != nil {
		return err
	}
	n, err := r.ReadAt(p, off)
	if n == len(p) {
		return nil
	}
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return dberr.Corruption("short read at offset %d: got %d of %d bytes", off, n, len(p))
	}
	if err == nil {
		err = io.ErrNoProgress
	}
	return dberr.IO(err, "read record")
}
