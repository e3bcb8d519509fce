package sstable

import (
	"bytes"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/kowanietz/lsm-tree-kv/internal/diskmanager"
	"github.com/kowanietz/lsm-tree-kv/internal/diskmanager/mockdm"
	"github.com/kowanietz/lsm-tree-kv/internal/record"
)

func writeTable(t testing.TB, dm diskmanager.DiskManager, path string, keys []string, values []record.Value) {
	t.Helper()

	writer, err := NewWriter(dm, path)
	if err != nil {
		t.Fatalf("Failed to open writer: %v", err)
	}
	for i, key := range keys {
		if err := writer.Add([]byte(key), values[i]); err != nil {
			t.Fatalf("Failed to write entry %s: %v", key, err)
		}
	}
	if err := writer.Finish(); err != nil {
		t.Fatalf("Failed to finish writing: %v", err)
	}
}

func TestSSTableWriteRead(t *testing.T) {
	dm := mockdm.NewMockDiskManager()

	testData := []struct {
		key   string
		value string
	}{
		{"apple", "red"},
		{"banana", "yellow"},
		{"cherry", "dark red"},
		{"date", "brown"},
	}

	// Create the SSTable
	sstPath := "/db/00000001.sst"
	writer, err := NewWriter(dm, sstPath)
	if err != nil {
		t.Fatalf("Failed to open writer: %v", err)
	}

	// Write entries
	for _, data := range testData {
		err = writer.Add([]byte(data.key), record.Stored([]byte(data.value)))
		if err != nil {
			t.Fatalf("Failed to write entry %s: %v", data.key, err)
		}
	}
	if writer.NumEntries() != len(testData) {
		t.Errorf("NumEntries = %d, want %d", writer.NumEntries(), len(testData))
	}

	// Finish writing
	if err := writer.Finish(); err != nil {
		t.Fatalf("Failed to finish writing: %v", err)
	}

	// Read the SSTable
	reader, err := OpenReader(dm, sstPath)
	if err != nil {
		t.Fatalf("Failed to open reader: %v", err)
	}
	defer reader.Close()

	if reader.NumEntries() != len(testData) {
		t.Errorf("NumEntries = %d, want %d", reader.NumEntries(), len(testData))
	}
	if reader.Path() != sstPath {
		t.Errorf("Path = %s, want %s", reader.Path(), sstPath)
	}

	// Test lookup for each key
	for _, data := range testData {
		value, ok, err := reader.Get([]byte(data.key))
		if err != nil || !ok {
			t.Errorf("Failed to lookup key %s: ok=%v err=%v", data.key, ok, err)
			continue
		}

		if !bytes.Equal(value.Bytes(), []byte(data.value)) {
			t.Errorf("Value mismatch for %s: got %s, want %s",
				data.key, string(value.Bytes()), data.value)
		}
	}

	// Test lookup for non-existent key
	_, ok, err := reader.Get([]byte("nonexistent"))
	if err != nil || ok {
		t.Errorf("Expected no entry for non-existent key, got ok=%v err=%v", ok, err)
	}
}

func TestSSTableTombstones(t *testing.T) {
	dm := mockdm.NewMockDiskManager()
	sstPath := "/db/tombstones.sst"

	writeTable(t, dm, sstPath,
		[]string{"a", "b", "c"},
		[]record.Value{record.Stored([]byte("1")), record.Tombstone(), record.Stored([]byte("3"))})

	reader, err := OpenReader(dm, sstPath)
	if err != nil {
		t.Fatalf("Failed to open reader: %v", err)
	}
	defer reader.Close()

	v, ok, err := reader.Get([]byte("b"))
	if err != nil || !ok {
		t.Fatalf("Expected tombstone entry for b, got ok=%v err=%v", ok, err)
	}
	if !v.IsTombstone() {
		t.Errorf("Expected b to be a tombstone, got %q", v.Bytes())
	}

	v, ok, err = reader.Get([]byte("c"))
	if err != nil || !ok || v.IsTombstone() || string(v.Bytes()) != "3" {
		t.Errorf("Unexpected entry for c: %v %v %v", v, ok, err)
	}
}

func TestSSTableEmptyValue(t *testing.T) {
	dm := mockdm.NewMockDiskManager()
	sstPath := "/db/empty_value.sst"

	// Create SSTable with empty values
	writeTable(t, dm, sstPath, []string{"key1"}, []record.Value{record.Stored([]byte{})})

	reader, err := OpenReader(dm, sstPath)
	if err != nil {
		t.Fatalf("Failed to open reader: %v", err)
	}
	defer reader.Close()

	value, ok, err := reader.Get([]byte("key1"))
	if err != nil || !ok {
		t.Fatalf("Failed to lookup key with empty value: ok=%v err=%v", ok, err)
	}
	if value.IsTombstone() {
		t.Error("Empty value read back as tombstone")
	}
	if len(value.Bytes()) != 0 {
		t.Errorf("Expected empty value, got %v", value.Bytes())
	}
}

func TestSSTableNoEntries(t *testing.T) {
	dm := mockdm.NewMockDiskManager()
	sstPath := "/db/empty.sst"

	writeTable(t, dm, sstPath, nil, nil)

	if size := len(dm.File(sstPath).Bytes()); size != record.FooterSize {
		t.Fatalf("Empty table is %d bytes, want only the %d byte footer", size, record.FooterSize)
	}

	reader, err := OpenReader(dm, sstPath)
	if err != nil {
		t.Fatalf("Failed to open empty table: %v", err)
	}
	defer reader.Close()

	if reader.NumEntries() != 0 {
		t.Errorf("NumEntries = %d, want 0", reader.NumEntries())
	}
	if _, ok, err := reader.Get([]byte("anything")); ok || err != nil {
		t.Errorf("Expected no entry, got ok=%v err=%v", ok, err)
	}
}

func TestSSTTableLargeKeyValues(t *testing.T) {
	dm := mockdm.NewMockDiskManager()
	sstPath := "/db/large_data.sst"

	// Create a 100KB value
	largeValue := make([]byte, 100*1024)
	for i := range largeValue {
		largeValue[i] = byte(i % 256)
	}

	// Create a 10KB key that sorts before "small-key"
	largeKey := make([]byte, 10*1024)
	for i := range largeKey {
		largeKey[i] = byte('a' + (i*7)%26)
	}
	largeKey[0] = 'a'

	writeTable(t, dm, sstPath,
		[]string{string(largeKey), "small-key"},
		[]record.Value{record.Stored(largeValue), record.Stored([]byte("small-value"))})

	reader, err := OpenReader(dm, sstPath)
	if err != nil {
		t.Fatalf("Failed to open reader: %v", err)
	}
	defer reader.Close()

	// Check the large key/value
	value, ok, err := reader.Get(largeKey)
	if err != nil || !ok {
		t.Fatalf("Failed to lookup large key: ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(value.Bytes(), largeValue) {
		t.Errorf("Large value mismatch: lengths got %d, want %d",
			len(value.Bytes()), len(largeValue))
	}

	// Check we can still find the small key
	smallValue, ok, err := reader.Get([]byte("small-key"))
	if err != nil || !ok {
		t.Fatalf("Failed to lookup small key after large key: ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(smallValue.Bytes(), []byte("small-value")) {
		t.Errorf("Small value mismatch after large key")
	}
}

func TestNonExistentKeyLookup(t *testing.T) {
	dm := mockdm.NewMockDiskManager()
	sstPath := "/db/test_missing.sst"

	writeTable(t, dm, sstPath,
		[]string{"a", "c", "e"},
		[]record.Value{record.Stored([]byte("value-a")), record.Stored([]byte("value-c")), record.Stored([]byte("value-e"))})

	reader, err := OpenReader(dm, sstPath)
	if err != nil {
		t.Fatalf("Failed to open reader: %v", err)
	}
	defer reader.Close()

	// Test lookup for keys that don't exist but are within range,
	// and keys that are completely out of range
	for _, key := range []string{"b", "d", "f", "0", "z", ""} {
		_, ok, err := reader.Get([]byte(key))
		if err != nil || ok {
			t.Errorf("Expected no entry for missing key %q, got ok=%v err=%v", key, ok, err)
		}
	}
}

func TestMultipleOpenClose(t *testing.T) {
	dir := t.TempDir()
	dm := diskmanager.NewDiskManager()
	sstPath := filepath.Join(dir, FileName(1))

	writeTable(t, dm, sstPath,
		[]string{"key1", "key2"},
		[]record.Value{record.Stored([]byte("value1")), record.Stored([]byte("value2"))})

	// Open and close multiple times
	for i := 0; i < 5; i++ {
		reader, err := OpenReader(dm, sstPath)
		if err != nil {
			t.Fatalf("Failed to open reader on iteration %d: %v", i, err)
		}

		v, ok, err := reader.Get([]byte("key1"))
		if err != nil || !ok || !bytes.Equal(v.Bytes(), []byte("value1")) {
			t.Errorf("Failed lookup on iteration %d", i)
		}

		if err := reader.Close(); err != nil {
			t.Errorf("Failed to close reader on iteration %d: %v", i, err)
		}
	}
}

func TestFileName(t *testing.T) {
	if got := FileName(3); got != "00000003.sst" {
		t.Errorf("FileName(3) = %s", got)
	}

	seq, ok := ParseSeq("00000042.sst")
	if !ok || seq != 42 {
		t.Errorf("ParseSeq = %d, %v", seq, ok)
	}
	for _, name := range []string{"00000042.txt", "abc.sst", ".sst"} {
		if _, ok := ParseSeq(name); ok {
			t.Errorf("ParseSeq(%q) should fail", name)
		}
	}
}

func BenchmarkSSTableWriting(b *testing.B) {
	dm := mockdm.NewMockDiskManager()

	keys := make([][]byte, 1000)
	values := make([][]byte, 1000)
	for j := range keys {
		keys[j] = []byte(fmt.Sprintf("key-%04d", j))
		values[j] = []byte(fmt.Sprintf("value-%d", j))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		writer, err := NewWriter(dm, "/bench/bench_write.sst")
		if err != nil {
			b.Fatalf("Failed to open writer: %v", err)
		}

		// Write 1000 entries
		for j := range keys {
			if err := writer.Add(keys[j], record.Stored(values[j])); err != nil {
				b.Fatalf("Failed to write entry: %v", err)
			}
		}

		if err := writer.Finish(); err != nil {
			b.Fatalf("Failed to finish: %v", err)
		}
	}
}

func BenchmarkSSTableReading(b *testing.B) {
	dm := mockdm.NewMockDiskManager()
	sstPath := "/bench/bench_read.sst"

	keys := make([]string, 1000)
	values := make([]record.Value, 1000)
	for j := range keys {
		keys[j] = fmt.Sprintf("key-%04d", j)
		values[j] = record.Stored([]byte(fmt.Sprintf("value-%d", j)))
	}
	writeTable(b, dm, sstPath, keys, values)

	// Now benchmark lookups
	reader, err := OpenReader(dm, sstPath)
	if err != nil {
		b.Fatalf("Failed to open reader: %v", err)
	}
	defer reader.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		keyNum := i % 1000
		value, ok, err := reader.Get([]byte(keys[keyNum]))
		if err != nil || !ok {
			b.Fatalf("Failed to lookup key: ok=%v err=%v", ok, err)
		}

		if !bytes.Equal(value.Bytes(), values[keyNum].Bytes()) {
			b.Fatalf("Value mismatch: got %s, want %s",
				string(value.Bytes()), string(values[keyNum].Bytes()))
		}
	}
}
