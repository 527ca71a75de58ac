package bindb

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// writeTable writes one order-n table file containing rows, each a
// sorted []int32 id tuple of length n plus a count.
func writeTable(t *testing.T, dir string, n int, rows []Line) string {
	t.Helper()
	path := filepath.Join(dir, "table")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating table file: %v", err)
	}
	defer f.Close()

	for _, row := range rows {
		if len(row.IDs) != n {
			t.Fatalf("row %v has %d ids, table is order %d", row, len(row.IDs), n)
		}
		buf := make([]byte, RecordSize(n))
		for i, id := range row.IDs {
			binary.LittleEndian.PutUint32(buf[4*i:4*i+4], uint32(id))
		}
		binary.LittleEndian.PutUint64(buf[4*n:4*n+8], uint64(row.Count))
		if _, err := f.Write(buf); err != nil {
			t.Fatalf("writing record: %v", err)
		}
	}
	return path
}

func TestOpenRejectsMalformedSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad")
	if err := os.WriteFile(path, []byte{1, 2, 3}, 0600); err != nil {
		t.Fatalf("writing bad file: %v", err)
	}
	if _, err := openTable(path, 2); err == nil {
		t.Error("expected error opening a file whose size is not a multiple of the record size")
	}
}

func TestReadAndIterate(t *testing.T) {
	dir := t.TempDir()
	rows := []Line{
		{IDs: []int32{1, 1}, Count: 10},
		{IDs: []int32{1, 2}, Count: 5},
		{IDs: []int32{2, 1}, Count: 3},
	}
	path := writeTable(t, dir, 2, rows)
	table, err := openTable(path, 2)
	if err != nil {
		t.Fatalf("openTable: %v", err)
	}
	defer table.Close()

	if table.Size() != 3 {
		t.Fatalf("Size() = %d, want 3", table.Size())
	}

	line, err := table.Read(2)
	if err != nil {
		t.Fatalf("Read(2): %v", err)
	}
	if line.Count != 5 || line.IDs[1] != 2 {
		t.Errorf("Read(2) = %+v, want {[1 2] 5}", line)
	}

	scanned, err := table.Iterate(1, 3, nil)
	if err != nil {
		t.Fatalf("Iterate: %v", err)
	}
	if len(scanned) != 3 {
		t.Fatalf("Iterate returned %d rows, want 3", len(scanned))
	}
}

func TestBinarySearchAndRangeSearch(t *testing.T) {
	dir := t.TempDir()
	rows := []Line{
		{IDs: []int32{1, 1}, Count: 1},
		{IDs: []int32{1, 2}, Count: 2},
		{IDs: []int32{1, 3}, Count: 3},
		{IDs: []int32{2, 1}, Count: 4},
	}
	path := writeTable(t, dir, 2, rows)
	table, err := openTable(path, 2)
	if err != nil {
		t.Fatalf("openTable: %v", err)
	}
	defer table.Close()

	lo, hi, found, err := table.RangeSearch([]int32{1})
	if err != nil {
		t.Fatalf("RangeSearch: %v", err)
	}
	if !found || lo != 1 || hi != 3 {
		t.Errorf("RangeSearch([1]) = (%d, %d, %v), want (1, 3, true)", lo, hi, found)
	}

	_, _, found, err = table.RangeSearch([]int32{9})
	if err != nil {
		t.Fatalf("RangeSearch: %v", err)
	}
	if found {
		t.Error("RangeSearch([9]) should not find a match")
	}

	rank, found, err := table.BinarySearch([]int32{1, 2}, First, 0.5)
	if err != nil {
		t.Fatalf("BinarySearch: %v", err)
	}
	if !found || rank != 2 {
		t.Errorf("BinarySearch([1,2], First) = (%d, %v), want (2, true)", rank, found)
	}
}

func TestEmptyPrefixRangeSearchCoversWholeTable(t *testing.T) {
	dir := t.TempDir()
	rows := []Line{
		{IDs: []int32{1}, Count: 1},
		{IDs: []int32{2}, Count: 2},
	}
	path := writeTable(t, dir, 1, rows)
	table, err := openTable(path, 1)
	if err != nil {
		t.Fatalf("openTable: %v", err)
	}
	defer table.Close()

	lo, hi, found, err := table.RangeSearch(nil)
	if err != nil {
		t.Fatalf("RangeSearch: %v", err)
	}
	if !found || lo != 1 || hi != 2 {
		t.Errorf("RangeSearch(nil) = (%d, %d, %v), want (1, 2, true)", lo, hi, found)
	}
}
