// Package bindb implements the BinDB n-gram table store: fixed-width binary
// files of sorted n-gram records, addressed by rank, with binary-search
// primitives over prefix ranges.
package bindb

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("bindb")

// ErrMalformed is returned when a table file's size is not a multiple of
// its record size.
var ErrMalformed = fmt.Errorf("bindb: malformed table file")

// Line is one n-gram record: the n token IDs and their 64-bit count.
type Line struct {
	IDs   []int32
	Count int64
}

// RecordSize returns the on-disk size in bytes of an order-n record: n
// little-endian int32 IDs followed by one little-endian int64 count.
func RecordSize(n int) int {
	return 4*n + 8
}

// Table is a single order-n BinDB file behind a read-only file handle.
// Records are read with positioned reads (ReadAt), so no seek pointer is
// moved.
type Table struct {
	n    int
	f    *os.File
	size int64 // number of records
}

func openTable(path string, n int) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("bindb: opening order-%d table: %w", n, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("bindb: stat order-%d table: %w", n, err)
	}
	recSize := int64(RecordSize(n))
	if info.Size()%recSize != 0 {
		f.Close()
		return nil, fmt.Errorf("%w: order-%d file size %d not a multiple of record size %d",
			ErrMalformed, n, info.Size(), recSize)
	}
	return &Table{n: n, f: f, size: info.Size() / recSize}, nil
}

// Close releases the underlying file handle.
func (t *Table) Close() error {
	return t.f.Close()
}

// Size returns the number of records (ranks run 1..Size()).
func (t *Table) Size() int64 {
	return t.size
}

// Read returns the record at 1-based rank i via a positioned read at byte
// offset (i-1)*RecordSize(n).
func (t *Table) Read(i int64) (Line, error) {
	if i < 1 || i > t.size {
		return Line{}, fmt.Errorf("bindb: rank %d out of range [1,%d]", i, t.size)
	}
	recSize := int64(RecordSize(t.n))
	buf := make([]byte, recSize)
	if _, err := t.f.ReadAt(buf, (i-1)*recSize); err != nil && err != io.EOF {
		return Line{}, fmt.Errorf("bindb: reading rank %d: %w", i, err)
	}
	return unpackLine(buf, t.n), nil
}

func unpackLine(buf []byte, n int) Line {
	ids := make([]int32, n)
	for i := 0; i < n; i++ {
		ids[i] = int32(binary.LittleEndian.Uint32(buf[4*i : 4*i+4]))
	}
	count := int64(binary.LittleEndian.Uint64(buf[4*n : 4*n+8]))
	return Line{IDs: ids, Count: count}
}

// Iterate performs a sequential scan of count records starting at rank
// start. If cached is non-nil (the table's full contents, as returned by
// Store.CachedScan), this reads from that in-memory copy instead of issuing
// further I/O.
func (t *Table) Iterate(start int64, count int64, cached []Line) ([]Line, error) {
	if cached != nil {
		end := start - 1 + count
		if end > int64(len(cached)) {
			end = int64(len(cached))
		}
		if start-1 >= int64(len(cached)) {
			return nil, nil
		}
		return cached[start-1 : end], nil
	}

	recSize := int64(RecordSize(t.n))
	if start < 1 {
		start = 1
	}
	end := start - 1 + count
	if end > t.size {
		end = t.size
	}
	if end < start {
		return nil, nil
	}
	n := end - start + 1
	buf := make([]byte, n*recSize)
	if _, err := t.f.ReadAt(buf, (start-1)*recSize); err != nil && err != io.EOF {
		return nil, fmt.Errorf("bindb: scanning from rank %d: %w", start, err)
	}
	lines := make([]Line, n)
	for i := int64(0); i < n; i++ {
		lines[i] = unpackLine(buf[i*recSize:(i+1)*recSize], t.n)
	}
	return lines, nil
}

// ScanAll reads the entire table in one pass, used to populate a Store's
// cached-scan of the unigram table.
func (t *Table) ScanAll() ([]Line, error) {
	return t.Iterate(1, t.size, nil)
}

func idsLess(a, b []int32) bool {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

func idsEqual(a, b []int32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Mode picks whether BinarySearch finds the lowest or highest matching rank.
type Mode string

const (
	First Mode = "first"
	Last  Mode = "last"
)

// BinarySearch finds the lowest (First) or highest (Last) rank whose
// leading len(prefix) IDs equal prefix, or (0, false) if none match. skew in
// (0,1) biases the probe midpoint away from 0.5; values near 0.1 help
// locate the upper end of a run once First has already bracketed it.
func (t *Table) BinarySearch(prefix []int32, mode Mode, skew float64) (int64, bool, error) {
	if len(prefix) > t.n {
		return 0, false, fmt.Errorf("bindb: prefix length %d exceeds table order %d", len(prefix), t.n)
	}
	if skew <= 0 || skew >= 1 {
		skew = 0.5
	}

	getPrefix := func(i int64) ([]int32, error) {
		line, err := t.Read(i)
		if err != nil {
			return nil, err
		}
		return line.IDs[:len(prefix)], nil
	}

	imin, imax := int64(1), t.size
	if imax < imin {
		return 0, false, nil
	}

	for imin < imax {
		switch mode {
		case First:
			imid := imin + int64(float64(imax-imin)*skew)
			mgram, err := getPrefix(imid)
			if err != nil {
				return 0, false, err
			}
			if idsLess(mgram, prefix) {
				imin = imid + 1
			} else {
				imax = imid
			}
		case Last:
			span := imax - imin
			imid := imin + int64(float64(span)*skew+0.9999999)
			if imid > imax {
				imid = imax
			}
			mgram, err := getPrefix(imid)
			if err != nil {
				return 0, false, err
			}
			if idsLess(prefix, mgram) {
				imax = imid - 1
			} else {
				imin = imid
			}
		default:
			return 0, false, fmt.Errorf("bindb: unknown search mode %q", mode)
		}
	}

	mgram, err := getPrefix(imin)
	if err != nil {
		return 0, false, err
	}
	if idsEqual(mgram, prefix) {
		return imin, true, nil
	}
	return 0, false, nil
}

// RangeSearch returns the [lo, hi] rank range of all records sharing
// prefix, or (0, 0, false) if none match. The empty prefix matches every
// record: (1, Size(), true).
func (t *Table) RangeSearch(prefix []int32) (lo, hi int64, found bool, err error) {
	if len(prefix) == 0 {
		if t.size == 0 {
			return 0, 0, false, nil
		}
		return 1, t.size, true, nil
	}

	lo, foundLo, err := t.BinarySearch(prefix, First, 0.5)
	if err != nil {
		return 0, 0, false, err
	}
	if !foundLo {
		return 0, 0, false, nil
	}
	hi, foundHi, err := t.BinarySearch(prefix, Last, 0.1)
	if err != nil {
		return 0, 0, false, err
	}
	if !foundHi {
		// The run has to contain at least lo.
		hi = lo
	}
	return lo, hi, true, nil
}
