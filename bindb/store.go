package bindb

import (
	"fmt"
	"path/filepath"

	gclru "github.com/golang/groupcache/lru"
)

// Store opens one Table per order, 1..NMax, and holds the unigram table's
// cached full scan. The cache is keyed by table order but scoped to this
// Store instance, never a package-level map, so two engines opened against
// different BinDB directories never share a cache entry.
type Store struct {
	tables map[int]*Table
	nMax   int
	scan   *gclru.Cache // order -> []Line, populated lazily
}

// Open opens tables "1gram".."{nMax}gram" under dir.
func Open(dir string, nMax int) (*Store, error) {
	tables := make(map[int]*Table, nMax)
	for n := 1; n <= nMax; n++ {
		path := filepath.Join(dir, fmt.Sprintf("%dgram", n))
		t, err := openTable(path, n)
		if err != nil {
			for _, opened := range tables {
				opened.Close()
			}
			return nil, err
		}
		tables[n] = t
	}
	log.Debugf("opened bindb store at %s, orders 1..%d", dir, nMax)
	return &Store{tables: tables, nMax: nMax, scan: gclru.New(4)}, nil
}

// Close releases every table's file handle, guaranteed on all exit paths.
func (s *Store) Close() error {
	var firstErr error
	for _, t := range s.tables {
		if err := t.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Table returns the order-n table, or an error if n is out of range.
func (s *Store) Table(n int) (*Table, error) {
	t, ok := s.tables[n]
	if !ok {
		return nil, fmt.Errorf("bindb: no table of order %d (max %d)", n, s.nMax)
	}
	return t, nil
}

// CachedScan returns the full contents of the order-n table, populating (and
// thereafter reusing) an in-memory cache. Full rescans are frequent for
// n=1, which is the case the cache is built for, but any order can use it.
func (s *Store) CachedScan(n int) ([]Line, error) {
	if v, ok := s.scan.Get(n); ok {
		return v.([]Line), nil
	}
	t, err := s.Table(n)
	if err != nil {
		return nil, err
	}
	lines, err := t.ScanAll()
	if err != nil {
		return nil, err
	}
	s.scan.Add(n, lines)
	log.Debugf("cached full scan of order-%d table (%d records)", n, len(lines))
	return lines, nil
}

// Read reads rank i of the order-n table.
func (s *Store) Read(n int, i int64) (Line, error) {
	t, err := s.Table(n)
	if err != nil {
		return Line{}, err
	}
	return t.Read(i)
}

// Iterate scans count records of the order-n table starting at rank start,
// optionally served from the cached full scan.
func (s *Store) Iterate(n int, start, count int64, cached bool) ([]Line, error) {
	t, err := s.Table(n)
	if err != nil {
		return nil, err
	}
	var cache []Line
	if cached {
		cache, err = s.CachedScan(n)
		if err != nil {
			return nil, err
		}
	}
	return t.Iterate(start, count, cache)
}

// BinarySearch delegates to the order-n table.
func (s *Store) BinarySearch(n int, prefix []int32, mode Mode, skew float64) (int64, bool, error) {
	t, err := s.Table(n)
	if err != nil {
		return 0, false, err
	}
	return t.BinarySearch(prefix, mode, skew)
}

// RangeSearch delegates to the order-n table.
func (s *Store) RangeSearch(n int, prefix []int32) (lo, hi int64, found bool, err error) {
	t, err := s.Table(n)
	if err != nil {
		return 0, 0, false, err
	}
	return t.RangeSearch(prefix)
}
