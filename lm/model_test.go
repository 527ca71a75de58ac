package lm

import (
	"encoding/binary"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/kryptco/steg/bindb"
	"github.com/kryptco/steg/rational"
)

const (
	startID int32 = 1
	endID   int32 = 2
	idA     int32 = 3
	idB     int32 = 4
)

// writeOrderFile writes rows, each already sorted ascending by ids, into
// dir/<n>gram.
func writeOrderFile(t *testing.T, dir string, n int, rows [][]int32, counts []int64) {
	t.Helper()
	name := map[int]string{1: "1gram", 2: "2gram", 3: "3gram"}[n]
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("creating %s: %v", name, err)
	}
	defer f.Close()
	for i, ids := range rows {
		buf := make([]byte, bindb.RecordSize(n))
		for j, id := range ids {
			binary.LittleEndian.PutUint32(buf[4*j:4*j+4], uint32(id))
		}
		binary.LittleEndian.PutUint64(buf[4*n:4*n+8], uint64(counts[i]))
		if _, err := f.Write(buf); err != nil {
			t.Fatalf("writing record: %v", err)
		}
	}
}

// newTestModel builds a 2-gram model over a tiny corpus: after START, A
// follows with count 6 and B with count 2; alpha=beta=0 so back-off never
// reserves mass beyond what a context already accounts for.
func newTestModel(t *testing.T) *Model {
	t.Helper()
	dir := t.TempDir()
	writeOrderFile(t, dir, 1, [][]int32{{startID}}, []int64{8})
	writeOrderFile(t, dir, 2, [][]int32{{startID, idA}, {startID, idB}}, []int64{6, 2})

	store, err := bindb.Open(dir, 2)
	if err != nil {
		t.Fatalf("bindb.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	m, err := New(store, 2, startID, endID, big.NewRat(0, 1), big.NewRat(0, 1))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m
}

func TestStartIsPositionalOnly(t *testing.T) {
	m := newTestModel(t)

	i, err := m.ConditionalInterval(startID, nil)
	if err != nil {
		t.Fatalf("ConditionalInterval(START, []): %v", err)
	}
	if !i.Equal(rational.Unit()) {
		t.Errorf("ConditionalInterval(START, []) = %s, want unit interval", i)
	}

	if _, err := m.ConditionalInterval(startID, []int32{idA}); err != ErrIllPlacedStart {
		t.Errorf("ConditionalInterval(START, [A]) error = %v, want ErrIllPlacedStart", err)
	}
}

// The conditional distribution over a context sums to exactly 1 and
// distinct tokens get disjoint intervals.
func TestConditionalIntervalPartitionsUnit(t *testing.T) {
	m := newTestModel(t)

	a, err := m.ConditionalInterval(idA, []int32{startID})
	if err != nil {
		t.Fatalf("ConditionalInterval(A, [START]): %v", err)
	}
	b, err := m.ConditionalInterval(idB, []int32{startID})
	if err != nil {
		t.Fatalf("ConditionalInterval(B, [START]): %v", err)
	}

	wantA, _ := rational.NewFrac(0, 3, 4) // 6/8
	wantB, _ := rational.NewFrac(3, 1, 4) // 2/8, starting where A ends
	if !a.Equal(wantA) {
		t.Errorf("P(A|START) = %s, want %s", a, wantA)
	}
	if !b.Equal(wantB) {
		t.Errorf("P(B|START) = %s, want %s", b, wantB)
	}

	sum := new(big.Rat).Add(a.L, b.L)
	if sum.Cmp(big.NewRat(1, 1)) != 0 {
		t.Errorf("P(A|START).l + P(B|START).l = %s, want 1", sum)
	}
	if a.End().Cmp(b.B) != 0 {
		t.Errorf("intervals are not adjacent/disjoint: A ends at %s, B starts at %s", a.End(), b.B)
	}
}

// NextToken resolves a search interval strictly inside one candidate's
// conditional interval to that candidate.
func TestNextTokenResolvesInteriorSearch(t *testing.T) {
	m := newTestModel(t)

	search, _ := rational.NewFrac(13, 1, 16) // (13/16, 14/16) sits inside B's (3/4, 1)
	tok, _, ok, err := m.NextToken(search, []int32{startID})
	if err != nil {
		t.Fatalf("NextToken: %v", err)
	}
	if !ok || tok != idB {
		t.Errorf("NextToken(%s, [START]) = (%d, %v), want (%d, true)", search, tok, ok, idB)
	}
}

// A search interval straddling the A/B boundary is rejected.
func TestNextTokenRejectsStraddlingSearch(t *testing.T) {
	m := newTestModel(t)

	straddle, _ := rational.NewFrac(5, 2, 8) // (5/8, 7/8) crosses the 6/8 boundary
	_, _, ok, err := m.NextToken(straddle, []int32{startID})
	if err != nil {
		t.Fatalf("NextToken: %v", err)
	}
	if ok {
		t.Errorf("NextToken should reject a search interval straddling a token boundary")
	}
}

// newBackoffModel builds a 3-gram model with alpha=1/2, beta=1/4 over a
// corpus whose trigram table knows only "a b a", so every other token after
// the context "a b" resolves through back-off into the bigram table, where
// the row "b a" is excluded again because the trigram already accounts for
// that continuation. countB is b's unigram count and countAB the "a b"
// bigram count; the consistency tests turn those two knobs below the sums
// of their continuations.
func newBackoffModel(t *testing.T, countB, countAB int64) *Model {
	t.Helper()
	dir := t.TempDir()
	writeOrderFile(t, dir, 1,
		[][]int32{{startID}, {endID}, {idA}, {idB}},
		[]int64{6, 4, 12, countB})
	writeOrderFile(t, dir, 2,
		[][]int32{{idA, idB}, {idB, endID}, {idB, idA}, {idB, idB}},
		[]int64{countAB, 2, 3, 5})
	writeOrderFile(t, dir, 3,
		[][]int32{{idA, idB, idA}},
		[]int64{4})

	store, err := bindb.Open(dir, 3)
	if err != nil {
		t.Fatalf("bindb.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	m, err := New(store, 3, startID, endID, big.NewRat(1, 2), big.NewRat(1, 4))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m
}

// The full back-off construction, worked by hand. At trigram order the
// context "a b" has the single row "a b a" (count 4) against a context
// count of 10, so B = ceil(1/2*6 + 1/4*10) = 6 and a occupies [0, 2/5)
// with [2/5, 1) reserved for back-off. At bigram order the row "b a" is
// excluded (the trigram already covers it), leaving END (2) and b (5)
// accepted out of a context count of 10, so B = ceil(1/4*7) = 2 and the
// level tiles END:[0, 2/9), b:[2/9, 7/9). Mapping those through the
// reserved [2/5, 1) gives the asserted intervals.
func TestConditionalIntervalBacksOffWithExclusion(t *testing.T) {
	m := newBackoffModel(t, 10, 10)
	ctx := []int32{idA, idB}

	a, err := m.ConditionalInterval(idA, ctx)
	if err != nil {
		t.Fatalf("ConditionalInterval(a, [a b]): %v", err)
	}
	e, err := m.ConditionalInterval(endID, ctx)
	if err != nil {
		t.Fatalf("ConditionalInterval(END, [a b]): %v", err)
	}
	b, err := m.ConditionalInterval(idB, ctx)
	if err != nil {
		t.Fatalf("ConditionalInterval(b, [a b]): %v", err)
	}

	wantA := rational.Interval{B: big.NewRat(0, 1), L: big.NewRat(2, 5)}
	wantE := rational.Interval{B: big.NewRat(2, 5), L: big.NewRat(2, 15)}
	wantB := rational.Interval{B: big.NewRat(8, 15), L: big.NewRat(1, 3)}
	if !a.Equal(wantA) {
		t.Errorf("P(a | a b) = %s, want %s", a, wantA)
	}
	if !e.Equal(wantE) {
		t.Errorf("P(END | a b) = %s, want %s", e, wantE)
	}
	if !b.Equal(wantB) {
		t.Errorf("P(b | a b) = %s, want %s", b, wantB)
	}

	// The three tiles are adjacent: a's slice ends where END's begins, and
	// END's where b's begins, even though END and b live a back-off level
	// below a.
	if a.End().Cmp(e.B) != 0 || e.End().Cmp(b.B) != 0 {
		t.Errorf("backed-off tiles are not adjacent: %s, %s, %s", a, e, b)
	}
}

// NextToken follows the same back-off path as ConditionalInterval: a search
// inside END's slice of the "a b" context recurses through the reserved
// tail into the bigram level and comes back rescaled inside END's tile.
func TestNextTokenRecursesIntoBackoff(t *testing.T) {
	m := newBackoffModel(t, 10, 10)

	search, _ := rational.NewFrac(13, 1, 30) // inside END's (2/5, 2/15)
	tok, scaled, ok, err := m.NextToken(search, []int32{idA, idB})
	if err != nil {
		t.Fatalf("NextToken: %v", err)
	}
	if !ok || tok != endID {
		t.Fatalf("NextToken(%s, [a b]) = (%d, %v), want END", search, tok, ok)
	}
	want := rational.Interval{B: big.NewRat(1, 4), L: big.NewRat(1, 4)}
	if !scaled.Equal(want) {
		t.Errorf("scaled search = %s, want %s", scaled, want)
	}
}

// A context count smaller than the counts rule (a) excludes leaves C < 0:
// b's unigram count says 2 while the trigram-covered "b a" row alone
// carries 3, so backing off from "a b" trips the consistency check.
func TestModelInconsistencyNegativeRemainingMass(t *testing.T) {
	m := newBackoffModel(t, 2, 10)

	_, err := m.ConditionalInterval(endID, []int32{idA, idB})
	if !errors.Is(err, ErrModelInconsistency) {
		t.Fatalf("ConditionalInterval error = %v, want ErrModelInconsistency", err)
	}
}

// A context count smaller than the sum of its own continuations leaves
// L < 0: the "a b" bigram says 3 while its trigram children carry 4, so
// every query at that context trips the consistency check before any tile
// is handed out.
func TestModelInconsistencyLeftoverBelowAccepted(t *testing.T) {
	m := newBackoffModel(t, 10, 3)

	_, err := m.ConditionalInterval(idA, []int32{idA, idB})
	if !errors.Is(err, ErrModelInconsistency) {
		t.Fatalf("ConditionalInterval error = %v, want ErrModelInconsistency", err)
	}
}

// At a sentence boundary the next token is START with certainty, and the
// search interval passes through unscaled.
func TestNextTokenForcesStartAtBoundaries(t *testing.T) {
	m := newTestModel(t)
	search, _ := rational.NewFrac(13, 1, 16)

	tok, scaled, ok, err := m.NextToken(search, nil)
	if err != nil {
		t.Fatalf("NextToken(search, []): %v", err)
	}
	if !ok || tok != startID {
		t.Fatalf("NextToken(search, []) = (%d, %v), want START", tok, ok)
	}
	if !scaled.Equal(search) {
		t.Errorf("START's tile is the unit interval, search should come back unscaled: got %s", scaled)
	}

	tok, _, ok, err = m.NextToken(search, []int32{idA, endID})
	if err != nil {
		t.Fatalf("NextToken(search, [A END]): %v", err)
	}
	if !ok || tok != startID {
		t.Errorf("NextToken after END = (%d, %v), want START", tok, ok)
	}
}
