// Package lm is the Katz-style back-off language model over a BinDB store:
// conditional probability intervals and next-token search, both built on one
// shared partition of [0, 1) per context so the two always agree on how a
// context's probability mass tiles the unit interval.
package lm

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru"
	"github.com/op/go-logging"

	"github.com/kryptco/steg/bindb"
	"github.com/kryptco/steg/rational"
)

var log = logging.MustGetLogger("lm")

// ErrModelInconsistency is raised when the BinDB tables are not
// counts-consistent (a context's count is smaller than the sum of its
// continuations) and a back-off weight would go negative.
var ErrModelInconsistency = fmt.Errorf("lm: model inconsistency, tables are not counts-consistent")

// ErrIllPlacedStart is raised when the START token is queried anywhere other
// than the beginning of a text or directly after an END.
var ErrIllPlacedStart = fmt.Errorf("lm: START token in an illegal position")

const memoCacheSize = 512

// Model is a Katz back-off n-gram language model over a bindb.Store. Every
// cache it holds is a field of this struct, never package-level state, so
// two Models opened against different stores never share memoized results.
type Model struct {
	store *bindb.Store
	nMax  int
	start int32
	end   int32
	alpha *big.Rat
	beta  *big.Rat

	partitionCache *lru.Cache // string key -> *partition
}

// New constructs a Model. alpha and beta are the back-off weights; both
// must be non-negative.
func New(store *bindb.Store, nMax int, start, end int32, alpha, beta *big.Rat) (*Model, error) {
	if nMax < 1 {
		return nil, fmt.Errorf("lm: NMax must be >= 1, got %d", nMax)
	}
	if alpha.Sign() < 0 || beta.Sign() < 0 {
		return nil, fmt.Errorf("lm: alpha and beta must be non-negative")
	}
	cache, err := lru.New(memoCacheSize)
	if err != nil {
		return nil, fmt.Errorf("lm: allocating memoization cache: %w", err)
	}
	return &Model{
		store:          store,
		nMax:           nMax,
		start:          start,
		end:            end,
		alpha:          alpha,
		beta:           beta,
		partitionCache: cache,
	}, nil
}

// backoffTile is the pseudo-token tile reserved for recursion into a
// shorter context; it only means something when present is true.
type backoffTile struct {
	present  bool
	interval rational.Interval
	// recurse into (context, backedOff) to resolve a query landing here
	context   []int32
	backedOff int32
}

type tokenTile struct {
	token    int32
	interval rational.Interval
}

// partition is the single enumeration of a context's matching rows that
// both ConditionalInterval and NextToken consume.
type partition struct {
	// direct is true when the order-n table had no rows at all for this
	// context: the whole [0,1) recurses straight into the shorter context
	// with backedOff reset to none, with no reservation split.
	direct        bool
	directContext []int32

	tiles   []tokenTile
	backoff backoffTile
}

func contextKey(c []int32, backedOff int32, hasBackedOff bool) string {
	var sb strings.Builder
	for _, id := range c {
		sb.WriteString(strconv.Itoa(int(id)))
		sb.WriteByte(',')
	}
	sb.WriteByte('|')
	if hasBackedOff {
		sb.WriteString(strconv.Itoa(int(backedOff)))
	} else {
		sb.WriteString("none")
	}
	return sb.String()
}

// backedOffArg is either "none" (top of the back-off tree for this
// position) or the head token of the next-higher-order context just
// dropped.
type backedOffArg struct {
	has bool
	id  int32
}

func noBackoff() backedOffArg           { return backedOffArg{} }
func someBackoff(id int32) backedOffArg { return backedOffArg{has: true, id: id} }

func (m *Model) partitionFor(c []int32, backedOff backedOffArg) (*partition, error) {
	key := contextKey(c, backedOff.id, backedOff.has)
	if v, ok := m.partitionCache.Get(key); ok {
		return v.(*partition), nil
	}
	p, err := m.buildPartition(c, backedOff)
	if err != nil {
		return nil, err
	}
	m.partitionCache.Add(key, p)
	return p, nil
}

func (m *Model) buildPartition(c []int32, backedOff backedOffArg) (*partition, error) {
	n := len(c) + 1

	lo, hi, found, err := m.store.RangeSearch(n, c)
	if err != nil {
		return nil, fmt.Errorf("lm: range search order %d: %w", n, err)
	}
	if !found {
		// All probability mass for this order flows to back-off directly:
		// no split, no reservation, backedOff resets to none.
		return &partition{direct: true, directContext: c[min(1, len(c)):]}, nil
	}

	rows, err := m.store.Iterate(n, lo, hi-lo+1, n == 1)
	if err != nil {
		return nil, fmt.Errorf("lm: iterating order %d rows: %w", n, err)
	}

	var A, R int64
	var tokens []int32
	var preCounts []int64
	var counts []int64
	var cumCount int64

	for _, row := range rows {
		final := row.IDs[len(row.IDs)-1]

		excluded := false
		if final == m.start {
			// Rule (b): START is reserved for the positional rule, never
			// competes at the distributional level.
			excluded = true
		} else if backedOff.has {
			// Rule (a): the higher order already accounted for this
			// continuation.
			fullGram := make([]int32, 0, n+1)
			fullGram = append(fullGram, backedOff.id)
			fullGram = append(fullGram, c...)
			fullGram = append(fullGram, final)
			_, higherExists, err := m.store.BinarySearch(n+1, fullGram, bindb.First, 0.5)
			if err != nil {
				return nil, fmt.Errorf("lm: checking higher-order continuation: %w", err)
			}
			excluded = higherExists
		}

		if excluded {
			R += row.Count
			continue
		}

		A += row.Count
		tokens = append(tokens, final)
		preCounts = append(preCounts, cumCount)
		counts = append(counts, row.Count)
		cumCount += row.Count
	}

	var B int64
	if n == 1 {
		B = 0
	} else {
		T, err := m.contextCount(c)
		if err != nil {
			return nil, err
		}
		C := T - R
		if C < 0 {
			return nil, fmt.Errorf("%w: context count %d less than excluded count %d", ErrModelInconsistency, T, R)
		}
		if C == 0 {
			B = 1
		} else {
			L := C - A
			if L < 0 {
				return nil, fmt.Errorf("%w: accepted count %d exceeds remaining mass %d", ErrModelInconsistency, A, C)
			}
			alphaL := new(big.Rat).Mul(m.alpha, big.NewRat(L, 1))
			betaC := new(big.Rat).Mul(m.beta, big.NewRat(C, 1))
			sum := new(big.Rat).Add(alphaL, betaC)
			B = ceilRat(sum)
			if B < 0 {
				return nil, fmt.Errorf("%w: negative back-off pseudo-count", ErrModelInconsistency)
			}
		}
	}

	D := A + B
	if D <= 0 {
		return nil, fmt.Errorf("%w: zero total denominator at order %d", ErrModelInconsistency, n)
	}
	dRat := big.NewRat(D, 1)

	tiles := make([]tokenTile, len(tokens))
	for i := range tokens {
		tiles[i] = tokenTile{
			token: tokens[i],
			interval: rational.Interval{
				B: new(big.Rat).Quo(big.NewRat(preCounts[i], 1), dRat),
				L: new(big.Rat).Quo(big.NewRat(counts[i], 1), dRat),
			},
		}
	}

	p := &partition{tiles: tiles}
	if B > 0 {
		p.backoff = backoffTile{
			present: true,
			interval: rational.Interval{
				B: new(big.Rat).Quo(big.NewRat(A, 1), dRat),
				L: new(big.Rat).Quo(big.NewRat(B, 1), dRat),
			},
			context:   c[min(1, len(c)):],
			backedOff: firstOr(c, 0),
		}
	}
	return p, nil
}

func firstOr(c []int32, def int32) int32 {
	if len(c) == 0 {
		return def
	}
	return c[0]
}

// contextCount reads count(c): the count of the exact (n-1)-gram c in its
// own table, used as T in the back-off pseudo-count formula. Empty context
// (order-0) has no table to read and has no meaningful count.
func (m *Model) contextCount(c []int32) (int64, error) {
	if len(c) == 0 {
		return 0, fmt.Errorf("lm: context count requested for empty context")
	}
	n := len(c)
	rank, found, err := m.store.BinarySearch(n, c, bindb.First, 0.5)
	if err != nil {
		return 0, fmt.Errorf("lm: looking up context count: %w", err)
	}
	if !found {
		return 0, nil
	}
	row, err := m.store.Read(n, rank)
	if err != nil {
		return 0, err
	}
	return row.Count, nil
}

func ceilRat(x *big.Rat) int64 {
	num, den := x.Num(), x.Denom()
	q, r := new(big.Int).QuoRem(num, den, new(big.Int))
	if r.Sign() != 0 && x.Sign() > 0 {
		q.Add(q, big.NewInt(1))
	}
	return q.Int64()
}

func truncateContext(c []int32, nMax int) []int32 {
	if len(c) <= nMax-1 {
		return c
	}
	return c[len(c)-(nMax-1):]
}

func endsWith(c []int32, token int32) bool {
	return len(c) > 0 && c[len(c)-1] == token
}

// atBoundary reports whether the position after context c is a sentence
// boundary: the very beginning of a text, or directly after an END.
func atBoundary(c []int32, backedOff backedOffArg, end int32) bool {
	return (len(c) == 0 && !backedOff.has) || endsWith(c, end)
}

// ConditionalInterval returns P(t | c), the interval the model assigns to t
// given context c, truncated to the last NMax-1 context tokens.
func (m *Model) ConditionalInterval(t int32, c []int32) (rational.Interval, error) {
	return m.raw(t, truncateContext(c, m.nMax), noBackoff())
}

func (m *Model) raw(t int32, c []int32, backedOff backedOffArg) (rational.Interval, error) {
	// The START rule is positional, applied only when the queried token is
	// START itself: at the beginning of a text or right after an END it is
	// the whole unit interval (the next token is START with certainty),
	// anywhere else it is a hard error. It is never threaded through the
	// back-off recursion as a side constraint on other tokens.
	if t == m.start {
		if atBoundary(c, backedOff, m.end) {
			return rational.Unit(), nil
		}
		return rational.Interval{}, ErrIllPlacedStart
	}

	p, err := m.partitionFor(c, backedOff)
	if err != nil {
		return rational.Interval{}, err
	}
	if p.direct {
		return m.raw(t, p.directContext, noBackoff())
	}
	for _, tile := range p.tiles {
		if tile.token == t {
			return tile.interval, nil
		}
	}
	if !p.backoff.present {
		if len(c) == 0 {
			return rational.Interval{}, fmt.Errorf("lm: token %d has no probability mass in any context", t)
		}
		return rational.Interval{}, fmt.Errorf("lm: token %d excluded at every order with no back-off mass left", t)
	}
	sub, err := m.raw(t, p.backoff.context, someBackoff(p.backoff.backedOff))
	if err != nil {
		return rational.Interval{}, err
	}
	return rational.SelectSubinterval(p.backoff.interval, sub), nil
}

// NextToken returns the unique token whose conditional interval contains
// search, and search rescaled as a subinterval of that token's conditional
// interval. It returns ok=false when search straddles two or more
// candidate intervals.
func (m *Model) NextToken(search rational.Interval, c []int32) (token int32, scaled rational.Interval, ok bool, err error) {
	return m.nextToken(search, truncateContext(c, m.nMax), noBackoff())
}

func (m *Model) nextToken(search rational.Interval, c []int32, backedOff backedOffArg) (int32, rational.Interval, bool, error) {
	// Mirror of the positional START rule: at a sentence boundary the next
	// token is START with certainty, so its tile is the whole unit interval
	// and the search passes through unscaled.
	if atBoundary(c, backedOff, m.end) {
		return m.start, search, true, nil
	}

	p, err := m.partitionFor(c, backedOff)
	if err != nil {
		return 0, rational.Interval{}, false, err
	}
	if p.direct {
		return m.nextToken(search, p.directContext, noBackoff())
	}

	for _, tile := range p.tiles {
		if fullyInside(tile.interval, search) {
			return tile.token, rational.Scale(tile.interval, search), true, nil
		}
	}
	if p.backoff.present && fullyInside(p.backoff.interval, search) {
		scaledSearch := rational.Scale(p.backoff.interval, search)
		return m.nextToken(scaledSearch, p.backoff.context, someBackoff(p.backoff.backedOff))
	}
	return 0, rational.Interval{}, false, nil
}

func fullyInside(outer, inner rational.Interval) bool {
	return inner.B.Cmp(outer.B) >= 0 && inner.End().Cmp(outer.End()) <= 0
}
