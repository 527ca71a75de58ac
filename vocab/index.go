// Package vocab is the bidirectional vocabulary index: token ID ↔ token
// string, plus string → partition tag.
package vocab

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/axiomhq/fsst"
	lru "github.com/hashicorp/golang-lru"
	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("vocab")

// ErrVocabulary is returned for a malformed index file or an unknown token
// or ID.
var ErrVocabulary = fmt.Errorf("vocab: malformed or inconsistent vocabulary")

const decodedCacheSize = 512

// Index is the loaded vocabulary: IDs start at 1 and are contiguous, so i2s
// is stored as a single FSST-encoded blob plus per-entry offsets rather than
// one string per ID. Google Books n-gram vocabularies commonly run past
// 10^5 entries with heavy morphological overlap, which is FSST's sweet
// spot; decoded strings are served from a small bounded LRU so repeated
// lookups of common tokens (_START_, _END_, function words) don't pay the
// decode cost twice.
type Index struct {
	table      *fsst.Table
	packed     []byte
	offsets    []int // offsets[i] is the start of id i+1's encoded bytes in packed
	stringToID map[string]int
	stringToP  map[string]string
	decoded    *lru.Cache
}

// Load reads a vocabulary index file: lines of "<id>\t<string>\t<partition>"
// sorted ascending by id starting at 1. Duplicate strings or non-contiguous
// IDs are rejected.
func Load(r io.Reader) (*Index, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var strs []string
	stringToID := make(map[string]int)
	stringToP := make(map[string]string)

	wantID := 1
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) != 3 {
			return nil, fmt.Errorf("%w: expected 3 tab-separated fields, got %d", ErrVocabulary, len(parts))
		}
		id, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, fmt.Errorf("%w: bad id %q: %v", ErrVocabulary, parts[0], err)
		}
		if id != wantID {
			return nil, fmt.Errorf("%w: ids must be contiguous from 1, expected %d got %d", ErrVocabulary, wantID, id)
		}
		str, partition := parts[1], parts[2]
		if _, dup := stringToID[str]; dup {
			return nil, fmt.Errorf("%w: duplicate token string %q", ErrVocabulary, str)
		}

		strs = append(strs, str)
		stringToID[str] = id
		stringToP[str] = partition
		wantID++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("vocab: reading index: %w", err)
	}
	if len(strs) == 0 {
		return nil, fmt.Errorf("%w: empty vocabulary", ErrVocabulary)
	}

	table := fsst.TrainStrings(strs)
	packed := make([]byte, 0, len(strs)*4)
	offsets := make([]int, len(strs)+1)
	for i, s := range strs {
		offsets[i] = len(packed)
		packed = append(packed, table.EncodeAll([]byte(s))...)
	}
	offsets[len(strs)] = len(packed)

	cache, err := lru.New(decodedCacheSize)
	if err != nil {
		return nil, fmt.Errorf("vocab: allocating decode cache: %w", err)
	}

	log.Debugf("loaded vocabulary of %d tokens", len(strs))

	return &Index{
		table:      table,
		packed:     packed,
		offsets:    offsets,
		stringToID: stringToID,
		stringToP:  stringToP,
		decoded:    cache,
	}, nil
}

// Size returns the vocabulary size V.
func (idx *Index) Size() int {
	return len(idx.offsets) - 1
}

// I2S returns the string for token ID i (1-based).
func (idx *Index) I2S(i int) (string, error) {
	if i < 1 || i > idx.Size() {
		return "", fmt.Errorf("%w: id %d out of range", ErrVocabulary, i)
	}
	if v, ok := idx.decoded.Get(i); ok {
		return v.(string), nil
	}
	encoded := idx.packed[idx.offsets[i-1]:idx.offsets[i]]
	s := string(idx.table.DecodeAll(encoded))
	idx.decoded.Add(i, s)
	return s, nil
}

// S2I returns the token ID for string s.
func (idx *Index) S2I(s string) (int, error) {
	id, ok := idx.stringToID[s]
	if !ok {
		return 0, fmt.Errorf("%w: unknown token %q", ErrVocabulary, s)
	}
	return id, nil
}

// S2P returns the partition tag for string s.
func (idx *Index) S2P(s string) (string, error) {
	p, ok := idx.stringToP[s]
	if !ok {
		return "", fmt.Errorf("%w: unknown token %q", ErrVocabulary, s)
	}
	return p, nil
}
