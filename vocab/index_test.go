package vocab

import (
	"strings"
	"testing"
)

const sampleIndex = "1\t_START_\tctl\n" +
	"2\t_END_\tctl\n" +
	"3\tthe\tfn\n" +
	"4\tcat\tnoun\n" +
	"5\tsat\tverb\n"

func TestLoadAndRoundTrip(t *testing.T) {
	idx, err := Load(strings.NewReader(sampleIndex))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if idx.Size() != 5 {
		t.Fatalf("Size() = %d, want 5", idx.Size())
	}

	id, err := idx.S2I("cat")
	if err != nil {
		t.Fatalf("S2I: %v", err)
	}
	if id != 4 {
		t.Errorf("S2I(cat) = %d, want 4", id)
	}

	str, err := idx.I2S(id)
	if err != nil {
		t.Fatalf("I2S: %v", err)
	}
	if str != "cat" {
		t.Errorf("I2S(4) = %q, want cat", str)
	}

	partition, err := idx.S2P("sat")
	if err != nil {
		t.Fatalf("S2P: %v", err)
	}
	if partition != "verb" {
		t.Errorf("S2P(sat) = %q, want verb", partition)
	}
}

func TestLoadRejectsNonContiguousIDs(t *testing.T) {
	_, err := Load(strings.NewReader("1\ta\tx\n3\tb\tx\n"))
	if err == nil {
		t.Error("expected error for non-contiguous ids")
	}
}

func TestLoadRejectsDuplicateStrings(t *testing.T) {
	_, err := Load(strings.NewReader("1\ta\tx\n2\ta\ty\n"))
	if err == nil {
		t.Error("expected error for duplicate token string")
	}
}

func TestUnknownLookupsError(t *testing.T) {
	idx, err := Load(strings.NewReader(sampleIndex))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := idx.S2I("dog"); err == nil {
		t.Error("expected error for unknown token string")
	}
	if _, err := idx.I2S(999); err == nil {
		t.Error("expected error for out-of-range id")
	}
}
