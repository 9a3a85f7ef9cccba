package todo

import (
	"errors"
	"testing"
)

func TestParse_Synonyms(t *testing.T) {
	tests := []struct {
		in   string
		kind Kind
	}{
		{"add milk", KindAdd},
		{"TODO milk", KindAdd},
		{"+ milk", KindAdd},
		{"list", KindList},
		{"Show", KindList},
		{"ls", KindList},
		{"remove 1", KindRemove},
		{"DELETE 1", KindRemove},
		{"rm 1", KindRemove},
		{"- 1", KindRemove},
		{"clear", KindUnknown},
		{"", KindUnknown},
		{"   ", KindUnknown},
	}
	for _, tt := range tests {
		if got := Parse(tt.in).Kind; got != tt.kind {
			t.Errorf("Parse(%q).Kind = %s, want %s", tt.in, got, tt.kind)
		}
	}
}

func TestParse_AddJoinsWithSingleSpaces(t *testing.T) {
	cmd := Parse("  add   buy \t oat   milk ")
	if cmd.Err != nil {
		t.Fatalf("unexpected error: %v", cmd.Err)
	}
	if cmd.Item != "buy oat milk" {
		t.Fatalf("expected 'buy oat milk', got %q", cmd.Item)
	}
}

func TestParse_AddWithoutText(t *testing.T) {
	cmd := Parse("add")
	if cmd.Kind != KindAdd || !errors.Is(cmd.Err, ErrMissingItem) {
		t.Fatalf("expected add with ErrMissingItem, got %+v", cmd)
	}
}

func TestParse_RemovePosition(t *testing.T) {
	cmd := Parse("remove 12")
	if cmd.Err != nil || cmd.Position != 12 {
		t.Fatalf("expected position 12, got %+v", cmd)
	}
	// extra tokens after the number are ignored
	if cmd := Parse("remove 2 please"); cmd.Position != 2 || cmd.Err != nil {
		t.Fatalf("expected position 2, got %+v", cmd)
	}
}

func TestParse_RemoveRejectsNonDigits(t *testing.T) {
	for _, in := range []string{
		"remove",
		"remove two",
		"remove -1",
		"remove +1",
		"remove 1.5",
		"remove 1a",
		"remove 0x1",
		"remove 99999999999999999999999",
	} {
		cmd := Parse(in)
		if cmd.Kind != KindRemove || !errors.Is(cmd.Err, ErrInvalidNumber) {
			t.Errorf("Parse(%q) = %+v, want ErrInvalidNumber", in, cmd)
		}
	}
}

func TestParse_ZeroParsesButIsNotAPosition(t *testing.T) {
	// zero is a digit string; the range check happens against the stored list.
	cmd := Parse("remove 0")
	if cmd.Err != nil || cmd.Position != 0 {
		t.Fatalf("unexpected %+v", cmd)
	}
}
