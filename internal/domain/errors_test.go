package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"transient", TransientError("query", errors.New("boom")), KindTransientRemote},
		{"acquisition", AcquisitionError("play", errors.New("no device")), KindResourceAcquisition},
		{"input", InvalidInput("play", ErrMissingMediaURL), KindInput},
		{"wrapped", fmt.Errorf("outer: %w", TransientError("listen", errors.New("eof"))), KindTransientRemote},
		{"plain", errors.New("plain"), KindUnknown},
		{"nil", nil, KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf mismatch: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorUnwrapsSentinel(t *testing.T) {
	err := InvalidInput("play", ErrMissingMediaURL)
	if !errors.Is(err, ErrMissingMediaURL) {
		t.Fatalf("expected errors.Is to find ErrMissingMediaURL in %v", err)
	}
	if got, want := err.Error(), "play: "+ErrMissingMediaURL.Error(); got != want {
		t.Errorf("Error() mismatch: got %q, want %q", got, want)
	}
}

func TestDocumentInt(t *testing.T) {
	doc := Document{ID: "q1", Fields: map[string]any{
		"year":   float64(2021),
		"frac":   1.5,
		"text":   "2019",
		"broken": "twenty",
	}}
	if v, ok := doc.Int("year"); !ok || v != 2021 {
		t.Errorf("year: got %d/%v, want 2021/true", v, ok)
	}
	if _, ok := doc.Int("frac"); ok {
		t.Error("fractional value should not convert")
	}
	if v, ok := doc.Int("text"); !ok || v != 2019 {
		t.Errorf("text: got %d/%v, want 2019/true", v, ok)
	}
	if _, ok := doc.Int("broken"); ok {
		t.Error("non-numeric string should not convert")
	}
	if _, ok := doc.Int("missing"); ok {
		t.Error("missing field should not convert")
	}
}

func TestParseKind(t *testing.T) {
	if k, err := ParseKind(" PSALM "); err != nil || k != KindPsalm {
		t.Errorf("ParseKind: got %q/%v, want psalm", k, err)
	}
	if _, err := ParseKind("carol"); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("ParseKind(carol): got %v, want ErrUnknownKind", err)
	}
}
