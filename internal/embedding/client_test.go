package embedding

import (
	"math"
	"testing"
)

func TestCosine(t *testing.T) {
	t.Parallel()

	if got := Cosine([]float64{1, 0}, []float64{1, 0}); math.Abs(got-1) > 1e-9 {
		t.Fatalf("identical vectors should score 1, got %f", got)
	}
	if got := Cosine([]float64{1, 0}, []float64{0, 1}); math.Abs(got) > 1e-9 {
		t.Fatalf("orthogonal vectors should score 0, got %f", got)
	}
	if got := Cosine([]float64{1, 0}, []float64{1, 0, 0}); got != 0 {
		t.Fatalf("mismatched lengths should score 0, got %f", got)
	}
	if got := Cosine([]float64{0, 0}, []float64{1, 1}); got != 0 {
		t.Fatalf("zero vector should score 0, got %f", got)
	}
}

func TestVectorLiteralRoundTrip(t *testing.T) {
	t.Parallel()

	original := []float64{0.125, -3.5, 42}
	literal, err := VectorLiteral(original)
	if err != nil {
		t.Fatalf("render literal: %v", err)
	}
	if literal != "[0.125,-3.5,42]" {
		t.Fatalf("unexpected literal %q", literal)
	}

	parsed, err := ParseVectorLiteral(literal)
	if err != nil {
		t.Fatalf("parse literal: %v", err)
	}
	if len(parsed) != len(original) {
		t.Fatalf("expected %d components, got %d", len(original), len(parsed))
	}
	for i := range original {
		if parsed[i] != original[i] {
			t.Fatalf("component %d mismatch: %f != %f", i, parsed[i], original[i])
		}
	}
}

func TestVectorLiteralRejectsNonFinite(t *testing.T) {
	t.Parallel()

	if _, err := VectorLiteral([]float64{1, math.NaN()}); err == nil {
		t.Fatalf("expected NaN rejection")
	}
	if _, err := VectorLiteral(nil); err == nil {
		t.Fatalf("expected empty-vector rejection")
	}
}

func TestParseVectorLiteralRejectsMalformed(t *testing.T) {
	t.Parallel()

	for _, literal := range []string{"", "1,2,3", "[]", "[1,two]"} {
		if _, err := ParseVectorLiteral(literal); err == nil {
			t.Fatalf("expected rejection for %q", literal)
		}
	}
}
