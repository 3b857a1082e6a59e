package simhash

import (
	"testing"
)

func TestFingerprint_IdenticalTexts(t *testing.T) {
	text := "the quick brown fox jumps over the lazy dog"
	fp1 := Fingerprint(text)
	fp2 := Fingerprint(text)

	if fp1 != fp2 {
		t.Errorf("identical texts produced different fingerprints: %064b vs %064b", fp1, fp2)
	}
}

func TestFingerprint_SimilarTexts(t *testing.T) {
	fp1 := Fingerprint("the quick brown fox jumps over the lazy dog")
	fp2 := Fingerprint("the quick brown fox leaps over the lazy dog")

	dist := Distance(fp1, fp2)
	if dist > 10 {
		t.Errorf("similar texts have too large distance: %d", dist)
	}
}

func TestFingerprint_DifferentTexts(t *testing.T) {
	fp1 := Fingerprint("the quick brown fox jumps over the lazy dog")
	fp2 := Fingerprint("completely unrelated content about quantum physics and mathematics")

	dist := Distance(fp1, fp2)
	if dist < 5 {
		t.Errorf("very different texts have too small distance: %d", dist)
	}
}

func TestFingerprint_EmptyInput(t *testing.T) {
	if fp := Fingerprint(""); fp != 0 {
		t.Errorf("empty input should produce fingerprint 0, got: %064b", fp)
	}
}

func TestFingerprint_CaseInsensitive(t *testing.T) {
	fp1 := Fingerprint("Hello World Example")
	fp2 := Fingerprint("hello world example")

	if fp1 != fp2 {
		t.Errorf("case should not affect the fingerprint: %064b vs %064b", fp1, fp2)
	}
}

func TestDistance_Identical(t *testing.T) {
	if d := Distance(0xDEADBEEF, 0xDEADBEEF); d != 0 {
		t.Errorf("identical fingerprints should have distance 0, got %d", d)
	}
}

func TestDistance_KnownBits(t *testing.T) {
	// 0b1011 vs 0b0010 differ in 3 bit positions.
	if d := Distance(0b1011, 0b0010); d != 3 {
		t.Errorf("expected distance 3, got %d", d)
	}
}

func TestSimilar_Threshold(t *testing.T) {
	a := uint64(0b1111)
	b := uint64(0b0000)

	if Similar(a, b, 3) {
		t.Error("distance 4 should not be similar at threshold 3")
	}
	if !Similar(a, b, 4) {
		t.Error("distance 4 should be similar at threshold 4")
	}
}

func TestIndex_Add(t *testing.T) {
	ix := NewIndex(DefaultThreshold)

	first := "go is an open source programming language that makes it simple to build secure scalable systems"
	if ix.Add(first) {
		t.Error("first document should not be reported as duplicate")
	}

	nearDup := "go is an open source programming language that makes it easy to build secure scalable systems"
	if !ix.Add(nearDup) {
		t.Error("near-identical document should be reported as duplicate")
	}

	unrelated := "recipe for sourdough bread with a long cold fermentation and a very crispy crust every time"
	if ix.Add(unrelated) {
		t.Error("unrelated document should not be reported as duplicate")
	}
}

func TestIndex_AddEmpty(t *testing.T) {
	ix := NewIndex(DefaultThreshold)
	if ix.Add("") {
		t.Error("empty text should never be reported as duplicate")
	}
	if ix.Add("") {
		t.Error("repeated empty text should still not be a duplicate")
	}
}
