package dedup

import (
	"fmt"
	"testing"
)

func TestDeduplicator_ExactRepeat(t *testing.T) {
	d := New(100)

	if !d.IsNew("Fed raises interest rates by 25 basis points") {
		t.Fatal("First occurrence should be new")
	}
	if d.IsNew("Fed raises interest rates by 25 basis points") {
		t.Error("Exact repeat should be rejected")
	}
}

func TestDeduplicator_Normalization(t *testing.T) {
	d := New(100)

	if !d.IsNew("Fed Raises Interest Rates!") {
		t.Fatal("First occurrence should be new")
	}

	variants := []string{
		"fed raises interest rates",
		"FED RAISES INTEREST RATES",
		"Fed raises interest rates?",
		"  Fed   raises  interest rates  ",
	}
	for _, v := range variants {
		if d.IsNew(v) {
			t.Errorf("Variant %q should be a duplicate after normalization", v)
		}
	}
}

func TestDeduplicator_NearDuplicate(t *testing.T) {
	d := New(100)

	if !d.IsNew("Fed raises interest rates by 25 basis points in March decision") {
		t.Fatal("First occurrence should be new")
	}

	t.Run("paraphrase above threshold", func(t *testing.T) {
		// 8 of 10 tokens shared with the original
		if d.IsNew("Fed raises interest rates by 25 basis points in surprise decision") {
			t.Error("Near-identical paraphrase should be rejected")
		}
	})

	t.Run("different story accepted", func(t *testing.T) {
		if !d.IsNew("Senate passes budget resolution after overnight session") {
			t.Error("Unrelated headline should be accepted")
		}
	})
}

func TestDeduplicator_Eviction(t *testing.T) {
	d := New(1000)

	first := "headline number 0 about topic alpha0"
	if !d.IsNew(first) {
		t.Fatal("First headline should be new")
	}

	// Fill past capacity with mutually dissimilar headlines.
	for i := 1; i <= 1000; i++ {
		h := fmt.Sprintf("headline number %d about topic alpha%d", i, i)
		if !d.IsNew(h) {
			t.Fatalf("Headline %d unexpectedly rejected", i)
		}
	}

	if d.Len() != 1000 {
		t.Errorf("Expected 1000 entries after eviction, got %d", d.Len())
	}

	// The oldest entry was evicted, so the very first headline is
	// reportable again.
	if !d.IsNew(first) {
		t.Error("Evicted headline should be accepted again")
	}

	// A recent entry is still held.
	if d.IsNew("headline number 900 about topic alpha900") {
		t.Error("Recent headline should still be rejected")
	}
}

func TestDeduplicator_NeverPanics(t *testing.T) {
	d := New(10)

	inputs := []string{"", "   ", "!!!", "\t\n", "a"}
	for _, in := range inputs {
		// Just exercise; no panic and stable answers.
		d.IsNew(in)
		d.IsNew(in)
	}
}

func TestDeduplicator_DefaultCapacity(t *testing.T) {
	d := New(0)
	if d.capacity != DefaultCapacity {
		t.Errorf("Expected default capacity %d, got %d", DefaultCapacity, d.capacity)
	}
}
