package text

import (
	"testing"

	"github.com/h0rv/epub-stream-sub001/bookenum"
)

func TestApplySoftHyphenPolicyIgnoreStrips(t *testing.T) {
	in := "extra" + string(SoftHyphen) + "ordinary"
	got := ApplySoftHyphenPolicy(in, bookenum.SoftHyphenIgnore)
	if got != "extraordinary" {
		t.Fatalf("expected soft hyphen stripped, got %q", got)
	}
}

func TestApplySoftHyphenPolicyDiscretionaryPreserves(t *testing.T) {
	in := "extra" + string(SoftHyphen) + "ordinary"
	got := ApplySoftHyphenPolicy(in, bookenum.SoftHyphenDiscretionary)
	if got != in {
		t.Fatalf("expected soft hyphen preserved, got %q", got)
	}
}

func TestSplitAtSoftHyphens(t *testing.T) {
	parts := SplitAtSoftHyphens("extra" + string(SoftHyphen) + "or" + string(SoftHyphen) + "dinary")
	want := []string{"extra", "or", "dinary"}
	if len(parts) != len(want) {
		t.Fatalf("expected %d parts, got %v", len(want), parts)
	}
	for i := range want {
		if parts[i] != want[i] {
			t.Fatalf("part %d: want %q got %q", i, want[i], parts[i])
		}
	}
}

func TestSplitAtSoftHyphensNoHyphen(t *testing.T) {
	parts := SplitAtSoftHyphens("plain")
	if len(parts) != 1 || parts[0] != "plain" {
		t.Fatalf("expected single unchanged part, got %v", parts)
	}
}
