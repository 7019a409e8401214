package lease

import (
	"testing"

	"k8s.io/apimachinery/pkg/labels"
)

func TestSelectorContainsSubsetSemantics(t *testing.T) {
	leaseSelector := labels.Set{"board": "rpi", "firmware": "v2"}

	tests := []struct {
		filter string
		want   bool
	}{
		{"board=rpi", true},
		{"firmware in (v2,v3)", true},
		{"firmware in (v4)", false},
		{"", true},
		{"!experimental", true},
	}
	for _, tt := range tests {
		sel, err := ParseSelector(tt.filter)
		if err != nil {
			t.Fatalf("ParseSelector(%q): %v", tt.filter, err)
		}
		got := SelectorContains(sel, leaseSelector)
		if got != tt.want {
			t.Fatalf("SelectorContains(%q) = %v, want %v", tt.filter, got, tt.want)
		}
	}
}

func TestSelectorContainsRequiresNegatedLabelPresent(t *testing.T) {
	withExperimental := labels.Set{"board": "rpi", "experimental": "true"}
	sel, err := ParseSelector("!experimental")
	if err != nil {
		t.Fatalf("ParseSelector: %v", err)
	}
	if SelectorContains(sel, withExperimental) {
		t.Fatal("expected !experimental to fail when the label is present")
	}
}

func TestParseSelectorRejectsUnknownOperator(t *testing.T) {
	if _, err := ParseSelector("board ~= rpi"); err == nil {
		t.Fatal("expected an unsupported operator to fail parsing")
	}
}
