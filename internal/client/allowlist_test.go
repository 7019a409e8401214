package client

import "testing"

func TestAllowListMatchesGlobPatterns(t *testing.T) {
	a, err := NewAllowList([]string{"jumpstarter.*"}, false, 8)
	if err != nil {
		t.Fatalf("NewAllowList: %v", err)
	}
	if !a.Allowed("jumpstarter.drivers.power.client.PowerClient") {
		t.Fatal("expected a jumpstarter.* class to be allowed")
	}
	if a.Allowed("com.example.Evil") {
		t.Fatal("expected an unmatched class to be refused")
	}
}

func TestAllowListUnsafeBypassesPatterns(t *testing.T) {
	a, err := NewAllowList(nil, true, 0)
	if err != nil {
		t.Fatalf("NewAllowList: %v", err)
	}
	if !a.Allowed("com.example.Evil") {
		t.Fatal("expected unsafe=true to allow every class")
	}
}

func TestAllowListCachesRepeatedLookups(t *testing.T) {
	a, err := NewAllowList([]string{"jumpstarter.*"}, false, 8)
	if err != nil {
		t.Fatalf("NewAllowList: %v", err)
	}
	for i := 0; i < 3; i++ {
		if a.Allowed("com.example.Evil") {
			t.Fatal("expected a consistently refused class across repeated lookups")
		}
	}
}

func TestInvalidGlobPatternFailsToCompile(t *testing.T) {
	if _, err := NewAllowList([]string{"[unterminated"}, false, 0); err == nil {
		t.Fatal("expected an invalid glob pattern to fail compilation")
	}
}
