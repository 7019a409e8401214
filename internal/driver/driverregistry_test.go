package driver

import (
	"testing"

	"github.com/jumpstarter-dev/jumpstarter-go/internal/config"
	"github.com/jumpstarter-dev/jumpstarter-go/internal/driverregistry"
	"github.com/jumpstarter-dev/jumpstarter-go/internal/resource"
)

// TestDriverTypesBuildFromConfig exercises the path cmd's ProvideDriverTree
// takes against a real ExporterConfig.export document: each of this
// package's driver types resolves through driverregistry.Build into the
// concrete node its init() registered.
func TestDriverTypesBuildFromConfig(t *testing.T) {
	registry := resource.New(8)
	inst := &config.DriverInstance{
		Children: map[string]*config.DriverInstance{
			"net0":     {Type: EchoNetworkDriverType},
			"power0":   {Type: PowerDriverType},
			"storage0": {Type: StorageMuxDriverType},
		},
	}
	inst.Normalize()

	root, err := driverregistry.Build("root", inst, registry)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	children := root.Children()
	if len(children) != 3 {
		t.Fatalf("got %d children, want 3", len(children))
	}

	byName := map[string]any{}
	for _, c := range children {
		byName[c.Labels()["name"]] = c
	}

	if _, ok := byName["net0"].(*EchoNetwork); !ok {
		t.Fatalf("net0 = %T, want *EchoNetwork", byName["net0"])
	}
	if _, ok := byName["power0"].(*MockPower); !ok {
		t.Fatalf("power0 = %T, want *MockPower", byName["power0"])
	}
	if _, ok := byName["storage0"].(*MockStorageMux); !ok {
		t.Fatalf("storage0 = %T, want *MockStorageMux", byName["storage0"])
	}
}

func TestStorageMuxDriverTypeRequiresResourceRegistry(t *testing.T) {
	inst := &config.DriverInstance{Type: StorageMuxDriverType}
	inst.Normalize()

	if _, err := driverregistry.Build("storage0", inst, nil); err == nil {
		t.Fatal("expected Build to fail without a resource registry")
	}
}
