package driverregistry

import (
	"testing"

	"github.com/jumpstarter-dev/jumpstarter-go/internal/config"
	"github.com/jumpstarter-dev/jumpstarter-go/internal/domain"
	"github.com/jumpstarter-dev/jumpstarter-go/internal/jerrors"
	"github.com/jumpstarter-dev/jumpstarter-go/internal/resource"
	"github.com/jumpstarter-dev/jumpstarter-go/internal/tree"
)

const fakeLeafDriverType = "jumpstarter_driver_test.driver.FakeLeaf"

func init() {
	Register(fakeLeafDriverType, func(name string, cfg map[string]any, children []domain.Node, resources *resource.Registry) (domain.Node, error) {
		return tree.NewBase(name, "jumpstarter_driver_test.client.FakeLeafClient", nil), nil
	})
}

func TestBuildResolvesCompositeAndLeafChildrenInNameOrder(t *testing.T) {
	inst := &config.DriverInstance{
		Children: map[string]*config.DriverInstance{
			"b": {Type: fakeLeafDriverType},
			"a": {Type: fakeLeafDriverType},
		},
	}
	inst.Normalize()

	node, err := Build("root", inst, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	children := node.Children()
	if len(children) != 2 {
		t.Fatalf("got %d children, want 2", len(children))
	}
	if children[0].Labels()["name"] != "a" || children[1].Labels()["name"] != "b" {
		t.Fatalf("children not built in sorted name order: %v, %v", children[0].Labels(), children[1].Labels())
	}
}

func TestBuildUnregisteredTypeFailsInvalidArgument(t *testing.T) {
	inst := &config.DriverInstance{Type: "no.such.driver"}
	inst.Normalize()

	_, err := Build("x", inst, nil)
	if jerrors.KindOf(err) != jerrors.InvalidArgument {
		t.Fatalf("KindOf(err) = %v, want InvalidArgument", jerrors.KindOf(err))
	}
}

func TestTypesIncludesCompositeAndRegisteredFake(t *testing.T) {
	types := Types()
	wantOneOf := map[string]bool{config.CompositeDriverType: false, fakeLeafDriverType: false}
	for _, typ := range types {
		if _, ok := wantOneOf[typ]; ok {
			wantOneOf[typ] = true
		}
	}
	for typ, found := range wantOneOf {
		if !found {
			t.Fatalf("Types() missing %q", typ)
		}
	}
}
