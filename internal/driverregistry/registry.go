// Package driverregistry builds a driver tree (spec §3) out of an
// ExporterConfig's recursive DriverInstance document. The original
// implementation resolves a DriverInstance.type dotted path to a class at
// runtime via importlib (original_source/jumpstarter/common/importlib.py);
// this module has no dynamic-loading equivalent, so driver types are
// registered at compile time instead, the same way a Go plugin system
// typically trades dynamic dispatch for an init()-time registration map.
package driverregistry

import (
	"sort"
	"sync"

	"github.com/jumpstarter-dev/jumpstarter-go/internal/config"
	"github.com/jumpstarter-dev/jumpstarter-go/internal/domain"
	"github.com/jumpstarter-dev/jumpstarter-go/internal/jerrors"
	"github.com/jumpstarter-dev/jumpstarter-go/internal/resource"
	"github.com/jumpstarter-dev/jumpstarter-go/internal/tree"
)

// Constructor builds one driver node named name from its decoded
// DriverInstance.Config map, given its already-built children in report
// order and the session's resource registry (for drivers, like a
// storage-mux, whose methods consume uploaded resources; spec §4.6).
type Constructor func(name string, cfg map[string]any, children []domain.Node, resources *resource.Registry) (domain.Node, error)

var (
	mu    sync.Mutex
	types = map[string]Constructor{}
)

// Register installs constructor under driverType, called from an
// init() in the package providing that driver (the same self-registration
// shape every jumpstarter_driver_* package uses in the original
// implementation, minus the dynamic import). Re-registering the same
// type panics, since that only happens from a programming error (two
// packages claiming the same driver type), never from user input.
func Register(driverType string, constructor Constructor) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := types[driverType]; exists {
		panic("driverregistry: duplicate registration for " + driverType)
	}
	types[driverType] = constructor
}

// Types returns every registered driver type, sorted, for diagnostics:
// the names a config.Export's "type" fields are allowed to take.
func Types() []string {
	mu.Lock()
	defer mu.Unlock()
	out := make([]string, 0, len(types))
	for t := range types {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func init() {
	Register(config.CompositeDriverType, func(name string, _ map[string]any, children []domain.Node, _ *resource.Registry) (domain.Node, error) {
		return tree.NewComposite(name, children...), nil
	})
}

// Build recursively instantiates inst (already Normalize()d) and its
// children as name, looking up inst.Type in the registry. resources is
// threaded down to every constructor so a driver whose methods consume
// uploaded resources (a storage mux's "write") can register against the
// same registry the session's Stream/ServeResource RPC handler uses.
func Build(name string, inst *config.DriverInstance, resources *resource.Registry) (domain.Node, error) {
	childNames := make([]string, 0, len(inst.Children))
	for childName := range inst.Children {
		childNames = append(childNames, childName)
	}
	sort.Strings(childNames)

	children := make([]domain.Node, 0, len(childNames))
	for _, childName := range childNames {
		child, err := Build(childName, inst.Children[childName], resources)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}

	mu.Lock()
	constructor, ok := types[inst.Type]
	mu.Unlock()
	if !ok {
		return nil, jerrors.Newf(jerrors.InvalidArgument, "no driver registered for type %q (name %q)", inst.Type, name)
	}
	return constructor(name, inst.Config, children, resources)
}
