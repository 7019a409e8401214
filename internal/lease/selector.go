package lease

import (
	"k8s.io/apimachinery/pkg/labels"

	"github.com/jumpstarter-dev/jumpstarter-go/internal/jerrors"
)

// ParseSelector parses a Kubernetes-style selector expression (spec
// §4.9: "equality, set-membership, existence, and their negations, with
// whitespace-tolerant parsing") into a labels.Selector. An empty string
// parses to the selector matching everything.
func ParseSelector(expr string) (labels.Selector, error) {
	sel, err := labels.Parse(expr)
	if err != nil {
		return nil, jerrors.Wrap(jerrors.InvalidArgument, "parse selector "+expr, err)
	}
	return sel, nil
}

// SelectorContains reports whether every requirement in filter is
// satisfied by the concrete label set target: extra labels in target do
// not prevent a match. It does not compare filter with another
// selector's requirements; a negated or set-based requirement is
// evaluated against target's labels, so "!experimental" matches any
// target that lacks the experimental label.
func SelectorContains(filter labels.Selector, target labels.Set) bool {
	reqs, selectable := filter.Requirements()
	if !selectable {
		return false
	}
	for _, req := range reqs {
		if !req.Matches(target) {
			return false
		}
	}
	return true
}
