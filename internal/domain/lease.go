package domain

import "time"

// Lease is the controller-side record of spec §3: a client owns it
// read-only except through the controller API, and the exporter observes
// the router assignment derived from it.
type Lease struct {
	Name        string
	ClientRef   string
	Selector    map[string]string
	Duration    time.Duration
	Begin       *time.Time
	End         *time.Time
	ExporterRef string
	Ended       bool
	Conditions  []LeaseCondition
}

// LeaseCondition is one Kubernetes-style status entry on a Lease, e.g.
// Type="Ready", Status="True".
type LeaseCondition struct {
	Type    string
	Status  string
	Reason  string
	Message string
}

// Ready reports whether the lease carries a Ready=True condition, the
// signal a lease client polls or watches for (spec §4.9).
func (l Lease) Ready() bool {
	for _, c := range l.Conditions {
		if c.Type == "Ready" && c.Status == "True" {
			return true
		}
	}
	return false
}
