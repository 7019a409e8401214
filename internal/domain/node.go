package domain

import "github.com/google/uuid"

// MethodKind tags an exported driver method as unary or server-streaming
// (spec §3's "set of exported methods each tagged unary or
// server-streaming"). A third tag, exportstream, marks methods usable as
// the driver side of a stream-multiplexer open (spec §4.4).
type MethodKind int

const (
	MethodUnary MethodKind = iota
	MethodStreaming
	MethodExportStream
)

func (k MethodKind) String() string {
	switch k {
	case MethodStreaming:
		return "streaming"
	case MethodExportStream:
		return "exportstream"
	default:
		return "unary"
	}
}

// Method is one entry in a node's exported-methods table.
type Method struct {
	Name string
	Kind MethodKind
}

// Node is a driver tree node (spec §3). Concrete drivers implement it
// directly; tree.Proxy (internal/tree/proxy.go) is the one built-in
// implementation that stands for a target resolved by path, which the
// tree looks up in its place.
type Node interface {
	// UUID is the node's stable 128-bit identifier, generated once at
	// construction and unchanged for the session's lifetime.
	UUID() uuid.UUID
	// Labels returns the node's string->string label set; "name" is
	// always present and determines the node's position in the tree.
	Labels() map[string]string
	// ClientClass is the opaque dotted identifier the client resolves to
	// a concrete proxy class (spec §4.7).
	ClientClass() string
	// Children returns the node's ordered child list. Iteration order is
	// the order enumerate() must preserve.
	Children() []Node
	// Methods returns the node's exported-methods table.
	Methods() []Method
	// Call invokes a unary method's underlying implementation
	// (CallStreaming covers streaming methods); the dispatcher (internal/dispatch) is responsible
	// for validating the method's tag before calling this.
	Call(ctx CallContext, method string, args Value) (Value, error)
	// CallStreaming invokes a streaming method, delivering each produced
	// value to emit until the method's iterator completes or errors.
	CallStreaming(ctx CallContext, method string, args Value, emit func(Value) error) error
	// Close runs the node's teardown hook. The session calls Close on
	// every node in reverse enumeration order at shutdown (spec §4.5).
	Close() error
}

// CallContext is the subset of context.Context plus call metadata that
// driver implementations need; kept as its own type (rather than a bare
// context.Context) so call-id correlation (spec §3's "monotonically
// increasing call-id, used only for log correlation") travels alongside
// cancellation without every driver importing the session package.
type CallContext interface {
	Done() <-chan struct{}
	Err() error
	CallID() uint64
}

// Value is the in-process representation of a structured-value argument
// or return (spec §4.1). It mirrors wire.Value's shape without importing
// the wire package from domain, keeping the dependency direction
// transport-depends-on-domain rather than the reverse.
type Value struct {
	Null   bool
	Bool   *bool
	Number *float64
	String *string
	List   []Value
	Object map[string]Value
}

// PowerReading is the canonical example of a server-streaming return type
// (spec §3): apparent power is the product of voltage and current.
type PowerReading struct {
	Voltage float64
	Current float64
}

// Apparent returns the reading's apparent power (voltage * current).
func (r PowerReading) Apparent() float64 { return r.Voltage * r.Current }

// ReportEntry is the domain-level, decoded form of one wire.DriverReportEntry.
type ReportEntry struct {
	UUID        uuid.UUID
	ParentUUID  uuid.UUID // zero value when this is the report's root entry
	Labels      map[string]string
	ClientClass string
}

// Report is the decoded driver report (spec §3): an ordered list of
// entries in pre-order traversal order, one per non-Proxy node plus, for
// each Proxy, its target's entry repeated at the Proxy's position.
type Report struct {
	Entries []ReportEntry
}
