// Package wire holds the wire-stable shapes of the Exporter gRPC service
// (spec §6). It is written by hand in the shape protoc-gen-go and
// protoc-gen-go-grpc would produce from a .proto file, because no protoc
// toolchain is available in this environment — see codec.go for how these
// structs travel over grpc without protobuf wire encoding. The `protobuf:`
// tags document the field numbering a real .proto would assign and are not
// otherwise consumed.
package wire

import (
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Value wraps the canonical structured-value protobuf type (spec §4.1) so
// it can ride the JSON codec while remaining the real
// google.golang.org/protobuf/types/known/structpb.Value underneath —
// object/array/string/number/bool/null, never raw bytes.
type Value struct {
	*structpb.Value
}

func NewValue(v *structpb.Value) Value { return Value{Value: v} }

func (v Value) MarshalJSON() ([]byte, error) {
	if v.Value == nil {
		return []byte("null"), nil
	}
	return protojson.Marshal(v.Value)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		v.Value = nil
		return nil
	}
	pv := &structpb.Value{}
	if err := protojson.Unmarshal(data, pv); err != nil {
		return err
	}
	v.Value = pv
	return nil
}

// DriverReportEntry is one flattened node in a DriverReport (spec §3).
type DriverReportEntry struct {
	UUID        string            `json:"uuid" protobuf:"bytes,1,opt,name=uuid,proto3"`
	ParentUUID  string            `json:"parent_uuid,omitempty" protobuf:"bytes,2,opt,name=parent_uuid,proto3"`
	Labels      map[string]string `json:"labels" protobuf:"bytes,3,rep,name=labels,proto3"`
	ClientClass string            `json:"client_class" protobuf:"bytes,4,opt,name=client_class,proto3"`
}

type DriverReport struct {
	Entries []*DriverReportEntry `json:"entries" protobuf:"bytes,1,rep,name=entries,proto3"`
}

type GetReportRequest struct{}

type DriverCallRequest struct {
	Uuid   string `json:"uuid" protobuf:"bytes,1,opt,name=uuid,proto3"`
	Method string `json:"method" protobuf:"bytes,2,opt,name=method,proto3"`
	Args   Value  `json:"args" protobuf:"bytes,3,opt,name=args,proto3"`
}

type DriverCallResponse struct {
	Value Value `json:"value" protobuf:"bytes,1,opt,name=value,proto3"`
}

type StreamingDriverCallResponse struct {
	Value Value `json:"value" protobuf:"bytes,1,opt,name=value,proto3"`
}

// DriverStreamRef identifies an exportstream method open (spec §4.4).
type DriverStreamRef struct {
	Uuid   string `json:"uuid" protobuf:"bytes,1,opt,name=uuid,proto3"`
	Method string `json:"method" protobuf:"bytes,2,opt,name=method,proto3"`
}

// ResourceStreamRef attaches the client end of a resource stream (spec §4.6).
type ResourceStreamRef struct {
	Uuid string `json:"uuid" protobuf:"bytes,1,opt,name=uuid,proto3"`
}

// StreamRequest is the tagged variant carried by the first Stream message.
type StreamRequest struct {
	Driver   *DriverStreamRef   `json:"driver,omitempty" protobuf:"bytes,1,opt,name=driver,proto3"`
	Resource *ResourceStreamRef `json:"resource,omitempty" protobuf:"bytes,2,opt,name=resource,proto3"`
}

// StreamFrame is one message of the bidirectional Stream call: the
// client's first frame carries Metadata; every other frame, in either
// direction, carries Payload (spec §6).
type StreamFrame struct {
	Metadata *StreamRequest `json:"metadata,omitempty" protobuf:"bytes,1,opt,name=metadata,proto3"`
	Payload  []byte         `json:"payload,omitempty" protobuf:"bytes,2,opt,name=payload,proto3"`
}

type LogStreamRequest struct{}

// LogRecord is one fanned-out exporter-side log line (spec §4.5 item 5).
type LogRecord struct {
	Ts      int64  `json:"ts" protobuf:"varint,1,opt,name=ts,proto3"`
	Level   string `json:"level" protobuf:"bytes,2,opt,name=level,proto3"`
	Logger  string `json:"logger" protobuf:"bytes,3,opt,name=logger,proto3"`
	Source  string `json:"source" protobuf:"bytes,4,opt,name=source,proto3"`
	Message string `json:"message" protobuf:"bytes,5,opt,name=message,proto3"`
	// Gap is set instead of the above fields when a subscriber fell behind
	// and entries between the previous record and this one were dropped.
	Gap *LogGapMarker `json:"gap,omitempty" protobuf:"bytes,6,opt,name=gap,proto3"`
}

// LogGapMarker documents the drop-oldest backpressure policy chosen for
// LogStream (spec §4.5, §9 open question). ID is a ulid so markers sort
// monotonically alongside the records they replace.
type LogGapMarker struct {
	ID      string `json:"id" protobuf:"bytes,1,opt,name=id,proto3"`
	Dropped int    `json:"dropped" protobuf:"varint,2,opt,name=dropped,proto3"`
}
