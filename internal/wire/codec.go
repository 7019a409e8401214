package wire

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// jsonCodec replaces grpc's default protobuf-wire codec with a plain JSON
// encoding of the message structs in this package. The fabric's service
// definition (exporter_service.go) is hand-authored in the shape
// protoc-gen-go-grpc would produce, but without a .proto/protoc toolchain
// available, the message types' `protobuf:` struct tags are documentation
// only — wire encoding goes through this codec, driven by their `json:`
// tags, instead of protobuf's wire format. Registering
// under the name "proto" makes it the process-wide default, so every
// grpc.Dial/grpc.NewServer call site needs no per-call codec option.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string { return "proto" }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
