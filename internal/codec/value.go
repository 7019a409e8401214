// Package codec implements the structured-value round trip of spec §4.1,
// modeled directly on the original Python implementation's
// jumpstarter/common/serde.py: encode_value/decode_value there wrap a
// single pydantic TypeAdapter(Any) around json_format.ParseDict/
// MessageToDict; here Encode/Decode wrap encoding/json around
// google.golang.org/protobuf/types/known/structpb, generalized (per
// SPEC_FULL) from "one declared pydantic model" to a schema registry keyed
// by (clientClass, method).
package codec

import (
	"encoding/json"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/jumpstarter-dev/jumpstarter-go/internal/domain"
	"github.com/jumpstarter-dev/jumpstarter-go/internal/jerrors"
)

// Encode converts an arbitrary Go value into the in-process domain.Value
// representation of spec §4.1. Bytes are rejected: byte transport goes
// through streams or resource handles, never through Value.
func Encode(v any) (domain.Value, error) {
	if _, ok := v.([]byte); ok {
		return domain.Value{}, jerrors.New(jerrors.InvalidArgument, "raw bytes cannot be encoded as a Value; use a stream or resource handle")
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return domain.Value{}, jerrors.Wrap(jerrors.InvalidArgument, "encode value", err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return domain.Value{}, jerrors.Wrap(jerrors.InvalidArgument, "encode value", err)
	}
	return fromGeneric(generic), nil
}

// Decode converts a domain.Value back into out, which must be a pointer.
func Decode(v domain.Value, out any) error {
	raw, err := json.Marshal(toGeneric(v))
	if err != nil {
		return jerrors.Wrap(jerrors.InvalidArgument, "decode value", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return jerrors.Wrap(jerrors.InvalidArgument, "decode value: schema mismatch", err)
	}
	return nil
}

func fromGeneric(v any) domain.Value {
	switch t := v.(type) {
	case nil:
		return domain.Value{Null: true}
	case bool:
		return domain.Value{Bool: &t}
	case float64:
		return domain.Value{Number: &t}
	case string:
		return domain.Value{String: &t}
	case []any:
		list := make([]domain.Value, len(t))
		for i, e := range t {
			list[i] = fromGeneric(e)
		}
		return domain.Value{List: list}
	case map[string]any:
		obj := make(map[string]domain.Value, len(t))
		for k, e := range t {
			obj[k] = fromGeneric(e)
		}
		return domain.Value{Object: obj}
	default:
		return domain.Value{Null: true}
	}
}

func toGeneric(v domain.Value) any {
	switch {
	case v.Bool != nil:
		return *v.Bool
	case v.Number != nil:
		return *v.Number
	case v.String != nil:
		return *v.String
	case v.List != nil:
		out := make([]any, len(v.List))
		for i, e := range v.List {
			out[i] = toGeneric(e)
		}
		return out
	case v.Object != nil:
		out := make(map[string]any, len(v.Object))
		for k, e := range v.Object {
			out[k] = toGeneric(e)
		}
		return out
	default:
		return nil
	}
}

// ToStructpb converts a domain.Value into the real protobuf structured
// value type carried over the wire (spec §4.1, §6).
func ToStructpb(v domain.Value) (*structpb.Value, error) {
	pv, err := structpb.NewValue(toGeneric(v))
	if err != nil {
		return nil, jerrors.Wrap(jerrors.InvalidArgument, "value not representable as structpb.Value", err)
	}
	return pv, nil
}

// FromStructpb converts the wire structured value back into a domain.Value.
func FromStructpb(pv *structpb.Value) (domain.Value, error) {
	if pv == nil {
		return domain.Value{Null: true}, nil
	}
	return fromGeneric(pv.AsInterface()), nil
}

// FromStructpbError adapts structpb conversion errors into the
// InvalidArgument kind spec §4.1 prescribes for schema/discriminator
// mismatches; kept distinct from the Internal-default ToStatus mapping.
func FromStructpbError(err error) error {
	return jerrors.Wrap(jerrors.InvalidArgument, "invalid structured value", err)
}
