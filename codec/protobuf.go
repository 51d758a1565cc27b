package codec

import (
	"fmt"
	"reflect"

	"google.golang.org/protobuf/proto"
)

// Protobuf encodes proto.Message values.
//
// Unmarshal accepts either a proto.Message or a pointer to a (possibly nil)
// message pointer, e.g. **pb.User; a nil message is allocated.
type Protobuf struct {
	Marshaler   proto.MarshalOptions
	Unmarshaler proto.UnmarshalOptions
}

var _ Codec = Protobuf{}

func (c Protobuf) Marshal(v any) ([]byte, error) {
	m, ok := v.(proto.Message)
	if !ok {
		return nil, fmt.Errorf("codec: protobuf: %T is not a proto.Message", v)
	}
	return c.Marshaler.Marshal(m)
}

func (c Protobuf) Unmarshal(b []byte, ptr any) error {
	if m, ok := ptr.(proto.Message); ok {
		return c.Unmarshaler.Unmarshal(b, m)
	}
	rv := reflect.ValueOf(ptr)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("codec: protobuf: need non-nil pointer, got %T", ptr)
	}
	elem := rv.Elem()
	if elem.Kind() == reflect.Pointer && elem.IsNil() {
		elem.Set(reflect.New(elem.Type().Elem()))
	}
	m, ok := elem.Interface().(proto.Message)
	if !ok {
		return fmt.Errorf("codec: protobuf: %T does not point to a proto.Message", ptr)
	}
	return c.Unmarshaler.Unmarshal(b, m)
}
