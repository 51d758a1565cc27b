package codec

import "fmt"

// Raw stores string and []byte values verbatim. Any other type is rejected.
// Useful for rendered HTML fragments, where JSON escaping only adds bytes.
type Raw struct{}

var _ Codec = Raw{}

func (Raw) Marshal(v any) ([]byte, error) {
	switch x := v.(type) {
	case string:
		return []byte(x), nil
	case []byte:
		return x, nil
	default:
		return nil, fmt.Errorf("codec: raw: unsupported type %T", v)
	}
}

func (Raw) Unmarshal(b []byte, ptr any) error {
	switch p := ptr.(type) {
	case *string:
		*p = string(b)
	case *[]byte:
		*p = append([]byte(nil), b...)
	default:
		return fmt.Errorf("codec: raw: unsupported target %T", ptr)
	}
	return nil
}
