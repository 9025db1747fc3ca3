package codec

import (
	"bytes"
	"encoding/json"
	"fmt"

	kratosencoding "github.com/go-kratos/kratos/v2/encoding"
	_ "github.com/go-kratos/kratos/v2/encoding/json"
	grpcencoding "google.golang.org/grpc/encoding"
)

// Name is both the gRPC content subtype and the kratos codec name.
const Name = "json"

// The kratos json package is imported above so its init runs first and
// this codec replaces it.
func init() {
	kratosencoding.RegisterCodec(jsonCodec{})
	grpcencoding.RegisterCodec(jsonCodec{})
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

// Unmarshal ignores unknown fields so older agents and collectors can talk
// to newer ones.
func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("json codec: %w", err)
	}
	return nil
}

func (jsonCodec) Name() string { return Name }
