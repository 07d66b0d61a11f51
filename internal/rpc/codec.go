package rpc

import (
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

// CodecName is the content subtype of the draft service messages
const CodecName = "json"

// jsonCodec carries the draft messages as JSON so they share the HTTP
// API's wire shapes. Health and reflection keep using protobuf.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return CodecName
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// JSON is the call option clients pass to talk to the draft service
func JSON() grpc.CallOption {
	return grpc.CallContentSubtype(CodecName)
}
