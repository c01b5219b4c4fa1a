package metaclient

import (
	"bytes"
	"encoding/gob"

	"google.golang.org/grpc/encoding"
)

// gobCodec lets GRPCClient call the meta service over grpc.ClientConn.Invoke
// without generated protobuf stubs: the write path's meta RPC wire format is
// explicitly out of scope, so rather than hand-fabricate.pb.go files we
// register a real grpc-go codec (the same extension point production gRPC
// codecs like msgpack-codec use) and let grpc handle framing/compression/
// retries as usual.
type gobCodec struct{}

func (gobCodec) Name() string { return codecName }

const codecName = "gob"

func (gobCodec) Marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (gobCodec) Unmarshal(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

func init() {
	encoding.RegisterCodec(gobCodec{})
}
