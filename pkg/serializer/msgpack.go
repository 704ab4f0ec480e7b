package serializer

import (
	"bytes"
	"reflect"

	"github.com/hashicorp/go-msgpack/v2/codec"

	"github.com/lk2023060901/xdooria-gacha/pkg/pool/bytebuff"
)

// msgpackHandle 解码到 interface 时使用 map[string]any
var msgpackHandle = &codec.MsgpackHandle{}

func init() {
	msgpackHandle.MapType = reflect.TypeOf(map[string]any{})
	msgpackHandle.RawToString = true
	msgpackHandle.WriteExt = true
}

// Msgpack msgpack 序列化器
type Msgpack struct{}

func (Msgpack) Serialize(v any) ([]byte, error) {
	buf := bytebuff.Get()
	defer bytebuff.Put(buf)

	if err := codec.NewEncoder(buf, msgpackHandle).Encode(v); err != nil {
		return nil, err
	}
	return bytebuff.Bytes(buf), nil
}

func (Msgpack) Deserialize(data []byte, v any) error {
	return codec.NewDecoder(bytes.NewReader(data), msgpackHandle).Decode(v)
}

func (Msgpack) ContentType() string {
	return "application/msgpack"
}
