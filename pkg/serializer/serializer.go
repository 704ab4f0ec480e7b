package serializer

import (
	"encoding/json"
	"fmt"
)

// 编码名称，对应配置项取值
const (
	NameJSON    = "json"
	NameMsgpack = "msgpack"
)

// Serializer 序列化器接口
type Serializer interface {
	Serialize(v any) ([]byte, error)
	Deserialize(data []byte, v any) error
	// ContentType 写入消息头，供下游选择解码方式
	ContentType() string
}

// New 按名称创建序列化器，空名称使用 JSON
func New(name string) (Serializer, error) {
	switch name {
	case "", NameJSON:
		return JSON{}, nil
	case NameMsgpack:
		return Msgpack{}, nil
	default:
		return nil, fmt.Errorf("serializer: unknown encoding %q", name)
	}
}

// JSON JSON 序列化器
type JSON struct{}

func (JSON) Serialize(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSON) Deserialize(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (JSON) ContentType() string {
	return "application/json"
}
