package cache

import "github.com/vmihailenco/msgpack/v5"

// Weather payloads are stored as msgpack unless a cache overrides the codec.

func packMsgpack[T any](value T) ([]byte, error) {
	return msgpack.Marshal(value)
}

func unpackMsgpack[T any](data []byte) (value T, err error) {
	err = msgpack.Unmarshal(data, &value)
	return value, err
}
