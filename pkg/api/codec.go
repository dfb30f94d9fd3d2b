// Package api defines the Fare Connect RPC surface: message types,
// procedure names, handler constructors and typed clients.
//
// Messages are plain Go structs encoded as JSON. Servers and clients built
// by this package install the JSON codec themselves, so the endpoints can
// be called with any Connect client speaking application/json, or with
// plain HTTP:
//
//	curl -X POST -H 'Content-Type: application/json' \
//	     -d '{"time_slot_id":"..."}' \
//	     http://localhost:8080/fare.v1.MatchingService/PreviewMatching
package api

import (
	"encoding/json"

	"connectrpc.com/connect"
)

// CodecName is the codec name carried in Content-Type headers.
const CodecName = "json"

type jsonCodec struct{}

var _ connect.Codec = jsonCodec{}

func (jsonCodec) Name() string { return CodecName }

func (jsonCodec) Marshal(msg any) ([]byte, error) { return json.Marshal(msg) }

func (jsonCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, msg)
}

// WithJSON is the Connect option that installs the JSON codec on a handler
// or client.
func WithJSON() connect.Option {
	return connect.WithCodec(jsonCodec{})
}
