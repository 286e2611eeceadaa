package services

import (
	"context"

	"github.com/573dev/gfdm-server/internal/eamuse/codec"
	"github.com/573dev/gfdm-server/internal/eamuse/envelope"
)

// Message serves operator messages. There are none; the response is a bare
// acknowledgement with an expiry.
type Message struct{}

func NewMessage() *Message {
	return &Message{}
}

func (s *Message) Handlers() map[string]Handler {
	return map[string]Handler{
		"get": s.Get,
	}
}

func (s *Message) Get(ctx context.Context, req *envelope.Request) (*codec.Node, error) {
	return codec.New("response").Add(
		codec.New("message", "expire", "600")), nil
}
