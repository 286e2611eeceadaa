package services

import (
	"context"

	"github.com/573dev/gfdm-server/internal/eamuse/codec"
	"github.com/573dev/gfdm-server/internal/eamuse/envelope"
)

// DLStatus acknowledges download progress reports.
type DLStatus struct{}

func NewDLStatus() *DLStatus {
	return &DLStatus{}
}

func (s *DLStatus) Handlers() map[string]Handler {
	return map[string]Handler{
		"progress": s.Progress,
	}
}

// Progress handles:
//
//	<dlstatus method="progress">
//	    <progress __type="s32">0</progress>
//	</dlstatus>
func (s *DLStatus) Progress(ctx context.Context, req *envelope.Request) (*codec.Node, error) {
	return codec.New("response").Add(
		codec.New("dlstatus", "expire", "600")), nil
}
