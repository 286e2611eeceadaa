package services

import (
	"context"

	"github.com/573dev/gfdm-server/internal/eamuse/codec"
	"github.com/573dev/gfdm-server/internal/eamuse/envelope"
	"github.com/573dev/gfdm-server/internal/logging"
)

// PCBTracker answers the cabinet's first liveness request. Its one method
// of note reports whether e-money (PASELI) is enabled for the session; this
// deployment keeps it off.
type PCBTracker struct {
	logger       logging.Logger
	paseliActive bool
}

func NewPCBTracker(logger logging.Logger) *PCBTracker {
	return &PCBTracker{logger: logger.With("service", "pcbtracker")}
}

func (s *PCBTracker) Handlers() map[string]Handler {
	return map[string]Handler{
		"alive": s.Alive,
	}
}

// Alive handles:
//
//	<pcbtracker hardid="010074D435AAD895" method="alive" softid=""/>
func (s *PCBTracker) Alive(ctx context.Context, req *envelope.Request) (*codec.Node, error) {
	module := req.Document.FirstChild()
	s.logger.Info(ctx, "cabinet alive",
		"hardid", module.Attr("hardid"), "softid", module.Attr("softid"))

	return codec.New("response").Add(
		codec.New("pcbtracker",
			"ecenable", boolAttr(s.paseliActive),
			"expire", "600")), nil
}

// boolAttr renders the protocol's boolean-as-int convention. The raw "0"/"1"
// strings stay at this boundary and never leak into domain logic.
func boolAttr(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
