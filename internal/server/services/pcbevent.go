package services

import (
	"context"
	"strconv"
	"time"

	"github.com/573dev/gfdm-server/internal/eamuse/codec"
	"github.com/573dev/gfdm-server/internal/eamuse/envelope"
	"github.com/573dev/gfdm-server/internal/logging"
)

// PCBEvent receives cabinet event reports (mode changes, coin events and the
// like). The server only records them; the acknowledgement carries no data.
type PCBEvent struct {
	logger logging.Logger
}

func NewPCBEvent(logger logging.Logger) *PCBEvent {
	return &PCBEvent{logger: logger.With("service", "pcbevent")}
}

func (s *PCBEvent) Handlers() map[string]Handler {
	return map[string]Handler{
		"put": s.Put,
	}
}

// Put handles:
//
//	<pcbevent method="put">
//	    <time __type="time">1602992385</time>
//	    <seq __type="u32">4</seq>
//	    <item>
//	        <name __type="str">K32.mode.std</name>
//	        <value __type="s32">1</value>
//	        <time __type="time">1602992363</time>
//	    </item>
//	</pcbevent>
func (s *PCBEvent) Put(ctx context.Context, req *envelope.Request) (*codec.Node, error) {
	module := req.Document.FirstChild()

	seq, _ := strconv.Atoi(module.ChildText("seq"))
	at := unixText(module.ChildText("time"))

	for _, child := range module.Children {
		if child.Name != "item" {
			continue
		}
		s.logger.Info(ctx, "cabinet event",
			"seq", seq,
			"reported_at", at,
			"name", child.ChildText("name"),
			"value", child.ChildText("value"),
			"at", unixText(child.ChildText("time")))
	}

	return codec.New("response").Add(
		codec.New("pcbevent", "expire", "600")), nil
}

func unixText(s string) time.Time {
	sec, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}
