package services

import (
	"context"

	"github.com/573dev/gfdm-server/internal/eamuse/codec"
	"github.com/573dev/gfdm-server/internal/eamuse/envelope"
)

// FacilityInfo is the operator-configured description of the arcade this
// server fronts. It is advertised verbatim to every cabinet.
type FacilityInfo struct {
	ID      string
	Country string
	Region  string
	Name    string
}

// Facility tells the cabinet where it lives: arcade location, line class
// and the port-forwarding block for cabinet-to-cabinet session play.
type Facility struct {
	info FacilityInfo
}

func NewFacility(info FacilityInfo) *Facility {
	return &Facility{info: info}
}

func (s *Facility) Handlers() map[string]Handler {
	return map[string]Handler{
		"get": s.Get,
	}
}

// Get handles:
//
//	<facility encoding="SHIFT_JIS" method="get"/>
func (s *Facility) Get(ctx context.Context, req *envelope.Request) (*codec.Node, error) {
	location := codec.New("location").Add(
		codec.Typed("id", codec.TypeStr, s.info.ID),
		codec.Typed("country", codec.TypeStr, s.info.Country),
		codec.Typed("region", codec.TypeStr, s.info.Region),
		codec.Typed("name", codec.TypeStr, s.info.Name),
		codec.Typed("type", codec.TypeU8, "0"))

	line := codec.New("line").Add(
		codec.Typed("id", codec.TypeStr, ""),
		codec.Typed("class", codec.TypeU8, "0"))

	portfw := codec.New("portfw").Add(
		codec.Typed("globalip", codec.TypeIP4, "127.0.0.1"),
		codec.Typed("globalport", codec.TypeU16, "80"),
		codec.Typed("privateport", codec.TypeU16, "80"))

	public := codec.New("public").Add(
		codec.Typed("flag", codec.TypeU8, "1"),
		codec.Typed("name", codec.TypeStr, ""),
		codec.Typed("latitude", codec.TypeStr, "0"),
		codec.Typed("longitude", codec.TypeStr, "0"))

	share := codec.New("share").Add(
		codec.New("eacoin").Add(
			codec.Typed("notchamount", codec.TypeS32, "0"),
			codec.Typed("notchcount", codec.TypeS32, "0"),
			codec.Typed("supplylimit", codec.TypeS32, "10000")),
		codec.New("url").Add(
			codec.Typed("eapass", codec.TypeStr, "www.ea-pass.konami.net"),
			codec.Typed("arcadefan", codec.TypeStr, "www.konami.jp/am"),
			codec.Typed("konaminetdx", codec.TypeStr, "http://am.573.jp"),
			codec.Typed("konamiid", codec.TypeStr, "http://id.konami.net"),
			codec.Typed("eagate", codec.TypeStr, "http://eagate.573.jp")))

	return codec.New("response").Add(
		codec.New("facility", "expire", "600").Add(
			location, line, portfw, public, share)), nil
}
