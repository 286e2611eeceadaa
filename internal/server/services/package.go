package services

import (
	"context"

	"github.com/573dev/gfdm-server/internal/eamuse/codec"
	"github.com/573dev/gfdm-server/internal/eamuse/envelope"
)

// Package would serve downloadable updates. None are offered, so list
// returns an empty node and cabinets carry on.
type Package struct{}

func NewPackage() *Package {
	return &Package{}
}

func (s *Package) Handlers() map[string]Handler {
	return map[string]Handler{
		"list": s.List,
	}
}

// List handles:
//
//	<package method="list" pkgtype="all"/>
func (s *Package) List(ctx context.Context, req *envelope.Request) (*codec.Node, error) {
	return codec.New("response").Add(codec.New("package")), nil
}
