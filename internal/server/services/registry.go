// Package services maps numeric cabinet routes to named services and their
// method handlers, and implements the handlers themselves.
//
// Routes are stable protocol constants; within a service the method
// attribute selects the handler, except for the local service which routes
// on the module tag instead. All tables are built at startup: an unknown
// method is a checked branch, never a reflective lookup.
package services

import (
	"context"
	"fmt"

	"github.com/573dev/gfdm-server/internal/eamuse/codec"
	"github.com/573dev/gfdm-server/internal/eamuse/envelope"
	"github.com/573dev/gfdm-server/internal/logging"
	"github.com/573dev/gfdm-server/internal/server/identity"
)

// ServiceType numbers the services offered to cabinets. The values are part
// of the protocol surface (they appear in /service/<id>/ URLs) and must not
// be renumbered.
type ServiceType int

const (
	ServicePCBTracker ServiceType = iota + 1
	ServiceMessage
	ServicePCBEvent
	ServiceFacility
	ServicePackage
	ServiceCardMng
	ServiceLocal
	ServiceDLStatus
)

func (t ServiceType) String() string {
	switch t {
	case ServicePCBTracker:
		return "pcbtracker"
	case ServiceMessage:
		return "message"
	case ServicePCBEvent:
		return "pcbevent"
	case ServiceFacility:
		return "facility"
	case ServicePackage:
		return "package"
	case ServiceCardMng:
		return "cardmng"
	case ServiceLocal:
		return "local"
	case ServiceDLStatus:
		return "dlstatus"
	default:
		return fmt.Sprintf("service(%d)", int(t))
	}
}

// All lists every registered service type, in route order.
func All() []ServiceType {
	return []ServiceType{
		ServicePCBTracker, ServiceMessage, ServicePCBEvent, ServiceFacility,
		ServicePackage, ServiceCardMng, ServiceLocal, ServiceDLStatus,
	}
}

// RoutingError is fatal for one request: either the route id is not
// registered, or the service has no handler for the requested method. It
// carries enough context to spot unimplemented protocol surface in logs.
type RoutingError struct {
	RouteID int
	Service string
	Method  string
}

func (e *RoutingError) Error() string {
	if e.Service == "" {
		return fmt.Sprintf("unknown service route %d", e.RouteID)
	}
	return fmt.Sprintf("service %q has no handler for method %q", e.Service, e.Method)
}

// Handler processes one decoded request and produces the response document.
type Handler func(ctx context.Context, req *envelope.Request) (*codec.Node, error)

type service struct {
	name ServiceType
	// handlers is keyed by method name, or by module tag when byModule
	// is set (the local service multiplexes several modules).
	handlers map[string]Handler
	byModule bool
}

// Registry resolves route ids to services and invokes their handlers.
type Registry struct {
	services map[int]*service
	logger   logging.Logger
}

// NewRegistry builds the full static dispatch table.
func NewRegistry(store identity.Store, facility FacilityInfo, logger logging.Logger) *Registry {
	r := &Registry{
		services: make(map[int]*service),
		logger:   logger.With("module", "dispatch"),
	}

	r.add(ServicePCBTracker, false, NewPCBTracker(logger).Handlers())
	r.add(ServiceMessage, false, NewMessage().Handlers())
	r.add(ServicePCBEvent, false, NewPCBEvent(logger).Handlers())
	r.add(ServiceFacility, false, NewFacility(facility).Handlers())
	r.add(ServicePackage, false, NewPackage().Handlers())
	r.add(ServiceCardMng, false, NewCardMng(store, logger).Handlers())
	r.add(ServiceLocal, true, NewLocal(store, logger).Handlers())
	r.add(ServiceDLStatus, false, NewDLStatus().Handlers())

	return r
}

func (r *Registry) add(t ServiceType, byModule bool, handlers map[string]Handler) {
	r.services[int(t)] = &service{name: t, handlers: handlers, byModule: byModule}
}

// Resolve returns the service name for a route id.
func (r *Registry) Resolve(routeID int) (string, error) {
	svc, ok := r.services[routeID]
	if !ok {
		return "", &RoutingError{RouteID: routeID}
	}
	return svc.name.String(), nil
}

// Dispatch invokes the handler selected by the route id and the request's
// routing fields.
func (r *Registry) Dispatch(ctx context.Context, routeID int, req *envelope.Request) (*codec.Node, error) {
	svc, ok := r.services[routeID]
	if !ok {
		return nil, &RoutingError{RouteID: routeID}
	}

	key := req.Method
	if svc.byModule {
		key = req.Module
	}

	h, ok := svc.handlers[key]
	if !ok {
		return nil, &RoutingError{RouteID: routeID, Service: svc.name.String(), Method: key}
	}

	r.logger.Debug(ctx, "dispatching",
		"service", svc.name.String(), "method", req.Method, "module", req.Module)
	return h(ctx, req)
}
