// Package web exposes the cabinet-facing HTTP surface: the per-service
// envelope endpoints, the service directory and a permissive catch-all for
// the stray requests cabinets make outside the protocol proper.
package web

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/573dev/gfdm-server/internal/eamuse/codec"
	"github.com/573dev/gfdm-server/internal/eamuse/envelope"
	"github.com/573dev/gfdm-server/internal/logging"
	"github.com/573dev/gfdm-server/internal/server/services"
)

// Cabinet payloads are small; anything bigger than this is not protocol
// traffic.
const maxBodyBytes = 4 << 20

// Gateway bridges HTTP to the envelope pipeline and the service registry.
type Gateway struct {
	envelope  *envelope.Envelope
	registry  *services.Registry
	directory *services.Directory
	logger    logging.Logger
}

func NewGateway(env *envelope.Envelope, registry *services.Registry,
	directory *services.Directory, logger logging.Logger) *Gateway {
	return &Gateway{
		envelope:  env,
		registry:  registry,
		directory: directory,
		logger:    logger.With("module", "web"),
	}
}

// NewRouter mounts the gateway. Everything a cabinet POSTs lands on one of
// the two real routes; anything else is acknowledged and logged so unknown
// cabinet behavior shows up in the logs instead of as connection errors.
func NewRouter(gw *Gateway) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/service/{id:[0-9]+}/", gw.Service).Methods(http.MethodPost)
	r.HandleFunc("/services/", gw.Directory).Methods(http.MethodPost)
	r.PathPrefix("/").HandlerFunc(gw.CatchAll)

	return r
}

// Service handles POST /service/{id}/: decode the envelope, dispatch to the
// routed handler, encode the reply with mirrored transport headers.
func (gw *Gateway) Service(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	routeID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		// The route pattern admits digit strings beyond int range.
		gw.logger.Error(ctx, "unparseable route id", "id", mux.Vars(r)["id"], "error", err)
		http.Error(w, "bad route", http.StatusInternalServerError)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		gw.logger.Error(ctx, "reading request body", "route", routeID, "error", err)
		http.Error(w, "bad request", http.StatusInternalServerError)
		return
	}

	req, err := gw.envelope.Decode(ctx, body, r.Header)
	if err != nil {
		gw.logger.Error(ctx, "envelope decode failed", "route", routeID, "error", err)
		http.Error(w, "envelope error", http.StatusInternalServerError)
		return
	}

	doc, err := gw.registry.Dispatch(ctx, routeID, req)
	if err != nil {
		gw.logger.Error(ctx, "dispatch failed",
			"route", routeID, "service", req.Module, "method", req.Method,
			"uid", req.UID(), "error", err)
		http.Error(w, "service error", http.StatusInternalServerError)
		return
	}

	gw.respond(w, r, req, doc)
}

// Directory handles POST /services/: the static service table, carried
// through the same envelope pipeline as everything else.
func (gw *Gateway) Directory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		gw.logger.Error(ctx, "reading request body", "route", "services", "error", err)
		http.Error(w, "bad request", http.StatusInternalServerError)
		return
	}

	req, err := gw.envelope.Decode(ctx, body, r.Header)
	if err != nil {
		gw.logger.Error(ctx, "envelope decode failed", "route", "services", "error", err)
		http.Error(w, "envelope error", http.StatusInternalServerError)
		return
	}

	gw.respond(w, r, req, gw.directory.Document())
}

// CatchAll acknowledges anything outside the protocol. Cabinets probe a few
// extra paths at boot and only need a 200 back.
func (gw *Gateway) CatchAll(w http.ResponseWriter, r *http.Request) {
	gw.logger.Info(r.Context(), "unhandled request", "http_method", r.Method, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
}

func (gw *Gateway) respond(w http.ResponseWriter, r *http.Request,
	req *envelope.Request, doc *codec.Node) {
	out, header, err := gw.envelope.Encode(r.Context(), req, doc)
	if err != nil {
		gw.logger.Error(r.Context(), "envelope encode failed", "uid", req.UID(), "error", err)
		http.Error(w, "envelope error", http.StatusInternalServerError)
		return
	}

	for name, values := range header {
		for _, v := range values {
			w.Header().Add(name, v)
		}
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(out); err != nil {
		gw.logger.Warn(r.Context(), "writing response", "uid", req.UID(), "error", err)
	}
}
