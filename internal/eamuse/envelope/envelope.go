// Package envelope implements the transport wrapper around cabinet documents:
// header-driven encryption and compression negotiation on the way in, and the
// mirrored transform chain on the way out.
//
// The two transforms are independent. Encryption is signalled by the presence
// of the x-eamuse-info header, whose value is also the key-derivation token.
// Compression is signalled by x-compress naming an algorithm; anything other
// than "lz77" is treated as uncompressed. The response always re-uses the
// request's compression decision and mints a fresh cipher token.
package envelope

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/573dev/gfdm-server/internal/eamuse/archive"
	"github.com/573dev/gfdm-server/internal/eamuse/cipher"
	"github.com/573dev/gfdm-server/internal/eamuse/codec"
	"github.com/573dev/gfdm-server/internal/eamuse/lz77"
	"github.com/573dev/gfdm-server/internal/logging"
)

// Transport header names (matched case-insensitively by net/http).
const (
	HeaderInfo     = "X-Eamuse-Info"
	HeaderCompress = "X-Compress"
)

// Recognized x-compress values.
const (
	CompressLZ77 = "lz77"
	CompressNone = "none"
)

// Pipeline stages reported by TransportError.
const (
	StageDecrypt    = "decrypt"
	StageDecompress = "decompress"
	StageDecode     = "decode"
	StageEncode     = "encode"
	StageEncrypt    = "encrypt"
)

// TransportError is fatal for the request: the payload could not be carried
// through the envelope in either direction.
type TransportError struct {
	Stage string
	Err   error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("envelope: %s: %v", e.Stage, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Request is a decoded inbound envelope: the document plus the routing
// fields and the transport state the response must mirror.
type Request struct {
	Document *codec.Node

	// Routing fields; absent attributes hold codec.AttrNone.
	Model   string
	Module  string
	Method  string
	Command string

	// Transport state, mirrored on the response path.
	Encrypted   bool
	Compression string

	uid string
}

// UID correlates this request with its archived documents and its response.
func (r *Request) UID() string { return r.uid }

// Envelope drives the decode and encode pipelines.
type Envelope struct {
	codec  codec.Codec
	sink   archive.Sink
	logger logging.Logger
}

// New wires an Envelope. The sink may be archive.NopSink to disable the
// diagnostic side channel.
func New(c codec.Codec, sink archive.Sink, logger logging.Logger) *Envelope {
	return &Envelope{codec: c, sink: sink, logger: logger.With("module", "envelope")}
}

// Decode runs decrypt → decompress → codec decode → routing extraction.
func (e *Envelope) Decode(ctx context.Context, body []byte, header http.Header) (*Request, error) {
	req := &Request{Compression: CompressNone}

	if token := header.Get(HeaderInfo); token != "" {
		c, err := cipher.New(token)
		if err != nil {
			return nil, &TransportError{Stage: StageDecrypt, Err: err}
		}
		body = c.Crypt(body)
		req.Encrypted = true
		req.uid = token
	} else {
		req.uid = uuid.NewString()[:8]
	}

	if compress := header.Get(HeaderCompress); compress == CompressLZ77 {
		decompressed, err := lz77.Decompress(body)
		if err != nil {
			return nil, &TransportError{Stage: StageDecompress, Err: err}
		}
		body = decompressed
		req.Compression = CompressLZ77
	}

	doc, err := e.codec.Decode(body)
	if err != nil {
		return nil, &TransportError{Stage: StageDecode, Err: err}
	}

	module := doc.FirstChild()
	if module == nil {
		return nil, &TransportError{Stage: StageDecode,
			Err: fmt.Errorf("document %q has no module element", doc.Name)}
	}

	req.Document = doc
	req.Model = doc.Attr("model")
	req.Module = module.Name
	req.Method = module.Attr("method")
	req.Command = module.Attr("command")

	e.store(ctx, req.uid, archive.Request, body)
	e.logger.Debug(ctx, "decoded request",
		"model", req.Model, "service", req.Module, "method", req.Method,
		"command", req.Command, "encrypted", req.Encrypted, "compression", req.Compression)

	return req, nil
}

// Encode runs codec encode → compress → encrypt and builds the response
// headers, mirroring the transport decisions taken on the request.
func (e *Envelope) Encode(ctx context.Context, req *Request, doc *codec.Node) ([]byte, http.Header, error) {
	header := http.Header{}
	header.Set("Content-Type", "application/octet-stream")
	header.Set("Server", "Microsoft-HTTPAPI/2.0")

	body, err := e.codec.Encode(doc)
	if err != nil {
		return nil, nil, &TransportError{Stage: StageEncode, Err: err}
	}

	uid := req.uid
	var c *cipher.Cipher
	var token string
	if req.Encrypted {
		token, err = cipher.MintToken()
		if err != nil {
			return nil, nil, &TransportError{Stage: StageEncrypt, Err: err}
		}
		if c, err = cipher.New(token); err != nil {
			return nil, nil, &TransportError{Stage: StageEncrypt, Err: err}
		}
		uid = token
	}

	e.store(ctx, uid, archive.Response, body)

	if req.Compression == CompressLZ77 {
		body = lz77.Compress(body)
		header.Set(HeaderCompress, CompressLZ77)
	}

	if req.Encrypted {
		body = c.Crypt(body)
		header.Set(HeaderInfo, token)
	}

	return body, header, nil
}

// store feeds the diagnostic sink. Sink failures are logged and dropped;
// the side channel must never influence request handling.
func (e *Envelope) store(ctx context.Context, uid string, dir archive.Direction, data []byte) {
	if err := e.sink.Store(ctx, uid, dir, data); err != nil {
		e.logger.Warn(ctx, "traffic archive failed", "uid", uid, "direction", string(dir), "error", err)
	}
}
