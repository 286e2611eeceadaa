// Package archive persists the decoded text form of cabinet traffic for
// diagnostics. Sinks are a side channel: failures are reported to the caller
// for logging but must never affect request handling, and the whole feature
// can be disabled by using the nop sink.
package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/573dev/gfdm-server/internal/filex"
)

// Direction tags a stored document as a request or a response.
type Direction string

const (
	Request  Direction = "req"
	Response Direction = "resp"
)

// Sink stores one decoded document. uid correlates the request/response pair.
type Sink interface {
	Store(ctx context.Context, uid string, dir Direction, data []byte) error
}

func objectName(uid string, dir Direction, at time.Time) string {
	return fmt.Sprintf("eamuse_%s_%s_%s.xml", at.Format("2006_01_02_15_04_05"), uid, dir)
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) Store(context.Context, string, Direction, []byte) error { return nil }

// DirSink writes each document to a file under a local directory.
type DirSink struct {
	dir string
}

// NewDirSink creates the directory if needed.
func NewDirSink(dir string) (*DirSink, error) {
	resolved, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, fmt.Errorf("archive: %w", err)
	}
	return &DirSink{dir: resolved}, nil
}

func (s *DirSink) Store(_ context.Context, uid string, dir Direction, data []byte) error {
	path := filepath.Join(s.dir, objectName(uid, dir, time.Now()))
	if err := os.WriteFile(path, data, 0o660); err != nil {
		return fmt.Errorf("archive: write %s: %w", path, err)
	}
	return nil
}
