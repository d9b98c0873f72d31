// Package store persists exported match logs. A match log is written as one
// JSON document either to a local file or to an S3 object.
package store

import (
	"context"
	"time"
)

// Export is the stored shape of a match log.
type Export struct {
	Timestamp  time.Time `json:"Timestamp"`
	TotalMoves int       `json:"TotalMoves"`
	LogEntries []string  `json:"LogEntries"`
}

// NewExport stamps entries with the current time.
func NewExport(entries []string) Export {
	return Export{
		Timestamp:  time.Now(),
		TotalMoves: len(entries),
		LogEntries: append([]string(nil), entries...),
	}
}

// Sink saves and loads a single match log.
//
//go:generate mockery --name=Sink --output=automock --outpkg=automock --case=underscore
type Sink interface {
	Save(ctx context.Context, export Export) error
	Load(ctx context.Context) (Export, error)
}

var (
	_ Sink = (*FileStore)(nil)
	_ Sink = (*S3Store)(nil)
)
