// Package media defines the collaborators the editor core consumes: probing,
// byte fetching and the recording library.
package media

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrAborted is returned when a load or seek is superseded by a newer one
	ErrAborted = errors.New("media operation aborted")
	// ErrNotFound is returned for unknown media ids
	ErrNotFound = errors.New("media not found")
)

// Info is what the core needs to know about a source
type Info struct {
	Width    int
	Height   int
	Duration float64
	FPS      float64
	HasAudio bool
	Codec    string
}

// Entry describes one stored recording
type Entry struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	MIMEType  string    `json:"mimeType"`
	Duration  float64   `json:"duration"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}

// Prober reads dimensions and duration of a source
type Prober interface {
	Probe(ctx context.Context, ref string) (Info, error)
}

// Fetcher returns the bytes behind a source reference
type Fetcher interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// Library is the recording store as seen by the editor
type Library interface {
	ListMedia(ctx context.Context) ([]Entry, error)
	GetMediaBytes(ctx context.Context, id string) ([]byte, error)
}

// StoreRef builds a reference to a library recording
func StoreRef(id string) string {
	return storePrefix + id
}

const storePrefix = "store:"
