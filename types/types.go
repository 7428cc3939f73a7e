package types

import (
	"context"
	"encoding/json"
	"math"
	"time"
)

// Triple is a single (entity, attribute, weight) fact, e.g. an artist tagged
// with a tag at a given rank count.
type Triple struct {
	Entity    string `json:"entity"`
	Attribute string `json:"attribute"`
	Weight    int    `json:"weight"`
}

// Artist is a chart entry with its popularity counters.
type Artist struct {
	Name      string `json:"name"`
	Listeners int64  `json:"listeners"`
	Playcount int64  `json:"playcount"`
}

// Axis selects which component of a Triple indexes the rows of a feature matrix.
type Axis int

const (
	// ByEntity builds one row per entity over the attribute columns (artist vectors).
	ByEntity Axis = iota
	// ByAttribute builds one row per attribute over the entity columns (tag vectors).
	ByAttribute
)

func (a Axis) String() string {
	if a == ByAttribute {
		return "attribute"
	}
	return "entity"
}

// Pair holds the correlation coefficient of two labels. Coef is NaN when the
// correlation is undefined.
type Pair struct {
	A    string
	B    string
	Coef float64
}

// Undefined reports whether the coefficient could not be computed.
func (p Pair) Undefined() bool {
	return math.IsNaN(p.Coef)
}

// Other returns the label paired with label, if label is part of the pair.
func (p Pair) Other(label string) (string, bool) {
	switch label {
	case p.A:
		return p.B, true
	case p.B:
		return p.A, true
	}
	return "", false
}

type pairJSON struct {
	A    string   `json:"a"`
	B    string   `json:"b"`
	Coef *float64 `json:"coef"`
}

// MarshalJSON encodes an undefined coefficient as null.
func (p Pair) MarshalJSON() ([]byte, error) {
	out := pairJSON{A: p.A, B: p.B}
	if !p.Undefined() {
		c := p.Coef
		out.Coef = &c
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a null coefficient back to NaN.
func (p *Pair) UnmarshalJSON(data []byte) error {
	var in pairJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	p.A, p.B = in.A, in.B
	if in.Coef == nil {
		p.Coef = math.NaN()
	} else {
		p.Coef = *in.Coef
	}
	return nil
}

// RankedItem is one entry of a ranked similarity list.
type RankedItem struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Dataset is a named array dump kept for inspection and charting.
// Values holds a row-major matrix of the given Shape whose rows and columns
// are named by Labels and Columns.
type Dataset struct {
	Name    string    `json:"name"`
	Shape   []int     `json:"shape,omitempty"`
	Labels  []string  `json:"labels,omitempty"`
	Columns []string  `json:"columns,omitempty"`
	Values  []float64 `json:"values,omitempty"`
	Pairs   []Pair    `json:"pairs,omitempty"`
	Triples []Triple  `json:"triples,omitempty"`
	Created time.Time `json:"created"`
}

// DatasetBackend defines the interface for intermediate dataset storage.
// This allows for pluggable storage systems including in-memory, file and Redis.
type DatasetBackend interface {
	// Put stores a dataset under its name, replacing any previous version
	Put(ctx context.Context, ds Dataset) error

	// Get retrieves a dataset by name
	Get(ctx context.Context, name string) (Dataset, bool, error)

	// Delete removes a dataset by name
	Delete(ctx context.Context, name string) error

	// Names returns the names of all stored datasets
	Names(ctx context.Context) ([]string, error)

	// Flush clears all datasets
	Flush(ctx context.Context) error

	// Len returns the number of stored datasets
	Len(ctx context.Context) (int, error)

	// Close closes the backend and releases resources
	Close() error
}

// ChartPage is one page of the global artist chart.
type ChartPage struct {
	Page       int
	PerPage    int
	TotalPages int
	Artists    []Artist
}

// FetchResult summarises a multi-request download. Failed lists the entities
// whose requests were still failing after all retries.
type FetchResult struct {
	Requested int
	Loaded    int
	Failed    []string
}

// Complete reports whether every entity was fetched.
func (r FetchResult) Complete() bool {
	return len(r.Failed) == 0
}

// TagSink receives the tags of one artist as soon as they are fetched.
type TagSink func(ctx context.Context, artist string, triples []Triple) error

// FactSource downloads the artist chart and the artists' top tags.
type FactSource interface {
	TopArtists(ctx context.Context, page, limit int) (ChartPage, error)
	FetchTopTags(ctx context.Context, artists []string, sink TagSink) (FetchResult, error)
}

// ReferenceSource provides externally computed similarity rankings.
type ReferenceSource interface {
	SimilarTags(ctx context.Context, tag string) ([]RankedItem, error)
	SimilarArtists(ctx context.Context, artist string) ([]RankedItem, error)
}

// BackendConfig provides configuration options for dataset backends
type BackendConfig struct {
	// For the in-memory backend
	Capacity int

	// For the file backend
	Dir string

	// For Redis
	ConnectionString string
	Username         string
	Password         string
	Database         int
	TTL              time.Duration

	// Additional options
	Options map[string]any
}

// BackendType represents the type of dataset backend
type BackendType string

const (
	BackendMemory BackendType = "memory"
	BackendFile   BackendType = "file"
	BackendRedis  BackendType = "redis"
	BackendNone   BackendType = "none"
)
