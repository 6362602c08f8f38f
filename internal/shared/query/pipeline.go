// Package query describes filter, search, grouping and paging as a declarative
// pipeline with two executors: a Postgres compiler and an in-memory evaluator.
package query

import (
	"errors"
	"fmt"
	"strings"
)

// Row is a flat record. Joined fields are keyed "<alias>.<field>".
type Row map[string]any

// Op is a predicate operator.
type Op string

const (
	OpEq       Op = "eq"
	OpNe       Op = "ne"
	OpGt       Op = "gt"
	OpGte      Op = "gte"
	OpLt       Op = "lt"
	OpLte      Op = "lte"
	OpIsNull   Op = "isnull"
	OpNotNull  Op = "notnull"
	OpContains Op = "contains" // case-insensitive substring
)

// ScoreField holds text relevance once a Text stage runs with a non-empty query.
const ScoreField = "_score"

// KeyField holds the group key on Group output rows.
const KeyField = "key"

// CountField holds the result of a Count stage.
const CountField = "count"

// Predicate compares one field against a value.
type Predicate struct {
	Field string
	Op    Op
	Value any
}

func Eq(field string, v any) Predicate   { return Predicate{Field: field, Op: OpEq, Value: v} }
func Ne(field string, v any) Predicate   { return Predicate{Field: field, Op: OpNe, Value: v} }
func Gte(field string, v any) Predicate  { return Predicate{Field: field, Op: OpGte, Value: v} }
func Lte(field string, v any) Predicate  { return Predicate{Field: field, Op: OpLte, Value: v} }
func IsNull(field string) Predicate      { return Predicate{Field: field, Op: OpIsNull} }
func NotNull(field string) Predicate     { return Predicate{Field: field, Op: OpNotNull} }
func Contains(field, v string) Predicate { return Predicate{Field: field, Op: OpContains, Value: v} }

// Stage is one step of a pipeline.
type Stage interface {
	rank() int
}

// Match keeps rows satisfying every All predicate and, when Any is non-empty, at least one Any predicate.
type Match struct {
	All []Predicate
	Any []Predicate
}

// Join attaches fields of a related collection under the As prefix.
// Rows without a partner are dropped unless Optional.
type Join struct {
	Collection   string
	LocalField   string
	ForeignField string
	As           string
	Optional     bool
}

// Weighted is a searchable field with its relevance weight.
type Weighted struct {
	Field  string
	Weight int
}

// Text filters rows by relevance against Query and records it in ScoreField.
// An empty Query keeps every row and records no score.
type Text struct {
	Query  string
	Fields []Weighted
}

// AggFn is an aggregate function.
type AggFn string

const (
	AggCount AggFn = "count"
	AggSum   AggFn = "sum"
	AggAvg   AggFn = "avg"
)

// Agg names one aggregate output column.
type Agg struct {
	Name  string
	Fn    AggFn
	Field string
}

// Group buckets rows by Key. An empty Key produces exactly one row, even with no input.
type Group struct {
	Key  string
	Aggs []Agg
}

// SortKey orders by one field. Missing values sort last in both directions.
type SortKey struct {
	Field string
	Desc  bool
}

// Sort orders rows by Keys in priority order.
type Sort struct {
	Keys []SortKey
}

// Page skips and limits rows. Limit 0 means no limit.
type Page struct {
	Skip  int
	Limit int
}

// Count replaces the rows with one row holding their number.
type Count struct{}

func (Join) rank() int  { return 0 }
func (Match) rank() int { return 1 }
func (Text) rank() int  { return 1 }
func (Group) rank() int { return 2 }
func (Sort) rank() int  { return 3 }
func (Page) rank() int  { return 4 }
func (Count) rank() int { return 4 }

// Pipeline is an ordered list of stages over a named collection.
type Pipeline struct {
	Collection string
	Stages     []Stage
}

// New starts a pipeline over collection.
func New(collection string, stages ...Stage) Pipeline {
	return Pipeline{Collection: collection, Stages: stages}
}

// Then returns a copy of p with stages appended.
func (p Pipeline) Then(stages ...Stage) Pipeline {
	out := Pipeline{Collection: p.Collection, Stages: make([]Stage, 0, len(p.Stages)+len(stages))}
	out.Stages = append(out.Stages, p.Stages...)
	out.Stages = append(out.Stages, stages...)
	return out
}

// Unpaged returns a copy of p without Sort and Page stages, for counting.
func (p Pipeline) Unpaged() Pipeline {
	out := Pipeline{Collection: p.Collection}
	for _, st := range p.Stages {
		switch st.(type) {
		case Sort, Page:
			continue
		}
		out.Stages = append(out.Stages, st)
	}
	return out
}

var ErrInvalidPipeline = errors.New("invalid pipeline")

// Validate checks stage ordering: joins, then filters, then group, sort, and finally page or count.
func (p Pipeline) Validate() error {
	last := -1
	var texts, groups, terminal int
	aliases := map[string]struct{}{}
	for i, st := range p.Stages {
		if st == nil {
			return fmt.Errorf("%w: nil stage at %d", ErrInvalidPipeline, i)
		}
		r := st.rank()
		if r < last {
			return fmt.Errorf("%w: %T out of order at %d", ErrInvalidPipeline, st, i)
		}
		last = r
		switch s := st.(type) {
		case Join:
			if s.Collection == "" || s.As == "" || s.LocalField == "" || s.ForeignField == "" {
				return fmt.Errorf("%w: incomplete join at %d", ErrInvalidPipeline, i)
			}
			if strings.Contains(s.As, ".") {
				return fmt.Errorf("%w: join alias %q contains a dot", ErrInvalidPipeline, s.As)
			}
			if _, dup := aliases[s.As]; dup {
				return fmt.Errorf("%w: duplicate join alias %q", ErrInvalidPipeline, s.As)
			}
			aliases[s.As] = struct{}{}
		case Text:
			texts++
		case Group:
			groups++
			for _, a := range s.Aggs {
				if a.Name == "" || (a.Fn != AggCount && a.Field == "") {
					return fmt.Errorf("%w: incomplete aggregate at %d", ErrInvalidPipeline, i)
				}
			}
		case Page:
			terminal++
			if s.Skip < 0 || s.Limit < 0 {
				return fmt.Errorf("%w: negative page", ErrInvalidPipeline)
			}
		case Count:
			terminal++
		}
	}
	if texts > 1 || groups > 1 || terminal > 1 {
		return fmt.Errorf("%w: repeated text, group, or terminal stage", ErrInvalidPipeline)
	}
	return nil
}

// scored reports whether the pipeline produces a ScoreField.
func (p Pipeline) scored() bool {
	for _, st := range p.Stages {
		if t, ok := st.(Text); ok && strings.TrimSpace(t.Query) != "" {
			return true
		}
	}
	return false
}
