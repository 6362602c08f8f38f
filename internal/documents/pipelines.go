package documents

import (
	"strings"
	"time"

	"docflow-backend/internal/shared/apperr"
	"docflow-backend/internal/shared/query"
	"docflow-backend/internal/users"
)

// Collection names documents in pipelines.
const Collection = "documents"

const (
	ownerAlias    = "owner"
	reviewerAlias = "reviewer"

	// OwnerDepartment is the uploader's department after the owner join.
	OwnerDepartment = ownerAlias + ".department"

	// LatencyField is reviewDate minus createdAt in milliseconds, nil until reviewed.
	LatencyField = "review_latency_ms"
)

var (
	ownerJoin    = query.Join{Collection: users.Collection, LocalField: "uploaded_by", ForeignField: "id", As: ownerAlias}
	reviewerJoin = query.Join{Collection: users.Collection, LocalField: "reviewed_by", ForeignField: "id", As: reviewerAlias, Optional: true}
)

// Default page sizes.
const (
	DefaultLimit      = 10
	DefaultAdminLimit = 20
)

// OwnerSort is the allow-list for an owner's own listing.
var OwnerSort = query.SortSpec{
	Allowed: map[string]string{
		"createdAt": "created_at",
		"title":     "title",
		"status":    "status",
		"fileSize":  "file_size",
	},
	Default: "createdAt",
}

// AdminSort is the allow-list for the admin listing. uploadedBy sorts by owner name.
var AdminSort = query.SortSpec{
	Allowed: map[string]string{
		"createdAt":  "created_at",
		"title":      "title",
		"status":     "status",
		"uploadedBy": ownerAlias + ".name",
	},
	Default: "createdAt",
}

// ParseSort validates sortBy/sortOrder against the allow-list and adds the stable tie-breakers.
func ParseSort(allowed query.SortSpec, sortBy, sortOrder string, fields *apperr.Fields) query.Sort {
	return allowed.ParseSort(sortBy, sortOrder, "created_at", "id", fields)
}

var searchFields = []query.Weighted{
	{Field: "title", Weight: 10},
	{Field: "description", Weight: 5},
	{Field: "tags", Weight: 1},
}

var newestFirst = query.Sort{Keys: []query.SortKey{
	{Field: "created_at", Desc: true},
	{Field: "id"},
}}

var relevanceFirst = query.Sort{Keys: []query.SortKey{
	{Field: query.ScoreField, Desc: true},
	{Field: "created_at", Desc: true},
	{Field: "id"},
}}

// match translates f into predicates. Archived documents are always excluded
// unless includeArchived is set.
func (f Filter) match(includeArchived bool) query.Match {
	var m query.Match
	if !includeArchived {
		m.All = append(m.All, query.Eq("is_archived", false))
	}
	if f.Owner != "" {
		m.All = append(m.All, query.Eq("uploaded_by", f.Owner))
	}
	if f.Status != "" && f.Status != "all" {
		m.All = append(m.All, query.Eq("status", f.Status))
	}
	if f.Category != "" && f.Category != "all" {
		m.All = append(m.All, query.Eq("category", f.Category))
	}
	if f.Department != "" && f.Department != "all" {
		m.All = append(m.All, query.Eq(OwnerDepartment, f.Department))
	}
	if f.CreatedFrom != nil {
		m.All = append(m.All, query.Gte("created_at", *f.CreatedFrom))
	}
	if f.CreatedTo != nil {
		m.All = append(m.All, query.Lte("created_at", *f.CreatedTo))
	}
	return m
}

// ListPipeline joins owner and reviewer, filters, sorts and pages.
func ListPipeline(f Filter, sort query.Sort, page query.PageRequest) query.Pipeline {
	return query.New(Collection, ownerJoin, reviewerJoin, f.match(false), sort, page.Stage())
}

// SearchPipeline ranks by weighted relevance then recency. A blank q lists newest first.
func SearchPipeline(q string, f Filter, page query.PageRequest) query.Pipeline {
	q = strings.TrimSpace(q)
	order := newestFirst
	if q != "" {
		order = relevanceFirst
	}
	return query.New(Collection,
		ownerJoin, reviewerJoin,
		f.match(false),
		query.Text{Query: q, Fields: searchFields},
		order,
		page.Stage(),
	)
}

// ByIDPipeline selects one document with owner and reviewer resolved.
func ByIDPipeline(id string) query.Pipeline {
	return query.New(Collection, ownerJoin, reviewerJoin,
		query.Match{All: []query.Predicate{query.Eq("id", id)}},
		query.Page{Limit: 1},
	)
}

// RecentPipeline returns the newest n non-archived documents.
func RecentPipeline(n int) query.Pipeline {
	return query.New(Collection, ownerJoin, reviewerJoin, Filter{}.match(false), newestFirst, query.Page{Limit: n})
}

// FilterPipeline selects non-archived documents matching f, for counting.
func FilterPipeline(f Filter) query.Pipeline {
	return query.New(Collection, ownerJoin, f.match(false))
}

// UploadsPipeline selects every document created within [from, to], archived
// or not, without resolving owners.
func UploadsPipeline(from, to time.Time) query.Pipeline {
	return query.New(Collection, Filter{CreatedFrom: &from, CreatedTo: &to}.match(true))
}

var countAgg = []query.Agg{{Name: "count", Fn: query.AggCount}}

var byCountDesc = query.Sort{Keys: []query.SortKey{
	{Field: "count", Desc: true},
	{Field: query.KeyField},
}}

// GroupPipeline counts documents matching f per value of key, largest group first.
// key may reference the owner, e.g. "owner.department".
func GroupPipeline(f Filter, key string, includeArchived bool) query.Pipeline {
	return query.New(Collection, ownerJoin, f.match(includeArchived),
		query.Group{Key: key, Aggs: countAgg}, byCountDesc)
}

// Summary aggregate column names.
const (
	SummaryTotal     = "total"
	SummaryTotalSize = "total_size"
	SummaryLatency   = "avg_review_latency_ms"
)

// SummaryPipeline totals count and size, and averages review latency over
// reviewed documents only.
func SummaryPipeline(f Filter) query.Pipeline {
	return query.New(Collection, ownerJoin, f.match(false), query.Group{Aggs: []query.Agg{
		{Name: SummaryTotal, Fn: query.AggCount},
		{Name: SummaryTotalSize, Fn: query.AggSum, Field: "file_size"},
		{Name: SummaryLatency, Fn: query.AggAvg, Field: LatencyField},
	}})
}
