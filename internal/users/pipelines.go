package users

import (
	"docflow-backend/internal/shared/auth"
	"docflow-backend/internal/shared/query"
)

func filterStage(f ListFilter) query.Match {
	var m query.Match
	if f.Department != "" && f.Department != "all" {
		m.All = append(m.All, query.Eq("department", f.Department))
	}
	switch f.Status {
	case "active":
		m.All = append(m.All, query.Eq("is_active", true))
	case "inactive":
		m.All = append(m.All, query.Eq("is_active", false))
	}
	if f.Role == string(auth.RoleUser) || f.Role == string(auth.RoleAdmin) {
		m.All = append(m.All, query.Eq("role", f.Role))
	}
	if f.Search != "" {
		m.Any = []query.Predicate{
			query.Contains("name", f.Search),
			query.Contains("employee_id", f.Search),
			query.Contains("email", f.Search),
		}
	}
	return m
}

var newestFirst = query.Sort{Keys: []query.SortKey{
	{Field: "created_at", Desc: true},
	{Field: "id"},
}}

// ListPipeline filters, orders newest first and pages the directory.
func ListPipeline(f ListFilter, page query.PageRequest) query.Pipeline {
	return query.New(Collection, filterStage(f), newestFirst, page.Stage())
}

// RolePipeline selects every user with role.
func RolePipeline(role auth.Role) query.Pipeline {
	return query.New(Collection, query.Match{All: []query.Predicate{query.Eq("role", string(role))}})
}

// RecentPipeline returns the newest n users holding role.
func RecentPipeline(role auth.Role, n int) query.Pipeline {
	return query.New(Collection,
		query.Match{All: []query.Predicate{query.Eq("role", string(role))}},
		newestFirst,
		query.Page{Limit: n},
	)
}
