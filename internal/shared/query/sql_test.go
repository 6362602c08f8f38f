package query

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func testSchema() *Schema {
	return &Schema{
		Table: "documents",
		Alias: "d",
		Fields: map[string]string{
			"id":          "d.id",
			"title":       "d.title",
			"description": "d.description",
			"tags":        "d.tags",
			"status":      "d.status",
			"uploaded_by": "d.uploaded_by",
			"created_at":  "d.created_at",
			"file_size":   "d.file_size",
		},
		Relations: map[string]*Schema{
			"owner": {
				Table: "users",
				Alias: "owner",
				Fields: map[string]string{
					"id":         "owner.id",
					"department": "owner.department",
				},
			},
		},
	}
}

var ownerJoin = Join{Collection: "users", LocalField: "uploaded_by", ForeignField: "id", As: "owner"}

func TestCompileFilterSortPage(t *testing.T) {
	p := New("documents",
		ownerJoin,
		Match{All: []Predicate{Eq("status", "pending"), Eq("owner.department", "Finance")}},
		Sort{Keys: []SortKey{{Field: "created_at", Desc: true}, {Field: "id"}}},
		Page{Skip: 20, Limit: 10},
	)
	stmt, err := Compile(p, testSchema(), []string{"d.id", "d.title"})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	want := "SELECT d.id, d.title\n" +
		"FROM documents d\n" +
		"JOIN users owner ON owner.id = d.uploaded_by\n" +
		"WHERE d.status = $1 AND owner.department = $2\n" +
		"ORDER BY d.created_at DESC NULLS LAST, d.id ASC NULLS LAST\n" +
		"LIMIT $3\n" +
		"OFFSET $4"
	if stmt.SQL != want {
		t.Fatalf("unexpected SQL:\n%s\nwant:\n%s", stmt.SQL, want)
	}
	if !reflect.DeepEqual(stmt.Args, []any{"pending", "Finance", 10, 20}) {
		t.Fatalf("unexpected args %#v", stmt.Args)
	}
	if stmt.Scored {
		t.Fatalf("expected unscored statement")
	}
}

func TestCompileAnyAndContains(t *testing.T) {
	p := New("documents",
		Match{Any: []Predicate{Contains("title", "50%_off"), IsNull("file_size")}},
	)
	stmt, err := Compile(p, testSchema(), []string{"d.id"})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !strings.Contains(stmt.SQL, "WHERE (d.title ILIKE $1 OR d.file_size IS NULL)") {
		t.Fatalf("unexpected SQL: %s", stmt.SQL)
	}
	if stmt.Args[0] != `%50\%\_off%` {
		t.Fatalf("expected escaped pattern, got %v", stmt.Args[0])
	}
}

func TestCompileWeightedText(t *testing.T) {
	p := New("documents",
		Text{Query: "  budget report ", Fields: []Weighted{{"title", 10}, {"description", 5}, {"tags", 1}}},
		Sort{Keys: []SortKey{{Field: ScoreField, Desc: true}, {Field: "created_at", Desc: true}}},
	)
	stmt, err := Compile(p, testSchema(), []string{"d.id"})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	for _, frag := range []string{
		"setweight(to_tsvector('english', coalesce(d.title::text, '')), 'A')",
		"setweight(to_tsvector('english', coalesce(d.description::text, '')), 'B')",
		"setweight(to_tsvector('english', coalesce(d.tags::text, '')), 'C')",
		"@@ plainto_tsquery('english', $1)",
		"ts_rank('{0.1,0.1,0.5,1}'::float4[], ",
		" AS _score",
		"ORDER BY _score DESC NULLS LAST, d.created_at DESC NULLS LAST",
	} {
		if !strings.Contains(stmt.SQL, frag) {
			t.Fatalf("missing %q in:\n%s", frag, stmt.SQL)
		}
	}
	if !stmt.Scored {
		t.Fatalf("expected scored statement")
	}
	if !reflect.DeepEqual(stmt.Args, []any{"budget report"}) {
		t.Fatalf("unexpected args %#v", stmt.Args)
	}
}

func TestCompileEmptyTextIsNoop(t *testing.T) {
	p := New("documents", Text{Query: "   ", Fields: []Weighted{{"title", 10}}})
	stmt, err := Compile(p, testSchema(), []string{"d.id"})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if stmt.SQL != "SELECT d.id\nFROM documents d" || stmt.Scored {
		t.Fatalf("unexpected statement %#v", stmt)
	}
}

func TestCompileGroupByJoinedField(t *testing.T) {
	p := New("documents",
		ownerJoin,
		Group{Key: "owner.department", Aggs: []Agg{{Name: "count", Fn: AggCount}}},
		Sort{Keys: []SortKey{{Field: "count", Desc: true}}},
	)
	stmt, err := Compile(p, testSchema(), nil)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	want := "SELECT owner.department AS key, COUNT(*)::bigint AS count\n" +
		"FROM documents d\n" +
		"JOIN users owner ON owner.id = d.uploaded_by\n" +
		"GROUP BY owner.department\n" +
		"ORDER BY count DESC NULLS LAST"
	if stmt.SQL != want {
		t.Fatalf("unexpected SQL:\n%s", stmt.SQL)
	}
}

func TestCompileGlobalGroup(t *testing.T) {
	p := New("documents",
		Group{Aggs: []Agg{
			{Name: "total", Fn: AggCount},
			{Name: "total_size", Fn: AggSum, Field: "file_size"},
			{Name: "avg_size", Fn: AggAvg, Field: "file_size"},
		}},
	)
	stmt, err := Compile(p, testSchema(), nil)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	want := "SELECT NULL AS key, COUNT(*)::bigint AS total, " +
		"COALESCE(SUM(d.file_size), 0)::double precision AS total_size, " +
		"AVG(d.file_size)::double precision AS avg_size\n" +
		"FROM documents d"
	if stmt.SQL != want {
		t.Fatalf("unexpected SQL:\n%s", stmt.SQL)
	}
}

func TestCompileCount(t *testing.T) {
	p := New("documents", Match{All: []Predicate{Eq("status", "approved")}}, Count{})
	stmt, err := Compile(p, testSchema(), []string{"d.id"})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if stmt.SQL != "SELECT COUNT(*)::bigint AS count\nFROM documents d\nWHERE d.status = $1" {
		t.Fatalf("unexpected SQL:\n%s", stmt.SQL)
	}
}

func TestCompileRejectsInvalidPipelines(t *testing.T) {
	tests := []struct {
		name string
		p    Pipeline
	}{
		{name: "unknown field", p: New("documents", Match{All: []Predicate{Eq("nope", 1)}})},
		{name: "join field without join", p: New("documents", Match{All: []Predicate{Eq("owner.department", "x")}})},
		{name: "score without query", p: New("documents", Sort{Keys: []SortKey{{Field: ScoreField}}})},
		{name: "page before match", p: New("documents", Page{Limit: 1}, Match{})},
		{name: "duplicate alias", p: New("documents", ownerJoin, ownerJoin)},
		{name: "nil eq", p: New("documents", Match{All: []Predicate{Eq("status", nil)}})},
		{name: "sort by non-group field", p: New("documents", Group{Key: "status", Aggs: []Agg{{Name: "count", Fn: AggCount}}}, Sort{Keys: []SortKey{{Field: "title"}}})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Compile(tt.p, testSchema(), []string{"d.id"}); !errors.Is(err, ErrInvalidPipeline) {
				t.Fatalf("expected ErrInvalidPipeline, got %v", err)
			}
		})
	}
}

func TestRunScansGenericRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	stmt, err := Compile(New("documents",
		Group{Key: "status", Aggs: []Agg{{Name: "count", Fn: AggCount}}},
	), testSchema(), nil)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	mock.ExpectQuery("SELECT d.status AS key, COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"key", "count"}).
			AddRow("pending", int64(3)).
			AddRow([]byte("approved"), int64(1)))

	rows, err := Run(context.Background(), db, stmt)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(rows) != 2 || String(rows[1], KeyField) != "approved" || Int(rows[0], "count") != 3 {
		t.Fatalf("unexpected rows %#v", rows)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
