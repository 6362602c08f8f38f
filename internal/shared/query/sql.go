package query

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Schema maps logical field names of a collection onto SQL.
type Schema struct {
	Table string
	Alias string
	// Fields maps logical names to SQL expressions qualified with Alias.
	Fields map[string]string
	// Relations are keyed by join alias. A relation's Table must equal the Join's
	// Collection and its Fields are qualified with the alias.
	Relations map[string]*Schema
}

// Statement is a compiled query with positional arguments.
type Statement struct {
	SQL    string
	Args   []any
	Scored bool
}

type compiler struct {
	schema *Schema
	joins  map[string]*Schema
	args   []any
}

func (c *compiler) bind(v any) string {
	c.args = append(c.args, v)
	return "$" + strconv.Itoa(len(c.args))
}

func (c *compiler) expr(field string) (string, error) {
	if alias, rest, ok := strings.Cut(field, "."); ok {
		rel, joined := c.joins[alias]
		if !joined {
			return "", fmt.Errorf("%w: field %q references unknown join %q", ErrInvalidPipeline, field, alias)
		}
		e, ok := rel.Fields[rest]
		if !ok {
			return "", fmt.Errorf("%w: unknown field %q", ErrInvalidPipeline, field)
		}
		return e, nil
	}
	e, ok := c.schema.Fields[field]
	if !ok {
		return "", fmt.Errorf("%w: unknown field %q", ErrInvalidPipeline, field)
	}
	return e, nil
}

// Compile renders p as a single Postgres statement. selectExprs are emitted
// verbatim for row-returning pipelines; Group and Count replace them.
func Compile(p Pipeline, schema *Schema, selectExprs []string) (Statement, error) {
	if err := p.Validate(); err != nil {
		return Statement{}, err
	}
	if schema == nil {
		return Statement{}, fmt.Errorf("%w: nil schema", ErrInvalidPipeline)
	}

	c := &compiler{schema: schema, joins: map[string]*Schema{}}
	var (
		from      []string
		where     []string
		scoreExpr string
		group     *Group
		order     []string
		page      *Page
		count     bool
	)
	from = append(from, schema.Table+" "+schema.Alias)

	for _, st := range p.Stages {
		switch s := st.(type) {
		case Join:
			rel, ok := schema.Relations[s.As]
			if !ok || rel.Table != s.Collection || rel.Alias != s.As {
				return Statement{}, fmt.Errorf("%w: no relation %q as %q", ErrInvalidPipeline, s.Collection, s.As)
			}
			local, err := c.expr(s.LocalField)
			if err != nil {
				return Statement{}, err
			}
			foreign, ok := rel.Fields[s.ForeignField]
			if !ok {
				return Statement{}, fmt.Errorf("%w: unknown field %q on %q", ErrInvalidPipeline, s.ForeignField, s.Collection)
			}
			kind := "JOIN"
			if s.Optional {
				kind = "LEFT JOIN"
			}
			from = append(from, fmt.Sprintf("%s %s %s ON %s = %s", kind, rel.Table, rel.Alias, foreign, local))
			c.joins[s.As] = rel
		case Match:
			clause, err := c.match(s)
			if err != nil {
				return Statement{}, err
			}
			if clause != "" {
				where = append(where, clause)
			}
		case Text:
			if strings.TrimSpace(s.Query) == "" {
				continue
			}
			vec, weights, err := c.tsvector(s.Fields)
			if err != nil {
				return Statement{}, err
			}
			q := "plainto_tsquery('english', " + c.bind(strings.TrimSpace(s.Query)) + ")"
			where = append(where, vec+" @@ "+q)
			scoreExpr = "ts_rank('" + weights + "'::float4[], " + vec + ", " + q + ")"
		case Group:
			g := s
			group = &g
		case Sort:
			for _, k := range s.Keys {
				e, err := c.sortExpr(k.Field, group, scoreExpr != "")
				if err != nil {
					return Statement{}, err
				}
				dir := "ASC"
				if k.Desc {
					dir = "DESC"
				}
				order = append(order, e+" "+dir+" NULLS LAST")
			}
		case Page:
			pg := s
			page = &pg
		case Count:
			count = true
		}
	}

	var cols []string
	var groupBy string
	switch {
	case group != nil:
		gcols, by, err := c.groupSelect(*group)
		if err != nil {
			return Statement{}, err
		}
		cols, groupBy = gcols, by
	case count:
		cols = []string{"COUNT(*)::bigint AS " + CountField}
	default:
		if len(selectExprs) == 0 {
			return Statement{}, fmt.Errorf("%w: no select expressions", ErrInvalidPipeline)
		}
		cols = append(cols, selectExprs...)
		if scoreExpr != "" {
			cols = append(cols, scoreExpr+" AS "+ScoreField)
		}
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(cols, ", "))
	sb.WriteString("\nFROM ")
	sb.WriteString(strings.Join(from, "\n"))
	if len(where) > 0 {
		sb.WriteString("\nWHERE ")
		sb.WriteString(strings.Join(where, "\nAND "))
	}
	if groupBy != "" {
		sb.WriteString("\nGROUP BY " + groupBy)
	}
	if count {
		sql := sb.String()
		if group != nil {
			sql = "SELECT COUNT(*)::bigint AS " + CountField + " FROM (\n" + sql + "\n) grouped"
		}
		return Statement{SQL: sql, Args: c.args}, nil
	}
	if len(order) > 0 {
		sb.WriteString("\nORDER BY ")
		sb.WriteString(strings.Join(order, ", "))
	}
	if page != nil {
		if page.Limit > 0 {
			sb.WriteString("\nLIMIT " + c.bind(page.Limit))
		}
		if page.Skip > 0 {
			sb.WriteString("\nOFFSET " + c.bind(page.Skip))
		}
	}

	return Statement{
		SQL:    sb.String(),
		Args:   c.args,
		Scored: scoreExpr != "" && group == nil,
	}, nil
}

func (c *compiler) match(m Match) (string, error) {
	var all []string
	for _, p := range m.All {
		s, err := c.predicate(p)
		if err != nil {
			return "", err
		}
		all = append(all, s)
	}
	if len(m.Any) > 0 {
		var anyOf []string
		for _, p := range m.Any {
			s, err := c.predicate(p)
			if err != nil {
				return "", err
			}
			anyOf = append(anyOf, s)
		}
		all = append(all, "("+strings.Join(anyOf, " OR ")+")")
	}
	return strings.Join(all, " AND "), nil
}

var comparisonOps = map[Op]string{
	OpEq:  "=",
	OpNe:  "<>",
	OpGt:  ">",
	OpGte: ">=",
	OpLt:  "<",
	OpLte: "<=",
}

func (c *compiler) predicate(p Predicate) (string, error) {
	e, err := c.expr(p.Field)
	if err != nil {
		return "", err
	}
	switch p.Op {
	case OpIsNull:
		return e + " IS NULL", nil
	case OpNotNull:
		return e + " IS NOT NULL", nil
	case OpContains:
		s, ok := p.Value.(string)
		if !ok {
			return "", fmt.Errorf("%w: contains on %q needs a string", ErrInvalidPipeline, p.Field)
		}
		return e + " ILIKE " + c.bind("%"+escapeLike(s)+"%"), nil
	}
	sqlOp, ok := comparisonOps[p.Op]
	if !ok {
		return "", fmt.Errorf("%w: unknown operator %q", ErrInvalidPipeline, p.Op)
	}
	if p.Value == nil {
		return "", fmt.Errorf("%w: nil value for %q; use IsNull", ErrInvalidPipeline, p.Field)
	}
	return e + " " + sqlOp + " " + c.bind(p.Value), nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

var weightLabels = []string{"A", "B", "C", "D"}

// tsvector builds a weighted document vector. Distinct weights map to labels
// A..D in descending order; the returned array gives ts_rank the {D,C,B,A}
// multipliers relative to the heaviest field.
func (c *compiler) tsvector(fields []Weighted) (string, string, error) {
	if len(fields) == 0 {
		return "", "", fmt.Errorf("%w: text stage without fields", ErrInvalidPipeline)
	}
	distinct := []int{}
	seen := map[int]bool{}
	for _, f := range fields {
		if !seen[f.Weight] {
			seen[f.Weight] = true
			distinct = append(distinct, f.Weight)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(distinct)))
	if len(distinct) > len(weightLabels) || distinct[len(distinct)-1] <= 0 {
		return "", "", fmt.Errorf("%w: text weights must be positive with at most four levels", ErrInvalidPipeline)
	}
	label := map[int]string{}
	for i, w := range distinct {
		label[w] = weightLabels[i]
	}

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		e, err := c.expr(f.Field)
		if err != nil {
			return "", "", err
		}
		parts = append(parts, fmt.Sprintf("setweight(to_tsvector('english', coalesce(%s::text, '')), '%s')", e, label[f.Weight]))
	}

	top := float64(distinct[0])
	mult := map[string]float64{}
	for i, w := range distinct {
		mult[weightLabels[i]] = float64(w) / top
	}
	for _, l := range weightLabels[len(distinct):] {
		mult[l] = mult[weightLabels[len(distinct)-1]]
	}
	arr := fmt.Sprintf("{%s,%s,%s,%s}",
		formatWeight(mult["D"]), formatWeight(mult["C"]), formatWeight(mult["B"]), formatWeight(mult["A"]))
	return "(" + strings.Join(parts, " || ") + ")", arr, nil
}

func formatWeight(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func (c *compiler) groupSelect(g Group) ([]string, string, error) {
	var cols []string
	var by string
	if g.Key != "" {
		e, err := c.expr(g.Key)
		if err != nil {
			return nil, "", err
		}
		cols = append(cols, e+" AS "+KeyField)
		by = e
	} else {
		cols = append(cols, "NULL AS "+KeyField)
	}
	for _, a := range g.Aggs {
		switch a.Fn {
		case AggCount:
			cols = append(cols, "COUNT(*)::bigint AS "+a.Name)
		case AggSum:
			e, err := c.expr(a.Field)
			if err != nil {
				return nil, "", err
			}
			cols = append(cols, "COALESCE(SUM("+e+"), 0)::double precision AS "+a.Name)
		case AggAvg:
			e, err := c.expr(a.Field)
			if err != nil {
				return nil, "", err
			}
			cols = append(cols, "AVG("+e+")::double precision AS "+a.Name)
		default:
			return nil, "", fmt.Errorf("%w: unknown aggregate %q", ErrInvalidPipeline, a.Fn)
		}
	}
	return cols, by, nil
}

func (c *compiler) sortExpr(field string, group *Group, scored bool) (string, error) {
	if field == ScoreField {
		if !scored {
			return "", fmt.Errorf("%w: sort by %s without a text query", ErrInvalidPipeline, ScoreField)
		}
		return ScoreField, nil
	}
	if group != nil {
		if field == KeyField {
			return KeyField, nil
		}
		for _, a := range group.Aggs {
			if a.Name == field {
				return a.Name, nil
			}
		}
		return "", fmt.Errorf("%w: sort field %q is not a group output", ErrInvalidPipeline, field)
	}
	return c.expr(field)
}
