package query

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"
	"unicode"
)

// Lookup returns the rows of a related collection for Join stages.
type Lookup func(collection string) []Row

// Exec evaluates p over rows in memory. Input rows are not modified.
func Exec(rows []Row, p Pipeline, lookup Lookup) ([]Row, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	cur := make([]Row, len(rows))
	copy(cur, rows)
	for _, st := range p.Stages {
		switch s := st.(type) {
		case Join:
			var foreign []Row
			if lookup != nil {
				foreign = lookup(s.Collection)
			}
			cur = execJoin(cur, s, foreign)
		case Match:
			cur = execMatch(cur, s)
		case Text:
			cur = execText(cur, s)
		case Group:
			cur = execGroup(cur, s)
		case Sort:
			execSort(cur, s)
		case Page:
			cur = execPage(cur, s)
		case Count:
			cur = []Row{{CountField: int64(len(cur))}}
		default:
			return nil, fmt.Errorf("%w: unsupported stage %T", ErrInvalidPipeline, st)
		}
	}
	return cur, nil
}

func execJoin(rows []Row, j Join, foreign []Row) []Row {
	index := make(map[any]Row, len(foreign))
	for _, f := range foreign {
		if key := normalize(f[j.ForeignField]); key != nil {
			index[key] = f
		}
	}
	out := rows[:0:0]
	for _, r := range rows {
		partner, ok := index[normalize(r[j.LocalField])]
		if !ok && !j.Optional {
			continue
		}
		joined := make(Row, len(r)+len(partner))
		for k, v := range r {
			joined[k] = v
		}
		for k, v := range partner {
			joined[j.As+"."+k] = v
		}
		out = append(out, joined)
	}
	return out
}

func execMatch(rows []Row, m Match) []Row {
	out := rows[:0:0]
	for _, r := range rows {
		if matchRow(r, m) {
			out = append(out, r)
		}
	}
	return out
}

func matchRow(r Row, m Match) bool {
	for _, p := range m.All {
		if !evalPredicate(r, p) {
			return false
		}
	}
	if len(m.Any) == 0 {
		return true
	}
	for _, p := range m.Any {
		if evalPredicate(r, p) {
			return true
		}
	}
	return false
}

func evalPredicate(r Row, p Predicate) bool {
	v := normalize(r[p.Field])
	switch p.Op {
	case OpIsNull:
		return v == nil
	case OpNotNull:
		return v != nil
	case OpContains:
		s, ok := v.(string)
		needle, ok2 := p.Value.(string)
		return ok && ok2 && strings.Contains(strings.ToLower(s), strings.ToLower(needle))
	}
	c, ok := compare(v, normalize(p.Value))
	if !ok {
		return false
	}
	switch p.Op {
	case OpEq:
		return c == 0
	case OpNe:
		return c != 0
	case OpGt:
		return c > 0
	case OpGte:
		return c >= 0
	case OpLt:
		return c < 0
	case OpLte:
		return c <= 0
	}
	return false
}

func execText(rows []Row, t Text) []Row {
	terms := tokenize(t.Query)
	if len(terms) == 0 {
		return rows
	}
	out := rows[:0:0]
	for _, r := range rows {
		score := 0.0
		for _, f := range t.Fields {
			score += float64(f.Weight) * float64(countTerms(tokenize(textOf(r[f.Field])), terms))
		}
		if score <= 0 {
			continue
		}
		scored := make(Row, len(r)+1)
		for k, v := range r {
			scored[k] = v
		}
		scored[ScoreField] = score
		out = append(out, scored)
	}
	return out
}

func textOf(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case *string:
		if t == nil {
			return ""
		}
		return *t
	case []string:
		return strings.Join(t, " ")
	}
	return ""
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func countTerms(tokens, terms []string) int {
	n := 0
	for _, tok := range tokens {
		for _, term := range terms {
			if tok == term {
				n++
			}
		}
	}
	return n
}

type bucket struct {
	key   any
	rows  []Row
	order int
}

func execGroup(rows []Row, g Group) []Row {
	if g.Key == "" {
		return []Row{aggregate(nil, rows, g.Aggs)}
	}
	buckets := map[any]*bucket{}
	var ordered []*bucket
	for _, r := range rows {
		k := normalize(r[g.Key])
		b, ok := buckets[k]
		if !ok {
			b = &bucket{key: k, order: len(ordered)}
			buckets[k] = b
			ordered = append(ordered, b)
		}
		b.rows = append(b.rows, r)
	}
	out := make([]Row, 0, len(ordered))
	for _, b := range ordered {
		out = append(out, aggregate(b.key, b.rows, g.Aggs))
	}
	return out
}

func aggregate(key any, rows []Row, aggs []Agg) Row {
	out := Row{KeyField: key}
	for _, a := range aggs {
		switch a.Fn {
		case AggCount:
			out[a.Name] = int64(len(rows))
		case AggSum:
			sum := 0.0
			for _, r := range rows {
				if f, ok := toFloat(normalize(r[a.Field])); ok {
					sum += f
				}
			}
			out[a.Name] = sum
		case AggAvg:
			sum, n := 0.0, 0
			for _, r := range rows {
				if f, ok := toFloat(normalize(r[a.Field])); ok {
					sum += f
					n++
				}
			}
			if n == 0 {
				out[a.Name] = nil
			} else {
				out[a.Name] = sum / float64(n)
			}
		}
	}
	return out
}

func execSort(rows []Row, s Sort) {
	if len(s.Keys) == 0 {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, k := range s.Keys {
			a, b := normalize(rows[i][k.Field]), normalize(rows[j][k.Field])
			switch {
			case a == nil && b == nil:
				continue
			case a == nil:
				return false
			case b == nil:
				return true
			}
			c, ok := compare(a, b)
			if !ok || c == 0 {
				continue
			}
			if k.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func execPage(rows []Row, p Page) []Row {
	if p.Skip >= len(rows) {
		return []Row{}
	}
	rows = rows[p.Skip:]
	if p.Limit > 0 && p.Limit < len(rows) {
		rows = rows[:p.Limit]
	}
	return rows
}

// normalize collapses pointers and numeric kinds so values compare uniformly.
func normalize(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case *string:
		if t == nil {
			return nil
		}
		return *t
	case *time.Time:
		if t == nil {
			return nil
		}
		return *t
	case *int64:
		if t == nil {
			return nil
		}
		return float64(*t)
	case *float64:
		if t == nil {
			return nil
		}
		return *t
	case int:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case float32:
		return float64(t)
	case string, float64, bool, time.Time:
		return v
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint())
	}
	return v
}

func toFloat(v any) (float64, bool) {
	f, ok := v.(float64)
	return f, ok
}

func compare(a, b any) (int, bool) {
	if a == nil || b == nil {
		return 0, false
	}
	switch x := a.(type) {
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(x, y), true
	case float64:
		y, ok := b.(float64)
		if !ok {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	case time.Time:
		y, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return x.Compare(y), true
	case bool:
		y, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case x == y:
			return 0, true
		case !x:
			return -1, true
		}
		return 1, true
	}
	return 0, false
}
