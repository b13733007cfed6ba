package store

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3" // register the sqlite3 dialect
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/viant/rescache/query"
	"github.com/viant/rescache/schema"
	"github.com/viant/rescache/sorter"
)

var dialect = goqu.Dialect("sqlite3")

// column resolves an attribute to its SQL expression and data type. A
// created_time attribute that is not projected is read from data.
func column(rt *schema.ResourceType, name string) (exp.Expression, schema.DataType, error) {
	if a, ok := rt.Attribute(name); ok {
		return goqu.C(a.Name), a.Type, nil
	}
	if name == schema.CreatedTimeAttribute {
		return goqu.L(`json_extract("data", '$.created_time')`), schema.Date, nil
	}
	return nil, "", unknownAttribute(rt, name)
}

func filterExpressions(rt *schema.ResourceType, spec *query.Spec) ([]exp.Expression, error) {
	attrs := spec.Filters.Attributes()
	sort.Strings(attrs)

	var where []exp.Expression
	for _, attr := range attrs {
		clauses := spec.Filters[attr]
		if len(clauses) == 0 {
			continue
		}
		col, dataType, err := column(rt, attr)
		if err != nil {
			return nil, err
		}
		ors := make([]exp.Expression, 0, len(clauses))
		for _, c := range clauses {
			ors = append(ors, clauseExpression(col, dataType, c))
		}
		where = append(where, goqu.Or(ors...))
	}
	if spec.Search != "" {
		if search := searchExpression(rt, spec.Search); search != nil {
			where = append(where, search)
		}
	}
	return where, nil
}

func clauseExpression(col exp.Expression, dataType schema.DataType, c query.Clause) exp.Expression {
	if c.IsContains() {
		return goqu.L("res_contains(?, ?)", col, schema.ToString(c.Value()))
	}
	v := queryValue(dataType, c.Value())
	if v == nil {
		return goqu.L("0 = 1")
	}
	if dataType == schema.Date {
		return goqu.L("res_time(?) = ?", col, v)
	}
	return goqu.L("? = ?", col, v)
}

// searchExpression matches free text against the shadow search table, or
// against the raw payload for types without full-text attributes. Text
// without any word yields nil.
func searchExpression(rt *schema.ResourceType, text string) exp.Expression {
	if len(rt.FullText) == 0 {
		return goqu.L(`res_contains("data", ?)`, text)
	}
	match := MatchExpression(text)
	if match == "" {
		return nil
	}
	search := quote(rt.SearchTable())
	return goqu.L(fmt.Sprintf("rowid IN (SELECT rowid FROM %s WHERE %s MATCH ?)", search, search), match)
}

// MatchExpression turns free text into an FTS5 query: every word becomes a
// quoted prefix term and all terms must match.
func MatchExpression(text string) string {
	words := strings.FieldsFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || r == '"'
	})
	terms := make([]string, 0, len(words))
	for _, w := range words {
		terms = append(terms, `"`+w+`"*`)
	}
	return strings.Join(terms, " ")
}

func orderExpression(rt *schema.ResourceType, s query.Sort) (exp.OrderedExpression, error) {
	resolved, err := sorter.Resolve(s)
	if err != nil {
		return nil, err
	}
	col, dataType, err := column(rt, resolved.Attribute)
	if err != nil {
		return nil, err
	}
	var sortable interface {
		Asc() exp.OrderedExpression
		Desc() exp.OrderedExpression
	}
	if dataType == schema.Date {
		sortable = goqu.L("res_time(?)", col)
	} else {
		sortable = goqu.L("?", col)
	}
	if resolved.Direction == query.Desc {
		return sortable.Desc(), nil
	}
	return sortable.Asc(), nil
}

func selectDataset(rt *schema.ResourceType, spec *query.Spec) (*goqu.SelectDataset, error) {
	where, err := filterExpressions(rt, spec)
	if err != nil {
		return nil, err
	}
	return dialect.From(rt.Table()).Where(where...), nil
}

func fetchSQL(rt *schema.ResourceType, spec *query.Spec) (string, []any, error) {
	ds, err := selectDataset(rt, spec)
	if err != nil {
		return "", nil, err
	}
	order, err := orderExpression(rt, spec.Sort)
	if err != nil {
		return "", nil, err
	}
	ds = ds.Order(order, goqu.C(schema.IDAttribute).Asc())
	if spec.PageSize > 0 {
		ds = ds.Limit(uint(spec.PageSize)).Offset(uint(spec.Offset()))
	}
	return ds.Prepared(true).ToSQL()
}

func countSQL(rt *schema.ResourceType, spec *query.Spec) (string, []any, error) {
	ds, err := selectDataset(rt, spec)
	if err != nil {
		return "", nil, err
	}
	return ds.Select(goqu.COUNT(goqu.Star())).Prepared(true).ToSQL()
}

func deleteSQL(rt *schema.ResourceType, ids []string) (string, []any, error) {
	return dialect.Delete(rt.Table()).Where(goqu.C(schema.IDAttribute).In(ids)).Prepared(true).ToSQL()
}

// upsertSQL builds a multi-row upsert for n rows of rt.
func upsertSQL(rt *schema.ResourceType, n int) string {
	cols := rt.Columns()
	placeholders := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ") + ")"
	values := make([]string, n)
	for i := range values {
		values[i] = placeholders
	}
	updates := make([]string, 0, len(cols)-1)
	for _, c := range cols[1:] {
		updates = append(updates, fmt.Sprintf("%s = excluded.%s", quote(c), quote(c)))
	}
	return fmt.Sprintf(`INSERT INTO %s(%s) VALUES %s
ON CONFLICT(%s) DO UPDATE SET %s`,
		quote(rt.Table()), strings.Join(quoteAll(cols), ", "), strings.Join(values, ", "),
		quote(schema.IDAttribute), strings.Join(updates, ", "))
}
