package repository

import (
	"strconv"
	"strings"

	"github.com/tendant/gymdesk/pkg/domain"
)

// where accumulates AND-ed predicates with positional arguments.
// A "?" in a predicate is replaced by the next $n placeholder.
type where struct {
	clauses []string
	args    []any
}

func (w *where) add(clause string, arg any) {
	w.args = append(w.args, arg)
	w.clauses = append(w.clauses, strings.Replace(clause, "?", "$"+strconv.Itoa(len(w.args)), 1))
}

func (w *where) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// page appends LIMIT and OFFSET placeholders and returns the clause.
func (w *where) page(p domain.PageRequest) string {
	w.args = append(w.args, p.Limit, p.Offset())
	n := len(w.args)
	return " LIMIT $" + strconv.Itoa(n-1) + " OFFSET $" + strconv.Itoa(n)
}

// orderBy resolves a client sort key against an allow-list of columns.
func orderBy(columns map[string]string, key string, order domain.SortOrder, fallback string, fallbackOrder domain.SortOrder) string {
	col, ok := columns[key]
	if !ok {
		col = fallback
		if order == "" {
			order = fallbackOrder
		}
	}
	dir := "ASC"
	if order == domain.SortDesc {
		dir = "DESC"
	}
	// id breaks ties so pages are stable.
	return " ORDER BY " + col + " " + dir + ", id " + dir
}

// escapeLike escapes LIKE metacharacters in user input.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
