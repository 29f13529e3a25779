package repository

import (
	"strconv"
	"strings"
)

// Dialect describes the small SQL differences between the backends that
// matter when building listing conditions.
type Dialect struct {
	// Placeholder returns the bind marker for the n-th argument (1-based).
	Placeholder func(n int) string
	// ContainsMatch returns a case-insensitive "column contains pattern"
	// expression. The pattern bind already carries the surrounding %.
	ContainsMatch func(column, bind string) string
}

// SQLiteLowerFunc names the SQL function the sqlite package registers for
// Unicode lower-casing. SQLite's own LOWER and LIKE fold ASCII only.
const SQLiteLowerFunc = "unicode_lower"

// SQLite uses positional ? markers and has no ILIKE.
var SQLite = Dialect{
	Placeholder: func(int) string { return "?" },
	ContainsMatch: func(column, bind string) string {
		return SQLiteLowerFunc + "(" + column + ") LIKE " + SQLiteLowerFunc + "(" + bind + `) ESCAPE '\'`
	},
}

// Postgres uses numbered $n markers and ILIKE.
var Postgres = Dialect{
	Placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
	ContainsMatch: func(column, bind string) string {
		return column + " ILIKE " + bind + ` ESCAPE '\'`
	},
}

// keywordColumns are the text columns searched by a keyword filter.
var keywordColumns = []string{"title", "description", "content"}

// Conditions builds the WHERE clause and its arguments for filter.
//
// The clause is "" when no condition applies, otherwise it starts with
// " WHERE ". Values are always returned as bind arguments and never
// spliced into the SQL text. Limit and Offset are not part of the result:
// the count query must see the same conditions without paging.
func Conditions(filter PostFilter, d Dialect) (string, []any) {
	var (
		clauses []string
		args    []any
	)

	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		clauses = append(clauses, "category_id = "+d.Placeholder(len(args)))
	}

	if kw := strings.TrimSpace(filter.Keyword); kw != "" {
		pattern := "%" + EscapeLike(kw) + "%"
		matches := make([]string, 0, len(keywordColumns))
		for _, col := range keywordColumns {
			// one argument per use: ? markers are positional
			args = append(args, pattern)
			matches = append(matches, d.ContainsMatch(col, d.Placeholder(len(args))))
		}
		clauses = append(clauses, "("+strings.Join(matches, " OR ")+")")
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// EscapeLike escapes the LIKE wildcards in s so a keyword is matched
// literally. The backslash is the escape character on both backends.
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
