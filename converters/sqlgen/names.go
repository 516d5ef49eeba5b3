package sqlgen

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	TablePrefix  = "tb"
	ColumnPrefix = "cl"
)

var (
	space = regexp.MustCompile(`\s+`)
	reg   = regexp.MustCompile(`[^a-zA-Z0-9 _.]+`)
)

/*
CompliantNames generates names usable as SQL identifiers.

The rules for column names and table names are so similar one function takes the
prefix as input: lower case, snake case, strip disallowed characters, dodge keywords.
Dots are kept because they mark foreign-derived columns and are rewritten at
synthesis time. If a standardized name is unusable the name is {prefix}{idx}.
*/
func CompliantNames(rawnames []string, prefix string) []string {
	gorgeous := make([]string, len(rawnames))

	counter := map[string]int{}
	for idx, item := range rawnames {
		item = strings.TrimSpace(item)
		item = reg.ReplaceAllString(item, "")
		item = space.ReplaceAllString(item, "_")
		item = strings.ToLower(item)
		if _, kw := keywords[item]; kw {
			item += "_"
		}

		// If stripping non-compliant chars leaves us with nothing, give it a default index name
		if len(item) == 0 {
			item = fmt.Sprintf("%s%d", prefix, idx)
		}

		// cannot start with a number
		if item[0] >= '0' && item[0] <= '9' {
			item = fmt.Sprintf("%s%d%s", prefix, idx, item)
		}

		counter[item]++
		if counter[item] == 1 {
			gorgeous[idx] = item
		} else {
			gorgeous[idx] = fmt.Sprintf("%s%d", item, counter[item])
		}
	}
	return gorgeous
}

// ColumnNames sanitizes raw headers. Complete junk becomes cl0, cl1, ...
func ColumnNames(rawheaders []string) []string {
	return CompliantNames(rawheaders, ColumnPrefix)
}

// TableNames sanitizes raw table names. Complete junk becomes tb0, tb1, ...
func TableNames(rawtables []string) []string {
	return CompliantNames(rawtables, TablePrefix)
}

// IsKeyword reports whether s is an SQLite keyword, ignoring case.
func IsKeyword(s string) bool {
	_, ok := keywords[strings.ToLower(s)]
	return ok
}

// keywords is the set recognised by SQLite: https://sqlite.org/lang_keywords.html
var keywords = func() map[string]struct{} {
	list := []string{
		"abort", "action", "add", "after", "all", "alter", "always", "analyze", "and", "as",
		"asc", "attach", "autoincrement", "before", "begin", "between", "by", "cascade", "case", "cast",
		"check", "collate", "column", "commit", "conflict", "constraint", "create", "cross", "current", "current_date",
		"current_time", "current_timestamp", "database", "default", "deferrable", "deferred", "delete", "desc", "detach", "distinct",
		"do", "drop", "each", "else", "end", "escape", "except", "exclude", "exclusive", "exists",
		"explain", "fail", "filter", "first", "following", "for", "foreign", "from", "full", "generated",
		"glob", "group", "groups", "having", "if", "ignore", "immediate", "in", "index", "indexed",
		"initially", "inner", "insert", "instead", "intersect", "into", "is", "isnull", "join", "key",
		"last", "left", "like", "limit", "match", "materialized", "natural", "no", "not", "nothing",
		"notnull", "null", "nulls", "of", "offset", "on", "or", "order", "others", "outer",
		"over", "partition", "plan", "pragma", "preceding", "primary", "query", "raise", "range", "recursive",
		"references", "regexp", "reindex", "release", "rename", "replace", "restrict", "returning", "right", "rollback",
		"row", "rows", "savepoint", "select", "set", "table", "temp", "temporary", "then", "ties",
		"to", "transaction", "trigger", "unbounded", "union", "unique", "update", "using", "vacuum", "values",
		"view", "virtual", "when", "where", "window", "with", "without",
	}
	set := make(map[string]struct{}, len(list))
	for _, k := range list {
		set[k] = struct{}{}
	}
	return set
}()
