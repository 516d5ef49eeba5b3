// Package all lists every converter module shipped with tabconv.
package all

import (
	"github.com/darianmavgo/tabconv/converters"
	"github.com/darianmavgo/tabconv/converters/csv"
	"github.com/darianmavgo/tabconv/converters/html"
	"github.com/darianmavgo/tabconv/converters/json"
	"github.com/darianmavgo/tabconv/converters/markdown"
	"github.com/darianmavgo/tabconv/converters/mysql"
	"github.com/darianmavgo/tabconv/converters/postgres"
	"github.com/darianmavgo/tabconv/converters/sqlite"
	"github.com/darianmavgo/tabconv/converters/sqlscript"
	"github.com/darianmavgo/tabconv/converters/xlsx"
)

// Modules returns the converter modules in declaration order. Earlier modules win
// ties during resolution.
func Modules() []converters.Module {
	return []converters.Module{
		xlsx.Module,
		csv.Module,
		json.Module,
		html.Module,
		markdown.Module,
		sqlscript.Module,
		sqlite.Module,
		mysql.Module,
		postgres.Module,
	}
}
