package jobs

import (
	"os"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// The integrity scans run raw SQL against tables no repository wraps,
// so nothing else catches a column drifting away from the schema. This
// pins every aliased column in the scan queries to the DDL in the seed
// script.
func TestIntegrityQueriesMatchSchema(t *testing.T) {
	ddl, err := os.ReadFile("../scripts/seed/main.go")
	require.NoError(t, err)

	tables := map[string]string{
		"je":  "journal_entries",
		"jl":  "journal_lines",
		"si":  "stock_items",
		"sle": "stock_ledger_entries",
	}
	columnRef := regexp.MustCompile(`\b(je|jl|si|sle)\.([a-z_]+)`)

	for _, query := range []string{ledgerIntegrityQuery, stockIntegrityQuery} {
		for _, match := range columnRef.FindAllStringSubmatch(query, -1) {
			alias, column := match[1], match[2]
			if column == "id" {
				continue
			}
			block := tableDDL(t, string(ddl), tables[alias])
			require.Contains(t, block, column,
				"query references %s.%s but %s has no such column", alias, column, tables[alias])
		}
	}
}

func tableDDL(t *testing.T, source, table string) string {
	t.Helper()
	start := strings.Index(source, "CREATE TABLE IF NOT EXISTS "+table+" (")
	require.GreaterOrEqual(t, start, 0, "no DDL for table %s", table)
	end := strings.Index(source[start:], ")`")
	require.GreaterOrEqual(t, end, 0)
	return source[start : start+end]
}
