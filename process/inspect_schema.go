package main

import (
	"database/sql"
	"fmt"
	"io"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// historyTables are the tables written by the recognizer.
var historyTables = []string{"recognitions", "recognition_regions", "api_clients"}

// RunInspectFKs connects to Postgres using dsn and prints the foreign key
// constraints of the history tables to w.
func RunInspectFKs(w io.Writer, dsn string) error {
	if dsn == "" {
		return fmt.Errorf("dsn is required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	rows, err := db.Query(`
		SELECT
		  con.conname AS constraint_name,
		  rel.relname AS table_name,
		  array_to_string(array_agg(att.attname ORDER BY u.ord), ',') AS src_columns,
		  confrel.relname AS referenced_table,
		  pg_get_constraintdef(con.oid) AS definition
		FROM pg_constraint con
		JOIN pg_class rel ON rel.oid = con.conrelid
		JOIN pg_class confrel ON confrel.oid = con.confrelid
		JOIN unnest(con.conkey) WITH ORDINALITY AS u(attnum, ord) ON true
		JOIN pg_attribute att ON att.attrelid = con.conrelid AND att.attnum = u.attnum
		WHERE con.contype = 'f' AND rel.relname = ANY($1)
		GROUP BY con.oid, con.conname, rel.relname, confrel.relname
		ORDER BY rel.relname, constraint_name;
	`, historyTables)
	if err != nil {
		return fmt.Errorf("query constraints: %w", err)
	}
	defer rows.Close()

	fmt.Fprintln(w, "Foreign keys:")
	n := 0
	for rows.Next() {
		var cname, table, reftable, def string
		var srcCols sql.NullString
		if err := rows.Scan(&cname, &table, &srcCols, &reftable, &def); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		fmt.Fprintf(w, "- %s: %s(%s) -> %s\n    def: %s\n", cname, table, nullStringToStr(srcCols), reftable, def)
		n++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows err: %w", err)
	}
	if n == 0 {
		fmt.Fprintln(w, "  (none; run `dacalc migrate` first)")
	}
	return nil
}

func nullStringToStr(ns sql.NullString) string {
	if !ns.Valid {
		return ""
	}
	return ns.String
}
