package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"dacalc/pkg/config"
	"dacalc/process/report"
)

func main() {
	config.LoadDotEnv(".env")
	month := flag.String("month", time.Now().UTC().Format("2006-01"), "month to report (YYYY-MM)")
	list := flag.Bool("list", false, "list matching rows")
	flag.Parse()

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		fmt.Fprintln(os.Stderr, "DB_DSN not set; export DB_DSN and retry")
		os.Exit(2)
	}

	report.RunReport(*month, *list)
}
