package sanitize

import (
	"context"
	"flag"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"dacalc/models"
)

// DefaultTables are the history tables truncated when -tables is not given.
const DefaultTables = "recognition_regions,recognitions"

var nameRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ParseTables splits a comma separated list and keeps only valid identifiers.
func ParseTables(list string) []string {
	parts := strings.Split(list, ",")
	wanted := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !nameRe.MatchString(p) {
			log.Warnf("skipping invalid table name '%s'", p)
			continue
		}
		wanted = append(wanted, p)
	}
	return wanted
}

// TruncateStatement builds the TRUNCATE for already validated names.
func TruncateStatement(tables []string) string {
	quoted := make([]string, 0, len(tables))
	for _, t := range tables {
		quoted = append(quoted, fmt.Sprintf("\"%s\"", t))
	}
	return fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", strings.Join(quoted, ", "))
}

// Run executes the db_sanitize CLI behavior: truncate history tables, or with
// -older-than delete only old recognitions. Exported so a small cmd/main can call it.
func Run() {
	var (
		dryRun    = flag.Bool("dry-run", true, "Don't perform destructive actions; show what would be done")
		yes       = flag.Bool("yes", false, "Confirm destructive action (required to actually delete)")
		reseed    = flag.Bool("reseed", false, "After truncation, reseed the API client from SEED_CLIENT_ID/SEED_CLIENT_SECRET")
		tables    = flag.String("tables", DefaultTables, "Comma-separated list of tables to truncate")
		olderThan = flag.Duration("older-than", 0, "Instead of truncating, delete recognitions older than this (e.g. 720h)")
	)
	flag.Parse()

	gdb := mustInitDBFromEnv()

	if *olderThan > 0 {
		cutoff := time.Now().Add(-*olderThan)
		var cnt int64
		gdb.Model(&models.Recognition{}).Where("created_at < ?", cutoff).Count(&cnt)
		fmt.Printf("recognitions older than %s: %d\n", cutoff.Format(time.RFC3339), cnt)
		if *dryRun || !*yes {
			fmt.Println("dry-run or missing --yes; nothing deleted. Use --dry-run=false --yes to execute.")
			return
		}
		// regions go with their recognition through the cascading FK
		res := gdb.Where("created_at < ?", cutoff).Delete(&models.Recognition{})
		if res.Error != nil {
			log.Fatalf("delete failed: %v", res.Error)
		}
		log.Infof("deleted %d recognitions", res.RowsAffected)
		return
	}

	wanted := ParseTables(*tables)
	existing := []string{}
	// check presence individually to avoid any injection risk
	for _, t := range wanted {
		var cnt int64
		if err := gdb.Raw("SELECT count(*) FROM pg_tables WHERE schemaname = 'public' AND tablename = ?", t).Scan(&cnt).Error; err != nil {
			log.Fatalf("failed to query pg_tables for %s: %v", t, err)
		}
		if cnt > 0 {
			existing = append(existing, t)
		} else {
			log.Infof("table %s not found, skipping", t)
		}
	}
	if len(existing) == 0 {
		log.Info("no requested tables present in the database; nothing to do")
		return
	}

	fmt.Println("Tables considered for truncation:")
	for _, t := range existing {
		fmt.Printf(" - %s\n", t)
	}

	if *dryRun {
		fmt.Println("dry-run enabled; no changes will be made. Use --dry-run=false --yes to execute.")
		return
	}
	if !*yes {
		fmt.Println("Destructive operation. Pass --yes to confirm execution. Aborting.")
		return
	}

	stmt := TruncateStatement(existing)
	log.Infof("Executing: %s", stmt)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := gdb.WithContext(ctx).Exec(stmt).Error; err != nil {
		log.Fatalf("truncate failed: %v", err)
	}
	log.Info("Truncate completed.")

	if *reseed {
		if err := reseedClient(gdb, os.Getenv("SEED_CLIENT_ID"), os.Getenv("SEED_CLIENT_SECRET")); err != nil {
			log.Fatalf("reseed failed: %v", err)
		}
	}
}

func reseedClient(gdb *gorm.DB, clientID, secret string) error {
	if clientID == "" || secret == "" {
		return fmt.Errorf("SEED_CLIENT_ID and SEED_CLIENT_SECRET must be set")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash client secret: %w", err)
	}
	client := models.APIClient{ClientID: clientID}
	if err := gdb.Where("client_id = ?", clientID).Assign(models.APIClient{SecretHash: hashed, Description: "seeded"}).FirstOrCreate(&client).Error; err != nil {
		return fmt.Errorf("failed to ensure client %s: %w", clientID, err)
	}
	return nil
}

// mustInitDBFromEnv is a light DB initializer used by this CLI.
func mustInitDBFromEnv() *gorm.DB {
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatalf("DB_DSN must be set in environment to run this tool")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	return gdb
}
