package store

import (
	"strconv"
	"strings"
	"time"
)

// Flavor selects placeholder style and any dialect-specific SQL.
type Flavor string

const (
	FlavorSQLite   Flavor = "sqlite"
	FlavorPostgres Flavor = "postgres"
)

func DriverFlavor(driver string) Flavor {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "postgres", "pgx":
		return FlavorPostgres
	default:
		return FlavorSQLite
	}
}

// rebind rewrites ? placeholders to $N for postgres. Queries are written in
// sqlite style throughout the package.
func rebind(f Flavor, query string) string {
	if f != FlavorPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}
