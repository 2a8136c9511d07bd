// Package migrations holds the versioned, embedded schema of every storage engine.
//
// Migration files are named NNN_description.sql and applied in version order.
// Upgrades must be additive: a migration may create collections that are absent
// but never drop or rewrite existing ones.
package migrations

import (
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Engine identifies a storage engine with its own migration set.
type Engine string

const (
	EngineSQLite     Engine = "sqlite"
	EnginePostgres   Engine = "postgres"
	EngineClickhouse Engine = "clickhouse"
)

// Migration is a single versioned schema change.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// Statements splits the migration into individual statements.
func (m Migration) Statements() []string {
	return splitStatements(m.SQL)
}

// Load returns the migrations of an engine ordered by version.
func Load(engine Engine) ([]Migration, error) {
	var fsys fs.FS
	switch engine {
	case EngineSQLite:
		fsys = SQLiteFS
	case EnginePostgres:
		fsys = PostgresFS
	case EngineClickhouse:
		fsys = ClickhouseFS
	default:
		return nil, fmt.Errorf("unknown engine %q", engine)
	}

	entries, err := fs.ReadDir(fsys, string(engine))
	if err != nil {
		return nil, fmt.Errorf("read embedded %s migrations: %w", engine, err)
	}

	var result []Migration
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		version, err := versionFromName(entry.Name())
		if err != nil {
			return nil, err
		}
		data, err := fs.ReadFile(fsys, string(engine)+"/"+entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		if err := validateNoSemicolonInStrings(string(data)); err != nil {
			return nil, fmt.Errorf("validate migration %s: %w", entry.Name(), err)
		}
		if err := validateAdditive(string(data)); err != nil {
			return nil, fmt.Errorf("validate migration %s: %w", entry.Name(), err)
		}
		result = append(result, Migration{Version: version, Name: entry.Name(), SQL: string(data)})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Version < result[j].Version
	})
	return result, nil
}

// Pending returns the migrations newer than current.
func Pending(all []Migration, current int) []Migration {
	var result []Migration
	for _, m := range all {
		if m.Version > current {
			result = append(result, m)
		}
	}
	return result
}

// Latest returns the highest version in all, or 0.
func Latest(all []Migration) int {
	if len(all) == 0 {
		return 0
	}
	return all[len(all)-1].Version
}

func versionFromName(name string) (int, error) {
	prefix, _, ok := strings.Cut(name, "_")
	if !ok {
		return 0, fmt.Errorf("migration %s: missing version prefix", name)
	}
	v, err := strconv.Atoi(prefix)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("migration %s: invalid version prefix %q", name, prefix)
	}
	return v, nil
}

// splitStatements splits SQL content into individual statements by semicolon.
//
// The splitter does NOT handle semicolons inside string literals or block comments.
// Migrations must use -- comments only; validateNoSemicolonInStrings enforces the rest.
func splitStatements(input string) []string {
	var filtered []string
	for _, line := range strings.Split(input, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		filtered = append(filtered, line)
	}
	joined := strings.Join(filtered, "\n")

	var stmts []string
	for _, part := range strings.Split(joined, ";") {
		stmt := strings.TrimSpace(part)
		if stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

// validateNoSemicolonInStrings rejects semicolons inside single-quoted strings,
// which would break splitStatements.
func validateNoSemicolonInStrings(sql string) error {
	inString := false
	for i := 0; i < len(sql); i++ {
		ch := sql[i]
		if ch == '\'' {
			if i+1 < len(sql) && sql[i+1] == '\'' {
				i++
				continue
			}
			inString = !inString
		} else if ch == ';' && inString {
			return fmt.Errorf("semicolon found inside string literal - this breaks the migration splitter")
		}
	}
	return nil
}

var destructive = regexp.MustCompile(`(?i)\b(DROP|TRUNCATE|RENAME)\b|\bDELETE\s+FROM\b`)

// validateAdditive rejects statements that would destroy existing collections.
func validateAdditive(sql string) error {
	for _, stmt := range splitStatements(sql) {
		if loc := destructive.FindStringIndex(stmt); loc != nil {
			return fmt.Errorf("destructive statement %q not allowed in migrations", stmt[loc[0]:loc[1]])
		}
	}
	return nil
}
