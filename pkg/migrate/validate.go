package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var migrationFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

// ValidateDir checks the migrations directory before a deploy: every SQL file
// must carry a timestamp version, versions must be unique, and each file must
// declare both goose directions. Wired to the migrate binary's validate
// command so a malformed file fails CI rather than the rollout.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("migrations dir is required")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read migrations dir %q: %w", dir, err)
	}

	versions := map[string]string{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".sql") {
			continue
		}

		m := migrationFileRe.FindStringSubmatch(name)
		if m == nil {
			return fmt.Errorf("migration filename %q does not match <timestamp>_<name>.sql", name)
		}
		version := m[1]
		if prev, ok := versions[version]; ok {
			return fmt.Errorf("migration version %s used by both %q and %q", version, prev, name)
		}
		versions[version] = name

		if err := checkGooseHeaders(filepath.Join(dir, name)); err != nil {
			return err
		}
	}
	return nil
}

func checkGooseHeaders(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read migration %q: %w", path, err)
	}
	content := string(raw)
	for _, directive := range []string{"-- +goose Up", "-- +goose Down"} {
		if !strings.Contains(content, directive) {
			return fmt.Errorf("migration %q is missing the %q directive", filepath.Base(path), directive)
		}
	}
	return nil
}
