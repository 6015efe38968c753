package generator

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// WriteScript saves the create and drop plans of a database into
// <dir>/<timestamp>_<name>.sql with separate sections. Statements of
// batches that tolerate failures are marked.
func WriteScript(dir, name string, create, drop Plan) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s folder: %w", dir, err)
	}

	timestamp := time.Now().Format("20060102150405")
	filename := filepath.Join(dir, fmt.Sprintf("%s_%s.sql", timestamp, name))

	var sb strings.Builder
	sb.WriteString("-- Structure: " + name + "\n")
	sb.WriteString("-- Generated: " + timestamp + "\n\n")
	writeSection(&sb, "Create", create)
	sb.WriteString("\n")
	writeSection(&sb, "Drop", drop)

	if err := os.WriteFile(filename, []byte(sb.String()), 0o644); err != nil {
		return "", fmt.Errorf("writing script file: %w", err)
	}
	return filename, nil
}

func writeSection(sb *strings.Builder, title string, p Plan) {
	sb.WriteString("-- " + title + "\n")
	sb.WriteString("-- " + strings.Repeat("=", len(title)) + "\n")
	for _, b := range p {
		for _, stmt := range b.Statements {
			if b.IgnoreErrors {
				sb.WriteString("-- may fail if already present\n")
			}
			sb.WriteString(stmt + "\n")
		}
	}
}
