package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/solvefy/solvefy/internal/store"
)

// ImportFile imports one category document into st. A file whose content
// hash matches the last import is skipped. A changed file is imported again;
// rows whose ids already exist are left as they are.
func ImportFile(ctx context.Context, st *store.Store, path string) (stats store.ImportStats, skipped bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return stats, false, fmt.Errorf("read %s: %w", path, err)
	}

	hash := sha256sum(data)
	storedHash, err := st.GetImportedFileHash(ctx, path)
	if err != nil {
		return stats, false, fmt.Errorf("check import status for %s: %w", path, err)
	}
	if storedHash == hash {
		slog.Info("catalog file unchanged, skipping", "path", path)
		return stats, true, nil
	}
	if storedHash != "" {
		slog.Warn("catalog file changed since last import, adding new rows only", "path", path)
	}

	nodes, err := Parse(data)
	if err != nil {
		return stats, false, fmt.Errorf("parse %s: %w", path, err)
	}
	rows, err := Flatten(nodes, time.Now().UTC())
	if err != nil {
		return stats, false, fmt.Errorf("flatten %s: %w", path, err)
	}
	stats, err = st.ImportCatalog(ctx, rows)
	if err != nil {
		return stats, false, fmt.Errorf("import %s: %w", path, err)
	}

	if err := st.SetImportedFileHash(ctx, path, hash); err != nil {
		return stats, false, fmt.Errorf("record import for %s: %w", path, err)
	}
	slog.Info("imported catalog file", "path", path,
		"subjects", len(rows.Subjects), "grades", len(rows.Grades),
		"books", len(rows.Books), "lessons", len(rows.Lessons))
	return stats, false, nil
}

func sha256sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
