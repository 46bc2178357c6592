package schemaload

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/docuflow/docuflow/internal/core/services"
	"github.com/docuflow/docuflow/internal/dto"
)

// LoadDir reads every *.json schema file under dir, registers the schemas in
// declaration order (lexicographic by filename) and freezes the registry.
// After this returns successfully the registry serves lock-free reads.
func LoadDir(registry *services.SchemaRegistry, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read schema directory %s: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	if len(names) == 0 {
		return fmt.Errorf("no schema files found in %s", dir)
	}

	for _, name := range names {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read schema file %s: %w", path, err)
		}
		var sf dto.SchemaFile
		if err := json.Unmarshal(data, &sf); err != nil {
			return fmt.Errorf("failed to parse schema file %s: %w", path, err)
		}
		schema, err := sf.ToDomain()
		if err != nil {
			return fmt.Errorf("invalid schema file %s: %w", path, err)
		}
		if err := registry.Register(schema); err != nil {
			return fmt.Errorf("failed to register schema %s: %w", schema.Name, err)
		}
		slog.Info("registered schema", "schema", schema.Name, "file", name)
	}

	registry.Freeze()
	return nil
}
