package workspace

import (
	"os"
	"path/filepath"

	gotoml "github.com/pelletier/go-toml/v2"

	"github.com/teranos/lore/config"
	"github.com/teranos/lore/errors"
	"github.com/teranos/lore/logger"
)

// manifestDoc mirrors the lore.toml layout for scaffolding. The loader
// itself goes through Viper; this type only exists to encode.
type manifestDoc struct {
	Workspace workspaceDoc `toml:"workspace"`
}

type workspaceDoc struct {
	Records string   `toml:"records"`
	Types   []string `toml:"types"`
	Format  string   `toml:"format"`
}

// starterRecords is encoded into records/starter.toml so a fresh
// workspace demonstrates the record format, including tagged strings.
var starterRecords = map[string]map[string]map[string]interface{}{
	"person": {
		"jane_doe": {
			"name":  "Jane Doe",
			"email": "jane@example.com",
		},
	},
	"task": {
		"first_note": {
			"title":        "Write your first record",
			"is_completed": false,
			"priority":     int64(1),
			"assignee":     "ref:person.jane_doe",
			"budget":       "cur:0 USD",
			"status":       "enum:open",
			"notes":        "path:records/starter.toml",
		},
	},
}

// Init scaffolds a new workspace at dir: a lore.toml manifest and a
// records directory with one starter record file. Refuses to overwrite
// an existing manifest.
func Init(dir string) error {
	manifestPath := filepath.Join(dir, config.ManifestName)
	if _, err := os.Stat(manifestPath); err == nil {
		return errors.Wrapf(errors.ErrConflict, "%s already exists", manifestPath)
	}

	recordsDir := filepath.Join(dir, "records")
	if err := os.MkdirAll(recordsDir, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create %s", recordsDir)
	}

	manifest := manifestDoc{
		Workspace: workspaceDoc{
			Records: "records",
			Types:   []string{"person", "task"},
			Format:  config.CurrentFormatVersion,
		},
	}
	if err := writeTOML(manifestPath, manifest); err != nil {
		return err
	}

	starterPath := filepath.Join(recordsDir, "starter.toml")
	if err := writeTOML(starterPath, starterRecords); err != nil {
		return err
	}

	logger.Infow("workspace initialized",
		"manifest", manifestPath,
		"records_dir", recordsDir)
	return nil
}

func writeTOML(path string, doc interface{}) error {
	data, err := gotoml.Marshal(doc)
	if err != nil {
		return errors.Wrapf(err, "failed to encode %s", path)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}
