// Package workspace turns a directory of plain-text TOML records into a
// built entity graph, and keeps it fresh as files change on disk.
package workspace

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/shopspring/decimal"

	"github.com/teranos/lore/config"
	"github.com/teranos/lore/errors"
	"github.com/teranos/lore/graph"
	"github.com/teranos/lore/kb"
	"github.com/teranos/lore/logger"
)

// Tagged string prefixes selecting the non-TOML value variants.
const (
	tagReference = "ref:"
	tagPath      = "path:"
	tagEnum      = "enum:"
	tagCurrency  = "cur:"
)

// Load reads every record file under the configured records directory
// and returns a built graph. Declared workspace types are registered
// even when no record of that type exists yet.
func Load(cfg *config.Config, root string) (*graph.Graph, error) {
	g := graph.New()
	for _, t := range cfg.Workspace.Types {
		g.RegisterType(kb.EntityType(t))
	}

	recordsDir := cfg.RecordsDir(root)
	files, err := recordFiles(recordsDir)
	if err != nil {
		return nil, err
	}

	for _, file := range files {
		entities, err := loadRecordFile(file)
		if err != nil {
			return nil, err
		}
		if err := g.AddEntities(entities); err != nil {
			return nil, errors.Wrapf(err, "record file %s", file)
		}
	}

	g.Build()
	logger.Debugw("workspace loaded",
		"records_dir", recordsDir,
		"files", len(files),
		"entities", g.Len())
	return g, nil
}

// recordFiles lists *.toml files under dir in deterministic path order.
// A missing records directory is an empty workspace, not an error.
func recordFiles(dir string) ([]string, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".toml") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to scan records directory %s", dir)
	}
	sort.Strings(files)
	return files, nil
}

// loadRecordFile decodes one TOML record file. Each top-level table
// addresses one entity: [person.jane] declares entity person.jane with
// the table's key/value pairs as fields. Entities within a file are
// emitted in id order so loads are deterministic.
func loadRecordFile(path string) ([]*kb.Entity, error) {
	var raw map[string]map[string]map[string]interface{}
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidWorkspace, "cannot decode %s: %v", path, err)
	}

	var ids []kb.EntityID
	fields := make(map[kb.EntityID]map[string]interface{})
	for typ, names := range raw {
		for name, table := range names {
			id := kb.NewEntityID(kb.EntityType(typ), name)
			ids = append(ids, id)
			fields[id] = table
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	entities := make([]*kb.Entity, 0, len(ids))
	for _, id := range ids {
		e, err := buildRecord(id, fields[id])
		if err != nil {
			return nil, errors.Wrapf(err, "record %s in %s", id, path)
		}
		entities = append(entities, e)
	}
	return entities, nil
}

func buildRecord(id kb.EntityID, table map[string]interface{}) (*kb.Entity, error) {
	b := kb.NewBuilder(id)

	// Deterministic field order so builder errors are stable
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		v, err := decodeValue(table[name], false)
		if err != nil {
			return nil, errors.Wrapf(err, "field %s", name)
		}
		b.Set(kb.FieldID(name), v)
	}
	return b.Build()
}

// decodeValue maps one decoded TOML value onto a typed field value.
// Tagged strings select the variants TOML cannot express natively.
func decodeValue(raw interface{}, inList bool) (kb.Value, error) {
	switch v := raw.(type) {
	case string:
		return decodeString(v)
	case int64:
		return kb.NewInteger(v), nil
	case float64:
		return kb.NewFloat(v), nil
	case bool:
		return kb.NewBoolean(v), nil
	case time.Time:
		return kb.NewDateTime(v), nil
	case []interface{}:
		if inList {
			return kb.Value{}, errors.Wrap(errors.ErrInvalidWorkspace, "nested lists are not supported")
		}
		elems := make([]kb.Value, 0, len(v))
		for _, el := range v {
			ev, err := decodeValue(el, true)
			if err != nil {
				return kb.Value{}, err
			}
			elems = append(elems, ev)
		}
		return kb.NewList(elems), nil
	default:
		return kb.Value{}, errors.Wrapf(errors.ErrInvalidWorkspace, "unsupported value %T", raw)
	}
}

func decodeString(s string) (kb.Value, error) {
	switch {
	case strings.HasPrefix(s, tagReference):
		ref, err := kb.ParseReference(strings.TrimPrefix(s, tagReference))
		if err != nil {
			return kb.Value{}, errors.Wrapf(errors.ErrInvalidWorkspace, "bad reference %q: %v", s, err)
		}
		return kb.NewReference(ref), nil

	case strings.HasPrefix(s, tagPath):
		return kb.NewPath(strings.TrimPrefix(s, tagPath)), nil

	case strings.HasPrefix(s, tagEnum):
		return kb.NewEnum(strings.TrimPrefix(s, tagEnum)), nil

	case strings.HasPrefix(s, tagCurrency):
		return decodeCurrency(strings.TrimPrefix(s, tagCurrency))

	default:
		return kb.NewString(s), nil
	}
}

// decodeCurrency reads "<amount> <CODE>", e.g. "100.50 USD".
func decodeCurrency(s string) (kb.Value, error) {
	parts := strings.Fields(s)
	if len(parts) != 2 {
		return kb.Value{}, errors.Wrapf(errors.ErrInvalidWorkspace,
			"currency %q must be '<amount> <CODE>'", s)
	}
	amount, err := decimal.NewFromString(parts[0])
	if err != nil {
		return kb.Value{}, errors.Wrapf(errors.ErrInvalidWorkspace,
			"bad currency amount %q", parts[0])
	}
	if len(parts[1]) != 3 {
		return kb.Value{}, errors.Wrapf(errors.ErrInvalidWorkspace,
			"currency code %q must be three letters", parts[1])
	}
	return kb.NewCurrency(amount, parts[1]), nil
}
