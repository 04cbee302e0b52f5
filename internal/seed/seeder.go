package seed

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"go.uber.org/zap"

	"github.com/sheetforge/sheetforge/internal/infrastructure/logging"
	"github.com/sheetforge/sheetforge/internal/kernel"
	"github.com/sheetforge/sheetforge/internal/types"
)

// entityFile is the on-disk shape of a seed entity
type entityFile struct {
	ID         string                 `yaml:"id"`
	Type       string                 `yaml:"type"`
	Name       string                 `yaml:"name"`
	Properties map[string]interface{} `yaml:"properties"`
}

// Seeder loads starter entities from a directory of YAML files into the
// kernel's namespace
type Seeder struct {
	kernel *kernel.Kernel
	dir    string
	log    *logging.Logger
}

// NewSeeder creates a seeder for the given directory
func NewSeeder(k *kernel.Kernel, dir string, log *logging.Logger) *Seeder {
	if log == nil {
		log = logging.NewNop()
	}
	return &Seeder{kernel: k, dir: dir, log: log}
}

// SeedEntities loads every .yaml file in the directory. Entities that
// already exist in the tree are skipped, so seeding is idempotent across
// restarts that restore from the backing store first.
func (s *Seeder) SeedEntities() (int, error) {
	if s.dir == "" {
		return 0, nil
	}
	if _, err := os.Stat(s.dir); os.IsNotExist(err) {
		s.log.Info("seed directory not found, skipping", zap.String("dir", s.dir))
		return 0, nil
	}

	var loaded int
	err := filepath.Walk(s.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(info.Name(), ".yaml") {
			return nil
		}
		if err := s.loadEntity(path); err != nil {
			s.log.Warn("failed to seed entity",
				zap.String("file", info.Name()),
				zap.Error(err))
			return nil
		}
		loaded++
		return nil
	})
	if err != nil {
		return loaded, err
	}

	s.log.Info("entity seeding complete", zap.Int("loaded", loaded))
	return loaded, nil
}

func (s *Seeder) loadEntity(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var file entityFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	if file.ID == "" {
		return fmt.Errorf("%s: entity id is required", path)
	}

	entityPath := "/entity/" + file.ID
	if s.kernel.Exists(entityPath) {
		return nil
	}

	ent := types.NewEntity(file.ID, file.Type, file.Name)
	for key, raw := range file.Properties {
		v, err := types.FromInterface(normalizeYAML(raw))
		if err != nil {
			return fmt.Errorf("%s: property %q: %w", path, key, err)
		}
		ent.SetProp(key, v)
	}

	if errno := s.kernel.Create(entityPath, ent); !errno.Ok() {
		return fmt.Errorf("create %s: %s", entityPath, errno)
	}
	return nil
}

// normalizeYAML coerces YAML decoding artifacts (integer numbers,
// interface-keyed maps) into the JSON-shaped values FromInterface expects
func normalizeYAML(raw interface{}) interface{} {
	switch t := raw.(type) {
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case uint64:
		return float64(t)
	case map[string]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, v := range t {
			m[k] = normalizeYAML(v)
		}
		return m
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, v := range t {
			m[fmt.Sprint(k)] = normalizeYAML(v)
		}
		return m
	case []interface{}:
		l := make([]interface{}, len(t))
		for i, v := range t {
			l[i] = normalizeYAML(v)
		}
		return l
	default:
		return raw
	}
}
