package directory

import (
	"fmt"
	"io/fs"
	"maps"
	"slices"

	"gopkg.in/yaml.v3"
)

// sourceFile is one entry of a sources file, keyed by entity type:
//
//	member:
//	  table: members
//	  address_column: email
//	  columns:
//	    Name: full_name
//	    Status: status
type sourceFile struct {
	Columns       map[string]string `yaml:"columns"`
	Table         string            `yaml:"table"`
	IDColumn      string            `yaml:"id_column"`
	AddressColumn string            `yaml:"address_column"`
}

// ParseSources reads Postgres source definitions from YAML, sorted by type.
func ParseSources(data []byte) ([]PostgresConfig, error) {
	var file map[string]sourceFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("directory: parse sources: %w", err)
	}

	cfgs := make([]PostgresConfig, 0, len(file))
	for _, typ := range slices.Sorted(maps.Keys(file)) {
		s := file[typ]
		if s.Table == "" {
			return nil, fmt.Errorf("directory: source %q: table is required", typ)
		}
		cfgs = append(cfgs, PostgresConfig{
			Columns:       s.Columns,
			Type:          typ,
			Table:         s.Table,
			IDColumn:      s.IDColumn,
			AddressColumn: s.AddressColumn,
		})
	}
	return cfgs, nil
}

// LoadSources reads a sources file from fsys.
func LoadSources(fsys fs.FS, name string) ([]PostgresConfig, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("directory: read sources: %w", err)
	}
	return ParseSources(data)
}

// RegisterPostgres registers a PostgresSource per config.
func RegisterPostgres(r *Registry, db Querier, cfgs []PostgresConfig) error {
	for _, cfg := range cfgs {
		src, err := NewPostgresSource(db, cfg)
		if err != nil {
			return fmt.Errorf("directory: source %q: %w", cfg.Type, err)
		}
		r.Register(cfg.Type, src)
	}
	return nil
}
