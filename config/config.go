package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"dbcopy/transform"
)

const (
	DefaultBatchSize      = 1000
	DefaultMaxConnections = 10
)

type (
	// Database holds the connection settings for one side of a migration.
	Database struct {
		// DSN in go-sql-driver form, e.g. user:pass@tcp(host:3306)/db
		DSN string `yaml:"dsn"`

		// MaxConnections caps the connection pool, and with it how many
		// tables are copied at once
		MaxConnections int `yaml:"max_connections"`
	}

	// TableConfig controls how a single table is migrated.
	TableConfig struct {
		// BatchSize is the number of rows sent per INSERT statement
		BatchSize int `yaml:"batch_size"`

		// SkipData copies the schema only
		SkipData bool `yaml:"skip_data"`

		// Outfile writes the table's statements to a file instead of the target
		Outfile string `yaml:"outfile,omitempty"`

		// Transformers rewrite column values, keyed by column name
		Transformers map[string]transform.Transformer `yaml:"transformers,omitempty"`
	}

	Migrate struct {
		Tables map[string]TableConfig `yaml:"tables"`
	}

	Config struct {
		Source Database `yaml:"source"`
		Target Database `yaml:"target"`

		// CreateTargetDatabase drops and recreates the target database before copying
		CreateTargetDatabase bool `yaml:"create_target_database"`

		// Concurrency limits the number of tables copied at once; zero leaves
		// the limit to the connection pools
		Concurrency int `yaml:"concurrency"`

		Migrate Migrate `yaml:"migrate"`
	}
)

// DefaultTableConfig is used for every table without an explicit entry.
func DefaultTableConfig() TableConfig {
	return TableConfig{BatchSize: DefaultBatchSize}
}

func (c *TableConfig) UnmarshalYAML(node *yaml.Node) error {
	type plain TableConfig
	p := plain(DefaultTableConfig())
	if err := node.Decode(&p); err != nil {
		return err
	}
	*c = TableConfig(p)
	return nil
}

func (d *Database) UnmarshalYAML(node *yaml.Node) error {
	type plain Database
	p := plain{MaxConnections: DefaultMaxConnections}
	if err := node.Decode(&p); err != nil {
		return err
	}
	*d = Database(p)
	return nil
}

// Table returns the configuration for the named table, falling back to
// DefaultTableConfig.
func (c *Config) Table(name string) TableConfig {
	if tc, ok := c.Migrate.Tables[name]; ok {
		return tc
	}
	return DefaultTableConfig()
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if err := c.Source.validate("source"); err != nil {
		return err
	}
	if err := c.Target.validate("target"); err != nil {
		return err
	}
	if c.Concurrency < 0 {
		return errors.Errorf("concurrency must not be negative, got %d", c.Concurrency)
	}
	for name, tc := range c.Migrate.Tables {
		if tc.BatchSize < 1 {
			return errors.Errorf("table %s: batch_size must be at least 1, got %d", name, tc.BatchSize)
		}
	}
	return nil
}

func (d Database) validate(side string) error {
	if d.DSN == "" {
		return errors.Errorf("%s: dsn is required", side)
	}
	cfg, err := mysql.ParseDSN(d.DSN)
	if err != nil {
		return errors.Wrapf(err, "%s: invalid dsn", side)
	}
	if cfg.DBName == "" {
		return errors.Errorf("%s: dsn must name a database", side)
	}
	if d.MaxConnections < 1 {
		return errors.Errorf("%s: max_connections must be at least 1, got %d", side, d.MaxConnections)
	}
	return nil
}

// LoadConfig parses and validates a YAML configuration from r.
func LoadConfig(r io.Reader) (*Config, error) {
	var cfg Config
	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return &cfg, nil
}

// LoadConfigFile loads the configuration stored at path.
func LoadConfigFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open file: %s", path)
	}
	defer func() { _ = f.Close() }()

	return LoadConfig(f)
}

// Load reads the config at path, or at DefaultConfigPath when path is
// empty. A missing default config is created from the example first.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigPath()
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := WriteExample(path); err != nil {
				return nil, err
			}
			fmt.Printf("Created default config at %s\n", path)
			fmt.Println("Please edit the config file to point at your source and target databases.")
		}
	}
	return LoadConfigFile(path)
}

func DefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".dbcopy/config.yaml"
	}
	return filepath.Join(homeDir, ".dbcopy", "config.yaml")
}

const exampleConfig = `# dbcopy configuration
source:
  dsn: "root:password@tcp(localhost:3306)/sourcedb"
  max_connections: 10
target:
  dsn: "root:password@tcp(localhost:3307)/targetdb"
  max_connections: 10
create_target_database: false
migrate:
  tables:
    users:
      batch_size: 1000
      skip_data: false
      transformers:
        email:
          replace: "user@example.com"
        password_hash: nullify
        profile:
          merge: {migrated: true}
`

// WriteExample writes an example configuration to path.
func WriteExample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}
	if err := os.WriteFile(path, []byte(exampleConfig), 0600); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}
	return nil
}
