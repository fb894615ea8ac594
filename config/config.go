/*
 * Radon
 *
 * Copyright 2018 The Radon Authors.
 * Code is licensed under the GPLv3.
 *
 */

package config

import (
	"encoding/json"
	"os"

	"github.com/radondb/xshard/xbase"

	"github.com/pkg/errors"
	"sigs.k8s.io/yaml"
)

// LogConfig tuple.
type LogConfig struct {
	Level string `json:"level"`
}

// DefaultLogConfig returns default log config.
func DefaultLogConfig() *LogConfig {
	return &LogConfig{
		Level: "ERROR",
	}
}

// UnmarshalJSON interface on LogConfig.
func (c *LogConfig) UnmarshalJSON(b []byte) error {
	type confAlias *LogConfig
	conf := confAlias(DefaultLogConfig())
	if err := json.Unmarshal(b, conf); err != nil {
		return err
	}
	*c = LogConfig(*conf)
	return nil
}

const (
	// NullsFirst orders NULL before every non-null value in ascending order.
	NullsFirst = "first"
	// NullsLast orders NULL after every non-null value in ascending order.
	NullsLast = "last"

	// RoundHalfUp rounds half away from zero.
	RoundHalfUp = "half-up"
	// RoundHalfEven rounds half to the even neighbour.
	RoundHalfEven = "half-even"
	// RoundDown truncates towards zero.
	RoundDown = "down"

	// DialectMySQL renders `LIMIT offset, count`.
	DialectMySQL = "mysql"
	// DialectPostgreSQL renders `LIMIT count OFFSET offset`.
	DialectPostgreSQL = "postgresql"
)

// PropsConfig tuple.
type PropsConfig struct {
	Dialect string `json:"dialect"`

	// MaxWorkers bounds the number of execution units running at once.
	MaxWorkers int `json:"max-workers"`

	// MaxResultRows bounds the rows a memory merge may hold, 0 is unbounded.
	MaxResultRows int `json:"max-result-rows"`

	NullOrder   string `json:"null-order"`
	AvgScale    int32  `json:"avg-scale"`
	AvgRounding string `json:"avg-rounding"`

	AllowRangeQueryWithInlineSharding bool `json:"allow-range-query-with-inline-sharding"`

	// SQLShow logs the logic sql and every rendered unit.
	SQLShow        bool `json:"sql-show"`
	MaxQueryLength int  `json:"max-query-length"`
}

// DefaultPropsConfig returns default props config.
func DefaultPropsConfig() *PropsConfig {
	return &PropsConfig{
		Dialect:        DialectMySQL,
		MaxWorkers:     16,
		MaxResultRows:  1024 * 1024,
		NullOrder:      NullsFirst,
		AvgScale:       4,
		AvgRounding:    RoundHalfUp,
		MaxQueryLength: 1024,
	}
}

// UnmarshalJSON interface on PropsConfig.
func (c *PropsConfig) UnmarshalJSON(b []byte) error {
	type confAlias *PropsConfig
	conf := confAlias(DefaultPropsConfig())
	if err := json.Unmarshal(b, conf); err != nil {
		return err
	}
	*c = PropsConfig(*conf)
	return nil
}

// DataSourceConfig tuple.
type DataSourceConfig struct {
	Name string `json:"name"`
	// Driver is the database/sql driver name: mysql, pgx or sqlite.
	Driver   string `json:"driver"`
	Address  string `json:"address,omitempty"`
	User     string `json:"user,omitempty"`
	Password string `json:"password,omitempty"`
	DBName   string `json:"database,omitempty"`
	Charset  string `json:"charset,omitempty"`
	// DSN overrides the fields above when set.
	DSN            string `json:"dsn,omitempty"`
	MaxConnections int    `json:"max-connections"`
}

// AlgorithmConfig tuple.
type AlgorithmConfig struct {
	Type  string            `json:"type"`
	Props map[string]string `json:"props,omitempty"`
}

// StrategyConfig tuple.
type StrategyConfig struct {
	// Type is one of standard, complex, hint, none.
	Type string `json:"type"`
	// Column for standard, comma separated Columns for complex.
	Column    string `json:"column,omitempty"`
	Columns   string `json:"columns,omitempty"`
	Algorithm string `json:"algorithm,omitempty"`
}

// KeyGenerateConfig tuple.
type KeyGenerateConfig struct {
	Column    string `json:"column"`
	Generator string `json:"generator"`
}

// TableConfig tuple.
type TableConfig struct {
	Name string `json:"name"`
	// ActualDataNodes is an inline expression such as ds_${0..1}.t_order_${0..1}.
	ActualDataNodes  string             `json:"actual-data-nodes,omitempty"`
	DatabaseStrategy *StrategyConfig    `json:"database-strategy,omitempty"`
	TableStrategy    *StrategyConfig    `json:"table-strategy,omitempty"`
	KeyGenerate      *KeyGenerateConfig `json:"key-generate,omitempty"`
	// Columns is the optional physical column order used to complete INSERTs without a column list.
	Columns []string `json:"columns,omitempty"`
}

// ShardingConfig tuple.
type ShardingConfig struct {
	Tables []*TableConfig `json:"tables"`
	// BindingTables holds groups such as "t_order,t_order_item".
	BindingTables   []string `json:"binding-tables,omitempty"`
	BroadcastTables []string `json:"broadcast-tables,omitempty"`

	DefaultDataSource       string             `json:"default-data-source,omitempty"`
	DefaultDatabaseStrategy *StrategyConfig    `json:"default-database-strategy,omitempty"`
	DefaultTableStrategy    *StrategyConfig    `json:"default-table-strategy,omitempty"`
	DefaultKeyGenerate      *KeyGenerateConfig `json:"default-key-generate,omitempty"`

	Algorithms    map[string]*AlgorithmConfig `json:"algorithms,omitempty"`
	KeyGenerators map[string]*AlgorithmConfig `json:"key-generators,omitempty"`
}

// EncryptColumnConfig tuple.
type EncryptColumnConfig struct {
	Name              string `json:"name"`
	Cipher            string `json:"cipher"`
	AssistedQuery     string `json:"assisted-query,omitempty"`
	LikeQuery         string `json:"like-query,omitempty"`
	Encryptor         string `json:"encryptor"`
	AssistedEncryptor string `json:"assisted-encryptor,omitempty"`
	LikeEncryptor     string `json:"like-encryptor,omitempty"`
}

// EncryptTableConfig tuple.
type EncryptTableConfig struct {
	Name    string                 `json:"name"`
	Columns []*EncryptColumnConfig `json:"columns"`
}

// EncryptConfig tuple.
type EncryptConfig struct {
	Encryptors map[string]*AlgorithmConfig `json:"encryptors"`
	Tables     []*EncryptTableConfig       `json:"tables"`
}

// Config tuple.
type Config struct {
	Log         *LogConfig          `json:"log"`
	Props       *PropsConfig        `json:"props"`
	DataSources []*DataSourceConfig `json:"data-sources"`
	Sharding    *ShardingConfig     `json:"sharding"`
	Encrypt     *EncryptConfig      `json:"encrypt,omitempty"`
}

func checkConfig(conf *Config) error {
	if conf.Log == nil {
		conf.Log = DefaultLogConfig()
	}
	if conf.Props == nil {
		conf.Props = DefaultPropsConfig()
	}
	if conf.Sharding == nil {
		conf.Sharding = &ShardingConfig{}
	}

	names := make(map[string]struct{}, len(conf.DataSources))
	for _, ds := range conf.DataSources {
		if ds.Name == "" {
			return errors.New("config.data-source.name.can.not.be.empty")
		}
		if _, ok := names[ds.Name]; ok {
			return errors.Errorf("config.data-source[%s].duplicate", ds.Name)
		}
		names[ds.Name] = struct{}{}
	}

	switch conf.Props.NullOrder {
	case NullsFirst, NullsLast:
	default:
		return errors.Errorf("config.props.null-order[%s].unsupported", conf.Props.NullOrder)
	}
	switch conf.Props.AvgRounding {
	case RoundHalfUp, RoundHalfEven, RoundDown:
	default:
		return errors.Errorf("config.props.avg-rounding[%s].unsupported", conf.Props.AvgRounding)
	}
	switch conf.Props.Dialect {
	case DialectMySQL, DialectPostgreSQL:
	default:
		return errors.Errorf("config.props.dialect[%s].unsupported", conf.Props.Dialect)
	}
	return nil
}

// DataSourceNames returns the data source names in declared order.
func (c *Config) DataSourceNames() []string {
	names := make([]string, 0, len(c.DataSources))
	for _, ds := range c.DataSources {
		names = append(names, ds.Name)
	}
	return names
}

// ReadConfig parses the json (or yaml when isYAML) document.
func ReadConfig(data []byte, isYAML bool) (*Config, error) {
	if isYAML {
		var err error
		if data, err = yaml.YAMLToJSON(data); err != nil {
			return nil, errors.WithStack(err)
		}
	}
	conf := &Config{}
	if err := json.Unmarshal(data, conf); err != nil {
		return nil, errors.WithStack(err)
	}
	if err := checkConfig(conf); err != nil {
		return nil, err
	}
	return conf, nil
}

// LoadConfig used to load the config from file, yaml is chosen by extension.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return ReadConfig(data, xbase.IsYAML(path))
}

// WriteConfig used to write the conf to file.
func WriteConfig(path string, conf interface{}) error {
	b, err := json.MarshalIndent(conf, "", "\t")
	if err != nil {
		return errors.WithStack(err)
	}
	if xbase.IsYAML(path) {
		if b, err = yaml.JSONToYAML(b); err != nil {
			return errors.WithStack(err)
		}
	}
	return xbase.WriteFile(path, b)
}
