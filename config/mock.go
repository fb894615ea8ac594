/*
 * Radon
 *
 * Copyright 2018 The Radon Authors.
 * Code is licensed under the GPLv3.
 *
 */

package config

var (
	// MockLogConfig config.
	MockLogConfig = &LogConfig{
		Level: "DEBUG",
	}

	// MockDataSources config, two in-memory sqlite shards.
	MockDataSources = []*DataSourceConfig{
		&DataSourceConfig{
			Name:           "ds_0",
			Driver:         "sqlite",
			DSN:            "file:ds_0?mode=memory&cache=shared",
			MaxConnections: 4,
		},
		&DataSourceConfig{
			Name:           "ds_1",
			Driver:         "sqlite",
			DSN:            "file:ds_1?mode=memory&cache=shared",
			MaxConnections: 4,
		},
	}

	// MockAlgorithms config.
	MockAlgorithms = map[string]*AlgorithmConfig{
		"database_inline": &AlgorithmConfig{
			Type:  "INLINE",
			Props: map[string]string{"algorithm-expression": "ds_${user_id % 2}"},
		},
		"t_order_inline": &AlgorithmConfig{
			Type:  "INLINE",
			Props: map[string]string{"algorithm-expression": "t_order_${order_id % 2}"},
		},
		"t_order_item_inline": &AlgorithmConfig{
			Type:  "INLINE",
			Props: map[string]string{"algorithm-expression": "t_order_item_${order_id % 2}"},
		},
		"mod_2": &AlgorithmConfig{
			Type:  "MOD",
			Props: map[string]string{"sharding-count": "2"},
		},
	}

	// MockShardingConfig config.
	MockShardingConfig = &ShardingConfig{
		Tables: []*TableConfig{
			&TableConfig{
				Name:            "t_order",
				ActualDataNodes: "ds_${0..1}.t_order_${0..1}",
				DatabaseStrategy: &StrategyConfig{
					Type:      "standard",
					Column:    "user_id",
					Algorithm: "database_inline",
				},
				TableStrategy: &StrategyConfig{
					Type:      "standard",
					Column:    "order_id",
					Algorithm: "t_order_inline",
				},
				Columns: []string{"order_id", "user_id", "status"},
			},
			&TableConfig{
				Name:            "t_order_item",
				ActualDataNodes: "ds_${0..1}.t_order_item_${0..1}",
				DatabaseStrategy: &StrategyConfig{
					Type:      "standard",
					Column:    "user_id",
					Algorithm: "database_inline",
				},
				TableStrategy: &StrategyConfig{
					Type:      "standard",
					Column:    "order_id",
					Algorithm: "t_order_item_inline",
				},
				KeyGenerate: &KeyGenerateConfig{
					Column:    "item_id",
					Generator: "snowflake",
				},
			},
		},
		BindingTables:     []string{"t_order,t_order_item"},
		BroadcastTables:   []string{"t_config"},
		DefaultDataSource: "ds_0",
		Algorithms:        MockAlgorithms,
		KeyGenerators: map[string]*AlgorithmConfig{
			"snowflake": &AlgorithmConfig{Type: "SNOWFLAKE", Props: map[string]string{"worker-id": "1"}},
		},
	}

	// MockEncryptConfig config.
	MockEncryptConfig = &EncryptConfig{
		Encryptors: map[string]*AlgorithmConfig{
			"aes": &AlgorithmConfig{Type: "AES", Props: map[string]string{"aes-key-value": "123456abc"}},
			"md5": &AlgorithmConfig{Type: "MD5"},
		},
		Tables: []*EncryptTableConfig{
			&EncryptTableConfig{
				Name: "t_user",
				Columns: []*EncryptColumnConfig{
					&EncryptColumnConfig{
						Name:              "pwd",
						Cipher:            "pwd_cipher",
						AssistedQuery:     "pwd_assisted",
						Encryptor:         "aes",
						AssistedEncryptor: "md5",
					},
				},
			},
		},
	}
)

// MockConfig returns a full config over the mock sections.
func MockConfig() *Config {
	return &Config{
		Log:         MockLogConfig,
		Props:       DefaultPropsConfig(),
		DataSources: MockDataSources,
		Sharding:    MockShardingConfig,
		Encrypt:     MockEncryptConfig,
	}
}
