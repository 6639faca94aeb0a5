package config

import (
	"encoding/json"
	"log"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/pgway/pgway/pkg/proto"
)

type Database struct {
	Host  string `json:"host" yaml:"host"`
	Port  uint16 `json:"port" yaml:"port"`
	Role  string `json:"role" yaml:"role"` // primary | replica
	Shard int    `json:"shard" yaml:"shard"`
}

type Plugin struct {
	Name     string            `json:"name" yaml:"name"`
	Settings map[string]string `json:"settings" yaml:"settings"`
}

const (
	RewritePolicyForward    = "forward"
	RewritePolicyReevaluate = "reevaluate"
)

type WayConfig struct {
	LogLevel string `json:"log_level" yaml:"log_level"`
	Addr     string `json:"addr" yaml:"addr"`

	Database  string     `json:"database" yaml:"database"`
	Shards    int        `json:"shards" yaml:"shards"`
	Databases []Database `json:"databases" yaml:"databases"`

	Plugins []Plugin `json:"plugins" yaml:"plugins"`

	// RewritePolicy decides what happens after a REWRITE decision:
	// "forward" sends the rewritten text directly, "reevaluate"
	// re-enters the chain with it, bounded by MaxRewrites.
	RewritePolicy string `json:"rewrite_policy" yaml:"rewrite_policy"`
	MaxRewrites   int    `json:"max_rewrites" yaml:"max_rewrites"`
}

var cfg WayConfig

func Load(cfgPath string) error {
	file, err := os.Open(cfgPath)
	if err != nil {
		return err
	}
	defer file.Close()
	if err := yaml.NewDecoder(file).Decode(&cfg); err != nil {
		return err
	}
	cfg.defaults()

	configBytes, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	log.Println("Running config:", string(configBytes))
	return nil
}

func Get() *WayConfig {
	return &cfg
}

// Read decodes a config without touching the package-level state.
func Read(data []byte) (*WayConfig, error) {
	var c WayConfig
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	c.defaults()
	return &c, nil
}

func (c *WayConfig) defaults() {
	if c.RewritePolicy == "" {
		c.RewritePolicy = RewritePolicyForward
	}
	if c.MaxRewrites == 0 {
		c.MaxRewrites = 4
	}
	if c.Shards == 0 {
		shards := 0
		for _, db := range c.Databases {
			if db.Shard+1 > shards {
				shards = db.Shard + 1
			}
		}
		c.Shards = shards
	}
}

// ClusterSnapshot builds the immutable topology snapshot handed to
// plugins on every routing call.
func (c *WayConfig) ClusterSnapshot() *proto.Config {
	dbs := make([]proto.DatabaseConfig, 0, len(c.Databases))
	for _, db := range c.Databases {
		role := proto.RolePrimary
		if db.Role == "replica" {
			role = proto.RoleReplica
		}
		dbs = append(dbs, proto.DatabaseConfig{
			Shard: db.Shard,
			Role:  role,
			Host:  db.Host,
			Port:  db.Port,
		})
	}
	return proto.NewConfig(c.Database, dbs, c.Shards)
}
