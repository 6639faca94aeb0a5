package proto

// Role of a database within the cluster topology.
type Role int

const (
	RolePrimary = Role(1)
	RoleReplica = Role(2)
)

func (r Role) String() string {
	switch r {
	case RolePrimary:
		return "PRIMARY"
	case RoleReplica:
		return "REPLICA"
	}
	return "invalid"
}

// DatabaseConfig describes one physical database of the cluster.
type DatabaseConfig struct {
	Shard int
	Role  Role
	Host  string
	Port  uint16
}

func (d DatabaseConfig) Primary() bool {
	return d.Role != RoleReplica
}

func (d DatabaseConfig) Replica() bool {
	return d.Role == RoleReplica
}

// Config is an immutable snapshot of the cluster topology for the
// database being queried. It is host-owned and read-only to plugins;
// the snapshot is only valid for the duration of the routing call.
type Config struct {
	name      string
	databases []DatabaseConfig
	shards    int
}

func NewConfig(name string, databases []DatabaseConfig, shards int) *Config {
	dbs := make([]DatabaseConfig, len(databases))
	copy(dbs, databases)
	return &Config{
		name:      name,
		databases: dbs,
		shards:    shards,
	}
}

func (c *Config) Name() string {
	return c.name
}

func (c *Config) Shards() int {
	return c.shards
}

// Database returns the database at index, in configured order.
func (c *Config) Database(index int) (DatabaseConfig, bool) {
	if index < 0 || index >= len(c.databases) {
		return DatabaseConfig{}, false
	}
	return c.databases[index], true
}

// Databases returns a copy of the topology list.
func (c *Config) Databases() []DatabaseConfig {
	dbs := make([]DatabaseConfig, len(c.databases))
	copy(dbs, c.databases)
	return dbs
}
