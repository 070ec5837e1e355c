package cassandra

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/gocql/gocql"
	"github.com/grafana/globalconf"
)

type StoreConfig struct {
	Enabled                  bool
	Addrs                    string
	Keyspace                 string
	Table                    string
	Consistency              string
	HostSelectionPolicy      string
	Timeout                  time.Duration
	ReadConcurrency          int
	Retries                  int
	CqlProtocolVersion       int
	CreateKeyspace           bool
	DisableInitialHostLookup bool
	SSL                      bool
	CaPath                   string
	HostVerification         bool
	Auth                     bool
	Username                 string
	Password                 string
	SchemaFile               string
	ConnectionCheckInterval  time.Duration
	ConnectionCheckTimeout   time.Duration
}

// NewStoreConfig returns a StoreConfig with default values set
func NewStoreConfig() *StoreConfig {
	return &StoreConfig{
		Enabled:                  false,
		Addrs:                    "localhost",
		Keyspace:                 "hitcounter",
		Table:                    "api_metrics",
		Consistency:              "one",
		HostSelectionPolicy:      "tokenaware,hostpool-epsilon-greedy",
		Timeout:                  time.Second,
		ReadConcurrency:          20,
		Retries:                  0,
		CqlProtocolVersion:       4,
		CreateKeyspace:           true,
		DisableInitialHostLookup: false,
		SSL:                      false,
		CaPath:                   "/etc/hitcounter/ca.pem",
		HostVerification:         true,
		Auth:                     false,
		Username:                 "cassandra",
		Password:                 "cassandra",
		SchemaFile:               "/etc/hitcounter/schema-store-cassandra.toml",
		ConnectionCheckInterval:  time.Second * 5,
		ConnectionCheckTimeout:   time.Second * 30,
	}
}

var CliConfig = NewStoreConfig()

var hostSelectionPolicies = []string{
	"roundrobin",
	"hostpool-simple",
	"hostpool-epsilon-greedy",
	"tokenaware,roundrobin",
	"tokenaware,hostpool-simple",
	"tokenaware,hostpool-epsilon-greedy",
}

func ConfigSetup() *flag.FlagSet {
	cas := flag.NewFlagSet("cassandra", flag.ExitOnError)
	cas.BoolVar(&CliConfig.Enabled, "enabled", CliConfig.Enabled, "use cassandra as the store")
	cas.StringVar(&CliConfig.Addrs, "addrs", CliConfig.Addrs, "cassandra host (may be given multiple times as comma-separated list)")
	cas.StringVar(&CliConfig.Keyspace, "keyspace", CliConfig.Keyspace, "cassandra keyspace to use for storing the hit samples")
	cas.StringVar(&CliConfig.Table, "table", CliConfig.Table, "cassandra table to store the hit samples in")
	cas.StringVar(&CliConfig.Consistency, "consistency", CliConfig.Consistency, "read and write consistency (any|one|two|three|quorum|all|local_quorum|each_quorum|local_one")
	cas.StringVar(&CliConfig.HostSelectionPolicy, "host-selection-policy", CliConfig.HostSelectionPolicy, strings.Join(hostSelectionPolicies, "|"))
	cas.DurationVar(&CliConfig.Timeout, "timeout", CliConfig.Timeout, "cassandra timeout")
	cas.IntVar(&CliConfig.ReadConcurrency, "read-concurrency", CliConfig.ReadConcurrency, "max number of concurrent reads to cassandra.")
	cas.IntVar(&CliConfig.Retries, "retries", CliConfig.Retries, "how many times to retry a query before failing it")
	cas.IntVar(&CliConfig.CqlProtocolVersion, "cql-protocol-version", CliConfig.CqlProtocolVersion, "cql protocol version to use")
	cas.BoolVar(&CliConfig.CreateKeyspace, "create-keyspace", CliConfig.CreateKeyspace, "enable the creation of the keyspace and table, only one node needs this")
	cas.BoolVar(&CliConfig.DisableInitialHostLookup, "disable-initial-host-lookup", CliConfig.DisableInitialHostLookup, "instruct the driver to not attempt to get host info from the system.peers table")
	cas.BoolVar(&CliConfig.SSL, "ssl", CliConfig.SSL, "enable SSL connection to cassandra")
	cas.StringVar(&CliConfig.CaPath, "ca-path", CliConfig.CaPath, "cassandra CA certificate path when using SSL")
	cas.BoolVar(&CliConfig.HostVerification, "host-verification", CliConfig.HostVerification, "host (hostname and server cert) verification when using SSL")
	cas.BoolVar(&CliConfig.Auth, "auth", CliConfig.Auth, "enable cassandra authentication")
	cas.StringVar(&CliConfig.Username, "username", CliConfig.Username, "username for authentication")
	cas.StringVar(&CliConfig.Password, "password", CliConfig.Password, "password for authentication")
	cas.StringVar(&CliConfig.SchemaFile, "schema-file", CliConfig.SchemaFile, "File containing the needed schemas in case database needs initializing")
	cas.DurationVar(&CliConfig.ConnectionCheckInterval, "connection-check-interval", CliConfig.ConnectionCheckInterval, "interval at which to perform a connection check to cassandra, set to 0 to disable.")
	cas.DurationVar(&CliConfig.ConnectionCheckTimeout, "connection-check-timeout", CliConfig.ConnectionCheckTimeout, "maximum total time to wait before considering a connection to cassandra invalid. This value should be higher than connection-check-interval.")
	globalconf.Register("cassandra", cas, flag.ExitOnError)
	return cas
}

// Validate checks the settings that can be checked without talking to cassandra
func (c *StoreConfig) Validate() error {
	if c.Addrs == "" {
		return fmt.Errorf("addrs must be set")
	}
	if c.Keyspace == "" || c.Table == "" {
		return fmt.Errorf("keyspace and table must be set")
	}
	if _, err := gocql.ParseConsistencyWrapper(c.Consistency); err != nil {
		return fmt.Errorf("invalid consistency %q: %w", c.Consistency, err)
	}
	known := false
	for _, p := range hostSelectionPolicies {
		if p == c.HostSelectionPolicy {
			known = true
		}
	}
	if !known {
		return fmt.Errorf("unknown host-selection-policy %q", c.HostSelectionPolicy)
	}
	if c.ConnectionCheckInterval > 0 && c.ConnectionCheckTimeout < c.ConnectionCheckInterval {
		return fmt.Errorf("connection-check-timeout (%s) must not be lower than connection-check-interval (%s)", c.ConnectionCheckTimeout, c.ConnectionCheckInterval)
	}
	return nil
}
