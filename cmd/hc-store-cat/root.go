package main

import (
	"fmt"
	"os"
	"time"

	"github.com/grafana/hitcounter/clock"
	"github.com/grafana/hitcounter/counter"
	"github.com/grafana/hitcounter/logger"
	"github.com/grafana/hitcounter/store"
	"github.com/grafana/hitcounter/store/backend"
	bigtableStore "github.com/grafana/hitcounter/store/bigtable"
	cassandraStore "github.com/grafana/hitcounter/store/cassandra"
	memoryStore "github.com/grafana/hitcounter/store/memory"
	homedir "github.com/mitchellh/go-homedir"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const tsFormat = "2006-01-02 15:04:05"

var rootCmd = &cobra.Command{
	Use:   "hc-store-cat",
	Short: "Prints the hit samples held in the hitcounter store",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logger.Setup(viper.GetString("log-level"), "hc-store-cat")
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

var (
	cfgFile string
	timeout time.Duration
)

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.hc-store-cat.yaml)")
	flags.String("log-level", "warning", "log level. panic|fatal|error|warning|info|debug")
	flags.DurationVar(&timeout, "timeout", 30*time.Second, "give up on the store after this long")
	flags.Bool("print-ts", false, "print unix timestamps instead of formatted dates")

	flags.String("backend", "cassandra", "store to read from: cassandra|bigtable")
	flags.String("cassandra-addrs", cassandraStore.CliConfig.Addrs, "cassandra host (may be given multiple times as comma-separated list)")
	flags.String("cassandra-keyspace", cassandraStore.CliConfig.Keyspace, "cassandra keyspace holding the hit samples")
	flags.String("cassandra-table", cassandraStore.CliConfig.Table, "cassandra table holding the hit samples")
	flags.String("cassandra-schema-file", cassandraStore.CliConfig.SchemaFile, "file containing the table schema")
	flags.String("cassandra-consistency", cassandraStore.CliConfig.Consistency, "read consistency (any|one|two|three|quorum|all|local_quorum|each_quorum|local_one")
	flags.String("bigtable-project", bigtableStore.CliConfig.GcpProject, "Name of GCP project the bigtable cluster resides in")
	flags.String("bigtable-instance", bigtableStore.CliConfig.BigtableInstance, "Name of bigtable instance")
	flags.String("bigtable-table", bigtableStore.CliConfig.TableName, "Name of bigtable table holding the hit samples")

	viper.BindPFlags(flags)

	rootCmd.AddCommand(latestCmd)
	rootCmd.AddCommand(windowCmd)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".hc-store-cat" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigName(".hc-store-cat")
	}

	viper.SetEnvPrefix("HC")
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		log.Infof("Using config file: %s", viper.ConfigFileUsed())
	}
}

// configureBackend enables exactly the backend asked for, read-only where the backend allows it
func configureBackend(name string) error {
	cassandraStore.CliConfig.Enabled = false
	bigtableStore.CliConfig.Enabled = false
	memoryStore.Enabled = false

	switch name {
	case "cassandra":
		cfg := cassandraStore.CliConfig
		cfg.Enabled = true
		cfg.Addrs = viper.GetString("cassandra-addrs")
		cfg.Keyspace = viper.GetString("cassandra-keyspace")
		cfg.Table = viper.GetString("cassandra-table")
		cfg.SchemaFile = viper.GetString("cassandra-schema-file")
		cfg.Consistency = viper.GetString("cassandra-consistency")
		cfg.CreateKeyspace = false
		cfg.ConnectionCheckInterval = 0
	case "bigtable":
		cfg := bigtableStore.CliConfig
		cfg.Enabled = true
		cfg.GcpProject = viper.GetString("bigtable-project")
		cfg.BigtableInstance = viper.GetString("bigtable-instance")
		cfg.TableName = viper.GetString("bigtable-table")
		cfg.CreateCF = false
	default:
		return fmt.Errorf("unknown backend %q. must be cassandra or bigtable", name)
	}
	return nil
}

// openCounter returns a counter over the configured store. callers must Stop the store
func openCounter() (*counter.Service, store.Store, error) {
	if err := configureBackend(viper.GetString("backend")); err != nil {
		return nil, nil, err
	}
	st, err := backend.Open(nil)
	if err != nil {
		return nil, nil, err
	}
	return counter.New(st, clock.Real{}, false), st, nil
}

func formatTs(ts uint32) string {
	if viper.GetBool("print-ts") {
		return fmt.Sprintf("%d", ts)
	}
	return time.Unix(int64(ts), 0).Format(tsFormat)
}
