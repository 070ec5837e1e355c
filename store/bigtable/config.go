package bigtable

import (
	"errors"
	"flag"
	"time"

	"github.com/grafana/globalconf"
)

type StoreConfig struct {
	Enabled          bool
	GcpProject       string
	BigtableInstance string
	TableName        string
	ReadConcurrency  int
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	CreateCF         bool
}

func (cfg *StoreConfig) Validate() error {
	if cfg.GcpProject == "" || cfg.BigtableInstance == "" {
		return errors.New("gcp-project and bigtable-instance must be set")
	}
	if cfg.TableName == "" {
		return errors.New("table-name must be set")
	}
	if cfg.ReadConcurrency < 1 {
		return errors.New("read-concurrency must be at least 1")
	}
	if cfg.ReadTimeout <= 0 || cfg.WriteTimeout <= 0 {
		return errors.New("read-timeout and write-timeout must be positive")
	}
	return nil
}

// NewStoreConfig returns a StoreConfig with default values set
func NewStoreConfig() *StoreConfig {
	return &StoreConfig{
		Enabled:          false,
		GcpProject:       "default",
		BigtableInstance: "default",
		TableName:        "api_metrics",
		ReadConcurrency:  20,
		ReadTimeout:      time.Second * 5,
		WriteTimeout:     time.Second * 5,
		CreateCF:         true,
	}
}

var CliConfig = NewStoreConfig()

func ConfigSetup() {
	btStore := flag.NewFlagSet("bigtable-store", flag.ExitOnError)
	btStore.BoolVar(&CliConfig.Enabled, "enabled", CliConfig.Enabled, "use bigtable as the store")
	btStore.StringVar(&CliConfig.GcpProject, "gcp-project", CliConfig.GcpProject, "Name of GCP project the bigtable cluster resides in")
	btStore.StringVar(&CliConfig.BigtableInstance, "bigtable-instance", CliConfig.BigtableInstance, "Name of bigtable instance")
	btStore.StringVar(&CliConfig.TableName, "table-name", CliConfig.TableName, "Name of bigtable table used for hit samples")
	btStore.IntVar(&CliConfig.ReadConcurrency, "read-concurrency", CliConfig.ReadConcurrency, "Number concurrent reads that can be processed")
	btStore.DurationVar(&CliConfig.ReadTimeout, "read-timeout", CliConfig.ReadTimeout, "read timeout")
	btStore.DurationVar(&CliConfig.WriteTimeout, "write-timeout", CliConfig.WriteTimeout, "write timeout")
	btStore.BoolVar(&CliConfig.CreateCF, "create-cf", CliConfig.CreateCF, "enable the creation of the table and column family")
	globalconf.Register("bigtable-store", btStore, flag.ExitOnError)
}
