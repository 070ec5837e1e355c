package cassandra

import (
	"fmt"
	"time"

	"github.com/gocql/gocql"
	log "github.com/sirupsen/logrus"
)

// EnsureTableExists makes sure the table is there before we start using it.
// If create is set, the schema statement is executed (it should be idempotent, i.e. "IF NOT EXISTS").
// Otherwise we assume another process creates it, and poll the keyspace metadata
// up to attempts times, sleeping interval before each retry.
func EnsureTableExists(session *gocql.Session, create bool, keyspace, schema, table string, attempts int, interval time.Duration) error {
	if create {
		log.Infof("cassandra: ensuring that table %s exists.", table)
		if err := session.Query(schema).Exec(); err != nil {
			return fmt.Errorf("failed to initialize cassandra table %s: %w", table, err)
		}
		return nil
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = tableExists(session, keyspace, table)
		if err == nil {
			return nil
		}
		if attempt < attempts {
			log.Warnf("cassandra: attempt %d, retrying in %s: %s", attempt, interval, err)
			time.Sleep(interval)
		}
	}
	log.Errorf("cassandra: giving up after %d attempts: %s", attempts, err)
	return fmt.Errorf("after %d attempts: %w", attempts, err)
}

func tableExists(session *gocql.Session, keyspace, table string) error {
	meta, err := session.KeyspaceMetadata(keyspace)
	if err != nil {
		return fmt.Errorf("cassandra keyspace %s not found: %w", keyspace, err)
	}
	if _, ok := meta.Tables[table]; !ok {
		return fmt.Errorf("cassandra table %s.%s not found", keyspace, table)
	}
	return nil
}
