package cassandra

import (
	"errors"
	"sync"
	"time"

	"github.com/gocql/gocql"
	log "github.com/sirupsen/logrus"
)

// Session holds a gocql session and replaces it when the cluster has been unreachable for too long
type Session struct {
	sync.RWMutex
	session *gocql.Session
	cluster *gocql.ClusterConfig

	checkTimeout  time.Duration
	checkInterval time.Duration
	logPrefix     string

	shutdown chan struct{}
	wg       sync.WaitGroup
}

// NewSession connects to the cluster. If checkInterval > 0, the connection is checked
// in the background and a new session is created once checks have failed for checkTimeout.
func NewSession(cluster *gocql.ClusterConfig, checkTimeout, checkInterval time.Duration, logPrefix string) (*Session, error) {
	if cluster == nil {
		return nil, errors.New("cassandra: NewSession needs a cluster config")
	}

	session, err := cluster.CreateSession()
	if err != nil {
		log.Errorf("%s: failed to create session: %s", logPrefix, err)
		return nil, err
	}

	s := &Session{
		session:       session,
		cluster:       cluster,
		checkTimeout:  checkTimeout,
		checkInterval: checkInterval,
		logPrefix:     logPrefix,
		shutdown:      make(chan struct{}),
	}

	if s.checkInterval > 0 {
		s.wg.Add(1)
		go s.deadConnectionRefresh()
	}
	return s, nil
}

// CurrentSession returns the active session. While a new session is being created, it blocks.
func (s *Session) CurrentSession() *gocql.Session {
	s.RLock()
	session := s.session
	s.RUnlock()
	return session
}

func (s *Session) Stop() {
	close(s.shutdown)
	s.wg.Wait()
	s.Lock()
	if s.session != nil && !s.session.Closed() {
		s.session.Close()
	}
	s.Unlock()
}

func (s *Session) deadConnectionRefresh() {
	defer s.wg.Done()
	log.Infof("%s: dead connection check enabled with an interval of %s", s.logPrefix, s.checkInterval)

	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()
	var down time.Duration

	for {
		select {
		case <-s.shutdown:
			return
		case <-ticker.C:
		}

		s.RLock()
		err := s.session.Query("SELECT cql_version FROM system.local").Exec()
		s.RUnlock()
		if err == nil {
			down = 0
			continue
		}
		down += s.checkInterval
		log.Errorf("%s: connection check failing for %s: %s", s.logPrefix, down, err)
		if down < s.checkTimeout {
			continue
		}
		if !s.reconnect() {
			return
		}
		down = 0
	}
}

// reconnect replaces the session, retrying until it succeeds or we are shut down.
// it holds the write lock throughout, so readers wait for the new session.
// returns false on shutdown.
func (s *Session) reconnect() bool {
	s.Lock()
	defer s.Unlock()
	start := time.Now()
	old := s.session
	for {
		log.Warnf("%s: creating new session to cassandra using hosts %v", s.logPrefix, s.cluster.Hosts)
		session, err := s.cluster.CreateSession()
		if err == nil {
			s.session = session
			if old != nil && !old.Closed() {
				old.Close()
			}
			log.Warnf("%s: reconnecting to cassandra took %s", s.logPrefix, time.Since(start))
			return true
		}
		log.Errorf("%s: could not recreate cassandra session, will retry in %s: %s", s.logPrefix, s.checkInterval, err)
		select {
		case <-s.shutdown:
			return false
		case <-time.After(s.checkInterval):
		}
	}
}
