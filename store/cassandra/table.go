package cassandra

import (
	"fmt"
)

// rows are clustered newest first, so the descending queries don't need an ORDER BY
const (
	QueryFmtLatest    = "SELECT ts, count FROM %s WHERE series = ? LIMIT 1"
	QueryFmtRangeDesc = "SELECT ts, count FROM %s WHERE series = ? AND ts >= ?"
	QueryFmtRangeAsc  = "SELECT ts, count FROM %s WHERE series = ? AND ts >= ? ORDER BY ts ASC, seq ASC"
	QueryFmtWrite     = "INSERT INTO %s (series, ts, seq, count) VALUES (?, ?, ?, ?)"
)

// Table holds the queries for the samples table
type Table struct {
	Name           string
	QueryLatest    string
	QueryRangeAsc  string
	QueryRangeDesc string
	QueryWrite     string
}

func NewTable(name string) Table {
	return Table{
		Name:           name,
		QueryLatest:    fmt.Sprintf(QueryFmtLatest, name),
		QueryRangeAsc:  fmt.Sprintf(QueryFmtRangeAsc, name),
		QueryRangeDesc: fmt.Sprintf(QueryFmtRangeDesc, name),
		QueryWrite:     fmt.Sprintf(QueryFmtWrite, name),
	}
}
