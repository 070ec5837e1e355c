// Package series holds the value types shared by the counter, the stores and the api:
// the identifiers of the tracked series and the samples recorded for them.
package series

import (
	"fmt"
	"strings"
)

// ID identifies a series. Only the IDs in Known are ever written.
type ID string

const (
	Status       ID = "status"
	SecureStatus ID = "secure-status"
)

// Known lists every series the service records, in a stable order.
var Known = []ID{Status, SecureStatus}

func (id ID) String() string {
	return string(id)
}

// Valid returns whether id is one of the Known series.
func (id ID) Valid() bool {
	for _, k := range Known {
		if id == k {
			return true
		}
	}
	return false
}

// ParseID converts the user supplied name into an ID
func ParseID(s string) (ID, error) {
	id := ID(strings.TrimSpace(s))
	if !id.Valid() {
		return "", fmt.Errorf("unknown series %q", s)
	}
	return id, nil
}

// Sample is one point of a series: the cumulative count as of Ts (unix seconds).
// Samples are append-only; nothing in this module edits or deletes one.
type Sample struct {
	Series ID
	Ts     uint32
	Count  uint64
}

func (s Sample) String() string {
	return fmt.Sprintf("%s@%d=%d", s.Series, s.Ts, s.Count)
}

// Point returns the timestamp/count projection of the sample.
func (s Sample) Point() Point {
	return Point{
		Ts:    s.Ts,
		Count: s.Count,
	}
}

// Point is how a sample is exposed over the api.
type Point struct {
	Ts    uint32 `json:"timestamp"`
	Count uint64 `json:"count"`
}

// Order is the timestamp order in which range reads return samples
type Order uint8

const (
	Ascending Order = iota
	Descending
)

func (o Order) String() string {
	switch o {
	case Ascending:
		return "asc"
	case Descending:
		return "desc"
	}
	return fmt.Sprintf("Order(%d)", uint8(o))
}

// ParseOrder accepts asc/ascending and desc/descending
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(s) {
	case "asc", "ascending":
		return Ascending, nil
	case "desc", "descending":
		return Descending, nil
	}
	return Ascending, fmt.Errorf("invalid order %q. expected asc or desc", s)
}
