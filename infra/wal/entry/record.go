// Package entry is the engine's write-ahead log of accepted commands.
// Every submit and cancel is appended before the book mutates, so a
// restart can rebuild all in-memory state by replaying in order.
package entry

import "time"

type RecordType uint8

const (
	RecordSubmit RecordType = iota
	RecordCancel
)

type Record struct {
	Type RecordType
	Seq  uint64
	Time int64
	Data []byte
}

// NewRecord stamps the record with the caller's timestamp so a replay
// reconstructs the same instants the live path observed.
func NewRecord(t RecordType, seq uint64, at time.Time, data []byte) *Record {
	return &Record{
		Type: t,
		Seq:  seq,
		Time: at.UnixNano(),
		Data: data,
	}
}
