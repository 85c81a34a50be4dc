package model

import "fmt"

// TxnStatus is the lifecycle state of a transaction.
type TxnStatus int32

const (
	TxnActive TxnStatus = iota
	TxnCommitted
	TxnAborted
)

// String returns the human-readable status name.
func (s TxnStatus) String() string {
	switch s {
	case TxnActive:
		return "active"
	case TxnCommitted:
		return "committed"
	case TxnAborted:
		return "aborted"
	default:
		return fmt.Sprintf("unknown(%d)", int32(s))
	}
}

// Protocol selects the concurrency-control scheme the engine runs under.
type Protocol string

const (
	ProtocolMVCC   Protocol = "mvcc"
	ProtocolOCC    Protocol = "occ"
	ProtocolHybrid Protocol = "hybrid"
)

// ParseProtocol validates and normalizes a protocol name.
func ParseProtocol(name string) (Protocol, error) {
	switch Protocol(name) {
	case ProtocolMVCC, ProtocolOCC, ProtocolHybrid:
		return Protocol(name), nil
	default:
		return "", fmt.Errorf("unknown protocol %q (want mvcc, occ or hybrid)", name)
	}
}
