package domain

import "time"

// TxRecord is an audit-log row written once per successfully processed
// transaction. Corresponds to the transactions table,
// PRIMARY KEY (block_time, signature).
type TxRecord struct {
	Signature        string
	Slot             int64
	BlockTime        time.Time
	Signer           string
	Success          bool
	InstructionCount int
	CreatedAt        *time.Time
}
