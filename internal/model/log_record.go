package model

// LogRecord is the normalized representation of a chain log. It is the
// archive format and the decoder's input.
type LogRecord struct {
	ChainID     uint64   `json:"chain_id"`
	BlockNumber uint64   `json:"block_number"`
	BlockHash   string   `json:"block_hash"`
	TxHash      string   `json:"tx_hash"`
	TxIndex     uint64   `json:"tx_index"`
	LogIndex    uint64   `json:"log_index"`
	Address     string   `json:"address"`
	Topics      []string `json:"topics"`
	Data        string   `json:"data"`
	Removed     bool     `json:"removed"`
	Timestamp   uint64   `json:"timestamp"`
	IngestedAt  string   `json:"ingested_at,omitempty"`
}

// Position returns where the log sits in chain order.
func (r LogRecord) Position() LogPosition {
	return LogPosition{Block: r.BlockNumber, Index: r.LogIndex}
}

// LogPosition orders logs: by block, then by log index within the block.
type LogPosition struct {
	Block uint64
	Index uint64
}

// Before reports whether p comes strictly before other.
func (p LogPosition) Before(other LogPosition) bool {
	if p.Block != other.Block {
		return p.Block < other.Block
	}
	return p.Index < other.Index
}
