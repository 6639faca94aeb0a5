package proto

// CopyInput is one batch of an inbound bulk-load stream. Data holds
// delimited rows; ShardingColumn is the zero-based offset of the column
// used for shard-key extraction. HasHeaders is set only on the batch
// that still carries the header line.
type CopyInput struct {
	Data           []byte
	ShardingColumn int
	Delimiter      byte
	HasHeaders     bool
}

// Copy describes the bulk-load a plugin wants to own: the target
// table, column list and text format parameters. Returned with a COPY
// decision; the host then switches into bulk-ingestion mode.
type Copy struct {
	TableName  string
	Columns    []string
	Delimiter  byte
	HasHeaders bool
}

// CopyRow is a single split row tagged with its destination shard.
type CopyRow struct {
	Data  []byte
	Shard int
}

// CopyOutput carries the shard-tagged rows produced from one
// CopyInput batch, plus an optional rewritten header line.
type CopyOutput struct {
	Rows   []CopyRow
	Header []byte
}
