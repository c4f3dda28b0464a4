package domain

import "time"

// Receipt is a uniquely numbered artifact proving a completed transfer.
// At most one receipt exists per transaction; the storage layer enforces
// the uniqueness of TransactionID.
type Receipt struct {
	ID            int64
	TransactionID int64
	Numero        string // e.g. RC20240115104530A1B2C3
	FilePath      string // path of the rendered artifact
	GeneratedAt   time.Time
}
