// Package audittrail exposes the version history of a ledger key.
//
// Entries are returned exactly as the ledger recorded them, oldest first.
// Access restrictions belong to the caller.
package audittrail

import (
	"encoding/json"
	"fmt"

	"credledger/internal/ledger"
	dErrors "credledger/pkg/domain-errors"
)

// Entry is one committed version of a record.
type Entry struct {
	TxID      string          `json:"txId"`
	Timestamp string          `json:"timestamp"`
	IsDelete  bool            `json:"isDelete"`
	Value     json.RawMessage `json:"value,omitempty"`
}

// Read returns the history of key. A version whose snapshot is not valid JSON
// fails the whole read with CodeCorruptRecord.
func Read(tx ledger.Tx, key string) ([]Entry, error) {
	it, err := tx.History(key)
	if err != nil {
		return nil, err
	}
	versions, err := ledger.Collect(it)
	if err != nil {
		return nil, err
	}

	out := make([]Entry, 0, len(versions))
	for _, v := range versions {
		e := Entry{
			TxID:      v.TxID,
			Timestamp: ledger.FormatTimestamp(v.Timestamp),
			IsDelete:  v.IsDelete,
		}
		if !v.IsDelete {
			if !json.Valid(v.Value) {
				return nil, dErrors.New(dErrors.CodeCorruptRecord,
					fmt.Sprintf("history of %q holds a malformed snapshot in transaction %s", key, v.TxID))
			}
			e.Value = json.RawMessage(v.Value)
		}
		out = append(out, e)
	}
	return out, nil
}
