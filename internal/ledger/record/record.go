// Package record encodes ledger values. Stored records are canonical JSON:
// object keys sorted at every depth, no HTML escaping, no trailing newline, so
// identical records always produce identical bytes.
package record

import (
	"bytes"
	"encoding/json"
	"fmt"

	dErrors "credledger/pkg/domain-errors"
)

// Document types stored in each record's docType field.
const (
	DocTypeCertificate = "certificate"
	DocTypeSkill       = "skill"
)

// Marshal returns the canonical JSON encoding of v.
func Marshal(v any) ([]byte, error) {
	raw, err := encode(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "canonicalize record")
	}
	// encoding/json writes map keys in sorted order.
	return encode(generic)
}

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "encode record")
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Unmarshal decodes a stored record. Malformed bytes fail with CodeCorruptRecord.
func Unmarshal(key string, data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return dErrors.Wrap(err, dErrors.CodeCorruptRecord, fmt.Sprintf("record %q is not valid JSON", key))
	}
	return nil
}

// Peek reads only the docType of a stored value. Values that are not JSON
// objects report an empty type.
func Peek(data []byte) string {
	var head struct {
		DocType string `json:"docType"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return ""
	}
	return head.DocType
}
