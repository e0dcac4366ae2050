// Package compositekey encodes multi-part secondary index keys.
//
// Layout (Fabric compatible): "\x00" + namespace + "\x00" + part1 + "\x00" + ... + partN + "\x00".
// Every encoded key starts with the 0x00 byte, so composite keys never collide with
// primary record keys, which are rejected if they contain 0x00. Because every part is
// terminated by 0x00 and 0x00 is forbidden inside parts, the encoding is injective and
// all keys sharing a namespace and leading parts sort contiguously.
package compositekey

import (
	"fmt"
	"strings"
	"unicode/utf8"

	dErrors "credledger/pkg/domain-errors"
)

const (
	separator = "\x00"

	// maxRune closes the half-open range used for prefix scans. Parts may not
	// contain it, so every key under a prefix sorts strictly below prefix+maxRune.
	maxRune = utf8.MaxRune
)

// Namespace names a secondary index together with the number of parts its keys carry.
type Namespace struct {
	Name  string
	Arity int
}

// Index namespaces maintained by the credential managers.
var (
	StudentCert     = Namespace{Name: "student~cert", Arity: 2}
	InstitutionCert = Namespace{Name: "institution~cert", Arity: 2}
	StudentSkill    = Namespace{Name: "student~skill", Arity: 2}
	CategorySkill   = Namespace{Name: "category~skill", Arity: 2}
)

// Marker is the sentinel value stored under index keys. The authoritative record
// always lives at the primary key.
var Marker = []byte{0x00}

// Encode builds a composite key. It rejects namespaces and parts that would break
// injectivity or ordering.
func Encode(namespace string, parts ...string) (string, error) {
	if err := validateSegment(namespace); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInvalidInput, fmt.Sprintf("invalid namespace %q", namespace))
	}
	if namespace == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "namespace is required")
	}
	var b strings.Builder
	b.WriteString(separator)
	b.WriteString(namespace)
	b.WriteString(separator)
	for _, part := range parts {
		if err := validateSegment(part); err != nil {
			return "", dErrors.Wrap(err, dErrors.CodeInvalidInput, fmt.Sprintf("invalid key part %q", part))
		}
		b.WriteString(part)
		b.WriteString(separator)
	}
	return b.String(), nil
}

// Key encodes a full key for ns and checks the arity.
func (ns Namespace) Key(parts ...string) (string, error) {
	if len(parts) != ns.Arity {
		return "", dErrors.New(dErrors.CodeMalformedKey,
			fmt.Sprintf("%s expects %d key parts, got %d", ns.Name, ns.Arity, len(parts)))
	}
	return Encode(ns.Name, parts...)
}

// Decode splits a composite key into its namespace and parts.
func Decode(key string) (string, []string, error) {
	if !IsComposite(key) || !strings.HasSuffix(key, separator) || len(key) < 2 {
		return "", nil, dErrors.New(dErrors.CodeMalformedKey, "not a composite key")
	}
	segments := strings.Split(key[1:len(key)-1], separator)
	if segments[0] == "" {
		return "", nil, dErrors.New(dErrors.CodeMalformedKey, "composite key has empty namespace")
	}
	return segments[0], segments[1:], nil
}

// Decode splits key and verifies it belongs to ns with the expected arity.
func (ns Namespace) Decode(key string) ([]string, error) {
	name, parts, err := Decode(key)
	if err != nil {
		return nil, err
	}
	if name != ns.Name {
		return nil, dErrors.New(dErrors.CodeMalformedKey,
			fmt.Sprintf("key belongs to namespace %q, expected %q", name, ns.Name))
	}
	if len(parts) != ns.Arity {
		return nil, dErrors.New(dErrors.CodeMalformedKey,
			fmt.Sprintf("%s expects %d key parts, got %d", ns.Name, ns.Arity, len(parts)))
	}
	return parts, nil
}

// PrefixBounds returns the half-open range [start, end) that contains exactly the
// keys of namespace whose leading parts equal parts.
func PrefixBounds(namespace string, parts ...string) (string, string, error) {
	start, err := Encode(namespace, parts...)
	if err != nil {
		return "", "", err
	}
	return start, start + string(maxRune), nil
}

// IsComposite reports whether key was produced by Encode.
func IsComposite(key string) bool {
	return strings.HasPrefix(key, separator)
}

// ValidatePrimaryKey rejects primary keys that could be confused with composite keys.
func ValidatePrimaryKey(key string) error {
	if key == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "key is required")
	}
	if err := validateSegment(key); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, fmt.Sprintf("invalid key %q", key))
	}
	return nil
}

func validateSegment(s string) error {
	if !utf8.ValidString(s) {
		return dErrors.New(dErrors.CodeInvalidInput, "not valid UTF-8")
	}
	for _, r := range s {
		if r == 0 || r == maxRune {
			return dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("contains reserved rune U+%04X", r))
		}
	}
	return nil
}
