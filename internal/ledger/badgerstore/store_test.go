package badgerstore

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"credledger/internal/ledger"
	"credledger/internal/ledger/compositekey"
	dErrors "credledger/pkg/domain-errors"
	"credledger/pkg/requestcontext"
)

// StoreSuite runs the Badger backend in in-memory mode.
//
// Justification: the version envelope, history reversal, outbox keying and
// conflict mapping are specific to this backend and are not covered by the
// in-memory ledger tests.
type StoreSuite struct {
	suite.Suite
	store  *Store
	ctx    context.Context
	caller ledger.Caller
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupTest() {
	store, err := Open(WithInMemory(), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	s.Require().NoError(err)
	s.store = store
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC))
	s.caller = ledger.NewCaller("x509::CN=registrar", "institution", "MIT")
}

func (s *StoreSuite) TearDownTest() {
	s.Require().NoError(s.store.Close())
}

func (s *StoreSuite) put(key, value string) {
	s.Require().NoError(s.store.Submit(s.ctx, s.caller, func(tx ledger.Tx) error {
		return tx.Put(key, []byte(value))
	}))
}

func (s *StoreSuite) get(key string) []byte {
	v, err := ledger.EvaluateResult(s.ctx, s.store, s.caller, func(tx ledger.Tx) ([]byte, error) {
		return tx.Get(key)
	})
	s.Require().NoError(err)
	return v
}

func (s *StoreSuite) TestOpenRequiresLocation() {
	_, err := Open()
	s.Require().Error(err)
}

func (s *StoreSuite) TestReadWrite() {
	s.Run("absent key reads as nil", func() {
		s.Nil(s.get("nope"))
	})

	s.Run("write then read", func() {
		s.put("CERT1", `{"certId":"CERT1"}`)
		s.Equal([]byte(`{"certId":"CERT1"}`), s.get("CERT1"))
	})

	s.Run("aborted transaction writes nothing", func() {
		err := s.store.Submit(s.ctx, s.caller, func(tx ledger.Tx) error {
			s.Require().NoError(tx.Put("CERT2", []byte("x")))
			s.Require().NoError(tx.Put("hash2", []byte("x")))
			return dErrors.New(dErrors.CodeForbidden, "not yours")
		})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
		s.Nil(s.get("CERT2"))
		s.Nil(s.get("hash2"))
	})

	s.Run("evaluate rejects writes", func() {
		err := s.store.Evaluate(s.ctx, s.caller, func(tx ledger.Tx) error {
			return tx.Put("CERT3", []byte("x"))
		})
		s.Require().Error(err)
		s.Nil(s.get("CERT3"))
	})
}

func (s *StoreSuite) TestConflict() {
	s.put("K", "v1")
	err := s.store.Submit(s.ctx, s.caller, func(tx ledger.Tx) error {
		if _, err := tx.Get("K"); err != nil {
			return err
		}
		s.put("K", "v2")
		return tx.Put("K", []byte("v3"))
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	s.Equal([]byte("v2"), s.get("K"))
}

func (s *StoreSuite) TestIteration() {
	idxS1, err := compositekey.StudentCert.Key("S1", "CERT1")
	s.Require().NoError(err)
	idxS10, err := compositekey.StudentCert.Key("S10", "CERT9")
	s.Require().NoError(err)
	idxInst, err := compositekey.InstitutionCert.Key("MIT", "CERT1")
	s.Require().NoError(err)
	s.Require().NoError(s.store.Submit(s.ctx, s.caller, func(tx ledger.Tx) error {
		for _, k := range []string{idxS1, idxS10, idxInst} {
			if err := tx.Put(k, compositekey.Marker); err != nil {
				return err
			}
		}
		if err := tx.Put("CERT1", []byte("a")); err != nil {
			return err
		}
		return tx.Put("CERT9", []byte("b"))
	}))

	collect := func(fn func(tx ledger.Tx) (ledger.StateIterator, error)) []ledger.KV {
		kvs, err := ledger.EvaluateResult(s.ctx, s.store, s.caller, func(tx ledger.Tx) ([]ledger.KV, error) {
			it, err := fn(tx)
			if err != nil {
				return nil, err
			}
			return ledger.Collect(it)
		})
		s.Require().NoError(err)
		return kvs
	}

	s.Run("prefix", func() {
		kvs := collect(func(tx ledger.Tx) (ledger.StateIterator, error) {
			return tx.IteratePrefix(compositekey.StudentCert.Name, "S1")
		})
		s.Require().Len(kvs, 1)
		parts, err := compositekey.StudentCert.Decode(kvs[0].Key)
		s.Require().NoError(err)
		s.Equal([]string{"S1", "CERT1"}, parts)
		s.Equal(compositekey.Marker, kvs[0].Value)
	})

	s.Run("whole namespace", func() {
		kvs := collect(func(tx ledger.Tx) (ledger.StateIterator, error) {
			return tx.IteratePrefix(compositekey.StudentCert.Name)
		})
		s.Len(kvs, 2)
	})

	s.Run("range skips composite keys", func() {
		kvs := collect(func(tx ledger.Tx) (ledger.StateIterator, error) {
			return tx.IterateRange("", "")
		})
		s.Require().Len(kvs, 2)
		s.Equal("CERT1", kvs[0].Key)
		s.Equal("CERT9", kvs[1].Key)
	})

	s.Run("open-ended range runs past the start key", func() {
		kvs := collect(func(tx ledger.Tx) (ledger.StateIterator, error) {
			return tx.IterateRange("CERT1", "")
		})
		s.Require().Len(kvs, 2)
		s.Equal("CERT1", kvs[0].Key)
		s.Equal("CERT9", kvs[1].Key)
	})

	s.Run("bounded range", func() {
		kvs := collect(func(tx ledger.Tx) (ledger.StateIterator, error) {
			return tx.IterateRange("CERT1", "CERT5")
		})
		s.Require().Len(kvs, 1)
		s.Equal("CERT1", kvs[0].Key)
	})
}

func (s *StoreSuite) TestHistory() {
	s.put("H", "v1")
	s.put("H", "v2")
	s.put("H2", "other")

	s.Require().NoError(s.store.Submit(s.ctx, s.caller, func(tx ledger.Tx) error {
		s.Require().NoError(tx.Put("H", []byte("v3")))
		it, err := tx.History("H")
		s.Require().NoError(err)
		entries, err := ledger.Collect(it)
		s.Require().NoError(err)
		s.Require().Len(entries, 2, "pending writes are not history")
		s.Equal([]byte("v1"), entries[0].Value)
		s.Equal([]byte("v2"), entries[1].Value)
		s.Equal(time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC), entries[0].Timestamp.UTC())
		return nil
	}))
}

func (s *StoreSuite) TestOutbox() {
	s.Require().NoError(s.store.Submit(s.ctx, s.caller, func(tx ledger.Tx) error {
		s.Require().NoError(tx.Put("CERT1", []byte("a")))
		return tx.EmitEvent("CertificateAdded", []byte(`{"certId":"CERT1"}`))
	}))
	s.Require().NoError(s.store.Submit(s.ctx, s.caller, func(tx ledger.Tx) error {
		return tx.EmitEvent("CertificateRevoked", []byte(`{"certId":"CERT1"}`))
	}))

	n, err := s.store.CountPending(s.ctx)
	s.Require().NoError(err)
	s.EqualValues(2, n)

	entries, err := s.store.FetchUnprocessed(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal("CertificateAdded", entries[0].EventType)
	s.Equal("CertificateRevoked", entries[1].EventType)
	s.JSONEq(`{"certId":"CERT1"}`, string(entries[0].Payload))

	s.Require().NoError(s.store.MarkProcessed(s.ctx, entries[0].ID, time.Now()))
	n, err = s.store.CountPending(s.ctx)
	s.Require().NoError(err)
	s.EqualValues(1, n)

	s.Error(s.store.MarkProcessed(s.ctx, entries[0].ID, time.Now()))

	kvs, err := ledger.EvaluateResult(s.ctx, s.store, s.caller, func(tx ledger.Tx) ([]ledger.KV, error) {
		it, err := tx.IterateRange("", "")
		if err != nil {
			return nil, err
		}
		return ledger.Collect(it)
	})
	s.Require().NoError(err)
	s.Len(kvs, 1, "outbox entries are outside the state key space")
}
