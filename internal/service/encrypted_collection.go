// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 klpod221

package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/klpod221/kerminal-sub001/internal/crypto"
	"github.com/klpod221/kerminal-sub001/internal/logger"
	"github.com/klpod221/kerminal-sub001/internal/store"
	"github.com/klpod221/kerminal-sub001/internal/utils"
	"github.com/klpod221/kerminal-sub001/models"
)

type encryptedCollection struct {
	store  store.VersionedStore
	keys   crypto.KeyProvider
	cipher crypto.FieldCipher
	fields []FieldVisitor

	deviceID string
	ids      IDGenerator
	logger   *logger.Logger
}

// CollectionOption configures an [EncryptedCollection].
type CollectionOption func(*encryptedCollection)

func WithFieldCipher(c crypto.FieldCipher) CollectionOption {
	return func(e *encryptedCollection) { e.cipher = c }
}

// WithGateDeviceID sets the device recorded as deletedBy for deletes made
// through the collection.
func WithGateDeviceID(deviceID string) CollectionOption {
	return func(e *encryptedCollection) { e.deviceID = deviceID }
}

func WithIDGenerator(g IDGenerator) CollectionOption {
	return func(e *encryptedCollection) { e.ids = g }
}

func WithGateLogger(l *logger.Logger) CollectionOption {
	return func(e *encryptedCollection) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEncryptedCollection wraps st so that the designated fields are stored
// encrypted with the key handed out by keys.
func NewEncryptedCollection(st store.VersionedStore, keys crypto.KeyProvider, fields []FieldVisitor, opts ...CollectionOption) EncryptedCollection {
	e := &encryptedCollection{
		store:  st,
		keys:   keys,
		cipher: crypto.NewFieldCipher(),
		fields: fields,
		ids:    utils.NewUUIDGenerator(),
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.WithComponent("gate." + st.Collection())

	return e
}

func (e *encryptedCollection) Collection() string {
	return e.store.Collection()
}

func (e *encryptedCollection) Store() store.VersionedStore {
	return e.store
}

func (e *encryptedCollection) CheckAccess() error {
	_, err := e.key()
	return err
}

// ReadData never returns ciphertext: while locked it returns an empty
// collection.
func (e *encryptedCollection) ReadData(ctx context.Context) ([]models.Record, error) {
	key, err := e.key()
	if errors.Is(err, crypto.ErrVaultLocked) {
		e.logger.Warn().
			Str("func", "encryptedCollection.ReadData").
			Msg("read while locked, returning empty collection")
		return []models.Record{}, nil
	}
	if err != nil {
		return nil, err
	}

	records, err := e.store.ReadData(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]models.Record, 0, len(records))
	for _, r := range records {
		out = append(out, e.decryptLenient(r, key))
	}
	return out, nil
}

func (e *encryptedCollection) WriteData(ctx context.Context, records []models.Record) error {
	key, err := e.key()
	if err != nil {
		return err
	}

	encrypted := make([]models.Record, 0, len(records))
	for _, r := range records {
		enc, err := e.encrypt(r, key)
		if err != nil {
			return err
		}
		encrypted = append(encrypted, enc)
	}

	return e.store.WriteData(ctx, encrypted)
}

func (e *encryptedCollection) Create(ctx context.Context, record models.Record) (models.Record, error) {
	key, err := e.key()
	if err != nil {
		return nil, err
	}

	plain := record.Clone()
	if plain == nil {
		plain = models.Record{}
	}
	if plain.ID() == "" {
		plain[models.IDField] = e.ids.Generate()
	}

	enc, err := e.encrypt(plain, key)
	if err != nil {
		return nil, err
	}

	err = e.store.Mutate(ctx, func(records []models.Record) ([]models.Record, error) {
		if indexByID(records, plain.ID()) >= 0 {
			return nil, fmt.Errorf("%s/%s: %w", e.Collection(), plain.ID(), ErrRecordExists)
		}
		return append(records, enc), nil
	})
	if err != nil {
		return nil, err
	}

	return plain, nil
}

func (e *encryptedCollection) Update(ctx context.Context, record models.Record) (models.Record, error) {
	return e.replace(ctx, record, false)
}

func (e *encryptedCollection) Put(ctx context.Context, record models.Record) (models.Record, error) {
	return e.replace(ctx, record, true)
}

func (e *encryptedCollection) replace(ctx context.Context, record models.Record, upsert bool) (models.Record, error) {
	key, err := e.key()
	if err != nil {
		return nil, err
	}

	id := record.ID()
	if id == "" {
		return nil, ErrMissingID
	}

	plain := record.Clone()
	enc, err := e.encrypt(plain, key)
	if err != nil {
		return nil, err
	}

	err = e.store.Mutate(ctx, func(records []models.Record) ([]models.Record, error) {
		idx := indexByID(records, id)
		switch {
		case idx >= 0:
			records[idx] = enc
			return records, nil
		case upsert:
			return append(records, enc), nil
		default:
			return nil, fmt.Errorf("%s/%s: %w", e.Collection(), id, store.ErrRecordNotFound)
		}
	})
	if err != nil {
		return nil, err
	}

	return plain, nil
}

func (e *encryptedCollection) GetByID(ctx context.Context, id string) (models.Record, error) {
	key, err := e.key()
	if err != nil {
		return nil, err
	}

	records, err := e.store.ReadData(ctx)
	if err != nil {
		return nil, err
	}

	idx := indexByID(records, id)
	if idx < 0 {
		return nil, fmt.Errorf("%s/%s: %w", e.Collection(), id, store.ErrRecordNotFound)
	}

	return e.decryptLenient(records[idx], key), nil
}

func (e *encryptedCollection) GetAll(ctx context.Context) ([]models.Record, error) {
	return e.ReadData(ctx)
}

func (e *encryptedCollection) Delete(ctx context.Context, id string) error {
	if _, err := e.key(); err != nil {
		return err
	}
	return e.store.MarkAsDeleted(ctx, id, e.deviceID)
}

func (e *encryptedCollection) EncryptRecord(record models.Record) (models.Record, error) {
	key, err := e.key()
	if err != nil {
		return nil, err
	}
	return e.encrypt(record, key)
}

// DecryptRecord is the strict counterpart of ReadData: the first field that
// fails to decrypt aborts with an error.
func (e *encryptedCollection) DecryptRecord(record models.Record) (models.Record, error) {
	key, err := e.key()
	if err != nil {
		return nil, err
	}

	out := record.Clone()
	for _, f := range e.fields {
		err := f.Visit(out, func(v any) (any, error) {
			s, ok := v.(string)
			if !ok || !e.cipher.IsEncrypted(s) {
				return v, nil
			}
			return e.cipher.Decrypt(s, key)
		})
		if err != nil {
			return nil, fmt.Errorf("decrypt %s of %s: %w", f, record.ID(), err)
		}
	}
	return out, nil
}

// PlainHash hashes the decrypted form of an at-rest record. Two ciphertexts
// of the same secret hash differently; their plaintext hashes do not.
func (e *encryptedCollection) PlainHash(record models.Record) (string, error) {
	plain, err := e.DecryptRecord(record)
	if err != nil {
		return "", err
	}
	return utils.ContentHash(plain)
}

// key reads the key for one operation only; it is never kept.
func (e *encryptedCollection) key() ([]byte, error) {
	key, err := e.keys.EncryptionKey()
	if err != nil {
		return nil, fmt.Errorf("collection %s: %w", e.Collection(), err)
	}
	return key, nil
}

func (e *encryptedCollection) encrypt(record models.Record, key []byte) (models.Record, error) {
	out := record.Clone()
	for _, f := range e.fields {
		path := f.String()
		err := f.Visit(out, func(v any) (any, error) {
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("%s holds %T: %w", path, v, ErrFieldNotString)
			}
			if s == "" || e.cipher.IsEncrypted(s) {
				return s, nil
			}
			return e.cipher.Encrypt(s, key)
		})
		if err != nil {
			return nil, fmt.Errorf("encrypt %s/%s: %w", e.Collection(), record.ID(), err)
		}
	}
	return out, nil
}

// decryptLenient blanks fields that fail to decrypt instead of failing the
// whole read.
func (e *encryptedCollection) decryptLenient(record models.Record, key []byte) models.Record {
	out := record.Clone()
	for _, f := range e.fields {
		path := f.String()
		_ = f.Visit(out, func(v any) (any, error) {
			s, ok := v.(string)
			if !ok || !e.cipher.IsEncrypted(s) {
				return v, nil
			}
			plain, err := e.cipher.Decrypt(s, key)
			if err != nil {
				e.logger.Warn().Err(err).
					Str("func", "encryptedCollection.decrypt").
					Str("id", record.ID()).
					Str("field", path).
					Msg("field failed to decrypt, blanking it")
				return "", nil
			}
			return plain, nil
		})
	}
	return out
}

func indexByID(records []models.Record, id string) int {
	for i, r := range records {
		if r.ID() == id {
			return i
		}
	}
	return -1
}
