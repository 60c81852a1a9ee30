package store

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"careerprep/internal/domain"
	"careerprep/internal/infra/config"
)

// Stored user values are prefixed by their encoding.
const (
	plainPrefix     = "mp:"
	encryptedPrefix = "enc:"
)

// SaveUser implements domain.UserStore. The record is msgpack-encoded and,
// when the store has a passphrase, sealed with AES-GCM.
func (s *SQLiteStore) SaveUser(ctx context.Context, u domain.User) error {
	raw, err := encodeUser(u)
	if err != nil {
		return err
	}

	var value string
	if s.passphrase != "" {
		sealed, err := config.EncryptValue(string(raw), s.passphrase)
		if err != nil {
			return fmt.Errorf("%w: seal user: %w", domain.ErrEncryption, err)
		}
		value = encryptedPrefix + sealed
	} else {
		value = plainPrefix + base64.StdEncoding.EncodeToString(raw)
	}
	return s.Set(ctx, domain.UserKey, value)
}

// LoadUser implements domain.UserStore.
func (s *SQLiteStore) LoadUser(ctx context.Context) (*domain.User, error) {
	value, ok, err := s.Get(ctx, domain.UserKey)
	if err != nil || !ok {
		return nil, err
	}

	var raw []byte
	switch {
	case strings.HasPrefix(value, encryptedPrefix):
		if s.passphrase == "" {
			return nil, fmt.Errorf("%w: stored user is encrypted but no passphrase is set", domain.ErrDecryption)
		}
		plain, err := config.DecryptValue(strings.TrimPrefix(value, encryptedPrefix), s.passphrase)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrDecryption, err)
		}
		raw = []byte(plain)
	case strings.HasPrefix(value, plainPrefix):
		raw, err = base64.StdEncoding.DecodeString(strings.TrimPrefix(value, plainPrefix))
		if err != nil {
			return nil, fmt.Errorf("%w: decode user: %w", domain.ErrStore, err)
		}
	default:
		return nil, fmt.Errorf("%w: unrecognised user record encoding", domain.ErrStore)
	}
	return decodeUser(raw)
}

// DeleteUser implements domain.UserStore.
func (s *SQLiteStore) DeleteUser(ctx context.Context) error {
	return s.Delete(ctx, domain.UserKey)
}

func encodeUser(u domain.User) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(u); err != nil {
		return nil, fmt.Errorf("%w: encode user: %w", domain.ErrStore, err)
	}
	return buf.Bytes(), nil
}

func decodeUser(raw []byte) (*domain.User, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(raw))
	dec.SetCustomStructTag("json")
	var u domain.User
	if err := dec.Decode(&u); err != nil {
		return nil, fmt.Errorf("%w: decode user: %w", domain.ErrStore, err)
	}
	return &u, nil
}
