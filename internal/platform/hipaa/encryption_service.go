package hipaa

import (
	"encoding/hex"
	"fmt"

	"github.com/rs/zerolog"
)

// EncryptionService provides field-level PHI encryption for the application.
// It wraps a RotatingEncryptor and adds a disabled mode for development
// environments where no encryption key is configured. It satisfies
// FieldEncryptor so it can be passed directly to anything that encrypts
// transcript or note content.
type EncryptionService struct {
	encryptor *RotatingEncryptor
	enabled   bool
}

// NewEncryptionService creates a new encryption service.
//
// If key is empty, encryption is disabled (development mode) and a warning is
// logged. All Encrypt/Decrypt calls become no-ops that return the value as-is.
//
// If key is non-empty, it must be a valid 64-character hex string encoding a
// 32-byte AES-256 key. previousKey, when non-empty, is registered as key
// version 1 for decrypting data written before the last rotation; the current
// key then becomes version 2.
func NewEncryptionService(key, previousKey string, logger zerolog.Logger) (*EncryptionService, error) {
	if key == "" {
		logger.Warn().Msg("PHI encryption disabled: PHI_ENCRYPTION_KEY is not set")
		return &EncryptionService{enabled: false}, nil
	}

	keyBytes, err := decodeKey(key, "PHI_ENCRYPTION_KEY")
	if err != nil {
		return nil, err
	}

	version := 1
	if previousKey != "" {
		version = 2
	}

	enc, err := NewRotatingEncryptor(keyBytes, version)
	if err != nil {
		return nil, fmt.Errorf("create PHI encryptor: %w", err)
	}

	if previousKey != "" {
		prevBytes, err := decodeKey(previousKey, "PHI_ENCRYPTION_KEY_PREVIOUS")
		if err != nil {
			return nil, err
		}
		if err := enc.AddPreviousKey(prevBytes, 1); err != nil {
			return nil, fmt.Errorf("register previous PHI key: %w", err)
		}
		logger.Info().Int("current_version", version).Msg("PHI field-level encryption enabled with key rotation")
	} else {
		logger.Info().Msg("PHI field-level encryption enabled")
	}

	return &EncryptionService{encryptor: enc, enabled: true}, nil
}

func decodeKey(key, name string) ([]byte, error) {
	keyBytes, err := hex.DecodeString(key)
	if err != nil {
		return nil, fmt.Errorf("%s is not valid hex: %w", name, err)
	}
	if len(keyBytes) != 32 {
		return nil, fmt.Errorf("%s must be 32 bytes (64 hex chars), got %d bytes", name, len(keyBytes))
	}
	return keyBytes, nil
}

// Encrypt encrypts a single PHI field value. Returns the original value
// unchanged if encryption is disabled.
func (s *EncryptionService) Encrypt(value string) (string, error) {
	if !s.enabled {
		return value, nil
	}
	return s.encryptor.Encrypt(value)
}

// Decrypt decrypts a single PHI field value. Returns the original value
// unchanged if encryption is disabled.
func (s *EncryptionService) Decrypt(value string) (string, error) {
	if !s.enabled {
		return value, nil
	}
	return s.encryptor.Decrypt(value)
}

// IsEnabled returns true if encryption is active.
func (s *EncryptionService) IsEnabled() bool {
	return s.enabled
}
