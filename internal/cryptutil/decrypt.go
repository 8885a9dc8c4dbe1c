// Package cryptutil implements the tablespace encryption subsystem: unwrap
// of the per-file key from the external keyring, and AES-256-CBC page
// decryption. Go's standard crypto/aes and crypto/cipher cover both block
// ciphers; ECB mode is deliberately absent from crypto/cipher (it's unsafe
// for general use), so the master-key unwrap implements the single
// block-at-a-time ECB loop the wire format requires directly against
// crypto/aes.Block.
package cryptutil

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
	"hash/crc32"
	"strings"

	"github.com/google/uuid"

	"github.com/idbkit/idbkit/internal/buf"
)

// EncryptionInfo is the per-tablespace key-wrap structure stored on page 0,
// at the FIL header's flush-LSN region, in encrypted files.
type EncryptionInfo struct {
	MagicVersion [3]byte
	MasterKeyID  uint32
	ServerUUID   string // 36-byte string form
	Ciphertext   [64]byte
	CRC          uint32 // CRC-32C over the decrypted key+IV
}

const (
	encMagicSize   = 3
	encUUIDSize    = 36
	encCipherSize  = 64
	encInfoSize    = encMagicSize + 4 + encUUIDSize + encCipherSize + 4
)

// ParseEncryptionInfo decodes the encryption-info block from a byte slice
// (the flush-LSN region of page 0, encInfoSize bytes).
func ParseEncryptionInfo(data []byte) (EncryptionInfo, error) {
	if len(data) < encInfoSize {
		return EncryptionInfo{}, fmt.Errorf("cryptutil: encryption info truncated")
	}
	var info EncryptionInfo
	copy(info.MagicVersion[:], data[0:encMagicSize])
	off := encMagicSize
	info.MasterKeyID = buf.U32BE(data[off:])
	off += 4
	info.ServerUUID = string(data[off : off+encUUIDSize])
	off += encUUIDSize
	copy(info.Ciphertext[:], data[off:off+encCipherSize])
	off += encCipherSize
	info.CRC = buf.U32BE(data[off:])
	return info, nil
}

// ErrWrongKeyring is returned by UnwrapKey when the unwrapped plaintext's
// checksum disagrees with the stored one — the master key taken from the
// keyring does not correspond to the one this tablespace was wrapped with.
var ErrWrongKeyring = fmt.Errorf("cryptutil: wrong keyring (CRC32 mismatch)")

var crcTable = crc32.MakeTable(crc32.Castagnoli)

// UnwrapKey decrypts info.Ciphertext with masterKey (32 bytes) under
// AES-256-ECB, verifies the embedded CRC-32C, and returns the 32-byte
// tablespace key and 16-byte IV (only the first 16 bytes of the wrapped
// 32-byte IV slot are used by page decryption).
func UnwrapKey(masterKey []byte, info EncryptionInfo) (key [32]byte, iv [16]byte, err error) {
	if len(masterKey) != 32 {
		return key, iv, fmt.Errorf("cryptutil: master key must be 32 bytes, got %d", len(masterKey))
	}
	block, err := aes.NewCipher(masterKey)
	if err != nil {
		return key, iv, fmt.Errorf("cryptutil: %w", err)
	}
	plain := make([]byte, len(info.Ciphertext))
	ecbDecrypt(block, plain, info.Ciphertext[:])

	computed := crc32.Checksum(plain, crcTable)
	if computed != info.CRC {
		return key, iv, ErrWrongKeyring
	}
	copy(key[:], plain[0:32])
	copy(iv[:], plain[32:48])
	return key, iv, nil
}

// ecbDecrypt decrypts src into dst one AES block at a time. len(src) must be
// a multiple of aes.BlockSize.
func ecbDecrypt(block cipher.Block, dst, src []byte) {
	bs := block.BlockSize()
	for off := 0; off+bs <= len(src); off += bs {
		block.Decrypt(dst[off:off+bs], src[off:off+bs])
	}
}

// DecryptPage decrypts the body of an encrypted page into a copy. It decrypts
// the block-aligned portion of [38, pageSize-8) with AES-256-CBC, leaving
// any trailing unaligned bytes untouched — those bytes aren't part of the
// page structure. Returns the full page with its body decrypted; data is not
// modified.
func DecryptPage(data []byte, pageSize int, key [32]byte, iv [16]byte) ([]byte, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("cryptutil: %w", err)
	}
	const headerSize = 38
	const trailerSize = 8
	span := pageSize - headerSize - trailerSize
	aligned := (span / aes.BlockSize) * aes.BlockSize
	if aligned == 0 {
		out := make([]byte, len(data))
		copy(out, data)
		return out, nil
	}
	ciphertext := data[headerSize : headerSize+aligned]
	mode := cipher.NewCBCDecrypter(block, iv[:])
	out := make([]byte, len(data))
	copy(out, data)
	mode.CryptBlocks(out[headerSize:headerSize+aligned], ciphertext)
	return out, nil
}

// ServerUUIDParsed validates info.ServerUUID. The on-disk field is a fixed
// 36-byte ASCII string in canonical UUID form; some writers pad or mis-case
// it, so this trims it and parses it with google/uuid rather than trusting
// the raw bytes. The parsed value's String() is the canonical lowercase form
// used by keyring lookups.
func (info EncryptionInfo) ServerUUIDParsed() (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(info.ServerUUID))
	if err != nil {
		return uuid.Nil, fmt.Errorf("cryptutil: invalid server uuid %q: %w", info.ServerUUID, err)
	}
	return id, nil
}

// MasterKeyLookupID formats the keyring lookup key for this encryption
// info's (server uuid, master key id) pair: "INNODBKey-{uuid}-{id}".
func (info EncryptionInfo) MasterKeyLookupID() (string, error) {
	id, err := info.ServerUUIDParsed()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("INNODBKey-%s-%d", id.String(), info.MasterKeyID), nil
}
