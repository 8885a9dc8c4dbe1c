// Package keyring reads the external master-key store consumed by the
// decryption subsystem: it parses and verifies a keyring file, de-obfuscates
// its records, writes one back out, and serves the lookup the core needs,
// "INNODBKey-{uuid}-{id}" → 32-byte master key.
package keyring

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"os"

	"github.com/idbkit/idbkit/internal/buf"
	"github.com/idbkit/idbkit/internal/errs"
)

// obfuscationKey is the fixed 24-byte key the keyring_file plugin XORs every
// record's key bytes against, cycling over the data. It is a format
// constant, not a secret — the plugin ships it in the clear.
var obfuscationKey = []byte("*305=Ljt0*!@$Hnlt4&Zvy1A")

// Entry is a single decoded keyring record.
type Entry struct {
	KeyID  string // e.g. "INNODBKey-3d2e...-1"
	Type   string // e.g. "AES"
	UserID string
	Key    []byte // de-obfuscated key bytes
}

// Keyring is a loaded, verified keyring file, indexed by key id.
type Keyring struct {
	entries map[string]Entry
}

// Load reads and verifies the keyring file at path: every record is parsed
// and de-obfuscated, then the trailing 32-byte SHA-256 is checked against
// the hash of everything preceding it. A checksum mismatch is a Parse
// error — the file's content cannot be trusted.
func Load(path string) (*Keyring, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("keyring: cannot read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes keyring file bytes already read into memory.
func Parse(data []byte) (*Keyring, error) {
	if len(data) < sha256.Size {
		return nil, fmt.Errorf("keyring: file too small for trailing digest")
	}
	body := data[:len(data)-sha256.Size]
	storedDigest := data[len(data)-sha256.Size:]
	computed := sha256.Sum256(body)
	if !bytes.Equal(storedDigest, computed[:]) {
		return nil, errs.Parse("keyring.Parse", "", -1, "trailing SHA-256 mismatch, file is corrupt or truncated", nil)
	}

	kr := &Keyring{entries: make(map[string]Entry)}
	off := 0
	for off < len(body) {
		e, n, err := parseEntry(body[off:])
		if err != nil {
			return nil, fmt.Errorf("keyring: entry at offset %d: %w", off, err)
		}
		kr.entries[e.KeyID] = e
		off += n
	}
	return kr, nil
}

func readLenPrefixed(b []byte) (string, int, error) {
	if len(b) < 4 {
		return "", 0, fmt.Errorf("truncated length prefix")
	}
	n := int(buf.U32LE(b))
	if n < 0 || 4+n > len(b) {
		return "", 0, fmt.Errorf("truncated field (declared %d bytes)", n)
	}
	return string(b[4 : 4+n]), 4 + n, nil
}

func parseEntry(b []byte) (Entry, int, error) {
	off := 0
	keyID, n, err := readLenPrefixed(b[off:])
	if err != nil {
		return Entry{}, 0, fmt.Errorf("key id: %w", err)
	}
	off += n

	keyType, n, err := readLenPrefixed(b[off:])
	if err != nil {
		return Entry{}, 0, fmt.Errorf("key type: %w", err)
	}
	off += n

	userID, n, err := readLenPrefixed(b[off:])
	if err != nil {
		return Entry{}, 0, fmt.Errorf("user id: %w", err)
	}
	off += n

	if off+4 > len(b) {
		return Entry{}, 0, fmt.Errorf("truncated key data length")
	}
	dataLen := int(buf.U32LE(b[off:]))
	off += 4
	if dataLen < 0 || off+dataLen > len(b) {
		return Entry{}, 0, fmt.Errorf("truncated key data (declared %d bytes)", dataLen)
	}
	obfuscated := b[off : off+dataLen]
	off += dataLen

	return Entry{
		KeyID:  keyID,
		Type:   keyType,
		UserID: userID,
		Key:    deobfuscate(obfuscated),
	}, off, nil
}

func deobfuscate(data []byte) []byte {
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = b ^ obfuscationKey[i%len(obfuscationKey)]
	}
	return out
}

// Lookup returns the master key bytes for keyID, if present.
func (k *Keyring) Lookup(keyID string) ([]byte, bool) {
	e, ok := k.entries[keyID]
	if !ok {
		return nil, false
	}
	return e.Key, true
}

// MasterKeyID formats the lookup key the decryption subsystem uses:
// "INNODBKey-{serverUUID}-{masterKeyID}".
func MasterKeyID(serverUUID string, masterKeyID uint32) string {
	return fmt.Sprintf("INNODBKey-%s-%d", serverUUID, masterKeyID)
}

// Write serializes entries into the keyring_file binary format, obfuscating
// key bytes and appending the trailing SHA-256. Used by tests constructing
// round-trip fixtures and by any tooling that provisions test
// keyrings.
func Write(entries []Entry) []byte {
	var body bytes.Buffer
	for _, e := range entries {
		writeLenPrefixed(&body, e.KeyID)
		writeLenPrefixed(&body, e.Type)
		writeLenPrefixed(&body, e.UserID)
		obf := deobfuscate(e.Key) // XOR is its own inverse
		var n [4]byte
		putU32LE(n[:], uint32(len(obf)))
		body.Write(n[:])
		body.Write(obf)
	}
	digest := sha256.Sum256(body.Bytes())
	body.Write(digest[:])
	return body.Bytes()
}

func writeLenPrefixed(buf_ *bytes.Buffer, s string) {
	var n [4]byte
	putU32LE(n[:], uint32(len(s)))
	buf_.Write(n[:])
	buf_.WriteString(s)
}

func putU32LE(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}
