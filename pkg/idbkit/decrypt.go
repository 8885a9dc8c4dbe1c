package idbkit

import (
	"fmt"

	"github.com/idbkit/idbkit/internal/cryptutil"
	"github.com/idbkit/idbkit/internal/errs"
	"github.com/idbkit/idbkit/internal/format"
	"github.com/idbkit/idbkit/internal/keyring"
	"github.com/idbkit/idbkit/internal/tablespace"
)

// resolveDecryption peeks at page 0 (without decrypting) and, if the space
// flags' encryption bit is set, parses the embedded key-wrap block, loads
// keyringPath, looks up the master key by (server uuid, master key id), and
// unwraps the tablespace key/IV. Returns a nil context for an unencrypted
// file, so callers can pass the result straight into tablespace.Options
// unconditionally.
func resolveDecryption(path, keyringPath string, pageSizeOverride uint32) (*tablespace.DecryptionContext, error) {
	probe, err := tablespace.Open(path, tablespace.Options{PageSizeOverride: pageSizeOverride})
	if err != nil {
		return nil, err
	}
	defer probe.Close()

	page0, err := probe.ReadPage(0)
	if err != nil {
		return nil, err
	}
	fsp, err := format.ParseFspHeader(page0)
	if err != nil {
		return nil, err
	}
	if !fsp.Encrypted() {
		return nil, nil
	}
	if keyringPath == "" {
		return nil, errs.Argument("idbkit.resolveDecryption", "tablespace is encrypted but no keyring path was supplied")
	}

	info, err := cryptutil.ParseEncryptionInfo(page0[format.FilPageFileFlushLSN:])
	if err != nil {
		return nil, err
	}
	lookupID, err := info.MasterKeyLookupID()
	if err != nil {
		return nil, err
	}

	kr, err := keyring.Load(keyringPath)
	if err != nil {
		return nil, err
	}
	masterKey, ok := kr.Lookup(lookupID)
	if !ok {
		return nil, errs.Argument("idbkit.resolveDecryption", fmt.Sprintf("keyring has no entry for %q", lookupID))
	}

	key, iv, err := cryptutil.UnwrapKey(masterKey, info)
	if err != nil {
		return nil, err
	}
	return &tablespace.DecryptionContext{Key: key, IV: iv}, nil
}

// openTablespace is the shared open path for every idbkit operation that
// reads a single tablespace file, wiring page-size override, mmap, and
// transparent decryption together.
func openTablespace(path string, c config) (*tablespace.Handle, error) {
	decrypt, err := resolveDecryption(path, c.keyringPath, c.pageSizeOverride)
	if err != nil {
		return nil, err
	}
	return tablespace.Open(path, tablespace.Options{
		PageSizeOverride: c.pageSizeOverride,
		Decrypt:          decrypt,
		UseMmap:          c.useMmap,
	})
}
