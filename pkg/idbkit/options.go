// Package idbkit is the public Go API: one function per external
// operation, each taking a path (or paths) and a set of functional
// options, returning a typed report and an error. Options
// compose across every entry point.
package idbkit

import (
	"github.com/idbkit/idbkit/internal/checksum"
)

// config is the package-private defaulted struct every Option mutates.
// Only the fields relevant to the operation being called are read; the
// others are harmless no-ops for that call, an accepted tradeoff
// of sharing one options struct across every operation.
type config struct {
	pageSizeOverride uint32
	keyringPath      string
	useMmap          bool
	streaming        bool
	singlePage       *uint64
	hasSinglePage    bool
	filterType       string
	showEmpty        bool
	listMode         bool
	verbose          bool

	algorithm checksum.Algorithm
	dryRun    bool
	backup    bool

	force              bool
	rebuildOutputPath  string

	byteRanges bool

	checksumFilter    checksum.Algorithm
	hasChecksumFilter bool
	spaceIDFilter     uint32
	hasSpaceIDFilter  bool
	firstMatchOnly    bool
	maxDepth          int

	lookupID        uint32
	hasLookupFilter bool

	pretty bool

	blockLimit int
	hasBlockLimit bool
	skipEmpty  bool

	redoPath   string
	chainPaths []string

	auditMode string
}

// Option configures an operation. Options compose: later options override
// earlier ones when they touch the same field.
type Option func(*config)

func newConfig(opts []Option) config {
	var c config
	c.maxDepth = 0
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithPageSizeOverride skips page-size auto-detection.
func WithPageSizeOverride(size uint32) Option {
	return func(c *config) { c.pageSizeOverride = size }
}

// WithKeyringPath points at the keyring file used to unwrap an encrypted
// tablespace's per-file key.
func WithKeyringPath(path string) Option {
	return func(c *config) { c.keyringPath = path }
}

// WithMmap reads the file via mmap instead of per-page reads.
func WithMmap() Option {
	return func(c *config) { c.useMmap = true }
}

// WithStreaming processes pages one at a time instead of loading the whole
// file, for operations that support it (parse, checksum).
func WithStreaming() Option {
	return func(c *config) { c.streaming = true }
}

// WithSinglePage restricts the operation to one page number.
func WithSinglePage(n uint64) Option {
	return func(c *config) { c.singlePage = &n; c.hasSinglePage = true }
}

// WithFilterType restricts pages() output to one page-type name.
func WithFilterType(typeName string) Option {
	return func(c *config) { c.filterType = typeName }
}

// WithShowEmpty includes all-zero pages in pages() output.
func WithShowEmpty() Option {
	return func(c *config) { c.showEmpty = true }
}

// WithListMode renders pages() output as a compact list instead of full
// per-page structures.
func WithListMode() Option {
	return func(c *config) { c.listMode = true }
}

// WithVerbose requests more detail where an operation supports it
// (checksum's details for valid pages, log's per-block record types).
func WithVerbose() Option {
	return func(c *config) { c.verbose = true }
}

// WithAlgorithm selects repair's checksum scheme.
func WithAlgorithm(a checksum.Algorithm) Option {
	return func(c *config) { c.algorithm = a }
}

// WithDryRun computes but does not commit a write operation's changes.
func WithDryRun() Option {
	return func(c *config) { c.dryRun = true }
}

// WithBackup writes a {path}.bak copy before a destructive write.
func WithBackup() Option {
	return func(c *config) { c.backup = true }
}

// WithForce overrides an operation's normal safety skips (recover's
// corrupt-page extraction, transplant's page-0/checksum guards).
func WithForce() Option {
	return func(c *config) { c.force = true }
}

// WithRebuildOutputPath additionally writes a rebuilt file during recover.
func WithRebuildOutputPath(path string) Option {
	return func(c *config) { c.rebuildOutputPath = path }
}

// WithByteRanges requests per-page byte-range detail from diff, beyond the
// modified/identical page classification.
func WithByteRanges() Option {
	return func(c *config) { c.byteRanges = true }
}

// WithChecksumFilter restricts find() to pages validating under algo.
func WithChecksumFilter(a checksum.Algorithm) Option {
	return func(c *config) { c.checksumFilter = a; c.hasChecksumFilter = true }
}

// WithSpaceIDFilter restricts find() to files with the given space ID.
func WithSpaceIDFilter(spaceID uint32) Option {
	return func(c *config) { c.spaceIDFilter = spaceID; c.hasSpaceIDFilter = true }
}

// WithFirstMatchOnly stops find() after its first match.
func WithFirstMatchOnly() Option {
	return func(c *config) { c.firstMatchOnly = true }
}

// WithMaxDepth bounds directory recursion for find/tsid/audit.
func WithMaxDepth(depth int) Option {
	return func(c *config) { c.maxDepth = depth }
}

// WithLookupID restricts tsid() to a single space ID.
func WithLookupID(id uint32) Option {
	return func(c *config) { c.lookupID = id; c.hasLookupFilter = true }
}

// WithPretty requests indented JSON rendering from sdi().
func WithPretty() Option {
	return func(c *config) { c.pretty = true }
}

// WithBlockLimit caps how many redo log blocks log() reports on.
func WithBlockLimit(n int) Option {
	return func(c *config) { c.blockLimit = n; c.hasBlockLimit = true }
}

// WithSkipEmpty omits blocks with no data from log() output.
func WithSkipEmpty() Option {
	return func(c *config) { c.skipEmpty = true }
}

// WithRedoPath supplies the redo log path verify() cross-checks LSN
// coverage against.
func WithRedoPath(path string) Option {
	return func(c *config) { c.redoPath = path }
}

// WithChainPaths supplies a set of backup snapshots verify() checks for
// chain continuity.
func WithChainPaths(paths []string) Option {
	return func(c *config) { c.chainPaths = paths }
}

// WithAuditMode selects audit()'s check: "integrity", "health", or
// "mismatch".
func WithAuditMode(mode string) Option {
	return func(c *config) { c.auditMode = mode }
}
