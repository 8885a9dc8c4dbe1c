// Package tablespace provides the file handle every other component reads
// through: page-size auto-detection, random and sequential page access, and
// (optionally) decryption and vendor-aware decompression applied
// transparently on read.
package tablespace

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"

	"github.com/idbkit/idbkit/internal/cryptutil"
	"github.com/idbkit/idbkit/internal/errs"
	"github.com/idbkit/idbkit/internal/format"
	"github.com/idbkit/idbkit/internal/mmfile"
	"github.com/idbkit/idbkit/internal/vendor"
	"github.com/idbkit/idbkit/internal/xlog"
)

// fallbackPageSizes is the order page-size detection retries in when page 0
// is unreadable or declares an out-of-range size.
var fallbackPageSizes = []uint32{16384, 8192, 4096, 32768, 65536}

// DecryptionContext carries the unwrapped tablespace key/IV applied to
// encrypted pages on read.
type DecryptionContext struct {
	Key [32]byte
	IV  [16]byte
}

// Handle is an open tablespace file.
type Handle struct {
	Path       string
	PageSize   uint32
	SpaceID    uint32
	FileSize   int64
	PageCount  uint64
	Vendor     vendor.Descriptor

	file   *os.File
	decrypt *DecryptionContext

	mu      sync.Mutex
	mapped  []byte
	unmap   func() error
}

// Options control how a tablespace is opened.
type Options struct {
	// PageSizeOverride skips auto-detection when non-zero.
	PageSizeOverride uint32
	// Decrypt, if non-nil, is applied to pages whose type requires it.
	Decrypt *DecryptionContext
	// UseMmap memory-maps the file instead of issuing per-page reads.
	UseMmap bool
}

// Open opens path, auto-detecting page size unless overridden.
func Open(path string, opts Options) (*Handle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.IO("tablespace.open", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errs.IO("tablespace.open", path, err)
	}
	size := info.Size()
	if size < int64(format.SizeFILHeader+format.FSPHeaderSize) {
		f.Close()
		return nil, errs.Parse("tablespace.open", path, -1, "file too small to hold a FIL+FSP header", nil)
	}

	h := &Handle{Path: path, file: f, FileSize: size, decrypt: opts.Decrypt}

	pageSize, spaceID, creator, detectErr := detectPageSize(f, size, opts.PageSizeOverride)
	if detectErr != nil {
		f.Close()
		return nil, detectErr
	}
	h.PageSize = pageSize
	h.SpaceID = spaceID
	h.PageCount = uint64(size) / uint64(pageSize)
	h.Vendor = vendor.Detect(creator)

	if opts.UseMmap {
		data, cleanup, err := mmfile.Map(path)
		if err != nil {
			f.Close()
			return nil, errs.IO("tablespace.open", path, err)
		}
		h.mapped = data
		h.unmap = cleanup
	}
	return h, nil
}

// detectPageSize reads the first SizePageDefault bytes (or the whole file if
// smaller), parses a tentative FSP header at FilPageData, and decodes the
// page-size exponent from the space flags. Page sizes outside the valid set
// fall back through fallbackPageSizes filtered by file-size divisibility,
// finally defaulting to 16K.
func detectPageSize(f *os.File, fileSize int64, override uint32) (uint32, uint32, string, error) {
	if override != 0 {
		spaceID, creator, err := readPage0Meta(f, override)
		return override, spaceID, creator, err
	}

	probeLen := int64(format.SizePageDefault)
	if fileSize < probeLen {
		probeLen = fileSize
	}
	probe := make([]byte, probeLen)
	if _, err := f.ReadAt(probe, 0); err != nil {
		return 0, 0, "", errs.IO("tablespace.detectPageSize", f.Name(), err)
	}

	fsp, err := format.ParseFspHeader(probe)
	if err == nil {
		size := fsp.PageSize()
		if validPageSize(size) {
			return size, fsp.SpaceID, readCreatorString(probe), nil
		}
	}

	for _, candidate := range fallbackPageSizes {
		if fileSize%int64(candidate) == 0 {
			spaceID, creator, ferr := readPage0Meta(f, candidate)
			if ferr == nil {
				xlog.Default.Infof("%s: page 0 declares no usable page size, falling back to %d", f.Name(), candidate)
				return candidate, spaceID, creator, nil
			}
		}
	}
	xlog.Default.Warnf("%s: no fallback page size divides the file evenly, defaulting to %d", f.Name(), format.SizePageDefault)
	return format.SizePageDefault, 0, "", nil
}

func validPageSize(size uint32) bool {
	switch size {
	case 4096, 8192, 16384, 32768, 65536:
		return true
	default:
		return false
	}
}

func readPage0Meta(f *os.File, pageSize uint32) (uint32, string, error) {
	buf := make([]byte, pageSize)
	if _, err := f.ReadAt(buf, 0); err != nil {
		return 0, "", errs.IO("tablespace.detectPageSize", f.Name(), err)
	}
	fsp, err := format.ParseFspHeader(buf)
	if err != nil {
		return 0, "", nil
	}
	return fsp.SpaceID, readCreatorString(buf), nil
}

// readCreatorString is a best-effort scan for a vendor-identifying ASCII
// run inside page 0's body; the redo log file header is the authoritative
// source when available (see redolog.FileHeader.CreatedBy), this is the
// data-file fallback when no redo log is at hand.
func readCreatorString(page []byte) string {
	start := format.FilPageData + format.FSPHeaderSize
	if start >= len(page) {
		return ""
	}
	end := start + 64
	if end > len(page) {
		end = len(page)
	}
	return string(page[start:end])
}

// Close releases the file handle and any mapping.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	var err error
	if h.unmap != nil {
		err = h.unmap()
		h.unmap = nil
		h.mapped = nil
	}
	if h.file != nil {
		if cerr := h.file.Close(); err == nil {
			err = cerr
		}
		h.file = nil
	}
	return err
}

// ReadPage reads page n into a fresh buffer and, if a decryption context is
// attached and the page's type requires it, returns a decrypted copy.
func (h *Handle) ReadPage(n uint64) ([]byte, error) {
	if n >= h.PageCount {
		return nil, errs.Argument("tablespace.ReadPage", fmt.Sprintf("page %d out of range (count %d)", n, h.PageCount))
	}
	data := make([]byte, h.PageSize)
	off := int64(n) * int64(h.PageSize)
	if h.mapped != nil {
		copy(data, h.mapped[off:off+int64(h.PageSize)])
	} else {
		if _, err := h.file.ReadAt(data, off); err != nil {
			return nil, errs.IO("tablespace.ReadPage", h.Path, err)
		}
	}
	return h.postprocess(data)
}

// postprocess restores an encrypted page's original type and decrypts
// its body when a decryption context is attached.
func (h *Handle) postprocess(data []byte) ([]byte, error) {
	hdr, err := format.ParseFilHeader(data)
	if err != nil {
		return data, nil // unreadable header: leave to the caller's own parse step
	}
	if h.decrypt == nil || !hdr.PageType.IsEncrypted() {
		return data, nil
	}
	out, err := cryptutil.DecryptPage(data, int(h.PageSize), h.decrypt.Key, h.decrypt.IV)
	if err != nil {
		return nil, errs.Parse("tablespace.ReadPage", h.Path, int64(hdr.PageNumber), "decrypt failed", err)
	}
	// byte 26 of the FIL header holds the saved original type in encrypted
	// pages; restore it into the main type slot.
	originalType := out[format.FilPageFileFlushLSN : format.FilPageFileFlushLSN+2]
	out[format.FilPageType] = originalType[0]
	out[format.FilPageType+1] = originalType[1]
	return out, nil
}

// ReadAllPages loads the whole file into one contiguous buffer, post
// processing (decryption) applied per page. This backs the bulk-read
// access mode; ForEachPage is the streaming counterpart.
func (h *Handle) ReadAllPages() ([]byte, error) {
	if h.decrypt == nil {
		if h.mapped != nil {
			out := make([]byte, len(h.mapped))
			copy(out, h.mapped)
			return out, nil
		}
		out := make([]byte, h.PageCount*uint64(h.PageSize))
		if _, err := h.file.ReadAt(out, 0); err != nil {
			return nil, errs.IO("tablespace.ReadAllPages", h.Path, err)
		}
		return out, nil
	}
	out := make([]byte, h.PageCount*uint64(h.PageSize))
	for n := uint64(0); n < h.PageCount; n++ {
		page, err := h.ReadPage(n)
		if err != nil {
			return nil, err
		}
		copy(out[n*uint64(h.PageSize):], page)
	}
	return out, nil
}

// PageCallback is invoked once per page during iteration. Returning a
// non-nil error aborts iteration.
type PageCallback func(pageNumber uint64, data []byte) error

// ForEachPage visits every page in ascending page-number order (the
// streaming, single-threaded access mode).
func (h *Handle) ForEachPage(cb PageCallback) error {
	for n := uint64(0); n < h.PageCount; n++ {
		page, err := h.ReadPage(n)
		if err != nil {
			return err
		}
		if err := cb(n, page); err != nil {
			return err
		}
	}
	return nil
}

// PageResult is one worker's output from a parallel scan.
type PageResult[T any] struct {
	PageNumber uint64
	Value      T
	Err        error
}

// ParallelDecode loads all pages and decodes each independently with decode,
// using a data-parallel model: a bulk read, a parallel map over page
// indices with each worker owning a disjoint page_size window and its own
// result slot, then a serial collection in page-number order.
func ParallelDecode[T any](h *Handle, decode func(pageNumber uint64, data []byte) (T, error)) ([]PageResult[T], error) {
	all, err := h.ReadAllPages()
	if err != nil {
		return nil, err
	}
	n := h.PageCount
	results := make([]PageResult[T], n)
	workers := runtime.GOMAXPROCS(0)
	if uint64(workers) > n {
		workers = int(n)
	}
	if workers < 1 {
		workers = 1
	}
	var next atomic.Uint64
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for {
				i := next.Add(1) - 1
				if i >= n {
					return
				}
				off := i * uint64(h.PageSize)
				page := all[off : off+uint64(h.PageSize)]
				v, derr := decode(i, page)
				results[i] = PageResult[T]{PageNumber: i, Value: v, Err: derr}
			}
		}()
	}
	wg.Wait()
	return results, nil
}

// Fingerprint returns a fast xxhash-based fingerprint of a page's bytes.
// diff uses it as a fast-path equality probe: pages with equal fingerprints
// count as identical, and on a mismatch the full byte compare decides
// whether the page is reported modified. watch compares fingerprints only
// and reports a page as changed when its fingerprint differs.
func Fingerprint(page []byte) uint64 {
	return xxhash.Sum64(page)
}
