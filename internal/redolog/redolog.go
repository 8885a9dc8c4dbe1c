// Package redolog decodes the InnoDB circular redo log: the 512-byte block
// framing shared by ib_logfile*/#innodb_redo files, the file header and
// checkpoint blocks that open every log file, and the MLOG record-type
// catalog used to label what a recovered record did.
package redolog

import (
	"fmt"
	"os"

	"github.com/idbkit/idbkit/internal/buf"
	"github.com/idbkit/idbkit/internal/checksum"
	"github.com/idbkit/idbkit/internal/errs"
)

// BlockSize is the fixed size of every redo log block, header and trailer
// included.
const BlockSize = 512

// BlockHdrSize is the size of a block's own header, before log data starts.
const BlockHdrSize = 14

// BlockTrlSize is the size of a block's 4-byte checksum trailer.
const BlockTrlSize = 4

// ChecksumOffset is the in-block offset of the trailer checksum field. The
// checksum covers bytes [0, ChecksumOffset) of the block.
const ChecksumOffset = BlockSize - BlockTrlSize

// flushBitMask marks the top bit of block_no to indicate this block was the
// last one in a flush batch.
const flushBitMask = 0x80000000

// FileHdrBlocks is the number of 512-byte blocks reserved at the start of
// every log file for the file header (block 0) and the two checkpoint
// blocks (blocks 1 and 3); block 2 is unused padding.
const FileHdrBlocks = 4

// Log file header field offsets, relative to block 0.
const (
	hdrGroupIDOff     = 0
	hdrStartLSNOff    = 4
	hdrFileNoOff      = 12
	hdrCreatedByOff   = 16
	hdrCreatedByMax   = 32
)

// Checkpoint field offsets, relative to a checkpoint block (1 or 3).
const (
	cpNumberOff      = 0
	cpLSNOff         = 8
	cpOffsetOff      = 16
	cpBufSizeOff     = 20
	cpArchivedLSNOff = 24
)

// Block header field offsets, relative to the start of a block.
const (
	blockNoOff          = 0
	blockDataLenOff     = 4
	blockFirstRecGrpOff = 6
	blockCheckpointNoOff = 8
)

// FileHeader is the parsed block-0 header of a redo log file.
type FileHeader struct {
	GroupID   uint32
	StartLSN  uint64
	FileNo    uint32
	CreatedBy string
}

// ParseFileHeader decodes a log file header from block 0's raw bytes.
func ParseFileHeader(block []byte) (FileHeader, error) {
	if len(block) < BlockSize {
		return FileHeader{}, fmt.Errorf("redolog: file header block truncated: %w", errs.ErrParse)
	}
	end := hdrCreatedByOff + hdrCreatedByMax
	raw := block[hdrCreatedByOff:end]
	n := 0
	for n < len(raw) && raw[n] != 0 {
		n++
	}
	return FileHeader{
		GroupID:   buf.U32BE(block[hdrGroupIDOff:]),
		StartLSN:  buf.U64BE(block[hdrStartLSNOff:]),
		FileNo:    buf.U32BE(block[hdrFileNoOff:]),
		CreatedBy: string(raw[:n]),
	}, nil
}

// Checkpoint is a parsed checkpoint record (one of the two slots at blocks
// 1 and 3).
type Checkpoint struct {
	Number      uint64
	LSN         uint64
	Offset      uint32
	BufSize     uint32
	ArchivedLSN uint64
}

// ParseCheckpoint decodes a checkpoint record from its block's raw bytes.
func ParseCheckpoint(block []byte) (Checkpoint, error) {
	if len(block) < BlockSize {
		return Checkpoint{}, fmt.Errorf("redolog: checkpoint block truncated: %w", errs.ErrParse)
	}
	return Checkpoint{
		Number:      buf.U64BE(block[cpNumberOff:]),
		LSN:         buf.U64BE(block[cpLSNOff:]),
		Offset:      buf.U32BE(block[cpOffsetOff:]),
		BufSize:     buf.U32BE(block[cpBufSizeOff:]),
		ArchivedLSN: buf.U64BE(block[cpArchivedLSNOff:]),
	}, nil
}

// BlockHeader is a redo log block's 14-byte header.
type BlockHeader struct {
	BlockNo       uint32
	FlushFlag     bool
	DataLen       uint16
	FirstRecGroup uint16
	CheckpointNo  uint32
}

// ParseBlockHeader decodes a block header from the start of a raw block.
func ParseBlockHeader(block []byte) (BlockHeader, error) {
	if len(block) < BlockHdrSize {
		return BlockHeader{}, fmt.Errorf("redolog: block header truncated: %w", errs.ErrParse)
	}
	raw := buf.U32BE(block[blockNoOff:])
	return BlockHeader{
		BlockNo:       raw &^ flushBitMask,
		FlushFlag:     raw&flushBitMask != 0,
		DataLen:       buf.U16BE(block[blockDataLenOff:]),
		FirstRecGroup: buf.U16BE(block[blockFirstRecGrpOff:]),
		CheckpointNo:  buf.U32BE(block[blockCheckpointNoOff:]),
	}, nil
}

// HasData reports whether this block carries any log records beyond its
// own header.
func (h BlockHeader) HasData() bool {
	return int(h.DataLen) > BlockHdrSize
}

// BlockTrailer is a redo log block's 4-byte checksum trailer.
type BlockTrailer struct {
	Checksum uint32
}

// ParseBlockTrailer decodes the trailer from a full 512-byte block.
func ParseBlockTrailer(block []byte) (BlockTrailer, error) {
	if len(block) < BlockSize {
		return BlockTrailer{}, fmt.Errorf("redolog: block trailer truncated: %w", errs.ErrParse)
	}
	return BlockTrailer{Checksum: buf.U32BE(block[ChecksumOffset:])}, nil
}

// ValidateBlockChecksum reports whether block's stored trailer checksum
// matches a freshly computed CRC-32C over bytes [0, ChecksumOffset).
func ValidateBlockChecksum(block []byte) bool {
	if len(block) < BlockSize {
		return false
	}
	stored := buf.U32BE(block[ChecksumOffset:])
	computed := checksum.CRC32C(block[:ChecksumOffset])
	return stored == computed
}

// MlogType identifies the kind of change a redo record describes, per
// MySQL's mtr0types.h catalog.
type MlogType uint8

// Known MLOG record type codes.
const (
	Mlog1Byte                   MlogType = 1
	Mlog2Bytes                  MlogType = 2
	Mlog4Bytes                  MlogType = 4
	Mlog8Bytes                  MlogType = 8
	MlogRecInsert               MlogType = 9
	MlogRecClustDeleteMark      MlogType = 10
	MlogRecSecDeleteMark        MlogType = 11
	MlogRecUpdate               MlogType = 13
	MlogRecDelete               MlogType = 14
	MlogListEndDelete           MlogType = 15
	MlogListStartDelete         MlogType = 16
	MlogListEndCopyCreated      MlogType = 17
	MlogPageReorganize          MlogType = 18
	MlogPageCreate              MlogType = 19
	MlogUndoInsert              MlogType = 20
	MlogUndoEraseEnd            MlogType = 21
	MlogUndoInit                MlogType = 22
	MlogUndoHdrReuse            MlogType = 24
	MlogRecMinMark              MlogType = 28
	MlogIbufBitmapInit          MlogType = 29
	MlogInitFilePage            MlogType = 30
	MlogWriteString             MlogType = 31
	MlogMultiRecEnd             MlogType = 32
	MlogDummyRecord             MlogType = 33
	MlogFileDelete              MlogType = 34
	MlogCompPageCreate          MlogType = 35
	MlogCompRecInsert           MlogType = 36
	MlogCompRecClustDeleteMark  MlogType = 37
	MlogCompRecSecDeleteMark    MlogType = 38
	MlogCompRecUpdate           MlogType = 39
	MlogCompRecDelete           MlogType = 40
	MlogCompListEndDelete       MlogType = 41
	MlogCompListStartDelete     MlogType = 42
	MlogCompListEndCopyCreated  MlogType = 43
	MlogCompPageReorganize      MlogType = 44
	MlogFileRename              MlogType = 45
	MlogPageCreateRTree         MlogType = 46
	MlogCompPageCreateRTree     MlogType = 47
	MlogTableDynamicMeta        MlogType = 48
	MlogPageCreateSDI           MlogType = 49
	MlogCompPageCreateSDI       MlogType = 50
	MlogFileOpen                MlogType = 51
	MlogFileCreate              MlogType = 52
	MlogZipPageCompress         MlogType = 53
)

var mlogNames = map[MlogType]string{
	Mlog1Byte:                  "MLOG_1BYTE",
	Mlog2Bytes:                 "MLOG_2BYTES",
	Mlog4Bytes:                 "MLOG_4BYTES",
	Mlog8Bytes:                 "MLOG_8BYTES",
	MlogRecInsert:              "MLOG_REC_INSERT",
	MlogRecClustDeleteMark:     "MLOG_REC_CLUST_DELETE_MARK",
	MlogRecSecDeleteMark:       "MLOG_REC_SEC_DELETE_MARK",
	MlogRecUpdate:              "MLOG_REC_UPDATE_IN_PLACE",
	MlogRecDelete:              "MLOG_REC_DELETE",
	MlogListEndDelete:          "MLOG_LIST_END_DELETE",
	MlogListStartDelete:        "MLOG_LIST_START_DELETE",
	MlogListEndCopyCreated:     "MLOG_LIST_END_COPY_CREATED",
	MlogPageReorganize:         "MLOG_PAGE_REORGANIZE",
	MlogPageCreate:             "MLOG_PAGE_CREATE",
	MlogUndoInsert:             "MLOG_UNDO_INSERT",
	MlogUndoEraseEnd:           "MLOG_UNDO_ERASE_END",
	MlogUndoInit:               "MLOG_UNDO_INIT",
	MlogUndoHdrReuse:           "MLOG_UNDO_HDR_REUSE",
	MlogRecMinMark:             "MLOG_REC_MIN_MARK",
	MlogIbufBitmapInit:         "MLOG_IBUF_BITMAP_INIT",
	MlogInitFilePage:           "MLOG_INIT_FILE_PAGE",
	MlogWriteString:            "MLOG_WRITE_STRING",
	MlogMultiRecEnd:            "MLOG_MULTI_REC_END",
	MlogDummyRecord:            "MLOG_DUMMY_RECORD",
	MlogFileDelete:             "MLOG_FILE_DELETE",
	MlogCompPageCreate:         "MLOG_COMP_PAGE_CREATE",
	MlogCompRecInsert:          "MLOG_COMP_REC_INSERT",
	MlogCompRecClustDeleteMark: "MLOG_COMP_REC_CLUST_DELETE_MARK",
	MlogCompRecSecDeleteMark:   "MLOG_COMP_REC_SEC_DELETE_MARK",
	MlogCompRecUpdate:          "MLOG_COMP_REC_UPDATE_IN_PLACE",
	MlogCompRecDelete:          "MLOG_COMP_REC_DELETE",
	MlogCompListEndDelete:      "MLOG_COMP_LIST_END_DELETE",
	MlogCompListStartDelete:    "MLOG_COMP_LIST_START_DELETE",
	MlogCompListEndCopyCreated: "MLOG_COMP_LIST_END_COPY_CREATED",
	MlogCompPageReorganize:     "MLOG_COMP_PAGE_REORGANIZE",
	MlogFileRename:             "MLOG_FILE_RENAME",
	MlogPageCreateRTree:        "MLOG_PAGE_CREATE_RTREE",
	MlogCompPageCreateRTree:    "MLOG_COMP_PAGE_CREATE_RTREE",
	MlogTableDynamicMeta:       "MLOG_TABLE_DYNAMIC_META",
	MlogPageCreateSDI:          "MLOG_PAGE_CREATE_SDI",
	MlogCompPageCreateSDI:      "MLOG_COMP_PAGE_CREATE_SDI",
	MlogFileOpen:               "MLOG_FILE_OPEN",
	MlogFileCreate:             "MLOG_FILE_CREATE",
	MlogZipPageCompress:        "MLOG_ZIP_PAGE_COMPRESS",
}

// Name returns the display name for t, or "UNKNOWN" for an unrecognized
// code.
func (t MlogType) Name() string {
	if name, ok := mlogNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}

// String renders t the way a human-facing report would: the known name, or
// "UNKNOWN(n)" for an unrecognized code.
func (t MlogType) String() string {
	if name, ok := mlogNames[t]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", uint8(t))
}

// singleRecBit marks a redo record byte whose low 7 bits are a complete
// MLOG record type with no continuation, as opposed to a multi-byte record
// group; only the type-code sequence is needed, not full record bodies.
const singleRecBit = 0x80

// ScanRecordTypes walks a data block's record region byte by byte, masking
// off the single-record flag bit and mapping the remaining 7 bits to an
// MlogType for every byte in [BlockHdrSize, min(dataLen, ChecksumOffset)).
// This yields a sequence of type codes, not a full record decode. Callers
// gate this on vendor detection — some vendors use an incompatible code
// table and skip it entirely.
func ScanRecordTypes(block []byte, dataLen uint16) []MlogType {
	limit := int(dataLen)
	if limit > ChecksumOffset {
		limit = ChecksumOffset
	}
	if limit > len(block) {
		limit = len(block)
	}
	var types []MlogType
	for i := BlockHdrSize; i < limit; i++ {
		types = append(types, MlogType(block[i]&^singleRecBit))
	}
	return types
}

// File is a read-only handle onto a redo log file's block sequence.
type File struct {
	f        *os.File
	fileSize int64
}

// Open opens a redo log file for block-level reading.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.IO("redolog.open", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errs.IO("redolog.open", path, err)
	}
	size := info.Size()
	if size < int64(FileHdrBlocks)*BlockSize {
		f.Close()
		return nil, errs.Parse("redolog.open", path, -1,
			fmt.Sprintf("file is too small for a redo log (%d bytes, minimum %d)", size, FileHdrBlocks*BlockSize), nil)
	}
	return &File{f: f, fileSize: size}, nil
}

// Close releases the underlying file descriptor.
func (lf *File) Close() error {
	return lf.f.Close()
}

// FileSize is the log file's size in bytes.
func (lf *File) FileSize() int64 { return lf.fileSize }

// BlockCount is the total number of 512-byte blocks in the file.
func (lf *File) BlockCount() uint64 {
	return uint64(lf.fileSize) / BlockSize
}

// DataBlockCount is the number of blocks available for log data, excluding
// the four header/checkpoint blocks at the start of the file.
func (lf *File) DataBlockCount() uint64 {
	n := lf.BlockCount()
	if n < FileHdrBlocks {
		return 0
	}
	return n - FileHdrBlocks
}

// ReadBlock reads a single 512-byte block by its index.
func (lf *File) ReadBlock(blockNo uint64) ([]byte, error) {
	offset := int64(blockNo) * BlockSize
	if offset+BlockSize > lf.fileSize {
		return nil, errs.IO("redolog.read_block", "", fmt.Errorf("block %d is beyond end of file (offset %d, file size %d)", blockNo, offset, lf.fileSize))
	}
	block := make([]byte, BlockSize)
	if _, err := lf.f.ReadAt(block, offset); err != nil {
		return nil, errs.IO("redolog.read_block", "", fmt.Errorf("block %d: %w", blockNo, err))
	}
	return block, nil
}

// ReadFileHeader reads and parses block 0, the log file header.
func (lf *File) ReadFileHeader() (FileHeader, error) {
	block, err := lf.ReadBlock(0)
	if err != nil {
		return FileHeader{}, err
	}
	return ParseFileHeader(block)
}

// ReadCheckpoint reads and parses a checkpoint slot: slot 0 lives at block
// 1, slot 1 at block 3.
func (lf *File) ReadCheckpoint(slot int) (Checkpoint, error) {
	var blockNo uint64
	switch slot {
	case 0:
		blockNo = 1
	case 1:
		blockNo = 3
	default:
		return Checkpoint{}, errs.Argument("redolog.read_checkpoint", fmt.Sprintf("invalid checkpoint slot %d (must be 0 or 1)", slot))
	}
	block, err := lf.ReadBlock(blockNo)
	if err != nil {
		return Checkpoint{}, err
	}
	return ParseCheckpoint(block)
}
