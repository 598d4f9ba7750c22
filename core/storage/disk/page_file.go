// Package disk is the file adapter beneath the buffer pool: it maps
// (fd, pageNum) pairs onto fixed-size pages of ordinary files and supplies
// the pool's materialize/flush hooks.
package disk

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/blastdb/blastdb/core/storage/page"
)

const (
	// fileMagic identifies a blastdb page file.
	fileMagic   = 0x424C5354 // "BLST"
	fileVersion = 1

	// headerSize is the byte length of the serialized header. Page 0 of
	// every file is reserved for it; data pages start at page 1.
	headerSize = 16
)

// fileHeader is the fixed-size record at the start of every page file.
// All fields are fixed-width so binary.Read/Write lay them out stably.
type fileHeader struct {
	Magic    uint32
	Version  uint32
	PageSize uint32
	Reserved uint32
}

// PageFile is one open page file. Offsets are pageNum * PageSize; page 0
// holds the header.
type PageFile struct {
	path     string
	file     *os.File
	numPages page.PageNum // pages allocated so far, header page included
	logger   *zap.Logger
}

// OpenPageFile opens an existing page file, or creates and initializes a
// new one when create is set. Creating over an existing file or opening a
// missing one is an error, as is a header whose magic or page size does
// not match.
func OpenPageFile(path string, create bool, logger *zap.Logger) (*PageFile, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	pf := &PageFile{path: path, logger: logger}

	_, statErr := os.Stat(path)
	switch {
	case os.IsNotExist(statErr):
		if !create {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o666)
		if err != nil {
			return nil, fmt.Errorf("%w: creating %s: %v", ErrIO, path, err)
		}
		pf.file = file
		if err := pf.writeHeader(); err != nil {
			pf.file.Close()
			_ = os.Remove(path)
			return nil, err
		}
		pf.numPages = 1 // header page

	case statErr == nil:
		if create {
			return nil, fmt.Errorf("%w: %s", ErrFileExists, path)
		}
		file, err := os.OpenFile(path, os.O_RDWR, 0o666)
		if err != nil {
			return nil, fmt.Errorf("%w: opening %s: %v", ErrIO, path, err)
		}
		pf.file = file
		if err := pf.readHeader(); err != nil {
			pf.file.Close()
			return nil, err
		}
		fi, err := file.Stat()
		if err != nil {
			pf.file.Close()
			return nil, fmt.Errorf("%w: stating %s: %v", ErrIO, path, err)
		}
		pf.numPages = page.PageNum(fi.Size() / page.PageSize)
		if pf.numPages == 0 {
			pf.numPages = 1
		}

	default:
		return nil, fmt.Errorf("%w: stating %s: %v", ErrIO, path, statErr)
	}

	logger.Info("page file open",
		zap.String("path", path),
		zap.Uint32("pages", uint32(pf.numPages)),
	)
	return pf, nil
}

func (pf *PageFile) writeHeader() error {
	buf := new(bytes.Buffer)
	header := fileHeader{
		Magic:    fileMagic,
		Version:  fileVersion,
		PageSize: page.PageSize,
	}
	if err := binary.Write(buf, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("serializing header: %w", err)
	}
	// The header page is written in full so data pages start page-aligned.
	pageBuf := make([]byte, page.PageSize)
	copy(pageBuf, buf.Bytes())
	if _, err := pf.file.WriteAt(pageBuf, 0); err != nil {
		return fmt.Errorf("%w: writing header: %v", ErrIO, err)
	}
	return pf.file.Sync()
}

func (pf *PageFile) readHeader() error {
	data := make([]byte, headerSize)
	if _, err := io.ReadFull(io.NewSectionReader(pf.file, 0, headerSize), data); err != nil {
		return fmt.Errorf("%w: reading header: %v", ErrIO, err)
	}
	var header fileHeader
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("deserializing header: %w", err)
	}
	if header.Magic != fileMagic {
		return fmt.Errorf("%w: %s (got 0x%x)", ErrInvalidMagic, pf.path, header.Magic)
	}
	if header.PageSize != page.PageSize {
		return fmt.Errorf("%w: %s has %d, want %d",
			ErrPageSizeMismatch, pf.path, header.PageSize, page.PageSize)
	}
	return nil
}

// NumPages returns the number of pages allocated so far, header included.
func (pf *PageFile) NumPages() page.PageNum {
	return pf.numPages
}

// Path returns the file's path.
func (pf *PageFile) Path() string {
	return pf.path
}

// ReadPage fills buf with page pageNum. buf must be exactly PageSize long
// and pageNum must address an allocated data page.
func (pf *PageFile) ReadPage(pageNum page.PageNum, buf []byte) error {
	if pf.file == nil {
		return ErrFileNotOpen
	}
	if len(buf) != page.PageSize {
		return fmt.Errorf("page buffer size %d, want %d", len(buf), page.PageSize)
	}
	if pageNum == 0 || pageNum >= pf.numPages {
		return fmt.Errorf("%w: page %d of %d", ErrPageOutOfRange, pageNum, pf.numPages)
	}
	offset := int64(pageNum) * page.PageSize
	if _, err := pf.file.ReadAt(buf, offset); err != nil {
		return fmt.Errorf("%w: reading page %d at offset %d: %v", ErrIO, pageNum, offset, err)
	}
	return nil
}

// WritePage writes buf to page pageNum's location.
func (pf *PageFile) WritePage(pageNum page.PageNum, buf []byte) error {
	if pf.file == nil {
		return ErrFileNotOpen
	}
	if len(buf) != page.PageSize {
		return fmt.Errorf("page buffer size %d, want %d", len(buf), page.PageSize)
	}
	if pageNum == 0 || pageNum >= pf.numPages {
		return fmt.Errorf("%w: page %d of %d", ErrPageOutOfRange, pageNum, pf.numPages)
	}
	offset := int64(pageNum) * page.PageSize
	if _, err := pf.file.WriteAt(buf, offset); err != nil {
		return fmt.Errorf("%w: writing page %d at offset %d: %v", ErrIO, pageNum, offset, err)
	}
	// No Sync here; durability points are Sync/Close, driven by the owner.
	return nil
}

// AllocatePage extends the file by one zeroed page and returns its number.
func (pf *PageFile) AllocatePage() (page.PageNum, error) {
	if pf.file == nil {
		return 0, ErrFileNotOpen
	}
	pageNum := pf.numPages
	empty := make([]byte, page.PageSize)
	offset := int64(pageNum) * page.PageSize
	if _, err := pf.file.WriteAt(empty, offset); err != nil {
		return 0, fmt.Errorf("%w: extending file for page %d: %v", ErrIO, pageNum, err)
	}
	pf.numPages++
	return pageNum, nil
}

// Sync flushes buffered writes to stable storage.
func (pf *PageFile) Sync() error {
	if pf.file == nil {
		return ErrFileNotOpen
	}
	return pf.file.Sync()
}

// Close syncs and closes the underlying file.
func (pf *PageFile) Close() error {
	if pf.file == nil {
		return nil
	}
	if err := pf.file.Sync(); err != nil {
		pf.logger.Error("sync on close failed", zap.String("path", pf.path), zap.Error(err))
	}
	err := pf.file.Close()
	pf.file = nil
	return err
}
