package disk

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/blastdb/blastdb/core/storage/page"
)

// Manager tracks open page files and hands out the FileIDs the buffer
// pool keys frames by. Its InitFunc/FlushFunc methods satisfy the pool's
// callback ABI, dispatching on the file id.
type Manager struct {
	files  map[page.FileID]*PageFile
	nextID page.FileID
	logger *zap.Logger
}

// NewManager creates an empty file registry.
func NewManager(logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		files:  make(map[page.FileID]*PageFile),
		nextID: 1,
		logger: logger,
	}
}

// Open opens (or creates) a page file and registers it under a fresh id.
func (m *Manager) Open(path string, create bool) (page.FileID, error) {
	pf, err := OpenPageFile(path, create, m.logger)
	if err != nil {
		return page.InvalidFileID, err
	}
	fd := m.nextID
	m.nextID++
	m.files[fd] = pf
	return fd, nil
}

// File resolves a registered file id.
func (m *Manager) File(fd page.FileID) (*PageFile, error) {
	pf, ok := m.files[fd]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownFile, fd)
	}
	return pf, nil
}

// Close closes one registered file and forgets its id.
func (m *Manager) Close(fd page.FileID) error {
	pf, ok := m.files[fd]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownFile, fd)
	}
	delete(m.files, fd)
	return pf.Close()
}

// CloseAll closes every registered file, keeping the first error.
func (m *Manager) CloseAll() error {
	var firstErr error
	for fd, pf := range m.files {
		if err := pf.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(m.files, fd)
	}
	return firstErr
}

// InitFunc materializes a page into a pool frame. The pool's callback ABI
// has no failure channel, so unreadable pages (unknown id, unallocated
// page, short file) log and leave the frame zeroed.
func (m *Manager) InitFunc(fd page.FileID, pageNum page.PageNum, frame []byte) {
	pf, ok := m.files[fd]
	if !ok {
		m.zeroFrame(fd, pageNum, frame, ErrUnknownFile)
		return
	}
	if err := pf.ReadPage(pageNum, frame); err != nil {
		m.zeroFrame(fd, pageNum, frame, err)
	}
}

// FlushFunc writes a dirty pool frame back to its file.
func (m *Manager) FlushFunc(fd page.FileID, pageNum page.PageNum, frame []byte) {
	pf, ok := m.files[fd]
	if !ok {
		m.logger.Error("flush for unknown file id",
			zap.Int32("fd", int32(fd)),
			zap.Uint32("page", uint32(pageNum)),
		)
		return
	}
	if err := pf.WritePage(pageNum, frame); err != nil {
		m.logger.Error("page write-back failed",
			zap.Int32("fd", int32(fd)),
			zap.Uint32("page", uint32(pageNum)),
			zap.Error(err),
		)
	}
}

func (m *Manager) zeroFrame(fd page.FileID, pageNum page.PageNum, frame []byte, err error) {
	m.logger.Warn("page materialization failed, zero-filling frame",
		zap.Int32("fd", int32(fd)),
		zap.Uint32("page", uint32(pageNum)),
		zap.Error(err),
	)
	for i := range frame {
		frame[i] = 0
	}
}
