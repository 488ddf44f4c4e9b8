package spool

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	jsoniter "github.com/json-iterator/go"

	"github.com/ghalamif/AegisPulse/internal/domain"
	"github.com/ghalamif/AegisPulse/internal/ports"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const recordHeaderLen = 12

// ErrSpoolFull is returned by Append once the log reached its size limit.
var ErrSpoolFull = errors.New("spool: size limit reached")

// FileSpool is an append-only log of records on local disk. Entries are
// [8 bytes id][4 bytes len][len bytes json]; the committed watermark lives in a
// separate meta file. Once every entry is committed the log is truncated.
type FileSpool struct {
	mu        sync.Mutex
	path      string
	metaPath  string
	maxBytes  int64
	file      *os.File
	writer    *bufio.Writer
	nextID    ports.SpoolEntryID
	committed ports.SpoolEntryID
	sizeBytes int64
}

// Open opens or creates the spool in dir. maxBytes <= 0 means unbounded.
func Open(dir string, maxBytes int64) (*FileSpool, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, "spool.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}

	s := &FileSpool{
		path:     path,
		metaPath: filepath.Join(dir, "spool.meta"),
		maxBytes: maxBytes,
		file:     f,
		writer:   bufio.NewWriterSize(f, 64<<10),
	}
	if err := s.bootstrap(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return s, nil
}

func (s *FileSpool) bootstrap() error {
	if err := s.scanExisting(); err != nil {
		return err
	}
	if err := s.loadCommitted(); err != nil {
		return err
	}
	if s.nextID < s.committed {
		s.nextID = s.committed
	}
	_, err := s.file.Seek(0, io.SeekEnd)
	return err
}

// scanExisting finds the last complete entry and cuts off a torn tail.
func (s *FileSpool) scanExisting() error {
	stat, err := s.file.Stat()
	if err != nil {
		return err
	}
	if stat.Size() == 0 {
		return nil
	}
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return err
	}

	reader := bufio.NewReader(s.file)
	var (
		offset int64
		lastID ports.SpoolEntryID
	)
	for {
		var hdr [recordHeaderLen]byte
		if _, err := io.ReadFull(reader, hdr[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return fmt.Errorf("spool scan header: %w", err)
		}
		id := ports.SpoolEntryID(binary.BigEndian.Uint64(hdr[0:8]))
		length := int64(binary.BigEndian.Uint32(hdr[8:12]))

		if _, err := io.CopyN(io.Discard, reader, length); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return fmt.Errorf("spool scan body: %w", err)
		}
		offset += recordHeaderLen + length
		lastID = id
	}

	if err := s.file.Truncate(offset); err != nil {
		return err
	}
	s.sizeBytes = offset
	s.nextID = lastID
	return nil
}

func (s *FileSpool) loadCommitted() error {
	data, err := os.ReadFile(s.metaPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	val := strings.TrimSpace(string(data))
	if val == "" {
		return nil
	}
	u, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return fmt.Errorf("spool meta parse: %w", err)
	}
	s.committed = ports.SpoolEntryID(u)
	return nil
}

// Append writes records and syncs the file. It returns the id of the last record.
func (s *FileSpool) Append(records ...*domain.Record) (ports.SpoolEntryID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxBytes > 0 && s.sizeBytes >= s.maxBytes {
		return s.nextID, ErrSpoolFull
	}

	for _, r := range records {
		if r == nil {
			continue
		}
		b, err := json.Marshal(r)
		if err != nil {
			return s.nextID, err
		}
		id := s.nextID + 1

		var hdr [recordHeaderLen]byte
		binary.BigEndian.PutUint64(hdr[0:8], uint64(id))
		binary.BigEndian.PutUint32(hdr[8:12], uint32(len(b)))
		if _, err := s.writer.Write(hdr[:]); err != nil {
			return s.nextID, err
		}
		if _, err := s.writer.Write(b); err != nil {
			return s.nextID, err
		}
		s.nextID = id
		s.sizeBytes += int64(len(b) + len(hdr))
	}

	if err := s.writer.Flush(); err != nil {
		return s.nextID, err
	}
	return s.nextID, s.file.Sync()
}

// Iterate calls fn for every entry with id >= from, in order. fn must not call back
// into the spool.
func (s *FileSpool) Iterate(from ports.SpoolEntryID, fn func(id ports.SpoolEntryID, r *domain.Record) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writer.Flush(); err != nil {
		return err
	}

	f, err := os.Open(s.path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	for {
		var hdr [recordHeaderLen]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("spool iterate header: %w", err)
		}
		id := ports.SpoolEntryID(binary.BigEndian.Uint64(hdr[0:8]))
		b := make([]byte, binary.BigEndian.Uint32(hdr[8:12]))
		if _, err := io.ReadFull(r, b); err != nil {
			return fmt.Errorf("corrupt spool: %w", err)
		}
		if id < from {
			continue
		}

		var rec domain.Record
		if err := json.Unmarshal(b, &rec); err != nil {
			return fmt.Errorf("corrupt spool entry %d: %w", id, err)
		}
		if err := fn(id, &rec); err != nil {
			return err
		}
	}
}

// Commit marks every entry up to upto as delivered. When nothing is left the log is
// truncated so the spool does not grow across outages.
func (s *FileSpool) Commit(upto ports.SpoolEntryID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if upto > s.nextID {
		upto = s.nextID
	}
	if upto > s.committed {
		s.committed = upto
	}
	if err := s.persistMetaLocked(); err != nil {
		return err
	}
	if s.committed < s.nextID {
		return nil
	}
	if err := s.writer.Flush(); err != nil {
		return err
	}
	if err := s.file.Truncate(0); err != nil {
		return err
	}
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	s.sizeBytes = 0
	return nil
}

func (s *FileSpool) Stats() ports.SpoolStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ports.SpoolStats{
		OldestUncommitted: s.committed + 1,
		LatestAppended:    s.nextID,
		SizeBytes:         s.sizeBytes,
	}
}

func (s *FileSpool) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writer.Flush(); err != nil {
		_ = s.file.Close()
		return err
	}
	return s.file.Close()
}

func (s *FileSpool) persistMetaLocked() error {
	data := []byte(fmt.Sprintf("%d\n", s.committed))
	return os.WriteFile(s.metaPath, data, 0o644)
}

var _ ports.Spool = (*FileSpool)(nil)
