package snapshot

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

var magicBytes = []byte("TNMGSNAP")

const (
	filePrefix    = "backup-"
	fileExtension = ".snap"
	checksumSize  = 32
	headerVersion = 1

	DefaultRetentionCount = 10
)

type snapshotHeader struct {
	Version     int    `json:"version"`
	CreatedAt   int64  `json:"created_at"`
	TunnelCount int    `json:"tunnel_count"`
	Reason      string `json:"reason,omitempty"`
}

var (
	ErrInvalidMagic     = errors.New("snapshot: invalid magic bytes")
	ErrChecksumMismatch = errors.New("snapshot: checksum mismatch")
	ErrNotFound         = errors.New("snapshot: not found")
	ErrNoSnapshots      = errors.New("snapshot: no backups available")
)

// Config configures the backup manager.
type Config struct {
	Dir string

	// RetentionCount is the number of newest backups Prune keeps.
	RetentionCount int
}

func DefaultConfig(dir string) Config {
	return Config{
		Dir:            dir,
		RetentionCount: DefaultRetentionCount,
	}
}

type Manager struct {
	cfg Config
}

func NewManager(cfg Config) (*Manager, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("snapshot: dir is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0700); err != nil {
		return nil, fmt.Errorf("snapshot: create dir: %w", err)
	}
	if cfg.RetentionCount == 0 {
		cfg.RetentionCount = DefaultRetentionCount
	}

	return &Manager{cfg: cfg}, nil
}

// Dir returns the backup directory.
func (m *Manager) Dir() string { return m.cfg.Dir }

// Info contains metadata about a backup.
type Info struct {
	ID          string `json:"id" yaml:"id"`
	TunnelCount int    `json:"tunnel_count" yaml:"tunnel_count"`
	CreatedAt   int64  `json:"created_at" yaml:"created_at"`
	Size        int64  `json:"size" yaml:"size"`
	Reason      string `json:"reason,omitempty" yaml:"reason,omitempty"`
	Path        string `json:"path" yaml:"path"`
	Checksum    string `json:"checksum,omitempty" yaml:"checksum,omitempty"`
}

// Create writes data as a new backup file. tunnelCount and reason are
// recorded in the header for listing.
func (m *Manager) Create(data []byte, tunnelCount int, reason string) (*Info, error) {
	now := time.Now()
	id := m.generateID(now)

	tempPath := filepath.Join(m.cfg.Dir, id+".tmp")
	file, err := os.OpenFile(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, fmt.Errorf("snapshot: create temp file: %w", err)
	}
	defer os.Remove(tempPath)

	hash := sha256.New()
	writer := io.MultiWriter(file, hash)

	if _, err := writer.Write(magicBytes); err != nil {
		file.Close()
		return nil, err
	}

	hdr := snapshotHeader{
		Version:     headerVersion,
		CreatedAt:   now.UnixMilli(),
		TunnelCount: tunnelCount,
		Reason:      reason,
	}

	hdrJSON, err := json.Marshal(hdr)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshot: marshal header: %w", err)
	}

	if err := writeBlock(writer, hdrJSON); err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshot: write header: %w", err)
	}
	if err := writeBlock(writer, data); err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshot: write data: %w", err)
	}

	// Checksum trailer is not itself hashed.
	sum := hash.Sum(nil)
	if _, err := file.Write(sum); err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshot: write checksum: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshot: sync: %w", err)
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("snapshot: close: %w", err)
	}

	stat, err := os.Stat(tempPath)
	if err != nil {
		return nil, err
	}

	finalPath := filepath.Join(m.cfg.Dir, id+fileExtension)
	if err := os.Rename(tempPath, finalPath); err != nil {
		return nil, fmt.Errorf("snapshot: rename: %w", err)
	}

	return &Info{
		ID:          id,
		TunnelCount: tunnelCount,
		CreatedAt:   now.UnixMilli(),
		Size:        stat.Size(),
		Reason:      reason,
		Path:        finalPath,
		Checksum:    hex.EncodeToString(sum),
	}, nil
}

func writeBlock(w io.Writer, b []byte) error {
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(b)))
	if _, err := w.Write(n[:]); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

// Load returns the data of the newest valid backup.
// Damaged backups are skipped in favour of older ones.
func (m *Manager) Load() ([]byte, *Info, error) {
	backups, err := m.List()
	if err != nil {
		return nil, nil, err
	}
	if len(backups) == 0 {
		return nil, nil, ErrNoSnapshots
	}

	for i := len(backups) - 1; i >= 0; i-- {
		data, info, err := m.loadFile(backups[i].Path)
		if err == nil {
			return data, info, nil
		}
		if errors.Is(err, ErrChecksumMismatch) || errors.Is(err, ErrInvalidMagic) {
			continue
		}
		return nil, nil, err
	}

	return nil, nil, ErrNoSnapshots
}

// LoadByID returns the data of the backup with the given id.
func (m *Manager) LoadByID(id string) ([]byte, *Info, error) {
	id = strings.TrimSuffix(id, fileExtension)
	if id == "" || strings.ContainsAny(id, `/\`) || !strings.HasPrefix(id, filePrefix) {
		return nil, nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	path := filepath.Join(m.cfg.Dir, id+fileExtension)
	data, info, err := m.loadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%w: %q", ErrNotFound, id)
		}
		return nil, nil, err
	}
	return data, info, nil
}

func (m *Manager) loadFile(path string) ([]byte, *Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, nil, err
	}
	if stat.Size() < int64(len(magicBytes))+checksumSize {
		return nil, nil, ErrChecksumMismatch
	}

	bodyLen := stat.Size() - checksumSize
	expected := make([]byte, checksumSize)
	if _, err := io.ReadFull(io.NewSectionReader(f, bodyLen, checksumSize), expected); err != nil {
		return nil, nil, err
	}
	h := sha256.New()
	if _, err := io.CopyN(h, io.NewSectionReader(f, 0, bodyLen), bodyLen); err != nil {
		return nil, nil, err
	}
	if !bytes.Equal(h.Sum(nil), expected) {
		return nil, nil, ErrChecksumMismatch
	}

	br := bufio.NewReader(io.NewSectionReader(f, 0, bodyLen))

	magic := make([]byte, len(magicBytes))
	if _, err := io.ReadFull(br, magic); err != nil {
		return nil, nil, err
	}
	if !bytes.Equal(magic, magicBytes) {
		return nil, nil, ErrInvalidMagic
	}

	hdrJSON, err := readBlock(br)
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot: read header: %w", err)
	}
	if len(hdrJSON) == 0 {
		return nil, nil, fmt.Errorf("snapshot: empty header")
	}

	var hdr snapshotHeader
	if err := json.Unmarshal(hdrJSON, &hdr); err != nil {
		return nil, nil, fmt.Errorf("snapshot: unmarshal header: %w", err)
	}

	data, err := readBlock(br)
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot: read data: %w", err)
	}

	info := &Info{
		ID:          strings.TrimSuffix(filepath.Base(path), fileExtension),
		TunnelCount: hdr.TunnelCount,
		CreatedAt:   hdr.CreatedAt,
		Size:        stat.Size(),
		Reason:      hdr.Reason,
		Path:        path,
		Checksum:    hex.EncodeToString(expected),
	}

	return data, info, nil
}

func readBlock(r io.Reader) ([]byte, error) {
	var n [4]byte
	if _, err := io.ReadFull(r, n[:]); err != nil {
		return nil, err
	}
	b := make([]byte, binary.BigEndian.Uint32(n[:]))
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

// List lists backups oldest first. Header fields are filled in when the
// file verifies; damaged files are listed with path and size only.
func (m *Manager) List() ([]*Info, error) {
	entries, err := os.ReadDir(m.cfg.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, fileExtension) {
			paths = append(paths, filepath.Join(m.cfg.Dir, name))
		}
	}
	sort.Strings(paths)

	var infos []*Info
	for _, p := range paths {
		if _, info, err := m.loadFile(p); err == nil {
			infos = append(infos, info)
			continue
		}
		stat, err := os.Stat(p)
		if err != nil {
			continue
		}
		infos = append(infos, &Info{
			ID:   strings.TrimSuffix(filepath.Base(p), fileExtension),
			Path: p,
			Size: stat.Size(),
		})
	}
	return infos, nil
}

// Prune deletes all but the newest RetentionCount backups.
func (m *Manager) Prune() error {
	infos, err := m.List()
	if err != nil {
		return err
	}
	if m.cfg.RetentionCount < 0 || len(infos) <= m.cfg.RetentionCount {
		return nil
	}

	for _, info := range infos[:len(infos)-m.cfg.RetentionCount] {
		if err := os.Remove(info.Path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("snapshot: remove %s: %w", info.ID, err)
		}
	}
	return nil
}

func (m *Manager) generateID(t time.Time) string {
	ts := t.Format("20060102150405")
	seq := 1

	entries, _ := os.ReadDir(m.cfg.Dir)
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, filePrefix+ts+"-") || !strings.HasSuffix(name, fileExtension) {
			continue
		}
		seq++
	}

	return fmt.Sprintf("%s%s-%04d", filePrefix, ts, seq)
}
