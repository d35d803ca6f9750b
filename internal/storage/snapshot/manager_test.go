package snapshot

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestManager(t *testing.T, keep int) *Manager {
	t.Helper()
	m, err := NewManager(Config{Dir: t.TempDir(), RetentionCount: keep})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func TestManager_CreateLoad(t *testing.T) {
	m := newTestManager(t, 5)
	blob := []byte(`{"1":{"id":1,"name":"db"}}`)

	info, err := m.Create(blob, 1, "pre-save")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if info.TunnelCount != 1 || info.Reason != "pre-save" {
		t.Fatalf("Create() info = %+v", info)
	}

	got, loaded, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(got) != string(blob) {
		t.Errorf("Load() data = %q, want %q", got, blob)
	}
	if loaded.ID != info.ID || loaded.Checksum != info.Checksum {
		t.Errorf("Load() info = %+v, want %+v", loaded, info)
	}

	st, err := os.Stat(info.Path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if st.Mode().Perm() != 0600 {
		t.Errorf("backup mode = %v, want 0600", st.Mode().Perm())
	}
}

func TestManager_LoadFallsBackOnCorruptedLatest(t *testing.T) {
	m := newTestManager(t, 5)

	oldInfo, err := m.Create([]byte("old"), 1, "")
	if err != nil {
		t.Fatalf("Create(old): %v", err)
	}
	newInfo, err := m.Create([]byte("new"), 2, "")
	if err != nil {
		t.Fatalf("Create(new): %v", err)
	}

	// Flip a byte in the checksum trailer.
	f, err := os.OpenFile(newInfo.Path, os.O_RDWR, 0600)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	st, _ := f.Stat()
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, st.Size()-1); err != nil {
		f.Close()
		t.Fatalf("ReadAt: %v", err)
	}
	if _, err := f.WriteAt([]byte{last[0] ^ 0xFF}, st.Size()-1); err != nil {
		f.Close()
		t.Fatalf("WriteAt: %v", err)
	}
	f.Close()

	got, info, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if info.Path != oldInfo.Path {
		t.Fatalf("expected fallback to old backup, got %s", filepath.Base(info.Path))
	}
	if string(got) != "old" {
		t.Errorf("Load() data = %q, want %q", got, "old")
	}
}

func TestManager_LoadByID(t *testing.T) {
	m := newTestManager(t, 5)

	first, err := m.Create([]byte("first"), 1, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := m.Create([]byte("second"), 1, ""); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, info, err := m.LoadByID(first.ID)
	if err != nil {
		t.Fatalf("LoadByID: %v", err)
	}
	if string(got) != "first" || info.ID != first.ID {
		t.Errorf("LoadByID() = %q, %s", got, info.ID)
	}

	tests := []string{"", "backup-19990101000000-0001", "../etc/passwd", "nope"}
	for _, id := range tests {
		t.Run(id, func(t *testing.T) {
			if _, _, err := m.LoadByID(id); !errors.Is(err, ErrNotFound) {
				t.Errorf("LoadByID(%q) error = %v, want ErrNotFound", id, err)
			}
		})
	}
}

func TestManager_LoadEmptyDir(t *testing.T) {
	m := newTestManager(t, 5)

	if _, _, err := m.Load(); err != ErrNoSnapshots {
		t.Fatalf("Load err = %v, want %v", err, ErrNoSnapshots)
	}
}

func TestManager_LoadAllCorrupted(t *testing.T) {
	m := newTestManager(t, 5)

	small := filepath.Join(m.Dir(), "backup-20250101120000-0001.snap")
	if err := os.WriteFile(small, []byte("small"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	content := make([]byte, 50)
	copy(content, "WRONGMGC")
	content = append(content, make([]byte, checksumSize)...)
	if err := os.WriteFile(filepath.Join(m.Dir(), "backup-20250101130000-0001.snap"), content, 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, _, err := m.Load(); err != ErrNoSnapshots {
		t.Fatalf("Load err = %v, want %v", err, ErrNoSnapshots)
	}

	infos, err := m.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("len(infos) = %d, want 2", len(infos))
	}
	if infos[0].Checksum != "" {
		t.Errorf("damaged backup should list without checksum, got %q", infos[0].Checksum)
	}
}

func TestManager_ListSkipsForeignFiles(t *testing.T) {
	m := newTestManager(t, 5)

	if _, err := m.Create([]byte("{}"), 0, ""); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := os.WriteFile(filepath.Join(m.Dir(), "other.txt"), []byte("test"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.Mkdir(filepath.Join(m.Dir(), "backup-dir.snap"), 0700); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}

	infos, err := m.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("len(infos) = %d, want 1", len(infos))
	}
}

func TestManager_Prune(t *testing.T) {
	m := newTestManager(t, 2)

	var created []*Info
	for i := 0; i < 4; i++ {
		info, err := m.Create([]byte{byte('a' + i)}, i, "")
		if err != nil {
			t.Fatalf("Create %d: %v", i, err)
		}
		created = append(created, info)
	}

	if err := m.Prune(); err != nil {
		t.Fatalf("Prune: %v", err)
	}

	infos, err := m.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("len(infos) = %d, want 2", len(infos))
	}
	if infos[0].ID != created[2].ID || infos[1].ID != created[3].ID {
		t.Errorf("Prune kept %s, %s; want the two newest", infos[0].ID, infos[1].ID)
	}
}

func TestManager_PruneEmptyDir(t *testing.T) {
	m := newTestManager(t, 5)
	if err := m.Prune(); err != nil {
		t.Fatalf("Prune: %v", err)
	}
}

func TestNewManager(t *testing.T) {
	if _, err := NewManager(Config{Dir: ""}); err == nil {
		t.Fatal("NewManager with empty dir should error")
	}

	dir := filepath.Join(t.TempDir(), "nested", "backups")
	m, err := NewManager(Config{Dir: dir})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if m.cfg.RetentionCount != DefaultRetentionCount {
		t.Errorf("RetentionCount = %d, want %d", m.cfg.RetentionCount, DefaultRetentionCount)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("backup dir not created: %v", err)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("/tmp/backups")
	if cfg.Dir != "/tmp/backups" || cfg.RetentionCount != DefaultRetentionCount {
		t.Fatalf("DefaultConfig() = %+v", cfg)
	}
}
