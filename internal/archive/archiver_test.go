package archive

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Ayesha-Siddiqa-khan/AssanPOS-V1.4-offline-sub003/internal/config"
	"github.com/Ayesha-Siddiqa-khan/AssanPOS-V1.4-offline-sub003/internal/pos"
)

func TestNewArchiverDisabled(t *testing.T) {
	if a := NewArchiver(&config.ArchiveConfig{Enabled: false, Path: "/tmp/x"}); a != nil {
		t.Error("disabled config must yield no archiver")
	}
	if a := NewArchiver(&config.ArchiveConfig{Enabled: true, Path: ""}); a != nil {
		t.Error("missing path must yield no archiver")
	}
	if a := NewArchiver(nil); a != nil {
		t.Error("nil config must yield no archiver")
	}
}

func TestArchiveJobsAppendsRecords(t *testing.T) {
	dir := t.TempDir()
	a := NewArchiver(&config.ArchiveConfig{Enabled: true, Path: dir})
	if a == nil {
		t.Fatal("expected an archiver")
	}

	jobs := []*pos.PrintJob{
		{ID: 1, ProfileID: "p1", Type: pos.JobTypeReceipt, Attempts: 1,
			Receipt: pos.ReceiptData{StoreName: "Corner Mart", Total: 330}},
		{ID: 2, Type: pos.JobTypeTest, Attempts: 2},
	}
	if err := a.ArchiveJobs(jobs); err != nil {
		t.Fatalf("ArchiveJobs: %v", err)
	}
	// A second batch appends to the same dated file.
	if err := a.ArchiveJobs(jobs[:1]); err != nil {
		t.Fatalf("ArchiveJobs second batch: %v", err)
	}

	name := fmt.Sprintf("jobs-%s.jsonl", time.Now().UTC().Format("2006-01-02"))
	f, err := os.Open(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer f.Close()

	var lines int
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines++
		var record map[string]interface{}
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			t.Fatalf("line %d is not valid json: %v", lines, err)
		}
		if _, ok := record["archived_at"]; !ok {
			t.Errorf("line %d missing archived_at", lines)
		}
	}
	if lines != 3 {
		t.Errorf("archive has %d records, want 3", lines)
	}
}

func TestArchiveJobsEmptyIsNoOp(t *testing.T) {
	dir := t.TempDir()
	a := NewArchiver(&config.ArchiveConfig{Enabled: true, Path: dir})

	if err := a.ArchiveJobs(nil); err != nil {
		t.Fatalf("ArchiveJobs(nil): %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Error("empty batch must not create a file")
	}
}
