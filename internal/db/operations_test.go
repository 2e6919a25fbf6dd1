package db

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/Ayesha-Siddiqa-khan/AssanPOS-V1.4-offline-sub003/internal/pos"
)

func setupTestDB(t *testing.T) {
	t.Helper()
	d, err := InitForTest(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("init test db: %v", err)
	}
	t.Cleanup(func() { d.Close() })
}

func testProfile(id string) *pos.PrinterProfile {
	return &pos.PrinterProfile{
		ID:           id,
		Name:         "Counter " + id,
		IP:           "192.168.1.50",
		Port:         9100,
		PaperWidthMM: 80,
		TextEncoding: "cp437",
		CutMode:      pos.CutPartial,
	}
}

func testReceipt() pos.ReceiptData {
	return pos.ReceiptData{
		StoreName:     "Corner Mart",
		ReceiptNumber: "R-1",
		Items:         []pos.LineItem{{Name: "Milk", Quantity: 1, UnitPrice: 120}},
		Subtotal:      120,
		Total:         120,
	}
}

func TestProfileCRUD(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	p := testProfile("p1")
	if err := Profiles.CreateProfile(ctx, p); err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}

	got, err := Profiles.GetProfileByID(ctx, "p1")
	if err != nil {
		t.Fatalf("GetProfileByID: %v", err)
	}
	if got.Name != p.Name || got.IP != p.IP || got.CutMode != pos.CutPartial {
		t.Errorf("got %+v", got)
	}

	got.Name = "Kitchen"
	got.PaperWidthMM = 58
	if err := Profiles.UpdateProfile(ctx, got); err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	updated, err := Profiles.GetProfileByID(ctx, "p1")
	if err != nil {
		t.Fatalf("GetProfileByID after update: %v", err)
	}
	if updated.Name != "Kitchen" || updated.PaperWidthMM != 58 {
		t.Errorf("update not persisted: %+v", updated)
	}

	list, err := Profiles.ListProfiles(ctx)
	if err != nil {
		t.Fatalf("ListProfiles: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("listed %d profiles, want 1", len(list))
	}

	if err := Profiles.DeleteProfile(ctx, "p1"); err != nil {
		t.Fatalf("DeleteProfile: %v", err)
	}
	if _, err := Profiles.GetProfileByID(ctx, "p1"); !errors.Is(err, pos.ErrProfileNotFound) {
		t.Errorf("err = %v, want ErrProfileNotFound", err)
	}
}

func TestUpdateMissingProfile(t *testing.T) {
	setupTestDB(t)
	err := Profiles.UpdateProfile(context.Background(), testProfile("ghost"))
	if !errors.Is(err, pos.ErrProfileNotFound) {
		t.Errorf("err = %v, want ErrProfileNotFound", err)
	}
}

func TestSetDefaultProfile(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	for _, id := range []string{"p1", "p2"} {
		if err := Profiles.CreateProfile(ctx, testProfile(id)); err != nil {
			t.Fatalf("CreateProfile(%s): %v", id, err)
		}
	}

	if err := Profiles.SetDefaultProfile(ctx, "p1"); err != nil {
		t.Fatalf("SetDefaultProfile(p1): %v", err)
	}
	if err := Profiles.SetDefaultProfile(ctx, "p2"); err != nil {
		t.Fatalf("SetDefaultProfile(p2): %v", err)
	}

	def, err := Profiles.GetDefaultProfile(ctx)
	if err != nil {
		t.Fatalf("GetDefaultProfile: %v", err)
	}
	if def.ID != "p2" {
		t.Errorf("default = %s, want p2", def.ID)
	}

	// At most one default.
	list, err := Profiles.ListProfiles(ctx)
	if err != nil {
		t.Fatalf("ListProfiles: %v", err)
	}
	defaults := 0
	for _, p := range list {
		if p.IsDefault {
			defaults++
		}
	}
	if defaults != 1 {
		t.Errorf("%d defaults, want 1", defaults)
	}

	if err := Profiles.SetDefaultProfile(ctx, "ghost"); !errors.Is(err, pos.ErrProfileNotFound) {
		t.Errorf("err = %v, want ErrProfileNotFound", err)
	}
}

func TestJobLifecycle(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	job := &pos.PrintJob{
		ProfileID: "p1",
		Type:      pos.JobTypeReceipt,
		Receipt:   testReceipt(),
	}
	if err := Jobs.CreateJob(ctx, job); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if job.ID == 0 {
		t.Fatal("CreateJob must assign an id")
	}
	if job.Status != pos.JobStatusPending {
		t.Errorf("status = %s, want pending", job.Status)
	}
	if job.MaxAttempts != pos.DefaultMaxAttempts {
		t.Errorf("max attempts = %d, want %d", job.MaxAttempts, pos.DefaultMaxAttempts)
	}

	got, err := Jobs.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Receipt.StoreName != "Corner Mart" || len(got.Receipt.Items) != 1 {
		t.Errorf("receipt did not round-trip: %+v", got.Receipt)
	}
	if got.LastAttemptAt != nil || got.NextAttemptAt != nil {
		t.Error("fresh job must have no attempt timestamps")
	}

	now := time.Now().UTC()
	next := now.Add(8 * time.Second)
	got.Status = pos.JobStatusRetrying
	got.Attempts = 1
	got.LastError = "connection refused"
	got.LastAttemptAt = &now
	got.NextAttemptAt = &next
	if err := Jobs.UpdateJob(ctx, got); err != nil {
		t.Fatalf("UpdateJob: %v", err)
	}

	reloaded, err := Jobs.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob after update: %v", err)
	}
	if reloaded.Status != pos.JobStatusRetrying || reloaded.Attempts != 1 {
		t.Errorf("reloaded = %+v", reloaded)
	}
	if reloaded.LastError != "connection refused" {
		t.Errorf("last error = %q", reloaded.LastError)
	}
	if reloaded.NextAttemptAt == nil {
		t.Fatal("next attempt time lost")
	}

	if _, err := Jobs.GetJob(ctx, 9999); !errors.Is(err, pos.ErrJobNotFound) {
		t.Errorf("err = %v, want ErrJobNotFound", err)
	}
}

func TestNextEligibleJob(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	if job, err := Jobs.NextEligibleJob(ctx, time.Now()); err != nil || job != nil {
		t.Fatalf("empty queue: job = %v, err = %v", job, err)
	}

	first := &pos.PrintJob{Type: pos.JobTypeReceipt, Receipt: testReceipt()}
	second := &pos.PrintJob{Type: pos.JobTypeReceipt, Receipt: testReceipt()}
	for _, job := range []*pos.PrintJob{first, second} {
		if err := Jobs.CreateJob(ctx, job); err != nil {
			t.Fatalf("CreateJob: %v", err)
		}
	}

	// Oldest first.
	got, err := Jobs.NextEligibleJob(ctx, time.Now())
	if err != nil {
		t.Fatalf("NextEligibleJob: %v", err)
	}
	if got == nil || got.ID != first.ID {
		t.Fatalf("got %v, want job %d", got, first.ID)
	}

	// A printing job is not eligible.
	first.Status = pos.JobStatusPrinting
	if err := Jobs.UpdateJob(ctx, first); err != nil {
		t.Fatalf("UpdateJob: %v", err)
	}
	got, err = Jobs.NextEligibleJob(ctx, time.Now())
	if err != nil {
		t.Fatalf("NextEligibleJob: %v", err)
	}
	if got == nil || got.ID != second.ID {
		t.Fatalf("got %v, want job %d", got, second.ID)
	}

	// A retrying job is eligible only once its scheduled time passes.
	future := time.Now().UTC().Add(time.Hour)
	second.Status = pos.JobStatusRetrying
	second.NextAttemptAt = &future
	if err := Jobs.UpdateJob(ctx, second); err != nil {
		t.Fatalf("UpdateJob: %v", err)
	}
	got, err = Jobs.NextEligibleJob(ctx, time.Now())
	if err != nil {
		t.Fatalf("NextEligibleJob: %v", err)
	}
	if got != nil {
		t.Fatalf("future retry should not be eligible, got job %d", got.ID)
	}

	past := time.Now().UTC().Add(-time.Minute)
	second.NextAttemptAt = &past
	if err := Jobs.UpdateJob(ctx, second); err != nil {
		t.Fatalf("UpdateJob: %v", err)
	}
	got, err = Jobs.NextEligibleJob(ctx, time.Now())
	if err != nil {
		t.Fatalf("NextEligibleJob: %v", err)
	}
	if got == nil || got.ID != second.ID {
		t.Fatalf("elapsed retry should be eligible, got %v", got)
	}
	if got.Status != pos.JobStatusRetrying {
		t.Errorf("status = %s, want retrying preserved", got.Status)
	}
}

func TestDeleteAndCountJobsByStatus(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	statuses := []pos.JobStatus{
		pos.JobStatusSuccess, pos.JobStatusSuccess,
		pos.JobStatusFailed, pos.JobStatusPending,
	}
	for _, status := range statuses {
		job := &pos.PrintJob{Type: pos.JobTypeReceipt, Receipt: testReceipt(), Status: status}
		if err := Jobs.CreateJob(ctx, job); err != nil {
			t.Fatalf("CreateJob: %v", err)
		}
	}

	counts, err := Jobs.CountJobsByStatus(ctx)
	if err != nil {
		t.Fatalf("CountJobsByStatus: %v", err)
	}
	if counts[pos.JobStatusSuccess] != 2 || counts[pos.JobStatusFailed] != 1 || counts[pos.JobStatusPending] != 1 {
		t.Errorf("counts = %v", counts)
	}

	successJobs, err := Jobs.ListJobsByStatus(ctx, pos.JobStatusSuccess)
	if err != nil {
		t.Fatalf("ListJobsByStatus: %v", err)
	}
	if len(successJobs) != 2 {
		t.Errorf("listed %d success jobs, want 2", len(successJobs))
	}

	deleted, err := Jobs.DeleteJobsByStatus(ctx, pos.JobStatusSuccess)
	if err != nil {
		t.Fatalf("DeleteJobsByStatus: %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}

	counts, err = Jobs.CountJobsByStatus(ctx)
	if err != nil {
		t.Fatalf("CountJobsByStatus: %v", err)
	}
	if counts[pos.JobStatusSuccess] != 0 {
		t.Errorf("success jobs remain: %v", counts)
	}
	if counts[pos.JobStatusFailed] != 1 || counts[pos.JobStatusPending] != 1 {
		t.Errorf("other jobs must survive: %v", counts)
	}
}

func TestSettings(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	if _, err := Settings.GetSetting(ctx, "missing"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("err = %v, want sql.ErrNoRows", err)
	}

	if err := Settings.SetSetting(ctx, "jwt_secret", "abc"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	s, err := Settings.GetSetting(ctx, "jwt_secret")
	if err != nil {
		t.Fatalf("GetSetting: %v", err)
	}
	if s.Value != "abc" {
		t.Errorf("value = %q", s.Value)
	}

	if err := Settings.SetSetting(ctx, "jwt_secret", "def"); err != nil {
		t.Fatalf("SetSetting overwrite: %v", err)
	}
	s, err = Settings.GetSetting(ctx, "jwt_secret")
	if err != nil {
		t.Fatalf("GetSetting after overwrite: %v", err)
	}
	if s.Value != "def" {
		t.Errorf("value = %q, want def", s.Value)
	}
}
