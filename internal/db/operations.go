package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Ayesha-Siddiqa-khan/AssanPOS-V1.4-offline-sub003/internal/pos"
)

var (
	Profiles = &ProfileOperations{}
	Jobs     = &JobOperations{}
	Settings = &SettingsOperations{}
)

type ProfileOperations struct{}

func (o *ProfileOperations) CreateProfile(ctx context.Context, p *pos.PrinterProfile) error {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.Port == 0 {
		p.Port = pos.DefaultPrinterPort
	}

	_, err := GetDB().ExecContext(ctx, insertProfile,
		p.ID, p.Name, p.IP, p.Port, p.PaperWidthMM, p.TextEncoding,
		p.CodePage, string(p.CutMode), p.DrawerKick, p.BitmapFallback,
		p.IsDefault, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

func (o *ProfileOperations) GetProfileByID(ctx context.Context, id string) (*pos.PrinterProfile, error) {
	return scanProfile(GetDB().QueryRowContext(ctx, getProfileByID, id))
}

func (o *ProfileOperations) GetDefaultProfile(ctx context.Context) (*pos.PrinterProfile, error) {
	return scanProfile(GetDB().QueryRowContext(ctx, getDefaultProfile))
}

func (o *ProfileOperations) ListProfiles(ctx context.Context) ([]*pos.PrinterProfile, error) {
	rows, err := GetDB().QueryContext(ctx, listProfiles)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*pos.PrinterProfile
	for rows.Next() {
		p := &pos.PrinterProfile{}
		var cutMode string
		if err := rows.Scan(
			&p.ID, &p.Name, &p.IP, &p.Port, &p.PaperWidthMM, &p.TextEncoding,
			&p.CodePage, &cutMode, &p.DrawerKick, &p.BitmapFallback,
			&p.IsDefault, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		p.CutMode = pos.CutMode(cutMode)
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

func (o *ProfileOperations) UpdateProfile(ctx context.Context, p *pos.PrinterProfile) error {
	p.UpdatedAt = time.Now().UTC()
	result, err := GetDB().ExecContext(ctx, updateProfile,
		p.Name, p.IP, p.Port, p.PaperWidthMM, p.TextEncoding,
		p.CodePage, string(p.CutMode), p.DrawerKick, p.BitmapFallback,
		p.UpdatedAt, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return pos.ErrProfileNotFound
	}
	return nil
}

func (o *ProfileOperations) DeleteProfile(ctx context.Context, id string) error {
	_, err := GetDB().ExecContext(ctx, deleteProfile, id)
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	return nil
}

// SetDefaultProfile clears every default flag and sets the given profile's
// in one transaction, so at most one profile is ever default.
func (o *ProfileOperations) SetDefaultProfile(ctx context.Context, id string) error {
	tx, err := GetDB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, clearDefaultFlags); err != nil {
		return fmt.Errorf("failed to clear default flags: %w", err)
	}

	result, err := tx.ExecContext(ctx, setDefaultFlag, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to set default flag: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return pos.ErrProfileNotFound
	}

	return tx.Commit()
}

func scanProfile(row *sql.Row) (*pos.PrinterProfile, error) {
	p := &pos.PrinterProfile{}
	var cutMode string
	err := row.Scan(
		&p.ID, &p.Name, &p.IP, &p.Port, &p.PaperWidthMM, &p.TextEncoding,
		&p.CodePage, &cutMode, &p.DrawerKick, &p.BitmapFallback,
		&p.IsDefault, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, pos.ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	p.CutMode = pos.CutMode(cutMode)
	return p, nil
}

// JobOperations implements the queue's store contract against sqlite.
type JobOperations struct{}

func (o *JobOperations) GetProfile(ctx context.Context, id string) (*pos.PrinterProfile, error) {
	return Profiles.GetProfileByID(ctx, id)
}

func (o *JobOperations) CreateJob(ctx context.Context, job *pos.PrintJob) error {
	payload, err := json.Marshal(job.Receipt)
	if err != nil {
		return fmt.Errorf("failed to serialize receipt: %w", err)
	}

	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now
	if job.Status == "" {
		job.Status = pos.JobStatusPending
	}
	if job.MaxAttempts < 1 {
		job.MaxAttempts = pos.DefaultMaxAttempts
	}

	result, err := GetDB().ExecContext(ctx, insertJob,
		nullString(job.ProfileID), string(job.Type), string(payload),
		string(job.Status), job.Attempts, job.MaxAttempts, job.LastError,
		job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert job: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get job id: %w", err)
	}
	job.ID = id
	return nil
}

func (o *JobOperations) GetJob(ctx context.Context, id int64) (*pos.PrintJob, error) {
	job, err := scanJob(GetDB().QueryRowContext(ctx, getJobByID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, pos.ErrJobNotFound
		}
		return nil, err
	}
	return job, nil
}

func (o *JobOperations) UpdateJob(ctx context.Context, job *pos.PrintJob) error {
	job.UpdatedAt = time.Now().UTC()
	_, err := GetDB().ExecContext(ctx, updateJob,
		nullString(job.ProfileID), string(job.Status), job.Attempts,
		job.MaxAttempts, job.LastError, job.UpdatedAt,
		nullTime(job.LastAttemptAt), nullTime(job.NextAttemptAt), job.ID)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}
	return nil
}

func (o *JobOperations) NextEligibleJob(ctx context.Context, now time.Time) (*pos.PrintJob, error) {
	job, err := scanJob(GetDB().QueryRowContext(ctx, nextEligibleJob, now.UTC()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return job, nil
}

func (o *JobOperations) ListJobs(ctx context.Context, limit int) ([]*pos.PrintJob, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := GetDB().QueryContext(ctx, listJobs, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()
	return scanJobs(rows)
}

func (o *JobOperations) ListJobsByStatus(ctx context.Context, status pos.JobStatus) ([]*pos.PrintJob, error) {
	rows, err := GetDB().QueryContext(ctx, listJobsByStatus, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs by status: %w", err)
	}
	defer rows.Close()
	return scanJobs(rows)
}

func (o *JobOperations) DeleteJobsByStatus(ctx context.Context, statuses ...pos.JobStatus) (int64, error) {
	if len(statuses) == 0 {
		return 0, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(statuses)), ", ")
	args := make([]interface{}, len(statuses))
	for i, s := range statuses {
		args[i] = string(s)
	}

	result, err := GetDB().ExecContext(ctx,
		"DELETE FROM print_jobs WHERE status IN ("+placeholders+")", args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete jobs: %w", err)
	}
	return result.RowsAffected()
}

func (o *JobOperations) CountJobsByStatus(ctx context.Context) (map[pos.JobStatus]int, error) {
	rows, err := GetDB().QueryContext(ctx, countJobsByStatus)
	if err != nil {
		return nil, fmt.Errorf("failed to count jobs: %w", err)
	}
	defer rows.Close()

	counts := make(map[pos.JobStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan job count: %w", err)
		}
		counts[pos.JobStatus(status)] = count
	}
	return counts, rows.Err()
}

type jobScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row jobScanner) (*pos.PrintJob, error) {
	job := &pos.PrintJob{}
	var profileID sql.NullString
	var jobType, status, payload string
	var lastAttemptAt, nextAttemptAt sql.NullTime

	err := row.Scan(
		&job.ID, &profileID, &jobType, &payload, &status,
		&job.Attempts, &job.MaxAttempts, &job.LastError,
		&job.CreatedAt, &job.UpdatedAt, &lastAttemptAt, &nextAttemptAt)
	if err != nil {
		return nil, err
	}

	job.ProfileID = profileID.String
	job.Type = pos.JobType(jobType)
	job.Status = pos.JobStatus(status)
	if lastAttemptAt.Valid {
		t := lastAttemptAt.Time
		job.LastAttemptAt = &t
	}
	if nextAttemptAt.Valid {
		t := nextAttemptAt.Time
		job.NextAttemptAt = &t
	}
	if err := json.Unmarshal([]byte(payload), &job.Receipt); err != nil {
		return nil, fmt.Errorf("failed to decode job payload: %w", err)
	}
	return job, nil
}

func scanJobs(rows *sql.Rows) ([]*pos.PrintJob, error) {
	var jobs []*pos.PrintJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

type SettingsOperations struct{}

type Setting struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}

func (o *SettingsOperations) GetSetting(ctx context.Context, key string) (*Setting, error) {
	s := &Setting{}
	err := GetDB().QueryRowContext(ctx, getSetting, key).Scan(&s.Key, &s.Value, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to get setting: %w", err)
	}
	return s, nil
}

func (o *SettingsOperations) SetSetting(ctx context.Context, key, value string) error {
	_, err := GetDB().ExecContext(ctx, upsertSetting, key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to set setting: %w", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
