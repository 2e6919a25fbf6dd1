package db

const (
	insertProfile = `
		INSERT INTO printer_profiles (id, name, ip, port, paper_width_mm, text_encoding, code_page, cut_mode, drawer_kick, bitmap_fallback, is_default, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	getProfileByID = `
		SELECT id, name, ip, port, paper_width_mm, text_encoding, code_page, cut_mode, drawer_kick, bitmap_fallback, is_default, created_at, updated_at
		FROM printer_profiles WHERE id = ?
	`

	getDefaultProfile = `
		SELECT id, name, ip, port, paper_width_mm, text_encoding, code_page, cut_mode, drawer_kick, bitmap_fallback, is_default, created_at, updated_at
		FROM printer_profiles WHERE is_default = 1 LIMIT 1
	`

	listProfiles = `
		SELECT id, name, ip, port, paper_width_mm, text_encoding, code_page, cut_mode, drawer_kick, bitmap_fallback, is_default, created_at, updated_at
		FROM printer_profiles ORDER BY name ASC
	`

	updateProfile = `
		UPDATE printer_profiles SET
			name = ?, ip = ?, port = ?, paper_width_mm = ?, text_encoding = ?,
			code_page = ?, cut_mode = ?, drawer_kick = ?, bitmap_fallback = ?, updated_at = ?
		WHERE id = ?
	`

	deleteProfile = `DELETE FROM printer_profiles WHERE id = ?`

	clearDefaultFlags = `UPDATE printer_profiles SET is_default = 0 WHERE is_default = 1`

	setDefaultFlag = `UPDATE printer_profiles SET is_default = 1, updated_at = ? WHERE id = ?`
)

const (
	insertJob = `
		INSERT INTO print_jobs (profile_id, type, payload_json, status, attempts, max_attempts, last_error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	getJobByID = `
		SELECT id, profile_id, type, payload_json, status, attempts, max_attempts, last_error, created_at, updated_at, last_attempt_at, next_attempt_at
		FROM print_jobs WHERE id = ?
	`

	nextEligibleJob = `
		SELECT id, profile_id, type, payload_json, status, attempts, max_attempts, last_error, created_at, updated_at, last_attempt_at, next_attempt_at
		FROM print_jobs
		WHERE status IN ('pending', 'retrying')
		  AND (next_attempt_at IS NULL OR next_attempt_at <= ?)
		ORDER BY created_at ASC, id ASC
		LIMIT 1
	`

	updateJob = `
		UPDATE print_jobs SET
			profile_id = ?, status = ?, attempts = ?, max_attempts = ?,
			last_error = ?, updated_at = ?, last_attempt_at = ?, next_attempt_at = ?
		WHERE id = ?
	`

	listJobs = `
		SELECT id, profile_id, type, payload_json, status, attempts, max_attempts, last_error, created_at, updated_at, last_attempt_at, next_attempt_at
		FROM print_jobs ORDER BY created_at DESC, id DESC LIMIT ?
	`

	listJobsByStatus = `
		SELECT id, profile_id, type, payload_json, status, attempts, max_attempts, last_error, created_at, updated_at, last_attempt_at, next_attempt_at
		FROM print_jobs WHERE status = ? ORDER BY created_at DESC, id DESC
	`

	countJobsByStatus = `SELECT status, COUNT(*) FROM print_jobs GROUP BY status`
)

const (
	getSetting = `SELECT key, value, updated_at FROM settings WHERE key = ?`

	upsertSetting = `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
)
