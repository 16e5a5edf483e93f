package store

import "database/sql"

// SetMetadata upserts a key-value pair in the assessment_metadata table.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO assessment_metadata (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = ?`,
		key, value, value,
	)
	return err
}

// GetMetadata returns the value for a metadata key.
// Returns empty string and nil error if the key is missing.
func (s *Store) GetMetadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM assessment_metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// BatchInfo identifies an assessment batch for export.
type BatchInfo struct {
	BatchID     string
	Institution string
	Date        string
}

// SetBatchInfo stores all BatchInfo fields as metadata rows.
func (s *Store) SetBatchInfo(info BatchInfo) error {
	pairs := []struct{ k, v string }{
		{"batch_id", info.BatchID},
		{"institution", info.Institution},
		{"date", info.Date},
	}
	for _, p := range pairs {
		if err := s.SetMetadata(p.k, p.v); err != nil {
			return err
		}
	}
	return nil
}

// ResolveBatchInfo merges non-empty override fields into the stored batch
// info, persists any changes, and returns the result. Overrides that match
// the stored values write nothing.
func (s *Store) ResolveBatchInfo(override BatchInfo) (BatchInfo, error) {
	info, err := s.GetBatchInfo()
	if err != nil {
		return info, err
	}
	changed := false
	if override.BatchID != "" && override.BatchID != info.BatchID {
		info.BatchID = override.BatchID
		changed = true
	}
	if override.Institution != "" && override.Institution != info.Institution {
		info.Institution = override.Institution
		changed = true
	}
	if override.Date != "" && override.Date != info.Date {
		info.Date = override.Date
		changed = true
	}
	if changed {
		if err := s.SetBatchInfo(info); err != nil {
			return info, err
		}
	}
	return info, nil
}

// GetBatchInfo reads all BatchInfo fields from metadata.
func (s *Store) GetBatchInfo() (BatchInfo, error) {
	var info BatchInfo
	var err error

	if info.BatchID, err = s.GetMetadata("batch_id"); err != nil {
		return info, err
	}
	if info.Institution, err = s.GetMetadata("institution"); err != nil {
		return info, err
	}
	if info.Date, err = s.GetMetadata("date"); err != nil {
		return info, err
	}
	return info, nil
}
