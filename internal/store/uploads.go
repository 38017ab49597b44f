package store

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"optigov.org/internal/domain"
)

// CreateUpload records upload metadata and logs it. File contents are never
// stored.
func (s *Store) CreateUpload(ctx context.Context, u domain.Upload) (domain.Upload, error) {
	u.UserID = strings.TrimSpace(u.UserID)
	u.FileName = filepath.Base(strings.TrimSpace(u.FileName))
	if u.UserID == "" || u.FileName == "" || u.FileName == "." || !u.Type.Valid() {
		return domain.Upload{}, fmt.Errorf("%w: user, file name and a valid type are required", domain.ErrInvalidInput)
	}
	u.ID = s.newID()
	u.UploadDate = s.clock()

	err := s.update(ctx, "create_upload", func(t *tx) error {
		uploads, err := get[[]domain.Upload](ctx, t, domain.PartitionUploads)
		if err != nil {
			return err
		}
		if err := t.put(domain.PartitionUploads, append(uploads, u)); err != nil {
			return err
		}
		return s.addActivity(ctx, t, domain.ActivityLog{
			UserID:  u.UserID,
			Action:  "Uploaded " + strings.ReplaceAll(string(u.Type), "_", " "),
			Details: u.FileName,
			Type:    domain.ActivityUpload,
		})
	})
	if err != nil {
		return domain.Upload{}, err
	}
	return u, nil
}

// GetUploadsByUser returns userID's uploads, newest first.
func (s *Store) GetUploadsByUser(ctx context.Context, userID string) ([]domain.Upload, error) {
	uploads, err := get[[]domain.Upload](ctx, s, domain.PartitionUploads)
	if err != nil {
		return nil, err
	}
	return newestFirst(filter(uploads, func(u domain.Upload) bool { return u.UserID == userID })), nil
}
