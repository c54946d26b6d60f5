/*
Copyright 2024 DataInfraPilot Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	apicluster "github.com/datainfrapilot/datainfrapilot/pkg/apis/cluster"
)

type volumeRow struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	SizeGiB     int       `db:"size_gib"`
	ProviderID  string    `db:"provider_id"`
	RegionID    string    `db:"region_id"`
	Status      string    `db:"status"`
	Description string    `db:"description"`
	InUse       bool      `db:"in_use"`
	CreatedAt   time.Time `db:"created_at"`
}

// CreateVolume inserts a new volume row.
func (s *Store) CreateVolume(ctx context.Context, v *apicluster.Volume) error {
	v.ID = uuid.NewString()
	v.Status = apicluster.StatusPending
	v.CreatedAt = time.Now()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO volumes (id, name, size_gib, provider_id, region_id, status, description, in_use, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		v.ID, v.Name, v.SizeGiB, v.ProviderID, v.RegionID, v.Status, v.Description, v.InUse, v.CreatedAt)

	return wrapWriteErr(err)
}

// GetVolume returns a volume by ID, or ErrNotFound.
func (s *Store) GetVolume(ctx context.Context, id string) (*apicluster.Volume, error) {
	var row volumeRow

	if err := s.db.GetContext(ctx, &row, `SELECT * FROM volumes WHERE id = $1`, id); err != nil {
		return nil, wrapReadErr(err)
	}

	v := volumeFromRow(&row)

	return &v, nil
}

// ListVolumes returns every volume.
func (s *Store) ListVolumes(ctx context.Context) ([]apicluster.Volume, error) {
	var rows []volumeRow

	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM volumes ORDER BY created_at`); err != nil {
		return nil, err
	}

	out := make([]apicluster.Volume, 0, len(rows))
	for _, r := range rows {
		out = append(out, volumeFromRow(&r))
	}

	return out, nil
}

// UpdateVolumeStatus writes a volume's lifecycle status.
func (s *Store) UpdateVolumeStatus(ctx context.Context, id string, status apicluster.Status) error {
	_, err := s.db.ExecContext(ctx, `UPDATE volumes SET status = $1 WHERE id = $2`, status, id)
	return wrapWriteErr(err)
}

// UpdateVolumeProviderID records the provider-assigned ID once a new
// volume has been created on the IaaS backend.
func (s *Store) UpdateVolumeProviderID(ctx context.Context, id, providerID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE volumes SET provider_id = $1 WHERE id = $2`, providerID, id)
	return wrapWriteErr(err)
}

// DeleteVolume removes a volume row. The caller must have already checked
// InUse (spec §8 scenario 5: DELETE on an in-use volume is a conflict
// raised by the orchestrator/handler layer before reaching the store).
func (s *Store) DeleteVolume(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM volumes WHERE id = $1`, id)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if n == 0 {
		return ErrNotFound
	}

	return nil
}

// setVolumeInUse is called from within a deployment create/delete
// transaction to keep Volume.InUse consistent with deployment_volumes
// membership (spec §8 invariant: "a volume's in_use flag equals whether
// any deployment row references its name").
func setVolumeInUse(ctx context.Context, tx *sqlx.Tx, volumeID string, inUse bool) error {
	if inUse {
		_, err := tx.ExecContext(ctx, `UPDATE volumes SET in_use = true WHERE id = $1`, volumeID)
		return err
	}

	// Only clear in_use if no other deployment_volumes row still
	// references this volume (a volume could, in principle, be
	// referenced by more than one deployment's requirement rows across
	// its lifetime, though the common case is one).
	_, err := tx.ExecContext(ctx, `
		UPDATE volumes SET in_use = EXISTS (
			SELECT 1 FROM deployment_volumes WHERE volume_id = $1
		) WHERE id = $1`, volumeID)

	return err
}

func volumeFromRow(row *volumeRow) apicluster.Volume {
	return apicluster.Volume{
		ID:          row.ID,
		Name:        row.Name,
		SizeGiB:     row.SizeGiB,
		ProviderID:  row.ProviderID,
		RegionID:    row.RegionID,
		Status:      apicluster.Status(row.Status),
		Description: row.Description,
		InUse:       row.InUse,
		CreatedAt:   row.CreatedAt,
	}
}
