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
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	apicluster "github.com/datainfrapilot/datainfrapilot/pkg/apis/cluster"
)

type deploymentRow struct {
	ID            string     `db:"id"`
	ClusterID     string     `db:"cluster_id"`
	Name          string     `db:"name"`
	ApplicationID string     `db:"application_id"`
	Config        []byte     `db:"config"`
	BoundPool     string     `db:"bound_pool"`
	Status        string     `db:"status"`
	ErrorMessage  string     `db:"error_message"`
	InstalledAt   *time.Time `db:"installed_at"`
}

type endpointRow struct {
	ID           string `db:"id"`
	DeploymentID string `db:"deployment_id"`
	Name         string `db:"name"`
	AccessType   string `db:"access_type"`
	Value        string `db:"value"`
	Enabled      bool   `db:"enabled"`
}

type volumeBindingRow struct {
	ID              string `db:"id"`
	DeploymentID    string `db:"deployment_id"`
	RequirementName string `db:"requirement_name"`
	VolumeID        string `db:"volume_id"`
	IsNew           bool   `db:"is_new"`
}

// CreateDeployment inserts a deployment with its endpoints and volume
// bindings in one transaction. Name collisions within the cluster surface
// as ErrConflict (spec §4.1).
func (s *Store) CreateDeployment(ctx context.Context, d *apicluster.Deployment) error {
	d.ID = uuid.NewString()
	d.Status = apicluster.StatusPending

	cfg, err := json.Marshal(d.Config)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO deployments (id, cluster_id, name, application_id, config, bound_pool, status, error_message)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			d.ID, d.ClusterID, d.Name, d.ApplicationID, cfg, d.BoundPool, d.Status, d.Error)
		if err != nil {
			return wrapWriteErr(err)
		}

		for i := range d.Endpoints {
			ep := &d.Endpoints[i]

			if _, err := tx.ExecContext(ctx, `
				INSERT INTO deployment_endpoints (id, deployment_id, name, access_type, value, enabled)
				VALUES ($1,$2,$3,$4,$5,$6)`,
				uuid.NewString(), d.ID, ep.Name, ep.Type, ep.Value, ep.Enabled); err != nil {
				return wrapWriteErr(err)
			}
		}

		for i := range d.Volumes {
			vb := &d.Volumes[i]

			if _, err := tx.ExecContext(ctx, `
				INSERT INTO deployment_volumes (id, deployment_id, requirement_name, volume_id, is_new)
				VALUES ($1,$2,$3,$4,$5)`,
				uuid.NewString(), d.ID, vb.RequirementName, vb.VolumeID, vb.New); err != nil {
				return wrapWriteErr(err)
			}

			if err := setVolumeInUse(ctx, tx, vb.VolumeID, true); err != nil {
				return err
			}
		}

		return nil
	})
}

// GetDeployment returns a single deployment by ID with endpoints and
// volume bindings joined.
func (s *Store) GetDeployment(ctx context.Context, id string) (*apicluster.Deployment, error) {
	var row deploymentRow

	if err := s.db.GetContext(ctx, &row, `SELECT * FROM deployments WHERE id = $1`, id); err != nil {
		return nil, wrapReadErr(err)
	}

	d, err := deploymentFromRow(&row)
	if err != nil {
		return nil, err
	}

	if err := s.fillDeploymentChildren(ctx, d); err != nil {
		return nil, err
	}

	return d, nil
}

func (s *Store) listDeployments(ctx context.Context, clusterID string) ([]apicluster.Deployment, error) {
	var rows []deploymentRow

	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM deployments WHERE cluster_id = $1 ORDER BY name`, clusterID); err != nil {
		return nil, err
	}

	out := make([]apicluster.Deployment, 0, len(rows))

	for i := range rows {
		d, err := deploymentFromRow(&rows[i])
		if err != nil {
			return nil, err
		}

		if err := s.fillDeploymentChildren(ctx, d); err != nil {
			return nil, err
		}

		out = append(out, *d)
	}

	return out, nil
}

func (s *Store) fillDeploymentChildren(ctx context.Context, d *apicluster.Deployment) error {
	var epRows []endpointRow
	if err := s.db.SelectContext(ctx, &epRows, `SELECT * FROM deployment_endpoints WHERE deployment_id = $1`, d.ID); err != nil {
		return err
	}

	for _, er := range epRows {
		d.Endpoints = append(d.Endpoints, apicluster.AccessEndpoint{
			Name:    er.Name,
			Type:    apicluster.AccessType(er.AccessType),
			Value:   er.Value,
			Enabled: er.Enabled,
		})
	}

	var vbRows []volumeBindingRow
	if err := s.db.SelectContext(ctx, &vbRows, `SELECT * FROM deployment_volumes WHERE deployment_id = $1`, d.ID); err != nil {
		return err
	}

	for _, vr := range vbRows {
		d.Volumes = append(d.Volumes, apicluster.VolumeBinding{
			RequirementName: vr.RequirementName,
			VolumeID:        vr.VolumeID,
			New:             vr.IsNew,
		})
	}

	return nil
}

// UpdateDeploymentConfig replaces a deployment's user config, name and
// access endpoints ahead of re-validation and a Helm upgrade (spec §4.9
// update pipeline: "the name may be changed... but never the release
// name").
func (s *Store) UpdateDeploymentConfig(ctx context.Context, d *apicluster.Deployment) error {
	cfg, err := json.Marshal(d.Config)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE deployments SET config=$1, name=$2 WHERE id=$3`, cfg, d.Name, d.ID); err != nil {
			return wrapWriteErr(err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM deployment_endpoints WHERE deployment_id = $1`, d.ID); err != nil {
			return err
		}

		for i := range d.Endpoints {
			ep := &d.Endpoints[i]

			if _, err := tx.ExecContext(ctx, `
				INSERT INTO deployment_endpoints (id, deployment_id, name, access_type, value, enabled)
				VALUES ($1,$2,$3,$4,$5,$6)`,
				uuid.NewString(), d.ID, ep.Name, ep.Type, ep.Value, ep.Enabled); err != nil {
				return wrapWriteErr(err)
			}
		}

		return nil
	})
}

// UpdateDeploymentStatus atomically writes status and error message, and
// stamps InstalledAt the first time the deployment reaches running.
func (s *Store) UpdateDeploymentStatus(ctx context.Context, id string, status apicluster.Status, errMsg string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if status == apicluster.StatusRunning {
			_, err := tx.ExecContext(ctx, `
				UPDATE deployments SET status=$1, error_message=$2, installed_at=COALESCE(installed_at, now()) WHERE id=$3`,
				status, errMsg, id)
			return wrapWriteErr(err)
		}

		_, err := tx.ExecContext(ctx, `UPDATE deployments SET status=$1, error_message=$2 WHERE id=$3`, status, errMsg, id)

		return wrapWriteErr(err)
	})
}

// DeleteDeployment removes a deployment row, cascading its endpoints and
// volume bindings, and recomputes the in_use flag of every volume it was
// bound to, clearing it unless another binding still references the
// volume (spec §4.9 delete pipeline).
func (s *Store) DeleteDeployment(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		var vbRows []volumeBindingRow
		if err := tx.SelectContext(ctx, &vbRows, `SELECT * FROM deployment_volumes WHERE deployment_id = $1`, id); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM deployments WHERE id = $1`, id)
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

		for _, vb := range vbRows {
			if err := setVolumeInUse(ctx, tx, vb.VolumeID, false); err != nil {
				return err
			}
		}

		return nil
	})
}

func deploymentFromRow(row *deploymentRow) (*apicluster.Deployment, error) {
	var cfg apicluster.Config
	if len(row.Config) > 0 {
		if err := json.Unmarshal(row.Config, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshalling config: %w", err)
		}
	}

	return &apicluster.Deployment{
		ID:            row.ID,
		ClusterID:     row.ClusterID,
		Name:          row.Name,
		ApplicationID: row.ApplicationID,
		Config:        cfg,
		BoundPool:     row.BoundPool,
		Status:        apicluster.Status(row.Status),
		Error:         row.ErrorMessage,
		InstalledAt:   row.InstalledAt,
	}, nil
}
