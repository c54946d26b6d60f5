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

type clusterRow struct {
	ID             string    `db:"id"`
	Name           string    `db:"name"`
	Provider       string    `db:"provider"`
	ProviderConfig []byte    `db:"provider_config"`
	K3sVersion     string    `db:"k3s_version"`
	Domain         string    `db:"domain"`
	AccessIP       string    `db:"access_ip"`
	Addons         []byte    `db:"addons"`
	Status         string    `db:"status"`
	ErrorMessage   string    `db:"error_message"`
	CreatedAt      time.Time `db:"created_at"`
}

type poolRow struct {
	ID         string `db:"id"`
	ClusterID  string `db:"cluster_id"`
	Name       string `db:"name"`
	Role       string `db:"role"`
	NodeType   string `db:"node_type"`
	Region     string `db:"region"`
	FixedCount *int   `db:"fixed_count"`
	MinCount   *int   `db:"min_count"`
	MaxCount   *int   `db:"max_count"`
}

// CreateCluster inserts a new cluster with its control-plane and worker
// pools in a single transaction. Name collisions surface as ErrConflict.
func (s *Store) CreateCluster(ctx context.Context, c *apicluster.Cluster) error {
	c.ID = uuid.NewString()
	c.Status = apicluster.StatusPending
	c.CreatedAt = time.Now()

	addons, err := json.Marshal(c.Addons)
	if err != nil {
		return fmt.Errorf("marshalling addons: %w", err)
	}

	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO clusters (id, name, provider, provider_config, k3s_version, domain, access_ip, addons, status, error_message, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
			c.ID, c.Name, c.Provider, c.ProviderConfig, c.K3sVersion, c.Domain, c.AccessIP, addons, c.Status, c.Error, c.CreatedAt)
		if err != nil {
			return wrapWriteErr(err)
		}

		pools := append([]apicluster.Pool{c.ControlPlane}, c.WorkerPools...)

		for i := range pools {
			pools[i].ClusterID = c.ID

			if err := insertPool(ctx, tx, &pools[i]); err != nil {
				return err
			}
		}

		c.ControlPlane = pools[0]
		c.WorkerPools = pools[1:]

		return nil
	})
}

func insertPool(ctx context.Context, tx *sqlx.Tx, p *apicluster.Pool) error {
	p.ID = uuid.NewString()

	_, err := tx.ExecContext(ctx, `
		INSERT INTO pools (id, cluster_id, name, role, node_type, region, fixed_count, min_count, max_count)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		p.ID, p.ClusterID, p.Name, p.Role, p.NodeType, p.Region, p.FixedCount, p.MinCount, p.MaxCount)

	return wrapWriteErr(err)
}

// GetCluster returns a cluster by ID with its pools and deployments
// joined, or ErrNotFound.
func (s *Store) GetCluster(ctx context.Context, id string) (*apicluster.Cluster, error) {
	var row clusterRow

	if err := s.db.GetContext(ctx, &row, `SELECT * FROM clusters WHERE id = $1`, id); err != nil {
		return nil, wrapReadErr(err)
	}

	c, err := clusterFromRow(&row)
	if err != nil {
		return nil, err
	}

	var poolRows []poolRow
	if err := s.db.SelectContext(ctx, &poolRows, `SELECT * FROM pools WHERE cluster_id = $1 ORDER BY name`, id); err != nil {
		return nil, err
	}

	for _, pr := range poolRows {
		pool := poolFromRow(&pr)

		if pool.Role == apicluster.PoolRoleControlPlane {
			c.ControlPlane = pool
		} else {
			c.WorkerPools = append(c.WorkerPools, pool)
		}
	}

	deployments, err := s.listDeployments(ctx, id)
	if err != nil {
		return nil, err
	}

	c.Deployments = deployments

	return c, nil
}

// ListClusters returns every cluster with pools and deployments joined.
func (s *Store) ListClusters(ctx context.Context) ([]apicluster.Cluster, error) {
	var rows []clusterRow

	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM clusters ORDER BY created_at`); err != nil {
		return nil, err
	}

	out := make([]apicluster.Cluster, 0, len(rows))

	for i := range rows {
		c, err := s.GetCluster(ctx, rows[i].ID)
		if err != nil {
			return nil, err
		}

		out = append(out, *c)
	}

	return out, nil
}

// UpdateClusterStatus atomically writes status, error message, and
// (optionally) the access IP once bootstrap completes (spec §4.1, §4.8).
func (s *Store) UpdateClusterStatus(ctx context.Context, id string, status apicluster.Status, errMsg string, accessIP *string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if accessIP != nil {
			_, err := tx.ExecContext(ctx, `UPDATE clusters SET status=$1, error_message=$2, access_ip=$3 WHERE id=$4`,
				status, errMsg, *accessIP, id)
			return wrapWriteErr(err)
		}

		_, err := tx.ExecContext(ctx, `UPDATE clusters SET status=$1, error_message=$2 WHERE id=$3`, status, errMsg, id)

		return wrapWriteErr(err)
	})
}

// DeleteCluster removes a cluster row. Child pools, deployments, endpoint
// bindings and volume bindings cascade in the same transaction via
// ON DELETE CASCADE (spec §8 "Deleting a cluster…").
func (s *Store) DeleteCluster(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM clusters WHERE id = $1`, id)
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
	})
}

func (s *Store) withTx(ctx context.Context, f func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	if err := f(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

func clusterFromRow(row *clusterRow) (*apicluster.Cluster, error) {
	var addons apicluster.AddonConfig
	if len(row.Addons) > 0 {
		if err := json.Unmarshal(row.Addons, &addons); err != nil {
			return nil, fmt.Errorf("unmarshalling addons: %w", err)
		}
	}

	return &apicluster.Cluster{
		ID:             row.ID,
		Name:           row.Name,
		Provider:       row.Provider,
		ProviderConfig: row.ProviderConfig,
		K3sVersion:     row.K3sVersion,
		Domain:         row.Domain,
		AccessIP:       row.AccessIP,
		Addons:         addons,
		Status:         apicluster.Status(row.Status),
		Error:          row.ErrorMessage,
		CreatedAt:      row.CreatedAt,
	}, nil
}

func poolFromRow(row *poolRow) apicluster.Pool {
	return apicluster.Pool{
		ID:         row.ID,
		ClusterID:  row.ClusterID,
		Name:       row.Name,
		Role:       apicluster.PoolRole(row.Role),
		NodeType:   row.NodeType,
		Region:     row.Region,
		FixedCount: row.FixedCount,
		MinCount:   row.MinCount,
		MaxCount:   row.MaxCount,
	}
}
