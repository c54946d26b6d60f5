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

import "github.com/rubenv/sql-migrate"

// schemaMigrations is the full forward/backward schema history, applied by
// Store.Migrate via sql-migrate's in-memory migration source.
var schemaMigrations = []*migrate.Migration{
	{
		Id: "0001_initial",
		Up: []string{
			`CREATE TABLE clusters (
				id              uuid PRIMARY KEY,
				name            text NOT NULL UNIQUE,
				provider        text NOT NULL,
				provider_config bytea NOT NULL,
				k3s_version     text NOT NULL,
				domain          text NOT NULL DEFAULT '',
				access_ip       text NOT NULL DEFAULT '',
				addons          jsonb NOT NULL DEFAULT '{}',
				status          text NOT NULL,
				error_message   text NOT NULL DEFAULT '',
				created_at      timestamptz NOT NULL DEFAULT now()
			)`,
			`CREATE TABLE pools (
				id          uuid PRIMARY KEY,
				cluster_id  uuid NOT NULL REFERENCES clusters(id) ON DELETE CASCADE,
				name        text NOT NULL,
				role        text NOT NULL,
				node_type   text NOT NULL,
				region      text NOT NULL,
				fixed_count integer,
				min_count   integer,
				max_count   integer,
				UNIQUE (cluster_id, name)
			)`,
			`CREATE TABLE volumes (
				id          uuid PRIMARY KEY,
				name        text NOT NULL,
				size_gib    integer NOT NULL,
				provider_id text NOT NULL DEFAULT '',
				region_id   text NOT NULL,
				status      text NOT NULL,
				description text NOT NULL DEFAULT '',
				in_use      boolean NOT NULL DEFAULT false,
				created_at  timestamptz NOT NULL DEFAULT now()
			)`,
			`CREATE TABLE deployments (
				id             uuid PRIMARY KEY,
				cluster_id     uuid NOT NULL REFERENCES clusters(id) ON DELETE CASCADE,
				name           text NOT NULL,
				application_id text NOT NULL,
				config         jsonb NOT NULL DEFAULT '{}',
				bound_pool     text NOT NULL DEFAULT '',
				status         text NOT NULL,
				error_message  text NOT NULL DEFAULT '',
				installed_at   timestamptz,
				UNIQUE (cluster_id, name)
			)`,
			`CREATE TABLE deployment_endpoints (
				id              uuid PRIMARY KEY,
				deployment_id   uuid NOT NULL REFERENCES deployments(id) ON DELETE CASCADE,
				name            text NOT NULL,
				access_type     text NOT NULL,
				value           text NOT NULL,
				enabled         boolean NOT NULL DEFAULT true
			)`,
			`CREATE TABLE deployment_volumes (
				id               uuid PRIMARY KEY,
				deployment_id    uuid NOT NULL REFERENCES deployments(id) ON DELETE CASCADE,
				requirement_name text NOT NULL,
				volume_id        uuid NOT NULL REFERENCES volumes(id),
				is_new           boolean NOT NULL DEFAULT false
			)`,
			`CREATE INDEX idx_pools_cluster_id ON pools(cluster_id)`,
			`CREATE INDEX idx_deployments_cluster_id ON deployments(cluster_id)`,
			`CREATE INDEX idx_deployment_endpoints_deployment_id ON deployment_endpoints(deployment_id)`,
			`CREATE INDEX idx_deployment_volumes_deployment_id ON deployment_volumes(deployment_id)`,
		},
		Down: []string{
			`DROP TABLE deployment_volumes`,
			`DROP TABLE deployment_endpoints`,
			`DROP TABLE deployments`,
			`DROP TABLE volumes`,
			`DROP TABLE pools`,
			`DROP TABLE clusters`,
		},
	},
}
