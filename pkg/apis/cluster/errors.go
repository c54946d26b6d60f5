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

package cluster

import "errors"

var (
	ErrInvalidName      = errors.New("invalid name")
	ErrInvalidCluster   = errors.New("invalid cluster")
	ErrInvalidPool      = errors.New("invalid pool")
	ErrInvalidVolume    = errors.New("invalid volume")
	ErrInvalidEndpoint  = errors.New("invalid endpoint")
	ErrEndpointConflict = errors.New("endpoint conflict")
	ErrClusterNotMutable = errors.New("cluster is not mutable")
)
