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

package orchestrator_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datainfrapilot/datainfrapilot/pkg/orchestrator"
)

func TestPoolRunsCommandsSequentiallyPerKey(t *testing.T) {
	p := orchestrator.NewPool()

	var mu sync.Mutex

	var order []int

	var wg sync.WaitGroup

	wg.Add(5)

	for i := 0; i < 5; i++ {
		i := i

		err := p.Submit("cluster-a", func() {
			defer wg.Done()
			time.Sleep(time.Millisecond)

			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
		require.NoError(t, err)
	}

	wg.Wait()

	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestPoolRunsDifferentKeysConcurrently(t *testing.T) {
	p := orchestrator.NewPool()

	var wg sync.WaitGroup

	wg.Add(2)

	// Each command waits, up to a second, for the other one to have
	// started: concurrent only reaches 2 if both were running at once.
	var arrived sync.WaitGroup

	arrived.Add(2)

	both := make(chan struct{})

	go func() {
		arrived.Wait()
		close(both)
	}()

	var concurrent int32

	check := func() {
		defer wg.Done()
		arrived.Done()

		select {
		case <-both:
			atomic.AddInt32(&concurrent, 1)
		case <-time.After(time.Second):
		}
	}

	require.NoError(t, p.Submit("cluster-a", check))
	require.NoError(t, p.Submit("cluster-b", check))

	wg.Wait()

	assert.Equal(t, int32(2), atomic.LoadInt32(&concurrent))
}

func TestPoolSubmitReturnsErrQueueFullWhenSaturated(t *testing.T) {
	p := orchestrator.NewPool()

	block := make(chan struct{})

	require.NoError(t, p.Submit("cluster-a", func() { <-block }))

	var err error

	for i := 0; i < orchestrator.QueueCapacity+1; i++ {
		err = p.Submit("cluster-a", func() {})
		if err != nil {
			break
		}
	}

	assert.ErrorIs(t, err, orchestrator.ErrQueueFull)

	close(block)
}

func TestPoolStopDrainsAndAllowsRestart(t *testing.T) {
	p := orchestrator.NewPool()

	var ran int32

	require.NoError(t, p.Submit("cluster-a", func() { atomic.AddInt32(&ran, 1) }))

	p.Stop("cluster-a")

	assert.Equal(t, int32(1), atomic.LoadInt32(&ran))

	require.NoError(t, p.Submit("cluster-a", func() { atomic.AddInt32(&ran, 1) }))

	p.Stop("cluster-a")

	assert.Equal(t, int32(2), atomic.LoadInt32(&ran))
}
