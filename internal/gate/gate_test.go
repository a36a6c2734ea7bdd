package gate

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestOpenGateRunsImmediately(t *testing.T) {
	var g Gate
	ran := false
	g.Do(func() { ran = true })
	assert.True(t, ran)
}

func TestProcuredGateQueuesInOrder(t *testing.T) {
	var g Gate
	assert.True(t, g.Procure())
	assert.False(t, g.Procure())

	var order []int
	for i := 1; i <= 3; i++ {
		i := i
		g.Do(func() { order = append(order, i) })
	}
	assert.Empty(t, order)
	assert.Equal(t, 3, g.Pending())

	g.Vacate()
	assert.Equal(t, []int{1, 2, 3}, order)
	assert.False(t, g.Procured())
	assert.Zero(t, g.Pending())
}

func TestQueuedOperationCanProcureAgain(t *testing.T) {
	var g Gate
	g.Procure()

	var order []string
	g.Do(func() {
		order = append(order, "first")
		g.Procure()
	})
	g.Do(func() { order = append(order, "second") })

	g.Vacate()
	assert.Equal(t, []string{"first"}, order)
	assert.True(t, g.Procured())

	g.Vacate()
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestDoWhileDrainingKeepsOrder(t *testing.T) {
	var g Gate
	g.Procure()

	var order []int
	g.Do(func() {
		order = append(order, 1)
		g.Do(func() { order = append(order, 3) })
	})
	g.Do(func() { order = append(order, 2) })

	g.Vacate()
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestConcurrentSubmitters(t *testing.T) {
	var g Gate
	g.Procure()

	var (
		mu    sync.Mutex
		count int
		wg    sync.WaitGroup
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.Do(func() {
				mu.Lock()
				count++
				mu.Unlock()
			})
		}()
	}
	wg.Wait()

	g.Vacate()
	assert.Equal(t, 50, count)
}
