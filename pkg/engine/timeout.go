package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/chazu/kmlgraph/pkg/kml"
)

// DefaultTimeout is the limit for a single Select call when the engine has
// no Timeout configured.
const DefaultTimeout = 5 * time.Second

// evalResult is the internal type used to pass evaluation results through channels.
type evalResult struct {
	parts  []*kml.Item
	errors []EvalError
	err    error
}

// waitWithTimeout waits for a result from ch, but returns a timeout error
// if the evaluation exceeds timeout. It uses a generation counter to
// discard stale results from previous evaluations.
//
// On timeout, the goroutine may still be running; the generation check
// ensures its result is discarded when it eventually completes.
func waitWithTimeout(
	ch <-chan evalResult,
	gen uint64,
	mu *sync.Mutex,
	currentGen *uint64,
	timeout time.Duration,
) ([]*kml.Item, []EvalError, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		mu.Lock()
		current := *currentGen
		mu.Unlock()

		if gen != current {
			// A newer query was started; discard this result.
			return nil, nil, fmt.Errorf("query superseded by newer request")
		}

		return res.parts, res.errors, res.err

	case <-timer.C:
		return nil, nil, fmt.Errorf("query timed out after %s", timeout)
	}
}
