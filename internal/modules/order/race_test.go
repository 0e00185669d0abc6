// README: Concurrency tests for order state transitions (run with -race).
package order

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func raceStores(t *testing.T) map[string]Repository {
	stores := map[string]Repository{"memory": newMemStore()}
	t.Run("postgres", func(t *testing.T) {
		stores["postgres"] = setupTestStore(t)
	})
	return stores
}

func TestConcurrentAcceptVsCancel(t *testing.T) {
	for name, store := range raceStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			svc := NewService(store, &fakeQuoter{}, nil, nil)

			o, err := svc.Create(ctx, validCreate())
			if err != nil {
				t.Fatalf("create order: %v", err)
			}

			var wg sync.WaitGroup
			errs := make(chan error, 2)
			for _, next := range []Status{StatusAccepted, StatusCancelled} {
				wg.Add(1)
				go func(next Status) {
					defer wg.Done()
					_, err := svc.UpdateStatus(ctx, UpdateStatusCommand{OrderID: o.ID, To: next})
					errs <- err
				}(next)
			}
			wg.Wait()
			close(errs)

			success := 0
			for err := range errs {
				if err == nil {
					success++
					continue
				}
				if !errors.Is(err, ErrConflict) && !errors.Is(err, ErrInvalidState) {
					t.Fatalf("unexpected error: %v", err)
				}
			}
			// Accept then cancel is a legal sequence, so one or two may succeed,
			// but never zero and the version must match the number of winners.
			if success == 0 {
				t.Fatal("expected at least one transition to succeed")
			}
			got, err := svc.Get(ctx, o.ID)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got.StatusVersion != success {
				t.Fatalf("status_version = %d, want %d", got.StatusVersion, success)
			}
		})
	}
}

func TestConcurrentDoubleAccept(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemStore(), &fakeQuoter{}, nil, nil)
	o, err := svc.Create(ctx, validCreate())
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	const n = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	success := 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.UpdateStatus(ctx, UpdateStatusCommand{OrderID: o.ID, To: StatusAccepted})
			if err == nil {
				mu.Lock()
				success++
				mu.Unlock()
				return
			}
			if !errors.Is(err, ErrConflict) && !errors.Is(err, ErrInvalidState) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	if success != 1 {
		t.Fatalf("success = %d, want exactly 1", success)
	}
}
