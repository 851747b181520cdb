package lock_test

import (
	"context"
	"fmt"
	"time"

	"github.com/absolve/reddwarf/pkg/concurrency/lock"
)

func Example() {
	mgr, err := lock.NewLockManager[string](time.Second, 8)
	if err != nil {
		panic(err)
	}

	writer := lock.NewBasicLocker[string](0)
	reader := lock.NewBasicLocker[string](0)

	if _, err := mgr.Lock(context.Background(), writer, "inventory:42", true); err != nil {
		panic(err)
	}

	conflict, err := mgr.LockNoWait(reader, "inventory:42", false)
	if err != nil {
		panic(err)
	}
	fmt.Println("reader blocked:", conflict != nil)

	mgr.ReleaseLock(writer, "inventory:42")
	conflict, err = mgr.WaitForLock(context.Background(), reader)
	if err != nil {
		panic(err)
	}
	fmt.Println("reader granted after release:", conflict == nil)

	// Output:
	// reader blocked: true
	// reader granted after release: true
}
