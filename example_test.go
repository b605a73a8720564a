package lockfree_test

import (
	"context"
	"fmt"
	"time"

	"github.com/soloist-v/lockfree"
)

func ExampleNewRingChannel() {
	tx, rx := lockfree.NewRingChannel[int](8)

	for i := 1; i <= 3; i++ {
		if err := tx.Push(i); err != nil {
			fmt.Println("push:", err)
		}
	}

	for {
		v, err := rx.Pop()
		if err != nil {
			fmt.Println("drained")
			break
		}
		fmt.Println(v)
	}
	// Output:
	// 1
	// 2
	// 3
	// drained
}

func ExampleNewLatestValue() {
	w, r := lockfree.NewLatestValue[string](4)

	w.Publish("first")
	w.Publish("second") // supersedes "first" before anyone reads it

	v, _ := r.Take()
	fmt.Println(v)

	_, err := r.Take()
	fmt.Println(err)
	// Output:
	// second
	// lockfree: buffer is empty
}

func ExampleNewLatestValueInit() {
	// Four fixed buffers rotate between writer and reader: every publish
	// hands the displaced occupant of its slot back to the writer.
	w, r := lockfree.NewLatestValueInit[[]byte](4, func(i uint64) []byte {
		return make([]byte, 0, 1024)
	})

	spare, ok := w.Publish([]byte("frame-1"))
	fmt.Println(ok, cap(spare))

	v, _ := r.Take()
	fmt.Println(string(v))
	// Output:
	// true 1024
	// frame-1
}

func ExampleReceiver_PopContext() {
	tx, rx := lockfree.NewRingChannel[string](8)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	go func() {
		_ = tx.Push("ping")
	}()

	v, err := rx.PopContext(ctx)
	fmt.Println(v, err)
	// Output:
	// ping <nil>
}
