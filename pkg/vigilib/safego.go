package vigilib

import (
	"log"
	"runtime/debug"
	"sync"
)

// SafeGo launches fn on its own goroutine and keeps a panic inside it from
// taking the process down. A recovered value is logged with its stack when l
// is set and then handed to onPanic when one is given. A non-nil wg is
// marked done whether fn returns or panics.
func SafeGo(l *log.Logger, wg *sync.WaitGroup, label string, onPanic func(r interface{}), fn func()) {
	go func() {
		if wg != nil {
			defer wg.Done()
		}
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			if l != nil {
				l.Printf("PANIC [%s]: %v\n%s", label, r, debug.Stack())
			}
			if onPanic != nil {
				onPanic(r)
			}
		}()
		fn()
	}()
}
