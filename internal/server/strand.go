package server

import "sync"

// strand is the single-writer execution context: tasks posted to it run
// one at a time in post order, no matter how many sessions post
// concurrently. The keyspace and processor are touched only from here,
// which replaces locking.
type strand struct {
	tasks chan func()
	done  chan struct{}
	once  sync.Once
}

func newStrand() *strand {
	s := &strand{
		tasks: make(chan func()),
		done:  make(chan struct{}),
	}
	go s.loop()
	return s
}

func (s *strand) loop() {
	for fn := range s.tasks {
		fn()
	}
	close(s.done)
}

// post submits a task and returns once it is accepted. Posting after
// stop is a caller bug.
func (s *strand) post(fn func()) {
	s.tasks <- fn
}

// stop refuses further tasks and waits for the in-flight ones to drain.
func (s *strand) stop() {
	s.once.Do(func() {
		close(s.tasks)
	})
	<-s.done
}
