package jobs

import (
	"context"
	"log"
	"time"
)

// Processor runs one unit of background work per invocation.
type Processor interface {
	Run(ctx context.Context) error
}

// Worker drives a Processor on a fixed interval until stopped.
type Worker struct {
	processor    Processor
	pollInterval time.Duration
	stopChan     chan struct{}
	doneChan     chan struct{}
}

// NewWorker creates a new Worker instance
func NewWorker(processor Processor, pollInterval time.Duration) *Worker {
	return &Worker{
		processor:    processor,
		pollInterval: pollInterval,
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
}

// Start begins the worker's polling loop. The processor runs once
// immediately so a backlog does not wait a full interval after startup.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	defer close(w.doneChan)

	log.Printf("Worker started with poll interval: %v", w.pollInterval)

	if err := w.processor.Run(ctx); err != nil {
		log.Printf("Error processing work: %v", err)
	}

	for {
		select {
		case <-ctx.Done():
			log.Println("Worker stopped: context cancelled")
			return
		case <-w.stopChan:
			log.Println("Worker stopped: stop signal received")
			return
		case <-ticker.C:
			if err := w.processor.Run(ctx); err != nil {
				log.Printf("Error processing work: %v", err)
			}
		}
	}
}

// Stop gracefully stops the worker
func (w *Worker) Stop() {
	close(w.stopChan)
	<-w.doneChan
	log.Println("Worker shutdown complete")
}
