// services/notification_dispatcher.go - Background delivery of queued notifications
package services

import (
	"context"
	"log"
	"sync"
	"time"

	"acmportal/notify"
	"acmportal/payment"
)

const dispatchBatchSize = 50

// Dispatcher drains the notification outbox and periodically reconciles
// pending payments against the gateway.
type Dispatcher struct {
	queue  *notify.Queue
	sender notify.Sender
	ledger *payment.Ledger

	pollInterval      time.Duration
	reconcileInterval time.Duration

	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// NewDispatcher builds a dispatcher. A nil ledger or a zero reconcile
// interval disables the payment sweep.
func NewDispatcher(queue *notify.Queue, sender notify.Sender, ledger *payment.Ledger, pollInterval, reconcileInterval time.Duration) *Dispatcher {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	return &Dispatcher{
		queue:             queue,
		sender:            sender,
		ledger:            ledger,
		pollInterval:      pollInterval,
		reconcileInterval: reconcileInterval,
		stop:              make(chan struct{}),
	}
}

// Start launches the worker goroutines.
func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go d.run(d.pollInterval, func(ctx context.Context) {
		if _, err := d.DispatchOnce(ctx); err != nil {
			log.Printf("❌ Notification dispatch failed: %v", err)
		}
	})

	if d.ledger != nil && d.reconcileInterval > 0 {
		d.wg.Add(1)
		go d.run(d.reconcileInterval, func(ctx context.Context) {
			if _, err := d.ledger.ReconcilePending(ctx); err != nil {
				log.Printf("❌ Payment reconciliation failed: %v", err)
			}
		})
	}
	log.Printf("✅ Notification dispatcher started (poll %s, reconcile %s)", d.pollInterval, d.reconcileInterval)
}

// Stop signals the workers and waits for the current pass to finish.
func (d *Dispatcher) Stop() {
	d.once.Do(func() { close(d.stop) })
	d.wg.Wait()
	log.Println("🛑 Notification dispatcher stopped")
}

func (d *Dispatcher) run(interval time.Duration, tick func(ctx context.Context)) {
	defer d.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-d.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stop:
			return
		case <-ticker.C:
			tick(ctx)
		}
	}
}

// DispatchOnce sends one batch of queued notifications and returns how
// many were delivered.
func (d *Dispatcher) DispatchOnce(ctx context.Context) (int, error) {
	rows, err := d.queue.Pending(ctx, dispatchBatchSize)
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range rows {
		n := &rows[i]
		if err := d.sender.Send(ctx, *n); err != nil {
			log.Printf("⚠️ Notification %d to %s failed (attempt %d): %v", n.ID, n.To, n.Attempts+1, err)
			if err := d.queue.MarkAttemptFailed(ctx, n, err); err != nil {
				return sent, err
			}
			continue
		}
		if err := d.queue.MarkSent(ctx, n); err != nil {
			return sent, err
		}
		sent++
	}
	if sent > 0 {
		log.Printf("📧 Sent %d notification(s)", sent)
	}
	return sent, nil
}
