package db

import (
	"context"
	"database/sql"
)

// writeQueueDepth bounds how many mutations may be waiting on the
// writer goroutine before callers start blocking on enqueue.
const writeQueueDepth = 256

type TxFunc func(ctx context.Context, tx *sql.Tx) error

type writeJob struct {
	ctx    context.Context
	fn     TxFunc
	result chan error
}

// Writer funnels every mutation through one goroutine, giving SQLite a
// single writer regardless of how many requests are in flight.  Reads
// go straight to the *sql.DB.
type Writer struct {
	conn *sql.DB
	jobs chan writeJob
	done chan struct{}
}

func NewWriter(conn *sql.DB) *Writer {
	w := &Writer{
		conn: conn,
		jobs: make(chan writeJob, writeQueueDepth),
		done: make(chan struct{}),
	}
	go w.loop()
	return w
}

// Close drains the queue and stops the writer goroutine.
func (w *Writer) Close() {
	close(w.jobs)
	<-w.done
}

// Write runs fn inside a transaction on the writer goroutine and
// returns its result.  If the caller's context expires while the job is
// queued or executing, Write returns early with ctx.Err(); the
// transaction itself still completes and its result is discarded.
func (w *Writer) Write(ctx context.Context, fn TxFunc) error {
	j := writeJob{ctx: ctx, fn: fn, result: make(chan error, 1)}

	select {
	case w.jobs <- j:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-j.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Writer) loop() {
	defer close(w.done)

	for j := range w.jobs {
		tx, err := w.conn.BeginTx(j.ctx, nil)
		if err != nil {
			j.result <- err
			continue
		}

		if err := j.fn(j.ctx, tx); err != nil {
			_ = tx.Rollback()
			j.result <- err
			continue
		}

		j.result <- tx.Commit()
	}
}
