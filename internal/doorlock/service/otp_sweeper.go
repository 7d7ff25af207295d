package service

import (
	"context"
	"log"
	"time"
)

// OtpSweeper periodically fails pending OTP codes whose validity window
// has elapsed.  It runs as a background goroutine with an explicit
// Start/Stop lifecycle; tests call OtpService.ExpireSweep directly and
// never wait on the timer.
//
// An interval of 0 disables the sweeper entirely.  Expired codes are
// still rejected on the read path (Verify fails them closed), so the
// sweeper only keeps the dashboard's view of the ledger current.
type OtpSweeper struct {
	svc      *OtpService
	interval time.Duration
	logger   *log.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

type SweeperConfig struct {
	// Interval is how often the sweep runs.  0 disables the sweeper.
	Interval time.Duration
}

// NewOtpSweeper creates a sweeper but does not start it.
// Call Start to begin the background loop.
func NewOtpSweeper(svc *OtpService, cfg SweeperConfig, logger *log.Logger) *OtpSweeper {
	return &OtpSweeper{
		svc:      svc,
		interval: cfg.Interval,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start begins the background sweep loop.  It runs an immediate sweep
// on startup, then repeats on the configured interval.  The loop exits
// when ctx is cancelled or Stop is called.
func (p *OtpSweeper) Start(ctx context.Context) {
	if p.interval <= 0 {
		p.logger.Printf("otp sweeper disabled (interval=0)")
		close(p.done)
		return
	}

	ctx, p.cancel = context.WithCancel(ctx)

	go p.loop(ctx)

	p.logger.Printf("otp sweeper started (interval=%s)", p.interval)
}

// Stop signals the sweeper to exit and waits for it to finish.
func (p *OtpSweeper) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	<-p.done
}

func (p *OtpSweeper) loop(ctx context.Context) {
	defer close(p.done)

	// Run immediately on startup to clean up any backlog.
	p.sweep(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sweep(ctx)
		}
	}
}

func (p *OtpSweeper) sweep(ctx context.Context) {
	expired, err := p.svc.ExpireSweep(ctx)
	if err != nil {
		p.logger.Printf("otp sweep error: %v", err)
		return
	}
	if expired > 0 {
		p.logger.Printf("otp sweep: failed %d expired codes", expired)
	}
}
