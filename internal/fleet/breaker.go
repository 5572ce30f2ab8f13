package fleet

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

// BreakerSource decorates a DataSource with a shared circuit breaker so a
// failing backing store trips fast instead of stalling every nightly run.
type BreakerSource struct {
	inner   DataSource
	breaker *gobreaker.CircuitBreaker
}

// BreakerConfig tunes the data-source circuit breaker.
type BreakerConfig struct {
	MaxRequests         uint32        `yaml:"max_requests"`
	Interval            time.Duration `yaml:"interval"`
	Timeout             time.Duration `yaml:"timeout"`
	ConsecutiveFailures uint32        `yaml:"consecutive_failures"`
}

// DefaultBreakerConfig returns production defaults for the fleet source.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:         2,
		Interval:            60 * time.Second,
		Timeout:             30 * time.Second,
		ConsecutiveFailures: 5,
	}
}

// NewBreakerSource wraps src with a circuit breaker.
func NewBreakerSource(src DataSource, cfg BreakerConfig) *BreakerSource {
	settings := gobreaker.Settings{
		Name:        "fleet_data_source",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("fleet data source breaker state change")
		},
	}
	return &BreakerSource{inner: src, breaker: gobreaker.NewCircuitBreaker(settings)}
}

func execute[T any](b *BreakerSource, fn func() (T, error)) (T, error) {
	out, err := b.breaker.Execute(func() (interface{}, error) { return fn() })
	if err != nil {
		var zero T
		return zero, err
	}
	return out.(T), nil
}

func (b *BreakerSource) Trainsets(ctx context.Context) ([]Trainset, error) {
	return execute(b, func() ([]Trainset, error) { return b.inner.Trainsets(ctx) })
}

func (b *BreakerSource) FitnessCertificates(ctx context.Context, ids []int) (map[int]map[CertDomain]FitnessCertificate, error) {
	return execute(b, func() (map[int]map[CertDomain]FitnessCertificate, error) {
		return b.inner.FitnessCertificates(ctx, ids)
	})
}

func (b *BreakerSource) JobCards(ctx context.Context, ids []int) (map[int][]JobCard, error) {
	return execute(b, func() (map[int][]JobCard, error) { return b.inner.JobCards(ctx, ids) })
}

func (b *BreakerSource) BrandingCommitments(ctx context.Context, ids []int) (map[int]*BrandingCommitment, error) {
	return execute(b, func() (map[int]*BrandingCommitment, error) { return b.inner.BrandingCommitments(ctx, ids) })
}

func (b *BreakerSource) MileageRecords(ctx context.Context, ids []int) (map[int]MileageRecord, error) {
	return execute(b, func() (map[int]MileageRecord, error) { return b.inner.MileageRecords(ctx, ids) })
}

func (b *BreakerSource) CleaningSlots(ctx context.Context, ids []int) (map[int][]CleaningSlot, error) {
	return execute(b, func() (map[int][]CleaningSlot, error) { return b.inner.CleaningSlots(ctx, ids) })
}

func (b *BreakerSource) Bays(ctx context.Context) ([]StablingBay, error) {
	return execute(b, func() ([]StablingBay, error) { return b.inner.Bays(ctx) })
}
