package jobs

import (
	"context"
	"log"
	"time"

	"github.com/aliattia10/paseo-backend/internal/services"
)

type escrowReleaser interface {
	ReleaseEligible(ctx context.Context) (*services.ReleaseBatchResult, error)
}

// AutoReleaseJob pays sitters for completed bookings once the review grace
// period has elapsed. It is scheduled hourly from main.
type AutoReleaseJob struct {
	payments escrowReleaser
}

func NewAutoReleaseJob(payments escrowReleaser) *AutoReleaseJob {
	return &AutoReleaseJob{payments: payments}
}

func (j *AutoReleaseJob) Run() {
	log.Println("Running job: AutoReleasePayments...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	result, err := j.payments.ReleaseEligible(ctx)
	if err != nil {
		log.Printf("auto release: %v", err)
		return
	}
	if result.Total == 0 {
		return
	}
	log.Printf("auto release: %d eligible, %d released, %d failed", result.Total, result.Successful, result.Failed)
}
