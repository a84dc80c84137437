package cron

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type parkedScanner interface {
	ScanAll(ctx context.Context) error
}

// WalletResumeJobParams configure the parked order sweep.
type WalletResumeJobParams struct {
	Scanner parkedScanner
}

// NewWalletResumeJob builds the cron job that retries wallet charges for
// orders parked in awaiting_wallet. It is the safety net behind the
// wallet-credit consumer: a missed or delayed credit event still gets the
// queue drained on the next cycle.
func NewWalletResumeJob(params WalletResumeJobParams) (Job, error) {
	if params.Scanner == nil {
		return nil, fmt.Errorf("scanner required")
	}
	return &walletResumeJob{scanner: params.Scanner}, nil
}

type walletResumeJob struct {
	scanner parkedScanner
}

func (j *walletResumeJob) Name() string { return "wallet-resume" }

func (j *walletResumeJob) Run(ctx context.Context) error {
	return j.scanner.ScanAll(ctx)
}
