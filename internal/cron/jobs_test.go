package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/zenstore/zenstore-backend/pkg/logger"
)

type fakeScanAll struct {
	calls int
	err   error
}

func (f *fakeScanAll) ScanAll(context.Context) error {
	f.calls++
	return f.err
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeRetentionRepo struct {
	cutoff      time.Time
	minAttempts int
	deleted     int64
	err         error
}

func (f *fakeRetentionRepo) DeletePublishedBefore(_ context.Context, _ *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error) {
	f.cutoff = cutoff
	f.minAttempts = minAttemptCount
	return f.deleted, f.err
}

func TestWalletResumeJobDelegatesToScanner(t *testing.T) {
	scanner := &fakeScanAll{}
	job, err := NewWalletResumeJob(WalletResumeJobParams{Scanner: scanner})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if job.Name() != "wallet-resume" {
		t.Fatalf("unexpected job name %q", job.Name())
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if scanner.calls != 1 {
		t.Fatalf("expected one scan got %d", scanner.calls)
	}

	scanner.err = errors.New("operator a: ledger down")
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected scan error to surface")
	}
}

func TestOutboxRetentionJobComputesCutoff(t *testing.T) {
	repo := &fakeRetentionRepo{deleted: 4}
	logg := logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     logg,
		DB:         fakeTxRunner{},
		Repository: repo,
		Retention:  7,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if job.Name() != "outbox-retention" {
		t.Fatalf("unexpected job name %q", job.Name())
	}

	before := time.Now().UTC().Add(-7 * 24 * time.Hour)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	after := time.Now().UTC().Add(-7 * 24 * time.Hour)

	if repo.cutoff.Before(before) || repo.cutoff.After(after) {
		t.Fatalf("cutoff %v outside expected window", repo.cutoff)
	}
	if repo.minAttempts != outboxMinAttempts {
		t.Fatalf("expected default min attempts %d got %d", outboxMinAttempts, repo.minAttempts)
	}
}

func TestOutboxRetentionJobPropagatesDeleteError(t *testing.T) {
	repo := &fakeRetentionRepo{err: errors.New("disk full")}
	logg := logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     logg,
		DB:         fakeTxRunner{},
		Repository: repo,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
