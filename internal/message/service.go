package message

//go:generate mockgen -destination=./service_mock_test.go -package=message -source=service.go Service

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"webhook-receiver/internal/domain" // Shared domain models
)

// Service defines the business logic for ingesting and querying messages.
type Service interface {
	// Ingest validates a decoded webhook payload and stores it exactly once.
	Ingest(ctx context.Context, in InboundMessage) (domain.InsertResult, error)
	// ListMessages returns one normalised page of messages matching the filter.
	ListMessages(ctx context.Context, filter domain.ListFilter) (*domain.MessagePage, error)
	// GetStats returns aggregate figures over all stored messages.
	GetStats(ctx context.Context) (*domain.Stats, error)
}

// service is the concrete implementation of the Service interface.
type service struct {
	repo Repository // It depends on the repository

	// stats collapses concurrent GetStats calls into one aggregate query.
	stats singleflight.Group
}

// NewService is the constructor for the service injecting the repository.
func NewService(repo Repository) Service {
	return &service{
		repo: repo,
	}
}

// Ingest runs schema validation before anything touches storage.
// A duplicate is a successful outcome, only storage failures are errors.
func (s *service) Ingest(ctx context.Context, in InboundMessage) (domain.InsertResult, error) {
	if err := in.Validate(); err != nil {
		return "", err
	}

	result, err := s.repo.Insert(ctx, in.toMessage())
	if err != nil {
		return "", internalError(err, "could not store message")
	}
	return result, nil
}

// ListMessages clamps the pagination window and delegates to the repository.
func (s *service) ListMessages(ctx context.Context, filter domain.ListFilter) (*domain.MessagePage, error) {
	page, err := s.repo.List(ctx, filter.Normalize())
	if err != nil {
		return nil, internalError(err, "could not list messages")
	}
	return page, nil
}

// statsQueryTimeout bounds the shared stats query, which no single caller owns.
const statsQueryTimeout = 30 * time.Second

// GetStats returns the repository figures. Callers that overlap share one query.
// The shared query is detached from each caller's cancellation, so one client
// going away does not fail the others. A caller whose own context ends stops
// waiting and gets its context error.
func (s *service) GetStats(ctx context.Context) (*domain.Stats, error) {
	ch := s.stats.DoChan("stats", func() (interface{}, error) {
		queryCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), statsQueryTimeout)
		defer cancel()
		return s.repo.Stats(queryCtx)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, internalError(ctx.Err(), "could not compute stats")
	case res = <-ch:
	}

	if res.Err != nil {
		return nil, internalError(res.Err, "could not compute stats")
	}
	shared, _ := res.Val.(*domain.Stats)
	if shared == nil {
		return nil, internalError(nil, "could not compute stats")
	}
	// Callers get independent copies of the shared result.
	stats := *shared
	return &stats, nil
}
