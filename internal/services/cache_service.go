package services

import (
	"context"
	"time"

	"github.com/dicdwatch/dicdwatch/internal/cache"
	"github.com/dicdwatch/dicdwatch/internal/logging"
	"github.com/dicdwatch/dicdwatch/internal/models"
	"github.com/dicdwatch/dicdwatch/internal/queue"
	"github.com/dicdwatch/dicdwatch/internal/subscriber"
	"github.com/dicdwatch/dicdwatch/internal/utils"
)

// CacheController is the cache the service drops entries from and reports on
type CacheController interface {
	subscriber.Invalidatable
	Stats() map[string]cache.Stats
}

// CacheService invalidates the local cache and tells the other instances to
// do the same
type CacheService struct {
	logger    *logging.Logger
	cache     CacheController
	publisher queue.Publisher
	subject   string
	origin    string
}

// NewCacheService creates a CacheService. publisher may be nil when no bus is
// configured; invalidations then stay local.
func NewCacheService(logger *logging.Logger, c CacheController, publisher queue.Publisher, subject, origin string) *CacheService {
	return &CacheService{
		logger:    logger,
		cache:     c,
		publisher: publisher,
		subject:   subject,
		origin:    origin,
	}
}

// Invalidate drops the requested entries locally, then publishes the event.
// The local invalidation stands even when publishing fails.
func (s *CacheService) Invalidate(ctx context.Context, req *models.InvalidateRequest) (*models.InvalidateResponse, error) {
	resp := &models.InvalidateResponse{EntityID: req.EntityID}

	if req.EntityID == "" {
		resp.Scope = "all"
		resp.Removed = s.CachedEntries()
		s.cache.InvalidateAll()
	} else {
		resp.Scope = "entity"
		resp.Removed = s.cache.InvalidateEntity(req.EntityID)
	}

	s.logger.Info("Cache invalidated",
		"scope", resp.Scope,
		"entity_id", req.EntityID,
		"removed", resp.Removed,
		"reason", req.Reason)

	if s.publisher == nil {
		return resp, nil
	}

	ctx, cancel := context.WithTimeout(ctx, utils.PublishTimeout)
	defer cancel()

	event := subscriber.InvalidationEvent{
		EntityID: req.EntityID,
		Reason:   req.Reason,
		Origin:   s.origin,
		At:       time.Now().UTC(),
	}
	if err := queue.PublishInvalidation(ctx, s.publisher, s.subject, event); err != nil {
		s.logger.Error("Failed to publish invalidation", "subject", s.subject, "error", err)
		return resp, NewServiceErrorWithDetails(CodePublishFailed, "local cache cleared but the event could not be published",
			map[string]interface{}{"error": err.Error()})
	}

	resp.Published = true
	return resp, nil
}

// Stats returns the per-resource cache statistics
func (s *CacheService) Stats() *models.CacheStatsResponse {
	return &models.CacheStatsResponse{Caches: s.cache.Stats()}
}

// NodeID is the origin stamped on published events
func (s *CacheService) NodeID() string {
	return s.origin
}

// BusEnabled reports whether invalidations reach other instances
func (s *CacheService) BusEnabled() bool {
	return s.publisher != nil
}

// CachedEntries counts live entries across every resource cache
func (s *CacheService) CachedEntries() int {
	n := 0
	for _, st := range s.cache.Stats() {
		n += st.Entries
	}
	return n
}
