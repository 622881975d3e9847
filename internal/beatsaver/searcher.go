package beatsaver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"beatmatcher/internal/config"
	"beatmatcher/internal/logging"
	"beatmatcher/internal/queue"
	"beatmatcher/internal/services"
	"beatmatcher/internal/stage"
)

// Searcher is the pipeline stage that gathers catalog candidates for a track.
type Searcher struct {
	cfg     *config.Config
	catalog Catalog
	logger  *slog.Logger
	policy  services.RetryPolicy
}

// NewSearcher constructs the search stage handler.
func NewSearcher(cfg *config.Config, catalog Catalog, logger *slog.Logger) *Searcher {
	return &Searcher{
		cfg:     cfg,
		catalog: catalog,
		logger:  logging.NewComponentLogger(logger, "searcher"),
		policy:  retryPolicyFromConfig(cfg),
	}
}

func retryPolicyFromConfig(cfg *config.Config) services.RetryPolicy {
	policy := services.DefaultRetryPolicy()
	if cfg == nil {
		return policy
	}
	policy.MaxAttempts = cfg.Workflow.RetryAttempts
	policy.BaseDelay = time.Duration(cfg.Workflow.RetryBaseDelayMS) * time.Millisecond
	policy.MaxDelay = time.Duration(cfg.Workflow.RetryMaxDelayMS) * time.Millisecond
	return policy
}

func (s *Searcher) Prepare(ctx context.Context, task *queue.Task) error {
	logger := logging.WithContext(ctx, s.logger)
	task.InitProgress("Searching", "Querying beatmap catalog")
	logger.Info("starting candidate search", logging.String(logging.FieldTrack, task.Label()))
	return nil
}

func (s *Searcher) Execute(ctx context.Context, task *queue.Task) error {
	logger := logging.WithContext(ctx, s.logger)

	queries := BuildQueries(task.TrackArtist, task.TrackTitle)
	if len(queries) == 0 {
		task.CandidatesJSON = "[]"
		task.SetProgress("Searching", "No usable metadata for search", 100)
		logger.Info("no queries possible", logging.String(logging.FieldTrack, task.Label()))
		return nil
	}

	budget := s.cfg.BeatSaver.CandidatesPerTrack
	maxPages := s.cfg.BeatSaver.MaxSearchPages

	seen := make(map[string]struct{})
	var candidates []Candidate
	failedQueries := 0
	var lastErr error

collect:
	for _, query := range queries {
		for page := 0; page < maxPages; page++ {
			var docs []MapDetail
			err := s.policy.Do(ctx, func(ctx context.Context) error {
				var searchErr error
				docs, searchErr = s.catalog.SearchText(ctx, query, page)
				return searchErr
			})
			if err != nil {
				// Rate limits pause the whole run; a bad query only
				// costs that rung of the ladder.
				if errors.Is(err, services.ErrRateLimited) || ctx.Err() != nil {
					return fmt.Errorf("search %q: %w", query, err)
				}
				failedQueries++
				lastErr = err
				logger.Warn("query failed, trying next",
					logging.String(logging.FieldTrack, task.Label()),
					logging.String("query", query),
					logging.Error(err))
				continue collect
			}

			for _, doc := range docs {
				if _, ok := seen[doc.ID]; ok {
					continue
				}
				seen[doc.ID] = struct{}{}
				candidates = append(candidates, Candidate{Map: doc, Query: query, Order: len(candidates)})
				if len(candidates) >= budget {
					break collect
				}
			}
			if len(docs) == 0 {
				break
			}
		}
	}

	if len(candidates) == 0 && lastErr != nil && failedQueries == len(queries) {
		return fmt.Errorf("all %d queries failed: %w", len(queries), lastErr)
	}

	encoded, err := json.Marshal(candidates)
	if err != nil {
		return services.Wrap(services.ErrPermanent, "searching", "encode candidates", "failed to persist candidate set", err)
	}
	task.CandidatesJSON = string(encoded)
	task.SetProgress("Searching", fmt.Sprintf("Collected %d candidates", len(candidates)), 100)
	logger.Info("candidate search complete",
		logging.String(logging.FieldTrack, task.Label()),
		logging.Int("queries", len(queries)),
		logging.Int("candidates", len(candidates)))
	return nil
}

// HealthCheck verifies the catalog client is configured.
func (s *Searcher) HealthCheck(ctx context.Context) stage.Health {
	const name = "searcher"
	if s.catalog == nil {
		return stage.Unhealthy(name, "catalog client unavailable")
	}
	if s.cfg == nil || strings.TrimSpace(s.cfg.BeatSaver.BaseURL) == "" {
		return stage.Unhealthy(name, "catalog base url not configured")
	}
	return stage.Healthy(name)
}

var _ stage.Handler = (*Searcher)(nil)

// DecodeCandidates restores the candidate set persisted by the search stage.
func DecodeCandidates(raw string) ([]Candidate, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var candidates []Candidate
	if err := json.Unmarshal([]byte(raw), &candidates); err != nil {
		return nil, fmt.Errorf("decode candidates: %w", err)
	}
	return candidates, nil
}
