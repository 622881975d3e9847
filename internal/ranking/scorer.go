package ranking

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"beatmatcher/internal/beatsaver"
	"beatmatcher/internal/config"
	"beatmatcher/internal/logging"
	"beatmatcher/internal/queue"
	"beatmatcher/internal/services"
	"beatmatcher/internal/stage"
)

// Scorer is the pipeline stage that turns a task's candidate set into an
// accept or reject decision.
type Scorer struct {
	cfg    *config.Config
	logger *slog.Logger
	now    func() time.Time
}

// NewScorer constructs the scoring stage handler.
func NewScorer(cfg *config.Config, logger *slog.Logger) *Scorer {
	return &Scorer{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "scorer"),
		now:    time.Now,
	}
}

func (s *Scorer) Prepare(ctx context.Context, task *queue.Task) error {
	logger := logging.WithContext(ctx, s.logger)
	task.InitProgress("Scoring", "Ranking catalog candidates")
	logger.Info("starting scoring", logging.String(logging.FieldTrack, task.Label()))
	return nil
}

func (s *Scorer) Execute(ctx context.Context, task *queue.Task) error {
	logger := logging.WithContext(ctx, s.logger)

	candidates, err := beatsaver.DecodeCandidates(task.CandidatesJSON)
	if err != nil {
		return services.Wrap(services.ErrParse, "scoring", "decode candidates", "stored candidate set is unreadable", err)
	}
	if len(candidates) == 0 {
		task.SetRejected(queue.DecisionNoCandidates, "no catalog candidates found")
		logger.Info("no candidates", logging.String(logging.FieldTrack, task.Label()))
		return nil
	}

	ranked := Rank(s.cfg.Matching, s.cfg.Scoring, task.TrackArtist, task.TrackTitle, candidates, s.now())
	if len(ranked) == 0 {
		task.SetRejected(queue.DecisionBelowThreshold,
			fmt.Sprintf("all %d candidates fell below quality filters", len(candidates)))
		logger.Info("all candidates filtered", logging.String(logging.FieldTrack, task.Label()))
		return nil
	}

	best := ranked[0]
	if best.MatchScore < s.cfg.Matching.MinimumSimilarity {
		task.SetRejected(queue.DecisionBelowThreshold,
			fmt.Sprintf("best match %q scored %.2f, below threshold %.2f",
				best.Candidate.Map.SongName(), best.MatchScore, s.cfg.Matching.MinimumSimilarity))
		logger.Info("rejected below threshold",
			logging.String(logging.FieldTrack, task.Label()),
			logging.String(logging.FieldMapID, best.Candidate.Map.ID),
			logging.Float64("match_score", best.MatchScore))
		return nil
	}

	task.Decision = queue.DecisionAccepted
	task.MapID = best.Candidate.Map.ID
	task.MapName = best.Candidate.Map.SongName()
	task.MatchScore = best.MatchScore
	task.QualityScore = best.Quality
	task.SetProgress("Scoring", fmt.Sprintf("Accepted %s (match %.2f)", task.MapName, best.MatchScore), 100)
	logger.Info("candidate accepted",
		logging.String(logging.FieldTrack, task.Label()),
		logging.String(logging.FieldMapID, task.MapID),
		logging.Float64("match_score", best.MatchScore),
		logging.Float64("quality_score", best.Quality))
	return nil
}

// HealthCheck verifies scoring weights are usable.
func (s *Scorer) HealthCheck(ctx context.Context) stage.Health {
	const name = "scorer"
	if s.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if s.cfg.Matching.MinimumSimilarity < 0 || s.cfg.Matching.MinimumSimilarity > 1 {
		return stage.Unhealthy(name, "similarity threshold out of range")
	}
	return stage.Healthy(name)
}

var _ stage.Handler = (*Scorer)(nil)
