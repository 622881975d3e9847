package ranking_test

import (
	"context"
	"encoding/json"
	"testing"

	"beatmatcher/internal/beatsaver"
	"beatmatcher/internal/config"
	"beatmatcher/internal/logging"
	"beatmatcher/internal/queue"
	"beatmatcher/internal/ranking"
)

func scoringTask(t *testing.T, candidates []beatsaver.Candidate) *queue.Task {
	t.Helper()
	encoded, err := json.Marshal(candidates)
	if err != nil {
		t.Fatalf("marshal candidates: %v", err)
	}
	return &queue.Task{
		ID:             1,
		TrackTitle:     "One More Time",
		TrackArtist:    "Daft Punk",
		Status:         queue.StatusScoring,
		CandidatesJSON: string(encoded),
	}
}

func TestScorerAcceptsBestCandidate(t *testing.T) {
	cfg := config.Default()
	scorer := ranking.NewScorer(&cfg, logging.NewNop())

	task := scoringTask(t, []beatsaver.Candidate{
		candidate("weak", "Completely Different Song", "Daft Punk", 0),
		candidate("best", "One More Time", "Daft Punk", 1),
	})
	if err := scorer.Prepare(context.Background(), task); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := scorer.Execute(context.Background(), task); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if task.Decision != queue.DecisionAccepted {
		t.Fatalf("Decision = %q, want accepted", task.Decision)
	}
	if task.MapID != "best" {
		t.Fatalf("MapID = %q, want best", task.MapID)
	}
	if task.MatchScore < cfg.Matching.MinimumSimilarity {
		t.Fatalf("MatchScore = %v, below threshold", task.MatchScore)
	}
	if task.QualityScore <= 0 {
		t.Fatalf("QualityScore = %v, want positive", task.QualityScore)
	}
	if task.Status == queue.StatusRejected {
		t.Fatal("accepted task must not be rejected")
	}
}

func TestScorerRejectsNoCandidates(t *testing.T) {
	cfg := config.Default()
	scorer := ranking.NewScorer(&cfg, logging.NewNop())

	task := scoringTask(t, nil)
	if err := scorer.Execute(context.Background(), task); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if task.Status != queue.StatusRejected || task.Decision != queue.DecisionNoCandidates {
		t.Fatalf("status=%s decision=%s, want rejected/no_candidates", task.Status, task.Decision)
	}
}

func TestScorerRejectsBelowThreshold(t *testing.T) {
	cfg := config.Default()
	scorer := ranking.NewScorer(&cfg, logging.NewNop())

	task := scoringTask(t, []beatsaver.Candidate{
		candidate("far", "Totally Unrelated Track Name", "Another Band", 0),
	})
	if err := scorer.Execute(context.Background(), task); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if task.Status != queue.StatusRejected || task.Decision != queue.DecisionBelowThreshold {
		t.Fatalf("status=%s decision=%s, want rejected/below threshold", task.Status, task.Decision)
	}
	if task.MapID != "" {
		t.Fatalf("MapID = %q, want empty on rejection", task.MapID)
	}
}

func TestScorerRejectsWhenAllFiltered(t *testing.T) {
	cfg := config.Default()
	scorer := ranking.NewScorer(&cfg, logging.NewNop())

	sparse := candidate("sparse", "One More Time", "Daft Punk", 0)
	sparse.Map.Stats.Downloads = 1
	sparse.Map.Stats.Score = 0.1

	task := scoringTask(t, []beatsaver.Candidate{sparse})
	if err := scorer.Execute(context.Background(), task); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if task.Status != queue.StatusRejected || task.Decision != queue.DecisionBelowThreshold {
		t.Fatalf("status=%s decision=%s, want rejected below threshold", task.Status, task.Decision)
	}
}

func TestScorerMalformedCandidates(t *testing.T) {
	cfg := config.Default()
	scorer := ranking.NewScorer(&cfg, logging.NewNop())

	task := &queue.Task{ID: 1, TrackTitle: "x", Status: queue.StatusScoring, CandidatesJSON: "{not json"}
	if err := scorer.Execute(context.Background(), task); err == nil {
		t.Fatal("expected error for malformed candidate payload")
	}
}

func TestScorerHealthCheck(t *testing.T) {
	cfg := config.Default()
	scorer := ranking.NewScorer(&cfg, logging.NewNop())
	if health := scorer.HealthCheck(context.Background()); !health.Ready {
		t.Fatalf("expected healthy, got %+v", health)
	}

	bad := cfg
	bad.Matching.MinimumSimilarity = 1.5
	broken := ranking.NewScorer(&bad, logging.NewNop())
	if health := broken.HealthCheck(context.Background()); health.Ready {
		t.Fatal("expected unhealthy with out-of-range threshold")
	}
}
