package queue

import (
	"database/sql"
	"errors"
	"time"
)

const taskColumns = "id, track_path, track_title, track_artist, track_album, track_key, run_id, status, candidates_json, decision, map_id, map_name, match_score, quality_score, archive_path, final_path, bucket, notes_per_second, peak_nps, failure_kind, error_message, created_at, updated_at, progress_stage, progress_percent, progress_message"

func scanTask(scanner interface{ Scan(dest ...any) error }) (*Task, error) {
	var (
		id              int64
		trackPath       string
		trackTitle      sql.NullString
		trackArtist     sql.NullString
		trackAlbum      sql.NullString
		trackKey        string
		runID           sql.NullString
		statusStr       string
		candidates      sql.NullString
		decision        sql.NullString
		mapID           sql.NullString
		mapName         sql.NullString
		matchScore      sql.NullFloat64
		qualityScore    sql.NullFloat64
		archivePath     sql.NullString
		finalPath       sql.NullString
		bucket          sql.NullString
		notesPerSecond  sql.NullFloat64
		peakNPS         sql.NullFloat64
		failureKind     sql.NullString
		errorMessage    sql.NullString
		createdRaw      sql.NullString
		updatedRaw      sql.NullString
		progressStage   sql.NullString
		progressPercent sql.NullFloat64
		progressMessage sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&trackPath,
		&trackTitle,
		&trackArtist,
		&trackAlbum,
		&trackKey,
		&runID,
		&statusStr,
		&candidates,
		&decision,
		&mapID,
		&mapName,
		&matchScore,
		&qualityScore,
		&archivePath,
		&finalPath,
		&bucket,
		&notesPerSecond,
		&peakNPS,
		&failureKind,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
		&progressStage,
		&progressPercent,
		&progressMessage,
	); err != nil {
		return nil, err
	}

	task := &Task{
		ID:              id,
		TrackPath:       trackPath,
		TrackTitle:      trackTitle.String,
		TrackArtist:     trackArtist.String,
		TrackAlbum:      trackAlbum.String,
		TrackKey:        trackKey,
		RunID:           runID.String,
		Status:          Status(statusStr),
		CandidatesJSON:  candidates.String,
		Decision:        decision.String,
		MapID:           mapID.String,
		MapName:         mapName.String,
		MatchScore:      matchScore.Float64,
		QualityScore:    qualityScore.Float64,
		ArchivePath:     archivePath.String,
		FinalPath:       finalPath.String,
		Bucket:          bucket.String,
		NotesPerSecond:  notesPerSecond.Float64,
		PeakNPS:         peakNPS.Float64,
		FailureKind:     failureKind.String,
		ErrorMessage:    errorMessage.String,
		ProgressStage:   progressStage.String,
		ProgressPercent: progressPercent.Float64,
		ProgressMessage: progressMessage.String,
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		task.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		task.UpdatedAt = updated
	}
	return task, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
