package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrDuplicate indicates a live queue item already exists for the same
// creative and project.
var ErrDuplicate = errors.New("duplicate queue item")

// ErrNotFound indicates no queue item matched the requested identifier.
var ErrNotFound = errors.New("queue item not found")

// ErrInvalidTransition indicates a lifecycle update was rejected because the
// item is already in a state the transition must not leave.
var ErrInvalidTransition = errors.New("invalid status transition")

const itemColumns = "id, creative_id, project, video_name, account_id, channel_handle, source_file, composed_file, upload_url, status, error_message, retry_count, metadata_json, created_at, updated_at, started_at, completed_at"

// Enqueue inserts a new pending item and assigns its identifier and
// timestamps. A live item with the same creative and project yields
// ErrDuplicate.
func (s *Store) Enqueue(ctx context.Context, item *Item) error {
	if item == nil {
		return errors.New("nil item")
	}
	if strings.TrimSpace(item.CreativeID) == "" {
		return errors.New("creative identifier is required")
	}

	now := time.Now().UTC()
	if item.ID == "" {
		item.ID = now.Format("20060102150405") + "-" + uuid.NewString()[:8]
	}
	if item.Status == "" {
		item.Status = StatusPending
	}
	item.CreatedAt = now
	item.UpdatedAt = now

	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO queue_items (`+itemColumns+`)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID,
		item.CreativeID,
		item.Project,
		nullableString(item.VideoName),
		nullableString(item.AccountID),
		nullableString(item.ChannelHandle),
		nullableString(item.SourceFile),
		nullableString(item.ComposedFile),
		nullableString(item.UploadURL),
		string(item.Status),
		nullableString(item.ErrorMessage),
		item.RetryCount,
		nullableString(item.MetadataJSON),
		now.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
		nullableTime(item.StartedAt),
		nullableTime(item.CompletedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s (%s)", ErrDuplicate, item.CreativeID, item.Project)
		}
		return fmt.Errorf("enqueue item: %w", err)
	}
	return nil
}

// GetByID fetches a single item.
func (s *Store) GetByID(ctx context.Context, id string) (*Item, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+itemColumns+` FROM queue_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// List returns items filtered by status, newest first. With no statuses the
// whole queue is returned.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Item, error) {
	query := `SELECT ` + itemColumns + ` FROM queue_items`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, string(status))
		}
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}

// MarkProcessing transitions a pending item to processing and stamps
// started_at on the first attempt. Terminal items are never reopened.
func (s *Store) MarkProcessing(ctx context.Context, id string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE queue_items
        SET status = ?, started_at = COALESCE(started_at, ?), updated_at = ?
        WHERE id = ? AND status IN (?, ?)`,
		string(StatusProcessing), now, now, id,
		string(StatusPending), string(StatusProcessing),
	)
	if err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}
	return s.requireTransition(ctx, res, id)
}

// MarkCompleted transitions a live item to completed and records the upload
// URL. completed_at is set exactly here and nowhere else.
func (s *Store) MarkCompleted(ctx context.Context, id, uploadURL string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE queue_items
        SET status = ?, upload_url = ?, error_message = NULL, completed_at = ?, updated_at = ?
        WHERE id = ? AND status IN (?, ?)`,
		string(StatusCompleted), nullableString(uploadURL), now, now, id,
		string(StatusPending), string(StatusProcessing),
	)
	if err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	return s.requireTransition(ctx, res, id)
}

// MarkFailed transitions an item to failed, records the error message, and
// increments the retry counter. The counter never decreases, and a completed
// item stays completed.
func (s *Store) MarkFailed(ctx context.Context, id, message string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE queue_items
        SET status = ?, error_message = ?, retry_count = retry_count + 1, updated_at = ?
        WHERE id = ? AND status != ?`,
		string(StatusFailed), nullableString(message), now, id,
		string(StatusCompleted),
	)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return s.requireTransition(ctx, res, id)
}

// MarkReview parks an item for manual attention without counting a retry.
// Completed items stay completed.
func (s *Store) MarkReview(ctx context.Context, id, reason string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE queue_items
        SET status = ?, error_message = ?, updated_at = ?
        WHERE id = ? AND status != ?`,
		string(StatusReview), nullableString(reason), now, id,
		string(StatusCompleted),
	)
	if err != nil {
		return fmt.Errorf("mark review: %w", err)
	}
	return s.requireTransition(ctx, res, id)
}

// RetryFailed moves failed items back to pending for reprocessing. With no
// ids every failed item is retried. Retry counts are preserved.
func (s *Store) RetryFailed(ctx context.Context, ids ...string) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if len(ids) == 0 {
		res, err := s.execWithRetry(
			ctx,
			`UPDATE queue_items SET status = ?, error_message = NULL, updated_at = ? WHERE status = ?`,
			string(StatusPending), now, string(StatusFailed),
		)
		if err != nil {
			return 0, fmt.Errorf("retry failed items: %w", err)
		}
		return res.RowsAffected()
	}

	args := make([]any, 0, len(ids)+3)
	args = append(args, string(StatusPending), now)
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, string(StatusFailed))
	query := `UPDATE queue_items SET status = ?, error_message = NULL, updated_at = ?
        WHERE id IN (` + makePlaceholders(len(ids)) + `) AND status = ?`
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry selected items: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes items in the given statuses, or the whole queue when none
// are given.
func (s *Store) Clear(ctx context.Context, statuses ...Status) (int64, error) {
	query := `DELETE FROM queue_items`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, string(status))
		}
	}
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("clear queue: %w", err)
	}
	return res.RowsAffected()
}

// CountsByStatus aggregates queue totals per lifecycle state.
func (s *Store) CountsByStatus(ctx context.Context) (Counts, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT status, COUNT(1) FROM queue_items GROUP BY status`)
	if err != nil {
		return Counts{}, fmt.Errorf("count items: %w", err)
	}
	defer rows.Close()

	var counts Counts
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return Counts{}, fmt.Errorf("scan count: %w", err)
		}
		counts.Total += n
		switch Status(status) {
		case StatusPending:
			counts.Pending = n
		case StatusProcessing:
			counts.Processing = n
		case StatusCompleted:
			counts.Completed = n
		case StatusFailed:
			counts.Failed = n
		case StatusReview:
			counts.Review = n
		}
	}
	if err := rows.Err(); err != nil {
		return Counts{}, fmt.Errorf("iterate counts: %w", err)
	}
	return counts, nil
}

// HasLive reports whether a pending or processing item exists for the
// creative and project pair.
func (s *Store) HasLive(ctx context.Context, creativeID, project string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT COUNT(1) FROM queue_items WHERE creative_id = ? AND project = ? AND status IN (?, ?)`,
		creativeID, project, string(StatusPending), string(StatusProcessing),
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check live item: %w", err)
	}
	return n > 0, nil
}

// requireTransition distinguishes a missing item from one whose current
// status rejected the guarded update.
func (s *Store) requireTransition(ctx context.Context, res sql.Result, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}
	item, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s is %s", ErrInvalidTransition, id, item.Status)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		id            string
		creativeID    string
		project       string
		videoName     sql.NullString
		accountID     sql.NullString
		channelHandle sql.NullString
		sourceFile    sql.NullString
		composedFile  sql.NullString
		uploadURL     sql.NullString
		statusStr     string
		errorMessage  sql.NullString
		retryCount    int
		metadata      sql.NullString
		createdRaw    sql.NullString
		updatedRaw    sql.NullString
		startedRaw    sql.NullString
		completedRaw  sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&creativeID,
		&project,
		&videoName,
		&accountID,
		&channelHandle,
		&sourceFile,
		&composedFile,
		&uploadURL,
		&statusStr,
		&errorMessage,
		&retryCount,
		&metadata,
		&createdRaw,
		&updatedRaw,
		&startedRaw,
		&completedRaw,
	); err != nil {
		return nil, err
	}

	item := &Item{
		ID:            id,
		CreativeID:    creativeID,
		Project:       project,
		VideoName:     videoName.String,
		AccountID:     accountID.String,
		ChannelHandle: channelHandle.String,
		SourceFile:    sourceFile.String,
		ComposedFile:  composedFile.String,
		UploadURL:     uploadURL.String,
		Status:        Status(statusStr),
		ErrorMessage:  errorMessage.String,
		RetryCount:    retryCount,
		MetadataJSON:  metadata.String,
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		item.UpdatedAt = updated
	}
	if startedRaw.Valid {
		if started, err := parseTimeString(startedRaw.String); err == nil {
			item.StartedAt = &started
		}
	}
	if completedRaw.Valid {
		if completed, err := parseTimeString(completedRaw.String); err == nil {
			item.CompletedAt = &completed
		}
	}
	return item, nil
}
