package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/kansou/internal/model"
)

// PostgresFeedbackRepo はPostgreSQLを使用したフィードバックリポジトリ。
type PostgresFeedbackRepo struct {
	db *sql.DB
}

// NewPostgresFeedbackRepo はPostgresFeedbackRepoを生成する。
func NewPostgresFeedbackRepo(db *sql.DB) *PostgresFeedbackRepo {
	return &PostgresFeedbackRepo{db: db}
}

// Create はフィードバックを作成する。
func (r *PostgresFeedbackRepo) Create(ctx context.Context, fb *model.Feedback) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO feedback
		 (id, recipient_id, sentiment, comment, is_anonymous,
		  submitter_name, submitter_email, submitter_vercel_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		fb.ID, fb.RecipientID, string(fb.Sentiment), fb.Comment, fb.IsAnonymous,
		nullablePtr(fb.SubmitterName), nullablePtr(fb.SubmitterEmail),
		nullablePtr(fb.SubmitterVercelID), fb.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create feedback: %w", err)
	}
	return nil
}

// ListByRecipientID は宛先アカウントのフィードバック一覧を新しい順で返す。
func (r *PostgresFeedbackRepo) ListByRecipientID(ctx context.Context, recipientID string) ([]*model.Feedback, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, recipient_id, sentiment, comment, is_anonymous,
		        submitter_name, submitter_email, submitter_vercel_id, created_at
		 FROM feedback
		 WHERE recipient_id = $1
		 ORDER BY created_at DESC`,
		recipientID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	defer rows.Close()

	var list []*model.Feedback
	for rows.Next() {
		fb := &model.Feedback{}
		var sentiment string
		var submitterName, submitterEmail, submitterVercelID sql.NullString
		if err := rows.Scan(
			&fb.ID, &fb.RecipientID, &sentiment, &fb.Comment, &fb.IsAnonymous,
			&submitterName, &submitterEmail, &submitterVercelID, &fb.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan feedback row: %w", err)
		}
		fb.Sentiment = model.Sentiment(sentiment)
		fb.SubmitterName = nullStringPtr(submitterName)
		fb.SubmitterEmail = nullStringPtr(submitterEmail)
		fb.SubmitterVercelID = nullStringPtr(submitterVercelID)
		list = append(list, fb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate feedback rows: %w", err)
	}

	return list, nil
}

// compile-time interface check
var _ FeedbackRepository = (*PostgresFeedbackRepo)(nil)
