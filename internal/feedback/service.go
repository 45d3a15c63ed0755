// Package feedback はフィードバック投稿と閲覧のビジネスロジックを提供する。
package feedback

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/kansou/internal/config"
	"github.com/hitoshi/kansou/internal/model"
	"github.com/hitoshi/kansou/internal/notify"
	"github.com/hitoshi/kansou/internal/repository"
	"github.com/hitoshi/kansou/internal/security"
)

// Notifier は通知チャンネルへの配信インターフェース。
// notify.SlackClientの部分集合として定義する。
type Notifier interface {
	// PostFeedbackMessage は受信者本人への主通知を送る。
	PostFeedbackMessage(ctx context.Context, channelID string, msg *notify.FeedbackMessage) error
	// PostManagerCopy はエスカレーション先へのコピーを送る。
	PostManagerCopy(ctx context.Context, channelID string, msg *notify.FeedbackMessage) error
}

// MetricsRecorder はフィードバック関連メトリクスの記録インターフェース。
type MetricsRecorder interface {
	RecordFeedbackSubmitted(sentiment string)
	RecordNotifyDelivery(kind string, success bool)
}

// ServiceConfig はフィードバックサービスの設定。
type ServiceConfig struct {
	// Delivery は配信ポリシー。persist / notify / both のいずれか。
	// 原典には永続化のみのパスと通知のみのパスが別々に存在したが、
	// 単一の設定可能なポリシーに統合している。
	Delivery config.FeedbackDelivery

	// BaseURL は通知メッセージ内のフィードバックリンク構築に使用する。
	BaseURL string
}

// SubmitInput はフィードバック投稿の入力。
type SubmitInput struct {
	RecipientUsername string
	Sentiment         string
	Comment           string
	IsAnonymous       *bool // 未指定はtrue扱い
	SubmitterName     *string
	SubmitterEmail    *string
	SubmitterVercelID *string
}

// Service はフィードバックのビジネスロジックを提供する。
type Service struct {
	feedbackRepo repository.FeedbackRepository
	accountRepo  repository.AccountRepository
	notifier     Notifier
	sanitizer    security.CommentSanitizerService
	metrics      MetricsRecorder
	config       ServiceConfig
}

// NewService はServiceを生成する。metricsはnilでもよい。
func NewService(
	feedbackRepo repository.FeedbackRepository,
	accountRepo repository.AccountRepository,
	notifier Notifier,
	sanitizer security.CommentSanitizerService,
	metrics MetricsRecorder,
	config ServiceConfig,
) *Service {
	return &Service{
		feedbackRepo: feedbackRepo,
		accountRepo:  accountRepo,
		notifier:     notifier,
		sanitizer:    sanitizer,
		metrics:      metrics,
		config:       config,
	}
}

// Submit はフィードバックを検証し、配信ポリシーに従って保存・通知する。
//
// 匿名投稿（isAnonymous未指定を含む）の場合、リクエストに送信者情報が
// 含まれていてもサーバー側で必ずnilに落とす。クライアントのフラグだけを
// 信用して識別情報を保存することはない。
//
// 主通知（受信者本人宛て）の失敗はリクエスト全体の失敗になる。
// エスカレーションコピーの失敗はログに記録するだけで投稿は成功する。
func (s *Service) Submit(ctx context.Context, in *SubmitInput) (*model.Feedback, error) {
	if in.RecipientUsername == "" || in.Sentiment == "" || strings.TrimSpace(in.Comment) == "" {
		return nil, model.NewMissingFieldsError()
	}

	sentiment := model.Sentiment(in.Sentiment)
	if !sentiment.Valid() {
		return nil, model.NewInvalidSentimentError(in.Sentiment)
	}

	recipient, err := s.accountRepo.FindByUsername(ctx, in.RecipientUsername)
	if err != nil {
		return nil, fmt.Errorf("failed to find recipient: %w", err)
	}
	if recipient == nil {
		return nil, model.NewRecipientNotFoundError(in.RecipientUsername)
	}

	isAnonymous := true
	if in.IsAnonymous != nil {
		isAnonymous = *in.IsAnonymous
	}

	fb := &model.Feedback{
		ID:          uuid.New().String(),
		RecipientID: recipient.ID,
		Sentiment:   sentiment,
		Comment:     s.sanitizer.Sanitize(in.Comment),
		IsAnonymous: isAnonymous,
		CreatedAt:   time.Now(),
	}
	if !isAnonymous {
		fb.SubmitterName = in.SubmitterName
		fb.SubmitterEmail = in.SubmitterEmail
		fb.SubmitterVercelID = in.SubmitterVercelID
	}

	if s.config.Delivery == config.DeliveryPersist || s.config.Delivery == config.DeliveryBoth {
		if err := s.feedbackRepo.Create(ctx, fb); err != nil {
			return nil, fmt.Errorf("failed to persist feedback: %w", err)
		}
	}

	if s.config.Delivery == config.DeliveryNotify || s.config.Delivery == config.DeliveryBoth {
		if err := s.deliver(ctx, recipient, fb); err != nil {
			return nil, err
		}
	}

	if s.metrics != nil {
		s.metrics.RecordFeedbackSubmitted(string(sentiment))
	}

	slog.Info("feedback submitted",
		slog.String("feedback_id", fb.ID),
		slog.String("recipient_id", recipient.ID),
		slog.String("sentiment", string(sentiment)),
		slog.Bool("is_anonymous", isAnonymous),
	)

	return fb, nil
}

// ListForRecipient は宛先アカウントのフィードバック一覧を新しい順で返す。
func (s *Service) ListForRecipient(ctx context.Context, accountID string) ([]*model.Feedback, error) {
	list, err := s.feedbackRepo.ListByRecipientID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	return list, nil
}

// deliver は受信者本人への主通知とマネージャーへのコピーを配信する。
func (s *Service) deliver(ctx context.Context, recipient *model.Account, fb *model.Feedback) error {
	msg := &notify.FeedbackMessage{
		RecipientUsername: recipient.Username,
		RecipientName:     recipient.Name,
		Sentiment:         fb.Sentiment,
		Comment:           fb.Comment,
		IsAnonymous:       fb.IsAnonymous,
		SubmitterName:     fb.SubmitterName,
		SubmitterEmail:    fb.SubmitterEmail,
		FeedbackURL:       fmt.Sprintf("%s/feedback/%s", s.config.BaseURL, recipient.Username),
	}

	// 通知チャンネル未設定の受信者への通知はスキップする（エラーではない）
	if recipient.SlackUserID == nil || *recipient.SlackUserID == "" {
		slog.Info("recipient has no notification channel, skipping delivery",
			slog.String("recipient_id", recipient.ID),
		)
	} else {
		if err := s.notifier.PostFeedbackMessage(ctx, *recipient.SlackUserID, msg); err != nil {
			slog.Error("primary feedback delivery failed",
				slog.String("recipient_id", recipient.ID),
				slog.String("error", err.Error()),
			)
			if s.metrics != nil {
				s.metrics.RecordNotifyDelivery("primary", false)
			}
			return model.NewDeliveryFailedError()
		}
		if s.metrics != nil {
			s.metrics.RecordNotifyDelivery("primary", true)
		}
	}

	// エスカレーションコピーはベストエフォート。失敗しても投稿は成立する。
	if recipient.ManagerSlackUserID != nil && *recipient.ManagerSlackUserID != "" {
		if err := s.notifier.PostManagerCopy(ctx, *recipient.ManagerSlackUserID, msg); err != nil {
			slog.Error("manager copy delivery failed",
				slog.String("recipient_id", recipient.ID),
				slog.String("error", err.Error()),
			)
			if s.metrics != nil {
				s.metrics.RecordNotifyDelivery("manager", false)
			}
		} else if s.metrics != nil {
			s.metrics.RecordNotifyDelivery("manager", true)
		}
	}

	return nil
}

