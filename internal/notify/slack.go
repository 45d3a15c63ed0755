// Package notify はSlack Web APIによる通知配信を提供する。
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hitoshi/kansou/internal/model"
)

const defaultSlackAPIBaseURL = "https://slack.com/api"

// sentimentEmoji は感情区分ごとのSlack絵文字。
var sentimentEmoji = map[model.Sentiment]string{
	model.SentimentPositive: ":thumbsup:",
	model.SentimentNeutral:  ":neutral_face:",
	model.SentimentNegative: ":thumbsdown:",
}

// FeedbackMessage は通知メッセージの組み立てに必要な情報。
type FeedbackMessage struct {
	RecipientUsername string
	RecipientName     string
	Sentiment         model.Sentiment
	Comment           string
	IsAnonymous       bool
	SubmitterName     *string
	SubmitterEmail    *string
	FeedbackURL       string // 受信者のフィードバックリンク
}

// SlackConfig はSlackクライアントの設定。
type SlackConfig struct {
	BotToken string

	// テスト用にオーバーライド可能なAPIベースURL
	APIBaseURL string

	// API呼び出しのタイムアウト。ゼロ値の場合は10秒。
	Timeout time.Duration
}

// SlackClient はSlack Web APIのクライアント。
// chat.postMessageとusers.lookupByEmailのみを使用する。
type SlackClient struct {
	config SlackConfig
	client *http.Client
}

// NewSlackClient はSlackClientを生成する。
func NewSlackClient(config SlackConfig) *SlackClient {
	if config.APIBaseURL == "" {
		config.APIBaseURL = defaultSlackAPIBaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	return &SlackClient{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
}

// PostFeedbackMessage は受信者本人のSlackチャンネルに通知を送る。
// 主通知であり、失敗はそのまま呼び出し元のエラーになる。
func (c *SlackClient) PostFeedbackMessage(ctx context.Context, channelID string, msg *FeedbackMessage) error {
	blocks := []map[string]any{
		{
			"type": "header",
			"text": map[string]any{
				"type":  "plain_text",
				"text":  fmt.Sprintf("%s New %s feedback", sentimentEmoji[msg.Sentiment], msg.Sentiment),
				"emoji": true,
			},
		},
		mrkdwnSection(fmt.Sprintf("*From:* %s", fromText(msg))),
		mrkdwnSection(fmt.Sprintf("*Feedback:*\n%s", msg.Comment)),
		{"type": "divider"},
		contextBlock(fmt.Sprintf("Your feedback link: <%s|%s>", msg.FeedbackURL, msg.FeedbackURL)),
	}

	return c.postMessage(ctx, channelID, fmt.Sprintf("New %s feedback received!", msg.Sentiment), blocks)
}

// PostManagerCopy はエスカレーション先（マネージャー）にコピーを送る。
func (c *SlackClient) PostManagerCopy(ctx context.Context, channelID string, msg *FeedbackMessage) error {
	blocks := []map[string]any{
		{
			"type": "header",
			"text": map[string]any{
				"type":  "plain_text",
				"text":  fmt.Sprintf("%s Feedback for %s", sentimentEmoji[msg.Sentiment], msg.RecipientName),
				"emoji": true,
			},
		},
		mrkdwnSection(fmt.Sprintf("*From:* %s\n*To:* %s", fromText(msg), msg.RecipientName)),
		mrkdwnSection(fmt.Sprintf("*Feedback:*\n%s", msg.Comment)),
		{"type": "divider"},
		contextBlock(fmt.Sprintf("Manager copy • Feedback link: <%s|%s>", msg.FeedbackURL, msg.FeedbackURL)),
	}

	return c.postMessage(ctx, channelID, fmt.Sprintf("New %s feedback for %s", msg.Sentiment, msg.RecipientName), blocks)
}

// LookupUserByEmail はEmailからSlackユーザーIDを検索する。
// 見つからない場合は空文字列を返す（エラーではない）。
func (c *SlackClient) LookupUserByEmail(ctx context.Context, email string) (string, error) {
	endpoint := c.config.APIBaseURL + "/users.lookupByEmail?email=" + url.QueryEscape(email)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create lookup request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.BotToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("slack lookup request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read lookup response: %w", err)
	}

	var lookupResp struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	if err := json.Unmarshal(body, &lookupResp); err != nil {
		return "", fmt.Errorf("failed to parse lookup response: %w", err)
	}

	// users_not_foundはAPI的には正常応答。空文字列で「見つからない」を表す。
	if !lookupResp.OK || lookupResp.User.ID == "" {
		return "", nil
	}

	return lookupResp.User.ID, nil
}

// postMessage はchat.postMessageを呼び出す。
// HTTPエラーとSlack APIレベルのok=falseの両方をエラーとして扱う。
func (c *SlackClient) postMessage(ctx context.Context, channelID, fallbackText string, blocks []map[string]any) error {
	payload, err := json.Marshal(map[string]any{
		"channel": channelID,
		"text":    fallbackText,
		"blocks":  blocks,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.APIBaseURL+"/chat.postMessage", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+c.config.BotToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("slack request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read slack response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack returned status %d: %s", resp.StatusCode, string(body))
	}

	var apiResp struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return fmt.Errorf("failed to parse slack response: %w", err)
	}
	if !apiResp.OK {
		return fmt.Errorf("slack API error: %s", apiResp.Error)
	}

	return nil
}

// fromText は送信者表示を組み立てる。
// 匿名→"_Anonymous_"、名前あり→"*名前* (email)"、識別なし→"_Someone_"。
func fromText(msg *FeedbackMessage) string {
	if msg.IsAnonymous {
		return "_Anonymous_"
	}
	if msg.SubmitterName != nil && *msg.SubmitterName != "" {
		if msg.SubmitterEmail != nil && *msg.SubmitterEmail != "" {
			return fmt.Sprintf("*%s* (%s)", *msg.SubmitterName, *msg.SubmitterEmail)
		}
		return fmt.Sprintf("*%s*", *msg.SubmitterName)
	}
	return "_Someone_"
}

// mrkdwnSection はmrkdwnテキストのsectionブロックを生成する。
func mrkdwnSection(text string) map[string]any {
	return map[string]any{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": text,
		},
	}
}

// contextBlock はmrkdwnテキストのcontextブロックを生成する。
func contextBlock(text string) map[string]any {
	return map[string]any{
		"type": "context",
		"elements": []map[string]any{
			{"type": "mrkdwn", "text": text},
		},
	}
}
