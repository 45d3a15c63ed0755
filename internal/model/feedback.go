package model

import "time"

// Sentiment はフィードバックの感情区分を表す。
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// Valid はSentimentが定義済みの値かどうかを判定する。
func (s Sentiment) Valid() bool {
	switch s {
	case SentimentPositive, SentimentNeutral, SentimentNegative:
		return true
	default:
		return false
	}
}

// Feedback は社員に対する1件のフィードバックを表す。
// 匿名投稿の場合、submitter系フィールドはサーバー側で必ずnilになる。
type Feedback struct {
	ID                string
	RecipientID       string
	Sentiment         Sentiment
	Comment           string
	IsAnonymous       bool
	SubmitterName     *string
	SubmitterEmail    *string
	SubmitterVercelID *string
	CreatedAt         time.Time
}
