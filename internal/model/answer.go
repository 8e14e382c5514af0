// internal/model/answer.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// UserCardAnswer はユーザーのカードへの回答記録です。
// StudySessionID が NULL の行は単発回答フロー（(card_id, user_id) ごとに1行、上書き）、
// 設定されている行は学習セッションフロー（回答イベントごとに1行追記）。
// 一意性はアプリケーション側で管理するため、DBのユニーク制約は付けない。
type UserCardAnswer struct {
	AnswerID       uuid.UUID  `gorm:"type:uuid;primaryKey" json:"answer_id"`
	CardID         uuid.UUID  `gorm:"type:uuid;not null;index" json:"card_id"`
	UserID         uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	StudySessionID *uuid.UUID `gorm:"type:uuid;index" json:"study_session_id,omitempty"`
	UserAnswer     string     `json:"user_answer"`
	IsCorrect      bool       `gorm:"not null;default:false" json:"is_correct"`
	ResponseTimeMs *int       `json:"response_time_ms,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	// 関連 (Preload用)
	Card *Card `gorm:"foreignKey:CardID;references:CardID" json:"card,omitempty"`
}

func (UserCardAnswer) TableName() string {
	return "user_card_answers"
}

// 単発回答送信リクエストDTO
type SubmitAnswerRequest struct {
	UserAnswer string `json:"user_answer" validate:"required"`
}

// SubmitAnswerResponse は回答判定結果（正解テキスト付き）のレスポンスDTO
type SubmitAnswerResponse struct {
	Answer        *UserCardAnswer `json:"answer"`
	CorrectAnswer string          `json:"correct_answer"`
}

// CardWithAnswer はデッキ内カードと回答状況のペア
type CardWithAnswer struct {
	Card   *Card           `json:"card"`
	Answer *UserCardAnswer `json:"answer,omitempty"`
}

// DeckAnswerStats はデッキ単位の回答統計
type DeckAnswerStats struct {
	TotalCards     int     `json:"total_cards"`
	AnsweredCards  int     `json:"answered_cards"`
	CorrectAnswers int     `json:"correct_answers"`
	Accuracy       float64 `json:"accuracy"` // 回答済みカードに対する正答率(%)
}

// DeckAnswersResponse はデッキ内の全回答＋統計のレスポンスDTO
type DeckAnswersResponse struct {
	Cards      []*CardWithAnswer `json:"cards"`
	Statistics DeckAnswerStats   `json:"statistics"`
}

// UserAnswerStats はユーザー全体の回答統計
type UserAnswerStats struct {
	TotalAnswers   int64   `json:"total_answers"`
	CorrectAnswers int64   `json:"correct_answers"`
	Accuracy       float64 `json:"accuracy"`
}
