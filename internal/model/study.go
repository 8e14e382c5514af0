// internal/model/study.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// StudySession はデッキ1周分の学習セッションを表します。
// (user_id, deck_id) につき未完了のセッションは高々1つ（開始時の find-or-continue で保証）。
type StudySession struct {
	SessionID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"session_id"`
	UserID           uuid.UUID  `gorm:"type:uuid;not null;index:idx_user_deck_session" json:"user_id"`
	DeckID           uuid.UUID  `gorm:"type:uuid;not null;index:idx_user_deck_session" json:"deck_id"`
	StartTime        time.Time  `gorm:"not null" json:"start_time"`
	EndTime          *time.Time `json:"end_time,omitempty"`
	CurrentCardIndex int        `gorm:"not null;default:0" json:"current_card_index"`
	IsCompleted      bool       `gorm:"not null;default:false" json:"is_completed"`
	TotalCards       int        `gorm:"not null;default:0" json:"total_cards"` // 開始時点のカード数スナップショット
	CorrectAnswers   int        `gorm:"not null;default:0" json:"correct_answers"`
	IncorrectAnswers int        `gorm:"not null;default:0" json:"incorrect_answers"`
	SessionProgress  float64    `gorm:"not null;default:0" json:"session_progress"` // 正解数/総カード数(%)
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`

	// 関連 (Preload用)
	Answers []UserCardAnswer `gorm:"foreignKey:StudySessionID;references:SessionID" json:"answers,omitempty"`
}

func (StudySession) TableName() string {
	return "study_sessions"
}

// DeckProgress は (user_id, deck_id) ごとの累積学習進捗のロールアップです。
// セッション開始時に find-or-create され、以後 StudyService だけが更新する。
// TotalCards は作成時のスナップショットで、その後のデッキ編集には追従しない（既知の仕様）。
type DeckProgress struct {
	ProgressID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"progress_id"`
	UserID               uuid.UUID  `gorm:"type:uuid;not null;index:idx_user_deck_progress,unique" json:"user_id"`
	DeckID               uuid.UUID  `gorm:"type:uuid;not null;index:idx_user_deck_progress,unique" json:"deck_id"`
	TotalCards           int        `gorm:"not null;default:0" json:"total_cards"`
	MasteredCards        int        `gorm:"not null;default:0" json:"mastered_cards"`
	LastStudiedAt        *time.Time `json:"last_studied_at,omitempty"`
	TotalStudyTime       int        `gorm:"not null;default:0" json:"total_study_time"` // 分単位の累計
	CompletionPercentage float64    `gorm:"not null;default:0" json:"completion_percentage"`
	TotalSessions        int        `gorm:"not null;default:0" json:"total_sessions"`
	AverageAccuracy      float64    `gorm:"not null;default:0" json:"average_accuracy"` // セッション正答率の累積平均
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

func (DeckProgress) TableName() string {
	return "deck_progress"
}

// セッション開始リクエストDTO
type StartSessionRequest struct {
	DeckID uuid.UUID `json:"deck_id" validate:"required"`
}

// StartSessionResponse はセッション開始/再開のレスポンスDTO
type StartSessionResponse struct {
	Session      *StudySession `json:"session"`
	DeckProgress *DeckProgress `json:"deck_progress,omitempty"`
	Resumed      bool          `json:"resumed"`
}

// セッション内回答リクエストDTO。SessionID はURLパスから設定される。
type RecordAnswerRequest struct {
	SessionID      uuid.UUID `json:"-"`
	CardID         uuid.UUID `json:"card_id" validate:"required"`
	IsCorrect      *bool     `json:"is_correct" validate:"required"`
	ResponseTimeMs *int      `json:"response_time_ms,omitempty" validate:"omitempty,min=0"`
}

// RecordAnswerResponse は回答記録後のセッションと進捗のレスポンスDTO
type RecordAnswerResponse struct {
	Session      *StudySession `json:"session"`
	DeckProgress *DeckProgress `json:"deck_progress,omitempty"`
}

// SessionStats はセッション完了時の統計
type SessionStats struct {
	TotalCards       int           `json:"total_cards"`
	CorrectAnswers   int           `json:"correct_answers"`
	IncorrectAnswers int           `json:"incorrect_answers"`
	Accuracy         float64       `json:"accuracy"`
	StudyTimeMinutes int           `json:"study_time_minutes"`
	DeckProgress     *DeckProgress `json:"deck_progress,omitempty"`
}
