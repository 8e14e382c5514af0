// internal/model/rating.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// DeckRating は公開デッキへの高評価/低評価を表します。
// (deck_id, user_id) の組で一意（ユーザーごとに1評価、上書き可）。
type DeckRating struct {
	RatingID  uuid.UUID `gorm:"type:uuid;primaryKey" json:"rating_id"`
	DeckID    uuid.UUID `gorm:"type:uuid;not null;index:idx_deck_user_rating,unique" json:"deck_id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index:idx_deck_user_rating,unique" json:"user_id"`
	IsLike    bool      `gorm:"not null" json:"is_like"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 関連 (Preload用)
	User *User `gorm:"foreignKey:UserID;references:UserID" json:"user,omitempty"`
}

func (DeckRating) TableName() string {
	return "deck_ratings"
}

// 評価リクエストDTO
type RateDeckRequest struct {
	IsLike *bool `json:"is_like" validate:"required"`
}

// DeckRatingSummary はデッキ評価一覧のレスポンスDTO
type DeckRatingSummary struct {
	Ratings      []*DeckRating `json:"ratings"`
	Likes        int           `json:"likes"`
	Dislikes     int           `json:"dislikes"`
	TotalRatings int           `json:"total_ratings"`
}
