// internal/model/deck.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// Deck はカードの集まり（デッキ）を表します
type Deck struct {
	DeckID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"deck_id"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `json:"description"`
	IsPublic    bool      `gorm:"not null;default:false" json:"is_public"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// 関連 (Preload用)。デッキ削除時にカードも削除される
	Cards []Card `gorm:"foreignKey:DeckID;constraint:OnDelete:CASCADE" json:"cards,omitempty"`
}

func (Deck) TableName() string {
	return "decks"
}

// デッキ作成リクエストDTO
type CreateDeckRequest struct {
	Title       string `json:"title" validate:"required,min=1,max=200"`
	Description string `json:"description" validate:"required"`
	IsPublic    bool   `json:"is_public"`
}

// デッキ更新（部分）リクエストDTO
type UpdateDeckRequest struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,min=1"`
	IsPublic    *bool   `json:"is_public,omitempty"`
}

// DeckResponse は一覧用のレスポンスDTO（カード数付き）
type DeckResponse struct {
	DeckID      uuid.UUID `json:"deck_id"`
	UserID      uuid.UUID `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	IsPublic    bool      `json:"is_public"`
	CardCount   int64     `json:"card_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
