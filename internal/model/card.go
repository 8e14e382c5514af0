// internal/model/card.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// Card は問題と答えのペアを表します
type Card struct {
	CardID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"card_id"`
	DeckID    uuid.UUID `gorm:"type:uuid;not null;index" json:"deck_id"`
	Question  string    `gorm:"not null" json:"question"`
	Answer    string    `gorm:"not null" json:"answer"`
	Order     int       `gorm:"not null;default:0" json:"order"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Card) TableName() string {
	return "cards"
}

// カード作成リクエストDTO
type CreateCardRequest struct {
	Question string `json:"question" validate:"required,min=1"`
	Answer   string `json:"answer" validate:"required,min=1"`
	Order    int    `json:"order" validate:"omitempty,min=0"`
}

// カード更新（部分）リクエストDTO
type UpdateCardRequest struct {
	Question *string `json:"question,omitempty" validate:"omitempty,min=1"`
	Answer   *string `json:"answer,omitempty" validate:"omitempty,min=1"`
	Order    *int    `json:"order,omitempty" validate:"omitempty,min=0"`
}
