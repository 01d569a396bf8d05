package models

import "time"

// IdempotencyKey stores the first completed response for an Idempotency-Key
// sent by a given caller.
type IdempotencyKey struct {
	ID             uint       `json:"id" gorm:"primaryKey"`
	Key            string     `json:"key" gorm:"size:128;not null"`      // header value
	CallerID       string     `json:"caller_id" gorm:"size:64;not null"` // user or platform id
	RequestHash    string     `json:"request_hash" gorm:"size:64"`       // sha256 of method|path|body|caller
	Method         string     `json:"method" gorm:"size:10"`
	Path           string     `json:"path" gorm:"size:255"`
	ResponseStatus int        `json:"response_status"` // 0 => not completed yet
	ResponseBody   []byte     `json:"-"`
	CreatedAt      time.Time  `json:"created_at"`
	CompletedAt    *time.Time `json:"completed_at"`
}
