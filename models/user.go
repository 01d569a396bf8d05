package models

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// User is a cargo owner who posts shipments and decides on bids.
type User struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"`
	FirstName   string    `json:"first_name" gorm:"not null"`
	LastName    string    `json:"last_name" gorm:"not null"`
	Password    []byte    `json:"-" gorm:"not null"`
	Email       string    `json:"email" gorm:"unique;not null"`
	CompanyName string    `json:"company_name"`
	Mobile      string    `json:"mobile" gorm:"size:20"`
	CreatedAt   time.Time `json:"created_at"`
}

func (user *User) BeforeCreate(tx *gorm.DB) (err error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	return
}

func (user *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return err
	}
	user.Password = hashedPassword
	return nil
}

func (user *User) ComparePassword(password string) error {
	return bcrypt.CompareHashAndPassword(user.Password, []byte(password))
}

func (user *User) FullName() string {
	return user.FirstName + " " + user.LastName
}
