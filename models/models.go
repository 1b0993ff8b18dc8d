package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// User represents a regular user in the system
type User struct {
	gorm.Model
	Username    string    `gorm:"uniqueIndex;not null" json:"username"`
	Email       string    `gorm:"uniqueIndex;not null" json:"email"`
	Password    string    `json:"-"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Phone       string    `gorm:"index" json:"phone"`
	IsBlocked   bool      `json:"is_blocked"`
	IsVerified  bool      `json:"is_verified" gorm:"default:false"`
	LastLoginAt time.Time `json:"last_login_at"`
	Wallet      Wallet    `json:"wallet,omitempty" gorm:"foreignKey:UserID"`
}

// AgeDays returns how many whole days ago the user registered, used for
// coupon segment eligibility.
func (u *User) AgeDays(now time.Time) int {
	return int(now.Sub(u.CreatedAt).Hours() / 24)
}

// Astrologer represents a consultant who takes chat/call/live sessions
type Astrologer struct {
	gorm.Model
	Name          string          `gorm:"not null" json:"name"`
	Email         string          `gorm:"uniqueIndex;not null" json:"email"`
	Password      string          `json:"-"`
	Phone         string          `json:"phone"`
	Bio           string          `json:"bio"`
	Languages     string          `json:"languages"`
	Specialties   string          `json:"specialties"`
	ExperienceYrs int             `json:"experience_years"`
	ChatRate      decimal.Decimal `gorm:"type:numeric(12,2);default:0" json:"chat_rate"`
	CallRate      decimal.Decimal `gorm:"type:numeric(12,2);default:0" json:"call_rate"`
	LiveRate      decimal.Decimal `gorm:"type:numeric(12,2);default:0" json:"live_rate"`
	TotalEarnings decimal.Decimal `gorm:"type:numeric(14,2);default:0" json:"total_earnings"`
	IsOnline      bool            `json:"is_online" gorm:"default:false"`
	IsApproved    bool            `json:"is_approved" gorm:"default:false"`
	IsBlocked     bool            `json:"is_blocked" gorm:"default:false"`
	Rating        float64         `json:"rating" gorm:"default:0"`
}

// Admin represents an administrator in the system
type Admin struct {
	gorm.Model
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	Password  string    `json:"-"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	LastLogin time.Time `json:"last_login"`
	IsActive  bool      `json:"is_active" gorm:"default:true"`
}
