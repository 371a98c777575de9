package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User is a citizen profile. Password is only set for accounts created
// through local registration.
type User struct {
	ID            string    `json:"userId"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Password      string    `json:"-"`
	Phone         string    `json:"phone"`
	PhoneVerified bool      `json:"phoneVerified"`
	Avatar        string    `json:"avatar,omitempty"`
	Address       string    `json:"address,omitempty"`
	City          string    `json:"city"`
	State         string    `json:"state"`
	Pincode       string    `json:"pincode"`
	Occupation    string    `json:"occupation,omitempty"`
	DateOfBirth   string    `json:"dateOfBirth,omitempty"`
	Points        int       `json:"points"`
	Badges        []string  `json:"badges"`
	CreatedAt     time.Time `json:"joinedDate"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (u *User) HashPassword() error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashed)
	return nil
}

func (u *User) ComparePassword(candidate string) bool {
	if u.Password == "" {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(candidate))
	return err == nil
}

// UserPatch holds the profile fields a user may change. Nil fields are left
// untouched.
type UserPatch struct {
	Name          *string `json:"name"`
	Email         *string `json:"email"`
	Phone         *string `json:"phone"`
	PhoneVerified *bool   `json:"-"`
	Avatar        *string `json:"avatar"`
	Address       *string `json:"address"`
	City          *string `json:"city"`
	State         *string `json:"state"`
	Pincode       *string `json:"pincode"`
	Occupation    *string `json:"occupation"`
	DateOfBirth   *string `json:"dateOfBirth"`
}

// Apply copies the set fields of p onto u.
func (p UserPatch) Apply(u *User) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&u.Name, p.Name)
	set(&u.Email, p.Email)
	set(&u.Phone, p.Phone)
	set(&u.Avatar, p.Avatar)
	set(&u.Address, p.Address)
	set(&u.City, p.City)
	set(&u.State, p.State)
	set(&u.Pincode, p.Pincode)
	set(&u.Occupation, p.Occupation)
	set(&u.DateOfBirth, p.DateOfBirth)
	if p.PhoneVerified != nil {
		u.PhoneVerified = *p.PhoneVerified
	}
}

// Empty reports whether the patch changes nothing.
func (p UserPatch) Empty() bool {
	return p.Name == nil && p.Email == nil && p.Phone == nil && p.PhoneVerified == nil &&
		p.Avatar == nil && p.Address == nil && p.City == nil && p.State == nil &&
		p.Pincode == nil && p.Occupation == nil && p.DateOfBirth == nil
}
