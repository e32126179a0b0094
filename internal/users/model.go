package users

import "time"

type User struct {
	ID               string     `json:"id"`
	Username         string     `json:"username"`
	PasswordHash     string     `json:"-"`
	Email            string     `json:"email,omitempty"`
	IsPremium        bool       `json:"isPremium"`
	PremiumExpiry    *time.Time `json:"premiumExpiry,omitempty"`
	RegistrationDate time.Time  `json:"registrationDate"`
	APIKey           string     `json:"apiKey"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// Counts summarizes the user table for the public stats page.
type Counts struct {
	Users   int `json:"users"`
	Premium int `json:"premium"`
}

// Today truncates t to a UTC calendar date.
func Today(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// premiumExpired reports whether a premium flag must be cleared on today.
// An expiry equal to today is still valid.
func premiumExpired(u User, today time.Time) bool {
	return u.IsPremium && u.PremiumExpiry != nil && Today(*u.PremiumExpiry).Before(Today(today))
}
