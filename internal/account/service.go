package account

import (
	"context"
	"errors"
	"fmt"

	"doctext-backend/internal/activity"
	"doctext-backend/internal/tier"
	"doctext-backend/internal/users"
)

// UserStore is the part of the user service the account pages need.
type UserStore interface {
	Upgrade(ctx context.Context, userID string) (users.User, error)
	Counts(ctx context.Context) (users.Counts, error)
}

type ConversionCounter interface {
	Conversions(ctx context.Context) (int, error)
}

type ActivityRecorder interface {
	Record(ctx context.Context, userID, action string)
}

type Testimonial struct {
	Name   string `json:"name"`
	Text   string `json:"text"`
	Rating int    `json:"rating"`
}

type Plan struct {
	Name        string   `json:"name"`
	MaxFileMB   *float64 `json:"maxFileMb"`
	MaxTextChar *int     `json:"maxTextChars"`
}

type Offer struct {
	Plans        []Plan        `json:"plans"`
	PeriodDays   int           `json:"periodDays"`
	Testimonials []Testimonial `json:"testimonials"`
}

type Stats struct {
	Users       int `json:"users"`
	Premium     int `json:"premium"`
	Conversions int `json:"conversions"`
}

var defaultTestimonials = []Testimonial{
	{Name: "Anna K.", Text: "Premium saved me dozens of hours of work!", Rating: 5},
	{Name: "Ivan P.", Text: "The best tool for processing documents.", Rating: 5},
	{Name: "Maria S.", Text: "Paid for itself on the very first day.", Rating: 4},
}

type Service struct {
	Users      UserStore
	Activity   ActivityRecorder
	Counter    ConversionCounter
	Policy     tier.Policy
	PeriodDays int
}

func NewService(userStore UserStore, recorder ActivityRecorder, counter ConversionCounter, policy tier.Policy, periodDays int) *Service {
	return &Service{Users: userStore, Activity: recorder, Counter: counter, Policy: policy, PeriodDays: periodDays}
}

// Offer lists the free and premium plans. A nil limit means unlimited.
func (s *Service) Offer() Offer {
	limits := s.Policy.Limits()
	fileMB := limits.FreeFileSizeMB
	textChars := limits.FreeTextLimit
	return Offer{
		Plans: []Plan{
			{Name: "free", MaxFileMB: &fileMB, MaxTextChar: &textChars},
			{Name: "premium"},
		},
		PeriodDays:   s.PeriodDays,
		Testimonials: append([]Testimonial(nil), defaultTestimonials...),
	}
}

// Upgrade grants premium without payment and records the upgrade.
func (s *Service) Upgrade(ctx context.Context, userID string) (users.User, error) {
	if s == nil || s.Users == nil {
		return users.User{}, errors.New("account service not configured")
	}
	user, err := s.Users.Upgrade(ctx, userID)
	if err != nil {
		return users.User{}, err
	}
	if s.Activity != nil {
		s.Activity.Record(ctx, userID, activity.ActionUpgradeToPremium)
	}
	return user, nil
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	if s == nil || s.Users == nil || s.Counter == nil {
		return Stats{}, errors.New("account service not configured")
	}
	counts, err := s.Users.Counts(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("count users: %w", err)
	}
	conversions, err := s.Counter.Conversions(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("count conversions: %w", err)
	}
	return Stats{Users: counts.Users, Premium: counts.Premium, Conversions: conversions}, nil
}
