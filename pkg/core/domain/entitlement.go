package domain

import "time"

// AccessLevel is what the licensing endpoint reports for the signed-in user.
type AccessLevel string

const (
	AccessFull      AccessLevel = "FULL"
	AccessFreeTrial AccessLevel = "FREE_TRIAL"
	AccessNone      AccessLevel = "NONE"
)

// License is the decoded licensing response.
type License struct {
	Result      bool        `json:"result"`
	AccessLevel AccessLevel `json:"accessLevel"`
}

// Premium reports whether the license unlocks premium features.
func (l License) Premium() bool {
	return l.AccessLevel == AccessFull
}

// PremiumCache is the stored result of the last successful check.
type PremiumCache struct {
	Premium   bool      `json:"premium"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (c PremiumCache) Valid(now time.Time) bool {
	return now.Before(c.ExpiresAt)
}
