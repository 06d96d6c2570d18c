// Package domain holds the client's normalized types and the error
// vocabulary shared by every layer. No I/O, no wire formats.
package domain

import "time"

// Campaign categories the platform publishes. The backend does not
// validate against this set; it exists for pickers and filters.
const (
	CategoryEntrepreneurship = "entrepreneurship"
	CategoryEducation        = "education"
	CategoryHealthcare       = "healthcare"
	CategoryCharity          = "charity"
	CategoryAnimals          = "animals"
	CategoryWars             = "wars"
)

// Categories returns the published category set in display order.
func Categories() []string {
	return []string{
		CategoryEntrepreneurship,
		CategoryEducation,
		CategoryHealthcare,
		CategoryCharity,
		CategoryAnimals,
		CategoryWars,
	}
}

// Campaign is the normalized client-side campaign record.
type Campaign struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Goal        float64    `json:"goal"`
	Raised      float64    `json:"raised"`
	CreatorID   string     `json:"creatorId"`
	CreatorName string     `json:"creatorName"`
	CreatedAt   time.Time  `json:"createdAt,omitempty"`
	Donors      []Donation `json:"donors"`
}

// Remaining returns the amount still needed to reach the goal, never
// negative.
func (c Campaign) Remaining() float64 {
	if r := c.Goal - c.Raised; r > 0 {
		return r
	}
	return 0
}

// Progress returns the funding percentage clamped to [0, 100]. A
// campaign with no positive goal reports 0.
func (c Campaign) Progress() float64 {
	if c.Goal <= 0 {
		return 0
	}
	p := c.Raised / c.Goal * 100
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// Funded reports whether the campaign has received any contributions.
func (c Campaign) Funded() bool {
	return c.Raised > 0
}

// Donation is a recorded contribution with its denormalized donor
// identity.
type Donation struct {
	DonorID    string    `json:"donorId"`
	DonorName  string    `json:"donorName"`
	DonorEmail string    `json:"donorEmail,omitempty"`
	Amount     float64   `json:"amount"`
	Date       time.Time `json:"date,omitempty"`
}

// DonorInfo identifies the contributor on a donation request. A
// zero value means "the current session's user".
type DonorInfo struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// DonationReceipt is returned after an accepted donation. Raised and
// Remaining reflect the authoritative post-donation state.
type DonationReceipt struct {
	Reference  string  `json:"reference"`
	CampaignID string  `json:"campaignId"`
	Amount     float64 `json:"amount"`
	Raised     float64 `json:"raised"`
	Remaining  float64 `json:"remaining"`
}

// CampaignUpdate is an entry on a campaign's activity feed.
type CampaignUpdate struct {
	ID          string    `json:"id"`
	CampaignID  string    `json:"campaignId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
}

// CampaignInput carries the fields a creator supplies for a new
// campaign.
type CampaignInput struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Goal        float64 `json:"goal"`
}

// CampaignDetail is a campaign with its hydrated donation list and
// update feed.
type CampaignDetail struct {
	Campaign  Campaign         `json:"campaign"`
	Donations []Donation       `json:"donations"`
	Updates   []CampaignUpdate `json:"updates"`
}
