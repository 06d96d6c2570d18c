// Package schema translates between the backend's campaign wire format
// and the client's normalized domain representation. The backend has
// shipped two list shapes over time (a bare array and a {campaigns:[...]}
// envelope) and renames several fields; this package is the tolerance
// layer that absorbs both so the rest of the client sees one schema.
//
// All functions are deterministic and side-effect free.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/Clive-Nyaga/Fund-Connect/internal/domain"
)

// unknownCreator is substituted when the backend omits the owner's name.
const unknownCreator = "Unknown"

// RemoteCampaign mirrors the backend campaign record.
type RemoteCampaign struct {
	ID           json.Number     `json:"id"`
	Description  string          `json:"description"`
	Category     string          `json:"category"`
	TargetAmount float64         `json:"targetamount"`
	RaisedAmount *float64        `json:"raisedamount"`
	UserID       json.Number     `json:"user_id"`
	User         *RemoteUser     `json:"user"`
	CreatedAt    string          `json:"created_at"`
	Donations    []RemoteDonation `json:"donations"`
}

// RemoteUser is the nested owner object on a campaign record.
type RemoteUser struct {
	ID    json.Number `json:"id"`
	Name  string      `json:"name"`
	Email string      `json:"email"`
}

// RemoteDonation mirrors the backend donation record nested in a
// campaign (or returned by the donations listing).
type RemoteDonation struct {
	ID            json.Number `json:"id"`
	Amount        float64     `json:"amount"`
	UserID        json.Number `json:"user_id"`
	User          *RemoteUser `json:"user"`
	PaymentMethod string      `json:"paymentmethod"`
	CreatedAt     string      `json:"created_at"`
}

// RemoteUpdate mirrors the backend campaign-update record.
type RemoteUpdate struct {
	ID          json.Number `json:"id"`
	CampaignID  json.Number `json:"campaign_id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	CreatedAt   string      `json:"created_at"`
}

// CreateCampaignBody is the subset of fields the backend accepts on
// campaign creation. Server-assigned fields (id, raisedamount,
// donations) are never sent.
type CreateCampaignBody struct {
	Category     string  `json:"category"`
	Description  string  `json:"description"`
	TargetAmount float64 `json:"targetamount"`
}

// campaignEnvelope is the newer list response shape.
type campaignEnvelope struct {
	Campaigns []RemoteCampaign `json:"campaigns"`
}

// DecodeCampaignList accepts either the {campaigns:[...]} envelope or a
// bare JSON array and returns the remote records. An empty body decodes
// to an empty list.
func DecodeCampaignList(body []byte) ([]RemoteCampaign, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var list []RemoteCampaign
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("decode campaign array: %w", err)
		}
		return list, nil
	}

	var env campaignEnvelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, fmt.Errorf("decode campaign envelope: %w", err)
	}
	return env.Campaigns, nil
}

// FromRemote maps a backend campaign record to the client shape,
// filling defaults for fields the backend may omit.
func FromRemote(rc RemoteCampaign) domain.Campaign {
	raised := 0.0
	if rc.RaisedAmount != nil {
		raised = *rc.RaisedAmount
	}

	creatorName := unknownCreator
	if rc.User != nil && rc.User.Name != "" {
		creatorName = rc.User.Name
	}

	donors := make([]domain.Donation, 0, len(rc.Donations))
	for _, rd := range rc.Donations {
		donors = append(donors, DonationFromRemote(rd))
	}

	return domain.Campaign{
		ID:          NormalizeID(rc.ID.String()),
		Title:       rc.Description,
		Description: rc.Description,
		Category:    rc.Category,
		Goal:        rc.TargetAmount,
		Raised:      raised,
		CreatorID:   NormalizeID(rc.UserID.String()),
		CreatorName: creatorName,
		CreatedAt:   parseTimestamp(rc.CreatedAt),
		Donors:      donors,
	}
}

// ToRemote maps the client-side creation input to the body the backend
// accepts. The inverse of FromRemote restricted to the creation subset.
func ToRemote(in domain.CampaignInput) CreateCampaignBody {
	description := in.Description
	if description == "" {
		description = in.Title
	}
	return CreateCampaignBody{
		Category:     in.Category,
		Description:  description,
		TargetAmount: in.Goal,
	}
}

// DonationFromRemote maps a backend donation record, denormalizing the
// nested donor identity.
func DonationFromRemote(rd RemoteDonation) domain.Donation {
	d := domain.Donation{
		DonorID: NormalizeID(rd.UserID.String()),
		Amount:  rd.Amount,
		Date:    parseTimestamp(rd.CreatedAt),
	}
	if rd.User != nil {
		d.DonorName = rd.User.Name
		d.DonorEmail = rd.User.Email
		if d.DonorID == "" {
			d.DonorID = NormalizeID(rd.User.ID.String())
		}
	}
	if d.DonorName == "" {
		d.DonorName = unknownCreator
	}
	return d
}

// UpdateFromRemote maps a backend campaign-update record.
func UpdateFromRemote(ru RemoteUpdate) domain.CampaignUpdate {
	return domain.CampaignUpdate{
		ID:          NormalizeID(ru.ID.String()),
		CampaignID:  NormalizeID(ru.CampaignID.String()),
		Title:       ru.Title,
		Description: ru.Description,
		CreatedAt:   parseTimestamp(ru.CreatedAt),
	}
}

// NormalizeID canonicalizes an id for comparison so a numeric id and
// its string form compare equal ("7" == 7, "007" == "7"). Non-numeric
// ids pass through untouched.
func NormalizeID(id string) string {
	if id == "" {
		return ""
	}
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		return strconv.FormatInt(n, 10)
	}
	return id
}

// parseTimestamp tolerates the two timestamp formats the backend has
// emitted: RFC 3339 and bare dates.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	t, _ := time.Parse("2006-01-02", s)
	return t
}
