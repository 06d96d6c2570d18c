package fundapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Clive-Nyaga/Fund-Connect/internal/domain"
	"github.com/Clive-Nyaga/Fund-Connect/internal/schema"

	"go.opentelemetry.io/otel/attribute"
)

// --- Campaign resources (implements port.CampaignGateway) ---

// ListCampaigns fetches all campaigns. The backend has shipped both a
// bare array and a {campaigns:[...]} envelope; schema.DecodeCampaignList
// tolerates either.
func (c *Client) ListCampaigns(ctx context.Context) ([]schema.RemoteCampaign, error) {
	ctx, span := tracer.Start(ctx, "Fundapi.ListCampaigns")
	defer span.End()

	body, err := c.do(ctx, http.MethodGet, "/campaigns", "", nil)
	if err != nil {
		return nil, wrapExternal("campaigns", err)
	}

	list, err := schema.DecodeCampaignList(body)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "fundconnect/campaigns", Err: err}
	}
	span.SetAttributes(attribute.Int("campaigns.count", len(list)))
	return list, nil
}

// GetCampaign fetches a single campaign by id.
func (c *Client) GetCampaign(ctx context.Context, id string) (*schema.RemoteCampaign, error) {
	ctx, span := tracer.Start(ctx, "Fundapi.GetCampaign")
	defer span.End()
	span.SetAttributes(attribute.String("campaign.id", id))

	body, err := c.do(ctx, http.MethodGet, "/campaigns/"+url.PathEscape(id), "", nil)
	if err != nil {
		return nil, wrapExternal("campaigns", err)
	}

	var rc schema.RemoteCampaign
	if err := json.Unmarshal(body, &rc); err != nil {
		return nil, &domain.ErrExternalService{Service: "fundconnect/campaigns", Err: fmt.Errorf("decode campaign: %w", err)}
	}
	return &rc, nil
}

// CreateCampaign creates a campaign. Server-assigned fields (id,
// raisedamount, donations) are never part of the request body.
func (c *Client) CreateCampaign(ctx context.Context, body schema.CreateCampaignBody) (*schema.RemoteCampaign, error) {
	ctx, span := tracer.Start(ctx, "Fundapi.CreateCampaign")
	defer span.End()

	token, err := c.requireCredential("create campaign")
	if err != nil {
		return nil, err
	}

	respBody, err := c.do(ctx, http.MethodPost, "/campaigns", token, body)
	if err != nil {
		return nil, wrapExternal("campaigns", err)
	}

	var rc schema.RemoteCampaign
	if err := json.Unmarshal(respBody, &rc); err != nil {
		return nil, &domain.ErrExternalService{Service: "fundconnect/campaigns", Err: fmt.Errorf("decode created campaign: %w", err)}
	}
	return &rc, nil
}

// DeleteCampaign deletes a campaign. The server is the final authority
// on whether a funded campaign may go; its rejection propagates.
func (c *Client) DeleteCampaign(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Fundapi.DeleteCampaign")
	defer span.End()
	span.SetAttributes(attribute.String("campaign.id", id))

	token, err := c.requireCredential("delete campaign")
	if err != nil {
		return err
	}

	if _, err := c.do(ctx, http.MethodDelete, "/campaigns/"+url.PathEscape(id), token, nil); err != nil {
		return wrapExternal("campaigns", err)
	}
	return nil
}

// CreateDonation records a contribution against a campaign.
func (c *Client) CreateDonation(ctx context.Context, title, paymentMethod string, amount float64, campaignID string) error {
	ctx, span := tracer.Start(ctx, "Fundapi.CreateDonation")
	defer span.End()
	span.SetAttributes(
		attribute.String("campaign.id", campaignID),
		attribute.Float64("donation.amount", amount),
	)

	token, err := c.requireCredential("donate")
	if err != nil {
		return err
	}

	payload := map[string]any{
		"title":         title,
		"paymentmethod": paymentMethod,
		"amount":        amount,
		"campaign_id":   idValue(campaignID),
	}
	if _, err := c.do(ctx, http.MethodPost, "/donations", token, payload); err != nil {
		return wrapExternal("donations", err)
	}
	return nil
}

// CreateUpdate appends a human-readable note to a campaign's feed.
func (c *Client) CreateUpdate(ctx context.Context, title, description, campaignID string) error {
	ctx, span := tracer.Start(ctx, "Fundapi.CreateUpdate")
	defer span.End()
	span.SetAttributes(attribute.String("campaign.id", campaignID))

	token, err := c.requireCredential("post update")
	if err != nil {
		return err
	}

	payload := map[string]any{
		"title":       title,
		"description": description,
		"campaign_id": idValue(campaignID),
	}
	if _, err := c.do(ctx, http.MethodPost, "/updates", token, payload); err != nil {
		return wrapExternal("updates", err)
	}
	return nil
}

// ListDonations fetches the donation list for one campaign.
func (c *Client) ListDonations(ctx context.Context, campaignID string) ([]schema.RemoteDonation, error) {
	ctx, span := tracer.Start(ctx, "Fundapi.ListDonations")
	defer span.End()
	span.SetAttributes(attribute.String("campaign.id", campaignID))

	body, err := c.do(ctx, http.MethodGet, "/campaigns/"+url.PathEscape(campaignID)+"/donations", "", nil)
	if err != nil {
		return nil, wrapExternal("donations", err)
	}

	var list []schema.RemoteDonation
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, &domain.ErrExternalService{Service: "fundconnect/donations", Err: fmt.Errorf("decode donations: %w", err)}
	}
	return list, nil
}

// ListUpdates fetches the update feed for one campaign.
func (c *Client) ListUpdates(ctx context.Context, campaignID string) ([]schema.RemoteUpdate, error) {
	ctx, span := tracer.Start(ctx, "Fundapi.ListUpdates")
	defer span.End()
	span.SetAttributes(attribute.String("campaign.id", campaignID))

	body, err := c.do(ctx, http.MethodGet, "/campaigns/"+url.PathEscape(campaignID)+"/updates", "", nil)
	if err != nil {
		return nil, wrapExternal("updates", err)
	}

	var list []schema.RemoteUpdate
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, &domain.ErrExternalService{Service: "fundconnect/updates", Err: fmt.Errorf("decode updates: %w", err)}
	}
	return list, nil
}

// wrapExternal wraps transport-level failures; domain errors mapped
// from 4xx responses (and the fail-fast unauthenticated case) pass
// through untouched so callers can match on them.
func wrapExternal(endpoint string, err error) error {
	switch err.(type) {
	case *domain.ErrUnauthenticated, *domain.ErrAuthentication, *domain.ErrValidation,
		*domain.ErrNotFound, *domain.ErrConflict, *domain.ErrCircuitOpen:
		return err
	}
	return &domain.ErrExternalService{Service: "fundconnect/" + endpoint, Err: err}
}
