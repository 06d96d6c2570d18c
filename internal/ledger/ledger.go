// Package ledger is the client-side source of truth for campaign state.
// It holds the cached campaign sequence, orchestrates every mutation
// against the remote gateway, applies the schema translation, and
// publishes updated snapshots to consumers.
//
// The ledger never derives aggregates locally: after every successful
// mutation it re-fetches the authoritative state, so a concurrent donor
// on another client can never leave this cache permanently wrong.
package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Clive-Nyaga/Fund-Connect/internal/domain"
	"github.com/Clive-Nyaga/Fund-Connect/internal/infra/observability"
	"github.com/Clive-Nyaga/Fund-Connect/internal/infra/resilience"
	"github.com/Clive-Nyaga/Fund-Connect/internal/port"
	"github.com/Clive-Nyaga/Fund-Connect/internal/schema"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("ledger")

// Defaults the original client sends when the donor does not pick them.
const (
	defaultDonationTitle = "Donation"
	defaultPaymentMethod = "card"
)

// Snapshot is the published view of the ledger's state.
type Snapshot struct {
	Campaigns  []domain.Campaign `json:"campaigns"`
	Loading    bool              `json:"loading"`
	LastError  string            `json:"lastError,omitempty"`
	Generation uint64            `json:"generation"`
}

// Ledger owns the cached campaign sequence. Single writer: every
// mutation of the sequence flows through this type under one mutex.
type Ledger struct {
	gateway  port.CampaignGateway
	session  port.SessionReader
	details  port.Cache[domain.CampaignDetail]
	bulkhead *resilience.Bulkhead
	metrics  *observability.Metrics
	logger   *zap.Logger

	mu         sync.RWMutex
	campaigns  []domain.Campaign
	loading    bool
	lastErr    error
	generation uint64

	watchMu  sync.Mutex
	watchers map[int]chan Snapshot
	watchSeq int
}

// New creates the ledger with all dependencies injected.
func New(
	gateway port.CampaignGateway,
	session port.SessionReader,
	details port.Cache[domain.CampaignDetail],
	bulkhead *resilience.Bulkhead,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Ledger {
	return &Ledger{
		gateway:  gateway,
		session:  session,
		details:  details,
		bulkhead: bulkhead,
		metrics:  metrics,
		logger:   logger,
		watchers: make(map[int]chan Snapshot),
	}
}

// Refresh fetches all campaigns, translates them and replaces the cached
// sequence wholesale. On failure the previous sequence is preserved and
// the error slot records the failure (fail-soft). An in-flight refresh
// superseded by a newer one discards its result.
func (l *Ledger) Refresh(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Ledger.Refresh")
	defer span.End()

	start := time.Now()
	defer func() {
		l.metrics.RecordOperationDuration("refresh", time.Since(start))
	}()

	l.mu.Lock()
	l.generation++
	gen := l.generation
	l.loading = true
	l.mu.Unlock()
	l.publish()

	remotes, err := l.gateway.ListCampaigns(ctx)
	if err != nil {
		l.mu.Lock()
		if gen == l.generation {
			l.loading = false
			l.lastErr = err
		}
		l.mu.Unlock()
		l.publish()

		l.metrics.IncrRefresh("error")
		l.metrics.IncrGatewayError("campaigns")
		l.logger.Warn("refresh failed, keeping cached campaigns", zap.Error(err))
		return err
	}

	campaigns := make([]domain.Campaign, 0, len(remotes))
	for _, rc := range remotes {
		campaigns = append(campaigns, normalize(schema.FromRemote(rc)))
	}

	l.mu.Lock()
	if gen != l.generation {
		// A newer refresh already superseded this one.
		l.mu.Unlock()
		l.metrics.IncrRefresh("stale")
		l.metrics.IncrStaleDiscard()
		l.logger.Debug("discarding stale refresh result", zap.Uint64("generation", gen))
		return nil
	}
	l.campaigns = campaigns
	l.loading = false
	l.lastErr = nil
	l.mu.Unlock()
	l.publish()

	// Hydrated detail views were derived from the previous sequence.
	l.details.Flush()

	l.metrics.IncrRefresh("success")
	span.SetAttributes(attribute.Int("campaigns.count", len(campaigns)))
	l.logger.Debug("campaigns refreshed", zap.Int("count", len(campaigns)))
	return nil
}

// CreateCampaign validates the input, creates the campaign remotely and
// pulls the authoritative post-create state. The created record is never
// synthesized locally: the server assigns id, timestamps and defaults.
func (l *Ledger) CreateCampaign(ctx context.Context, input domain.CampaignInput) (*domain.Campaign, error) {
	ctx, span := tracer.Start(ctx, "Ledger.CreateCampaign")
	defer span.End()

	start := time.Now()
	defer func() {
		l.metrics.RecordOperationDuration("create_campaign", time.Since(start))
	}()

	if l.session.CurrentUser() == nil {
		return nil, &domain.ErrUnauthenticated{Operation: "create campaign"}
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}

	created, err := l.gateway.CreateCampaign(ctx, schema.ToRemote(input))
	if err != nil {
		l.metrics.IncrGatewayError("campaigns")
		return nil, err
	}

	l.refreshAfterMutation(ctx, "create")

	campaign := normalize(schema.FromRemote(*created))
	l.logger.Info("campaign created",
		zap.String("campaign_id", campaign.ID),
		zap.Float64("goal", campaign.Goal),
		zap.String("category", campaign.Category),
	)
	return &campaign, nil
}

// Donate validates the amount against the locally cached remaining
// balance, records the donation remotely, appends a best-effort update
// note and re-fetches the authoritative raised amount. The cached
// `raised` is never incremented locally as a substitute for the refresh.
func (l *Ledger) Donate(ctx context.Context, campaignID string, amount float64, donor domain.DonorInfo) (*domain.DonationReceipt, error) {
	ctx, span := tracer.Start(ctx, "Ledger.Donate")
	defer span.End()
	span.SetAttributes(
		attribute.String("campaign.id", campaignID),
		attribute.Float64("donation.amount", amount),
	)

	start := time.Now()
	defer func() {
		l.metrics.RecordOperationDuration("donate", time.Since(start))
	}()

	user := l.session.CurrentUser()
	if user == nil {
		return nil, &domain.ErrUnauthenticated{Operation: "donate"}
	}
	if donor == (domain.DonorInfo{}) {
		donor = domain.DonorInfo{ID: user.ID, Name: user.Name, Email: user.Email}
	}

	if amount <= 0 {
		return nil, &domain.ErrValidation{Field: "amount", Message: "donation amount must be positive"}
	}

	campaign, err := l.GetByID(campaignID)
	if err != nil {
		return nil, err
	}

	// Checked against the locally cached remaining balance. A concurrent
	// donor on another client is invisible until the next refresh; the
	// server remains the final arbiter across clients.
	remaining := campaign.Remaining()
	if amount > remaining {
		return nil, &domain.ErrOverfund{
			CampaignID: campaign.ID,
			Remaining:  remaining,
			Requested:  amount,
		}
	}

	if err := l.gateway.CreateDonation(ctx, defaultDonationTitle, defaultPaymentMethod, amount, campaign.ID); err != nil {
		l.metrics.IncrGatewayError("donations")
		return nil, err
	}

	reference := uuid.NewString()

	// The note is decoration on the activity feed; its failure must not
	// fail a donation the server already accepted.
	note := fmt.Sprintf("%s contributed $%.2f (ref %s)", donor.Name, amount, reference)
	if err := l.gateway.CreateUpdate(ctx, "New contribution", note, campaign.ID); err != nil {
		l.logger.Warn("donation update note failed",
			zap.String("campaign_id", campaign.ID),
			zap.Error(err),
		)
	}

	l.refreshAfterMutation(ctx, "donate")
	l.metrics.RecordDonation(amount)

	receipt := &domain.DonationReceipt{
		Reference:  reference,
		CampaignID: campaign.ID,
		Amount:     amount,
	}
	if fresh, err := l.GetByID(campaign.ID); err == nil {
		receipt.Raised = fresh.Raised
		receipt.Remaining = fresh.Remaining()
	}

	l.logger.Info("donation accepted",
		zap.String("campaign_id", campaign.ID),
		zap.Float64("amount", amount),
		zap.String("reference", reference),
	)
	return receipt, nil
}

// DeleteCampaign removes an unfunded campaign. The cached raised amount
// gates the attempt client-side; if that cache is stale the server's
// verdict on the delete call is authoritative and propagates.
func (l *Ledger) DeleteCampaign(ctx context.Context, campaignID string) error {
	ctx, span := tracer.Start(ctx, "Ledger.DeleteCampaign")
	defer span.End()
	span.SetAttributes(attribute.String("campaign.id", campaignID))

	start := time.Now()
	defer func() {
		l.metrics.RecordOperationDuration("delete_campaign", time.Since(start))
	}()

	if l.session.CurrentUser() == nil {
		return &domain.ErrUnauthenticated{Operation: "delete campaign"}
	}

	campaign, err := l.GetByID(campaignID)
	if err != nil {
		return err
	}
	if campaign.Funded() {
		return &domain.ErrConflict{
			Message: fmt.Sprintf("campaign %s has received contributions and cannot be deleted", campaign.ID),
		}
	}

	if err := l.gateway.DeleteCampaign(ctx, campaign.ID); err != nil {
		l.metrics.IncrGatewayError("campaigns")
		return err
	}

	l.refreshAfterMutation(ctx, "delete")
	l.logger.Info("campaign deleted", zap.String("campaign_id", campaign.ID))
	return nil
}

// CampaignDetail returns a campaign with its hydrated donation list and
// update feed, fetching both concurrently on a cache miss.
func (l *Ledger) CampaignDetail(ctx context.Context, campaignID string) (*domain.CampaignDetail, error) {
	ctx, span := tracer.Start(ctx, "Ledger.CampaignDetail")
	defer span.End()
	span.SetAttributes(attribute.String("campaign.id", campaignID))

	campaign, err := l.GetByID(campaignID)
	if err != nil {
		return nil, err
	}

	cacheKey := "detail:" + campaign.ID
	if cached, ok := l.details.Get(cacheKey); ok {
		l.metrics.IncrCacheHit("detail")
		return &cached, nil
	}
	l.metrics.IncrCacheMiss("detail")

	if err := l.bulkhead.Acquire(ctx); err != nil {
		return nil, err
	}
	defer l.bulkhead.Release()

	var (
		fresh     domain.Campaign
		donations []domain.Donation
		updates   []domain.CampaignUpdate
	)

	g, gCtx := errgroup.WithContext(ctx)

	// The cached record may lag a donation made from another client;
	// the detail view re-pulls the single record for current amounts.
	g.Go(func() error {
		remote, err := l.gateway.GetCampaign(gCtx, campaign.ID)
		if err != nil {
			return fmt.Errorf("campaign fetch: %w", err)
		}
		fresh = normalize(schema.FromRemote(*remote))
		return nil
	})

	g.Go(func() error {
		remote, err := l.gateway.ListDonations(gCtx, campaign.ID)
		if err != nil {
			return fmt.Errorf("donations fetch: %w", err)
		}
		donations = make([]domain.Donation, 0, len(remote))
		for _, rd := range remote {
			donations = append(donations, schema.DonationFromRemote(rd))
		}
		return nil
	})

	g.Go(func() error {
		remote, err := l.gateway.ListUpdates(gCtx, campaign.ID)
		if err != nil {
			return fmt.Errorf("updates fetch: %w", err)
		}
		updates = make([]domain.CampaignUpdate, 0, len(remote))
		for _, ru := range remote {
			updates = append(updates, schema.UpdateFromRemote(ru))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		l.metrics.IncrGatewayError("detail")
		return nil, err
	}

	detail := domain.CampaignDetail{
		Campaign:  fresh,
		Donations: donations,
		Updates:   updates,
	}
	l.details.Set(cacheKey, detail)
	return &detail, nil
}

// GetByID looks up a cached campaign. Pure lookup, no network. Numeric
// and string ids compare equal.
func (l *Ledger) GetByID(id string) (*domain.Campaign, error) {
	want := schema.NormalizeID(id)

	l.mu.RLock()
	defer l.mu.RUnlock()

	for i := range l.campaigns {
		if l.campaigns[i].ID == want {
			c := cloneCampaign(l.campaigns[i])
			return &c, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "campaign", ID: id}
}

// GetByOwner returns the cached campaigns created by ownerID.
func (l *Ledger) GetByOwner(ownerID string) []domain.Campaign {
	want := schema.NormalizeID(ownerID)

	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []domain.Campaign
	for i := range l.campaigns {
		if l.campaigns[i].CreatorID == want {
			out = append(out, cloneCampaign(l.campaigns[i]))
		}
	}
	return out
}

// NotOwnedBy returns the cached campaigns NOT created by ownerID — the
// "featured" partition on the dashboard.
func (l *Ledger) NotOwnedBy(ownerID string) []domain.Campaign {
	want := schema.NormalizeID(ownerID)

	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []domain.Campaign
	for i := range l.campaigns {
		if l.campaigns[i].CreatorID != want {
			out = append(out, cloneCampaign(l.campaigns[i]))
		}
	}
	return out
}

// Snapshot returns the current published state.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	campaigns := make([]domain.Campaign, len(l.campaigns))
	for i := range l.campaigns {
		campaigns[i] = cloneCampaign(l.campaigns[i])
	}

	s := Snapshot{
		Campaigns:  campaigns,
		Loading:    l.loading,
		Generation: l.generation,
	}
	if l.lastErr != nil {
		s.LastError = l.lastErr.Error()
	}
	return s
}

// LastError returns the error slot (nil after a successful refresh).
func (l *Ledger) LastError() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lastErr
}

// Loading reports whether a refresh is in flight.
func (l *Ledger) Loading() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loading
}

// Subscribe registers a consumer for published snapshots. The channel
// holds only the latest snapshot: a slow consumer sees the newest state,
// not a backlog. The returned func cancels the subscription.
func (l *Ledger) Subscribe() (<-chan Snapshot, func()) {
	l.watchMu.Lock()
	defer l.watchMu.Unlock()

	l.watchSeq++
	id := l.watchSeq
	ch := make(chan Snapshot, 1)
	l.watchers[id] = ch

	return ch, func() {
		l.watchMu.Lock()
		defer l.watchMu.Unlock()
		if _, ok := l.watchers[id]; ok {
			delete(l.watchers, id)
			close(ch)
		}
	}
}

// publish pushes the current snapshot to all subscribers, replacing any
// undelivered previous snapshot.
func (l *Ledger) publish() {
	snap := l.Snapshot()

	l.watchMu.Lock()
	defer l.watchMu.Unlock()

	for _, ch := range l.watchers {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

// refreshAfterMutation pulls authoritative state after a successful
// mutation. The mutation already succeeded: a refresh failure here is
// recorded in the error slot, not surfaced as a mutation failure.
func (l *Ledger) refreshAfterMutation(ctx context.Context, operation string) {
	if err := l.Refresh(ctx); err != nil {
		l.logger.Warn("post-mutation refresh failed, cache is stale until next refresh",
			zap.String("operation", operation),
			zap.Error(err),
		)
	}
}

// validateInput applies the client-side creation checks so an obviously
// bad form never costs a network round trip.
func validateInput(in domain.CampaignInput) error {
	if in.Title == "" {
		return &domain.ErrValidation{Field: "title", Message: "title is required"}
	}
	if in.Description == "" {
		return &domain.ErrValidation{Field: "description", Message: "description is required"}
	}
	if in.Goal <= 0 {
		return &domain.ErrValidation{Field: "goal", Message: "funding goal must be a positive number"}
	}
	if in.Category == "" {
		return &domain.ErrValidation{Field: "category", Message: "category is required"}
	}
	return nil
}

// normalize clamps server-reported aggregates into the documented
// invariant 0 <= raised <= goal. The raw server value wins everywhere
// else; this only guards rendering against a transiently inconsistent
// backend row.
func normalize(c domain.Campaign) domain.Campaign {
	if c.Raised < 0 {
		c.Raised = 0
	}
	if c.Goal > 0 && c.Raised > c.Goal {
		c.Raised = c.Goal
	}
	return c
}

func cloneCampaign(c domain.Campaign) domain.Campaign {
	donors := make([]domain.Donation, len(c.Donors))
	copy(donors, c.Donors)
	c.Donors = donors
	return c
}
