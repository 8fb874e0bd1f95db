package service

import (
	"context"
	"strconv"

	"github.com/boddenberg/flatwise-bfa-go/internal/billing"
	"github.com/boddenberg/flatwise-bfa-go/internal/domain"
	"github.com/boddenberg/flatwise-bfa-go/internal/infra/observability"
	"github.com/boddenberg/flatwise-bfa-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

var billTracer = otel.Tracer("service/bills")

// BillScope selects whose bills are listed.
type BillScope string

const (
	ScopeUser    BillScope = "user"
	ScopeSociety BillScope = "society"
)

// BillQuery identifies a bill list and its filters.
type BillQuery struct {
	Scope     BillScope
	SocietyID int64
	UserID    int64
	CanManage bool
	Status    string
	Month     *billing.MonthFilter
}

func (q BillQuery) cacheKey() string {
	return billsPrefix(q.SocietyID) + string(q.Scope) + ":" + strconv.FormatInt(q.UserID, 10)
}

func billsPrefix(societyID int64) string {
	return "bills:" + strconv.FormatInt(societyID, 10) + ":"
}

// BillService lists bills, moves them from owner to resident and renders
// statements.
type BillService struct {
	bills       port.BillAPI
	flats       port.FlatAPI
	parties     port.Cache[domain.FlatParties]
	cache       port.Cache[[]domain.Bill]
	state       *StateStore
	metrics     *observability.Metrics
	logger      *zap.Logger
	statements  *StatementRenderer
	group       singleflight.Group
	concurrency int
}

// NewBillService creates a bill service. concurrency bounds the parallel
// flat metadata lookups of one listing.
func NewBillService(bills port.BillAPI, flats port.FlatAPI, parties port.Cache[domain.FlatParties], cache port.Cache[[]domain.Bill], state *StateStore, metrics *observability.Metrics, statements *StatementRenderer, concurrency int, logger *zap.Logger) *BillService {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &BillService{
		bills:       bills,
		flats:       flats,
		parties:     parties,
		cache:       cache,
		state:       state,
		metrics:     metrics,
		logger:      logger,
		statements:  statements,
		concurrency: concurrency,
	}
}

// ============================================================
// Listing: GET /v1/bills
// ============================================================

// List returns the filtered bills with their transfer flags and a summary
// of the filtered set.
func (s *BillService) List(ctx context.Context, q BillQuery) (*domain.BillListing, error) {
	ctx, span := billTracer.Start(ctx, "BillService.List")
	defer span.End()
	span.SetAttributes(
		attribute.String("scope", string(q.Scope)),
		attribute.Int64("society.id", q.SocietyID),
	)

	bills, err := s.fetch(ctx, q, true)
	if err != nil {
		return nil, err
	}

	filtered := billing.FilterBills(bills, q.Status, q.Month)
	parties := s.loadParties(ctx, filtered)

	views := make([]domain.BillView, 0, len(filtered))
	for _, b := range filtered {
		if err := billing.VerifyTotal(b); err != nil {
			s.logger.Warn("bill total mismatch", zap.Int64("bill_id", b.ID), zap.Error(err))
		}
		p := parties[b.FlatID]
		views = append(views, domain.BillView{
			Bill:         b,
			CanTransfer:  billing.CanTransfer(b, p),
			AssignedTo:   billing.AssignedTo(b, p),
			PartiesKnown: p != nil,
		})
	}

	summary := billing.Summarize(filtered)
	return &domain.BillListing{
		Bills:     views,
		Summary:   summary,
		PaidRatio: billing.PaidRatio(summary),
	}, nil
}

// fetch loads the bill list for q. Society-wide lists need a managing role.
func (s *BillService) fetch(ctx context.Context, q BillQuery, cached bool) ([]domain.Bill, error) {
	if q.SocietyID <= 0 {
		return nil, &domain.ErrValidation{Field: "society_id", Message: "is required"}
	}
	if q.Scope == ScopeSociety && !q.CanManage {
		return nil, &domain.ErrForbidden{Action: "list society bills"}
	}

	key := q.cacheKey()
	if cached {
		if bills, ok := s.cache.Get(key); ok {
			s.metrics.IncrCacheHit("bills")
			return bills, nil
		}
		s.metrics.IncrCacheMiss("bills")
	}

	var (
		bills []domain.Bill
		err   error
	)
	if q.Scope == ScopeSociety {
		bills, err = s.bills.ListSocietyBills(ctx, q.SocietyID)
	} else {
		bills, err = s.bills.ListUserBills(ctx, q.SocietyID, q.UserID)
	}
	if err != nil {
		s.metrics.IncrUpstreamError("ListBills")
		return nil, err
	}
	s.cache.Set(key, bills)
	return bills, nil
}

// loadParties resolves owner/resident metadata for every flat in bills.
// A flat whose lookup fails is left out of the map, which makes its bills
// non-transferable.
func (s *BillService) loadParties(ctx context.Context, bills []domain.Bill) map[int64]*domain.FlatParties {
	ids := make([]int64, 0, len(bills))
	seen := make(map[int64]bool, len(bills))
	for _, b := range bills {
		if b.FlatID > 0 && !seen[b.FlatID] {
			seen[b.FlatID] = true
			ids = append(ids, b.FlatID)
		}
	}

	results := make([]*domain.FlatParties, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			p, err := s.partiesFor(gctx, id)
			if err != nil {
				s.logger.Warn("flat metadata unavailable", zap.Int64("flat_id", id), zap.Error(err))
				return nil
			}
			results[i] = p
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[int64]*domain.FlatParties, len(ids))
	for i, id := range ids {
		if results[i] != nil {
			out[id] = results[i]
		}
	}
	return out
}

func (s *BillService) partiesFor(ctx context.Context, flatID int64) (*domain.FlatParties, error) {
	key := partiesKey(flatID)
	if p, ok := s.parties.Get(key); ok {
		s.metrics.IncrCacheHit("flat_parties")
		return &p, nil
	}
	s.metrics.IncrCacheMiss("flat_parties")

	v, err, _ := s.group.Do(key, func() (any, error) {
		p, err := s.flats.GetFlatParties(ctx, flatID)
		if err != nil {
			s.metrics.IncrUpstreamError("GetFlatParties")
			return nil, err
		}
		s.parties.Set(key, *p)
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	p := *v.(*domain.FlatParties)
	return &p, nil
}

// ============================================================
// Transfer: POST /v1/bills/{id}/transfer
// ============================================================

// Transfer assigns a pending bill from the flat's owner to its first
// resident. Preconditions are checked against fresh data and a failing
// check never reaches the backend.
func (s *BillService) Transfer(ctx context.Context, q BillQuery, billID int64) (*domain.Bill, error) {
	ctx, span := billTracer.Start(ctx, "BillService.Transfer", trace.WithAttributes(attribute.Int64("bill.id", billID)))
	defer span.End()

	bills, err := s.fetch(ctx, q, false)
	if err != nil {
		return nil, err
	}
	bill, ok := findBill(bills, billID)
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "bill", ID: strconv.FormatInt(billID, 10)}
	}

	var parties *domain.FlatParties
	if bill.FlatID > 0 {
		// Bypass the cache: the owner or resident may have changed.
		s.parties.Delete(partiesKey(bill.FlatID))
		parties, err = s.partiesFor(ctx, bill.FlatID)
		if err != nil {
			s.logger.Warn("transfer: flat metadata unavailable", zap.Int64("flat_id", bill.FlatID), zap.Error(err))
			parties = nil
		}
	}

	req, err := billing.PrepareTransfer(bill, parties)
	if err != nil {
		s.metrics.IncrTransfer(observability.OutcomeRejected)
		return nil, err
	}

	assigned, err := s.bills.AssignBill(ctx, billID, req)
	if err != nil {
		s.metrics.IncrUpstreamError("AssignBill")
		s.metrics.IncrTransfer(observability.OutcomeFailed)
		return nil, err
	}
	if assigned.ID == 0 {
		s.metrics.IncrTransfer(observability.OutcomeFailed)
		return nil, &domain.ErrDecode{Schema: "assign", Reason: "Unexpected response"}
	}

	s.cache.DeletePrefix(billsPrefix(q.SocietyID))
	s.metrics.IncrTransfer(observability.OutcomeOK)
	s.state.Publish(Event{Kind: EventBillsChanged, SocietyID: q.SocietyID, UserID: q.UserID})
	s.logger.Info("bill transferred",
		zap.Int64("bill_id", billID),
		zap.Int64("owner_id", req.OwnerID),
		zap.Int64("resident_id", req.ResidentID),
	)
	return assigned, nil
}

// Find returns one bill from q's list, bypassing the cache.
func (s *BillService) Find(ctx context.Context, q BillQuery, billID int64) (*domain.Bill, error) {
	bills, err := s.fetch(ctx, q, false)
	if err != nil {
		return nil, err
	}
	bill, ok := findBill(bills, billID)
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "bill", ID: strconv.FormatInt(billID, 10)}
	}
	return &bill, nil
}

func findBill(bills []domain.Bill, id int64) (domain.Bill, bool) {
	for _, b := range bills {
		if b.ID == id {
			return b, true
		}
	}
	return domain.Bill{}, false
}

// ============================================================
// Statement: GET /v1/bills/statement.pdf
// ============================================================

// Statement renders the filtered bill list as a PDF.
func (s *BillService) Statement(ctx context.Context, q BillQuery, title string) ([]byte, error) {
	ctx, span := billTracer.Start(ctx, "BillService.Statement")
	defer span.End()

	listing, err := s.List(ctx, q)
	if err != nil {
		return nil, err
	}
	return s.statements.Render(title, listing)
}
