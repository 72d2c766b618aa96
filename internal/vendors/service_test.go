package vendors

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	vendors     map[string]Vendor
	campaigns   map[string]Campaign
	submissions map[string]PriceSubmission
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		vendors:     make(map[string]Vendor),
		campaigns:   make(map[string]Campaign),
		submissions: make(map[string]PriceSubmission),
	}
}

func (f *fakeRepo) CreateVendor(_ context.Context, v Vendor) error {
	for _, existing := range f.vendors {
		if existing.Email != "" && existing.Email == v.Email {
			return ErrDuplicate
		}
	}
	f.vendors[v.ID] = v
	return nil
}

func (f *fakeRepo) GetVendor(_ context.Context, id string) (Vendor, error) {
	v, ok := f.vendors[id]
	if !ok {
		return Vendor{}, ErrNotFound
	}
	return v, nil
}

func (f *fakeRepo) ListVendors(_ context.Context, filter VendorFilter) ([]Vendor, int, error) {
	var out []Vendor
	for _, v := range f.vendors {
		if filter.Status != "" && v.Status != filter.Status {
			continue
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, len(out), nil
}

func (f *fakeRepo) UpdateVendor(_ context.Context, v Vendor) error {
	if _, ok := f.vendors[v.ID]; !ok {
		return ErrNotFound
	}
	f.vendors[v.ID] = v
	return nil
}

func (f *fakeRepo) DeleteVendor(_ context.Context, id string) error {
	if _, ok := f.vendors[id]; !ok {
		return ErrNotFound
	}
	delete(f.vendors, id)
	return nil
}

func (f *fakeRepo) CreateCampaign(_ context.Context, c Campaign) error {
	f.campaigns[c.ID] = c
	return nil
}

func (f *fakeRepo) GetCampaign(_ context.Context, id string) (Campaign, error) {
	c, ok := f.campaigns[id]
	if !ok {
		return Campaign{}, ErrNotFound
	}
	return c, nil
}

func (f *fakeRepo) ListCampaigns(_ context.Context, status CampaignStatus) ([]Campaign, error) {
	var out []Campaign
	for _, c := range f.campaigns {
		if status != "" && c.Status != status {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeRepo) UpdateCampaignStatus(_ context.Context, id string, status CampaignStatus) error {
	c, ok := f.campaigns[id]
	if !ok {
		return ErrNotFound
	}
	c.Status = status
	f.campaigns[id] = c
	return nil
}

func (f *fakeRepo) CreateSubmission(_ context.Context, s PriceSubmission) error {
	f.submissions[s.ID] = s
	return nil
}

func (f *fakeRepo) GetSubmission(_ context.Context, id string) (PriceSubmission, error) {
	s, ok := f.submissions[id]
	if !ok {
		return PriceSubmission{}, ErrNotFound
	}
	return s, nil
}

func (f *fakeRepo) ListSubmissions(_ context.Context, campaignID string) ([]PriceSubmission, error) {
	var out []PriceSubmission
	for _, s := range f.submissions {
		if s.CampaignID == campaignID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeRepo) UpdateSubmissionStatus(_ context.Context, id string, status PriceStatus) error {
	s, ok := f.submissions[id]
	if !ok {
		return ErrNotFound
	}
	s.Status = status
	f.submissions[id] = s
	return nil
}

func (f *fakeRepo) LatestActivePrice(_ context.Context, productID string) (PriceSubmission, error) {
	var best PriceSubmission
	found := false
	for _, s := range f.submissions {
		if s.ProductID != productID {
			continue
		}
		if s.Status != PriceActive && s.Status != PriceExpiring {
			continue
		}
		if !found || s.ValidFrom.After(best.ValidFrom) {
			best = s
			found = true
		}
	}
	if !found {
		return PriceSubmission{}, ErrNotFound
	}
	return best, nil
}

func (f *fakeRepo) MarkExpiring(_ context.Context, cutoff time.Time) (int, error) {
	n := 0
	for id, s := range f.submissions {
		if s.Status == PriceActive && !s.ValidTo.After(cutoff) {
			s.Status = PriceExpiring
			f.submissions[id] = s
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) ExpireDue(_ context.Context, now time.Time) (int, error) {
	n := 0
	for id, s := range f.submissions {
		if (s.Status == PriceActive || s.Status == PriceExpiring) && s.ValidTo.Before(now) {
			s.Status = PriceExpired
			f.submissions[id] = s
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) ListExpiringSoon(_ context.Context, cutoff time.Time) ([]PriceSubmission, error) {
	var out []PriceSubmission
	for _, s := range f.submissions {
		if (s.Status == PriceActive || s.Status == PriceExpiring) && !s.ValidTo.After(cutoff) {
			out = append(out, s)
		}
	}
	return out, nil
}

func TestCreateVendor(t *testing.T) {
	svc, _ := newFakeService()

	v, err := svc.CreateVendor(context.Background(), CreateVendorInput{
		Name:  "  Fresh Produce Co ",
		Email: "Sales@Fresh.Example",
	}, "admin-1")
	require.NoError(t, err)
	require.Equal(t, "Fresh Produce Co", v.Name)
	require.Equal(t, "sales@fresh.example", v.Email)
	require.Equal(t, VendorActive, v.Status)

	_, err = svc.CreateVendor(context.Background(), CreateVendorInput{
		Name:  "Duplicate",
		Email: "sales@fresh.example",
	}, "admin-1")
	require.ErrorIs(t, err, ErrDuplicate)

	_, err = svc.CreateVendor(context.Background(), CreateVendorInput{Name: "  "}, "admin-1")
	require.ErrorIs(t, err, ErrValidation)
}

func TestCampaignLifecycle(t *testing.T) {
	svc, _ := newFakeService()
	start := time.Now().UTC()

	c, err := svc.CreateCampaign(context.Background(), CreateCampaignInput{
		Name:           "Q4 produce prices",
		ScheduledStart: start,
		ScheduledEnd:   start.Add(14 * 24 * time.Hour),
		VendorIDs:      []string{"vendor-1", "vendor-2"},
		CreatedBy:      "mgr-1",
	})
	require.NoError(t, err)
	require.Equal(t, CampaignDraft, c.Status)

	// submissions rejected before activation
	_, err = svc.SubmitPrice(context.Background(), SubmitPriceInput{
		CampaignID: c.ID, VendorID: "vendor-1", ProductID: "prod-1",
		Price: 4.2, ValidFrom: start, ValidTo: start.Add(30 * 24 * time.Hour),
	})
	require.ErrorIs(t, err, ErrInvalidState)

	require.NoError(t, svc.ActivateCampaign(context.Background(), c.ID, "mgr-1"))
	require.ErrorIs(t, svc.ActivateCampaign(context.Background(), c.ID, "mgr-1"), ErrInvalidState)

	sub, err := svc.SubmitPrice(context.Background(), SubmitPriceInput{
		CampaignID: c.ID, VendorID: "vendor-1", ProductID: "prod-1",
		Price: 4.2, ValidFrom: start, ValidTo: start.Add(30 * 24 * time.Hour),
	})
	require.NoError(t, err)
	require.Equal(t, PricePending, sub.Status)
	require.Equal(t, "USD", sub.Currency)

	require.NoError(t, svc.CompleteCampaign(context.Background(), c.ID, "mgr-1"))

	got, err := svc.GetCampaign(context.Background(), c.ID)
	require.NoError(t, err)
	require.Equal(t, CampaignCompleted, got.Status)

	// pending submissions went live on completion
	price, err := svc.LatestActivePrice(context.Background(), "prod-1")
	require.NoError(t, err)
	require.Equal(t, PriceActive, price.Status)
	require.InDelta(t, 4.2, price.Price, 0.001)
}

func TestCancelCampaign(t *testing.T) {
	svc, _ := newFakeService()

	c, err := svc.CreateCampaign(context.Background(), CreateCampaignInput{
		Name:           "Cancelled round",
		ScheduledStart: time.Now(),
		VendorIDs:      []string{"vendor-1"},
	})
	require.NoError(t, err)
	require.NoError(t, svc.CancelCampaign(context.Background(), c.ID, "mgr-1"))
	require.ErrorIs(t, svc.CancelCampaign(context.Background(), c.ID, "mgr-1"), ErrInvalidState)
}

func TestSubmitPriceValidation(t *testing.T) {
	svc, _ := newFakeService()
	start := time.Now().UTC()

	c, err := svc.CreateCampaign(context.Background(), CreateCampaignInput{
		Name:           "Window checks",
		ScheduledStart: start,
		VendorIDs:      []string{"vendor-1"},
	})
	require.NoError(t, err)
	require.NoError(t, svc.ActivateCampaign(context.Background(), c.ID, "mgr-1"))

	_, err = svc.SubmitPrice(context.Background(), SubmitPriceInput{
		CampaignID: c.ID, VendorID: "vendor-1", ProductID: "prod-1",
		Price: 1, ValidFrom: start.Add(time.Hour), ValidTo: start,
	})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.SubmitPrice(context.Background(), SubmitPriceInput{
		CampaignID: c.ID, VendorID: "vendor-1", ProductID: "prod-1",
		Price: -1, ValidFrom: start, ValidTo: start.Add(time.Hour),
	})
	require.ErrorIs(t, err, ErrValidation)
}

func TestExpireDuePrices(t *testing.T) {
	svc, repo := newFakeService()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	seed := func(id string, status PriceStatus, validTo time.Time) {
		repo.submissions[id] = PriceSubmission{
			ID: id, ProductID: "prod-" + id, Status: status,
			ValidFrom: now.Add(-60 * 24 * time.Hour), ValidTo: validTo,
		}
	}
	seed("closed", PriceActive, now.Add(-time.Hour))
	seed("closing", PriceActive, now.Add(3*24*time.Hour))
	seed("healthy", PriceActive, now.Add(60*24*time.Hour))
	seed("already", PriceExpiring, now.Add(-24*time.Hour))

	marked, expired, err := svc.ExpireDuePrices(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, marked)  // closed + closing enter the window
	require.Equal(t, 2, expired) // closed + already have passed validTo

	require.Equal(t, PriceExpired, repo.submissions["closed"].Status)
	require.Equal(t, PriceExpiring, repo.submissions["closing"].Status)
	require.Equal(t, PriceActive, repo.submissions["healthy"].Status)
	require.Equal(t, PriceExpired, repo.submissions["already"].Status)

	soon, err := svc.ListExpiringSoon(context.Background())
	require.NoError(t, err)
	require.Len(t, soon, 1)
	require.Equal(t, "closing", soon[0].ID)
}

func newFakeService() (*Service, *fakeRepo) {
	repo := newFakeRepo()
	return NewService(repo, nil, nil), repo
}
