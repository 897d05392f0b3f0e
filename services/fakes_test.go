package services

import (
	"context"
	"errors"
	"net/http"
	"sync"

	apperrors "curation-bff/common/errors"
	"curation-bff/events"
	"curation-bff/models"

	"go.uber.org/zap"
)

type fakeStore struct {
	mu         sync.Mutex
	products   map[string]*models.ScrapedProduct
	updates    []models.StatusUpdate
	failUpdate map[string]error
	deleted    []string
	calls      int
}

func newFakeStore(products ...*models.ScrapedProduct) *fakeStore {
	s := &fakeStore{products: map[string]*models.ScrapedProduct{}, failUpdate: map[string]error{}}
	for _, p := range products {
		s.products[p.ID] = p
	}
	return s
}

func (s *fakeStore) GetProduct(_ context.Context, id string) (*models.ScrapedProduct, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	p, ok := s.products[id]
	if !ok {
		return nil, apperrors.NotFound("Product %s not found", id)
	}
	cp := *p
	return &cp, nil
}

func (s *fakeStore) UpdateStatus(_ context.Context, id string, u models.StatusUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if err := s.failUpdate[id]; err != nil {
		return err
	}
	p, ok := s.products[id]
	if !ok {
		return apperrors.Upstream(http.StatusNotFound, "not found", nil)
	}
	s.updates = append(s.updates, u)
	p.CurationStatus = u.CurationStatus
	p.CuratedData = u.CuratedData
	p.Notes = u.Notes
	return nil
}

func (s *fakeStore) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if _, ok := s.products[id]; !ok {
		return apperrors.Upstream(http.StatusNotFound, "Product not found", map[string]interface{}{"error": "Product not found"})
	}
	delete(s.products, id)
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *fakeStore) status(id string) models.CurationStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id].CurationStatus
}

func (s *fakeStore) product(id string) models.ScrapedProduct {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.products[id]
}

type fakeJobs struct {
	jobs      map[string]*models.CurationJob
	submitted [][]string
	nextID    string
	submitErr error
}

func (j *fakeJobs) Submit(_ context.Context, ids []string, _ string) (*models.CurationJob, error) {
	if j.submitErr != nil {
		return nil, j.submitErr
	}
	j.submitted = append(j.submitted, ids)
	job := &models.CurationJob{JobID: j.nextID, ProductIDs: ids, Status: models.JobStatusPending}
	if j.jobs == nil {
		j.jobs = map[string]*models.CurationJob{}
	}
	j.jobs[job.JobID] = job
	return job, nil
}

func (j *fakeJobs) Get(_ context.Context, id string) (*models.CurationJob, error) {
	job, ok := j.jobs[id]
	if !ok {
		return nil, apperrors.NotFound("Curation job %s not found", id)
	}
	cp := *job
	if cp.Status != models.JobStatusCompleted {
		cp.Results = nil
	}
	return &cp, nil
}

type fakeCategorizer struct {
	result *models.CategorizationResult
	err    error
}

func (c *fakeCategorizer) Categorize(context.Context, *models.ScrapedProduct) (*models.CategorizationResult, error) {
	return c.result, c.err
}

type fakeCatalog struct {
	created []models.CatalogProduct
	err     error
	id      string
}

func (c *fakeCatalog) CreateProduct(_ context.Context, payload models.CatalogProduct) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	c.created = append(c.created, payload)
	return c.id, nil
}

type recordingEvents struct {
	mu     sync.Mutex
	events []events.CurationEvent
}

func (r *recordingEvents) Publish(_ context.Context, e events.CurationEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingEvents) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType)
	}
	return out
}

type fixture struct {
	store    *fakeStore
	jobs     *fakeJobs
	cat      *fakeCategorizer
	catalog  *fakeCatalog
	events   *recordingEvents
	curation CurationService
	bulk     BulkService
	deps     Dependencies
}

func newFixture(autoApprove bool, products ...*models.ScrapedProduct) *fixture {
	f := &fixture{
		store:   newFakeStore(products...),
		jobs:    &fakeJobs{nextID: "J1"},
		cat:     &fakeCategorizer{result: &models.CategorizationResult{}},
		catalog: &fakeCatalog{id: "global-1"},
		events:  &recordingEvents{},
	}
	f.deps = Dependencies{
		Store:       f.store,
		Jobs:        f.jobs,
		Categorizer: f.cat,
		Catalog:     f.catalog,
		Events:      f.events,
		Logger:      zap.NewNop(),
	}
	f.curation, f.bulk = New(f.deps, NewBulkCoordinator(1, zap.NewNop()), autoApprove)
	return f
}

func product(id string, status models.CurationStatus) *models.ScrapedProduct {
	p := &models.ScrapedProduct{
		ID:             id,
		Source:         "mercadolibre",
		ExternalID:     "ext-" + id,
		Name:           "Producto " + id,
		Description:    "Descripcion " + id,
		Price:          1999.5,
		Currency:       "ARS",
		Images:         []string{"https://img.example.com/" + id + ".jpg"},
		CurationStatus: status,
	}
	if status.HasCuratedData() {
		p.CuratedData = &models.CuratedData{Name: p.Name, SKU: "SCR-" + id, BrandName: "Acme", CategoryName: "Hogar"}
	}
	return p
}

var errDownstream = errors.New("downstream unavailable")
