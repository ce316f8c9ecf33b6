// Package memory is an in-process implementation of the repository
// interfaces, used by service and handler tests.
package memory

import (
	"sync"

	"github.com/google/uuid"

	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/model"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/repository"
)

type attributeKey struct {
	visitID     uuid.UUID
	attributeID uuid.UUID
}

// Store holds every table behind one lock, so each repository call is atomic.
type Store struct {
	mu sync.Mutex

	persons       map[uuid.UUID]model.Person
	professionals map[uuid.UUID]model.Professional
	slots         map[uuid.UUID]model.AvailabilitySlot
	visits        map[uuid.UUID]model.Visit
	visitAttrs    map[attributeKey]model.VisitAttribute
	history       []model.VisitTransition
	affiliations  map[model.AffiliationKey]model.Affiliation
	claustros     []model.Claustro
	pairs         []model.DependencyArea
	vocabulary    []model.Attribute
	outbox        map[uuid.UUID]*model.OutboxEvent
	outboxOrder   []uuid.UUID

	failures map[string]error
}

func NewStore() *Store {
	return &Store{
		persons:       map[uuid.UUID]model.Person{},
		professionals: map[uuid.UUID]model.Professional{},
		slots:         map[uuid.UUID]model.AvailabilitySlot{},
		visits:        map[uuid.UUID]model.Visit{},
		visitAttrs:    map[attributeKey]model.VisitAttribute{},
		affiliations:  map[model.AffiliationKey]model.Affiliation{},
		outbox:        map[uuid.UUID]*model.OutboxEvent{},
		failures:      map[string]error{},
	}
}

// FailNext makes the next call of op return err. op is "<repo>.<method>",
// e.g. "visits.Update".
func (s *Store) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
}

// failure must be called with mu held.
func (s *Store) failure(op string) error {
	if err, ok := s.failures[op]; ok {
		delete(s.failures, op)
		return err
	}
	return nil
}

func (s *Store) AddPerson(p model.Person) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persons[p.ID] = p
}

func (s *Store) AddProfessional(p model.Professional) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.professionals[p.ID] = p
}

func (s *Store) AddClaustro(c model.Claustro) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claustros = append(s.claustros, c)
}

func (s *Store) AddDependencyArea(p model.DependencyArea) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pairs = append(s.pairs, p)
}

func (s *Store) AddAttribute(a model.Attribute) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vocabulary = append(s.vocabulary, a)
}

// Events returns the outbox rows in insertion order.
func (s *Store) Events() []model.OutboxEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.OutboxEvent, 0, len(s.outboxOrder))
	for _, id := range s.outboxOrder {
		if e, ok := s.outbox[id]; ok {
			out = append(out, *e)
		}
	}
	return out
}

// addEvent must be called with mu held.
func (s *Store) addEvent(event *model.OutboxEvent) {
	if event == nil {
		return
	}
	cp := *event
	s.outbox[event.ID] = &cp
	s.outboxOrder = append(s.outboxOrder, event.ID)
}

func (s *Store) Persons() repository.PersonRepository             { return personRepo{s} }
func (s *Store) Professionals() repository.ProfessionalRepository { return professionalRepo{s} }
func (s *Store) Availability() repository.AvailabilityRepository  { return availabilityRepo{s} }
func (s *Store) Visits() repository.VisitRepository               { return visitRepo{s} }
func (s *Store) Affiliations() repository.AffiliationRepository   { return affiliationRepo{s} }
func (s *Store) Catalog() repository.CatalogRepository            { return catalogRepo{s} }
func (s *Store) Outbox() repository.OutboxRepository              { return outboxRepo{s} }
