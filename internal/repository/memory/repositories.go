package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/model"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/repository"
)

type personRepo struct{ s *Store }

func (r personRepo) Get(_ context.Context, id uuid.UUID) (*model.Person, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("persons.Get"); err != nil {
		return nil, err
	}
	p, ok := r.s.persons[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

type professionalRepo struct{ s *Store }

func (r professionalRepo) Get(_ context.Context, id uuid.UUID) (*model.Professional, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("professionals.Get"); err != nil {
		return nil, err
	}
	p, ok := r.s.professionals[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r professionalRepo) SoftDelete(_ context.Context, id uuid.UUID, at time.Time, event *model.OutboxEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("professionals.SoftDelete"); err != nil {
		return err
	}
	p, ok := r.s.professionals[id]
	if !ok || p.IsDeleted() {
		return repository.ErrNotFound
	}
	p.DeletedAt = &at
	p.Status = model.ProfessionalStatusInactive
	p.UpdatedAt = at
	r.s.professionals[id] = p
	for slotID, slot := range r.s.slots {
		if slot.ProfessionalID == id {
			delete(r.s.slots, slotID)
		}
	}
	r.s.addEvent(event)
	return nil
}

type availabilityRepo struct{ s *Store }

// Create does not reject overlaps; callers serialize and check first.
func (r availabilityRepo) Create(_ context.Context, slot *model.AvailabilitySlot, event *model.OutboxEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("availability.Create"); err != nil {
		return err
	}
	if p, ok := r.s.professionals[slot.ProfessionalID]; !ok || p.IsDeleted() {
		return repository.ErrNotFound
	}
	if _, ok := r.s.slots[slot.ID]; ok {
		return repository.ErrDuplicate
	}
	r.s.slots[slot.ID] = *slot
	r.s.addEvent(event)
	return nil
}

func (r availabilityRepo) Get(_ context.Context, id uuid.UUID) (*model.AvailabilitySlot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	slot, ok := r.s.slots[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &slot, nil
}

func (r availabilityRepo) ListByProfessional(_ context.Context, professionalID uuid.UUID) ([]*model.AvailabilitySlot, error) {
	return r.list(func(slot model.AvailabilitySlot) bool {
		return slot.ProfessionalID == professionalID
	}, "availability.ListByProfessional")
}

func (r availabilityRepo) ListByWeekday(_ context.Context, professionalID uuid.UUID, weekday model.Weekday) ([]*model.AvailabilitySlot, error) {
	return r.list(func(slot model.AvailabilitySlot) bool {
		return slot.ProfessionalID == professionalID && slot.Weekday == weekday
	}, "availability.ListByWeekday")
}

func (r availabilityRepo) list(match func(model.AvailabilitySlot) bool, op string) ([]*model.AvailabilitySlot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure(op); err != nil {
		return nil, err
	}
	out := []*model.AvailabilitySlot{}
	for _, slot := range r.s.slots {
		if match(slot) {
			cp := slot
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weekday != out[j].Weekday {
			return out[i].Weekday < out[j].Weekday
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out, nil
}

func (r availabilityRepo) Delete(_ context.Context, id uuid.UUID, event *model.OutboxEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("availability.Delete"); err != nil {
		return err
	}
	if _, ok := r.s.slots[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.slots, id)
	r.s.addEvent(event)
	return nil
}

type visitRepo struct{ s *Store }

func (r visitRepo) Create(_ context.Context, visit *model.Visit, transition *model.VisitTransition, event *model.OutboxEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("visits.Create"); err != nil {
		return err
	}
	if _, ok := r.s.visits[visit.ID]; ok {
		return repository.ErrDuplicate
	}
	r.s.visits[visit.ID] = *visit
	if transition != nil {
		r.s.history = append(r.s.history, *transition)
	}
	r.s.addEvent(event)
	return nil
}

func (r visitRepo) Get(_ context.Context, id uuid.UUID) (*model.Visit, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("visits.Get"); err != nil {
		return nil, err
	}
	v, ok := r.s.visits[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &v, nil
}

func (r visitRepo) List(_ context.Context, filters *model.VisitFilters) ([]*model.Visit, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*model.Visit{}
	for _, v := range r.s.visits {
		if filters.PersonID != uuid.Nil && v.PersonID != filters.PersonID {
			continue
		}
		if filters.ProfessionalID != uuid.Nil && v.ProfessionalID != filters.ProfessionalID {
			continue
		}
		if filters.Status != "" && v.Status != filters.Status {
			continue
		}
		if !filters.From.IsZero() && v.Date.Before(filters.From) {
			continue
		}
		if !filters.To.IsZero() && v.Date.After(filters.To) {
			continue
		}
		cp := v
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ArrivalTime.Before(out[j].ArrivalTime)
	})

	start := filters.Offset()
	if start > len(out) {
		return []*model.Visit{}, nil
	}
	end := start + filters.Limit()
	if end > len(out) {
		end = len(out)
	}
	return out[start:end], nil
}

func (r visitRepo) Update(_ context.Context, visit *model.Visit, transition *model.VisitTransition, event *model.OutboxEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("visits.Update"); err != nil {
		return err
	}
	stored, ok := r.s.visits[visit.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.Version != visit.Version {
		return repository.ErrVersionConflict
	}
	visit.Version++
	r.s.visits[visit.ID] = *visit
	if transition != nil {
		r.s.history = append(r.s.history, *transition)
	}
	r.s.addEvent(event)
	return nil
}

func (r visitRepo) UpsertAttribute(_ context.Context, attr *model.VisitAttribute) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("visits.UpsertAttribute"); err != nil {
		return err
	}
	if _, ok := r.s.visits[attr.VisitID]; !ok {
		return repository.ErrInvalidReference
	}
	r.s.visitAttrs[attributeKey{attr.VisitID, attr.AttributeID}] = *attr
	return nil
}

func (r visitRepo) ListAttributes(_ context.Context, visitID uuid.UUID) ([]*model.VisitAttribute, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*model.VisitAttribute{}
	for k, a := range r.s.visitAttrs {
		if k.visitID == visitID {
			cp := a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecordedAt.Before(out[j].RecordedAt) })
	return out, nil
}

func (r visitRepo) ListHistory(_ context.Context, visitID uuid.UUID) ([]*model.VisitTransition, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*model.VisitTransition{}
	for _, t := range r.s.history {
		if t.VisitID == visitID {
			cp := t
			out = append(out, &cp)
		}
	}
	return out, nil
}

type affiliationRepo struct{ s *Store }

func (r affiliationRepo) CreateBatch(_ context.Context, affiliations []*model.Affiliation, event *model.OutboxEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("affiliations.CreateBatch"); err != nil {
		return err
	}
	seen := map[model.AffiliationKey]bool{}
	for _, a := range affiliations {
		if _, ok := r.s.affiliations[a.AffiliationKey]; ok || seen[a.AffiliationKey] {
			return repository.ErrDuplicate
		}
		seen[a.AffiliationKey] = true
	}
	for _, a := range affiliations {
		r.s.affiliations[a.AffiliationKey] = *a
	}
	r.s.addEvent(event)
	return nil
}

func (r affiliationRepo) ListByPerson(_ context.Context, personID uuid.UUID) ([]*model.Affiliation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*model.Affiliation{}
	for _, a := range r.s.affiliations {
		if a.PersonID == personID {
			cp := a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EnrollmentDate.Before(out[j].EnrollmentDate) })
	return out, nil
}

func (r affiliationRepo) UpdateStatus(_ context.Context, key model.AffiliationKey, status model.AffiliationStatus, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.affiliations[key]
	if !ok {
		return repository.ErrNotFound
	}
	a.Status = status
	a.UpdatedAt = at
	r.s.affiliations[key] = a
	return nil
}

func (r affiliationRepo) Delete(_ context.Context, key model.AffiliationKey) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.affiliations[key]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.affiliations, key)
	return nil
}

type catalogRepo struct{ s *Store }

func (r catalogRepo) ListClaustros(_ context.Context) ([]*model.Claustro, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("catalog.ListClaustros"); err != nil {
		return nil, err
	}
	out := make([]*model.Claustro, 0, len(r.s.claustros))
	for i := range r.s.claustros {
		cp := r.s.claustros[i]
		out = append(out, &cp)
	}
	return out, nil
}

func (r catalogRepo) ListDependencyAreas(_ context.Context) ([]*model.DependencyArea, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*model.DependencyArea, 0, len(r.s.pairs))
	for i := range r.s.pairs {
		cp := r.s.pairs[i]
		out = append(out, &cp)
	}
	return out, nil
}

func (r catalogRepo) CreateDependencyArea(_ context.Context, pair *model.DependencyArea) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.pairs {
		if p.Key() == pair.Key() {
			return repository.ErrDuplicate
		}
	}
	r.s.pairs = append(r.s.pairs, *pair)
	return nil
}

func (r catalogRepo) ListAttributes(_ context.Context) ([]*model.Attribute, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*model.Attribute, 0, len(r.s.vocabulary))
	for i := range r.s.vocabulary {
		cp := r.s.vocabulary[i]
		out = append(out, &cp)
	}
	return out, nil
}

type outboxRepo struct{ s *Store }

func (r outboxRepo) Create(_ context.Context, event *model.OutboxEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("outbox.Create"); err != nil {
		return err
	}
	r.s.addEvent(event)
	return nil
}

func (r outboxRepo) GetPendingEvents(_ context.Context, limit int, now time.Time) ([]*model.OutboxEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*model.OutboxEvent{}
	for _, id := range r.s.outboxOrder {
		e, ok := r.s.outbox[id]
		if !ok || len(out) >= limit {
			continue
		}
		due := e.Status == string(model.OutboxStatusPending) ||
			(e.Status == string(model.OutboxStatusFailed) && e.RetryAt != nil && !e.RetryAt.After(now))
		if due {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r outboxRepo) MarkProcessed(_ context.Context, id uuid.UUID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.outbox[id]
	if !ok {
		return repository.ErrNotFound
	}
	e.Status = string(model.OutboxStatusProcessed)
	e.ProcessedAt = &at
	e.UpdatedAt = at
	return nil
}

func (r outboxRepo) MarkFailed(_ context.Context, id uuid.UUID, errorMessage string, retryAt *time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.outbox[id]
	if !ok {
		return repository.ErrNotFound
	}
	e.Status = string(model.OutboxStatusFailed)
	e.ErrorMessage = &errorMessage
	e.RetryAt = retryAt
	e.RetryCount++
	return nil
}

func (r outboxRepo) DeleteProcessedBefore(_ context.Context, before time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, e := range r.s.outbox {
		if e.Status == string(model.OutboxStatusProcessed) && e.ProcessedAt != nil && e.ProcessedAt.Before(before) {
			delete(r.s.outbox, id)
			n++
		}
	}
	return n, nil
}
