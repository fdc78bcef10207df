package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/epcr-service/internal/audit"
	"github.com/spec-kit/epcr-service/internal/domain"
	"github.com/spec-kit/epcr-service/internal/events"
	"github.com/spec-kit/epcr-service/internal/policy"
	"github.com/spec-kit/epcr-service/internal/repository"
)

var (
	eventStart = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	testNow    = time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)
)

const (
	fixtureEventID      = "6f1c2a9e-3b7d-4c1e-9a55-0d2f8e7b1a01"
	fixtureOtherEventID = "6f1c2a9e-3b7d-4c1e-9a55-0d2f8e7b1a02"
	emtID               = "b2d4f6a8-1c3e-4a5b-8d7f-9e0a1b2c3d01"
	otherEMTID          = "b2d4f6a8-1c3e-4a5b-8d7f-9e0a1b2c3d02"
	adminID             = "b2d4f6a8-1c3e-4a5b-8d7f-9e0a1b2c3d03"
	unknownID           = "00000000-0000-4000-8000-000000000000"
)

type memStore struct {
	mu          sync.Mutex
	users       map[string]*domain.User
	venues      map[string]*domain.Venue
	events      map[string]*domain.Event
	assignments map[string]domain.StaffAssignment
	patients    map[string]*domain.Patient
	assessments map[string]*domain.Assessment
	// forceConflict makes the next conditional update lose the race.
	forceConflict bool
}

func newMemStore() *memStore {
	return &memStore{
		users:       map[string]*domain.User{},
		venues:      map[string]*domain.Venue{},
		events:      map[string]*domain.Event{},
		assignments: map[string]domain.StaffAssignment{},
		patients:    map[string]*domain.Patient{},
		assessments: map[string]*domain.Assessment{},
	}
}

func assignmentID(eventID, userID string) string { return eventID + "/" + userID }

// users

type memUsers struct{ *memStore }

func (m memUsers) Create(ctx context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.ID = uuid.NewString()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m memUsers) UpdateRole(ctx context.Context, id string, role domain.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	u.Role = role
	return nil
}

func (m memUsers) GetByID(ctx context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (m memUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m memUsers) List(ctx context.Context, f repository.UserFilter) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.User
	for _, u := range m.users {
		if f.Role == nil || u.Role == *f.Role {
			out = append(out, *u)
		}
	}
	return out, nil
}

// venues

type memVenues struct{ *memStore }

func (m memVenues) Create(ctx context.Context, v *domain.Venue) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v.ID = uuid.NewString()
	cp := *v
	m.venues[v.ID] = &cp
	return nil
}

func (m memVenues) GetByID(ctx context.Context, id string) (*domain.Venue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.venues[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *v
	return &cp, nil
}

func (m memVenues) List(ctx context.Context) ([]domain.Venue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Venue
	for _, v := range m.venues {
		out = append(out, *v)
	}
	return out, nil
}

// events

type memEvents struct{ *memStore }

func (m memEvents) Create(ctx context.Context, e *domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = uuid.NewString()
	cp := *e
	m.events[e.ID] = &cp
	return nil
}

func (m memEvents) Update(ctx context.Context, e *domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[e.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *e
	m.events[e.ID] = &cp
	return nil
}

func (m memEvents) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.events, id)
	return nil
}

func (m memEvents) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *e
	return &cp, nil
}

func (m memEvents) List(ctx context.Context, limit, offset int) ([]domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Event
	for _, e := range m.events {
		out = append(out, *e)
	}
	return out, nil
}

func (m memEvents) ListForUser(ctx context.Context, userID string, limit, offset int) ([]domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Event
	for _, e := range m.events {
		if _, ok := m.assignments[assignmentID(e.ID, userID)]; ok {
			out = append(out, *e)
		}
	}
	return out, nil
}

// assignments

type memAssignments struct{ *memStore }

func (m memAssignments) Create(ctx context.Context, a *domain.StaffAssignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.CreatedAt = testNow
	m.assignments[assignmentID(a.EventID, a.UserID)] = *a
	return nil
}

func (m memAssignments) Delete(ctx context.Context, eventID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := assignmentID(eventID, userID)
	if _, ok := m.assignments[key]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.assignments, key)
	return nil
}

func (m memAssignments) Exists(ctx context.Context, eventID, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.assignments[assignmentID(eventID, userID)]
	return ok, nil
}

func (m memAssignments) ListByEvent(ctx context.Context, eventID string) ([]domain.StaffAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.StaffAssignment
	for _, a := range m.assignments {
		if a.EventID == eventID {
			out = append(out, a)
		}
	}
	return out, nil
}

// patients

// memPatients stores timestamps as given, like the SQL repository.
type memPatients struct{ *memStore }

func (m memPatients) CreateWithAssessment(ctx context.Context, p *domain.Patient, a *domain.Assessment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = uuid.NewString()
	a.PatientID = p.ID
	a.Version = 1
	pc, ac := *p, *a
	m.patients[p.ID] = &pc
	m.assessments[p.ID] = &ac
	return nil
}

func (m memPatients) GetByID(ctx context.Context, id string) (*domain.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.patients[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *p
	return &cp, nil
}

func (m memPatients) ListByEvent(ctx context.Context, eventID string, f repository.PatientFilter) ([]domain.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Patient
	for _, p := range m.patients {
		if p.EventID == eventID && (f.TriageTag == nil || p.TriageTag == *f.TriageTag) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	limit, offset := repository.NormalizePage(f.Limit, f.Offset)
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m memPatients) UpdateTriage(ctx context.Context, id string, tag domain.TriageTag, at time.Time) (*domain.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.patients[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	p.TriageTag = tag
	p.UpdatedAt = at
	cp := *p
	return &cp, nil
}

func (m memPatients) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.patients[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.patients, id)
	delete(m.assessments, id)
	return nil
}

// assessments

type memAssessments struct{ *memStore }

func (m memAssessments) GetByPatientID(ctx context.Context, patientID string) (*domain.Assessment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assessments[patientID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (m memAssessments) UpdateIfVersion(ctx context.Context, a *domain.Assessment, expected int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.assessments[a.PatientID]
	if !ok {
		return pgx.ErrNoRows
	}
	if m.forceConflict {
		m.forceConflict = false
		stored.Version++
	}
	if stored.Version != expected {
		return domain.ErrVersionConflict
	}
	a.Version = expected + 1
	cp := *a
	m.assessments[a.PatientID] = &cp
	return nil
}

// audit and events

type auditLog struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
}

func (l *auditLog) Record(ctx context.Context, e *domain.AuditEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, *e)
	return nil
}

func (l *auditLog) last() domain.AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.entries[len(l.entries)-1]
}

func (l *auditLog) count(outcome domain.AuditOutcome) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.entries {
		if e.Outcome == outcome {
			n++
		}
	}
	return n
}

type eventLog struct {
	mu        sync.Mutex
	published []events.Event
}

func (l *eventLog) Publish(ctx context.Context, e events.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.published = append(l.published, e)
	return nil
}

func (l *eventLog) Subscribe(events.EventType, events.EventHandler) {}

func (l *eventLog) types() []events.EventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []events.EventType
	for _, e := range l.published {
		out = append(out, e.Type)
	}
	return out
}

// fixture wires every service over one in-memory store.
type fixture struct {
	store       *memStore
	audits      *auditLog
	published   *eventLog
	gate        *Gate
	patients    *PatientService
	assessments *AssessmentService
	events      *EventService
	users       *UserService

	event *domain.Event
	emt   policy.Actor
	other policy.Actor
	admin policy.Actor
}

func newFixture() *fixture {
	store := newMemStore()
	clock := policy.FixedClock(testNow)
	audits := &auditLog{}
	published := &eventLog{}

	gate := NewGate(GateDependencies{
		Controller:  policy.NewAccessController(time.UTC),
		Assignments: NewAssignmentLookup(memAssignments{store}),
		EventRepo:   memEvents{store},
		PatientRepo: memPatients{store},
		Clock:       clock,
		Auditor:     audit.NewAuditor(audits, nil, clock.Now),
	})

	f := &fixture{
		store:     store,
		audits:    audits,
		published: published,
		gate:      gate,
		patients: NewPatientService(PatientDependencies{
			Gate:        gate,
			PatientRepo: memPatients{store},
			Dispatcher:  published,
		}),
		assessments: NewAssessmentService(AssessmentDependencies{
			Gate:           gate,
			AssessmentRepo: memAssessments{store},
			Dispatcher:     published,
		}),
		events: NewEventService(EventDependencies{
			Gate:           gate,
			EventRepo:      memEvents{store},
			VenueRepo:      memVenues{store},
			UserRepo:       memUsers{store},
			AssignmentRepo: memAssignments{store},
			Dispatcher:     published,
		}),
		users: NewUserService(memUsers{store}, gate),
		emt:   policy.Actor{ID: emtID, Role: domain.RoleEMT},
		other: policy.Actor{ID: otherEMTID, Role: domain.RoleEMT},
		admin: policy.Actor{ID: adminID, Role: domain.RoleAdmin},
	}

	f.event = &domain.Event{ID: fixtureEventID, Name: "Marathon", StartDate: eventStart, EndDate: eventStart.Add(48 * time.Hour), Timezone: "UTC"}
	store.events[f.event.ID] = f.event
	store.assignments[assignmentID(f.event.ID, f.emt.ID)] = domain.StaffAssignment{UserID: f.emt.ID, EventID: f.event.ID, Role: domain.RoleEMT}
	return f
}

// addPatient stores a patient of eventID created at createdAt with an incomplete
// assessment at version 1.
func (f *fixture) addPatient(eventID string, createdAt time.Time) string {
	id := uuid.NewString()
	f.store.patients[id] = &domain.Patient{ID: id, EventID: eventID, CreatedAt: createdAt, CreatedBy: f.emt.ID}
	f.store.assessments[id] = &domain.Assessment{PatientID: id, Status: domain.AssessmentIncomplete, Version: 1}
	return id
}
