// Package memory реализует store.Store в памяти процесса.
// Используется в тестах и при STORAGE=memory.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/Freeeeeet/mentor_match/internal/apperr"
	"github.com/Freeeeeet/mentor_match/internal/availability"
	"github.com/Freeeeeet/mentor_match/internal/model"
	"github.com/Freeeeeet/mentor_match/internal/store"
)

type data struct {
	seq          map[string]int64
	users        map[int64]model.User
	availability map[int64][]availability.Interval
	requests     map[int64]model.Request
	proposals    map[int64]model.Proposal
	meetings     map[int64]model.Meeting
}

func newData() *data {
	return &data{
		seq:          make(map[string]int64),
		users:        make(map[int64]model.User),
		availability: make(map[int64][]availability.Interval),
		requests:     make(map[int64]model.Request),
		proposals:    make(map[int64]model.Proposal),
		meetings:     make(map[int64]model.Meeting),
	}
}

func (d *data) next(table string) int64 {
	d.seq[table]++
	return d.seq[table]
}

// clone копирует состояние для отката транзакции
func (d *data) clone() *data {
	c := newData()
	for k, v := range d.seq {
		c.seq[k] = v
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.availability {
		c.availability[k] = slices.Clone(v)
	}
	for k, v := range d.requests {
		c.requests[k] = v
	}
	for k, v := range d.proposals {
		c.proposals[k] = v.Clone()
	}
	for k, v := range d.meetings {
		c.meetings[k] = v
	}
	return c
}

// Store потокобезопасное хранилище. Транзакции сериализуются одним мьютексом.
type Store struct {
	mu   sync.Mutex
	data *data
}

func New() *Store {
	return &Store{data: newData()}
}

func (s *Store) Repos() store.Repositories {
	return s.repos(false)
}

// InTx выполняет fn под эксклюзивной блокировкой и восстанавливает снимок при ошибке
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, repos store.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(ctx, s.repos(true)); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

func (s *Store) repos(inTx bool) store.Repositories {
	base := repo{store: s, inTx: inTx}
	return store.Repositories{
		Users:        &userRepo{base},
		Availability: &availabilityRepo{base},
		Requests:     &requestRepo{base},
		Proposals:    &proposalRepo{base},
		Meetings:     &meetingRepo{base},
	}
}

type repo struct {
	store *Store
	inTx  bool
}

// do выполняет fn над состоянием; вне транзакции берёт блокировку сам
func (r repo) do(fn func(d *data) error) error {
	if !r.inTx {
		r.store.mu.Lock()
		defer r.store.mu.Unlock()
	}
	return fn(r.store.data)
}

// ============ Users ============

type userRepo struct{ repo }

func (r *userRepo) Create(ctx context.Context, user *model.User) error {
	return r.do(func(d *data) error {
		for _, u := range d.users {
			if strings.EqualFold(u.Email, user.Email) {
				return apperr.Validation("email %s is already registered", user.Email)
			}
		}
		user.ID = d.next("users")
		d.users[user.ID] = *user
		return nil
	})
}

func (r *userRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	var out *model.User
	err := r.do(func(d *data) error {
		if u, ok := d.users[id]; ok {
			out = &u
		}
		return nil
	})
	return out, err
}

func (r *userRepo) GetByIDs(ctx context.Context, ids []int64) ([]*model.User, error) {
	var out []*model.User
	err := r.do(func(d *data) error {
		for _, id := range ids {
			if u, ok := d.users[id]; ok {
				out = append(out, &u)
			}
		}
		return nil
	})
	return out, err
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.find(func(u model.User) bool { return strings.EqualFold(u.Email, email) })
}

func (r *userRepo) GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	return r.find(func(u model.User) bool { return u.TelegramID != nil && *u.TelegramID == telegramID })
}

func (r *userRepo) find(match func(model.User) bool) (*model.User, error) {
	var out *model.User
	err := r.do(func(d *data) error {
		for _, u := range d.users {
			if match(u) {
				out = &u
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *userRepo) ListByRole(ctx context.Context, role model.Role) ([]*model.User, error) {
	var out []*model.User
	err := r.do(func(d *data) error {
		for _, u := range d.users {
			if u.Role == role {
				out = append(out, &u)
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b *model.User) int { return cmp.Compare(a.ID, b.ID) })
	return out, err
}

func (r *userRepo) SetTelegramID(ctx context.Context, userID int64, telegramID int64) error {
	return r.do(func(d *data) error {
		u, ok := d.users[userID]
		if !ok {
			return fmt.Errorf("user not found")
		}
		for id, other := range d.users {
			if id != userID && other.TelegramID != nil && *other.TelegramID == telegramID {
				other.TelegramID = nil
				d.users[id] = other
			}
		}
		tg := telegramID
		u.TelegramID = &tg
		d.users[userID] = u
		return nil
	})
}

// ============ Availability ============

type availabilityRepo struct{ repo }

func (r *availabilityRepo) ListByUser(ctx context.Context, userID int64) ([]availability.Interval, error) {
	var out []availability.Interval
	err := r.do(func(d *data) error {
		out = slices.Clone(d.availability[userID])
		return nil
	})
	if out == nil {
		out = []availability.Interval{}
	}
	return out, err
}

func (r *availabilityRepo) Replace(ctx context.Context, userID int64, intervals []availability.Interval) error {
	return r.do(func(d *data) error {
		d.availability[userID] = availability.Normalize(intervals)
		return nil
	})
}

// ============ Requests ============

type requestRepo struct{ repo }

func (r *requestRepo) Create(ctx context.Context, req *model.Request) error {
	return r.do(func(d *data) error {
		for _, existing := range d.requests {
			if existing.StudentID == req.StudentID && existing.MentorID == req.MentorID {
				return apperr.DuplicateRequest("request to mentor %d already exists", req.MentorID)
			}
		}
		req.ID = d.next("requests")
		d.requests[req.ID] = *req
		return nil
	})
}

func (r *requestRepo) GetByID(ctx context.Context, id int64) (*model.Request, error) {
	var out *model.Request
	err := r.do(func(d *data) error {
		if req, ok := d.requests[id]; ok {
			out = &req
		}
		return nil
	})
	return out, err
}

func (r *requestRepo) GetByIDForUpdate(ctx context.Context, id int64) (*model.Request, error) {
	return r.GetByID(ctx, id)
}

func (r *requestRepo) GetByPair(ctx context.Context, studentID, mentorID int64) (*model.Request, error) {
	var out *model.Request
	err := r.do(func(d *data) error {
		for _, req := range d.requests {
			if req.StudentID == studentID && req.MentorID == mentorID {
				out = &req
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *requestRepo) ListByUser(ctx context.Context, userID int64) ([]*model.Request, error) {
	var out []*model.Request
	err := r.do(func(d *data) error {
		for _, req := range d.requests {
			if req.IsParticipant(userID) {
				out = append(out, &req)
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b *model.Request) int { return cmp.Compare(b.ID, a.ID) })
	return out, err
}

func (r *requestRepo) Update(ctx context.Context, req *model.Request, expected model.RequestStatus) error {
	return r.do(func(d *data) error {
		current, ok := d.requests[req.ID]
		if !ok {
			return fmt.Errorf("request not found")
		}
		if current.Status != expected {
			return apperr.InvalidTransition("request %d is %s, expected %s", req.ID, current.Status, expected)
		}
		d.requests[req.ID] = *req
		return nil
	})
}

// ============ Proposals ============

type proposalRepo struct{ repo }

func (r *proposalRepo) Create(ctx context.Context, p *model.Proposal) error {
	return r.do(func(d *data) error {
		if p.RequestID != nil {
			for _, existing := range d.proposals {
				if existing.RequestID != nil && *existing.RequestID == *p.RequestID {
					return apperr.InvalidTransition("request %d already has a proposal", *p.RequestID)
				}
			}
		}
		p.ID = d.next("proposals")
		d.proposals[p.ID] = p.Clone()
		return nil
	})
}

func (r *proposalRepo) GetByID(ctx context.Context, id int64) (*model.Proposal, error) {
	var out *model.Proposal
	err := r.do(func(d *data) error {
		if p, ok := d.proposals[id]; ok {
			c := p.Clone()
			out = &c
		}
		return nil
	})
	return out, err
}

func (r *proposalRepo) GetByIDForUpdate(ctx context.Context, id int64) (*model.Proposal, error) {
	return r.GetByID(ctx, id)
}

func (r *proposalRepo) ListByUser(ctx context.Context, userID int64) ([]*model.Proposal, error) {
	var out []*model.Proposal
	err := r.do(func(d *data) error {
		for _, p := range d.proposals {
			if p.IsParticipant(userID) {
				c := p.Clone()
				out = append(out, &c)
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b *model.Proposal) int { return cmp.Compare(b.ID, a.ID) })
	return out, err
}

func (r *proposalRepo) Update(ctx context.Context, p *model.Proposal, expected model.ProposalStatus) error {
	return r.do(func(d *data) error {
		current, ok := d.proposals[p.ID]
		if !ok {
			return fmt.Errorf("proposal not found")
		}
		if current.Status != expected {
			return apperr.InvalidTransition("proposal %d is %s, expected %s", p.ID, current.Status, expected)
		}
		d.proposals[p.ID] = p.Clone()
		return nil
	})
}

// ============ Meetings ============

type meetingRepo struct{ repo }

func (r *meetingRepo) Create(ctx context.Context, m *model.Meeting) error {
	return r.do(func(d *data) error {
		if m.ProposalID != nil {
			for _, existing := range d.meetings {
				if existing.ProposalID != nil && *existing.ProposalID == *m.ProposalID {
					return apperr.InvalidTransition("proposal %d already has a meeting", *m.ProposalID)
				}
			}
		}
		m.ID = d.next("meetings")
		d.meetings[m.ID] = *m
		return nil
	})
}

func (r *meetingRepo) GetByID(ctx context.Context, id int64) (*model.Meeting, error) {
	var out *model.Meeting
	err := r.do(func(d *data) error {
		if m, ok := d.meetings[id]; ok {
			out = &m
		}
		return nil
	})
	return out, err
}

func (r *meetingRepo) GetByIDForUpdate(ctx context.Context, id int64) (*model.Meeting, error) {
	return r.GetByID(ctx, id)
}

func (r *meetingRepo) ListByUser(ctx context.Context, userID int64) ([]*model.Meeting, error) {
	var out []*model.Meeting
	err := r.do(func(d *data) error {
		for _, m := range d.meetings {
			if m.IsParticipant(userID) {
				out = append(out, &m)
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b *model.Meeting) int { return a.Start.Compare(b.Start) })
	return out, err
}

func (r *meetingRepo) UpdateStatus(ctx context.Context, m *model.Meeting, expected model.MeetingStatus) error {
	return r.do(func(d *data) error {
		current, ok := d.meetings[m.ID]
		if !ok {
			return fmt.Errorf("meeting not found")
		}
		if current.Status != expected {
			return apperr.InvalidTransition("meeting %d is %s, expected %s", m.ID, current.Status, expected)
		}
		current.Status = m.Status
		current.UpdatedAt = m.UpdatedAt
		d.meetings[m.ID] = current
		return nil
	})
}

func (r *meetingRepo) SetLinkIfEmpty(ctx context.Context, meetingID int64, link string) (string, error) {
	var out string
	err := r.do(func(d *data) error {
		current, ok := d.meetings[meetingID]
		if !ok {
			return fmt.Errorf("meeting not found")
		}
		if current.MeetLink == "" {
			current.MeetLink = link
			d.meetings[meetingID] = current
		}
		out = current.MeetLink
		return nil
	})
	return out, err
}
