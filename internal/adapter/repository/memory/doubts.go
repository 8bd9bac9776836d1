package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"studyhub/internal/domain/entity"
	"studyhub/internal/domain/repository"
	"studyhub/pkg/errors"
)

type doubtRepository struct {
	store *Store
}

func NewDoubtRepository(store *Store) repository.DoubtRepository {
	return &doubtRepository{store: store}
}

func (r *doubtRepository) Create(ctx context.Context, doubt *entity.Doubt) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failure("doubts.create"); err != nil {
		return errors.BackendUnavailable("Failed to create doubt", err)
	}
	if doubt.ID == "" {
		doubt.ID = uuid.New().String()
	}
	if doubt.CreatedAt.IsZero() {
		doubt.CreatedAt = s.stamp()
	}
	s.doubts[doubt.ID] = cloneDoubt(doubt)
	return nil
}

func (r *doubtRepository) GetByID(ctx context.Context, id string) (*entity.Doubt, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failure("doubts.get"); err != nil {
		return nil, errors.BackendUnavailable("Failed to get doubt", err)
	}
	d, ok := s.doubts[id]
	if !ok {
		return nil, errors.NotFound("Doubt", nil)
	}
	return cloneDoubt(d), nil
}

func (r *doubtRepository) ClaimUnassigned(ctx context.Context, doubtID, facultyID string) (bool, error) {
	s := r.store
	s.mu.Lock()

	if err := s.failure("doubts.claim"); err != nil {
		s.mu.Unlock()
		return false, errors.BackendUnavailable("Failed to claim doubt", err)
	}
	d, ok := s.doubts[doubtID]
	if !ok {
		s.mu.Unlock()
		return false, errors.NotFound("Doubt", nil)
	}
	if d.Status != entity.DoubtStatusUnassigned {
		s.mu.Unlock()
		return false, nil
	}
	d.Status = entity.DoubtStatusAssigned
	d.AssignedFacultyID = facultyID
	notify := s.doubtNotifications(doubtID)
	s.mu.Unlock()

	notify()
	return true, nil
}

func (r *doubtRepository) Resolve(ctx context.Context, doubtID, resolverID string) (*entity.Doubt, error) {
	s := r.store
	s.mu.Lock()

	if err := s.failure("doubts.resolve"); err != nil {
		s.mu.Unlock()
		return nil, errors.BackendUnavailable("Failed to resolve doubt", err)
	}
	d, ok := s.doubts[doubtID]
	if !ok {
		s.mu.Unlock()
		return nil, errors.NotFound("Doubt", nil)
	}
	if d.Status != entity.DoubtStatusAssigned {
		status := d.Status
		s.mu.Unlock()
		return nil, errors.TransactionConflict("Doubt is "+string(status)+", only assigned doubts can be resolved", nil)
	}
	now := s.stamp()
	d.Status = entity.DoubtStatusResolved
	d.ResolvedBy = resolverID
	d.ResolvedAt = &now
	out := cloneDoubt(d)
	notify := s.doubtNotifications(doubtID)
	s.mu.Unlock()

	notify()
	return out, nil
}

func (r *doubtRepository) ListByPaper(ctx context.Context, paperID string) ([]*entity.Doubt, error) {
	return r.list("doubts.list", func(d *entity.Doubt) bool { return d.PaperID == paperID })
}

func (r *doubtRepository) ListByStudent(ctx context.Context, studentID string) ([]*entity.Doubt, error) {
	return r.list("doubts.list", func(d *entity.Doubt) bool { return d.StudentID == studentID })
}

// list returns matches newest first.
func (r *doubtRepository) list(op string, keep func(*entity.Doubt) bool) ([]*entity.Doubt, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failure(op); err != nil {
		return nil, errors.BackendUnavailable("Failed to list doubts", err)
	}
	var out []*entity.Doubt
	for _, d := range s.doubts {
		if keep(d) {
			out = append(out, cloneDoubt(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *doubtRepository) Watch(ctx context.Context, doubtID string, fn func(*entity.Doubt)) (repository.Subscription, error) {
	s := r.store
	s.mu.Lock()
	if err := s.failure("doubts.watch"); err != nil {
		s.mu.Unlock()
		return nil, errors.BackendUnavailable("Failed to watch doubt", err)
	}
	d, ok := s.doubts[doubtID]
	if !ok {
		s.mu.Unlock()
		return nil, errors.NotFound("Doubt", nil)
	}
	id, sub := s.newSubscription(func(id int) {
		delete(s.doubtWatchers[doubtID], id)
	})
	if s.doubtWatchers[doubtID] == nil {
		s.doubtWatchers[doubtID] = make(map[int]*watcher[*entity.Doubt])
	}
	w := &watcher[*entity.Doubt]{fn: fn}
	s.doubtWatchers[doubtID][id] = w
	seq := s.nextSeq()
	initial := cloneDoubt(d)
	s.mu.Unlock()

	w.deliver(seq, initial)
	return sub, nil
}

// doubtNotifications must be called with mu held; run the result without it.
func (s *Store) doubtNotifications(doubtID string) func() {
	watchers := s.doubtWatchers[doubtID]
	if len(watchers) == 0 {
		return func() {}
	}
	seq := s.nextSeq()
	targets := make([]*watcher[*entity.Doubt], 0, len(watchers))
	snapshots := make([]*entity.Doubt, 0, len(watchers))
	for _, w := range watchers {
		targets = append(targets, w)
		snapshots = append(snapshots, cloneDoubt(s.doubts[doubtID]))
	}
	return func() {
		for i, w := range targets {
			w.deliver(seq, snapshots[i])
		}
	}
}
