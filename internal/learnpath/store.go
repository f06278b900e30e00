package learnpath

import (
	"errors"
	"fmt"
	"sync"
)

// Sentinel errors for lookup misses. Mutations validate every id before
// touching state, so a returned error always means nothing changed.
var (
	ErrStudentNotFound = errors.New("student not found")
	ErrPathNotFound    = errors.New("learning path not found")
	ErrTopicNotFound   = errors.New("topic not found")
	ErrDuplicatePath   = errors.New("learning path id already registered")
)

// Store is the single authoritative registry of students and learning
// paths. All mutation funnels through it so every consumer observes a
// consistent view after each operation.
//
// Progress is stored on the path itself, not per (student, path) pair:
// toggling a topic as one student is visible to every student sharing the
// path. ToggleTopic accepts the student id for attribution only.
type Store interface {
	Students() []Student
	LearningPaths() []LearningPath
	StudentByID(id string) (Student, error)
	LearningPathByID(id string) (LearningPath, error)
	AddLearningPath(path LearningPath) error
	AssignPath(pathID string, studentIDs []string) error
	ToggleTopic(studentID, pathID, category, topicID string) (LearningPath, error)
}

// MemoryStore is an in-memory Store implementation. Insertion order of
// students and paths is preserved for listing.
type MemoryStore struct {
	mu       sync.RWMutex
	students []Student
	paths    []LearningPath
}

// NewMemoryStore creates a store seeded with the given roster and paths.
func NewMemoryStore(students []Student, paths []LearningPath) *MemoryStore {
	s := &MemoryStore{
		students: make([]Student, 0, len(students)),
		paths:    make([]LearningPath, 0, len(paths)),
	}
	for _, st := range students {
		s.students = append(s.students, st.clone())
	}
	for _, p := range paths {
		s.paths = append(s.paths, p.clone())
	}
	return s
}

// Students returns a snapshot of the roster.
func (s *MemoryStore) Students() []Student {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Student, 0, len(s.students))
	for _, st := range s.students {
		out = append(out, st.clone())
	}
	return out
}

// LearningPaths returns a snapshot of all registered paths.
func (s *MemoryStore) LearningPaths() []LearningPath {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]LearningPath, 0, len(s.paths))
	for _, p := range s.paths {
		out = append(out, p.clone())
	}
	return out
}

func (s *MemoryStore) StudentByID(id string) (Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, st := range s.students {
		if st.ID == id {
			return st.clone(), nil
		}
	}
	return Student{}, fmt.Errorf("%w: %s", ErrStudentNotFound, id)
}

func (s *MemoryStore) LearningPathByID(id string) (LearningPath, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.paths {
		if p.ID == id {
			return p.clone(), nil
		}
	}
	return LearningPath{}, fmt.Errorf("%w: %s", ErrPathNotFound, id)
}

// AddLearningPath registers a new path. The normalizer guarantees id
// uniqueness; a duplicate id is still rejected as a defense against
// double registration.
func (s *MemoryStore) AddLearningPath(path LearningPath) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.paths {
		if p.ID == path.ID {
			return fmt.Errorf("%w: %s", ErrDuplicatePath, path.ID)
		}
	}
	s.paths = append(s.paths, path.clone())
	return nil
}

// AssignPath sets the assigned path for every listed student, replacing any
// prior assignment. The path and every student id are validated before any
// student is touched, so a failed assignment leaves the store unchanged.
// Students not listed keep their current assignment.
func (s *MemoryStore) AssignPath(pathID string, studentIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.pathExistsLocked(pathID) {
		return fmt.Errorf("%w: %s", ErrPathNotFound, pathID)
	}

	indexes := make([]int, 0, len(studentIDs))
	for _, id := range studentIDs {
		idx := -1
		for i, st := range s.students {
			if st.ID == id {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrStudentNotFound, id)
		}
		indexes = append(indexes, idx)
	}

	for _, i := range indexes {
		id := pathID
		s.students[i].AssignedLearningPathID = &id
	}
	return nil
}

// ToggleTopic flips the completed flag of one topic inside the stored path
// and returns the updated path snapshot. The mutation is path-scoped:
// studentID attributes the action but does not affect which path changes.
func (s *MemoryStore) ToggleTopic(studentID, pathID, category, topicID string) (LearningPath, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pathIdx := -1
	for i, p := range s.paths {
		if p.ID == pathID {
			pathIdx = i
			break
		}
	}
	if pathIdx < 0 {
		return LearningPath{}, fmt.Errorf("%w: %s", ErrPathNotFound, pathID)
	}

	topics, ok := s.paths[pathIdx].Topics[category]
	if !ok {
		return LearningPath{}, fmt.Errorf("%w: category %q", ErrTopicNotFound, category)
	}

	for i, t := range topics {
		if t.ID == topicID {
			topics[i].Completed = !topics[i].Completed
			return s.paths[pathIdx].clone(), nil
		}
	}
	return LearningPath{}, fmt.Errorf("%w: %s in category %q", ErrTopicNotFound, topicID, category)
}

func (s *MemoryStore) pathExistsLocked(id string) bool {
	for _, p := range s.paths {
		if p.ID == id {
			return true
		}
	}
	return false
}
