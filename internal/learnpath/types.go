// Package learnpath holds the learning-path domain model: paths generated
// from job descriptions, the students they are assigned to, and the
// completion progress computed over them.
package learnpath

// Topic is a single unit of study within a category.
type Topic struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Completed bool   `json:"completed"`
}

// LearningPath is a categorized curriculum generated for one company's
// job description. Its structure is immutable after creation; only the
// Completed flag of individual topics changes, via Store.ToggleTopic.
type LearningPath struct {
	ID             string             `json:"id"`
	Company        string             `json:"company"`
	JobDescription string             `json:"job_description"`
	Topics         map[string][]Topic `json:"topics"`
}

// Student is a member of the roster. AssignedLearningPathID is nil until
// an admin assigns a path; reassignment replaces the previous value.
type Student struct {
	ID                     string  `json:"id"`
	Name                   string  `json:"name"`
	Email                  string  `json:"email"`
	AssignedLearningPathID *string `json:"assigned_learning_path_id,omitempty"`
}

// Assigned reports whether the student has a learning path.
func (s Student) Assigned() bool {
	return s.AssignedLearningPathID != nil && *s.AssignedLearningPathID != ""
}

// TopicCount returns the total number of topics across all categories.
func (p LearningPath) TopicCount() int {
	n := 0
	for _, topics := range p.Topics {
		n += len(topics)
	}
	return n
}

// FindTopic returns the topic with the given id inside the named category.
func (p LearningPath) FindTopic(category, topicID string) (Topic, bool) {
	for _, t := range p.Topics[category] {
		if t.ID == topicID {
			return t, true
		}
	}
	return Topic{}, false
}

// clone returns a deep copy so store callers can never mutate shared state.
func (p LearningPath) clone() LearningPath {
	out := p
	out.Topics = make(map[string][]Topic, len(p.Topics))
	for category, topics := range p.Topics {
		out.Topics[category] = append([]Topic(nil), topics...)
	}
	return out
}

func (s Student) clone() Student {
	out := s
	if s.AssignedLearningPathID != nil {
		id := *s.AssignedLearningPathID
		out.AssignedLearningPathID = &id
	}
	return out
}
