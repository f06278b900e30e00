package learnpath

import (
	"github.com/google/uuid"
)

// NewLearningPath builds a normalized LearningPath from the raw
// category-to-topic-name mapping produced by the generator. Categories with no
// topics are dropped entirely so they never appear as empty lists. Every
// topic gets a fresh id and starts incomplete; company and jobDescription
// are stored verbatim. Validating that company and jobDescription are
// non-empty is the caller's responsibility.
func NewLearningPath(company, jobDescription string, raw map[string][]string) LearningPath {
	path := LearningPath{
		ID:             uuid.NewString(),
		Company:        company,
		JobDescription: jobDescription,
		Topics:         make(map[string][]Topic),
	}

	for category, names := range raw {
		if len(names) == 0 {
			continue
		}
		topics := make([]Topic, 0, len(names))
		for _, name := range names {
			topics = append(topics, Topic{
				ID:   uuid.NewString(),
				Name: name,
			})
		}
		path.Topics[category] = topics
	}

	return path
}
