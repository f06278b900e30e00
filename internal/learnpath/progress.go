package learnpath

// Progress summarizes topic completion for a learning path.
type Progress struct {
	Completed  int     `json:"completed"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

// PathProgress computes completion stats for a path. It is a pure function
// of the path's current state: no caching, recomputed on every call. A path
// with no topics yields all zeros.
func PathProgress(path LearningPath) Progress {
	var p Progress
	for _, topics := range path.Topics {
		for _, t := range topics {
			p.Total++
			if t.Completed {
				p.Completed++
			}
		}
	}
	if p.Total > 0 {
		p.Percentage = float64(p.Completed) / float64(p.Total) * 100
	}
	return p
}

// StudentProgress computes the progress of the student's assigned path.
// Unassigned students report zero progress.
func StudentProgress(store Store, student Student) (Progress, error) {
	if !student.Assigned() {
		return Progress{}, nil
	}
	path, err := store.LearningPathByID(*student.AssignedLearningPathID)
	if err != nil {
		return Progress{}, err
	}
	return PathProgress(path), nil
}
