// Package roster loads the seed students and seed learning path that
// populate a fresh store, either from YAML files or from built-in defaults.
package roster

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/prepdesk/prepdesk/internal/learnpath"
)

const (
	studentsFile = "students.yaml"
	pathFile     = "learning_path.yaml"
)

// Roster holds the seed data for a fresh store.
type Roster struct {
	Students []learnpath.Student
	Paths    []learnpath.LearningPath
}

type studentSeed struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	Email  string `yaml:"email"`
	PathID string `yaml:"assigned_path_id"`
}

type topicSeed struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name"`
	Completed bool   `yaml:"completed"`
}

type pathSeed struct {
	ID             string                 `yaml:"id"`
	Company        string                 `yaml:"company"`
	JobDescription string                 `yaml:"job_description"`
	Topics         map[string][]topicSeed `yaml:"topics"`
}

// Load reads seed data from dir. A missing directory or missing file falls
// back to the built-in defaults so the service always starts with a usable
// roster.
func Load(dir string) (Roster, error) {
	r := Roster{
		Students: defaultStudents(),
		Paths:    []learnpath.LearningPath{defaultPath()},
	}
	if dir == "" {
		return r, nil
	}

	students, err := loadStudents(filepath.Join(dir, studentsFile))
	if err != nil {
		return Roster{}, err
	}
	if students != nil {
		r.Students = students
	}

	path, err := loadPath(filepath.Join(dir, pathFile))
	if err != nil {
		return Roster{}, err
	}
	if path != nil {
		r.Paths = []learnpath.LearningPath{*path}
	}

	slog.Info("roster loaded", "students", len(r.Students), "paths", len(r.Paths))
	return r, nil
}

func loadStudents(path string) ([]learnpath.Student, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var seeds []studentSeed
	if err := yaml.Unmarshal(data, &seeds); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	students := make([]learnpath.Student, 0, len(seeds))
	for _, s := range seeds {
		if s.ID == "" || s.Name == "" {
			return nil, fmt.Errorf("parse %s: student entries need id and name", path)
		}
		student := learnpath.Student{ID: s.ID, Name: s.Name, Email: s.Email}
		if s.PathID != "" {
			id := s.PathID
			student.AssignedLearningPathID = &id
		}
		students = append(students, student)
	}
	return students, nil
}

func loadPath(path string) (*learnpath.LearningPath, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var seed pathSeed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if seed.ID == "" {
		return nil, fmt.Errorf("parse %s: learning path needs an id", path)
	}

	lp := learnpath.LearningPath{
		ID:             seed.ID,
		Company:        seed.Company,
		JobDescription: seed.JobDescription,
		Topics:         make(map[string][]learnpath.Topic, len(seed.Topics)),
	}
	for category, topics := range seed.Topics {
		if len(topics) == 0 {
			continue
		}
		converted := make([]learnpath.Topic, 0, len(topics))
		for _, t := range topics {
			converted = append(converted, learnpath.Topic{ID: t.ID, Name: t.Name, Completed: t.Completed})
		}
		lp.Topics[category] = converted
	}
	return &lp, nil
}

func defaultStudents() []learnpath.Student {
	lp1 := "LP1"
	return []learnpath.Student{
		{ID: "S1", Name: "Thumma Abhishek Reddy", Email: "abhishek@example.com", AssignedLearningPathID: &lp1},
		{ID: "S2", Name: "Srinivas", Email: "srinivas@example.com"},
		{ID: "S3", Name: "HariCharan", Email: "haricharan@example.com"},
		{ID: "S4", Name: "Ratnakar", Email: "ratnakar@example.com", AssignedLearningPathID: &lp1},
		{ID: "S5", Name: "Himanshu", Email: "himanshu@example.com"},
		{ID: "S6", Name: "Harshitha", Email: "harshitha@example.com"},
	}
}

func defaultPath() learnpath.LearningPath {
	return learnpath.LearningPath{
		ID:      "LP1",
		Company: "Innovate Inc.",
		JobDescription: "Seeking a skilled Frontend Developer with expertise in React, TypeScript, " +
			"and modern web technologies. The ideal candidate will be proficient in data structures " +
			"and algorithms, and have experience with agile development methodologies.",
		Topics: map[string][]learnpath.Topic{
			"Data Structures & Algorithms": {
				{ID: "t1", Name: "Arrays & Strings", Completed: true},
				{ID: "t2", Name: "Linked Lists", Completed: true},
				{ID: "t3", Name: "Trees & Graphs"},
				{ID: "t4", Name: "Sorting & Searching"},
			},
			"Aptitude": {
				{ID: "t5", Name: "Quantitative Analysis", Completed: true},
				{ID: "t6", Name: "Logical Reasoning"},
			},
			"Development": {
				{ID: "t7", Name: "React Hooks", Completed: true},
				{ID: "t8", Name: "State Management (Context API)"},
				{ID: "t9", Name: "TypeScript Fundamentals"},
				{ID: "t10", Name: "REST API Integration"},
			},
			"Cloud": {
				{ID: "t11", Name: "AWS S3 Basics", Completed: true},
				{ID: "t12", Name: "CI/CD Pipelines"},
			},
		},
	}
}
