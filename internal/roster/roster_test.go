package roster_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prepdesk/prepdesk/internal/roster"
)

func TestLoad_Defaults(t *testing.T) {
	r, err := roster.Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(r.Students) != 6 {
		t.Errorf("student count = %d, want 6", len(r.Students))
	}
	if len(r.Paths) != 1 {
		t.Fatalf("path count = %d, want 1", len(r.Paths))
	}

	path := r.Paths[0]
	if path.ID != "LP1" {
		t.Errorf("path ID = %q, want LP1", path.ID)
	}
	if path.TopicCount() != 12 {
		t.Errorf("topic count = %d, want 12", path.TopicCount())
	}

	assigned := 0
	for _, s := range r.Students {
		if s.Assigned() {
			assigned++
			if *s.AssignedLearningPathID != "LP1" {
				t.Errorf("student %s assigned to %q, want LP1", s.ID, *s.AssignedLearningPathID)
			}
		}
	}
	if assigned != 2 {
		t.Errorf("pre-assigned students = %d, want 2", assigned)
	}
}

func TestLoad_FromYAML(t *testing.T) {
	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, "students.yaml"), `
- id: S1
  name: Test Student
  email: test@example.com
  assigned_path_id: LP1
- id: S2
  name: Other Student
  email: other@example.com
`)
	writeFile(t, filepath.Join(dir, "learning_path.yaml"), `
id: LP1
company: Testco
job_description: A sample role.
topics:
  DSA:
    - id: t1
      name: Arrays
      completed: true
    - id: t2
      name: Trees
  Cloud: []
`)

	r, err := roster.Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(r.Students) != 2 {
		t.Fatalf("student count = %d, want 2", len(r.Students))
	}
	if !r.Students[0].Assigned() {
		t.Error("S1 should be pre-assigned")
	}
	if r.Students[1].Assigned() {
		t.Error("S2 should be unassigned")
	}

	path := r.Paths[0]
	if path.Company != "Testco" {
		t.Errorf("Company = %q, want Testco", path.Company)
	}
	if _, ok := path.Topics["Cloud"]; ok {
		t.Error("empty Cloud category should be dropped")
	}
	if len(path.Topics["DSA"]) != 2 {
		t.Errorf("DSA topic count = %d, want 2", len(path.Topics["DSA"]))
	}
	if !path.Topics["DSA"][0].Completed {
		t.Error("completed flag from YAML should be carried over")
	}
}

func TestLoad_MissingFilesFallBack(t *testing.T) {
	// Directory exists but contains neither file.
	r, err := roster.Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(r.Students) != 6 || len(r.Paths) != 1 {
		t.Errorf("got %d students, %d paths; want defaults (6, 1)", len(r.Students), len(r.Paths))
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "students.yaml"), "{not yaml")

	if _, err := roster.Load(dir); err == nil {
		t.Fatal("Load() should fail on malformed YAML")
	}
}

func TestLoad_StudentMissingID(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "students.yaml"), `
- name: No ID
  email: noid@example.com
`)

	if _, err := roster.Load(dir); err == nil {
		t.Fatal("Load() should reject a student without an id")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
