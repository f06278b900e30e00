package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/prepdesk/prepdesk/internal/generator"
	"github.com/prepdesk/prepdesk/internal/learnpath"
	"github.com/prepdesk/prepdesk/internal/report"
)

// studentView is the admin analytics payload: the student plus the
// progress of their assigned path, recomputed on every read.
type studentView struct {
	learnpath.Student
	Progress learnpath.Progress `json:"progress"`
}

// pathView pairs a path with its current progress.
type pathView struct {
	learnpath.LearningPath
	Progress learnpath.Progress `json:"progress"`
}

func (s *Server) handleListStudents(w http.ResponseWriter, _ *http.Request) {
	students := s.store.Students()
	views := make([]studentView, 0, len(students))
	for _, student := range students {
		progress, err := learnpath.StudentProgress(s.store, student)
		if err != nil {
			// A dangling assignment renders as zero progress rather than
			// failing the whole roster read.
			slog.Warn("student has dangling path assignment", "student_id", student.ID, "error", err)
			progress = learnpath.Progress{}
		}
		views = append(views, studentView{Student: student, Progress: progress})
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetStudent(w http.ResponseWriter, r *http.Request) {
	student, err := s.store.StudentByID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "student not found")
		return
	}

	resp := struct {
		learnpath.Student
		Path     *learnpath.LearningPath `json:"path,omitempty"`
		Progress learnpath.Progress      `json:"progress"`
	}{Student: student}

	if student.Assigned() {
		path, err := s.store.LearningPathByID(*student.AssignedLearningPathID)
		if err == nil {
			resp.Path = &path
			resp.Progress = learnpath.PathProgress(path)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListPaths(w http.ResponseWriter, _ *http.Request) {
	paths := s.store.LearningPaths()
	views := make([]pathView, 0, len(paths))
	for _, path := range paths {
		views = append(views, pathView{LearningPath: path, Progress: learnpath.PathProgress(path)})
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetPath(w http.ResponseWriter, r *http.Request) {
	path, err := s.store.LearningPathByID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "learning path not found")
		return
	}
	writeJSON(w, http.StatusOK, pathView{LearningPath: path, Progress: learnpath.PathProgress(path)})
}

func (s *Server) handleGeneratePath(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Company        string `json:"company"`
		JobDescription string `json:"jobDescription"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	company := strings.TrimSpace(req.Company)
	jobDescription := strings.TrimSpace(req.JobDescription)
	if company == "" || jobDescription == "" {
		writeError(w, http.StatusUnprocessableEntity, "company and jobDescription are required")
		return
	}

	raw, err := s.generator.Generate(r.Context(), jobDescription)
	if err != nil {
		if errors.Is(err, generator.ErrGenerationInFlight) {
			writeError(w, http.StatusConflict, "a generation request is already in flight")
			return
		}
		slog.Error("learning path generation failed", "company", company, "error", err)
		writeError(w, http.StatusBadGateway, "learning path generation failed")
		return
	}

	path := learnpath.NewLearningPath(company, jobDescription, raw)
	if err := s.store.AddLearningPath(path); err != nil {
		slog.Error("failed to store generated path", "path_id", path.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store learning path")
		return
	}

	s.logEvent(learnpath.Event{Type: "path_created", PathID: path.ID})
	slog.Info("learning path created",
		"path_id", path.ID,
		"company", company,
		"categories", len(path.Topics),
		"topics", path.TopicCount(),
	)
	writeJSON(w, http.StatusCreated, pathView{LearningPath: path, Progress: learnpath.PathProgress(path)})
}

func (s *Server) handleAssignPath(w http.ResponseWriter, r *http.Request) {
	pathID := r.PathValue("id")

	var req struct {
		StudentIDs []string `json:"studentIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.StudentIDs) == 0 {
		writeError(w, http.StatusUnprocessableEntity, "at least one student is required")
		return
	}

	if err := s.store.AssignPath(pathID, req.StudentIDs); err != nil {
		switch {
		case errors.Is(err, learnpath.ErrPathNotFound):
			writeError(w, http.StatusNotFound, "learning path not found")
		case errors.Is(err, learnpath.ErrStudentNotFound):
			writeError(w, http.StatusNotFound, "student not found")
		default:
			slog.Error("assignment failed", "path_id", pathID, "error", err)
			writeError(w, http.StatusInternalServerError, "assignment failed")
		}
		return
	}

	for _, studentID := range req.StudentIDs {
		s.logEvent(learnpath.Event{Type: "path_assigned", PathID: pathID, StudentID: studentID})
	}
	slog.Info("learning path assigned", "path_id", pathID, "students", len(req.StudentIDs))
	writeJSON(w, http.StatusOK, s.store.Students())
}

func (s *Server) handleToggleTopic(w http.ResponseWriter, r *http.Request) {
	pathID := r.PathValue("id")
	topicID := r.PathValue("topicID")

	var req struct {
		StudentID string `json:"studentId"`
		Category  string `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Category == "" {
		writeError(w, http.StatusUnprocessableEntity, "category is required")
		return
	}

	path, err := s.store.ToggleTopic(req.StudentID, pathID, req.Category, topicID)
	if err != nil {
		switch {
		case errors.Is(err, learnpath.ErrPathNotFound):
			writeError(w, http.StatusNotFound, "learning path not found")
		case errors.Is(err, learnpath.ErrTopicNotFound):
			writeError(w, http.StatusNotFound, "topic not found")
		default:
			slog.Error("toggle failed", "path_id", pathID, "topic_id", topicID, "error", err)
			writeError(w, http.StatusInternalServerError, "toggle failed")
		}
		return
	}

	topic, _ := path.FindTopic(req.Category, topicID)
	event := learnpath.Event{
		Type:      "topic_toggled",
		StudentID: req.StudentID,
		PathID:    pathID,
		Category:  req.Category,
		TopicID:   topicID,
		Completed: topic.Completed,
	}
	s.logEvent(event)
	s.broadcast.Publish(event)

	writeJSON(w, http.StatusOK, pathView{LearningPath: path, Progress: learnpath.PathProgress(path)})
}

func (s *Server) handleProgressReport(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="progress.xlsx"`)
	if err := report.WriteProgressWorkbook(w, s.store); err != nil {
		slog.Error("progress report failed", "error", err)
	}
}

func (s *Server) logEvent(event learnpath.Event) {
	if err := s.events.LogEvent(event); err != nil {
		slog.Warn("failed to log event", "type", event.Type, "error", err)
	}
}
