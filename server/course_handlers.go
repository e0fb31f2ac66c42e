package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/jrsteele09/sahasik/courses"
	"github.com/jrsteele09/sahasik/internal/errors"
)

const defaultPageSize = 10

// ListCoursesHandler lists courses. With a page parameter the answer is the
// paged envelope, otherwise a plain array.
func (s *Server) ListCoursesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		q := query.Get("q")
		level := courses.Level(query.Get("level"))
		if level != "" && !level.Valid() {
			writeError(w, fmt.Errorf("%w: unknown level %q", errors.ErrInvalidRequest, level))
			return
		}

		if !query.Has("page") {
			list, _, err := s.repos.Courses.List(q, level, 0, 0)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, list)
			return
		}

		page := max(queryInt(r, "page", 1), 1)
		limit := queryInt(r, "limit", defaultPageSize)
		if limit == 0 {
			limit = defaultPageSize
		}
		list, total, err := s.repos.Courses.List(q, level, (page-1)*limit, limit)
		if err != nil {
			writeError(w, err)
			return
		}

		resp := courses.ListResponse{
			Data: make([]courses.Course, 0, len(list)),
			Meta: courses.Meta{
				Page:       page,
				Limit:      limit,
				Total:      total,
				TotalPages: (total + limit - 1) / limit,
			},
		}
		for _, c := range list {
			resp.Data = append(resp.Data, *c)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) SearchCoursesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, _, err := s.repos.Courses.List(r.URL.Query().Get("q"), "", 0, 0)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func (s *Server) GetCourseHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := courseID(r)
		if err != nil {
			writeError(w, err)
			return
		}
		course, err := s.repos.Courses.Get(id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, course)
	}
}

func (s *Server) CreateCourseHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req courses.CreateRequest
		if err := readJSON(w, r, &req); err != nil {
			writeError(w, err)
			return
		}
		if err := req.Validate(); err != nil {
			writeError(w, err)
			return
		}

		course := req.Course()
		if err := s.repos.Courses.Upsert(course); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, course)
	}
}

func (s *Server) UpdateCourseHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := courseID(r)
		if err != nil {
			writeError(w, err)
			return
		}
		var req courses.UpdateRequest
		if err := readJSON(w, r, &req); err != nil {
			writeError(w, err)
			return
		}
		if err := req.Validate(); err != nil {
			writeError(w, err)
			return
		}

		course, err := s.repos.Courses.Get(id)
		if err != nil {
			writeError(w, err)
			return
		}
		req.Apply(course)
		if err := s.repos.Courses.Upsert(course); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, course)
	}
}

func (s *Server) DeleteCourseHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := courseID(r)
		if err != nil {
			writeError(w, err)
			return
		}
		if err := s.repos.Courses.Delete(id); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func courseID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid course id %q", errors.ErrInvalidRequest, r.PathValue("id"))
	}
	return id, nil
}
