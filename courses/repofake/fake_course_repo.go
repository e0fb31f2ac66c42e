package fakecourserepo

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jrsteele09/sahasik/courses"
	"github.com/jrsteele09/sahasik/internal/errors"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

var _ courses.CourseRepo = (*FakeCourseRepo)(nil)

type FakeCourseRepo struct {
	courses map[int]*courses.Course
	codes   map[string]int // upper-cased code to course id
	nextID  int
	lock    sync.RWMutex
}

func NewFakeCourseRepo() courses.CourseRepo {
	return &FakeCourseRepo{
		courses: make(map[int]*courses.Course),
		codes:   make(map[string]int),
		nextID:  1,
	}
}

func (r *FakeCourseRepo) Upsert(course *courses.Course) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	code := strings.ToUpper(course.Code)
	if id, ok := r.codes[code]; ok && id != course.ID {
		return fmt.Errorf("%w: course code %s already exists", errors.ErrConflict, course.Code)
	}

	now := NowTimeFunc()
	if course.ID == 0 {
		course.ID = r.nextID
		course.CreatedAt = &now
	}
	if course.ID >= r.nextID {
		r.nextID = course.ID + 1
	}
	course.UpdatedAt = &now

	if previous, ok := r.courses[course.ID]; ok {
		delete(r.codes, strings.ToUpper(previous.Code))
	}
	stored := *course
	r.courses[course.ID] = &stored
	r.codes[code] = course.ID
	return nil
}

func (r *FakeCourseRepo) Get(id int) (*courses.Course, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	course, ok := r.courses[id]
	if !ok {
		return nil, fmt.Errorf("%w: course %d", errors.ErrNotFound, id)
	}
	c := *course
	return &c, nil
}

func (r *FakeCourseRepo) Delete(id int) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	course, ok := r.courses[id]
	if !ok {
		return fmt.Errorf("%w: course %d", errors.ErrNotFound, id)
	}
	delete(r.codes, strings.ToUpper(course.Code))
	delete(r.courses, id)
	return nil
}

func (r *FakeCourseRepo) List(query string, level courses.Level, offset, limit int) ([]*courses.Course, int, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	matches := make([]*courses.Course, 0, len(r.courses))
	for _, course := range r.courses {
		if level != "" && course.Level != level {
			continue
		}
		if !course.Matches(query) {
			continue
		}
		c := *course
		matches = append(matches, &c)
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].ID < matches[j].ID
	})

	total := len(matches)
	if offset >= total {
		return []*courses.Course{}, total, nil
	}
	end := total
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return matches[offset:end], total, nil
}
