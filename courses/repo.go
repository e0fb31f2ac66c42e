package courses

// CourseRepo stores courses for the development course service
type CourseRepo interface {
	Upsert(course *Course) error
	Get(id int) (*Course, error)
	Delete(id int) error
	// List returns the courses matching query and level ordered by id,
	// together with the number of matches before paging.
	List(query string, level Level, offset, limit int) ([]*Course, int, error)
}
