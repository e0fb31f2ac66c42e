package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	APIPrefix = "/api/v1"

	// Auth service
	RouteAuthLogin     = APIPrefix + "/auth/login"
	RouteAuthRefresh   = APIPrefix + "/auth/refresh"
	RouteAuthValidate  = APIPrefix + "/auth/validate"
	RouteWellKnownJWKS = "/.well-known/jwks.json"

	// User service
	RouteUsersMe  = APIPrefix + "/users/me"
	RouteUsers    = APIPrefix + "/users"
	RouteTeachers = APIPrefix + "/teachers"
	RouteStudents = APIPrefix + "/students"

	// Course service
	RouteCourses      = APIPrefix + "/courses"
	RouteCourseSearch = APIPrefix + "/courses/search"
	RouteCourse       = APIPrefix + "/courses/{id}"

	// Every service
	RouteHealth  = "/healthz"
	RouteMetrics = "/metrics"
)
