package server

import (
	"net/http"

	"github.com/jrsteele09/sahasik/users"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) initAuthRoutes() {
	s.RegisterRouteHandler("POST "+RouteAuthLogin, ChainMiddleware(s.LoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthRefresh, ChainMiddleware(s.RefreshHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthValidate, ChainMiddleware(s.ValidateHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteWellKnownJWKS, ChainMiddleware(s.JWKSHandler(), s.APIMiddleware()...))
}

func (s *Server) initUserRoutes() {
	s.RegisterRouteHandler("GET "+RouteUsersMe, ChainMiddleware(s.GetMeHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("PUT "+RouteUsersMe, ChainMiddleware(s.UpdateMeHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("GET "+RouteUsers, ChainMiddleware(s.ListUsersHandler(""), s.APIMiddleware(s.RequireAuth(), s.RequireRole(users.RoleAdmin, users.RoleTeacher))...))
	s.RegisterRouteHandler("POST "+RouteUsers, ChainMiddleware(s.CreateUserHandler(), s.APIMiddleware(s.RequireAuth(), s.RequireRole(users.RoleAdmin))...))
	s.RegisterRouteHandler("GET "+RouteTeachers, ChainMiddleware(s.ListUsersHandler(users.RoleTeacher), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("GET "+RouteStudents, ChainMiddleware(s.ListUsersHandler(users.RoleStudent), s.APIMiddleware(s.RequireAuth(), s.RequireRole(users.RoleAdmin, users.RoleTeacher))...))
}

func (s *Server) initCourseRoutes() {
	editors := s.RequireRole(users.RoleAdmin, users.RoleTeacher)

	s.RegisterRouteHandler("GET "+RouteCourses, ChainMiddleware(s.ListCoursesHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("GET "+RouteCourseSearch, ChainMiddleware(s.SearchCoursesHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("GET "+RouteCourse, ChainMiddleware(s.GetCourseHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("POST "+RouteCourses, ChainMiddleware(s.CreateCourseHandler(), s.APIMiddleware(s.RequireAuth(), editors)...))
	s.RegisterRouteHandler("PUT "+RouteCourse, ChainMiddleware(s.UpdateCourseHandler(), s.APIMiddleware(s.RequireAuth(), editors)...))
	s.RegisterRouteHandler("DELETE "+RouteCourse, ChainMiddleware(s.DeleteCourseHandler(), s.APIMiddleware(s.RequireAuth(), editors)...))
}

func (s *Server) initCommonRoutes() {
	s.RegisterRouteFunc("GET "+RouteHealth, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": string(s.service)})
	})
	s.RegisterRouteHandler("GET "+RouteMetrics, promhttp.Handler())
	// Preflight requests for every API route
	s.RegisterRouteHandler("OPTIONS "+APIPrefix+"/", ChainMiddleware(http.NotFound, s.CorsMiddleware))
}
