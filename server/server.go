// Package server is the development backend: in-process versions of the auth,
// user and course services speaking the same wire contract as production.
package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/sahasik/auth"
	"github.com/jrsteele09/sahasik/courses"
	"github.com/jrsteele09/sahasik/internal/config"
	"github.com/jrsteele09/sahasik/internal/errors"
	"github.com/jrsteele09/sahasik/token/refresh"
	"github.com/jrsteele09/sahasik/users"
	"github.com/rs/zerolog/log"
)

// Service selects which routes a Server mounts
type Service string

const (
	ServiceAuth   Service = "auth"
	ServiceUser   Service = "user"
	ServiceCourse Service = "course"
	ServiceAll    Service = "all" // every service on one listener
)

// Repos holds the storage shared by the three services
type Repos struct {
	Users         users.UserRepo
	Courses       courses.CourseRepo
	RefreshTokens refresh.Repo
}

type Server struct {
	env     string // Environment (e.g., "DEV", "PROD")
	service Service
	mux     *http.ServeMux
	routes  []string
	config  config.Config
	auth    *auth.AuthService
	repos   Repos
}

func New(config config.Config, service Service, authService *auth.AuthService, repos Repos) (*Server, error) {
	if authService == nil {
		return nil, errors.New("[Server New] auth service is required")
	}
	if repos.Users == nil {
		return nil, errors.New("[Server New] Users repo is required")
	}
	if repos.Courses == nil && (service == ServiceCourse || service == ServiceAll) {
		return nil, errors.New("[Server New] Courses repo is required")
	}

	s := &Server{
		env:     config.GetEnv(),
		service: service,
		mux:     http.NewServeMux(),
		config:  config,
		auth:    authService,
		repos:   repos,
	}

	switch service {
	case ServiceAuth:
		s.initAuthRoutes()
	case ServiceUser:
		s.initUserRoutes()
	case ServiceCourse:
		s.initCourseRoutes()
	case ServiceAll:
		s.initAuthRoutes()
		s.initUserRoutes()
		s.initCourseRoutes()
	default:
		return nil, fmt.Errorf("[Server New] unknown service %q", service)
	}
	s.initCommonRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			s.logRoute(parts[0], parts[1])
		} else {
			s.logRoute("", parts[0])
		}
	}
}

func (s *Server) logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Info().Str("service", string(s.service)).Msgf("[%-19s] %s", displayMethod, path)
}
