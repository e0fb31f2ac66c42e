package server

import (
	"fmt"

	"github.com/jrsteele09/sahasik/courses"
	"github.com/jrsteele09/sahasik/internal/errors"
	"github.com/jrsteele09/sahasik/users"
	"github.com/rs/zerolog/log"
)

// Development accounts created by Seed
const (
	DefaultAdminUsername = "admin"
	DefaultAdminEmail    = "admin@pesantren.com"
	DefaultAdminPassword = "Admin123!@#"

	DefaultTeacherUsername = "ahmad.fauzi"
	DefaultTeacherPassword = "Teacher123!"
	DefaultStudentUsername = "siti.aminah"
	DefaultStudentPassword = "Student123!"
)

var seedUsers = []users.CreateRequest{
	{
		Username: DefaultAdminUsername,
		Email:    DefaultAdminEmail,
		FullName: "Administrator",
		Role:     users.RoleAdmin,
		Password: DefaultAdminPassword,
	},
	{
		Username:       DefaultTeacherUsername,
		Email:          "ahmad.fauzi@pesantren.com",
		FullName:       "Ahmad Fauzi",
		Role:           users.RoleTeacher,
		Password:       DefaultTeacherPassword,
		EmployeeID:     "T-001",
		Specialization: "Programming",
	},
	{
		Username:     DefaultStudentUsername,
		Email:        "siti.aminah@pesantren.com",
		FullName:     "Siti Aminah",
		Role:         users.RoleStudent,
		Password:     DefaultStudentPassword,
		StudentID:    "S-2024-001",
		ClassLevel:   "10",
		AcademicYear: "2024/2025",
	},
}

var seedCourses = []courses.CreateRequest{
	{
		Name:        "React Fundamentals",
		Code:        "PRG-101",
		Description: "Pelajari dasar-dasar React untuk membangun aplikasi web modern",
		Credits:     3,
		Level:       courses.LevelBeginner,
	},
	{
		Name:        "UI/UX Design Mastery",
		Code:        "DES-201",
		Description: "Menguasai prinsip design yang user-friendly dan menarik",
		Credits:     4,
		Level:       courses.LevelIntermediate,
	},
	{
		Name:        "Digital Marketing Strategy",
		Code:        "MKT-101",
		Description: "Strategi pemasaran digital untuk meningkatkan bisnis online",
		Credits:     2,
		Level:       courses.LevelBeginner,
	},
}

// Seed creates the development accounts and courses. Records that already
// exist are left alone, so Seed can run on every start.
func Seed(repos Repos) error {
	for _, req := range seedUsers {
		if _, err := repos.Users.GetByUsername(req.Username); err == nil {
			continue
		}
		user, err := req.User()
		if err != nil {
			return fmt.Errorf("[server.Seed] %w", err)
		}
		if err := repos.Users.Upsert(user); err != nil {
			return fmt.Errorf("[server.Seed] failed to create %s: %w", req.Username, err)
		}
		log.Debug().Str("username", user.Username).Str("role", string(user.Role)).Msg("seeded user")
	}

	if repos.Courses == nil {
		return nil
	}
	for _, req := range seedCourses {
		err := repos.Courses.Upsert(req.Course())
		if errors.Is(err, errors.ErrConflict) {
			continue
		}
		if err != nil {
			return fmt.Errorf("[server.Seed] failed to create course %s: %w", req.Code, err)
		}
	}
	return nil
}
