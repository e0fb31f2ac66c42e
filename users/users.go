package users

import (
	"fmt"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/jrsteele09/sahasik/internal/errors"
	"github.com/jrsteele09/sahasik/internal/utils"
	"golang.org/x/crypto/bcrypt"
)

var validate = validator.New()

// RoleType is the single role an LMS account holds
type RoleType string

const (
	RoleAdmin   RoleType = "admin"   // Manages users and courses
	RoleTeacher RoleType = "teacher" // Manages courses
	RoleStudent RoleType = "student" // Read-only access to courses
)

func (r RoleType) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent:
		return true
	}
	return false
}

type User struct {
	ID           int      `json:"id"`
	Username     string   `json:"username"`
	Email        string   `json:"email"`
	FullName     string   `json:"full_name"`
	Role         RoleType `json:"role"`
	Phone        string   `json:"phone,omitempty"`
	PasswordHash string   `json:"-"` // never serialize

	// Student profile
	StudentID    string `json:"student_id,omitempty"`
	ClassLevel   string `json:"class_level,omitempty"`
	AcademicYear string `json:"academic_year,omitempty"`
	ParentName   string `json:"parent_name,omitempty"`
	ParentPhone  string `json:"parent_phone,omitempty"`
	ParentEmail  string `json:"parent_email,omitempty"`

	// Teacher profile
	EmployeeID     string `json:"employee_id,omitempty"`
	Specialization string `json:"specialization,omitempty"`
	Qualification  string `json:"qualification,omitempty"`

	Address          string `json:"address,omitempty"`
	EmergencyContact string `json:"emergency_contact,omitempty"`
	EmergencyPhone   string `json:"emergency_phone,omitempty"`

	DateJoined time.Time `json:"-"`
	LastLogin  time.Time `json:"-"`
	Blocked    bool      `json:"-"`
}

// HasRole reports whether the user holds any of roles. No roles means any.
func (u *User) HasRole(roles ...RoleType) bool {
	if len(roles) == 0 {
		return true
	}
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// ProfileUpdate is a partial update of the caller's own profile. Nil fields
// are left untouched. Role, username and id cannot be changed this way.
type ProfileUpdate struct {
	Email            *string `json:"email,omitempty" validate:"omitempty,email"`
	FullName         *string `json:"full_name,omitempty"`
	Phone            *string `json:"phone,omitempty"`
	ClassLevel       *string `json:"class_level,omitempty"`
	AcademicYear     *string `json:"academic_year,omitempty"`
	ParentName       *string `json:"parent_name,omitempty"`
	ParentPhone      *string `json:"parent_phone,omitempty"`
	ParentEmail      *string `json:"parent_email,omitempty" validate:"omitempty,email"`
	Specialization   *string `json:"specialization,omitempty"`
	Qualification    *string `json:"qualification,omitempty"`
	Address          *string `json:"address,omitempty"`
	EmergencyContact *string `json:"emergency_contact,omitempty"`
	EmergencyPhone   *string `json:"emergency_phone,omitempty"`
}

func (p ProfileUpdate) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %w", errors.ErrInvalidRequest, err)
	}
	return nil
}

// Apply copies every set field onto u
func (p ProfileUpdate) Apply(u *User) {
	set := utils.Assign[string]
	set(&u.Email, p.Email)
	set(&u.FullName, p.FullName)
	set(&u.Phone, p.Phone)
	set(&u.ClassLevel, p.ClassLevel)
	set(&u.AcademicYear, p.AcademicYear)
	set(&u.ParentName, p.ParentName)
	set(&u.ParentPhone, p.ParentPhone)
	set(&u.ParentEmail, p.ParentEmail)
	set(&u.Specialization, p.Specialization)
	set(&u.Qualification, p.Qualification)
	set(&u.Address, p.Address)
	set(&u.EmergencyContact, p.EmergencyContact)
	set(&u.EmergencyPhone, p.EmergencyPhone)
}

// CreateRequest is the payload an admin sends to create an account
type CreateRequest struct {
	Username       string   `json:"username" validate:"required,min=3"`
	Email          string   `json:"email" validate:"required,email"`
	FullName       string   `json:"full_name" validate:"required"`
	Role           RoleType `json:"role" validate:"required,oneof=admin teacher student"`
	Password       string   `json:"password" validate:"required"`
	Phone          string   `json:"phone,omitempty"`
	StudentID      string   `json:"student_id,omitempty"`
	ClassLevel     string   `json:"class_level,omitempty"`
	AcademicYear   string   `json:"academic_year,omitempty"`
	EmployeeID     string   `json:"employee_id,omitempty"`
	Specialization string   `json:"specialization,omitempty"`
	Qualification  string   `json:"qualification,omitempty"`
}

func (r CreateRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %w", errors.ErrInvalidRequest, err)
	}
	return ValidatePasswordStrength(r.Password)
}

// User builds the account described by r with its password hashed
func (r CreateRequest) User() (*User, error) {
	hash, err := HashPassword(r.Password)
	if err != nil {
		return nil, fmt.Errorf("[CreateRequest.User] failed to hash password: %w", err)
	}
	return &User{
		Username:       r.Username,
		Email:          r.Email,
		FullName:       r.FullName,
		Role:           r.Role,
		Phone:          r.Phone,
		StudentID:      r.StudentID,
		ClassLevel:     r.ClassLevel,
		AcademicYear:   r.AcademicYear,
		EmployeeID:     r.EmployeeID,
		Specialization: r.Specialization,
		Qualification:  r.Qualification,
		PasswordHash:   hash,
	}, nil
}

// ValidatePasswordStrength checks if password meets security requirements:
// - At least 8 characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("%w: must be at least 8 characters long", errors.ErrWeakPassword)
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range password {
		if unicode.IsUpper(char) {
			hasUpper = true
		} else if unicode.IsLower(char) {
			hasLower = true
		} else if unicode.IsDigit(char) {
			hasNumber = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("%w: must contain at least one uppercase letter", errors.ErrWeakPassword)
	}
	if !hasLower {
		return fmt.Errorf("%w: must contain at least one lowercase letter", errors.ErrWeakPassword)
	}
	if !hasNumber {
		return fmt.Errorf("%w: must contain at least one number", errors.ErrWeakPassword)
	}

	return nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
