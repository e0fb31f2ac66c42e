package courses

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jrsteele09/sahasik/internal/errors"
	"github.com/jrsteele09/sahasik/internal/utils"
)

var validate = validator.New()

type Level string

const (
	LevelBeginner     Level = "beginner"
	LevelIntermediate Level = "intermediate"
	LevelAdvanced     Level = "advanced"
)

func (l Level) Valid() bool {
	switch l {
	case LevelBeginner, LevelIntermediate, LevelAdvanced:
		return true
	}
	return false
}

type Course struct {
	ID          int        `json:"id"`
	Name        string     `json:"name"`
	Code        string     `json:"code"`
	Description string     `json:"description"`
	Credits     int        `json:"credits"`
	Level       Level      `json:"level"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// Matches reports whether q appears in the name, code or description,
// ignoring case.
func (c *Course) Matches(q string) bool {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(c.Name), q) ||
		strings.Contains(strings.ToLower(c.Code), q) ||
		strings.Contains(strings.ToLower(c.Description), q)
}

type CreateRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Code        string `json:"code" validate:"required,max=32"`
	Description string `json:"description" validate:"max=2000"`
	Credits     int    `json:"credits" validate:"gte=0,lte=40"`
	Level       Level  `json:"level" validate:"required,oneof=beginner intermediate advanced"`
}

func (r CreateRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %w", errors.ErrInvalidRequest, err)
	}
	return nil
}

// Course builds the new course described by r
func (r CreateRequest) Course() *Course {
	return &Course{
		Name:        r.Name,
		Code:        r.Code,
		Description: r.Description,
		Credits:     r.Credits,
		Level:       r.Level,
	}
}

// UpdateRequest changes only the fields that are set
type UpdateRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Code        *string `json:"code,omitempty" validate:"omitempty,min=1,max=32"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000"`
	Credits     *int    `json:"credits,omitempty" validate:"omitempty,gte=0,lte=40"`
	Level       *Level  `json:"level,omitempty" validate:"omitempty,oneof=beginner intermediate advanced"`
}

func (r UpdateRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %w", errors.ErrInvalidRequest, err)
	}
	return nil
}

func (r UpdateRequest) Apply(c *Course) {
	utils.Assign(&c.Name, r.Name)
	utils.Assign(&c.Code, r.Code)
	utils.Assign(&c.Description, r.Description)
	utils.Assign(&c.Credits, r.Credits)
	utils.Assign(&c.Level, r.Level)
}

// Filters narrows a paged listing
type Filters struct {
	Page  int
	Limit int
	Query string
	Level Level
}

type Meta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

type ListResponse struct {
	Data []Course `json:"data"`
	Meta Meta     `json:"meta"`
}
