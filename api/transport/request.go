package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/fastygo/taskmanager/domain"
	"github.com/fastygo/taskmanager/pkg/password"
)

var priorityRule = validation.In(
	string(domain.PriorityLow),
	string(domain.PriorityMedium),
	string(domain.PriorityHigh),
).Error("must be one of low, medium, high")

// RegisterRequest is the registration payload.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.By(maxBytes(password.MaxLength))),
	)
}

// LoginRequest mirrors the OAuth2 password form fields.
type LoginRequest struct {
	Username string
	Password string
}

func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// TaskRequest is the create/replace payload.
type TaskRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Priority    string  `json:"priority"`
	IsCompleted bool    `json:"is_completed"`
	DueDate     *string `json:"due_date"`
}

func (r TaskRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.By(notBlank), validation.Length(1, 200)),
		validation.Field(&r.Description, validation.Length(0, 2000)),
		validation.Field(&r.Category, validation.By(notBlank), validation.Length(1, 64)),
		validation.Field(&r.Priority, validation.Required, priorityRule),
		validation.Field(&r.DueDate, validation.By(rfc3339)),
	)
}

// Task converts a validated request into a domain task.
func (r TaskRequest) Task() *domain.Task {
	return &domain.Task{
		Title:       strings.TrimSpace(r.Title),
		Description: r.Description,
		Category:    strings.TrimSpace(r.Category),
		Priority:    domain.Priority(r.Priority),
		IsCompleted: r.IsCompleted,
		DueDate:     parseDue(r.DueDate),
	}
}

// TaskPatchRequest is the partial update payload; absent fields stay as they are.
// A JSON null due_date clears it.
type TaskPatchRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Category    *string  `json:"category"`
	Priority    *string  `json:"priority"`
	IsCompleted *bool    `json:"is_completed"`
	DueDate     Optional `json:"due_date"`
}

func (r TaskPatchRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.By(notBlank), validation.Length(1, 200)),
		validation.Field(&r.Description, validation.Length(0, 2000)),
		validation.Field(&r.Category, validation.By(notBlank), validation.Length(1, 64)),
		validation.Field(&r.Priority, priorityRule),
		validation.Field(&r.DueDate, validation.By(func(value interface{}) error {
			opt, _ := value.(Optional)
			if !opt.Set || opt.Value == nil {
				return nil
			}
			return rfc3339(opt.Value)
		})),
	)
}

// Patch converts a validated request into a domain patch.
func (r TaskPatchRequest) Patch() domain.TaskPatch {
	patch := domain.TaskPatch{
		Description: r.Description,
		IsCompleted: r.IsCompleted,
	}
	if r.Title != nil {
		title := strings.TrimSpace(*r.Title)
		patch.Title = &title
	}
	if r.Category != nil {
		category := strings.TrimSpace(*r.Category)
		patch.Category = &category
	}
	if r.Priority != nil {
		priority := domain.Priority(*r.Priority)
		patch.Priority = &priority
	}
	if r.DueDate.Set {
		if r.DueDate.Value == nil {
			patch.ClearDue = true
		} else {
			patch.DueDate = parseDue(r.DueDate.Value)
		}
	}
	return patch
}

// Optional distinguishes an absent JSON field from an explicit null.
type Optional struct {
	Set   bool
	Value *string
}

func (o *Optional) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

func notBlank(value interface{}) error {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case *string:
		if v == nil {
			return nil
		}
		s = *v
	default:
		return nil
	}
	if strings.TrimSpace(s) == "" {
		return errors.New("cannot be blank")
	}
	return nil
}

func rfc3339(value interface{}) error {
	var s *string
	switch v := value.(type) {
	case *string:
		s = v
	case string:
		s = &v
	}
	if s == nil || *s == "" {
		return nil
	}
	if _, err := time.Parse(time.RFC3339, *s); err != nil {
		return errors.New("must be an RFC3339 timestamp")
	}
	return nil
}

func maxBytes(limit int) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if len(s) > limit {
			return fmt.Errorf("must be at most %d bytes", limit)
		}
		return nil
	}
}

func parseDue(value *string) *time.Time {
	if value == nil || *value == "" {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, *value)
	if err != nil {
		return nil
	}
	parsed = parsed.UTC()
	return &parsed
}
