package domain

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// SubTask is a step of a task.
type SubTask struct {
	Model
	Title       string     `json:"title"       validate:"required,max=255"`
	Description *string    `json:"description"`
	TaskID      int64      `json:"task"        validate:"required,gt=0"`
	Status      TaskStatus `json:"status"`
	OwnerID     int64      `json:"owner_id"`
	OwnerName   string     `json:"owner"`
	Deadline    *time.Time `json:"deadline"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Validate checks the sub-task's fields.
func (s *SubTask) Validate() error {
	fe := validateStruct(s)
	if !s.Status.Valid() {
		fe.Add("status", fmt.Sprintf("%q is not a valid choice.", s.Status))
	}
	return fe.Err()
}

// SetDefaults prepares a fresh sub-task before client data is applied.
func (s *SubTask) SetDefaults() {
	s.Status = StatusNew
}

// CopyReadOnly copies server-managed fields from prev.
func (s *SubTask) CopyReadOnly(prev *SubTask) {
	s.OwnerID = prev.OwnerID
	s.OwnerName = prev.OwnerName
	s.CreatedAt = prev.CreatedAt
}

// Owner implements Owned.
func (s *SubTask) Owner() int64 { return s.OwnerID }

// AssignOwner implements Owned.
func (s *SubTask) AssignOwner(userID int64) { s.OwnerID = userID }

// ErrInvalidWeekday is returned for day names that are not recognised.
var ErrInvalidWeekday = fmt.Errorf("%w: invalid day of week", ErrValidation)

var weekdayNames = []struct {
	en, ru string
	day    time.Weekday
}{
	{"monday", "понедельник", time.Monday},
	{"tuesday", "вторник", time.Tuesday},
	{"wednesday", "среда", time.Wednesday},
	{"thursday", "четверг", time.Thursday},
	{"friday", "пятница", time.Friday},
	{"saturday", "суббота", time.Saturday},
	{"sunday", "воскресенье", time.Sunday},
}

// WeekdayNames lists the accepted day names, English first.
func WeekdayNames() []string {
	names := make([]string, 0, 2*len(weekdayNames))
	for _, w := range weekdayNames {
		names = append(names, w.en)
	}
	for _, w := range weekdayNames {
		names = append(names, w.ru)
	}
	return names
}

// ParseWeekday resolves an English or Russian day name, ignoring case.
func ParseWeekday(name string) (time.Weekday, error) {
	folded := cases.Fold().String(strings.TrimSpace(name))
	for _, w := range weekdayNames {
		if folded == w.en || folded == w.ru {
			return w.day, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrInvalidWeekday, name)
}
