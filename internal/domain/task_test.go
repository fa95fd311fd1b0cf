package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTask() *Task {
	t := &Task{Title: "Write the quarterly report", ProjectID: 1}
	t.SetDefaults()
	return t
}

func TestTaskValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Task)
		wantField string
	}{
		{name: "valid", mutate: func(*Task) {}},
		{name: "title too short", mutate: func(t *Task) { t.Title = "short" }, wantField: "title"},
		{name: "missing project", mutate: func(t *Task) { t.ProjectID = 0 }, wantField: "project"},
		{name: "unknown status", mutate: func(t *Task) { t.Status = "Done" }, wantField: "status"},
		{name: "unknown priority", mutate: func(t *Task) { t.Priority = "Urgent" }, wantField: "priority"},
		{name: "very high priority", mutate: func(t *Task) { t.Priority = PriorityVeryHigh }},
		{
			name: "invalid assignee",
			mutate: func(t *Task) {
				id := int64(-1)
				t.AssigneeID = &id
			},
			wantField: "assignee",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			task := validTask()
			tc.mutate(task)

			err := task.Validate()
			if tc.wantField == "" {
				assert.NoError(t, err)
				return
			}
			fe, ok := AsFieldErrors(err)
			require.True(t, ok)
			assert.Contains(t, fe, tc.wantField)
		})
	}
}

func TestTaskTitleLengthCountsRunes(t *testing.T) {
	task := validTask()
	task.Title = "Задача №10" // 10 runes, 18 bytes
	assert.NoError(t, task.Validate())
}

func TestTaskValidateDueDate(t *testing.T) {
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	task := validTask()
	assert.NoError(t, task.ValidateDueDate(now), "nil due date is allowed")

	task.DueDate = &future
	assert.NoError(t, task.ValidateDueDate(now))

	task.DueDate = &past
	err := task.ValidateDueDate(now)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "due_date", ve.Field)
}

func TestTaskCopyReadOnly(t *testing.T) {
	created := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	prev := validTask()
	prev.OwnerID = 7
	prev.OwnerName = "owner"
	prev.CreatedAt = created

	next := validTask()
	next.OwnerID = 99
	next.CopyReadOnly(prev)

	assert.Equal(t, int64(7), next.OwnerID)
	assert.Equal(t, "owner", next.OwnerName)
	assert.Equal(t, created, next.CreatedAt)
}

func TestParseWeekday(t *testing.T) {
	tests := []struct {
		in   string
		want time.Weekday
		ok   bool
	}{
		{"monday", time.Monday, true},
		{"Sunday", time.Sunday, true},
		{"  FRIDAY ", time.Friday, true},
		{"понедельник", time.Monday, true},
		{"Воскресенье", time.Sunday, true},
		{"someday", 0, false},
		{"", 0, false},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseWeekday(tc.in)
			if !tc.ok {
				assert.ErrorIs(t, err, ErrInvalidWeekday)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestWeekdayNames(t *testing.T) {
	names := WeekdayNames()
	assert.Len(t, names, 14)
	assert.Equal(t, "monday", names[0])
	assert.Equal(t, "понедельник", names[7])
}
