package model

import "time"

type TaskPriority string

const (
	TaskPriorityHigh   TaskPriority = "high"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityLow    TaskPriority = "low"
)

type Task struct {
	Base
	Title       string       `json:"title" db:"title"`
	Description string       `json:"description,omitempty" db:"description"`
	Priority    TaskPriority `json:"priority" db:"priority"`
	DueDate     time.Time    `json:"due_date" db:"due_date"`
	IsCompleted bool         `json:"is_completed" db:"is_completed"`
}

type CreateTaskRequest struct {
	Title       string       `json:"title" binding:"required"`
	Description string       `json:"description"`
	Priority    TaskPriority `json:"priority" binding:"required,oneof=high medium low"`
	DueDate     time.Time    `json:"due_date" binding:"required"`
}

type UpdateTaskRequest struct {
	Title       *string       `json:"title"`
	Description *string       `json:"description"`
	Priority    *TaskPriority `json:"priority"`
	DueDate     *time.Time    `json:"due_date"`
	IsCompleted *bool         `json:"is_completed"`
}
