package domain

import (
	"fmt"
	"strings"
)

// TaskStatus is the lifecycle of a single action invocation.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"

	// TaskUnknown is reported for actions that never ran.
	TaskUnknown TaskStatus = "unknown"
)

// Keys used in TaskResponse.ReturnedObject.
const (
	ReturnedResult = "result"
	ReturnedError  = "error"
)

// TaskResponse is the outcome of one action invocation.
type TaskResponse struct {
	Status         TaskStatus     `json:"status"`
	ReturnedObject map[string]any `json:"returned_object"`
}

// CompletedTask wraps a handler return value.
func CompletedTask(result any) TaskResponse {
	return TaskResponse{
		Status:         TaskCompleted,
		ReturnedObject: map[string]any{ReturnedResult: result},
	}
}

// FailedTask wraps a handler failure.
func FailedTask(err error) TaskResponse {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return TaskResponse{
		Status:         TaskFailed,
		ReturnedObject: map[string]any{ReturnedError: msg},
	}
}

// Result returns the handler value of a completed task.
func (t TaskResponse) Result() any { return t.ReturnedObject[ReturnedResult] }

// Err returns the error message of a failed task, or "".
func (t TaskResponse) Err() string {
	msg, _ := t.ReturnedObject[ReturnedError].(string)
	return msg
}

// TaskResult pairs an executed action with its response.
type TaskResult struct {
	Event    string       `json:"event"`
	Action   string       `json:"action"`
	Response TaskResponse `json:"response"`
}

// Message is either the model's free text or the ordered list of task results.
type Message struct {
	Text        string       `json:"text,omitempty"`
	TaskResults []TaskResult `json:"task_results,omitempty"`
}

func (m Message) String() string {
	if len(m.TaskResults) == 0 {
		return m.Text
	}
	parts := make([]string, 0, len(m.TaskResults))
	for _, r := range m.TaskResults {
		switch r.Response.Status {
		case TaskFailed:
			parts = append(parts, fmt.Sprintf("%s: failed (%s)", r.Action, r.Response.Err()))
		default:
			parts = append(parts, fmt.Sprintf("%s: %v", r.Action, r.Response.Result()))
		}
	}
	return strings.Join(parts, "; ")
}

// AgentResponse is the result of one interaction turn.
type AgentResponse struct {
	Message       Message        `json:"message"`
	Success       bool           `json:"success"`
	Error         string         `json:"error,omitempty"`
	Event         string         `json:"event,omitempty"`
	State         string         `json:"state,omitempty"`
	TaskResponses []TaskResponse `json:"task_responses,omitempty"`
}

func (r AgentResponse) String() string {
	if r.Error != "" {
		return "Error: " + r.Error
	}
	return r.Message.String()
}

// Failure builds the response returned when a turn aborts.
func Failure(err error) AgentResponse {
	return AgentResponse{
		Message: Message{Text: "An error occurred during interaction."},
		Success: false,
		Error:   err.Error(),
	}
}
