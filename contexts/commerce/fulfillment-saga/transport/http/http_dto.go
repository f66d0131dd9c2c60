package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CancelSagaRequest struct {
	Reason string `json:"reason,omitempty"`
}

type SagaDTO struct {
	SagaID          string `json:"saga_id"`
	SagaType        string `json:"saga_type"`
	ExecutionStatus string `json:"execution_status"`
	BusinessOutcome string `json:"business_outcome"`
	WorkflowID      string `json:"workflow_id"`
	SubmittedAt     string `json:"submitted_at"`
	CompletedAt     string `json:"completed_at,omitempty"`
	UpdatedAt       string `json:"updated_at"`
}

type SagaResponse struct {
	Status string  `json:"status"`
	Data   SagaDTO `json:"data"`
}

type StepDTO struct {
	StepName    string `json:"step_name"`
	CommandID   string `json:"command_id"`
	Kind        string `json:"kind"`
	StepStatus  string `json:"step_status"`
	StartedAt   string `json:"started_at"`
	CompletedAt string `json:"completed_at,omitempty"`
	Detail      string `json:"detail,omitempty"`
}

type StepListResponse struct {
	Status string    `json:"status"`
	Data   []StepDTO `json:"data"`
}

type AckResponse struct {
	Status string `json:"status"`
	SagaID string `json:"saga_id"`
}
