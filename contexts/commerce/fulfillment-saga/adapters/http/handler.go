package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"meridian/contexts/commerce/fulfillment-saga/application"
	httptransport "meridian/contexts/commerce/fulfillment-saga/transport/http"
	"meridian/internal/engine/saga"
)

type Handler struct {
	Admin  *application.Admin
	Logger *slog.Logger
}

func (h Handler) GetSagaHandler(ctx context.Context, sagaID string) (httptransport.SagaResponse, error) {
	instance, err := h.Admin.GetSaga(ctx, sagaID)
	if err != nil {
		return httptransport.SagaResponse{}, err
	}
	return httptransport.SagaResponse{Status: "success", Data: toSagaDTO(instance)}, nil
}

func (h Handler) GetStepsHandler(ctx context.Context, sagaID string) (httptransport.StepListResponse, error) {
	steps, err := h.Admin.GetSteps(ctx, sagaID)
	if err != nil {
		return httptransport.StepListResponse{}, err
	}
	resp := httptransport.StepListResponse{
		Status: "success",
		Data:   make([]httptransport.StepDTO, 0, len(steps)),
	}
	for _, step := range steps {
		resp.Data = append(resp.Data, toStepDTO(step))
	}
	return resp, nil
}

func (h Handler) CancelSagaHandler(ctx context.Context, sagaID string, req httptransport.CancelSagaRequest) (httptransport.AckResponse, error) {
	if err := h.Admin.CancelSaga(ctx, sagaID, req.Reason); err != nil {
		return httptransport.AckResponse{}, err
	}
	return httptransport.AckResponse{Status: "success", SagaID: sagaID}, nil
}

func (h Handler) CleanupSagaHandler(ctx context.Context, sagaID string) (httptransport.AckResponse, error) {
	if err := h.Admin.CleanupSaga(ctx, sagaID); err != nil {
		return httptransport.AckResponse{}, err
	}
	return httptransport.AckResponse{Status: "success", SagaID: sagaID}, nil
}

func toSagaDTO(instance saga.Saga) httptransport.SagaDTO {
	dto := httptransport.SagaDTO{
		SagaID:          instance.SagaID,
		SagaType:        instance.SagaType,
		ExecutionStatus: string(instance.ExecutionStatus),
		BusinessOutcome: string(instance.BusinessOutcome),
		WorkflowID:      instance.WorkflowID,
		SubmittedAt:     instance.SubmittedAt.UTC().Format(time.RFC3339),
		UpdatedAt:       instance.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if instance.CompletedAt != nil {
		dto.CompletedAt = instance.CompletedAt.UTC().Format(time.RFC3339)
	}
	return dto
}

func toStepDTO(step saga.Step) httptransport.StepDTO {
	dto := httptransport.StepDTO{
		StepName:   step.StepName,
		CommandID:  step.CommandID,
		Kind:       string(step.Kind),
		StepStatus: string(step.Status),
		StartedAt:  step.StartedAt.UTC().Format(time.RFC3339),
		Detail:     step.Detail,
	}
	if step.CompletedAt != nil {
		dto.CompletedAt = step.CompletedAt.UTC().Format(time.RFC3339)
	}
	return dto
}
