package dtos

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/tokamak-network/trh-pipeline/pkg/domain/entities"
)

var validate = validator.New()

type CreateDeploymentRequest struct {
	ProjectID   string         `json:"projectId"   validate:"required,max=128"`
	Environment string         `json:"environment" validate:"omitempty,oneof=production staging preview development"`
	Provider    string         `json:"provider"    validate:"omitempty,max=64"`
	Config      map[string]any `json:"config"`
}

// Validate trims the request in place and checks it.
func (request *CreateDeploymentRequest) Validate() error {
	request.ProjectID = strings.TrimSpace(request.ProjectID)
	request.Environment = strings.ToLower(strings.TrimSpace(request.Environment))
	request.Provider = strings.TrimSpace(request.Provider)

	if err := validate.Struct(request); err != nil {
		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
			return fieldError(fieldErrors[0])
		}
		return err
	}
	return nil
}

// EnvironmentOrDefault returns the requested environment, production when none was given.
func (request *CreateDeploymentRequest) EnvironmentOrDefault() entities.Environment {
	if request.Environment == "" {
		return entities.EnvironmentProduction
	}
	return entities.Environment(request.Environment)
}

func fieldError(fe validator.FieldError) error {
	field := fieldName(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", field)
	case "oneof":
		return fmt.Errorf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "max":
		return fmt.Errorf("%s must be at most %s characters", field, fe.Param())
	}
	return fmt.Errorf("%s is invalid", field)
}

func fieldName(structField string) string {
	switch structField {
	case "ProjectID":
		return "projectId"
	case "Environment":
		return "environment"
	case "Provider":
		return "provider"
	}
	return structField
}

type DeploymentListResponse struct {
	Deployments []*entities.DeploymentEntity `json:"deployments"`
}

type DeploymentStatusResponse struct {
	Status entities.DeploymentStatus `json:"status"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store"`
}
