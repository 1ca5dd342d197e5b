package types

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// validate is shared; validator.Validate caches struct metadata and is safe for concurrent use.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// notblank rejects whitespace-only strings and empty slices
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	return v
}

// OptimizeResumeRequest is the body of the standalone resume optimizer.
type OptimizeResumeRequest struct {
	Resume string `json:"resume" validate:"notblank"`
}

// JobAndResumeRequest is the body shared by the cover letter and interview prep tools.
type JobAndResumeRequest struct {
	JobDescription string `json:"jobDescription" validate:"notblank"`
	Resume         string `json:"resume" validate:"notblank"`
}

// AnalyzeJobRequest is the body of the job description analyzer.
type AnalyzeJobRequest struct {
	JobDescription string `json:"jobDescription" validate:"notblank"`
}

// OptimizeLinkedInRequest is the body of the standalone LinkedIn optimizer.
type OptimizeLinkedInRequest struct {
	LinkedInProfile string `json:"linkedinProfile" validate:"notblank"`
}

// PackageRequest is the body of the multi-tool package endpoint.
type PackageRequest struct {
	JobDescription string   `json:"jobDescription" validate:"notblank"`
	Resume         string   `json:"resume" validate:"notblank"`
	Tools          []string `json:"tools" validate:"notblank"`
}

// CreateApplicationRequest is the body for logging a new application with generated outputs.
type CreateApplicationRequest struct {
	Company        string   `json:"company" validate:"notblank"`
	JobTitle       string   `json:"jobTitle" validate:"notblank"`
	JobDescription string   `json:"jobDescription" validate:"notblank"`
	Resume         string   `json:"resume" validate:"notblank"`
	Tools          []string `json:"tools" validate:"notblank"`
}

// UpdateStatusRequest is the body for an application status transition.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"notblank"`
}

// Validate validates the OptimizeResumeRequest.
func (r *OptimizeResumeRequest) Validate() error {
	return toValidationError(validate.Struct(r))
}

// Validate validates the JobAndResumeRequest.
func (r *JobAndResumeRequest) Validate() error {
	return toValidationError(validate.Struct(r))
}

// Validate validates the AnalyzeJobRequest.
func (r *AnalyzeJobRequest) Validate() error {
	return toValidationError(validate.Struct(r))
}

// Validate validates the OptimizeLinkedInRequest.
func (r *OptimizeLinkedInRequest) Validate() error {
	return toValidationError(validate.Struct(r))
}

// Validate validates the PackageRequest.
func (r *PackageRequest) Validate() error {
	return toValidationError(validate.Struct(r))
}

// Validate validates the CreateApplicationRequest.
func (r *CreateApplicationRequest) Validate() error {
	return toValidationError(validate.Struct(r))
}

// Validate validates the UpdateStatusRequest.
func (r *UpdateStatusRequest) Validate() error {
	return toValidationError(validate.Struct(r))
}

// toValidationError converts the first validator failure into a ValidationError.
func toValidationError(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field := fe.Field()
		switch fe.Tag() {
		case "notblank":
			return &ValidationError{Field: field, Message: "is required"}
		default:
			return &ValidationError{Field: field, Message: "failed " + fe.Tag() + " validation"}
		}
	}
	return &ValidationError{Field: "body", Message: err.Error()}
}
