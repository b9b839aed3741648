// Package types provides type definitions for structured data used throughout the automation-exposure system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Profile is the caller-supplied description of a person's job.
// All fields are opaque text; the pipeline never interprets them.
type Profile struct {
	Age            string `json:"age" validate:"required,max=4000"`
	Gender         string `json:"gender" validate:"required,max=4000"`
	JobTitle       string `json:"job_title" validate:"required,max=4000"`
	JobDescription string `json:"job_description" validate:"required,max=4000"`
	DailyRoutine   string `json:"daily_routine" validate:"required,max=4000"`
	Location       string `json:"location" validate:"required,max=4000"`
	Education      string `json:"education" validate:"required,max=4000"`
}

// Validate validates the Profile using the validator.
func (p *Profile) Validate() error {
	validate := validator.New()
	return validate.Struct(p)
}

// JobContext renders the profile into the canonical text block shared by every stage.
func (p *Profile) JobContext() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Age: %s\n", p.Age))
	sb.WriteString(fmt.Sprintf("Gender: %s\n", p.Gender))
	sb.WriteString(fmt.Sprintf("Job Title: %s\n", p.JobTitle))
	sb.WriteString(fmt.Sprintf("Job Description: %s\n", p.JobDescription))
	sb.WriteString(fmt.Sprintf("Daily Routine: %s\n", p.DailyRoutine))
	sb.WriteString(fmt.Sprintf("Location: %s\n", p.Location))
	sb.WriteString(fmt.Sprintf("Education: %s", p.Education))
	return sb.String()
}
