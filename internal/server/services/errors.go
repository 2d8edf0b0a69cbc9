package services

import (
	"github.com/dmitrijs2005/filedash/internal/common"
	"github.com/dmitrijs2005/filedash/internal/server/models"
)

// InputError carries a user-facing message for rejected input and matches
// common.ErrorValidation.
type InputError struct {
	Message string
}

func (e *InputError) Error() string { return e.Message }

func (e *InputError) Unwrap() error { return common.ErrorValidation }

// ConflictError is returned by Upload when the owner already has a file
// with the same name and overwrite was not requested.
type ConflictError struct {
	Existing *models.File
}

func (e *ConflictError) Error() string { return "File with this name already exists" }

func (e *ConflictError) Unwrap() error { return common.ErrorAlreadyExists }
