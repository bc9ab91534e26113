/*
 * Copyright (c) 2025, the MeshStash Authors. All rights reserved.
 * See LICENSE for license information.
 */

package errors

import (
	"fmt"
	"net/http"
	"strings"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

const MeshStashPrefix = "MeshStash."

/*
   5-digit Error Code Convention: [xx][yyy]
   [xx] Business ID (00–99), used to distinguish errors from different business interfaces.
   00: General errors
   01: Upload / blob-store errors
   02: Job-queue errors
   03: Asset-graph errors
   04: Processor errors
   [yyy] Error code range (000–999)
*/

// public: 00xxx
const (
	InternalError         = MeshStashPrefix + "00001"
	BadRequest            = MeshStashPrefix + "00002"
	Forbidden             = MeshStashPrefix + "00003"
	AlreadyExist          = MeshStashPrefix + "00004"
	NotFound              = MeshStashPrefix + "00005"
	RequestEntityTooLarge = MeshStashPrefix + "00006"
	NotImplemented        = MeshStashPrefix + "00007"
	Conflict              = MeshStashPrefix + "00008"
)

// upload and blob store: 01xxx
const (
	UnsupportedFormat = MeshStashPrefix + "01001"
	StorageIO         = MeshStashPrefix + "01002"
	Integrity         = MeshStashPrefix + "01003"
)

// job queue: 02xxx
const (
	LeaseLost   = MeshStashPrefix + "02001"
	JobNotFound = MeshStashPrefix + "02002"
)

// asset graph: 03xxx
const (
	Precondition    = MeshStashPrefix + "03001"
	ModelNotFound   = MeshStashPrefix + "03002"
	VersionNotFound = MeshStashPrefix + "03003"
	TextureConflict = MeshStashPrefix + "03004"
)

// processors: 04xxx
const (
	TransientDependency = MeshStashPrefix + "04001"
	NotAvailable        = MeshStashPrefix + "04002"
)

// IsMeshStash returns true if the specified error carries a meshstash error code.
func IsMeshStash(err error) bool {
	if err == nil {
		return false
	}
	return strings.HasPrefix(string(apierrors.ReasonForError(err)), MeshStashPrefix)
}

func IsAlreadyExist(err error) bool {
	return apierrors.ReasonForError(err) == AlreadyExist
}

func IsBadRequest(err error) bool {
	return apierrors.ReasonForError(err) == BadRequest
}

func IsInternal(err error) bool {
	return apierrors.ReasonForError(err) == InternalError
}

func IsConflict(err error) bool {
	reason := apierrors.ReasonForError(err)
	return reason == Conflict || reason == LeaseLost
}

func IsLeaseLost(err error) bool {
	return apierrors.ReasonForError(err) == LeaseLost
}

func IsPrecondition(err error) bool {
	return apierrors.ReasonForError(err) == Precondition
}

func IsUnsupportedFormat(err error) bool {
	return apierrors.ReasonForError(err) == UnsupportedFormat
}

func IsIntegrity(err error) bool {
	return apierrors.ReasonForError(err) == Integrity
}

func IsNotAvailable(err error) bool {
	return apierrors.ReasonForError(err) == NotAvailable
}

func IsTransient(err error) bool {
	return apierrors.ReasonForError(err) == TransientDependency
}

func IsNotFound(err error) bool {
	reason := apierrors.ReasonForError(err)
	if reason == NotFound || reason == ModelNotFound || reason == VersionNotFound ||
		reason == JobNotFound {
		return true
	}
	return false
}

func IgnoreFound(err error) error {
	if err == nil || IsNotFound(err) {
		return nil
	}
	return err
}

func GetErrorCode(err error) string {
	if err == nil || !IsMeshStash(err) {
		return ""
	}
	return string(apierrors.ReasonForError(err))
}

func NewBadRequest(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusBadRequest,
		Reason:  BadRequest,
		Message: fmt.Sprintf("Bad request. %s", message),
	}}
}

func NewInternalError(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusInternalServerError,
		Reason:  InternalError,
		Message: fmt.Sprintf("Internal error. %s", message),
	}}
}

func NewAlreadyExist(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusConflict,
		Reason:  AlreadyExist,
		Message: message,
	}}
}

func NewForbidden(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusForbidden,
		Reason:  Forbidden,
		Message: message,
	}}
}

func NewConflict(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusConflict,
		Reason:  Conflict,
		Message: message,
	}}
}

func NotFoundErrorCode(kind string) metav1.StatusReason {
	switch kind {
	case "model":
		return ModelNotFound
	case "modelVersion":
		return VersionNotFound
	case "job":
		return JobNotFound
	default:
		return NotFound
	}
}

func NewNotFound(kind, name string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status: metav1.StatusFailure,
		Code:   http.StatusNotFound,
		Reason: NotFoundErrorCode(kind),
		Details: &metav1.StatusDetails{
			Kind: kind,
			Name: name,
		},
		Message: fmt.Sprintf("%s %s not found.", kind, name),
	}}
}

func NewNotFoundWithMessage(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusNotFound,
		Reason:  NotFound,
		Message: message,
	}}
}

func NewModelNotFound(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusNotFound,
		Reason:  ModelNotFound,
		Message: message,
	}}
}

func NewVersionNotFound(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusNotFound,
		Reason:  VersionNotFound,
		Message: message,
	}}
}

func NewJobNotFound(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusNotFound,
		Reason:  JobNotFound,
		Message: message,
	}}
}

func NewRequestEntityTooLargeError(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusRequestEntityTooLarge,
		Reason:  RequestEntityTooLarge,
		Message: fmt.Sprintf("Request entity is too large: %s", message),
	}}
}

func NewNotImplemented(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusNotImplemented,
		Reason:  NotImplemented,
		Message: message,
	}}
}

func NewUnsupportedFormat(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusBadRequest,
		Reason:  UnsupportedFormat,
		Message: fmt.Sprintf("Unsupported format. %s", message),
	}}
}

func NewStorageIO(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusInternalServerError,
		Reason:  StorageIO,
		Message: fmt.Sprintf("Blob storage failure. %s", message),
	}}
}

func NewIntegrity(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusInternalServerError,
		Reason:  Integrity,
		Message: fmt.Sprintf("Blob integrity violation. %s", message),
	}}
}

func NewLeaseLost(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusConflict,
		Reason:  LeaseLost,
		Message: message,
	}}
}

func NewPrecondition(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusConflict,
		Reason:  Precondition,
		Message: message,
	}}
}

func NewTextureConflict(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusConflict,
		Reason:  TextureConflict,
		Message: message,
	}}
}

func NewTransientDependency(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusServiceUnavailable,
		Reason:  TransientDependency,
		Message: message,
	}}
}

func NewNotAvailable(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusNotImplemented,
		Reason:  NotAvailable,
		Message: message,
	}}
}
