/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
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

const ModelOpsPrefix = "ModelOps."

/*
   5-digit Error Code Convention: [xx][yyy]
   [xx] Business ID (00–99), used to distinguish errors from different business interfaces.
   00: General errors
   01: GPU-job-related errors
   02: Endpoint-related errors
   03: Tenancy and policy errors
   [yyy] Error code range (000–999)
*/

// public: 00xxx
const (
	InternalError  = ModelOpsPrefix + "00001"
	BadRequest     = ModelOpsPrefix + "00002"
	Forbidden      = ModelOpsPrefix + "00003"
	AlreadyExist   = ModelOpsPrefix + "00004"
	NotFound       = ModelOpsPrefix + "00005"
	NotImplemented = ModelOpsPrefix + "00006"
	Unauthorized   = ModelOpsPrefix + "00007"
)

// gpu job: 01xxx
const (
	GpuJobNotFound = ModelOpsPrefix + "01001"
	QuotaExceeded  = ModelOpsPrefix + "01002"
)

// endpoint: 02xxx
const (
	EndpointNotFound     = ModelOpsPrefix + "02001"
	ModelVersionNotFound = ModelOpsPrefix + "02002"
)

// tenancy and policy: 03xxx
const (
	TenancyDenied         = ModelOpsPrefix + "03001"
	IdempotencyConflict   = ModelOpsPrefix + "03002"
	IdempotencyInProgress = ModelOpsPrefix + "03003"
)

// returns true if the specified error reason is a modelops error.
func IsModelOps(err error) bool {
	if err == nil {
		return false
	}
	return strings.HasPrefix(string(apierrors.ReasonForError(err)), ModelOpsPrefix)
}

func IsBadRequest(err error) bool {
	return apierrors.ReasonForError(err) == BadRequest
}

func IsInternal(err error) bool {
	return apierrors.ReasonForError(err) == InternalError
}

func IsAlreadyExist(err error) bool {
	return apierrors.ReasonForError(err) == AlreadyExist
}

func IsNotFound(err error) bool {
	reason := apierrors.ReasonForError(err)
	if reason == NotFound || reason == GpuJobNotFound ||
		reason == EndpointNotFound || reason == ModelVersionNotFound {
		return true
	}
	return false
}

func IsQuotaExceeded(err error) bool {
	return apierrors.ReasonForError(err) == QuotaExceeded
}

func IsTenancyDenied(err error) bool {
	return apierrors.ReasonForError(err) == TenancyDenied
}

func IsIdempotencyConflict(err error) bool {
	return apierrors.ReasonForError(err) == IdempotencyConflict
}

func IgnoreFound(err error) error {
	if err == nil || IsNotFound(err) {
		return nil
	}
	return err
}

func GetErrorCode(err error) string {
	if err == nil || !IsModelOps(err) {
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

func NotFoundErrorCode(kind string) metav1.StatusReason {
	switch kind {
	case "GpuJob":
		return GpuJobNotFound
	case "Endpoint":
		return EndpointNotFound
	case "ModelVersion":
		return ModelVersionNotFound
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

func NewQuotaExceeded(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusTooManyRequests,
		Reason:  QuotaExceeded,
		Message: message,
	}}
}

func NewTenancyDenied(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusBadRequest,
		Reason:  TenancyDenied,
		Message: message,
	}}
}

func NewIdempotencyConflict(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusConflict,
		Reason:  IdempotencyConflict,
		Message: message,
	}}
}

func NewIdempotencyInProgress(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusConflict,
		Reason:  IdempotencyInProgress,
		Message: message,
	}}
}

func NewUnauthorized(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusUnauthorized,
		Reason:  Unauthorized,
		Message: message,
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
