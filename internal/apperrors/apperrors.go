// Package apperrors defines the error kinds shared by the services and the web layer.
package apperrors

import (
	"errors"
	"fmt"
)

// Error kinds. Every domain error reports exactly one of these through errors.Is.
var (
	ErrNotFound    = errors.New("resource not found")
	ErrForbidden   = errors.New("forbidden")
	ErrConflict    = errors.New("conflict")
	ErrValidation  = errors.New("validation failed")
	ErrUnavailable = errors.New("service unavailable")
)

// Error is a domain error with a kind and a human readable message.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }
func (e *Error) Is(target error) bool { return target == e.Kind }

func newError(kind error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Domain errors.
var (
	ErrPartyNotFound = newError(ErrNotFound, "파티를 찾을 수 없습니다.")
	ErrUserNotFound  = newError(ErrNotFound, "사용자를 찾을 수 없습니다.")

	ErrNotCreator     = newError(ErrForbidden, "파티 개최자만 취소할 수 있습니다.")
	ErrForbiddenPage  = newError(ErrForbidden, "이 페이지에 접근할 권한이 없습니다.")
	ErrSelfRoleChange = newError(ErrForbidden, "자신의 권한은 변경할 수 없습니다.")

	ErrInsufficientScore = newError(ErrForbidden, "최소 점수가 부족합니다.")

	ErrAlreadyJoined = newError(ErrConflict, "이미 참여한 파티입니다.")
	ErrTeamFull      = newError(ErrConflict, "해당 팀이 가득 찼습니다.")
	ErrNotAMember    = newError(ErrConflict, "파티에 참여하지 않았습니다.")

	ErrUnknownPartyType = newError(ErrValidation, "잘못된 파티 타입입니다.")
	ErrInvalidRole      = newError(ErrValidation, "잘못된 역할입니다.")
	ErrInvalidTeam      = newError(ErrValidation, "잘못된 팀 번호입니다.")
	ErrInvalidRequest   = newError(ErrValidation, "잘못된 요청입니다.")
)

// InsufficientScoreError is returned when a user's points are below a party's minimum.
type InsufficientScoreError struct {
	Required int
	Current  int
}

func (e *InsufficientScoreError) Error() string {
	return fmt.Sprintf("최소 %d점이 필요합니다. (현재: %d점)", e.Required, e.Current)
}
func (e *InsufficientScoreError) Is(target error) bool {
	return target == ErrForbidden || target == ErrInsufficientScore
}

// UnavailableError wraps a persistence or transport failure.
type UnavailableError struct{ Err error }

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("storage unavailable: %v", e.Err)
}
func (e *UnavailableError) Unwrap() error { return e.Err }
func (e *UnavailableError) Is(target error) bool { return target == ErrUnavailable }

// Unavailable wraps err so it is reported as ErrUnavailable. A nil err stays nil.
func Unavailable(err error) error {
	if err == nil {
		return nil
	}
	var ue *UnavailableError
	if errors.As(err, &ue) {
		return err
	}
	return &UnavailableError{Err: err}
}
