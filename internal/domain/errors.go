package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrPersistence     = errors.New("persistence failure")
	ErrVerification    = errors.New("signature verification failed")
	ErrTransfer        = errors.New("token transfer failed")
	ErrVersionConflict = errors.New("version conflict")
)
