package robot

import "errors"

var (
	ErrUnknownJoint     = errors.New("robot: unknown joint")
	ErrUnknownFrame     = errors.New("robot: unknown frame")
	ErrUnknownReference = errors.New("robot: unknown reference configuration")
	ErrInvalidModel     = errors.New("robot: invalid model description")
	ErrConfigSize       = errors.New("robot: configuration size does not match model")
)
