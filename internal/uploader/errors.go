package uploader

import "codeberg.org/mutker/radmon/internal/errors"

const (
	ErrLinkUp        = errors.ErrorCode("uploader_link_up_failed")
	ErrLinkTimeout   = errors.ErrorCode("uploader_link_timeout")
	ErrPostFailed    = errors.ErrorCode("uploader_post_failed")
	ErrBadStatus     = errors.ErrorCode("uploader_unexpected_status")
	ErrInvalidConfig = errors.ErrorCode("uploader_invalid_config")
)
