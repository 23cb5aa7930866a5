package message

import "errors"

// Message service errors translated to HTTP statuses at the API boundary
var (
	ErrMessageNotFound            = errors.New("message not exists")
	ErrFirstMessageNotFound       = errors.New("first message not exists")
	ErrSuggestedQuestionsDisabled = errors.New("suggested questions after answer is disabled")
	ErrInvalidRating              = errors.New("rating must be like, dislike or null")
)
