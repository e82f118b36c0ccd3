package domain

import "errors"

var (
	// ErrTopicNotFound is returned when a quiz is started for an unknown topic.
	ErrTopicNotFound = errors.New("topic not found")
	// ErrNoQuestionsFound is returned when a topic and its filters match no questions.
	ErrNoQuestionsFound = errors.New("no questions found with specified criteria")
	// ErrAttemptNotFound indicates the quiz attempt does not exist.
	ErrAttemptNotFound = errors.New("quiz attempt not found")
	// ErrNotAuthorized is returned when a non-owner, non-admin touches an attempt.
	ErrNotAuthorized = errors.New("not authorized to access this quiz attempt")
	// ErrAlreadySubmitted is returned when an attempt has already been scored.
	ErrAlreadySubmitted = errors.New("quiz has already been submitted")
	// ErrStorage wraps any persistence failure.
	ErrStorage = errors.New("storage failure")

	ErrInvalidInput     = errors.New("invalid input")
	ErrGenerationFailed = errors.New("quiz generation failed")

	// ErrUserNotFound indicates the account does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists is returned on registration with a taken email or username.
	ErrUserExists = errors.New("user with this email or username already exists")
	// ErrInvalidCredentials is returned on a failed login.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUnauthenticated means the request carried no valid token.
	ErrUnauthenticated = errors.New("not authorized, no valid token")
)
