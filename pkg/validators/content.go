package validators

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	NameMaxLength     = 150
	TitleMinLength    = 5
	TitleMaxLength    = 255
	PostBodyMinLength = 10
	CommentMinLength  = 3
	CommentMaxLength  = 1000
)

var (
	ErrNameEmpty   = errors.New("name can't be empty")
	ErrNameTooLong = fmt.Errorf("name can't be longer than %d characters", NameMaxLength)

	ErrTitleTooShort = fmt.Errorf("title must be at least %d characters long", TitleMinLength)
	ErrTitleTooLong  = fmt.Errorf("title can't be longer than %d characters", TitleMaxLength)
	ErrBodyTooShort  = fmt.Errorf("content must be at least %d characters long", PostBodyMinLength)

	ErrCommentTooShort = fmt.Errorf("comment must be at least %d characters long", CommentMinLength)
	ErrCommentTooLong  = fmt.Errorf("comment cannot exceed %d characters", CommentMaxLength)
)

// NameValidator checks a first or last name and returns it trimmed
func NameValidator(n string) (string, error) {
	n = strings.TrimSpace(n)

	if n == "" {
		return "", ErrNameEmpty
	}

	if utf8.RuneCountInString(n) > NameMaxLength {
		return "", ErrNameTooLong
	}

	return n, nil
}

// TitleValidator checks a post title and returns it trimmed
func TitleValidator(t string) (string, error) {
	t = strings.TrimSpace(t)

	switch l := utf8.RuneCountInString(t); {
	case l < TitleMinLength:
		return "", ErrTitleTooShort
	case l > TitleMaxLength:
		return "", ErrTitleTooLong
	}

	return t, nil
}

// PostBodyValidator checks a post body and returns it trimmed
func PostBodyValidator(b string) (string, error) {
	b = strings.TrimSpace(b)

	if utf8.RuneCountInString(b) < PostBodyMinLength {
		return "", ErrBodyTooShort
	}

	return b, nil
}

// CommentValidator checks a comment body and returns it trimmed
func CommentValidator(c string) (string, error) {
	c = strings.TrimSpace(c)

	switch l := utf8.RuneCountInString(c); {
	case l < CommentMinLength:
		return "", ErrCommentTooShort
	case l > CommentMaxLength:
		return "", ErrCommentTooLong
	}

	return c, nil
}
