package pipeline

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kozaktomas/sign-vision/internal/database"
)

// ErrInvalidSignName is returned for names that cannot key a reference sign.
var ErrInvalidSignName = errors.New("invalid sign name")

// NameError carries the user-facing reason a sign name was rejected.
type NameError struct {
	Message string
}

func (e *NameError) Error() string {
	return e.Message
}

func (e *NameError) Unwrap() error {
	return ErrInvalidSignName
}

// NormalizeName trims name and checks it can be stored and used as a file stem.
func NormalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return "", &NameError{Message: "يرجى إدخال اسم الإشارة"}
	case utf8.RuneCountInString(name) > database.MaxSignNameLength:
		return "", &NameError{Message: fmt.Sprintf("اسم الإشارة أطول من %d حرفاً", database.MaxSignNameLength)}
	case name == "." || name == ".." || strings.ContainsAny(name, "/\\\x00"):
		return "", &NameError{Message: "اسم الإشارة يحتوي على رموز غير مسموحة"}
	}
	return name, nil
}
