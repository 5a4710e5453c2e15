package formguard

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// Field names a contact form input.
type Field string

const (
	FieldName    Field = "name"
	FieldEmail   Field = "email"
	FieldMessage Field = "message"
)

// Length bounds, in characters.
const (
	MinNameLength    = 2
	MaxNameLength    = 100
	MaxEmailLength   = 254
	MinMessageLength = 10
	MaxMessageLength = 5000
)

// User-facing failure messages.
const (
	ErrMsgName    = "Name must be 2-100 characters"
	ErrMsgEmail   = "Please enter a valid email"
	ErrMsgMessage = "Invalid message content"
)

// ErrRejected is returned when a submission fails validation and nothing was sent.
var ErrRejected = errors.New("contact submission rejected")

// MaxLength returns the input cap for field.
func MaxLength(field Field) int {
	switch field {
	case FieldName:
		return MaxNameLength
	case FieldEmail:
		return MaxEmailLength
	case FieldMessage:
		return MaxMessageLength
	}
	return 0
}

var (
	nameRe  = regexp.MustCompile(`^[a-zA-Z\s\-']+$`)
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// messageDenylist flags markup, script, entity, PHP superglobal and SQL keyword
// fragments. A blocklist heuristic: output encoding is still required wherever
// messages are displayed.
var messageDenylist = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<script`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)onerror=`),
	regexp.MustCompile(`(?i)onclick=`),
	regexp.MustCompile(`(?i)onload=`),
	regexp.MustCompile(`(?i)eval\(`),
	regexp.MustCompile(`(?i)document\.cookie`),
	regexp.MustCompile(`(?i)window\.location`),
	regexp.MustCompile(`(?i)&#x`),
	regexp.MustCompile(`(?i)&#`),
	regexp.MustCompile(`(?i)\$_GET`),
	regexp.MustCompile(`(?i)\$_POST`),
	regexp.MustCompile(`(?i)\$_REQUEST`),
	regexp.MustCompile(`(?i)union\s+select`),
	regexp.MustCompile(`(?i)select\s+from`),
	regexp.MustCompile(`(?i)insert\s+into`),
	regexp.MustCompile(`(?i)delete\s+from`),
	regexp.MustCompile(`(?i)drop\s+table`),
}

// ValidateName accepts 2-100 characters of letters, whitespace, hyphens and apostrophes.
func ValidateName(name string) bool {
	n := utf8.RuneCountInString(name)
	if n < MinNameLength || n > MaxNameLength {
		return false
	}
	return nameRe.MatchString(name)
}

// ValidateEmail accepts a local@domain.tld shape of at most 254 characters.
func ValidateEmail(email string) bool {
	return emailRe.MatchString(email) && utf8.RuneCountInString(email) <= MaxEmailLength
}

// ValidateMessage accepts 10-5000 characters containing no denylisted pattern.
func ValidateMessage(message string) bool {
	n := utf8.RuneCountInString(message)
	if n < MinMessageLength || n > MaxMessageLength {
		return false
	}
	return MatchDenylist(message) == ""
}

// MatchDenylist returns the first denylisted expression found in message, or "".
func MatchDenylist(message string) string {
	for _, re := range messageDenylist {
		if re.MatchString(message) {
			return re.String()
		}
	}
	return ""
}

// Fields is one contact submission.
type Fields struct {
	Name    string `json:"name" validate:"contact_name"`
	Email   string `json:"email" validate:"contact_email"`
	Message string `json:"message" validate:"contact_message"`
}

// Sanitized returns a copy with every field passed through Sanitize.
func (f Fields) Sanitized() Fields {
	return Fields{
		Name:    Sanitize(f.Name),
		Email:   Sanitize(f.Email),
		Message: Sanitize(f.Message),
	}
}

// Get returns the value of field.
func (f Fields) Get(field Field) string {
	switch field {
	case FieldName:
		return f.Name
	case FieldEmail:
		return f.Email
	case FieldMessage:
		return f.Message
	}
	return ""
}

func (f *Fields) set(field Field, value string) {
	switch field {
	case FieldName:
		f.Name = value
	case FieldEmail:
		f.Email = value
	case FieldMessage:
		f.Message = value
	}
}

// Errors maps a failing field to its message. Passing fields have no key.
type Errors map[Field]string

// Outcome is the result of Check.
type Outcome struct {
	Accepted bool
	Errors   Errors
}

var validate = newValidator()

var fieldMessages = map[Field]string{
	FieldName:    ErrMsgName,
	FieldEmail:   ErrMsgEmail,
	FieldMessage: ErrMsgMessage,
}

func newValidator() *validator.Validate {
	v := validator.New()

	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(sf reflect.StructField) string {
		name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	register := func(tag string, fn func(string) bool) {
		if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return fn(fl.Field().String())
		}); err != nil {
			panic(fmt.Sprintf("failed to register %s validator: %v", tag, err))
		}
	}
	register("contact_name", ValidateName)
	register("contact_email", ValidateEmail)
	register("contact_message", ValidateMessage)

	return v
}

// Check sanitises every field, then validates all three. The sanitised fields
// are returned so callers submit exactly what was validated.
func Check(f Fields) (Fields, Outcome) {
	clean := f.Sanitized()
	out := Outcome{Accepted: true, Errors: Errors{}}

	err := validate.Struct(clean)
	if err == nil {
		return clean, out
	}

	out.Accepted = false
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		for field, msg := range fieldMessages {
			out.Errors[field] = msg
		}
		return clean, out
	}
	for _, fe := range verrs {
		field := Field(fe.Field())
		out.Errors[field] = fieldMessages[field]
	}
	return clean, out
}
