package auth

import (
	"errors"
	"regexp"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// genericMessage replaces non-operational error detail in terse mode.
const genericMessage = "Something went wrong"

var (
	reSqliteUnique   = regexp.MustCompile(`UNIQUE constraint failed: ([\w.]+)`)
	reQuotedValue    = regexp.MustCompile(`["']([^"']+)["']`)
	reDuplicateMatch = regexp.MustCompile(`(?i)unique constraint|duplicate key value|duplicate entry`)
)

// Normalize maps any raised failure into a classified *Error. Rules apply
// in a fixed order, first match wins: already-classified errors, malformed
// identifiers, uniqueness violations, multi-field validation failures,
// malformed tokens, expired tokens. Anything left is internal.
func Normalize(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case isMalformedIDError(err):
		return Wrap(err, KindBadRequest, "Invalid identifier provided")

	case isDuplicateFieldError(err):
		return Wrap(err, KindBadRequest,
			"Duplicate field value: "+duplicateFieldValue(err)+". Please use another value")

	case isValidationError(err):
		return Wrap(err, KindBadRequest, validationMessage(err))

	case isMalformedTokenError(err):
		return ErrTokenMalformed

	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return Wrap(err, kindFromStatus(fiberErr.Code), fiberErr.Message)
	}

	return Wrap(err, KindInternal, genericMessage)
}

func kindFromStatus(code int) Kind {
	switch code {
	case fiber.StatusBadRequest:
		return KindBadRequest
	case fiber.StatusUnauthorized:
		return KindUnauthenticated
	case fiber.StatusForbidden:
		return KindForbidden
	case fiber.StatusNotFound:
		return KindNotFound
	case fiber.StatusServiceUnavailable:
		return KindUnavailable
	default:
		return KindInternal
	}
}

func isMalformedIDError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "invalid UUID")
}

func isDuplicateFieldError(err error) bool {
	if err == nil {
		return false
	}
	return reDuplicateMatch.MatchString(err.Error())
}

// duplicateFieldValue extracts the offending column or value from a driver
// uniqueness error message.
func duplicateFieldValue(err error) string {
	msg := err.Error()

	if m := reSqliteUnique.FindStringSubmatch(msg); len(m) == 2 {
		return m[1]
	}

	if m := reQuotedValue.FindStringSubmatch(msg); len(m) == 2 {
		return m[1]
	}

	return "value"
}

func isValidationError(err error) bool {
	var ve validation.Errors
	return errors.As(err, &ve)
}

// validationMessage joins per-field messages in a stable order.
func validationMessage(err error) string {
	var ve validation.Errors
	if !errors.As(err, &ve) {
		return "Invalid input data"
	}

	fields := make([]string, 0, len(ve))
	for field := range ve {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+" "+ve[field].Error())
	}

	return "Invalid input data. " + strings.Join(parts, ". ")
}

func isMalformedTokenError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, jwt.ErrTokenMalformed) ||
		errors.Is(err, jwt.ErrTokenSignatureInvalid) ||
		errors.Is(err, jwt.ErrTokenUnverifiable) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed")
}

// ErrorHandler is the single terminal stage for every failure path. Mount
// it as the fiber application's ErrorHandler; no other component writes
// error output.
//
// Data endpoints (paths under /api) receive the JSON envelope; anything
// else renders the error view. Development mode includes internal detail,
// production withholds it.
func ErrorHandler(cfg Config, logger Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = defLogger{}
	}
	verbose := !IsProduction(cfg)

	return func(c *fiber.Ctx, err error) error {
		e := Normalize(err)

		if !e.Operational() {
			logger.Error("unexpected error on %s %s: %v", c.Method(), c.Path(), err)
		}

		if isDataRequest(c) {
			return sendJSONError(c, e, verbose)
		}
		return renderError(c, e, verbose)
	}
}

func isDataRequest(c *fiber.Ctx) bool {
	return strings.HasPrefix(c.Path(), "/api")
}

func sendJSONError(c *fiber.Ctx, e *Error, verbose bool) error {
	if verbose {
		return c.Status(e.StatusCode()).JSON(fiber.Map{
			"status":  e.Status(),
			"message": e.Message,
			"error":   e.Error(),
		})
	}

	if e.Operational() {
		return c.Status(e.StatusCode()).JSON(fiber.Map{
			"status":  e.Status(),
			"message": e.Message,
		})
	}

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"status":  "error",
		"message": genericMessage,
	})
}

func renderError(c *fiber.Ctx, e *Error, verbose bool) error {
	msg := e.Message
	if !e.Operational() && !verbose {
		msg = "Please try again later"
	}

	if err := c.Status(e.StatusCode()).Render("error", fiber.Map{
		"title": "Something went wrong",
		"msg":   msg,
	}); err != nil {
		// no view engine mounted, degrade to plain text
		return c.Status(e.StatusCode()).SendString(msg)
	}
	return nil
}
