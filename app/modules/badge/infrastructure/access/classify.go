package badgeaccess

import (
	"context"
	"database/sql/driver"
	"errors"
	"io"
	"net"
	"strings"

	badgedomain "github.com/Black-And-White-Club/rota-badges/app/modules/badge/domain"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun/driver/pgdriver"
)

// Class is the channel-level category of a data error.
type Class int

const (
	ClassNone Class = iota
	ClassDenied
	ClassUnavailable
	ClassNotConfigured
	ClassDuplicate
	ClassOther
)

func (c Class) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassDenied:
		return "denied"
	case ClassUnavailable:
		return "unavailable"
	case ClassNotConfigured:
		return "not_configured"
	case ClassDuplicate:
		return "duplicate"
	default:
		return "other"
	}
}

// SQLState extracts the SQLSTATE code from a pgdriver or pgx error.
func SQLState(err error) string {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C')
	}
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code
	}
	return ""
}

// Classify maps err to a Class.
func Classify(err error) Class {
	if err == nil {
		return ClassNone
	}
	if errors.Is(err, badgedomain.ErrDuplicateIgnored) {
		return ClassDuplicate
	}
	if errors.Is(err, badgedomain.ErrNotConfigured) {
		return ClassNotConfigured
	}

	if code := SQLState(err); code != "" {
		switch {
		case code == "23505":
			return ClassDuplicate
		case code == "42501", code == "28000", code == "28P01":
			return ClassDenied
		case code == "42883", code == "42P01", code == "3F000":
			return ClassNotConfigured
		case strings.HasPrefix(code, "08"),
			code == "57P01", code == "57P02", code == "57P03",
			code == "53300":
			return ClassUnavailable
		}
		return ClassOther
	}

	var connectErr *pgconn.ConnectError
	var netErr net.Error
	switch {
	case errors.As(err, &connectErr),
		errors.As(err, &netErr),
		errors.Is(err, driver.ErrBadConn),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, context.DeadlineExceeded):
		return ClassUnavailable
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "permission denied"):
		return ClassDenied
	case strings.Contains(msg, "function") && strings.Contains(msg, "does not exist"),
		strings.Contains(msg, "could not find the function"):
		return ClassNotConfigured
	}
	return ClassOther
}
