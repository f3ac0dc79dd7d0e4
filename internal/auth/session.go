package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "mediquick-scheduling"

type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
)

func (r Role) valid() bool {
	switch r {
	case RolePatient, RoleDoctor, RoleAdmin:
		return true
	}
	return false
}

var (
	ErrInvalidSession = errors.New("invalid session")
	ErrInvalidRole    = errors.New("invalid session role")
)

// Session identifies the caller. SubjectID is the patient or doctor id.
type Session struct {
	Role      Role
	SubjectID uuid.UUID
}

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Manager issues and verifies HS256 session tokens.
type Manager struct {
	secret []byte
	cookie string
	ttl    time.Duration
	now    func() time.Time
}

func NewManager(secret, cookie string, ttl time.Duration) *Manager {
	return &Manager{
		secret: []byte(secret),
		cookie: cookie,
		ttl:    ttl,
		now:    time.Now,
	}
}

// CookieName is the cookie the middleware reads the token from.
func (m *Manager) CookieName() string {
	return m.cookie
}

func (m *Manager) Issue(sess Session) (string, error) {
	if !sess.Role.valid() {
		return "", ErrInvalidRole
	}
	if sess.SubjectID == uuid.Nil {
		return "", fmt.Errorf("%w: empty subject", ErrInvalidSession)
	}

	now := m.now()
	claims := Claims{
		Role: string(sess.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   sess.SubjectID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return token, nil
}

func (m *Manager) Parse(raw string) (Session, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %w", ErrInvalidSession, err)
	}
	if !token.Valid {
		return Session{}, ErrInvalidSession
	}

	role := Role(claims.Role)
	if !role.valid() {
		return Session{}, ErrInvalidRole
	}

	subject, err := uuid.Parse(claims.Subject)
	if err != nil || subject == uuid.Nil {
		return Session{}, fmt.Errorf("%w: bad subject", ErrInvalidSession)
	}

	return Session{Role: role, SubjectID: subject}, nil
}

type ctxKey struct{}

func WithSession(ctx context.Context, sess Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, sess)
}

func FromContext(ctx context.Context) (Session, bool) {
	sess, ok := ctx.Value(ctxKey{}).(Session)
	return sess, ok
}

// PatientID returns the caller's patient id, or uuid.Nil when the caller is not a
// patient.
func PatientID(ctx context.Context) uuid.UUID {
	return subjectFor(ctx, RolePatient)
}

// DoctorID returns the caller's doctor id, or uuid.Nil when the caller is not a doctor.
func DoctorID(ctx context.Context) uuid.UUID {
	return subjectFor(ctx, RoleDoctor)
}

func subjectFor(ctx context.Context, role Role) uuid.UUID {
	sess, ok := FromContext(ctx)
	if !ok || sess.Role != role {
		return uuid.Nil
	}
	return sess.SubjectID
}
