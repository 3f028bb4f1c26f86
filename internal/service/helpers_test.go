package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/helpdesk-labs/issue-tracker/internal/auth"
	"github.com/helpdesk-labs/issue-tracker/internal/domain"
	"github.com/helpdesk-labs/issue-tracker/internal/events"
	"github.com/helpdesk-labs/issue-tracker/internal/repository/memory"
	"github.com/helpdesk-labs/issue-tracker/internal/session"
	apperrors "github.com/helpdesk-labs/issue-tracker/pkg/util"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 10, 9, 30, 0, 0, time.Local)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) ofType(t events.EventType) []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.Event
	for _, e := range p.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	store     *memory.Store
	clock     *fakeClock
	publisher *recordingPublisher
	hasher    *auth.PasswordHasher
	tokens    *auth.TokenManager
	sessions  *session.RedisStore
	redis     *miniredis.Miniredis

	issues    *IssueService
	reports   *ReportService
	auth      *AuthService
	directory *DirectoryService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := &fixture{
		store:     memory.NewStore(),
		clock:     newFakeClock(),
		publisher: &recordingPublisher{},
		hasher:    auth.NewPasswordHasher(bcrypt.MinCost),
		tokens:    auth.NewTokenManager("access", "refresh", time.Hour, 2*time.Hour),
		sessions:  session.NewRedisStoreWithClient(client),
		redis:     mr,
	}
	f.issues = NewIssueService(IssueDependencies{
		IssueRepo:      f.store.Issues(),
		DepartmentRepo: f.store.Departments(),
		UserRepo:       f.store.Users(),
		Publisher:      f.publisher,
		Clock:          f.clock.Now,
	})
	f.reports = NewReportService(f.store.Issues())
	f.auth = NewAuthService(AuthDependencies{
		UserRepo:       f.store.Users(),
		DepartmentRepo: f.store.Departments(),
		Sessions:       f.sessions,
		Tokens:         f.tokens,
		Hasher:         f.hasher,
		Clock:          f.clock.Now,
	})
	f.directory = NewDirectoryService(DirectoryDependencies{
		DepartmentRepo: f.store.Departments(),
		UserRepo:       f.store.Users(),
		Hasher:         f.hasher,
		Clock:          f.clock.Now,
	})
	return f
}

func (f *fixture) department(t *testing.T, name, deptType string) *domain.Department {
	t.Helper()
	dept, err := f.directory.CreateDepartment(context.Background(), name, deptType)
	require.NoError(t, err)
	return dept
}

func (f *fixture) user(t *testing.T, username, department string, isAdmin bool) *domain.User {
	t.Helper()
	f.clock.Advance(time.Second)
	user, _, err := f.directory.CreateUser(context.Background(), AccountInput{
		FullName:   "User " + username,
		Email:      username + "@example.com",
		Username:   username,
		Password:   "password-" + username,
		Department: department,
		IsAdmin:    isAdmin,
	})
	require.NoError(t, err)
	return user
}

func principalFor(user *domain.User) *auth.Principal {
	return &auth.Principal{User: user, IsAdmin: user.IsAdmin}
}

func requireDomainError(t *testing.T, err error, code string) *apperrors.DomainError {
	t.Helper()
	require.Error(t, err)
	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr), "expected DomainError, got %T: %v", err, err)
	require.Equal(t, code, domainErr.Code, domainErr.Message)
	return domainErr
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }
