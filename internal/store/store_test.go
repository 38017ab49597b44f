package store

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"

	"optigov.org/internal/domain"
	"optigov.org/internal/events"
	"optigov.org/internal/kv"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 15, 9, 30, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// failingKV wraps Memory and fails Apply while fail is set.
type failingKV struct {
	*kv.Memory
	mu   sync.Mutex
	fail bool
}

func (f *failingKV) setFail(v bool) {
	f.mu.Lock()
	f.fail = v
	f.mu.Unlock()
}

func (f *failingKV) Apply(ctx context.Context, ops ...kv.Op) error {
	f.mu.Lock()
	fail := f.fail
	f.mu.Unlock()
	if fail {
		return errors.New("storage quota exceeded")
	}
	return f.Memory.Apply(ctx, ops...)
}

func newTestStore(t *testing.T, backend kv.Store, opts ...Option) (*Store, *fakeClock) {
	t.Helper()
	clock := newClock()
	base := []Option{
		WithClock(clock.Now),
		WithBcryptCost(bcrypt.MinCost),
		WithLogger(zap.NewNop()),
	}
	return New(backend, append(base, opts...)...), clock
}

func mustCitizen(t *testing.T, s *Store, username string) domain.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), domain.User{
		Username:  username,
		Email:     username + "@example.ng",
		Role:      domain.RoleCitizen,
		FirstName: strings.ToUpper(username[:1]) + username[1:],
		LastName:  "Okafor",
	}, "secret-"+username)
	require.NoError(t, err)
	return u
}

func mustCompany(t *testing.T, s *Store, username, address string) domain.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), domain.User{
		Username:         username,
		Email:            "contact@" + username + ".ng",
		Role:             domain.RoleCompany,
		OrganizationName: strings.ToUpper(username),
		Address:          address,
	}, "company-pass")
	require.NoError(t, err)
	return u
}

func countAll[T any](t *testing.T, s *Store, p domain.Partition) int {
	t.Helper()
	items, err := get[[]T](context.Background(), s, p)
	require.NoError(t, err)
	return len(items)
}

func TestCreateUserRejectsDuplicateIdentity(t *testing.T) {
	s, _ := newTestStore(t, kv.NewMemory())
	ctx := context.Background()
	mustCitizen(t, s, "ada")

	_, err := s.CreateUser(ctx, domain.User{Username: "other", Email: "ADA@example.ng", Role: domain.RoleCitizen}, "pw")
	require.ErrorIs(t, err, domain.ErrAlreadyExists)
	_, err = s.CreateUser(ctx, domain.User{Username: "ada", Email: "new@example.ng", Role: domain.RoleCitizen}, "pw")
	require.ErrorIs(t, err, domain.ErrAlreadyExists)

	users, err := s.GetAllUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)

	_, err = s.CreateUser(ctx, domain.User{Username: "x", Email: "x@example.ng", Role: "superuser"}, "pw")
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCreateCompanyCreatesChecklist(t *testing.T) {
	s, _ := newTestStore(t, kv.NewMemory())
	company := mustCompany(t, s, "dangote", "Ikoyi, Lagos")

	item, err := s.GetComplianceItem(context.Background(), company.ID)
	require.NoError(t, err)
	assert.Len(t, item.Items, len(domain.ComplianceRules))
	assert.Equal(t, 0, item.Score())
}

func TestAuthenticate(t *testing.T) {
	s, clock := newTestStore(t, kv.NewMemory())
	ctx := context.Background()
	u := mustCitizen(t, s, "ada")
	assert.NotEqual(t, "secret-ada", u.PasswordHash)
	assert.True(t, strings.HasPrefix(u.PasswordHash, "$2"))

	clock.Advance(time.Minute)
	got, err := s.Authenticate(ctx, " Ada@Example.ng ", "secret-ada")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.True(t, got.LastActivity.Equal(clock.Now()))

	logs, err := s.GetActivityLogs(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, domain.ActivityLogin, logs[0].Type)

	_, err = s.Authenticate(ctx, "ada@example.ng", "wrong")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = s.Authenticate(ctx, "nobody@example.ng", "secret-ada")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = s.SetUserActive(ctx, u.ID, false)
	require.NoError(t, err)
	_, err = s.Authenticate(ctx, "ada@example.ng", "secret-ada")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestUpdateUser(t *testing.T) {
	s, _ := newTestStore(t, kv.NewMemory())
	ctx := context.Background()
	ada := mustCitizen(t, s, "ada")
	mustCitizen(t, s, "bola")

	phone := "+2348000000000"
	updated, err := s.UpdateUser(ctx, ada.ID, UserPatch{Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, phone, updated.Phone)
	assert.Equal(t, "ada", updated.Username)

	taken := "BOLA@example.ng"
	_, err = s.UpdateUser(ctx, ada.ID, UserPatch{Email: &taken})
	require.ErrorIs(t, err, domain.ErrAlreadyExists)

	password := "new-secret"
	_, err = s.UpdateUser(ctx, ada.ID, UserPatch{Password: &password})
	require.NoError(t, err)
	_, err = s.Authenticate(ctx, "ada@example.ng", "new-secret")
	require.NoError(t, err)

	_, err = s.UpdateUser(ctx, "missing", UserPatch{Phone: &phone})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreateRequestForcesPendingAndSideEffects(t *testing.T) {
	s, _ := newTestStore(t, kv.NewMemory())
	ctx := context.Background()
	citizen := mustCitizen(t, s, "ada")
	company := mustCompany(t, s, "acme", "Wuse 2, Abuja")
	before := countAll[domain.ActivityLog](t, s, domain.PartitionActivityLogs)

	req, err := s.CreateRequest(ctx, domain.DataRequest{
		CitizenID: citizen.ID,
		CompanyID: company.ID,
		Type:      domain.RequestAccess,
		Status:    domain.StatusApproved,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, req.Status)
	assert.Equal(t, domain.PriorityNormal, req.Priority)
	assert.Equal(t, "Ada Okafor", req.CitizenName)
	assert.Equal(t, "ACME", req.CompanyName)
	assert.Nil(t, req.ResponseDate)

	assert.Equal(t, 2, countAll[domain.Notification](t, s, domain.PartitionNotifications))
	assert.Equal(t, before+1, countAll[domain.ActivityLog](t, s, domain.PartitionActivityLogs))

	companyNotes, err := s.GetNotificationsByUser(ctx, company.ID)
	require.NoError(t, err)
	require.Len(t, companyNotes, 1)
	assert.Equal(t, domain.RoleCompany, companyNotes[0].Role)

	_, err = s.CreateRequest(ctx, domain.DataRequest{CitizenID: citizen.ID, CompanyID: company.ID, Type: "modify"})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestUpdateRequestStatusTwice(t *testing.T) {
	s, clock := newTestStore(t, kv.NewMemory())
	ctx := context.Background()
	citizen := mustCitizen(t, s, "ada")
	company := mustCompany(t, s, "acme", "Lagos")
	req, err := s.CreateRequest(ctx, domain.DataRequest{CitizenID: citizen.ID, CompanyID: company.ID, Type: domain.RequestDelete})
	require.NoError(t, err)

	clock.Advance(time.Hour)
	_, err = s.UpdateRequestStatus(ctx, req.ID, domain.StatusApproved, "done")
	require.NoError(t, err)
	clock.Advance(time.Hour)
	second, err := s.UpdateRequestStatus(ctx, req.ID, domain.StatusApproved, "")
	require.NoError(t, err)

	all, err := s.GetAllRequests(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, domain.StatusApproved, all[0].Status)
	require.NotNil(t, all[0].ResponseDate)
	assert.True(t, all[0].ResponseDate.Equal(clock.Now()))
	assert.Equal(t, "done", second.ResponseMessage)

	citizenNotes, err := s.GetNotificationsByUser(ctx, citizen.ID)
	require.NoError(t, err)
	assert.Len(t, citizenNotes, 3) // submission + two responses

	_, err = s.UpdateRequestStatus(ctx, req.ID, domain.StatusPending, "")
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = s.UpdateRequestStatus(ctx, "missing", domain.StatusRejected, "")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPendingOnlyEditAndCancel(t *testing.T) {
	s, _ := newTestStore(t, kv.NewMemory())
	ctx := context.Background()
	citizen := mustCitizen(t, s, "ada")
	company := mustCompany(t, s, "acme", "Lagos")

	pending, err := s.CreateRequest(ctx, domain.DataRequest{CitizenID: citizen.ID, CompanyID: company.ID, Type: domain.RequestAccess})
	require.NoError(t, err)
	answered, err := s.CreateRequest(ctx, domain.DataRequest{CitizenID: citizen.ID, CompanyID: company.ID, Type: domain.RequestAccess})
	require.NoError(t, err)
	_, err = s.UpdateRequestStatus(ctx, answered.ID, domain.StatusRejected, "no record")
	require.NoError(t, err)

	high := domain.PriorityHigh
	desc := "all marketing data"
	edited, err := s.UpdateRequest(ctx, pending.ID, RequestPatch{Priority: &high, Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, domain.PriorityHigh, edited.Priority)
	assert.Equal(t, desc, edited.Description)

	_, err = s.UpdateRequest(ctx, answered.ID, RequestPatch{Priority: &high})
	require.ErrorIs(t, err, domain.ErrRequestNotPending)
	require.ErrorIs(t, s.DeleteRequest(ctx, answered.ID), domain.ErrRequestNotPending)

	got, err := s.GetRequest(ctx, answered.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PriorityNormal, got.Priority)

	_, err = s.AddChatMessage(ctx, pending.ID, domain.ChatMessage{Sender: citizen.ID, SenderRole: domain.RoleCitizen, Message: "hello"})
	require.NoError(t, err)
	require.NoError(t, s.DeleteRequest(ctx, pending.ID))
	_, err = s.GetRequest(ctx, pending.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
	msgs, err := s.GetChatMessages(ctx, pending.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestComplianceScoreAndBounds(t *testing.T) {
	s, _ := newTestStore(t, kv.NewMemory())
	ctx := context.Background()
	company := mustCompany(t, s, "acme", "Lagos")

	score, err := s.GetComplianceScore(ctx, company.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, score)

	for i := 0; i < 3; i++ {
		_, err := s.UpdateComplianceItem(ctx, company.ID, i, true)
		require.NoError(t, err)
	}
	score, err = s.GetComplianceScore(ctx, company.ID)
	require.NoError(t, err)
	assert.Equal(t, 30, score)

	for i := range domain.ComplianceRules {
		_, err := s.UpdateComplianceItem(ctx, company.ID, i, true)
		require.NoError(t, err)
	}
	score, err = s.GetComplianceScore(ctx, company.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, score)

	_, err = s.UpdateComplianceItem(ctx, company.ID, len(domain.ComplianceRules), true)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = s.UpdateComplianceItem(ctx, company.ID, -1, true)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = s.UpdateComplianceItem(ctx, "company_missing", 0, true)
	require.ErrorIs(t, err, domain.ErrNotFound)

	item, err := s.GetComplianceItem(ctx, company.ID)
	require.NoError(t, err)
	assert.Len(t, item.Items, len(domain.ComplianceRules))
}

func TestAnalyticsAggregates(t *testing.T) {
	s, clock := newTestStore(t, kv.NewMemory())
	ctx := context.Background()
	citizen := mustCitizen(t, s, "ada")
	lagos := mustCompany(t, s, "acme", "Plot 4, Victoria Island, Lagos")
	mustCompany(t, s, "nowhere", "12 Unknown Road, Atlantis")

	statuses := []domain.RequestStatus{
		domain.StatusPending, domain.StatusPending, domain.StatusPending, domain.StatusPending, domain.StatusPending,
		domain.StatusApproved, domain.StatusApproved, domain.StatusApproved,
		domain.StatusRejected, domain.StatusRejected,
	}
	for i, st := range statuses {
		typ := domain.RequestAccess
		if i%2 == 1 {
			typ = domain.RequestDelete
		}
		req, err := s.CreateRequest(ctx, domain.DataRequest{CitizenID: citizen.ID, CompanyID: lagos.ID, Type: typ})
		require.NoError(t, err)
		if st != domain.StatusPending {
			_, err = s.UpdateRequestStatus(ctx, req.ID, st, "")
			require.NoError(t, err)
		}
	}

	a, err := s.GetAnalytics(ctx, clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 10, a.TotalRequests)
	assert.Equal(t, 3, a.CompletedRequests)
	assert.Equal(t, 5, a.PendingRequests)
	assert.Equal(t, 2, a.RejectedRequests)
	assert.Equal(t, 30, a.CompletionRate)
	assert.Equal(t, 5, a.AccessRequests)
	assert.Equal(t, 5, a.DeleteRequests)
	assert.Equal(t, 3, a.TotalUsers)
	assert.Equal(t, 1, a.TotalCitizens)
	assert.Equal(t, 2, a.TotalCompanies)
	assert.Equal(t, 3, a.ActiveUsers)
	assert.Equal(t, map[string]int{"Lagos": 10}, a.RequestsByRegion)
	assert.Equal(t, map[string]int{"Lagos": 1, domain.RegionOther: 1}, a.CompaniesByRegion)

	require.Len(t, a.RequestsOverTime, 12)
	assert.Equal(t, "2024-07", a.RequestsOverTime[0].Month)
	assert.Equal(t, "2025-06", a.RequestsOverTime[11].Month)
	assert.Equal(t, 10, a.RequestsOverTime[11].Count)
	assert.Equal(t, 0, a.RequestsOverTime[0].Count)
}

func TestAnalyticsEmptyStore(t *testing.T) {
	s, clock := newTestStore(t, kv.NewMemory())
	a, err := s.GetAnalytics(context.Background(), clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, a.CompletionRate)
	assert.Equal(t, 0, a.AverageComplianceScore)
	assert.Len(t, a.RequestsOverTime, 12)
}

func TestAnalyticsSkipsRequestsToUnknownCompanies(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	users := []domain.User{
		{ID: "company_kano", Role: domain.RoleCompany, Address: "1 Bompai Road, Kano", IsActive: true},
	}
	requests := []domain.DataRequest{
		{ID: "r1", CompanyID: "company_kano", Type: domain.RequestAccess, Status: domain.StatusPending, Date: now},
		{ID: "r2", CompanyID: "company_gone", Type: domain.RequestDelete, Status: domain.StatusPending, Date: now},
	}

	a := computeAnalytics(users, requests, nil, now)
	assert.Equal(t, 2, a.TotalRequests)
	assert.Equal(t, map[string]int{"Kano": 1}, a.RequestsByRegion)
	assert.Equal(t, 2, a.RequestsOverTime[11].Count)
}

func TestTrailingMonthKeysCrossYear(t *testing.T) {
	keys := trailingMonthKeys(time.Date(2025, 1, 31, 23, 0, 0, 0, time.UTC), 3)
	assert.Equal(t, []string{"2024-11", "2024-12", "2025-01"}, keys)
}

func TestRoundTripAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "optigov.db")
	ctx := context.Background()

	backend, err := kv.OpenSQLite(ctx, path)
	require.NoError(t, err)
	s, _ := newTestStore(t, backend)
	_, err = s.Seed(ctx, nil)
	require.NoError(t, err)
	citizen := mustCitizen(t, s, "ada")
	req, err := s.CreateRequest(ctx, domain.DataRequest{CitizenID: citizen.ID, CompanyID: "company_gtbank", Type: domain.RequestAccess, Description: "statements"})
	require.NoError(t, err)
	_, err = s.UpdateRequestStatus(ctx, req.ID, domain.StatusApproved, "sent by email")
	require.NoError(t, err)
	_, err = s.AddChatMessage(ctx, req.ID, domain.ChatMessage{Sender: citizen.ID, SenderRole: domain.RoleCitizen, Message: "thanks"})
	require.NoError(t, err)

	wantUsers, err := s.GetAllUsers(ctx)
	require.NoError(t, err)
	wantRequests, err := s.GetAllRequests(ctx)
	require.NoError(t, err)
	wantChat, err := s.GetChatMessages(ctx, req.ID)
	require.NoError(t, err)
	require.NoError(t, backend.Close())

	reopened, err := kv.OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()
	fresh, _ := newTestStore(t, reopened)

	gotUsers, err := fresh.GetAllUsers(ctx)
	require.NoError(t, err)
	gotRequests, err := fresh.GetAllRequests(ctx)
	require.NoError(t, err)
	gotChat, err := fresh.GetChatMessages(ctx, req.ID)
	require.NoError(t, err)

	if diff := cmp.Diff(wantUsers, gotUsers); diff != "" {
		t.Fatalf("users mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantRequests, gotRequests); diff != "" {
		t.Fatalf("requests mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantChat, gotChat); diff != "" {
		t.Fatalf("chat mismatch (-want +got):\n%s", diff)
	}
}

func TestUnparseablePartitionDegradesToEmpty(t *testing.T) {
	backend := kv.NewMemory()
	ctx := context.Background()
	require.NoError(t, backend.Apply(ctx, kv.Put(domain.PartitionAlerts.Key(), []byte("{not json"))))

	core, logs := observer.New(zapcore.WarnLevel)
	s, _ := newTestStore(t, backend, WithLogger(zap.New(core)))

	alerts, err := s.GetAlertsByCitizen(ctx, "anyone")
	require.NoError(t, err)
	assert.Empty(t, alerts)
	require.Equal(t, 1, logs.FilterMessage("discarding unparseable partition").Len())

	created, err := s.CreateAlert(ctx, domain.Alert{CitizenID: "c1", Message: "Your request was received"})
	require.NoError(t, err)
	assert.Equal(t, domain.AlertInfo, created.Type)
	alerts, err = s.GetAlertsByCitizen(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, alerts, 1)
}

func TestFailedCommitChangesNothing(t *testing.T) {
	backend := &failingKV{Memory: kv.NewMemory()}
	s, _ := newTestStore(t, backend)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	citizen := mustCitizen(t, s, "ada")
	company := mustCompany(t, s, "acme", "Lagos")

	changes := s.Bus().Subscribe(ctx)
	backend.setFail(true)
	_, err := s.CreateRequest(ctx, domain.DataRequest{CitizenID: citizen.ID, CompanyID: company.ID, Type: domain.RequestAccess})
	require.Error(t, err)
	backend.setFail(false)

	assert.Equal(t, 0, countAll[domain.DataRequest](t, s, domain.PartitionRequests))
	assert.Equal(t, 0, countAll[domain.Notification](t, s, domain.PartitionNotifications))
	select {
	case c := <-changes:
		t.Fatalf("unexpected change after failed commit: %v", c.Partitions)
	default:
	}
}

func TestCommitPublishesOneChange(t *testing.T) {
	s, _ := newTestStore(t, kv.NewMemory())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	citizen := mustCitizen(t, s, "ada")
	company := mustCompany(t, s, "acme", "Lagos")

	all := s.Bus().Subscribe(ctx)
	alertsOnly := s.Bus().Subscribe(ctx, domain.PartitionAlerts)

	_, err := s.CreateRequest(ctx, domain.DataRequest{CitizenID: citizen.ID, CompanyID: company.ID, Type: domain.RequestAccess})
	require.NoError(t, err)

	select {
	case c := <-all:
		assert.ElementsMatch(t, []domain.Partition{
			domain.PartitionRequests, domain.PartitionNotifications, domain.PartitionActivityLogs,
		}, c.Partitions)
		assert.Equal(t, events.SourceLocal, c.Source)
	case <-time.After(time.Second):
		t.Fatal("no change published")
	}
	assert.Len(t, all, 0)
	assert.Len(t, alertsOnly, 0)

	_, err = s.MarkNotificationRead(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Len(t, all, 0)
}

func TestNotifications(t *testing.T) {
	s, clock := newTestStore(t, kv.NewMemory())
	ctx := context.Background()

	first, err := s.CreateNotification(ctx, domain.Notification{RecipientID: "u1", Role: domain.RoleCitizen, Message: "one"})
	require.NoError(t, err)
	assert.Equal(t, domain.NotifyInfo, first.Type)
	clock.Advance(time.Second)
	_, err = s.CreateNotification(ctx, domain.Notification{RecipientID: "u1", Role: domain.RoleCitizen, Message: "two", Type: domain.NotifyWarning})
	require.NoError(t, err)
	_, err = s.CreateNotification(ctx, domain.Notification{RecipientID: "u2", Role: domain.RoleCompany, Message: "other"})
	require.NoError(t, err)

	list, err := s.GetNotificationsByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "two", list[0].Message)

	read, err := s.MarkNotificationRead(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, read.Read)
	unread, err := s.UnreadNotificationCount(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, unread)

	n, err := s.MarkAllNotificationsRead(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = s.MarkAllNotificationsRead(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	unread, err = s.UnreadNotificationCount(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, 1, unread)
}

func TestResolveAlertIsOneWay(t *testing.T) {
	s, _ := newTestStore(t, kv.NewMemory())
	ctx := context.Background()
	a, err := s.CreateAlert(ctx, domain.Alert{CitizenID: "c1", Message: "possible breach at ACME", Type: domain.AlertBreach})
	require.NoError(t, err)
	assert.False(t, a.Resolved)

	resolved, err := s.ResolveAlert(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, resolved.Resolved)
	again, err := s.ResolveAlert(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, again.Resolved)

	_, err = s.CreateAlert(ctx, domain.Alert{CitizenID: "c1", Message: "x", Type: "panic"})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestUploadsLogActivity(t *testing.T) {
	s, _ := newTestStore(t, kv.NewMemory())
	ctx := context.Background()
	up, err := s.CreateUpload(ctx, domain.Upload{UserID: "company_acme", FileName: "../policies/privacy.pdf", Type: domain.UploadPrivacyPolicy})
	require.NoError(t, err)
	assert.Equal(t, "privacy.pdf", up.FileName)

	uploads, err := s.GetUploadsByUser(ctx, "company_acme")
	require.NoError(t, err)
	require.Len(t, uploads, 1)

	logs, err := s.GetActivityLogs(ctx, "company_acme")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, domain.ActivityUpload, logs[0].Type)

	_, err = s.CreateUpload(ctx, domain.Upload{UserID: "u", FileName: "a.pdf", Type: "video"})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestActivityLogsNewestFirstWithLimit(t *testing.T) {
	s, clock := newTestStore(t, kv.NewMemory())
	ctx := context.Background()
	for _, action := range []string{"first", "second", "third"} {
		_, err := s.LogActivity(ctx, domain.ActivityLog{UserID: "u1", Action: action, Type: domain.ActivityNotification})
		require.NoError(t, err)
		clock.Advance(time.Second)
	}
	logs, err := s.GetAllActivityLogs(ctx, 2)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "third", logs[0].Action)
	assert.Equal(t, "second", logs[1].Action)
}

func TestChatRequiresRequest(t *testing.T) {
	s, _ := newTestStore(t, kv.NewMemory())
	_, err := s.AddChatMessage(context.Background(), "missing", domain.ChatMessage{Sender: "u", SenderRole: domain.RoleCitizen, Message: "hi"})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAdminNotes(t *testing.T) {
	s, _ := newTestStore(t, kv.NewMemory())
	ctx := context.Background()
	_, err := s.CreateAdminNote(ctx, domain.AdminNote{AdminID: "a1", TargetUserID: "company_acme", Content: "late responses"})
	require.NoError(t, err)
	notes, err := s.GetAdminNotes(ctx, "company_acme")
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "late responses", notes[0].Content)

	_, err = s.CreateAdminNote(ctx, domain.AdminNote{AdminID: "a1", TargetUserID: "x"})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCurrentUserSnapshot(t *testing.T) {
	s, _ := newTestStore(t, kv.NewMemory())
	ctx := context.Background()
	_, err := s.CurrentUser(ctx)
	require.ErrorIs(t, err, domain.ErrNotFound)

	u := mustCitizen(t, s, "ada")
	require.NoError(t, s.SetCurrentUser(ctx, u))
	got, err := s.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Empty(t, got.PasswordHash)

	require.NoError(t, s.ClearCurrentUser(ctx))
	_, err = s.CurrentUser(ctx)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSeedIsIdempotent(t *testing.T) {
	s, _ := newTestStore(t, kv.NewMemory())
	ctx := context.Background()

	seeded, err := s.Seed(ctx, &SeedAdmin{Username: "admin", Email: "admin@optigov.ng", Password: "admin123"})
	require.NoError(t, err)
	assert.True(t, seeded)
	seeded, err = s.Seed(ctx, nil)
	require.NoError(t, err)
	assert.False(t, seeded)

	companies, err := s.GetUsersByRole(ctx, domain.RoleCompany)
	require.NoError(t, err)
	assert.Len(t, companies, 10)
	assert.Equal(t, 10, countAll[domain.ComplianceItem](t, s, domain.PartitionCompliance))
	admins, err := s.GetUsersByRole(ctx, domain.RoleAdmin)
	require.NoError(t, err)
	assert.Len(t, admins, 1)

	gtbank, err := s.GetUserByID(ctx, "company_gtbank")
	require.NoError(t, err)
	assert.Equal(t, "GTBank", gtbank.OrganizationName)
	assert.Equal(t, "Lagos", domain.RegionFor(gtbank.Address))

	_, err = s.Authenticate(ctx, "contact@gtbank.com", SeedPassword)
	require.NoError(t, err)
	_, err = s.Authenticate(ctx, "admin@optigov.ng", "admin123")
	require.NoError(t, err)
}

func TestSeedRejectsAdminCollidingWithCompany(t *testing.T) {
	ctx := context.Background()
	for name, admin := range map[string]SeedAdmin{
		"username": {Username: "MTN", Email: "root@optigov.ng", Password: "admin123"},
		"email":    {Username: "root", Email: "Contact@mtn.com", Password: "admin123"},
	} {
		t.Run(name, func(t *testing.T) {
			s, _ := newTestStore(t, kv.NewMemory())

			seeded, err := s.Seed(ctx, &admin)
			require.ErrorIs(t, err, domain.ErrAlreadyExists)
			assert.False(t, seeded)
			assert.Zero(t, countAll[domain.User](t, s, domain.PartitionUsers))
			assert.Zero(t, countAll[domain.ComplianceItem](t, s, domain.PartitionCompliance))

			seeded, err = s.Seed(ctx, nil)
			require.NoError(t, err)
			assert.True(t, seeded)
			_, err = s.Authenticate(ctx, "contact@mtn.com", SeedPassword)
			require.NoError(t, err)
		})
	}
}

func TestWatchExternalRepublishesFileChanges(t *testing.T) {
	dir := t.TempDir()
	writer, err := kv.NewFile(dir)
	require.NoError(t, err)
	watched, err := kv.NewFile(dir)
	require.NoError(t, err)

	s, _ := newTestStore(t, watched)
	ctx, cancel := context.WithCancel(context.Background())
	changes := s.Bus().Subscribe(ctx, domain.PartitionAlerts)

	done := make(chan error, 1)
	go func() { done <- s.WatchExternal(ctx) }()
	time.Sleep(100 * time.Millisecond)

	other, _ := newTestStore(t, writer)
	_, err = other.CreateAlert(ctx, domain.Alert{CitizenID: "c1", Message: "written elsewhere"})
	require.NoError(t, err)

	select {
	case c := <-changes:
		assert.Equal(t, events.SourceExternal, c.Source)
		assert.Contains(t, c.Partitions, domain.PartitionAlerts)
	case <-time.After(2 * time.Second):
		t.Fatal("external change not republished")
	}
	cancel()
	require.NoError(t, <-done)
}

func TestWatchExternalNoopForMemory(t *testing.T) {
	s, _ := newTestStore(t, kv.NewMemory())
	require.NoError(t, s.WatchExternal(context.Background()))
}
