package store

import (
	"context"
	"strconv"
	"time"

	"leadwatch/internal/profile"
	"leadwatch/store/cache"
)

// Store is the composition root's single entry point onto persistence: it
// wraps a Driver and layers a small instance-level cache over the rows that
// change rarely but are read on every message (tariff plans).
type Store struct {
	profile *profile.Profile
	driver  Driver

	tariffPlanCache *cache.LRUCache[string, *TariffPlan]
}

// New wraps driver with the caches the store owns directly.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		profile:         profile,
		driver:          driver,
		tariffPlanCache: cache.New[string, *TariffPlan](256, 10*time.Minute),
	}
}

func (s *Store) Driver() Driver { return s.driver }

func (s *Store) Migrate(ctx context.Context) error { return s.driver.Migrate(ctx) }

func (s *Store) Close() error { return s.driver.Close() }

// --- Users ---

func (s *Store) CreateUser(ctx context.Context, create *CreateUser) (*User, error) {
	return s.driver.CreateUser(ctx, create)
}

func (s *Store) GetUser(ctx context.Context, userID int64) (*User, error) {
	return s.driver.GetUser(ctx, userID)
}

func (s *Store) ListUsers(ctx context.Context, find *FindUser) ([]*User, error) {
	return s.driver.ListUsers(ctx, find)
}

func (s *Store) UpdateUser(ctx context.Context, update *UpdateUser) (*User, error) {
	return s.driver.UpdateUser(ctx, update)
}

func (s *Store) AdjustBalance(ctx context.Context, userID int64, delta int64) (*User, error) {
	return s.driver.AdjustBalance(ctx, userID, delta)
}

// --- Referral links ---

func (s *Store) CreateReferralLink(ctx context.Context, code string) (*ReferralLink, error) {
	return s.driver.CreateReferralLink(ctx, code)
}

func (s *Store) GetReferralLink(ctx context.Context, code string) (*ReferralLink, error) {
	return s.driver.GetReferralLink(ctx, code)
}

func (s *Store) ListReferralLinks(ctx context.Context, find *FindReferralLink) ([]*ReferralLink, error) {
	return s.driver.ListReferralLinks(ctx, find)
}

func (s *Store) DeleteReferralLink(ctx context.Context, code string) error {
	return s.driver.DeleteReferralLink(ctx, code)
}

// --- Payment history ---

func (s *Store) CreatePaymentHistory(ctx context.Context, create *CreatePaymentHistory) (*PaymentHistory, error) {
	return s.driver.CreatePaymentHistory(ctx, create)
}

func (s *Store) ListPaymentHistory(ctx context.Context, find *FindPaymentHistory) ([]*PaymentHistory, error) {
	return s.driver.ListPaymentHistory(ctx, find)
}

// --- Tariff plans (cached) ---

func (s *Store) CreateTariffPlan(ctx context.Context, create *CreateTariffPlan) (*TariffPlan, error) {
	plan, err := s.driver.CreateTariffPlan(ctx, create)
	if err != nil {
		return nil, err
	}
	s.tariffPlanCache.Invalidate("*")
	return plan, nil
}

func (s *Store) GetTariffPlan(ctx context.Context, id int64) (*TariffPlan, error) {
	key := strconv.FormatInt(id, 10)
	if plan, ok := s.tariffPlanCache.Get(key); ok {
		return plan, nil
	}
	plan, err := s.driver.GetTariffPlan(ctx, id)
	if err != nil {
		return nil, err
	}
	s.tariffPlanCache.SetDefault(key, plan)
	return plan, nil
}

func (s *Store) ListTariffPlans(ctx context.Context, find *FindTariffPlan) ([]*TariffPlan, error) {
	return s.driver.ListTariffPlans(ctx, find)
}

func (s *Store) UpdateTariffPlan(ctx context.Context, update *UpdateTariffPlan) (*TariffPlan, error) {
	plan, err := s.driver.UpdateTariffPlan(ctx, update)
	if err != nil {
		return nil, err
	}
	s.tariffPlanCache.Remove(strconv.FormatInt(update.ID, 10))
	return plan, nil
}

func (s *Store) DeleteTariffPlan(ctx context.Context, id int64) error {
	if err := s.driver.DeleteTariffPlan(ctx, id); err != nil {
		return err
	}
	s.tariffPlanCache.Remove(strconv.FormatInt(id, 10))
	return nil
}

// --- User tariffs ---

func (s *Store) GetUserTariff(ctx context.Context, userID int64) (*UserTariff, error) {
	return s.driver.GetUserTariff(ctx, userID)
}

func (s *Store) UpsertUserTariff(ctx context.Context, upsert *UpsertUserTariff) (*UserTariff, error) {
	return s.driver.UpsertUserTariff(ctx, upsert)
}

func (s *Store) ListUserTariffs(ctx context.Context, find *FindUserTariff) ([]*UserTariff, error) {
	return s.driver.ListUserTariffs(ctx, find)
}

func (s *Store) DeactivateExpired(ctx context.Context, asOf time.Time) ([]*UserTariff, error) {
	return s.driver.DeactivateExpired(ctx, asOf)
}

// --- Projects ---

func (s *Store) CreateProject(ctx context.Context, create *CreateProject) (*Project, error) {
	return s.driver.CreateProject(ctx, create)
}

func (s *Store) GetProject(ctx context.Context, id int64) (*Project, error) {
	return s.driver.GetProject(ctx, id)
}

func (s *Store) ListProjects(ctx context.Context, find *FindProject) ([]*Project, error) {
	return s.driver.ListProjects(ctx, find)
}

func (s *Store) UpdateProject(ctx context.Context, update *UpdateProject) (*Project, error) {
	return s.driver.UpdateProject(ctx, update)
}

func (s *Store) DeleteProject(ctx context.Context, id int64) error {
	return s.driver.DeleteProject(ctx, id)
}

func (s *Store) CountActiveProjects(ctx context.Context, userID int64) (int, error) {
	return s.driver.CountActiveProjects(ctx, userID)
}

// --- Monitored chats ---

func (s *Store) CreateMonitoredChat(ctx context.Context, create *CreateMonitoredChat) (*MonitoredChat, error) {
	return s.driver.CreateMonitoredChat(ctx, create)
}

func (s *Store) GetMonitoredChat(ctx context.Context, id int64) (*MonitoredChat, error) {
	return s.driver.GetMonitoredChat(ctx, id)
}

func (s *Store) ListMonitoredChats(ctx context.Context, find *FindMonitoredChat) ([]*MonitoredChat, error) {
	return s.driver.ListMonitoredChats(ctx, find)
}

func (s *Store) UpdateMonitoredChat(ctx context.Context, update *UpdateMonitoredChat) (*MonitoredChat, error) {
	return s.driver.UpdateMonitoredChat(ctx, update)
}

func (s *Store) DeleteMonitoredChat(ctx context.Context, id int64) error {
	return s.driver.DeleteMonitoredChat(ctx, id)
}

func (s *Store) CountActiveChats(ctx context.Context, projectID int64) (int, error) {
	return s.driver.CountActiveChats(ctx, projectID)
}

// --- Admin audit ---

func (s *Store) LogAdminAction(ctx context.Context, create *CreateAdminAuditEntry) error {
	return s.driver.LogAdminAction(ctx, create)
}

func (s *Store) ListAdminAuditEntries(ctx context.Context, find *FindAdminAuditEntry) ([]*AdminAuditEntry, error) {
	return s.driver.ListAdminAuditEntries(ctx, find)
}

// --- Dedupe marks ---

func (s *Store) GetDedupeMark(ctx context.Context, userID int64, kind DedupeKind) (*NotificationDedupeMark, error) {
	return s.driver.GetDedupeMark(ctx, userID, kind)
}

func (s *Store) UpsertDedupeMark(ctx context.Context, mark *NotificationDedupeMark) error {
	return s.driver.UpsertDedupeMark(ctx, mark)
}

func (s *Store) ListDedupeMarks(ctx context.Context) ([]*NotificationDedupeMark, error) {
	return s.driver.ListDedupeMarks(ctx)
}

func (s *Store) DeleteDedupeMark(ctx context.Context, userID int64, kind DedupeKind) error {
	return s.driver.DeleteDedupeMark(ctx, userID, kind)
}
