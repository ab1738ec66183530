package account

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
)

// fakeStore 纯内存实现，足够覆盖服务层的用例。
type fakeStore struct {
	accounts map[string]*Account // id -> account
}

func newFakeStore() *fakeStore {
	return &fakeStore{accounts: map[string]*Account{}}
}

func (f *fakeStore) Create(_ context.Context, a *Account) error {
	for _, existing := range f.accounts {
		if existing.Email == a.Email {
			return ErrDuplicateEmail
		}
	}
	cp := *a
	f.accounts[a.ID] = &cp
	return nil
}

func (f *fakeStore) FindByEmail(_ context.Context, email string) (*Account, error) {
	for _, a := range f.accounts {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

func (f *fakeStore) FindByID(_ context.Context, id string) (*Account, error) {
	a, ok := f.accounts[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeStore) Save(_ context.Context, a *Account) error {
	if _, ok := f.accounts[a.ID]; !ok {
		return ErrUserNotFound
	}
	cp := *a
	f.accounts[a.ID] = &cp
	return nil
}

func (f *fakeStore) List(_ context.Context, filter ListFilter) ([]Account, int64, error) {
	var out []Account
	for _, a := range f.accounts {
		if filter.Role != "" && a.Role != filter.Role {
			continue
		}
		if filter.IsActive != nil && a.IsActive != *filter.IsActive {
			continue
		}
		if !a.MatchesQuery(filter.Role, filter.Query) {
			continue
		}
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	total := int64(len(out))
	if filter.Offset > len(out) {
		return nil, total, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, total, nil
}

func (f *fakeStore) Totals(_ context.Context) (*Totals, error) {
	t := &Totals{}
	for _, a := range f.accounts {
		var rt *RoleTotals
		switch a.Role {
		case RoleDealer:
			rt = &t.Dealers
		case RoleCustomer:
			rt = &t.Customers
		default:
			continue
		}
		rt.Total++
		if a.IsActive {
			rt.Active++
		} else {
			rt.Inactive++
		}
	}
	return t, nil
}

func registerDealer(t *testing.T, svc *Service, email string) *Account {
	t.Helper()
	a, err := svc.Create(context.Background(), CreateInput{
		Email:    email,
		Password: "secret-pass",
		Role:     RoleDealer,
		Dealer:   &DealerProfile{DealerName: "Prime Motors", GSTNo: "29ABCDE1234F1Z5"},
	})
	if err != nil {
		t.Fatalf("register dealer %s: %v", email, err)
	}
	return a
}

func TestCreateNormalizesEmail(t *testing.T) {
	svc := NewService(newFakeStore())
	a, err := svc.Create(context.Background(), CreateInput{
		Email:    "  Dealer@Example.COM ",
		Password: "secret-pass",
		Role:     RoleDealer,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.Email != "dealer@example.com" {
		t.Fatalf("email not normalized: %q", a.Email)
	}
	if !a.IsActive || a.IsStaff || a.IsSuperuser {
		t.Fatalf("unexpected flags: active=%v staff=%v super=%v", a.IsActive, a.IsStaff, a.IsSuperuser)
	}
}

func TestCreateRejectsMissingEmail(t *testing.T) {
	svc := NewService(newFakeStore())
	if _, err := svc.Create(context.Background(), CreateInput{Email: "   ", Password: "secret-pass"}); !errors.Is(err, ErrMissingEmail) {
		t.Fatalf("expected ErrMissingEmail, got %v", err)
	}
}

func TestCreateDuplicateEmailCaseInsensitive(t *testing.T) {
	svc := NewService(newFakeStore())
	registerDealer(t, svc, "A@x.com")

	_, err := svc.Create(context.Background(), CreateInput{
		Email:    "a@x.com",
		Password: "secret-pass",
		Role:     RoleCustomer,
	})
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail across case, got %v", err)
	}
}

func TestRoleFieldsOnlyForMatchingRole(t *testing.T) {
	svc := NewService(newFakeStore())
	a, err := svc.Create(context.Background(), CreateInput{
		Email:    "cust@x.com",
		Password: "secret-pass",
		Role:     RoleCustomer,
		Customer: &CustomerProfile{PANCardNo: "ABCDE1234F"},
		Dealer:   &DealerProfile{DealerName: "should-be-ignored"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.DealerName != "" {
		t.Fatalf("dealer fields must not be set on a customer: %q", a.DealerName)
	}
	if a.Customer() == nil || a.Customer().PANCardNo != "ABCDE1234F" {
		t.Fatalf("customer profile missing: %+v", a.Customer())
	}
	if a.Dealer() != nil {
		t.Fatalf("Dealer() must be nil for a customer")
	}
}

func TestAuthenticate(t *testing.T) {
	svc := NewService(newFakeStore())
	registerDealer(t, svc, "dealer@x.com")
	ctx := context.Background()

	if _, ok, err := svc.Authenticate(ctx, "Dealer@X.com", "secret-pass"); err != nil || !ok {
		t.Fatalf("expected login with case-folded email, ok=%v err=%v", ok, err)
	}
	if _, ok, err := svc.Authenticate(ctx, "dealer@x.com", "wrong"); err != nil || ok {
		t.Fatalf("wrong password must fail quietly, ok=%v err=%v", ok, err)
	}
	if _, ok, err := svc.Authenticate(ctx, "nobody@x.com", "secret-pass"); err != nil || ok {
		t.Fatalf("unknown email must fail quietly, ok=%v err=%v", ok, err)
	}
}

func TestAuthenticateInactiveAccount(t *testing.T) {
	svc := NewService(newFakeStore())
	a := registerDealer(t, svc, "dealer@x.com")
	ctx := context.Background()

	if err := svc.Deactivate(ctx, a.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, ok, err := svc.Authenticate(ctx, "dealer@x.com", "secret-pass"); err != nil || ok {
		t.Fatalf("deactivated account must not log in, ok=%v err=%v", ok, err)
	}

	// 软删除：记录还在
	got, err := svc.Get(ctx, a.ID)
	if err != nil {
		t.Fatalf("record must survive deactivation: %v", err)
	}
	if got.IsActive {
		t.Fatalf("expected is_active=false")
	}
}

func TestChangePassword(t *testing.T) {
	svc := NewService(newFakeStore())
	registerDealer(t, svc, "dealer@x.com")
	ctx := context.Background()

	cases := []struct {
		name     string
		email    string
		old, new string
		want     error
	}{
		{"unknown user", "nobody@x.com", "secret-pass", "another-pass", ErrUserNotFound},
		{"wrong old password", "dealer@x.com", "wrong", "another-pass", ErrInvalidOldPassword},
		{"unchanged", "dealer@x.com", "secret-pass", "secret-pass", ErrPasswordUnchanged},
		{"too short", "dealer@x.com", "secret-pass", "short77", ErrPasswordTooShort},
	}
	for _, tc := range cases {
		if err := svc.ChangePassword(ctx, tc.email, tc.old, tc.new); !errors.Is(err, tc.want) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}

	if err := svc.ChangePassword(ctx, "dealer@x.com", "secret-pass", "another-pass"); err != nil {
		t.Fatalf("valid change: %v", err)
	}
	if _, ok, _ := svc.Authenticate(ctx, "dealer@x.com", "another-pass"); !ok {
		t.Fatalf("new password must work")
	}
	if _, ok, _ := svc.Authenticate(ctx, "dealer@x.com", "secret-pass"); ok {
		t.Fatalf("old password must stop working")
	}
}

func TestUpdateProfilePartial(t *testing.T) {
	svc := NewService(newFakeStore())
	a := registerDealer(t, svc, "dealer@x.com")
	ctx := context.Background()

	phone := "9876543210"
	got, err := svc.UpdateProfile(ctx, a.ID, ProfileUpdate{PhoneNumber: &phone})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.PhoneNumber != phone {
		t.Fatalf("phone not updated: %q", got.PhoneNumber)
	}
	if got.DealerName != "Prime Motors" {
		t.Fatalf("untouched field changed: %q", got.DealerName)
	}
}

func TestListRoleScopedSearch(t *testing.T) {
	svc := NewService(newFakeStore())
	ctx := context.Background()

	registerDealer(t, svc, "dealer@x.com")
	if _, err := svc.Create(ctx, CreateInput{
		Email:    "cust@x.com",
		Password: "secret-pass",
		Role:     RoleCustomer,
		Customer: &CustomerProfile{PANCardNo: "ABCDE1234F"},
	}); err != nil {
		t.Fatalf("register customer: %v", err)
	}

	// 经销商搜索命中 dealer_name
	got, total, err := svc.List(ctx, ListFilter{Role: RoleDealer, Query: "prime"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 || len(got) != 1 || got[0].Role != RoleDealer {
		t.Fatalf("dealer search by name: total=%d got=%+v", total, got)
	}

	// 客户列表不会被 dealer_name 命中
	got, total, err = svc.List(ctx, ListFilter{Role: RoleCustomer, Query: "prime"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 0 || len(got) != 0 {
		t.Fatalf("dealer-only column leaked into customer search: %+v", got)
	}

	// 客户搜索命中 pan_card_no
	got, total, err = svc.List(ctx, ListFilter{Role: RoleCustomer, Query: strings.ToLower("ABCDE")})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 || len(got) != 1 || got[0].Role != RoleCustomer {
		t.Fatalf("customer search by PAN: total=%d got=%+v", total, got)
	}
}

func TestTotals(t *testing.T) {
	svc := NewService(newFakeStore())
	ctx := context.Background()

	a := registerDealer(t, svc, "d1@x.com")
	registerDealer(t, svc, "d2@x.com")
	if _, err := svc.Create(ctx, CreateInput{Email: "c1@x.com", Password: "secret-pass", Role: RoleCustomer}); err != nil {
		t.Fatalf("register customer: %v", err)
	}
	if err := svc.Deactivate(ctx, a.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	totals, err := svc.Totals(ctx)
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	if totals.Dealers.Total != 2 || totals.Dealers.Active != 1 || totals.Dealers.Inactive != 1 {
		t.Fatalf("dealer totals wrong: %+v", totals.Dealers)
	}
	if totals.Customers.Total != 1 || totals.Customers.Active != 1 {
		t.Fatalf("customer totals wrong: %+v", totals.Customers)
	}
}
