package authpw

import (
	"context"
	"testing"

	"discograph/api/internal/correction"
	"discograph/api/internal/store"
)

type fakeUserStore struct {
	users  map[string]store.User
	nextID int64
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]store.User), nextID: 1}
}

func (f *fakeUserStore) GetUserByEmail(_ context.Context, email string) (store.User, error) {
	user, ok := f.users[email]
	if !ok {
		return store.User{}, correction.ErrNotFound
	}
	return user, nil
}

func (f *fakeUserStore) CreateUser(_ context.Context, username, email, passwordHash, role string) (store.User, error) {
	user := store.User{ID: f.nextID, Username: username, Email: email, PasswordHash: passwordHash, Role: role}
	f.nextID++
	f.users[email] = user
	return user, nil
}

func TestSignUpAndSignIn(t *testing.T) {
	svc := NewService(newFakeUserStore())
	ctx := context.Background()

	user, err := svc.SignUp(ctx, SignUpRequest{Username: "kim", Email: "Kim@Example.com", Password: "correcthorse"})
	if err != nil {
		t.Fatal(err)
	}
	if user.Role != "editor" {
		t.Fatalf("new accounts must be editors, got %q", user.Role)
	}
	if user.Email != "kim@example.com" {
		t.Fatalf("email must be normalized, got %q", user.Email)
	}

	signedIn, err := svc.SignIn(ctx, SignInRequest{Email: "kim@example.com", Password: "correcthorse"})
	if err != nil {
		t.Fatal(err)
	}
	if signedIn.ID != user.ID {
		t.Fatalf("signed in as %d, expected %d", signedIn.ID, user.ID)
	}
}

func TestSignInWrongPassword(t *testing.T) {
	svc := NewService(newFakeUserStore())
	ctx := context.Background()

	if _, err := svc.SignUp(ctx, SignUpRequest{Username: "kim", Email: "kim@example.com", Password: "correcthorse"}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SignIn(ctx, SignInRequest{Email: "kim@example.com", Password: "wrong"}); err == nil {
		t.Fatal("wrong password must not sign in")
	}
	if _, err := svc.SignIn(ctx, SignInRequest{Email: "ghost@example.com", Password: "correcthorse"}); err == nil {
		t.Fatal("unknown email must not sign in")
	}
}

func TestSignUpRejectsShortPassword(t *testing.T) {
	svc := NewService(newFakeUserStore())
	if _, err := svc.SignUp(context.Background(), SignUpRequest{Username: "kim", Email: "kim@example.com", Password: "short"}); err == nil {
		t.Fatal("short password must be rejected")
	}
}

func TestSignUpRejectsDuplicateEmail(t *testing.T) {
	svc := NewService(newFakeUserStore())
	ctx := context.Background()
	if _, err := svc.SignUp(ctx, SignUpRequest{Username: "kim", Email: "kim@example.com", Password: "correcthorse"}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SignUp(ctx, SignUpRequest{Username: "other", Email: "kim@example.com", Password: "correcthorse"}); err == nil {
		t.Fatal("duplicate email must be rejected")
	}
}
