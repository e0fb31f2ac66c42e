package users_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jrsteele09/sahasik/internal/errors"
	"github.com/jrsteele09/sahasik/internal/utils"
	"github.com/jrsteele09/sahasik/users"
	fakeuserrepo "github.com/jrsteele09/sahasik/users/repofake"
	"github.com/stretchr/testify/require"
)

func TestValidatePasswordStrength(t *testing.T) {
	require.NoError(t, users.ValidatePasswordStrength("Admin123!@#"))

	for _, weak := range []string{"Ab1", "alllower1", "ALLUPPER1", "NoNumbers"} {
		err := users.ValidatePasswordStrength(weak)
		require.Error(t, err, weak)
		require.True(t, errors.Is(err, errors.ErrWeakPassword), weak)
	}
}

func TestPasswordHash(t *testing.T) {
	hash, err := users.HashPassword("Admin123!@#")
	require.NoError(t, err)
	require.True(t, users.CheckPasswordHash("Admin123!@#", hash))
	require.False(t, users.CheckPasswordHash("admin123", hash))
}

func TestUser_HasRole(t *testing.T) {
	teacher := &users.User{Role: users.RoleTeacher}
	require.True(t, teacher.HasRole())
	require.True(t, teacher.HasRole(users.RoleAdmin, users.RoleTeacher))
	require.False(t, teacher.HasRole(users.RoleAdmin))
	require.False(t, teacher.IsAdmin())
	require.True(t, users.RoleStudent.Valid())
	require.False(t, users.RoleType("super_admin").Valid())
}

func TestUser_JSONHidesPasswordHash(t *testing.T) {
	data, err := json.Marshal(users.User{ID: 1, Username: "admin", PasswordHash: "secret", Role: users.RoleAdmin})
	require.NoError(t, err)
	require.NotContains(t, string(data), "secret")
	require.Contains(t, string(data), `"role":"admin"`)
}

func TestProfileUpdate(t *testing.T) {
	user := &users.User{FullName: "Siti Aminah", Phone: "0811"}

	update := users.ProfileUpdate{Phone: utils.Ptr("0822"), Address: utils.Ptr("Jl. Pesantren 1")}
	require.NoError(t, update.Validate())
	update.Apply(user)

	require.Equal(t, "Siti Aminah", user.FullName)
	require.Equal(t, "0822", user.Phone)
	require.Equal(t, "Jl. Pesantren 1", user.Address)

	bad := users.ProfileUpdate{Email: utils.Ptr("not-an-email")}
	require.True(t, errors.Is(bad.Validate(), errors.ErrInvalidRequest))
}

func TestCreateRequest_Validate(t *testing.T) {
	valid := users.CreateRequest{
		Username: "ustadz.ahmad",
		Email:    "ahmad@pesantren.com",
		FullName: "Ahmad Fauzi",
		Role:     users.RoleTeacher,
		Password: "Teacher123!",
	}
	require.NoError(t, valid.Validate())

	t.Run("unknown role", func(t *testing.T) {
		req := valid
		req.Role = "principal"
		require.True(t, errors.Is(req.Validate(), errors.ErrInvalidRequest))
	})

	t.Run("weak password", func(t *testing.T) {
		req := valid
		req.Password = "password"
		require.True(t, errors.Is(req.Validate(), errors.ErrWeakPassword))
	})

	t.Run("builds hashed user", func(t *testing.T) {
		user, err := valid.User()
		require.NoError(t, err)
		require.Equal(t, users.RoleTeacher, user.Role)
		require.True(t, users.CheckPasswordHash("Teacher123!", user.PasswordHash))
	})
}

func TestFakeUserRepo(t *testing.T) {
	repo := fakeuserrepo.NewFakeUserRepo()

	admin := &users.User{Username: "admin", Email: "admin@pesantren.com", Role: users.RoleAdmin}
	teacher := &users.User{Username: "ahmad", Email: "ahmad@pesantren.com", Role: users.RoleTeacher}
	student := &users.User{Username: "budi", Email: "budi@pesantren.com", Role: users.RoleStudent}
	for _, u := range []*users.User{admin, teacher, student} {
		require.NoError(t, repo.Upsert(u))
	}
	require.Equal(t, []int{1, 2, 3}, []int{admin.ID, teacher.ID, student.ID})

	t.Run("lookups", func(t *testing.T) {
		got, err := repo.GetByEmail("ADMIN@pesantren.com")
		require.NoError(t, err)
		require.Equal(t, admin.ID, got.ID)

		got, err = repo.GetByUsername("ahmad")
		require.NoError(t, err)
		require.Equal(t, teacher.ID, got.ID)

		_, err = repo.GetByID(99)
		require.True(t, errors.Is(err, errors.ErrNotFound))
	})

	t.Run("unique email", func(t *testing.T) {
		err := repo.Upsert(&users.User{Username: "other", Email: "admin@pesantren.com"})
		require.True(t, errors.Is(err, errors.ErrConflict))
	})

	t.Run("list by role with paging", func(t *testing.T) {
		list, err := repo.List("", 0, 0)
		require.NoError(t, err)
		require.Len(t, list, 3)

		list, err = repo.List("", 1, 1)
		require.NoError(t, err)
		require.Len(t, list, 1)
		require.Equal(t, teacher.ID, list[0].ID)

		list, err = repo.List(users.RoleStudent, 0, 10)
		require.NoError(t, err)
		require.Len(t, list, 1)
		require.Equal(t, "budi", list[0].Username)

		list, err = repo.List("", 10, 10)
		require.NoError(t, err)
		require.Empty(t, list)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(student.ID))
		_, err := repo.GetByEmail("budi@pesantren.com")
		require.True(t, errors.Is(err, errors.ErrNotFound))
		require.True(t, errors.Is(repo.Delete(student.ID), errors.ErrNotFound))
	})
}

func TestClient(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/users/me", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(users.User{ID: 1, Username: "admin", Role: users.RoleAdmin})
	})
	mux.HandleFunc("GET /api/v1/users", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "2", r.URL.Query().Get("limit"))
		_ = json.NewEncoder(w).Encode([]users.User{{ID: 1}, {ID: 2}})
	})
	mux.HandleFunc("GET /api/v1/teachers", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]users.User{{ID: 2, Role: users.RoleTeacher}})
	})
	mux.HandleFunc("PUT /api/v1/users/me", func(w http.ResponseWriter, r *http.Request) {
		var update users.ProfileUpdate
		require.NoError(t, json.NewDecoder(r.Body).Decode(&update))
		user := users.User{ID: 1, Username: "admin"}
		update.Apply(&user)
		_ = json.NewEncoder(w).Encode(user)
	})
	mux.HandleFunc("POST /api/v1/users", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"forbidden"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx := context.Background()
	client := users.NewClient(srv.URL+"/api/v1", http.DefaultClient)

	me, err := client.GetMe(ctx)
	require.NoError(t, err)
	require.Equal(t, "admin", me.Username)

	list, err := client.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)

	teachers, err := client.Teachers(ctx)
	require.NoError(t, err)
	require.Equal(t, users.RoleTeacher, teachers[0].Role)

	updated, err := client.UpdateMe(ctx, users.ProfileUpdate{FullName: utils.Ptr("Administrator")})
	require.NoError(t, err)
	require.Equal(t, "Administrator", updated.FullName)

	_, err = client.Create(ctx, users.CreateRequest{
		Username: "budi", Email: "budi@pesantren.com", FullName: "Budi", Role: users.RoleStudent, Password: "Student123",
	})
	require.True(t, errors.Is(err, errors.ErrForbidden))

	_, err = client.Create(ctx, users.CreateRequest{Username: "x"})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
}
