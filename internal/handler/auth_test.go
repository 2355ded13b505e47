package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/garageos/api/internal/auth"
	"github.com/garageos/api/internal/database"
	"github.com/garageos/api/internal/enum"
	"github.com/garageos/api/internal/handler"
)

const testSecret = "test-secret"

// --- Mock store ---

type mockAuthStore struct {
	byEmail map[string]database.Employee
	byID    map[uuid.UUID]database.Employee
}

func newMockAuthStore() *mockAuthStore {
	return &mockAuthStore{
		byEmail: make(map[string]database.Employee),
		byID:    make(map[uuid.UUID]database.Employee),
	}
}

func (m *mockAuthStore) addEmployee(e database.Employee) {
	m.byEmail[e.Email] = e
	m.byID[e.ID] = e
}

func (m *mockAuthStore) GetEmployeeByEmail(_ context.Context, email string) (database.Employee, error) {
	e, ok := m.byEmail[email]
	if !ok {
		return database.Employee{}, pgx.ErrNoRows
	}
	return e, nil
}

func (m *mockAuthStore) GetEmployee(_ context.Context, id uuid.UUID) (database.Employee, error) {
	e, ok := m.byID[id]
	if !ok {
		return database.Employee{}, pgx.ErrNoRows
	}
	return e, nil
}

// --- Helpers ---

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return string(h)
}

func makeTestEmployee(t *testing.T) database.Employee {
	t.Helper()
	return database.Employee{
		ID:             uuid.New(),
		LocationID:     uuid.New(),
		FirstName:      "Sam",
		LastName:       "Wrench",
		Email:          "tech@test.com",
		HashedPassword: hashPassword(t, "correct-password"),
		Role:           enum.EmployeeRoleTechnician,
		IsActive:       true,
	}
}

func setupAuthRouter(store *mockAuthStore) *chi.Mux {
	r := chi.NewRouter()
	handler.NewAuthHandler(store, testSecret).RegisterRoutes(r)
	return r
}

func postJSON(t *testing.T, router http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest("POST", path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

// decodeData returns the data object of a success envelope.
func decodeData(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	resp := decodeResponse(t, rr)
	if resp["success"] != true {
		t.Fatalf("expected success envelope, got %v", resp)
	}
	data, ok := resp["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected data object, got %T", resp["data"])
	}
	return data
}

// --- Login tests ---

func TestLogin_ValidCredentials(t *testing.T) {
	store := newMockAuthStore()
	employee := makeTestEmployee(t)
	store.addEmployee(employee)

	rr := postJSON(t, setupAuthRouter(store), "/auth/login", map[string]string{
		"email":    "Tech@Test.com ",
		"password": "correct-password",
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	data := decodeData(t, rr)
	access, _ := data["accessToken"].(string)
	if access == "" {
		t.Fatal("expected non-empty accessToken")
	}
	if data["refreshToken"] == nil || data["refreshToken"] == "" {
		t.Error("expected non-empty refreshToken")
	}

	claims, err := auth.ValidateToken(testSecret, access)
	if err != nil {
		t.Fatalf("issued token invalid: %v", err)
	}
	if claims.EmployeeID != employee.ID || claims.LocationID != employee.LocationID {
		t.Errorf("claims: got %+v", claims)
	}

	emp, ok := data["employee"].(map[string]interface{})
	if !ok {
		t.Fatal("expected employee object in response")
	}
	if emp["role"] != enum.EmployeeRoleTechnician {
		t.Errorf("employee role: got %v, want %s", emp["role"], enum.EmployeeRoleTechnician)
	}
	if _, leaked := emp["hashedPassword"]; leaked {
		t.Error("password hash must not be returned")
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	store := newMockAuthStore()
	store.addEmployee(makeTestEmployee(t))

	rr := postJSON(t, setupAuthRouter(store), "/auth/login", map[string]string{
		"email":    "tech@test.com",
		"password": "wrong-password",
	})

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
	if resp := decodeResponse(t, rr); resp["error"] != "invalid credentials" {
		t.Errorf("error: got %v", resp["error"])
	}
}

func TestLogin_EmployeeNotFound(t *testing.T) {
	rr := postJSON(t, setupAuthRouter(newMockAuthStore()), "/auth/login", map[string]string{
		"email":    "nobody@test.com",
		"password": "password",
	})

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestLogin_InactiveEmployee(t *testing.T) {
	store := newMockAuthStore()
	e := makeTestEmployee(t)
	e.IsActive = false
	store.addEmployee(e)

	rr := postJSON(t, setupAuthRouter(store), "/auth/login", map[string]string{
		"email":    "tech@test.com",
		"password": "correct-password",
	})

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestLogin_MissingFields(t *testing.T) {
	rr := postJSON(t, setupAuthRouter(newMockAuthStore()), "/auth/login", map[string]string{
		"email": "tech@test.com",
	})

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

// --- Refresh tests ---

func TestRefresh_ValidToken(t *testing.T) {
	store := newMockAuthStore()
	employee := makeTestEmployee(t)
	store.addEmployee(employee)

	refresh, err := auth.GenerateRefreshToken(testSecret, employee.ID)
	if err != nil {
		t.Fatalf("generate refresh token: %v", err)
	}

	rr := postJSON(t, setupAuthRouter(store), "/auth/refresh", map[string]string{"refreshToken": refresh})
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	data := decodeData(t, rr)
	if data["accessToken"] == nil || data["accessToken"] == "" {
		t.Error("expected non-empty accessToken")
	}
}

func TestRefresh_AccessTokenRejected(t *testing.T) {
	store := newMockAuthStore()
	employee := makeTestEmployee(t)
	store.addEmployee(employee)

	access, _ := auth.GenerateToken(testSecret, employee.ID, employee.LocationID, employee.Role)
	rr := postJSON(t, setupAuthRouter(store), "/auth/refresh", map[string]string{"refreshToken": access})

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestRefresh_UnknownEmployee(t *testing.T) {
	refresh, _ := auth.GenerateRefreshToken(testSecret, uuid.New())
	rr := postJSON(t, setupAuthRouter(newMockAuthStore()), "/auth/refresh", map[string]string{"refreshToken": refresh})

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestRefresh_MissingToken(t *testing.T) {
	rr := postJSON(t, setupAuthRouter(newMockAuthStore()), "/auth/refresh", map[string]string{})

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}
