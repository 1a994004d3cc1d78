package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cgportal/feedback-backend/internal/models"
	"github.com/cgportal/feedback-backend/internal/store/mocks"
	"github.com/cgportal/feedback-backend/pkg/utils"
)

func TestDefaults(t *testing.T) {
	f, err := Defaults()
	require.NoError(t, err)
	require.Len(t, f.Users, 2)
	assert.Equal(t, "admin", f.Users[0].Username)
	assert.Equal(t, "executive", f.Users[1].Type)

	names := make([]string, 0, len(f.Departments))
	for _, d := range f.Departments {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"Health", "Finance", "Tax", "Education", "Transportation"}, names)
}

func TestParseRejectsBadEntries(t *testing.T) {
	tests := map[string]string{
		"unknown key":   "users:\n  - username: admin\n    pasword: admin123\n    type: admin\n",
		"short pass":    "users:\n  - username: admin\n    password: abc\n    type: admin\n",
		"bad type":      "users:\n  - username: admin\n    password: admin123\n    type: root\n",
		"bad email":     "departments:\n  - name: Health\n    description: Public health\n    email: nope\n",
		"no desc":       "departments:\n  - name: Health\n",
		"not yaml list": "users: admin\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestParseNormalizes(t *testing.T) {
	f, err := Parse([]byte(`
users:
  - username: " Priya "
    password: secret1
    type: Manager
    active: false
departments:
  - name: Health
    description: Public health services
    email: Health@CG.gov.in
`))
	require.NoError(t, err)
	assert.Equal(t, "Priya", f.Users[0].Username)
	assert.Equal(t, "manager", f.Users[0].Type)
	assert.Equal(t, "health@cg.gov.in", f.Departments[0].Email)

	empty, err := Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, empty.Users)
}

func TestLoad(t *testing.T) {
	f, err := Load("")
	require.NoError(t, err)
	assert.Len(t, f.Departments, 5)

	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte("departments:\n  - name: Police\n    description: Law and order\n"), 0o600))
	f, err = Load(path)
	require.NoError(t, err)
	require.Len(t, f.Departments, 1)
	assert.Equal(t, "Police", f.Departments[0].Name)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestApply(t *testing.T) {
	ctx := context.Background()
	users := mocks.NewMockUserStore()
	depts := mocks.NewMockDepartmentStore()
	log := zaptest.NewLogger(t)

	f, err := Defaults()
	require.NoError(t, err)

	res, err := Apply(ctx, f, users, depts, log)
	require.NoError(t, err)
	assert.Equal(t, Result{UsersCreated: 2, DepartmentsCreated: 5}, res)

	admin, err := users.FindByUsername(ctx, "admin", models.UserTypeAdmin)
	require.NoError(t, err)
	assert.True(t, admin.Active)
	ok, err := utils.VerifyPassword("admin123", admin.Password)
	require.NoError(t, err)
	assert.True(t, ok)

	// a second run updates in place
	res, err = Apply(ctx, f, users, depts, log)
	require.NoError(t, err)
	assert.Equal(t, Result{UsersUpdated: 2, DepartmentsUpdated: 5}, res)

	all, err := users.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	listed, err := depts.List(ctx)
	require.NoError(t, err)
	assert.Len(t, listed, 5)
}

func TestApplyKeepsDepartmentContact(t *testing.T) {
	ctx := context.Background()
	users := mocks.NewMockUserStore()
	depts := mocks.NewMockDepartmentStore()

	require.NoError(t, depts.Create(ctx, &models.Department{Name: "Health", Description: "Old", Email: "health@cg.gov.in", ContactNo: "0771-2345678"}))

	f, err := Parse([]byte("departments:\n  - name: Health\n    description: Public health services\n"))
	require.NoError(t, err)
	res, err := Apply(ctx, f, users, depts, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, Result{DepartmentsUpdated: 1}, res)

	got, err := depts.FindByName(ctx, "Health")
	require.NoError(t, err)
	assert.Equal(t, "Public health services", got.Description)
	assert.Equal(t, "health@cg.gov.in", got.Email)
	assert.Equal(t, "0771-2345678", got.ContactNo)
}
