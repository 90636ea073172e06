package credential

import (
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/grievance-desk/internal/model"
)

func TestVault_SessionRoundTrip(t *testing.T) {
	v := NewVault(keyring.NewArrayKeyring(nil))

	_, err := v.LoadSession()
	assert.ErrorIs(t, err, ErrNoSession)

	want := &model.Session{
		Token:        "jwt",
		Name:         "Asha Rao",
		Email:        "asha@example.com",
		Role:         model.RoleManager,
		DepartmentID: 2,
	}
	require.NoError(t, v.SaveSession(want))

	got, err := v.LoadSession()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, v.DeleteSession())
	_, err = v.LoadSession()
	assert.ErrorIs(t, err, ErrNoSession)

	// Logging out twice is fine.
	assert.NoError(t, v.DeleteSession())
}

func TestVault_RejectsTokenlessSession(t *testing.T) {
	v := NewVault(keyring.NewArrayKeyring(nil))

	assert.Error(t, v.SaveSession(&model.Session{Email: "a@b.c"}))
	assert.Error(t, v.SaveSession(nil))
}

func TestVault_CorruptSession(t *testing.T) {
	v := NewVault(keyring.NewArrayKeyring([]keyring.Item{
		{Key: sessionKey, Data: []byte("not json")},
	}))

	_, err := v.LoadSession()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoSession)
}
