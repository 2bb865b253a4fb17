package dingtalk

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_SetCorpID(t *testing.T) {
	t.Parallel()
	t.Run("derives-a-scoped-client", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		p := StartTestPlatform(t)
		base := testClient(t, p)

		corp, err := base.SetCorpID("corp-1")
		require.NoError(err)
		assert.Equal("corp-1", corp.config.CorpID)
		assert.Equal("", base.config.CorpID)
		assert.NotSame(base.keeper, corp.keeper)
	})
	t.Run("empty-corp-id", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		p := StartTestPlatform(t)
		base := testClient(t, p)
		_, err := base.SetCorpID("")
		require.Error(err)
		assert.Truef(errors.Is(err, ErrInvalidParameter), "wanted \"%s\" but got \"%s\"", ErrInvalidParameter, err)
	})
}

func TestClient_GetUserInfo(t *testing.T) {
	t.Parallel()
	t.Run("missing-corp-id", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		p := StartTestPlatform(t)
		c := testClient(t, p)

		_, err := c.GetUserInfo(context.Background(), "login-code")
		require.Error(err)
		assert.Truef(errors.Is(err, ErrMissingCorpID), "wanted \"%s\" but got \"%s\"", ErrMissingCorpID, err)
		// checked before any request is made
		assert.Equal(0, p.TokenRequestCount())
		assert.Equal(0, p.UserInfoRequestCount())
	})
	t.Run("valid", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		p := StartTestPlatform(t)
		p.SetReplyUserInfo("u1", "id1", "Alice")
		p.SetReplyContactDetails("13800000000", "alice@corp.example.com")
		c := testClient(t, p, WithCorpID("corp-1"))

		got, err := c.GetUserInfo(context.Background(), "login-code")
		require.NoError(err)
		assert.Equal("u1", got.UnionID)
		assert.Equal("id1", got.UserID)
		assert.Equal("Alice", got.Name)
		assert.Equal("alice@corp.example.com", got.Email)
		assert.Equal("13800000000", got.Mobile)
		assert.Equal(1, p.TokenRequestCount())
		assert.Equal(1, p.UserInfoRequestCount())
		assert.Equal(1, p.ProfileRequestCount())
	})
	t.Run("empty-login-code", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		p := StartTestPlatform(t)
		c := testClient(t, p, WithCorpID("corp-1"))
		_, err := c.GetUserInfo(context.Background(), "")
		require.Error(err)
		assert.Truef(errors.Is(err, ErrInvalidParameter), "wanted \"%s\" but got \"%s\"", ErrInvalidParameter, err)
	})
	t.Run("invalid-token-reruns-the-pair-once", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		p := StartTestPlatform(t)
		p.SetReplyUserInfo("u1", "id1", "Alice")
		c := testClient(t, p, WithCorpID("corp-1"))
		p.QueueUserInfoErrors(40014)

		got, err := c.GetUserInfo(context.Background(), "login-code")
		require.NoError(err)
		assert.Equal("Alice", got.Name)
		assert.Equal(2, p.TokenRequestCount())
		assert.Equal(2, p.UserInfoRequestCount())
		assert.Equal(1, p.ProfileRequestCount())
	})
	t.Run("via-set-corp-id", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		p := StartTestPlatform(t)
		p.SetReplyUserInfo("u1", "id1", "Alice")
		base := testClient(t, p)
		corp, err := base.SetCorpID("corp-1")
		require.NoError(err)

		got, err := corp.GetUserInfo(context.Background(), "login-code")
		require.NoError(err)
		assert.Equal("id1", got.UserID)

		// the base client remains unscoped
		_, err = base.GetUserInfo(context.Background(), "login-code")
		require.Error(err)
		assert.Truef(errors.Is(err, ErrMissingCorpID), "wanted \"%s\" but got \"%s\"", ErrMissingCorpID, err)
	})
}

func TestClient_GetOrganization(t *testing.T) {
	t.Parallel()
	t.Run("valid", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		p := StartTestPlatform(t)
		want := Organization{
			Name:                "Example Corp",
			LicenseURL:          "https://example.com/license.png",
			RegistrationNumber:  "911100000000000000",
			UnifiedSocialCredit: "91110000MA000000XX",
			OrganizationCode:    "MA000000X",
			LegalPerson:         "Alice",
			LicenseOrgName:      "Example Corp Ltd",
			AuthLevel:           2,
		}
		p.SetOrganization(want)
		c := testClient(t, p, WithCorpID("corp-1"))

		got, err := c.GetOrganization(context.Background())
		require.NoError(err)
		assert.Equal(&want, got)
	})
	t.Run("missing-corp-id", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		p := StartTestPlatform(t)
		c := testClient(t, p)
		_, err := c.GetOrganization(context.Background())
		require.Error(err)
		assert.Truef(errors.Is(err, ErrMissingCorpID), "wanted \"%s\" but got \"%s\"", ErrMissingCorpID, err)
		assert.Equal(0, p.TokenRequestCount())
	})
}

func TestClient_GetEmployeeCount(t *testing.T) {
	t.Parallel()
	t.Run("valid", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		p := StartTestPlatform(t)
		p.SetEmployeeCount(42)
		c := testClient(t, p, WithCorpID("corp-1"))

		got, err := c.GetEmployeeCount(context.Background(), true)
		require.NoError(err)
		assert.Equal(42, got)
	})
	t.Run("missing-corp-id", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		p := StartTestPlatform(t)
		c := testClient(t, p)
		_, err := c.GetEmployeeCount(context.Background(), false)
		require.Error(err)
		assert.Truef(errors.Is(err, ErrMissingCorpID), "wanted \"%s\" but got \"%s\"", ErrMissingCorpID, err)
	})
}
