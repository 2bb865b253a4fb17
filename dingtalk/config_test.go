package dingtalk

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppSecret_String(t *testing.T) {
	t.Parallel()
	t.Run("redacted", func(t *testing.T) {
		assert := assert.New(t)
		const want = RedactedAppSecret
		secret := AppSecret("bob's phone number")
		assert.Equalf(want, secret.String(), "AppSecret.String() = %v, want %v", secret.String(), want)
	})
}

func TestAppSecret_MarshalJSON(t *testing.T) {
	t.Parallel()
	t.Run("redacted", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		want := fmt.Sprintf(`"%s"`, RedactedAppSecret)
		secret := AppSecret("bob's phone number")
		got, err := secret.MarshalJSON()
		require.NoError(err)
		assert.Equalf([]byte(want), got, "AppSecret.MarshalJSON() = %s, want %s", got, want)
	})
}

func TestNewConfig(t *testing.T) {
	t.Parallel()
	testNow := func() time.Time {
		return time.Now().Add(-1 * time.Minute)
	}
	testLogger := hclog.NewNullLogger()

	tests := []struct {
		name      string
		appID     string
		appSecret AppSecret
		opt       []Option
		want      *Config
		wantErr   bool
		wantIsErr error
	}{
		{
			name:      "valid-with-all-valid-opts",
			appID:     "test-app-id",
			appSecret: "test-app-secret",
			opt: []Option{
				WithCorpID("test-corp-id"),
				WithBaseURLs("https://api.example.com", "https://oapi.example.com"),
				WithExpirySkew(30 * time.Second),
				WithInvalidTokenCodes(40014, 42001),
				WithNow(testNow),
				WithLogger(testLogger),
			},
			want: &Config{
				AppID:             "test-app-id",
				AppSecret:         "test-app-secret",
				CorpID:            "test-corp-id",
				APIBaseURL:        "https://api.example.com",
				OAPIBaseURL:       "https://oapi.example.com",
				AuthBaseURL:       DefaultAuthBaseURL,
				ExpirySkew:        30 * time.Second,
				InvalidTokenCodes: []int{40014, 42001},
				NowFunc:           testNow,
				Logger:            testLogger,
			},
		},
		{
			name:      "valid-with-defaults",
			appID:     "test-app-id",
			appSecret: "test-app-secret",
			want: &Config{
				AppID:             "test-app-id",
				AppSecret:         "test-app-secret",
				APIBaseURL:        DefaultAPIBaseURL,
				OAPIBaseURL:       DefaultOAPIBaseURL,
				AuthBaseURL:       DefaultAuthBaseURL,
				ExpirySkew:        DefaultExpirySkew,
				InvalidTokenCodes: DefaultInvalidTokenCodes,
			},
		},
		{
			name:      "empty-app-id",
			appID:     "",
			appSecret: "test-app-secret",
			wantErr:   true,
			wantIsErr: ErrInvalidParameter,
		},
		{
			name:      "empty-app-secret",
			appID:     "test-app-id",
			appSecret: "",
			wantErr:   true,
			wantIsErr: ErrInvalidParameter,
		},
		{
			name:      "invalid-base-url",
			appID:     "test-app-id",
			appSecret: "test-app-secret",
			opt:       []Option{WithBaseURLs("ldap://api.example.com", "https://oapi.example.com")},
			wantErr:   true,
			wantIsErr: ErrInvalidParameter,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			got, err := NewConfig(tt.appID, tt.appSecret, tt.opt...)
			if tt.wantErr {
				require.Error(err)
				assert.Truef(errors.Is(err, tt.wantIsErr), "wanted \"%s\" but got \"%s\"", tt.wantIsErr, err)
				return
			}
			require.NoError(err)
			if tt.want.NowFunc != nil {
				require.NotNil(got.NowFunc)
				assert.WithinDuration(tt.want.NowFunc(), got.NowFunc(), 1*time.Second)
				got.NowFunc, tt.want.NowFunc = nil, nil
			}
			assert.Equal(tt.want, got)
		})
	}
	t.Run("nil-config-validate", func(t *testing.T) {
		assert := assert.New(t)
		var c *Config
		err := c.Validate()
		assert.Truef(errors.Is(err, ErrNilParameter), "wanted \"%s\" but got \"%s\"", ErrNilParameter, err)
	})
	t.Run("reports-every-problem", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		_, err := NewConfig("", "")
		require.Error(err)
		assert.Contains(err.Error(), "app id is empty")
		assert.Contains(err.Error(), "app secret is empty")
	})
}

func TestConfig_Now(t *testing.T) {
	tests := []struct {
		name    string
		nowFunc func() time.Time
		want    func() time.Time
		skew    time.Duration
	}{
		{
			name:    "default-time",
			nowFunc: nil,
			want:    time.Now,
			skew:    1 * time.Millisecond,
		},
		{
			name:    "time-travel-backward",
			nowFunc: func() time.Time { return time.Now().Add(-10 * time.Millisecond) },
			want:    func() time.Time { return time.Now().Add(-10 * time.Millisecond) },
			skew:    1 * time.Millisecond,
		},
		{
			name:    "time-travel-forward",
			nowFunc: func() time.Time { return time.Now().Add(10 * time.Millisecond) },
			want:    func() time.Time { return time.Now().Add(10 * time.Millisecond) },
			skew:    1 * time.Millisecond,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)
			c := &Config{NowFunc: tt.nowFunc}
			assert.True(c.Now().Before(tt.want()))
			assert.True(c.Now().Add(tt.skew).After(tt.want()))
		})
	}
}

func TestConfig_isInvalidTokenCode(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	c := &Config{InvalidTokenCodes: []int{40014, 42001}}
	assert.True(c.isInvalidTokenCode(40014))
	assert.True(c.isInvalidTokenCode(42001))
	assert.False(c.isInvalidTokenCode(60121))
	assert.False(c.isInvalidTokenCode(0))
}

func TestConfig_clone(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	orig, err := NewConfig("test-app-id", "test-app-secret", WithCorpID("corp-1"))
	require.NoError(err)
	cp := orig.clone()
	cp.CorpID = "corp-2"
	cp.InvalidTokenCodes[0] = 1
	assert.Equal("corp-1", orig.CorpID)
	assert.Equal(DefaultInvalidTokenCodes[0], orig.InvalidTokenCodes[0])
}
