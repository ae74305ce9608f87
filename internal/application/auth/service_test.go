package auth

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/chefgpt/server/internal/domain/user"
	"github.com/chefgpt/server/pkg/errors"
	"github.com/chefgpt/server/test/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type failingRevocationStore struct{}

func (failingRevocationStore) Revoke(context.Context, string, time.Duration) error {
	return stderrors.New("redis: connection refused")
}

func (failingRevocationStore) IsRevoked(context.Context, string) (bool, error) {
	return false, stderrors.New("redis: connection refused")
}

// AuthServiceTestSuite provides a test suite for the auth service
type AuthServiceTestSuite struct {
	suite.Suite
	identity    *testutils.MockIdentityProvider
	revocations *testutils.MemoryRevocationStore
	service     *Service
	ctx         context.Context
}

// SetupTest runs before each test
func (suite *AuthServiceTestSuite) SetupTest() {
	suite.identity = new(testutils.MockIdentityProvider)
	suite.revocations = testutils.NewMemoryRevocationStore()
	suite.ctx = context.Background()
	suite.service = NewService(
		suite.identity,
		suite.revocations,
		testutils.NoopMetrics{},
		Config{PublicURL: "https://chef.example.com/"},
		zap.NewNop(),
	).(*Service)
}

func (suite *AuthServiceTestSuite) TestCurrentUser() {
	suite.Run("NoToken_ShouldFailWithoutOutboundCall", func() {
		suite.SetupTest()

		_, err := suite.service.CurrentUser(suite.ctx, "")

		var appErr *errors.AppError
		require.True(suite.T(), stderrors.As(err, &appErr))
		assert.Equal(suite.T(), errors.CodeUnauthorized, appErr.Code)
		assert.Equal(suite.T(), MessageNoToken, appErr.Message)
		suite.identity.AssertNotCalled(suite.T(), "GetUser", mock.Anything, mock.Anything)
	})

	suite.Run("ExpiredToken_ShouldFailLocally", func() {
		suite.SetupTest()
		token := testutils.AccessToken("user-1", time.Now().Add(-time.Minute))

		_, err := suite.service.CurrentUser(suite.ctx, token)

		assert.True(suite.T(), errors.Is(err, errors.CodeUnauthorized))
		suite.identity.AssertNotCalled(suite.T(), "GetUser", mock.Anything, mock.Anything)
	})

	suite.Run("MalformedToken_ShouldFailLocally", func() {
		suite.SetupTest()

		_, err := suite.service.CurrentUser(suite.ctx, "not-a-jwt")

		assert.True(suite.T(), errors.Is(err, errors.CodeUnauthorized))
		suite.identity.AssertNotCalled(suite.T(), "GetUser", mock.Anything, mock.Anything)
	})

	suite.Run("RevokedToken_ShouldFail", func() {
		suite.SetupTest()
		token := testutils.ValidAccessToken("user-1")
		require.NoError(suite.T(), suite.revocations.Revoke(suite.ctx, token, time.Hour))

		_, err := suite.service.CurrentUser(suite.ctx, token)

		assert.True(suite.T(), errors.Is(err, errors.CodeUnauthorized))
		suite.identity.AssertNotCalled(suite.T(), "GetUser", mock.Anything, mock.Anything)
	})

	suite.Run("ProviderRejects_ShouldReturnUserNotFound", func() {
		suite.SetupTest()
		token := testutils.ValidAccessToken("user-1")
		suite.identity.On("GetUser", mock.Anything, token).Return(nil, stderrors.New("401")).Once()

		_, err := suite.service.CurrentUser(suite.ctx, token)

		var appErr *errors.AppError
		require.True(suite.T(), stderrors.As(err, &appErr))
		assert.Equal(suite.T(), MessageInvalidToken, appErr.Message)
	})

	suite.Run("ValidToken_ShouldReturnUser", func() {
		suite.SetupTest()
		expected := testutils.NewUserFactory(7).CreateUser()
		token := testutils.ValidAccessToken(expected.ID)
		suite.identity.On("GetUser", mock.Anything, token).Return(expected, nil).Once()

		got, err := suite.service.CurrentUser(suite.ctx, token)

		require.NoError(suite.T(), err)
		assert.Equal(suite.T(), expected, got)
	})

	suite.Run("RevocationStoreDown_ShouldNotBlock", func() {
		suite.SetupTest()
		suite.service.revocations = failingRevocationStore{}
		token := testutils.ValidAccessToken("user-1")
		suite.identity.On("GetUser", mock.Anything, token).Return(&user.User{ID: "user-1"}, nil).Once()

		got, err := suite.service.CurrentUser(suite.ctx, token)

		require.NoError(suite.T(), err)
		assert.Equal(suite.T(), "user-1", got.ID)
	})

	suite.Run("RevocationStoreDown_ShouldWarnOncePerInterval", func() {
		suite.SetupTest()
		core, logs := observer.New(zap.WarnLevel)
		suite.service.logger = zap.New(core)
		suite.service.revocations = failingRevocationStore{}
		token := testutils.ValidAccessToken("user-1")
		suite.identity.On("GetUser", mock.Anything, token).Return(&user.User{ID: "user-1"}, nil).Times(3)

		for i := 0; i < 3; i++ {
			_, err := suite.service.CurrentUser(suite.ctx, token)
			require.NoError(suite.T(), err)
		}

		assert.Equal(suite.T(), 1, logs.FilterMessage("Revocation check failed, continuing").Len())
	})
}

func (suite *AuthServiceTestSuite) TestSignOut() {
	suite.Run("NoSession_ShouldNotCallProvider", func() {
		suite.SetupTest()

		suite.service.SignOut(suite.ctx, "")

		suite.identity.AssertNotCalled(suite.T(), "SignOut", mock.Anything, mock.Anything)
	})

	suite.Run("Session_ShouldSignOutAndRevoke", func() {
		suite.SetupTest()
		token := testutils.ValidAccessToken("user-1")
		suite.identity.On("SignOut", mock.Anything, token).Return(nil).Once()

		suite.service.SignOut(suite.ctx, token)

		revoked, err := suite.revocations.IsRevoked(suite.ctx, token)
		require.NoError(suite.T(), err)
		assert.True(suite.T(), revoked)
		suite.identity.AssertExpectations(suite.T())
	})

	suite.Run("RemoteFailure_ShouldStillRevoke", func() {
		suite.SetupTest()
		token := testutils.ValidAccessToken("user-1")
		suite.identity.On("SignOut", mock.Anything, token).Return(stderrors.New("boom")).Once()

		suite.service.SignOut(suite.ctx, token)

		revoked, _ := suite.revocations.IsRevoked(suite.ctx, token)
		assert.True(suite.T(), revoked)
	})
}

func (suite *AuthServiceTestSuite) TestSignInURL() {
	suite.Run("DefaultProvider_ShouldRedirectToCallback", func() {
		suite.SetupTest()
		suite.identity.On("AuthorizeURL", "google", "https://chef.example.com/auth/callback").
			Return("https://id.example.com/auth/v1/authorize?provider=google").Once()

		got, err := suite.service.SignInURL("")

		require.NoError(suite.T(), err)
		assert.Equal(suite.T(), "https://id.example.com/auth/v1/authorize?provider=google", got)
	})

	suite.Run("UnknownProvider_ShouldFail", func() {
		suite.SetupTest()

		_, err := suite.service.SignInURL("myspace")

		assert.True(suite.T(), errors.Is(err, errors.CodeBadRequest))
	})
}

func (suite *AuthServiceTestSuite) TestCompleteSignIn() {
	token := testutils.ValidAccessToken("user-1")
	suite.identity.On("GetUser", mock.Anything, token).Return(&user.User{ID: "user-1"}, nil).Once()

	session, err := suite.service.CompleteSignIn(suite.ctx, token, "refresh-1")

	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), token, session.AccessToken)
	assert.Equal(suite.T(), "refresh-1", session.RefreshToken)
	assert.False(suite.T(), session.ExpiresAt.IsZero())
	assert.Equal(suite.T(), "user-1", session.User.ID)
}

func TestAuthServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceTestSuite))
}
