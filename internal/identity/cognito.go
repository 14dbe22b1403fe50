package identity

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/aws/smithy-go"
)

// Cognito implements Provider against an AWS Cognito user pool app client
type Cognito struct {
	client       *cip.Client
	clientID     string
	clientSecret string
	now          func() time.Time
}

// NewCognito creates a Cognito provider. The user pool API calls made here are
// public client calls, so no AWS credentials are attached.
func NewCognito(ctx context.Context, region, clientID, clientSecret string) (*Cognito, error) {
	if clientID == "" {
		return nil, fmt.Errorf("cognito client id is required")
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(aws.AnonymousCredentials{}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &Cognito{
		client:       cip.NewFromConfig(cfg),
		clientID:     clientID,
		clientSecret: clientSecret,
		now:          time.Now,
	}, nil
}

// SignIn authenticates with username and password
func (c *Cognito) SignIn(ctx context.Context, username, password string) (*Tokens, error) {
	params := map[string]string{
		"USERNAME": username,
		"PASSWORD": password,
	}
	if hash := c.secretHash(username); hash != "" {
		params["SECRET_HASH"] = hash
	}

	out, err := c.client.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow:       types.AuthFlowTypeUserPasswordAuth,
		ClientId:       aws.String(c.clientID),
		AuthParameters: params,
	})
	if err != nil {
		return nil, classify("sign in", err)
	}
	if out.AuthenticationResult == nil {
		return nil, &ProviderError{
			Reason: ReasonChallenge,
			Err:    fmt.Errorf("sign in requires challenge %s", out.ChallengeName),
		}
	}

	return c.tokens(out.AuthenticationResult, ""), nil
}

// SignUp registers a new account with the given attributes
func (c *Cognito) SignUp(ctx context.Context, username, password string, attributes map[string]string) error {
	input := &cip.SignUpInput{
		ClientId:       aws.String(c.clientID),
		Username:       aws.String(username),
		Password:       aws.String(password),
		UserAttributes: toAttributes(attributes),
	}
	if hash := c.secretHash(username); hash != "" {
		input.SecretHash = aws.String(hash)
	}

	if _, err := c.client.SignUp(ctx, input); err != nil {
		return classify("sign up", err)
	}
	return nil
}

// SignOut revokes every token issued to the account
func (c *Cognito) SignOut(ctx context.Context, accessToken string) error {
	_, err := c.client.GlobalSignOut(ctx, &cip.GlobalSignOutInput{
		AccessToken: aws.String(accessToken),
	})
	if err != nil {
		return classify("sign out", err)
	}
	return nil
}

// Refresh exchanges a refresh token for a new session. The refresh token is
// not rotated, so the old one is carried over.
func (c *Cognito) Refresh(ctx context.Context, username, refreshToken string) (*Tokens, error) {
	params := map[string]string{
		"REFRESH_TOKEN": refreshToken,
	}
	if hash := c.secretHash(username); hash != "" {
		params["SECRET_HASH"] = hash
	}

	out, err := c.client.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow:       types.AuthFlowTypeRefreshTokenAuth,
		ClientId:       aws.String(c.clientID),
		AuthParameters: params,
	})
	if err != nil {
		return nil, classify("refresh session", err)
	}
	if out.AuthenticationResult == nil {
		return nil, &ProviderError{Reason: ReasonChallenge, Err: fmt.Errorf("refresh returned no tokens")}
	}

	return c.tokens(out.AuthenticationResult, refreshToken), nil
}

// GetCurrentUser resolves the account behind an access token
func (c *Cognito) GetCurrentUser(ctx context.Context, accessToken string) (*User, error) {
	out, err := c.client.GetUser(ctx, &cip.GetUserInput{AccessToken: aws.String(accessToken)})
	if err != nil {
		return nil, classify("get user", err)
	}

	user := &User{Username: aws.ToString(out.Username)}
	user.UserID = fromAttributes(out.UserAttributes)["sub"]
	if user.UserID == "" {
		if claims, err := ParseToken(accessToken); err == nil {
			user.UserID = claims.Subject
		}
	}
	return user, nil
}

// FetchUserAttributes returns the account attributes as a flat map
func (c *Cognito) FetchUserAttributes(ctx context.Context, accessToken string) (map[string]string, error) {
	out, err := c.client.GetUser(ctx, &cip.GetUserInput{AccessToken: aws.String(accessToken)})
	if err != nil {
		return nil, classify("fetch user attributes", err)
	}
	return fromAttributes(out.UserAttributes), nil
}

// UpdateUserAttributes changes the given account attributes
func (c *Cognito) UpdateUserAttributes(ctx context.Context, accessToken string, attributes map[string]string) error {
	_, err := c.client.UpdateUserAttributes(ctx, &cip.UpdateUserAttributesInput{
		AccessToken:    aws.String(accessToken),
		UserAttributes: toAttributes(attributes),
	})
	if err != nil {
		return classify("update user attributes", err)
	}
	return nil
}

func (c *Cognito) tokens(res *types.AuthenticationResultType, refreshToken string) *Tokens {
	t := &Tokens{
		AccessToken:  aws.ToString(res.AccessToken),
		IDToken:      aws.ToString(res.IdToken),
		RefreshToken: aws.ToString(res.RefreshToken),
		ExpiresAt:    c.now().Add(time.Duration(res.ExpiresIn) * time.Second),
	}
	if t.RefreshToken == "" {
		t.RefreshToken = refreshToken
	}
	return t
}

// secretHash computes the SECRET_HASH required by app clients with a secret
func (c *Cognito) secretHash(username string) string {
	return SecretHash(username, c.clientID, c.clientSecret)
}

// SecretHash returns base64(HMAC-SHA256(secret, username+clientID)), or an
// empty string when the app client has no secret.
func SecretHash(username, clientID, clientSecret string) string {
	if clientSecret == "" {
		return ""
	}
	mac := hmac.New(sha256.New, []byte(clientSecret))
	mac.Write([]byte(username + clientID))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func toAttributes(attributes map[string]string) []types.AttributeType {
	out := make([]types.AttributeType, 0, len(attributes))
	for name, value := range attributes {
		out = append(out, types.AttributeType{
			Name:  aws.String(name),
			Value: aws.String(value),
		})
	}
	return out
}

func fromAttributes(attributes []types.AttributeType) map[string]string {
	out := make(map[string]string, len(attributes))
	for _, a := range attributes {
		out[aws.ToString(a.Name)] = aws.ToString(a.Value)
	}
	return out
}

// classify maps user pool exceptions to a ProviderError. Transport failures
// are returned wrapped as they are.
func classify(op string, err error) error {
	var (
		notAuthorized *types.NotAuthorizedException
		userExists    *types.UsernameExistsException
		badPassword   *types.InvalidPasswordException
		notConfirmed  *types.UserNotConfirmedException
		notFound      *types.UserNotFoundException
		badParameter  *types.InvalidParameterException
		apiErr        smithy.APIError
	)

	reason := ReasonUnknown
	switch {
	case errors.As(err, &notAuthorized):
		reason = ReasonInvalidCredentials
	case errors.As(err, &userExists):
		reason = ReasonUserExists
	case errors.As(err, &badPassword):
		reason = ReasonWeakPassword
	case errors.As(err, &notConfirmed):
		reason = ReasonNotConfirmed
	case errors.As(err, &notFound):
		reason = ReasonUserNotFound
	case errors.As(err, &badParameter):
		reason = ReasonInvalidParameter
	case errors.As(err, &apiErr):
		reason = Reason(apiErr.ErrorCode())
	default:
		return fmt.Errorf("failed to %s: %w", op, err)
	}

	return &ProviderError{Reason: reason, Err: fmt.Errorf("failed to %s: %w", op, err)}
}
