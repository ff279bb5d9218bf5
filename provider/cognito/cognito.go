// Package cognito implements provider.Client against the AWS Cognito user
// pools admin API. SDK exception types are mapped to the provider package's
// closed error variant set so callers never match on error strings.
package cognito

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/aws/smithy-go"

	"github.com/ggoodman/cognito-auth-go/provider"
)

// Config carries the environment-provided settings for the user pool.
type Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	UserPoolID      string
	ClientID        string
	ClientSecret    string

	// Timeout bounds each provider call when the caller's context carries
	// no deadline. Defaults to 10s.
	Timeout time.Duration
}

// api is the slice of the Cognito SDK client the adapter uses; narrowed for
// test doubles.
type api interface {
	AdminInitiateAuth(ctx context.Context, params *cip.AdminInitiateAuthInput, optFns ...func(*cip.Options)) (*cip.AdminInitiateAuthOutput, error)
	AdminCreateUser(ctx context.Context, params *cip.AdminCreateUserInput, optFns ...func(*cip.Options)) (*cip.AdminCreateUserOutput, error)
	AdminSetUserPassword(ctx context.Context, params *cip.AdminSetUserPasswordInput, optFns ...func(*cip.Options)) (*cip.AdminSetUserPasswordOutput, error)
}

// Client talks to a single Cognito user pool.
type Client struct {
	api     api
	cfg     Config
	signer  *provider.SecretHashSigner
	timeout time.Duration
}

var _ provider.Client = (*Client)(nil)

// New constructs a Client from explicit configuration. Missing client
// credentials or pool identifiers are fatal configuration errors.
func New(ctx context.Context, cfg Config) (*Client, error) {
	signer, err := provider.NewSecretHashSigner(cfg.ClientID, cfg.ClientSecret)
	if err != nil {
		return nil, err
	}
	if cfg.UserPoolID == "" {
		return nil, errors.New("cognito: user pool id is required")
	}
	if cfg.Region == "" {
		return nil, errors.New("cognito: region is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	ac, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("cognito: load aws config: %w", err)
	}

	return &Client{api: cip.NewFromConfig(ac), cfg: cfg, signer: signer, timeout: cfg.Timeout}, nil
}

// InitiateAuth implements provider.Client using the admin username/password
// flow with the computed SECRET_HASH.
func (c *Client) InitiateAuth(ctx context.Context, username, password string) (*provider.AuthResult, error) {
	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	out, err := c.api.AdminInitiateAuth(ctx, &cip.AdminInitiateAuthInput{
		AuthFlow:   types.AuthFlowTypeAdminUserPasswordAuth,
		ClientId:   aws.String(c.cfg.ClientID),
		UserPoolId: aws.String(c.cfg.UserPoolID),
		AuthParameters: map[string]string{
			"USERNAME":    username,
			"PASSWORD":    password,
			"SECRET_HASH": c.signer.Sign(username),
		},
	})
	if err != nil {
		return nil, mapError(err)
	}
	res := out.AuthenticationResult
	if res == nil || res.AccessToken == nil {
		// A challenge response (e.g. NEW_PASSWORD_REQUIRED) carries no
		// tokens; this flow does not answer challenges.
		return nil, fmt.Errorf("%w: authentication challenge not supported", provider.ErrNotAuthorized)
	}
	return &provider.AuthResult{
		AccessToken:  aws.ToString(res.AccessToken),
		IDToken:      aws.ToString(res.IdToken),
		RefreshToken: aws.ToString(res.RefreshToken),
		TokenType:    aws.ToString(res.TokenType),
		ExpiresIn:    res.ExpiresIn,
	}, nil
}

// CreateUser implements provider.Client. The welcome message is suppressed;
// the caller is expected to follow up with SetPermanentPassword.
func (c *Client) CreateUser(ctx context.Context, username, temporaryPassword string, attrs provider.UserAttributes) (*provider.CreatedUser, error) {
	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	out, err := c.api.AdminCreateUser(ctx, &cip.AdminCreateUserInput{
		UserPoolId:             aws.String(c.cfg.UserPoolID),
		Username:               aws.String(username),
		TemporaryPassword:      aws.String(temporaryPassword),
		MessageAction:          types.MessageActionTypeSuppress,
		DesiredDeliveryMediums: []types.DeliveryMediumType{},
		UserAttributes: []types.AttributeType{
			{Name: aws.String("email"), Value: aws.String(attrs.Email)},
			{Name: aws.String("email_verified"), Value: aws.String(strconv.FormatBool(attrs.EmailVerified))},
			{Name: aws.String("name"), Value: aws.String(attrs.Name)},
		},
	})
	if err != nil {
		return nil, mapError(err)
	}
	created := &provider.CreatedUser{Username: username}
	if out.User != nil && out.User.Username != nil {
		created.Username = aws.ToString(out.User.Username)
	}
	return created, nil
}

// SetPermanentPassword implements provider.Client.
func (c *Client) SetPermanentPassword(ctx context.Context, username, password string) error {
	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	_, err := c.api.AdminSetUserPassword(ctx, &cip.AdminSetUserPasswordInput{
		UserPoolId: aws.String(c.cfg.UserPoolID),
		Username:   aws.String(username),
		Password:   aws.String(password),
		Permanent:  true,
	})
	if err != nil {
		return mapError(err)
	}
	return nil
}

func (c *Client) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

// mapError translates SDK errors into the provider package's variant set.
// Unrecognized API rejections pass through with their code preserved for
// local logging; non-API errors are transport failures.
func mapError(err error) error {
	var (
		notAuth  *types.NotAuthorizedException
		noUser   *types.UserNotFoundException
		exists   *types.UsernameExistsException
		badPass  *types.InvalidPasswordException
		badParam *types.InvalidParameterException
		throttle *types.TooManyRequestsException
	)
	switch {
	case errors.As(err, &notAuth):
		return fmt.Errorf("%w: %s", provider.ErrNotAuthorized, aws.ToString(notAuth.Message))
	case errors.As(err, &noUser):
		return fmt.Errorf("%w: %s", provider.ErrUserNotFound, aws.ToString(noUser.Message))
	case errors.As(err, &exists):
		return fmt.Errorf("%w: %s", provider.ErrUserExists, aws.ToString(exists.Message))
	case errors.As(err, &badPass):
		return fmt.Errorf("%w: %s", provider.ErrPasswordPolicy, aws.ToString(badPass.Message))
	case errors.As(err, &badParam):
		return fmt.Errorf("%w: %s", provider.ErrInvalidParameter, aws.ToString(badParam.Message))
	case errors.As(err, &throttle):
		return fmt.Errorf("%w: %s", provider.ErrUnavailable, aws.ToString(throttle.Message))
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("cognito: %s: %s", apiErr.ErrorCode(), apiErr.ErrorMessage())
	}
	return fmt.Errorf("%w: %v", provider.ErrUnavailable, err)
}
