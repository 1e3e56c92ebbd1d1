package services

import (
	"context"
	"errors"
	"strings"

	"nourish/api"
	"nourish/models"
	"nourish/session"
	"nourish/utils"
)

// ErrNoRefreshToken is returned by Refresh when the store has nothing to
// refresh with.
var ErrNoRefreshToken = errors.New("no refresh token")

type AuthService struct {
	client *api.Client
	store  session.Store
	bus    *RefreshBus
}

func NewAuthService(client *api.Client, bus *RefreshBus) *AuthService {
	return &AuthService{client: client, store: client.Store(), bus: bus}
}

// Login exchanges credentials for a token pair and stores it.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	req := models.LoginRequest{Email: email, Password: password}
	if errs := req.Validate(); !errs.Empty() {
		return nil, api.ValidationError(errs)
	}
	var resp models.AuthResponse
	if err := s.client.Post(ctx, "/auth/login", req, &resp); err != nil {
		return nil, credentialsRejected(err)
	}
	if err := s.storeTokens(&resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Register validates the form, creates the account and stores the tokens.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	if errs := req.Validate(); !errs.Empty() {
		return nil, api.ValidationError(errs)
	}
	if req.Goals == (models.Goals{}) {
		req.Goals = models.DefaultGoals
	}
	var resp models.AuthResponse
	if err := s.client.Post(ctx, "/auth/register", req, &resp); err != nil {
		return nil, credentialsRejected(err)
	}
	if err := s.storeTokens(&resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// credentialsRejected turns a 401 from login or register into a plain auth
// error carrying the backend message. There was no session to expire.
func credentialsRejected(err error) error {
	e, ok := api.AsError(err)
	if !ok || !api.IsSessionExpired(err) {
		return err
	}
	msg := e.Detail
	if msg == "" || strings.HasPrefix(msg, "HTTP error") {
		msg = "Invalid email or password"
	}
	return &api.Error{Kind: api.KindAuth, Message: msg, StatusCode: e.StatusCode}
}

func (s *AuthService) storeTokens(resp *models.AuthResponse) error {
	if resp.AccessToken == "" {
		return &api.Error{Kind: api.KindGeneral, Message: "Login response did not include a token"}
	}
	if err := s.store.Set(resp.AccessToken, resp.RefreshToken); err != nil {
		return err
	}
	s.bus.Publish(Event{Topic: TopicSession, Action: ActionLogin})
	return nil
}

// Refresh trades the stored refresh token for a new access token. The
// refresh token itself is kept. Any failure ends the session.
func (s *AuthService) Refresh(ctx context.Context) (string, error) {
	cred, err := s.store.Get()
	if err != nil {
		return "", err
	}
	if cred == nil || cred.RefreshToken == "" {
		return "", &api.Error{Kind: api.KindAuth, Message: "No refresh token", Err: ErrNoRefreshToken}
	}

	var resp models.AuthResponse
	err = s.client.Post(ctx, "/auth/refresh", map[string]string{"refresh_token": cred.RefreshToken}, &resp)
	if err == nil && resp.AccessToken == "" {
		err = &api.Error{Kind: api.KindGeneral, Message: "Refresh response did not include a token"}
	}
	if err != nil {
		if lerr := s.Logout(); lerr != nil {
			return "", errors.Join(err, lerr)
		}
		return "", err
	}
	if err := s.store.SetAccess(resp.AccessToken); err != nil {
		return "", err
	}
	return resp.AccessToken, nil
}

// Logout forgets both tokens. It does not call the backend.
func (s *AuthService) Logout() error {
	if err := s.store.Clear(); err != nil {
		return err
	}
	s.bus.Publish(Event{Topic: TopicSession, Action: ActionLogout})
	return nil
}

// IsAuthenticated reports whether an access token is stored. Expiry is
// only discovered by the backend.
func (s *AuthService) IsAuthenticated() bool {
	cred, err := s.store.Get()
	return err == nil && cred != nil && cred.AccessToken != ""
}

// Claims decodes the stored access token for display.
func (s *AuthService) Claims() (*utils.Claims, error) {
	cred, err := s.store.Get()
	if err != nil {
		return nil, err
	}
	if cred == nil || cred.AccessToken == "" {
		return nil, &api.Error{Kind: api.KindAuth, Message: "Not logged in"}
	}
	return utils.ParseClaimsUnverified(cred.AccessToken)
}
