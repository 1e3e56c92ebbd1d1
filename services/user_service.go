package services

import (
	"context"

	"nourish/api"
	"nourish/models"
)

type UserService struct {
	client *api.Client
	bus    *RefreshBus
}

func NewUserService(client *api.Client, bus *RefreshBus) *UserService {
	return &UserService{client: client, bus: bus}
}

type userEnvelope struct {
	User models.User `json:"user"`
}

func (s *UserService) Profile(ctx context.Context) (*models.User, error) {
	var out models.User
	if err := s.client.Get(ctx, "/users/profile", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, upd models.ProfileUpdate) (*models.User, error) {
	if upd.Email != "" && !models.ValidEmail(upd.Email) {
		errs := models.FieldErrors{}
		errs.Add("email", "Please enter a valid email")
		return nil, api.ValidationError(errs)
	}
	var out userEnvelope
	if err := s.client.Put(ctx, "/users/profile", upd, &out); err != nil {
		return nil, err
	}
	s.bus.Publish(Event{Topic: TopicUser, Action: ActionUpdated, ID: out.User.ID})
	return &out.User, nil
}

// UpdateGoals saves new daily targets. Out-of-range calories block the
// update; a macro/calorie mismatch is returned as a warning alongside the
// updated user.
func (s *UserService) UpdateGoals(ctx context.Context, goals models.Goals) (*models.User, *models.GoalWarning, error) {
	if errs := goals.Validate(); !errs.Empty() {
		return nil, nil, api.ValidationError(errs)
	}
	warning := goals.Balance()
	var out userEnvelope
	if err := s.client.Put(ctx, "/users/goals", goals, &out); err != nil {
		return nil, nil, err
	}
	s.bus.Publish(Event{Topic: TopicUser, Action: ActionUpdated, ID: out.User.ID})
	return &out.User, warning, nil
}

func (s *UserService) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	req := models.PasswordChange{OldPassword: oldPassword, NewPassword: newPassword}
	if errs := req.Validate(); !errs.Empty() {
		return api.ValidationError(errs)
	}
	return s.client.Post(ctx, "/users/change-password", req, nil)
}
