package services

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"nourish/api"
	"nourish/models"
)

// MinSearchLength is the shortest query that reaches the backend.
const MinSearchLength = 2

type FoodService struct {
	client *api.Client
	bus    *RefreshBus
}

func NewFoodService(client *api.Client, bus *RefreshBus) *FoodService {
	return &FoodService{client: client, bus: bus}
}

// SearchableQuery reports whether q is long enough to search for.
func SearchableQuery(q string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(q)) >= MinSearchLength
}

// Search looks a query up across the catalog, the user's custom foods and
// external providers. Short queries return nothing without a request.
func (s *FoodService) Search(ctx context.Context, q string) ([]models.Food, error) {
	if !SearchableQuery(q) {
		return nil, nil
	}
	var out struct {
		Results []models.Food `json:"results"`
	}
	if err := s.client.Get(ctx, "/foods/search", url.Values{"q": {strings.TrimSpace(q)}}, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// Get fetches a catalog food by id.
func (s *FoodService) Get(ctx context.Context, id int64) (*models.Food, error) {
	var out struct {
		Food models.Food `json:"food"`
	}
	if err := s.client.Get(ctx, fmt.Sprintf("/foods/%d", id), nil, &out); err != nil {
		return nil, err
	}
	return &out.Food, nil
}

// Nutrition returns the macros of quantity grams of a catalog food.
func (s *FoodService) Nutrition(ctx context.Context, id int64, quantity float64) (*models.FoodNutrition, error) {
	var out models.FoodNutrition
	params := url.Values{"quantity": {strconv.FormatFloat(quantity, 'f', -1, 64)}}
	if err := s.client.Get(ctx, fmt.Sprintf("/foods/%d/nutrition", id), params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *FoodService) CustomFoods(ctx context.Context) ([]models.Food, error) {
	var out struct {
		Foods []models.Food `json:"foods"`
	}
	if err := s.client.Get(ctx, "/foods/custom", nil, &out); err != nil {
		return nil, err
	}
	for i := range out.Foods {
		if out.Foods[i].Type == "" {
			out.Foods[i].Type = string(models.SourceCustom)
		}
	}
	return out.Foods, nil
}

func (s *FoodService) CreateCustomFood(ctx context.Context, req models.CustomFoodRequest) (*models.Food, error) {
	if errs := req.Validate(); !errs.Empty() {
		return nil, api.ValidationError(errs)
	}
	req.Name = strings.TrimSpace(req.Name)
	var out struct {
		Food models.Food `json:"food"`
	}
	if err := s.client.Post(ctx, "/foods/custom", req, &out); err != nil {
		return nil, err
	}
	id, _ := out.Food.ID.Int()
	s.bus.Publish(Event{Topic: TopicFoods, Action: ActionCreated, ID: id})
	return &out.Food, nil
}

// DeleteCustomFood removes one of the caller's custom foods. Foods owned by
// someone else come back as not found.
func (s *FoodService) DeleteCustomFood(ctx context.Context, id int64) error {
	if err := s.client.Delete(ctx, fmt.Sprintf("/foods/custom/%d", id), nil); err != nil {
		return err
	}
	s.bus.Publish(Event{Topic: TopicFoods, Action: ActionDeleted, ID: id})
	return nil
}

// MaterializeExternal copies an external search hit into the catalog and
// returns the stored food, whose id can be logged.
func (s *FoodService) MaterializeExternal(ctx context.Context, food models.Food) (*models.Food, error) {
	provider := "spoonacular"
	if strings.EqualFold(food.Type, "usda") || strings.HasPrefix(string(food.ID), "usda_") {
		provider = "usda"
	}
	var out struct {
		Food models.Food `json:"food"`
	}
	endpoint := fmt.Sprintf("/foods/%s/%s", provider, url.PathEscape(string(food.ID)))
	if err := s.client.Post(ctx, endpoint, nil, &out); err != nil {
		return nil, err
	}
	return &out.Food, nil
}

// FoodRef is the food reference half of an entry or meal line.
type FoodRef struct {
	FoodID       *int64
	CustomFoodID *int64
}

// ResolveForEntry turns a search result into a loggable reference,
// materializing external foods first.
func (s *FoodService) ResolveForEntry(ctx context.Context, food models.Food) (FoodRef, error) {
	switch food.Source() {
	case models.SourceCustom:
		id, ok := food.ID.Int()
		if !ok {
			return FoodRef{}, fmt.Errorf("custom food has non-numeric id %q", food.ID)
		}
		return FoodRef{CustomFoodID: &id}, nil
	case models.SourceExternal:
		stored, err := s.MaterializeExternal(ctx, food)
		if err != nil {
			return FoodRef{}, err
		}
		food = *stored
	}
	id, ok := food.ID.Int()
	if !ok {
		return FoodRef{}, fmt.Errorf("food has non-numeric id %q", food.ID)
	}
	return FoodRef{FoodID: &id}, nil
}
