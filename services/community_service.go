package services

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"nourish/api"
	"nourish/models"
)

// RecipesPerPage is the community page size.
const RecipesPerPage = 20

// Image is an optional recipe picture.
type Image struct {
	Filename string
	Size     int64
	Reader   io.Reader
}

// OpenImage opens a file for upload. The caller closes the returned file.
func OpenImage(path string) (*Image, *os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open image: %w", err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("stat image: %w", err)
	}
	return &Image{Filename: filepath.Base(path), Size: st.Size(), Reader: f}, f, nil
}

// Validate checks type and size before anything is uploaded.
func (img *Image) Validate(errs models.FieldErrors) {
	if _, ok := models.ImageContentType(img.Filename); !ok {
		errs.Add("image", "Invalid file type. Allowed: png, jpg, jpeg, gif, webp")
	}
	if img.Size > models.MaxImageSize {
		errs.Add("image", "Image must be smaller than 5MB")
	}
}

type CommunityService struct {
	client *api.Client
	bus    *RefreshBus
}

func NewCommunityService(client *api.Client, bus *RefreshBus) *CommunityService {
	return &CommunityService{client: client, bus: bus}
}

// List returns one page of shared recipes, optionally filtered by title.
func (s *CommunityService) List(ctx context.Context, page int, search string) (*models.RecipePage, error) {
	if page < 1 {
		page = 1
	}
	params := url.Values{
		"page":     {strconv.Itoa(page)},
		"per_page": {strconv.Itoa(RecipesPerPage)},
	}
	if search != "" {
		params.Set("search", search)
	}
	var out models.RecipePage
	if err := s.client.Get(ctx, "/community/recipes", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *CommunityService) Get(ctx context.Context, id int64) (*models.Recipe, error) {
	var out struct {
		Recipe models.Recipe `json:"recipe"`
	}
	if err := s.client.Get(ctx, fmt.Sprintf("/community/recipes/%d", id), nil, &out); err != nil {
		return nil, err
	}
	return &out.Recipe, nil
}

// Share publishes a recipe with an optional image.
func (s *CommunityService) Share(ctx context.Context, req models.ShareRecipeRequest, img *Image) (*models.Recipe, error) {
	errs := req.Validate()
	if img != nil {
		img.Validate(errs)
	}
	if !errs.Empty() {
		return nil, api.ValidationError(errs)
	}

	form := api.NewMultipart()
	if err := form.AddJSON("data", req); err != nil {
		return nil, err
	}
	if img != nil {
		ct, _ := models.ImageContentType(img.Filename)
		form.AddFile("image", img.Filename, ct, img.Reader)
	}

	var out struct {
		Recipe models.Recipe `json:"recipe"`
	}
	if err := s.client.PostMultipart(ctx, "/community/recipes", form, &out); err != nil {
		return nil, err
	}
	s.bus.Publish(Event{Topic: TopicRecipes, Action: ActionCreated, ID: out.Recipe.ID})
	return &out.Recipe, nil
}

// ShareDraft pre-fills a share request from one of the user's saved meals.
func (s *CommunityService) ShareDraft(ctx context.Context, mealID int64) (*models.ShareRecipeRequest, error) {
	var out mealEnvelope
	if err := s.client.Get(ctx, fmt.Sprintf("/community/recipes/from-saved-meal/%d", mealID), nil, &out); err != nil {
		return nil, err
	}
	req := models.RecipeFromMeal(out.Meal, "")
	return &req, nil
}

// Import copies a recipe into the user's saved meals.
func (s *CommunityService) Import(ctx context.Context, id int64) (*models.SavedMeal, error) {
	var out mealEnvelope
	if err := s.client.Post(ctx, fmt.Sprintf("/community/recipes/%d/import", id), nil, &out); err != nil {
		return nil, err
	}
	s.bus.Publish(Event{Topic: TopicMeals, Action: ActionImported, ID: out.Meal.ID})
	return &out.Meal, nil
}

// Delete removes a recipe the user shared.
func (s *CommunityService) Delete(ctx context.Context, id int64) error {
	if err := s.client.Delete(ctx, fmt.Sprintf("/community/recipes/%d", id), nil); err != nil {
		return err
	}
	s.bus.Publish(Event{Topic: TopicRecipes, Action: ActionDeleted, ID: id})
	return nil
}

// ImageURL is the absolute URL of a recipe's image.
func (s *CommunityService) ImageURL(id int64) string {
	return s.client.URL(fmt.Sprintf("/community/recipes/%d/image", id))
}
