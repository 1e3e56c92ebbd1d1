package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"nourish/models"
	"nourish/services"
)

func recipesCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "recipes",
		Aliases: []string{"recipe", "community"},
		Short:   "Browse, share and import community recipes",
	}
	cmd.AddCommand(recipesListCmd(c), recipesShowCmd(c), recipesShareCmd(c), recipesImportCmd(c), recipesRmCmd(c))
	return cmd
}

func recipesListCmd(c *cli) *cobra.Command {
	var (
		page   int
		search string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List shared recipes, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.services()
			if err != nil {
				return err
			}
			res, err := svc.Community.List(cmd.Context(), page, search)
			if err != nil {
				return err
			}
			if len(res.Recipes) == 0 {
				fmt.Fprintln(c.out, "No recipes found")
				return nil
			}
			tw := newTable(c.out, "ID", "TITLE", "AUTHOR", "CAL", "IMAGE")
			for _, r := range res.Recipes {
				img := ""
				if r.HasImage() {
					img = "yes"
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%.0f\t%s\n", r.ID, r.Title, r.Author, r.TotalCalories, img)
			}
			tw.Flush()
			footer := fmt.Sprintf("page %d of %d, %d recipes", res.CurrentPage, res.Pages, res.Total)
			if res.HasNext() {
				footer += fmt.Sprintf(", next: --page %d", res.CurrentPage+1)
			}
			fmt.Fprintln(c.out, dimStyle.Render(footer))
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().StringVarP(&search, "search", "s", "", "filter by title")
	return cmd
}

func recipesShowCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show <recipe-id>",
		Short: "Show a recipe with its foods and instructions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.services()
			if err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			r, err := svc.Community.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			heading(c.out, "%s", r.Title)
			if r.Author != "" {
				fmt.Fprintln(c.out, dimStyle.Render("by "+r.Author))
			}
			if r.Description != "" {
				fmt.Fprintln(c.out, r.Description)
			}
			fmt.Fprintln(c.out)
			totals := models.Macros{
				Calories: r.TotalCalories,
				Protein:  r.TotalProtein,
				Carbs:    r.TotalCarbs,
				Fat:      r.TotalFat,
				Fiber:    r.TotalFiber,
			}
			printMealLines(c, r.Foods, totals)
			fmt.Fprintf(c.out, "\n%s\n", r.Instructions)
			if r.HasImage() {
				fmt.Fprintln(c.out, dimStyle.Render("image: "+svc.Community.ImageURL(r.ID)))
			}
			return nil
		},
	}
}

func recipesShareCmd(c *cli) *cobra.Command {
	var (
		title        string
		description  string
		instructions string
		imagePath    string
	)
	cmd := &cobra.Command{
		Use:   "share <meal-id>",
		Short: "Share one of your saved meals as a community recipe",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.services()
			if err != nil {
				return err
			}
			mealID, err := parseID(args[0])
			if err != nil {
				return err
			}
			req, err := svc.Community.ShareDraft(cmd.Context(), mealID)
			if err != nil {
				return err
			}
			if title != "" {
				req.Title = title
			}
			if description != "" {
				req.Description = description
			}
			req.Instructions = instructions

			var img *services.Image
			if imagePath != "" {
				i, f, err := services.OpenImage(imagePath)
				if err != nil {
					return err
				}
				defer f.Close()
				img = i
			}
			recipe, err := svc.Community.Share(cmd.Context(), *req, img)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Shared recipe #%d %s\n", recipe.ID, recipe.Title)
			return nil
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "recipe title (defaults to the meal name)")
	cmd.Flags().StringVar(&description, "description", "", "recipe description (defaults to the meal description)")
	cmd.Flags().StringVarP(&instructions, "instructions", "i", "", "preparation steps, at least 10 characters")
	cmd.Flags().StringVar(&imagePath, "image", "", "png, jpg, gif or webp picture up to 5MB")
	return cmd
}

func recipesImportCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "import <recipe-id>",
		Short: "Copy a community recipe into your saved meals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.services()
			if err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			meal, err := svc.Community.Import(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Imported as saved meal #%d %s\n", meal.ID, meal.Name)
			return nil
		},
	}
}

func recipesRmCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <recipe-id>",
		Aliases: []string{"delete"},
		Short:   "Delete a recipe you shared",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.services()
			if err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := svc.Community.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Deleted recipe #%d\n", id)
			return nil
		},
	}
}
