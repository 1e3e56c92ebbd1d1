package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"nourish/models"
	"nourish/views"
)

func foodsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "foods",
		Short: "Search the food database and manage custom foods",
	}
	cmd.AddCommand(foodsSearchCmd(c), foodsShowCmd(c), foodsCustomCmd(c), foodsAddCustomCmd(c), foodsRmCustomCmd(c))
	return cmd
}

func printFoods(c *cli, foods []models.Food) {
	tw := newTable(c.out, append([]string{"ID", "NAME", "SOURCE", "PER"}, macroColumns...)...)
	for _, f := range foods {
		per := f.Per
		if per == "" && f.ServingSize > 0 {
			per = fmt.Sprintf("%.0fg", f.ServingSize)
		}
		name := f.Name
		if f.Brand != "" {
			name += " (" + f.Brand + ")"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", f.ID, name, f.Source(), per, macroCells(f.Macros))
	}
	tw.Flush()
}

func foodsSearchCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search catalog, custom and external foods",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.services()
			if err != nil {
				return err
			}
			foods, err := svc.Foods.Search(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(foods) == 0 {
				fmt.Fprintln(c.out, "No foods found")
				return nil
			}
			printFoods(c, foods)
			return nil
		},
	}
}

func foodsShowCmd(c *cli) *cobra.Command {
	var quantity float64
	cmd := &cobra.Command{
		Use:   "show <food-id>",
		Short: "Show a catalog food and its nutrition for a quantity",
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
			food, err := svc.Foods.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			n, err := svc.Foods.Nutrition(cmd.Context(), id, quantity)
			if err != nil {
				return err
			}
			heading(c.out, "%s", food.Name)
			tw := newTable(c.out, append([]string{"PORTION"}, macroColumns...)...)
			fmt.Fprintf(tw, "100g\t%s\n", macroCells(food.Macros))
			fmt.Fprintf(tw, "%.0fg\t%s\n", n.Quantity, macroCells(n.Macros))
			return tw.Flush()
		},
	}
	cmd.Flags().Float64VarP(&quantity, "quantity", "q", 100, "quantity in grams")
	return cmd
}

func foodsCustomCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "custom",
		Short: "List your custom foods",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.services()
			if err != nil {
				return err
			}
			foods, err := svc.Foods.CustomFoods(cmd.Context())
			if err != nil {
				return err
			}
			if len(foods) == 0 {
				fmt.Fprintln(c.out, "No custom foods yet")
				return nil
			}
			printFoods(c, foods)
			return nil
		},
	}
}

func foodsAddCustomCmd(c *cli) *cobra.Command {
	var req models.CustomFoodRequest
	cmd := &cobra.Command{
		Use:   "add-custom <name>",
		Short: "Create a custom food with macros per serving",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.services()
			if err != nil {
				return err
			}
			req.Name = args[0]
			food, err := svc.Foods.CreateCustomFood(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Created custom food #%s %s\n", food.ID, food.Name)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.Brand, "brand", "", "brand name")
	f.Float64Var(&req.ServingSize, "serving", 100, "serving size in grams")
	f.Float64Var(&req.Calories, "calories", 0, "calories per serving")
	f.Float64Var(&req.Protein, "protein", 0, "protein per serving in grams")
	f.Float64Var(&req.Carbs, "carbs", 0, "carbs per serving in grams")
	f.Float64Var(&req.Fat, "fat", 0, "fat per serving in grams")
	f.Float64Var(&req.Fiber, "fiber", 0, "fiber per serving in grams")
	return cmd
}

func foodsRmCustomCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "rm-custom <custom-food-id>",
		Short: "Delete one of your custom foods",
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
			if err := svc.Foods.DeleteCustomFood(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Deleted custom food #%d\n", id)
			return nil
		},
	}
}

func searchCmd(c *cli) *cobra.Command {
	var (
		date     string
		meal     string
		quantity float64
	)
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search foods interactively and log the one you pick",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.services()
			if err != nil {
				return err
			}
			mealType, err := models.ParseMealType(meal)
			if err != nil {
				return err
			}

			m := views.NewSearchModel(svc.Foods.Search, c.cfg.SearchDebounce, c.cfg.SearchMinChars)
			defer m.Close()
			p := tea.NewProgram(m, tea.WithContext(cmd.Context()), tea.WithInput(c.in), tea.WithOutput(c.out))
			if _, err := p.Run(); err != nil {
				return err
			}
			food := m.Selected()
			if food == nil {
				return nil
			}

			ref, err := svc.Foods.ResolveForEntry(cmd.Context(), *food)
			if err != nil {
				return err
			}
			entry, err := svc.Entries.Create(cmd.Context(), models.EntryRequest{
				FoodID:       ref.FoodID,
				CustomFoodID: ref.CustomFoodID,
				MealType:     mealType,
				Quantity:     quantity,
				Date:         date,
			})
			if err != nil {
				return err
			}
			printEntry(c, "Logged", entry)
			return nil
		},
	}
	addDateFlag(cmd, &date)
	cmd.Flags().StringVarP(&meal, "meal", "m", string(models.Snacks), "breakfast, lunch, dinner or snacks")
	cmd.Flags().Float64VarP(&quantity, "quantity", "q", 100, "quantity in grams")
	return cmd
}
