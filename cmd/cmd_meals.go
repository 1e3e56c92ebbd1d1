package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"nourish/models"
)

func mealsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "meals",
		Aliases: []string{"meal"},
		Short:   "Saved meal templates",
	}
	cmd.AddCommand(mealsListCmd(c), mealsShowCmd(c), mealsLogCmd(c), mealsRmCmd(c), mealsSaveDayCmd(c))
	return cmd
}

func mealsListCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your saved meals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.services()
			if err != nil {
				return err
			}
			meals, err := svc.Meals.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(meals) == 0 {
				fmt.Fprintln(c.out, "No saved meals yet")
				return nil
			}
			tw := newTable(c.out, append([]string{"ID", "NAME", "FOODS"}, macroColumns...)...)
			for _, m := range meals {
				fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", m.ID, m.Name, len(m.Foods), macroCells(m.Totals()))
			}
			return tw.Flush()
		},
	}
}

func printMealLines(c *cli, lines []models.MealFood, totals models.Macros) {
	tw := newTable(c.out, append([]string{"FOOD", "QTY"}, macroColumns...)...)
	for _, f := range lines {
		fmt.Fprintf(tw, "%s\t%.0fg\t%s\n", f.Name, f.Quantity, macroCells(f.Macros))
	}
	fmt.Fprintf(tw, "total\t\t%s\n", macroCells(totals))
	tw.Flush()
}

func mealsShowCmd(c *cli) *cobra.Command {
	var portion float64
	cmd := &cobra.Command{
		Use:   "show <meal-id>",
		Short: "Show a saved meal, optionally scaled to a portion",
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
			meal, err := svc.Meals.Find(cmd.Context(), id)
			if err != nil {
				return err
			}
			factor, err := models.PortionFactor(portion)
			if err != nil {
				return err
			}
			scaled := meal.Scale(factor)
			heading(c.out, "%s (%.0f%%)", meal.Name, portion)
			if meal.Description != "" {
				fmt.Fprintln(c.out, dimStyle.Render(meal.Description))
			}
			printMealLines(c, scaled.Foods, scaled.Totals)
			return nil
		},
	}
	cmd.Flags().Float64VarP(&portion, "portion", "p", 100, "portion in percent of the whole meal")
	return cmd
}

func mealsLogCmd(c *cli) *cobra.Command {
	var (
		date    string
		meal    string
		portion float64
		perLine bool
	)
	cmd := &cobra.Command{
		Use:   "log <meal-id>",
		Short: "Log a saved meal into the diary",
		Long: `Logs every food of a saved meal into one meal slot. --portion scales all
quantities, e.g. 50 logs half the meal. By default the backend expands the
meal; --per-line creates one entry per food from the client instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.services()
			if err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			mealType, err := models.ParseMealType(meal)
			if err != nil {
				return err
			}
			factor, err := models.PortionFactor(portion)
			if err != nil {
				return err
			}

			var entries []models.Entry
			if perLine {
				saved, ferr := svc.Meals.Find(cmd.Context(), id)
				if ferr != nil {
					return ferr
				}
				entries, err = svc.Meals.LogScaled(cmd.Context(), *saved, portion, date, mealType)
			} else {
				entries, err = svc.Meals.AddToDay(cmd.Context(), id, date, mealType, factor)
			}
			for i := range entries {
				printEntry(c, "Logged", &entries[i])
			}
			return err
		},
	}
	addDateFlag(cmd, &date)
	cmd.Flags().StringVarP(&meal, "meal", "m", string(models.Lunch), "breakfast, lunch, dinner or snacks")
	cmd.Flags().Float64VarP(&portion, "portion", "p", 100, "portion in percent of the whole meal")
	cmd.Flags().BoolVar(&perLine, "per-line", false, "create the entries from the client, one request per food")
	return cmd
}

func mealsRmCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <meal-id>",
		Aliases: []string{"delete"},
		Short:   "Delete a saved meal",
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
			if err := svc.Meals.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Deleted meal #%d\n", id)
			return nil
		},
	}
}

func mealsSaveDayCmd(c *cli) *cobra.Command {
	var (
		date        string
		slot        string
		name        string
		description string
	)
	cmd := &cobra.Command{
		Use:   "save-day",
		Short: "Save what you logged for one meal of a day as a template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.services()
			if err != nil {
				return err
			}
			mealType, err := models.ParseMealType(slot)
			if err != nil {
				return err
			}
			if name == "" {
				name = fmt.Sprintf("%s %s", mealType.Title(), date)
			}
			saved, err := svc.Meals.SaveDayAsTemplate(cmd.Context(), date, mealType, name, description)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Saved meal #%d %s with %d foods\n", saved.ID, saved.Name, len(saved.Foods))
			return nil
		},
	}
	addDateFlag(cmd, &date)
	cmd.Flags().StringVarP(&slot, "meal", "m", string(models.Lunch), "meal slot to save")
	cmd.Flags().StringVarP(&name, "name", "n", "", "template name (defaults to the slot and date)")
	cmd.Flags().StringVar(&description, "description", "", "template description")
	return cmd
}
