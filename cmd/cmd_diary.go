package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"nourish/models"
	"nourish/services"
)

func diaryCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diary",
		Short: "List and edit the foods logged for a day",
	}
	cmd.AddCommand(diaryListCmd(c), diaryAddCmd(c), diaryEditCmd(c), diaryRmCmd(c))
	return cmd
}

func diaryListCmd(c *cli) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show a day's entries grouped by meal with progress against goals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.services()
			if err != nil {
				return err
			}
			view, err := svc.Days.LoadDay(cmd.Context(), date)
			if err != nil {
				return err
			}
			printDay(c, view)
			return nil
		},
	}
	addDateFlag(cmd, &date)
	return cmd
}

func printDay(c *cli, view *models.DayView) {
	heading(c.out, "Diary for %s", view.Date)
	for _, meal := range models.MealTypes {
		entries := view.Entries.Meal(meal)
		totals := view.Entries.Totals(meal)
		fmt.Fprintf(c.out, "\n%s  %s\n", headingStyle.Render(meal.Title()),
			dimStyle.Render(fmt.Sprintf("%.0f cal", totals.Calories)))
		if len(entries) == 0 {
			fmt.Fprintln(c.out, dimStyle.Render("  nothing logged"))
			continue
		}
		tw := newTable(c.out, append([]string{"  ID", "FOOD", "QTY"}, macroColumns...)...)
		for _, e := range entries {
			fmt.Fprintf(tw, "  %d\t%s\t%.0fg\t%s\n", e.ID, e.Name, e.Quantity, macroCells(e.Macros))
		}
		tw.Flush()
	}
	fmt.Fprintln(c.out)
	printNutrients(c, view.Summary.Nutrients)
}

func printNutrients(c *cli, nutrients map[string]models.NutrientProgress) {
	tw := newTable(c.out, "NUTRIENT", "CONSUMED", "GOAL", "", "%")
	for _, n := range models.Nutrients {
		p := nutrients[n]
		unit := models.NutrientUnit(n)
		fmt.Fprintf(tw, "%s\t%.1f %s\t%.0f %s\t%s\t%.0f%% %s\n",
			n, p.Consumed, unit, p.Goal, unit, progressBar(p.Percentage, 20), p.Percentage, p.Status())
	}
	tw.Flush()
}

func diaryAddCmd(c *cli) *cobra.Command {
	var (
		date     string
		meal     string
		quantity float64
		custom   bool
	)
	cmd := &cobra.Command{
		Use:   "add <food-id>",
		Short: "Log a food",
		Long: `Logs a catalog food by id. With --custom the id is one of your custom
foods. External search results (spoon_… or usda_… ids) are copied into
the catalog first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.services()
			if err != nil {
				return err
			}
			mealType, err := models.ParseMealType(meal)
			if err != nil {
				return err
			}
			food := models.Food{ID: models.FoodID(args[0])}
			if custom {
				food.Type = string(models.SourceCustom)
			}
			ref, err := svc.Foods.ResolveForEntry(cmd.Context(), food)
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
	cmd.Flags().BoolVar(&custom, "custom", false, "the id refers to a custom food")
	return cmd
}

func printEntry(c *cli, verb string, e *models.Entry) {
	fmt.Fprintf(c.out, "%s #%d %s, %.0fg %s on %s (%.0f cal)\n",
		verb, e.ID, e.Name, e.Quantity, strings.ToLower(e.MealType.Title()), e.Date, e.Calories)
}

func diaryEditCmd(c *cli) *cobra.Command {
	var (
		quantity float64
		meal     string
	)
	cmd := &cobra.Command{
		Use:   "edit <entry-id>",
		Short: "Change an entry's quantity or meal",
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
			var upd models.EntryUpdate
			if cmd.Flags().Changed("quantity") {
				upd.Quantity = &quantity
			}
			if meal != "" {
				if upd.MealType, err = models.ParseMealType(meal); err != nil {
					return err
				}
			}
			entry, err := svc.Entries.Update(cmd.Context(), id, upd)
			if err != nil {
				return err
			}
			printEntry(c, "Updated", entry)
			return nil
		},
	}
	cmd.Flags().Float64VarP(&quantity, "quantity", "q", 0, "new quantity in grams")
	cmd.Flags().StringVarP(&meal, "meal", "m", "", "move to breakfast, lunch, dinner or snacks")
	return cmd
}

func diaryRmCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <entry-id>",
		Aliases: []string{"delete"},
		Short:   "Delete an entry",
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
			if err := svc.Entries.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Deleted entry #%d\n", id)
			return nil
		},
	}
}

func summaryCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Nutrient totals for a day or a week",
	}

	var day string
	dayCmd := &cobra.Command{
		Use:   "day",
		Short: "Totals and goal progress for one day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.services()
			if err != nil {
				return err
			}
			sum, err := svc.Entries.DailySummary(cmd.Context(), day)
			if err != nil {
				return err
			}
			heading(c.out, "Summary for %s", sum.Date)
			printNutrients(c, sum.Nutrients)
			return nil
		},
	}
	addDateFlag(dayCmd, &day)

	var start string
	weekCmd := &cobra.Command{
		Use:   "week",
		Short: "Seven daily totals and averages starting at --date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.services()
			if err != nil {
				return err
			}
			week, err := svc.Entries.WeeklySummary(cmd.Context(), start)
			if err != nil {
				return err
			}
			heading(c.out, "Week %s to %s", week.StartDate, week.EndDate)
			tw := newTable(c.out, "DATE", "CAL", "PROTEIN", "CARBS", "FAT", "FIBER")
			for _, d := range week.Days {
				fmt.Fprintf(tw, "%s", d.Date)
				for _, n := range models.Nutrients {
					fmt.Fprintf(tw, "\t%.1f", d.Nutrients[n].Consumed)
				}
				fmt.Fprintln(tw)
			}
			fmt.Fprintf(tw, "average")
			for _, n := range models.Nutrients {
				fmt.Fprintf(tw, "\t%.1f", week.Averages[n])
			}
			fmt.Fprintln(tw)
			return tw.Flush()
		},
	}
	addDateFlag(weekCmd, &start)

	cmd.AddCommand(dayCmd, weekCmd)
	return cmd
}

func progressCmd(c *cli) *cobra.Command {
	var date string
	var follow bool
	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Sunday-to-Saturday progress for the week containing --date",
		Long: `Loads the seven daily summaries of the week concurrently. Days that fail
to load are shown as missing instead of failing the whole week. With
--follow the view is reloaded whenever entries change, including changes
pushed by the backend from other devices.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.services()
			if err != nil {
				return err
			}
			day, err := models.ParseDate(date)
			if err != nil {
				return err
			}
			load := func() error {
				week, err := svc.Days.LoadWeek(cmd.Context(), day)
				if err != nil {
					return err
				}
				printWeek(c, week)
				return nil
			}
			if err := load(); err != nil {
				return err
			}
			if !follow {
				return nil
			}
			return c.follow(cmd, []services.Topic{services.TopicEntries, services.TopicUser}, load)
		},
	}
	addDateFlag(cmd, &date)
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "keep running and reload on changes")
	return cmd
}

func printWeek(c *cli, week *models.WeekProgress) {
	end := week.Start.AddDate(0, 0, 6)
	heading(c.out, "Week of %s to %s", models.FormatDate(week.Start), models.FormatDate(end))
	tw := newTable(c.out, "DAY", "CALORIES", "", "PROTEIN", "CARBS", "FAT")
	for _, d := range week.Days {
		label := d.Date.Format("Mon 01/02")
		if d.Nutrients == nil {
			fmt.Fprintf(tw, "%s\t%s\t\t\t\t\n", label, dimStyle.Render("unavailable"))
			continue
		}
		cal := d.Nutrients[models.NutrientCalories]
		fmt.Fprintf(tw, "%s\t%.0f / %.0f\t%s\t%.1fg\t%.1fg\t%.1fg\n", label,
			cal.Consumed, cal.Goal, progressBar(cal.Percentage, 14),
			d.Nutrients[models.NutrientProtein].Consumed,
			d.Nutrients[models.NutrientCarbs].Consumed,
			d.Nutrients[models.NutrientFat].Consumed)
	}
	tw.Flush()
	fmt.Fprintf(c.out, "\nAverage %.0f cal/day, %.0f cal total, %d%% of days tracked (as of %s)\n",
		week.Average(models.NutrientCalories), week.Total(models.NutrientCalories),
		week.Compliance(), time.Now().Format("15:04:05"))
}
