package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"nourish/models"
)

func loginCmd(c *cli) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.services()
			if err != nil {
				return err
			}
			resp, err := svc.Auth.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			name := email
			if resp.User != nil {
				name = resp.User.DisplayName()
			}
			fmt.Fprintf(c.out, "Logged in as %s\n", name)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func registerCmd(c *cli) *cobra.Command {
	var req models.RegisterRequest
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.services()
			if err != nil {
				return err
			}
			if req.ConfirmPassword == "" {
				req.ConfirmPassword = req.Password
			}
			resp, err := svc.Auth.Register(cmd.Context(), req)
			if err != nil {
				return err
			}
			name := req.Name
			if resp.User != nil {
				name = resp.User.DisplayName()
			}
			fmt.Fprintf(c.out, "Welcome, %s! Your account is ready.\n", name)
			return nil
		},
	}
	cmd.Flags().StringVarP(&req.Email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&req.Name, "name", "n", "", "display name")
	cmd.Flags().StringVarP(&req.Password, "password", "p", "", "password (at least 8 characters)")
	cmd.Flags().StringVar(&req.ConfirmPassword, "confirm", "", "password confirmation (defaults to --password)")
	return cmd
}

func logoutCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.services()
			if err != nil {
				return err
			}
			if err := svc.Auth.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(c.out, "Logged out")
			return nil
		},
	}
}

func whoamiCmd(c *cli) *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user and their goals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.services()
			if err != nil {
				return err
			}
			if !svc.Auth.IsAuthenticated() {
				fmt.Fprintln(c.out, "Not logged in")
				return nil
			}
			if refresh {
				if _, err := svc.Auth.Refresh(cmd.Context()); err != nil {
					return err
				}
			}
			user, err := svc.Users.Profile(cmd.Context())
			if err != nil {
				return err
			}
			heading(c.out, "%s <%s>", user.DisplayName(), user.Email)
			if claims, err := svc.Auth.Claims(); err == nil && claims.ExpiresAt != nil {
				fmt.Fprintln(c.out, dimStyle.Render("token expires "+claims.ExpiresAt.Local().Format("2006-01-02 15:04")))
			}
			printGoals(c, user.Goals)
			return nil
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "exchange the refresh token for a new access token first")
	return cmd
}

func printGoals(c *cli, g models.Goals) {
	tw := newTable(c.out, "NUTRIENT", "DAILY GOAL")
	for _, n := range models.Nutrients {
		fmt.Fprintf(tw, "%s\t%.0f %s\n", n, g.Target(n), models.NutrientUnit(n))
	}
	tw.Flush()
}

func goalsCmd(c *cli) *cobra.Command {
	var goals models.Goals
	cmd := &cobra.Command{
		Use:   "goals",
		Short: "Show or update daily nutrient goals",
		Long: `Without flags, prints the current goals. With any flag, updates them;
unset flags keep their current value. A mismatch between macro calories and
the calorie goal is reported as a warning but does not block the update.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.services()
			if err != nil {
				return err
			}
			user, err := svc.Users.Profile(cmd.Context())
			if err != nil {
				return err
			}
			next := user.Goals
			changed := false
			for name, dst := range map[string]*float64{
				"calories": &next.DailyCalories,
				"protein":  &next.DailyProtein,
				"carbs":    &next.DailyCarbs,
				"fat":      &next.DailyFat,
				"fiber":    &next.DailyFiber,
			} {
				if cmd.Flags().Changed(name) {
					*dst, _ = cmd.Flags().GetFloat64(name)
					changed = true
				}
			}
			if !changed {
				printGoals(c, user.Goals)
				return nil
			}

			updated, warning, err := svc.Users.UpdateGoals(cmd.Context(), next)
			if err != nil {
				return err
			}
			if warning != nil {
				fmt.Fprintln(c.out, warnStyle.Render("Warning: "+warning.Error()))
			}
			fmt.Fprintln(c.out, "Goals updated")
			printGoals(c, updated.Goals)
			return nil
		},
	}
	cmd.Flags().Float64Var(&goals.DailyCalories, "calories", 0, "daily calories (1200-5000)")
	cmd.Flags().Float64Var(&goals.DailyProtein, "protein", 0, "daily protein in grams")
	cmd.Flags().Float64Var(&goals.DailyCarbs, "carbs", 0, "daily carbs in grams")
	cmd.Flags().Float64Var(&goals.DailyFat, "fat", 0, "daily fat in grams")
	cmd.Flags().Float64Var(&goals.DailyFiber, "fiber", 0, "daily fiber in grams")
	return cmd
}

func passwordCmd(c *cli) *cobra.Command {
	var oldPassword, newPassword string
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Change the account password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.services()
			if err != nil {
				return err
			}
			if err := svc.Users.ChangePassword(cmd.Context(), oldPassword, newPassword); err != nil {
				return err
			}
			fmt.Fprintln(c.out, "Password changed")
			return nil
		},
	}
	cmd.Flags().StringVar(&oldPassword, "old", "", "current password")
	cmd.Flags().StringVar(&newPassword, "new", "", "new password (at least 8 characters)")
	return cmd
}
