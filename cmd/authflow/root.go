package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/ruralshare/authflow/domain"
	"github.com/ruralshare/authflow/internal/app"
)

func newRootCmd(container *app.Container) *cobra.Command {
	root := &cobra.Command{
		Use:           "authflow",
		Short:         "RuralShare authentication client",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(
		newSignUpCmd(container),
		newSignInCmd(container),
		newForgotCmd(container),
		newWhoamiCmd(container),
		newLogoutCmd(container),
	)
	return root
}

func newSignUpCmd(container *app.Container) *cobra.Command {
	var (
		name     string
		email    string
		phone    string
		password string
		role     string
		channel  string
	)

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and verify the phone via OTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			flow := container.Flow

			err := flow.SignUp(ctx, domain.SignUpParams{
				Name:     name,
				Email:    email,
				Phone:    phone,
				Password: password,
				Role:     domain.Role(role),
			})
			if err != nil {
				return err
			}
			if ch := domain.Channel(channel); ch != domain.ChannelSMS {
				if err := flow.RequestOTP(ctx, ch); err != nil {
					return err
				}
			}
			return runOTPLoop(ctx, cmd, flow)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "full name")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&password, "password", "", "password")
	cmd.Flags().StringVar(&role, "role", "individual", "account role (individual, SHG, FPO, admin)")
	cmd.Flags().StringVar(&channel, "channel", "sms", "otp channel (sms, whatsapp)")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("phone")
	cmd.MarkFlagRequired("password")
	return cmd
}

func newSignInCmd(container *app.Container) *cobra.Command {
	var (
		identifier string
		password   string
		channel    string
	)

	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in with email or phone plus password",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			flow := container.Flow

			if err := flow.SignIn(ctx, identifier, password); err != nil {
				return err
			}
			if flow.Phase() == domain.PhaseAuthenticated {
				printSession(cmd, flow.Session())
				return nil
			}
			if ch := domain.Channel(channel); ch != domain.ChannelSMS {
				if err := flow.RequestOTP(ctx, ch); err != nil {
					return err
				}
			}
			return runOTPLoop(ctx, cmd, flow)
		},
	}

	cmd.Flags().StringVar(&identifier, "id", "", "email or phone")
	cmd.Flags().StringVar(&password, "password", "", "password")
	cmd.Flags().StringVar(&channel, "channel", "sms", "otp channel (sms, whatsapp)")
	cmd.MarkFlagRequired("id")
	cmd.MarkFlagRequired("password")
	return cmd
}

func newForgotCmd(container *app.Container) *cobra.Command {
	var (
		phone   string
		channel string
	)

	cmd := &cobra.Command{
		Use:   "forgot",
		Short: "Recover access to an account by proving phone possession",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			flow := container.Flow

			if err := flow.StartForgotPassword(ctx, phone); err != nil {
				return err
			}
			if ch := domain.Channel(channel); ch != domain.ChannelSMS {
				if err := flow.RequestOTP(ctx, ch); err != nil {
					return err
				}
			}
			return runOTPLoop(ctx, cmd, flow)
		},
	}

	cmd.Flags().StringVar(&phone, "phone", "", "registered phone number")
	cmd.Flags().StringVar(&channel, "channel", "sms", "otp channel (sms, whatsapp)")
	cmd.MarkFlagRequired("phone")
	return cmd
}

func newWhoamiCmd(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			flow := container.Flow
			if err := flow.Restore(context.Background()); err != nil {
				return err
			}
			sess := flow.Session()
			if sess == nil {
				cmd.Println("not signed in")
				return nil
			}
			printSession(cmd, sess)
			return nil
		},
	}
}

func newLogoutCmd(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and clear the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			flow := container.Flow
			// Restore first so there is a session to log out of.
			_ = flow.Restore(ctx)
			if err := flow.Logout(ctx); err != nil {
				return err
			}
			cmd.Println("signed out")
			return nil
		},
	}
}

func printSession(cmd *cobra.Command, sess *domain.Session) {
	if sess == nil {
		return
	}
	cmd.Printf("signed in as %s <%s> (%s, role=%s, kyc=%s)\n",
		sess.Name, sess.Email, sess.Phone, sess.Role, sess.KYCStatus)
	if !sess.ExpiresAt.IsZero() {
		cmd.Printf("session expires %s\n", sess.ExpiresAt.Format("2006-01-02 15:04:05"))
	}
}
