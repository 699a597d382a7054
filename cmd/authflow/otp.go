package main

import (
	"bufio"
	"context"
	"errors"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ruralshare/authflow/domain"
)

// runOTPLoop prompts for the code until the flow either authenticates or the
// user gives up. "resend" requests a fresh code; an empty line submits any
// auto-read code the channel already delivered.
func runOTPLoop(ctx context.Context, cmd *cobra.Command, flow domain.AuthFlow) error {
	reader := bufio.NewReader(os.Stdin)

	for flow.Phase() != domain.PhaseAuthenticated {
		if buf := flow.CodeBuffer(); buf != "" {
			cmd.Printf("code %s received automatically, press enter to submit\n", buf)
		}
		cmd.Print("enter otp (or 'resend' / 'quit'): ")

		line, err := reader.ReadString('\n')
		if err != nil {
			return err
		}
		input := strings.TrimSpace(line)

		switch input {
		case "quit":
			return errors.New("aborted")
		case "resend":
			if err := flow.ResendOTP(ctx); err != nil {
				cmd.PrintErrln(err)
			} else {
				cmd.Println("a new code is on its way")
			}
			continue
		case "":
			input = flow.CodeBuffer()
			if input == "" {
				continue
			}
		}

		if err := flow.VerifyOTP(ctx, input); err != nil {
			cmd.PrintErrln(err)
			if !recoverable(err) {
				return err
			}
			continue
		}
	}

	printSession(cmd, flow.Session())
	return nil
}

// recoverable reports whether the user can fix the failure by typing again.
func recoverable(err error) bool {
	switch domain.CategoryOf(err) {
	case domain.CategoryValidation, domain.CategoryVerification, domain.CategoryDelivery:
		return true
	}
	return false
}
