package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"
	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"github.com/Zachkp/portfolio/internal/form"
	"github.com/Zachkp/portfolio/internal/submission"
)

// errNotSent marks a contact command whose outcome was already shown to the user.
var errNotSent = errors.New("message not sent")

func newContactCmd() *cobra.Command {
	var (
		fields   form.Fields
		endpoint string
		lang     string
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "contact",
		Short: "Send a message through the contact form",
		Long: `Send a message through the portfolio contact form.
The fields are validated locally before anything is sent.

Example:
  portfolio contact --name "Ana" --email ana@example.com --message "Let's talk about a project"
  portfolio contact --lang pt --endpoint https://zach.dev/api/messages ...`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text := contactCopy(lang)
			out := cmd.OutOrStdout()

			f := form.NewForm(form.NewClient(endpoint, nil))
			f.Set(fields)

			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			s := spinner.New(spinner.CharSets[14], 120*time.Millisecond, spinner.WithWriter(cmd.ErrOrStderr()))
			s.Suffix = " " + text.Sending
			s.Start()
			outcome, err := f.Submit(ctx)
			s.Stop()
			if err != nil {
				return err
			}

			renderOutcome(out, text, outcome)
			if outcome.Kind != form.OutcomeSent {
				return errNotSent
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&fields.Name, "name", "", "Your name")
	cmd.Flags().StringVar(&fields.Email, "email", "", "Your email address")
	cmd.Flags().StringVar(&fields.Message, "message", "", "Your message")
	cmd.Flags().StringVar(&endpoint, "endpoint", form.DefaultEndpoint, "Contact endpoint URL")
	cmd.Flags().StringVar(&lang, "lang", "en", "Language of the notifications (en, pt)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Give up after this long (0 uses the client default)")

	return cmd
}

// renderOutcome prints the single notification for a submit.
func renderOutcome(w io.Writer, text ContactCopy, outcome form.Outcome) {
	switch outcome.Kind {
	case form.OutcomeSent:
		fmt.Fprintln(w, color.Green.Sprint(text.Success))
	case form.OutcomeInvalid:
		for _, field := range []string{submission.FieldName, submission.FieldEmail, submission.FieldMessage} {
			if reason, ok := outcome.FieldErrors[field]; ok {
				fmt.Fprintf(w, "%s: %s\n", text.label(field), color.Red.Sprint(reason))
			}
		}
	case form.OutcomeRejected:
		fmt.Fprintln(w, color.Yellow.Sprint(outcome.Message))
	default:
		fmt.Fprintln(w, color.Red.Sprint(text.Error))
	}
}
