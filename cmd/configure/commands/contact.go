package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/benvon/portfolio/internal/formguard"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// DefaultContactEndpoint is the contact route of a locally running server.
const DefaultContactEndpoint = "http://localhost:8080/api/v1/contact"

// contactFlags are the form inputs shared by check and send.
type contactFlags struct {
	name    string
	email   string
	message string
}

func (f *contactFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "Sender name")
	cmd.Flags().StringVar(&f.email, "email", "", "Sender email")
	cmd.Flags().StringVar(&f.message, "message", "", "Message body")
}

func (f *contactFlags) fields() formguard.Fields {
	return formguard.Fields{Name: f.name, Email: f.email, Message: f.message}
}

// NewContactCmd creates the contact command with check and send subcommands.
func NewContactCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contact",
		Short: "Exercise the contact form guard",
		Long:  "Check a submission against the contact form rules, or send it to a running server.",
	}
	cmd.AddCommand(newContactCheckCmd())
	cmd.AddCommand(newContactSendCmd())
	return cmd
}

func newContactCheckCmd() *cobra.Command {
	var flags contactFlags
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate a submission locally",
		Long:  "Sanitise and validate name, email and message exactly as the server does. Exits non-zero on rejection.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return checkContact(cmd.OutOrStdout(), flags.fields())
		},
	}
	flags.register(cmd)
	return cmd
}

func newContactSendCmd() *cobra.Command {
	var flags contactFlags
	var endpoint string
	var simulate bool
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Submit a message through the contact form",
		Long:  "Drive the contact form: validate locally, then POST to --endpoint (or pretend to with --simulate).",
		RunE: func(cmd *cobra.Command, args []string) error {
			var submitter formguard.Submitter
			if simulate {
				submitter = formguard.SimulatedSubmitter{Delay: formguard.DefaultSimulatedDelay}
			} else {
				submitter = formguard.NewHTTPSubmitter(endpoint)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			return sendContact(ctx, cmd.OutOrStdout(), formguard.NewForm(submitter), flags.fields())
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&endpoint, "endpoint", DefaultContactEndpoint, "Contact endpoint URL")
	cmd.Flags().BoolVar(&simulate, "simulate", false, "Simulate delivery instead of contacting a server")
	cmd.Flags().DurationVar(&timeout, "timeout", 15*time.Second, "Overall submission timeout")
	return cmd
}

// checkContact prints a per-field verdict and returns formguard.ErrRejected if any field fails.
func checkContact(w io.Writer, in formguard.Fields) error {
	clean, outcome := formguard.Check(in)
	renderFieldResults(w, clean, outcome.Errors)
	if !outcome.Accepted {
		return formguard.ErrRejected
	}
	fmt.Fprintln(w, "Submission accepted.")
	return nil
}

// sendContact fills form with in and submits it, reporting the form's final state.
func sendContact(ctx context.Context, w io.Writer, form *formguard.Form, in formguard.Fields) error {
	inputs := []struct {
		field formguard.Field
		value string
	}{
		{formguard.FieldName, in.Name},
		{formguard.FieldEmail, in.Email},
		{formguard.FieldMessage, in.Message},
	}
	for _, input := range inputs {
		if !form.Input(input.field, input.value) {
			return fmt.Errorf("%s is longer than %d characters", input.field, formguard.MaxLength(input.field))
		}
	}

	outcome, err := form.Submit(ctx)
	switch {
	case errors.Is(err, formguard.ErrRejected):
		renderFieldResults(w, in.Sanitized(), outcome.Errors)
		return err
	case err != nil:
		var serr *formguard.ServerError
		if errors.As(err, &serr) {
			if len(serr.Fields) > 0 {
				renderFieldResults(w, in.Sanitized(), serr.Fields)
			}
			if serr.RetryAfter > 0 {
				fmt.Fprintf(w, "Server asked to retry after %s.\n", serr.RetryAfter)
			}
		}
		fmt.Fprintf(w, "Form state: %s\n", form.State())
		return err
	}

	fmt.Fprintf(w, "Form state: %s\n", form.State())
	fmt.Fprintln(w, "Message sent.")
	return nil
}

// renderFieldResults prints one row per field with its sanitised length and verdict.
func renderFieldResults(w io.Writer, clean formguard.Fields, errs formguard.Errors) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Field", "Length", "Limit", "Result"})
	for _, field := range []formguard.Field{formguard.FieldName, formguard.FieldEmail, formguard.FieldMessage} {
		result := "ok"
		if msg, failed := errs[field]; failed {
			result = msg
		}
		t.AppendRow(table.Row{field, len([]rune(clean.Get(field))), formguard.MaxLength(field), result})
	}
	t.Render()
}
