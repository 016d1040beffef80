package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"smartcv-backend/internal/workflow"
)

// load returns the saved form, or a fresh one. A fresh form counts as a page view.
func (c *cli) load() workflow.State {
	s, ok := c.store.Load()
	if !ok {
		c.tracker.PageView()
	}
	return s
}

// commit saves s and turns a state error into a command error.
func (c *cli) commit(s workflow.State) error {
	if err := c.store.Save(s); err != nil {
		return fmt.Errorf("save form: %w", err)
	}
	if s.Error != "" {
		return errors.New(s.Error)
	}
	return nil
}

func (c *cli) formCmd() *cobra.Command {
	var file, role, jd, jdFile string
	cmd := &cobra.Command{
		Use:   "form",
		Short: "Set the CV file, role and job description",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := c.load()
			if cmd.Flags().Changed("file") {
				data, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("read CV: %w", err)
				}
				name := filepath.Base(file)
				s = s.SetCVFile(&workflow.File{Name: name, ContentType: workflow.ContentTypeFor(name), Data: data})
				if s.Error != "" {
					return c.commit(s)
				}
			}
			if cmd.Flags().Changed("role") {
				s = s.SetRole(role)
			}
			if cmd.Flags().Changed("jd-file") {
				raw, err := os.ReadFile(jdFile)
				if err != nil {
					return fmt.Errorf("read job description: %w", err)
				}
				jd = string(raw)
				s = s.SetJobDescription(jd)
			} else if cmd.Flags().Changed("jd") {
				s = s.SetJobDescription(jd)
			}
			printStatus(cmd.OutOrStdout(), s)
			return c.commit(s)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "CV file (PDF or DOCX, max 10MB)")
	cmd.Flags().StringVar(&role, "role", "", "Target role")
	cmd.Flags().StringVar(&jd, "jd", "", "Job description text")
	cmd.Flags().StringVar(&jdFile, "jd-file", "", "Read the job description from a file")
	return cmd
}

func (c *cli) nextCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "next",
		Short: "Advance to the next step",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := c.load()
			from := s.Step
			s = s.Next()
			switch {
			case from == workflow.StepForm && s.Step == workflow.StepPreview:
				c.tracker.Step1Success(s)
			case from == workflow.StepPreview && s.Step == workflow.StepPricing:
				c.tracker.Step2Start(s)
			}
			printStatus(cmd.OutOrStdout(), s)
			return c.commit(s)
		},
	}
}

func (c *cli) backCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "back",
		Short: "Go back one step",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := c.load().Previous()
			printStatus(cmd.OutOrStdout(), s)
			return c.commit(s)
		},
	}
}

func (c *cli) selectCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "select <analysis|improved|complete>",
		Short:     "Choose a service option",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{workflow.OptionAnalysis, workflow.OptionImproved, workflow.OptionComplete},
		RunE: func(cmd *cobra.Command, args []string) error {
			option := strings.ToLower(strings.TrimSpace(args[0]))
			if _, ok := workflow.Endpoint(option); !ok {
				return errors.New(workflow.MsgInvalidOption)
			}
			s := c.load().SelectOption(option)
			out := cmd.OutOrStdout()
			if option == workflow.OptionAnalysis {
				s = s.ShowUpsellModal()
				extra := workflow.PlanPrices[workflow.OptionComplete] - workflow.PlanPrices[workflow.OptionAnalysis]
				fmt.Fprintf(out, "Tip: the complete package adds an improved CV in two templates for $%.2f more (cvctl select complete).\n", extra)
				s = s.HideUpsell()
			}
			printStatus(out, s)
			return c.commit(s)
		},
	}
}

func (c *cli) termsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "terms <accept|decline|show>",
		Short: "Accept or decline the terms of service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := c.load()
			switch args[0] {
			case "accept":
				s = s.SetTermsAccepted(true)
			case "decline":
				s = s.SetTermsAccepted(false)
			case "show":
				s = s.OpenTerms()
				fmt.Fprintln(cmd.OutOrStdout(), termsText)
				s = s.HideTerms()
			default:
				return fmt.Errorf("unknown terms action %q", args[0])
			}
			printStatus(cmd.OutOrStdout(), s)
			return c.commit(s)
		},
	}
}

func (c *cli) couponCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "coupon <code>",
		Short: "Apply a coupon code instead of paying",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := strings.TrimSpace(args[0])
			if code == "" {
				return errors.New(workflow.MsgCouponRequired)
			}
			s := c.load()
			res, err := c.client.ValidateCoupon(cmd.Context(), code)
			if err != nil {
				return c.commit(s.SetError(workflow.UserMessage(err)))
			}
			msg := ""
			if !res.Valid {
				msg = res.Message
			}
			s = s.ApplyCoupon(code, res.Valid, msg)
			if res.Valid {
				c.tracker.Track("coupon_applied", map[string]any{"couponCode": s.CouponCode})
				fmt.Fprintln(cmd.OutOrStdout(), res.Message)
			}
			return c.commit(s)
		},
	}
}

func (c *cli) checkoutCmd() *cobra.Command {
	var email string
	var embedded bool
	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Open a checkout session for the selected option",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := c.load()
			if s.SelectedOption == "" {
				return c.commit(s.SetError(workflow.MsgSelectOption))
			}
			if !s.TermsAccepted {
				return c.commit(s.SetError(workflow.MsgAcceptTerms))
			}
			if cmd.Flags().Changed("email") {
				s = s.SetCustomerEmail(email)
			}
			if s.CustomerEmail == "" {
				return c.commit(s.SetError(workflow.MsgEmailRequired))
			}

			session, err := c.client.CreateCheckoutSession(cmd.Context(), workflow.CheckoutRequest{
				ServiceOption: s.SelectedOption,
				CustomerEmail: s.CustomerEmail,
				Embedded:      embedded,
				Metadata: map[string]any{
					"role":             s.Role,
					"analyticsSession": c.tracker.SessionID(),
				},
			})
			if err != nil {
				return c.commit(s.SetError(workflow.UserMessage(err)))
			}
			s = s.StartCheckout(session.SessionID, session.PaymentMode)
			c.tracker.PaymentInitiated(s, workflow.PlanPrices[s.SelectedOption])

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Checkout session %s (%s mode)\n", session.SessionID, session.PaymentMode)
			if session.URL != "" {
				fmt.Fprintf(out, "Pay at: %s\n", session.URL)
			}
			fmt.Fprintln(out, "Then run: cvctl verify")
			return c.commit(s)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Receipt email")
	cmd.Flags().BoolVar(&embedded, "embedded", false, "Request an embedded session (client secret instead of a hosted URL)")
	return cmd
}

func (c *cli) verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check whether the checkout session has been paid",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := c.load()
			if s.CheckoutSessionID == "" {
				return c.commit(s.SetError(workflow.MsgSessionRequired))
			}
			v, err := c.client.VerifySession(cmd.Context(), s.CheckoutSessionID)
			if err != nil {
				return c.commit(s.SetError(workflow.UserMessage(err)))
			}
			s = s.MarkPaid(v.Paid)
			if !v.Paid {
				return c.commit(s.SetError(workflow.MsgPaymentIncomplete))
			}
			option := s.SelectedOption
			if opt := v.Metadata["serviceOption"]; opt != "" {
				option = opt
			}
			c.tracker.PaymentSuccess(s.CheckoutSessionID, option, workflow.PlanPrices[option])
			fmt.Fprintf(cmd.OutOrStdout(), "Payment confirmed (%s mode). Run: cvctl process\n", v.PaymentMode)
			return c.commit(s)
		},
	}
}

func (c *cli) processCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "process",
		Short: "Send the CV for processing and save the result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := c.load()
			if !s.Unlocked() {
				return c.commit(s.SetError(workflow.MsgPaymentRequired))
			}
			runner := &workflow.Runner{API: c.client, OutDir: c.outDir}
			s = runner.ProcessCV(cmd.Context(), s)
			if s.Error != "" {
				return c.commit(s)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", s.LastDownload)
			return c.commit(s.ResetAfterSuccess())
		},
	}
}

func (c *cli) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the saved form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, _ := c.store.Load()
			printStatus(cmd.OutOrStdout(), s)
			return nil
		},
	}
}

func (c *cli) resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Discard the saved form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c.store.Clear()
			fmt.Fprintln(cmd.OutOrStdout(), "Form cleared")
			return nil
		},
	}
}

func (c *cli) healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Ping the CV service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			status, err := c.client.Health(cmd.Context())
			if err != nil {
				return fmt.Errorf("health check: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), status)
			return nil
		},
	}
}

func printStatus(w io.Writer, s workflow.State) {
	fmt.Fprintf(w, "Step %d/3: %s\n", s.Step, s.Step)
	file := "-"
	if s.CVFile != nil {
		file = fmt.Sprintf("%s (%d bytes)", s.CVFile.Name, s.CVFile.Size())
	}
	fmt.Fprintf(w, "  CV file:         %s\n", file)
	fmt.Fprintf(w, "  Role:            %s\n", orDash(s.Role))
	fmt.Fprintf(w, "  Job description: %s\n", orDash(truncate(s.JobDescription, 60)))
	if s.Step == workflow.StepPricing {
		fmt.Fprintf(w, "  Option:          %s\n", orDash(s.SelectedOption))
		fmt.Fprintf(w, "  Terms accepted:  %t\n", s.TermsAccepted)
		fmt.Fprintf(w, "  Unlocked:        %t\n", s.Unlocked())
	}
	if s.LastDownload != "" {
		fmt.Fprintf(w, "  Last download:   %s\n", s.LastDownload)
	}
	if s.Error != "" {
		fmt.Fprintf(w, "  Error:           %s\n", s.Error)
	}
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

const termsText = `Terms of service

Uploaded CVs are processed only to produce the purchased report and are
deleted from the server once the response is sent. Reports are generated
by a language model and may contain mistakes; review them before use.
Payments are final once a report has been delivered.`
