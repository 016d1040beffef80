package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"smartcv-backend/internal/shared/telemetry"
	"smartcv-backend/internal/workflow"
)

type cli struct {
	apiURL    string
	storePath string
	outDir    string
	timeout   time.Duration
	verbose   bool

	store   *workflow.Store
	client  *workflow.APIClient
	tracker *workflow.Tracker
}

func main() {
	c := &cli{}
	err := newRootCmd(c).Execute()
	c.tracker.Wait()
	telemetry.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "cvctl",
		Short: "Drive the CV analysis flow from the terminal",
		Long: `cvctl walks through the same three steps as the web form:

  1. form     attach a CV, the target role and an optional job description
  2. preview  review what will be sent
  3. pricing  pick a plan, accept the terms, pay or apply a coupon, process

The form is kept in a local file for one hour between invocations.

Example:
  cvctl form --file cv.pdf --role "Backend Engineer" --jd-file jd.txt
  cvctl next && cvctl next
  cvctl select complete
  cvctl terms accept
  cvctl coupon SAVE10
  cvctl process`,
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return c.setup()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.apiURL, "api", envOr("SMARTCV_API_URL", "http://localhost:5001"), "Base URL of the CV service")
	flags.StringVar(&c.storePath, "store", workflow.DefaultStorePath(), "Path of the saved form")
	flags.StringVar(&c.outDir, "out", ".", "Directory for downloaded reports")
	flags.DurationVar(&c.timeout, "timeout", 3*time.Minute, "Request timeout")
	flags.BoolVar(&c.verbose, "verbose", false, "Log at info level")

	root.AddCommand(
		c.formCmd(),
		c.nextCmd(),
		c.backCmd(),
		c.selectCmd(),
		c.termsCmd(),
		c.couponCmd(),
		c.checkoutCmd(),
		c.verifyCmd(),
		c.processCmd(),
		c.statusCmd(),
		c.resetCmd(),
		c.healthCmd(),
	)
	return root
}

func (c *cli) setup() error {
	level := zap.WarnLevel
	if c.verbose {
		level = zap.InfoLevel
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true
	logger, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	telemetry.SetLogger(logger)

	c.store = workflow.NewStore(c.storePath)
	c.client = workflow.NewAPIClient(c.apiURL, c.timeout)
	if c.tracker == nil {
		c.tracker = workflow.NewTracker(c.client)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
