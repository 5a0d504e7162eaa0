package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/praetorian-inc/msinfo/internal/config"
	"github.com/praetorian-inc/msinfo/internal/logs"
	"github.com/praetorian-inc/msinfo/internal/message"
	outputproviders "github.com/praetorian-inc/msinfo/internal/output_providers"
	"github.com/praetorian-inc/msinfo/pkg/browse"
	"github.com/praetorian-inc/msinfo/pkg/catalog"
	"github.com/praetorian-inc/msinfo/pkg/session"
	"github.com/praetorian-inc/msinfo/pkg/types"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  = slog.Default()
	logFile io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "msinfo",
	Short: "msinfo browses Microsoft first-party applications and Microsoft Graph permissions.",
	Long: `msinfo browses the published catalog of Microsoft first-party applications
and Microsoft Graph application and delegated permissions. After an explicit
sign-in it can augment permissions with live tenant metadata and find the
registered applications that request them.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := run(); err != nil {
		message.Error("%v", err)
		os.Exit(1)
	}
}

// run executes the command tree and releases the log file whether or not
// the command failed.
func run() error {
	defer closeLog()
	return rootCmd.Execute()
}

func closeLog() {
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.msinfo.yaml)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-file", "", "also write JSON logs to this file")
	flags.StringP("format", "f", outputproviders.FormatTable, fmt.Sprintf("output format (%s)", strings.Join(outputproviders.Formats, ", ")))
	flags.String("jq", "", "jq expression applied to JSON output")
	flags.StringP("output", "o", "", "write results to this file instead of stdout")
	flags.BoolP("quiet", "q", false, "suppress informational messages")
	flags.Bool("no-color", false, "disable colored messages")
	flags.String("tenant", "", "tenant used for sign-in (default organizations)")
	flags.String("client-id", "", "public client application id used for sign-in")
	flags.String("auth-flow", "", "sign-in flow (browser, device_code)")

	viper.BindPFlag("log.level", flags.Lookup("log-level"))
	viper.BindPFlag("log.file", flags.Lookup("log-file"))
	viper.BindPFlag("auth.tenant_id", flags.Lookup("tenant"))
	viper.BindPFlag("auth.client_id", flags.Lookup("client-id"))
	viper.BindPFlag("auth.flow", flags.Lookup("auth-flow"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".msinfo")
	}

	viper.SetEnvPrefix("MSINFO")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func setup(cmd *cobra.Command, args []string) error {
	quiet, _ := cmd.Flags().GetBool("quiet")
	noColor, _ := cmd.Flags().GetBool("no-color")
	message.SetQuiet(quiet)
	if noColor {
		message.SetNoColor(true)
	}

	var err error
	if cfg, err = config.Load(viper.GetViper()); err != nil {
		return err
	}

	level, err := logs.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	if cfg.Log.File != "" {
		logger, logFile, err = logs.FileLogger(level, cfg.Log.File)
		if err != nil {
			return err
		}
	} else {
		logger = logs.ConsoleLogger(level)
	}
	return nil
}

func newCatalog() *catalog.Catalog {
	// azcore treats zero as "use the default"; -1 disables retries.
	retries := int32(cfg.Data.Retries)
	if retries == 0 {
		retries = -1
	}
	fetcher := catalog.NewFetcher(&catalog.FetcherOptions{
		Retry:   policy.RetryOptions{MaxRetries: retries},
		Timeout: cfg.Data.Timeout,
		Logger:  logger,
	})
	return catalog.New(fetcher, cfg.Data.Endpoints())
}

func newSession() *session.Manager {
	opts := cfg.Auth.SessionOptions()
	opts.Logger = logger
	return session.New(opts)
}

// newService wires a page service to a fresh session. The session starts
// signed out; commands sign in explicitly.
func newService() (*browse.Service, *session.Manager) {
	mgr := newSession()
	return browse.NewService(newCatalog(), mgr, logger), mgr
}

func signIn(ctx context.Context, mgr *session.Manager) error {
	message.Info("Signing in to Microsoft Entra ID")
	acct, err := mgr.SignIn(ctx)
	if err != nil {
		return err
	}
	message.Success("Signed in as %s", acct.Username)
	return nil
}

// maybeSignIn honours --sign-in. A failed optional sign-in falls back to
// static data.
func maybeSignIn(cmd *cobra.Command, mgr *session.Manager) {
	if ok, _ := cmd.Flags().GetBool("sign-in"); !ok {
		return
	}
	if err := signIn(cmd.Context(), mgr); err != nil {
		message.Warning("%v; continuing with published data only", err)
	}
}

func addSignInFlag(cmd *cobra.Command) {
	cmd.Flags().Bool("sign-in", false, "sign in to augment results with live Microsoft Graph data")
}

// load runs one page load and reports its banner on failure.
func load[T any](ctx context.Context, route string, empty T, fn func(context.Context) (T, error)) (T, error) {
	page := browse.NewPage(empty)
	v, err := page.Load(ctx, route, fn)
	if _, banner, _ := page.Snapshot(); banner != "" {
		message.Error("Failed to load %s: %s", route, banner)
	}
	return v, err
}

// notFound points the user at the listing command for a missing record.
func notFound(err error, listCmd string) error {
	if errors.Is(err, browse.ErrNotFound) {
		return fmt.Errorf("%w; run `msinfo %s` to browse", err, listCmd)
	}
	return err
}

func render(cmd *cobra.Command, results ...types.Result) error {
	format, _ := cmd.Flags().GetString("format")
	query, _ := cmd.Flags().GetString("jq")
	path, _ := cmd.Flags().GetString("output")

	w := cmd.OutOrStdout()
	if path != "" {
		f, err := outputproviders.OpenOutput(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	provider, err := outputproviders.New(format, w, query)
	if err != nil {
		return err
	}
	for _, result := range results {
		if err := provider.Write(result); err != nil {
			return err
		}
	}
	if path != "" {
		message.Success("Output written to %s", path)
	}
	return nil
}
