package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/pkarlsson/appreceipts/pkg/api"
	"github.com/pkarlsson/appreceipts/pkg/catalog"
	"github.com/pkarlsson/appreceipts/pkg/client"
	"github.com/pkarlsson/appreceipts/pkg/config"
	"github.com/pkarlsson/appreceipts/pkg/pipeline"
	"github.com/pkarlsson/appreceipts/pkg/report"
	"github.com/pkarlsson/appreceipts/pkg/source/dirsource"
	"github.com/pkarlsson/appreceipts/pkg/source/imapmail"
	"github.com/pkarlsson/appreceipts/pkg/source/mboxsource"
)

var flags struct {
	username   string
	password   string
	host       string
	port       int
	ssl        bool
	mailbox    string
	directory  string
	mboxFile   string
	oauth      bool
	list       string
	configPath string
}

var rootCmd = &cobra.Command{
	Use:   "appreceipts",
	Short: "Statistics over iTunes Store receipt emails",
	Long: `appreceipts fetches iTunes Store purchase receipts from an IMAP
account (or a local directory / mbox archive of saved messages), extracts
every purchased item, and prints listings, spend totals and purchase-day
statistics.

Example:
  appreceipts -u example@gmail.com -l free_apps,paid_music`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	f := rootCmd.Flags()
	f.StringVarP(&flags.username, "username", "u", "", "IMAP username")
	f.StringVar(&flags.password, "password", "", "IMAP password (prompted when empty)")
	f.StringVar(&flags.host, "host", "", "IMAP host (default imap.gmail.com)")
	f.IntVar(&flags.port, "port", 0, "IMAP port (default 993)")
	f.BoolVar(&flags.ssl, "ssl", true, "use SSL")
	f.StringVarP(&flags.mailbox, "mailbox", "m", "", "mailbox to search (default \"[Gmail]/All Mail\")")
	f.StringVarP(&flags.directory, "directory", "d", "", "read files in a directory as mails (mainly for testing)")
	f.StringVar(&flags.mboxFile, "mbox", "", "read mails from an mbox archive")
	f.BoolVar(&flags.oauth, "oauth", false, "authenticate with Google OAuth2 instead of a password")
	f.StringVarP(&flags.list, "list", "l", "all", "listings to print (all, free, paid, free_apps, free_music, paid_apps, paid_music)")
	f.StringVar(&flags.configPath, "config", "config.json", "path to JSON config file")
}

func run(cmd *cobra.Command, args []string) error {
	logger := slog.Default()

	opts, err := parseListOption(flags.list)
	if err != nil {
		return err
	}

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return err
	}

	src, err := buildSource(cmd, cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	cat := catalog.New()
	res, err := pipeline.Run(ctx, src, cat, logger)
	if err != nil {
		if errors.Is(err, pipeline.ErrNoData) {
			fmt.Fprintln(os.Stderr, "No data could be found")
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		return err
	}

	report.New(os.Stdout).Render(cat.Items(), opts, res.Skipped)
	return nil
}

// buildSource picks the message source: a directory, an mbox archive, or
// the IMAP account.
func buildSource(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) (api.Source, error) {
	if flags.directory != "" {
		return dirsource.New(flags.directory, logger.With("component", "dir_source")), nil
	}
	if flags.mboxFile != "" {
		return mboxsource.New(flags.mboxFile, logger.With("component", "mbox_source")), nil
	}

	opts := imapmail.Options{
		Host:     firstOf(flags.host, cfg.Host),
		Port:     flags.port,
		SSL:      flags.ssl,
		Username: firstOf(flags.username, cfg.Username),
		Password: firstOf(flags.password, cfg.Password),
		Mailbox:  firstOf(flags.mailbox, cfg.Mailbox),
		Prompt:   promptMailbox,
		Logger:   logger.With("component", "imap_source"),
	}
	if opts.Port == 0 {
		opts.Port = cfg.Port
	}

	if opts.Username == "" {
		opts.Username = promptLine("Enter username (e.g example@gmail.com):")
		if opts.Username == "" {
			return nil, errors.New("a username is required")
		}
	}

	if flags.oauth {
		ts, err := client.TokenSource(config.ClientSecretFile)
		if err != nil {
			return nil, fmt.Errorf("setting up oauth: %w", err)
		}
		opts.TokenSource = ts
	} else if opts.Password == "" {
		opts.Password = promptPassword()
	}

	return imapmail.New(opts), nil
}

// parseListOption translates the --list value into report options.
func parseListOption(value string) (report.Options, error) {
	var opts report.Options
	for _, v := range strings.Split(value, ",") {
		switch strings.TrimSpace(v) {
		case "all":
			opts = report.AllOptions()
		case "free":
			opts.FreeApps = true
			opts.FreeMusic = true
		case "paid":
			opts.PaidApps = true
			opts.PaidMusic = true
		case "free_apps":
			opts.FreeApps = true
		case "paid_apps":
			opts.PaidApps = true
		case "free_music":
			opts.FreeMusic = true
		case "paid_music":
			opts.PaidMusic = true
		default:
			return opts, fmt.Errorf("invalid --list argument: %s", v)
		}
	}
	return opts, nil
}

func promptLine(question string) string {
	fmt.Println(question)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return ""
	}
	return strings.TrimSpace(line)
}

// promptPassword asks for the password without echoing, falling back to
// plain text when stdin is not a terminal.
func promptPassword() string {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Print("Password: ")
		pw, err := term.ReadPassword(fd)
		fmt.Println()
		if err == nil {
			return string(pw)
		}
		fmt.Println("Failed to ask for masked password. Trying clear text")
	}
	fmt.Println("Enter password (caution, will be visible!)")
	return promptLine("")
}

// promptMailbox is the bounded mailbox retry callback for the IMAP source.
func promptMailbox(reason string) (string, bool) {
	fmt.Println(reason)
	name := promptLine("Enter mailbox name:")
	return name, name != ""
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
