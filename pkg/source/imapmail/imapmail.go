// Package imapmail implements a Source that fetches iTunes Store receipt
// emails from an IMAP mailbox.
package imapmail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/avast/retry-go"
	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"golang.org/x/oauth2"

	"github.com/pkarlsson/appreceipts/pkg/api"
)

// Receipt emails are identified by sender and subject.
const (
	ReceiptSender  = "do_not_reply@apple.com"
	ReceiptSubject = "Your receipt"
)

// Gmail defaults.
const (
	DefaultHost    = "imap.gmail.com"
	DefaultPort    = 993
	DefaultMailbox = "[Gmail]/All Mail"
)

const (
	defaultWorkers        = 20
	defaultFetchTimeout   = 30 * time.Second
	defaultMailboxRetries = 3
)

var (
	// ErrAuthentication means the server rejected the credentials.
	// Fatal for the run; the user is never reprompted after a failed login.
	ErrAuthentication = errors.New("authentication failed")
	// ErrMailboxNotFound means the target mailbox does not exist.
	ErrMailboxNotFound = errors.New("mailbox not found")
	// ErrNoReceipts means the search matched zero messages.
	ErrNoReceipts = errors.New("no receipts found")
)

// PromptFunc asks the user for another mailbox name. Returning false
// aborts the retry loop.
type PromptFunc func(reason string) (string, bool)

// Options configures the IMAP source.
type Options struct {
	Host string
	Port int
	SSL  bool

	Username string
	Password string
	// TokenSource, when set, switches authentication from LOGIN to
	// XOAUTH2 (Gmail's OAuth2 SASL mechanism).
	TokenSource oauth2.TokenSource

	Mailbox string
	// Prompt is invoked when the mailbox is missing or empty of
	// receipts. Nil disables reprompting.
	Prompt PromptFunc
	// MailboxRetries bounds how often Prompt is consulted.
	MailboxRetries int

	// MaxWorkers bounds concurrent body fetches.
	MaxWorkers int
	// FetchTimeout bounds one body fetch, retries included.
	FetchTimeout time.Duration

	Logger *slog.Logger
}

// Source fetches receipt bodies over IMAP.
type Source struct {
	opts   Options
	logger *slog.Logger
}

// New creates an IMAP source, applying defaults for unset options.
func New(opts Options) *Source {
	if opts.Host == "" {
		opts.Host = DefaultHost
	}
	if opts.Port == 0 {
		opts.Port = DefaultPort
	}
	if opts.Mailbox == "" {
		opts.Mailbox = DefaultMailbox
	}
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = defaultWorkers
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = defaultFetchTimeout
	}
	if opts.MailboxRetries <= 0 {
		opts.MailboxRetries = defaultMailboxRetries
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Source{opts: opts, logger: logger}
}

// Fetch connects, authenticates, locates the receipt messages and
// streams their bodies to out. The out channel is closed on return.
func (s *Source) Fetch(ctx context.Context, out chan<- api.RawMessage) error {
	defer close(out)

	s.logger.Info("connecting", "host", s.opts.Host, "port", s.opts.Port, "ssl", s.opts.SSL)

	client, err := s.dial()
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", s.opts.Host, err)
	}
	defer client.Close()

	if err := s.authenticate(client); err != nil {
		return err
	}

	nums, err := s.findReceipts(client)
	if err != nil {
		return err
	}

	s.logger.Info("downloading receipts", "count", len(nums))
	s.fetchAll(ctx, client, nums, out)

	if err := client.Logout().Wait(); err != nil {
		s.logger.Warn("logout failed", "error", err)
	}

	return ctx.Err()
}

func (s *Source) dial() (*imapclient.Client, error) {
	addr := net.JoinHostPort(s.opts.Host, strconv.Itoa(s.opts.Port))
	if s.opts.SSL {
		return imapclient.DialTLS(addr, nil)
	}
	return imapclient.DialInsecure(addr, nil)
}

func (s *Source) authenticate(client *imapclient.Client) error {
	if s.opts.TokenSource != nil {
		token, err := s.opts.TokenSource.Token()
		if err != nil {
			return fmt.Errorf("%w: obtaining oauth token: %v", ErrAuthentication, err)
		}
		if err := client.Authenticate(newXOAuth2Client(s.opts.Username, token.AccessToken)); err != nil {
			return fmt.Errorf("%w: %v", ErrAuthentication, err)
		}
		return nil
	}

	if err := client.Login(s.opts.Username, s.opts.Password).Wait(); err != nil {
		return fmt.Errorf("%w: wrong username and/or password: %v", ErrAuthentication, err)
	}
	return nil
}

// findReceipts selects the mailbox read-only and searches for receipt
// messages. A missing mailbox or an empty search result reprompts for a
// different mailbox name, bounded by MailboxRetries. Login failures never
// reach this loop.
func (s *Source) findReceipts(client *imapclient.Client) ([]uint32, error) {
	criteria := &imap.SearchCriteria{
		Header: []imap.SearchCriteriaHeaderField{
			{Key: "From", Value: ReceiptSender},
			{Key: "Subject", Value: ReceiptSubject},
		},
	}

	mailbox := s.opts.Mailbox
	var lastErr error

	for attempt := 0; attempt <= s.opts.MailboxRetries; attempt++ {
		var reason string

		if _, err := client.Select(mailbox, &imap.SelectOptions{ReadOnly: true}).Wait(); err != nil {
			lastErr = fmt.Errorf("%w: %s", ErrMailboxNotFound, mailbox)
			reason = fmt.Sprintf("Mailbox %s does not exist", mailbox)
			s.logger.Warn("mailbox not found", "mailbox", mailbox, "error", err)
		} else {
			s.logger.Info("looking for receipts", "mailbox", mailbox)
			data, err := client.Search(criteria, nil).Wait()
			if err != nil {
				return nil, fmt.Errorf("searching %s: %w", mailbox, err)
			}
			nums := data.AllSeqNums()
			if len(nums) > 0 {
				return nums, nil
			}
			lastErr = fmt.Errorf("%w in mailbox %s", ErrNoReceipts, mailbox)
			reason = fmt.Sprintf("No receipts found in mailbox %s", mailbox)
		}

		if s.opts.Prompt == nil {
			return nil, lastErr
		}
		next, ok := s.opts.Prompt(reason)
		if !ok || next == "" {
			return nil, lastErr
		}
		mailbox = next
	}

	return nil, lastErr
}

// fetchAll downloads message bodies with a bounded worker pool. Workers
// pull from a shared job channel so a slow message never stalls a whole
// statically assigned chunk.
func (s *Source) fetchAll(ctx context.Context, client *imapclient.Client, nums []uint32, out chan<- api.RawMessage) {
	workers := s.opts.MaxWorkers
	if len(nums) < workers {
		workers = len(nums)
	}

	jobs := make(chan uint32)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for num := range jobs {
				body, err := s.fetchBody(ctx, client, num)
				if err != nil {
					s.logger.Warn("failed to fetch message", "seq", num, "error", err)
					continue
				}
				select {
				case <-ctx.Done():
					return
				case out <- api.RawMessage{ID: strconv.FormatUint(uint64(num), 10), Body: body}:
				}
			}
		}()
	}

feed:
	for _, num := range nums {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- num:
		}
	}
	close(jobs)
	wg.Wait()
}

// fetchBody retrieves BODY[TEXT] for one message, with retries and a hard
// timeout so a dead connection fails loudly instead of hanging.
func (s *Source) fetchBody(ctx context.Context, client *imapclient.Client, num uint32) (string, error) {
	var body string

	done := make(chan error, 1)
	go func() {
		done <- retry.Do(
			func() error {
				text, err := fetchBodyOnce(client, num)
				if err != nil {
					return err
				}
				body = text
				return nil
			},
			retry.Attempts(2),
			retry.Delay(time.Second),
			retry.LastErrorOnly(true),
		)
	}()

	select {
	case err := <-done:
		return body, err
	case <-time.After(s.opts.FetchTimeout):
		return "", fmt.Errorf("fetch of message %d timed out after %v", num, s.opts.FetchTimeout)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func fetchBodyOnce(client *imapclient.Client, num uint32) (string, error) {
	section := &imap.FetchItemBodySection{Specifier: imap.PartSpecifierText, Peek: true}

	msgs, err := client.Fetch(imap.SeqSetNum(num), &imap.FetchOptions{
		BodySection: []*imap.FetchItemBodySection{section},
	}).Collect()
	if err != nil {
		return "", fmt.Errorf("fetching message %d: %w", num, err)
	}
	if len(msgs) == 0 {
		return "", fmt.Errorf("message %d: no fetch data", num)
	}

	text := msgs[0].FindBodySection(section)
	if text == nil {
		return "", fmt.Errorf("message %d: no text section", num)
	}
	return string(text), nil
}
