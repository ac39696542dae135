// Package cli provides the command-line interface for x-post.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/andreichenchik/x-post-cli/internal/auth"
	"github.com/andreichenchik/x-post-cli/internal/browser"
	"github.com/andreichenchik/x-post-cli/internal/config"
	"github.com/andreichenchik/x-post-cli/internal/store"
	"github.com/andreichenchik/x-post-cli/internal/text"
	"github.com/andreichenchik/x-post-cli/internal/x"
)

// Version information
const Version = "0.1.0"

const maxPostLength = 280

// Command flags
var (
	fromFile  string
	replyTo   string
	imagePath string
	resetAuth bool
	resetKeys bool
)

// RootCmd is the root command for the CLI.
var RootCmd = &cobra.Command{
	Use:   "x-post [text]",
	Short: "Publish a post on X (Twitter)",
	Long: `Publish a post on X (Twitter) using the v2 API.

Post text is taken from the first argument, from --from-file, or from
standard input. On first use the tool walks through OAuth 2.0 setup and
stores credentials for subsequent runs.`,
	Example: `  # Post inline text
  x-post "Hello X!"

  # Post from a file
  x-post --from-file draft.txt

  # Continue a thread
  x-post --reply-to 1234567890 "Next post in the thread"

  # Attach an image (requires OAuth 1.0a keys, prompted on first use)
  x-post --image photo.png "Look at this"`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runPost,
}

// Init initializes the CLI commands and flags.
func Init() {
	RootCmd.Version = Version
	RootCmd.SetVersionTemplate("x-post version {{.Version}}\n")

	RootCmd.Flags().StringVar(&fromFile, "from-file", "", "Read post text from a file")
	RootCmd.Flags().StringVar(&replyTo, "reply-to", "", "Post ID to reply to (for threading)")
	RootCmd.Flags().StringVar(&imagePath, "image", "", "Attach an image (jpg/png/gif/webp, max 5 MB)")
	RootCmd.Flags().BoolVar(&resetAuth, "reset-auth", false, "Clear saved OAuth 2.0 tokens and re-authorize")
	RootCmd.Flags().BoolVar(&resetKeys, "reset-keys", false, "Clear all saved credentials and re-prompt from scratch")
}

func runPost(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	logger := log.New(os.Stderr, "x-post: ", 0)

	cfg, err := config.Load(filepath.Join(config.DefaultDir(), "config.json"))
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	switch {
	case resetKeys:
		err = st.Remove(ctx,
			"client_id", "client_secret",
			auth.KeyAccessToken, auth.KeyRefreshToken,
			"api_key", "api_key_secret",
			"oauth1_access_token", "oauth1_access_token_secret",
		)
	case resetAuth:
		err = st.Remove(ctx, auth.KeyAccessToken, auth.KeyRefreshToken)
	}
	if err != nil {
		return err
	}

	if !hasKey(ctx, st, "client_id") {
		printFirstRunGuide(cfg.CallbackPort)
	}

	clientID, err := promptIfMissing(ctx, st, "client_id", "Client ID")
	if err != nil {
		return err
	}
	clientSecret, err := promptIfMissing(ctx, st, "client_secret", "Client Secret")
	if err != nil {
		return err
	}

	postText, err := readPostText(args)
	if err != nil {
		return err
	}
	if postText == "" {
		return errors.New("empty post text, aborting")
	}
	if length := text.Count(postText); length > maxPostLength {
		return fmt.Errorf("post too long: %d/%d characters", length, maxPostLength)
	}

	listener := auth.NewCallbackServer(cfg.CallbackPort, logger)
	tokens := auth.NewTokenClient(clientID, clientSecret, listener.RedirectURI(), cfg.ExchangeTimeout.Duration)
	probe := auth.NewProbe(cfg.ProbeTimeout.Duration, logger)
	manager := auth.NewManager(st, probe, tokens, listener, openConsentPage, logger)

	accessToken, err := manager.EnsureAccessToken(ctx, resetAuth)
	if err != nil {
		return err
	}

	var oauth1 *x.OAuth1Credentials
	if imagePath != "" {
		oauth1, err = ensureOAuth1(ctx, st)
		if err != nil {
			return err
		}
	}

	client := x.NewClient(accessToken, oauth1, cfg.RequestTimeout.Duration, logger)

	var mediaIDs []string
	if imagePath != "" {
		mediaID, err := client.UploadMedia(ctx, imagePath)
		if err != nil {
			return err
		}
		mediaIDs = []string{mediaID}
	}

	result, err := client.CreatePost(ctx, postText, x.PostOptions{
		ReplyToID: replyTo,
		MediaIDs:  mediaIDs,
	})
	if err != nil {
		return err
	}

	green := color.New(color.FgGreen).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	fmt.Println(green("Post published!"))
	fmt.Println(result.URL)
	fmt.Printf("\nTo continue this thread:\n  %s\n",
		cyan(fmt.Sprintf("x-post --reply-to %s \"Next post text\"", result.ID)))

	return nil
}

// openConsentPage is the browser collaborator handed to the auth manager.
// The URL is always printed so the user can navigate manually if the
// launcher fails.
func openConsentPage(url string) error {
	fmt.Printf("Opening browser for authorization...\n%s\n", url)
	return browser.Open(url)
}

// readPostText resolves the post text from argument, file, or stdin.
func readPostText(args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	if fromFile != "" {
		data, err := os.ReadFile(fromFile)
		if err != nil {
			return "", fmt.Errorf("failed to read post text: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	fmt.Println("Enter post text (Ctrl+D to send):")
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read post text: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// hasKey reports whether the store already holds a non-empty value for key.
func hasKey(ctx context.Context, st *store.SQLiteStore, key string) bool {
	value, err := st.Get(ctx, key)
	return err == nil && value != ""
}

// promptIfMissing returns the stored value for key, prompting the user and
// persisting the answer when it is not stored yet.
func promptIfMissing(ctx context.Context, st *store.SQLiteStore, key, displayName string) (string, error) {
	value, err := st.Get(ctx, key)
	if err == nil && value != "" {
		return value, nil
	}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return "", err
	}

	fmt.Printf("%s: ", displayName)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	value = strings.TrimSpace(line)
	if value == "" {
		return "", fmt.Errorf("%s is required, aborting", displayName)
	}

	if err := st.Set(ctx, key, value); err != nil {
		return "", err
	}
	return value, nil
}

// ensureOAuth1 collects the OAuth 1.0a credentials needed for media uploads,
// prompting for any that are missing.
func ensureOAuth1(ctx context.Context, st *store.SQLiteStore) (*x.OAuth1Credentials, error) {
	if !hasKey(ctx, st, "api_key") {
		fmt.Print(`
Image upload requires OAuth 1.0a credentials
=============================================
In your app at https://developer.x.com:

1. Go to Keys and Tokens tab
2. Under Consumer Keys, copy API Key and API Key Secret
3. Under Authentication Tokens, generate Access Token and Secret
   (make sure the token has Read and Write permissions)

`)
	}

	apiKey, err := promptIfMissing(ctx, st, "api_key", "API Key")
	if err != nil {
		return nil, err
	}
	apiKeySecret, err := promptIfMissing(ctx, st, "api_key_secret", "API Key Secret")
	if err != nil {
		return nil, err
	}
	accessToken, err := promptIfMissing(ctx, st, "oauth1_access_token", "OAuth 1.0a Access Token")
	if err != nil {
		return nil, err
	}
	accessTokenSecret, err := promptIfMissing(ctx, st, "oauth1_access_token_secret", "OAuth 1.0a Access Token Secret")
	if err != nil {
		return nil, err
	}

	return &x.OAuth1Credentials{
		APIKey:            apiKey,
		APIKeySecret:      apiKeySecret,
		AccessToken:       accessToken,
		AccessTokenSecret: accessTokenSecret,
	}, nil
}

// printFirstRunGuide walks a new user through creating OAuth 2.0 credentials.
func printFirstRunGuide(callbackPort int) {
	fmt.Printf(`
First-time setup
================
You need OAuth 2.0 credentials from the X Developer Portal.

1. Go to https://developer.x.com and create a project & app
2. In User authentication settings, enable OAuth 2.0
3. Set type to Native App, callback URL: http://localhost:%d/callback
4. Copy the Client ID and Client Secret below

`, callbackPort)
}
