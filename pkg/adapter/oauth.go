package adapter

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	drive "google.golang.org/api/drive/v3"

	"github.com/kadoten/drivemaid/pkg/utils/logging"
)

// NewOAuthClient builds an authenticated HTTP client for the Drive API.
// The client secret JSON is read from credentialsPath; the token blob is
// persisted to tokenPath and refreshed transparently. When no token exists
// yet, an interactive authorization code flow runs on in/out.
func NewOAuthClient(ctx context.Context, credentialsPath, tokenPath string, in io.Reader, out io.Writer) (*http.Client, error) {
	secret, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read credentials file", goerr.V("path", credentialsPath))
	}

	config, err := google.ConfigFromJSON(secret, drive.DriveScope)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse client secret")
	}

	token, err := loadToken(tokenPath)
	if err != nil {
		logging.From(ctx).Info("no stored token, starting authorization flow", "path", tokenPath)

		token, err = authorize(ctx, config, in, out)
		if err != nil {
			return nil, err
		}
		if err := saveToken(tokenPath, token); err != nil {
			return nil, err
		}
	}

	// Wrap the token source so refreshed tokens are written back to disk.
	src := &persistedTokenSource{
		path: tokenPath,
		src:  config.TokenSource(ctx, token),
		last: token,
	}

	return oauth2.NewClient(ctx, src), nil
}

func authorize(ctx context.Context, config *oauth2.Config, in io.Reader, out io.Writer) (*oauth2.Token, error) {
	url := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Fprintf(out, "Open the following URL in your browser, then paste the authorization code:\n%s\n> ", url)

	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		return nil, goerr.New("no authorization code provided")
	}

	token, err := config.Exchange(ctx, scanner.Text())
	if err != nil {
		return nil, goerr.Wrap(err, "failed to exchange authorization code")
	}

	return token, nil
}

func loadToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open token file", goerr.V("path", path))
	}
	defer f.Close()

	var token oauth2.Token
	if err := json.NewDecoder(f).Decode(&token); err != nil {
		return nil, goerr.Wrap(err, "failed to decode token file", goerr.V("path", path))
	}

	return &token, nil
}

func saveToken(path string, token *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return goerr.Wrap(err, "failed to create token file", goerr.V("path", path))
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(token); err != nil {
		return goerr.Wrap(err, "failed to encode token")
	}

	return nil
}

// persistedTokenSource writes refreshed tokens back to disk so the next run
// does not repeat the authorization flow.
type persistedTokenSource struct {
	path string
	src  oauth2.TokenSource
	last *oauth2.Token
}

func (s *persistedTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.src.Token()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch oauth token")
	}

	if s.last == nil || token.AccessToken != s.last.AccessToken {
		s.last = token
		if err := saveToken(s.path, token); err != nil {
			logging.Default().Warn("failed to persist refreshed token", "error", err)
		}
	}

	return token, nil
}
