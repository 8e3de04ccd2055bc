package identity

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jrsteele09/go-chat-auth/internal/errors"
	"golang.org/x/oauth2"
)

// Refresh exchanges a refresh token for a new ID token at the secure token
// endpoint (grant_type=refresh_token).
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*RefreshResponse, error) {
	if refreshToken == "" {
		return nil, errors.Wrapf(errors.ErrNoRefreshToken, "[identity Refresh]")
	}

	conf := &oauth2.Config{
		Endpoint: oauth2.Endpoint{
			TokenURL:  c.secureTokenURL + "?key=" + url.QueryEscape(c.apiKey),
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	tok, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			if apiErr := parseAPIError(retrieveErr.Response.StatusCode, retrieveErr.Body); apiErr != nil {
				return nil, apiErr
			}
			return nil, fmt.Errorf("[identity Refresh] %w: status %d", errors.ErrUnexpectedResponse, retrieveErr.Response.StatusCode)
		}
		return nil, fmt.Errorf("[identity Refresh] %w: %w", errors.ErrTransport, err)
	}

	resp := &RefreshResponse{
		IDToken:      extraString(tok, "id_token"),
		RefreshToken: tok.RefreshToken,
		ExpiresIn:    extraString(tok, "expires_in"),
		UserID:       extraString(tok, "user_id"),
	}
	if resp.IDToken == "" {
		return nil, fmt.Errorf("[identity Refresh] %w: missing id_token", errors.ErrUnexpectedResponse)
	}
	return resp, nil
}

func extraString(tok *oauth2.Token, key string) string {
	switch v := tok.Extra(key).(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprint(v)
	}
}
